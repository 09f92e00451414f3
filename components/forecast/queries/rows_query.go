package queries

import (
	"context"

	forecast "github.com/goliatone/forecast-dashboard/components/forecast"
	gocommand "github.com/goliatone/go-command"
)

// RowsRequest scopes a table read. The zero value returns the filtered view.
type RowsRequest struct {
	All bool
}

// RowsResult carries display-ready table rows plus the selection they were
// computed under.
type RowsResult struct {
	Selection string             `json:"selection"`
	Rows      []forecast.RowView `json:"rows"`
}

// RowsQuery projects the view-state store into table rows.
type RowsQuery struct {
	store *forecast.Store
}

// NewRowsQuery builds the query.
func NewRowsQuery(store *forecast.Store) *RowsQuery {
	return &RowsQuery{store: store}
}

var _ gocommand.Querier[RowsRequest, RowsResult] = (*RowsQuery)(nil)

// Query formats the requested subsequence of the store.
func (q *RowsQuery) Query(ctx context.Context, req RowsRequest) (RowsResult, error) {
	rows := q.store.Filtered()
	if req.All {
		rows = q.store.All()
	}
	return RowsResult{
		Selection: q.store.Selection(),
		Rows:      forecast.FormatRows(rows),
	}, nil
}
