package queries

import (
	"context"

	forecast "github.com/goliatone/forecast-dashboard/components/forecast"
	gocommand "github.com/goliatone/go-command"
)

// ChoicesRequest asks for the company filter choices.
type ChoicesRequest struct{}

// ChoicesResult lists the distinct companies plus the active selection.
type ChoicesResult struct {
	Selection string   `json:"selection"`
	Companies []string `json:"companies"`
}

// ChoicesQuery derives the filter dropdown choices from the store.
type ChoicesQuery struct {
	store *forecast.Store
}

// NewChoicesQuery builds the query.
func NewChoicesQuery(store *forecast.Store) *ChoicesQuery {
	return &ChoicesQuery{store: store}
}

var _ gocommand.Querier[ChoicesRequest, ChoicesResult] = (*ChoicesQuery)(nil)

// Query computes the distinct sorted company names.
func (q *ChoicesQuery) Query(ctx context.Context, _ ChoicesRequest) (ChoicesResult, error) {
	return ChoicesResult{
		Selection: q.store.Selection(),
		Companies: forecast.ComputeFilterChoices(q.store.All()),
	}, nil
}
