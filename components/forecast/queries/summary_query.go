package queries

import (
	"context"

	forecast "github.com/goliatone/forecast-dashboard/components/forecast"
	gocommand "github.com/goliatone/go-command"
)

// SummaryRequest asks for the headline cards of the current view.
type SummaryRequest struct{}

// SummaryQuery computes the headline aggregates for the filtered view.
type SummaryQuery struct {
	store *forecast.Store
}

// NewSummaryQuery builds the query.
func NewSummaryQuery(store *forecast.Store) *SummaryQuery {
	return &SummaryQuery{store: store}
}

var _ gocommand.Querier[SummaryRequest, forecast.Summary] = (*SummaryQuery)(nil)

// Query summarizes the filtered rows under the view title.
func (q *SummaryQuery) Query(ctx context.Context, _ SummaryRequest) (forecast.Summary, error) {
	return forecast.Summarize(q.store.Title(), q.store.Filtered()), nil
}
