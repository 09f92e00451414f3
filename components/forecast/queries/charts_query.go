package queries

import (
	"context"

	forecast "github.com/goliatone/forecast-dashboard/components/forecast"
	gocommand "github.com/goliatone/go-command"
)

// ChartsRequest scopes a chart render. The zero value renders the filtered
// view.
type ChartsRequest struct{}

// ChartsResult pairs the rendered panel with its selection.
type ChartsResult struct {
	Selection string            `json:"selection"`
	Charts    forecast.ChartSet `json:"charts"`
}

// ChartsQuery renders the dashboard chart panel from the store.
type ChartsQuery struct {
	store    *forecast.Store
	renderer *forecast.ChartRenderer
}

// NewChartsQuery builds the query.
func NewChartsQuery(store *forecast.Store, renderer *forecast.ChartRenderer) *ChartsQuery {
	if renderer == nil {
		renderer = forecast.NewChartRenderer()
	}
	return &ChartsQuery{store: store, renderer: renderer}
}

var _ gocommand.Querier[ChartsRequest, ChartsResult] = (*ChartsQuery)(nil)

// Query renders every chart for the current filtered view.
func (q *ChartsQuery) Query(ctx context.Context, _ ChartsRequest) (ChartsResult, error) {
	set, err := q.renderer.RenderAll(q.store.Filtered())
	if err != nil {
		return ChartsResult{}, err
	}
	return ChartsResult{
		Selection: q.store.Selection(),
		Charts:    set,
	}, nil
}
