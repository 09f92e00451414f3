package queries

import (
	"context"
	"testing"
	"time"

	forecast "github.com/goliatone/forecast-dashboard/components/forecast"
)

func seededStore() *forecast.Store {
	store := forecast.NewStore()
	store.Load([]forecast.Submission{
		{ID: "1", CreatedAt: "2026-08-01T10:00:00Z", CompanyName: "Acme", WeeklyShipments: 10},
		{ID: "2", CreatedAt: "2026-07-20T10:00:00Z", CompanyName: "Globex", WeeklyShipments: 5},
		{ID: "3", CreatedAt: "2026-07-01T10:00:00Z", CompanyName: "Acme", WeeklyShipments: 2},
	})
	store.Recompute()
	return store
}

func TestRowsQueryFiltered(t *testing.T) {
	store := seededStore()
	store.SetFilter("Acme")
	store.Recompute()

	result, err := NewRowsQuery(store).Query(context.Background(), RowsRequest{})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if result.Selection != "Acme" {
		t.Fatalf("unexpected selection %q", result.Selection)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 filtered rows, got %d", len(result.Rows))
	}
	if result.Rows[0].ID != "1" || result.Rows[1].ID != "3" {
		t.Fatalf("unexpected order %q %q", result.Rows[0].ID, result.Rows[1].ID)
	}

	all, err := NewRowsQuery(store).Query(context.Background(), RowsRequest{All: true})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(all.Rows) != 3 {
		t.Fatalf("expected 3 rows with All, got %d", len(all.Rows))
	}
}

func TestChoicesQuery(t *testing.T) {
	store := seededStore()
	result, err := NewChoicesQuery(store).Query(context.Background(), ChoicesRequest{})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if result.Selection != forecast.FilterAll {
		t.Fatalf("unexpected selection %q", result.Selection)
	}
	if len(result.Companies) != 2 || result.Companies[0] != "Acme" || result.Companies[1] != "Globex" {
		t.Fatalf("unexpected companies %v", result.Companies)
	}
}

func TestSummaryQuery(t *testing.T) {
	store := seededStore()
	store.SetFilter("Acme")
	store.Recompute()

	summary, err := NewSummaryQuery(store).Query(context.Background(), SummaryRequest{})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if summary.Title != "Forecast for Acme" {
		t.Fatalf("unexpected title %q", summary.Title)
	}
	if summary.Rows != 2 {
		t.Fatalf("unexpected row count %d", summary.Rows)
	}
	if summary.MonthlyShipments != 48 {
		t.Fatalf("unexpected shipments %v", summary.MonthlyShipments)
	}
	if summary.InvoiceTotal != 480 {
		t.Fatalf("unexpected invoice %v", summary.InvoiceTotal)
	}
}

func TestChartsQuery(t *testing.T) {
	store := seededStore()
	renderer := forecast.NewChartRenderer(
		forecast.WithChartCache(nil),
		forecast.WithChartClock(func() time.Time {
			return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
		}),
	)
	result, err := NewChartsQuery(store, renderer).Query(context.Background(), ChartsRequest{})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if result.Charts.Trend == "" || result.Charts.Statuses == "" {
		t.Fatal("expected rendered chart HTML")
	}
}
