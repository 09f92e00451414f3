package forecast

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chartRows() []Submission {
	return []Submission{
		{
			ID:              "1",
			CreatedAt:       "2026-08-01T10:00:00Z",
			CompanyName:     "Acme",
			ServiceType:     "last-mile",
			ServiceMix:      "parcel,hb",
			WeeklyShipments: 20,
			CODPercent:      60,
			PPDPercent:      40,
		},
		{
			ID:              "2",
			CreatedAt:       "2026-07-05T10:00:00Z",
			CompanyName:     "Globex",
			ServiceType:     "fulfillment",
			WeeklyShipments: 5,
			Status:          StatusOnHold,
		},
	}
}

func fixedClock() func() time.Time {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func TestChartRendererRenderAll(t *testing.T) {
	renderer := NewChartRenderer(
		WithChartCache(nil),
		WithChartClock(fixedClock()),
	)
	set, err := renderer.RenderAll(chartRows())
	require.NoError(t, err)

	assert.Contains(t, set.Trend, "Forecast Trend")
	assert.Contains(t, set.ServiceMix, "Service Mix")
	assert.Contains(t, set.TopCustomers, "Top Customers")
	assert.Contains(t, set.PaymentSplit, "Payment Split")
	assert.Contains(t, set.StatusByService, "Status by Service Type")
	assert.NotEmpty(t, set.Statuses)
	assert.NotEmpty(t, set.StatusTrend)
	assert.NotEmpty(t, set.StatusRevenue)
	assert.NotEmpty(t, set.RevenueByMix)
	assert.NotEmpty(t, set.ServiceTypes)
}

func TestChartRendererUsesCache(t *testing.T) {
	cache := NewChartCache(time.Minute)
	renderer := NewChartRenderer(
		WithChartCache(cache),
		WithChartClock(fixedClock()),
	)
	rows := chartRows()

	first, err := renderer.TopCustomersChart(rows)
	require.NoError(t, err)
	second, err := renderer.TopCustomersChart(rows)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	rows[0].WeeklyShipments = 999
	third, err := renderer.TopCustomersChart(rows)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestChartRendererAssetsHost(t *testing.T) {
	renderer := NewChartRenderer(
		WithChartCache(nil),
		WithChartClock(fixedClock()),
		WithChartAssetsHost("https://cdn.example/assets/"),
	)
	html, err := renderer.StatusChart(chartRows())
	require.NoError(t, err)
	assert.True(t, strings.Contains(html, "https://cdn.example/assets/"))
}
