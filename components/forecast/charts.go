package forecast

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const defaultChartHeight = "360px"

var sharedChartCache = NewChartCache(5 * time.Minute)

// ChartRenderer produces server-side chart HTML for the dashboard panels.
type ChartRenderer struct {
	cache      RenderCache
	theme      string
	assetsHost string
	clock      func() time.Time
}

// ChartRendererOption customizes renderer behavior.
type ChartRendererOption func(*ChartRenderer)

// WithChartCache injects a render cache.
func WithChartCache(cache RenderCache) ChartRendererOption {
	return func(r *ChartRenderer) {
		r.cache = cache
	}
}

// WithChartTheme sets the echarts theme (defaults to Westeros).
func WithChartTheme(theme string) ChartRendererOption {
	return func(r *ChartRenderer) {
		r.theme = theme
	}
}

// WithChartAssetsHost rewrites the assets host so ECharts JS loads from a CDN.
func WithChartAssetsHost(host string) ChartRendererOption {
	return func(r *ChartRenderer) {
		r.assetsHost = host
	}
}

// WithChartClock fixes the renderer's notion of now. Used by the trend
// charts, which window on the current month.
func WithChartClock(clock func() time.Time) ChartRendererOption {
	return func(r *ChartRenderer) {
		r.clock = clock
	}
}

// NewChartRenderer builds a renderer with shared defaults.
func NewChartRenderer(options ...ChartRendererOption) *ChartRenderer {
	r := &ChartRenderer{
		cache: sharedChartCache,
		theme: types.ThemeWesteros,
		clock: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// ChartSet is the full panel of rendered charts for one filtered view.
type ChartSet struct {
	Trend           string `json:"trend"`
	ServiceMix      string `json:"service_mix"`
	TopCustomers    string `json:"top_customers"`
	RevenueByMix    string `json:"revenue_by_service"`
	ServiceTypes    string `json:"service_types"`
	PaymentSplit    string `json:"payment_split"`
	Statuses        string `json:"statuses"`
	StatusTrend     string `json:"status_trend"`
	StatusRevenue   string `json:"status_revenue"`
	StatusByService string `json:"status_by_service"`
}

// RenderAll produces every dashboard chart for the given rows.
func (r *ChartRenderer) RenderAll(rows []Submission) (ChartSet, error) {
	var set ChartSet
	var err error
	steps := []struct {
		dst    *string
		render func([]Submission) (string, error)
	}{
		{&set.Trend, r.TrendChart},
		{&set.ServiceMix, r.ServiceMixChart},
		{&set.TopCustomers, r.TopCustomersChart},
		{&set.RevenueByMix, r.RevenueByServiceChart},
		{&set.ServiceTypes, r.ServiceTypeChart},
		{&set.PaymentSplit, r.PaymentSplitChart},
		{&set.Statuses, r.StatusChart},
		{&set.StatusTrend, r.StatusTrendChart},
		{&set.StatusRevenue, r.StatusRevenueChart},
		{&set.StatusByService, r.StatusByServiceChart},
	}
	for _, step := range steps {
		if *step.dst, err = step.render(rows); err != nil {
			return ChartSet{}, err
		}
	}
	return set, nil
}

// TrendChart plots monthly shipments and invoice value over the trailing six
// months.
func (r *ChartRenderer) TrendChart(rows []Submission) (string, error) {
	report := TrendData(rows, r.clock())
	return r.cached("trend", report, func() (string, error) {
		line := charts.NewLine()
		line.SetGlobalOptions(r.globalChartOptions("Forecast Trend", "Trailing six months")...)
		line.SetXAxis(report.Labels)
		line.AddSeries("Monthly Shipments", toLineData(report.Shipments))
		line.AddSeries("Invoice Value (SAR)", toLineData(report.Revenue))
		line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		return renderChart(line)
	})
}

// ServiceMixChart plots the share of rows carrying each service tag.
func (r *ChartRenderer) ServiceMixChart(rows []Submission) (string, error) {
	dist := ServiceMixDistribution(rows)
	return r.cached("service-mix", dist, func() (string, error) {
		pie := charts.NewPie()
		pie.SetGlobalOptions(r.globalChartOptions("Service Mix", "Share of submissions per service")...)
		pie.AddSeries("Service Mix", []opts.PieData{
			{Name: TagHeavyBulky.Label(), Value: dist.HeavyBulky},
			{Name: TagInternational.Label(), Value: dist.International},
			{Name: TagParcel.Label(), Value: dist.Parcel},
		})
		return renderChart(pie)
	})
}

// TopCustomersChart plots the five companies with the highest invoice value.
func (r *ChartRenderer) TopCustomersChart(rows []Submission) (string, error) {
	ranking := TopCustomersByInvoice(rows)
	return r.cached("top-customers", ranking, func() (string, error) {
		bar := charts.NewBar()
		bar.SetGlobalOptions(r.globalChartOptions("Top Customers", "By monthly invoice value")...)
		bar.SetXAxis(ranking.Labels)
		bar.AddSeries("Invoice Value (SAR)", toBarData(ranking.Values))
		return renderChart(bar)
	})
}

// RevenueByServiceChart plots invoice value per service tag.
func (r *ChartRenderer) RevenueByServiceChart(rows []Submission) (string, error) {
	buckets := RevenueByService(rows)
	return r.cached("revenue-by-service", buckets, func() (string, error) {
		pie := charts.NewPie()
		pie.SetGlobalOptions(r.globalChartOptions("Revenue by Service", "")...)
		pie.AddSeries("Revenue", toPieData(buckets.Labels, buckets.Values))
		return renderChart(pie)
	})
}

// ServiceTypeChart plots row counts per raw service type.
func (r *ChartRenderer) ServiceTypeChart(rows []Submission) (string, error) {
	dist := ServiceTypeDistribution(rows)
	return r.cached("service-types", dist, func() (string, error) {
		pie := charts.NewPie()
		pie.SetGlobalOptions(r.globalChartOptions("Service Types", "")...)
		values := make([]float64, len(dist.Counts))
		for i, n := range dist.Counts {
			values[i] = float64(n)
		}
		pie.AddSeries("Submissions", toPieData(dist.Labels, values))
		return renderChart(pie)
	})
}

// PaymentSplitChart plots the shipment-weighted COD/PPD split.
func (r *ChartRenderer) PaymentSplitChart(rows []Submission) (string, error) {
	split := OverallPaymentSplit(rows)
	return r.cached("payment-split", split, func() (string, error) {
		pie := charts.NewPie()
		pie.SetGlobalOptions(r.globalChartOptions("Payment Split", "Weighted by weekly shipments")...)
		pie.AddSeries("Payment", []opts.PieData{
			{Name: "Cash on Delivery", Value: split.COD},
			{Name: "Prepaid", Value: split.PPD},
		})
		return renderChart(pie)
	})
}

// StatusChart plots row counts per lifecycle status.
func (r *ChartRenderer) StatusChart(rows []Submission) (string, error) {
	counts := StatusDistribution(rows)
	return r.cached("statuses", counts, func() (string, error) {
		pie := charts.NewPie()
		pie.SetGlobalOptions(r.globalChartOptions("Status Distribution", "")...)
		pie.AddSeries("Status", []opts.PieData{
			{Name: StatusActive.Label(), Value: counts.Active},
			{Name: StatusOnHold.Label(), Value: counts.OnHold},
			{Name: StatusInactive.Label(), Value: counts.Inactive},
		})
		return renderChart(pie)
	})
}

// StatusTrendChart plots per-status counts over the trailing six months.
func (r *ChartRenderer) StatusTrendChart(rows []Submission) (string, error) {
	report := StatusTrend(rows, r.clock())
	return r.cached("status-trend", report, func() (string, error) {
		line := charts.NewLine()
		line.SetGlobalOptions(r.globalChartOptions("Status Trend", "Trailing six months")...)
		line.SetXAxis(report.Labels)
		line.AddSeries(StatusActive.Label(), toLineData(intsToFloats(report.Active)))
		line.AddSeries(StatusOnHold.Label(), toLineData(intsToFloats(report.OnHold)))
		line.AddSeries(StatusInactive.Label(), toLineData(intsToFloats(report.Inactive)))
		line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		return renderChart(line)
	})
}

// StatusRevenueChart plots invoice value per lifecycle status.
func (r *ChartRenderer) StatusRevenueChart(rows []Submission) (string, error) {
	report := StatusRevenue(rows)
	return r.cached("status-revenue", report, func() (string, error) {
		bar := charts.NewBar()
		bar.SetGlobalOptions(r.globalChartOptions("Revenue by Status", "")...)
		bar.SetXAxis([]string{StatusActive.Label(), StatusOnHold.Label(), StatusInactive.Label()})
		bar.AddSeries("Invoice Value (SAR)", toBarData([]float64{report.Active, report.OnHold, report.Inactive}))
		return renderChart(bar)
	})
}

// StatusByServiceChart plots stacked per-status counts for each service type.
func (r *ChartRenderer) StatusByServiceChart(rows []Submission) (string, error) {
	report := StatusByService(rows)
	return r.cached("status-by-service", report, func() (string, error) {
		bar := charts.NewBar()
		bar.SetGlobalOptions(r.globalChartOptions("Status by Service Type", "")...)
		bar.SetXAxis(report.Labels)
		bar.AddSeries(StatusActive.Label(), toBarData(intsToFloats(report.Active)))
		bar.AddSeries(StatusOnHold.Label(), toBarData(intsToFloats(report.OnHold)))
		bar.AddSeries(StatusInactive.Label(), toBarData(intsToFloats(report.Inactive)))
		bar.SetSeriesOptions(charts.WithBarChartOpts(opts.BarChart{Stack: "status"}))
		return renderChart(bar)
	})
}

func (r *ChartRenderer) cached(name string, report any, render func() (string, error)) (string, error) {
	if r.cache == nil {
		return render()
	}
	key := fmt.Sprintf("%s:%s:%s", name, r.theme, datasetHash(report))
	return r.cache.GetOrRender(key, render)
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *ChartRenderer) globalChartOptions(title, subtitle string) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		Theme:  r.theme,
		Width:  "100%",
		Height: defaultChartHeight,
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func toBarData(values []float64) []opts.BarData {
	data := make([]opts.BarData, len(values))
	for i, v := range values {
		data[i] = opts.BarData{Value: v}
	}
	return data
}

func toLineData(values []float64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		data[i] = opts.LineData{Value: v}
	}
	return data
}

func toPieData(labels []string, values []float64) []opts.PieData {
	data := make([]opts.PieData, len(values))
	for i, v := range values {
		name := ""
		if i < len(labels) {
			name = labels[i]
		}
		if name == "" {
			name = fmt.Sprintf("Slice %d", i+1)
		}
		data[i] = opts.PieData{Name: name, Value: v}
	}
	return data
}

func intsToFloats(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
