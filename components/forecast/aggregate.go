package forecast

import (
	"math"
	"sort"
	"time"
)

// weeksPerMonth is the fixed approximation used by every monthly projection.
const weeksPerMonth = 4

// invoiceRatePerShipment is a placeholder linear pricing stand-in, not a real
// billing computation.
const invoiceRatePerShipment = 10

// MonthlyShipments projects a row's weekly count onto a month.
func MonthlyShipments(row Submission) float64 {
	return row.WeeklyShipments.Float() * weeksPerMonth
}

// SumMonthlyShipments totals the monthly projection across rows. An empty
// input yields 0.
func SumMonthlyShipments(rows []Submission) float64 {
	total := 0.0
	for _, row := range rows {
		total += MonthlyShipments(row)
	}
	return total
}

// InvoiceValue estimates a row's monthly invoice with the placeholder rate.
func InvoiceValue(row Submission) float64 {
	return MonthlyShipments(row) * invoiceRatePerShipment
}

// SumInvoiceValue totals InvoiceValue across rows.
func SumInvoiceValue(rows []Submission) float64 {
	total := 0.0
	for _, row := range rows {
		total += InvoiceValue(row)
	}
	return total
}

// MixDistribution holds the percentage of rows whose mix contains each tag.
// A row counts toward every tag it carries, so the three values are
// independent and need not sum to 100.
type MixDistribution struct {
	HeavyBulky    float64
	International float64
	Parcel        float64
}

// ServiceMixDistribution computes per-tag percentages over rows.
func ServiceMixDistribution(rows []Submission) MixDistribution {
	if len(rows) == 0 {
		return MixDistribution{}
	}
	var hb, intl, parcel int
	for _, row := range rows {
		if row.HasTag(TagHeavyBulky) {
			hb++
		}
		if row.HasTag(TagInternational) {
			intl++
		}
		if row.HasTag(TagParcel) {
			parcel++
		}
	}
	total := float64(len(rows))
	return MixDistribution{
		HeavyBulky:    float64(hb) / total * 100,
		International: float64(intl) / total * 100,
		Parcel:        float64(parcel) / total * 100,
	}
}

// PaymentSplit is the COD/PPD share for a single row, both computed with the
// shipment-weighted average over its present service detail documents.
type PaymentSplit struct {
	COD float64
	PPD float64
}

// WeightedPaymentSplit averages cod_percent and ppd_percent across the row's
// active detail documents, weighted by each document's weekly shipments and
// rounded to one decimal. When no document contributes a positive weight the
// row's flat cod_percent/ppd_percent fields are used as-is.
func WeightedPaymentSplit(row Submission) PaymentSplit {
	var codSum, ppdSum, weight float64
	for _, parsed := range row.ActiveDetails() {
		if parsed.Err != nil || !parsed.Present {
			continue
		}
		w := parsed.Detail.WeeklyShipments.Float()
		if w <= 0 {
			continue
		}
		codSum += parsed.Detail.CODPercent.Float() * w
		ppdSum += parsed.Detail.PPDPercent.Float() * w
		weight += w
	}
	if weight <= 0 {
		return PaymentSplit{
			COD: row.CODPercent.Float(),
			PPD: row.PPDPercent.Float(),
		}
	}
	return PaymentSplit{
		COD: round1(codSum / weight),
		PPD: round1(ppdSum / weight),
	}
}

// OverallPaymentSplit averages the split across a set of rows, weighted by
// each row's weekly shipments. Rows with zero volume fall back to an
// unweighted average of their flat fields so an all-zero dataset still
// renders something sensible.
func OverallPaymentSplit(rows []Submission) PaymentSplit {
	var codSum, ppdSum, weight float64
	for _, row := range rows {
		w := row.WeeklyShipments.Float()
		if w <= 0 {
			continue
		}
		split := WeightedPaymentSplit(row)
		codSum += split.COD * w
		ppdSum += split.PPD * w
		weight += w
	}
	if weight <= 0 {
		var cod, ppd float64
		for _, row := range rows {
			split := WeightedPaymentSplit(row)
			cod += split.COD
			ppd += split.PPD
		}
		if len(rows) == 0 {
			return PaymentSplit{}
		}
		n := float64(len(rows))
		return PaymentSplit{COD: round1(cod / n), PPD: round1(ppd / n)}
	}
	return PaymentSplit{COD: round1(codSum / weight), PPD: round1(ppdSum / weight)}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// TrendReport carries three parallel sequences for the trailing six calendar
// months including the current one, oldest first.
type TrendReport struct {
	Labels    []string
	Shipments []float64
	Revenue   []float64
}

const trendMonths = 6

// TrendData buckets rows by the calendar month of their creation timestamp
// (UTC) and computes the monthly-shipment and invoice aggregates per bucket.
// Rows with unparseable timestamps fall outside every bucket.
func TrendData(rows []Submission, now time.Time) TrendReport {
	report := TrendReport{
		Labels:    make([]string, 0, trendMonths),
		Shipments: make([]float64, 0, trendMonths),
		Revenue:   make([]float64, 0, trendMonths),
	}
	now = now.UTC()
	for i := trendMonths - 1; i >= 0; i-- {
		month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
		bucket := monthRows(rows, month)
		report.Labels = append(report.Labels, month.Format("Jan 2006"))
		report.Shipments = append(report.Shipments, SumMonthlyShipments(bucket))
		report.Revenue = append(report.Revenue, SumInvoiceValue(bucket))
	}
	return report
}

func monthRows(rows []Submission, month time.Time) []Submission {
	out := make([]Submission, 0, len(rows))
	for _, row := range rows {
		created, ok := parseTimestamp(row.CreatedAt)
		if !ok {
			continue
		}
		created = created.UTC()
		if created.Year() == month.Year() && created.Month() == month.Month() {
			out = append(out, row)
		}
	}
	return out
}

// CustomerRanking pairs company labels with their summed invoice values,
// sorted descending.
type CustomerRanking struct {
	Labels []string
	Values []float64
}

const topCustomerLimit = 5

// TopCustomersByInvoice groups rows by company, sums invoice value per group,
// and returns the top five. Ties keep the first-encountered group first.
func TopCustomersByInvoice(rows []Submission) CustomerRanking {
	totals := map[string]float64{}
	order := make([]string, 0, len(rows))
	for _, row := range rows {
		name := row.CompanyName
		if name == "" {
			name = "Unknown"
		}
		if _, ok := totals[name]; !ok {
			order = append(order, name)
		}
		totals[name] += InvoiceValue(row)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return totals[order[i]] > totals[order[j]]
	})
	if len(order) > topCustomerLimit {
		order = order[:topCustomerLimit]
	}
	ranking := CustomerRanking{
		Labels: make([]string, 0, len(order)),
		Values: make([]float64, 0, len(order)),
	}
	for _, name := range order {
		ranking.Labels = append(ranking.Labels, name)
		ranking.Values = append(ranking.Values, totals[name])
	}
	return ranking
}

// StatusCounts buckets rows by lifecycle status. Rows with an absent status
// count as active.
type StatusCounts struct {
	Active   int
	OnHold   int
	Inactive int
}

// StatusDistribution counts rows per status.
func StatusDistribution(rows []Submission) StatusCounts {
	var counts StatusCounts
	for _, row := range rows {
		switch StatusOrDefault(row.Status) {
		case StatusOnHold:
			counts.OnHold++
		case StatusInactive:
			counts.Inactive++
		default:
			counts.Active++
		}
	}
	return counts
}

// StatusRevenueReport sums invoice value per status bucket.
type StatusRevenueReport struct {
	Active   float64
	OnHold   float64
	Inactive float64
}

// StatusRevenue totals invoice value per status.
func StatusRevenue(rows []Submission) StatusRevenueReport {
	var report StatusRevenueReport
	for _, row := range rows {
		revenue := InvoiceValue(row)
		switch StatusOrDefault(row.Status) {
		case StatusOnHold:
			report.OnHold += revenue
		case StatusInactive:
			report.Inactive += revenue
		default:
			report.Active += revenue
		}
	}
	return report
}

// StatusTrendReport carries per-status counts for the trailing six months.
type StatusTrendReport struct {
	Labels   []string
	Active   []int
	OnHold   []int
	Inactive []int
}

// StatusTrend buckets rows by creation month and counts statuses per bucket.
func StatusTrend(rows []Submission, now time.Time) StatusTrendReport {
	report := StatusTrendReport{
		Labels:   make([]string, 0, trendMonths),
		Active:   make([]int, 0, trendMonths),
		OnHold:   make([]int, 0, trendMonths),
		Inactive: make([]int, 0, trendMonths),
	}
	now = now.UTC()
	for i := trendMonths - 1; i >= 0; i-- {
		month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
		counts := StatusDistribution(monthRows(rows, month))
		report.Labels = append(report.Labels, month.Format("Jan"))
		report.Active = append(report.Active, counts.Active)
		report.OnHold = append(report.OnHold, counts.OnHold)
		report.Inactive = append(report.Inactive, counts.Inactive)
	}
	return report
}

// serviceTypeBuckets are the display groupings for the status-by-service
// report. Rows with an unknown service type fall into the first bucket.
var serviceTypeBuckets = []string{"Fulfillment", "Last Mile", "Fulfillment and Last Mile"}

// StatusByServiceReport carries per-status counts for each service type.
type StatusByServiceReport struct {
	Labels   []string
	Active   []int
	OnHold   []int
	Inactive []int
}

// StatusByService counts statuses per service-type bucket.
func StatusByService(rows []Submission) StatusByServiceReport {
	counts := make(map[string]*StatusCounts, len(serviceTypeBuckets))
	for _, label := range serviceTypeBuckets {
		counts[label] = &StatusCounts{}
	}
	for _, row := range rows {
		label := serviceTypeBucket(row.ServiceType)
		bucket := counts[label]
		switch StatusOrDefault(row.Status) {
		case StatusOnHold:
			bucket.OnHold++
		case StatusInactive:
			bucket.Inactive++
		default:
			bucket.Active++
		}
	}
	report := StatusByServiceReport{Labels: serviceTypeBuckets}
	for _, label := range serviceTypeBuckets {
		report.Active = append(report.Active, counts[label].Active)
		report.OnHold = append(report.OnHold, counts[label].OnHold)
		report.Inactive = append(report.Inactive, counts[label].Inactive)
	}
	return report
}

func serviceTypeBucket(serviceType string) string {
	switch normalizeServiceType(serviceType) {
	case "last-mile":
		return "Last Mile"
	case "fulfillment-and-last-mile":
		return "Fulfillment and Last Mile"
	default:
		return "Fulfillment"
	}
}

// RevenueBuckets pairs labels with revenue sums.
type RevenueBuckets struct {
	Labels []string
	Values []float64
}

// RevenueByService splits invoice value across the three mix tags. A row's
// full revenue counts toward every tag it carries.
func RevenueByService(rows []Submission) RevenueBuckets {
	totals := map[ServiceTag]float64{}
	for _, row := range rows {
		revenue := InvoiceValue(row)
		for _, tag := range ServiceTags {
			if row.HasTag(tag) {
				totals[tag] += revenue
			}
		}
	}
	buckets := RevenueBuckets{
		Labels: make([]string, 0, len(ServiceTags)),
		Values: make([]float64, 0, len(ServiceTags)),
	}
	for _, tag := range ServiceTags {
		buckets.Labels = append(buckets.Labels, tag.Label())
		buckets.Values = append(buckets.Values, totals[tag])
	}
	return buckets
}

// TypeDistribution pairs service-type labels with row counts, sorted by count
// descending with first-encountered order breaking ties.
type TypeDistribution struct {
	Labels []string
	Counts []int
}

// ServiceTypeDistribution counts rows per raw service_type value.
func ServiceTypeDistribution(rows []Submission) TypeDistribution {
	counts := map[string]int{}
	order := make([]string, 0, len(rows))
	for _, row := range rows {
		label := row.ServiceType
		if label == "" {
			label = "Unknown"
		}
		if _, ok := counts[label]; !ok {
			order = append(order, label)
		}
		counts[label]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	dist := TypeDistribution{
		Labels: make([]string, 0, len(order)),
		Counts: make([]int, 0, len(order)),
	}
	for _, label := range order {
		dist.Labels = append(dist.Labels, label)
		dist.Counts = append(dist.Counts, counts[label])
	}
	return dist
}

// Summary bundles the headline card values for the current filtered view.
type Summary struct {
	Title            string  `json:"title"`
	Rows             int     `json:"rows"`
	MonthlyShipments float64 `json:"monthly_shipments"`
	InvoiceTotal     float64 `json:"invoice_total"`
}

// Summarize computes the headline aggregates for rows under the given title.
func Summarize(title string, rows []Submission) Summary {
	return Summary{
		Title:            title,
		Rows:             len(rows),
		MonthlyShipments: SumMonthlyShipments(rows),
		InvoiceTotal:     SumInvoiceValue(rows),
	}
}
