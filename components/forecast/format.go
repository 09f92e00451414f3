package forecast

import (
	"fmt"
	"strings"
	"time"

	"github.com/ettle/strcase"
)

// notAvailable is the sentinel rendered for absent or unparseable values.
const notAvailable = "N/A"

// ksaZone is the fixed display timezone (UTC+3, no DST).
var ksaZone = time.FixedZone("AST", 3*60*60)

// timestampLayouts are tried in order when decoding gateway timestamps. The
// backend emits RFC 3339 with fractional seconds; older rows and the two date
// columns use shorter shapes.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatKSA renders a gateway timestamp in the KSA timezone, e.g.
// "Sep 6, 2025, 02:31 PM". Absent or unparseable input renders as N/A.
func FormatKSA(value string) string {
	t, ok := parseTimestamp(value)
	if !ok {
		return notAvailable
	}
	return t.In(ksaZone).Format("Jan 2, 2006, 03:04 PM")
}

// FormatDate renders the date portion of a timestamp, or N/A.
func FormatDate(value string) string {
	t, ok := parseTimestamp(value)
	if !ok {
		return notAvailable
	}
	return t.Format("2006-01-02")
}

// WeekInfo describes the ISO-8601 week containing a date.
type WeekInfo struct {
	Year  int
	Week  int
	Label string // "Week 36"
	Range string // "Sep 1 - Sep 7"
}

// ISOWeekInfo computes the ISO week for a gateway timestamp. The week
// containing a date belongs to the year of that week's Thursday; week 1 is
// the week containing the year's first Thursday.
func ISOWeekInfo(value string) (WeekInfo, bool) {
	t, ok := parseTimestamp(value)
	if !ok {
		return WeekInfo{}, false
	}
	year, week := t.ISOWeek()
	monday := t.AddDate(0, 0, -mondayOffset(t.Weekday()))
	sunday := monday.AddDate(0, 0, 6)
	return WeekInfo{
		Year:  year,
		Week:  week,
		Label: fmt.Sprintf("Week %d", week),
		Range: monday.Format("Jan 2") + " - " + sunday.Format("Jan 2"),
	}, true
}

func mondayOffset(day time.Weekday) int {
	// Monday = 0 ... Sunday = 6.
	return (int(day) + 6) % 7
}

// TitleizeOr title-cases an enum-like free-text value for display, or returns
// the fallback when the value is absent.
func TitleizeOr(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return strings.ToUpper(value[:1]) + strings.ToLower(value[1:])
}

func normalizeServiceType(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Truncate shortens long free text for compact display, appending an ellipsis
// marker. The untruncated value stays available on the cell. Length is counted
// in runes so multibyte text is never cut mid-character.
func Truncate(value string, max int) string {
	if max <= 3 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-3]) + "..."
}

// timeSlotLabels maps slot tags to clock ranges. Unrecognized tags pass
// through verbatim.
var timeSlotLabels = map[string]string{
	"morning":   "7:00 AM - 9:00 AM",
	"noon":      "11:00 AM - 1:00 PM",
	"afternoon": "1:00 PM - 2:00 PM",
	"evening":   "2:00 PM - 4:00 PM",
}

// TimeSlotLabel renders a pickup slot tag as a clock range.
func TimeSlotLabel(tag string) string {
	if label, ok := timeSlotLabels[tag]; ok {
		return label
	}
	return tag
}

// HumanizeKey converts a snake_case document key into a display label
// ("weekly_shipments" becomes "Weekly Shipments").
func HumanizeKey(key string) string {
	return strcase.ToCase(key, strcase.TitleCase, ' ')
}

// CellText keeps a truncated display value alongside the full text for
// tooltip-style surfaces.
type CellText struct {
	Display string `json:"display"`
	Full    string `json:"full"`
}

func cell(value string, max int, fallback string) CellText {
	if strings.TrimSpace(value) == "" {
		return CellText{Display: fallback, Full: ""}
	}
	return CellText{Display: Truncate(value, max), Full: value}
}

// DetailField is one display row of a service detail card.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ServiceCard is the rendered form of one active service detail document.
// ParseError is set instead of Fields when the embedded JSON was malformed.
type ServiceCard struct {
	Tag        string        `json:"tag"`
	Title      string        `json:"title"`
	Fields     []DetailField `json:"fields,omitempty"`
	ParseError string        `json:"parse_error,omitempty"`
}

// detailParsePlaceholder is surfaced when an embedded document cannot be
// decoded; rendering of the remaining columns continues unaffected.
const detailParsePlaceholder = "Could not parse service details"

// FileView describes an attached forecast file for display.
type FileView struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Path     string `json:"path"`
	URL      string `json:"url"`
}

// RowView is the display-ready projection of one submission.
type RowView struct {
	ID               string        `json:"id"`
	CreatedAt        string        `json:"created_at"`
	Week             WeekInfo      `json:"week"`
	CompanyName      string        `json:"company_name"`
	EmployeeName     string        `json:"employee_name"`
	EmployeeEmail    string        `json:"employee_email"`
	ServiceType      string        `json:"service_type"`
	InboundFrequency string        `json:"inbound_frequency"`
	WeeklyShipments  float64       `json:"weekly_shipments"`
	UnitsOutbound    float64       `json:"weekly_units_outbound"`
	UnitsInbound     float64       `json:"weekly_units_inbound"`
	AvgUnits         float64       `json:"avg_units_per_shipment"`
	ForecastStart    string        `json:"forecast_start"`
	ForecastEnd      string        `json:"forecast_end"`
	ServiceMix       string        `json:"service_mix"`
	Services         []ServiceCard `json:"services"`
	Bundles          CellText      `json:"bundles"`
	SKUNotes         CellText      `json:"sku_notes"`
	Payment          PaymentSplit  `json:"payment"`
	Status           Status        `json:"status"`
	StatusLabel      string        `json:"status_label"`
	File             *FileView     `json:"file,omitempty"`
}

// FormatRow maps one submission to its display fields. Malformed embedded
// JSON never propagates: affected cells render a placeholder while every
// other column is produced normally.
func FormatRow(row Submission) RowView {
	week, _ := ISOWeekInfo(row.CreatedAt)
	view := RowView{
		ID:               row.ID,
		CreatedAt:        FormatKSA(row.CreatedAt),
		Week:             week,
		CompanyName:      valueOr(row.CompanyName, notAvailable),
		EmployeeName:     valueOr(row.EmployeeName, notAvailable),
		EmployeeEmail:    valueOr(row.EmployeeEmail, notAvailable),
		ServiceType:      TitleizeOr(row.ServiceType, "Not set"),
		InboundFrequency: TitleizeOr(row.InboundFrequency, "Not set"),
		WeeklyShipments:  row.WeeklyShipments.Float(),
		UnitsOutbound:    row.WeeklyUnitsOutbound.Float(),
		UnitsInbound:     row.WeeklyUnitsInbound.Float(),
		AvgUnits:         row.AvgUnitsPerShipment.Float(),
		ForecastStart:    FormatDate(row.ForecastStartDate),
		ForecastEnd:      FormatDate(row.ForecastEndDate),
		ServiceMix:       valueOr(row.ServiceMix, "Not specified"),
		Services:         serviceCards(row),
		Bundles:          bundleCell(row),
		SKUNotes:         cell(row.SeasonalitySKUNotes, 30, notAvailable),
		Payment:          WeightedPaymentSplit(row),
		Status:           StatusOrDefault(row.Status),
		StatusLabel:      row.Status.Label(),
	}
	if row.ForecastFileName != "" {
		view.File = &FileView{
			Name:     Truncate(row.ForecastFileName, 20),
			FullName: row.ForecastFileName,
			Path:     row.ForecastFilePath,
			URL:      row.ForecastFileURL,
		}
	}
	return view
}

// FormatRows maps a filtered subsequence to table rows, preserving order.
func FormatRows(rows []Submission) []RowView {
	out := make([]RowView, 0, len(rows))
	for _, row := range rows {
		out = append(out, FormatRow(row))
	}
	return out
}

func serviceCards(row Submission) []ServiceCard {
	parsed := row.ActiveDetails()
	cards := make([]ServiceCard, 0, len(parsed))
	for _, p := range parsed {
		card := ServiceCard{Tag: string(p.Tag), Title: p.Tag.Label()}
		switch {
		case p.Err != nil:
			card.ParseError = detailParsePlaceholder
		case !p.Present:
			card.ParseError = "No details available"
		default:
			card.Fields = detailFields(p.Detail)
		}
		cards = append(cards, card)
	}
	return cards
}

func detailFields(detail ServiceDetail) []DetailField {
	fields := make([]DetailField, 0, 8)
	if w := detail.WeeklyShipments.Float(); w != 0 {
		fields = append(fields, DetailField{Label: "Weekly Shipments", Value: trimFloat(w)})
	}
	if c := detail.CODPercent.Float(); c != 0 {
		fields = append(fields, DetailField{Label: "Cash on Delivery %", Value: trimFloat(c) + "%"})
	}
	if p := detail.PPDPercent.Float(); p != 0 {
		fields = append(fields, DetailField{Label: "Pre Paid %", Value: trimFloat(p) + "%"})
	}
	if len(detail.TimeSlots) > 0 {
		labels := make([]string, 0, len(detail.TimeSlots))
		for _, slot := range detail.TimeSlots {
			labels = append(labels, TimeSlotLabel(slot))
		}
		fields = append(fields, DetailField{Label: "Time Slots", Value: strings.Join(labels, ", ")})
	}
	if detail.PickupFrequency != "" && detail.PickupFrequency != PickupNone {
		fields = append(fields, DetailField{Label: "Pickup Frequency", Value: TitleizeOr(string(detail.PickupFrequency), "")})
	}
	if detail.City != "" {
		fields = append(fields, DetailField{Label: "City", Value: detail.City})
	}
	if detail.District != "" {
		fields = append(fields, DetailField{Label: "District", Value: detail.District})
	}
	if detail.Notes != "" {
		fields = append(fields, DetailField{Label: "Notes", Value: Truncate(detail.Notes, 30)})
	}
	for key, value := range detail.Extra {
		fields = append(fields, DetailField{Label: HumanizeKey(key), Value: value})
	}
	return fields
}

func bundleCell(row Submission) CellText {
	if strings.TrimSpace(row.SpecialBundles) == "" && strings.TrimSpace(row.SpecialBundlesNotes) == "" {
		return CellText{Display: notAvailable}
	}
	parts := make([]string, 0, 4)
	if strings.TrimSpace(row.SpecialBundles) != "" {
		bundles, err := ParseBundles(row.SpecialBundles)
		if err != nil {
			parts = append(parts, "Error parsing bundle data")
		} else {
			for _, b := range bundles {
				entry := b.Name
				if entry == "" {
					entry = "Unnamed"
				}
				if b.Details != "" {
					entry += ": " + b.Details
				}
				parts = append(parts, entry)
			}
		}
	}
	if row.SpecialBundlesNotes != "" {
		parts = append(parts, "Notes: "+row.SpecialBundlesNotes)
	}
	full := strings.Join(parts, "\n")
	if full == "" {
		return CellText{Display: notAvailable}
	}
	return CellText{Display: Truncate(full, 100), Full: full}
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	s = strings.TrimSuffix(s, ".0")
	return s
}
