package forecast

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexFloat decodes numeric columns that the intake form sometimes stored as
// strings. Missing, null, empty-string, and unparseable values decode to 0.
type FlexFloat float64

// UnmarshalJSON accepts numbers, quoted numbers, null, and empty strings.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*f = 0
		return nil
	}
	*f = FlexFloat(v)
	return nil
}

// MarshalJSON always emits a plain number.
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(f))
}

// Float returns the underlying value.
func (f FlexFloat) Float() float64 { return float64(f) }

// PickupFrequency constrains how many time slots a service detail may carry.
type PickupFrequency string

const (
	PickupNone  PickupFrequency = "none"
	PickupOnce  PickupFrequency = "once"
	PickupTwice PickupFrequency = "twice"
)

// SlotCount returns the number of time slots the frequency requires.
func (p PickupFrequency) SlotCount() int {
	switch p {
	case PickupOnce:
		return 1
	case PickupTwice:
		return 2
	default:
		return 0
	}
}

// ServiceDetail is the per-service embedded document attached to a submission
// for each selected service-mix tag. Unknown keys are preserved in Extra so
// the table view can surface them.
type ServiceDetail struct {
	PickupFrequency PickupFrequency
	TimeSlots       []string
	City            string
	District        string
	WeeklyShipments FlexFloat
	CODPercent      FlexFloat
	PPDPercent      FlexFloat
	Notes           string
	Extra           map[string]string
}

var serviceDetailKnownKeys = map[string]bool{
	"pickup_frequency": true,
	"timeSlots":        true,
	"time_slots":       true,
	"city":             true,
	"district":         true,
	"weekly_shipments": true,
	"cod_percent":      true,
	"ppd_percent":      true,
	"notes":            true,
}

// UnmarshalJSON decodes the known fields and collects the rest into Extra.
func (d *ServiceDetail) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = ServiceDetail{}
	if v, ok := raw["pickup_frequency"]; ok {
		var s string
		_ = json.Unmarshal(v, &s)
		d.PickupFrequency = PickupFrequency(s)
	}
	slots := raw["timeSlots"]
	if slots == nil {
		slots = raw["time_slots"]
	}
	if slots != nil {
		_ = json.Unmarshal(slots, &d.TimeSlots)
	}
	if v, ok := raw["city"]; ok {
		_ = json.Unmarshal(v, &d.City)
	}
	if v, ok := raw["district"]; ok {
		_ = json.Unmarshal(v, &d.District)
	}
	if v, ok := raw["weekly_shipments"]; ok {
		_ = d.WeeklyShipments.UnmarshalJSON(v)
	}
	if v, ok := raw["cod_percent"]; ok {
		_ = d.CODPercent.UnmarshalJSON(v)
	}
	if v, ok := raw["ppd_percent"]; ok {
		_ = d.PPDPercent.UnmarshalJSON(v)
	}
	if v, ok := raw["notes"]; ok {
		_ = json.Unmarshal(v, &d.Notes)
	}
	for key, value := range raw {
		if serviceDetailKnownKeys[key] {
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			s = string(value)
		}
		if s == "" {
			continue
		}
		if d.Extra == nil {
			d.Extra = map[string]string{}
		}
		d.Extra[key] = s
	}
	return nil
}

// MarshalJSON re-serializes the document in the intake form's wire shape.
func (d ServiceDetail) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"pickup_frequency": string(d.PickupFrequency),
		"timeSlots":        nonNilSlots(d.TimeSlots),
		"city":             d.City,
		"district":         d.District,
		"weekly_shipments": d.WeeklyShipments,
		"cod_percent":      d.CODPercent,
		"ppd_percent":      d.PPDPercent,
		"notes":            d.Notes,
	}
	for key, value := range d.Extra {
		out[key] = value
	}
	return json.Marshal(out)
}

func nonNilSlots(slots []string) []string {
	if slots == nil {
		return []string{}
	}
	return slots
}

// ParseServiceDetail decodes an embedded detail column. Empty and the literal
// "null" are treated as absent, not as errors.
func ParseServiceDetail(raw string) (ServiceDetail, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return ServiceDetail{}, false, nil
	}
	var detail ServiceDetail
	if err := json.Unmarshal([]byte(raw), &detail); err != nil {
		return ServiceDetail{}, true, err
	}
	return detail, true, nil
}

// Bundle is one entry of the special_bundles embedded list.
type Bundle struct {
	Name    string `json:"name"`
	Details string `json:"details"`
}

// ParseBundles decodes the special_bundles column. Empty input yields an
// empty list, never nil.
func ParseBundles(raw string) ([]Bundle, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return []Bundle{}, nil
	}
	var bundles []Bundle
	if err := json.Unmarshal([]byte(raw), &bundles); err != nil {
		return nil, err
	}
	if bundles == nil {
		bundles = []Bundle{}
	}
	return bundles, nil
}

// MarshalBundles serializes a bundle list; an empty list round-trips to "[]".
func MarshalBundles(bundles []Bundle) string {
	if bundles == nil {
		bundles = []Bundle{}
	}
	data, err := json.Marshal(bundles)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// ParseServiceMix splits the comma-joined service_mix column into tags.
func ParseServiceMix(mix string) []ServiceTag {
	if strings.TrimSpace(mix) == "" {
		return nil
	}
	parts := strings.Split(mix, ",")
	tags := make([]ServiceTag, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tags = append(tags, ServiceTag(part))
	}
	return tags
}

// JoinServiceMix re-serializes tags into the comma-joined column format.
func JoinServiceMix(tags []ServiceTag) string {
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		parts = append(parts, string(tag))
	}
	return strings.Join(parts, ",")
}

// HasTag reports whether the submission's mix contains the tag.
func (s Submission) HasTag(tag ServiceTag) bool {
	for _, t := range ParseServiceMix(s.ServiceMix) {
		if t == tag {
			return true
		}
	}
	return false
}

// ParsedDetail pairs a mix tag with its decoded document. Err is set when the
// column held malformed JSON; the document is then zero-valued and callers
// substitute a placeholder.
type ParsedDetail struct {
	Tag     ServiceTag
	Detail  ServiceDetail
	Present bool
	Err     error
}

// ActiveDetails decodes the detail document for every tag in the mix. Detail
// documents for tags absent from the mix are retained on the row but not
// surfaced here.
func (s Submission) ActiveDetails() []ParsedDetail {
	tags := ParseServiceMix(s.ServiceMix)
	out := make([]ParsedDetail, 0, len(tags))
	for _, tag := range tags {
		detail, present, err := ParseServiceDetail(s.DetailColumn(tag))
		out = append(out, ParsedDetail{Tag: tag, Detail: detail, Present: present, Err: err})
	}
	return out
}
