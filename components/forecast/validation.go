package forecast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// paymentSplitTolerance absorbs float noise when checking that the cash on
// delivery and prepaid percentages cover the whole volume.
const paymentSplitTolerance = 0.01

// ValidationError carries every failed rule for one draft so the caller can
// surface them together instead of one at a time.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "forecast: invalid draft: " + strings.Join(e.Messages, "; ")
}

// DraftValidator checks an edited submission before it is written back.
type DraftValidator interface {
	Validate(draft Submission) error
}

// RuleValidator enforces the business rules on a draft: payment splits must
// sum to 100, last-mile submissions must declare a service mix, and pickup
// slots must agree with the pickup frequency. Detail documents are first
// checked structurally against a JSON schema; rule checks only run on
// documents that decode.
type RuleValidator struct {
	mu       sync.RWMutex
	compiled *jsonschema.Schema
}

var _ DraftValidator = (*RuleValidator)(nil)

// NewRuleValidator builds the standard draft validator.
func NewRuleValidator() *RuleValidator {
	return &RuleValidator{}
}

// detailSchema constrains the shape of one service detail document. Numeric
// fields also accept their quoted form since older rows stored them as text.
// Unknown keys are allowed and rendered generically.
var detailSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"weekly_shipments": map[string]any{"type": []string{"number", "string"}},
		"cod_percent":      map[string]any{"type": []string{"number", "string"}},
		"ppd_percent":      map[string]any{"type": []string{"number", "string"}},
		"timeSlots": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"time_slots": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"pickup_frequency": map[string]any{"type": "string"},
		"city":             map[string]any{"type": "string"},
		"district":         map[string]any{"type": "string"},
		"notes":            map[string]any{"type": "string"},
	},
}

// Validate runs every rule and reports all failures together.
func (v *RuleValidator) Validate(draft Submission) error {
	var messages []string

	tags := ParseServiceMix(draft.ServiceMix)
	if strings.Contains(normalizeServiceType(draft.ServiceType), "last-mile") && len(tags) == 0 {
		messages = append(messages, "select at least one service for last-mile submissions")
	}

	sawDetailSplit := false
	for _, p := range draft.ActiveDetails() {
		label := p.Tag.Label()
		if p.Err != nil {
			messages = append(messages, fmt.Sprintf("%s details are not valid JSON", label))
			continue
		}
		if !p.Present {
			continue
		}
		if err := v.validateShape(draft.DetailColumn(p.Tag)); err != nil {
			messages = append(messages, fmt.Sprintf("%s details: %v", label, err))
			continue
		}
		messages = append(messages, validateDetailRules(label, p.Detail)...)
		if p.Detail.CODPercent.Float() != 0 || p.Detail.PPDPercent.Float() != 0 {
			sawDetailSplit = true
		}
	}

	if !sawDetailSplit {
		cod, ppd := draft.CODPercent.Float(), draft.PPDPercent.Float()
		if (cod != 0 || ppd != 0) && !splitsWhole(cod, ppd) {
			messages = append(messages, fmt.Sprintf("COD and PPD percentages must add up to 100 (got %.1f)", cod+ppd))
		}
	}

	if len(messages) > 0 {
		return &ValidationError{Messages: messages}
	}
	return nil
}

func validateDetailRules(label string, detail ServiceDetail) []string {
	var messages []string
	cod, ppd := detail.CODPercent.Float(), detail.PPDPercent.Float()
	if (cod != 0 || ppd != 0) && !splitsWhole(cod, ppd) {
		messages = append(messages, fmt.Sprintf("%s: COD and PPD percentages must add up to 100 (got %.1f)", label, cod+ppd))
	}
	if want := detail.PickupFrequency.SlotCount(); want > 0 {
		if len(detail.TimeSlots) != want {
			messages = append(messages, fmt.Sprintf("%s: pickup %s requires %d time slot(s), got %d", label, detail.PickupFrequency, want, len(detail.TimeSlots)))
		}
		seen := make(map[string]bool, len(detail.TimeSlots))
		for _, slot := range detail.TimeSlots {
			if seen[slot] {
				messages = append(messages, fmt.Sprintf("%s: time slots must be distinct", label))
				break
			}
			seen[slot] = true
		}
	}
	return messages
}

func splitsWhole(cod, ppd float64) bool {
	return math.Abs(cod+ppd-100) <= paymentSplitTolerance
}

func (v *RuleValidator) validateShape(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil
	}
	schema, err := v.schema()
	if err != nil {
		return err
	}
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return schema.Validate(payload)
}

func (v *RuleValidator) schema() (*jsonschema.Schema, error) {
	v.mu.RLock()
	schema := v.compiled
	v.mu.RUnlock()
	if schema != nil {
		return schema, nil
	}
	data, err := json.Marshal(detailSchema)
	if err != nil {
		return nil, fmt.Errorf("forecast: marshal detail schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	const name = "service-detail.json"
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("forecast: load detail schema: %w", err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("forecast: compile detail schema: %w", err)
	}
	v.mu.Lock()
	v.compiled = compiled
	v.mu.Unlock()
	return compiled, nil
}

type noopDraftValidator struct{}

func (noopDraftValidator) Validate(Submission) error { return nil }
