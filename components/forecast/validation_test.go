package forecast

import (
	"errors"
	"strings"
	"testing"
)

func validationMessages(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	return verr.Messages
}

func TestValidateCleanDraft(t *testing.T) {
	v := NewRuleValidator()
	draft := Submission{
		ServiceType:   "last-mile",
		ServiceMix:    "parcel",
		ParcelDetails: `{"weekly_shipments": 10, "cod_percent": 60, "ppd_percent": 40, "pickup_frequency": "once", "timeSlots": ["morning"]}`,
	}
	if err := v.Validate(draft); err != nil {
		t.Fatalf("expected valid draft, got %v", err)
	}
}

func TestValidateReportsAllFailuresTogether(t *testing.T) {
	v := NewRuleValidator()
	draft := Submission{
		ServiceType: "last-mile",
		ServiceMix:  "",
		CODPercent:  70,
		PPDPercent:  20,
	}
	err := v.Validate(draft)
	msgs := validationMessages(t, err)
	if len(msgs) != 2 {
		t.Fatalf("expected both failures reported, got %v", msgs)
	}
	if !strings.Contains(msgs[0], "last-mile") {
		t.Fatalf("expected mix message first, got %q", msgs[0])
	}
	if !strings.Contains(msgs[1], "add up to 100") {
		t.Fatalf("expected split message, got %q", msgs[1])
	}
}

func TestValidateSplitTolerance(t *testing.T) {
	v := NewRuleValidator()
	within := Submission{CODPercent: 60.005, PPDPercent: 40}
	if err := v.Validate(within); err != nil {
		t.Fatalf("expected 0.01 tolerance to absorb drift, got %v", err)
	}
	outside := Submission{CODPercent: 60.02, PPDPercent: 40}
	if err := v.Validate(outside); err == nil {
		t.Fatal("expected failure just outside tolerance")
	}
}

func TestValidateDetailSplitOverridesFlat(t *testing.T) {
	v := NewRuleValidator()
	// Detail documents carry a valid split, so a stale flat split is ignored.
	draft := Submission{
		ServiceMix:    "parcel",
		ParcelDetails: `{"cod_percent": 50, "ppd_percent": 50}`,
		CODPercent:    90,
		PPDPercent:    90,
	}
	if err := v.Validate(draft); err != nil {
		t.Fatalf("expected detail split to win, got %v", err)
	}
}

func TestValidatePickupSlots(t *testing.T) {
	v := NewRuleValidator()
	missing := Submission{
		ServiceMix: "hb",
		HBDetails:  `{"pickup_frequency": "twice", "timeSlots": ["morning"]}`,
	}
	msgs := validationMessages(t, v.Validate(missing))
	if len(msgs) != 1 || !strings.Contains(msgs[0], "requires 2 time slot(s)") {
		t.Fatalf("unexpected messages %v", msgs)
	}

	duplicate := Submission{
		ServiceMix: "hb",
		HBDetails:  `{"pickup_frequency": "twice", "timeSlots": ["morning","morning"]}`,
	}
	msgs = validationMessages(t, v.Validate(duplicate))
	if len(msgs) != 1 || !strings.Contains(msgs[0], "distinct") {
		t.Fatalf("unexpected messages %v", msgs)
	}
}

func TestValidateMalformedDetailJSON(t *testing.T) {
	v := NewRuleValidator()
	draft := Submission{
		ServiceMix:    "parcel",
		ParcelDetails: "{broken",
	}
	msgs := validationMessages(t, v.Validate(draft))
	if len(msgs) != 1 || !strings.Contains(msgs[0], "not valid JSON") {
		t.Fatalf("unexpected messages %v", msgs)
	}
}

func TestValidateSchemaRejectsWrongTypes(t *testing.T) {
	v := NewRuleValidator()
	draft := Submission{
		ServiceMix:    "parcel",
		ParcelDetails: `{"timeSlots": "morning"}`,
	}
	msgs := validationMessages(t, v.Validate(draft))
	if len(msgs) != 1 || !strings.Contains(msgs[0], "Parcel details") {
		t.Fatalf("unexpected messages %v", msgs)
	}
}
