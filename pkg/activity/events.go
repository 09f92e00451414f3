package activity

import (
	"context"
	"strings"
	"time"
)

// DefaultChannel tags events emitted by the forecast dashboard.
const DefaultChannel = "forecast"

// Event describes one auditable action against a submission.
type Event struct {
	Verb           string
	ActorID        string
	UserID         string
	TenantID       string
	ObjectType     string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	OccurredAt     time.Time
}

// Valid reports whether the event carries enough to be recorded.
func (e Event) Valid() bool {
	return strings.TrimSpace(e.Verb) != ""
}

// Hook receives normalized activity events.
type Hook interface {
	Notify(ctx context.Context, evt Event) error
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(ctx context.Context, evt Event) error

// Notify calls the wrapped function.
func (f HookFunc) Notify(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Hooks fans an event out to every hook. Invalid events are skipped.
type Hooks []Hook

// Notify normalizes the event and delivers it to each hook, returning the
// first error encountered.
func (h Hooks) Notify(ctx context.Context, evt Event) error {
	if !evt.Valid() {
		return nil
	}
	normalized := NormalizeEvent(evt)
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeEvent trims identifier fields, fills defaults, and clones the
// metadata map and recipients slice so hooks cannot mutate the caller's
// copies.
func NormalizeEvent(evt Event) Event {
	evt.Verb = strings.TrimSpace(evt.Verb)
	evt.ObjectType = strings.TrimSpace(evt.ObjectType)
	evt.ObjectID = strings.TrimSpace(evt.ObjectID)
	evt.Channel = strings.TrimSpace(evt.Channel)
	if evt.Channel == "" {
		evt.Channel = DefaultChannel
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	if evt.Metadata != nil {
		cloned := make(map[string]any, len(evt.Metadata))
		for k, v := range evt.Metadata {
			cloned[k] = v
		}
		evt.Metadata = cloned
	}
	if evt.Recipients != nil {
		evt.Recipients = append([]string(nil), evt.Recipients...)
	}
	return evt
}
