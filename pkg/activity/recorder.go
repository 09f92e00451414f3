package activity

import (
	"context"

	forecast "github.com/goliatone/forecast-dashboard/components/forecast"
)

// Recorder adapts the emitter to the coordinator's activity surface. Actor
// identifiers are read from the request context placed there by the
// transport layer.
type Recorder struct {
	Emitter *Emitter
}

var _ forecast.ActivityLogger = Recorder{}

// LogActivity emits one submission event.
func (r Recorder) LogActivity(ctx context.Context, verb, objectID string, meta map[string]any) error {
	if r.Emitter == nil {
		return nil
	}
	actor := forecast.ActivityFrom(ctx)
	return r.Emitter.Emit(ctx, Event{
		Verb:       verb,
		ActorID:    actor.ActorID,
		UserID:     actor.UserID,
		TenantID:   actor.TenantID,
		ObjectType: "submission",
		ObjectID:   objectID,
		Metadata:   meta,
	})
}
