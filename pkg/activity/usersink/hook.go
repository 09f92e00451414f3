package usersink

import (
	"context"

	"github.com/goliatone/forecast-dashboard/pkg/activity"
	"github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Sink is the go-users activity log surface the hook writes to.
type Sink interface {
	Log(ctx context.Context, record types.ActivityRecord) error
}

// Hook maps forecast activity events onto go-users activity records.
type Hook struct {
	Sink Sink
}

var _ activity.Hook = Hook{}

// Notify converts and logs the event. Events without a verb are skipped.
func (h Hook) Notify(ctx context.Context, evt activity.Event) error {
	if h.Sink == nil || !evt.Valid() {
		return nil
	}
	record := types.ActivityRecord{
		ActorID:    parseID(evt.ActorID),
		UserID:     parseID(evt.UserID),
		TenantID:   parseID(evt.TenantID),
		Verb:       evt.Verb,
		ObjectType: evt.ObjectType,
		ObjectID:   evt.ObjectID,
		Channel:    evt.Channel,
		OccurredAt: evt.OccurredAt,
		Data:       map[string]any{},
	}
	for k, v := range evt.Metadata {
		record.Data[k] = v
	}
	if evt.DefinitionCode != "" {
		record.Data["definition_code"] = evt.DefinitionCode
	}
	if len(evt.Recipients) > 0 {
		record.Data["recipients"] = evt.Recipients
	}
	return h.Sink.Log(ctx, record)
}

func parseID(value string) uuid.UUID {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.UUID{}
	}
	return id
}
