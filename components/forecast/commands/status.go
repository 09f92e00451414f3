package commands

import (
	"context"
	"errors"

	forecast "github.com/goliatone/forecast-dashboard/components/forecast"
	gocommand "github.com/goliatone/go-command"
)

// SetStatusInput changes a submission's lifecycle status.
type SetStatusInput struct {
	ID     string
	Status forecast.Status
}

type statusService interface {
	SetStatus(ctx context.Context, id string, status forecast.Status) error
}

// SetStatusCommand flips a submission's status without a full edit.
type SetStatusCommand struct {
	service   statusService
	telemetry Telemetry
}

// NewSetStatusCommand creates a command instance.
func NewSetStatusCommand(service statusService, telemetry Telemetry) *SetStatusCommand {
	return &SetStatusCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SetStatusInput] = (*SetStatusCommand)(nil)

// Execute delegates to the coordinator.
func (c *SetStatusCommand) Execute(ctx context.Context, msg SetStatusInput) error {
	if c.service == nil {
		return errors.New("status command requires coordinator")
	}
	if err := c.service.SetStatus(ctx, msg.ID, msg.Status); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "forecast.submission.status", map[string]any{
		"id":     msg.ID,
		"status": string(msg.Status),
	})
	return nil
}
