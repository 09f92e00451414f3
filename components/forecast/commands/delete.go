package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
)

// DeleteSubmissionInput identifies the submission to remove. Confirmed must
// be set; the coordinator rejects unconfirmed deletes.
type DeleteSubmissionInput struct {
	ID        string
	Confirmed bool
}

type deleteService interface {
	Delete(ctx context.Context, id string, confirmed bool) error
}

// DeleteSubmissionCommand removes a submission and its attached file.
type DeleteSubmissionCommand struct {
	service   deleteService
	telemetry Telemetry
}

// NewDeleteSubmissionCommand creates a command instance.
func NewDeleteSubmissionCommand(service deleteService, telemetry Telemetry) *DeleteSubmissionCommand {
	return &DeleteSubmissionCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[DeleteSubmissionInput] = (*DeleteSubmissionCommand)(nil)

// Execute delegates to the coordinator.
func (c *DeleteSubmissionCommand) Execute(ctx context.Context, msg DeleteSubmissionInput) error {
	if c.service == nil {
		return errors.New("delete command requires coordinator")
	}
	if err := c.service.Delete(ctx, msg.ID, msg.Confirmed); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "forecast.submission.delete", map[string]any{
		"id": msg.ID,
	})
	return nil
}
