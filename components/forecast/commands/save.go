package commands

import (
	"context"
	"errors"

	forecast "github.com/goliatone/forecast-dashboard/components/forecast"
	gocommand "github.com/goliatone/go-command"
)

// SaveSubmissionInput carries the edited draft to persist.
type SaveSubmissionInput struct {
	Draft forecast.Submission
}

type saveService interface {
	Save(ctx context.Context, draft forecast.Submission) error
}

// SaveSubmissionCommand validates and persists an edited submission so
// transports can invoke saves without linking directly against the
// coordinator.
type SaveSubmissionCommand struct {
	service   saveService
	telemetry Telemetry
}

// NewSaveSubmissionCommand creates a command instance.
func NewSaveSubmissionCommand(service saveService, telemetry Telemetry) *SaveSubmissionCommand {
	return &SaveSubmissionCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SaveSubmissionInput] = (*SaveSubmissionCommand)(nil)

// Execute delegates to the coordinator.
func (c *SaveSubmissionCommand) Execute(ctx context.Context, msg SaveSubmissionInput) error {
	if c.service == nil {
		return errors.New("save command requires coordinator")
	}
	if err := c.service.Save(ctx, msg.Draft); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "forecast.submission.save", map[string]any{
		"id":      msg.Draft.ID,
		"company": msg.Draft.CompanyName,
	})
	return nil
}
