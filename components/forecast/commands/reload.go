package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
)

// ReloadInput triggers a wholesale refresh from the gateway.
type ReloadInput struct{}

type reloadService interface {
	Reload(ctx context.Context) error
}

// ReloadCommand refetches every submission and rebuilds the store.
type ReloadCommand struct {
	service   reloadService
	telemetry Telemetry
}

// NewReloadCommand creates a command instance.
func NewReloadCommand(service reloadService, telemetry Telemetry) *ReloadCommand {
	return &ReloadCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ReloadInput] = (*ReloadCommand)(nil)

// Execute delegates to the coordinator.
func (c *ReloadCommand) Execute(ctx context.Context, _ ReloadInput) error {
	if c.service == nil {
		return errors.New("reload command requires coordinator")
	}
	if err := c.service.Reload(ctx); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "forecast.reload", nil)
	return nil
}
