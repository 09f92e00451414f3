package commands

import (
	"context"
	"errors"

	forecast "github.com/goliatone/forecast-dashboard/components/forecast"
	gocommand "github.com/goliatone/go-command"
)

// SetFilterInput selects a company filter for the dashboard. UserID, when
// set, also persists the selection as the viewer's preference.
type SetFilterInput struct {
	CompanyName string
	UserID      string
}

type filterService interface {
	SetFilter(ctx context.Context, companyName string)
}

// SetFilterCommand changes the active company selection.
type SetFilterCommand struct {
	service     filterService
	preferences forecast.PreferenceStore
	telemetry   Telemetry
}

// NewSetFilterCommand creates a command instance. The preference store may be
// nil when viewer preferences are not persisted.
func NewSetFilterCommand(service filterService, preferences forecast.PreferenceStore, telemetry Telemetry) *SetFilterCommand {
	return &SetFilterCommand{service: service, preferences: preferences, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SetFilterInput] = (*SetFilterCommand)(nil)

// Execute applies the filter and saves the viewer preference when possible.
func (c *SetFilterCommand) Execute(ctx context.Context, msg SetFilterInput) error {
	if c.service == nil {
		return errors.New("filter command requires coordinator")
	}
	c.service.SetFilter(ctx, msg.CompanyName)
	if c.preferences != nil && msg.UserID != "" {
		if err := c.preferences.SavePreferences(ctx, msg.UserID, forecast.ViewerPreferences{
			CompanyFilter: msg.CompanyName,
		}); err != nil {
			return err
		}
	}
	c.telemetry.Record(ctx, "forecast.filter.set", map[string]any{
		"company": msg.CompanyName,
	})
	return nil
}
