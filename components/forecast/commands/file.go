package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
)

// RenameFileInput changes the display name of an attached forecast file.
type RenameFileInput struct {
	ID   string
	Name string
}

// RemoveFileInput deletes the attached blob and clears the file columns.
type RemoveFileInput struct {
	ID string
}

type fileService interface {
	RenameFile(ctx context.Context, id, name string) error
	RemoveFile(ctx context.Context, id string) error
}

// RenameFileCommand renames an attached forecast file.
type RenameFileCommand struct {
	service   fileService
	telemetry Telemetry
}

// NewRenameFileCommand creates a command instance.
func NewRenameFileCommand(service fileService, telemetry Telemetry) *RenameFileCommand {
	return &RenameFileCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RenameFileInput] = (*RenameFileCommand)(nil)

// Execute delegates to the coordinator.
func (c *RenameFileCommand) Execute(ctx context.Context, msg RenameFileInput) error {
	if c.service == nil {
		return errors.New("rename command requires coordinator")
	}
	if err := c.service.RenameFile(ctx, msg.ID, msg.Name); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "forecast.file.rename", map[string]any{
		"id": msg.ID,
	})
	return nil
}

// RemoveFileCommand removes an attached forecast file.
type RemoveFileCommand struct {
	service   fileService
	telemetry Telemetry
}

// NewRemoveFileCommand creates a command instance.
func NewRemoveFileCommand(service fileService, telemetry Telemetry) *RemoveFileCommand {
	return &RemoveFileCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RemoveFileInput] = (*RemoveFileCommand)(nil)

// Execute delegates to the coordinator.
func (c *RemoveFileCommand) Execute(ctx context.Context, msg RemoveFileInput) error {
	if c.service == nil {
		return errors.New("remove command requires coordinator")
	}
	if err := c.service.RemoveFile(ctx, msg.ID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "forecast.file.remove", map[string]any{
		"id": msg.ID,
	})
	return nil
}
