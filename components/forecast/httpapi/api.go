package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	forecast "github.com/goliatone/forecast-dashboard/components/forecast"
	"github.com/goliatone/forecast-dashboard/components/forecast/commands"
	gocommand "github.com/goliatone/go-command"
)

// Executor is the command surface transports depend on. It keeps routers
// decoupled from concrete command types.
type Executor interface {
	Save(ctx context.Context, msg commands.SaveSubmissionInput) error
	Delete(ctx context.Context, msg commands.DeleteSubmissionInput) error
	SetStatus(ctx context.Context, msg commands.SetStatusInput) error
	SetFilter(ctx context.Context, msg commands.SetFilterInput) error
	Reload(ctx context.Context, msg commands.ReloadInput) error
	RenameFile(ctx context.Context, msg commands.RenameFileInput) error
	RemoveFile(ctx context.Context, msg commands.RemoveFileInput) error
}

// CommandExecutor adapts individual commands into the Executor surface.
type CommandExecutor struct {
	SaveCmd       gocommand.Commander[commands.SaveSubmissionInput]
	DeleteCmd     gocommand.Commander[commands.DeleteSubmissionInput]
	StatusCmd     gocommand.Commander[commands.SetStatusInput]
	FilterCmd     gocommand.Commander[commands.SetFilterInput]
	ReloadCmd     gocommand.Commander[commands.ReloadInput]
	RenameFileCmd gocommand.Commander[commands.RenameFileInput]
	RemoveFileCmd gocommand.Commander[commands.RemoveFileInput]
}

var _ Executor = (*CommandExecutor)(nil)

func (e *CommandExecutor) Save(ctx context.Context, msg commands.SaveSubmissionInput) error {
	return e.SaveCmd.Execute(ctx, msg)
}

func (e *CommandExecutor) Delete(ctx context.Context, msg commands.DeleteSubmissionInput) error {
	return e.DeleteCmd.Execute(ctx, msg)
}

func (e *CommandExecutor) SetStatus(ctx context.Context, msg commands.SetStatusInput) error {
	return e.StatusCmd.Execute(ctx, msg)
}

func (e *CommandExecutor) SetFilter(ctx context.Context, msg commands.SetFilterInput) error {
	return e.FilterCmd.Execute(ctx, msg)
}

func (e *CommandExecutor) Reload(ctx context.Context, msg commands.ReloadInput) error {
	return e.ReloadCmd.Execute(ctx, msg)
}

func (e *CommandExecutor) RenameFile(ctx context.Context, msg commands.RenameFileInput) error {
	return e.RenameFileCmd.Execute(ctx, msg)
}

func (e *CommandExecutor) RemoveFile(ctx context.Context, msg commands.RemoveFileInput) error {
	return e.RemoveFileCmd.Execute(ctx, msg)
}

// Handlers exposes HTTP endpoints backed by shared commands for hosts that
// wire plain net/http instead of go-router.
type Handlers struct {
	API Executor
}

func (h *Handlers) HandleSaveSubmission(w http.ResponseWriter, r *http.Request) {
	var draft forecast.Submission
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.API.Save(r.Context(), commands.SaveSubmissionInput{Draft: draft}); err != nil {
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) HandleDeleteSubmission(w http.ResponseWriter, r *http.Request, id string) {
	input := commands.DeleteSubmissionInput{ID: id, Confirmed: r.URL.Query().Get("confirm") == "true"}
	if err := h.API.Delete(r.Context(), input); err != nil {
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleSetStatus(w http.ResponseWriter, r *http.Request, id string) {
	var payload struct {
		Status forecast.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.API.SetStatus(r.Context(), commands.SetStatusInput{ID: id, Status: payload.Status}); err != nil {
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) HandleSetFilter(w http.ResponseWriter, r *http.Request) {
	var payload commands.SetFilterInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.API.SetFilter(r.Context(), payload); err != nil {
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) HandleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.API.Reload(r.Context(), commands.ReloadInput{}); err != nil {
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// writeCommandError maps validation failures to 422 with the full message
// list; everything else is a plain 500.
func writeCommandError(w http.ResponseWriter, err error) {
	if verr, ok := validationErr(err); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{"errors": verr.Messages})
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func validationErr(err error) (*forecast.ValidationError, bool) {
	var verr *forecast.ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
