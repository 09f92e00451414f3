package forecast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	errMissingGateway     = errors.New("forecast: submission gateway not configured")
	errMissingSubmission  = errors.New("forecast: submission id is required")
	errUnknownSubmission  = errors.New("forecast: submission not found")
	errDeleteNotConfirmed = errors.New("forecast: delete requires confirmation")
	errNoAttachedFile     = errors.New("forecast: submission has no attached file")
)

// EditState names the phases of an in-flight edit.
type EditState string

const (
	EditIdle       EditState = "idle"
	EditEditing    EditState = "editing"
	EditValidating EditState = "validating"
	EditSaving     EditState = "saving"
	EditError      EditState = "error"
)

// EditSession is a snapshot of the current edit, if any.
type EditSession struct {
	ID     string     `json:"id"`
	State  EditState  `json:"state"`
	Draft  Submission `json:"draft"`
	Errors []string   `json:"errors,omitempty"`
}

// Options configures the Coordinator. Every collaborator is provided via
// interface so applications can swap implementations without importing
// gateway packages.
type Options struct {
	Gateway   SubmissionGateway
	Realtime  RealtimeSource
	Files     FileStore
	Store     *Store
	Validator DraftValidator
	Hook      RefreshHook
	Activity  ActivityLogger
	Telemetry Telemetry
	Logger    *logrus.Logger
}

// Coordinator is the single writer for the view-state store. Every mutation
// path, local or remote, funnels through it so the store, gateway, and
// transports stay consistent.
type Coordinator struct {
	opts Options

	mu       sync.Mutex
	edit     *EditSession
	stopLive func()
}

// NewCoordinator builds a Coordinator with safe defaults.
func NewCoordinator(opts Options) *Coordinator {
	if opts.Store == nil {
		opts.Store = NewStore()
	}
	if opts.Validator == nil {
		opts.Validator = NewRuleValidator()
	}
	if opts.Hook == nil {
		opts.Hook = noopRefreshHook{}
	}
	if opts.Activity == nil {
		opts.Activity = noopActivityLogger{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	return &Coordinator{opts: opts}
}

// Store exposes the view-state store for read paths (queries, charts).
func (c *Coordinator) Store() *Store {
	return c.opts.Store
}

// Reload replaces the store wholesale from the gateway and recomputes the
// filtered view under the current selection.
func (c *Coordinator) Reload(ctx context.Context) error {
	if c.opts.Gateway == nil {
		return errMissingGateway
	}
	rows, err := c.opts.Gateway.Select(ctx, SelectQuery{})
	if err != nil {
		return fmt.Errorf("forecast: reload submissions: %w", err)
	}
	c.opts.Store.Load(rows)
	c.opts.Store.Recompute()
	c.broadcast(ctx, SubmissionEvent{Reason: "reload"})
	c.opts.Telemetry.Record(ctx, "forecast.reload", map[string]any{"rows": len(rows)})
	return nil
}

// SetFilter changes the company selection and recomputes the filtered view.
// An empty company resets to the ALL sentinel.
func (c *Coordinator) SetFilter(ctx context.Context, companyName string) {
	c.opts.Store.SetFilter(companyName)
	c.opts.Store.Recompute()
	c.broadcast(ctx, SubmissionEvent{CompanyName: c.opts.Store.Selection(), Reason: "filter"})
	c.opts.Telemetry.Record(ctx, "forecast.filter", map[string]any{"company": c.opts.Store.Selection()})
}

// BeginEdit opens an edit session seeded from the stored row.
func (c *Coordinator) BeginEdit(ctx context.Context, id string) (EditSession, error) {
	if id == "" {
		return EditSession{}, errMissingSubmission
	}
	row, ok := c.opts.Store.Get(id)
	if !ok {
		return EditSession{}, errUnknownSubmission
	}
	c.mu.Lock()
	c.edit = &EditSession{ID: id, State: EditEditing, Draft: row}
	session := *c.edit
	c.mu.Unlock()
	c.opts.Telemetry.Record(ctx, "forecast.edit.begin", map[string]any{"id": id})
	return session, nil
}

// CancelEdit discards the current edit session, if any.
func (c *Coordinator) CancelEdit() {
	c.mu.Lock()
	c.edit = nil
	c.mu.Unlock()
}

// CurrentEdit reports the in-flight edit session.
func (c *Coordinator) CurrentEdit() (EditSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.edit == nil {
		return EditSession{}, false
	}
	return *c.edit, true
}

// Save validates the draft, writes the full field set back through the
// gateway, and updates the store in place. Validation reports every failed
// rule together and returns the session to the editing state with the draft
// intact so the caller can correct and retry; the error state is reserved
// for gateway failures.
func (c *Coordinator) Save(ctx context.Context, draft Submission) error {
	if c.opts.Gateway == nil {
		return errMissingGateway
	}
	if draft.ID == "" {
		return errMissingSubmission
	}
	c.setEditState(draft, EditValidating, nil)
	if err := c.opts.Validator.Validate(draft); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			c.setEditState(draft, EditEditing, verr.Messages)
		} else {
			c.setEditState(draft, EditEditing, []string{err.Error()})
		}
		c.opts.Telemetry.Record(ctx, "forecast.save.invalid", map[string]any{"id": draft.ID})
		return err
	}

	c.setEditState(draft, EditSaving, nil)
	normalized := normalizeDraft(draft)
	if err := c.opts.Gateway.Update(ctx, draft.ID, saveFields(normalized)); err != nil {
		c.setEditState(draft, EditError, []string{err.Error()})
		return fmt.Errorf("forecast: save submission %s: %w", draft.ID, err)
	}

	c.opts.Store.ApplyUpdate(normalized)
	c.opts.Store.Recompute()
	c.mu.Lock()
	c.edit = nil
	c.mu.Unlock()
	c.broadcast(ctx, SubmissionEvent{ID: draft.ID, CompanyName: normalized.CompanyName, Reason: "save"})
	c.logActivity(ctx, "save", draft.ID, map[string]any{"company": normalized.CompanyName})
	c.opts.Telemetry.Record(ctx, "forecast.save", map[string]any{"id": draft.ID})
	return nil
}

// Delete removes a submission. The confirmed flag must be set explicitly;
// the attached file, when present, is removed best effort after the row.
func (c *Coordinator) Delete(ctx context.Context, id string, confirmed bool) error {
	if c.opts.Gateway == nil {
		return errMissingGateway
	}
	if id == "" {
		return errMissingSubmission
	}
	if !confirmed {
		return errDeleteNotConfirmed
	}
	row, _ := c.opts.Store.Get(id)
	if err := c.opts.Gateway.Delete(ctx, id); err != nil {
		return fmt.Errorf("forecast: delete submission %s: %w", id, err)
	}
	if c.opts.Files != nil && row.ForecastFilePath != "" {
		if err := c.opts.Files.Remove(ctx, row.ForecastFilePath); err != nil {
			c.opts.Logger.WithError(err).WithField("path", row.ForecastFilePath).
				Warn("forecast: could not remove attached file")
		}
	}
	c.opts.Store.ApplyDelete(id)
	c.opts.Store.Recompute()
	c.broadcast(ctx, SubmissionEvent{ID: id, CompanyName: row.CompanyName, Reason: "delete"})
	c.logActivity(ctx, "delete", id, map[string]any{"company": row.CompanyName})
	c.opts.Telemetry.Record(ctx, "forecast.delete", map[string]any{"id": id})
	return nil
}

// SetStatus changes a submission's lifecycle status without opening a full
// edit. Unknown statuses normalize to active.
func (c *Coordinator) SetStatus(ctx context.Context, id string, status Status) error {
	if c.opts.Gateway == nil {
		return errMissingGateway
	}
	if id == "" {
		return errMissingSubmission
	}
	row, ok := c.opts.Store.Get(id)
	if !ok {
		return errUnknownSubmission
	}
	status = StatusOrDefault(status)
	if err := c.opts.Gateway.Update(ctx, id, map[string]any{"status": string(status)}); err != nil {
		return fmt.Errorf("forecast: set status for %s: %w", id, err)
	}
	row.Status = status
	c.opts.Store.ApplyUpdate(row)
	c.opts.Store.Recompute()
	c.broadcast(ctx, SubmissionEvent{ID: id, CompanyName: row.CompanyName, Reason: "status"})
	c.logActivity(ctx, "status", id, map[string]any{"status": string(status)})
	c.opts.Telemetry.Record(ctx, "forecast.status", map[string]any{"id": id, "status": string(status)})
	return nil
}

// RenameFile updates the display name of the attached file. The stored blob
// keeps its path; only the name column changes.
func (c *Coordinator) RenameFile(ctx context.Context, id, name string) error {
	if c.opts.Gateway == nil {
		return errMissingGateway
	}
	row, ok := c.opts.Store.Get(id)
	if !ok {
		return errUnknownSubmission
	}
	if row.ForecastFilePath == "" {
		return errNoAttachedFile
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("forecast: file name is required")
	}
	if err := c.opts.Gateway.Update(ctx, id, map[string]any{"forecast_file_name": name}); err != nil {
		return fmt.Errorf("forecast: rename file for %s: %w", id, err)
	}
	row.ForecastFileName = name
	c.opts.Store.ApplyUpdate(row)
	c.opts.Store.Recompute()
	c.broadcast(ctx, SubmissionEvent{ID: id, CompanyName: row.CompanyName, Reason: "file"})
	return nil
}

// RemoveFile deletes the attached blob and clears every file column.
func (c *Coordinator) RemoveFile(ctx context.Context, id string) error {
	if c.opts.Gateway == nil {
		return errMissingGateway
	}
	row, ok := c.opts.Store.Get(id)
	if !ok {
		return errUnknownSubmission
	}
	if row.ForecastFilePath == "" {
		return errNoAttachedFile
	}
	if c.opts.Files != nil {
		if err := c.opts.Files.Remove(ctx, row.ForecastFilePath); err != nil {
			return fmt.Errorf("forecast: remove file %s: %w", row.ForecastFilePath, err)
		}
	}
	cleared := map[string]any{
		"forecast_file_name": nil,
		"forecast_file_size": nil,
		"forecast_file_path": nil,
		"forecast_file_url":  nil,
	}
	if err := c.opts.Gateway.Update(ctx, id, cleared); err != nil {
		return fmt.Errorf("forecast: clear file columns for %s: %w", id, err)
	}
	row.ForecastFileName = ""
	row.ForecastFileSize = 0
	row.ForecastFilePath = ""
	row.ForecastFileURL = ""
	c.opts.Store.ApplyUpdate(row)
	c.opts.Store.Recompute()
	c.broadcast(ctx, SubmissionEvent{ID: id, CompanyName: row.CompanyName, Reason: "file"})
	return nil
}

// DownloadFile fetches the attached blob and its display name.
func (c *Coordinator) DownloadFile(ctx context.Context, id string) ([]byte, string, error) {
	row, ok := c.opts.Store.Get(id)
	if !ok {
		return nil, "", errUnknownSubmission
	}
	if row.ForecastFilePath == "" || c.opts.Files == nil {
		return nil, "", errNoAttachedFile
	}
	data, err := c.opts.Files.Download(ctx, row.ForecastFilePath)
	if err != nil {
		return nil, "", fmt.Errorf("forecast: download %s: %w", row.ForecastFilePath, err)
	}
	name := row.ForecastFileName
	if name == "" {
		name = "forecast"
	}
	return data, name, nil
}

// ApplyRemoteInsert folds a pushed insert into the store. Remote rows are
// authoritative and skip draft validation.
func (c *Coordinator) ApplyRemoteInsert(ctx context.Context, row Submission) {
	c.opts.Store.ApplyInsert(row)
	c.opts.Store.Recompute()
	c.broadcast(ctx, SubmissionEvent{ID: row.ID, CompanyName: row.CompanyName, Reason: "realtime-insert"})
}

// ApplyRemoteUpdate folds a pushed update into the store. Updates for rows
// the store never saw are dropped.
func (c *Coordinator) ApplyRemoteUpdate(ctx context.Context, row Submission) {
	if !c.opts.Store.ApplyUpdate(row) {
		c.opts.Logger.WithField("id", row.ID).Debug("forecast: dropped update for unknown row")
		return
	}
	c.opts.Store.Recompute()
	c.broadcast(ctx, SubmissionEvent{ID: row.ID, CompanyName: row.CompanyName, Reason: "realtime-update"})
}

// ApplyRemoteDelete folds a pushed delete into the store.
func (c *Coordinator) ApplyRemoteDelete(ctx context.Context, id string) {
	c.opts.Store.ApplyDelete(id)
	c.opts.Store.Recompute()
	c.broadcast(ctx, SubmissionEvent{ID: id, Reason: "realtime-delete"})
}

// StartRealtime subscribes to the gateway's push channel. A subscribe
// failure degrades to manual refresh instead of failing startup.
func (c *Coordinator) StartRealtime(ctx context.Context) {
	if c.opts.Realtime == nil {
		return
	}
	stop, err := c.opts.Realtime.Subscribe(ctx, ChangeHandlers{
		OnInsert: func(row Submission) { c.ApplyRemoteInsert(ctx, row) },
		OnUpdate: func(row Submission) { c.ApplyRemoteUpdate(ctx, row) },
		OnDelete: func(id string) { c.ApplyRemoteDelete(ctx, id) },
	})
	if err != nil {
		c.opts.Logger.WithError(err).Warn("forecast: realtime unavailable, continuing without live updates")
		c.opts.Telemetry.Record(ctx, "forecast.realtime.degraded", map[string]any{"error": err.Error()})
		return
	}
	c.mu.Lock()
	c.stopLive = stop
	c.mu.Unlock()
	c.opts.Telemetry.Record(ctx, "forecast.realtime.started", nil)
}

// Close tears down the realtime subscription, if one is active.
func (c *Coordinator) Close() {
	c.mu.Lock()
	stop := c.stopLive
	c.stopLive = nil
	c.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (c *Coordinator) logActivity(ctx context.Context, verb, id string, meta map[string]any) {
	if err := c.opts.Activity.LogActivity(ctx, verb, id, meta); err != nil {
		c.opts.Logger.WithError(err).Warn("forecast: activity log failed")
	}
}

func (c *Coordinator) broadcast(ctx context.Context, event SubmissionEvent) {
	if err := c.opts.Hook.SubmissionChanged(ctx, event); err != nil {
		c.opts.Logger.WithError(err).Warn("forecast: refresh broadcast failed")
	}
}

func (c *Coordinator) setEditState(draft Submission, state EditState, messages []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edit = &EditSession{ID: draft.ID, State: state, Draft: draft, Errors: messages}
}

// normalizeDraft re-serializes the embedded documents to their canonical
// form so the stored columns stay consistent regardless of how the draft
// was assembled.
func normalizeDraft(draft Submission) Submission {
	draft.ServiceMix = JoinServiceMix(ParseServiceMix(draft.ServiceMix))
	draft.HBDetails = canonicalDetail(draft.HBDetails)
	draft.InternationalDetails = canonicalDetail(draft.InternationalDetails)
	draft.ParcelDetails = canonicalDetail(draft.ParcelDetails)
	if strings.TrimSpace(draft.SpecialBundles) != "" {
		if bundles, err := ParseBundles(draft.SpecialBundles); err == nil {
			draft.SpecialBundles = MarshalBundles(bundles)
		}
	}
	draft.Status = StatusOrDefault(draft.Status)
	return draft
}

func canonicalDetail(raw string) string {
	detail, present, err := ParseServiceDetail(raw)
	if err != nil || !present {
		return raw
	}
	data, err := detail.MarshalJSON()
	if err != nil {
		return raw
	}
	return string(data)
}

// saveFields maps the full editable column set for a gateway update. Narrow
// operations (status, file columns) build their own partial maps.
func saveFields(row Submission) map[string]any {
	return map[string]any{
		"company_name":           row.CompanyName,
		"employee_name":          row.EmployeeName,
		"employee_email":         row.EmployeeEmail,
		"service_type":           row.ServiceType,
		"inbound_frequency":      row.InboundFrequency,
		"weekly_shipments":       row.WeeklyShipments.Float(),
		"weekly_units_inbound":   row.WeeklyUnitsInbound.Float(),
		"weekly_units_outbound":  row.WeeklyUnitsOutbound.Float(),
		"avg_units_per_shipment": row.AvgUnitsPerShipment.Float(),
		"forecast_start_date":    row.ForecastStartDate,
		"forecast_end_date":      row.ForecastEndDate,
		"status":                 string(StatusOrDefault(row.Status)),
		"service_mix":            row.ServiceMix,
		"hb_details":             nullableText(row.HBDetails),
		"international_details":  nullableText(row.InternationalDetails),
		"parcel_details":         nullableText(row.ParcelDetails),
		"special_bundles":        nullableText(row.SpecialBundles),
		"special_bundles_notes":  row.SpecialBundlesNotes,
		"seasonality_skus_notes": row.SeasonalitySKUNotes,
		"cod_percent":            row.CODPercent.Float(),
		"ppd_percent":            row.PPDPercent.Float(),
	}
}

func nullableText(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
