package forecast

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

type gatewayUpdate struct {
	id     string
	fields map[string]any
}

type fakeGateway struct {
	rows      []Submission
	updates   []gatewayUpdate
	deletes   []string
	selectErr error
	updateErr error
	deleteErr error
}

func (g *fakeGateway) Select(ctx context.Context, q SelectQuery) ([]Submission, error) {
	if g.selectErr != nil {
		return nil, g.selectErr
	}
	return g.rows, nil
}

func (g *fakeGateway) Insert(ctx context.Context, row Submission) (Submission, error) {
	return row, nil
}

func (g *fakeGateway) Update(ctx context.Context, id string, fields map[string]any) error {
	if g.updateErr != nil {
		return g.updateErr
	}
	g.updates = append(g.updates, gatewayUpdate{id: id, fields: fields})
	return nil
}

func (g *fakeGateway) Delete(ctx context.Context, id string) error {
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.deletes = append(g.deletes, id)
	return nil
}

type fakeHook struct {
	events []SubmissionEvent
}

func (h *fakeHook) SubmissionChanged(_ context.Context, event SubmissionEvent) error {
	h.events = append(h.events, event)
	return nil
}

func (h *fakeHook) lastReason(t *testing.T) string {
	t.Helper()
	if len(h.events) == 0 {
		t.Fatal("expected at least one broadcast")
	}
	return h.events[len(h.events)-1].Reason
}

type fakeFiles struct {
	data      map[string][]byte
	removed   []string
	removeErr error
}

func (f *fakeFiles) Upload(ctx context.Context, path string, data []byte) error { return nil }

func (f *fakeFiles) Download(ctx context.Context, path string) ([]byte, error) {
	data, ok := f.data[path]
	if !ok {
		return nil, errors.New("no such object")
	}
	return data, nil
}

func (f *fakeFiles) Remove(ctx context.Context, path string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeFiles) URL(ctx context.Context, path string) (string, error) {
	return "https://files.example/" + path, nil
}

type fakeRealtime struct {
	handlers ChangeHandlers
	err      error
	stopped  bool
}

func (r *fakeRealtime) Subscribe(ctx context.Context, handlers ChangeHandlers) (func(), error) {
	if r.err != nil {
		return nil, r.err
	}
	r.handlers = handlers
	return func() { r.stopped = true }, nil
}

type recordedActivity struct {
	verb string
	id   string
	meta map[string]any
}

type fakeActivity struct {
	entries []recordedActivity
}

func (a *fakeActivity) LogActivity(_ context.Context, verb, objectID string, meta map[string]any) error {
	a.entries = append(a.entries, recordedActivity{verb: verb, id: objectID, meta: meta})
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestCoordinator(gateway *fakeGateway, hook *fakeHook, files *fakeFiles) (*Coordinator, *Store) {
	store := NewStore()
	coord := NewCoordinator(Options{
		Gateway: gateway,
		Files:   files,
		Store:   store,
		Hook:    hook,
		Logger:  quietLogger(),
	})
	return coord, store
}

func TestCoordinatorReload(t *testing.T) {
	gateway := &fakeGateway{rows: []Submission{row("1", "Acme"), row("2", "Globex")}}
	hook := &fakeHook{}
	coord, store := newTestCoordinator(gateway, hook, nil)

	if err := coord.Reload(context.Background()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(store.All()) != 2 {
		t.Fatalf("expected 2 rows loaded, got %d", len(store.All()))
	}
	if hook.lastReason(t) != "reload" {
		t.Fatalf("unexpected reason %q", hook.lastReason(t))
	}
}

func TestCoordinatorSaveInvalidDraftSkipsGateway(t *testing.T) {
	gateway := &fakeGateway{}
	coord, store := newTestCoordinator(gateway, &fakeHook{}, nil)
	store.Load([]Submission{row("1", "Acme")})

	draft := row("1", "Acme")
	draft.CODPercent = 70
	draft.PPDPercent = 20

	err := coord.Save(context.Background(), draft)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(gateway.updates) != 0 {
		t.Fatal("invalid draft must not reach the gateway")
	}
	session, ok := coord.CurrentEdit()
	if !ok || session.State != EditEditing {
		t.Fatalf("expected session back in editing, got %+v", session)
	}
	if len(session.Errors) == 0 {
		t.Fatal("expected messages on the session")
	}
	if session.Draft.CODPercent != 70 {
		t.Fatal("draft must survive a failed save")
	}
}

func TestCoordinatorSaveWritesFullFieldSet(t *testing.T) {
	gateway := &fakeGateway{}
	hook := &fakeHook{}
	activity := &fakeActivity{}
	store := NewStore()
	coord := NewCoordinator(Options{
		Gateway:  gateway,
		Store:    store,
		Hook:     hook,
		Activity: activity,
		Logger:   quietLogger(),
	})
	store.Load([]Submission{row("1", "Acme")})

	draft := row("1", "Acme")
	draft.CompanyName = "Acme Updated"
	draft.WeeklyShipments = 40
	draft.ServiceMix = " parcel , hb "
	draft.CODPercent = 60
	draft.PPDPercent = 40

	if err := coord.Save(context.Background(), draft); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(gateway.updates) != 1 {
		t.Fatalf("expected one gateway update, got %d", len(gateway.updates))
	}
	fields := gateway.updates[0].fields
	if len(fields) != 21 {
		t.Fatalf("expected the full column set, got %d fields", len(fields))
	}
	if fields["company_name"] != "Acme Updated" {
		t.Fatalf("unexpected company %v", fields["company_name"])
	}
	if fields["service_mix"] != "parcel,hb" {
		t.Fatalf("expected normalized mix, got %v", fields["service_mix"])
	}
	if fields["status"] != "active" {
		t.Fatalf("expected default status persisted, got %v", fields["status"])
	}
	if fields["hb_details"] != nil {
		t.Fatalf("expected empty document to persist as null, got %v", fields["hb_details"])
	}

	stored, ok := store.Get("1")
	if !ok || stored.CompanyName != "Acme Updated" {
		t.Fatalf("store not updated: %+v", stored)
	}
	if _, editing := coord.CurrentEdit(); editing {
		t.Fatal("expected edit session cleared after save")
	}
	if hook.lastReason(t) != "save" {
		t.Fatalf("unexpected reason %q", hook.lastReason(t))
	}
	if len(activity.entries) != 1 || activity.entries[0].verb != "save" {
		t.Fatalf("unexpected activity %+v", activity.entries)
	}
}

func TestCoordinatorSaveGatewayErrorParksSession(t *testing.T) {
	gateway := &fakeGateway{updateErr: errors.New("boom")}
	coord, store := newTestCoordinator(gateway, &fakeHook{}, nil)
	store.Load([]Submission{row("1", "Acme")})

	draft := row("1", "Acme")
	err := coord.Save(context.Background(), draft)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected wrapped gateway error, got %v", err)
	}
	session, ok := coord.CurrentEdit()
	if !ok || session.State != EditError {
		t.Fatalf("expected error state, got %+v", session)
	}
}

func TestCoordinatorDeleteRequiresConfirmation(t *testing.T) {
	gateway := &fakeGateway{}
	coord, store := newTestCoordinator(gateway, &fakeHook{}, nil)
	store.Load([]Submission{row("1", "Acme")})

	if err := coord.Delete(context.Background(), "1", false); err == nil {
		t.Fatal("expected confirmation error")
	}
	if len(gateway.deletes) != 0 {
		t.Fatal("unconfirmed delete must not reach the gateway")
	}
}

func TestCoordinatorDeleteRemovesRowAndFile(t *testing.T) {
	gateway := &fakeGateway{}
	hook := &fakeHook{}
	files := &fakeFiles{}
	coord, store := newTestCoordinator(gateway, hook, files)
	sub := row("1", "Acme")
	sub.ForecastFilePath = "uploads/f.xlsx"
	store.Load([]Submission{sub})

	if err := coord.Delete(context.Background(), "1", true); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(gateway.deletes) != 1 || gateway.deletes[0] != "1" {
		t.Fatalf("unexpected deletes %v", gateway.deletes)
	}
	if len(files.removed) != 1 || files.removed[0] != "uploads/f.xlsx" {
		t.Fatalf("unexpected removals %v", files.removed)
	}
	if _, ok := store.Get("1"); ok {
		t.Fatal("expected row removed from store")
	}
	if hook.lastReason(t) != "delete" {
		t.Fatalf("unexpected reason %q", hook.lastReason(t))
	}
}

func TestCoordinatorDeleteSurvivesFileRemoveError(t *testing.T) {
	gateway := &fakeGateway{}
	files := &fakeFiles{removeErr: errors.New("storage down")}
	coord, store := newTestCoordinator(gateway, &fakeHook{}, files)
	sub := row("1", "Acme")
	sub.ForecastFilePath = "uploads/f.xlsx"
	store.Load([]Submission{sub})

	if err := coord.Delete(context.Background(), "1", true); err != nil {
		t.Fatalf("file cleanup is best effort, got %v", err)
	}
	if _, ok := store.Get("1"); ok {
		t.Fatal("expected row removed despite file error")
	}
}

func TestCoordinatorSetStatusPartialUpdate(t *testing.T) {
	gateway := &fakeGateway{}
	coord, store := newTestCoordinator(gateway, &fakeHook{}, nil)
	store.Load([]Submission{row("1", "Acme")})

	if err := coord.SetStatus(context.Background(), "1", StatusOnHold); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(gateway.updates) != 1 {
		t.Fatalf("expected one update, got %d", len(gateway.updates))
	}
	fields := gateway.updates[0].fields
	if len(fields) != 1 || fields["status"] != "on_hold" {
		t.Fatalf("expected narrow status update, got %v", fields)
	}
	stored, _ := store.Get("1")
	if stored.Status != StatusOnHold {
		t.Fatalf("store not updated: %v", stored.Status)
	}

	if err := coord.SetStatus(context.Background(), "missing", StatusActive); err == nil {
		t.Fatal("expected error for unknown submission")
	}
}

func TestCoordinatorRemoveFileClearsColumns(t *testing.T) {
	gateway := &fakeGateway{}
	files := &fakeFiles{}
	coord, store := newTestCoordinator(gateway, &fakeHook{}, files)
	sub := row("1", "Acme")
	sub.ForecastFileName = "f.xlsx"
	sub.ForecastFilePath = "uploads/f.xlsx"
	sub.ForecastFileURL = "https://cdn.example/f.xlsx"
	sub.ForecastFileSize = 1024
	store.Load([]Submission{sub})

	if err := coord.RemoveFile(context.Background(), "1"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	fields := gateway.updates[0].fields
	for _, column := range []string{"forecast_file_name", "forecast_file_size", "forecast_file_path", "forecast_file_url"} {
		value, ok := fields[column]
		if !ok || value != nil {
			t.Fatalf("expected %s cleared to null, got %v", column, value)
		}
	}
	stored, _ := store.Get("1")
	if stored.ForecastFileName != "" || stored.ForecastFilePath != "" {
		t.Fatalf("store file columns not cleared: %+v", stored)
	}
}

func TestCoordinatorRenameFileRequiresAttachment(t *testing.T) {
	gateway := &fakeGateway{}
	coord, store := newTestCoordinator(gateway, &fakeHook{}, nil)
	store.Load([]Submission{row("1", "Acme")})

	if err := coord.RenameFile(context.Background(), "1", "new.xlsx"); err == nil {
		t.Fatal("expected error without an attached file")
	}

	sub := row("2", "Globex")
	sub.ForecastFilePath = "uploads/g.xlsx"
	store.ApplyInsert(sub)
	if err := coord.RenameFile(context.Background(), "2", "renamed.xlsx"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	stored, _ := store.Get("2")
	if stored.ForecastFileName != "renamed.xlsx" {
		t.Fatalf("unexpected name %q", stored.ForecastFileName)
	}
}

func TestCoordinatorDownloadFile(t *testing.T) {
	files := &fakeFiles{data: map[string][]byte{"uploads/f.xlsx": []byte("payload")}}
	coord, store := newTestCoordinator(&fakeGateway{}, &fakeHook{}, files)
	sub := row("1", "Acme")
	sub.ForecastFileName = "f.xlsx"
	sub.ForecastFilePath = "uploads/f.xlsx"
	store.Load([]Submission{sub})

	data, name, err := coord.DownloadFile(context.Background(), "1")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if string(data) != "payload" || name != "f.xlsx" {
		t.Fatalf("unexpected download %q %q", data, name)
	}

	store.ApplyInsert(row("2", "Globex"))
	if _, _, err := coord.DownloadFile(context.Background(), "2"); err == nil {
		t.Fatal("expected error without an attached file")
	}
}

func TestCoordinatorRemoteEvents(t *testing.T) {
	hook := &fakeHook{}
	coord, store := newTestCoordinator(&fakeGateway{}, hook, nil)
	store.Load([]Submission{row("1", "Acme")})

	coord.ApplyRemoteInsert(context.Background(), row("2", "Globex"))
	if store.All()[0].ID != "2" {
		t.Fatal("expected remote insert prepended")
	}
	if hook.lastReason(t) != "realtime-insert" {
		t.Fatalf("unexpected reason %q", hook.lastReason(t))
	}

	updated := row("1", "Acme Updated")
	coord.ApplyRemoteUpdate(context.Background(), updated)
	stored, _ := store.Get("1")
	if stored.CompanyName != "Acme Updated" {
		t.Fatalf("store not updated: %+v", stored)
	}

	before := len(hook.events)
	coord.ApplyRemoteUpdate(context.Background(), row("ghost", "Nobody"))
	if len(hook.events) != before {
		t.Fatal("updates for unknown rows must be dropped silently")
	}
	if _, ok := store.Get("ghost"); ok {
		t.Fatal("unknown update must not create a row")
	}

	coord.ApplyRemoteDelete(context.Background(), "1")
	if _, ok := store.Get("1"); ok {
		t.Fatal("expected remote delete applied")
	}
	if hook.lastReason(t) != "realtime-delete" {
		t.Fatalf("unexpected reason %q", hook.lastReason(t))
	}
}

func TestCoordinatorRealtimeDegradesOnError(t *testing.T) {
	source := &fakeRealtime{err: errors.New("socket refused")}
	coord := NewCoordinator(Options{
		Gateway:  &fakeGateway{},
		Realtime: source,
		Logger:   quietLogger(),
	})
	coord.StartRealtime(context.Background())
	coord.Close()
}

func TestCoordinatorRealtimeDispatchAndClose(t *testing.T) {
	source := &fakeRealtime{}
	store := NewStore()
	coord := NewCoordinator(Options{
		Gateway:  &fakeGateway{},
		Realtime: source,
		Store:    store,
		Logger:   quietLogger(),
	})
	coord.StartRealtime(context.Background())
	if source.handlers.OnInsert == nil {
		t.Fatal("expected handlers registered")
	}
	source.handlers.OnInsert(row("1", "Acme"))
	if _, ok := store.Get("1"); !ok {
		t.Fatal("expected pushed insert in store")
	}
	coord.Close()
	if !source.stopped {
		t.Fatal("expected Close to stop the subscription")
	}
}

func TestCoordinatorBeginAndCancelEdit(t *testing.T) {
	coord, store := newTestCoordinator(&fakeGateway{}, &fakeHook{}, nil)
	store.Load([]Submission{row("1", "Acme")})

	if _, err := coord.BeginEdit(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown submission")
	}
	session, err := coord.BeginEdit(context.Background(), "1")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if session.State != EditEditing || session.Draft.CompanyName != "Acme" {
		t.Fatalf("unexpected session %+v", session)
	}
	coord.CancelEdit()
	if _, ok := coord.CurrentEdit(); ok {
		t.Fatal("expected session discarded")
	}
}
