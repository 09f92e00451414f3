package forecast

import (
	"context"
)

// Status tracks the lifecycle of a submission. Rows written before the column
// existed carry an empty status and count as active everywhere.
type Status string

const (
	StatusActive   Status = "active"
	StatusOnHold   Status = "on_hold"
	StatusInactive Status = "inactive"
)

// StatusOrDefault maps absent/unknown values to the active default.
func StatusOrDefault(s Status) Status {
	switch s {
	case StatusActive, StatusOnHold, StatusInactive:
		return s
	default:
		return StatusActive
	}
}

// Label returns the display name used in status charts and selects.
func (s Status) Label() string {
	switch StatusOrDefault(s) {
	case StatusOnHold:
		return "On Hold"
	case StatusInactive:
		return "Inactive"
	default:
		return "Active"
	}
}

// ServiceTag identifies a last-mile service included in a submission's mix.
type ServiceTag string

const (
	TagHeavyBulky    ServiceTag = "hb"
	TagInternational ServiceTag = "international"
	TagParcel        ServiceTag = "parcel"
)

// ServiceTags lists the known tags in display order.
var ServiceTags = []ServiceTag{TagHeavyBulky, TagInternational, TagParcel}

// Label returns the display name for a service tag.
func (t ServiceTag) Label() string {
	switch t {
	case TagHeavyBulky:
		return "Heavy & Bulky"
	case TagInternational:
		return "International"
	case TagParcel:
		return "Parcel"
	default:
		return string(t)
	}
}

// Submission is one customer forecast intake row as stored by the gateway.
// The *_details and special_bundles columns hold embedded JSON documents that
// the backend treats as opaque text; see details.go for their structure.
type Submission struct {
	ID                   string    `json:"id"`
	CreatedAt            string    `json:"created_at"`
	CompanyName          string    `json:"company_name"`
	EmployeeName         string    `json:"employee_name"`
	EmployeeEmail        string    `json:"employee_email"`
	ServiceType          string    `json:"service_type"`
	InboundFrequency     string    `json:"inbound_frequency"`
	WeeklyShipments      FlexFloat `json:"weekly_shipments"`
	WeeklyUnitsInbound   FlexFloat `json:"weekly_units_inbound"`
	WeeklyUnitsOutbound  FlexFloat `json:"weekly_units_outbound"`
	AvgUnitsPerShipment  FlexFloat `json:"avg_units_per_shipment"`
	ForecastStartDate    string    `json:"forecast_start_date"`
	ForecastEndDate      string    `json:"forecast_end_date"`
	Status               Status    `json:"status"`
	ServiceMix           string    `json:"service_mix"`
	HBDetails            string    `json:"hb_details"`
	InternationalDetails string    `json:"international_details"`
	ParcelDetails        string    `json:"parcel_details"`
	SpecialBundles       string    `json:"special_bundles"`
	SpecialBundlesNotes  string    `json:"special_bundles_notes"`
	SeasonalitySKUNotes  string    `json:"seasonality_skus_notes"`
	CODPercent           FlexFloat `json:"cod_percent"`
	PPDPercent           FlexFloat `json:"ppd_percent"`
	ForecastFileName     string    `json:"forecast_file_name"`
	ForecastFileSize     FlexFloat `json:"forecast_file_size"`
	ForecastFilePath     string    `json:"forecast_file_path"`
	ForecastFileURL      string    `json:"forecast_file_url"`
}

// DetailColumn returns the raw embedded document for the given tag.
func (s Submission) DetailColumn(tag ServiceTag) string {
	switch tag {
	case TagHeavyBulky:
		return s.HBDetails
	case TagInternational:
		return s.InternationalDetails
	case TagParcel:
		return s.ParcelDetails
	default:
		return ""
	}
}

// Session identifies an authenticated admin viewer.
type Session struct {
	UserID string
	Email  string
}

// SessionChecker gates dashboard access. A nil session without error means the
// viewer is unauthenticated and should be redirected to login.
type SessionChecker interface {
	GetSession(ctx context.Context) (*Session, error)
}

// SelectQuery narrows a gateway fetch. The zero value selects every row
// ordered by creation timestamp descending.
type SelectQuery struct {
	CompanyName string
	Limit       int
}

// SubmissionGateway is the hosted table storage consumed by the coordinator.
// Update receives the full recomputed field set; partial maps are allowed for
// narrow operations such as status changes and file-field clears.
type SubmissionGateway interface {
	Select(ctx context.Context, q SelectQuery) ([]Submission, error)
	Insert(ctx context.Context, row Submission) (Submission, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
}

// ChangeHandlers receive push events from the realtime channel. Handlers are
// invoked in delivery order from a single goroutine.
type ChangeHandlers struct {
	OnInsert func(Submission)
	OnUpdate func(Submission)
	OnDelete func(id string)
}

// RealtimeSource is the gateway's push channel. Subscribe returns a stop
// function; a subscribe error means live updates are unavailable and callers
// degrade rather than fail.
type RealtimeSource interface {
	Subscribe(ctx context.Context, handlers ChangeHandlers) (func(), error)
}

// FileStore abstracts the blob storage holding attached forecast files,
// keyed by the path stored on the row.
type FileStore interface {
	Upload(ctx context.Context, path string, data []byte) error
	Download(ctx context.Context, path string) ([]byte, error)
	Remove(ctx context.Context, path string) error
	URL(ctx context.Context, path string) (string, error)
}

// SubmissionEvent describes a store change that transports might care about.
type SubmissionEvent struct {
	ID          string `json:"id"`
	CompanyName string `json:"company_name"`
	Reason      string `json:"reason"`
}

// RefreshHook notifies transports (WebSocket/SSE) about submission changes.
type RefreshHook interface {
	SubmissionChanged(ctx context.Context, event SubmissionEvent) error
}

type noopRefreshHook struct{}

func (noopRefreshHook) SubmissionChanged(context.Context, SubmissionEvent) error { return nil }
