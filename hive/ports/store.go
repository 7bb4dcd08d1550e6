package ports

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups whose subject does not exist.
var ErrNotFound = errors.New("not found")

// Device is the durable record for one robot. A record is created lazily
// the first time a device connects.
type Device struct {
	ID                string
	Name              string
	ScheduleName      string // empty when the device has no schedule of its own
	ConfigOverrides   Document
	SettingsOverrides Document
	State             Document
	FirstConnect      time.Time
	LastConnect       time.Time
	LastDisconnect    time.Time
}

// Schedule is a named schedule document.
type Schedule struct {
	Name          string
	Doc           Document
	SourceVersion int
}

// TenantConfig carries the hive-wide configuration overrides layered
// between the built-in defaults and per-device overrides.
type TenantConfig struct {
	CommonConfig   Document
	CommonSettings Document
}

// ChatDefinition describes one stored conversational module. ContentID may
// be a pipe-delimited list; each id registers its own session key.
type ChatDefinition struct {
	ModuleID      string
	ContentID     string
	Name          string
	Prompt        string
	OpeningLine   string
	SourceVersion int
}

// GlobalResponseDef describes one cross-cutting command pattern.
type GlobalResponseDef struct {
	Name           string
	Pattern        string
	ResponseText   string
	ResponseMarkup string
	Action         string // "response", "launch" or "confirm_launch"
	ModuleID       string
	ContentID      string
	SortKey        int
}

// BehaviorEntry is one append-only row of the mentor behavior ledger.
// Timestamp is unix milliseconds and strictly increasing per device.
type BehaviorEntry struct {
	DeviceID    string
	ModuleID    string
	ContentID   string
	ContentDay  string
	Action      string
	InstanceID  int64
	Timestamp   int64
	EndedReason string
}

// Store is the durable record store the core depends on. All calls are
// synchronous; callers are responsible for keeping them off hot paths (the
// fleet package funnels them through a serialized executor).
type Store interface {
	// GetOrCreateDevice loads the device record, creating it if absent.
	// The second return reports whether a new record was created.
	GetOrCreateDevice(ctx context.Context, deviceID string) (*Device, bool, error)
	// GetDevice loads an existing record, ErrNotFound when absent.
	GetDevice(ctx context.Context, deviceID string) (*Device, error)
	// SaveDevice persists mutated record fields.
	SaveDevice(ctx context.Context, device *Device) error

	// TenantConfig returns the hive-wide override layer. A missing row is
	// not an error; both documents are nil in that case.
	TenantConfig(ctx context.Context) (*TenantConfig, error)

	// ScheduleByName resolves a named schedule, ErrNotFound when absent.
	ScheduleByName(ctx context.Context, name string) (*Schedule, error)

	// GetOrCreatePersistentBlob returns the opaque per-device document
	// that survives across connections, creating an empty one if needed.
	GetOrCreatePersistentBlob(ctx context.Context, deviceID string) (Document, error)
	// SavePersistentBlob flushes the blob back to the store.
	SavePersistentBlob(ctx context.Context, deviceID string, data Document) error

	// ListChatDefinitions returns every stored conversational module.
	ListChatDefinitions(ctx context.Context) ([]ChatDefinition, error)
	// ListGlobalResponses returns global command patterns, highest sort
	// key first.
	ListGlobalResponses(ctx context.Context) ([]GlobalResponseDef, error)

	// AppendBehaviors bulk-inserts ledger rows.
	AppendBehaviors(ctx context.Context, entries []BehaviorEntry) error
	// BehaviorHistory returns a device's ledger, newest first.
	BehaviorHistory(ctx context.Context, deviceID string) ([]BehaviorEntry, error)
	// LastBehavior returns the newest ledger row for a device, or nil.
	LastBehavior(ctx context.Context, deviceID string) (*BehaviorEntry, error)
}
