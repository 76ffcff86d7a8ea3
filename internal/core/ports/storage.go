package ports

import (
	"context"
	"time"

	"github.com/mkrull/lanscout/internal/core/domain"
)

// DeviceStore persists device snapshots. Identity is the MAC address when
// present: an IP change must never create a second device. Concurrent
// per-device upserts during a scan must be safe and retried on contention.
type DeviceStore interface {
	// UpsertDevice writes a snapshot and returns the stored record.
	UpsertDevice(ctx context.Context, d domain.Device) (domain.Device, error)
	GetDevice(ctx context.Context, id string) (*domain.Device, error)
	GetDeviceByMAC(ctx context.Context, mac string) (*domain.Device, error)
	ListDevices(ctx context.Context) ([]domain.Device, error)
	DeleteDevice(ctx context.Context, id string) error

	RecordLatency(ctx context.Context, deviceID string, latencyMs float64) error
	LatencyHistory(ctx context.Context, deviceID string, window time.Duration) ([]domain.LatencyPoint, error)
}

// AlertStore persists alert event records.
type AlertStore interface {
	RecordAlert(ctx context.Context, a domain.Alert) error
	ListAlerts(ctx context.Context, unreadOnly bool) ([]domain.Alert, error)
	MarkAlertRead(ctx context.Context, id string) error
	MarkAllAlertsRead(ctx context.Context) error
}

// RuleStore is the CRUD surface for alert rules. Partial updates are atomic:
// only supplied fields change. Deleting a rule never cascades into devices
// or alerts.
type RuleStore interface {
	CreateRule(ctx context.Context, r domain.CustomAlertRule) (domain.CustomAlertRule, error)
	GetRule(ctx context.Context, id string) (*domain.CustomAlertRule, error)
	ListRules(ctx context.Context, enabledOnly bool) ([]domain.CustomAlertRule, error)
	UpdateRule(ctx context.Context, id string, upd domain.CustomRuleUpdate) (domain.CustomAlertRule, error)
	DeleteRule(ctx context.Context, id string) error

	ListBuiltinRules(ctx context.Context, enabledOnly bool) ([]domain.BuiltinRule, error)
	UpdateBuiltinRule(ctx context.Context, id string, upd domain.BuiltinRuleUpdate) (domain.BuiltinRule, error)
}

// ScanStore persists scan records.
type ScanStore interface {
	CreateScan(ctx context.Context, s domain.Scan) error
	UpdateScan(ctx context.Context, s domain.Scan) error
	ListScans(ctx context.Context, limit int) ([]domain.Scan, error)
}

// SettingsStore persists the application settings key-value bag.
type SettingsStore interface {
	GetSettings(ctx context.Context) (domain.Settings, error)
	UpdateSettings(ctx context.Context, s domain.Settings) error
}

// Storage aggregates every persistence concern behind one adapter.
type Storage interface {
	DeviceStore
	AlertStore
	RuleStore
	ScanStore
	SettingsStore

	// Close closes the storage connection.
	Close() error
}
