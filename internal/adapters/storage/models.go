package storage

import "time"

// DeviceModel is the GORM model for devices. Identity is the generated ID;
// the MAC carries an index because upserts resolve existing rows through it.
type DeviceModel struct {
	ID           string `gorm:"primaryKey"`
	MAC          string `gorm:"index"`
	Vendor       string
	Hostname     string
	CustomName   string
	Type         string
	OSGuess      string
	OSConfidence float64
	IsTrusted    bool
	IsGateway    bool
	Notes        string
	CurrentIP    string `gorm:"index"`
	IsOnline     bool
	LatencyMs    *float64
	CustomProps  string // JSON encoded map[string]string
	FirstSeen    time.Time
	LastSeen     time.Time

	OpenPorts []PortModel `gorm:"foreignKey:DeviceID"`
}

// PortModel stores one observed port per row, replaced wholesale on each
// port-scan upsert.
type PortModel struct {
	ID       uint   `gorm:"primaryKey"`
	DeviceID string `gorm:"index"`
	Number   int
	Protocol string
	State    string
	Service  string
	Banner   string
}

// LatencyModel is one ping sample for the latency history chart.
type LatencyModel struct {
	ID         uint   `gorm:"primaryKey"`
	DeviceID   string `gorm:"index"`
	LatencyMs  float64
	MeasuredAt time.Time `gorm:"index"`
}

// AlertModel is the GORM model for alert events.
type AlertModel struct {
	ID        string `gorm:"primaryKey"`
	EventType string `gorm:"index"`
	DeviceID  string `gorm:"index"`
	Message   string
	Severity  string
	IsRead    bool `gorm:"index"`
	CreatedAt time.Time
}

// BuiltinRuleModel holds the four seeded rules; RuleType is unique so seeding
// is idempotent.
type BuiltinRuleModel struct {
	ID            string `gorm:"primaryKey"`
	RuleType      string `gorm:"uniqueIndex"`
	IsEnabled     bool
	Severity      string
	NotifyDesktop bool
}

// CustomRuleModel persists user rules; the condition tree is stored as the
// exact JSON the API accepted, so reads round-trip byte-compatible structure.
type CustomRuleModel struct {
	ID            string `gorm:"primaryKey"`
	Name          string
	Description   string
	IsEnabled     bool
	Conditions    string // JSON encoded ConditionGroup
	Severity      string
	NotifyDesktop bool
	WebhookURL    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ScanModel is the GORM model for scan history.
type ScanModel struct {
	ID           string `gorm:"primaryKey"`
	InterfaceID  string
	Type         string
	Status       string
	DevicesFound int
	NewDevices   int
	DurationMs   int64
	StartedAt    time.Time `gorm:"index"`
	CompletedAt  *time.Time
}

// SettingModel is one row of the settings key-value bag.
type SettingModel struct {
	Key   string `gorm:"primaryKey"`
	Value string
}
