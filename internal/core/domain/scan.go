package domain

import "time"

// ScanType selects which phases a scan runs.
type ScanType string

const (
	ScanQuick    ScanType = "quick"     // passive + ping + resolve
	ScanFull     ScanType = "full"      // all phases
	ScanPortOnly ScanType = "port_only" // passive + port scan
	ScanPassive  ScanType = "passive"   // neighbor table only, no packets sent
)

// ScanStatus is the orchestrator state machine. Running is the only
// non-terminal active state; the three terminal states are final.
type ScanStatus string

const (
	ScanRunning   ScanStatus = "running"
	ScanCompleted ScanStatus = "completed"
	ScanFailed    ScanStatus = "failed"
	ScanCancelled ScanStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s ScanStatus) IsTerminal() bool {
	switch s {
	case ScanCompleted, ScanFailed, ScanCancelled:
		return true
	}
	return false
}

// Scan phases, executed in this fixed order so later phases can enrich
// devices discovered earlier.
type ScanPhase string

const (
	PhasePassive     ScanPhase = "passive"
	PhasePingSweep   ScanPhase = "ping_sweep"
	PhasePortScan    ScanPhase = "port_scan"
	PhaseResolve     ScanPhase = "hostname_resolve"
	PhaseFingerprint ScanPhase = "fingerprint"
)

// Scan is the persisted record of one orchestration run.
type Scan struct {
	ID           string     `json:"id"`
	InterfaceID  string     `json:"interfaceId,omitempty"`
	Type         ScanType   `json:"type"`
	Status       ScanStatus `json:"status"`
	DevicesFound int        `json:"devicesFound"`
	NewDevices   int        `json:"newDevices"`
	DurationMs   int64      `json:"durationMs"`
	StartedAt    time.Time  `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// ScanProgress is emitted to listeners after each phase.
type ScanProgress struct {
	ScanID          string    `json:"scanId"`
	Phase           ScanPhase `json:"phase"`
	DevicesFound    int       `json:"devicesFound"`
	PercentComplete float64   `json:"percentComplete"`
}

// ScanResult summarizes a finished scan.
type ScanResult struct {
	ScanID       string     `json:"scanId"`
	Status       ScanStatus `json:"status"`
	DevicesFound int        `json:"devicesFound"`
	NewDevices   int        `json:"newDevices"`
	DurationMs   int64      `json:"durationMs"`
}

// ScanConfig is the request that starts a scan.
type ScanConfig struct {
	InterfaceID string   `json:"interfaceId"`
	Type        ScanType `json:"type"`
	PortRange   string   `json:"portRange"` // "top100", "top1000" or "p1,p2,..."
}
