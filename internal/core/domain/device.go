package domain

import "time"

// Device represents one physical network endpoint as last observed.
type Device struct {
	ID           string  `json:"id"`
	MAC          string  `json:"mac,omitempty"` // Unique when present; survives DHCP churn
	Vendor       string  `json:"vendor,omitempty"`
	Hostname     string  `json:"hostname,omitempty"`
	CustomName   string  `json:"customName,omitempty"`
	Type         string  `json:"type"` // "router", "computer", "phone", ...
	OSGuess      string  `json:"osGuess,omitempty"`
	OSConfidence float64 `json:"osConfidence"` // 0.0 - 1.0
	IsTrusted    bool    `json:"isTrusted"`
	IsGateway    bool    `json:"isGateway"`
	Notes        string  `json:"notes,omitempty"`

	CurrentIP string   `json:"currentIp,omitempty"`
	IsOnline  bool     `json:"isOnline"`
	LatencyMs *float64 `json:"latencyMs,omitempty"` // nil when no probe answered
	OpenPorts []Port   `json:"openPorts"`

	// CustomProps is an optional side-table of user-assigned key/value pairs.
	CustomProps map[string]string `json:"customProps,omitempty"`

	FirstSeen time.Time `json:"firstSeen"`
	LastSeen  time.Time `json:"lastSeen"`
}

// Port is one observed port on a device.
type Port struct {
	Number   int    `json:"port"`
	Protocol string `json:"protocol"` // "tcp"
	State    string `json:"state"`    // "open", "closed", "filtered"
	Service  string `json:"service,omitempty"`
	Banner   string `json:"banner,omitempty"`
}

// Device types.
const (
	TypeRouter   = "router"
	TypeComputer = "computer"
	TypePhone    = "phone"
	TypeTablet   = "tablet"
	TypeIoT      = "iot"
	TypePrinter  = "printer"
	TypeMedia    = "media"
	TypeUnknown  = "unknown"
)

// Port states.
const (
	PortStateOpen     = "open"
	PortStateClosed   = "closed"
	PortStateFiltered = "filtered"
)

// DisplayName resolves the human-facing name for alert messages:
// custom name, then hostname, then vendor, then MAC.
func (d *Device) DisplayName() string {
	switch {
	case d.CustomName != "":
		return d.CustomName
	case d.Hostname != "":
		return d.Hostname
	case d.Vendor != "":
		return d.Vendor
	case d.MAC != "":
		return d.MAC
	}
	return "Unknown"
}

// HasOpenPort reports whether any entry matches the port number in "open" state.
func (d *Device) HasOpenPort(number int) bool {
	for _, p := range d.OpenPorts {
		if p.Number == number && p.State == PortStateOpen {
			return true
		}
	}
	return false
}

// OpenPortNumbers returns the numbers of ports currently in "open" state, in order.
func (d *Device) OpenPortNumbers() []int {
	var out []int
	for _, p := range d.OpenPorts {
		if p.State == PortStateOpen {
			out = append(out, p.Number)
		}
	}
	return out
}

// ChangeKind classifies how a snapshot relates to prior persisted state.
type ChangeKind int

const (
	ChangeNew ChangeKind = iota
	ChangeUpdated
	ChangeDeparted
)

func (c ChangeKind) String() string {
	switch c {
	case ChangeNew:
		return "new"
	case ChangeUpdated:
		return "updated"
	case ChangeDeparted:
		return "departed"
	}
	return "unknown"
}
