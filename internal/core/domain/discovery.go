package domain

import "time"

// Neighbor is a raw record from the platform neighbor table, before any
// enrichment or persistence.
type Neighbor struct {
	IP        string `json:"ip"`
	MAC       string `json:"mac,omitempty"`
	Hostname  string `json:"hostname,omitempty"`
	IsGateway bool   `json:"isGateway"`
}

// LatencyPoint is one latency measurement in a device's history.
type LatencyPoint struct {
	LatencyMs  float64   `json:"latencyMs"`
	MeasuredAt time.Time `json:"measuredAt"`
}
