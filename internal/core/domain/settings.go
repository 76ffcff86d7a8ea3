package domain

// Settings is the persisted application configuration. The monitor loop
// re-reads it on every tick, so edits take effect without a restart.
type Settings struct {
	DefaultInterfaceID string `json:"defaultInterfaceId,omitempty"`
	ScanIntervalSecs   int    `json:"scanIntervalSecs"`
	PortRange          string `json:"portRange"`
}

// DefaultSettings returns the values used before the user saves anything.
func DefaultSettings() Settings {
	return Settings{
		ScanIntervalSecs: 60,
		PortRange:        "top100",
	}
}
