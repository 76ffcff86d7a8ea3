package domain

import (
	"time"

	"github.com/google/uuid"
)

// BuiltinRuleType identifies one of the fixed rules seeded at first run.
// This is a distinct enumeration from AlertEventType: the untrusted_device
// rule emits unknown_device events, and the two domains must not be merged.
type BuiltinRuleType string

const (
	RuleNewDevice       BuiltinRuleType = "new_device"
	RuleDeviceDeparted  BuiltinRuleType = "device_departed"
	RulePortChanged     BuiltinRuleType = "port_changed"
	RuleUntrustedDevice BuiltinRuleType = "untrusted_device"
)

// AlertEventType tags an emitted alert record.
type AlertEventType string

const (
	EventNewDevice      AlertEventType = "new_device"
	EventDeviceDeparted AlertEventType = "device_departed"
	EventPortChanged    AlertEventType = "port_changed"
	EventUnknownDevice  AlertEventType = "unknown_device"
	// EventCustomRule tags alerts produced by user-authored condition rules.
	EventCustomRule AlertEventType = "custom_rule"
)

// BuiltinRule is one of the four fixed rules. Evaluated by dedicated logic in
// the dispatcher, not by the condition evaluator.
type BuiltinRule struct {
	ID            string          `json:"id"`
	RuleType      BuiltinRuleType `json:"ruleType"`
	IsEnabled     bool            `json:"isEnabled"`
	Severity      AlertSeverity   `json:"severity"`
	NotifyDesktop bool            `json:"notifyDesktop"`
}

// BuiltinRuleUpdate carries a partial update; nil fields are left unchanged.
type BuiltinRuleUpdate struct {
	IsEnabled     *bool          `json:"isEnabled,omitempty"`
	Severity      *AlertSeverity `json:"severity,omitempty"`
	NotifyDesktop *bool          `json:"notifyDesktop,omitempty"`
}

// Alert is an immutable event record; only the read flag changes after creation.
type Alert struct {
	ID        string         `json:"id"`
	EventType AlertEventType `json:"eventType"`
	DeviceID  string         `json:"deviceId,omitempty"`
	Message   string         `json:"message"`
	Severity  AlertSeverity  `json:"severity"`
	IsRead    bool           `json:"isRead"`
	CreatedAt time.Time      `json:"createdAt"`
}

// NewAlert creates an Alert while enforcing the severity domain invariant.
func NewAlert(eventType AlertEventType, deviceID, message string, severity AlertSeverity) (*Alert, error) {
	if !IsValidSeverity(severity) {
		return nil, ErrInvalidSeverity
	}
	return &Alert{
		ID:        uuid.NewString(),
		EventType: eventType,
		DeviceID:  deviceID,
		Message:   message,
		Severity:  severity,
		CreatedAt: time.Now().UTC(),
	}, nil
}
