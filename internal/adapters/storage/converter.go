package storage

import (
	"encoding/json"

	"github.com/mkrull/lanscout/internal/core/domain"
)

// toDeviceDomain converts a database model to a domain entity.
func toDeviceDomain(m DeviceModel) *domain.Device {
	var props map[string]string
	if m.CustomProps != "" {
		_ = json.Unmarshal([]byte(m.CustomProps), &props)
	}

	ports := make([]domain.Port, len(m.OpenPorts))
	for i, p := range m.OpenPorts {
		ports[i] = domain.Port{
			Number:   p.Number,
			Protocol: p.Protocol,
			State:    p.State,
			Service:  p.Service,
			Banner:   p.Banner,
		}
	}

	return &domain.Device{
		ID:           m.ID,
		MAC:          m.MAC,
		Vendor:       m.Vendor,
		Hostname:     m.Hostname,
		CustomName:   m.CustomName,
		Type:         m.Type,
		OSGuess:      m.OSGuess,
		OSConfidence: m.OSConfidence,
		IsTrusted:    m.IsTrusted,
		IsGateway:    m.IsGateway,
		Notes:        m.Notes,
		CurrentIP:    m.CurrentIP,
		IsOnline:     m.IsOnline,
		LatencyMs:    m.LatencyMs,
		OpenPorts:    ports,
		CustomProps:  props,
		FirstSeen:    m.FirstSeen,
		LastSeen:     m.LastSeen,
	}
}

// toDeviceModel converts a domain entity to a database model. Ports are
// handled separately by the upsert path.
func toDeviceModel(d domain.Device) DeviceModel {
	model := DeviceModel{
		ID:           d.ID,
		MAC:          d.MAC,
		Vendor:       d.Vendor,
		Hostname:     d.Hostname,
		CustomName:   d.CustomName,
		Type:         d.Type,
		OSGuess:      d.OSGuess,
		OSConfidence: d.OSConfidence,
		IsTrusted:    d.IsTrusted,
		IsGateway:    d.IsGateway,
		Notes:        d.Notes,
		CurrentIP:    d.CurrentIP,
		IsOnline:     d.IsOnline,
		LatencyMs:    d.LatencyMs,
		FirstSeen:    d.FirstSeen,
		LastSeen:     d.LastSeen,
	}
	if len(d.CustomProps) > 0 {
		raw, _ := json.Marshal(d.CustomProps)
		model.CustomProps = string(raw)
	}
	return model
}

func toPortModels(deviceID string, ports []domain.Port) []PortModel {
	out := make([]PortModel, len(ports))
	for i, p := range ports {
		out[i] = PortModel{
			DeviceID: deviceID,
			Number:   p.Number,
			Protocol: p.Protocol,
			State:    p.State,
			Service:  p.Service,
			Banner:   p.Banner,
		}
	}
	return out
}

func toAlertDomain(m AlertModel) domain.Alert {
	return domain.Alert{
		ID:        m.ID,
		EventType: domain.AlertEventType(m.EventType),
		DeviceID:  m.DeviceID,
		Message:   m.Message,
		Severity:  domain.AlertSeverity(m.Severity),
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}
}

func toAlertModel(a domain.Alert) AlertModel {
	return AlertModel{
		ID:        a.ID,
		EventType: string(a.EventType),
		DeviceID:  a.DeviceID,
		Message:   a.Message,
		Severity:  string(a.Severity),
		IsRead:    a.IsRead,
		CreatedAt: a.CreatedAt,
	}
}

func toBuiltinDomain(m BuiltinRuleModel) domain.BuiltinRule {
	return domain.BuiltinRule{
		ID:            m.ID,
		RuleType:      domain.BuiltinRuleType(m.RuleType),
		IsEnabled:     m.IsEnabled,
		Severity:      domain.AlertSeverity(m.Severity),
		NotifyDesktop: m.NotifyDesktop,
	}
}

// toCustomRuleDomain decodes the stored condition JSON; a row that fails to
// decode is surfaced as an error rather than silently dropped.
func toCustomRuleDomain(m CustomRuleModel) (domain.CustomAlertRule, error) {
	var conditions domain.ConditionGroup
	if err := json.Unmarshal([]byte(m.Conditions), &conditions); err != nil {
		return domain.CustomAlertRule{}, err
	}
	return domain.CustomAlertRule{
		ID:            m.ID,
		Name:          m.Name,
		Description:   m.Description,
		IsEnabled:     m.IsEnabled,
		Conditions:    conditions,
		Severity:      domain.AlertSeverity(m.Severity),
		NotifyDesktop: m.NotifyDesktop,
		WebhookURL:    m.WebhookURL,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}

func toCustomRuleModel(r domain.CustomAlertRule) (CustomRuleModel, error) {
	raw, err := json.Marshal(r.Conditions)
	if err != nil {
		return CustomRuleModel{}, err
	}
	return CustomRuleModel{
		ID:            r.ID,
		Name:          r.Name,
		Description:   r.Description,
		IsEnabled:     r.IsEnabled,
		Conditions:    string(raw),
		Severity:      string(r.Severity),
		NotifyDesktop: r.NotifyDesktop,
		WebhookURL:    r.WebhookURL,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}, nil
}

func toScanDomain(m ScanModel) domain.Scan {
	return domain.Scan{
		ID:           m.ID,
		InterfaceID:  m.InterfaceID,
		Type:         domain.ScanType(m.Type),
		Status:       domain.ScanStatus(m.Status),
		DevicesFound: m.DevicesFound,
		NewDevices:   m.NewDevices,
		DurationMs:   m.DurationMs,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
	}
}

func toScanModel(s domain.Scan) ScanModel {
	return ScanModel{
		ID:           s.ID,
		InterfaceID:  s.InterfaceID,
		Type:         string(s.Type),
		Status:       string(s.Status),
		DevicesFound: s.DevicesFound,
		NewDevices:   s.NewDevices,
		DurationMs:   s.DurationMs,
		StartedAt:    s.StartedAt,
		CompletedAt:  s.CompletedAt,
	}
}
