package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkrull/lanscout/internal/core/domain"
	"github.com/mkrull/lanscout/internal/core/ports"
)

// mockStore is an in-memory ports.Storage for handler tests.
type mockStore struct {
	mu       sync.Mutex
	devices  map[string]domain.Device
	alerts   map[string]domain.Alert
	rules    map[string]domain.CustomAlertRule
	builtin  map[string]domain.BuiltinRule
	scans    []domain.Scan
	settings domain.Settings
}

func newMockStore() *mockStore {
	m := &mockStore{
		devices:  make(map[string]domain.Device),
		alerts:   make(map[string]domain.Alert),
		rules:    make(map[string]domain.CustomAlertRule),
		builtin:  make(map[string]domain.BuiltinRule),
		settings: domain.DefaultSettings(),
	}
	for _, rt := range []domain.BuiltinRuleType{
		domain.RuleNewDevice, domain.RuleDeviceDeparted,
		domain.RulePortChanged, domain.RuleUntrustedDevice,
	} {
		id := uuid.NewString()
		m.builtin[id] = domain.BuiltinRule{ID: id, RuleType: rt, IsEnabled: true, Severity: domain.SeverityInfo}
	}
	return m
}

func (m *mockStore) UpsertDevice(_ context.Context, d domain.Device) (domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	m.devices[d.ID] = d
	return d, nil
}

func (m *mockStore) GetDevice(_ context.Context, id string) (*domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return nil, domain.NotFoundError("device", id)
	}
	return &d, nil
}

func (m *mockStore) GetDeviceByMAC(_ context.Context, mac string) (*domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.devices {
		if d.MAC == mac {
			return &d, nil
		}
	}
	return nil, domain.NotFoundError("device", mac)
}

func (m *mockStore) ListDevices(_ context.Context) ([]domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, d)
	}
	return out, nil
}

func (m *mockStore) DeleteDevice(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[id]; !ok {
		return domain.NotFoundError("device", id)
	}
	delete(m.devices, id)
	return nil
}

func (m *mockStore) RecordLatency(context.Context, string, float64) error { return nil }

func (m *mockStore) LatencyHistory(context.Context, string, time.Duration) ([]domain.LatencyPoint, error) {
	return nil, nil
}

func (m *mockStore) RecordAlert(_ context.Context, a domain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[a.ID] = a
	return nil
}

func (m *mockStore) ListAlerts(_ context.Context, unreadOnly bool) ([]domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Alert
	for _, a := range m.alerts {
		if unreadOnly && a.IsRead {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *mockStore) MarkAlertRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return domain.NotFoundError("alert", id)
	}
	a.IsRead = true
	m.alerts[id] = a
	return nil
}

func (m *mockStore) MarkAllAlertsRead(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.alerts {
		a.IsRead = true
		m.alerts[id] = a
	}
	return nil
}

func (m *mockStore) CreateRule(_ context.Context, r domain.CustomAlertRule) (domain.CustomAlertRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	m.rules[r.ID] = r
	return r, nil
}

func (m *mockStore) GetRule(_ context.Context, id string) (*domain.CustomAlertRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok {
		return nil, domain.NotFoundError("rule", id)
	}
	return &r, nil
}

func (m *mockStore) ListRules(_ context.Context, enabledOnly bool) ([]domain.CustomAlertRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CustomAlertRule
	for _, r := range m.rules {
		if enabledOnly && !r.IsEnabled {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *mockStore) UpdateRule(_ context.Context, id string, upd domain.CustomRuleUpdate) (domain.CustomAlertRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok {
		return domain.CustomAlertRule{}, domain.NotFoundError("rule", id)
	}
	if upd.Name != nil {
		r.Name = *upd.Name
	}
	if upd.IsEnabled != nil {
		r.IsEnabled = *upd.IsEnabled
	}
	if upd.Conditions != nil {
		r.Conditions = *upd.Conditions
	}
	if upd.Severity != nil {
		r.Severity = *upd.Severity
	}
	r.UpdatedAt = time.Now().UTC()
	m.rules[id] = r
	return r, nil
}

func (m *mockStore) DeleteRule(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return domain.NotFoundError("rule", id)
	}
	delete(m.rules, id)
	return nil
}

func (m *mockStore) ListBuiltinRules(_ context.Context, enabledOnly bool) ([]domain.BuiltinRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BuiltinRule
	for _, r := range m.builtin {
		if enabledOnly && !r.IsEnabled {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *mockStore) UpdateBuiltinRule(_ context.Context, id string, upd domain.BuiltinRuleUpdate) (domain.BuiltinRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.builtin[id]
	if !ok {
		return domain.BuiltinRule{}, domain.NotFoundError("builtin rule", id)
	}
	if upd.IsEnabled != nil {
		r.IsEnabled = *upd.IsEnabled
	}
	if upd.Severity != nil {
		r.Severity = *upd.Severity
	}
	if upd.NotifyDesktop != nil {
		r.NotifyDesktop = *upd.NotifyDesktop
	}
	m.builtin[id] = r
	return r, nil
}

func (m *mockStore) CreateScan(_ context.Context, s domain.Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans = append(m.scans, s)
	return nil
}

func (m *mockStore) UpdateScan(_ context.Context, s domain.Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.scans {
		if m.scans[i].ID == s.ID {
			m.scans[i] = s
			return nil
		}
	}
	m.scans = append(m.scans, s)
	return nil
}

func (m *mockStore) ListScans(_ context.Context, limit int) ([]domain.Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]domain.Scan(nil), m.scans...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) GetSettings(context.Context) (domain.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, nil
}

func (m *mockStore) UpdateSettings(_ context.Context, s domain.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
	return nil
}

func (m *mockStore) Close() error { return nil }

var _ ports.Storage = (*mockStore)(nil)

// mockProvider is a stub discovery provider for orchestrator-backed handlers.
type mockProvider struct {
	neighbors []domain.Neighbor
	block     chan struct{} // when set, ReadNeighborTable waits until closed
}

func (p *mockProvider) ReadNeighborTable(ctx context.Context) ([]domain.Neighbor, error) {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.neighbors, nil
}

func (p *mockProvider) PingHost(context.Context, string, time.Duration) (*float64, error) {
	return nil, nil
}

func (p *mockProvider) ScanPorts(context.Context, string, []int, time.Duration) ([]domain.Port, error) {
	return nil, nil
}

func (p *mockProvider) ResolveHostname(context.Context, string) (string, error) { return "", nil }

var _ ports.DiscoveryProvider = (*mockProvider)(nil)

type mockVendors struct{}

func (mockVendors) Vendor(string) string { return "" }
