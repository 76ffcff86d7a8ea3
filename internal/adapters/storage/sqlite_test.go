package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrull/lanscout/internal/core/domain"
)

func newTestAdapter(t *testing.T) *SQLiteAdapter {
	t.Helper()
	a, err := NewSQLiteAdapter(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestUpsertDeviceByMAC(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	first := domain.Device{
		MAC:       "AA:BB:CC:DD:EE:FF",
		CurrentIP: "192.168.1.10",
		Hostname:  "printer.local",
		IsOnline:  true,
		FirstSeen: time.Now().UTC(),
		LastSeen:  time.Now().UTC(),
	}
	stored, err := a.UpsertDevice(ctx, first)
	require.NoError(t, err)
	require.NotEmpty(t, stored.ID)

	// Same MAC, new IP: must update the existing row, not create a second.
	second := stored
	second.CurrentIP = "192.168.1.99"
	updated, err := a.UpsertDevice(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, updated.ID)
	assert.Equal(t, "192.168.1.99", updated.CurrentIP)

	devices, err := a.ListDevices(ctx)
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}

func TestUpsertDeviceReplacesPorts(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	d := domain.Device{
		MAC:       "AA:BB:CC:00:11:22",
		CurrentIP: "192.168.1.20",
		OpenPorts: []domain.Port{
			{Number: 22, Protocol: "tcp", State: domain.PortStateOpen, Service: "ssh"},
			{Number: 80, Protocol: "tcp", State: domain.PortStateOpen, Service: "http"},
		},
	}
	stored, err := a.UpsertDevice(ctx, d)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{22, 80}, stored.OpenPortNumbers())

	stored.OpenPorts = []domain.Port{
		{Number: 443, Protocol: "tcp", State: domain.PortStateOpen, Service: "https"},
	}
	updated, err := a.UpsertDevice(ctx, stored)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{443}, updated.OpenPortNumbers())
}

func TestGetDeviceNotFound(t *testing.T) {
	a := newTestAdapter(t)

	_, err := a.GetDevice(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLatencyHistoryWindow(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	stored, err := a.UpsertDevice(ctx, domain.Device{MAC: "AA:BB:CC:DD:00:01", CurrentIP: "192.168.1.5"})
	require.NoError(t, err)

	require.NoError(t, a.RecordLatency(ctx, stored.ID, 12.5))
	require.NoError(t, a.RecordLatency(ctx, stored.ID, 14.0))

	points, err := a.LatencyHistory(ctx, stored.ID, time.Hour)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 12.5, points[0].LatencyMs)

	points, err = a.LatencyHistory(ctx, stored.ID, -time.Minute)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestAlertLifecycle(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	alert, err := domain.NewAlert(domain.EventNewDevice, "dev-1", "New device discovered", domain.SeverityInfo)
	require.NoError(t, err)
	require.NoError(t, a.RecordAlert(ctx, *alert))

	unread, err := a.ListAlerts(ctx, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	require.NoError(t, a.MarkAlertRead(ctx, alert.ID))
	unread, err = a.ListAlerts(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	all, err := a.ListAlerts(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsRead)

	assert.True(t, errors.Is(a.MarkAlertRead(ctx, "missing"), domain.ErrNotFound))
}

func TestBuiltinRulesSeededOnce(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	rules, err := a.ListBuiltinRules(ctx, false)
	require.NoError(t, err)
	require.Len(t, rules, 4)

	types := make(map[domain.BuiltinRuleType]domain.BuiltinRule)
	for _, r := range rules {
		types[r.RuleType] = r
	}
	assert.Contains(t, types, domain.RuleNewDevice)
	assert.Contains(t, types, domain.RuleDeviceDeparted)
	assert.Contains(t, types, domain.RulePortChanged)
	assert.Contains(t, types, domain.RuleUntrustedDevice)
	assert.Equal(t, domain.SeverityWarning, types[domain.RuleUntrustedDevice].Severity)

	// Disabling one and re-running the seed must not resurrect it.
	enabled := false
	_, err = a.UpdateBuiltinRule(ctx, types[domain.RuleNewDevice].ID, domain.BuiltinRuleUpdate{IsEnabled: &enabled})
	require.NoError(t, err)
	require.NoError(t, a.seedBuiltinRules())

	onlyEnabled, err := a.ListBuiltinRules(ctx, true)
	require.NoError(t, err)
	assert.Len(t, onlyEnabled, 3)
}

func TestCustomRuleRoundTrip(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	rule := domain.CustomAlertRule{
		Name:      "iot off-segment",
		IsEnabled: true,
		Severity:  domain.SeverityWarning,
		Conditions: domain.ConditionGroup{
			Operator: domain.OpAnd,
			Children: []domain.ConditionGroup{
				{Condition: &domain.Condition{Type: domain.CondIPMatches, Pattern: "192.168.1.0/24"}},
				{Operator: domain.OpNot, Child: &domain.ConditionGroup{
					Condition: &domain.Condition{Type: domain.CondIsTrusted},
				}},
			},
		},
	}

	created, err := a.CreateRule(ctx, rule)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := a.GetRule(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OpAnd, got.Conditions.Operator)
	require.Len(t, got.Conditions.Children, 2)
	assert.Equal(t, "192.168.1.0/24", got.Conditions.Children[0].Condition.Pattern)
	require.NotNil(t, got.Conditions.Children[1].Child)
	assert.Equal(t, domain.CondIsTrusted, got.Conditions.Children[1].Child.Condition.Type)
}

func TestUpdateRulePartial(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	created, err := a.CreateRule(ctx, domain.CustomAlertRule{
		Name:      "latency watch",
		IsEnabled: true,
		Severity:  domain.SeverityInfo,
		Conditions: domain.ConditionGroup{
			Condition: &domain.Condition{Type: domain.CondHighLatency, Ms: 200},
		},
	})
	require.NoError(t, err)

	name := "latency watch v2"
	severity := domain.SeverityCritical
	updated, err := a.UpdateRule(ctx, created.ID, domain.CustomRuleUpdate{
		Name:     &name,
		Severity: &severity,
	})
	require.NoError(t, err)
	assert.Equal(t, "latency watch v2", updated.Name)
	assert.Equal(t, domain.SeverityCritical, updated.Severity)
	// Untouched fields survive the partial update.
	assert.True(t, updated.IsEnabled)
	require.NotNil(t, updated.Conditions.Condition)
	assert.Equal(t, float64(200), updated.Conditions.Condition.Ms)

	_, err = a.UpdateRule(ctx, "missing", domain.CustomRuleUpdate{Name: &name})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestScanHistoryOrderAndLimit(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		s := domain.Scan{
			ID:        "scan-" + string(rune('a'+i)),
			Type:      domain.ScanQuick,
			Status:    domain.ScanCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, a.CreateScan(ctx, s))
	}

	scans, err := a.ListScans(ctx, 2)
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, "scan-c", scans[0].ID)
	assert.Equal(t, "scan-b", scans[1].ID)
}

func TestSettingsDefaultsAndUpdate(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	settings, err := a.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), settings)

	settings.ScanIntervalSecs = 300
	settings.PortRange = "top1000"
	require.NoError(t, a.UpdateSettings(ctx, settings))

	got, err := a.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 300, got.ScanIntervalSecs)
	assert.Equal(t, "top1000", got.PortRange)
}
