package scan

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrull/lanscout/internal/core/domain"
	"github.com/mkrull/lanscout/internal/core/ports"
)

// fakeStore is an in-memory ports.Storage sufficient for orchestrator tests.
type fakeStore struct {
	mu      sync.Mutex
	devices map[string]domain.Device
	scans   map[string]domain.Scan
	latency map[string][]float64
}

func newFakeStore(seed ...domain.Device) *fakeStore {
	s := &fakeStore{
		devices: make(map[string]domain.Device),
		scans:   make(map[string]domain.Scan),
		latency: make(map[string][]float64),
	}
	for _, d := range seed {
		s.devices[d.ID] = d
	}
	return s
}

func (s *fakeStore) UpsertDevice(_ context.Context, d domain.Device) (domain.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.MAC != "" {
		for _, existing := range s.devices {
			if strings.EqualFold(existing.MAC, d.MAC) {
				d.ID = existing.ID
				break
			}
		}
	}
	s.devices[d.ID] = d
	return d, nil
}

func (s *fakeStore) GetDevice(_ context.Context, id string) (*domain.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.devices[id]; ok {
		return &d, nil
	}
	return nil, domain.NotFoundError("device", id)
}

func (s *fakeStore) GetDeviceByMAC(_ context.Context, mac string) (*domain.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.devices {
		if strings.EqualFold(d.MAC, mac) {
			return &d, nil
		}
	}
	return nil, domain.NotFoundError("device", mac)
}

func (s *fakeStore) ListDevices(context.Context) ([]domain.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d)
	}
	return out, nil
}

func (s *fakeStore) DeleteDevice(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.devices, id)
	return nil
}

func (s *fakeStore) RecordLatency(_ context.Context, deviceID string, latencyMs float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency[deviceID] = append(s.latency[deviceID], latencyMs)
	return nil
}

func (s *fakeStore) LatencyHistory(context.Context, string, time.Duration) ([]domain.LatencyPoint, error) {
	return nil, nil
}

func (s *fakeStore) RecordAlert(context.Context, domain.Alert) error          { return nil }
func (s *fakeStore) ListAlerts(context.Context, bool) ([]domain.Alert, error) { return nil, nil }
func (s *fakeStore) MarkAlertRead(context.Context, string) error              { return nil }
func (s *fakeStore) MarkAllAlertsRead(context.Context) error                  { return nil }

func (s *fakeStore) CreateRule(context.Context, domain.CustomAlertRule) (domain.CustomAlertRule, error) {
	return domain.CustomAlertRule{}, nil
}
func (s *fakeStore) GetRule(context.Context, string) (*domain.CustomAlertRule, error) {
	return nil, nil
}
func (s *fakeStore) ListRules(context.Context, bool) ([]domain.CustomAlertRule, error) {
	return nil, nil
}
func (s *fakeStore) UpdateRule(context.Context, string, domain.CustomRuleUpdate) (domain.CustomAlertRule, error) {
	return domain.CustomAlertRule{}, nil
}
func (s *fakeStore) DeleteRule(context.Context, string) error { return nil }
func (s *fakeStore) ListBuiltinRules(context.Context, bool) ([]domain.BuiltinRule, error) {
	return nil, nil
}
func (s *fakeStore) UpdateBuiltinRule(context.Context, string, domain.BuiltinRuleUpdate) (domain.BuiltinRule, error) {
	return domain.BuiltinRule{}, nil
}

func (s *fakeStore) CreateScan(_ context.Context, scan domain.Scan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans[scan.ID] = scan
	return nil
}

func (s *fakeStore) UpdateScan(_ context.Context, scan domain.Scan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans[scan.ID] = scan
	return nil
}

func (s *fakeStore) ListScans(context.Context, int) ([]domain.Scan, error) { return nil, nil }

func (s *fakeStore) GetSettings(context.Context) (domain.Settings, error) {
	return domain.DefaultSettings(), nil
}
func (s *fakeStore) UpdateSettings(context.Context, domain.Settings) error { return nil }
func (s *fakeStore) Close() error                                          { return nil }

func (s *fakeStore) scanRecord(id string) (domain.Scan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scan, ok := s.scans[id]
	return scan, ok
}

func (s *fakeStore) device(id string) (domain.Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	return d, ok
}

var _ ports.Storage = (*fakeStore)(nil)

// fakeProvider drives phases deterministically. Optional channels gate the
// neighbor read and signal ping-phase entry so tests can sequence Stop calls.
type fakeProvider struct {
	neighbors    []domain.Neighbor
	neighborsErr error
	gate         chan struct{} // ReadNeighborTable blocks until closed
	pingEntered  chan struct{} // closed once on first PingHost call
	pingBlocks   bool

	once sync.Once
}

func (p *fakeProvider) ReadNeighborTable(ctx context.Context) ([]domain.Neighbor, error) {
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.neighbors, p.neighborsErr
}

func (p *fakeProvider) PingHost(ctx context.Context, _ string, _ time.Duration) (*float64, error) {
	if p.pingEntered != nil {
		p.once.Do(func() { close(p.pingEntered) })
	}
	if p.pingBlocks {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	lat := 12.5
	return &lat, nil
}

func (p *fakeProvider) ScanPorts(context.Context, string, []int, time.Duration) ([]domain.Port, error) {
	return []domain.Port{{Number: 80, Protocol: "tcp", State: "open", Service: "http"}}, nil
}

func (p *fakeProvider) ResolveHostname(context.Context, string) (string, error) {
	return "resolved.local", nil
}

var _ ports.DiscoveryProvider = (*fakeProvider)(nil)

type fakeVendors struct{}

func (fakeVendors) Vendor(string) string { return "Acme Corp" }

type dispatchCall struct {
	deviceID     string
	kind         domain.ChangeKind
	portsChanged bool
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
}

func (d *fakeDispatcher) OnDeviceSnapshot(_ context.Context, dev domain.Device, kind domain.ChangeKind, portsChanged bool) []domain.Alert {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{deviceID: dev.ID, kind: kind, portsChanged: portsChanged})
	return nil
}

func (d *fakeDispatcher) snapshot() []dispatchCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dispatchCall(nil), d.calls...)
}

var _ ports.AlertDispatcher = (*fakeDispatcher)(nil)

func newTestOrchestrator(store *fakeStore, provider *fakeProvider, dispatcher ports.AlertDispatcher) *Orchestrator {
	runner := NewPhaseRunner(provider, fakeVendors{}, 4)
	return NewOrchestrator(store, runner, dispatcher, nil)
}

func waitTerminal(t *testing.T, store *fakeStore, scanID string) domain.Scan {
	t.Helper()
	var final domain.Scan
	require.Eventually(t, func() bool {
		scan, ok := store.scanRecord(scanID)
		if !ok || !scan.Status.IsTerminal() {
			return false
		}
		final = scan
		return true
	}, 2*time.Second, 10*time.Millisecond)
	return final
}

func TestStartRejectsConcurrentScan(t *testing.T) {
	gate := make(chan struct{})
	provider := &fakeProvider{
		neighbors: []domain.Neighbor{{IP: "192.168.1.10", MAC: "AA:AA:AA:AA:AA:01"}},
		gate:      gate,
	}
	store := newFakeStore()
	o := newTestOrchestrator(store, provider, nil)

	first, err := o.Start(context.Background(), domain.ScanConfig{Type: domain.ScanPassive})
	require.NoError(t, err)
	assert.Equal(t, domain.ScanRunning, first.Status)

	_, err = o.Start(context.Background(), domain.ScanConfig{Type: domain.ScanPassive})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	close(gate)
	o.Wait()
	waitTerminal(t, store, first.ID)

	// Terminal state frees the slot.
	second, err := o.Start(context.Background(), domain.ScanConfig{Type: domain.ScanPassive})
	require.NoError(t, err)
	o.Wait()
	waitTerminal(t, store, second.ID)
}

func TestQuickScanCompletesWithCountsAndDispatch(t *testing.T) {
	known := domain.Device{
		ID:        "dev-known",
		MAC:       "AA:AA:AA:AA:AA:01",
		CurrentIP: "192.168.1.10",
		IsOnline:  true,
		IsTrusted: true,
		FirstSeen: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	ghost := domain.Device{
		ID:        "dev-ghost",
		MAC:       "BB:BB:BB:BB:BB:02",
		CurrentIP: "192.168.1.20",
		IsOnline:  true,
	}
	store := newFakeStore(known, ghost)
	provider := &fakeProvider{neighbors: []domain.Neighbor{
		{IP: "192.168.1.10", MAC: "AA:AA:AA:AA:AA:01"},
		{IP: "192.168.1.30", MAC: "CC:CC:CC:CC:CC:03", Hostname: "newcomer"},
	}}
	dispatcher := &fakeDispatcher{}
	o := newTestOrchestrator(store, provider, dispatcher)

	scan, err := o.Start(context.Background(), domain.ScanConfig{Type: domain.ScanQuick})
	require.NoError(t, err)
	o.Wait()
	final := waitTerminal(t, store, scan.ID)

	assert.Equal(t, domain.ScanCompleted, final.Status)
	assert.Equal(t, 2, final.DevicesFound)
	assert.Equal(t, 1, final.NewDevices)
	require.NotNil(t, final.CompletedAt)

	// The known device kept its identity and trust flag.
	updated, ok := store.device("dev-known")
	require.True(t, ok)
	assert.True(t, updated.IsTrusted)
	assert.Equal(t, "resolved.local", updated.Hostname)

	// The unseen device was marked offline.
	gone, ok := store.device("dev-ghost")
	require.True(t, ok)
	assert.False(t, gone.IsOnline)

	// One dispatch per device touched this cycle, including the departure.
	calls := dispatcher.snapshot()
	require.Len(t, calls, 3)
	kinds := map[string]domain.ChangeKind{}
	for _, c := range calls {
		kinds[c.deviceID] = c.kind
	}
	assert.Equal(t, domain.ChangeUpdated, kinds["dev-known"])
	assert.Equal(t, domain.ChangeDeparted, kinds["dev-ghost"])

	// Latency from the ping sweep was recorded for observed devices.
	store.mu.Lock()
	recorded := len(store.latency["dev-known"])
	store.mu.Unlock()
	assert.Greater(t, recorded, 0)
}

func TestStopCancelsScanAndKeepsPartialResults(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{
		neighbors:   []domain.Neighbor{{IP: "192.168.1.10", MAC: "AA:AA:AA:AA:AA:01"}},
		pingEntered: make(chan struct{}),
		pingBlocks:  true,
	}
	dispatcher := &fakeDispatcher{}
	o := newTestOrchestrator(store, provider, dispatcher)

	scan, err := o.Start(context.Background(), domain.ScanConfig{Type: domain.ScanQuick})
	require.NoError(t, err)

	// Passive results are persisted before the ping sweep blocks.
	select {
	case <-provider.pingEntered:
	case <-time.After(2 * time.Second):
		t.Fatal("ping phase never started")
	}
	require.NoError(t, o.Stop())
	o.Wait()
	final := waitTerminal(t, store, scan.ID)

	assert.Equal(t, domain.ScanCancelled, final.Status)

	// The passive-phase upsert survived cancellation.
	devices, err := store.ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "AA:AA:AA:AA:AA:01", devices[0].MAC)

	// Alerts for persisted results still fire on cancellation.
	calls := dispatcher.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.ChangeNew, calls[0].kind)
}

func TestPassiveFailureMarksScanFailed(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{neighborsErr: errors.New("arp: command not found")}
	o := newTestOrchestrator(store, provider, nil)

	scan, err := o.Start(context.Background(), domain.ScanConfig{Type: domain.ScanFull})
	require.NoError(t, err)
	o.Wait()
	final := waitTerminal(t, store, scan.ID)

	assert.Equal(t, domain.ScanFailed, final.Status)
	assert.Equal(t, 0, final.DevicesFound)
}

func TestStopWithoutRunningScan(t *testing.T) {
	o := newTestOrchestrator(newFakeStore(), &fakeProvider{}, nil)
	err := o.Stop()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestCurrentReflectsRunningScan(t *testing.T) {
	gate := make(chan struct{})
	provider := &fakeProvider{gate: gate}
	store := newFakeStore()
	o := newTestOrchestrator(store, provider, nil)

	assert.Nil(t, o.Current())

	scan, err := o.Start(context.Background(), domain.ScanConfig{Type: domain.ScanPassive})
	require.NoError(t, err)
	current := o.Current()
	require.NotNil(t, current)
	assert.Equal(t, scan.ID, current.ID)
	assert.Equal(t, domain.ScanRunning, current.Status)

	close(gate)
	o.Wait()
	waitTerminal(t, store, scan.ID)
	assert.Nil(t, o.Current())
}

func TestPhaseSequencePerScanType(t *testing.T) {
	cases := []struct {
		scanType domain.ScanType
		want     []domain.ScanPhase
	}{
		{domain.ScanPassive, nil},
		{domain.ScanQuick, []domain.ScanPhase{domain.PhasePingSweep, domain.PhaseResolve}},
		{domain.ScanPortOnly, []domain.ScanPhase{domain.PhasePortScan, domain.PhaseFingerprint}},
		{domain.ScanFull, []domain.ScanPhase{domain.PhasePingSweep, domain.PhasePortScan, domain.PhaseResolve, domain.PhaseFingerprint}},
		{domain.ScanType("bogus"), []domain.ScanPhase{domain.PhasePingSweep, domain.PhaseResolve}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, phasesFor(tc.scanType), "type %s", tc.scanType)
	}
}
