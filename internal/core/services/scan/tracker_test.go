package scan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrull/lanscout/internal/core/domain"
)

func priorDevice(id, mac, ip string) domain.Device {
	return domain.Device{
		ID:        id,
		MAC:       mac,
		CurrentIP: ip,
		IsOnline:  true,
		FirstSeen: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestObserveClassifiesNewDevice(t *testing.T) {
	tr := newChangeTracker(nil)

	merged := tr.observe(domain.Device{ID: "fresh", MAC: "AA:BB:CC:DD:EE:FF", CurrentIP: "192.168.1.50"})

	assert.Equal(t, "fresh", merged.ID)
	obs := tr.observations()
	require.Len(t, obs, 1)
	assert.Equal(t, domain.ChangeNew, obs[0].kind)
	assert.Equal(t, 1, tr.newCount())
}

func TestObserveMatchesByMACAcrossIPChange(t *testing.T) {
	prior := priorDevice("dev-1", "AA:BB:CC:DD:EE:FF", "192.168.1.50")
	prior.CustomName = "office printer"
	prior.IsTrusted = true
	prior.Notes = "2nd floor"
	tr := newChangeTracker([]domain.Device{prior})

	// Same MAC, different IP: must resolve to the persisted record.
	merged := tr.observe(domain.Device{ID: "throwaway", MAC: "aa:bb:cc:dd:ee:ff", CurrentIP: "192.168.1.99"})

	assert.Equal(t, "dev-1", merged.ID)
	assert.Equal(t, "192.168.1.99", merged.CurrentIP)
	assert.Equal(t, "office printer", merged.CustomName)
	assert.True(t, merged.IsTrusted)
	assert.Equal(t, "2nd floor", merged.Notes)
	assert.Equal(t, prior.FirstSeen, merged.FirstSeen)

	obs := tr.observations()
	require.Len(t, obs, 1)
	assert.Equal(t, domain.ChangeUpdated, obs[0].kind)
	assert.Equal(t, 0, tr.newCount())
}

func TestObserveFallsBackToIPWithoutMAC(t *testing.T) {
	prior := priorDevice("dev-1", "", "192.168.1.50")
	tr := newChangeTracker([]domain.Device{prior})

	merged := tr.observe(domain.Device{ID: "throwaway", CurrentIP: "192.168.1.50"})
	assert.Equal(t, "dev-1", merged.ID)
}

func TestObserveKeepsKnownPortsWhenSnapshotHasNone(t *testing.T) {
	prior := priorDevice("dev-1", "AA:BB:CC:DD:EE:FF", "192.168.1.50")
	prior.OpenPorts = []domain.Port{{Number: 22, Protocol: "tcp", State: "open"}}
	tr := newChangeTracker([]domain.Device{prior})

	// A ping-phase snapshot carries no ports; that is not a port change.
	merged := tr.observe(domain.Device{MAC: "AA:BB:CC:DD:EE:FF", CurrentIP: "192.168.1.50"})

	assert.Equal(t, []int{22}, merged.OpenPortNumbers())
	obs := tr.observations()
	require.Len(t, obs, 1)
	assert.False(t, obs[0].portsChanged)
}

func TestObserveDetectsPortSetChange(t *testing.T) {
	prior := priorDevice("dev-1", "AA:BB:CC:DD:EE:FF", "192.168.1.50")
	prior.OpenPorts = []domain.Port{{Number: 22, Protocol: "tcp", State: "open"}}
	tr := newChangeTracker([]domain.Device{prior})

	tr.observe(domain.Device{
		MAC:       "AA:BB:CC:DD:EE:FF",
		CurrentIP: "192.168.1.50",
		OpenPorts: []domain.Port{
			{Number: 22, Protocol: "tcp", State: "open"},
			{Number: 8080, Protocol: "tcp", State: "open"},
		},
	})

	obs := tr.observations()
	require.Len(t, obs, 1)
	assert.True(t, obs[0].portsChanged)
}

func TestObserveSamePortSetIsNotAChange(t *testing.T) {
	prior := priorDevice("dev-1", "AA:BB:CC:DD:EE:FF", "192.168.1.50")
	prior.OpenPorts = []domain.Port{
		{Number: 22, Protocol: "tcp", State: "open"},
		{Number: 80, Protocol: "tcp", State: "open"},
	}
	tr := newChangeTracker([]domain.Device{prior})

	tr.observe(domain.Device{
		MAC:       "AA:BB:CC:DD:EE:FF",
		CurrentIP: "192.168.1.50",
		OpenPorts: []domain.Port{
			{Number: 80, Protocol: "tcp", State: "open"},
			{Number: 22, Protocol: "tcp", State: "open"},
		},
	})

	obs := tr.observations()
	require.Len(t, obs, 1)
	assert.False(t, obs[0].portsChanged)
}

func TestReobservationKeepsIdentityAndAccumulatesPortsChanged(t *testing.T) {
	prior := priorDevice("dev-1", "AA:BB:CC:DD:EE:FF", "192.168.1.50")
	prior.OpenPorts = []domain.Port{{Number: 22, Protocol: "tcp", State: "open"}}
	tr := newChangeTracker([]domain.Device{prior})

	// Ping phase first, port phase later. One observation, identity stable,
	// portsChanged sticky once set.
	lat := 4.2
	tr.observe(domain.Device{MAC: "AA:BB:CC:DD:EE:FF", CurrentIP: "192.168.1.50", LatencyMs: &lat})
	tr.observe(domain.Device{
		MAC:       "AA:BB:CC:DD:EE:FF",
		CurrentIP: "192.168.1.50",
		OpenPorts: []domain.Port{{Number: 443, Protocol: "tcp", State: "open"}},
	})
	merged := tr.observe(domain.Device{MAC: "AA:BB:CC:DD:EE:FF", CurrentIP: "192.168.1.50", Hostname: "nas.local"})

	assert.Equal(t, "dev-1", merged.ID)
	obs := tr.observations()
	require.Len(t, obs, 1)
	assert.True(t, obs[0].portsChanged)
	assert.Equal(t, 1, tr.observedCount())
}

func TestDepartedReturnsUnseenOnlineDevices(t *testing.T) {
	tr := newChangeTracker([]domain.Device{
		priorDevice("dev-a", "AA:AA:AA:AA:AA:AA", "192.168.1.10"),
		priorDevice("dev-b", "BB:BB:BB:BB:BB:BB", "192.168.1.11"),
		func() domain.Device {
			d := priorDevice("dev-c", "CC:CC:CC:CC:CC:CC", "192.168.1.12")
			d.IsOnline = false // already offline, never reported departed again
			return d
		}(),
	})

	tr.observe(domain.Device{MAC: "AA:AA:AA:AA:AA:AA", CurrentIP: "192.168.1.10"})

	gone := tr.departed()
	require.Len(t, gone, 1)
	assert.Equal(t, "dev-b", gone[0].ID)
}

func TestRecordDepartedFeedsObservations(t *testing.T) {
	prior := priorDevice("dev-b", "BB:BB:BB:BB:BB:BB", "192.168.1.11")
	tr := newChangeTracker([]domain.Device{prior})

	prior.IsOnline = false
	tr.recordDeparted(prior)

	obs := tr.observations()
	require.Len(t, obs, 1)
	assert.Equal(t, domain.ChangeDeparted, obs[0].kind)
	// Departed devices are not counted as found by this cycle.
	assert.Equal(t, 0, tr.observedCount())
}

func TestObservationsAreSortedByID(t *testing.T) {
	tr := newChangeTracker(nil)
	tr.observe(domain.Device{ID: "z", MAC: "AA:AA:AA:AA:AA:01", CurrentIP: "192.168.1.1"})
	tr.observe(domain.Device{ID: "a", MAC: "AA:AA:AA:AA:AA:02", CurrentIP: "192.168.1.2"})
	tr.observe(domain.Device{ID: "m", MAC: "AA:AA:AA:AA:AA:03", CurrentIP: "192.168.1.3"})

	obs := tr.observations()
	require.Len(t, obs, 3)
	assert.Equal(t, "a", obs[0].device.ID)
	assert.Equal(t, "m", obs[1].device.ID)
	assert.Equal(t, "z", obs[2].device.ID)
}
