package scan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mkrull/lanscout/internal/core/domain"
)

type tickSettings struct {
	*fakeStore
}

func (tickSettings) GetSettings(context.Context) (domain.Settings, error) {
	return domain.Settings{ScanIntervalSecs: 1, PortRange: "top100"}, nil
}

func TestMonitorStartsPeriodicScans(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{neighbors: []domain.Neighbor{{IP: "192.168.1.10", MAC: "AA:AA:AA:AA:AA:01"}}}
	o := newTestOrchestrator(store, provider, nil)

	m := NewMonitor(o, tickSettings{store})
	m.Start()
	defer m.Stop()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		for _, s := range store.scans {
			if s.Status == domain.ScanCompleted && s.Type == domain.ScanQuick {
				return true
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond)
}

func TestMonitorStopIsIdempotentBeforeStart(t *testing.T) {
	m := NewMonitor(newTestOrchestrator(newFakeStore(), &fakeProvider{}, nil), tickSettings{})
	m.Stop() // never started; must not block or panic
}
