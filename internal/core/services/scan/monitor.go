package scan

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mkrull/lanscout/internal/core/domain"
	"github.com/mkrull/lanscout/internal/core/ports"
)

// Monitor periodically starts background scans. The interval is re-read from
// the settings store on every tick, so changing it takes effect without a
// restart.
type Monitor struct {
	orchestrator *Orchestrator
	settings     ports.SettingsStore

	cancel context.CancelFunc
	done   chan struct{}
}

func NewMonitor(orchestrator *Orchestrator, settings ports.SettingsStore) *Monitor {
	return &Monitor{orchestrator: orchestrator, settings: settings}
}

// Start launches the monitor loop. Call Stop to shut it down.
func (m *Monitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(ctx)
}

// Stop ends the loop; a scan the monitor already started keeps running.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)
	for {
		settings, err := m.settings.GetSettings(ctx)
		if err != nil {
			slog.Warn("monitor: cannot read settings, using defaults", "error", err)
			settings = domain.DefaultSettings()
		}
		interval := time.Duration(settings.ScanIntervalSecs) * time.Second
		if interval < time.Second {
			interval = time.Minute
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		m.tick(ctx)
	}
}

func (m *Monitor) tick(ctx context.Context) {
	settings, err := m.settings.GetSettings(ctx)
	if err != nil {
		slog.Warn("monitor: settings read failed, skipping tick", "error", err)
		return
	}

	_, err = m.orchestrator.Start(ctx, domain.ScanConfig{
		InterfaceID: settings.DefaultInterfaceID,
		Type:        domain.ScanQuick,
		PortRange:   settings.PortRange,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			slog.Debug("monitor: scan already running, skipping tick")
			return
		}
		slog.Error("monitor: background scan failed to start", "error", err)
	}
}
