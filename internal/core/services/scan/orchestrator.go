package scan

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mkrull/lanscout/internal/core/domain"
	"github.com/mkrull/lanscout/internal/core/ports"
)

var (
	scansStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lanscout",
		Name:      "scans_started_total",
		Help:      "Total number of scans started, by type",
	}, []string{"type"})
	scansFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lanscout",
		Name:      "scans_finished_total",
		Help:      "Total number of scans finished, by terminal status",
	}, []string{"status"})
	devicesDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lanscout",
		Name:      "devices_discovered_total",
		Help:      "Total number of new devices discovered across scans",
	})
)

// phaseWeights drive the percent-complete progress updates.
var phaseWeights = map[domain.ScanPhase]float64{
	domain.PhasePassive:     20,
	domain.PhasePingSweep:   40,
	domain.PhasePortScan:    65,
	domain.PhaseResolve:     85,
	domain.PhaseFingerprint: 95,
}

// Orchestrator drives scan phases in a fixed sequence and owns the scan state
// machine: Idle -> Running -> {Completed, Failed, Cancelled}. All state is
// instance-owned, never process-global, so orchestrators can be tested in
// isolation. At most one scan runs at a time.
type Orchestrator struct {
	store      ports.Storage
	runner     *PhaseRunner
	dispatcher ports.AlertDispatcher
	events     ports.EventSink

	mu      sync.Mutex
	current *activeScan
}

type activeScan struct {
	scan   domain.Scan
	cancel context.CancelFunc
	done   chan struct{}
}

// NewOrchestrator creates a scan orchestrator.
func NewOrchestrator(store ports.Storage, runner *PhaseRunner, dispatcher ports.AlertDispatcher, events ports.EventSink) *Orchestrator {
	return &Orchestrator{
		store:      store,
		runner:     runner,
		dispatcher: dispatcher,
		events:     events,
	}
}

// Start begins a scan and returns its record immediately; phases run in the
// background. Rejects with ConflictError while another scan is Running.
func (o *Orchestrator) Start(ctx context.Context, cfg domain.ScanConfig) (domain.Scan, error) {
	o.mu.Lock()
	if o.current != nil {
		o.mu.Unlock()
		return domain.Scan{}, domain.ConflictError("a scan is already in progress")
	}

	scan := domain.Scan{
		ID:          uuid.NewString(),
		InterfaceID: cfg.InterfaceID,
		Type:        cfg.Type,
		Status:      domain.ScanRunning,
		StartedAt:   time.Now().UTC(),
	}

	// The scan outlives the caller's request context; Stop and Shutdown
	// cancel it cooperatively.
	scanCtx, cancel := context.WithCancel(context.Background())
	active := &activeScan{scan: scan, cancel: cancel, done: make(chan struct{})}
	o.current = active
	o.mu.Unlock()

	if err := o.store.CreateScan(ctx, scan); err != nil {
		o.clearCurrent()
		cancel()
		return domain.Scan{}, domain.PersistenceError("create scan", err)
	}

	scansStarted.WithLabelValues(string(cfg.Type)).Inc()
	go o.run(scanCtx, active, cfg)

	return scan, nil
}

// Stop requests cooperative cancellation of the running scan. The in-flight
// phase finishes its current batch; partial results are kept.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return domain.ValidationError("no scan is running")
	}
	o.current.cancel()
	return nil
}

// Current returns a copy of the running scan record, or nil when idle.
func (o *Orchestrator) Current() *domain.Scan {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return nil
	}
	scan := o.current.scan
	return &scan
}

// Wait blocks until the running scan (if any) reaches a terminal state.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	active := o.current
	o.mu.Unlock()
	if active != nil {
		<-active.done
	}
}

func (o *Orchestrator) clearCurrent() {
	o.mu.Lock()
	o.current = nil
	o.mu.Unlock()
}

// run executes the phase sequence. Phases never overlap; snapshots flow to
// persistence as they are produced so cancellation at any point keeps
// everything already written.
func (o *Orchestrator) run(ctx context.Context, active *activeScan, cfg domain.ScanConfig) {
	defer close(active.done)
	start := time.Now()

	// Change-kind classification is relative to the state persisted before
	// this scan started.
	prior, err := o.store.ListDevices(ctx)
	if err != nil {
		o.finish(active, domain.ScanFailed, nil, 0, start)
		slog.Error("scan aborted: cannot load prior device state", "scan", active.scan.ID, "error", err)
		return
	}
	tracker := newChangeTracker(prior)

	persist := func(d domain.Device) {
		merged := tracker.observe(d)
		stored, err := o.upsertWithRetry(ctx, merged)
		if err != nil {
			slog.Error("device upsert failed", "device", merged.ID, "error", err)
			return
		}
		tracker.committed(stored)
		if stored.LatencyMs != nil {
			if err := o.store.RecordLatency(ctx, stored.ID, *stored.LatencyMs); err != nil {
				slog.Debug("latency history write failed", "device", stored.ID, "error", err)
			}
		}
		if o.events != nil {
			o.events.PublishDevice(stored, tracker.kindOf(stored))
		}
	}

	// Phase 1: passive neighbor read. Failure here is unrecoverable: there is
	// no candidate set to continue with.
	devices, err := o.runner.Passive(ctx, persist)
	o.progress(active, domain.PhasePassive, len(devices))
	if err != nil && ctx.Err() == nil {
		o.dispatchObserved(tracker)
		o.finish(active, domain.ScanFailed, tracker, len(devices), start)
		slog.Error("scan failed in passive phase", "scan", active.scan.ID,
			"error", domain.ScanFailedError("passive discovery failed", err))
		return
	}

	phases := phasesFor(cfg.Type)
	for _, phase := range phases {
		if ctx.Err() != nil {
			break
		}
		switch phase {
		case domain.PhasePingSweep:
			o.runner.PingSweep(ctx, devices, persist)
		case domain.PhasePortScan:
			o.runner.PortScan(ctx, devices, PortsForRange(cfg.PortRange), persist)
		case domain.PhaseResolve:
			o.runner.Resolve(ctx, devices, persist)
		case domain.PhaseFingerprint:
			o.runner.Fingerprint(ctx, devices, persist)
		}
		o.progress(active, phase, len(devices))
	}

	// Departed detection: previously online devices that no phase observed.
	if ctx.Err() == nil {
		o.markDeparted(ctx, tracker)
	}

	o.dispatchObserved(tracker)

	status := domain.ScanCompleted
	if ctx.Err() != nil {
		status = domain.ScanCancelled
	}
	o.finish(active, status, tracker, len(devices), start)
}

// dispatchObserved invokes the alert dispatcher exactly once per device per
// scan cycle, with the final enriched snapshot. The dispatcher itself does
// not de-duplicate; this is where that contract is honored.
func (o *Orchestrator) dispatchObserved(tracker *changeTracker) {
	if o.dispatcher == nil {
		return
	}
	// Fresh context: alert delivery for already-persisted results must not
	// be skipped because the scan was cancelled.
	dispatchCtx := context.Background()

	for _, obs := range tracker.observations() {
		alerts := o.dispatcher.OnDeviceSnapshot(dispatchCtx, obs.device, obs.kind, obs.portsChanged)
		if o.events != nil {
			for _, a := range alerts {
				o.events.PublishAlert(a)
			}
		}
	}
}

// markDeparted flags previously-online devices that this scan did not see.
func (o *Orchestrator) markDeparted(ctx context.Context, tracker *changeTracker) {
	for _, dev := range tracker.departed() {
		dev.IsOnline = false
		stored, err := o.upsertWithRetry(ctx, dev)
		if err != nil {
			slog.Error("failed to mark device offline", "device", dev.ID, "error", err)
			continue
		}
		tracker.recordDeparted(stored)
		if o.events != nil {
			o.events.PublishDevice(stored, domain.ChangeDeparted)
		}
	}
}

// upsertWithRetry applies the bounded busy-retry policy from the storage
// contract: contention on a single device row backs off instead of failing.
func (o *Orchestrator) upsertWithRetry(ctx context.Context, d domain.Device) (domain.Device, error) {
	var lastErr error
	backoff := 25 * time.Millisecond
	for attempt := 0; attempt < 4; attempt++ {
		stored, err := o.store.UpsertDevice(ctx, d)
		if err == nil {
			return stored, nil
		}
		lastErr = err
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return domain.Device{}, lastErr
		}
		backoff *= 2
	}
	return domain.Device{}, domain.PersistenceError("upsert device", lastErr)
}

func (o *Orchestrator) progress(active *activeScan, phase domain.ScanPhase, devicesFound int) {
	o.mu.Lock()
	active.scan.DevicesFound = devicesFound
	o.mu.Unlock()

	if o.events == nil {
		return
	}
	o.events.PublishProgress(domain.ScanProgress{
		ScanID:          active.scan.ID,
		Phase:           phase,
		DevicesFound:    devicesFound,
		PercentComplete: phaseWeights[phase],
	})
}

// finish moves the scan to a terminal state and persists the final record.
// Terminal states are final: the activeScan is discarded and a future Start
// creates a fresh record.
func (o *Orchestrator) finish(active *activeScan, status domain.ScanStatus, tracker *changeTracker, devicesFound int, start time.Time) {
	now := time.Now().UTC()
	newDevices := 0
	if tracker != nil {
		devicesFound = tracker.observedCount()
		newDevices = tracker.newCount()
	}

	o.mu.Lock()
	active.scan.Status = status
	active.scan.DevicesFound = devicesFound
	active.scan.NewDevices = newDevices
	active.scan.DurationMs = time.Since(start).Milliseconds()
	active.scan.CompletedAt = &now
	final := active.scan
	o.current = nil
	o.mu.Unlock()

	devicesDiscovered.Add(float64(newDevices))
	scansFinished.WithLabelValues(string(status)).Inc()

	// The scan context may be cancelled; the final record must still land.
	if err := o.store.UpdateScan(context.Background(), final); err != nil {
		slog.Error("failed to persist final scan record", "scan", final.ID, "error", err)
	}

	if o.events != nil {
		o.events.PublishScanDone(domain.ScanResult{
			ScanID:       final.ID,
			Status:       status,
			DevicesFound: final.DevicesFound,
			NewDevices:   final.NewDevices,
			DurationMs:   final.DurationMs,
		})
	}

	slog.Info("scan finished",
		"scan", final.ID,
		"status", status,
		"devicesFound", final.DevicesFound,
		"newDevices", final.NewDevices,
		"durationMs", final.DurationMs)
}

// phasesFor maps a scan type to the phases that follow passive discovery.
func phasesFor(t domain.ScanType) []domain.ScanPhase {
	switch t {
	case domain.ScanPassive:
		return nil
	case domain.ScanQuick:
		return []domain.ScanPhase{domain.PhasePingSweep, domain.PhaseResolve}
	case domain.ScanPortOnly:
		return []domain.ScanPhase{domain.PhasePortScan, domain.PhaseFingerprint}
	case domain.ScanFull:
		return []domain.ScanPhase{domain.PhasePingSweep, domain.PhasePortScan, domain.PhaseResolve, domain.PhaseFingerprint}
	}
	return []domain.ScanPhase{domain.PhasePingSweep, domain.PhaseResolve}
}
