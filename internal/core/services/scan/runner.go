package scan

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkrull/lanscout/internal/adapters/fingerprint"
	"github.com/mkrull/lanscout/internal/core/domain"
	"github.com/mkrull/lanscout/internal/core/ports"
)

// Default probe timeouts. Each probe has its own short timeout independent of
// scan cancellation so one hung host cannot stall a whole phase.
const (
	defaultPingTimeout    = 3 * time.Second
	defaultPortTimeout    = 2 * time.Second
	defaultResolveTimeout = 2 * time.Second
)

// PhaseRunner executes one discovery phase against a candidate device set,
// fanning out probes under a concurrency bound and emitting updated snapshots
// incrementally. A single failed probe never fails the phase: the device is
// recorded as absent/offline for that check and the phase continues.
type PhaseRunner struct {
	provider    ports.DiscoveryProvider
	vendors     ports.VendorLookup
	concurrency int

	pingTimeout    time.Duration
	portTimeout    time.Duration
	resolveTimeout time.Duration

	// emitMu serializes snapshot emission from concurrent probe workers.
	emitMu sync.Mutex
}

// NewPhaseRunner creates a runner. concurrency caps in-flight probes per
// phase; values below 1 are clamped to 1.
func NewPhaseRunner(provider ports.DiscoveryProvider, vendors ports.VendorLookup, concurrency int) *PhaseRunner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &PhaseRunner{
		provider:       provider,
		vendors:        vendors,
		concurrency:    concurrency,
		pingTimeout:    defaultPingTimeout,
		portTimeout:    defaultPortTimeout,
		resolveTimeout: defaultResolveTimeout,
	}
}

// EmitFunc receives each device snapshot as a phase produces it. The runner
// serializes calls, so implementations need not be concurrency-safe.
type EmitFunc func(d domain.Device)

func (r *PhaseRunner) emit(fn EmitFunc, d domain.Device) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	fn(d)
}

// Passive reads the platform neighbor table and produces the initial
// candidate set. No packets are sent.
func (r *PhaseRunner) Passive(ctx context.Context, emit EmitFunc) ([]domain.Device, error) {
	neighbors, err := r.provider.ReadNeighborTable(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	devices := make([]domain.Device, 0, len(neighbors))
	for _, n := range neighbors {
		if ctx.Err() != nil {
			return devices, ctx.Err()
		}
		d := domain.Device{
			ID:        uuid.NewString(),
			MAC:       n.MAC,
			Hostname:  n.Hostname,
			CurrentIP: n.IP,
			IsGateway: n.IsGateway,
			IsOnline:  true,
			Type:      domain.TypeUnknown,
			FirstSeen: now,
			LastSeen:  now,
		}
		if n.IsGateway {
			d.Type = domain.TypeRouter
		}
		if r.vendors != nil && n.MAC != "" {
			d.Vendor = r.vendors.Vendor(n.MAC)
		}
		devices = append(devices, d)
		r.emit(emit, d)
	}
	return devices, nil
}

// PingSweep probes each candidate for latency, updating LatencyMs and
// IsOnline in place.
func (r *PhaseRunner) PingSweep(ctx context.Context, devices []domain.Device, emit EmitFunc) {
	r.forEach(ctx, devices, func(probeCtx context.Context, d *domain.Device) {
		latency, err := r.provider.PingHost(probeCtx, d.CurrentIP, r.pingTimeout)
		if err != nil {
			slog.Debug("ping probe failed", "ip", d.CurrentIP, "error", err)
		}
		d.LatencyMs = latency
		d.IsOnline = latency != nil
		d.LastSeen = time.Now().UTC()
		r.emit(emit, *d)
	})
}

// PortScan runs a TCP connect scan over portList for each candidate.
func (r *PhaseRunner) PortScan(ctx context.Context, devices []domain.Device, portList []int, emit EmitFunc) {
	r.forEach(ctx, devices, func(probeCtx context.Context, d *domain.Device) {
		results, err := r.provider.ScanPorts(probeCtx, d.CurrentIP, portList, r.portTimeout)
		if err != nil {
			slog.Debug("port scan probe failed", "ip", d.CurrentIP, "error", err)
			return
		}
		for i := range results {
			if results[i].Service == "" {
				results[i].Service = ServiceName(results[i].Number)
			}
		}
		d.OpenPorts = results
		r.emit(emit, *d)
	})
}

// Resolve performs reverse DNS lookups for candidates without a hostname.
func (r *PhaseRunner) Resolve(ctx context.Context, devices []domain.Device, emit EmitFunc) {
	r.forEach(ctx, devices, func(probeCtx context.Context, d *domain.Device) {
		if d.Hostname != "" {
			return
		}
		resolveCtx, cancel := context.WithTimeout(probeCtx, r.resolveTimeout)
		defer cancel()
		hostname, err := r.provider.ResolveHostname(resolveCtx, d.CurrentIP)
		if err != nil {
			slog.Debug("hostname resolution failed", "ip", d.CurrentIP, "error", err)
			return
		}
		if hostname != "" {
			d.Hostname = hostname
			r.emit(emit, *d)
		}
	})
}

// Fingerprint derives an OS guess and device type from the accumulated
// snapshot. Purely computational: no network I/O.
func (r *PhaseRunner) Fingerprint(ctx context.Context, devices []domain.Device, emit EmitFunc) {
	for i := range devices {
		if ctx.Err() != nil {
			return
		}
		d := &devices[i]
		open := d.OpenPortNumbers()
		if guess := fingerprint.GuessOS(open, d.Vendor); guess != nil {
			d.OSGuess = guess.OS
			d.OSConfidence = guess.Confidence
		}
		d.Type = fingerprint.ClassifyDevice(open, d.Vendor, d.OSGuess, d.IsGateway)
		r.emit(emit, *d)
	}
}

// forEach fans work out over the candidate set under the concurrency bound.
// The cancel signal is honored per item: once the context is done no new
// probes start, but in-flight probes finish and their results are kept.
func (r *PhaseRunner) forEach(ctx context.Context, devices []domain.Device, probe func(context.Context, *domain.Device)) {
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

	for i := range devices {
		if ctx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			// give up waiting for a slot, stop launching
			goto wait
		}

		wg.Add(1)
		go func(d *domain.Device) {
			defer wg.Done()
			defer func() { <-sem }()
			probe(ctx, d)
		}(&devices[i])
	}

wait:
	wg.Wait()
}
