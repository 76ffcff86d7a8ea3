package ports

import (
	"context"
	"time"

	"github.com/mkrull/lanscout/internal/core/domain"
)

// DiscoveryProvider abstracts the platform-specific commands used to harvest
// raw network data. Implementations shell out to OS tools; the core only
// depends on this shape.
type DiscoveryProvider interface {
	// ReadNeighborTable returns the current ARP/neighbor entries without
	// sending any packets.
	ReadNeighborTable(ctx context.Context) ([]domain.Neighbor, error)
	// PingHost probes one address and returns the latency in ms, or nil when
	// the host did not answer within the timeout.
	PingHost(ctx context.Context, ip string, timeout time.Duration) (*float64, error)
	// ScanPorts performs a TCP connect scan and returns the open ports found.
	ScanPorts(ctx context.Context, ip string, portList []int, timeout time.Duration) ([]domain.Port, error)
	// ResolveHostname performs a reverse DNS lookup; empty string when none.
	ResolveHostname(ctx context.Context, ip string) (string, error)
}

// VendorLookup resolves a vendor name from a MAC address OUI prefix.
type VendorLookup interface {
	Vendor(mac string) string
}

// NotificationSink delivers alert side effects. Both calls are best-effort:
// failures are logged by the implementation, never propagated into rule
// evaluation.
type NotificationSink interface {
	NotifyDesktop(a domain.Alert)
	PostWebhook(ctx context.Context, url string, a domain.Alert) error
}

// EventSink receives the snapshots, alerts and progress the orchestrator
// surfaces to listening consumers.
type EventSink interface {
	PublishDevice(d domain.Device, kind domain.ChangeKind)
	PublishAlert(a domain.Alert)
	PublishProgress(p domain.ScanProgress)
	PublishScanDone(r domain.ScanResult)
}

// AlertDispatcher evaluates all enabled rules against one device snapshot.
type AlertDispatcher interface {
	OnDeviceSnapshot(ctx context.Context, d domain.Device, kind domain.ChangeKind, portsChanged bool) []domain.Alert
}
