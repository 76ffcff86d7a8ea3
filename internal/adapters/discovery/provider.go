// Package discovery shells out to standard OS tools (arp, netstat, ping) and
// plain TCP sockets to observe the local network. Nothing here needs elevated
// privileges.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mkrull/lanscout/internal/core/domain"
	"github.com/mkrull/lanscout/internal/core/ports"
)

const bannerReadLimit = 256

// Provider implements ports.DiscoveryProvider with OS commands and TCP
// connect probes.
type Provider struct {
	resolver *net.Resolver

	// runCommand is swappable in tests.
	runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewProvider() *Provider {
	return &Provider{
		resolver:   net.DefaultResolver,
		runCommand: runCommand,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// ReadNeighborTable parses `arp -a` and tags the default gateway found in the
// routing table. Purely observational: no packets are sent.
func (p *Provider) ReadNeighborTable(ctx context.Context) ([]domain.Neighbor, error) {
	out, err := p.runCommand(ctx, "arp", "-a")
	if err != nil {
		return nil, domain.ProbeError("read neighbor table", err)
	}

	gateway := p.gatewayIP(ctx)
	return ParseARPOutput(string(out), gateway), nil
}

// gatewayIP reads the default route from `netstat -rn`. Best effort: an empty
// string just means no device gets the gateway tag this cycle.
func (p *Provider) gatewayIP(ctx context.Context) string {
	out, err := p.runCommand(ctx, "netstat", "-rn")
	if err != nil {
		return ""
	}
	return ParseGateway(string(out))
}

// PingHost sends a single system ping and parses the round-trip time. A host
// that does not answer yields (nil, nil); only a failure to launch the probe
// is an error.
func (p *Provider) PingHost(ctx context.Context, ip string, timeout time.Duration) (*float64, error) {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	secs := int(timeout.Seconds())
	if secs < 1 {
		secs = 1
	}
	out, err := p.runCommand(probeCtx, "ping", "-c", "1", "-W", fmt.Sprintf("%d", secs), "-n", ip)
	if err != nil {
		// Non-zero exit means no reply, which is an answer in itself.
		if _, ok := err.(*exec.ExitError); ok {
			return nil, nil
		}
		if probeCtx.Err() != nil {
			return nil, nil
		}
		return nil, domain.ProbeError("ping "+ip, err)
	}

	latency := ParsePingOutput(string(out))
	return latency, nil
}

// ScanPorts runs a TCP connect scan against portList and returns the open
// ports, banner included when the service volunteers one. Closed and filtered
// ports are dropped to keep snapshots small.
func (p *Provider) ScanPorts(ctx context.Context, ip string, portList []int, timeout time.Duration) ([]domain.Port, error) {
	if len(portList) == 0 {
		return nil, nil
	}

	var (
		mu   sync.Mutex
		open []domain.Port
		wg   sync.WaitGroup
	)
	sem := make(chan struct{}, 64)

	for _, port := range portList {
		if ctx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			goto wait
		}
		wg.Add(1)
		go func(port int) {
			defer wg.Done()
			defer func() { <-sem }()
			result, ok := probePort(ctx, ip, port, timeout)
			if !ok {
				return
			}
			mu.Lock()
			open = append(open, result)
			mu.Unlock()
		}(port)
	}

wait:
	wg.Wait()
	sort.Slice(open, func(i, j int) bool { return open[i].Number < open[j].Number })
	return open, nil
}

func probePort(ctx context.Context, ip string, port int, timeout time.Duration) (domain.Port, bool) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(ip, fmt.Sprintf("%d", port)))
	if err != nil {
		return domain.Port{}, false
	}
	defer conn.Close()

	result := domain.Port{
		Number:   port,
		Protocol: "tcp",
		State:    domain.PortStateOpen,
	}
	result.Banner = grabBanner(conn)
	return result, true
}

// grabBanner reads whatever the service volunteers in the first moment after
// connect. Most services stay silent; that is not an error.
func grabBanner(conn net.Conn) string {
	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	buf := make([]byte, bannerReadLimit)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return ""
	}
	return sanitizeBanner(string(buf[:n]))
}

func sanitizeBanner(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return ' '
		}
		if r < 32 || r > 126 {
			return -1
		}
		return r
	}, raw)
	return strings.TrimSpace(cleaned)
}

// ResolveHostname does a reverse DNS lookup; an NXDOMAIN answer is an empty
// string, not an error.
func (p *Provider) ResolveHostname(ctx context.Context, ip string) (string, error) {
	names, err := p.resolver.LookupAddr(ctx, ip)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && (dnsErr.IsNotFound || dnsErr.IsTimeout) {
			return "", nil
		}
		return "", domain.ProbeError("resolve "+ip, err)
	}
	if len(names) == 0 {
		return "", nil
	}
	return strings.TrimSuffix(names[0], "."), nil
}

var _ ports.DiscoveryProvider = (*Provider)(nil)
