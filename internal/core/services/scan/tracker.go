package scan

import (
	"sort"
	"strings"
	"sync"

	"github.com/mkrull/lanscout/internal/core/domain"
)

// observation is the final per-device outcome of a scan cycle, handed to the
// alert dispatcher exactly once.
type observation struct {
	device       domain.Device
	kind         domain.ChangeKind
	portsChanged bool
}

// changeTracker reconciles phase snapshots against the device state persisted
// before the scan started. Identity is the MAC address; devices without one
// fall back to IP. Safe for the concurrent persist callbacks the runner
// serializes through its emit lock, but locks anyway so orchestrator-side
// calls (departed marking) never race.
type changeTracker struct {
	mu       sync.Mutex
	priorMAC map[string]domain.Device
	priorIP  map[string]domain.Device
	seen     map[string]*observation // key: identity of observed device
	departs  []domain.Device
}

func newChangeTracker(prior []domain.Device) *changeTracker {
	t := &changeTracker{
		priorMAC: make(map[string]domain.Device, len(prior)),
		priorIP:  make(map[string]domain.Device, len(prior)),
		seen:     make(map[string]*observation),
	}
	for _, d := range prior {
		if d.MAC != "" {
			t.priorMAC[strings.ToUpper(d.MAC)] = d
		} else if d.CurrentIP != "" {
			t.priorIP[d.CurrentIP] = d
		}
	}
	return t
}

func identityKey(d domain.Device) string {
	if d.MAC != "" {
		return "mac:" + strings.ToUpper(d.MAC)
	}
	return "ip:" + d.CurrentIP
}

// observe merges a phase snapshot with the persisted record it corresponds
// to. Scanner-derived fields come from the snapshot; user-owned fields
// (custom name, trust flag, notes, custom properties) and the stable identity
// (ID, FirstSeen) come from the persisted record.
func (t *changeTracker) observe(snap domain.Device) domain.Device {
	t.mu.Lock()
	defer t.mu.Unlock()

	prior, hadPrior := t.lookupPrior(snap)
	key := identityKey(snap)

	merged := snap
	if hadPrior {
		merged.ID = prior.ID
		merged.FirstSeen = prior.FirstSeen
		merged.CustomName = prior.CustomName
		merged.IsTrusted = prior.IsTrusted
		merged.Notes = prior.Notes
		merged.CustomProps = prior.CustomProps
		if merged.Hostname == "" {
			merged.Hostname = prior.Hostname
		}
		if merged.Vendor == "" {
			merged.Vendor = prior.Vendor
		}
		if merged.OSGuess == "" {
			merged.OSGuess = prior.OSGuess
			merged.OSConfidence = prior.OSConfidence
		}
		// An empty port list means no port phase reached this device yet;
		// keep what we knew rather than reporting everything closed.
		if len(merged.OpenPorts) == 0 {
			merged.OpenPorts = prior.OpenPorts
		}
	}
	if obs, ok := t.seen[key]; ok {
		// Re-observation in a later phase: identity was fixed on first sight.
		merged.ID = obs.device.ID
		merged.FirstSeen = obs.device.FirstSeen
	}

	kind := domain.ChangeUpdated
	if !hadPrior {
		kind = domain.ChangeNew
	}
	portsChanged := hadPrior && len(snap.OpenPorts) > 0 &&
		!samePortSet(prior.OpenPortNumbers(), merged.OpenPortNumbers())

	if obs, ok := t.seen[key]; ok {
		obs.device = merged
		if portsChanged {
			obs.portsChanged = true
		}
	} else {
		t.seen[key] = &observation{device: merged, kind: kind, portsChanged: portsChanged}
	}
	return merged
}

// committed records the canonical stored row after an upsert, so later phases
// reuse the same identity the database settled on.
func (t *changeTracker) committed(stored domain.Device) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if obs, ok := t.seen[identityKey(stored)]; ok {
		obs.device = stored
	}
}

func (t *changeTracker) kindOf(d domain.Device) domain.ChangeKind {
	t.mu.Lock()
	defer t.mu.Unlock()
	if obs, ok := t.seen[identityKey(d)]; ok {
		return obs.kind
	}
	return domain.ChangeUpdated
}

// departed returns the previously-online devices this scan never observed.
func (t *changeTracker) departed() []domain.Device {
	t.mu.Lock()
	defer t.mu.Unlock()
	var gone []domain.Device
	for _, d := range t.priorMAC {
		if d.IsOnline {
			if _, ok := t.seen[identityKey(d)]; !ok {
				gone = append(gone, d)
			}
		}
	}
	for _, d := range t.priorIP {
		if d.IsOnline {
			if _, ok := t.seen[identityKey(d)]; !ok {
				gone = append(gone, d)
			}
		}
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i].ID < gone[j].ID })
	return gone
}

// recordDeparted adds a departed device to the per-cycle observations so the
// dispatcher sees it once, like any other change.
func (t *changeTracker) recordDeparted(d domain.Device) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen[identityKey(d)] = &observation{device: d, kind: domain.ChangeDeparted}
}

// observations returns one entry per device touched this cycle, in a stable
// order for deterministic dispatch.
func (t *changeTracker) observations() []observation {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]observation, 0, len(t.seen))
	for _, obs := range t.seen {
		out = append(out, *obs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].device.ID < out[j].device.ID })
	return out
}

func (t *changeTracker) observedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, obs := range t.seen {
		if obs.kind != domain.ChangeDeparted {
			n++
		}
	}
	return n
}

func (t *changeTracker) newCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, obs := range t.seen {
		if obs.kind == domain.ChangeNew {
			n++
		}
	}
	return n
}

func (t *changeTracker) lookupPrior(d domain.Device) (domain.Device, bool) {
	if d.MAC != "" {
		if prior, ok := t.priorMAC[strings.ToUpper(d.MAC)]; ok {
			return prior, true
		}
	}
	if d.CurrentIP != "" {
		if prior, ok := t.priorIP[d.CurrentIP]; ok {
			return prior, true
		}
	}
	return domain.Device{}, false
}

func samePortSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[int]struct{}, len(a))
	for _, p := range a {
		set[p] = struct{}{}
	}
	for _, p := range b {
		if _, ok := set[p]; !ok {
			return false
		}
	}
	return true
}
