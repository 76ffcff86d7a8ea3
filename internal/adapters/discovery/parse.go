package discovery

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mkrull/lanscout/internal/core/domain"
)

var (
	// Matches both common `arp -a` formats:
	//   hostname (192.168.1.1) at aa:bb:cc:dd:ee:ff on en0 ifscope [ethernet]
	//   ? (192.168.1.42) at dd:ee:ff:00:11:22 on en0 ifscope [ethernet]
	arpLineRe = regexp.MustCompile(`(?:(\S+)\s+)?\((\d+\.\d+\.\d+\.\d+)\)\s+at\s+([0-9A-Fa-f:]+)`)

	gatewayRe = regexp.MustCompile(`default\s+(\d+\.\d+\.\d+\.\d+)`)

	// Per-line ping time, then the summary as a fallback:
	//   64 bytes from 192.168.1.1: icmp_seq=0 ttl=64 time=1.234 ms
	//   round-trip min/avg/max/stddev = 1.234/1.456/1.789/0.123 ms
	pingTimeRe = regexp.MustCompile(`time[=<](\d+\.?\d*)\s*ms`)
	pingRTTRe  = regexp.MustCompile(`min/avg/max/\w+ = [\d.]+/([\d.]+)/`)
)

// ParseARPOutput extracts neighbor entries from `arp -a` text. Incomplete and
// broadcast entries are skipped; a "?" hostname means the tool had none.
func ParseARPOutput(output, gatewayIP string) []domain.Neighbor {
	var neighbors []domain.Neighbor
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "(incomplete)") || strings.Contains(strings.ToLower(line), "ff:ff:ff:ff:ff:ff") {
			continue
		}
		caps := arpLineRe.FindStringSubmatch(line)
		if caps == nil {
			continue
		}

		hostname := caps[1]
		if hostname == "?" {
			hostname = ""
		}
		ip := caps[2]
		mac := normalizeMAC(caps[3])
		if !domain.IsValidMAC(mac) {
			continue
		}

		neighbors = append(neighbors, domain.Neighbor{
			IP:        ip,
			MAC:       mac,
			Hostname:  hostname,
			IsGateway: gatewayIP != "" && ip == gatewayIP,
		})
	}
	return neighbors
}

// normalizeMAC pads single-digit octets: macOS arp prints "0:11:22:3:44:55".
func normalizeMAC(raw string) string {
	parts := strings.Split(raw, ":")
	if len(parts) != 6 {
		return strings.ToUpper(raw)
	}
	for i, part := range parts {
		if len(part) == 1 {
			parts[i] = "0" + part
		}
	}
	return strings.ToUpper(strings.Join(parts, ":"))
}

// ParseGateway pulls the default route target out of `netstat -rn` output.
func ParseGateway(output string) string {
	caps := gatewayRe.FindStringSubmatch(output)
	if caps == nil {
		return ""
	}
	return caps[1]
}

// ParsePingOutput extracts the round-trip time in milliseconds, or nil when
// the output carries none.
func ParsePingOutput(output string) *float64 {
	if caps := pingTimeRe.FindStringSubmatch(output); caps != nil {
		if v, err := strconv.ParseFloat(caps[1], 64); err == nil {
			return &v
		}
	}
	if caps := pingRTTRe.FindStringSubmatch(output); caps != nil {
		if v, err := strconv.ParseFloat(caps[1], 64); err == nil {
			return &v
		}
	}
	return nil
}
