package rules

import (
	"log/slog"
	"net"
	"strings"

	"github.com/mkrull/lanscout/internal/core/domain"
)

// IPMatches reports whether candidate falls inside pattern. The pattern may
// be a bare IPv4 address (exact match) or a CIDR block. Invalid patterns or
// candidates never match; they are logged and treated as no-match so a bad
// stored rule cannot take down evaluation.
func IPMatches(candidate, pattern string) bool {
	ip := net.ParseIP(candidate)
	if ip == nil || ip.To4() == nil {
		return false
	}

	if !strings.Contains(pattern, "/") {
		target := net.ParseIP(pattern)
		if target == nil || target.To4() == nil {
			slog.Debug("invalid IP pattern in rule", "pattern", pattern)
			return false
		}
		return ip.Equal(target)
	}

	_, network, err := net.ParseCIDR(pattern)
	if err != nil || network.IP.To4() == nil {
		slog.Debug("invalid CIDR pattern in rule", "pattern", pattern)
		return false
	}
	return network.Contains(ip)
}

// MACMatches reports whether candidate matches pattern. The pattern is six
// groups separated by ':' or '-', where any group may be the wildcard '*'.
// Comparison is case-insensitive; a fully concrete pattern behaves as exact
// equality. Malformed input never matches.
func MACMatches(candidate, pattern string) bool {
	if !domain.IsValidMAC(candidate) {
		return false
	}
	if !domain.IsValidMACPattern(pattern) {
		slog.Debug("invalid MAC pattern in rule", "pattern", pattern)
		return false
	}

	candOctets := splitMAC(candidate)
	patOctets := splitMAC(pattern)
	for i := range candOctets {
		if patOctets[i] == "*" {
			continue
		}
		if !strings.EqualFold(candOctets[i], patOctets[i]) {
			return false
		}
	}
	return true
}

func splitMAC(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ':' || r == '-'
	})
}
