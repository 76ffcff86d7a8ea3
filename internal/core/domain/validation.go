package domain

import "regexp"

// Validation Helpers

var (
	macRegex        = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})$`)
	macPatternRegex = regexp.MustCompile(`^([0-9A-Fa-f]{2}|\*)([:-]([0-9A-Fa-f]{2}|\*)){5}$`)
	ipv4Regex       = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)
)

// IsValidMAC checks if the string is a fully concrete MAC address.
func IsValidMAC(mac string) bool {
	return macRegex.MatchString(mac)
}

// IsValidMACPattern checks a MAC match pattern: six groups separated by
// ':' or '-', where any group may be the wildcard '*'.
func IsValidMACPattern(pattern string) bool {
	return macPatternRegex.MatchString(pattern)
}

// LooksLikeIPv4 is a cheap shape check; octet range is verified by net.ParseIP
// at the matching layer.
func LooksLikeIPv4(s string) bool {
	return ipv4Regex.MatchString(s)
}
