package fingerprint

import "strings"

// OSGuess is the result of passive OS fingerprinting.
type OSGuess struct {
	OS         string
	Confidence float64 // 0.0 - 1.0
}

// GuessOS infers an operating system from the open port signature, falling
// back to vendor heuristics. Returns nil when nothing matches.
func GuessOS(openPorts []int, vendor string) *OSGuess {
	has := portSet(openPorts)

	// lockdownd / iphone-sync
	if has[62078] {
		return &OSGuess{OS: "iOS", Confidence: 0.85}
	}
	// AFP
	if has[548] {
		return &OSGuess{OS: "macOS", Confidence: 0.80}
	}
	// SMB + MSRPC
	if has[445] && has[135] {
		return &OSGuess{OS: "Windows", Confidence: 0.85}
	}
	if has[445] && !has[22] {
		return &OSGuess{OS: "Windows", Confidence: 0.60}
	}
	if has[22] && !has[445] && !has[135] {
		return &OSGuess{OS: "Linux", Confidence: 0.55}
	}
	// IPP / JetDirect
	if has[631] || has[9100] {
		return &OSGuess{OS: "Printer firmware", Confidence: 0.70}
	}

	v := strings.ToLower(vendor)
	if has[80] && len(openPorts) <= 3 && isNetworkVendor(v) {
		return &OSGuess{OS: "Router firmware", Confidence: 0.75}
	}

	switch {
	case strings.Contains(v, "apple"):
		return &OSGuess{OS: "macOS/iOS", Confidence: 0.40}
	case strings.Contains(v, "samsung"), strings.Contains(v, "oneplus"),
		strings.Contains(v, "xiaomi"), strings.Contains(v, "huawei"):
		return &OSGuess{OS: "Android", Confidence: 0.50}
	case strings.Contains(v, "microsoft"):
		return &OSGuess{OS: "Windows", Confidence: 0.45}
	case strings.Contains(v, "raspberry"):
		return &OSGuess{OS: "Linux", Confidence: 0.70}
	}

	return nil
}

// ClassifyDevice derives a device type from ports, vendor and OS guess.
func ClassifyDevice(openPorts []int, vendor, osGuess string, isGateway bool) string {
	if isGateway {
		return "router"
	}

	has := portSet(openPorts)
	v := strings.ToLower(vendor)
	os := strings.ToLower(osGuess)

	if has[9100] || has[631] {
		return "printer"
	}

	if strings.Contains(os, "ios") || strings.Contains(os, "android") || has[62078] {
		return "phone"
	}

	if isMediaVendor(v) && len(openPorts) <= 5 {
		return "media"
	}
	if isIoTVendor(v) {
		return "iot"
	}
	if isNetworkVendor(v) && (has[80] || has[443]) {
		return "router"
	}

	if has[22] || has[3389] || has[548] || has[445] || len(openPorts) >= 5 {
		return "computer"
	}
	if strings.Contains(os, "windows") || strings.Contains(os, "macos") || strings.Contains(os, "linux") {
		return "computer"
	}

	return "unknown"
}

func portSet(ports []int) map[int]bool {
	set := make(map[int]bool, len(ports))
	for _, p := range ports {
		set[p] = true
	}
	return set
}

func isNetworkVendor(v string) bool {
	for _, name := range []string{"ubiquiti", "mikrotik", "routerboard", "cisco", "netgear",
		"tp-link", "asus", "linksys", "arris", "avm"} {
		if strings.Contains(v, name) {
			return true
		}
	}
	return false
}

func isMediaVendor(v string) bool {
	for _, name := range []string{"sonos", "roku", "amazon", "google", "chromecast", "vizio",
		"denon", "onkyo"} {
		if strings.Contains(v, name) {
			return true
		}
	}
	return false
}

func isIoTVendor(v string) bool {
	for _, name := range []string{"espressif", "tuya", "shenzhen", "wemo", "nest", "ring",
		"wyze", "lifx", "philips lighting"} {
		if strings.Contains(v, name) {
			return true
		}
	}
	return false
}
