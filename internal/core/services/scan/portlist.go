package scan

import (
	"strconv"
	"strings"
)

// top100Ports is the nmap-style default list used for "top100" port range.
var top100Ports = []int{
	7, 9, 13, 21, 22, 23, 25, 26, 37, 53, 79, 80, 81, 88, 106, 110, 111,
	113, 119, 135, 139, 143, 144, 179, 199, 389, 427, 443, 444, 445, 465,
	513, 514, 515, 543, 544, 548, 554, 587, 631, 646, 873, 990, 993, 995,
	1025, 1026, 1027, 1028, 1029, 1110, 1433, 1720, 1723, 1755, 1900,
	2000, 2001, 2049, 2121, 2717, 3000, 3128, 3306, 3389, 3986, 4899,
	5000, 5001, 5003, 5009, 5050, 5051, 5060, 5101, 5190, 5357, 5432,
	5631, 5666, 5800, 5900, 6000, 6001, 6646, 7070, 8000, 8008, 8009,
	8080, 8081, 8443, 8888, 9100, 9999, 10000, 32768, 49152, 49153, 49154,
}

// extendedPorts supplements the top-100 list for "top1000" scans with ranges
// commonly carrying services on LANs.
var extendedPorts = buildExtendedPorts()

func buildExtendedPorts() []int {
	seen := make(map[int]bool, 1000)
	out := make([]int, 0, 1000)
	add := func(p int) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range top100Ports {
		add(p)
	}
	for p := 1; p <= 1024; p++ {
		add(p)
	}
	for _, p := range []int{1080, 1234, 1521, 2222, 2375, 2376, 3001, 3690, 4000, 4443,
		5222, 5269, 5353, 5555, 5601, 5672, 5984, 6379, 6443, 6667, 7001, 7777,
		8006, 8086, 8123, 8333, 8545, 8883, 9000, 9090, 9200, 9300, 9418,
		11211, 25565, 27017, 32400, 51820, 62078} {
		add(p)
	}
	return out
}

// PortsForRange resolves a port range setting to a concrete port list.
// Accepts "top100", "top1000" or a comma-separated list; anything
// unparseable falls back to top100.
func PortsForRange(portRange string) []int {
	switch strings.ToLower(strings.TrimSpace(portRange)) {
	case "", "top100":
		return top100Ports
	case "top1000":
		return extendedPorts
	}

	var out []int
	for _, part := range strings.Split(portRange, ",") {
		p, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || p < 1 || p > 65535 {
			return top100Ports
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return top100Ports
	}
	return out
}

// serviceNames maps well-known ports to service names for scan results.
var serviceNames = map[int]string{
	21: "ftp", 22: "ssh", 23: "telnet", 25: "smtp",
	53: "dns", 80: "http", 88: "kerberos", 110: "pop3",
	111: "rpc", 119: "nntp", 135: "msrpc", 139: "netbios",
	143: "imap", 179: "bgp", 389: "ldap", 443: "https",
	445: "smb", 465: "smtps", 513: "rlogin", 514: "syslog",
	543: "klogin", 548: "afp", 554: "rtsp", 587: "submission",
	631: "ipp", 873: "rsync", 993: "imaps", 995: "pop3s",
	1433: "mssql", 1723: "pptp", 1900: "ssdp", 2049: "nfs",
	3000: "dev-server", 3306: "mysql", 3389: "rdp",
	5000: "upnp", 5060: "sip", 5432: "postgresql",
	5900: "vnc", 6000: "x11", 6379: "redis", 8000: "http-alt",
	8080: "http-proxy", 8443: "https-alt", 8888: "http-alt2",
	9100: "jetdirect", 9999: "abyss", 10000: "webmin",
	27017: "mongodb", 62078: "iphone-sync",
}

// ServiceName returns the well-known service for a port, or "".
func ServiceName(port int) string {
	return serviceNames[port]
}
