package fingerprint

import (
	"strings"
	"sync"
)

// VendorDB resolves vendor names from MAC OUI prefixes. Lookups consult the
// built-in common list first, then any entries loaded at runtime.
type VendorDB struct {
	mu       sync.RWMutex
	external map[string]string
}

// NewVendorDB creates a vendor database with the built-in OUI list.
func NewVendorDB() *VendorDB {
	return &VendorDB{external: make(map[string]string)}
}

// Load merges additional OUI entries (prefix "AA:BB:CC" -> vendor).
func (db *VendorDB) Load(entries map[string]string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for prefix, vendor := range entries {
		db.external[normalizePrefix(prefix)] = vendor
	}
}

// Vendor returns the vendor for a MAC address, "Randomized" for locally
// administered addresses, or "" when unknown.
func (db *VendorDB) Vendor(mac string) string {
	if len(mac) < 8 {
		return ""
	}

	// Locally administered bit (bit 1 of the first octet) means the MAC is
	// randomized and carries no vendor information.
	if isLocallyAdministered(mac[1]) {
		return "Randomized"
	}

	prefix := normalizePrefix(mac[:8])
	if vendor, ok := commonOUIs[prefix]; ok {
		return vendor
	}

	db.mu.RLock()
	defer db.mu.RUnlock()
	if vendor, ok := db.external[prefix]; ok {
		return vendor
	}
	return ""
}

func normalizePrefix(p string) string {
	return strings.ToUpper(strings.ReplaceAll(p, "-", ":"))
}

// isLocallyAdministered checks the LAA bit from the second hex character:
// set for 2,3,6,7,A,B,E,F.
func isLocallyAdministered(c byte) bool {
	switch c {
	case '2', '3', '6', '7', 'a', 'b', 'e', 'f', 'A', 'B', 'E', 'F':
		return true
	}
	return false
}

// commonOUIs covers the vendors most often seen on home and office networks.
var commonOUIs = map[string]string{
	"00:03:93": "Apple",
	"00:0A:95": "Apple",
	"3C:22:FB": "Apple",
	"A4:83:E7": "Apple",
	"F0:18:98": "Apple",
	"00:12:FB": "Samsung Electronics",
	"8C:77:12": "Samsung Electronics",
	"E8:50:8B": "Samsung Electronics",
	"00:1A:11": "Google",
	"F4:F5:D8": "Google",
	"3C:5A:B4": "Google",
	"00:FC:8B": "Amazon Technologies",
	"74:C2:46": "Amazon Technologies",
	"FC:65:DE": "Amazon Technologies",
	"B8:27:EB": "Raspberry Pi Foundation",
	"DC:A6:32": "Raspberry Pi Trading",
	"E4:5F:01": "Raspberry Pi Trading",
	"00:50:F2": "Microsoft",
	"3C:83:75": "Microsoft",
	"24:A4:3C": "Ubiquiti Networks",
	"78:8A:20": "Ubiquiti Networks",
	"4C:5E:0C": "Routerboard (MikroTik)",
	"64:D1:54": "Routerboard (MikroTik)",
	"00:17:88": "Philips Lighting (Hue)",
	"EC:B5:FA": "Philips Lighting (Hue)",
	"18:B4:30": "Nest Labs",
	"64:16:66": "Nest Labs",
	"5C:CF:7F": "Espressif",
	"24:0A:C4": "Espressif",
	"84:F3:EB": "Espressif",
	"68:C6:3A": "Espressif",
	"D8:F1:5B": "Espressif",
	"00:1D:C9": "Sonos",
	"94:9F:3E": "Sonos",
	"B8:E9:37": "Sonos",
	"D8:31:34": "Roku",
	"B0:A7:37": "Roku",
	"00:1E:C0": "Shenzhen RF-Link",
	"10:D5:61": "Tuya Smart",
	"68:57:2D": "Tuya Smart",
	"00:24:E4": "Withings",
	"00:04:20": "Slim Devices",
	"00:90:A9": "Western Digital",
	"00:11:32": "Synology",
	"00:08:9B": "ICP Electronics",
	"2C:F0:5D": "Micro-Star International",
	"00:1F:C6": "ASUSTek Computer",
	"50:46:5D": "ASUSTek Computer",
	"1C:B7:2C": "ASUSTek Computer",
	"00:14:BF": "Cisco-Linksys",
	"48:F8:B3": "Cisco-Linksys",
	"00:1D:7E": "Cisco-Linksys",
	"14:91:82": "Belkin International",
	"B4:75:0E": "Belkin International",
	"EC:1A:59": "Belkin International",
	"A0:40:A0": "Netgear",
	"9C:3D:CF": "Netgear",
	"20:E5:2A": "Netgear",
	"50:C7:BF": "TP-Link Technologies",
	"F4:F2:6D": "TP-Link Technologies",
	"C0:25:E9": "TP-Link Technologies",
	"00:1A:2B": "Ayecom Technology",
	"84:D8:1B": "Arcadyan",
	"00:26:86": "Quantenna Communications",
	"00:0C:43": "Ralink Technology",
	"00:1F:3F": "AVM (Fritz!Box)",
	"3C:A6:2F": "AVM (Fritz!Box)",
	"00:24:FE": "AVM (Fritz!Box)",
	"00:40:8C": "Axis Communications",
	"AC:CC:8E": "Axis Communications",
	"00:80:77": "Brother Industries",
	"30:05:5C": "Brother Industries",
	"00:1E:8F": "Canon",
	"00:00:85": "Canon",
	"00:00:48": "Seiko Epson",
	"64:EB:8C": "Seiko Epson",
	"00:17:A4": "Hewlett Packard",
	"3C:D9:2B": "Hewlett Packard",
	"94:57:A5": "Hewlett Packard",
	"00:21:5A": "Hewlett Packard",
	"F4:39:09": "HP Inc",
	"00:15:99": "Samsung Electronics",
	"00:26:37": "Samsung Electronics",
	"78:47:1D": "Samsung Electronics",
	"34:23:87": "Hon Hai Precision (Foxconn)",
	"90:FD:61": "Apple",
	"AC:DE:48": "Apple",
	"28:6A:BA": "Apple",
	"58:55:CA": "Apple",
	"D0:03:4B": "Apple",
	"00:23:12": "Apple",
	"00:0D:3A": "Microsoft",
	"28:18:78": "Microsoft",
	"58:82:A8": "Microsoft",
	"94:10:3E": "Belkin International",
	"88:71:E5": "Amazon Technologies",
	"0C:47:C9": "Amazon Technologies",
	"40:B4:CD": "Amazon Technologies",
	"18:74:2E": "Amazon Technologies",
	"44:65:0D": "Amazon Technologies",
	"F0:27:2D": "Amazon Technologies",
	"38:F7:3D": "Amazon Technologies",
	"50:F5:DA": "Amazon Technologies",
	"6C:56:97": "Amazon Technologies",
	"00:71:47": "Amazon Technologies",
	"AC:63:BE": "Amazon Technologies",
	"FC:A1:83": "Amazon Technologies",
	"2C:AA:8E": "Wyze Labs",
	"00:62:6E": "Wyze Labs",
	"A4:DA:22": "LIFX",
	"D0:73:D5": "LIFX",
	"00:0E:58": "Sonos",
	"5C:AA:FD": "Sonos",
	"78:28:CA": "Sonos",
	"00:09:B0": "Onkyo",
	"00:05:CD": "Denon",
	"00:1B:DC": "Vizio",
	"A4:77:33": "Google",
	"54:60:09": "Google",
	"1C:F2:9A": "Google",
	"94:EB:2C": "Google",
	"00:1D:25": "Samsung Electronics",
	"C4:57:6E": "Samsung Electronics",
	"30:07:4D": "Samsung Electronics",
	"A0:82:1F": "Samsung Electronics",
	"BC:14:85": "Samsung Electronics",
	"84:25:DB": "Samsung Electronics",
	"94:35:0A": "Samsung Electronics",
	"00:6F:64": "Samsung Electronics",
	"8C:F5:A3": "Samsung Electronics",
	"04:18:D6": "Ubiquiti Networks",
	"44:D9:E7": "Ubiquiti Networks",
	"F0:9F:C2": "Ubiquiti Networks",
	"80:2A:A8": "Ubiquiti Networks",
	"18:E8:29": "Ubiquiti Networks",
	"B4:FB:E4": "Ubiquiti Networks",
	"00:15:6D": "Ubiquiti Networks",
	"68:D7:9A": "Ubiquiti Networks",
	"6C:3B:6B": "Routerboard (MikroTik)",
	"E4:8D:8C": "Routerboard (MikroTik)",
	"CC:2D:E0": "Routerboard (MikroTik)",
	"B8:69:F4": "Routerboard (MikroTik)",
	"08:55:31": "Arris Group",
	"FC:51:A4": "Arris Group",
	"90:1A:CA": "Arris Group",
	"00:1D:D0": "Arris Group",
}
