// Converts a maclookup.com OUI CSV export into the JSON vendor file lanscout
// loads at startup (-oui-db flag).
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"strings"
)

func main() {
	csvPath := flag.String("csv", "data/maclookup.csv", "Path to CSV file")
	outPath := flag.String("out", "data/oui.json", "Path to JSON vendor file")
	full := flag.Bool("full", false, "Keep full vendor names instead of shortened ones")
	flag.Parse()

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Fatalf("Failed to open CSV: %v", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		log.Fatalf("Failed to read header: %v", err)
	}

	entries := make(map[string]string)
	lineNum := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("Warning: Failed to parse line %d: %v", lineNum, err)
			continue
		}
		lineNum++

		// CSV format: Mac Prefix,Vendor Name,Private,Block Type,Last Update
		if len(record) < 2 {
			continue
		}

		prefix := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(record[0]), "-", ":"))
		vendor := strings.TrimSpace(record[1])
		if prefix == "" || vendor == "" {
			continue
		}
		// Only 24-bit prefixes; MA-M and MA-S blocks are too fine-grained
		// for the lookup table.
		if len(prefix) != 8 {
			continue
		}
		if !*full {
			vendor = extractShortVendor(vendor)
		}
		entries[prefix] = vendor
	}

	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode JSON: %v", err)
	}
	if err := os.WriteFile(*outPath, raw, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", *outPath, err)
	}

	log.Printf("✓ Import complete!")
	log.Printf("  Entries written: %d", len(entries))
	log.Printf("  Output: %s", *outPath)
}

func extractShortVendor(vendor string) string {
	vendor = strings.TrimSpace(vendor)
	for _, suffix := range []string{
		" Inc.", " Inc", " Corporation", " Corp.", " Corp",
		" Ltd.", " Ltd", " Limited", " Co., Ltd.", " Co.",
		" LLC", " GmbH", " S.A.", " AG",
	} {
		vendor = strings.TrimSuffix(vendor, suffix)
	}
	if idx := strings.Index(vendor, ","); idx > 0 {
		vendor = vendor[:idx]
	}
	return strings.TrimSpace(vendor)
}
