package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	Addr            string
	DBPath          string
	Debug           bool
	Monitor         bool
	ScanConcurrency int
	OUIDBPath       string
}

// Load parses command line flags and environment variables to populate Config.
// Flags take precedence over environment variables.
func Load() *Config {
	cfg := &Config{}

	// Defaults and Environment Variables
	cfg.Addr = getEnv("LANSCOUT_ADDR", ":8080")
	cfg.DBPath = getEnv("LANSCOUT_DB", getDefaultDBPath())
	cfg.Debug = getEnvBool("LANSCOUT_DEBUG", false)
	cfg.Monitor = getEnvBool("LANSCOUT_MONITOR", true)
	cfg.ScanConcurrency = getEnvInt("LANSCOUT_CONCURRENCY", 32)
	cfg.OUIDBPath = getEnv("LANSCOUT_OUI_DB", "")

	// Command Line Flags (Override Env)
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite database")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable verbose debug logging")
	flag.BoolVar(&cfg.Monitor, "monitor", cfg.Monitor, "Run periodic background scans")
	flag.IntVar(&cfg.ScanConcurrency, "concurrency", cfg.ScanConcurrency, "Max concurrent probes per scan phase")
	flag.StringVar(&cfg.OUIDBPath, "oui-db", cfg.OUIDBPath, "Path to an external OUI vendor database (optional)")

	flag.Parse()

	if cfg.ScanConcurrency < 1 {
		cfg.ScanConcurrency = 1
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

// getDefaultDBPath returns the default database path in user's home directory.
// Creates the directory if it doesn't exist.
func getDefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: Could not get user home directory, using current dir: %v", err)
		return "lanscout.db"
	}

	dir := filepath.Join(home, ".lanscout")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Warning: Could not create .lanscout directory, using current dir: %v", err)
		return "lanscout.db"
	}

	return filepath.Join(dir, "lanscout.db")
}
