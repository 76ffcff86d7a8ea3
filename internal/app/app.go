// Package app wires the adapters and services together and owns the
// application lifecycle.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/mkrull/lanscout/internal/adapters/discovery"
	"github.com/mkrull/lanscout/internal/adapters/fingerprint"
	"github.com/mkrull/lanscout/internal/adapters/notify"
	"github.com/mkrull/lanscout/internal/adapters/storage"
	"github.com/mkrull/lanscout/internal/adapters/web"
	"github.com/mkrull/lanscout/internal/config"
	"github.com/mkrull/lanscout/internal/core/services/alerts"
	"github.com/mkrull/lanscout/internal/core/services/scan"
)

// Application holds the core components and acts as the composition root.
type Application struct {
	Config       *config.Config
	Store        *storage.SQLiteAdapter
	Orchestrator *scan.Orchestrator
	Monitor      *scan.Monitor
	WebServer    *web.Server
	Hub          *web.Hub
}

// New creates an Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg}
	if err := app.bootstrap(); err != nil {
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}
	return app, nil
}

func (app *Application) bootstrap() error {
	store, err := storage.NewSQLiteAdapter(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("storage init: %w", err)
	}
	app.Store = store

	vendors := fingerprint.NewVendorDB()
	if app.Config.OUIDBPath != "" {
		if err := loadVendorFile(vendors, app.Config.OUIDBPath); err != nil {
			log.Printf("Warning: could not load OUI database %s: %v", app.Config.OUIDBPath, err)
		}
	}

	provider := discovery.NewProvider()
	notifier := notify.NewNotifier()
	app.Hub = web.NewHub()

	dispatcher := alerts.NewDispatcher(store, store, notifier)
	runner := scan.NewPhaseRunner(provider, vendors, app.Config.ScanConcurrency)
	app.Orchestrator = scan.NewOrchestrator(store, runner, dispatcher, app.Hub)
	app.Monitor = scan.NewMonitor(app.Orchestrator, store)
	app.WebServer = web.NewServer(app.Config.Addr, store, app.Orchestrator, app.Hub)

	return nil
}

// loadVendorFile merges a JSON file of {"AA:BB:CC": "Vendor"} entries into the
// builtin OUI table.
func loadVendorFile(db *fingerprint.VendorDB, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var entries map[string]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return err
	}
	db.Load(entries)
	return nil
}

// Run starts the background monitor and the web server, then blocks until ctx
// is cancelled. Everything is shut down before it returns.
func (app *Application) Run(ctx context.Context) error {
	if app.Config.Monitor {
		app.Monitor.Start()
		defer app.Monitor.Stop()
	}

	defer func() {
		_ = app.Orchestrator.Stop()
		app.Orchestrator.Wait()
		if err := app.Store.Close(); err != nil {
			log.Printf("Storage close error: %v", err)
		}
	}()

	return app.WebServer.Run(ctx)
}
