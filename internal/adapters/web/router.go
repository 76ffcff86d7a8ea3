package web

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()

	// Devices
	api.HandleFunc("/devices", s.handleListDevices).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}", s.handleGetDevice).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}", s.handleUpdateDevice).Methods(http.MethodPatch)
	api.HandleFunc("/devices/{id}", s.handleDeleteDevice).Methods(http.MethodDelete)
	api.HandleFunc("/devices/{id}/latency", s.handleLatencyHistory).Methods(http.MethodGet)

	// Alerts
	api.HandleFunc("/alerts", s.handleListAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts/read-all", s.handleMarkAllAlertsRead).Methods(http.MethodPost)
	api.HandleFunc("/alerts/{id}/read", s.handleMarkAlertRead).Methods(http.MethodPost)

	// Rules: builtin first so "builtin" is not swallowed by the {id} route.
	api.HandleFunc("/rules/builtin", s.handleListBuiltinRules).Methods(http.MethodGet)
	api.HandleFunc("/rules/builtin/{id}", s.handleUpdateBuiltinRule).Methods(http.MethodPatch)
	api.HandleFunc("/rules", s.handleListRules).Methods(http.MethodGet)
	api.HandleFunc("/rules", s.handleCreateRule).Methods(http.MethodPost)
	api.HandleFunc("/rules/{id}", s.handleGetRule).Methods(http.MethodGet)
	api.HandleFunc("/rules/{id}", s.handleUpdateRule).Methods(http.MethodPatch)
	api.HandleFunc("/rules/{id}", s.handleDeleteRule).Methods(http.MethodDelete)

	// Scans
	api.HandleFunc("/scan/start", s.handleStartScan).Methods(http.MethodPost)
	api.HandleFunc("/scan/stop", s.handleStopScan).Methods(http.MethodPost)
	api.HandleFunc("/scan/current", s.handleCurrentScan).Methods(http.MethodGet)
	api.HandleFunc("/scans", s.handleListScans).Methods(http.MethodGet)

	// Settings
	api.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handleUpdateSettings).Methods(http.MethodPut)

	// Event stream
	r.HandleFunc("/ws", s.Hub.HandleWebSocket)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	return r
}
