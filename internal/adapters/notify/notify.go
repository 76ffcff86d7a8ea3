// Package notify delivers alert side effects: desktop notifications through
// the platform notifier and JSON webhooks over HTTP.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mkrull/lanscout/internal/core/domain"
	"github.com/mkrull/lanscout/internal/core/ports"
)

const webhookTimeout = 10 * time.Second

// Notifier implements ports.NotificationSink. Both delivery paths are
// best-effort: a failed notification is logged and forgotten, never
// propagated into rule evaluation.
type Notifier struct {
	client *http.Client

	// runCommand is swappable in tests.
	runCommand func(ctx context.Context, name string, args ...string) error
}

func NewNotifier() *Notifier {
	return &Notifier{
		client: &http.Client{
			Timeout:   webhookTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		runCommand: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// NotifyDesktop shows a desktop notification via the platform tool:
// notify-send on Linux, osascript on macOS.
func (n *Notifier) NotifyDesktop(a domain.Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	title := desktopTitle(a.EventType)
	var err error
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", a.Message, title)
		err = n.runCommand(ctx, "osascript", "-e", script)
	default:
		err = n.runCommand(ctx, "notify-send", "-u", urgency(a.Severity), title, a.Message)
	}
	if err != nil {
		log.Printf("Desktop notification failed: %v", err)
	}
}

func desktopTitle(t domain.AlertEventType) string {
	switch t {
	case domain.EventNewDevice:
		return "New Device"
	case domain.EventDeviceDeparted:
		return "Device Departed"
	case domain.EventPortChanged:
		return "Ports Changed"
	case domain.EventUnknownDevice:
		return "Unknown Device"
	default:
		return "Network Alert"
	}
}

func urgency(s domain.AlertSeverity) string {
	switch s {
	case domain.SeverityCritical:
		return "critical"
	case domain.SeverityWarning:
		return "normal"
	default:
		return "low"
	}
}

// PostWebhook sends the alert as JSON to the configured URL. Any non-2xx
// response is an error so the caller can log the destination.
func (n *Notifier) PostWebhook(ctx context.Context, url string, a domain.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

var _ ports.NotificationSink = (*Notifier)(nil)
