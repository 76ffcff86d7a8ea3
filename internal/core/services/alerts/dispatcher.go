package alerts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mkrull/lanscout/internal/core/domain"
	"github.com/mkrull/lanscout/internal/core/ports"
	"github.com/mkrull/lanscout/internal/core/services/rules"
)

var (
	alertsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lanscout",
		Name:      "alerts_generated_total",
		Help:      "Total number of alerts generated, by event type",
	}, []string{"event_type"})
	ruleEvalFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lanscout",
		Name:      "rule_eval_failures_total",
		Help:      "Total number of custom rule evaluations that panicked or errored",
	})
)

// Dispatcher maps one device snapshot onto the set of alerts produced by all
// enabled rules. It performs no de-duplication: the orchestrator invokes it
// once per logical change per device per scan cycle, and re-evaluation is
// idempotent.
type Dispatcher struct {
	ruleStore  ports.RuleStore
	alertStore ports.AlertStore
	sink       ports.NotificationSink
}

// NewDispatcher creates an alert dispatcher.
func NewDispatcher(ruleStore ports.RuleStore, alertStore ports.AlertStore, sink ports.NotificationSink) *Dispatcher {
	return &Dispatcher{
		ruleStore:  ruleStore,
		alertStore: alertStore,
		sink:       sink,
	}
}

// OnDeviceSnapshot evaluates all enabled builtin and custom rules against one
// snapshot. portsChanged is detected by the caller against prior persisted
// state. Every produced alert is recorded and its notification side effects
// fired before returning.
func (d *Dispatcher) OnDeviceSnapshot(ctx context.Context, dev domain.Device, kind domain.ChangeKind, portsChanged bool) []domain.Alert {
	var out []domain.Alert

	builtin, err := d.ruleStore.ListBuiltinRules(ctx, true)
	if err != nil {
		slog.Error("failed to load builtin rules", "error", err)
	}
	for _, rule := range builtin {
		if alert := d.applyBuiltin(rule, &dev, kind, portsChanged); alert != nil {
			d.deliver(ctx, *alert, rule.NotifyDesktop, "")
			out = append(out, *alert)
		}
	}

	custom, err := d.ruleStore.ListRules(ctx, true)
	if err != nil {
		slog.Error("failed to load custom rules", "error", err)
	}
	for i := range custom {
		if alert := d.applyCustom(&custom[i], &dev); alert != nil {
			d.deliver(ctx, *alert, custom[i].NotifyDesktop, custom[i].WebhookURL)
			out = append(out, *alert)
		}
	}

	return out
}

// applyBuiltin runs the fixed mapping from change kind to builtin rule type.
// Note the deliberate asymmetry: the untrusted_device rule emits an
// unknown_device event.
func (d *Dispatcher) applyBuiltin(rule domain.BuiltinRule, dev *domain.Device, kind domain.ChangeKind, portsChanged bool) *domain.Alert {
	name := dev.DisplayName()
	ip := dev.CurrentIP
	if ip == "" {
		ip = "unknown IP"
	}

	var (
		event   domain.AlertEventType
		message string
	)

	switch rule.RuleType {
	case domain.RuleNewDevice:
		if kind != domain.ChangeNew {
			return nil
		}
		event = domain.EventNewDevice
		message = fmt.Sprintf("New device discovered: %s (%s)", name, ip)
	case domain.RuleDeviceDeparted:
		if kind != domain.ChangeDeparted {
			return nil
		}
		event = domain.EventDeviceDeparted
		message = fmt.Sprintf("Device departed: %s", name)
	case domain.RulePortChanged:
		if !portsChanged {
			return nil
		}
		event = domain.EventPortChanged
		message = fmt.Sprintf("Open ports changed on %s (%s)", name, ip)
	case domain.RuleUntrustedDevice:
		if kind != domain.ChangeNew || dev.IsTrusted {
			return nil
		}
		event = domain.EventUnknownDevice
		message = fmt.Sprintf("Untrusted device on network: %s (%s)", name, ip)
	default:
		slog.Warn("skipping builtin rule of unknown type", "ruleType", rule.RuleType)
		return nil
	}

	alert, err := domain.NewAlert(event, dev.ID, message, rule.Severity)
	if err != nil {
		slog.Error("builtin rule carries invalid severity", "rule", rule.ID, "error", err)
		return nil
	}
	return alert
}

// applyCustom evaluates one user-authored rule in isolation: a panic inside
// the evaluator must not abort the remaining rules.
func (d *Dispatcher) applyCustom(rule *domain.CustomAlertRule, dev *domain.Device) (alert *domain.Alert) {
	defer func() {
		if r := recover(); r != nil {
			ruleEvalFailures.Inc()
			slog.Error("custom rule evaluation panicked", "rule", rule.ID, "panic", r)
			alert = nil
		}
	}()

	if !rules.Evaluate(&rule.Conditions, dev, 0) {
		return nil
	}

	message := fmt.Sprintf("Rule %q matched device %s", rule.Name, dev.DisplayName())
	alert, err := domain.NewAlert(domain.EventCustomRule, dev.ID, message, rule.Severity)
	if err != nil {
		ruleEvalFailures.Inc()
		slog.Error("custom rule carries invalid severity", "rule", rule.ID, "error", err)
		return nil
	}
	return alert
}

// deliver records the alert and fires its side effects, best-effort.
func (d *Dispatcher) deliver(ctx context.Context, alert domain.Alert, desktop bool, webhookURL string) {
	alertsGenerated.WithLabelValues(string(alert.EventType)).Inc()

	if err := d.alertStore.RecordAlert(ctx, alert); err != nil {
		slog.Error("failed to record alert", "alert", alert.ID, "error", err)
	}

	if d.sink == nil {
		return
	}
	if desktop {
		d.sink.NotifyDesktop(alert)
	}
	if webhookURL != "" {
		if err := d.sink.PostWebhook(ctx, webhookURL, alert); err != nil {
			slog.Warn("webhook delivery failed", "url", webhookURL, "error", err)
		}
	}
}

// Ensure interface compliance
var _ ports.AlertDispatcher = (*Dispatcher)(nil)
