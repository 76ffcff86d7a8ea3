package rules

import (
	"log/slog"
	"strings"
	"time"

	"github.com/mkrull/lanscout/internal/core/domain"
)

// Evaluate walks a condition group against a device snapshot. It is a pure
// function of (group, device, depth): no side effects, same result on every
// call. Nodes deeper than domain.MaxConditionDepth fail closed to false so a
// malformed or adversarial stored tree cannot recurse unboundedly.
func Evaluate(group *domain.ConditionGroup, d *domain.Device, depth int) bool {
	if group == nil {
		return false
	}
	if depth > domain.MaxConditionDepth {
		slog.Warn("condition tree exceeds depth bound, failing closed",
			"depth", depth, "max", domain.MaxConditionDepth)
		return false
	}

	if group.IsLeaf() {
		if group.Condition == nil {
			return false
		}
		return evaluateCondition(group.Condition, d)
	}

	switch group.Operator {
	case domain.OpAnd:
		// Empty conjunction is vacuously true; short-circuit on first false.
		for i := range group.Children {
			if !Evaluate(&group.Children[i], d, depth+1) {
				return false
			}
		}
		return true
	case domain.OpOr:
		// Empty disjunction is false; short-circuit on first true.
		for i := range group.Children {
			if Evaluate(&group.Children[i], d, depth+1) {
				return true
			}
		}
		return false
	case domain.OpNot:
		if group.Child == nil {
			return false
		}
		return !Evaluate(group.Child, d, depth+1)
	}

	slog.Warn("unknown operator in condition tree, failing closed", "operator", group.Operator)
	return false
}

// evaluateCondition dispatches one leaf predicate. Absent optional fields
// never match.
func evaluateCondition(c *domain.Condition, d *domain.Device) bool {
	switch c.Type {
	case domain.CondIsOnline:
		return d.IsOnline
	case domain.CondIsTrusted:
		return d.IsTrusted
	case domain.CondIsGateway:
		return d.IsGateway
	case domain.CondIPMatches:
		if d.CurrentIP == "" {
			return false
		}
		return IPMatches(d.CurrentIP, c.Pattern)
	case domain.CondMACMatches:
		if d.MAC == "" {
			return false
		}
		return MACMatches(d.MAC, c.Pattern)
	case domain.CondVendorContains:
		return containsFold(d.Vendor, c.Text)
	case domain.CondHostnameContains:
		return containsFold(d.Hostname, c.Text)
	case domain.CondHasOpenPorts:
		return len(d.OpenPortNumbers()) > 0
	case domain.CondPortOpen:
		return d.HasOpenPort(c.Port)
	case domain.CondOSUnknown:
		return d.OSGuess == ""
	case domain.CondLowOSConfidence:
		return d.OSConfidence < c.Threshold
	case domain.CondHighLatency:
		return d.LatencyMs != nil && *d.LatencyMs >= c.Ms
	case domain.CondNotSeenSince:
		if d.LastSeen.IsZero() {
			return false
		}
		return time.Since(d.LastSeen) >= time.Duration(c.Minutes)*time.Minute
	case domain.CondIsNewDevice:
		if d.FirstSeen.IsZero() {
			return false
		}
		return time.Since(d.FirstSeen) < time.Duration(c.Minutes)*time.Minute
	case domain.CondCustomProperty:
		v, ok := d.CustomProps[c.Key]
		return ok && v == c.Value
	}

	slog.Warn("unknown condition type, failing closed", "type", c.Type)
	return false
}

func containsFold(haystack, needle string) bool {
	if haystack == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
