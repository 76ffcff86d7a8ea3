package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Domain Errors for the rule tree
var (
	ErrInvalidConditionType = errors.New("invalid condition type")
	ErrInvalidOperator      = errors.New("invalid logical operator")
	ErrDepthExceeded        = errors.New("condition tree exceeds maximum depth")
	ErrMissingNotChild      = errors.New("NOT operator requires exactly one child")
	ErrInvalidSeverity      = errors.New("invalid alert severity level")
)

// MaxConditionDepth bounds the rule tree (root = depth 0). Trees deeper than
// this are rejected on write and fail closed on evaluation.
const MaxConditionDepth = 5

// ConditionType identifies a leaf predicate over a device snapshot.
type ConditionType string

const (
	CondIsOnline         ConditionType = "is_online"
	CondIsTrusted        ConditionType = "is_trusted"
	CondIsGateway        ConditionType = "is_gateway"
	CondIPMatches        ConditionType = "ip_matches"
	CondMACMatches       ConditionType = "mac_matches"
	CondVendorContains   ConditionType = "vendor_contains"
	CondHostnameContains ConditionType = "hostname_contains"
	CondHasOpenPorts     ConditionType = "has_open_ports"
	CondPortOpen         ConditionType = "port_open"
	CondOSUnknown        ConditionType = "os_unknown"
	CondLowOSConfidence  ConditionType = "low_os_confidence"
	CondNotSeenSince     ConditionType = "not_seen_since"
	CondIsNewDevice      ConditionType = "is_new_device"
	CondHighLatency      ConditionType = "high_latency"
	CondCustomProperty   ConditionType = "custom_property"
)

// Logical operators for combining condition groups.
const (
	OpAnd = "AND"
	OpOr  = "OR"
	OpNot = "NOT"
)

// Condition is a leaf predicate. Only the fields required by Type are
// meaningful; MarshalJSON emits exactly those so stored rules round-trip.
type Condition struct {
	Type      ConditionType `json:"type"`
	Pattern   string        `json:"pattern,omitempty"`   // ip_matches, mac_matches
	Text      string        `json:"text,omitempty"`      // vendor_contains, hostname_contains
	Port      int           `json:"port,omitempty"`      // port_open
	Threshold float64       `json:"threshold,omitempty"` // low_os_confidence
	Ms        float64       `json:"ms,omitempty"`        // high_latency
	Minutes   int64         `json:"minutes,omitempty"`   // not_seen_since, is_new_device
	Key       string        `json:"key,omitempty"`       // custom_property
	Value     string        `json:"value,omitempty"`     // custom_property
}

// MarshalJSON emits only the fields the condition type carries.
func (c Condition) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{"type": c.Type}
	switch c.Type {
	case CondIPMatches, CondMACMatches:
		out["pattern"] = c.Pattern
	case CondVendorContains, CondHostnameContains:
		out["text"] = c.Text
	case CondPortOpen:
		out["port"] = c.Port
	case CondLowOSConfidence:
		out["threshold"] = c.Threshold
	case CondHighLatency:
		out["ms"] = c.Ms
	case CondNotSeenSince, CondIsNewDevice:
		out["minutes"] = c.Minutes
	case CondCustomProperty:
		out["key"] = c.Key
		out["value"] = c.Value
	}
	return json.Marshal(out)
}

// Validate checks the leaf carries a known type and its required fields.
func (c *Condition) Validate() error {
	switch c.Type {
	case CondIsOnline, CondIsTrusted, CondIsGateway, CondHasOpenPorts, CondOSUnknown:
		return nil
	case CondIPMatches, CondMACMatches:
		if strings.TrimSpace(c.Pattern) == "" {
			return fmt.Errorf("%s: pattern cannot be empty", c.Type)
		}
	case CondVendorContains, CondHostnameContains:
		if strings.TrimSpace(c.Text) == "" {
			return fmt.Errorf("%s: text cannot be empty", c.Type)
		}
	case CondPortOpen:
		if c.Port < 1 || c.Port > 65535 {
			return fmt.Errorf("port_open: port %d out of range", c.Port)
		}
	case CondLowOSConfidence:
		if c.Threshold < 0 || c.Threshold > 1 {
			return fmt.Errorf("low_os_confidence: threshold %v outside [0,1]", c.Threshold)
		}
	case CondHighLatency:
		if c.Ms < 0 {
			return fmt.Errorf("high_latency: threshold %v is negative", c.Ms)
		}
	case CondNotSeenSince, CondIsNewDevice:
		if c.Minutes <= 0 {
			return fmt.Errorf("%s: minutes must be positive", c.Type)
		}
	case CondCustomProperty:
		if strings.TrimSpace(c.Key) == "" {
			return errors.New("custom_property: key cannot be empty")
		}
	default:
		return ErrInvalidConditionType
	}
	return nil
}

// ConditionGroup is a node in the rule tree: either a single leaf condition or
// a logical combination of child groups. It is a value type assembled only
// top-down during decoding, so a stored tree can never contain a cycle.
type ConditionGroup struct {
	// Leaf, set when Operator is empty.
	Condition *Condition

	// Logic node.
	Operator string           // AND, OR, NOT
	Children []ConditionGroup // AND/OR operands
	Child    *ConditionGroup  // NOT operand
}

// conditionGroupWire mirrors the stored shape of a logic node.
type conditionGroupWire struct {
	Operator   string            `json:"operator"`
	Conditions []json.RawMessage `json:"conditions,omitempty"`
	Condition  json.RawMessage   `json:"condition,omitempty"`
}

// UnmarshalJSON decodes the untagged union: objects with an "operator" key are
// logic nodes, everything else is a leaf condition.
func (g *ConditionGroup) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	if _, ok := probe["operator"]; !ok {
		var cond Condition
		if err := json.Unmarshal(data, &cond); err != nil {
			return err
		}
		*g = ConditionGroup{Condition: &cond}
		return nil
	}

	var wire conditionGroupWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	node := ConditionGroup{Operator: wire.Operator}
	switch wire.Operator {
	case OpAnd, OpOr:
		node.Children = make([]ConditionGroup, 0, len(wire.Conditions))
		for _, raw := range wire.Conditions {
			var child ConditionGroup
			if err := json.Unmarshal(raw, &child); err != nil {
				return err
			}
			node.Children = append(node.Children, child)
		}
	case OpNot:
		if len(wire.Condition) > 0 {
			var child ConditionGroup
			if err := json.Unmarshal(wire.Condition, &child); err != nil {
				return err
			}
			node.Child = &child
		}
	default:
		return ErrInvalidOperator
	}

	*g = node
	return nil
}

// MarshalJSON re-emits the stored wire shape.
func (g ConditionGroup) MarshalJSON() ([]byte, error) {
	if g.Operator == "" {
		if g.Condition == nil {
			return nil, errors.New("condition group has neither operator nor condition")
		}
		return json.Marshal(g.Condition)
	}

	out := map[string]interface{}{"operator": g.Operator}
	switch g.Operator {
	case OpAnd, OpOr:
		children := g.Children
		if children == nil {
			children = []ConditionGroup{}
		}
		out["conditions"] = children
	case OpNot:
		if g.Child != nil {
			out["condition"] = g.Child
		}
	default:
		return nil, ErrInvalidOperator
	}
	return json.Marshal(out)
}

// IsLeaf reports whether the node is a single condition.
func (g *ConditionGroup) IsLeaf() bool {
	return g.Operator == ""
}

// Depth returns the maximum depth of the tree rooted at g (root = 0).
func (g *ConditionGroup) Depth() int {
	if g.IsLeaf() {
		return 0
	}
	max := 0
	for i := range g.Children {
		if d := g.Children[i].Depth() + 1; d > max {
			max = d
		}
	}
	if g.Child != nil {
		if d := g.Child.Depth() + 1; d > max {
			max = d
		}
	}
	return max
}

// Validate performs structural validation: known operators, leaf field
// checks, NOT arity and the depth bound.
func (g *ConditionGroup) Validate() error {
	if g.Depth() > MaxConditionDepth {
		return ErrDepthExceeded
	}
	return g.validateNode()
}

func (g *ConditionGroup) validateNode() error {
	if g.IsLeaf() {
		if g.Condition == nil {
			return ErrInvalidConditionType
		}
		return g.Condition.Validate()
	}

	switch g.Operator {
	case OpAnd, OpOr:
		for i := range g.Children {
			if err := g.Children[i].validateNode(); err != nil {
				return err
			}
		}
	case OpNot:
		if g.Child == nil {
			return ErrMissingNotChild
		}
		return g.Child.validateNode()
	default:
		return ErrInvalidOperator
	}
	return nil
}

// AlertSeverity represents the criticality of an alert.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// IsValidSeverity reports whether s is a known severity level.
func IsValidSeverity(s AlertSeverity) bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// CustomAlertRule is a user-authored rule with a condition tree and actions.
type CustomAlertRule struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	IsEnabled     bool           `json:"isEnabled"`
	Conditions    ConditionGroup `json:"conditions"`
	Severity      AlertSeverity  `json:"severity"`
	NotifyDesktop bool           `json:"notifyDesktop"`
	WebhookURL    string         `json:"webhookUrl,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Validate performs internal consistency checks on the rule.
func (r *CustomAlertRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("rule name cannot be empty")
	}
	if !IsValidSeverity(r.Severity) {
		return ErrInvalidSeverity
	}
	return r.Conditions.Validate()
}

// CustomRuleUpdate carries a partial update; nil fields are left unchanged.
type CustomRuleUpdate struct {
	Name          *string         `json:"name,omitempty"`
	Description   *string         `json:"description,omitempty"`
	IsEnabled     *bool           `json:"isEnabled,omitempty"`
	Conditions    *ConditionGroup `json:"conditions,omitempty"`
	Severity      *AlertSeverity  `json:"severity,omitempty"`
	NotifyDesktop *bool           `json:"notifyDesktop,omitempty"`
	WebhookURL    *string         `json:"webhookUrl,omitempty"`
}
