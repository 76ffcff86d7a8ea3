package rules

import (
	"net"
	"strings"

	"github.com/mkrull/lanscout/internal/core/domain"
)

// ValidateRule is the write-boundary check applied when rules are created or
// updated. It rejects what evaluation would only tolerate: structural
// problems, depth over the bound, and address patterns that can never match.
// Stored trees that slip past this (older data) are still handled defensively
// by Evaluate.
func ValidateRule(r *domain.CustomAlertRule) error {
	if err := r.Validate(); err != nil {
		return domain.ValidationError(err.Error())
	}
	if err := validatePatterns(&r.Conditions); err != nil {
		return err
	}
	return nil
}

// ValidateConditions checks a condition tree alone (used by partial updates).
func ValidateConditions(g *domain.ConditionGroup) error {
	if err := g.Validate(); err != nil {
		return domain.ValidationError(err.Error())
	}
	return validatePatterns(g)
}

func validatePatterns(g *domain.ConditionGroup) error {
	if g.IsLeaf() {
		if g.Condition == nil {
			return nil
		}
		return validateLeafPattern(g.Condition)
	}
	for i := range g.Children {
		if err := validatePatterns(&g.Children[i]); err != nil {
			return err
		}
	}
	if g.Child != nil {
		return validatePatterns(g.Child)
	}
	return nil
}

func validateLeafPattern(c *domain.Condition) error {
	switch c.Type {
	case domain.CondIPMatches:
		if strings.Contains(c.Pattern, "/") {
			if _, _, err := net.ParseCIDR(c.Pattern); err != nil {
				return domain.ValidationError("invalid CIDR pattern: " + c.Pattern)
			}
			return nil
		}
		if ip := net.ParseIP(c.Pattern); ip == nil || ip.To4() == nil {
			return domain.ValidationError("invalid IPv4 pattern: " + c.Pattern)
		}
	case domain.CondMACMatches:
		if !domain.IsValidMACPattern(c.Pattern) {
			return domain.ValidationError("invalid MAC pattern: " + c.Pattern)
		}
	}
	return nil
}
