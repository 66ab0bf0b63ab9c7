// internal/rules/interpret.go
package rules

/*
 * Rule interpretation.
 *
 * Token-level predicates shared by extraction and synthesis:
 * requiredness, conditional rule families, and string format inference.
 *
 * Requiredness is strict: only the bare "required" token marks a field
 * required. The required_* family marks it conditionally required, and
 * nullable/sometimes never do.
 *
 * Format inference checks rule names in a fixed precedence order and
 * stops at the first match. The password rule is matched on the
 * "Password::" marker at the start of the token (an optional qualifier
 * prefix may precede it), never on a mere substring, so parameter text
 * cannot spoof it. The date family resolves last; date_format layouts
 * with a time component map to date-time, all others to date.
 */

import (
	"regexp"
	"strings"

	"github.com/solatis/formtrace/internal/types"
)

// conditionalRequiredNames are the rule names that make a field
// conditionally required.
var conditionalRequiredNames = map[string]bool{
	"required_if":          true,
	"required_unless":      true,
	"required_with":        true,
	"required_with_all":    true,
	"required_without":     true,
	"required_without_all": true,
}

// conditionalDetailPattern matches the full conditional family carried
// into parameter annotations.
var conditionalDetailPattern = regexp.MustCompile(`^(required|prohibited|exclude)_(if|unless|with_all|without_all|with|without)$`)

// IsRequired reports whether a token list contains the bare required
// rule. Conditional variants do not count.
func IsRequired(tokens []types.RuleToken) bool {
	for _, t := range tokens {
		if t.Name == "required" {
			return true
		}
	}
	return false
}

// HasConditionalRequired reports whether any required_* conditional rule
// is present.
func HasConditionalRequired(tokens []types.RuleToken) bool {
	for _, t := range tokens {
		if conditionalRequiredNames[t.Name] {
			return true
		}
	}
	return false
}

// IsRequiredInAnyBranch reports whether a field carries the bare
// required rule in at least one branch.
func IsRequiredInAnyBranch(field string, branches []types.RuleSetBranch) bool {
	for _, branch := range branches {
		if IsRequired(branch.Rules[field]) {
			return true
		}
	}
	return false
}

// HasExclude reports whether the bare exclude rule is present. The
// conditional exclude_* variants do not count: a conditionally excluded
// field still appears in the schema.
func HasExclude(tokens []types.RuleToken) bool {
	for _, t := range tokens {
		if t.Name == "exclude" {
			return true
		}
	}
	return false
}

// HasRule reports whether any token carries the given rule name.
func HasRule(tokens []types.RuleToken, name string) bool {
	for _, t := range tokens {
		if t.Name == name {
			return true
		}
	}
	return false
}

// FindRule yields the first token with the given rule name.
func FindRule(tokens []types.RuleToken, name string) (types.RuleToken, bool) {
	for _, t := range tokens {
		if t.Name == name {
			return t, true
		}
	}
	return types.RuleToken{}, false
}

// ConditionalDetails extracts the conditional rule family annotations
// from a token list, preserving token order.
func ConditionalDetails(tokens []types.RuleToken) []types.ConditionalRuleDetail {
	var details []types.ConditionalRuleDetail
	for _, t := range tokens {
		if !conditionalDetailPattern.MatchString(t.Name) {
			continue
		}
		details = append(details, types.ConditionalRuleDetail{
			Type:       t.Name,
			Parameters: t.Params,
			FullRule:   t.Raw,
		})
	}
	return details
}

// formatRule maps a rule name to the schema format it implies.
type formatRule struct {
	rule   string
	format string
}

// formatPrecedence is the format resolution order. First match wins and
// no further tokens are inspected; the order is part of the contract.
var formatPrecedence = []formatRule{
	{"email", "email"},
	{"url", "uri"},
	{"active_url", "uri"},
	{"uuid", "uuid"},
	{"ulid", "ulid"},
	{"ip", "ipv4"},
	{"ipv4", "ipv4"},
	{"ipv6", "ipv6"},
	{"mac_address", "mac"},
}

// InferFormat resolves the string format implied by a token list, or ""
// when none applies. Password rules outrank everything, the date family
// resolves last.
func InferFormat(tokens []types.RuleToken) string {
	for _, t := range tokens {
		if isPasswordToken(t.Raw) {
			return "password"
		}
	}
	for _, fr := range formatPrecedence {
		if HasRule(tokens, fr.rule) {
			return fr.format
		}
	}
	return InferDateFormat(tokens)
}

// isPasswordToken matches the password rule marker at the start of a
// token, allowing a qualifier prefix such as "rule.Password::min=8" but
// rejecting parameter-text lookalikes such as "in:Password::x".
func isPasswordToken(raw string) bool {
	i := strings.Index(raw, "Password::")
	if i < 0 {
		return false
	}
	if i == 0 {
		return true
	}
	prefix := raw[:i]
	if strings.Contains(prefix, ":") {
		return false
	}
	switch prefix[len(prefix)-1] {
	case '.', '/', '\\':
		return true
	}
	return false
}

// InferDateFormat resolves the date family: bare date maps to "date"
// and date_format maps by whether its layout carries a time component.
func InferDateFormat(tokens []types.RuleToken) string {
	for _, t := range tokens {
		switch t.Name {
		case "date":
			if t.Params == "" {
				return "date"
			}
		case "date_format":
			if layoutHasTime(t.Params) {
				return "date-time"
			}
			return "date"
		}
	}
	return ""
}

// layoutHasTime reports whether a reference layout includes an hour,
// minute, second, or meridiem component.
func layoutHasTime(layout string) bool {
	for _, marker := range []string{"15", "03", "04", "05", "PM", "pm"} {
		if strings.Contains(layout, marker) {
			return true
		}
	}
	return false
}
