// internal/types/rules.go
package types

/*
 * Domain types for rule extraction.
 *
 * Provides RuleToken, FieldRuleSet, Condition, and branch structures used by
 * internal/rules for extraction, path analysis, and synthesis. These types
 * are surface-syntax agnostic: pipe strings, rule lists, and builder values
 * all normalize to the same token form before interpretation.
 *
 * Key types:
 *   - RuleToken: One validation directive in canonical name[:params] form
 *   - FieldRuleSet: Field path to token list mapping
 *   - Condition: Classified boolean gate guarding a branch
 *   - RuleSetBranch: One reachable return path with its gating conditions
 *   - ConditionalRuleResult: All branches plus the field-wise merged union
 *
 * Dependencies: None (standard library only)
 */

import (
	"sort"
	"strings"
)

// RuleToken is one validation directive. Raw holds the canonical
// "name[:params]" form; Name and Params are its split parts. Enum is set
// for tokens carrying a structured enum type reference.
type RuleToken struct {
	Raw    string         `json:"raw"`
	Name   string         `json:"name"`
	Params string         `json:"params,omitempty"`
	Enum   *EnumReference `json:"enum,omitempty"`
}

// String returns the canonical token form.
func (t RuleToken) String() string {
	return t.Raw
}

// EnumReference is a structured enum type reference carried by a token
// before resolution against the package's enum declarations.
type EnumReference struct {
	Class string `json:"class"`
}

// FieldRuleSet maps a dotted/starred field path to its rule tokens.
// Keys are opaque field paths; "*" denotes each array element. Keys are
// never empty, and keys beginning with "_" are reserved (not user input).
type FieldRuleSet map[string][]RuleToken

// Fields returns the field paths in sorted order.
// Map iteration order is random; every consumer that emits or appends
// per-field output iterates through this for deterministic results.
func (s FieldRuleSet) Fields() []string {
	fields := make([]string, 0, len(s))
	for field := range s {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// RawTokens returns the canonical token strings for a field.
func (s FieldRuleSet) RawTokens(field string) []string {
	tokens := s[field]
	raw := make([]string, 0, len(tokens))
	for _, t := range tokens {
		raw = append(raw, t.Raw)
	}
	return raw
}

// ConditionType classifies the boolean gate guarding a branch.
type ConditionType string

// Condition classifications.
const (
	// ConditionHTTPMethod gates on the request verb, e.g. r.IsMethod("POST").
	ConditionHTTPMethod ConditionType = "http_method"

	// ConditionUserMethod gates on a role-style predicate chained off the
	// request's User(), e.g. r.User().IsAdmin().
	ConditionUserMethod ConditionType = "user_method"

	// ConditionCustom is any other boolean expression, retained as source
	// text for display and never evaluated.
	ConditionCustom ConditionType = "custom"
)

// Condition is a classified boolean gate. HTTP method conditions carry a
// normalized verb in Method; user-method conditions carry the predicate
// name in Method; custom conditions carry only the source expression.
// Expression is display text in all cases, never evaluated.
type Condition struct {
	Type       ConditionType `json:"type"`
	Method     string        `json:"method,omitempty"`
	Expression string        `json:"expression,omitempty"`
}

// Describe renders the condition for human-readable output.
func (c Condition) Describe() string {
	switch c.Type {
	case ConditionHTTPMethod:
		return "method is " + c.Method
	case ConditionUserMethod:
		if c.Expression != "" {
			return c.Expression
		}
		return "user." + c.Method
	default:
		return c.Expression
	}
}

// RuleSetBranch is one reachable return path through a rule method:
// the ordered conditions required to reach it (outer to inner), the rule
// set returned there, and the reachability probability. Probability is
// always 1/2^len(Conditions); a branch with no conditions is the default
// branch with probability 1.0. Immutable once produced.
type RuleSetBranch struct {
	Conditions  []Condition  `json:"conditions"`
	Rules       FieldRuleSet `json:"rules"`
	Probability float64      `json:"probability"`
}

// Mentions reports whether the branch's rule set contains the field.
func (b RuleSetBranch) Mentions(field string) bool {
	_, ok := b.Rules[field]
	return ok
}

// ConditionalRuleResult is the output of conditional path analysis:
// every discovered branch in source order, plus the field-wise union of all
// branch rule sets. MergedRules appends rather than deduplicates, so
// cross-path duplicates survive for downstream required-detection.
// Computed once per analyzed method per run; never cached inside the core.
type ConditionalRuleResult struct {
	Branches    []RuleSetBranch `json:"branches"`
	MergedRules FieldRuleSet    `json:"mergedRules"`
}

// ConditionalRuleDetail is one conditional directive extracted from a
// token, e.g. required_if:type,business. Parameters is the raw text after
// the first colon.
type ConditionalRuleDetail struct {
	Type       string `json:"type"`
	Parameters string `json:"parameters"`
	FullRule   string `json:"fullRule"`
}

// DetailParams splits conditional-rule parameters into their parts.
// Both separator styles occur: string rules use commas
// (required_if:type,business), builder canonical forms use colons
// (required_if:type:business).
func (d ConditionalRuleDetail) DetailParams() []string {
	if d.Parameters == "" {
		return nil
	}
	sep := ","
	if !strings.Contains(d.Parameters, ",") && strings.Contains(d.Parameters, ":") {
		sep = ":"
	}
	parts := strings.Split(d.Parameters, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ConditionalRule annotates a parameter with one conditional context.
// Branch-derived entries carry Conditions and Rules; token-derived entries
// (required_if and friends on an unconditional rule set) carry Detail.
type ConditionalRule struct {
	Conditions []Condition            `json:"conditions,omitempty"`
	Rules      []RuleToken            `json:"rules,omitempty"`
	Detail     *ConditionalRuleDetail `json:"detail,omitempty"`
}
