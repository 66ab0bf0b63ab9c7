// internal/rules/normalize.go
package rules

/*
 * Rule token normalization.
 *
 * Every surface syntax a rules declaration can use (pipe-delimited strings,
 * fragment lists, builder values) reduces to the same canonical
 * "name[:params]" token form here before interpretation. Keeping the
 * grammar in one place prevents drift between the checks that classify
 * tokens (required detection, format inference, conditional details).
 *
 * Key functions:
 *   - ParseToken: one raw fragment to a RuleToken
 *   - SplitRuleString: pipe-delimited string to tokens
 *   - SpecTokens: one field's rule spec value (any) to tokens
 *   - NormalizeRules: raw rules map from a reflective invocation to a
 *     FieldRuleSet
 *
 * Failure policy: unrecognized spec values are skipped, never raised.
 * A field with an unsupported spec keeps an empty token list so its
 * presence survives into merged output.
 */

import (
	"fmt"
	"strings"

	"github.com/solatis/formtrace/internal/types"
	"github.com/solatis/formtrace/validate/rule"
)

// ParseToken parses one raw rule fragment into canonical token form.
// The first colon separates name from params; everything after it is
// opaque parameter text.
func ParseToken(raw string) types.RuleToken {
	raw = strings.TrimSpace(raw)
	tok := types.RuleToken{Raw: raw, Name: raw}
	if i := strings.Index(raw, ":"); i >= 0 {
		tok.Name = raw[:i]
		tok.Params = raw[i+1:]
	}
	return tok
}

// SplitRuleString splits a pipe-delimited rule string into tokens. Empty
// fragments are dropped. Pipes inside parameter text are not escaped; a
// regex rule containing pipes must be declared in list form, matching the
// validation runtime's own parsing.
func SplitRuleString(s string) []types.RuleToken {
	parts := strings.Split(s, "|")
	tokens := make([]types.RuleToken, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		tokens = append(tokens, ParseToken(part))
	}
	return tokens
}

// EnumToken builds the structured token for an enum type reference.
func EnumToken(class string) types.RuleToken {
	return types.RuleToken{
		Raw:    "enum:" + class,
		Name:   "enum",
		Params: class,
		Enum:   &types.EnumReference{Class: class},
	}
}

// SpecTokens normalizes one field's rule spec value. Strings split on
// pipes, list entries each carry exactly one rule (so regex parameters
// may contain pipes), builder values canonicalize through their String
// form, and enum references become structured tokens. Unrecognized
// values yield no tokens.
func SpecTokens(spec any) []types.RuleToken {
	switch v := spec.(type) {
	case nil:
		return nil
	case string:
		return SplitRuleString(v)
	case []string:
		var tokens []types.RuleToken
		for _, s := range v {
			if strings.TrimSpace(s) == "" {
				continue
			}
			tokens = append(tokens, ParseToken(s))
		}
		return tokens
	case []any:
		var tokens []types.RuleToken
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				if strings.TrimSpace(s) == "" {
					continue
				}
				tokens = append(tokens, ParseToken(s))
				continue
			}
			tokens = append(tokens, SpecTokens(entry)...)
		}
		return tokens
	case types.RuleToken:
		return []types.RuleToken{v}
	case rule.EnumRef:
		return []types.RuleToken{EnumToken(v.Class)}
	case fmt.Stringer:
		return SplitRuleString(v.String())
	}
	return nil
}

// NormalizeRules converts a raw rules map, typically obtained by invoking
// a rules function reflectively, into a FieldRuleSet. Empty field paths
// are dropped (rule set keys are never empty).
func NormalizeRules(raw map[string]any) types.FieldRuleSet {
	set := make(types.FieldRuleSet, len(raw))
	for field, spec := range raw {
		if field == "" {
			continue
		}
		set[field] = SpecTokens(spec)
	}
	return set
}
