// internal/rules/interpret_test.go
package rules

import (
	"reflect"
	"testing"

	"github.com/solatis/formtrace/internal/types"
)

// toks builds a token list from a pipe-joined rule string.
func toks(rules string) []types.RuleToken {
	return SplitRuleString(rules)
}

func TestIsRequired(t *testing.T) {
	tests := []struct {
		name  string
		rules string
		want  bool
	}{
		{name: "bare required", rules: "required|string", want: true},
		{name: "conditional only", rules: "required_if:type,business|string", want: false},
		{name: "sometimes", rules: "sometimes|string", want: false},
		{name: "nullable", rules: "nullable|email", want: false},
		{name: "empty", rules: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRequired(toks(tt.rules)); got != tt.want {
				t.Errorf("IsRequired(%q) = %v, want %v", tt.rules, got, tt.want)
			}
		})
	}
}

func TestHasConditionalRequired(t *testing.T) {
	tests := []struct {
		name  string
		rules string
		want  bool
	}{
		{name: "required_if", rules: "required_if:type,business", want: true},
		{name: "required_unless", rules: "required_unless:role,admin", want: true},
		{name: "required_with", rules: "required_with:password", want: true},
		{name: "required_with_all", rules: "required_with_all:a,b", want: true},
		{name: "required_without", rules: "required_without:phone", want: true},
		{name: "required_without_all", rules: "required_without_all:a,b", want: true},
		{name: "bare required does not count", rules: "required|string", want: false},
		{name: "prohibited_if does not count", rules: "prohibited_if:type,personal", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasConditionalRequired(toks(tt.rules)); got != tt.want {
				t.Errorf("HasConditionalRequired(%q) = %v, want %v", tt.rules, got, tt.want)
			}
		})
	}
}

func TestIsRequiredInAnyBranch(t *testing.T) {
	branches := []types.RuleSetBranch{
		{Rules: types.FieldRuleSet{"name": toks("sometimes|string")}},
		{Rules: types.FieldRuleSet{"name": toks("required|string"), "email": toks("email")}},
	}

	if !IsRequiredInAnyBranch("name", branches) {
		t.Errorf("IsRequiredInAnyBranch(name) = false, want true")
	}
	if IsRequiredInAnyBranch("email", branches) {
		t.Errorf("IsRequiredInAnyBranch(email) = true, want false")
	}
	if IsRequiredInAnyBranch("missing", branches) {
		t.Errorf("IsRequiredInAnyBranch(missing) = true, want false")
	}
}

func TestHasExclude(t *testing.T) {
	if !HasExclude(toks("exclude")) {
		t.Errorf("HasExclude(exclude) = false, want true")
	}
	// Conditionally excluded fields stay in the schema.
	if HasExclude(toks("exclude_if:env,prod|string")) {
		t.Errorf("HasExclude(exclude_if) = true, want false")
	}
	if HasExclude(toks("exclude_unless:debug,1")) {
		t.Errorf("HasExclude(exclude_unless) = true, want false")
	}
}

func TestFindRule_FirstMatch(t *testing.T) {
	tokens := toks("string|max:10|max:20")

	tok, ok := FindRule(tokens, "max")
	if !ok {
		t.Fatalf("FindRule(max) not found")
	}
	if tok.Params != "10" {
		t.Errorf("Params = %q, want first occurrence 10", tok.Params)
	}

	if _, ok := FindRule(tokens, "min"); ok {
		t.Errorf("FindRule(min) found, want absent")
	}
	if !HasRule(tokens, "string") {
		t.Errorf("HasRule(string) = false, want true")
	}
}

func TestConditionalDetails(t *testing.T) {
	tokens := toks("string|required_if:type,business|max:255|prohibited_unless:mode,draft|exclude_without:flag")

	details := ConditionalDetails(tokens)
	if len(details) != 3 {
		t.Fatalf("len(details) = %d, want 3", len(details))
	}

	want := []types.ConditionalRuleDetail{
		{Type: "required_if", Parameters: "type,business", FullRule: "required_if:type,business"},
		{Type: "prohibited_unless", Parameters: "mode,draft", FullRule: "prohibited_unless:mode,draft"},
		{Type: "exclude_without", Parameters: "flag", FullRule: "exclude_without:flag"},
	}
	if !reflect.DeepEqual(details, want) {
		t.Errorf("details = %+v, want %+v", details, want)
	}
}

func TestConditionalDetails_ParamSeparators(t *testing.T) {
	// String rules separate with commas, builder canonicals with colons.
	comma := types.ConditionalRuleDetail{Parameters: "type,business"}
	colon := types.ConditionalRuleDetail{Parameters: "type:business"}

	if got := comma.DetailParams(); !reflect.DeepEqual(got, []string{"type", "business"}) {
		t.Errorf("comma params = %v", got)
	}
	if got := colon.DetailParams(); !reflect.DeepEqual(got, []string{"type", "business"}) {
		t.Errorf("colon params = %v", got)
	}
}

func TestInferFormat_Precedence(t *testing.T) {
	tests := []struct {
		name  string
		rules string
		want  string
	}{
		{name: "email", rules: "required|email", want: "email"},
		{name: "email outranks uuid regardless of order", rules: "uuid|email", want: "email"},
		{name: "url", rules: "url", want: "uri"},
		{name: "active_url", rules: "active_url", want: "uri"},
		{name: "uuid", rules: "required|uuid", want: "uuid"},
		{name: "ulid", rules: "ulid", want: "ulid"},
		{name: "ip", rules: "ip", want: "ipv4"},
		{name: "ipv4", rules: "ipv4", want: "ipv4"},
		{name: "ipv6", rules: "ipv6", want: "ipv6"},
		{name: "mac", rules: "mac_address", want: "mac"},
		{name: "password outranks email", rules: "email|Password::min=8", want: "password"},
		{name: "date resolves last", rules: "email|date", want: "email"},
		{name: "bare date", rules: "required|date", want: "date"},
		{name: "none", rules: "required|string|max:20", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferFormat(toks(tt.rules)); got != tt.want {
				t.Errorf("InferFormat(%q) = %q, want %q", tt.rules, got, tt.want)
			}
		})
	}
}

func TestIsPasswordToken(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{raw: "Password::min=8,symbols", want: true},
		{raw: "Password::default", want: true},
		{raw: "rule.Password::min=8", want: true},
		{raw: "vendor/rules.Password::default", want: true},
		{raw: `pkg\rules.Password::default`, want: true},
		{raw: "xPassword::min=8", want: false},
		{raw: "in:Password::x", want: false},
		{raw: "required_if:field,Password::y", want: false},
		{raw: "password", want: false},
		{raw: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := isPasswordToken(tt.raw); got != tt.want {
				t.Errorf("isPasswordToken(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestInferDateFormat(t *testing.T) {
	tests := []struct {
		name  string
		rules string
		want  string
	}{
		{name: "bare date", rules: "date", want: "date"},
		{name: "date-only layout", rules: "date_format:2006-01-02", want: "date"},
		{name: "slashed layout", rules: "date_format:01/02/2006", want: "date"},
		{name: "named month layout", rules: "date_format:Jan 2, 2006", want: "date"},
		{name: "hour marker", rules: "date_format:2006-01-02 15:04", want: "date-time"},
		{name: "seconds marker", rules: "date_format:15:04:05", want: "date-time"},
		{name: "meridiem marker", rules: "date_format:3:04 PM", want: "date-time"},
		{name: "no date rule", rules: "required|string", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferDateFormat(toks(tt.rules)); got != tt.want {
				t.Errorf("InferDateFormat(%q) = %q, want %q", tt.rules, got, tt.want)
			}
		})
	}
}
