// internal/rules/extract_test.go
package rules

import (
	"reflect"
	"testing"

	"github.com/solatis/formtrace/internal/astwalk"
	"github.com/solatis/formtrace/internal/types"
)

// extractBody parses a source fragment, finds the first Rules method,
// and runs flat extraction over its body.
func extractBody(t *testing.T, src string) (types.FieldRuleSet, *types.Collector) {
	t.Helper()
	diag := types.NewCollector()
	acc := astwalk.NewAccessor(diag)
	file := acc.ParseSource(src, "extract_test")
	if file == nil {
		t.Fatalf("ParseSource() = nil: %v", diag.Entries())
	}
	method := astwalk.FindMethod(file, "", "Rules")
	if method == nil {
		t.Fatalf("no Rules method in source")
	}
	return NewExtractor(diag).Extract(method.Body), diag
}

func TestExtract_DirectMapLiteral(t *testing.T) {
	set, diag := extractBody(t, `package requests

import "github.com/solatis/formtrace/validate"

type Req struct{}

func (r *Req) Rules() validate.Rules {
	return validate.Rules{
		"name":  "required|string|max:255",
		"email": "required|email",
	}
}
`)
	if len(set) != 2 {
		t.Fatalf("len(set) = %d, want 2", len(set))
	}
	if got := set.RawTokens("name"); !reflect.DeepEqual(got, []string{"required", "string", "max:255"}) {
		t.Errorf("name = %v", got)
	}
	if got := set.RawTokens("email"); !reflect.DeepEqual(got, []string{"required", "email"}) {
		t.Errorf("email = %v", got)
	}
	if diag.Count(types.SeverityError) != 0 {
		t.Errorf("errors = %d, want 0", diag.Count(types.SeverityError))
	}
}

func TestExtract_VariableAssignedThenReturned(t *testing.T) {
	set, _ := extractBody(t, `package requests

import "github.com/solatis/formtrace/validate"

type Req struct{}

func (r *Req) Rules() validate.Rules {
	rules := validate.Rules{
		"title": "required|string",
	}
	return rules
}
`)
	if got := set.RawTokens("title"); !reflect.DeepEqual(got, []string{"required", "string"}) {
		t.Errorf("title = %v", got)
	}
}

// When a variable is assigned more than once, the last assignment in
// source order wins.
func TestExtract_LastAssignmentWins(t *testing.T) {
	set, _ := extractBody(t, `package requests

import "github.com/solatis/formtrace/validate"

type Req struct{}

func (r *Req) Rules() validate.Rules {
	rules := validate.Rules{"title": "required"}
	rules = validate.Rules{"title": "required|string|max:100"}
	return rules
}
`)
	if got := set.RawTokens("title"); !reflect.DeepEqual(got, []string{"required", "string", "max:100"}) {
		t.Errorf("title = %v, want last assignment", got)
	}
}

func TestExtract_MergeFlattensLeftToRight(t *testing.T) {
	set, _ := extractBody(t, `package requests

import "github.com/solatis/formtrace/validate"

type Req struct{}

func (r *Req) Rules() validate.Rules {
	base := validate.Rules{
		"name":  "required|string",
		"email": "required|email",
	}
	return validate.Merge(base, validate.Rules{
		"email": "sometimes|email",
		"phone": "nullable|string",
	})
}
`)
	if len(set) != 3 {
		t.Fatalf("len(set) = %d, want 3", len(set))
	}
	// Later arguments overwrite earlier keys.
	if got := set.RawTokens("email"); !reflect.DeepEqual(got, []string{"sometimes", "email"}) {
		t.Errorf("email = %v, want later entry", got)
	}
	if got := set.RawTokens("name"); !reflect.DeepEqual(got, []string{"required", "string"}) {
		t.Errorf("name = %v", got)
	}
}

func TestExtract_MergeSkipsUnresolvableArguments(t *testing.T) {
	set, _ := extractBody(t, `package requests

import "github.com/solatis/formtrace/validate"

type Req struct{}

func (r *Req) Rules() validate.Rules {
	return validate.Merge(r.external(), validate.Rules{"kept": "required"})
}

func (r *Req) external() validate.Rules { return nil }
`)
	if got := set.RawTokens("kept"); !reflect.DeepEqual(got, []string{"required"}) {
		t.Errorf("kept = %v, want surviving entry", got)
	}
	if len(set) != 1 {
		t.Errorf("len(set) = %d, want 1", len(set))
	}
}

func TestExtract_RuleListAndBuilders(t *testing.T) {
	set, _ := extractBody(t, `package requests

import (
	"github.com/solatis/formtrace/validate"
	"github.com/solatis/formtrace/validate/rule"
)

type Req struct{}

func (r *Req) Rules() validate.Rules {
	return validate.Rules{
		"status":   []any{"required", rule.In("active", "archived")},
		"email":    []any{"required", rule.Unique("users", "email").Ignore(7)},
		"owner_id": []any{rule.Exists("users", "id").Where("active", true)},
		"company":  rule.RequiredIf("type", "business"),
	}
}
`)
	if got := set.RawTokens("status"); !reflect.DeepEqual(got, []string{"required", "in:active,archived"}) {
		t.Errorf("status = %v", got)
	}
	// Ignore and Where affect runtime validation only; the canonical
	// token drops them.
	if got := set.RawTokens("email"); !reflect.DeepEqual(got, []string{"required", "unique:users:email"}) {
		t.Errorf("email = %v", got)
	}
	if got := set.RawTokens("owner_id"); !reflect.DeepEqual(got, []string{"exists:users:id"}) {
		t.Errorf("owner_id = %v", got)
	}
	if got := set.RawTokens("company"); !reflect.DeepEqual(got, []string{"required_if:type:business"}) {
		t.Errorf("company = %v", got)
	}
}

func TestExtract_EnumBuilders(t *testing.T) {
	set, _ := extractBody(t, `package requests

import (
	"github.com/solatis/formtrace/validate"
	"github.com/solatis/formtrace/validate/rule"

	m "example.com/app/models"
)

type Req struct{}

func (r *Req) Rules() validate.Rules {
	return validate.Rules{
		"status":   []any{"required", rule.EnumOf[m.Status]()},
		"priority": []any{rule.NewEnum("Priority")},
	}
}
`)
	status := set["status"]
	if len(status) != 2 {
		t.Fatalf("len(status) = %d, want 2", len(status))
	}
	if status[1].Enum == nil || status[1].Enum.Class != "m.Status" {
		t.Errorf("status enum = %+v, want m.Status reference", status[1].Enum)
	}
	priority := set["priority"]
	if len(priority) != 1 || priority[0].Enum == nil || priority[0].Enum.Class != "Priority" {
		t.Errorf("priority = %+v, want Priority enum reference", priority)
	}
}

func TestExtract_FilePasswordDimensionBuilders(t *testing.T) {
	set, _ := extractBody(t, `package requests

import (
	"github.com/solatis/formtrace/validate"
	"github.com/solatis/formtrace/validate/rule"
)

type Req struct{}

func (r *Req) Rules() validate.Rules {
	return validate.Rules{
		"avatar":   []any{"required", rule.Image().Mimes("jpeg", "png").Max(1024)},
		"password": []any{"required", rule.Password().Min(8).Symbols(), "confirmed"},
		"banner":   []any{rule.File().Dimensions(rule.Dimensions().MinWidth(100).Ratio("3/2"))},
	}
}
`)
	wantAvatar := []string{"required", "file", "image", "max:1024", "mimes:jpeg,png"}
	if got := set.RawTokens("avatar"); !reflect.DeepEqual(got, wantAvatar) {
		t.Errorf("avatar = %v, want %v", got, wantAvatar)
	}
	wantPassword := []string{"required", "Password::min=8,symbols", "confirmed"}
	if got := set.RawTokens("password"); !reflect.DeepEqual(got, wantPassword) {
		t.Errorf("password = %v, want %v", got, wantPassword)
	}
	wantBanner := []string{"file", "dimensions:min_width=100,ratio=3/2"}
	if got := set.RawTokens("banner"); !reflect.DeepEqual(got, wantBanner) {
		t.Errorf("banner = %v, want %v", got, wantBanner)
	}
}

func TestExtract_StringConcatenation(t *testing.T) {
	set, _ := extractBody(t, `package requests

import "github.com/solatis/formtrace/validate"

type Req struct{}

func (r *Req) Rules() validate.Rules {
	return validate.Rules{
		"folded":    "required|" + "max:" + "10",
		"preserved": "required|max:" + r.limit(),
	}
}

func (r *Req) limit() string { return "10" }
`)
	if got := set.RawTokens("folded"); !reflect.DeepEqual(got, []string{"required", "max:10"}) {
		t.Errorf("folded = %v, want literal fold", got)
	}
	// Concatenation with a non-literal operand keeps the source text as
	// one opaque token.
	preserved := set["preserved"]
	if len(preserved) != 1 {
		t.Fatalf("len(preserved) = %d, want 1", len(preserved))
	}
	if preserved[0].Raw != `"required|max:" + r.limit()` {
		t.Errorf("preserved = %q, want source text", preserved[0].Raw)
	}
}

// Only the first returning case of a switch contributes.
func TestExtract_SwitchFirstCaseWins(t *testing.T) {
	set, _ := extractBody(t, `package requests

import "github.com/solatis/formtrace/validate"

type Req struct {
	Mode string
}

func (r *Req) Rules() validate.Rules {
	switch r.Mode {
	case "create":
		return validate.Rules{"name": "required|string"}
	case "update":
		return validate.Rules{"name": "sometimes|string"}
	default:
		return validate.Rules{}
	}
}
`)
	if got := set.RawTokens("name"); !reflect.DeepEqual(got, []string{"required", "string"}) {
		t.Errorf("name = %v, want first case only", got)
	}
}

func TestExtract_ImmediateFunctionLiteralUnsupported(t *testing.T) {
	set, diag := extractBody(t, `package requests

import "github.com/solatis/formtrace/validate"

type Req struct {
	Strict bool
}

func (r *Req) Rules() validate.Rules {
	return func() validate.Rules {
		if r.Strict {
			return validate.Rules{"name": "required"}
		}
		return validate.Rules{"name": "sometimes"}
	}()
}
`)
	if len(set) != 0 {
		t.Errorf("len(set) = %d, want 0 for unsupported shape", len(set))
	}
	entries := diag.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].ErrorType() != types.ErrTypeUnsupportedReturn {
		t.Errorf("error_type = %v, want %v", entries[0].ErrorType(), types.ErrTypeUnsupportedReturn)
	}
	if entries[0].Severity != types.SeverityWarning {
		t.Errorf("severity = %v, want warning", entries[0].Severity)
	}
}

// A literal return outranks variable and merge returns when a body mixes
// shapes.
func TestExtract_PriorityLiteralOverVariable(t *testing.T) {
	set, _ := extractBody(t, `package requests

import "github.com/solatis/formtrace/validate"

type Req struct {
	Legacy bool
}

func (r *Req) Rules() validate.Rules {
	old := validate.Rules{"name": "nullable"}
	if r.Legacy {
		return old
	}
	return validate.Rules{"name": "required"}
}
`)
	if got := set.RawTokens("name"); !reflect.DeepEqual(got, []string{"required"}) {
		t.Errorf("name = %v, want literal return to win", got)
	}
}

func TestExtract_NilBodyAndEmptyReturn(t *testing.T) {
	diag := types.NewCollector()
	if set := NewExtractor(diag).Extract(nil); len(set) != 0 {
		t.Errorf("Extract(nil) = %v, want empty", set)
	}

	set, _ := extractBody(t, `package requests

import "github.com/solatis/formtrace/validate"

type Req struct{}

func (r *Req) Rules() validate.Rules {
	return nil
}
`)
	if len(set) != 0 {
		t.Errorf("len(set) = %d, want 0 for nil return", len(set))
	}
}

func TestExtract_SkipsNonStringKeysAndEmptyFields(t *testing.T) {
	set, _ := extractBody(t, `package requests

import "github.com/solatis/formtrace/validate"

type Req struct{}

func (r *Req) Rules() validate.Rules {
	return validate.Rules{
		"name": "required",
		"":     "dropped",
	}
}
`)
	if len(set) != 1 {
		t.Errorf("len(set) = %d, want 1", len(set))
	}
	if _, ok := set[""]; ok {
		t.Errorf("empty field key survived extraction")
	}
}
