// internal/astwalk/accessor_test.go
package astwalk

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/solatis/formtrace/internal/types"
)

const requestSource = `package requests

import (
	"net/http"

	m "example.com/app/models"
	"github.com/solatis/formtrace/validate"
)

type StoreUserRequest struct {
	DB any
}

func (r *StoreUserRequest) Rules() validate.Rules {
	return validate.Rules{
		"name":  "required|string|max:255",
		"email": "required|email",
	}
}

func (r *StoreUserRequest) Attributes() map[string]string {
	return map[string]string{"email": "Email Address"}
}

type Profile struct {
	First, Last, Middle string
	Age                 int
}

var _ = http.MethodPost
var _ = m.Status("")
`

func TestParseSource_ValidFile(t *testing.T) {
	diag := types.NewCollector()
	acc := NewAccessor(diag)

	file := acc.ParseSource(requestSource, "requests.go")
	if file == nil {
		t.Fatalf("ParseSource() = nil, want file")
	}
	if file.Name.Name != "requests" {
		t.Errorf("package = %v, want requests", file.Name.Name)
	}
	if diag.Count(types.SeverityError) != 0 {
		t.Errorf("errors = %d, want 0", diag.Count(types.SeverityError))
	}
}

func TestParseSource_FragmentWithoutPackageClause(t *testing.T) {
	diag := types.NewCollector()
	acc := NewAccessor(diag)

	src := `func (r *StoreUserRequest) Rules() map[string]any {
	return map[string]any{"name": "required"}
}`
	file := acc.ParseSource(src, "fragment")
	if file == nil {
		t.Fatalf("ParseSource() = nil, want wrapped fragment")
	}
	if FindMethod(file, "StoreUserRequest", "Rules") == nil {
		t.Errorf("FindMethod() = nil, want method from wrapped fragment")
	}
}

func TestParseSource_EmptyInput(t *testing.T) {
	diag := types.NewCollector()
	acc := NewAccessor(diag)

	for _, src := range []string{"", "   \n\t  "} {
		file := acc.ParseSource(src, "empty")
		if file == nil {
			t.Fatalf("ParseSource(%q) = nil, want empty AST", src)
		}
		if len(file.Decls) != 0 {
			t.Errorf("ParseSource(%q) decls = %d, want 0", src, len(file.Decls))
		}
	}
	if diag.Count(types.SeverityError) != 0 {
		t.Errorf("errors = %d, want 0 for empty input", diag.Count(types.SeverityError))
	}
}

func TestParseSource_MalformedInput(t *testing.T) {
	diag := types.NewCollector()
	acc := NewAccessor(diag)

	file := acc.ParseSource("package x\n\nfunc {{{", "broken.go")
	if file != nil {
		t.Fatalf("ParseSource() = %v, want nil for malformed input", file)
	}
	entries := diag.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Severity != types.SeverityError {
		t.Errorf("severity = %v, want error", entries[0].Severity)
	}
	if entries[0].ErrorType() != types.ErrTypeParse {
		t.Errorf("error_type = %v, want %v", entries[0].ErrorType(), types.ErrTypeParse)
	}
}

func TestParseSource_OversizedInput(t *testing.T) {
	diag := types.NewCollector()
	acc := NewAccessor(diag)

	src := "package x\n//" + strings.Repeat("a", types.MaxSourceSize)
	if file := acc.ParseSource(src, "huge.go"); file != nil {
		t.Fatalf("ParseSource() = %v, want nil for oversized input", file)
	}
	if !diag.HasErrors() {
		t.Errorf("HasErrors() = false, want true")
	}
}

func TestParseFile_Missing(t *testing.T) {
	diag := types.NewCollector()
	acc := NewAccessor(diag)

	if file := acc.ParseFile(filepath.Join(t.TempDir(), "nope.go")); file != nil {
		t.Fatalf("ParseFile() = %v, want nil for missing file", file)
	}
	entries := diag.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Severity != types.SeverityWarning {
		t.Errorf("severity = %v, want warning", entries[0].Severity)
	}
	if entries[0].ErrorType() != types.ErrTypeFileNotFound {
		t.Errorf("error_type = %v, want %v", entries[0].ErrorType(), types.ErrTypeFileNotFound)
	}
}

func TestParseFile_Found(t *testing.T) {
	diag := types.NewCollector()
	acc := NewAccessor(diag)

	path := filepath.Join(t.TempDir(), "requests.go")
	if err := os.WriteFile(path, []byte(requestSource), 0o644); err != nil {
		t.Fatal(err)
	}
	file := acc.ParseFile(path)
	if file == nil {
		t.Fatalf("ParseFile() = nil, want file")
	}
	if FindType(file, "StoreUserRequest") == nil {
		t.Errorf("FindType() = nil, want StoreUserRequest")
	}
}

func TestFindType(t *testing.T) {
	acc := NewAccessor(nil)
	file := acc.ParseSource(requestSource, "requests.go")

	if ts := FindType(file, "StoreUserRequest"); ts == nil {
		t.Errorf("FindType(StoreUserRequest) = nil, want type spec")
	}
	if ts := FindType(file, "Missing"); ts != nil {
		t.Errorf("FindType(Missing) = %v, want nil", ts)
	}
}

func TestFindMethod(t *testing.T) {
	acc := NewAccessor(nil)
	file := acc.ParseSource(requestSource, "requests.go")

	method := FindMethod(file, "StoreUserRequest", "Rules")
	if method == nil {
		t.Fatalf("FindMethod(Rules) = nil, want method")
	}
	if got := ReceiverTypeName(method); got != "StoreUserRequest" {
		t.Errorf("ReceiverTypeName() = %v, want StoreUserRequest", got)
	}
	if FindMethod(file, "StoreUserRequest", "Authorize") != nil {
		t.Errorf("FindMethod(Authorize) != nil, want nil")
	}
	if FindMethod(file, "", "Attributes") == nil {
		t.Errorf("FindMethod with any receiver = nil, want Attributes method")
	}
}

func TestFindField_MultiNameDeclaration(t *testing.T) {
	acc := NewAccessor(nil)
	file := acc.ParseSource(requestSource, "requests.go")

	for _, name := range []string{"First", "Last", "Middle", "Age"} {
		if FindField(file, "Profile", name) == nil {
			t.Errorf("FindField(Profile, %s) = nil, want field", name)
		}
	}
	if FindField(file, "Profile", "Nickname") != nil {
		t.Errorf("FindField(Profile, Nickname) != nil, want nil")
	}
}

func TestImportAliases(t *testing.T) {
	acc := NewAccessor(nil)
	file := acc.ParseSource(requestSource, "requests.go")

	aliases := ImportAliases(file)
	if aliases["m"] != "example.com/app/models" {
		t.Errorf("aliases[m] = %v, want example.com/app/models", aliases["m"])
	}
	if aliases["http"] != "net/http" {
		t.Errorf("aliases[http] = %v, want net/http", aliases["http"])
	}
	if aliases["validate"] != "github.com/solatis/formtrace/validate" {
		t.Errorf("aliases[validate] = %v, want validate package path", aliases["validate"])
	}
}

const inlineSource = `package handlers

import "github.com/solatis/formtrace/validate"

func register(mux any) {
	attach(validate.Inline{
		Rules: func() validate.Rules {
			return validate.Rules{
				"title": "required|string",
			}
		},
	})
}

func attach(v any) {}
`

func TestInlineAt(t *testing.T) {
	acc := NewAccessor(nil)
	file := acc.ParseSource(inlineSource, "handlers.go")
	if file == nil {
		t.Fatal("ParseSource() = nil")
	}

	// Line 9 sits inside the Rules function literal.
	lit := acc.InlineAt(file, 9)
	if lit == nil {
		t.Fatalf("InlineAt(9) = nil, want inline literal")
	}
	fn := InlineFunc(lit, "Rules")
	if fn == nil {
		t.Fatalf("InlineFunc(Rules) = nil, want function literal")
	}
	if acc.InlineAt(file, 15) != nil {
		t.Errorf("InlineAt(15) != nil, want nil outside literal")
	}
}

func TestFuncLitAt_Innermost(t *testing.T) {
	src := `package p

func outer() func() int {
	return func() int {
		inner := func() int {
			return 1
		}
		return inner()
	}
}
`
	acc := NewAccessor(nil)
	file := acc.ParseSource(src, "nested.go")
	if file == nil {
		t.Fatal("ParseSource() = nil")
	}

	fn := acc.FuncLitAt(file, 6)
	if fn == nil {
		t.Fatalf("FuncLitAt(6) = nil, want literal")
	}
	// The innermost literal spans lines 5-7 only.
	if acc.Line(fn.Pos()) != 5 {
		t.Errorf("literal start line = %d, want 5", acc.Line(fn.Pos()))
	}
}

func TestFindInline_FirstDeclaration(t *testing.T) {
	acc := NewAccessor(nil)
	file := acc.ParseSource(inlineSource, "handlers.go")

	lit := FindInline(file)
	if lit == nil {
		t.Fatalf("FindInline() = nil, want literal")
	}
	if file := acc.ParseSource("package p\n\nvar x = 1", "plain.go"); FindInline(file) != nil {
		t.Errorf("FindInline() != nil for source without inline declarations")
	}
}
