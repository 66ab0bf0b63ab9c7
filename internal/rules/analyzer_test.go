// internal/rules/analyzer_test.go
package rules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/solatis/formtrace/internal/types"
)

const storeUserSource = `package requests

import "github.com/solatis/formtrace/validate"

type StoreUserRequest struct{}

func (r *StoreUserRequest) Rules(req *validate.Request) validate.Rules {
	if req.IsMethod("POST") {
		return validate.Rules{
			"name":  "required|string|max:100",
			"email": "required|email",
		}
	}
	return validate.Rules{
		"name":  "sometimes|string|max:100",
		"email": "sometimes|email",
	}
}

func (r *StoreUserRequest) Attributes() map[string]string {
	return map[string]string{"email": "Email address"}
}

func (r *StoreUserRequest) Messages() map[string]string {
	return map[string]string{"email.required": "We need your email"}
}
`

func TestAnalyzeUnit_EndToEnd(t *testing.T) {
	diag := types.NewCollector()
	a := New(diag, nil)

	res := a.AnalyzeUnit(types.SourceUnit{
		Text:        storeUserSource,
		PackagePath: "example.com/app/requests",
	}, "StoreUserRequest")

	if res.TypeName != "StoreUserRequest" {
		t.Errorf("TypeName = %q", res.TypeName)
	}
	if len(res.Conditional.Branches) != 2 {
		t.Fatalf("len(Branches) = %d, want 2", len(res.Conditional.Branches))
	}
	if len(res.Parameters) != 2 {
		t.Fatalf("len(Parameters) = %d, want 2", len(res.Parameters))
	}

	email, name := res.Parameters[0], res.Parameters[1]
	if email.Name != "email" || name.Name != "name" {
		t.Fatalf("parameter order = %q, %q, want sorted fields", email.Name, name.Name)
	}
	if email.Format != "email" {
		t.Errorf("email Format = %q, want email", email.Format)
	}
	if !email.ConditionalRequired || email.Required {
		t.Errorf("email Required = %v ConditionalRequired = %v, want false/true",
			email.Required, email.ConditionalRequired)
	}
	if email.Description != "Email address" {
		t.Errorf("email Description = %q, want attribute override", email.Description)
	}
	if name.MaxLength == nil || *name.MaxLength != 100 {
		t.Errorf("name MaxLength = %v, want 100", name.MaxLength)
	}
	if !strings.Contains(name.Description, "max 100 characters") {
		t.Errorf("name Description = %q, missing length note", name.Description)
	}

	if res.Attributes["email"] != "Email address" {
		t.Errorf("Attributes = %v", res.Attributes)
	}
	if res.Messages["email.required"] != "We need your email" {
		t.Errorf("Messages = %v", res.Messages)
	}
	if diag.HasErrors() {
		t.Errorf("unexpected errors: %v", diag.Entries())
	}
}

func TestAnalyzeUnit_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store_user.go")
	if err := os.WriteFile(path, []byte(storeUserSource), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v, want nil", err)
	}

	a := New(types.NewCollector(), nil)
	res := a.AnalyzeUnit(types.SourceUnit{FilePath: path}, "StoreUserRequest")

	if len(res.Parameters) != 2 {
		t.Errorf("len(Parameters) = %d, want 2", len(res.Parameters))
	}
}

func TestAnalyzeUnit_MissingType(t *testing.T) {
	a := New(types.NewCollector(), nil)
	res := a.AnalyzeUnit(types.SourceUnit{Text: storeUserSource}, "NoSuchRequest")

	if len(res.Parameters) != 0 {
		t.Errorf("Parameters = %v, want empty", res.Parameters)
	}
	if res.Conditional == nil || len(res.Conditional.Branches) != 0 {
		t.Errorf("Conditional = %+v, want empty non-nil result", res.Conditional)
	}
}

func TestAnalyzeUnit_UnparseableSource(t *testing.T) {
	diag := types.NewCollector()
	a := New(diag, nil)
	res := a.AnalyzeUnit(types.SourceUnit{Text: "func )( nonsense"}, "X")

	if len(res.Parameters) != 0 || res.Conditional == nil {
		t.Errorf("result = %+v, want empty with non-nil conditional", res)
	}
	if !diag.HasErrors() {
		t.Errorf("parse failure recorded no error")
	}
}

func TestAnalyzeUnit_EmptyUnit(t *testing.T) {
	a := New(types.NewCollector(), nil)
	res := a.AnalyzeUnit(types.SourceUnit{}, "X")

	if len(res.Parameters) != 0 || res.Conditional == nil {
		t.Errorf("result = %+v, want empty with non-nil conditional", res)
	}
}

const multiRequestSource = `package requests

import "github.com/solatis/formtrace/validate"

type CreateNoteRequest struct{}

func (r *CreateNoteRequest) Rules() validate.Rules {
	return validate.Rules{"body": "required|string"}
}

func (r *CreateNoteRequest) Attributes() map[string]string {
	return map[string]string{"body": "Note body"}
}

type UpdateNoteRequest struct{}

func (r *UpdateNoteRequest) Rules() validate.Rules {
	return validate.Rules{"body": "sometimes|string"}
}

func Rules() validate.Rules {
	return validate.Rules{"ignored": "required"}
}
`

func TestRulesDecls(t *testing.T) {
	a := New(types.NewCollector(), nil)
	file := a.Accessor().ParseSource(multiRequestSource, "multi")
	if file == nil {
		t.Fatalf("ParseSource() = nil")
	}

	decls := RulesDecls(file)
	if len(decls) != 2 {
		t.Fatalf("len(decls) = %d, want 2 (receiver-less Rules skipped)", len(decls))
	}

	if decls := RulesDecls(nil); len(decls) != 0 {
		t.Errorf("RulesDecls(nil) = %v, want empty", decls)
	}
}

func TestAnalyzeDecl(t *testing.T) {
	a := New(types.NewCollector(), nil)
	file := a.Accessor().ParseSource(multiRequestSource, "multi")
	if file == nil {
		t.Fatalf("ParseSource() = nil")
	}

	decls := RulesDecls(file)
	if len(decls) != 2 {
		t.Fatalf("len(decls) = %d, want 2", len(decls))
	}

	create := a.AnalyzeDecl(file, decls[0], types.SourceUnit{})
	if create.TypeName != "CreateNoteRequest" {
		t.Errorf("TypeName = %q", create.TypeName)
	}
	if len(create.Parameters) != 1 || create.Parameters[0].Name != "body" {
		t.Fatalf("Parameters = %+v, want body", create.Parameters)
	}
	if create.Parameters[0].Description != "Note body" {
		t.Errorf("Description = %q, want attribute override", create.Parameters[0].Description)
	}

	update := a.AnalyzeDecl(file, decls[1], types.SourceUnit{})
	if update.TypeName != "UpdateNoteRequest" {
		t.Errorf("TypeName = %q", update.TypeName)
	}
	if len(update.Attributes) != 0 {
		t.Errorf("update Attributes = %v, want none", update.Attributes)
	}
}

func TestAnalyzeUnit_ComputedAttributesIgnored(t *testing.T) {
	src := `package requests

import "github.com/solatis/formtrace/validate"

type ComputedRequest struct{}

func (r *ComputedRequest) Rules() validate.Rules {
	return validate.Rules{"name": "required"}
}

func (r *ComputedRequest) Attributes() map[string]string {
	return r.buildAttributes()
}

func (r *ComputedRequest) buildAttributes() map[string]string {
	return map[string]string{"name": "computed"}
}
`
	a := New(types.NewCollector(), nil)
	res := a.AnalyzeUnit(types.SourceUnit{Text: src}, "ComputedRequest")

	if len(res.Attributes) != 0 {
		t.Errorf("Attributes = %v, want none for computed returns", res.Attributes)
	}
	if len(res.Parameters) != 1 {
		t.Errorf("len(Parameters) = %d, want 1", len(res.Parameters))
	}
}
