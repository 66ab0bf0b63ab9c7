// internal/astwalk/accessor.go

// Package astwalk wraps Go source parsing and AST node location for the
// rule analyzer.
package astwalk

/*
 * Source parsing and node location.
 *
 * Key functions:
 *   - Accessor.ParseSource / ParseFile: source text or path to *ast.File
 *   - FindType / FindMethod / FindField: named declaration lookup
 *   - FindInline / Accessor.InlineAt / Accessor.FuncLitAt: inline rule
 *     declarations located by shape or by source line
 *   - ImportAliases: import alias to package path map
 *
 * Why diagnostics instead of errors: parse and lookup failures are expected
 * during analysis of arbitrary project code. Every failure is recorded on
 * the injected collector and a nil result returned, so callers continue on
 * a best-effort basis instead of unwinding. Nothing here panics or raises.
 *
 * Empty input: empty or blank source parses to an empty file, not a
 * failure. Fragment input without a package clause is wrapped and reparsed
 * before being reported as malformed.
 */

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/solatis/formtrace/internal/types"
)

// snippetHeader wraps package-less fragments so method and type fragments
// parse standalone.
const snippetHeader = "package sourcefragment\n\n"

// Accessor parses source units and locates nodes within them. One accessor
// owns one token.FileSet, so positions from every file it parsed resolve
// through the same set.
type Accessor struct {
	fset *token.FileSet
	diag *types.Collector
}

// NewAccessor creates an accessor recording failures on diag.
func NewAccessor(diag *types.Collector) *Accessor {
	return &Accessor{
		fset: token.NewFileSet(),
		diag: diag,
	}
}

// FileSet returns the accessor's file set for position resolution.
func (a *Accessor) FileSet() *token.FileSet {
	return a.fset
}

// Line resolves a position to its 1-based source line.
func (a *Accessor) Line(pos token.Pos) int {
	if !pos.IsValid() {
		return 0
	}
	return a.fset.Position(pos).Line
}

// ParseSource parses source text. label identifies the unit in positions
// and diagnostics. Empty or blank source yields an empty file; fragments
// without a package clause are wrapped and reparsed. Returns nil after
// recording a parse_error diagnostic when the source is malformed.
func (a *Accessor) ParseSource(src, label string) *ast.File {
	if len(src) > types.MaxSourceSize {
		a.diag.Error(types.ErrSourceTooLarge.Error(), map[string]string{
			types.MetaErrorType: types.ErrTypeParse,
			"source":            label,
		})
		return nil
	}
	if strings.TrimSpace(src) == "" {
		return &ast.File{Name: ast.NewIdent("sourcefragment")}
	}

	file, err := parser.ParseFile(a.fset, label, src, parser.SkipObjectResolution)
	if err == nil {
		return file
	}

	// Method and type fragments arrive without a package clause.
	file, retryErr := parser.ParseFile(a.fset, label, snippetHeader+src, parser.SkipObjectResolution)
	if retryErr == nil {
		return file
	}

	a.diag.Error("failed to parse source: "+err.Error(), map[string]string{
		types.MetaErrorType: types.ErrTypeParse,
		"source":            label,
	})
	return nil
}

// ParseFile reads and parses a source file. A missing or unreadable file
// records a file_not_found warning (analysis falls back to other
// strategies); malformed content records a parse_error diagnostic.
func (a *Accessor) ParseFile(filePath string) *ast.File {
	data, err := os.ReadFile(filePath)
	if err != nil {
		a.diag.Warn("failed to read source file: "+err.Error(), map[string]string{
			types.MetaErrorType: types.ErrTypeFileNotFound,
			"file":              filePath,
		})
		return nil
	}
	return a.ParseSource(string(data), filePath)
}

// FindType returns the type declaration named name, or nil.
func FindType(file *ast.File, name string) *ast.TypeSpec {
	if file == nil {
		return nil
	}
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if ok && ts.Name.Name == name {
				return ts
			}
		}
	}
	return nil
}

// FindMethod returns the method named name declared on recvType, or nil.
// An empty recvType matches any receiver. Pointer receivers match their
// element type name.
func FindMethod(file *ast.File, recvType, name string) *ast.FuncDecl {
	if file == nil {
		return nil
	}
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Name.Name != name || fn.Recv == nil || len(fn.Recv.List) == 0 {
			continue
		}
		if recvType == "" || ReceiverTypeName(fn) == recvType {
			return fn
		}
	}
	return nil
}

// ReceiverTypeName returns the receiver type name of a method declaration,
// dereferencing pointer receivers. Empty for non-methods.
func ReceiverTypeName(fn *ast.FuncDecl) string {
	if fn == nil || fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	expr := fn.Recv.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	if idx, ok := expr.(*ast.IndexExpr); ok {
		expr = idx.X
	}
	if ident, ok := expr.(*ast.Ident); ok {
		return ident.Name
	}
	return ""
}

// FindField returns the struct field named fieldName on the type named
// typeName, or nil. Multi-name declarations (A, B, C string) match any of
// their declared names.
func FindField(file *ast.File, typeName, fieldName string) *ast.Field {
	ts := FindType(file, typeName)
	if ts == nil {
		return nil
	}
	st, ok := ts.Type.(*ast.StructType)
	if !ok || st.Fields == nil {
		return nil
	}
	for _, field := range st.Fields.List {
		for _, ident := range field.Names {
			if ident.Name == fieldName {
				return field
			}
		}
	}
	return nil
}

// FindInline returns the first inline rules declaration (a composite
// literal of a type named Inline) in source order, or nil.
func FindInline(file *ast.File) *ast.CompositeLit {
	if file == nil {
		return nil
	}
	var found *ast.CompositeLit
	ast.Inspect(file, func(n ast.Node) bool {
		if found != nil {
			return false
		}
		lit, ok := n.(*ast.CompositeLit)
		if ok && isInlineType(lit.Type) {
			found = lit
			return false
		}
		return true
	})
	return found
}

// InlineAt returns the innermost inline rules declaration containing the
// given line, or nil.
func (a *Accessor) InlineAt(file *ast.File, line int) *ast.CompositeLit {
	if file == nil || line <= 0 {
		return nil
	}
	var found *ast.CompositeLit
	ast.Inspect(file, func(n ast.Node) bool {
		lit, ok := n.(*ast.CompositeLit)
		if ok && isInlineType(lit.Type) && a.Line(lit.Pos()) <= line && line <= a.Line(lit.End()) {
			found = lit
		}
		return true
	})
	return found
}

// FuncLitAt returns the innermost function literal containing the given
// line, or nil.
func (a *Accessor) FuncLitAt(file *ast.File, line int) *ast.FuncLit {
	if file == nil || line <= 0 {
		return nil
	}
	var found *ast.FuncLit
	ast.Inspect(file, func(n ast.Node) bool {
		lit, ok := n.(*ast.FuncLit)
		if ok && a.Line(lit.Pos()) <= line && line <= a.Line(lit.End()) {
			found = lit
		}
		return true
	})
	return found
}

// InlineFunc returns the function literal assigned to the named field of an
// inline rules declaration, or nil.
func InlineFunc(lit *ast.CompositeLit, name string) *ast.FuncLit {
	if lit == nil {
		return nil
	}
	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		key, ok := kv.Key.(*ast.Ident)
		if !ok || key.Name != name {
			continue
		}
		if fn, ok := kv.Value.(*ast.FuncLit); ok {
			return fn
		}
	}
	return nil
}

// ImportAliases returns the file's import alias to package path map.
// Unaliased imports map under their path base; blank imports are skipped.
func ImportAliases(file *ast.File) map[string]string {
	aliases := make(map[string]string)
	if file == nil {
		return aliases
	}
	for _, imp := range file.Imports {
		importPath, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		alias := path.Base(importPath)
		if imp.Name != nil {
			if imp.Name.Name == "_" {
				continue
			}
			alias = imp.Name.Name
		}
		aliases[alias] = importPath
	}
	return aliases
}

func isInlineType(expr ast.Expr) bool {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name == "Inline"
	case *ast.SelectorExpr:
		return t.Sel.Name == "Inline"
	}
	return false
}
