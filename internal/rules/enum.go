// internal/rules/enum.go
package rules

/*
 * Enum reference resolution.
 *
 * An enum rule can reference its type five ways: a structured token
 * carrying the reference, a bare "enum:Class" string token, a fully
 * qualified type name, a package-alias qualified name resolved through
 * the file's imports, and a bare name resolved against the declaring
 * package. EnumAnalyzer normalizes all five into a lookup against an
 * injected resolver and returns the first hit; unresolvable references
 * yield no constraint rather than an error, because a schema without
 * the value list is still useful.
 *
 * ScanEnums builds the resolver table for a package: named string and
 * integer types with at least one typed constant. Iota runs and
 * implicit repetition are tracked so conventional const blocks scan
 * correctly.
 */

import (
	"go/ast"
	"go/token"
	"strings"

	"github.com/solatis/formtrace/internal/astwalk"
	"github.com/solatis/formtrace/internal/types"
)

// EnumResolver resolves a candidate enum type name to its description.
type EnumResolver func(class string) (*types.EnumInfo, bool)

// EnumAnalyzer resolves enum references in rule tokens.
type EnumAnalyzer struct {
	resolve EnumResolver
}

func NewEnumAnalyzer(resolve EnumResolver) *EnumAnalyzer {
	return &EnumAnalyzer{resolve: resolve}
}

// Analyze yields the enum constraint of a token list, or nil when no
// token references a resolvable enum. The declaring package path and
// the file's import aliases qualify partial references.
func (a *EnumAnalyzer) Analyze(tokens []types.RuleToken, pkgPath string, aliases map[string]string) *types.EnumInfo {
	if a == nil {
		return nil
	}
	for _, t := range tokens {
		var class string
		switch {
		case t.Enum != nil:
			class = t.Enum.Class
		case t.Name == "enum" && t.Params != "":
			class = t.Params
		default:
			continue
		}
		if info := a.resolveClass(class, pkgPath, aliases); info != nil {
			return info
		}
	}
	return nil
}

func (a *EnumAnalyzer) resolveClass(class, pkgPath string, aliases map[string]string) *types.EnumInfo {
	if a.resolve == nil {
		return nil
	}
	for _, candidate := range qualifyClass(class, pkgPath, aliases) {
		if info, ok := a.resolve(candidate); ok && info != nil {
			return info
		}
	}
	return nil
}

// qualifyClass expands a class reference into lookup candidates, most
// specific first.
func qualifyClass(class, pkgPath string, aliases map[string]string) []string {
	class = strings.TrimSpace(class)
	if class == "" {
		return nil
	}
	var candidates []string
	if i := strings.LastIndex(class, "."); i > 0 && i < len(class)-1 {
		qualifier, name := class[:i], class[i+1:]
		if path, ok := aliases[qualifier]; ok {
			candidates = append(candidates, path+"."+name)
		}
		candidates = append(candidates, class)
		return candidates
	}
	if pkgPath != "" {
		candidates = append(candidates, pkgPath+"."+class)
	}
	return append(candidates, class)
}

// EnumTable is a static resolver built by scanning declarations.
type EnumTable map[string]types.EnumInfo

// Resolve implements EnumResolver over the table.
func (t EnumTable) Resolve(class string) (*types.EnumInfo, bool) {
	info, ok := t[class]
	if !ok {
		return nil, false
	}
	return &info, true
}

// Merge folds another table into this one. Existing entries win.
func (t EnumTable) Merge(other EnumTable) {
	for class, info := range other {
		if _, ok := t[class]; !ok {
			t[class] = info
		}
	}
}

// ScanEnums scans package files for enum declarations: named string or
// integer types with typed constants. Each enum registers under both
// its qualified and bare name.
func ScanEnums(files []*ast.File, pkgPath string) EnumTable {
	backing := map[string]string{}
	for _, f := range files {
		scanEnumTypes(f, backing)
	}
	values := map[string][]any{}
	for _, f := range files {
		scanEnumConsts(f, backing, values)
	}

	table := EnumTable{}
	for name, backs := range backing {
		vals := values[name]
		if len(vals) == 0 {
			continue
		}
		qualified := name
		if pkgPath != "" {
			qualified = pkgPath + "." + name
		}
		info := types.EnumInfo{Class: qualified, Values: vals, BackingType: backs}
		table[qualified] = info
		if _, ok := table[name]; !ok {
			table[name] = info
		}
	}
	return table
}

// scanEnumTypes records named types with a scalar backing type.
func scanEnumTypes(f *ast.File, backing map[string]string) {
	for _, decl := range f.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			ident, ok := ts.Type.(*ast.Ident)
			if !ok {
				continue
			}
			switch ident.Name {
			case "string":
				backing[ts.Name.Name] = types.BackingString
			case "int", "int8", "int16", "int32", "int64",
				"uint", "uint8", "uint16", "uint32", "uint64":
				backing[ts.Name.Name] = types.BackingInt
			}
		}
	}
}

// scanEnumConsts collects constant values per enum type, tracking iota
// and the implicit repetition of omitted expressions.
func scanEnumConsts(f *ast.File, backing map[string]string, values map[string][]any) {
	for _, decl := range f.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.CONST {
			continue
		}
		curType := ""
		var lastExprs []ast.Expr
		for iotaVal, spec := range gen.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			if vs.Type != nil {
				curType = ""
				if id, ok := vs.Type.(*ast.Ident); ok {
					curType = id.Name
				}
			}
			exprs := vs.Values
			if len(exprs) == 0 {
				exprs = lastExprs
			} else {
				lastExprs = exprs
			}
			for i, name := range vs.Names {
				if name.Name == "_" || i >= len(exprs) {
					continue
				}
				target := curType
				if backing[target] == "" {
					target = conversionType(exprs[i], backing)
				}
				if target == "" {
					continue
				}
				if v := constValue(exprs[i], iotaVal); v != nil {
					values[target] = append(values[target], v)
				}
			}
		}
	}
}

// conversionType yields the enum type of a conversion expression such
// as Tag("internal"), for constants declared without an explicit type.
func conversionType(expr ast.Expr, backing map[string]string) string {
	call, ok := expr.(*ast.CallExpr)
	if !ok || len(call.Args) != 1 {
		return ""
	}
	if id, ok := call.Fun.(*ast.Ident); ok && backing[id.Name] != "" {
		return id.Name
	}
	return ""
}

// constValue evaluates one constant expression, substituting the
// current iota. Conversions of literals unwrap to the literal value.
func constValue(expr ast.Expr, iotaVal int) any {
	switch x := expr.(type) {
	case *ast.Ident:
		if x.Name == "iota" {
			return iotaVal
		}
	case *ast.BinaryExpr:
		if lhs, ok := x.X.(*ast.Ident); ok && lhs.Name == "iota" {
			if offset, ok := astwalk.IntValue(x.Y); ok {
				switch x.Op {
				case token.ADD:
					return iotaVal + offset
				case token.SUB:
					return iotaVal - offset
				}
			}
		}
	case *ast.CallExpr:
		if len(x.Args) == 1 {
			if v := astwalk.Value(x.Args[0]); v != nil {
				return v
			}
		}
	}
	return astwalk.Value(expr)
}
