// internal/astwalk/literal.go
package astwalk

/*
 * Literal node value extraction.
 *
 * Key functions:
 *   - Value: literal expression to Go value, nil for unsupported kinds
 *   - KeyedValues: explicitly keyed composite entries to a map
 *   - StringValue / IntValue / FloatValue: kind-constrained variants
 *
 * Supported literal kinds: string, int, float, and char basic literals,
 * true/false/nil identifiers (case-insensitive), negation of numeric
 * literals, folded concatenation of string literals, and composite
 * literals (recursed element-wise, nil entries skipped).
 *
 * Asymmetry by contract: Value returns nil for non-literals, but
 * KeyedValues returns an empty map for non-composite input. Callers branch
 * on "no keyed entries" without a nil check, mirroring how rule attribute
 * maps degrade when a declaration holds something unexpected.
 */

import (
	"go/ast"
	"go/token"
	"strconv"
	"strings"
)

// Value extracts the Go value of a literal expression. Unsupported node
// kinds return nil. Composite literals recurse into an ordered []any,
// skipping entries that extract to nil; keyed entries contribute their
// value part.
func Value(expr ast.Expr) any {
	switch n := expr.(type) {
	case *ast.ParenExpr:
		return Value(n.X)

	case *ast.BasicLit:
		return basicLitValue(n)

	case *ast.Ident:
		switch {
		case strings.EqualFold(n.Name, "true"):
			return true
		case strings.EqualFold(n.Name, "false"):
			return false
		}
		return nil

	case *ast.UnaryExpr:
		if n.Op != token.SUB {
			return nil
		}
		switch v := Value(n.X).(type) {
		case int:
			return -v
		case float64:
			return -v
		}
		return nil

	case *ast.BinaryExpr:
		if n.Op != token.ADD {
			return nil
		}
		left, lok := Value(n.X).(string)
		right, rok := Value(n.Y).(string)
		if lok && rok {
			return left + right
		}
		return nil

	case *ast.CompositeLit:
		values := make([]any, 0, len(n.Elts))
		for _, elt := range n.Elts {
			e := elt
			if kv, ok := elt.(*ast.KeyValueExpr); ok {
				e = kv.Value
			}
			if v := Value(e); v != nil {
				values = append(values, v)
			}
		}
		return values
	}
	return nil
}

// KeyedValues extracts only the explicitly keyed entries of a composite
// literal. Unkeyed entries are skipped; non-composite input yields an
// empty map, never nil.
func KeyedValues(expr ast.Expr) map[string]any {
	out := make(map[string]any)
	lit, ok := unparen(expr).(*ast.CompositeLit)
	if !ok {
		return out
	}
	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		key := keyName(kv.Key)
		if key == "" {
			continue
		}
		out[key] = Value(kv.Value)
	}
	return out
}

// StringValue extracts a string literal value. False on kind mismatch.
func StringValue(expr ast.Expr) (string, bool) {
	s, ok := Value(expr).(string)
	return s, ok
}

// IntValue extracts an integer literal value. False on kind mismatch;
// float literals do not coerce.
func IntValue(expr ast.Expr) (int, bool) {
	i, ok := Value(expr).(int)
	return i, ok
}

// FloatValue extracts a float literal value. False on kind mismatch;
// integer literals do not coerce.
func FloatValue(expr ast.Expr) (float64, bool) {
	f, ok := Value(expr).(float64)
	return f, ok
}

func basicLitValue(lit *ast.BasicLit) any {
	switch lit.Kind {
	case token.STRING, token.CHAR:
		s, err := strconv.Unquote(lit.Value)
		if err != nil {
			return nil
		}
		return s
	case token.INT:
		i, err := strconv.ParseInt(lit.Value, 0, 64)
		if err != nil {
			return nil
		}
		return int(i)
	case token.FLOAT:
		f, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			return nil
		}
		return f
	}
	return nil
}

// keyName resolves a composite literal key: quoted string keys and
// identifier keys both name map entries in analyzed rule declarations.
func keyName(expr ast.Expr) string {
	switch k := unparen(expr).(type) {
	case *ast.BasicLit:
		if k.Kind != token.STRING {
			return ""
		}
		s, err := strconv.Unquote(k.Value)
		if err != nil {
			return ""
		}
		return s
	case *ast.Ident:
		return k.Name
	}
	return ""
}

func unparen(expr ast.Expr) ast.Expr {
	for {
		p, ok := expr.(*ast.ParenExpr)
		if !ok {
			return expr
		}
		expr = p.X
	}
}
