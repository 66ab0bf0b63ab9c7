// internal/rules/extract.go
package rules

/*
 * Rule expression extraction.
 *
 * Extract resolves the rule set a rules method body produces without
 * executing it. Recognized return shapes, in priority order when a body
 * mixes several:
 *
 *   1. Direct map literal return
 *   2. Local variable assigned a rules value earlier and then returned;
 *      when a variable is assigned more than once the last assignment in
 *      source order wins
 *   3. Merge call composition, flattened left to right with later
 *      arguments overwriting earlier keys
 *   4. switch statements: only the first returning case contributes.
 *      Merging arms would silently widen required/optional semantics
 *      downstream, so the remaining arms are deliberately ignored.
 *
 * Conditional expressions smuggled in through immediately-invoked
 * function literals are not evaluated; they degrade to an empty rule set
 * with a warning so callers can see the gap.
 *
 * Failure policy: an unresolvable return shape yields an empty set, and
 * a field entry that cannot be normalized is skipped without aborting
 * its siblings.
 */

import (
	"fmt"
	"go/ast"
	gotypes "go/types"
	"strings"

	"github.com/solatis/formtrace/internal/astwalk"
	"github.com/solatis/formtrace/internal/types"
)

// mergeFuncNames are the call names recognized as rule set composition.
var mergeFuncNames = map[string]bool{
	"Merge":      true,
	"mergeRules": true,
}

// Extractor resolves rule sets from method bodies. Not safe for
// concurrent use; each analysis session builds its own.
type Extractor struct {
	diag *types.Collector
}

func NewExtractor(diag *types.Collector) *Extractor {
	return &Extractor{diag: diag}
}

// Extract resolves the rule set produced by a method body, ignoring any
// conditional structure. Bodies with several return shapes resolve by
// the priority order documented above.
func (e *Extractor) Extract(body *ast.BlockStmt) types.FieldRuleSet {
	if body == nil {
		return types.FieldRuleSet{}
	}
	vars := Assignments(body)

	var litRet, varRet, mergeRet ast.Expr
	iife := false
	for _, ret := range collectReturns(body) {
		expr, ok := singleResult(ret)
		if !ok {
			continue
		}
		switch x := expr.(type) {
		case *ast.CompositeLit:
			if litRet == nil {
				litRet = x
			}
		case *ast.Ident:
			if varRet == nil {
				if _, ok := vars[x.Name]; ok {
					varRet = x
				}
			}
		case *ast.CallExpr:
			switch {
			case isMergeCall(x):
				if mergeRet == nil {
					mergeRet = x
				}
			case isImmediateCall(x):
				iife = true
			}
		}
	}

	for _, expr := range []ast.Expr{litRet, varRet, mergeRet} {
		if expr == nil {
			continue
		}
		if set, ok := e.resolveExpr(expr, vars, nil); ok {
			return set
		}
	}
	if expr := firstSwitchReturn(body); expr != nil {
		if set, ok := e.resolveExpr(expr, vars, nil); ok {
			return set
		}
	}
	if iife {
		e.diag.Warn("rule extraction: conditional expression return is not supported, yielding empty rule set",
			map[string]string{types.MetaErrorType: types.ErrTypeUnsupportedReturn})
	}
	return types.FieldRuleSet{}
}

// ResolveReturn resolves the rule set of one return statement against an
// assignment table. Empty and unresolvable returns yield an empty set.
func (e *Extractor) ResolveReturn(ret *ast.ReturnStmt, vars map[string]ast.Expr) types.FieldRuleSet {
	expr, ok := singleResult(ret)
	if !ok {
		return types.FieldRuleSet{}
	}
	if set, ok := e.resolveExpr(expr, vars, nil); ok {
		return set
	}
	if call, ok := expr.(*ast.CallExpr); ok && isImmediateCall(call) {
		e.diag.Warn("rule extraction: conditional expression return is not supported, yielding empty rule set",
			map[string]string{types.MetaErrorType: types.ErrTypeUnsupportedReturn})
	}
	return types.FieldRuleSet{}
}

// resolveExpr resolves an expression to a rule set. The visited table
// breaks assignment cycles.
func (e *Extractor) resolveExpr(expr ast.Expr, vars map[string]ast.Expr, visited map[string]bool) (types.FieldRuleSet, bool) {
	switch x := unparen(expr).(type) {
	case *ast.CompositeLit:
		return e.rulesFromMapLit(x, vars), true
	case *ast.Ident:
		stored, ok := vars[x.Name]
		if !ok || visited[x.Name] {
			return nil, false
		}
		if visited == nil {
			visited = make(map[string]bool)
		}
		visited[x.Name] = true
		return e.resolveExpr(stored, vars, visited)
	case *ast.CallExpr:
		if isMergeCall(x) {
			merged := types.FieldRuleSet{}
			for _, arg := range x.Args {
				set, ok := e.resolveExpr(arg, vars, visited)
				if !ok {
					continue
				}
				for field, tokens := range set {
					merged[field] = tokens
				}
			}
			return merged, true
		}
		return nil, false
	}
	return nil, false
}

// rulesFromMapLit converts a rules map literal into a FieldRuleSet.
// Non-string keys and empty field paths are skipped.
func (e *Extractor) rulesFromMapLit(lit *ast.CompositeLit, vars map[string]ast.Expr) types.FieldRuleSet {
	set := types.FieldRuleSet{}
	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		field, ok := astwalk.StringValue(kv.Key)
		if !ok || field == "" {
			continue
		}
		set[field] = e.specTokens(kv.Value, vars)
	}
	return set
}

// specTokens resolves one field's rule spec expression into tokens. The
// AST-side mirror of SpecTokens.
func (e *Extractor) specTokens(expr ast.Expr, vars map[string]ast.Expr) []types.RuleToken {
	switch v := unparen(expr).(type) {
	case *ast.BasicLit:
		if s, ok := astwalk.StringValue(v); ok {
			return SplitRuleString(s)
		}
	case *ast.BinaryExpr:
		if s, ok := astwalk.StringValue(v); ok {
			return SplitRuleString(s)
		}
		// Concatenation involving a non-literal operand: preserve the
		// source text as a single opaque token rather than evaluating it.
		text := gotypes.ExprString(v)
		return []types.RuleToken{{Raw: text, Name: text}}
	case *ast.CompositeLit:
		// List entries carry one rule each; only top-level strings
		// split on pipes.
		var tokens []types.RuleToken
		for _, elt := range v.Elts {
			if s, ok := astwalk.StringValue(unparen(elt)); ok {
				tokens = append(tokens, ParseToken(s))
				continue
			}
			tokens = append(tokens, e.specTokens(elt, vars)...)
		}
		return tokens
	case *ast.CallExpr:
		if tokens, ok := builderTokens(v); ok {
			return tokens
		}
	case *ast.Ident:
		if stored, ok := vars[v.Name]; ok {
			return e.specTokens(stored, vars)
		}
	case *ast.IndexExpr:
		if tokens, ok := builderTokens(&ast.CallExpr{Fun: v}); ok {
			return tokens
		}
	}
	return nil
}

// chainLink is one method call in a peeled builder chain.
type chainLink struct {
	name string
	args []ast.Expr
}

// peelChain unwraps a fluent builder call into its base constructor and
// the method calls applied to it, in application order.
func peelChain(call *ast.CallExpr) (base chainLink, chain []chainLink, ok bool) {
	cur := call
	for {
		switch fun := unparen(cur.Fun).(type) {
		case *ast.SelectorExpr:
			inner, isCall := unparen(fun.X).(*ast.CallExpr)
			if isCall {
				chain = append(chain, chainLink{name: fun.Sel.Name, args: cur.Args})
				cur = inner
				continue
			}
			return chainLink{name: fun.Sel.Name, args: cur.Args}, reverse(chain), true
		case *ast.IndexExpr:
			// Generic constructor such as EnumOf[Status](); the index is
			// the type argument.
			if sel, isSel := unparen(fun.X).(*ast.SelectorExpr); isSel {
				return chainLink{name: sel.Sel.Name, args: []ast.Expr{fun.Index}}, reverse(chain), true
			}
			if id, isIdent := unparen(fun.X).(*ast.Ident); isIdent {
				return chainLink{name: id.Name, args: []ast.Expr{fun.Index}}, reverse(chain), true
			}
			return chainLink{}, nil, false
		case *ast.Ident:
			return chainLink{name: fun.Name, args: cur.Args}, reverse(chain), true
		default:
			return chainLink{}, nil, false
		}
	}
}

func reverse(chain []chainLink) []chainLink {
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// builderTokens resolves a rule builder call into canonical tokens. The
// canonical forms match the String output of the corresponding builders
// so that static extraction and reflective invocation agree. Decorators
// that only affect runtime validation (Unique.Ignore, Exists.Where) are
// stripped: they carry no schema information.
func builderTokens(call *ast.CallExpr) ([]types.RuleToken, bool) {
	base, chain, ok := peelChain(call)
	if !ok {
		return nil, false
	}
	switch base.name {
	case "In", "NotIn":
		name := "in"
		if base.name == "NotIn" {
			name = "not_in"
		}
		values := callValues(base.args)
		if len(values) == 0 {
			return nil, false
		}
		return []types.RuleToken{ParseToken(name + ":" + joinValues(values))}, true
	case "Unique", "Exists":
		name := strings.ToLower(base.name)
		table, ok := argString(base.args, 0)
		if !ok {
			return nil, false
		}
		raw := name + ":" + table
		if column, ok := argString(base.args, 1); ok {
			raw += ":" + column
		}
		return []types.RuleToken{ParseToken(raw)}, true
	case "RequiredIf":
		field, ok := argString(base.args, 0)
		if !ok {
			return nil, false
		}
		raw := "required_if:" + field
		if len(base.args) > 1 {
			if v := astwalk.Value(base.args[1]); v != nil {
				raw += ":" + formatParamValue(v)
			}
		}
		return []types.RuleToken{ParseToken(raw)}, true
	case "NewEnum":
		class, ok := enumClassArg(base.args)
		if !ok {
			return nil, false
		}
		return []types.RuleToken{EnumToken(class)}, true
	case "EnumOf":
		if len(base.args) != 1 {
			return nil, false
		}
		return []types.RuleToken{EnumToken(gotypes.ExprString(base.args[0]))}, true
	case "File", "Image":
		return fileTokens(base.name == "Image", chain), true
	case "Password":
		return []types.RuleToken{passwordToken(chain)}, true
	case "Dimensions":
		return []types.RuleToken{dimensionsToken(chain)}, true
	}
	return nil, false
}

// fileTokens builds the token list for a file rule chain in the same
// fixed part order the builder's String form uses, so static extraction
// and reflective canonicalization agree regardless of chain order.
func fileTokens(image bool, chain []chainLink) []types.RuleToken {
	var minKB, maxKB *int
	var mimes, mimeTypes []any
	var dimensions *types.RuleToken
	for _, link := range chain {
		switch link.name {
		case "Image":
			image = true
		case "Min":
			if n, ok := argInt(link.args, 0); ok {
				minKB = &n
			}
		case "Max":
			if n, ok := argInt(link.args, 0); ok {
				maxKB = &n
			}
		case "Mimes":
			mimes = append(mimes, callValues(link.args)...)
		case "MimeTypes":
			mimeTypes = append(mimeTypes, callValues(link.args)...)
		case "Dimensions":
			if len(link.args) == 1 {
				if inner, ok := unparen(link.args[0]).(*ast.CallExpr); ok {
					if base, dims, ok := peelChain(inner); ok && base.name == "Dimensions" {
						tok := dimensionsToken(dims)
						dimensions = &tok
					}
				}
			}
		}
	}

	tokens := []types.RuleToken{ParseToken("file")}
	if image {
		tokens = append(tokens, ParseToken("image"))
	}
	if minKB != nil {
		tokens = append(tokens, ParseToken(fmt.Sprintf("min:%d", *minKB)))
	}
	if maxKB != nil {
		tokens = append(tokens, ParseToken(fmt.Sprintf("max:%d", *maxKB)))
	}
	if len(mimes) > 0 {
		tokens = append(tokens, ParseToken("mimes:"+joinValues(mimes)))
	}
	if len(mimeTypes) > 0 {
		tokens = append(tokens, ParseToken("mimetypes:"+joinValues(mimeTypes)))
	}
	if dimensions != nil {
		tokens = append(tokens, *dimensions)
	}
	return tokens
}

// passwordToken canonicalizes a password rule chain into a single
// "Password::" token. A bare constructor yields "Password::default".
func passwordToken(chain []chainLink) types.RuleToken {
	var parts []string
	for _, link := range chain {
		switch link.name {
		case "Min":
			if n, ok := argInt(link.args, 0); ok {
				parts = append(parts, fmt.Sprintf("min=%d", n))
			}
		case "Letters":
			parts = append(parts, "letters")
		case "MixedCase":
			parts = append(parts, "mixed")
		case "Numbers":
			parts = append(parts, "numbers")
		case "Symbols":
			parts = append(parts, "symbols")
		case "Uncompromised":
			parts = append(parts, "uncompromised")
		}
	}
	if len(parts) == 0 {
		return types.RuleToken{Raw: "Password::default", Name: "Password::default"}
	}
	raw := "Password::" + strings.Join(parts, ",")
	return types.RuleToken{Raw: raw, Name: raw}
}

// dimensionsToken canonicalizes a dimensions rule chain.
func dimensionsToken(chain []chainLink) types.RuleToken {
	keys := map[string]string{
		"Width":     "width",
		"Height":    "height",
		"MinWidth":  "min_width",
		"MaxWidth":  "max_width",
		"MinHeight": "min_height",
		"MaxHeight": "max_height",
	}
	var parts []string
	for _, link := range chain {
		if key, ok := keys[link.name]; ok {
			if n, ok := argInt(link.args, 0); ok {
				parts = append(parts, fmt.Sprintf("%s=%d", key, n))
			}
			continue
		}
		if link.name == "Ratio" {
			if s, ok := argString(link.args, 0); ok {
				parts = append(parts, "ratio="+s)
			}
		}
	}
	return ParseToken("dimensions:" + strings.Join(parts, ","))
}

// callValues evaluates call arguments to scalar values, flattening one
// level of slice literal so In("a", "b") and In([]string{"a", "b"})
// resolve identically.
func callValues(args []ast.Expr) []any {
	var values []any
	for _, arg := range args {
		v := astwalk.Value(arg)
		if v == nil {
			continue
		}
		if list, isList := v.([]any); isList {
			values = append(values, list...)
			continue
		}
		values = append(values, v)
	}
	return values
}

func joinValues(values []any) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, formatParamValue(v))
	}
	return strings.Join(parts, ",")
}

func formatParamValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(x)
	}
}

func argString(args []ast.Expr, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	return astwalk.StringValue(args[i])
}

func argInt(args []ast.Expr, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	return astwalk.IntValue(args[i])
}

// enumClassArg resolves the constructor argument of an enum rule: either
// a class name string or a type expression.
func enumClassArg(args []ast.Expr) (string, bool) {
	if len(args) != 1 {
		return "", false
	}
	if s, ok := astwalk.StringValue(args[0]); ok {
		return s, ok
	}
	arg := unparen(args[0])
	switch arg.(type) {
	case *ast.Ident, *ast.SelectorExpr:
		return gotypes.ExprString(arg), true
	case *ast.CompositeLit:
		if lit := arg.(*ast.CompositeLit); lit.Type != nil {
			return gotypes.ExprString(lit.Type), true
		}
	}
	return "", false
}

// Assignments collects the expression last assigned to each local
// variable in a body, in source order, so that later assignments win.
// Function literal bodies are skipped: their locals are not the
// method's.
func Assignments(body *ast.BlockStmt) map[string]ast.Expr {
	vars := make(map[string]ast.Expr)
	ast.Inspect(body, func(n ast.Node) bool {
		if _, isLit := n.(*ast.FuncLit); isLit {
			return false
		}
		assign, ok := n.(*ast.AssignStmt)
		if !ok || len(assign.Lhs) != len(assign.Rhs) {
			return true
		}
		for i, lhs := range assign.Lhs {
			ident, ok := lhs.(*ast.Ident)
			if !ok || ident.Name == "_" {
				continue
			}
			vars[ident.Name] = assign.Rhs[i]
		}
		return true
	})
	return vars
}

// collectReturns gathers the return statements of a body in source
// order, skipping nested function literals.
func collectReturns(body *ast.BlockStmt) []*ast.ReturnStmt {
	var returns []*ast.ReturnStmt
	ast.Inspect(body, func(n ast.Node) bool {
		if _, isLit := n.(*ast.FuncLit); isLit {
			return false
		}
		if ret, ok := n.(*ast.ReturnStmt); ok {
			returns = append(returns, ret)
		}
		return true
	})
	return returns
}

// firstSwitchReturn finds the first switch statement in a body and
// yields the return expression of its first returning case.
func firstSwitchReturn(body *ast.BlockStmt) ast.Expr {
	var result ast.Expr
	ast.Inspect(body, func(n ast.Node) bool {
		if result != nil {
			return false
		}
		if _, isLit := n.(*ast.FuncLit); isLit {
			return false
		}
		sw, ok := n.(*ast.SwitchStmt)
		if !ok {
			return true
		}
		result = switchCaseReturn(sw)
		return false
	})
	return result
}

// switchCaseReturn yields the return expression of the first returning
// case clause of a switch.
func switchCaseReturn(sw *ast.SwitchStmt) ast.Expr {
	if sw.Body == nil {
		return nil
	}
	for _, stmt := range sw.Body.List {
		clause, ok := stmt.(*ast.CaseClause)
		if !ok {
			continue
		}
		for _, inner := range clause.Body {
			if ret, ok := inner.(*ast.ReturnStmt); ok {
				if expr, ok := singleResult(ret); ok {
					return expr
				}
			}
		}
	}
	return nil
}

func singleResult(ret *ast.ReturnStmt) (ast.Expr, bool) {
	if ret == nil || len(ret.Results) != 1 {
		return nil, false
	}
	expr := unparen(ret.Results[0])
	if ident, ok := expr.(*ast.Ident); ok && ident.Name == "nil" {
		return nil, false
	}
	return expr, true
}

func isMergeCall(call *ast.CallExpr) bool {
	switch fun := unparen(call.Fun).(type) {
	case *ast.SelectorExpr:
		return mergeFuncNames[fun.Sel.Name]
	case *ast.Ident:
		return mergeFuncNames[fun.Name]
	}
	return false
}

// isImmediateCall reports whether a call invokes a function literal in
// place, the shape a conditional expression lowers to.
func isImmediateCall(call *ast.CallExpr) bool {
	_, ok := unparen(call.Fun).(*ast.FuncLit)
	return ok
}

func unparen(expr ast.Expr) ast.Expr {
	for {
		paren, ok := expr.(*ast.ParenExpr)
		if !ok {
			return expr
		}
		expr = paren.X
	}
}
