// internal/rules/conditional.go
package rules

// Conditional path analysis.
//
// PathAnalyzer walks a rules method body and derives one branch per
// return path, each carrying the condition stack that guards it. Every
// conditional return is treated as an ordinary branch: an early return
// with no rules still produces a branch with an empty rule set, because
// "this request variant has no parameters" is itself schema information.
//
// Branch probability is the naive independence estimate 1/2^k for k
// stacked conditions. It exists to rank branches by reachability when
// rendering, not to model real traffic.
//
// Condition classification:
//   - http_method: IsMethod("X") calls and Method == comparisons,
//     including net/http method constants
//   - user_method: Is*/Has*/Can* predicate calls chained off User(),
//     with a leading nil guard absorbed into the same condition
//   - custom: everything else, preserved as source text
//
// An else-if chain contributes sibling branches at the same depth, each
// guarded by its own single condition; a trailing else adds no condition
// of its own. Bodies without conditionals produce exactly one branch
// with probability 1.

import (
	"fmt"
	"go/ast"
	"go/token"
	gotypes "go/types"
	"math"
	"strings"

	"github.com/solatis/formtrace/internal/astwalk"
	"github.com/solatis/formtrace/internal/types"
)

// PathAnalyzer derives conditional rule branches from method bodies.
// Not safe for concurrent use.
type PathAnalyzer struct {
	ex        *Extractor
	diag      *types.Collector
	truncated bool
}

func NewPathAnalyzer(diag *types.Collector) *PathAnalyzer {
	return &PathAnalyzer{ex: NewExtractor(diag), diag: diag}
}

// Extractor exposes the underlying flat extractor.
func (p *PathAnalyzer) Extractor() *Extractor {
	return p.ex
}

// Analyze walks a rules method body into its conditional branches and
// the merged union of all branch rules. A nil body yields an empty
// result with no branches.
func (p *PathAnalyzer) Analyze(body *ast.BlockStmt) *types.ConditionalRuleResult {
	res := &types.ConditionalRuleResult{MergedRules: types.FieldRuleSet{}}
	if body == nil {
		return res
	}
	p.truncated = false
	vars := Assignments(body)
	p.walkStmts(body.List, nil, vars, res)
	p.mergeBranches(res)
	return res
}

// walkStmts walks one statement list under a condition stack. Returns
// true when the list terminates in a return on every examined path so
// callers stop walking dead statements.
func (p *PathAnalyzer) walkStmts(stmts []ast.Stmt, stack []types.Condition, vars map[string]ast.Expr, res *types.ConditionalRuleResult) bool {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.IfStmt:
			if p.walkIf(s, stack, vars, res) {
				return true
			}
		case *ast.ReturnStmt:
			p.emitBranch(stack, p.ex.ResolveReturn(s, vars), res)
			return true
		case *ast.SwitchStmt:
			if expr := switchCaseReturn(s); expr != nil {
				set, _ := p.ex.resolveExpr(expr, vars, nil)
				if set == nil {
					set = types.FieldRuleSet{}
				}
				p.emitBranch(stack, set, res)
				return true
			}
		case *ast.BlockStmt:
			if p.walkStmts(s.List, stack, vars, res) {
				return true
			}
		}
	}
	return false
}

// walkIf walks an if statement: body under the stacked condition, an
// else-if as a sibling condition at the same depth, and a trailing else
// block with no condition added. Returns true only when an else branch
// guarantees termination, since the guarded paths are optional.
func (p *PathAnalyzer) walkIf(s *ast.IfStmt, stack []types.Condition, vars map[string]ast.Expr, res *types.ConditionalRuleResult) bool {
	if len(stack) >= types.MaxConditionDepth {
		p.diag.Warn(fmt.Sprintf("conditional analysis: condition depth exceeds %d, pruning deeper branches", types.MaxConditionDepth),
			map[string]string{types.MetaErrorType: types.ErrTypeConditionDepth})
		return false
	}
	cond := ClassifyCondition(s.Cond)
	p.walkStmts(s.Body.List, pushCondition(stack, cond), vars, res)
	switch alt := s.Else.(type) {
	case *ast.IfStmt:
		return p.walkIf(alt, stack, vars, res)
	case *ast.BlockStmt:
		return p.walkStmts(alt.List, stack, vars, res)
	}
	return false
}

// emitBranch records one return path as a branch. Emission stops once
// the branch cap is reached so pathological inputs stay bounded.
func (p *PathAnalyzer) emitBranch(stack []types.Condition, rules types.FieldRuleSet, res *types.ConditionalRuleResult) {
	if len(res.Branches) >= types.MaxBranches {
		if !p.truncated {
			p.truncated = true
			p.diag.Warn(fmt.Sprintf("conditional analysis: branch count exceeds %d, dropping further branches", types.MaxBranches), nil)
		}
		return
	}
	conditions := make([]types.Condition, len(stack))
	copy(conditions, stack)
	if rules == nil {
		rules = types.FieldRuleSet{}
	}
	res.Branches = append(res.Branches, types.RuleSetBranch{
		Conditions:  conditions,
		Rules:       rules,
		Probability: 1 / math.Pow(2, float64(len(conditions))),
	})
}

// mergeBranches builds the union of all branch rules. Tokens append in
// branch order; duplicates across branches are kept, the merged view is
// a list, not a set.
func (p *PathAnalyzer) mergeBranches(res *types.ConditionalRuleResult) {
	for _, branch := range res.Branches {
		for _, field := range branch.Rules.Fields() {
			res.MergedRules[field] = append(res.MergedRules[field], branch.Rules[field]...)
		}
	}
}

func pushCondition(stack []types.Condition, cond types.Condition) []types.Condition {
	next := make([]types.Condition, len(stack)+1)
	copy(next, stack)
	next[len(stack)] = cond
	return next
}

// ClassifyCondition classifies one guard expression into a typed
// condition. Expressions outside the recognized shapes classify as
// custom with their source text preserved.
func ClassifyCondition(expr ast.Expr) types.Condition {
	expr = unparen(expr)

	if call, ok := expr.(*ast.CallExpr); ok {
		if sel, ok := unparen(call.Fun).(*ast.SelectorExpr); ok {
			if sel.Sel.Name == "IsMethod" && len(call.Args) == 1 {
				if verb, ok := astwalk.StringValue(call.Args[0]); ok {
					return types.Condition{Type: types.ConditionHTTPMethod, Method: strings.ToUpper(verb)}
				}
			}
			if inner, ok := unparen(sel.X).(*ast.CallExpr); ok && isUserCall(inner) && isRolePredicate(sel.Sel.Name) {
				return types.Condition{
					Type:       types.ConditionUserMethod,
					Method:     sel.Sel.Name,
					Expression: gotypes.ExprString(expr),
				}
			}
		}
	}

	if bin, ok := expr.(*ast.BinaryExpr); ok {
		if bin.Op == token.EQL {
			if verb, ok := methodComparison(bin); ok {
				return types.Condition{Type: types.ConditionHTTPMethod, Method: verb}
			}
		}
		// A nil guard followed by a user predicate is one logical
		// condition, not two.
		if bin.Op == token.LAND && isUserNilGuard(bin.X) {
			inner := ClassifyCondition(bin.Y)
			if inner.Type == types.ConditionUserMethod {
				inner.Expression = gotypes.ExprString(expr)
				return inner
			}
		}
	}

	return types.Condition{Type: types.ConditionCustom, Expression: gotypes.ExprString(expr)}
}

// methodComparison matches Method == "X" comparisons in either operand
// order, with the verb as a string literal or a net/http constant.
func methodComparison(bin *ast.BinaryExpr) (string, bool) {
	if verb, ok := methodOperands(bin.X, bin.Y); ok {
		return verb, true
	}
	return methodOperands(bin.Y, bin.X)
}

func methodOperands(selSide, verbSide ast.Expr) (string, bool) {
	sel, ok := unparen(selSide).(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Method" {
		return "", false
	}
	if verb, ok := astwalk.StringValue(verbSide); ok {
		return strings.ToUpper(verb), true
	}
	if verbSel, ok := unparen(verbSide).(*ast.SelectorExpr); ok {
		if pkg, ok := unparen(verbSel.X).(*ast.Ident); ok && pkg.Name == "http" {
			if name, found := strings.CutPrefix(verbSel.Sel.Name, "Method"); found && name != "" {
				return strings.ToUpper(name), true
			}
		}
	}
	return "", false
}

func isUserCall(call *ast.CallExpr) bool {
	if len(call.Args) != 0 {
		return false
	}
	switch fun := unparen(call.Fun).(type) {
	case *ast.SelectorExpr:
		return fun.Sel.Name == "User"
	case *ast.Ident:
		return fun.Name == "User"
	}
	return false
}

// isRolePredicate reports whether a method name reads as a boolean
// capability check.
func isRolePredicate(name string) bool {
	return strings.HasPrefix(name, "Is") ||
		strings.HasPrefix(name, "Has") ||
		strings.HasPrefix(name, "Can")
}

// isUserNilGuard matches User() != nil in either operand order.
func isUserNilGuard(expr ast.Expr) bool {
	bin, ok := unparen(expr).(*ast.BinaryExpr)
	if !ok || bin.Op != token.NEQ {
		return false
	}
	return isUserCallExpr(bin.X) && isNilIdent(bin.Y) ||
		isUserCallExpr(bin.Y) && isNilIdent(bin.X)
}

func isUserCallExpr(expr ast.Expr) bool {
	call, ok := unparen(expr).(*ast.CallExpr)
	return ok && isUserCall(call)
}

func isNilIdent(expr ast.Expr) bool {
	ident, ok := unparen(expr).(*ast.Ident)
	return ok && ident.Name == "nil"
}
