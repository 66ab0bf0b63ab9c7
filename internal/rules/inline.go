// internal/rules/inline.go
package rules

/*
 * Inline request resolution.
 *
 * Requests declared inline (an Inline value or a bare rules function
 * passed to a handler) have no named type to scan, so resolution runs
 * in two strategies:
 *
 *   1. AST-first: locate the function literal through its runtime
 *      source position, parse the declaring file, and run conditional
 *      path analysis over the literal's body. This preserves branch
 *      structure.
 *   2. Reflective fallback: invoke the rules function with zero-value
 *      arguments and normalize the returned map. Conditional structure
 *      collapses into a single default branch.
 *
 * Each failure mode records its own diagnostic tag so downstream
 * consumers can tell a missing file from an unparseable one from a
 * literal the locator could not find.
 *
 * The rules invocation is critical: when it fails, the whole resolution
 * yields an empty result. Attribute and message invocations are
 * non-critical; their failures degrade to empty maps while the rules
 * result is kept.
 */

import (
	"fmt"
	"go/ast"
	"go/parser"
	"net/http"
	"os"
	"reflect"
	"runtime"
	"strconv"
	"strings"

	"github.com/solatis/formtrace/internal/astwalk"
	"github.com/solatis/formtrace/internal/types"
	"github.com/solatis/formtrace/validate"
)

// InlineHandle abstracts an inline request target: something with a
// rules function, optionally attributes and messages functions, and a
// best-effort source position.
type InlineHandle interface {
	// Name identifies the target in diagnostics.
	Name() string
	// Source yields the file and line the rules function is declared
	// at, or ErrNoSourceLocation.
	Source() (file string, line int, err error)
	// CallRules invokes the rules function and returns the raw map.
	CallRules() (map[string]any, error)
	// CallAttributes invokes the attributes function when present. A
	// missing function yields nil, nil.
	CallAttributes() (map[string]string, error)
	// CallMessages invokes the messages function when present.
	CallMessages() (map[string]string, error)
}

// NewHandle wraps an inline target into a handle. Accepted targets:
// validate.Inline values, bare functions returning a rules map, and
// values implementing validate.FormRequest.
func NewHandle(target any) (InlineHandle, error) {
	switch t := target.(type) {
	case validate.Inline:
		return newInlineValueHandle(t)
	case *validate.Inline:
		if t == nil {
			return nil, types.ErrNotAFunc
		}
		return newInlineValueHandle(*t)
	case validate.FormRequest:
		return newRequestHandle(t), nil
	}
	v := reflect.ValueOf(target)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return nil, types.ErrNotAFunc
	}
	return &funcHandle{rules: v, display: funcDisplayName(v)}, nil
}

func newInlineValueHandle(inline validate.Inline) (InlineHandle, error) {
	v := reflect.ValueOf(inline.Rules)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return nil, types.ErrNoRulesFunc
	}
	return &funcHandle{
		rules:      v,
		attributes: inline.Attributes,
		messages:   inline.Messages,
		display:    funcDisplayName(v),
	}, nil
}

func newRequestHandle(req validate.FormRequest) InlineHandle {
	h := &funcHandle{
		rules:   reflect.ValueOf(req.Rules),
		display: reflect.TypeOf(req).String(),
	}
	if ha, ok := req.(validate.HasAttributes); ok {
		h.attributes = ha.Attributes
	}
	if hm, ok := req.(validate.HasMessages); ok {
		h.messages = hm.Messages
	}
	return h
}

// funcHandle is the single handle implementation: a rules function
// value plus optional attributes and messages functions.
type funcHandle struct {
	rules      reflect.Value
	attributes func() map[string]string
	messages   func() map[string]string
	display    string
}

func (h *funcHandle) Name() string {
	return h.display
}

func (h *funcHandle) Source() (string, int, error) {
	fn := runtime.FuncForPC(h.rules.Pointer())
	if fn == nil {
		return "", 0, types.ErrNoSourceLocation
	}
	file, line := fn.FileLine(fn.Entry())
	if file == "" || line <= 0 {
		return "", 0, types.ErrNoSourceLocation
	}
	return file, line, nil
}

func (h *funcHandle) CallRules() (raw map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw, err = nil, fmt.Errorf("rules invocation panicked: %v", r)
		}
	}()
	out := h.rules.Call(callArgs(h.rules.Type()))
	if len(out) == 0 {
		return nil, fmt.Errorf("rules function returns no value")
	}
	return rulesMap(out[0])
}

func (h *funcHandle) CallAttributes() (m map[string]string, err error) {
	return callStringMap(h.attributes)
}

func (h *funcHandle) CallMessages() (m map[string]string, err error) {
	return callStringMap(h.messages)
}

func callStringMap(fn func() map[string]string) (m map[string]string, err error) {
	if fn == nil {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("invocation panicked: %v", r)
		}
	}()
	return fn(), nil
}

// callArgs builds zero-value arguments for a rules function, populating
// request-shaped parameters so method guards inside do not dereference
// nil.
func callArgs(t reflect.Type) []reflect.Value {
	n := t.NumIn()
	if t.IsVariadic() {
		n--
	}
	args := make([]reflect.Value, 0, n)
	for i := 0; i < n; i++ {
		args = append(args, zeroArg(t.In(i)))
	}
	return args
}

func zeroArg(t reflect.Type) reflect.Value {
	switch {
	case t == reflect.TypeOf((*http.Request)(nil)):
		return reflect.ValueOf(&http.Request{Method: http.MethodGet})
	case t == reflect.TypeOf((*validate.Request)(nil)):
		return reflect.ValueOf(&validate.Request{Method: http.MethodGet})
	case t == reflect.TypeOf(validate.Request{}):
		return reflect.ValueOf(validate.Request{Method: http.MethodGet})
	case t.Kind() == reflect.Ptr:
		return reflect.New(t.Elem())
	}
	return reflect.Zero(t)
}

// rulesMap converts a rules function result into a raw map.
func rulesMap(out reflect.Value) (map[string]any, error) {
	iface := out.Interface()
	switch m := iface.(type) {
	case validate.Rules:
		return map[string]any(m), nil
	case map[string]any:
		return m, nil
	}
	v := reflect.ValueOf(iface)
	if v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String {
		raw := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			raw[iter.Key().String()] = iter.Value().Interface()
		}
		return raw, nil
	}
	return nil, fmt.Errorf("unsupported rules return type %T", iface)
}

func funcDisplayName(v reflect.Value) string {
	fn := runtime.FuncForPC(v.Pointer())
	if fn == nil {
		return "inline"
	}
	name := fn.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// InlineDetails is the full resolution of an inline target.
type InlineDetails struct {
	Rules      types.FieldRuleSet
	Attributes map[string]string
	Messages   map[string]string
}

// InlineResolver resolves inline targets to rule sets and details.
// Not safe for concurrent use.
type InlineResolver struct {
	acc   *astwalk.Accessor
	paths *PathAnalyzer
	diag  *types.Collector
}

func NewInlineResolver(diag *types.Collector) *InlineResolver {
	return &InlineResolver{
		acc:   astwalk.NewAccessor(diag),
		paths: NewPathAnalyzer(diag),
		diag:  diag,
	}
}

// Resolve yields the merged rule set of an inline target.
func (r *InlineResolver) Resolve(h InlineHandle) types.FieldRuleSet {
	return r.ResolveConditional(h).MergedRules
}

// ResolveConditional resolves an inline target preserving conditional
// structure when the AST strategy succeeds, and collapsing to a single
// default branch on reflective fallback.
func (r *InlineResolver) ResolveConditional(h InlineHandle) *types.ConditionalRuleResult {
	if res := r.resolveAST(h); res != nil {
		return res
	}
	return r.resolveReflective(h)
}

// ResolveDetails resolves rules plus attributes and messages. Only a
// rules failure voids the whole result.
func (r *InlineResolver) ResolveDetails(h InlineHandle) *InlineDetails {
	details := &InlineDetails{
		Attributes: map[string]string{},
		Messages:   map[string]string{},
	}
	if res := r.resolveAST(h); res != nil {
		details.Rules = res.MergedRules
	} else {
		raw, err := h.CallRules()
		if err != nil {
			r.diag.Error(fmt.Sprintf("inline resolution: rules invocation failed for %s: %v", h.Name(), err),
				map[string]string{types.MetaErrorType: types.ErrTypeMethodInvocation})
			details.Rules = types.FieldRuleSet{}
			return details
		}
		details.Rules = NormalizeRules(raw)
	}
	if attrs, err := h.CallAttributes(); err != nil {
		r.diag.Warn(fmt.Sprintf("inline resolution: attributes invocation failed for %s: %v", h.Name(), err),
			map[string]string{types.MetaErrorType: types.ErrTypeNonCriticalMethod})
	} else if attrs != nil {
		details.Attributes = attrs
	}
	if msgs, err := h.CallMessages(); err != nil {
		r.diag.Warn(fmt.Sprintf("inline resolution: messages invocation failed for %s: %v", h.Name(), err),
			map[string]string{types.MetaErrorType: types.ErrTypeNonCriticalMethod})
	} else if msgs != nil {
		details.Messages = msgs
	}
	return details
}

// resolveAST runs the AST strategy: locate, parse, analyze. Returns nil
// when any step fails, after recording the step's diagnostic.
func (r *InlineResolver) resolveAST(h InlineHandle) *types.ConditionalRuleResult {
	file, line, err := h.Source()
	if err != nil {
		r.diag.Warn(fmt.Sprintf("inline resolution: no source location for %s", h.Name()),
			map[string]string{types.MetaErrorType: types.ErrTypeAnonymousNoLineInfo})
		return nil
	}
	src, err := os.ReadFile(file)
	if err != nil {
		r.diag.Warn(fmt.Sprintf("inline resolution: cannot read %s: %v", file, err),
			map[string]string{types.MetaErrorType: types.ErrTypeFileNotFound, "file": file})
		return nil
	}
	parsed, err := parser.ParseFile(r.acc.FileSet(), file, src, parser.SkipObjectResolution)
	if err != nil {
		r.diag.Error(fmt.Sprintf("inline resolution: cannot parse %s: %v", file, err),
			map[string]string{types.MetaErrorType: types.ErrTypeAnonymousParse, "file": file})
		return nil
	}
	if parsed == nil || len(parsed.Decls) == 0 {
		r.diag.Warn(fmt.Sprintf("inline resolution: %s parsed to an empty tree", file),
			map[string]string{types.MetaErrorType: types.ErrTypeAnonymousNullResult, "file": file})
		return nil
	}
	fn := r.locate(parsed, line)
	if fn == nil {
		r.diag.Warn(fmt.Sprintf("inline resolution: no inline declaration at %s:%d", file, line),
			map[string]string{types.MetaErrorType: types.ErrTypeAnonymousNodeNotFound, "file": file, "line": strconv.Itoa(line)})
		return nil
	}
	return r.paths.Analyze(fn.Body)
}

// locate finds the rules function literal at a line: the Rules entry of
// an Inline literal when one encloses the line, otherwise the innermost
// function literal.
func (r *InlineResolver) locate(parsed *ast.File, line int) *ast.FuncLit {
	if lit := r.acc.InlineAt(parsed, line); lit != nil {
		if fn := astwalk.InlineFunc(lit, "Rules"); fn != nil {
			return fn
		}
	}
	return r.acc.FuncLitAt(parsed, line)
}

// resolveReflective invokes the rules function and wraps the result in
// a single unconditional branch.
func (r *InlineResolver) resolveReflective(h InlineHandle) *types.ConditionalRuleResult {
	res := &types.ConditionalRuleResult{MergedRules: types.FieldRuleSet{}}
	raw, err := h.CallRules()
	if err != nil {
		r.diag.Error(fmt.Sprintf("inline resolution: rules invocation failed for %s: %v", h.Name(), err),
			map[string]string{types.MetaErrorType: types.ErrTypeMethodInvocation})
		return res
	}
	rules := NormalizeRules(raw)
	res.Branches = []types.RuleSetBranch{{
		Conditions:  []types.Condition{},
		Rules:       rules,
		Probability: 1,
	}}
	for field, tokens := range rules {
		res.MergedRules[field] = tokens
	}
	return res
}
