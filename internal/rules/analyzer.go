// internal/rules/analyzer.go
package rules

/*
 * Analysis facade.
 *
 * Analyzer wires the pipeline end to end for one named request type:
 * parse the source unit, locate the rules method, run conditional path
 * analysis, pull attributes and messages from their declaring methods,
 * and synthesize parameters. Each step degrades independently; a type
 * without an Attributes method still synthesizes, a body that fails
 * extraction still reports its (empty) branches.
 *
 * Diagnostics flow through the collector handed to New; the analyzer
 * never logs on its own.
 */

import (
	"go/ast"

	"github.com/solatis/formtrace/internal/astwalk"
	"github.com/solatis/formtrace/internal/types"
)

// UnitResult is the full analysis of one request type in a source unit.
type UnitResult struct {
	TypeName    string
	Parameters  []types.ParameterDefinition
	Conditional *types.ConditionalRuleResult
	Attributes  map[string]string
	Messages    map[string]string
}

// Analyzer runs the extraction and synthesis pipeline. Not safe for
// concurrent use; sessions build one per goroutine.
type Analyzer struct {
	acc   *astwalk.Accessor
	paths *PathAnalyzer
	synth *Synthesizer
	diag  *types.Collector
}

// New builds an analyzer. The resolver supplies enum definitions; pass
// nil when no enum context is available.
func New(diag *types.Collector, resolver EnumResolver) *Analyzer {
	return &Analyzer{
		acc:   astwalk.NewAccessor(diag),
		paths: NewPathAnalyzer(diag),
		synth: NewSynthesizer(NewEnumAnalyzer(resolver)),
		diag:  diag,
	}
}

// Accessor exposes the underlying AST accessor.
func (a *Analyzer) Accessor() *astwalk.Accessor {
	return a.acc
}

// AnalyzeUnit analyzes the named request type in a source unit. A unit
// whose source cannot be parsed, or that lacks the type or its rules
// method, yields an empty result; the failure is already on the
// collector.
func (a *Analyzer) AnalyzeUnit(unit types.SourceUnit, typeName string) *UnitResult {
	res := &UnitResult{
		TypeName:    typeName,
		Conditional: &types.ConditionalRuleResult{MergedRules: types.FieldRuleSet{}},
	}
	file := a.parseUnit(unit)
	if file == nil {
		return res
	}
	return a.analyzeFile(file, unit, typeName)
}

// AnalyzeDecl analyzes a rules method declaration already located in a
// parsed file.
func (a *Analyzer) AnalyzeDecl(file *ast.File, decl *ast.FuncDecl, unit types.SourceUnit) *UnitResult {
	typeName := astwalk.ReceiverTypeName(decl)
	res := &UnitResult{TypeName: typeName}
	res.Conditional = a.paths.Analyze(decl.Body)
	res.Attributes = a.methodStringMap(file, typeName, "Attributes")
	res.Messages = a.methodStringMap(file, typeName, "Messages")
	res.Parameters = a.synth.BuildFromConditional(res.Conditional, a.buildOptions(file, unit, res.Attributes))
	return res
}

func (a *Analyzer) analyzeFile(file *ast.File, unit types.SourceUnit, typeName string) *UnitResult {
	res := &UnitResult{
		TypeName:    typeName,
		Conditional: &types.ConditionalRuleResult{MergedRules: types.FieldRuleSet{}},
	}
	method := astwalk.FindMethod(file, typeName, "Rules")
	if method == nil || method.Body == nil {
		return res
	}
	res.Conditional = a.paths.Analyze(method.Body)
	res.Attributes = a.methodStringMap(file, typeName, "Attributes")
	res.Messages = a.methodStringMap(file, typeName, "Messages")
	res.Parameters = a.synth.BuildFromConditional(res.Conditional, a.buildOptions(file, unit, res.Attributes))
	return res
}

// RulesDecls finds every rules method declaration in a file: named
// receivers with a Rules method.
func RulesDecls(file *ast.File) []*ast.FuncDecl {
	var decls []*ast.FuncDecl
	if file == nil {
		return decls
	}
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Name.Name != "Rules" || fd.Recv == nil || fd.Body == nil {
			continue
		}
		if astwalk.ReceiverTypeName(fd) == "" {
			continue
		}
		decls = append(decls, fd)
	}
	return decls
}

func (a *Analyzer) parseUnit(unit types.SourceUnit) *ast.File {
	if unit.Text != "" {
		label := unit.FilePath
		if label == "" {
			label = "source"
		}
		return a.acc.ParseSource(unit.Text, label)
	}
	if unit.FilePath != "" {
		return a.acc.ParseFile(unit.FilePath)
	}
	return nil
}

func (a *Analyzer) buildOptions(file *ast.File, unit types.SourceUnit, attributes map[string]string) BuildOptions {
	aliases := unit.ImportAliases
	if aliases == nil && file != nil {
		aliases = astwalk.ImportAliases(file)
	}
	return BuildOptions{
		Attributes:    attributes,
		PackagePath:   unit.PackagePath,
		ImportAliases: aliases,
	}
}

// methodStringMap extracts the literal string map returned by a method,
// typically Attributes or Messages. Non-literal returns yield nil.
func (a *Analyzer) methodStringMap(file *ast.File, typeName, method string) map[string]string {
	decl := astwalk.FindMethod(file, typeName, method)
	if decl == nil || decl.Body == nil {
		return nil
	}
	for _, ret := range collectReturns(decl.Body) {
		expr, ok := singleResult(ret)
		if !ok {
			continue
		}
		lit, ok := expr.(*ast.CompositeLit)
		if !ok {
			continue
		}
		keyed := astwalk.KeyedValues(lit)
		if len(keyed) == 0 {
			continue
		}
		out := make(map[string]string, len(keyed))
		for k, v := range keyed {
			if s, isString := v.(string); isString {
				out[k] = s
			}
		}
		return out
	}
	return nil
}
