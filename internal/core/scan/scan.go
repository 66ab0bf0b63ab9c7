// Package scan discovers request types across a project and runs the
// analysis pipeline over each one.
//
// Project loading uses golang.org/x/tools/go/packages with syntax-only
// needs: request discovery keys off declaration shape (a named receiver
// with a Rules method), never type information, so broken or partially
// loadable projects still yield results for everything that parses.
package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"go/ast"
	"sort"

	"golang.org/x/tools/go/packages"

	"github.com/solatis/formtrace/internal/astwalk"
	"github.com/solatis/formtrace/internal/core/db"
	"github.com/solatis/formtrace/internal/rules"
	"github.com/solatis/formtrace/internal/types"
)

// RequestReport is the analysis of one discovered request type.
type RequestReport struct {
	TypeName    string                      `json:"typeName"`
	File        string                      `json:"file"`
	PackagePath string                      `json:"packagePath"`
	Parameters  []types.ParameterDefinition `json:"parameters"`
	Branches    []types.RuleSetBranch       `json:"branches,omitempty"`
}

// Result aggregates one project scan.
type Result struct {
	Reports   []RequestReport `json:"reports"`
	Packages  int             `json:"packages"`
	CacheHits int             `json:"cacheHits"`
}

// Scanner loads packages, discovers rule methods and analyzes them.
// The store is optional; a nil store disables memoization.
type Scanner struct {
	diag  *types.Collector
	store *db.Store
}

// NewScanner builds a scanner recording diagnostics on diag.
func NewScanner(diag *types.Collector, store *db.Store) *Scanner {
	return &Scanner{diag: diag, store: store}
}

// Scan loads the patterns relative to dir and analyzes every request
// type found. Load failures for individual packages become parse
// diagnostics; only a failure to run the loader at all is returned.
func (s *Scanner) Scan(ctx context.Context, dir string, patterns ...string) (*Result, error) {
	cfg := &packages.Config{
		Mode:    packages.NeedName | packages.NeedFiles | packages.NeedSyntax,
		Context: ctx,
		Dir:     dir,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	// Load order is not contractual; sort so enum merging and report
	// order are stable across runs.
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].PkgPath < pkgs[j].PkgPath })

	for _, pkg := range pkgs {
		for _, perr := range pkg.Errors {
			s.diag.Error(perr.Msg, map[string]string{
				types.MetaErrorType: types.ErrTypeParse,
				"package":           pkg.PkgPath,
				"position":          perr.Pos,
			})
		}
	}

	// Enum declarations resolve across package boundaries, so every
	// loaded package contributes to one shared table before analysis.
	enums := rules.EnumTable{}
	for _, pkg := range pkgs {
		enums.Merge(rules.ScanEnums(pkg.Syntax, pkg.PkgPath))
	}

	analyzer := rules.New(s.diag, enums.Resolve)

	result := &Result{Packages: len(pkgs)}
	for _, pkg := range pkgs {
		for _, file := range pkg.Syntax {
			filename := pkg.Fset.Position(file.Pos()).Filename
			for _, decl := range rules.RulesDecls(file) {
				report := s.analyzeDecl(ctx, analyzer, pkg, file, filename, decl, result)
				result.Reports = append(result.Reports, report)
			}
		}
	}

	sort.Slice(result.Reports, func(i, j int) bool {
		a, b := result.Reports[i], result.Reports[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.TypeName < b.TypeName
	})

	return result, nil
}

// analyzeDecl analyzes one rules declaration, consulting the cache when
// one is configured. Cache trouble degrades to direct analysis.
func (s *Scanner) analyzeDecl(ctx context.Context, analyzer *rules.Analyzer, pkg *packages.Package, file *ast.File, filename string, decl *ast.FuncDecl, result *Result) RequestReport {
	typeName := astwalk.ReceiverTypeName(decl)
	if s.store == nil {
		return s.runAnalysis(analyzer, pkg, file, filename, decl)
	}

	key, err := db.NewKey(typeName, filename)
	if err != nil {
		s.warnCache(typeName, filename, "cache key unavailable: "+err.Error())
		return s.runAnalysis(analyzer, pkg, file, filename, decl)
	}

	var fresh *RequestReport
	payload, hit, err := s.store.Fetch(ctx, key, func(context.Context) ([]byte, error) {
		report := s.runAnalysis(analyzer, pkg, file, filename, decl)
		fresh = &report
		return json.Marshal(report)
	})
	if err != nil {
		s.warnCache(typeName, filename, "analysis cache degraded: "+err.Error())
	}
	if fresh != nil {
		return *fresh
	}
	if hit {
		var report RequestReport
		if err := json.Unmarshal(payload, &report); err == nil {
			result.CacheHits++
			return report
		}
		s.warnCache(typeName, filename, "malformed cache payload, recomputing")
	}
	return s.runAnalysis(analyzer, pkg, file, filename, decl)
}

func (s *Scanner) runAnalysis(analyzer *rules.Analyzer, pkg *packages.Package, file *ast.File, filename string, decl *ast.FuncDecl) RequestReport {
	unit := types.SourceUnit{
		FilePath:      filename,
		PackagePath:   pkg.PkgPath,
		ImportAliases: astwalk.ImportAliases(file),
	}
	res := analyzer.AnalyzeDecl(file, decl, unit)
	report := RequestReport{
		TypeName:    res.TypeName,
		File:        filename,
		PackagePath: pkg.PkgPath,
		Parameters:  res.Parameters,
	}
	if res.Conditional != nil {
		report.Branches = res.Conditional.Branches
	}
	return report
}

func (s *Scanner) warnCache(typeName, filename, message string) {
	s.diag.Warn(message, map[string]string{
		types.MetaErrorType: types.ErrTypeCache,
		"type":              typeName,
		"file":              filename,
	})
}
