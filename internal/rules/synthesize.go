// internal/rules/synthesize.go
package rules

/*
 * Parameter synthesis.
 *
 * Synthesizer folds each field's rule tokens into one parameter
 * definition: type, format, requiredness, numeric and length bounds,
 * pattern, enum constraint, upload description, human description, and
 * an example value.
 *
 * Type resolution precedence: file, integer, number, boolean, array,
 * enum backing type, string. Bound rules (min, max, size, between) are
 * type-gated so exactly one constraint pair is populated: length bounds
 * for strings, value bounds for numerics, item bounds for arrays, and
 * nothing for files or booleans (file sizes live on the upload
 * description instead).
 *
 * Synthesis is defensive: empty and underscore-prefixed field paths,
 * and fields carrying the bare exclude rule, are skipped silently.
 * Malformed parameter text within a token degrades to the token being
 * ignored for that concern, never to a failed build.
 */

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/solatis/formtrace/internal/types"
)

// BuildOptions carries the per-request context synthesis draws on.
type BuildOptions struct {
	// Attributes overrides field display names in descriptions.
	Attributes map[string]string
	// PackagePath qualifies bare enum references.
	PackagePath string
	// ImportAliases qualifies aliased enum references.
	ImportAliases map[string]string
}

// Synthesizer builds parameter definitions from rule sets.
type Synthesizer struct {
	enums *EnumAnalyzer
}

func NewSynthesizer(enums *EnumAnalyzer) *Synthesizer {
	return &Synthesizer{enums: enums}
}

// BuildFromRules synthesizes parameters from a flat rule set, in sorted
// field order. Confirmed fields contribute a companion _confirmation
// parameter directly after their base.
func (s *Synthesizer) BuildFromRules(rules types.FieldRuleSet, opts BuildOptions) []types.ParameterDefinition {
	var params []types.ParameterDefinition
	for _, field := range rules.Fields() {
		tokens := rules[field]
		p := s.build(field, tokens, opts, nil)
		if p == nil {
			continue
		}
		params = append(params, *p)
		if twin := confirmedTwin(*p, tokens); twin != nil {
			params = append(params, *twin)
		}
	}
	return params
}

// BuildFromConditional synthesizes parameters from a conditional
// analysis result. Each parameter carries one conditional annotation
// per branch that mentions its field, and is conditionally required
// when at least one branch requires it.
func (s *Synthesizer) BuildFromConditional(res *types.ConditionalRuleResult, opts BuildOptions) []types.ParameterDefinition {
	if res == nil || len(res.MergedRules) == 0 {
		return nil
	}
	var params []types.ParameterDefinition
	for _, field := range res.MergedRules.Fields() {
		tokens := res.MergedRules[field]
		annotations := branchAnnotations(field, res.Branches)
		if len(annotations) == 0 {
			continue
		}
		p := s.build(field, tokens, opts, annotations)
		if p == nil {
			continue
		}
		params = append(params, *p)
		if twin := confirmedTwin(*p, tokens); twin != nil {
			params = append(params, *twin)
		}
	}
	return params
}

// branchAnnotations collects the per-branch conditional entries for one
// field, in branch order.
func branchAnnotations(field string, branches []types.RuleSetBranch) []types.ConditionalRule {
	var annotations []types.ConditionalRule
	for _, branch := range branches {
		if !branch.Mentions(field) {
			continue
		}
		annotations = append(annotations, types.ConditionalRule{
			Conditions: branch.Conditions,
			Rules:      branch.Rules[field],
		})
	}
	return annotations
}

// build synthesizes one parameter. A nil conditional slice means a flat
// build; a non-nil slice carries the branch annotations of a
// conditional build. Returns nil for fields that must not appear.
func (s *Synthesizer) build(field string, tokens []types.RuleToken, opts BuildOptions, conditional []types.ConditionalRule) *types.ParameterDefinition {
	if field == "" || strings.HasPrefix(field, "_") {
		return nil
	}
	if HasExclude(tokens) {
		return nil
	}

	enumInfo := s.enums.Analyze(tokens, opts.PackagePath, opts.ImportAliases)
	fileInfo := AnalyzeFileUpload(field, tokens)

	p := &types.ParameterDefinition{
		Name:       field,
		Type:       resolveType(tokens, enumInfo, fileInfo != nil),
		Validation: rawStrings(tokens),
		Enum:       enumInfo,
	}

	details := ConditionalDetails(tokens)
	if conditional != nil {
		p.ConditionalRules = conditional
		condReq := HasConditionalRequired(tokens)
		for _, annotation := range conditional {
			if IsRequired(annotation.Rules) {
				condReq = true
				break
			}
		}
		p.ConditionalRequired = condReq
	} else {
		for i := range details {
			p.ConditionalRules = append(p.ConditionalRules, types.ConditionalRule{Detail: &details[i]})
		}
		p.Required = IsRequired(tokens)
		p.ConditionalRequired = !p.Required && HasConditionalRequired(tokens) && len(p.ConditionalRules) > 0
	}

	if p.Type == types.TypeFile {
		p.Format = "binary"
		p.FileInfo = fileInfo
	} else {
		p.Format = InferFormat(tokens)
	}

	applyConstraints(p, tokens)
	p.Pattern = extractPattern(tokens)
	p.Description = describe(field, p, tokens, opts.Attributes, details)
	p.Example = exampleValue(p, tokens)
	return p
}

// resolveType resolves the parameter type by fixed precedence.
func resolveType(tokens []types.RuleToken, enumInfo *types.EnumInfo, isFile bool) types.ParamType {
	if isFile {
		return types.TypeFile
	}
	switch {
	case HasRule(tokens, "integer"):
		return types.TypeInteger
	case HasRule(tokens, "numeric") || HasRule(tokens, "decimal"):
		return types.TypeNumber
	case HasRule(tokens, "boolean") || HasRule(tokens, "accepted") || HasRule(tokens, "accepted_if") ||
		HasRule(tokens, "declined") || HasRule(tokens, "declined_if"):
		return types.TypeBoolean
	case HasRule(tokens, "array"):
		return types.TypeArray
	case enumInfo != nil:
		if enumInfo.BackingType == types.BackingInt {
			return types.TypeInteger
		}
		return types.TypeString
	}
	return types.TypeString
}

// applyConstraints populates the bound pair matching the parameter
// type. Exclusive comparison rules only apply to numeric types.
func applyConstraints(p *types.ParameterDefinition, tokens []types.RuleToken) {
	numeric := p.Type == types.TypeInteger || p.Type == types.TypeNumber
	for _, t := range tokens {
		switch t.Name {
		case "min":
			if v, ok := paramFloat(t.Params); ok {
				applyLowerBound(p, v)
			}
		case "max":
			if v, ok := paramFloat(t.Params); ok {
				applyUpperBound(p, v)
			}
		case "size":
			if v, ok := paramFloat(t.Params); ok {
				applyLowerBound(p, v)
				applyUpperBound(p, v)
			}
		case "between":
			lo, hi, ok := paramFloatPair(t.Params)
			if ok {
				applyLowerBound(p, lo)
				applyUpperBound(p, hi)
			}
		case "gt":
			if v, ok := paramFloat(t.Params); ok && numeric {
				p.ExclusiveMinimum = &v
			}
		case "gte":
			if v, ok := paramFloat(t.Params); ok && numeric {
				p.Minimum = &v
			}
		case "lt":
			if v, ok := paramFloat(t.Params); ok && numeric {
				p.ExclusiveMaximum = &v
			}
		case "lte":
			if v, ok := paramFloat(t.Params); ok && numeric {
				p.Maximum = &v
			}
		}
	}
}

func applyLowerBound(p *types.ParameterDefinition, v float64) {
	switch p.Type {
	case types.TypeString:
		n := int(v)
		p.MinLength = &n
	case types.TypeInteger, types.TypeNumber:
		p.Minimum = &v
	case types.TypeArray:
		n := int(v)
		p.MinItems = &n
	}
}

func applyUpperBound(p *types.ParameterDefinition, v float64) {
	switch p.Type {
	case types.TypeString:
		n := int(v)
		p.MaxLength = &n
	case types.TypeInteger, types.TypeNumber:
		p.Maximum = &v
	case types.TypeArray:
		n := int(v)
		p.MaxItems = &n
	}
}

func paramFloat(params string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(params), 64)
	return v, err == nil
}

func paramFloatPair(params string) (float64, float64, bool) {
	parts := splitParams(params)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lo, err1 := strconv.ParseFloat(parts[0], 64)
	hi, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

// extractPattern yields the pattern of the first regex rule, with the
// delimiters and trailing flags stripped and escaped delimiters
// restored.
func extractPattern(tokens []types.RuleToken) string {
	t, ok := FindRule(tokens, "regex")
	if !ok {
		return ""
	}
	return stripRegexDelimiters(t.Params)
}

func stripRegexDelimiters(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) < 2 {
		return raw
	}
	delim := raw[0]
	if isPatternChar(delim) {
		return raw
	}
	end := strings.LastIndexByte(raw, delim)
	if end <= 0 {
		return raw
	}
	pattern := raw[1:end]
	return strings.ReplaceAll(pattern, `\`+string(delim), string(delim))
}

func isPatternChar(b byte) bool {
	return b == '^' || b == '\\' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// confirmedTwin builds the companion parameter for a confirmed field:
// same type, length bounds, and requiredness, but no format, enum, or
// example of its own.
func confirmedTwin(base types.ParameterDefinition, tokens []types.RuleToken) *types.ParameterDefinition {
	if !HasRule(tokens, "confirmed") {
		return nil
	}
	name := base.Name + "_confirmation"
	return &types.ParameterDefinition{
		Name:                name,
		Type:                base.Type,
		Required:            base.Required,
		ConditionalRequired: base.ConditionalRequired,
		ConditionalRules:    base.ConditionalRules,
		MinLength:           base.MinLength,
		MaxLength:           base.MaxLength,
		Validation:          rawStrings(tokens),
		Description:         titleCase(name),
	}
}

// describe builds the human description: attribute override or
// title-cased field path, followed by parenthetical notes for bounds,
// conditional rules, date constraints, and enum references.
func describe(field string, p *types.ParameterDefinition, tokens []types.RuleToken, attributes map[string]string, details []types.ConditionalRuleDetail) string {
	base := attributes[field]
	if base == "" {
		base = titleCase(field)
	}

	var notes []string
	if p.MinLength != nil {
		notes = append(notes, fmt.Sprintf("min %d characters", *p.MinLength))
	}
	if p.MaxLength != nil {
		notes = append(notes, fmt.Sprintf("max %d characters", *p.MaxLength))
	}
	for _, d := range details {
		if note := detailNote(d); note != "" {
			notes = append(notes, note)
		}
	}
	for _, t := range tokens {
		switch t.Name {
		case "after":
			notes = append(notes, "must be after "+t.Params)
		case "after_or_equal":
			notes = append(notes, "must be on or after "+t.Params)
		case "before":
			notes = append(notes, "must be before "+t.Params)
		case "before_or_equal":
			notes = append(notes, "must be on or before "+t.Params)
		case "date_equals":
			notes = append(notes, "must equal "+t.Params)
		case "timezone":
			notes = append(notes, "must be a valid timezone")
		case "date_format":
			notes = append(notes, "format: "+t.Params)
		}
	}
	if p.Enum != nil {
		notes = append(notes, enumBaseName(p.Enum.Class))
	}

	for _, note := range notes {
		base += " (" + note + ")"
	}
	return base
}

// detailNote phrases one conditional rule annotation.
func detailNote(d types.ConditionalRuleDetail) string {
	params := d.DetailParams()
	subject := strings.Join(params, ", ")
	var field, value string
	if len(params) > 0 {
		field = params[0]
	}
	if len(params) > 1 {
		value = strings.Join(params[1:], ", ")
	}
	switch d.Type {
	case "required_if":
		if value != "" {
			return fmt.Sprintf("required when %s is %s", field, value)
		}
		return fmt.Sprintf("required when %s is set", field)
	case "required_unless":
		if value != "" {
			return fmt.Sprintf("required unless %s is %s", field, value)
		}
		return fmt.Sprintf("required unless %s is set", field)
	case "required_with":
		return fmt.Sprintf("required when %s is present", subject)
	case "required_with_all":
		return fmt.Sprintf("required when %s are all present", subject)
	case "required_without":
		return fmt.Sprintf("required when %s is absent", subject)
	case "required_without_all":
		return fmt.Sprintf("required when %s are all absent", subject)
	case "prohibited_if":
		if value != "" {
			return fmt.Sprintf("prohibited when %s is %s", field, value)
		}
		return fmt.Sprintf("prohibited when %s is set", field)
	case "prohibited_unless":
		if value != "" {
			return fmt.Sprintf("prohibited unless %s is %s", field, value)
		}
		return fmt.Sprintf("prohibited unless %s is set", field)
	case "exclude_if":
		if value != "" {
			return fmt.Sprintf("excluded when %s is %s", field, value)
		}
		return fmt.Sprintf("excluded when %s is set", field)
	case "exclude_unless":
		if value != "" {
			return fmt.Sprintf("excluded unless %s is %s", field, value)
		}
		return fmt.Sprintf("excluded unless %s is set", field)
	case "exclude_with":
		return fmt.Sprintf("excluded when %s is present", subject)
	case "exclude_without":
		return fmt.Sprintf("excluded when %s is absent", subject)
	}
	return ""
}

// titleCase turns a field path into a display name: segments split on
// separators, wildcard segments dropped, each word capitalized.
func titleCase(field string) string {
	var words []string
	for _, segment := range strings.FieldsFunc(field, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	}) {
		if segment == "*" {
			continue
		}
		words = append(words, capitalize(segment))
	}
	return strings.Join(words, " ")
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

// enumBaseName yields the unqualified type name of an enum class.
func enumBaseName(class string) string {
	if i := strings.LastIndex(class, "."); i >= 0 {
		return class[i+1:]
	}
	if i := strings.LastIndex(class, "/"); i >= 0 {
		return class[i+1:]
	}
	return class
}

// referenceExample is the instant example dates and times render from.
var referenceExample = time.Date(2024, time.May, 14, 15, 30, 0, 0, time.UTC)

// exampleValue generates a representative example honoring the
// parameter's type, format, enum, and bounds.
func exampleValue(p *types.ParameterDefinition, tokens []types.RuleToken) any {
	if p.Enum != nil && len(p.Enum.Values) > 0 {
		return p.Enum.Values[0]
	}
	switch p.Type {
	case types.TypeFile:
		return nil
	case types.TypeBoolean:
		if HasRule(tokens, "declined") || HasRule(tokens, "declined_if") {
			return false
		}
		return true
	case types.TypeInteger:
		return integerExample(p)
	case types.TypeNumber:
		return numberExample(p, tokens)
	case types.TypeArray:
		return []any{}
	}
	return stringExample(p, tokens)
}

func integerExample(p *types.ParameterDefinition) int {
	switch {
	case p.Minimum != nil:
		return int(*p.Minimum)
	case p.ExclusiveMinimum != nil:
		return int(*p.ExclusiveMinimum) + 1
	case p.Maximum != nil && *p.Maximum < 1:
		return int(*p.Maximum)
	case p.ExclusiveMaximum != nil && *p.ExclusiveMaximum <= 1:
		return int(*p.ExclusiveMaximum) - 1
	}
	return 1
}

func numberExample(p *types.ParameterDefinition, tokens []types.RuleToken) float64 {
	v := 1.5
	switch {
	case p.Minimum != nil:
		v = *p.Minimum
	case p.ExclusiveMinimum != nil:
		v = *p.ExclusiveMinimum + 1
	case p.Maximum != nil && *p.Maximum < v:
		v = *p.Maximum
	}
	if t, ok := FindRule(tokens, "decimal"); ok {
		if parts := splitParams(t.Params); len(parts) > 0 {
			if scale, err := strconv.Atoi(parts[0]); err == nil && scale >= 0 {
				shift := math.Pow(10, float64(scale))
				v = math.Round(v*shift) / shift
			}
		}
	}
	return v
}

func stringExample(p *types.ParameterDefinition, tokens []types.RuleToken) string {
	switch p.Format {
	case "email":
		return "user@example.com"
	case "uri":
		return "https://example.com"
	case "uuid":
		return "550e8400-e29b-41d4-a716-446655440000"
	case "ulid":
		return "01ARZ3NDEKTSV4RRFFQ69G5FAV"
	case "ipv4":
		return "192.168.1.1"
	case "ipv6":
		return "2001:db8::1"
	case "mac":
		return "00:1b:44:11:3a:b7"
	case "password":
		return "S3cure!Passw0rd"
	case "date", "date-time":
		if t, ok := FindRule(tokens, "date_format"); ok && t.Params != "" {
			return referenceExample.Format(t.Params)
		}
		if p.Format == "date-time" {
			return referenceExample.Format(time.RFC3339)
		}
		return referenceExample.Format("2006-01-02")
	}
	s := "example"
	if p.MaxLength != nil && *p.MaxLength < len(s) && *p.MaxLength >= 0 {
		s = s[:*p.MaxLength]
	}
	if p.MinLength != nil && len(s) < *p.MinLength {
		s += strings.Repeat("a", *p.MinLength-len(s))
	}
	return s
}

func rawStrings(tokens []types.RuleToken) []string {
	if len(tokens) == 0 {
		return nil
	}
	raw := make([]string, 0, len(tokens))
	for _, t := range tokens {
		raw = append(raw, t.Raw)
	}
	return raw
}
