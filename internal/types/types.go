// Package types provides domain models shared across formtrace components.
//
// Zero-dependency design: types.go, rules.go, and errors.go use only the
// standard library so downstream consumers of analysis output stay light.
// ID utilities in ids.go import uuid but are isolated for selective
// inclusion; the diagnostics collector in diag.go builds on them.
//
// Separation from the analyzer: go/ast handling lives in internal/astwalk
// and internal/rules. This package contains the value objects that cross
// component boundaries (parameter definitions, rule tokens, branches,
// diagnostics) and the resource limits the analyzer enforces.
package types

// ParamType is the resolved base type of a synthesized parameter.
type ParamType string

// Parameter base types, in the order the synthesizer resolves them.
const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeFile    ParamType = "file"
)

// Enum backing types.
const (
	BackingString = "string"
	BackingInt    = "int"
)

// Resource limits enforced by the analyzer to keep pathological inputs from
// degrading an analysis run. Hitting a limit is reported through the
// diagnostics collector, never raised.
const (
	// MaxSourceSize limits a single analyzed source unit.
	// 1MB covers any hand-written request declaration; larger inputs are
	// almost certainly generated code not worth analyzing.
	MaxSourceSize = 1024 * 1024

	// MaxConditionDepth bounds condition-stack growth during path analysis.
	// 32 levels is far beyond readable nesting; deeper chains stop
	// recursing and emit a diagnostic.
	MaxConditionDepth = 32

	// MaxBranches caps emitted branches per analyzed method.
	// An N-arm chain emits N+1 branches at most, so 1024 is unreachable
	// for real rule methods and bounds memory on adversarial input.
	MaxBranches = 1024
)

// ParameterDefinition is the synthesized description of one request
// parameter. It is a value object: created once by the synthesizer and read
// as plain data by emitters, caches, and tests. Exactly one of the
// length/numeric/item constraint pairs may be populated, selected solely by
// Type; FileInfo is non-nil iff Type is TypeFile; ConditionalRequired
// implies Required is false and ConditionalRules is non-empty.
type ParameterDefinition struct {
	Name                string            `json:"name"`
	Type                ParamType         `json:"type"`
	Format              string            `json:"format,omitempty"`
	Required            bool              `json:"required"`
	ConditionalRequired bool              `json:"conditionalRequired"`
	ConditionalRules    []ConditionalRule `json:"conditionalRules,omitempty"`
	Validation          []string          `json:"validation,omitempty"`
	Description         string            `json:"description,omitempty"`
	Example             any               `json:"example,omitempty"`
	Pattern             string            `json:"pattern,omitempty"`
	MinLength           *int              `json:"minLength,omitempty"`
	MaxLength           *int              `json:"maxLength,omitempty"`
	Minimum             *float64          `json:"minimum,omitempty"`
	Maximum             *float64          `json:"maximum,omitempty"`
	ExclusiveMinimum    *float64          `json:"exclusiveMinimum,omitempty"`
	ExclusiveMaximum    *float64          `json:"exclusiveMaximum,omitempty"`
	MinItems            *int              `json:"minItems,omitempty"`
	MaxItems            *int              `json:"maxItems,omitempty"`
	Enum                *EnumInfo         `json:"enum,omitempty"`
	FileInfo            *FileUploadInfo   `json:"fileInfo,omitempty"`
}

// EnumInfo describes an enum constraint attached to a parameter.
type EnumInfo struct {
	// Class is the qualified enum type reference as resolved from source.
	Class string `json:"class"`

	// Values holds the enum's declared constant values in declaration
	// order. Strings for string-backed enums, ints for int-backed.
	Values []any `json:"values"`

	// BackingType is BackingString or BackingInt.
	BackingType string `json:"backingType"`
}

// Dimensions holds image dimension bounds parsed from a dimensions rule.
// Nil fields were not constrained.
type Dimensions struct {
	Width     *int   `json:"width,omitempty"`
	Height    *int   `json:"height,omitempty"`
	MinWidth  *int   `json:"minWidth,omitempty"`
	MinHeight *int   `json:"minHeight,omitempty"`
	MaxWidth  *int   `json:"maxWidth,omitempty"`
	MaxHeight *int   `json:"maxHeight,omitempty"`
	Ratio     string `json:"ratio,omitempty"`
}

// FileUploadInfo describes a file-upload parameter. Sizes are stored in
// bytes; source rules state kilobytes and are converted on extraction.
// Multiple is true iff the field path contains a "*" wildcard segment.
type FileUploadInfo struct {
	IsImage    bool        `json:"isImage"`
	Mimes      []string    `json:"mimes,omitempty"`
	MimeTypes  []string    `json:"mimeTypes,omitempty"`
	MinSize    *int64      `json:"minSize,omitempty"`
	MaxSize    *int64      `json:"maxSize,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	Multiple   bool        `json:"multiple"`
}

// SourceUnit describes one analyzable piece of source. Text may be empty
// when FilePath is set; StartLine/EndLine of zero mean the whole unit.
// ImportAliases maps import alias to package path for reference resolution.
type SourceUnit struct {
	Text          string
	FilePath      string
	StartLine     int
	EndLine       int
	PackagePath   string
	ImportAliases map[string]string
}
