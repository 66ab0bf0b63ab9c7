package types

import "errors"

// Sentinel errors for formtrace operations.
var (
	// ErrSourceTooLarge indicates a source unit exceeds MaxSourceSize.
	ErrSourceTooLarge = errors.New("source exceeds maximum size")

	// ErrTypeNotFound indicates a named type was not found in the AST.
	ErrTypeNotFound = errors.New("type not found")

	// ErrMethodNotFound indicates a method was not found on the target type.
	ErrMethodNotFound = errors.New("method not found")

	// ErrNoRulesFunc indicates a handle target carries no rules function.
	ErrNoRulesFunc = errors.New("handle target has no rules function")

	// ErrNotAFunc indicates a handle target is not callable.
	ErrNotAFunc = errors.New("handle target is not a function")

	// ErrNoSourceLocation indicates the runtime has no file or line
	// information for a function value.
	ErrNoSourceLocation = errors.New("no source location for function")

	// ErrNotAnEnum indicates a type reference did not resolve to an enum
	// declaration.
	ErrNotAnEnum = errors.New("type is not an enum declaration")

	// ErrCacheMiss indicates no cache entry exists for a key.
	ErrCacheMiss = errors.New("cache entry not found")

	// ErrCacheStale indicates a cache entry's fingerprint no longer
	// matches the source.
	ErrCacheStale = errors.New("cache entry is stale")
)

// Diagnostic error_type tags. Every warning or error the analyzer records
// carries one of these in its metadata so consumers can group and locate
// failures without parsing message text.
const (
	// ErrTypeParse tags malformed source text.
	ErrTypeParse = "parse_error"

	// ErrTypeFileNotFound tags a missing or unreadable source file.
	ErrTypeFileNotFound = "file_not_found"

	// ErrTypeAnonymousParse tags a parse failure while resolving an
	// inline rules declaration from its source range.
	ErrTypeAnonymousParse = "anonymous_ast_parse_error"

	// ErrTypeAnonymousNullResult tags an inline source range that parsed
	// to an empty AST.
	ErrTypeAnonymousNullResult = "anonymous_ast_null_result"

	// ErrTypeAnonymousNodeNotFound tags an inline declaration whose
	// function literal could not be located in the parsed file.
	ErrTypeAnonymousNodeNotFound = "anonymous_class_node_not_found"

	// ErrTypeAnonymousNoLineInfo tags a function value with no usable
	// file and line information.
	ErrTypeAnonymousNoLineInfo = "anonymous_line_info_unavailable"

	// ErrTypeMethodInvocation tags a failed reflective rules invocation.
	// Critical: the whole resolution yields an empty rule set.
	ErrTypeMethodInvocation = "anonymous_method_invocation_error"

	// ErrTypeNonCriticalMethod tags a failed attributes or messages
	// invocation. Non-critical: only that piece degrades to empty.
	ErrTypeNonCriticalMethod = "anonymous_non_critical_method_failure"

	// ErrTypeUnsupportedReturn tags a rule method return shape the
	// extractor does not evaluate (conditional expressions via
	// immediately-invoked function literals). The rule set degrades to
	// empty rather than being partially guessed.
	ErrTypeUnsupportedReturn = "unsupported_return_shape"

	// ErrTypeConditionDepth tags an if chain nested beyond
	// MaxConditionDepth.
	ErrTypeConditionDepth = "condition_depth_exceeded"

	// ErrTypeCache tags a degraded cache interaction. Always a warning:
	// cache trouble falls back to direct analysis, never blocks it.
	ErrTypeCache = "cache_error"
)
