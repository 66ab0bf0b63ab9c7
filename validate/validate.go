// Package validate is the declaration surface analyzed projects import to
// describe request validation rules.
//
// Zero-dependency design: analyzed projects pull this package into their own
// builds, so it must not drag analyzer dependencies (parsers, database
// drivers) along. Only the standard library is used here.
//
// The analyzer understands this package two ways: statically, by recognizing
// the call and literal shapes below in parsed source, and reflectively, by
// invoking rule functions and normalizing their return values. Keeping both
// paths anchored to the same declarations is what makes the two extraction
// strategies agree.
package validate

import "strings"

// Rules maps a field path to its validation spec. Values may be a
// pipe-delimited string ("required|string|max:255"), a list of rule
// fragments, or builder values from the rule subpackage. Field paths are
// dotted, with "*" denoting each element of an array segment
// ("items.*.price"). Keys beginning with "_" are reserved and never treated
// as user input.
type Rules map[string]any

// FormRequest is implemented by named request types that declare rules.
type FormRequest interface {
	Rules() Rules
}

// HasAttributes is implemented by request types that supply human-readable
// field names used in generated descriptions.
type HasAttributes interface {
	Attributes() map[string]string
}

// HasMessages is implemented by request types that supply custom validation
// messages.
type HasMessages interface {
	Messages() map[string]string
}

// Merge combines rule sets left to right. Later sets overwrite earlier
// entries on key conflict. The analyzer flattens static Merge calls with the
// same semantics, so rule methods may compose shared fragments freely.
func Merge(sets ...Rules) Rules {
	merged := make(Rules)
	for _, set := range sets {
		for field, spec := range set {
			merged[field] = spec
		}
	}
	return merged
}

// Request carries the request attributes rule methods branch on. Analyzed
// projects are free to use their own request types; the analyzer matches
// the IsMethod and User call shapes by name, not by this concrete type.
type Request struct {
	// Method is the HTTP verb of the incoming request.
	Method string

	// Principal is the authenticated caller, if any. Projects with richer
	// user models typically wrap Request and expose their own User method.
	Principal any
}

// IsMethod reports whether the request verb matches, case-insensitively.
func (r *Request) IsMethod(method string) bool {
	return strings.EqualFold(r.Method, method)
}

// User returns the authenticated principal, or nil.
func (r *Request) User() any {
	return r.Principal
}

// Inline declares validation rules at the point of use, without a named
// request type. Rules holds the rule function and accepts any signature
// whose parameters can be zero-constructed (commonly func() Rules or
// func(*validate.Request) Rules). Attributes and Messages are optional.
//
// Inline values are resolved by source range rather than type name, so the
// analyzer can recover their rules even though no named declaration exists.
type Inline struct {
	Rules      any
	Attributes func() map[string]string
	Messages   func() map[string]string
}
