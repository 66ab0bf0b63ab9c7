// Package rule provides composite rule builders for validate.Rules values.
//
// Every builder canonicalizes to the same token grammar the analyzer reads
// out of source text ("name:param1,param2" fragments joined with "|"), via
// String. Rule sets obtained by invoking a rules function therefore
// normalize to exactly the tokens static extraction would have produced.
package rule

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Rule is a composite validation rule with a canonical token form.
type Rule interface {
	fmt.Stringer
}

// InRule constrains a field to a fixed set of values.
type InRule struct {
	values []any
}

// In builds an in-list rule. Canonical form: in:a,b,c.
func In(values ...any) InRule {
	return InRule{values: values}
}

func (r InRule) String() string {
	return "in:" + joinValues(r.values)
}

// NotInRule rejects a fixed set of values.
type NotInRule struct {
	values []any
}

// NotIn builds a not-in-list rule. Canonical form: not_in:a,b,c.
func NotIn(values ...any) NotInRule {
	return NotInRule{values: values}
}

func (r NotInRule) String() string {
	return "not_in:" + joinValues(r.values)
}

// UniqueRule requires the value to be absent from a table column.
type UniqueRule struct {
	table  string
	column string
}

// Unique builds a uniqueness rule. Canonical form: unique:table or
// unique:table:column.
func Unique(table string, column ...string) UniqueRule {
	r := UniqueRule{table: table}
	if len(column) > 0 {
		r.column = column[0]
	}
	return r
}

// Ignore excludes a row from the uniqueness check. The qualifier affects
// runtime validation only; the canonical token deliberately drops it, and
// static extraction strips the chained call the same way.
func (r UniqueRule) Ignore(id any) UniqueRule {
	return r
}

func (r UniqueRule) String() string {
	if r.column != "" {
		return "unique:" + r.table + ":" + r.column
	}
	return "unique:" + r.table
}

// ExistsRule requires the value to be present in a table column.
type ExistsRule struct {
	table  string
	column string
}

// Exists builds an existence rule. Canonical form: exists:table or
// exists:table:column.
func Exists(table string, column ...string) ExistsRule {
	r := ExistsRule{table: table}
	if len(column) > 0 {
		r.column = column[0]
	}
	return r
}

// Where narrows the existence check. Dropped from the canonical token,
// matching the static extraction of chained qualifiers.
func (r ExistsRule) Where(column string, value any) ExistsRule {
	return r
}

func (r ExistsRule) String() string {
	if r.column != "" {
		return "exists:" + r.table + ":" + r.column
	}
	return "exists:" + r.table
}

// RequiredIfRule marks a field required when another field holds a value.
type RequiredIfRule struct {
	field string
	value any
}

// RequiredIf builds a conditional-required rule. Canonical form:
// required_if:field:value.
func RequiredIf(field string, value any) RequiredIfRule {
	return RequiredIfRule{field: field, value: value}
}

func (r RequiredIfRule) String() string {
	return "required_if:" + r.field + ":" + formatValue(r.value)
}

// EnumRef constrains a field to the constants of a named enum type.
type EnumRef struct {
	// Class is the enum type reference, qualified with its package path
	// when known ("example.com/app/models.Status").
	Class string
}

// EnumOf builds an enum rule from a type parameter.
func EnumOf[T any]() EnumRef {
	t := reflect.TypeOf((*T)(nil)).Elem()
	class := t.Name()
	if pkg := t.PkgPath(); pkg != "" {
		class = pkg + "." + class
	}
	return EnumRef{Class: class}
}

// NewEnum builds an enum rule from a type name. The name is resolved
// against the analyzed file's package and import aliases.
func NewEnum(class string) EnumRef {
	return EnumRef{Class: class}
}

func (r EnumRef) String() string {
	return "enum:" + r.Class
}

// FileRule describes an uploaded file constraint.
type FileRule struct {
	image     bool
	minKB     *int
	maxKB     *int
	mimes     []string
	mimeTypes []string
}

// File builds a file-upload rule.
func File() *FileRule {
	return &FileRule{}
}

// Image builds a file-upload rule restricted to images.
func Image() *FileRule {
	return &FileRule{image: true}
}

// Min sets the minimum file size in kilobytes.
func (r *FileRule) Min(kb int) *FileRule {
	r.minKB = &kb
	return r
}

// Max sets the maximum file size in kilobytes.
func (r *FileRule) Max(kb int) *FileRule {
	r.maxKB = &kb
	return r
}

// Mimes restricts the upload to the given file extensions.
func (r *FileRule) Mimes(extensions ...string) *FileRule {
	r.mimes = append(r.mimes, extensions...)
	return r
}

// MimeTypes restricts the upload to the given MIME types.
func (r *FileRule) MimeTypes(mimeTypes ...string) *FileRule {
	r.mimeTypes = append(r.mimeTypes, mimeTypes...)
	return r
}

func (r *FileRule) String() string {
	parts := []string{"file"}
	if r.image {
		parts = append(parts, "image")
	}
	if r.minKB != nil {
		parts = append(parts, "min:"+strconv.Itoa(*r.minKB))
	}
	if r.maxKB != nil {
		parts = append(parts, "max:"+strconv.Itoa(*r.maxKB))
	}
	if len(r.mimes) > 0 {
		parts = append(parts, "mimes:"+strings.Join(r.mimes, ","))
	}
	if len(r.mimeTypes) > 0 {
		parts = append(parts, "mimetypes:"+strings.Join(r.mimeTypes, ","))
	}
	return strings.Join(parts, "|")
}

// PasswordRule describes password strength requirements. Its canonical
// token keeps the Password:: prefix so format inference can distinguish it
// from ordinary string rules.
type PasswordRule struct {
	parts []string
}

// Password builds a password strength rule.
func Password() *PasswordRule {
	return &PasswordRule{}
}

// Min sets the minimum password length.
func (r *PasswordRule) Min(length int) *PasswordRule {
	r.parts = append(r.parts, "min="+strconv.Itoa(length))
	return r
}

// Letters requires at least one letter.
func (r *PasswordRule) Letters() *PasswordRule {
	r.parts = append(r.parts, "letters")
	return r
}

// MixedCase requires both upper and lower case letters.
func (r *PasswordRule) MixedCase() *PasswordRule {
	r.parts = append(r.parts, "mixed")
	return r
}

// Numbers requires at least one digit.
func (r *PasswordRule) Numbers() *PasswordRule {
	r.parts = append(r.parts, "numbers")
	return r
}

// Symbols requires at least one symbol.
func (r *PasswordRule) Symbols() *PasswordRule {
	r.parts = append(r.parts, "symbols")
	return r
}

// Uncompromised rejects passwords found in known breach corpora.
func (r *PasswordRule) Uncompromised() *PasswordRule {
	r.parts = append(r.parts, "uncompromised")
	return r
}

func (r *PasswordRule) String() string {
	if len(r.parts) == 0 {
		return "Password::default"
	}
	return "Password::" + strings.Join(r.parts, ",")
}

// DimensionsRule constrains image dimensions.
type DimensionsRule struct {
	parts []string
}

// Dimensions builds an image dimensions rule. Canonical form:
// dimensions:min_width=100,max_height=500.
func Dimensions() *DimensionsRule {
	return &DimensionsRule{}
}

// Width requires an exact width in pixels.
func (r *DimensionsRule) Width(px int) *DimensionsRule {
	return r.add("width", px)
}

// Height requires an exact height in pixels.
func (r *DimensionsRule) Height(px int) *DimensionsRule {
	return r.add("height", px)
}

// MinWidth sets the minimum width in pixels.
func (r *DimensionsRule) MinWidth(px int) *DimensionsRule {
	return r.add("min_width", px)
}

// MinHeight sets the minimum height in pixels.
func (r *DimensionsRule) MinHeight(px int) *DimensionsRule {
	return r.add("min_height", px)
}

// MaxWidth sets the maximum width in pixels.
func (r *DimensionsRule) MaxWidth(px int) *DimensionsRule {
	return r.add("max_width", px)
}

// MaxHeight sets the maximum height in pixels.
func (r *DimensionsRule) MaxHeight(px int) *DimensionsRule {
	return r.add("max_height", px)
}

// Ratio constrains the width/height ratio, e.g. "3/2".
func (r *DimensionsRule) Ratio(ratio string) *DimensionsRule {
	r.parts = append(r.parts, "ratio="+ratio)
	return r
}

func (r *DimensionsRule) add(key string, px int) *DimensionsRule {
	r.parts = append(r.parts, key+"="+strconv.Itoa(px))
	return r
}

func (r *DimensionsRule) String() string {
	return "dimensions:" + strings.Join(r.parts, ",")
}

func joinValues(values []any) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, formatValue(v))
	}
	return strings.Join(parts, ",")
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
