// Package emit renders analysis results: an OpenAPI 3 components
// document built with kin-openapi, and YAML/JSON report serialization.
package emit

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/solatis/formtrace/internal/core/scan"
	"github.com/solatis/formtrace/internal/types"
)

// OpenAPIDocument renders analyzed request types as an OpenAPI 3
// components document: one object schema per request type, plus query
// parameter entries for types with GET-gated branches. The document is
// validated before it is returned.
func OpenAPIDocument(ctx context.Context, title, version string, reports []scan.RequestReport) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   title,
			Version: version,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas:    make(openapi3.Schemas),
			Parameters: make(openapi3.ParametersMap),
		},
	}

	for _, r := range reports {
		name := schemaName(doc.Components.Schemas, r)
		doc.Components.Schemas[name] = openapi3.NewSchemaRef("", requestSchema(r))

		if !hasGetBranch(r) {
			continue
		}
		for _, p := range r.Parameters {
			// Wildcard element paths describe array items, not
			// standalone query parameters.
			if strings.Contains(p.Name, "*") {
				continue
			}
			doc.Components.Parameters[name+"."+p.Name] = &openapi3.ParameterRef{
				Value: &openapi3.Parameter{
					Name:        p.Name,
					In:          openapi3.ParameterInQuery,
					Required:    p.Required,
					Description: p.Description,
					Schema:      openapi3.NewSchemaRef("", paramSchema(p)),
				},
			}
		}
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("generated document failed validation: %w", err)
	}
	return doc, nil
}

// schemaName keeps component names unique when two packages declare
// request types with the same name.
func schemaName(existing openapi3.Schemas, r scan.RequestReport) string {
	if _, taken := existing[r.TypeName]; !taken {
		return r.TypeName
	}
	name := path.Base(r.PackagePath) + "." + r.TypeName
	for i := 2; ; i++ {
		if _, taken := existing[name]; !taken {
			return name
		}
		name = fmt.Sprintf("%s.%s%d", path.Base(r.PackagePath), r.TypeName, i)
	}
}

// requestSchema builds the object schema for one request type. A
// wildcard path such as attachments.* collapses into an array property
// whose items carry the element constraints; dotted paths stay flat.
func requestSchema(r scan.RequestReport) *openapi3.Schema {
	obj := openapi3.NewObjectSchema()
	obj.Description = fmt.Sprintf("Validated request parameters for %s.", r.TypeName)

	for _, p := range r.Parameters {
		name := p.Name
		var ref *openapi3.SchemaRef
		if strings.HasSuffix(name, ".*") {
			name = strings.TrimSuffix(name, ".*")
			arr := openapi3.NewArraySchema()
			arr.Items = openapi3.NewSchemaRef("", paramSchema(p))
			ref = openapi3.NewSchemaRef("", arr)
		} else {
			ref = openapi3.NewSchemaRef("", paramSchema(p))
		}
		obj.Properties[name] = ref
		if p.Required {
			obj.Required = append(obj.Required, name)
		}
	}
	return obj
}

// paramSchema maps one synthesized parameter onto an OpenAPI schema.
// Bound pairs are already type-gated by the synthesizer, so each schema
// only ever receives the bounds matching its type.
func paramSchema(p types.ParameterDefinition) *openapi3.Schema {
	var schema *openapi3.Schema
	switch p.Type {
	case types.TypeInteger:
		schema = openapi3.NewIntegerSchema()
	case types.TypeNumber:
		schema = openapi3.NewFloat64Schema()
	case types.TypeBoolean:
		schema = openapi3.NewBoolSchema()
	case types.TypeArray:
		schema = openapi3.NewArraySchema()
		// Element type is unknown at the syntax level unless a wildcard
		// path constrains it; default to string items.
		schema.Items = openapi3.NewSchemaRef("", openapi3.NewStringSchema())
	case types.TypeFile:
		schema = openapi3.NewStringSchema()
		schema.Format = "binary"
	default:
		schema = openapi3.NewStringSchema()
	}

	if p.Format != "" {
		schema.Format = p.Format
	}
	schema.Description = p.Description
	if p.Example != nil {
		schema.Example = p.Example
	}
	if p.Pattern != "" {
		schema.Pattern = p.Pattern
	}
	if p.MinLength != nil {
		schema.MinLength = uint64(*p.MinLength)
	}
	if p.MaxLength != nil {
		schema.MaxLength = uint64Ptr(*p.MaxLength)
	}
	if p.Minimum != nil {
		schema.Min = p.Minimum
	}
	if p.Maximum != nil {
		schema.Max = p.Maximum
	}
	if p.ExclusiveMinimum != nil {
		schema.Min = p.ExclusiveMinimum
		schema.ExclusiveMin = true
	}
	if p.ExclusiveMaximum != nil {
		schema.Max = p.ExclusiveMaximum
		schema.ExclusiveMax = true
	}
	if p.MinItems != nil {
		schema.MinItems = uint64(*p.MinItems)
	}
	if p.MaxItems != nil {
		schema.MaxItems = uint64Ptr(*p.MaxItems)
	}
	if p.Enum != nil {
		schema.Enum = append([]interface{}{}, p.Enum.Values...)
	}
	for _, raw := range p.Validation {
		if raw == "nullable" {
			schema.Nullable = true
		}
	}
	return schema
}

// hasGetBranch reports whether any branch gates on the GET verb.
func hasGetBranch(r scan.RequestReport) bool {
	for _, b := range r.Branches {
		for _, c := range b.Conditions {
			if c.Type == types.ConditionHTTPMethod && c.Method == "GET" {
				return true
			}
		}
	}
	return false
}

func uint64Ptr(n int) *uint64 {
	v := uint64(n)
	return &v
}
