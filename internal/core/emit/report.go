package emit

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/solatis/formtrace/internal/core/scan"
	"github.com/solatis/formtrace/internal/types"
)

// DiagnosticSummary counts collected diagnostics by severity.
type DiagnosticSummary struct {
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// ReportDocument is the serializable result of one analyze run.
type ReportDocument struct {
	Session     types.SessionID      `json:"session,omitempty"`
	Packages    int                  `json:"packages"`
	CacheHits   int                  `json:"cacheHits"`
	Summary     DiagnosticSummary    `json:"summary"`
	Reports     []scan.RequestReport `json:"reports"`
	Diagnostics []types.Diagnostic   `json:"diagnostics,omitempty"`
}

// BuildReport assembles the document from a scan result and the run's
// diagnostics.
func BuildReport(res *scan.Result, session types.SessionID, diags []types.Diagnostic) *ReportDocument {
	doc := &ReportDocument{
		Session:     session,
		Packages:    res.Packages,
		CacheHits:   res.CacheHits,
		Reports:     res.Reports,
		Diagnostics: diags,
	}
	for _, d := range diags {
		switch d.Severity {
		case types.SeverityError:
			doc.Summary.Errors++
		default:
			doc.Summary.Warnings++
		}
	}
	return doc
}

// WriteReport serializes the document as yaml or json.
func WriteReport(w io.Writer, doc *ReportDocument, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		data = append(data, '\n')
		_, err = w.Write(data)
		return err
	case "yaml":
		return writeYAML(w, doc)
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

// WriteOpenAPI serializes an OpenAPI document as YAML.
func WriteOpenAPI(w io.Writer, doc *openapi3.T) error {
	data, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to reshape document: %w", err)
	}
	return encodeYAML(w, tree)
}

// writeYAML marshals through JSON first so yaml output carries the json
// field names instead of lowercased Go identifiers.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to reshape report: %w", err)
	}
	return encodeYAML(w, tree)
}

func encodeYAML(w io.Writer, tree any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(tree); err != nil {
		enc.Close()
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}
