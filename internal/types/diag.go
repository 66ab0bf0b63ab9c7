// internal/types/diag.go
package types

/*
 * Diagnostics collection for analysis runs.
 *
 * The collector is the analyzer's only accumulating state: an append-only
 * log of warnings and errors gathered across many sequential analyzer calls
 * in one process run. It is never consulted for control flow; components
 * record and continue on a best-effort basis, and consumers (CLI summary,
 * tests) read the entries after analysis completes.
 *
 * Why an explicit handle: failures surface from deep inside AST walks where
 * returning them would force every caller to thread error lists. Passing
 * the collector as a parameter keeps the accumulation visible in signatures
 * without resorting to package-level mutable state.
 *
 * Concurrency: calls within one analysis run are sequential by design, so
 * the collector is unsynchronized. Use one collector per run.
 */

// Severity classifies a diagnostic entry.
type Severity string

// Diagnostic severities.
const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// MetaErrorType is the metadata key carrying the error_type tag.
const MetaErrorType = "error_type"

// Diagnostic is one recorded warning or error. Metadata always contains an
// error_type tag plus whatever context locates the failure (source label,
// file path, offending expression).
type Diagnostic struct {
	ID       DiagnosticID      `json:"id"`
	Severity Severity          `json:"severity"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ErrorType returns the entry's error_type tag, or "".
func (d Diagnostic) ErrorType() string {
	return d.Metadata[MetaErrorType]
}

// Collector accumulates diagnostics for one analysis session.
// Methods tolerate a nil receiver so callers without a collector (pure
// helper tests) need no stub.
type Collector struct {
	session SessionID
	entries []Diagnostic
}

// NewCollector creates a collector with a fresh session ID.
func NewCollector() *Collector {
	return &Collector{session: NewSessionID()}
}

// Session returns the collector's session ID.
func (c *Collector) Session() SessionID {
	if c == nil {
		return ""
	}
	return c.session
}

// Warn records a warning-severity diagnostic.
func (c *Collector) Warn(message string, metadata map[string]string) {
	c.record(SeverityWarning, message, metadata)
}

// Error records an error-severity diagnostic.
func (c *Collector) Error(message string, metadata map[string]string) {
	c.record(SeverityError, message, metadata)
}

func (c *Collector) record(severity Severity, message string, metadata map[string]string) {
	if c == nil {
		return
	}
	c.entries = append(c.entries, Diagnostic{
		ID:       NewDiagnosticID(),
		Severity: severity,
		Message:  message,
		Metadata: metadata,
	})
}

// Entries returns a copy of all recorded diagnostics in record order.
// Copying preserves the append-only contract for consumers that hold the
// slice across further analyzer calls.
func (c *Collector) Entries() []Diagnostic {
	if c == nil {
		return nil
	}
	out := make([]Diagnostic, len(c.entries))
	copy(out, c.entries)
	return out
}

// Count returns the number of entries with the given severity.
func (c *Collector) Count(severity Severity) int {
	if c == nil {
		return 0
	}
	n := 0
	for _, d := range c.entries {
		if d.Severity == severity {
			n++
		}
	}
	return n
}

// HasErrors reports whether any error-severity entry was recorded.
func (c *Collector) HasErrors() bool {
	return c.Count(SeverityError) > 0
}
