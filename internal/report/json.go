package report

import (
	"encoding/json"
	"io"

	"github.com/hildanuzulul/Ulcare/internal/model"
)

// JSONWriter outputs results in JSON format for tool integration.
//
// Design decision: encoding/json, like the rest of the codebase. The result
// type already carries its JSON tags and needs no custom codec.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is embedded in every document when non-empty.
	version string

	// hidePatient omits the patient name and gender.
	hidePatient bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion adds the tool version to every document.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// WithJSONHidePatient omits the patient name and gender from every document.
func WithJSONHidePatient(hide bool) JSONWriterOption {
	return func(w *JSONWriter) {
		w.hidePatient = hide
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONResult wraps a single result with output metadata.
type JSONResult struct {
	Version string                `json:"version,omitempty"`
	Result  *model.Classification `json:"result"`
}

// JSONSummary wraps a batch summary with output metadata.
type JSONSummary struct {
	Version string   `json:"version,omitempty"`
	Summary *Summary `json:"summary"`
}

// Write outputs one result as a JSON document.
func (w *JSONWriter) Write(result *model.Classification) (int, error) {
	return w.writeJSON(&JSONResult{Version: w.version, Result: w.prepare(result)})
}

// WriteSummary outputs the batch summary, including every result.
func (w *JSONWriter) WriteSummary(summary *Summary) (int, error) {
	if w.hidePatient && summary != nil {
		copied := *summary
		copied.Results = make([]*model.Classification, len(summary.Results))
		for i, r := range summary.Results {
			copied.Results[i] = w.prepare(r)
		}
		summary = &copied
	}
	return w.writeJSON(&JSONSummary{Version: w.version, Summary: summary})
}

// prepare returns result, or a copy without the identity when hidePatient
// is set. The caller's result is never modified.
func (w *JSONWriter) prepare(result *model.Classification) *model.Classification {
	if !w.hidePatient || result == nil {
		return result
	}
	copied := *result
	copied.PatientName = ""
	copied.PatientGender = model.GenderNone
	return &copied
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
