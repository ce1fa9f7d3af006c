package report

import (
	"io"

	"github.com/hildanuzulul/Ulcare/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs a single classification result.
	// Returns the number of bytes written and any error encountered.
	Write(result *model.Classification) (int, error)

	// WriteSummary outputs the totals of a batch run.
	WriteSummary(summary *Summary) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// The CLI uses it to show a text result on the terminal while a JSON or
// Markdown report goes to a file.
//
// Design decision: A separate type rather than io.MultiWriter because each
// destination renders its own format.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the result to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(result *model.Classification) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSummary outputs the summary to all configured Writers.
func (m *MultiWriter) WriteSummary(summary *Summary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
