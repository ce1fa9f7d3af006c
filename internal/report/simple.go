package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/hildanuzulul/Ulcare/internal/model"
)

// textWidth is the width of rules and wrapped text in the text report.
const textWidth = 70

// gpsWarning is shown when a photo embeds its location.
const gpsWarning = "This photo contains GPS coordinates. Remove location data before sharing it."

// SimpleWriter outputs human-readable text reports for the terminal.
//
// Design decision: Plain text with ASCII rules rather than ANSI colors, so
// output can be piped to files or printed as is.
type SimpleWriter struct {
	baseWriter

	// verbose adds raw scores and timings.
	verbose bool

	// hidePatient omits the patient identity.
	hidePatient bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables raw scores and timings in the output.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithHidePatient omits the patient name and gender.
func WithHidePatient(hide bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.hidePatient = hide
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs one result in human-readable format.
func (w *SimpleWriter) Write(result *model.Classification) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	if result.Error != nil || result.ErrorMessage != "" {
		w.writeFailure(&sb, result)
	} else {
		w.writeResult(&sb, result)
	}
	if w.verbose {
		w.writeDetails(&sb, result)
	}
	sb.WriteString(strings.Repeat("=", textWidth))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

// writeHeader writes the title block with request information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *model.Classification) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", textWidth))
	sb.WriteString("\n")
	sb.WriteString("                 DIABETIC FOOT ULCER CLASSIFICATION\n")
	sb.WriteString(strings.Repeat("=", textWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Image:      %s\n", result.Image)
	if !w.hidePatient && result.PatientName != "" {
		fmt.Fprintf(sb, "Patient:    %s (%s)\n", result.PatientName, result.PatientGender.Display())
	}
	fmt.Fprintf(sb, "Date:       %s\n", result.RequestedAt.Format("2006-01-02 15:04:05 MST"))
	if result.PhotoWidth > 0 && result.PhotoHeight > 0 {
		fmt.Fprintf(sb, "Photo:      %dx%d\n", result.PhotoWidth, result.PhotoHeight)
	}
	sb.WriteString("\n")
}

// writeFailure writes the user-facing error message.
func (w *SimpleWriter) writeFailure(sb *strings.Builder, result *model.Classification) {
	msg := result.ErrorMessage
	if msg == "" {
		msg = result.Error.Error()
	}
	sb.WriteString("Status:     ERROR\n\n")
	writeIndented(sb, msg)
	sb.WriteString("\n")
}

// writeResult writes the label and its guidance.
func (w *SimpleWriter) writeResult(sb *strings.Builder, result *model.Classification) {
	fmt.Fprintf(sb, "Severity:   [%s] %s", severityIndicator(result.Severity), result.DisplayLabel)
	if result.Confidence > 0 {
		fmt.Fprintf(sb, "  (confidence %.1f%%)", result.Confidence*100)
	}
	sb.WriteString("\n\n")

	if result.Detail != "" {
		sb.WriteString("Detail:\n")
		writeIndented(sb, result.Detail)
		sb.WriteString("\n")
	}
	if result.Action != "" {
		sb.WriteString("Recommended action:\n")
		writeIndented(sb, result.Action)
		sb.WriteString("\n")
	}

	if result.PhotoHasGPS {
		sb.WriteString("Note: ")
		sb.WriteString(gpsWarning)
		sb.WriteString("\n\n")
	}
}

// writeDetails writes raw scores and timings.
func (w *SimpleWriter) writeDetails(sb *strings.Builder, result *model.Classification) {
	sb.WriteString(strings.Repeat("-", textWidth))
	sb.WriteString("\n")

	if len(result.Scores) > 0 {
		sb.WriteString("Scores:\n")
		for i, score := range result.Scores {
			label := model.SeverityFromIndex(i).Display()
			if i >= model.ClassCount {
				label = fmt.Sprintf("extra[%d]", i)
			}
			fmt.Fprintf(sb, "  %-16s %10.4f\n", label, score)
		}
		sb.WriteString("\n")
	}
	if result.Fingerprint != "" {
		fmt.Fprintf(sb, "Fingerprint: %s\n", result.Fingerprint)
	}
	fmt.Fprintf(sb, "Request ID:  %s\n", result.ID)
	fmt.Fprintf(sb, "Decode:      %s\n", result.DecodeDuration)
	fmt.Fprintf(sb, "Inference:   %s\n", result.InferenceDuration)
	sb.WriteString("\n")
}

// WriteSummary outputs the totals of a batch run.
func (w *SimpleWriter) WriteSummary(summary *Summary) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", textWidth))
	sb.WriteString("\n")
	sb.WriteString("BATCH SUMMARY\n")
	sb.WriteString(strings.Repeat("-", textWidth))
	sb.WriteString("\n\n")

	for _, c := range summary.Counts {
		fmt.Fprintf(&sb, "  [%-3s] %-16s %d\n", severityIndicator(c.Severity), c.Severity.Display(), c.Count)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  Classified: %d of %d\n", summary.Classified, summary.Total)
	if summary.Failed > 0 {
		fmt.Fprintf(&sb, "  Failed:     %d\n", summary.Failed)
	}
	if summary.Worst.Known() {
		fmt.Fprintf(&sb, "  Most severe: %s\n", summary.Worst.Display())
	}
	if summary.WithGPS > 0 {
		fmt.Fprintf(&sb, "  %d photo(s) contain GPS coordinates.\n", summary.WithGPS)
	}
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

// severityIndicator returns a visual indicator for the severity level.
func severityIndicator(s model.Severity) string {
	switch s {
	case model.SeverityUrgent:
		return "!!!"
	case model.SeverityMediumUrgent:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLightMedium:
		return "-"
	case model.SeverityLight:
		return "."
	default:
		return "?"
	}
}

// writeIndented writes text wrapped to the report width, indented by two
// spaces. Existing line breaks are kept.
func writeIndented(sb *strings.Builder, text string) {
	for _, line := range strings.Split(text, "\n") {
		for _, wrapped := range wrapLine(line, textWidth-2) {
			sb.WriteString("  ")
			sb.WriteString(wrapped)
			sb.WriteString("\n")
		}
	}
}

// wrapLine splits line at spaces so no piece exceeds width runes, unless a
// single word is longer.
func wrapLine(line string, width int) []string {
	words := strings.Fields(line)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len([]rune(current))+1+len([]rune(word)) > width {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	return append(lines, current)
}
