package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/hildanuzulul/Ulcare/internal/model"
)

// MarkdownWriter outputs results in GitHub-flavored Markdown, suitable for
// attaching to a message to a clinician.
//
// Design decision: nao1215/markdown builds the document, so tables, alerts
// and the mermaid chart stay well-formed without hand-written escaping.
type MarkdownWriter struct {
	baseWriter

	// hidePatient omits the patient identity.
	hidePatient bool
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMarkdownHidePatient omits the patient name and gender.
func WithMarkdownHidePatient(hide bool) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.hidePatient = hide
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs one result as a Markdown document.
func (w *MarkdownWriter) Write(result *model.Classification) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Diabetic Foot Ulcer Classification")
	md.PlainText("")
	w.writeInfo(md, result)

	if result.Error != nil || result.ErrorMessage != "" {
		msg := result.ErrorMessage
		if msg == "" {
			msg = result.Error.Error()
		}
		md.Cautionf("Classification failed. %s", strings.ReplaceAll(msg, "\n", " "))
		md.PlainText("")
	} else {
		w.writeResult(md, result)
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeInfo writes the request information table.
func (w *MarkdownWriter) writeInfo(md *markdown.Markdown, result *model.Classification) {
	rows := [][]string{
		{"Image", "`" + result.Image + "`"},
		{"Date", result.RequestedAt.Format("2006-01-02 15:04:05 MST")},
	}
	if !w.hidePatient && result.PatientName != "" {
		rows = append(rows,
			[]string{"Patient", result.PatientName},
			[]string{"Gender", result.PatientGender.Display()},
		)
	}
	if result.PhotoWidth > 0 && result.PhotoHeight > 0 {
		rows = append(rows, []string{"Photo", fmt.Sprintf("%dx%d", result.PhotoWidth, result.PhotoHeight)})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeResult writes the label alert, guidance and scores.
func (w *MarkdownWriter) writeResult(md *markdown.Markdown, result *model.Classification) {
	md.H2("Severity: " + result.DisplayLabel)
	md.PlainText("")
	writeSeverityAlert(md, result.Severity)

	if result.Detail != "" {
		md.H2("Detail")
		md.PlainText("")
		md.PlainText(result.Detail)
		md.PlainText("")
	}
	if result.Action != "" {
		md.H2("Recommended Action")
		md.PlainText("")
		md.PlainText(result.Action)
		md.PlainText("")
	}

	if result.PhotoHasGPS {
		md.Warningf("%s", gpsWarning)
		md.PlainText("")
	}

	if len(result.Scores) > 0 {
		var sb strings.Builder
		for i, score := range result.Scores {
			fmt.Fprintf(&sb, "%s: %.4f\n", scoreLabel(i), score)
		}
		fmt.Fprintf(&sb, "confidence: %.1f%%", result.Confidence*100)
		md.Details("Model scores", sb.String())
		md.PlainText("")
	}
}

// writeSeverityAlert writes an alert whose weight follows the severity.
func writeSeverityAlert(md *markdown.Markdown, s model.Severity) {
	switch s {
	case model.SeverityUrgent:
		md.Cautionf("%s", "Go to the emergency department immediately.")
	case model.SeverityMediumUrgent:
		md.Warningf("%s", "Referral to a specialist foot care team is needed.")
	case model.SeverityMedium:
		md.Importantf("%s", "A clinical consultation is required. Do not rely on self-care.")
	case model.SeverityLightMedium:
		md.Note("Keep the wound clean and dressed, and review it within two weeks.")
	case model.SeverityLight:
		md.Tip("Continue daily foot care and monitor the wound.")
	default:
		md.Note("The photo could not be assigned a known severity.")
	}
	md.PlainText("")
}

// WriteSummary outputs the totals of a batch run with a distribution chart.
func (w *MarkdownWriter) WriteSummary(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Batch Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(summary.Counts)+2)
	for _, c := range summary.Counts {
		rows = append(rows, []string{c.Severity.Display(), strconv.Itoa(c.Count)})
	}
	rows = append(rows,
		[]string{"Failed", strconv.Itoa(summary.Failed)},
		[]string{"**Total**", "**" + strconv.Itoa(summary.Total) + "**"},
	)
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Photos"},
		Rows:   rows,
	})
	md.PlainText("")

	if summary.Classified > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Severity Distribution"),
			piechart.WithShowData(true),
		)
		for _, c := range summary.Counts {
			if c.Count > 0 {
				chart.LabelAndIntValue(c.Severity.Display(), uint64(c.Count)) //nolint:gosec // counts are non-negative
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	if summary.Worst.Known() {
		writeSeverityAlert(md, summary.Worst)
	}
	if summary.WithGPS > 0 {
		md.Warningf("%d photo(s) contain GPS coordinates. Remove location data before sharing them.", summary.WithGPS)
		md.PlainText("")
	}

	failed := make([]string, 0, summary.Failed)
	for _, r := range summary.Results {
		if r != nil && !r.Succeeded() {
			failed = append(failed, fmt.Sprintf("`%s`: %s", r.Image, firstLine(r.ErrorMessage)))
		}
	}
	if len(failed) > 0 {
		md.H2("Failed Photos")
		md.PlainText("")
		md.BulletList(failed...)
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [Ulcare](https://github.com/hildanuzulul/Ulcare). This result supports, and does not replace, a clinical examination.*")
}

// scoreLabel names the model output at index i.
func scoreLabel(i int) string {
	if i < model.ClassCount {
		return model.SeverityFromIndex(i).String()
	}
	return fmt.Sprintf("extra[%d]", i)
}

// firstLine returns the first line of s, or "unknown error" when blank.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown error"
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
