package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hildanuzulul/Ulcare/internal/model"
)

// createTestResult creates a classified result with sample data.
func createTestResult() *model.Classification {
	c := model.NewClassification("req-1", "left-foot.jpg")
	c.RequestedAt = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	c.PhotoWidth = 1024
	c.PhotoHeight = 768
	c.Fingerprint = "abc123"
	c.WithIdentity(&model.Identity{Name: "Budi", Gender: model.GenderMale})
	c.SetResult(model.SeverityMediumUrgent, model.Scores{0.1, 0.2, 0.3, 2.5, 0.4})
	c.Steps = append(c.Steps, "decode", "tensor", "infer", "resolve", "guidance")
	return c
}

// createFailedResult creates a result whose pipeline failed.
func createFailedResult() *model.Classification {
	c := model.NewClassification("req-2", "blurry.jpg")
	c.Error = errors.New("decode failed")
	c.ErrorMessage = "Could not read the photo blurry.jpg.\nTry another photo."
	return c
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and guidance", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"DIABETIC FOOT ULCER CLASSIFICATION",
			"left-foot.jpg",
			"Budi (Male)",
			"1024x768",
			"[!!] Medium - Urgent",
			"confidence",
			"refer to specialist team",
			"Recommended action:",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
		if strings.Contains(output, "Scores:") {
			t.Error("scores should only appear in verbose mode")
		}
	})

	t.Run("hides patient when requested", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithHidePatient(true)).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "Budi") {
			t.Error("expected patient name to be hidden")
		}
	})

	t.Run("verbose adds scores and timings", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"Scores:", "Medium - Urgent", "2.5000", "Fingerprint: abc123", "Request ID:  req-1"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("writes GPS warning", func(t *testing.T) {
		t.Parallel()

		result := createTestResult()
		result.PhotoHasGPS = true

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "GPS coordinates") {
			t.Error("expected GPS warning")
		}
	})

	t.Run("writes failure message", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createFailedResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Status:     ERROR") {
			t.Error("expected error status")
		}
		if !strings.Contains(output, "  Try another photo.") {
			t.Error("expected each message line to be indented")
		}
		if strings.Contains(output, "Severity:") {
			t.Error("failed result must not show a severity")
		}
	})

	t.Run("returns bytes written", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).Write(createTestResult())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes, got %d", buf.Len(), n)
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes hand-off payload", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithVersion("v1.2.3"))
		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var doc struct {
			Version string         `json:"version"`
			Result  map[string]any `json:"result"`
		}
		if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if doc.Version != "v1.2.3" {
			t.Errorf("expected version, got %q", doc.Version)
		}

		expected := map[string]string{
			"image":          "left-foot.jpg",
			"label":          "medium-urgent",
			"display_label":  "Medium - Urgent",
			"patient_name":   "Budi",
			"patient_gender": "L",
		}
		for key, want := range expected {
			if got, _ := doc.Result[key].(string); got != want {
				t.Errorf("%s: expected %q, got %v", key, want, doc.Result[key])
			}
		}
		if _, ok := doc.Result["detail"]; !ok {
			t.Error("expected detail field")
		}
	})

	t.Run("compact by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected single-line JSON")
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"result\"") {
			t.Error("expected indented JSON")
		}
	})

	t.Run("writes summary", func(t *testing.T) {
		t.Parallel()

		summary := NewSummary([]*model.Classification{createTestResult(), createFailedResult()})

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteSummary(summary); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var doc struct {
			Summary struct {
				Total   int              `json:"total"`
				Failed  int              `json:"failed"`
				Worst   string           `json:"worst"`
				Results []map[string]any `json:"results"`
			} `json:"summary"`
		}
		if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if doc.Summary.Total != 2 || doc.Summary.Failed != 1 {
			t.Errorf("unexpected totals %+v", doc.Summary)
		}
		if doc.Summary.Worst != "medium-urgent" {
			t.Errorf("expected worst medium-urgent, got %q", doc.Summary.Worst)
		}
		if len(doc.Summary.Results) != 2 {
			t.Errorf("expected 2 results, got %d", len(doc.Summary.Results))
		}
	})
}

// TestJSONWriterHidePatient tests that the identity can be left out of
// JSON documents without touching the caller's results.
func TestJSONWriterHidePatient(t *testing.T) {
	t.Parallel()

	t.Run("single result", func(t *testing.T) {
		t.Parallel()

		result := createTestResult()
		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithJSONHidePatient(true)).Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if strings.Contains(output, "Budi") || strings.Contains(output, "patient_gender") {
			t.Errorf("expected identity to be omitted, got %s", output)
		}
		if !strings.Contains(output, "medium-urgent") {
			t.Errorf("expected the label to remain, got %s", output)
		}
		if result.PatientName != "Budi" || result.PatientGender != model.GenderMale {
			t.Error("expected the original result to be unchanged")
		}
	})

	t.Run("summary results", func(t *testing.T) {
		t.Parallel()

		results := []*model.Classification{createTestResult(), createFailedResult(), nil}
		summary := NewSummary(results)

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithJSONHidePatient(true)).WriteSummary(summary); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if strings.Contains(buf.String(), "Budi") {
			t.Errorf("expected identity to be omitted, got %s", buf.String())
		}
		if summary.Results[0].PatientName != "Budi" {
			t.Error("expected the summary results to be unchanged")
		}

		var doc struct {
			Summary struct {
				Total   int              `json:"total"`
				Results []map[string]any `json:"results"`
			} `json:"summary"`
		}
		if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if doc.Summary.Total != 3 || len(doc.Summary.Results) != 3 {
			t.Errorf("unexpected summary %+v", doc.Summary)
		}
	})

	t.Run("identity kept by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithJSONHidePatient(false)).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Budi") {
			t.Error("expected patient name in output")
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and alert", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Diabetic Foot Ulcer Classification",
			"`left-foot.jpg`",
			"| Patient",
			"## Severity: Medium - Urgent",
			"[!WARNING]",
			"## Recommended Action",
			"Model scores",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("alert follows severity", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			severity model.Severity
			alert    string
		}{
			{model.SeverityUrgent, "[!CAUTION]"},
			{model.SeverityMediumUrgent, "[!WARNING]"},
			{model.SeverityMedium, "[!IMPORTANT]"},
			{model.SeverityLightMedium, "[!NOTE]"},
			{model.SeverityLight, "[!TIP]"},
		}
		for _, tc := range testCases {
			result := createTestResult()
			result.SetResult(tc.severity, model.Scores{0, 0, 0, 0, 0})

			var buf bytes.Buffer
			if _, err := NewMarkdownWriter(&buf).Write(result); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(buf.String(), tc.alert) {
				t.Errorf("%v: expected %s", tc.severity, tc.alert)
			}
		}
	})

	t.Run("hides patient when requested", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf, WithMarkdownHidePatient(true)).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "Budi") {
			t.Error("expected patient name to be hidden")
		}
	})

	t.Run("writes failure as caution", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createFailedResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "[!CAUTION]") || !strings.Contains(output, "blurry.jpg") {
			t.Errorf("expected failure alert, got:\n%s", output)
		}
	})

	t.Run("summary has chart and failures", func(t *testing.T) {
		t.Parallel()

		gps := createTestResult()
		gps.PhotoHasGPS = true
		summary := NewSummary([]*model.Classification{gps, createFailedResult()})

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteSummary(summary); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"# Batch Summary", "```mermaid", "pie", "## Failed Photos", "`blurry.jpg`: Could not read the photo blurry.jpg.", "GPS coordinates"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
		if strings.Contains(output, "Try another photo.") {
			t.Error("expected only the first line of the failure message")
		}
	})
}

// TestSummary tests batch totals.
func TestSummary(t *testing.T) {
	t.Parallel()

	light := createTestResult()
	light.SetResult(model.SeverityLight, model.Scores{1, 0, 0, 0, 0})

	summary := NewSummary([]*model.Classification{createTestResult(), light, createFailedResult(), nil})

	if summary.Total != 4 || summary.Classified != 2 || summary.Failed != 2 {
		t.Errorf("unexpected totals %+v", summary)
	}
	if summary.Worst != model.SeverityMediumUrgent {
		t.Errorf("expected worst medium-urgent, got %v", summary.Worst)
	}
	if summary.Count(model.SeverityLight) != 1 || summary.Count(model.SeverityUrgent) != 0 {
		t.Error("unexpected per-severity counts")
	}
	if len(summary.Counts) != model.ClassCount {
		t.Errorf("expected %d counts, got %d", model.ClassCount, len(summary.Counts))
	}

	empty := NewSummary(nil)
	if empty.Worst.Known() || empty.Total != 0 {
		t.Errorf("unexpected empty summary %+v", empty)
	}
}

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

	n, err := mw.Write(createTestResult())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != text.Len()+js.Len() {
		t.Errorf("expected %d bytes, got %d", text.Len()+js.Len(), n)
	}
	if !strings.Contains(text.String(), "Medium - Urgent") || !json.Valid(js.Bytes()) {
		t.Error("expected both writers to receive the result")
	}

	if _, err := mw.WriteSummary(NewSummary([]*model.Classification{createTestResult()})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text.String(), "BATCH SUMMARY") {
		t.Error("expected summary in text output")
	}
}

// TestWrapLine tests text wrapping.
func TestWrapLine(t *testing.T) {
	t.Parallel()

	lines := wrapLine("one two three four", 9)
	want := []string{"one two", "three", "four"}
	if len(lines) != len(want) {
		t.Fatalf("expected %v, got %v", want, lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}

	if got := wrapLine("", 10); len(got) != 1 || got[0] != "" {
		t.Errorf("expected one empty line, got %v", got)
	}
}
