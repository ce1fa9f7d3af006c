package report

import (
	"github.com/hildanuzulul/Ulcare/internal/model"
)

// SeverityCount is the number of photos resolved to one severity.
type SeverityCount struct {
	Severity model.Severity `json:"label"`
	Count    int            `json:"count"`
}

// Summary totals a batch of classification results.
type Summary struct {
	// Total is the number of photos submitted.
	Total int `json:"total"`

	// Classified is the number of photos that produced a label.
	Classified int `json:"classified"`

	// Failed is the number of photos that produced an error.
	Failed int `json:"failed"`

	// Counts holds one entry per known severity, in increasing order.
	Counts []SeverityCount `json:"counts"`

	// Worst is the most severe label seen, or unknown if none.
	Worst model.Severity `json:"worst"`

	// WithGPS is the number of photos embedding GPS coordinates.
	WithGPS int `json:"with_gps,omitempty"`

	// Results are the individual results in submission order.
	Results []*model.Classification `json:"results"`
}

// NewSummary totals results. Nil entries count as failed.
func NewSummary(results []*model.Classification) *Summary {
	s := &Summary{
		Total:   len(results),
		Worst:   model.SeverityUnknown,
		Results: results,
	}

	counts := make(map[model.Severity]int, model.ClassCount)
	for _, r := range results {
		if r == nil || !r.Succeeded() {
			s.Failed++
			continue
		}
		s.Classified++
		counts[r.Severity]++
		if r.Severity > s.Worst {
			s.Worst = r.Severity
		}
		if r.PhotoHasGPS {
			s.WithGPS++
		}
	}

	for _, sev := range model.Severities() {
		s.Counts = append(s.Counts, SeverityCount{Severity: sev, Count: counts[sev]})
	}
	return s
}

// Count returns the number of photos resolved to sev.
func (s *Summary) Count(sev model.Severity) int {
	for _, c := range s.Counts {
		if c.Severity == sev {
			return c.Count
		}
	}
	return 0
}
