package model

// Severity is the clinical severity of a diabetic foot ulcer as produced by
// the classifier. Values are ordered: a larger value is more severe.
//
// Design decision: We use iota-based constants rather than string constants
// so that comparisons follow clinical order and every downstream component
// works on a closed set of values. Label strings only exist at the edges
// (model output index, user input, report output).
type Severity int

const (
	// SeverityUnknown is any label outside the five known classes.
	// It carries no guidance text.
	SeverityUnknown Severity = iota - 1

	// SeverityLight is a very superficial, small, clean ulcer.
	SeverityLight

	// SeverityLightMedium is a superficial ulcer limited to skin layers.
	SeverityLightMedium

	// SeverityMedium is a mild local infection reaching subcutaneous tissue.
	SeverityMedium

	// SeverityMediumUrgent is a deep ulcer with moderate or severe infection.
	SeverityMediumUrgent

	// SeverityUrgent is gangrene, systemic infection or severe ischemia.
	SeverityUrgent
)

// ClassCount is the number of severity classes the model must score.
const ClassCount = 5

// severities lists the known severities in model output order.
var severities = [ClassCount]Severity{
	SeverityLight,
	SeverityLightMedium,
	SeverityMedium,
	SeverityMediumUrgent,
	SeverityUrgent,
}

// Severities returns the five known severities in increasing order.
func Severities() []Severity {
	out := make([]Severity, ClassCount)
	copy(out, severities[:])
	return out
}

// SeverityFromIndex maps a model output index to its severity.
// Indices outside 0..4 yield SeverityUnknown.
func SeverityFromIndex(i int) Severity {
	if i < 0 || i >= ClassCount {
		return SeverityUnknown
	}
	return severities[i]
}

// Index returns the model output index of the severity, or -1 if unknown.
func (s Severity) Index() int {
	if !s.Known() {
		return -1
	}
	return int(s)
}

// Known reports whether s is one of the five classes.
func (s Severity) Known() bool {
	return s >= SeverityLight && s <= SeverityUrgent
}

// String returns the canonical label key of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLight:
		return "light"
	case SeverityLightMedium:
		return "light-medium"
	case SeverityMedium:
		return "medium"
	case SeverityMediumUrgent:
		return "medium-urgent"
	case SeverityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// Display returns the label as shown to a user ("Light - Medium").
func (s Severity) Display() string {
	switch s {
	case SeverityLight:
		return "Light"
	case SeverityLightMedium:
		return "Light - Medium"
	case SeverityMedium:
		return "Medium"
	case SeverityMediumUrgent:
		return "Medium - Urgent"
	case SeverityUrgent:
		return "Urgent"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler using the canonical key.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Any spelling accepted
// by ParseSeverity is accepted here; unrecognized text yields SeverityUnknown.
func (s *Severity) UnmarshalText(text []byte) error {
	*s = ParseSeverity(string(text))
	return nil
}
