package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Guidance is the static clinical text shown next to a classification.
type Guidance struct {
	// Detail describes what the severity means clinically.
	Detail string `json:"detail"`

	// Action is the recommended next step for the patient.
	Action string `json:"action"`
}

// IsEmpty reports whether both fields are blank.
func (g Guidance) IsEmpty() bool {
	return strings.TrimSpace(g.Detail) == "" && strings.TrimSpace(g.Action) == ""
}

// guidanceTable maps each known severity to its guidance.
// This is the single source of truth for clinical text; unknown severities
// have no entry on purpose so that lookups return empty text.
var guidanceTable = map[Severity]Guidance{
	SeverityLight: {
		Detail: "very superficial ulcer, tiny, clean, no infection",
		Action: "daily foot care + moisturizer; review in 1–2 months",
	},
	SeverityLightMedium: {
		Detail: "superficial ulcer, limited to skin layers, no infection signs",
		Action: "clean with saline + modern dressing; review in 1–2 weeks",
	},
	SeverityMedium: {
		Detail: "mild local infection reaching subcutaneous tissue",
		Action: "mandatory clinical consult, no self-care, strict glucose control",
	},
	SeverityMediumUrgent: {
		Detail: "deep ulcer with moderate/severe infection or tissue threat",
		Action: "refer to specialist team; aggressive debridement; strict antibiotics",
	},
	SeverityUrgent: {
		Detail: "gangrene / systemic infection / severe ischemia",
		Action: "emergency department immediately; amputation may be required",
	},
}

// Guidance returns the clinical guidance for s.
// Unknown severities return an empty Guidance.
func (s Severity) Guidance() Guidance {
	return guidanceTable[s]
}

// LookupGuidance returns the guidance for a label string in any spelling
// accepted by ParseSeverity. It never fails: labels outside the five known
// classes yield empty detail and action.
func LookupGuidance(label string) Guidance {
	return ParseSeverity(label).Guidance()
}

// ResolveGuidance picks the text to display for a classification.
// Caller-provided detail/action are kept when at least one of them is
// non-blank; otherwise the table entry for label is used.
func ResolveGuidance(label, detail, action string) Guidance {
	passed := Guidance{Detail: detail, Action: action}
	if !passed.IsEmpty() {
		return passed
	}
	return LookupGuidance(label)
}

// isDash matches the dash and hyphen characters that show up in labels
// typed by hand or produced by text editors.
var isDash = runes.Predicate(func(r rune) bool {
	switch r {
	case '-', // hyphen-minus
		'‐', // hyphen
		'‑', // non-breaking hyphen
		'‒', // figure dash
		'–', // en dash
		'—', // em dash
		'―', // horizontal bar
		'−', // minus sign
		'﹘', // small em dash
		'﹣', // small hyphen-minus
		'－': // fullwidth hyphen-minus
		return true
	}
	return false
})

// CanonicalLabel normalizes a label to its lookup key: Unicode NFKC, every
// dash variant unified to '-', all whitespace removed and case folded.
// "Medium - Urgent", "medium-urgent" and "MEDIUM—URGENT" all become
// "medium-urgent".
func CanonicalLabel(s string) string {
	t := transform.Chain(
		norm.NFKC,
		runes.Map(func(r rune) rune {
			if isDash.Contains(r) {
				return '-'
			}
			return r
		}),
		runes.Remove(runes.Predicate(unicode.IsSpace)),
		cases.Fold(),
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		// Fall back to the stdlib path; only reachable on malformed input.
		return strings.ToLower(strings.Join(strings.Fields(s), ""))
	}
	return out
}

// labelIndex maps canonical keys to severities.
var labelIndex = func() map[string]Severity {
	m := make(map[string]Severity, ClassCount)
	for _, s := range severities {
		m[s.String()] = s
	}
	return m
}()

// ParseSeverity canonicalizes a label string and returns its severity.
// Unrecognized labels return SeverityUnknown.
func ParseSeverity(label string) Severity {
	if s, ok := labelIndex[CanonicalLabel(label)]; ok {
		return s
	}
	return SeverityUnknown
}
