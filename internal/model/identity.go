package model

import (
	"errors"
	"strings"
)

// Gender is the single-character gender code stored with an identity:
// L (laki-laki) or P (perempuan).
type Gender string

const (
	// GenderNone means no gender has been selected.
	GenderNone Gender = ""

	// GenderMale is stored as "L".
	GenderMale Gender = "L"

	// GenderFemale is stored as "P".
	GenderFemale Gender = "P"
)

// Identity validation errors.
var (
	// ErrBlankName is returned when the patient name is empty or whitespace.
	ErrBlankName = errors.New("patient name is required")

	// ErrNoGender is returned when no valid gender code was selected.
	ErrNoGender = errors.New("patient gender must be L or P")
)

// ParseGender accepts the stored codes and a few common spellings.
// Anything else yields GenderNone.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l", "m", "male", "laki-laki":
		return GenderMale
	case "p", "f", "female", "perempuan":
		return GenderFemale
	default:
		return GenderNone
	}
}

// Valid reports whether g is one of the two stored codes.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Display returns a human-readable gender.
func (g Gender) Display() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	default:
		return "-"
	}
}

// Identity is the patient information entered once and reused for every
// classification.
type Identity struct {
	Name   string `json:"name"`
	Gender Gender `json:"gender"`
}

// NewIdentity trims the name and parses the gender, then validates.
func NewIdentity(name, gender string) (Identity, error) {
	id := Identity{
		Name:   strings.TrimSpace(name),
		Gender: ParseGender(gender),
	}
	if err := id.Validate(); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Validate checks that the name is non-blank and a gender is selected.
// The name is checked first, so a blank form reports the name.
func (i Identity) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrBlankName
	}
	if !i.Gender.Valid() {
		return ErrNoGender
	}
	return nil
}
