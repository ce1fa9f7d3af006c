package model

import (
	"image"
	"time"
)

// Classification is the result of one classification request and the
// payload handed to report writers. It carries the image reference, the
// resolved label with its guidance, and the optional patient identity.
//
// Design decision: Intermediate artifacts (decoded image, tensor) live on
// the same struct with json:"-" so pipeline steps can hand them forward
// without a second context type. They are dropped once the request ends.
type Classification struct {
	// === Request ===

	// ID uniquely identifies the request (UUID).
	ID string `json:"id"`

	// Image is the image reference supplied by the caller (path or name).
	Image string `json:"image"`

	// Fingerprint is the BLAKE2b-256 hex digest of the source bytes.
	Fingerprint string `json:"fingerprint,omitempty"`

	// RequestedAt is when the request was created.
	RequestedAt time.Time `json:"requested_at"`

	// === Photo ===

	// PhotoWidth and PhotoHeight are the dimensions stored in the image file.
	PhotoWidth  int `json:"photo_width,omitempty"`
	PhotoHeight int `json:"photo_height,omitempty"`

	// PhotoHasGPS is true when the photo embeds GPS coordinates that can
	// locate the patient.
	PhotoHasGPS bool `json:"photo_has_gps,omitempty"`

	// === Result ===

	// Severity is the resolved class. Unknown until the resolve step runs.
	Severity Severity `json:"label"`

	// DisplayLabel is Severity formatted for people.
	DisplayLabel string `json:"display_label"`

	// Detail is the clinical detail text (may be empty).
	Detail string `json:"detail"`

	// Action is the recommended action text (may be empty).
	Action string `json:"action"`

	// Scores is the raw model output.
	Scores Scores `json:"scores,omitempty"`

	// Confidence is the softmax probability of the selected class.
	Confidence float64 `json:"confidence"`

	// === Patient ===

	// PatientName is the stored identity name, if any.
	PatientName string `json:"patient_name,omitempty"`

	// PatientGender is the stored identity gender code, if any.
	PatientGender Gender `json:"patient_gender,omitempty"`

	// === Timing ===

	// DecodeDuration is the time spent decoding and resizing.
	DecodeDuration time.Duration `json:"decode_duration"`

	// InferenceDuration is the time spent in the model.
	InferenceDuration time.Duration `json:"inference_duration"`

	// === Status ===

	// Steps lists pipeline steps that completed.
	Steps []string `json:"steps,omitempty"`

	// Error is the failure that terminated the request, if any.
	Error error `json:"-"`

	// ErrorMessage is Error as a user-facing string.
	ErrorMessage string `json:"error,omitempty"`

	// === Intermediates ===

	// Decoded is the decoded, oriented and resized image.
	Decoded image.Image `json:"-"`

	// Tensor is the model input built from Decoded.
	Tensor []float32 `json:"-"`

	// OverrideDetail and OverrideAction replace table guidance when set.
	OverrideDetail string `json:"-"`
	OverrideAction string `json:"-"`
}

// NewClassification creates a request for the given image reference.
func NewClassification(id, image string) *Classification {
	return &Classification{
		ID:           id,
		Image:        image,
		RequestedAt:  time.Now(),
		Severity:     SeverityUnknown,
		DisplayLabel: SeverityUnknown.Display(),
		Steps:        make([]string, 0),
	}
}

// WithIdentity attaches the patient identity to the request.
func (c *Classification) WithIdentity(id *Identity) *Classification {
	if id != nil {
		c.PatientName = id.Name
		c.PatientGender = id.Gender
	}
	return c
}

// Succeeded reports whether the request produced a known label.
func (c *Classification) Succeeded() bool {
	return c.Error == nil && c.Severity.Known()
}

// SetSeverity records the resolved severity for scores.
func (c *Classification) SetSeverity(s Severity, scores Scores) {
	c.Severity = s
	c.DisplayLabel = s.Display()
	c.Scores = scores
	c.Confidence = Confidence(scores)
}

// ApplyGuidance fills Detail and Action for the current severity, letting
// the override texts win when at least one of them is set.
func (c *Classification) ApplyGuidance() {
	g := ResolveGuidance(c.Severity.String(), c.OverrideDetail, c.OverrideAction)
	c.Detail = g.Detail
	c.Action = g.Action
}

// SetResult records the resolved severity and its guidance.
func (c *Classification) SetResult(s Severity, scores Scores) {
	c.SetSeverity(s, scores)
	c.ApplyGuidance()
}

// ReleaseIntermediates drops the decoded image and tensor.
func (c *Classification) ReleaseIntermediates() {
	c.Decoded = nil
	c.Tensor = nil
}
