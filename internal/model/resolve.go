package model

import (
	"errors"
	"fmt"
	"math"
)

// Scores is the raw per-class output of the classifier, in the model's
// fixed class order. Values are unnormalized logits or probabilities.
type Scores []float32

// ErrInvalidOutput is the sentinel matched by every InvalidOutputError.
var ErrInvalidOutput = errors.New("model output violates contract")

// InvalidOutputError reports a score vector that breaks the model contract:
// fewer than ClassCount values, or a NaN/Inf value. It is distinct from an
// inference failure: the model ran, but produced something unusable.
type InvalidOutputError struct {
	// Length is the number of values the model returned.
	Length int

	// Index is the position of the first non-finite value, or -1.
	Index int
}

// Error implements error.
func (e *InvalidOutputError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid model output: expected >= %d finite values, value at index %d is not finite (length %d)",
			ClassCount, e.Index, e.Length)
	}
	return fmt.Sprintf("invalid model output: expected >= %d finite values, got length %d", ClassCount, e.Length)
}

// Is makes errors.Is(err, ErrInvalidOutput) match.
func (e *InvalidOutputError) Is(target error) bool {
	return target == ErrInvalidOutput
}

// Validate checks that scores has at least ClassCount values and that every
// value is finite.
func (s Scores) Validate() error {
	if len(s) < ClassCount {
		return &InvalidOutputError{Length: len(s), Index: -1}
	}
	for i, v := range s {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return &InvalidOutputError{Length: len(s), Index: i}
		}
	}
	return nil
}

// Argmax returns the index of the largest of the first ClassCount values.
// Ties resolve to the lowest index. Scores must be valid.
func (s Scores) Argmax() int {
	best := 0
	for i := 1; i < ClassCount && i < len(s); i++ {
		if s[i] > s[best] {
			best = i
		}
	}
	return best
}

// Resolve maps a raw score vector to a severity.
// Invalid vectors are rejected with *InvalidOutputError; indices beyond
// the first five are validated but never selected.
func Resolve(scores Scores) (Severity, error) {
	if err := scores.Validate(); err != nil {
		return SeverityUnknown, err
	}
	return SeverityFromIndex(scores.Argmax()), nil
}

// Confidence returns the softmax probability of the selected class over the
// first ClassCount values. It is informational only; Resolve never uses it.
func Confidence(scores Scores) float64 {
	if scores.Validate() != nil {
		return 0
	}
	best := scores.Argmax()
	maxLogit := float64(scores[best])

	var sum float64
	for i := 0; i < ClassCount; i++ {
		sum += math.Exp(float64(scores[i]) - maxLogit)
	}
	return 1 / sum
}
