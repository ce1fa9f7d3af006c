package preprocess

import (
	"errors"
	"fmt"
)

// Preprocessing errors.
var (
	// ErrInvalidDimensions is returned when an image reports a width or
	// height that is not positive.
	ErrInvalidDimensions = errors.New("image has non-positive dimensions")

	// ErrTooManyPixels is returned when the image header declares more
	// pixels than Options.MaxPixels.
	ErrTooManyPixels = errors.New("image has too many pixels")

	// ErrSourceTooLarge is returned when the source exceeds Options.MaxBytes.
	ErrSourceTooLarge = errors.New("image source exceeds size limit")

	// ErrInvalidStd is returned when the normalization std is zero or not finite.
	ErrInvalidStd = errors.New("normalization std must be a finite non-zero value")

	// ErrEmptySource is returned when the source has no bytes.
	ErrEmptySource = errors.New("image source is empty")
)

// DecodeError reports an image that could not be read or decoded.
// It terminates the current request; retrying the same source will fail
// the same way.
type DecodeError struct {
	// Source is the name of the image source.
	Source string

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// newDecodeError wraps err for src.
func newDecodeError(src Source, err error) *DecodeError {
	name := "<nil>"
	if src != nil {
		name = src.Name()
	}
	return &DecodeError{Source: name, Err: err}
}
