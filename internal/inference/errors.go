package inference

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrModelNotFound is returned when the model artifact does not exist.
	ErrModelNotFound = errors.New("model artifact not found")

	// ErrUnsupportedFormat is returned for model files that no engine reads.
	ErrUnsupportedFormat = errors.New("unsupported model format")

	// ErrEngineUnavailable is returned when the engine for a format was not
	// compiled into this binary.
	ErrEngineUnavailable = errors.New("model engine not available in this build")

	// ErrReleased is returned by an Engine used after Close.
	ErrReleased = errors.New("model engine released")

	// ErrInvalidModel is returned when the model's inputs or outputs do not
	// match the classifier contract.
	ErrInvalidModel = errors.New("model does not match classifier contract")
)

// ShapeError reports an input tensor whose length does not match the
// model's declared input shape.
type ShapeError struct {
	// Expected is 1*H*W*3 for the loaded model.
	Expected int

	// Actual is the length of the supplied tensor.
	Actual int
}

// Error implements error.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("input tensor has %d values, model expects %d", e.Actual, e.Expected)
}

// InferenceError reports a failure inside the model runtime.
type InferenceError struct {
	// Op is the operation that failed ("load", "run").
	Op string

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *InferenceError) Unwrap() error {
	return e.Err
}

// NewInferenceError wraps err as an InferenceError for op.
// A nil err yields nil.
func NewInferenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ie *InferenceError
	if errors.As(err, &ie) {
		return err
	}
	return &InferenceError{Op: op, Err: err}
}
