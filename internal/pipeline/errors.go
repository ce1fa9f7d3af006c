package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hildanuzulul/Ulcare/internal/inference"
	"github.com/hildanuzulul/Ulcare/internal/model"
	"github.com/hildanuzulul/Ulcare/internal/preprocess"
)

// ErrTaskCancelled is returned by Task.Wait for a cancelled task.
// It matches context.Canceled with errors.Is.
var ErrTaskCancelled = fmt.Errorf("classification task cancelled: %w", context.Canceled)

// UserMessage returns the text shown to the user for a failed request.
// It returns "" for a nil error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		decodeErr *preprocess.DecodeError
		outputErr *model.InvalidOutputError
		shapeErr  *inference.ShapeError
	)

	switch {
	case errors.Is(err, context.Canceled):
		return "Classification was cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "Classification timed out."
	case errors.As(err, &decodeErr):
		return fmt.Sprintf("Could not read the photo %s. Choose another photo and try again.", decodeErr.Source)
	case errors.As(err, &outputErr):
		var b strings.Builder
		b.WriteString("Model output does not have the expected format.\n")
		fmt.Fprintf(&b, "- Output length >= %d (%d target classes)\n", model.ClassCount, model.ClassCount)
		b.WriteString("- All values must be finite (not NaN/Inf)\n")
		fmt.Fprintf(&b, "Current length: %d", outputErr.Length)
		return b.String()
	case errors.As(err, &shapeErr):
		return fmt.Sprintf("The photo could not be prepared for the model: %v.", shapeErr)
	case errors.Is(err, inference.ErrModelNotFound):
		return fmt.Sprintf("Model file not found: %v. Set --model or model.path in the config file.", err)
	case errors.Is(err, inference.ErrEngineUnavailable), errors.Is(err, inference.ErrUnsupportedFormat):
		return fmt.Sprintf("The model cannot be opened: %v.", err)
	default:
		return fmt.Sprintf("Failed to run the classifier: %v", err)
	}
}
