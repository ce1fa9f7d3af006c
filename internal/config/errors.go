package config

import "errors"

// Configuration validation errors returned by Config.Validate.
//
// Design decision: Package-level sentinel errors so callers can use
// errors.Is while the messages stay readable on the command line.
var (
	// ErrNoImage is returned when no photo was given to classify.
	ErrNoImage = errors.New("no image specified: provide one or more photo paths")

	// ErrNoModel is returned when no model path is configured.
	ErrNoModel = errors.New("no model specified: use --model or model.path in the config file")

	// ErrInvalidTimeout is returned when the per-photo timeout is negative.
	// Zero disables the timeout.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidThreads is returned when the thread count is negative.
	// Zero selects the default.
	ErrInvalidThreads = errors.New("invalid threads: must be non-negative")

	// ErrInvalidMean is returned when the normalization mean is not finite.
	ErrInvalidMean = errors.New("invalid mean: must be a finite number")

	// ErrInvalidStd is returned when the normalization std is zero or not finite.
	ErrInvalidStd = errors.New("invalid std: must be a finite, non-zero number")

	// ErrInvalidDecodeSize is returned when the decode target size is negative.
	// Zero disables the fast decode path.
	ErrInvalidDecodeSize = errors.New("invalid decode size: must be non-negative")

	// ErrInvalidMaxImageSize is returned when the photo size limit is negative.
	ErrInvalidMaxImageSize = errors.New("invalid max image size: must be non-negative")

	// ErrInvalidMaxPixels is returned when the pixel limit is negative.
	ErrInvalidMaxPixels = errors.New("invalid max pixels: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
