package config

import (
	"math"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/hildanuzulul/Ulcare/internal/preprocess"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "ulcare"

	// DefaultModelFile is the model file name looked up in the XDG data
	// directory when no model path is configured.
	DefaultModelFile = "dfu_classifier.onnx"

	// DefaultBatchSize is the number of photos decoded concurrently.
	// Inference itself is serialized, so more workers only help decoding.
	DefaultBatchSize = 4

	// DefaultTimeout bounds the classification of a single photo.
	DefaultTimeout = 60 * time.Second

	// DefaultDecodeSize is the short-side size of the fast decode path.
	DefaultDecodeSize = preprocess.DefaultDecodeTarget

	// DefaultMaxImageSize caps how many bytes of a photo are read.
	DefaultMaxImageSize = preprocess.DefaultMaxBytes

	// DefaultMaxPixels caps the width*height of a photo.
	DefaultMaxPixels = preprocess.DefaultMaxPixels
)

// Config holds all configuration options for Ulcare.
// It is populated from defaults, then the config file, then CLI flags, and
// passed through the application rather than kept as global state.
//
// Design decision: A single flat struct. The config file uses nested
// sections for readability, but the handful of options does not justify
// nested Go types.
type Config struct {
	// ModelPath is the path to the .onnx or .tflite model artifact.
	ModelPath string

	// ONNXLibrary is the path to the ONNX Runtime shared library.
	// When empty, the platform default locations are searched.
	ONNXLibrary string

	// Threads is the number of intra-op threads for inference.
	// Zero selects half the CPUs.
	Threads int

	// Mean and Std normalize each channel as (c - Mean) / Std.
	Mean float32
	Std  float32

	// DecodeSize is the short-side size the decoder downscales toward.
	// Zero disables the fast decode path.
	DecodeSize int

	// MaxImageSize is the maximum number of bytes read from a photo.
	// Zero disables the limit.
	MaxImageSize int64

	// MaxPixels is the largest width*height decoded.
	// Zero disables the limit.
	MaxPixels int64

	// AutoOrient applies the EXIF orientation after decoding.
	AutoOrient bool

	// BatchSize is the number of photos processed concurrently.
	BatchSize int

	// Timeout bounds the classification of each photo. Zero disables it.
	Timeout time.Duration

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .ulcare is searched in the current and home directories.
	ConfigFilePath string

	// JSONReport and MarkdownReport select the report format.
	// They are mutually exclusive; the default is plain text.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When empty, the report is written to stdout.
	ReportFile string

	// Images is the list of photo paths to classify.
	Images []string

	// Detail and Action override the guidance shown with the result.
	// They take effect only when at least one is non-blank.
	Detail string
	Action string

	// Anonymous classifies without a stored patient identity.
	Anonymous bool

	// DBDir is the directory holding the identity database.
	// Defaults to the XDG data directory (~/.local/share/ulcare on Linux).
	DBDir string
}

// NewConfig creates a new Config with default values.
//
// Design decision: A constructor instead of zero values because several
// defaults are non-zero and the model was trained with a specific
// normalization.
func NewConfig() *Config {
	return &Config{
		ModelPath:    DefaultModelPath(),
		Mean:         preprocess.DefaultMean,
		Std:          preprocess.DefaultStd,
		DecodeSize:   DefaultDecodeSize,
		MaxImageSize: DefaultMaxImageSize,
		MaxPixels:    DefaultMaxPixels,
		AutoOrient:   true,
		BatchSize:    DefaultBatchSize,
		Timeout:      DefaultTimeout,
		DBDir:        XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for Ulcare.
// On Linux: ~/.local/share/ulcare
// On macOS: ~/Library/Application Support/ulcare
// On Windows: %LOCALAPPDATA%\ulcare
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for Ulcare.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultModelPath returns the model location used when none is configured.
func DefaultModelPath() string {
	return filepath.Join(XDGDataDir(), "models", DefaultModelFile)
}

// DecodeOptions converts the decode settings to preprocess.Options.
func (c *Config) DecodeOptions() preprocess.Options {
	return preprocess.Options{
		TargetSize: c.DecodeSize,
		MaxBytes:   c.MaxImageSize,
		MaxPixels:  c.MaxPixels,
		AutoOrient: c.AutoOrient,
	}
}

// ApplyFile overlays the values set in f onto c.
// Fields absent from the file keep their current value. Call it before
// applying CLI flags so that flags win.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}

	if f.Model.Path != "" {
		c.ModelPath = f.Model.Path
	}
	if f.Model.ONNXLibrary != "" {
		c.ONNXLibrary = f.Model.ONNXLibrary
	}
	if f.Model.Threads != nil {
		c.Threads = *f.Model.Threads
	}

	if f.Preprocess.Mean != nil {
		c.Mean = *f.Preprocess.Mean
	}
	if f.Preprocess.Std != nil {
		c.Std = *f.Preprocess.Std
	}
	if f.Preprocess.DecodeSize != nil {
		c.DecodeSize = *f.Preprocess.DecodeSize
	}
	if f.Preprocess.MaxImageSize != nil {
		c.MaxImageSize = *f.Preprocess.MaxImageSize
	}
	if f.Preprocess.MaxPixels != nil {
		c.MaxPixels = *f.Preprocess.MaxPixels
	}
	if f.Preprocess.AutoOrient != nil {
		c.AutoOrient = *f.Preprocess.AutoOrient
	}

	if f.Batch.Size != nil {
		c.BatchSize = *f.Batch.Size
	}
	if f.Batch.Timeout != nil {
		c.Timeout = *f.Batch.Timeout
	}
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
//
// Design decision: Validation happens once after flags and the config file
// are merged, so nothing is decoded or loaded with a bad configuration.
func (c *Config) Validate() error {
	if len(c.Images) == 0 {
		return ErrNoImage
	}
	if c.ModelPath == "" {
		return ErrNoModel
	}
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Threads < 0 {
		return ErrInvalidThreads
	}
	if !finite(c.Mean) {
		return ErrInvalidMean
	}
	if c.Std == 0 || !finite(c.Std) {
		return ErrInvalidStd
	}
	if c.DecodeSize < 0 {
		return ErrInvalidDecodeSize
	}
	if c.MaxImageSize < 0 {
		return ErrInvalidMaxImageSize
	}
	if c.MaxPixels < 0 {
		return ErrInvalidMaxPixels
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
