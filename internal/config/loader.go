package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".ulcare"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .ulcare configuration file.
// Pointer fields distinguish "not set" from an explicit zero.
type File struct {
	Model      ModelSection      `yaml:"model,omitempty"`
	Preprocess PreprocessSection `yaml:"preprocess,omitempty"`
	Batch      BatchSection      `yaml:"batch,omitempty"`
}

// ModelSection configures the model artifact and runtime.
type ModelSection struct {
	// Path is the .onnx or .tflite model file.
	Path string `yaml:"path,omitempty"`

	// ONNXLibrary is the ONNX Runtime shared library.
	ONNXLibrary string `yaml:"onnxLibrary,omitempty"`

	// Threads is the number of intra-op threads.
	Threads *int `yaml:"threads,omitempty"`
}

// PreprocessSection configures photo decoding and normalization.
type PreprocessSection struct {
	Mean         *float32 `yaml:"mean,omitempty"`
	Std          *float32 `yaml:"std,omitempty"`
	DecodeSize   *int     `yaml:"decodeSize,omitempty"`
	MaxImageSize *int64   `yaml:"maxImageSize,omitempty"`
	MaxPixels    *int64   `yaml:"maxPixels,omitempty"`
	AutoOrient   *bool    `yaml:"autoOrient,omitempty"`
}

// BatchSection configures multi-photo runs.
type BatchSection struct {
	// Size is the number of photos processed concurrently.
	Size *int `yaml:"size,omitempty"`

	// Timeout bounds each photo, e.g. "30s".
	Timeout *time.Duration `yaml:"timeout,omitempty"`
}

// LoadConfigFile loads settings from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
// A relative model path is resolved against the file's directory.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	if cf.Model.Path != "" && !filepath.IsAbs(cf.Model.Path) {
		cf.Model.Path = filepath.Join(filepath.Dir(path), cf.Model.Path)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .ulcare in the current directory
// 3. Look for .ulcare in the user's home directory
// 4. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
