package inference

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// EngineOptions configures native engines.
type EngineOptions struct {
	// Threads is the intra-op thread count. Zero or negative selects
	// DefaultThreads.
	Threads int

	// ONNXLibrary is the path to the ONNX Runtime shared library. Empty
	// searches well-known locations.
	ONNXLibrary string
}

// threads returns the effective thread count.
func (o EngineOptions) threads() int {
	if o.Threads > 0 {
		return o.Threads
	}
	return DefaultThreads()
}

// FormatForPath returns the engine format for a model file, based on its
// extension.
func FormatForPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".onnx":
		return FormatONNX, nil
	case ".tflite":
		return FormatTFLite, nil
	default:
		return "", fmt.Errorf("%w: %q (expected .onnx or .tflite)", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoaderForPath returns a Loader that opens the model at path with the
// engine matching its extension. The file is checked for existence when
// the loader runs, not when it is created.
func LoaderForPath(path string, opts EngineOptions) (Loader, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) (Engine, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := checkModelFile(path); err != nil {
			return nil, err
		}

		switch format {
		case FormatONNX:
			e, err := LoadONNX(path, opts)
			if err != nil {
				return nil, err
			}
			return e, nil
		default:
			return LoadTFLite(path, opts)
		}
	}, nil
}

// checkModelFile verifies that path is a readable regular file.
func checkModelFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrModelNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat model: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrModelNotFound, path)
	}
	return nil
}
