//go:build !tflite

package inference

import "fmt"

// LoadTFLite reports that this binary was built without TensorFlow Lite.
// Rebuild with -tags tflite to enable it.
func LoadTFLite(path string, _ EngineOptions) (Engine, error) {
	return nil, fmt.Errorf("%w: %s needs a build with -tags tflite", ErrEngineUnavailable, path)
}
