// Package inference owns the loaded classifier model.
//
// An Engine wraps one native runtime session (ONNX Runtime or TensorFlow
// Lite). A Runner sits in front of an Engine and provides:
//   - lazy loading: the model is opened on first use, and concurrent first
//     callers share a single load (golang.org/x/sync/singleflight)
//   - serialized inference: one Run at a time per Runner
//   - input checking: the tensor length must match the declared
//     [1, H, W, 3] input shape
//   - release: Release closes the engine; the next call loads it again
//
// Engine failures are wrapped in *InferenceError and are never retried.
//
// The TensorFlow Lite engine needs the TensorFlow Lite C library at build
// time and is only compiled with the "tflite" build tag. Without it,
// loading a .tflite file fails with ErrEngineUnavailable.
package inference
