//go:build tflite

package main

// engineList names the model formats this binary can run.
func engineList() string {
	return "onnx, tflite"
}
