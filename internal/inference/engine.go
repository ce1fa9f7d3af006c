package inference

import (
	"context"
	"fmt"
	"runtime"
)

// Model formats reported in Description.Format.
const (
	FormatONNX   = "onnx"
	FormatTFLite = "tflite"
)

// DefaultInputSize is used for spatial dimensions the model leaves dynamic.
const DefaultInputSize = 224

// InputChannels is the channel count of the NHWC input (R, G, B).
const InputChannels = 3

// Shape is the declared input and output shape of a classifier.
type Shape struct {
	// Height and Width are the spatial input dimensions.
	Height int
	Width  int

	// Classes is the number of output scores, 0 when the model leaves it
	// dynamic.
	Classes int
}

// InputLen returns 1*Height*Width*3.
func (s Shape) InputLen() int {
	return s.Height * s.Width * InputChannels
}

// String returns the shape as "[1,H,W,3] -> [1,K]".
func (s Shape) String() string {
	k := "?"
	if s.Classes > 0 {
		k = fmt.Sprint(s.Classes)
	}
	return fmt.Sprintf("[1,%d,%d,%d] -> [1,%s]", s.Height, s.Width, InputChannels, k)
}

// TensorInfo describes one model input or output.
type TensorInfo struct {
	Name       string  `json:"name"`
	Dimensions []int64 `json:"dimensions"`
}

// Description is a human-readable summary of a loaded model.
type Description struct {
	// Format is "onnx" or "tflite".
	Format string `json:"format"`

	// Path is the model artifact path.
	Path string `json:"path"`

	// Inputs and Outputs are the tensors the model declares.
	Inputs  []TensorInfo `json:"inputs"`
	Outputs []TensorInfo `json:"outputs"`

	// Threads is the intra-op thread count the engine runs with.
	Threads int `json:"threads"`
}

// Engine is one loaded model session.
// Implementations need not be safe for concurrent use; Runner serializes
// calls.
type Engine interface {
	// Shape returns the declared input and output shape.
	Shape() Shape

	// Run executes the model on input, which has Shape().InputLen() values.
	// The returned slice may alias engine memory.
	Run(input []float32) ([]float32, error)

	// Describe returns the model's I/O description.
	Describe() Description

	// Close frees native resources. Run after Close returns ErrReleased.
	Close() error
}

// Loader opens a model and returns an Engine for it.
type Loader func(ctx context.Context) (Engine, error)

// DefaultThreads returns half of the available CPUs, at least one.
func DefaultThreads() int {
	return max(1, runtime.NumCPU()/2)
}

// spatialDim returns d as an int, or DefaultInputSize when the model leaves
// it dynamic.
func spatialDim(d int64) int {
	if d <= 0 {
		return DefaultInputSize
	}
	return int(d)
}
