//go:build tflite

package inference

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mattn/go-tflite"
)

// TFLiteEngine runs a classifier through the TensorFlow Lite interpreter.
type TFLiteEngine struct {
	path    string
	threads int
	model   *tflite.Model
	options *tflite.InterpreterOptions
	interp  *tflite.Interpreter
	shape   Shape
	inputs  []TensorInfo
	outputs []TensorInfo
}

// LoadTFLite opens the TensorFlow Lite model at path.
func LoadTFLite(path string, opts EngineOptions) (Engine, error) {
	m := tflite.NewModelFromFile(path)
	if m == nil {
		return nil, fmt.Errorf("failed to load model %s", path)
	}

	threads := opts.threads()
	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threads)

	interp := tflite.NewInterpreter(m, options)
	if interp == nil {
		options.Delete()
		m.Delete()
		return nil, errors.New("failed to create interpreter")
	}

	e := &TFLiteEngine{
		path:    path,
		threads: threads,
		model:   m,
		options: options,
		interp:  interp,
	}

	if status := interp.AllocateTensors(); status != tflite.OK {
		_ = e.Close()
		return nil, fmt.Errorf("failed to allocate tensors: status %v", status)
	}

	if interp.GetInputTensorCount() != 1 || interp.GetOutputTensorCount() != 1 {
		_ = e.Close()
		return nil, fmt.Errorf("%w: expected 1 input and 1 output, got %d and %d",
			ErrInvalidModel, interp.GetInputTensorCount(), interp.GetOutputTensorCount())
	}

	in := interp.GetInputTensor(0)
	out := interp.GetOutputTensor(0)
	if in.Type() != tflite.Float32 || out.Type() != tflite.Float32 {
		_ = e.Close()
		return nil, fmt.Errorf("%w: expected float32 tensors", ErrInvalidModel)
	}

	inDims, outDims := tensorDims(in), tensorDims(out)
	shape, err := shapeFromDims(inDims, outDims)
	if err != nil {
		_ = e.Close()
		return nil, err
	}

	e.shape = shape
	e.inputs = []TensorInfo{{Name: in.Name(), Dimensions: inDims}}
	e.outputs = []TensorInfo{{Name: out.Name(), Dimensions: outDims}}
	return e, nil
}

// tensorDims returns the dimensions of t.
func tensorDims(t *tflite.Tensor) []int64 {
	dims := make([]int64, t.NumDims())
	for i := range dims {
		dims[i] = int64(t.Dim(i))
	}
	return dims
}

// Shape returns the declared shape.
func (e *TFLiteEngine) Shape() Shape {
	return e.shape
}

// Run executes the model once.
func (e *TFLiteEngine) Run(input []float32) ([]float32, error) {
	if e.interp == nil {
		return nil, ErrReleased
	}

	in := e.interp.GetInputTensor(0)
	dst := in.Float32s()
	if len(dst) != len(input) {
		return nil, fmt.Errorf("input tensor holds %d values, got %d", len(dst), len(input))
	}
	copy(dst, input)

	if status := e.interp.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("invoke failed: status %v", status)
	}

	return slices.Clone(e.interp.GetOutputTensor(0).Float32s()), nil
}

// Describe returns the model I/O description.
func (e *TFLiteEngine) Describe() Description {
	return Description{
		Format:  FormatTFLite,
		Path:    e.path,
		Inputs:  e.inputs,
		Outputs: e.outputs,
		Threads: e.threads,
	}
}

// Close deletes the interpreter, its options and the model.
func (e *TFLiteEngine) Close() error {
	if e.interp != nil {
		e.interp.Delete()
		e.interp = nil
	}
	if e.options != nil {
		e.options.Delete()
		e.options = nil
	}
	if e.model != nil {
		e.model.Delete()
		e.model = nil
	}
	return nil
}
