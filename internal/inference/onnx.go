package inference

import (
	"fmt"
	"os"
	"runtime"
	"slices"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// onnxEnvMu guards the process-wide ONNX Runtime environment.
var onnxEnvMu sync.Mutex

// onnxLibraryCandidates are checked in order when no library path is set.
var onnxLibraryCandidates = []string{
	"/usr/local/lib/libonnxruntime.so",
	"/usr/lib/libonnxruntime.so",
	"/opt/onnxruntime/lib/libonnxruntime.so",
	"/opt/homebrew/lib/libonnxruntime.dylib",
	"/usr/local/lib/libonnxruntime.dylib",
}

// initONNXEnvironment initializes ONNX Runtime once per process.
// libraryPath overrides the shared library lookup when non-empty.
func initONNXEnvironment(libraryPath string) error {
	onnxEnvMu.Lock()
	defer onnxEnvMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	if libraryPath == "" {
		libraryPath = findONNXLibrary()
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}
	return nil
}

// findONNXLibrary returns the first existing well-known library path for
// this OS, or "" to let ONNX Runtime use its own default.
func findONNXLibrary() string {
	if runtime.GOOS == "windows" {
		return ""
	}
	for _, p := range onnxLibraryCandidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// ONNXEngine runs a classifier through ONNX Runtime.
// The model must take one NHWC float32 input [1, H, W, 3] and produce one
// [1, K] float32 output.
type ONNXEngine struct {
	path    string
	threads int
	session *ort.DynamicAdvancedSession
	input   ort.InputOutputInfo
	output  ort.InputOutputInfo
	shape   Shape
}

// LoadONNX opens the ONNX model at path.
func LoadONNX(path string, opts EngineOptions) (*ONNXEngine, error) {
	if err := initONNXEnvironment(opts.ONNXLibrary); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model I/O: %w", err)
	}
	in, out, shape, err := validateONNXIO(inputs, outputs)
	if err != nil {
		return nil, err
	}

	sessionOpts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer sessionOpts.Destroy() //nolint:errcheck // options are copied into the session

	threads := opts.threads()
	if err := sessionOpts.SetIntraOpNumThreads(threads); err != nil {
		return nil, fmt.Errorf("failed to set thread count: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(path, []string{in.Name}, []string{out.Name}, sessionOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &ONNXEngine{
		path:    path,
		threads: threads,
		session: session,
		input:   in,
		output:  out,
		shape:   shape,
	}, nil
}

// validateONNXIO checks the classifier contract and derives the Shape.
func validateONNXIO(inputs, outputs []ort.InputOutputInfo) (ort.InputOutputInfo, ort.InputOutputInfo, Shape, error) {
	var none ort.InputOutputInfo
	if len(inputs) != 1 || len(outputs) != 1 {
		return none, none, Shape{}, fmt.Errorf("%w: expected 1 input and 1 output, got %d and %d",
			ErrInvalidModel, len(inputs), len(outputs))
	}

	in, out := inputs[0], outputs[0]
	shape, err := shapeFromDims(in.Dimensions, out.Dimensions)
	if err != nil {
		return none, none, Shape{}, err
	}
	return in, out, shape, nil
}

// shapeFromDims derives a Shape from NHWC input and [1, K] output dims.
func shapeFromDims(in, out []int64) (Shape, error) {
	if len(in) != 4 {
		return Shape{}, fmt.Errorf("%w: expected 4D input, got %dD", ErrInvalidModel, len(in))
	}
	if c := in[3]; c > 0 && c != InputChannels {
		return Shape{}, fmt.Errorf("%w: expected %d input channels, got %d", ErrInvalidModel, InputChannels, c)
	}
	if len(out) != 2 {
		return Shape{}, fmt.Errorf("%w: expected 2D output, got %dD", ErrInvalidModel, len(out))
	}

	classes := 0
	if out[1] > 0 {
		classes = int(out[1])
	}
	return Shape{
		Height:  spatialDim(in[1]),
		Width:   spatialDim(in[2]),
		Classes: classes,
	}, nil
}

// Shape returns the declared shape.
func (e *ONNXEngine) Shape() Shape {
	return e.shape
}

// Run executes the model once.
func (e *ONNXEngine) Run(input []float32) ([]float32, error) {
	if e.session == nil {
		return nil, ErrReleased
	}

	in, err := ort.NewTensor(ort.NewShape(1, int64(e.shape.Height), int64(e.shape.Width), InputChannels), input)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer in.Destroy() //nolint:errcheck // nothing useful to do on failure

	// A dynamic class count leaves the output nil for the session to allocate.
	outputs := []ort.ArbitraryTensor{nil}
	if e.shape.Classes > 0 {
		out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(e.shape.Classes)))
		if err != nil {
			return nil, fmt.Errorf("failed to create output tensor: %w", err)
		}
		outputs[0] = out
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				_ = o.Destroy()
			}
		}
	}()

	if err := e.session.Run([]ort.ArbitraryTensor{in}, outputs); err != nil {
		return nil, err
	}

	t, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", outputs[0])
	}
	return slices.Clone(t.GetData()), nil
}

// Describe returns the model I/O description.
func (e *ONNXEngine) Describe() Description {
	return Description{
		Format:  FormatONNX,
		Path:    e.path,
		Inputs:  []TensorInfo{{Name: e.input.Name, Dimensions: slices.Clone([]int64(e.input.Dimensions))}},
		Outputs: []TensorInfo{{Name: e.output.Name, Dimensions: slices.Clone([]int64(e.output.Dimensions))}},
		Threads: e.threads,
	}
}

// Close destroys the session.
func (e *ONNXEngine) Close() error {
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	if err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}
