package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hildanuzulul/Ulcare/internal/inference"
	"github.com/hildanuzulul/Ulcare/internal/model"
	"github.com/hildanuzulul/Ulcare/internal/preprocess"
)

// Step names, recorded in Classification.Steps.
const (
	StepDecode   = "decode"
	StepTensor   = "tensor"
	StepInfer    = "infer"
	StepResolve  = "resolve"
	StepGuidance = "guidance"
)

// Classifier is the part of the model runner the pipeline needs.
// *inference.Runner implements it.
type Classifier interface {
	// InputShape returns the model's declared input shape.
	InputShape(ctx context.Context) (inference.Shape, error)

	// Infer runs the model on a tensor of InputShape().InputLen() values.
	Infer(ctx context.Context, tensor []float32) (model.Scores, error)
}

// DecodeStep reads and decodes the source photo.
//
// Design decision: Decoding is its own step because it is the only step
// that touches the photo bytes. Everything after it works on in-memory
// images, so a failure here always means "bad photo", never "bad model".
type DecodeStep struct {
	// opts configures the fast decode.
	opts preprocess.Options

	// logger for structured logging.
	logger *slog.Logger
}

// DecodeStepOption configures a DecodeStep.
type DecodeStepOption func(*DecodeStep)

// WithDecodeOptions sets the decode options.
func WithDecodeOptions(opts preprocess.Options) DecodeStepOption {
	return func(s *DecodeStep) {
		s.opts = opts
	}
}

// WithDecodeLogger sets a custom logger for the decode step.
func WithDecodeLogger(logger *slog.Logger) DecodeStepOption {
	return func(s *DecodeStep) {
		s.logger = logger
	}
}

// NewDecodeStep creates a new decode step.
func NewDecodeStep(opts ...DecodeStepOption) *DecodeStep {
	s := &DecodeStep{
		opts:   preprocess.DefaultOptions(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *DecodeStep) Name() string {
	return StepDecode
}

// Do executes the decode step.
func (s *DecodeStep) Do(ctx context.Context, job *Job) error {
	start := time.Now()
	decoded, err := preprocess.Decode(ctx, job.Source, s.opts)
	if err != nil {
		return err
	}

	c := job.Result
	c.Decoded = decoded.Image
	c.Fingerprint = decoded.Fingerprint
	c.PhotoWidth = decoded.Width
	c.PhotoHeight = decoded.Height
	c.PhotoHasGPS = decoded.Metadata.HasGPS
	c.DecodeDuration += time.Since(start)

	if decoded.Metadata.HasGPS {
		s.logger.Warn("photo contains GPS coordinates",
			"request", c.ID,
			"image", c.Image,
		)
	}

	s.logger.Debug("photo decoded",
		"request", c.ID,
		"format", decoded.Format,
		"width", decoded.Width,
		"height", decoded.Height,
		"sample", decoded.SampleSize,
		"orientation", decoded.Metadata.Orientation,
	)
	return nil
}

// TensorStep resizes the decoded photo to the model input size and
// normalizes it into a tensor.
type TensorStep struct {
	classifier Classifier
	mean       float32
	std        float32
}

// TensorStepOption configures a TensorStep.
type TensorStepOption func(*TensorStep)

// WithNormalization sets the mean and std applied to every channel value.
func WithNormalization(mean, std float32) TensorStepOption {
	return func(s *TensorStep) {
		s.mean = mean
		s.std = std
	}
}

// NewTensorStep creates a new tensor step. The classifier provides the
// model input size.
func NewTensorStep(classifier Classifier, opts ...TensorStepOption) *TensorStep {
	s := &TensorStep{
		classifier: classifier,
		mean:       preprocess.DefaultMean,
		std:        preprocess.DefaultStd,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *TensorStep) Name() string {
	return StepTensor
}

// Do executes the tensor step.
func (s *TensorStep) Do(ctx context.Context, job *Job) error {
	c := job.Result
	if c.Decoded == nil {
		return errors.New("no decoded image")
	}

	shape, err := s.classifier.InputShape(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	resized, err := preprocess.Resize(c.Decoded, shape.Width, shape.Height)
	if err != nil {
		return fmt.Errorf("failed to resize: %w", err)
	}
	tensor, err := preprocess.ToTensor(resized, s.mean, s.std)
	if err != nil {
		return fmt.Errorf("failed to build tensor: %w", err)
	}

	c.Tensor = tensor
	c.DecodeDuration += time.Since(start)
	return nil
}

// InferStep runs the model on the tensor.
type InferStep struct {
	classifier Classifier
}

// NewInferStep creates a new inference step.
func NewInferStep(classifier Classifier) *InferStep {
	return &InferStep{classifier: classifier}
}

// Name returns the step name.
func (s *InferStep) Name() string {
	return StepInfer
}

// Do executes the inference step.
func (s *InferStep) Do(ctx context.Context, job *Job) error {
	c := job.Result
	if c.Tensor == nil {
		return errors.New("no input tensor")
	}

	start := time.Now()
	scores, err := s.classifier.Infer(ctx, c.Tensor)
	if err != nil {
		return err
	}

	c.Scores = scores
	c.InferenceDuration = time.Since(start)
	return nil
}

// ResolveStep maps the raw scores to a severity label.
type ResolveStep struct{}

// NewResolveStep creates a new resolve step.
func NewResolveStep() *ResolveStep {
	return &ResolveStep{}
}

// Name returns the step name.
func (s *ResolveStep) Name() string {
	return StepResolve
}

// Do executes the resolve step.
func (s *ResolveStep) Do(_ context.Context, job *Job) error {
	c := job.Result
	severity, err := model.Resolve(c.Scores)
	if err != nil {
		return err
	}
	c.SetSeverity(severity, c.Scores)
	return nil
}

// GuidanceStep attaches the clinical detail and action for the label.
// Override texts on the classification win when at least one is set.
type GuidanceStep struct{}

// NewGuidanceStep creates a new guidance step.
func NewGuidanceStep() *GuidanceStep {
	return &GuidanceStep{}
}

// Name returns the step name.
func (s *GuidanceStep) Name() string {
	return StepGuidance
}

// Do executes the guidance step.
func (s *GuidanceStep) Do(_ context.Context, job *Job) error {
	job.Result.ApplyGuidance()
	return nil
}
