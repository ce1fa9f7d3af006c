package pipeline

import (
	"context"

	"github.com/hildanuzulul/Ulcare/internal/model"
	"github.com/hildanuzulul/Ulcare/internal/preprocess"
)

// Settings holds the parameters of the standard classification pipeline.
type Settings struct {
	// Decode configures photo decoding.
	Decode preprocess.Options

	// Mean and Std normalize channel values.
	Mean float32
	Std  float32
}

// DefaultSettings returns the settings the model was trained with.
func DefaultSettings() Settings {
	return Settings{
		Decode: preprocess.DefaultOptions(),
		Mean:   preprocess.DefaultMean,
		Std:    preprocess.DefaultStd,
	}
}

// NewClassifyPipeline builds the standard pipeline:
// decode -> tensor -> infer -> resolve -> guidance.
func NewClassifyPipeline(classifier Classifier, settings Settings, opts ...Option) *Pipeline {
	p := New(opts...)
	p.AddSteps(
		NewDecodeStep(WithDecodeOptions(settings.Decode), WithDecodeLogger(p.logger)),
		NewTensorStep(classifier, WithNormalization(settings.Mean, settings.Std)),
		NewInferStep(classifier),
		NewResolveStep(),
		NewGuidanceStep(),
	)
	return p
}

// Request describes one photo to classify and what to attach to the result.
type Request struct {
	// Source is the photo.
	Source preprocess.Source

	// Identity is the patient, nil for anonymous use.
	Identity *model.Identity

	// Detail and Action override the guidance table when at least one
	// is non-blank.
	Detail string
	Action string
}

// NewJob turns the request into a pipeline job.
func (r Request) NewJob() *Job {
	job := NewJob(r.Source)
	job.Result.WithIdentity(r.Identity)
	job.Result.OverrideDetail = r.Detail
	job.Result.OverrideAction = r.Action
	return job
}

// Classify runs p for req on the caller's goroutine and returns the
// result. The result is returned even on failure, with Error set.
func Classify(ctx context.Context, p *Pipeline, req Request) (*model.Classification, error) {
	job := req.NewJob()
	err := p.Execute(ctx, job)
	return job.Result, err
}
