package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hildanuzulul/Ulcare/internal/inference"
	"github.com/hildanuzulul/Ulcare/internal/model"
	"github.com/hildanuzulul/Ulcare/internal/preprocess"
)

// Job is one classification request moving through the pipeline.
// Source is read by the first step; Result accumulates everything the steps
// produce and is what callers get back.
type Job struct {
	// Source is the photo to classify.
	Source preprocess.Source

	// Result is the classification being built.
	Result *model.Classification
}

// NewJob creates a job for src with a fresh request ID.
func NewJob(src preprocess.Source) *Job {
	name := ""
	if src != nil {
		name = src.Name()
	}
	return &Job{
		Source: src,
		Result: model.NewClassification(NewRequestID(), name),
	}
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the job as left
// by the previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state (runner, normalization)
// 2. It provides a Name() method for logging and for Classification.Steps
// 3. Tests can replace any single step with a fake
type Step interface {
	// Do executes the pipeline step.
	// It receives the context for cancellation, and the job to modify.
	// Any returned error terminates the request.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// keepIntermediates retains the decoded image and tensor on the
	// result after execution.
	keepIntermediates bool

	// timeout bounds one Execute call. Zero means no limit.
	timeout time.Duration
}

// Option is a function that configures a Pipeline.
// This follows the functional options pattern for clean API design.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithKeepIntermediates keeps the decoded image and tensor on the result.
// By default they are dropped when the pipeline finishes so that batches
// of camera photos do not pile up in memory.
func WithKeepIntermediates(keep bool) Option {
	return func(p *Pipeline) {
		p.keepIntermediates = keep
	}
}

// WithTimeout bounds each Execute call. A request that runs past d fails
// with context.DeadlineExceeded at the next step boundary.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
// It respects context cancellation and logs each step's execution.
//
// Design decision: We check ctx before each step rather than relying on
// the steps alone. Decoding and inference are not interruptible once
// started, so the gaps between steps are where a cancelled request stops.
//
// The first failing step terminates the request: its error is recorded on
// job.Result and returned. A panic inside a step is recovered and reported
// as an *inference.InferenceError.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	c := job.Result
	defer func() {
		if !p.keepIntermediates {
			c.ReleaseIntermediates()
		}
	}()

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"request", c.ID,
				"reason", ctx.Err(),
			)
			p.fail(c, ctx.Err())
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"request", c.ID,
		)

		if err := runStep(ctx, step, job); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"request", c.ID,
				"image", c.Image,
				"error", err,
			)
			p.fail(c, err)
			return err
		}

		c.Steps = append(c.Steps, step.Name())
	}

	p.logger.Info("classification complete",
		"request", c.ID,
		"image", c.Image,
		"label", c.Severity.String(),
	)
	return nil
}

// fail records err on c.
func (p *Pipeline) fail(c *model.Classification, err error) {
	c.Error = err
	c.ErrorMessage = UserMessage(err)
}

// runStep executes step, converting a panic into an InferenceError.
func runStep(ctx context.Context, step Step, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &inference.InferenceError{
				Op:  step.Name(),
				Err: fmt.Errorf("panic: %v", r),
			}
		}
	}()
	return step.Do(ctx, job)
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
