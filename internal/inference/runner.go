package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hildanuzulul/Ulcare/internal/model"
)

// loadKey is the singleflight key for the one model a Runner owns.
const loadKey = "model"

// Runner owns the cached model handle.
// It loads the model lazily, serializes inference, and can be released and
// reloaded. A Runner is safe for concurrent use.
//
// Design decision: One Runner is shared process-wide. Inference calls are
// serialized by runMu because native sessions are not guaranteed to be
// re-entrant; decoding, which dominates request time for camera photos,
// still runs in parallel outside the Runner.
type Runner struct {
	loader Loader
	logger *slog.Logger

	// group collapses concurrent first loads into one.
	group singleflight.Group

	// mu guards engine and loads.
	mu     sync.Mutex
	engine Engine
	loads  int

	// runMu serializes Run and Release.
	runMu sync.Mutex
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner that opens its model with loader.
// Nothing is loaded until the first Acquire or Infer.
func NewRunner(loader Loader, opts ...RunnerOption) *Runner {
	r := &Runner{
		loader: loader,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Acquire returns the cached engine, loading it on first use.
// Concurrent callers during a load wait for that single load and share its
// result. A failed load is not cached; the next call tries again.
func (r *Runner) Acquire(ctx context.Context) (Engine, error) {
	if e := r.cached(); e != nil {
		return e, nil
	}
	if r.loader == nil {
		return nil, NewInferenceError("load", errors.New("no model loader configured"))
	}

	ch := r.group.DoChan(loadKey, func() (any, error) {
		if e := r.cached(); e != nil {
			return e, nil
		}

		start := time.Now()
		// The load is shared, so one caller's cancellation must not abort it.
		e, err := r.loader(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.engine = e
		r.loads++
		r.mu.Unlock()

		r.logger.Debug("model loaded",
			"shape", e.Shape().String(),
			"duration", time.Since(start))
		return e, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, ErrModelNotFound) || errors.Is(res.Err, ErrUnsupportedFormat) ||
				errors.Is(res.Err, ErrEngineUnavailable) {
				return nil, res.Err
			}
			return nil, NewInferenceError("load", res.Err)
		}
		e, _ := res.Val.(Engine)
		return e, nil
	}
}

// cached returns the loaded engine or nil.
func (r *Runner) cached() Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine
}

// Loaded reports whether a model is currently held.
func (r *Runner) Loaded() bool {
	return r.cached() != nil
}

// Loads returns how many times the model has been loaded.
func (r *Runner) Loads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads
}

// InputShape returns the model's declared shape, loading it if needed.
func (r *Runner) InputShape(ctx context.Context) (Shape, error) {
	e, err := r.Acquire(ctx)
	if err != nil {
		return Shape{}, err
	}
	return e.Shape(), nil
}

// OutputClasses returns the number of scores the model declares, 0 when
// dynamic.
func (r *Runner) OutputClasses(ctx context.Context) (int, error) {
	s, err := r.InputShape(ctx)
	if err != nil {
		return 0, err
	}
	return s.Classes, nil
}

// Describe returns the model I/O description, loading it if needed.
func (r *Runner) Describe(ctx context.Context) (Description, error) {
	e, err := r.Acquire(ctx)
	if err != nil {
		return Description{}, err
	}
	return e.Describe(), nil
}

// Infer runs the model on tensor and returns its scores.
//
// tensor must have exactly 1*H*W*3 values for the loaded model, otherwise a
// *ShapeError is returned. Runtime failures, including panics inside the
// engine, are returned as *InferenceError. The returned scores are a copy
// and never alias engine memory.
func (r *Runner) Infer(ctx context.Context, tensor []float32) (scores model.Scores, err error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	e, err := r.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	shape := e.Shape()
	if len(tensor) != shape.InputLen() {
		return nil, &ShapeError{Expected: shape.InputLen(), Actual: len(tensor)}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			scores = nil
			err = &InferenceError{Op: "run", Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	start := time.Now()
	out, err := e.Run(tensor)
	if err != nil {
		return nil, NewInferenceError("run", err)
	}

	r.logger.Debug("inference complete",
		"outputs", len(out),
		"duration", time.Since(start))

	return model.Scores(slices.Clone(out)), nil
}

// Release closes the cached engine. It waits for a running inference to
// finish. The next Acquire or Infer loads the model again. Releasing an
// unloaded Runner is a no-op.
func (r *Runner) Release() error {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	r.mu.Lock()
	e := r.engine
	r.engine = nil
	r.mu.Unlock()

	if e == nil {
		return nil
	}
	r.logger.Debug("model released")
	if err := e.Close(); err != nil {
		return fmt.Errorf("failed to release model: %w", err)
	}
	return nil
}
