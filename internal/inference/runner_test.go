package inference

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hildanuzulul/Ulcare/internal/model"
)

// fakeEngine is an in-memory Engine for tests.
type fakeEngine struct {
	shape  Shape
	out    []float32
	err    error
	panics bool
	delay  time.Duration

	// echo makes Run return the input's first value followed by zeros.
	echo bool

	active    atomic.Int32
	maxActive atomic.Int32
	runs      atomic.Int32
	closed    atomic.Bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		shape: Shape{Height: 2, Width: 2, Classes: 5},
		out:   []float32{0.1, 0.2, 0.9, 0.3, 0.0},
	}
}

func (f *fakeEngine) Shape() Shape { return f.shape }

func (f *fakeEngine) Run(input []float32) ([]float32, error) {
	if f.closed.Load() {
		return nil, ErrReleased
	}
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	f.runs.Add(1)

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panics {
		panic("native crash")
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.echo {
		out := make([]float32, f.shape.Classes)
		out[0] = input[0]
		return out, nil
	}
	return f.out, nil
}

func (f *fakeEngine) Describe() Description {
	return Description{Format: "fake", Path: "fake.model"}
}

func (f *fakeEngine) Close() error {
	f.closed.Store(true)
	return nil
}

// staticLoader returns a Loader that always yields e and counts calls.
func staticLoader(e Engine, calls *atomic.Int32) Loader {
	return func(_ context.Context) (Engine, error) {
		calls.Add(1)
		return e, nil
	}
}

func TestRunnerAcquire(t *testing.T) {
	t.Parallel()

	t.Run("concurrent first callers share one load", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		gate := make(chan struct{})
		engine := newFakeEngine()
		r := NewRunner(func(_ context.Context) (Engine, error) {
			calls.Add(1)
			<-gate
			return engine, nil
		})

		const callers = 16
		var wg sync.WaitGroup
		results := make([]Engine, callers)
		errs := make([]error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = r.Acquire(context.Background())
			}(i)
		}

		// Give the callers time to pile up behind the in-flight load.
		time.Sleep(20 * time.Millisecond)
		close(gate)
		wg.Wait()

		if got := calls.Load(); got != 1 {
			t.Errorf("expected 1 load, got %d", got)
		}
		for i := range results {
			if errs[i] != nil {
				t.Fatalf("caller %d: unexpected error: %v", i, errs[i])
			}
			if results[i] != Engine(engine) {
				t.Errorf("caller %d received a different engine", i)
			}
		}
		if r.Loads() != 1 {
			t.Errorf("expected Loads() = 1, got %d", r.Loads())
		}
	})

	t.Run("failed load is not cached", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		engine := newFakeEngine()
		r := NewRunner(func(_ context.Context) (Engine, error) {
			if calls.Add(1) == 1 {
				return nil, errors.New("disk hiccup")
			}
			return engine, nil
		})

		_, err := r.Acquire(context.Background())
		var ie *InferenceError
		if !errors.As(err, &ie) {
			t.Fatalf("expected InferenceError, got %v", err)
		}
		if ie.Op != "load" {
			t.Errorf("expected op load, got %q", ie.Op)
		}

		if _, err := r.Acquire(context.Background()); err != nil {
			t.Fatalf("expected second load to succeed, got %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 load attempts, got %d", calls.Load())
		}
	})

	t.Run("model not found is passed through", func(t *testing.T) {
		t.Parallel()

		r := NewRunner(func(_ context.Context) (Engine, error) {
			return nil, ErrModelNotFound
		})
		if _, err := r.Acquire(context.Background()); !errors.Is(err, ErrModelNotFound) {
			t.Errorf("expected ErrModelNotFound, got %v", err)
		}
	})

	t.Run("cancelled caller stops waiting", func(t *testing.T) {
		t.Parallel()

		gate := make(chan struct{})
		defer close(gate)
		r := NewRunner(func(_ context.Context) (Engine, error) {
			<-gate
			return newFakeEngine(), nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if _, err := r.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
	})

	t.Run("nil loader", func(t *testing.T) {
		t.Parallel()

		r := NewRunner(nil)
		var ie *InferenceError
		if _, err := r.Acquire(context.Background()); !errors.As(err, &ie) {
			t.Errorf("expected InferenceError, got %v", err)
		}
	})
}

func TestRunnerRelease(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	first := newFakeEngine()
	r := NewRunner(staticLoader(first, &calls))

	if err := r.Release(); err != nil {
		t.Fatalf("release of an unloaded runner should be a no-op, got %v", err)
	}

	if _, err := r.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Loaded() {
		t.Fatal("expected runner to hold a model")
	}

	if err := r.Release(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Loaded() {
		t.Error("expected runner to be empty after release")
	}
	if !first.closed.Load() {
		t.Error("expected engine to be closed")
	}

	// Reload after release.
	first.closed.Store(false)
	if _, err := r.Infer(context.Background(), make([]float32, first.shape.InputLen())); err != nil {
		t.Fatalf("unexpected error after reload: %v", err)
	}
	if calls.Load() != 2 || r.Loads() != 2 {
		t.Errorf("expected 2 loads, got calls=%d loads=%d", calls.Load(), r.Loads())
	}
}

func TestRunnerInfer(t *testing.T) {
	t.Parallel()

	t.Run("returns a copy of the scores", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		engine := newFakeEngine()
		r := NewRunner(staticLoader(engine, &calls))

		scores, err := r.Infer(context.Background(), make([]float32, 12))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(scores) != 5 || scores[2] != 0.9 {
			t.Fatalf("unexpected scores %v", scores)
		}

		scores[2] = -1
		if engine.out[2] != 0.9 {
			t.Error("scores must not alias engine memory")
		}
	})

	t.Run("shape mismatch", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		engine := newFakeEngine()
		r := NewRunner(staticLoader(engine, &calls))

		_, err := r.Infer(context.Background(), make([]float32, 11))
		var se *ShapeError
		if !errors.As(err, &se) {
			t.Fatalf("expected ShapeError, got %v", err)
		}
		if se.Expected != 12 || se.Actual != 11 {
			t.Errorf("unexpected shape error %+v", se)
		}
		if engine.runs.Load() != 0 {
			t.Error("engine must not run on a shape mismatch")
		}
	})

	t.Run("engine failure is wrapped", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("out of memory")
		var calls atomic.Int32
		engine := newFakeEngine()
		engine.err = cause
		r := NewRunner(staticLoader(engine, &calls))

		_, err := r.Infer(context.Background(), make([]float32, 12))
		var ie *InferenceError
		if !errors.As(err, &ie) {
			t.Fatalf("expected InferenceError, got %v", err)
		}
		if !errors.Is(err, cause) {
			t.Error("expected the cause to be preserved")
		}
		if engine.runs.Load() != 1 {
			t.Errorf("expected no retry, got %d runs", engine.runs.Load())
		}
	})

	t.Run("panic becomes inference error", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		engine := newFakeEngine()
		engine.panics = true
		r := NewRunner(staticLoader(engine, &calls))

		_, err := r.Infer(context.Background(), make([]float32, 12))
		var ie *InferenceError
		if !errors.As(err, &ie) {
			t.Fatalf("expected InferenceError, got %v", err)
		}

		// The runner stays usable.
		engine.panics = false
		if _, err := r.Infer(context.Background(), make([]float32, 12)); err != nil {
			t.Errorf("expected runner to recover, got %v", err)
		}
	})

	t.Run("concurrent calls are serialized", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		engine := newFakeEngine()
		engine.delay = 2 * time.Millisecond
		engine.echo = true
		r := NewRunner(staticLoader(engine, &calls))

		const n = 8
		results := make([]model.Scores, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tensor := make([]float32, 12)
				for j := range tensor {
					tensor[j] = float32(i + 1)
				}
				scores, err := r.Infer(context.Background(), tensor)
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				results[i] = scores
			}()
		}
		wg.Wait()

		for i, scores := range results {
			if len(scores) != 5 || scores[0] != float32(i+1) {
				t.Errorf("call %d: expected its own input echoed, got %v", i, scores)
			}
		}

		if engine.maxActive.Load() != 1 {
			t.Errorf("expected at most 1 concurrent run, got %d", engine.maxActive.Load())
		}
		if engine.runs.Load() != 8 {
			t.Errorf("expected 8 runs, got %d", engine.runs.Load())
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 load, got %d", calls.Load())
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		engine := newFakeEngine()
		r := NewRunner(staticLoader(engine, &calls))
		if _, err := r.Acquire(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := r.Infer(ctx, make([]float32, 12)); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if engine.runs.Load() != 0 {
			t.Error("engine must not run for a cancelled request")
		}
	})
}

func TestRunnerShapeAndDescribe(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	r := NewRunner(staticLoader(newFakeEngine(), &calls))

	shape, err := r.InputShape(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shape.Height != 2 || shape.Width != 2 {
		t.Errorf("unexpected shape %+v", shape)
	}

	k, err := r.OutputClasses(context.Background())
	if err != nil || k != 5 {
		t.Errorf("expected 5 classes, got %d (%v)", k, err)
	}

	d, err := r.Describe(context.Background())
	if err != nil || d.Format != "fake" {
		t.Errorf("unexpected description %+v (%v)", d, err)
	}
}
