package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hildanuzulul/Ulcare/internal/model"
	"github.com/hildanuzulul/Ulcare/internal/preprocess"
)

// requestsFor returns one request per name over in-memory sources.
func requestsFor(names ...string) []Request {
	reqs := make([]Request, len(names))
	for i, name := range names {
		reqs[i] = Request{Source: preprocess.NewBytesSource(name, []byte(name))}
	}
	return reqs
}

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })

		if bp == nil {
			t.Fatal("expected non-nil processor")
		}
		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(
			func() *Pipeline { return New() },
			WithConcurrency(2),
		)

		if bp.concurrency != 2 {
			t.Errorf("expected concurrency 2, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(
			func() *Pipeline { return New() },
			WithConcurrency(0),
		)

		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
	})

	t.Run("applies WithBatchLogger option", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(
			func() *Pipeline { return New() },
			WithBatchLogger(nil),
		)

		// When WithBatchLogger(nil) is passed, the logger should be set to default
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})
}

// TestBatchProcessorProcessBatch tests batch processing.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("processes all photos", func(t *testing.T) {
		t.Parallel()

		var processedCount atomic.Int32

		bp := NewBatchProcessor(func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{
				name: "counter",
				doFunc: func(_ context.Context, _ *Job) error {
					processedCount.Add(1)
					return nil
				},
			})
			return p
		})

		results, err := bp.ProcessBatch(context.Background(), requestsFor("a.jpg", "b.jpg", "c.jpg"))

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 3 {
			t.Errorf("expected 3 results, got %d", len(results))
		}
		if processedCount.Load() != 3 {
			t.Errorf("expected 3 processed, got %d", processedCount.Load())
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var maxConcurrent atomic.Int32
		var currentConcurrent atomic.Int32
		var mu sync.Mutex

		bp := NewBatchProcessor(
			func() *Pipeline {
				p := New()
				p.AddStep(&mockStep{
					name: "concurrent-counter",
					doFunc: func(_ context.Context, _ *Job) error {
						current := currentConcurrent.Add(1)

						mu.Lock()
						if current > maxConcurrent.Load() {
							maxConcurrent.Store(current)
						}
						mu.Unlock()

						time.Sleep(20 * time.Millisecond)

						currentConcurrent.Add(-1)
						return nil
					},
				})
				return p
			},
			WithConcurrency(2),
		)

		names := make([]string, 8)
		for i := range names {
			names[i] = "photo.jpg"
		}

		if _, err := bp.ProcessBatch(context.Background(), requestsFor(names...)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if maxConcurrent.Load() > 2 {
			t.Errorf("max concurrent was %d, expected <= 2", maxConcurrent.Load())
		}
	})

	t.Run("maintains result order", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{name: "noop"})
			return p
		})

		names := []string{"first.jpg", "second.jpg", "third.jpg"}
		results, err := bp.ProcessBatch(context.Background(), requestsFor(names...))

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, result := range results {
			if result.Image != names[i] {
				t.Errorf("result[%d]: got %q, expected %q", i, result.Image, names[i])
			}
		}
	})

	t.Run("continues after individual failure", func(t *testing.T) {
		t.Parallel()

		var processedCount atomic.Int32

		bp := NewBatchProcessor(func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{
				name: "sometimes-fails",
				doFunc: func(_ context.Context, job *Job) error {
					processedCount.Add(1)
					if job.Result.Image == "blurry.jpg" {
						return errors.New("simulated decode failure")
					}
					return nil
				},
			})
			return p
		})

		results, err := bp.ProcessBatch(context.Background(), requestsFor("first.jpg", "blurry.jpg", "third.jpg"))

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if processedCount.Load() != 3 {
			t.Errorf("expected 3 processed, got %d", processedCount.Load())
		}
		if results[1].Error == nil {
			t.Error("expected error in second result")
		}
		if results[0].Error != nil || results[2].Error != nil {
			t.Error("expected other results to be unaffected")
		}
	})

	t.Run("handles context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())

		var startedCount atomic.Int32

		bp := NewBatchProcessor(
			func() *Pipeline {
				p := New()
				p.AddStep(&mockStep{
					name: "slow-step",
					doFunc: func(ctx context.Context, _ *Job) error {
						startedCount.Add(1)
						select {
						case <-ctx.Done():
							return ctx.Err()
						case <-time.After(time.Second):
							return nil
						}
					},
				})
				return p
			},
			WithConcurrency(2),
		)

		names := make([]string, 10)
		for i := range names {
			names[i] = "photo.jpg"
		}

		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		_, err := bp.ProcessBatch(ctx, requestsFor(names...))

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		//nolint:gosec // len(names) is small, no overflow risk
		if startedCount.Load() >= int32(len(names)) {
			t.Error("expected some photos to not start due to cancellation")
		}
	})
}

// TestBatchProcessorProcessBatchWithCallback tests callback-based processing.
func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	var callbackCount atomic.Int32
	var mu sync.Mutex
	received := make(map[string]int)

	bp := NewBatchProcessor(func() *Pipeline {
		p := New()
		p.AddStep(&mockStep{name: "noop"})
		return p
	})

	names := []string{"first.jpg", "second.jpg", "third.jpg"}
	err := bp.ProcessBatchWithCallback(
		context.Background(),
		requestsFor(names...),
		func(result *model.Classification, index int) {
			callbackCount.Add(1)
			mu.Lock()
			received[result.Image] = index
			mu.Unlock()
		},
	)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if callbackCount.Load() != 3 {
		t.Errorf("expected 3 callbacks, got %d", callbackCount.Load())
	}
	for i, name := range names {
		if idx, ok := received[name]; !ok || idx != i {
			t.Errorf("missing or misplaced callback for %q", name)
		}
	}
}

// TestBatchProcessorProgress tests that ProcessBatch reports each photo.
func TestBatchProcessorProgress(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	seen := make(map[int]string)

	bp := NewBatchProcessor(func() *Pipeline {
		p := New()
		p.AddStep(&mockStep{name: "noop"})
		return p
	},
		WithConcurrency(2),
		WithProgress(func(result *model.Classification, index int) {
			mu.Lock()
			defer mu.Unlock()
			seen[index] = result.Image
		}),
	)

	names := []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"}
	results, err := bp.ProcessBatch(context.Background(), requestsFor(names...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seen) != len(names) {
		t.Fatalf("expected %d progress calls, got %d", len(names), len(seen))
	}
	for i, name := range names {
		if seen[i] != name {
			t.Errorf("progress index %d: expected %q, got %q", i, name, seen[i])
		}
		if results[i] == nil || results[i].Image != name {
			t.Errorf("result %d: expected %q", i, name)
		}
	}
}
