package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/hildanuzulul/Ulcare/internal/model"
)

// NewRequestID returns a new random request ID.
func NewRequestID() string {
	return uuid.NewString()
}

// Task is a classification running in the background.
//
// Design decision: A cancelled task never delivers a result. Decoding and
// inference cannot be interrupted mid-call, so the work may still finish,
// but its result is discarded and the completion callback is skipped. This
// is what a caller that has navigated away expects.
type Task struct {
	// ID is the request ID of the classification.
	ID string

	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	cancelled bool
	finished  bool
	result    *model.Classification
	err       error
}

// Submit starts p on job in a new goroutine and returns immediately.
// onDone, if non-nil, is called once with the result unless the task is
// cancelled first. It runs on the task's goroutine.
func Submit(ctx context.Context, p *Pipeline, job *Job, onDone func(*model.Classification, error)) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		ID:     job.Result.ID,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer cancel()
		err := p.Execute(ctx, job)

		t.mu.Lock()
		if t.cancelled {
			t.mu.Unlock()
			close(t.done)
			return
		}
		t.finished = true
		t.result = job.Result
		t.err = err
		t.mu.Unlock()
		close(t.done)

		if onDone != nil {
			onDone(job.Result, err)
		}
	}()

	return t
}

// Done returns a channel closed when the task has finished or has been
// cancelled and its goroutine has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Cancel stops the task. Once Cancel returns, the task will not deliver a
// result unless it had already finished. Cancel is idempotent.
func (t *Task) Cancel() {
	t.mu.Lock()
	if !t.finished {
		t.cancelled = true
	}
	t.mu.Unlock()
	t.cancel()
}

// Cancelled reports whether the task was cancelled before finishing.
func (t *Task) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Wait blocks until the task finishes or ctx is done.
// A cancelled task returns a nil result and ErrTaskCancelled.
func (t *Task) Wait(ctx context.Context) (*model.Classification, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return nil, ErrTaskCancelled
	}
	return t.result, t.err
}
