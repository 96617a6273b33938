// ===============================
// FILE: internal/services/future.go
// ===============================

package services

import (
	"context"
	"sync"

	"github.com/ovifx6/Ovizone/internal/models"
)

// CommentFuture is a single-settlement result channel. It settles exactly
// once; later settlement attempts are no-ops. The registered callback and
// the awaitable side always observe the same outcome.
type CommentFuture struct {
	done     chan struct{}
	once     sync.Once
	callback func(*models.CommentResult, error)
	result   *models.CommentResult
	err      error
}

func newCommentFuture(callback func(*models.CommentResult, error)) *CommentFuture {
	return &CommentFuture{
		done:     make(chan struct{}),
		callback: callback,
	}
}

// settle records the outcome, fires the callback, and releases waiters.
// Only the first call has any effect.
func (f *CommentFuture) settle(result *models.CommentResult, err error) {
	f.once.Do(func() {
		f.result = result
		f.err = err
		if f.callback != nil {
			f.callback(result, err)
		}
		close(f.done)
	})
}

// Done returns a channel closed once the future has settled.
func (f *CommentFuture) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future settles or ctx is cancelled. Cancellation
// abandons the wait, not the pipeline; a later Wait still observes the
// settled outcome.
func (f *CommentFuture) Wait(ctx context.Context) (*models.CommentResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
