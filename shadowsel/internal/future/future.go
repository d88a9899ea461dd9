// CLAUDE:SUMMARY Single-assignment asynchronous result: goroutine-backed Future[T] with Await(ctx) and Then chaining.
// Package future provides a minimal promise type for goroutine-backed tasks.
//
// A Future settles exactly once with a value or an error. Await honours a
// context for the wait only: cancelling it never stops the task.
package future

import (
	"context"
	"sync"
)

// Future is the pending result of a task.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Go runs fn in a new goroutine and returns its future.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
		v, err := fn()
		f.settle(v, err)
	}()
	return f
}

// Resolved returns a future already settled with v.
func Resolved[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.settle(v, nil)
	return f
}

// Rejected returns a future already settled with err.
func Rejected[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.settle(zero, err)
	return f
}

func (f *Future[T]) settle(v T, err error) {
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
	})
}

// Done is closed when the future settles.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the future settles or ctx is done. In the latter case
// it returns ctx.Err() and the task keeps running.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Wait blocks until the future settles.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// Then chains fn onto f. A rejection of f propagates without calling fn.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	return Go(func() (U, error) {
		v, err := f.Wait()
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(v)
	})
}

// First settles with the first value among fs for which ok reports true.
// If every future settles without such a value, it settles with fallback.
// Rejections count as settled without a value; the first one is returned
// when no future succeeds.
func First[T any](fs []*Future[T], ok func(T) bool, fallback T) *Future[T] {
	out := newFuture[T]()
	if len(fs) == 0 {
		out.settle(fallback, nil)
		return out
	}
	var (
		mu       sync.Mutex
		pending  = len(fs)
		firstErr error
	)
	for _, f := range fs {
		go func(f *Future[T]) {
			v, err := f.Wait()
			if err == nil && ok(v) {
				out.settle(v, nil)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			pending--
			if pending == 0 {
				if firstErr != nil {
					out.settle(fallback, firstErr)
					return
				}
				out.settle(fallback, nil)
			}
		}(f)
	}
	return out
}
