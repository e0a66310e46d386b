package store

import "context"

// Future is the asynchronous result of an operation. Its value becomes
// available only after the call that created it has returned.
type Future[T any] struct {
	done  chan struct{}
	value T
}

// Async runs fn on its own goroutine and returns a Future for its result.
func Async[T any](fn func() T) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		f.value = fn()
		close(f.done)
	}()
	return f
}

// Done returns a channel that is closed once the value is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the value is available or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
