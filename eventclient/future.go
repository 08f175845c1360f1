package eventclient

import "sync"

// Future carries the eventual outcome of a public verb. It completes
// exactly once; Wait blocks until it does.
type Future[T any] struct {
	done   chan struct{}
	once   sync.Once
	value  T
	err    error
}

// NewFuture returns a Future ready to be completed once.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Complete settles the future with a value. Only the first call has effect.
func (f *Future[T]) Complete(value T) {
	f.once.Do(func() {
		f.value = value
		close(f.done)
	})
}

// Fail settles the future with an error. Only the first call has effect
// (whichever of Complete/Fail runs first wins).
func (f *Future[T]) Fail(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Wait blocks until the future is settled and returns its outcome.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.value, f.err
}

// Done returns a channel closed once the future is settled, for use in
// select statements.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}
