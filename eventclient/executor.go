package eventclient

// Executor runs a callback off the control goroutine so that user code
// (connection listener callbacks) can never stall task processing.
// Grounded on the teacher's pattern of invoking disconnectHandler/
// errorHandler as plain funcs off the read routine, generalized into an
// explicit seam so tests can inject a synchronous executor.
type Executor interface {
	Execute(func())
}

// GoroutineExecutor runs each callback in its own goroutine.
type GoroutineExecutor struct{}

// Execute runs fn in a new goroutine.
func (GoroutineExecutor) Execute(fn func()) {
	go fn()
}

// SyncExecutor runs each callback inline. Useful in tests that need
// deterministic ordering.
type SyncExecutor struct{}

// Execute runs fn synchronously.
func (SyncExecutor) Execute(fn func()) {
	fn()
}
