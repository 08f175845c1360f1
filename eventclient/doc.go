// Package eventclient implements the connection lifecycle engine for an
// asynchronous client of an append-only event-stream server: a
// length-prefixed binary protocol over TCP, optionally wrapped in TLS.
//
// The primary lifecycle is:
//   - construct a Client with NewClient
//   - Connect to start the state machine (endpoint discovery, TCP dial,
//     authentication)
//   - issue append/read/delete/subscribe calls, each returning a Future
//   - Close to tear the connection down and fail any outstanding work
//
// All state mutation happens on a single logical control goroutine driven
// by a task queue; the transport's read loop and user callbacks never touch
// engine state directly. Connection Listener callbacks run on a
// caller-supplied Executor. Futures are settled on the control goroutine and
// their waiters resume on their own goroutines. SubscriptionListener
// callbacks are called directly on the control goroutine, so a slow
// subscription listener delays every other task.
//
// Errors are reported as one of the sentinel values in errors.go, wrapped
// with additional context via fmt.Errorf's %w verb.
package eventclient
