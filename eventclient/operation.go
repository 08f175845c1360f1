package eventclient

import (
	"time"

	"github.com/google/uuid"
)

// Decision tells the operation manager what to do after inspecting a
// package or a timeout. Grounded on the teacher's inspection-result
// pattern (client.go's handling of completion vs. retry vs. reconnect
// outcomes), generalized into an explicit enum rather than scattered
// bool/error returns.
type Decision int

const (
	// DoNothing means the package was not for this operation.
	DoNothing Decision = iota
	// EndOperation completes the operation, successfully or with Err set.
	EndOperation
	// Retry resends the request on the current channel.
	Retry
	// Reconnect means the server signaled it is not the endpoint to talk
	// to (e.g. not-master); the engine should reconnect before retrying.
	Reconnect
	// NotHandled means the server rejected the command outright.
	NotHandled
)

// DecisionResult is what Operation.Inspect returns: what to do, and — for
// EndOperation — the terminal error, if any.
type DecisionResult struct {
	Decision Decision
	Err      error
}

func decide(d Decision) DecisionResult { return DecisionResult{Decision: d} }

func fail(err error) DecisionResult { return DecisionResult{Decision: EndOperation, Err: err} }

// Operation is a single request/response unit of work tracked by the
// operation manager (spec.md §4.4). CreateRequest builds the wire package
// to send; Inspect classifies an incoming response addressed to this
// operation's correlation id; Fail is invoked when the operation ends
// without ever seeing a response (timeout, retry exhaustion, connection
// loss).
type Operation interface {
	CreateRequest(correlationID CorrelationID) *Package
	Inspect(pkg *Package) DecisionResult
	Fail(err error)
}

// CorrelationID identifies one in-flight operation or subscription.
// Aliased so call sites read as domain vocabulary rather than a bare
// uuid.UUID.
type CorrelationID = uuid.UUID

// OperationItem is the operation manager's bookkeeping record for one
// in-flight or waiting operation. Grounded on the teacher's per-request
// tracking struct paired with its retry/timeout fields.
type OperationItem struct {
	CorrelationID CorrelationID
	Operation     Operation
	ChannelID     string
	Retries       int
	LastUpdated   time.Time
}

func newCorrelationID() CorrelationID { return uuid.New() }

func newOperationItem(id CorrelationID, op Operation) *OperationItem {
	return &OperationItem{CorrelationID: id, Operation: op, LastUpdated: time.Now()}
}

func (i *OperationItem) touch() { i.LastUpdated = time.Now() }
