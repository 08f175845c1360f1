package eventclient

import "google.golang.org/protobuf/encoding/protowire"

func encodeDeleteStream(streamID string, expectedVersion int64, hardDelete bool) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldStreamID, protowire.BytesType)
	b = protowire.AppendString(b, streamID)
	b = appendSVarint(b, fieldExpectedVersion, expectedVersion)
	b = protowire.AppendTag(b, fieldHardDelete, protowire.VarintType)
	b = protowire.AppendVarint(b, boolVarint(hardDelete))
	return b
}

const fieldHardDelete = 3

// deleteOperation implements Operation for DeleteStream.
type deleteOperation struct {
	streamID        string
	expectedVersion int64
	hardDelete      bool

	future *Future[struct{}]
}

func newDeleteOperation(streamID string, expectedVersion int64, hardDelete bool) (*deleteOperation, *Future[struct{}]) {
	future := NewFuture[struct{}]()
	return &deleteOperation{streamID: streamID, expectedVersion: expectedVersion, hardDelete: hardDelete, future: future}, future
}

func (op *deleteOperation) CreateRequest(correlationID CorrelationID) *Package {
	return &Package{
		Command:       CommandDeleteStream,
		CorrelationID: correlationID,
		Payload:       encodeDeleteStream(op.streamID, op.expectedVersion, op.hardDelete),
	}
}

func (op *deleteOperation) Inspect(pkg *Package) DecisionResult {
	switch pkg.Command {
	case CommandDeleteStreamCompleted:
		code, _, err := decodeWriteResult(pkg.Payload)
		if err != nil {
			return fail(err)
		}
		if code != ResultSuccess {
			return fail(resultToError(code))
		}
		op.future.Complete(struct{}{})
		return decide(EndOperation)
	case CommandNotHandled:
		return decide(Reconnect)
	case CommandBadRequest:
		return fail(wrapError(ErrBadRequest, "delete rejected"))
	default:
		return decide(DoNothing)
	}
}

func (op *deleteOperation) Fail(err error) {
	op.future.Fail(err)
}
