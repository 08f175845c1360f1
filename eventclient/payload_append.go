package eventclient

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/google/uuid"
)

// EventData is a single event to append, matching spec.md §3's event
// record shape on the write path.
type EventData struct {
	EventID  uuid.UUID
	EventType string
	Data     []byte
	Metadata []byte
	IsJSON   bool
}

func appendSVarint(b []byte, num protowire.Number, v int64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(v))
}

func consumeSVarint(b []byte) (int64, int) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, n
	}
	return protowire.DecodeZigZag(v), n
}

const (
	fieldExpectedVersion = 2
	fieldEvents          = 3

	fieldEventID = 1
	// fieldEventType, fieldEventData, fieldEventMetadata, fieldEventIsJSON
	// reuse the numbering declared in payload_subscribe.go: both messages
	// describe the same event shape from opposite directions (append vs.
	// deliver).

	fieldResultCode      = 1
	fieldFirstEventNumber = 2
)

func encodeEventData(e EventData) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldEventID, protowire.BytesType)
	b = protowire.AppendBytes(b, e.EventID[:])
	b = protowire.AppendTag(b, fieldEventType, protowire.BytesType)
	b = protowire.AppendString(b, e.EventType)
	b = protowire.AppendTag(b, fieldEventData, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Data)
	if len(e.Metadata) > 0 {
		b = protowire.AppendTag(b, fieldEventMetadata, protowire.BytesType)
		b = protowire.AppendBytes(b, e.Metadata)
	}
	b = protowire.AppendTag(b, fieldEventIsJSON, protowire.VarintType)
	b = protowire.AppendVarint(b, boolVarint(e.IsJSON))
	return b
}

func encodeAppendToStream(streamID string, expectedVersion int64, events []EventData) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldStreamID, protowire.BytesType)
	b = protowire.AppendString(b, streamID)
	b = appendSVarint(b, fieldExpectedVersion, expectedVersion)
	for _, e := range events {
		b = protowire.AppendTag(b, fieldEvents, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeEventData(e))
	}
	return b
}

// WriteResult is the outcome of a successful append or transaction commit.
type WriteResult struct {
	NextExpectedVersion int64
	CommitPosition      int64
	PreparePosition      int64
}

func decodeWriteResult(payload []byte) (ResultCode, WriteResult, error) {
	var result WriteResult
	var code ResultCode
	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 || typ != protowire.VarintType {
			return 0, result, wrapError(ErrBadRequest, "malformed write-result field")
		}
		payload = payload[n:]
		val, n := protowire.ConsumeVarint(payload)
		if n < 0 {
			return 0, result, wrapError(ErrBadRequest, "malformed write-result value")
		}
		payload = payload[n:]
		switch num {
		case fieldResultCode:
			code = ResultCode(val)
		case fieldFirstEventNumber:
			result.NextExpectedVersion = int64(val)
		case fieldCommitPosition:
			result.CommitPosition = int64(val)
		case fieldPreparePosition:
			result.PreparePosition = int64(val)
		}
	}
	return code, result, nil
}

// appendOperation implements Operation for AppendToStream. Grounded on the
// teacher's request/response operation pattern, generalized from AMPS's
// fixed FIX/NVFIX header parsing to the append/complete pair spec.md §4.6
// describes.
type appendOperation struct {
	streamID        string
	expectedVersion int64
	events          []EventData

	future *Future[WriteResult]
}

func newAppendOperation(streamID string, expectedVersion int64, events []EventData) (*appendOperation, *Future[WriteResult]) {
	future := NewFuture[WriteResult]()
	return &appendOperation{streamID: streamID, expectedVersion: expectedVersion, events: events, future: future}, future
}

func (op *appendOperation) CreateRequest(correlationID CorrelationID) *Package {
	return &Package{
		Command:       CommandAppendToStream,
		CorrelationID: correlationID,
		Payload:       encodeAppendToStream(op.streamID, op.expectedVersion, op.events),
	}
}

func (op *appendOperation) Inspect(pkg *Package) DecisionResult {
	switch pkg.Command {
	case CommandAppendToStreamCompleted:
		code, result, err := decodeWriteResult(pkg.Payload)
		if err != nil {
			return fail(err)
		}
		if code != ResultSuccess {
			return fail(resultToError(code))
		}
		op.future.Complete(result)
		return decide(EndOperation)
	case CommandNotHandled:
		return decide(Reconnect)
	case CommandBadRequest:
		return fail(wrapError(ErrBadRequest, "append rejected"))
	default:
		return decide(DoNothing)
	}
}

func (op *appendOperation) Fail(err error) {
	op.future.Fail(err)
}
