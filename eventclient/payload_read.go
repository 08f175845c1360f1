package eventclient

import "google.golang.org/protobuf/encoding/protowire"

const (
	fieldEventNumber     = 2
	fieldReadCount       = 3
	fieldResolveLinkTos  = 4
	fieldRequireMaster   = 5
	fieldCommitPos       = 2
	fieldPreparePos      = 3

	fieldReadResultCode  = 1
	fieldReadEvents      = 2
	fieldNextEventNumber = 3
	fieldIsEndOfStream   = 4
	fieldNextCommitPos   = 5
	fieldNextPreparePos  = 6
)

func encodeReadEvent(streamID string, eventNumber int64, resolveLinkTos, requireMaster bool) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldStreamID, protowire.BytesType)
	b = protowire.AppendString(b, streamID)
	b = appendSVarint(b, fieldEventNumber, eventNumber)
	b = protowire.AppendTag(b, fieldResolveLinkTos, protowire.VarintType)
	b = protowire.AppendVarint(b, boolVarint(resolveLinkTos))
	b = protowire.AppendTag(b, fieldRequireMaster, protowire.VarintType)
	b = protowire.AppendVarint(b, boolVarint(requireMaster))
	return b
}

func encodeReadStreamEvents(streamID string, fromEventNumber int64, count int, resolveLinkTos, requireMaster bool) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldStreamID, protowire.BytesType)
	b = protowire.AppendString(b, streamID)
	b = appendSVarint(b, fieldEventNumber, fromEventNumber)
	b = protowire.AppendTag(b, fieldReadCount, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(count))
	b = protowire.AppendTag(b, fieldResolveLinkTos, protowire.VarintType)
	b = protowire.AppendVarint(b, boolVarint(resolveLinkTos))
	b = protowire.AppendTag(b, fieldRequireMaster, protowire.VarintType)
	b = protowire.AppendVarint(b, boolVarint(requireMaster))
	return b
}

func encodeReadAllEvents(commitPosition, preparePosition int64, count int, resolveLinkTos, requireMaster bool) []byte {
	var b []byte
	b = appendSVarint(b, fieldCommitPos, commitPosition)
	b = appendSVarint(b, fieldPreparePos, preparePosition)
	b = protowire.AppendTag(b, fieldReadCount, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(count))
	b = protowire.AppendTag(b, fieldResolveLinkTos, protowire.VarintType)
	b = protowire.AppendVarint(b, boolVarint(resolveLinkTos))
	b = protowire.AppendTag(b, fieldRequireMaster, protowire.VarintType)
	b = protowire.AppendVarint(b, boolVarint(requireMaster))
	return b
}

// ReadStreamResult is the decoded outcome of a stream/all read.
type ReadStreamResult struct {
	Events              []*ResolvedEvent
	NextEventNumber     int64
	IsEndOfStream       bool
	NextCommitPosition  int64
	NextPreparePosition int64
}

func decodeReadResult(payload []byte) (ResultCode, ReadStreamResult, error) {
	var result ReadStreamResult
	var code ResultCode
	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 {
			return 0, result, wrapError(ErrBadRequest, "malformed read-result tag")
		}
		payload = payload[n:]

		switch typ {
		case protowire.BytesType:
			val, n := protowire.ConsumeBytes(payload)
			if n < 0 {
				return 0, result, wrapError(ErrBadRequest, "malformed read-result bytes field")
			}
			payload = payload[n:]
			if num == fieldReadEvents {
				event, err := decodeResolvedEvent(val)
				if err != nil {
					return 0, result, err
				}
				result.Events = append(result.Events, event)
			}
		case protowire.VarintType:
			val, n := protowire.ConsumeVarint(payload)
			if n < 0 {
				return 0, result, wrapError(ErrBadRequest, "malformed read-result varint field")
			}
			payload = payload[n:]
			switch num {
			case fieldReadResultCode:
				code = ResultCode(val)
			case fieldNextEventNumber:
				result.NextEventNumber = int64(val)
			case fieldIsEndOfStream:
				result.IsEndOfStream = val != 0
			case fieldNextCommitPos:
				result.NextCommitPosition = int64(val)
			case fieldNextPreparePos:
				result.NextPreparePosition = int64(val)
			}
		default:
			return 0, result, wrapError(ErrBadRequest, "unsupported read-result field type")
		}
	}
	return code, result, nil
}

// readOperation implements Operation for every read command variant: the
// request/completion command pair and payload encoder are supplied by the
// caller so one Inspect/Fail implementation serves ReadEvent,
// ReadStreamEventsForward/Backward, and ReadAllEventsForward/Backward
// (spec.md §4.6 treats these as siblings differing only in wire shape).
type readOperation struct {
	requestCommand   Command
	completedCommand Command
	payload          []byte

	future *Future[ReadStreamResult]
}

func newReadOperation(requestCommand, completedCommand Command, payload []byte) (*readOperation, *Future[ReadStreamResult]) {
	future := NewFuture[ReadStreamResult]()
	return &readOperation{requestCommand: requestCommand, completedCommand: completedCommand, payload: payload, future: future}, future
}

func (op *readOperation) CreateRequest(correlationID CorrelationID) *Package {
	return &Package{Command: op.requestCommand, CorrelationID: correlationID, Payload: op.payload}
}

func (op *readOperation) Inspect(pkg *Package) DecisionResult {
	switch pkg.Command {
	case op.completedCommand:
		code, result, err := decodeReadResult(pkg.Payload)
		if err != nil {
			return fail(err)
		}
		if code != ResultSuccess && code != ResultNotFound && code != ResultNoStream {
			return fail(resultToError(code))
		}
		if code == ResultNotFound || code == ResultNoStream {
			return fail(wrapError(ErrServerError, "stream not found"))
		}
		op.future.Complete(result)
		return decide(EndOperation)
	case CommandNotHandled:
		return decide(Reconnect)
	case CommandBadRequest:
		return fail(wrapError(ErrBadRequest, "read rejected"))
	default:
		return decide(DoNothing)
	}
}

func (op *readOperation) Fail(err error) {
	op.future.Fail(err)
}
