package eventclient

import (
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// StreamMetadata mirrors the subset of stream metadata spec.md §4.6
// describes: max age/count retention and an opaque custom JSON blob,
// carried the same way an event's data is. Version and Deleted describe the
// metastream event GetStreamMetadata read back, per spec.md §4.9's
// NotFound|NoStream/StreamDeleted/Success mapping.
type StreamMetadata struct {
	MaxAge   int64 // seconds, 0 = unset
	MaxCount int64 // 0 = unset
	Custom   []byte

	Version int64 // metastream event number; MaxMetadataVersion when Deleted
	Deleted bool
}

// MaxMetadataVersion is the sentinel Version GetStreamMetadata reports for a
// deleted stream, mirroring the original client's Integer.MAX_VALUE.
const MaxMetadataVersion = int64(^uint32(0) >> 1)

const (
	fieldMetaMaxAge   = 1
	fieldMetaMaxCount = 2
	fieldMetaCustom   = 3
)

func encodeStreamMetadata(m StreamMetadata) []byte {
	var b []byte
	if m.MaxAge > 0 {
		b = protowire.AppendTag(b, fieldMetaMaxAge, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.MaxAge))
	}
	if m.MaxCount > 0 {
		b = protowire.AppendTag(b, fieldMetaMaxCount, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.MaxCount))
	}
	if len(m.Custom) > 0 {
		b = protowire.AppendTag(b, fieldMetaCustom, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Custom)
	}
	return b
}

func decodeStreamMetadata(payload []byte) (StreamMetadata, error) {
	var m StreamMetadata
	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 {
			return m, wrapError(ErrBadRequest, "malformed metadata tag")
		}
		payload = payload[n:]
		switch typ {
		case protowire.VarintType:
			val, n := protowire.ConsumeVarint(payload)
			if n < 0 {
				return m, wrapError(ErrBadRequest, "malformed metadata value")
			}
			payload = payload[n:]
			switch num {
			case fieldMetaMaxAge:
				m.MaxAge = int64(val)
			case fieldMetaMaxCount:
				m.MaxCount = int64(val)
			}
		case protowire.BytesType:
			val, n := protowire.ConsumeBytes(payload)
			if n < 0 {
				return m, wrapError(ErrBadRequest, "malformed metadata bytes field")
			}
			payload = payload[n:]
			if num == fieldMetaCustom {
				m.Custom = append([]byte(nil), val...)
			}
		default:
			return m, wrapError(ErrBadRequest, "unsupported metadata field type")
		}
	}
	return m, nil
}

// setStreamMetadataOperation writes a stream's metadata. Encoded as a
// regular append to the "$$<stream>" system stream, mirroring how the
// underlying server represents metadata as just another event, per
// spec.md §4.6's note that metadata is read/written through the same
// append/read primitives.
type setStreamMetadataOperation struct {
	inner *appendOperation
}

func newSetStreamMetadataOperation(streamID string, expectedVersion int64, metadata StreamMetadata) (*setStreamMetadataOperation, *Future[WriteResult]) {
	event := EventData{EventType: "$metadata", Data: encodeStreamMetadata(metadata)}
	inner, future := newAppendOperation(metadataStreamID(streamID), expectedVersion, []EventData{event})
	return &setStreamMetadataOperation{inner: inner}, future
}

func metadataStreamID(streamID string) string { return "$$" + streamID }

// isMetastream reports whether streamID already names a metastream, i.e. it
// is itself the target of some other stream's metadata rather than a stream
// with metadata of its own (spec.md §4.9/§7: metadata operations must not
// target a metastream).
func isMetastream(streamID string) bool { return strings.HasPrefix(streamID, "$$") }

func (op *setStreamMetadataOperation) CreateRequest(correlationID CorrelationID) *Package {
	return op.inner.CreateRequest(correlationID)
}
func (op *setStreamMetadataOperation) Inspect(pkg *Package) DecisionResult { return op.inner.Inspect(pkg) }
func (op *setStreamMetadataOperation) Fail(err error)                     { op.inner.Fail(err) }

// getStreamMetadataOperation reads back a stream's metadata via the same
// system stream, decoding the single event's data as StreamMetadata.
type getStreamMetadataOperation struct {
	inner  *readOperation
	future *Future[StreamMetadata]
}

func newGetStreamMetadataOperation(streamID string) (*getStreamMetadataOperation, *Future[StreamMetadata]) {
	payload := encodeReadEvent(metadataStreamID(streamID), -1, false, false)
	inner, _ := newReadOperation(CommandReadEvent, CommandReadEventCompleted, payload)
	op := &getStreamMetadataOperation{inner: inner, future: NewFuture[StreamMetadata]()}
	return op, op.future
}

func (op *getStreamMetadataOperation) CreateRequest(correlationID CorrelationID) *Package {
	return op.inner.CreateRequest(correlationID)
}

// Inspect classifies the read reply itself, rather than delegating to
// readOperation.Inspect's generic NotFound/NoStream/StreamDeleted → fail
// mapping: spec.md §4.9 requires GetStreamMetadata to complete successfully
// in every one of those cases, only the reported StreamMetadata differs.
func (op *getStreamMetadataOperation) Inspect(pkg *Package) DecisionResult {
	switch pkg.Command {
	case op.inner.completedCommand:
		code, readResult, err := decodeReadResult(pkg.Payload)
		if err != nil {
			return fail(err)
		}
		switch code {
		case ResultNotFound, ResultNoStream:
			op.future.Complete(StreamMetadata{})
		case ResultStreamDeleted:
			op.future.Complete(StreamMetadata{Deleted: true, Version: MaxMetadataVersion})
		case ResultSuccess:
			if len(readResult.Events) == 0 {
				op.future.Complete(StreamMetadata{})
				return decide(EndOperation)
			}
			metadata, err := decodeStreamMetadata(readResult.Events[0].Data)
			if err != nil {
				return fail(err)
			}
			metadata.Version = readResult.Events[0].EventNumber
			op.future.Complete(metadata)
		default:
			return fail(resultToError(code))
		}
		return decide(EndOperation)
	case CommandNotHandled:
		return decide(Reconnect)
	case CommandBadRequest:
		return fail(wrapError(ErrBadRequest, "read rejected"))
	default:
		return decide(DoNothing)
	}
}

func (op *getStreamMetadataOperation) Fail(err error) {
	op.future.Fail(err)
}
