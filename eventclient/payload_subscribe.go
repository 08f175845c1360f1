package eventclient

import "google.golang.org/protobuf/encoding/protowire"

// Wire field numbers for subscription-related payloads. Encoded with
// protowire's tag/varint/bytes primitives rather than generated protobuf
// messages (see DESIGN.md and gossip_discoverer.go for why).
const (
	fieldStreamID   = 1
	fieldResolveAll = 2 // subscribe-to-all vs subscribe-to-stream
	fieldGroupName  = 2 // persistent subscription group, shares slot with resolveAll (different message)

	fieldLastCommitPosition = 1
	fieldLastEventNumber    = 2

	fieldEventType       = 3
	fieldEventData       = 4
	fieldEventMetadata   = 5
	fieldEventIsJSON     = 6
	fieldCommitPosition  = 7
	fieldPreparePosition = 8
)

func encodeSubscribeToStream(streamID string, resolveAll bool) []byte {
	var b []byte
	if !resolveAll {
		b = protowire.AppendTag(b, fieldStreamID, protowire.BytesType)
		b = protowire.AppendString(b, streamID)
	}
	b = protowire.AppendTag(b, fieldResolveAll, protowire.VarintType)
	b = protowire.AppendVarint(b, boolVarint(resolveAll))
	return b
}

func encodeConnectToPersistentSubscription(streamID, groupName string) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldStreamID, protowire.BytesType)
	b = protowire.AppendString(b, streamID)
	b = protowire.AppendTag(b, fieldGroupName, protowire.BytesType)
	b = protowire.AppendString(b, groupName)
	return b
}

func decodeSubscriptionConfirmation(payload []byte) (lastCommitPosition, lastEventNumber int64, err error) {
	lastEventNumber = -1
	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 {
			return 0, 0, wrapError(ErrBadRequest, "malformed confirmation tag")
		}
		payload = payload[n:]
		if typ != protowire.VarintType {
			return 0, 0, wrapError(ErrBadRequest, "unexpected confirmation field type")
		}
		val, n := protowire.ConsumeVarint(payload)
		if n < 0 {
			return 0, 0, wrapError(ErrBadRequest, "malformed confirmation value")
		}
		payload = payload[n:]
		switch num {
		case fieldLastCommitPosition:
			lastCommitPosition = int64(val)
		case fieldLastEventNumber:
			lastEventNumber = int64(val)
		}
	}
	return lastCommitPosition, lastEventNumber, nil
}

func decodeResolvedEvent(payload []byte) (*ResolvedEvent, error) {
	event := &ResolvedEvent{EventNumber: -1}
	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 {
			return nil, wrapError(ErrBadRequest, "malformed event tag")
		}
		payload = payload[n:]

		switch typ {
		case protowire.BytesType:
			val, n := protowire.ConsumeBytes(payload)
			if n < 0 {
				return nil, wrapError(ErrBadRequest, "malformed event bytes field")
			}
			payload = payload[n:]
			switch num {
			case fieldStreamID:
				event.StreamID = string(val)
			case fieldEventType:
				event.EventType = string(val)
			case fieldEventData:
				event.Data = append([]byte(nil), val...)
			case fieldEventMetadata:
				event.Metadata = append([]byte(nil), val...)
			}
		case protowire.VarintType:
			val, n := protowire.ConsumeVarint(payload)
			if n < 0 {
				return nil, wrapError(ErrBadRequest, "malformed event varint field")
			}
			payload = payload[n:]
			switch num {
			case fieldLastEventNumber:
				event.EventNumber = int64(val)
			case fieldEventIsJSON:
				event.IsJSON = val != 0
			case fieldCommitPosition:
				event.CommitPosition = int64(val)
			case fieldPreparePosition:
				event.PreparePosition = int64(val)
			}
		default:
			return nil, wrapError(ErrBadRequest, "unsupported event field type")
		}
	}
	return event, nil
}

func boolVarint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
