package eventclient

import "google.golang.org/protobuf/encoding/protowire"

// PersistentSubscriptionSettings mirrors the small slice of server-side
// persistent subscription configuration spec.md §4.5 names: resolve
// linkTos and the checkpoint-after count controlling how often the server
// persists consumer progress.
type PersistentSubscriptionSettings struct {
	ResolveLinkTos    bool
	CheckPointAfter   int64
	MaxRetryCount     int
}

const (
	fieldPSResolveLinkTos  = 3
	fieldPSCheckPointAfter = 4
	fieldPSMaxRetryCount   = 5

	fieldAckEventIDs = 3
)

func encodePersistentSubscriptionSettings(streamID, groupName string, settings PersistentSubscriptionSettings) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldStreamID, protowire.BytesType)
	b = protowire.AppendString(b, streamID)
	b = protowire.AppendTag(b, fieldGroupName, protowire.BytesType)
	b = protowire.AppendString(b, groupName)
	b = protowire.AppendTag(b, fieldPSResolveLinkTos, protowire.VarintType)
	b = protowire.AppendVarint(b, boolVarint(settings.ResolveLinkTos))
	b = protowire.AppendTag(b, fieldPSCheckPointAfter, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(settings.CheckPointAfter))
	b = protowire.AppendTag(b, fieldPSMaxRetryCount, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(settings.MaxRetryCount))
	return b
}

func encodeDeletePersistentSubscription(streamID, groupName string) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldStreamID, protowire.BytesType)
	b = protowire.AppendString(b, streamID)
	b = protowire.AppendTag(b, fieldGroupName, protowire.BytesType)
	b = protowire.AppendString(b, groupName)
	return b
}

func encodePersistentSubscriptionAck(eventIDs [][]byte) []byte {
	var b []byte
	for _, id := range eventIDs {
		b = protowire.AppendTag(b, fieldAckEventIDs, protowire.BytesType)
		b = protowire.AppendBytes(b, id)
	}
	return b
}

// persistentSubscriptionOperation implements Operation for the
// create/update/delete triplet, which share a request/completion shape:
// a fixed payload and a bare result-code completion.
type persistentSubscriptionOperation struct {
	requestCommand   Command
	completedCommand Command
	payload          []byte

	future *Future[struct{}]
}

func newPersistentSubscriptionOperation(requestCommand, completedCommand Command, payload []byte) (*persistentSubscriptionOperation, *Future[struct{}]) {
	future := NewFuture[struct{}]()
	return &persistentSubscriptionOperation{requestCommand: requestCommand, completedCommand: completedCommand, payload: payload, future: future}, future
}

func (op *persistentSubscriptionOperation) CreateRequest(correlationID CorrelationID) *Package {
	return &Package{Command: op.requestCommand, CorrelationID: correlationID, Payload: op.payload}
}

func (op *persistentSubscriptionOperation) Inspect(pkg *Package) DecisionResult {
	switch pkg.Command {
	case op.completedCommand:
		if len(pkg.Payload) == 0 {
			op.future.Complete(struct{}{})
			return decide(EndOperation)
		}
		if code := ResultCode(pkg.Payload[0]); code != ResultSuccess {
			return fail(resultToError(code))
		}
		op.future.Complete(struct{}{})
		return decide(EndOperation)
	case CommandNotHandled:
		return decide(Reconnect)
	case CommandBadRequest:
		return fail(wrapError(ErrBadRequest, "persistent subscription request rejected"))
	default:
		return decide(DoNothing)
	}
}

func (op *persistentSubscriptionOperation) Fail(err error) {
	op.future.Fail(err)
}
