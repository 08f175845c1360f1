package eventclient

import "github.com/google/uuid"

// SubscriptionKind distinguishes the three subscription flavors spec.md §4.5
// and §6 describe.
type SubscriptionKind int

const (
	// VolatileStreamSubscription follows new events on a single stream.
	VolatileStreamSubscription SubscriptionKind = iota
	// VolatileAllSubscription follows new events across every stream.
	VolatileAllSubscription
	// PersistentSubscription is server-managed with competing consumers
	// and explicit acknowledgement.
	PersistentSubscription
)

// SubscriptionListener receives events and lifecycle notifications for one
// subscription. A CatchUpSubscriber built on top of these primitives (replay
// from a checkpoint, then switch to live) is named as an interface seam in
// spec.md §9 but its implementation is out of scope for this core.
type SubscriptionListener interface {
	EventAppeared(event *ResolvedEvent)
	Confirmed(subscriptionID CorrelationID, lastCommitPosition, lastEventNumber int64)
	Dropped(reason error)
}

// ResolvedEvent is a single stream event as delivered to a subscription or
// read result. Grounded on spec.md §3's event record shape.
type ResolvedEvent struct {
	StreamID       string
	EventNumber    int64
	EventType      string
	Data           []byte
	Metadata       []byte
	IsJSON         bool
	CommitPosition int64
	PreparePosition int64
}

// SubscriptionItem is the subscription manager's bookkeeping record for one
// subscription, whether still waiting for a channel or sent and (once
// confirmed) live; a dropped subscription's item is discarded, never
// resubscribed. Grounded on the teacher's
// message_stream state tracking, generalized from AMPS SOW/message-stream
// semantics to volatile/persistent event subscriptions.
type SubscriptionItem struct {
	CorrelationID CorrelationID
	Kind          SubscriptionKind
	StreamID      string
	GroupName     string // persistent subscriptions only
	Listener      SubscriptionListener

	Confirmed bool
	ChannelID string // the channel this subscription is bound to once confirmed (I5)
}

func newSubscriptionItem(kind SubscriptionKind, streamID, groupName string, listener SubscriptionListener) *SubscriptionItem {
	return &SubscriptionItem{
		CorrelationID: uuid.New(),
		Kind:          kind,
		StreamID:      streamID,
		GroupName:     groupName,
		Listener:      listener,
	}
}
