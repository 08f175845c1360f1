package eventclient

import (
	"time"
)

// Client is the public facade spec.md §4.9 describes: every method
// translates a user call into a task enqueued on the connection engine's
// control goroutine and returns a Future the caller waits on. Grounded on
// the teacher's client.go, which plays the identical role of validating
// arguments up front and then handing off to the single control goroutine.
type Client struct {
	engine   *engine
	settings *Settings
}

// NewClient validates settings and constructs a Client. The connection
// sequence does not start until Connect is called.
func NewClient(settings *Settings) (*Client, error) {
	if settings == nil {
		settings = DefaultSettings()
	}
	if err := settings.validate(); err != nil {
		return nil, err
	}

	discoverer, err := buildDiscoverer(settings)
	if err != nil {
		return nil, err
	}

	return &Client{engine: newEngine(settings, discoverer), settings: settings}, nil
}

func buildDiscoverer(settings *Settings) (EndpointDiscoverer, error) {
	if len(settings.StaticEndpoints) > 0 {
		return NewStaticEndpointDiscoverer(settings.StaticEndpoints...), nil
	}
	return NewGossipEndpointDiscoverer(*settings.ClusterSettings, settings.Logger)
}

// Connect starts the connection engine. Non-blocking: connection
// establishment happens asynchronously and is observable via a registered
// Listener.
func (c *Client) Connect() {
	c.engine.start()
}

// Close tears down the connection and stops the control goroutine. Blocks
// until shutdown completes. Safe to call more than once, or after the
// reconnection budget has already exhausted the control goroutine.
func (c *Client) Close() {
	c.engine.q.enqueue(func() { c.engine.closeConnection() })
	c.engine.waitStopped()
}

// AddListener registers l to receive connection lifecycle events.
func (c *Client) AddListener(l Listener) { c.engine.listeners.add(l) }

// RemoveListener unregisters a previously added listener.
func (c *Client) RemoveListener(l Listener) { c.engine.listeners.remove(l) }

func (c *Client) admissionWait() error {
	for {
		var queued int
		done := make(chan struct{})
		if !c.engine.q.enqueue(func() {
			queued = len(c.engine.operations.active) + len(c.engine.operations.waiting)
			close(done)
		}) {
			return wrapError(ErrConnectionClosed, "client closed")
		}
		<-done
		if queued < c.settings.MaxOperationQueueSize {
			return nil
		}
		// spin-wait admission control, exactly as spec.md §4.9 specifies;
		// the Open Question about this being a poor backpressure signal is
		// recorded in DESIGN.md, not fixed.
		time.Sleep(1 * time.Millisecond)
	}
}

// enqueueOperation posts op's start task and, if the control goroutine has
// already stopped (Close, or the reconnection budget was exhausted), fails
// future immediately instead of leaving it forever unsettled — every data
// verb below routes through this so a post-shutdown call never hangs.
func enqueueOperation[T any](c *Client, op Operation, future *Future[T]) *Future[T] {
	if !c.engine.q.enqueue(func() { c.engine.startOperation(op) }) {
		future.Fail(wrapError(ErrConnectionClosed, "connection closed"))
	}
	return future
}

// AppendToStream appends events to streamID, subject to expectedVersion
// (ExpectedVersionAny to skip the optimistic-concurrency check).
func (c *Client) AppendToStream(streamID string, expectedVersion int64, events []EventData) *Future[WriteResult] {
	if streamID == "" {
		f := NewFuture[WriteResult]()
		f.Fail(wrapError(ErrInvalidArgument, "streamId must not be empty"))
		return f
	}
	if len(events) == 0 {
		f := NewFuture[WriteResult]()
		f.Fail(wrapError(ErrInvalidArgument, "events must not be empty"))
		return f
	}
	if err := c.admissionWait(); err != nil {
		f := NewFuture[WriteResult]()
		f.Fail(err)
		return f
	}

	op, future := newAppendOperation(streamID, expectedVersion, events)
	return enqueueOperation(c, op, future)
}

// DeleteStream deletes streamID, subject to expectedVersion.
func (c *Client) DeleteStream(streamID string, expectedVersion int64, hardDelete bool) *Future[struct{}] {
	if streamID == "" {
		f := NewFuture[struct{}]()
		f.Fail(wrapError(ErrInvalidArgument, "streamId must not be empty"))
		return f
	}
	op, future := newDeleteOperation(streamID, expectedVersion, hardDelete)
	return enqueueOperation(c, op, future)
}

// ReadEvent reads a single event. eventNumber -1 reads the stream's last
// event; -2 is rejected (spec.md §8).
func (c *Client) ReadEvent(streamID string, eventNumber int64, resolveLinkTos bool) *Future[ReadStreamResult] {
	if streamID == "" {
		f := NewFuture[ReadStreamResult]()
		f.Fail(wrapError(ErrInvalidArgument, "streamId must not be empty"))
		return f
	}
	if eventNumber < -1 {
		f := NewFuture[ReadStreamResult]()
		f.Fail(wrapError(ErrInvalidArgument, "eventNumber must be >= -1"))
		return f
	}
	payload := encodeReadEvent(streamID, eventNumber, resolveLinkTos, c.settings.RequireMaster)
	op, future := newReadOperation(CommandReadEvent, CommandReadEventCompleted, payload)
	return enqueueOperation(c, op, future)
}

// ReadStreamEvents reads up to count events from streamID starting at
// fromEventNumber, in the given direction.
func (c *Client) ReadStreamEvents(streamID string, fromEventNumber int64, count int, direction ReadDirection, resolveLinkTos bool) *Future[ReadStreamResult] {
	if streamID == "" {
		f := NewFuture[ReadStreamResult]()
		f.Fail(wrapError(ErrInvalidArgument, "streamId must not be empty"))
		return f
	}
	if count <= 0 || count > 4095 {
		f := NewFuture[ReadStreamResult]()
		f.Fail(wrapError(ErrInvalidArgument, "count must be between 1 and 4095"))
		return f
	}

	payload := encodeReadStreamEvents(streamID, fromEventNumber, count, resolveLinkTos, c.settings.RequireMaster)
	requestCommand, completedCommand := CommandReadStreamEventsForward, CommandReadStreamEventsForwardCompleted
	if direction == Backward {
		requestCommand, completedCommand = CommandReadStreamEventsBackward, CommandReadStreamEventsBackwardCompleted
	}
	op, future := newReadOperation(requestCommand, completedCommand, payload)
	return enqueueOperation(c, op, future)
}

// ReadAllEvents reads up to count events across every stream starting at
// the given commit/prepare position.
func (c *Client) ReadAllEvents(commitPosition, preparePosition int64, count int, direction ReadDirection, resolveLinkTos bool) *Future[ReadStreamResult] {
	if count <= 0 || count > 4095 {
		f := NewFuture[ReadStreamResult]()
		f.Fail(wrapError(ErrInvalidArgument, "count must be between 1 and 4095"))
		return f
	}

	payload := encodeReadAllEvents(commitPosition, preparePosition, count, resolveLinkTos, c.settings.RequireMaster)
	requestCommand, completedCommand := CommandReadAllEventsForward, CommandReadAllEventsForwardCompleted
	if direction == Backward {
		requestCommand, completedCommand = CommandReadAllEventsBackward, CommandReadAllEventsBackwardCompleted
	}
	op, future := newReadOperation(requestCommand, completedCommand, payload)
	return enqueueOperation(c, op, future)
}

// SetStreamMetadata writes streamID's metadata.
func (c *Client) SetStreamMetadata(streamID string, expectedVersion int64, metadata StreamMetadata) *Future[WriteResult] {
	if streamID == "" {
		f := NewFuture[WriteResult]()
		f.Fail(wrapError(ErrInvalidArgument, "streamId must not be empty"))
		return f
	}
	if isMetastream(streamID) {
		f := NewFuture[WriteResult]()
		f.Fail(wrapError(ErrInvalidArgument, "streamId must not be a metastream"))
		return f
	}
	op, future := newSetStreamMetadataOperation(streamID, expectedVersion, metadata)
	return enqueueOperation(c, op, future)
}

// GetStreamMetadata reads streamID's metadata.
func (c *Client) GetStreamMetadata(streamID string) *Future[StreamMetadata] {
	if streamID == "" {
		f := NewFuture[StreamMetadata]()
		f.Fail(wrapError(ErrInvalidArgument, "streamId must not be empty"))
		return f
	}
	if isMetastream(streamID) {
		f := NewFuture[StreamMetadata]()
		f.Fail(wrapError(ErrInvalidArgument, "streamId must not be a metastream"))
		return f
	}
	op, future := newGetStreamMetadataOperation(streamID)
	return enqueueOperation(c, op, future)
}

// enqueueSubscription posts item's start task and, if the control goroutine
// has already stopped, notifies the listener directly instead of leaving
// it waiting on a subscription that will never be confirmed or dropped.
func enqueueSubscription(c *Client, item *SubscriptionItem) CorrelationID {
	if !c.engine.q.enqueue(func() { c.engine.startSubscription(item) }) {
		item.Listener.Dropped(wrapError(ErrConnectionClosed, "connection closed"))
	}
	return item.CorrelationID
}

// SubscribeToStream subscribes to new events appended to streamID.
func (c *Client) SubscribeToStream(streamID string, listener SubscriptionListener) CorrelationID {
	item := newSubscriptionItem(VolatileStreamSubscription, streamID, "", listener)
	return enqueueSubscription(c, item)
}

// SubscribeToAll subscribes to new events across every stream.
func (c *Client) SubscribeToAll(listener SubscriptionListener) CorrelationID {
	item := newSubscriptionItem(VolatileAllSubscription, "", "", listener)
	return enqueueSubscription(c, item)
}

// ConnectToPersistentSubscription connects a competing consumer to a
// previously created persistent subscription group.
func (c *Client) ConnectToPersistentSubscription(streamID, groupName string, listener SubscriptionListener) CorrelationID {
	item := newSubscriptionItem(PersistentSubscription, streamID, groupName, listener)
	return enqueueSubscription(c, item)
}

// CreatePersistentSubscription creates a new persistent subscription group.
func (c *Client) CreatePersistentSubscription(streamID, groupName string, settings PersistentSubscriptionSettings) *Future[struct{}] {
	payload := encodePersistentSubscriptionSettings(streamID, groupName, settings)
	op, future := newPersistentSubscriptionOperation(CommandCreatePersistentSubscription, CommandCreatePersistentSubscriptionCompleted, payload)
	return enqueueOperation(c, op, future)
}

// UpdatePersistentSubscription updates an existing persistent subscription
// group's settings.
func (c *Client) UpdatePersistentSubscription(streamID, groupName string, settings PersistentSubscriptionSettings) *Future[struct{}] {
	payload := encodePersistentSubscriptionSettings(streamID, groupName, settings)
	op, future := newPersistentSubscriptionOperation(CommandUpdatePersistentSubscription, CommandUpdatePersistentSubscriptionCompleted, payload)
	return enqueueOperation(c, op, future)
}

// DeletePersistentSubscription deletes a persistent subscription group.
func (c *Client) DeletePersistentSubscription(streamID, groupName string) *Future[struct{}] {
	payload := encodeDeletePersistentSubscription(streamID, groupName)
	op, future := newPersistentSubscriptionOperation(CommandDeletePersistentSubscription, CommandDeletePersistentSubscriptionCompleted, payload)
	return enqueueOperation(c, op, future)
}

// AckPersistentSubscription acknowledges processed events on a persistent
// subscription so the server advances that consumer's checkpoint.
func (c *Client) AckPersistentSubscription(subscriptionID CorrelationID, eventIDs [][]byte) {
	pkg := &Package{
		Command:       CommandPersistentSubscriptionAck,
		CorrelationID: subscriptionID,
		Payload:       encodePersistentSubscriptionAck(eventIDs),
	}
	c.engine.q.enqueue(func() { _ = c.engine.sendPackage(pkg) })
}
