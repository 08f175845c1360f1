package eventclient

import (
	"log/slog"

	"github.com/google/uuid"
)

// subscriptionManager tracks subscriptions from waiting-for-channel through
// confirmed until they are dropped (spec.md §4.5). Bound to a single channel
// id at a time; every reconnect hands the manager a fresh channel id, and on
// channel loss it drops everything bound to the old one without
// re-enqueueing any of it, satisfying I5.
type subscriptionManager struct {
	logger  *slog.Logger
	metrics *Metrics

	waiting []*SubscriptionItem
	active  map[uuid.UUID]*SubscriptionItem
}

func newSubscriptionManager(logger *slog.Logger, metrics *Metrics) *subscriptionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &subscriptionManager{
		logger:  logger,
		metrics: metrics,
		active:  make(map[uuid.UUID]*SubscriptionItem),
	}
}

// enqueueSubscription registers a new subscription request to be sent once
// a channel is available.
func (m *subscriptionManager) enqueueSubscription(item *SubscriptionItem) {
	m.waiting = append(m.waiting, item)
	m.metrics.incrCounter(metricSubscriptionsWaiting, 1)
}

// startSubscription sends the wire request for every waiting subscription
// over the given channel and moves it into the active set, unconfirmed
// until the server replies with a Confirmed package.
func (m *subscriptionManager) startSubscription(channelID string, send func(*Package) error) {
	for _, item := range m.waiting {
		item.ChannelID = channelID
		m.active[item.CorrelationID] = item
		if err := send(subscribeRequest(item)); err != nil {
			m.logger.Warn("subscription send failed", slog.String("correlationId", item.CorrelationID.String()), slog.Any("error", err))
		}
	}
	m.waiting = nil
	m.metrics.setGauge(metricSubscriptionsWaiting, 0)
	m.metrics.setGauge(metricSubscriptionsActive, float32(len(m.active)))
}

// subscribeRequest builds the wire package for a subscription item. Kept
// here rather than on SubscriptionItem so payload encoding stays alongside
// the rest of the manager's wire concerns.
func subscribeRequest(item *SubscriptionItem) *Package {
	switch item.Kind {
	case PersistentSubscription:
		return &Package{
			Command:       CommandConnectToPersistentSubscription,
			CorrelationID: item.CorrelationID,
			Payload:       encodeConnectToPersistentSubscription(item.StreamID, item.GroupName),
		}
	default:
		return &Package{
			Command:       CommandSubscribeToStream,
			CorrelationID: item.CorrelationID,
			Payload:       encodeSubscribeToStream(item.StreamID, item.Kind == VolatileAllSubscription),
		}
	}
}

// handlePackage routes a subscription-related package to its item. Returns
// true if the package was claimed.
func (m *subscriptionManager) handlePackage(pkg *Package) bool {
	item, ok := m.active[pkg.CorrelationID]
	if !ok {
		return false
	}

	switch pkg.Command {
	case CommandSubscriptionConfirmed, CommandPersistentSubscriptionConfirmed:
		lastCommit, lastEventNumber, err := decodeSubscriptionConfirmation(pkg.Payload)
		if err != nil {
			item.Listener.Dropped(err)
			m.remove(item.CorrelationID)
			return true
		}
		item.Confirmed = true
		item.Listener.Confirmed(item.CorrelationID, lastCommit, lastEventNumber)
	case CommandStreamEventAppeared, CommandPersistentSubscriptionEventAppeared:
		event, err := decodeResolvedEvent(pkg.Payload)
		if err != nil {
			m.logger.Warn("dropping malformed event", slog.Any("error", err))
			return true
		}
		item.Listener.EventAppeared(event)
	case CommandSubscriptionDropped:
		item.Listener.Dropped(resultToError(ResultCode(firstByte(pkg.Payload))))
		m.remove(item.CorrelationID)
	default:
		return false
	}
	return true
}

func firstByte(b []byte) byte {
	if len(b) == 0 {
		return byte(ResultSuccess)
	}
	return b[0]
}

func (m *subscriptionManager) remove(id uuid.UUID) {
	if _, ok := m.active[id]; !ok {
		return
	}
	delete(m.active, id)
	m.metrics.setGauge(metricSubscriptionsActive, float32(len(m.active)))
}

// purgeSubscribedAndDropped is called on channel loss: every subscription
// bound to the dead channel is dropped from the active set and terminally
// notified via Dropped, volatile and persistent alike (spec.md §8 scenario
// 3: onDropped fires exactly once and the core never auto-resubscribes —
// the caller is expected to reinvoke SubscribeToStream/SubscribeToAll
// itself).
func (m *subscriptionManager) purgeSubscribedAndDropped(deadChannelID string, err error) {
	for id, item := range m.active {
		if item.ChannelID != deadChannelID {
			continue
		}
		delete(m.active, id)
		item.Listener.Dropped(err)
	}
	m.metrics.setGauge(metricSubscriptionsActive, float32(len(m.active)))
	m.metrics.setGauge(metricSubscriptionsWaiting, float32(len(m.waiting)))
}

// cleanUp drops every subscription unconditionally, used when the client is
// closing for good rather than merely reconnecting.
func (m *subscriptionManager) cleanUp(err error) {
	for id, item := range m.active {
		item.Listener.Dropped(err)
		delete(m.active, id)
	}
	for _, item := range m.waiting {
		item.Listener.Dropped(err)
	}
	m.waiting = nil
	m.metrics.setGauge(metricSubscriptionsActive, 0)
	m.metrics.setGauge(metricSubscriptionsWaiting, 0)
}
