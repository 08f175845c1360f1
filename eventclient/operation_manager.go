package eventclient

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// operationManager tracks in-flight and waiting operations (spec.md §4.4).
// It never touches the network itself; the engine's control goroutine calls
// its methods and supplies a send callback, keeping the manager's state
// transitions unit-testable without a live channel. Grounded on the
// teacher's per-request map plus its retry-on-timeout loop, generalized
// from AMPS-specific command dispatch to the Operation seam.
type operationManager struct {
	maxConcurrent int
	maxRetries    int

	active  map[uuid.UUID]*OperationItem
	waiting []*OperationItem

	logger  *slog.Logger
	metrics *Metrics
}

func newOperationManager(maxConcurrent, maxRetries int, logger *slog.Logger, metrics *Metrics) *operationManager {
	if maxConcurrent <= 0 {
		maxConcurrent = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &operationManager{
		maxConcurrent: maxConcurrent,
		maxRetries:    maxRetries,
		active:        make(map[uuid.UUID]*OperationItem),
		logger:        logger,
		metrics:       metrics,
	}
}

// enqueueOperation unconditionally appends op to the waiting queue
// (spec.md §4.4). Used while the engine has no live channel to schedule
// against; a later scheduleWaiting call (on connect, or as active slots
// free up) admits it into the active set.
func (m *operationManager) enqueueOperation(op Operation) uuid.UUID {
	id := uuid.New()
	m.waiting = append(m.waiting, newOperationItem(id, op))
	m.metrics.incrCounter(metricOperationsWaiting, 1)
	return id
}

// scheduleOperation admits op directly into the active set and sends it now
// if capacity remains; otherwise it falls back to the waiting queue exactly
// like enqueueOperation (spec.md §4.4).
func (m *operationManager) scheduleOperation(op Operation, channelID string, send func(*Package) error) uuid.UUID {
	if len(m.active) >= m.maxConcurrent {
		return m.enqueueOperation(op)
	}
	id := uuid.New()
	m.admit(newOperationItem(id, op), channelID, send)
	return id
}

func (m *operationManager) admit(item *OperationItem, channelID string, send func(*Package) error) {
	item.ChannelID = channelID
	m.active[item.CorrelationID] = item
	m.metrics.incrCounter(metricOperationsActive, 1)
	if err := send(item.Operation.CreateRequest(item.CorrelationID)); err != nil {
		m.logger.Warn("operation send failed", slog.String("correlationId", item.CorrelationID.String()), slog.Any("error", err))
	}
}

// scheduleWaiting admits queued operations onto channelID while capacity
// remains.
func (m *operationManager) scheduleWaiting(channelID string, send func(*Package) error) {
	for len(m.waiting) > 0 && len(m.active) < m.maxConcurrent {
		item := m.waiting[0]
		m.waiting = m.waiting[1:]
		m.admit(item, channelID, send)
	}
}

// handleResponse routes an incoming package to its operation, if any is
// tracked under its correlation id, and applies the resulting Decision.
// Returns true if the package was claimed by a known operation.
func (m *operationManager) handleResponse(pkg *Package, channelID string, send func(*Package) error, reconnect func()) bool {
	item, ok := m.active[pkg.CorrelationID]
	if !ok {
		return false
	}

	result := item.Operation.Inspect(pkg)
	switch result.Decision {
	case DoNothing:
		item.touch()
	case EndOperation:
		if result.Err != nil {
			item.Operation.Fail(result.Err)
		}
		m.remove(item.CorrelationID, channelID, send)
	case Retry:
		item.touch()
		item.Retries++
		if err := send(item.Operation.CreateRequest(item.CorrelationID)); err != nil {
			m.logger.Warn("operation retry send failed", slog.Any("error", err))
		}
	case Reconnect:
		item.touch()
		reconnect()
	case NotHandled:
		item.Operation.Fail(wrapError(ErrServerError, "command not handled by server"))
		m.remove(item.CorrelationID, channelID, send)
	}
	return true
}

func (m *operationManager) remove(id uuid.UUID, channelID string, send func(*Package) error) {
	if _, ok := m.active[id]; !ok {
		return
	}
	delete(m.active, id)
	m.metrics.incrCounter(metricOperationsActive, -1)
	m.scheduleWaiting(channelID, send)
}

// requeue moves item back to waiting under a fresh correlation id. Used when
// a stale active operation's channel no longer exists (spec.md §4.4): the
// original id was only ever known to the dead channel, so replaying it under
// the same id risks the new channel matching it against an unrelated
// in-flight request.
func (m *operationManager) requeue(item *OperationItem) {
	fresh := newOperationItem(uuid.New(), item.Operation)
	fresh.Retries = item.Retries
	m.waiting = append(m.waiting, fresh)
	m.metrics.incrCounter(metricOperationsWaiting, 1)
}

// checkTimeoutsAndRetry scans active operations for staleness. An operation
// whose ChannelID no longer matches the live channel is replayed under a
// fresh correlation id instead of burning a retry against a channel that
// will never answer; otherwise it is retried up to maxRetries, then failed
// with ErrOperationTimeout (spec.md §4.4/§7/§8).
func (m *operationManager) checkTimeoutsAndRetry(now time.Time, timeout time.Duration, channelID string, send func(*Package) error) {
	for id, item := range m.active {
		if now.Sub(item.LastUpdated) < timeout {
			continue
		}
		if item.ChannelID != channelID {
			delete(m.active, id)
			m.metrics.incrCounter(metricOperationsActive, -1)
			m.requeue(item)
			continue
		}
		if item.Retries >= m.maxRetries {
			item.Operation.Fail(wrapError(ErrOperationTimeout, "correlationId=", id.String()))
			m.remove(id, channelID, send)
			continue
		}
		item.Retries++
		item.touch()
		if err := send(item.Operation.CreateRequest(id)); err != nil {
			m.logger.Warn("operation timeout retry send failed", slog.Any("error", err))
		}
	}
}

// cleanUp fails every active and waiting operation with err and clears all
// bookkeeping. Called when the connection is closed or exhausts its
// reconnection budget (spec.md §4.4).
func (m *operationManager) cleanUp(err error) {
	for id, item := range m.active {
		item.Operation.Fail(err)
		delete(m.active, id)
	}
	for _, item := range m.waiting {
		item.Operation.Fail(err)
	}
	m.waiting = nil
	m.metrics.setGauge(metricOperationsActive, 0)
	m.metrics.setGauge(metricOperationsWaiting, 0)
}
