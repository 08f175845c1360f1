package eventclient

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ConnectionState is the coarse lifecycle state spec.md §3 names.
type ConnectionState int

const (
	StateInit ConnectionState = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectingPhase subdivides StateConnecting, per spec.md §3.
type ConnectingPhase int

const (
	PhaseNone ConnectingPhase = iota
	PhaseReconnecting
	PhaseEndpointDiscovery
	PhaseConnectionEstablishing
	PhaseAuthentication
)

const tickInterval = 200 * time.Millisecond

// engine is the connection state machine (spec.md §4.3). Every field below
// is owned exclusively by the goroutine running q.run — all external access
// happens by enqueuing a task. Grounded on the teacher's client struct,
// which centralizes the same responsibilities (channel lifecycle,
// reconnection, operation/subscription bookkeeping) behind a single
// goroutine reading from one channel of callbacks.
type engine struct {
	settings    *Settings
	discoverer  EndpointDiscoverer
	authFactory func() Authenticator

	q          *taskQueue
	operations *operationManager
	subs       *subscriptionManager
	heartbeat  *heartbeatMonitor
	listeners  listenerSet

	logger  *slog.Logger
	metrics *Metrics
	tracer  Tracer

	state ConnectionState
	phase ConnectingPhase

	channel      *channel
	reconnection reconnectionInfo
	lastEndpoint *NodeEndpoints
	authAttempt  *authenticationAttempt

	lastOperationTimeoutCheck time.Time

	ctx    context.Context
	cancel context.CancelFunc
	ticker *time.Ticker

	stopped sync.WaitGroup
}

func newEngine(settings *Settings, discoverer EndpointDiscoverer) *engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &engine{
		settings:   settings,
		discoverer: discoverer,
		authFactory: func() Authenticator {
			return &CredentialsAuthenticator{Credentials: settings.UserCredentials}
		},
		q:          newTaskQueue(settings.MaxOperationQueueSize),
		operations: newOperationManager(1024, settings.MaxOperationRetries, settings.Logger, settings.Metrics),
		subs:       newSubscriptionManager(settings.Logger, settings.Metrics),
		heartbeat:  newHeartbeatMonitor(settings.HeartbeatInterval, settings.HeartbeatTimeout),
		logger:     settings.Logger,
		metrics:    settings.Metrics,
		tracer:     settings.Tracer,
		ctx:        ctx,
		cancel:     cancel,
		ticker:     time.NewTicker(tickInterval),
	}
	if e.tracer == nil {
		e.tracer = defaultTracer()
	}

	e.stopped.Add(1)
	go func() {
		defer e.stopped.Done()
		e.q.run(ctx)
	}()
	go e.runTicks()

	return e
}

// start enqueues the initial connection attempt. The control goroutine and
// ticker are already running from newEngine, so a Client can be constructed
// and its tasks safely enqueued before Connect is ever called; only the
// network side of the state machine waits for it.
func (e *engine) start() {
	e.q.enqueue(func() { e.startConnection() })
}

func (e *engine) runTicks() {
	for {
		select {
		case <-e.ctx.Done():
			return
		case now := <-e.ticker.C:
			e.q.enqueue(func() { e.onTick(now) })
		}
	}
}

// onTick drives the authentication timeout, heartbeat checks and
// operation-timeout scanning (after which operations waiting for a slot are
// admitted onto the live channel), mirroring the teacher's single
// periodic-timer callback that fans out to these concerns.
func (e *engine) onTick(now time.Time) {
	if e.phase == PhaseAuthentication && e.authAttempt != nil && e.authAttempt.timedOut(now, e.settings.OperationTimeout) {
		e.authAttempt = nil
		e.disconnect(wrapError(ErrNotAuthenticated, "authentication timed out"))
	}
	if e.state == StateConnected {
		switch e.heartbeat.check(now) {
		case heartbeatSendRequest:
			e.sendHeartbeatRequest()
		case heartbeatTimedOut:
			e.logger.Warn("heartbeat timeout, dropping connection")
			e.metrics.incrCounter(metricHeartbeatTimeouts, 1)
			e.disconnect(wrapError(ErrConnectionClosed, "heartbeat timeout"))
		}
	}

	if now.Sub(e.lastOperationTimeoutCheck) >= e.settings.OperationTimeoutCheckInterval {
		e.lastOperationTimeoutCheck = now
		e.operations.checkTimeoutsAndRetry(now, e.settings.OperationTimeout, e.currentChannelID(), e.sendPackage)
		if e.state == StateConnected && e.channel != nil {
			e.operations.scheduleWaiting(e.channel.id, e.sendPackage)
		}
	}
}

func (e *engine) sendHeartbeatRequest() {
	_ = e.sendPackage(&Package{Command: CommandHeartbeatRequest, CorrelationID: newCorrelationID()})
}

// startConnection begins the connect sequence: endpoint discovery, then
// TCP/TLS establishment, then authentication. On a client that is already
// connecting or connected it only reports ErrAlreadyActive to listeners.
func (e *engine) startConnection() {
	if e.state == StateClosed {
		return
	}
	if e.state != StateInit {
		err := wrapError(ErrAlreadyActive, "connect called on a ", e.state, " client")
		e.listeners.dispatch(e.settings.Executor, func(l Listener) { l.ErrorOccurred(err) })
		return
	}
	e.state = StateConnecting
	e.discoverEndpoint(nil)
}

func (e *engine) discoverEndpoint(failedEndpoint *NodeEndpoints) {
	e.phase = PhaseEndpointDiscovery
	epoch := e.reconnection.epoch
	ctx, span := startSpan(e.ctx, e.tracer, "eventclient.discoverEndpoint")

	go func() {
		defer span.End()
		endpoint, err := e.discoverer.Discover(ctx, failedEndpoint)
		e.q.enqueue(func() { e.onEndpointDiscovered(endpoint, err, epoch) })
	}()
}

func (e *engine) onEndpointDiscovered(endpoint NodeEndpoints, err error, epoch uint64) {
	if epoch != e.reconnection.epoch || e.state == StateClosed {
		return // stale completion (spec.md §9 open question, resolved via epoch)
	}
	if err != nil {
		e.logger.Warn("endpoint discovery failed", slog.Any("error", err))
		e.scheduleReconnect(nil)
		return
	}
	e.lastEndpoint = &endpoint
	e.establishTCPConnection(endpoint, epoch)
}

func (e *engine) establishTCPConnection(endpoint NodeEndpoints, epoch uint64) {
	e.phase = PhaseConnectionEstablishing
	ctx, span := startSpan(e.ctx, e.tracer, "eventclient.establishTcpConnection")

	addr := endpoint.TCPAddr()
	ssl := e.settings.SSL
	if secure, ok := endpoint.SecureTCPAddr(); ok && ssl.Enabled {
		addr = secure
	}

	dialCtx, dialCancel := context.WithTimeout(ctx, e.settings.TCP.ConnectTimeout)
	go func() {
		defer span.End()
		defer dialCancel()
		ch, err := dialChannel(dialCtx, addr, ssl)
		e.q.enqueue(func() { e.onTCPConnectionEstablished(ch, err, epoch) })
	}()
}

func (e *engine) onTCPConnectionEstablished(ch *channel, err error, epoch uint64) {
	if epoch != e.reconnection.epoch || e.state == StateClosed {
		if ch != nil {
			_ = ch.close()
		}
		return
	}
	if err != nil {
		e.logger.Warn("tcp connect failed", slog.Any("error", err))
		e.scheduleReconnect(e.lastEndpoint)
		return
	}

	e.channel = ch
	e.reconnection = reconnectionInfo{epoch: e.reconnection.epoch}
	e.heartbeat = newHeartbeatMonitor(e.settings.HeartbeatInterval, e.settings.HeartbeatTimeout)

	go ch.readLoop(
		func(pkg *Package) { e.q.enqueue(func() { e.onPackageReceived(ch, pkg) }) },
		func(closeErr error) { e.q.enqueue(func() { e.onTCPConnectionClosed(ch, closeErr) }) },
	)

	e.beginAuthentication()
}

func (e *engine) beginAuthentication() {
	e.phase = PhaseAuthentication
	_, span := startSpan(e.ctx, e.tracer, "eventclient.authenticate")
	defer span.End()

	authenticator := e.authFactory()
	if e.settings.UserCredentials == nil {
		e.onConnected()
		return
	}
	e.authAttempt = newAuthenticationAttempt()
	_ = e.sendPackage(authenticator.CreateAuthenticationRequest(e.authAttempt.correlationID))
}

func (e *engine) onConnected() {
	e.state = StateConnected
	e.phase = PhaseNone
	e.reconnection.attempt = 0
	remote := ""
	if e.channel != nil {
		remote = e.channel.conn.RemoteAddr().String()
	}
	e.listeners.dispatch(e.settings.Executor, func(l Listener) { l.ClientConnected(remote) })
	e.subs.startSubscription(e.channel.id, e.sendPackage)
	e.operations.scheduleWaiting(e.channel.id, e.sendPackage)
}

// onPackageReceived routes an inbound package: heartbeat traffic and
// authentication replies are handled inline; everything else is offered to
// the operation manager, then the subscription manager.
func (e *engine) onPackageReceived(ch *channel, pkg *Package) {
	if e.channel != ch {
		return // package from a superseded channel
	}
	e.heartbeat.onPackageReceived(pkg.Command)
	e.metrics.incrCounter(metricPackagesReceived, 1)

	if pkg.Command == CommandHeartbeatRequest {
		_ = e.sendPackage(&Package{Command: CommandHeartbeatResponse, CorrelationID: pkg.CorrelationID})
		return
	}
	if e.phase == PhaseAuthentication && e.authAttempt != nil && pkg.CorrelationID == e.authAttempt.correlationID {
		e.onAuthenticationReply(pkg)
		return
	}

	if e.operations.handleResponse(pkg, e.currentChannelID(), e.sendPackage, e.reconnectAfterNotMaster) {
		return
	}
	if e.subs.handlePackage(pkg) {
		return
	}
	e.logger.Debug("package matched no tracked operation or subscription", slog.Any("command", pkg.Command))
}

func (e *engine) onAuthenticationReply(pkg *Package) {
	authenticator := e.authFactory()
	status, handled := authenticator.Inspect(pkg)
	if !handled {
		return
	}
	e.authAttempt = nil
	switch status {
	case AuthenticationSuccess:
		e.onConnected()
	case AuthenticationFailed:
		e.listeners.dispatch(e.settings.Executor, func(l Listener) { l.AuthenticationFailed() })
		e.disconnect(wrapError(ErrNotAuthenticated, "authentication rejected"))
	default:
		e.disconnect(wrapError(ErrNotAuthenticated, "authentication ", status))
	}
}

// reconnectAfterNotMaster is passed to the operation manager as its
// reconnect callback: a NotHandled/not-master response should trigger a
// fresh discovery cycle, not merely a resend.
func (e *engine) reconnectAfterNotMaster() {
	e.disconnect(wrapError(ErrCannotEstablishConnection, "server redirected away from current endpoint"))
}

func (e *engine) onTCPConnectionClosed(ch *channel, err error) {
	if e.channel != ch {
		return
	}
	e.disconnect(err)
}

// disconnect tears down the current channel (if any) and either schedules
// a reconnect or, if the client is being closed, finalizes shutdown.
func (e *engine) disconnect(err error) {
	deadChannelID := ""
	if e.channel != nil {
		deadChannelID = e.channel.id
		_ = e.channel.close()
		e.channel = nil
	}
	wasConnected := e.state == StateConnected

	e.subs.purgeSubscribedAndDropped(deadChannelID, err)

	if e.state == StateClosed {
		e.operations.cleanUp(err)
		return
	}

	if wasConnected {
		e.listeners.dispatch(e.settings.Executor, func(l Listener) { l.ConnectionClosed() })
	}
	if err != nil {
		e.listeners.dispatch(e.settings.Executor, func(l Listener) { l.ErrorOccurred(err) })
	}

	e.scheduleReconnect(e.lastEndpoint)
}

func (e *engine) scheduleReconnect(failedEndpoint *NodeEndpoints) {
	if e.state == StateClosed {
		return
	}
	e.state = StateConnecting
	e.phase = PhaseReconnecting
	epoch := e.reconnection.newEpoch()
	e.reconnection.attempt++
	e.reconnection.touch()

	if e.settings.MaxReconnections >= 0 && e.reconnection.attempt > e.settings.MaxReconnections {
		e.finalizeClosed(wrapError(ErrRetryLimitReached, "max reconnections exceeded"))
		return
	}

	attempt := e.reconnection.attempt
	e.listeners.dispatch(e.settings.Executor, func(l Listener) { l.ClientReconnecting(attempt) })
	e.metrics.incrCounter(metricReconnectAttempts, 1)

	delay := e.settings.ReconnectionDelay
	time.AfterFunc(delay, func() {
		e.q.enqueue(func() {
			if epoch != e.reconnection.epoch || e.state == StateClosed {
				return
			}
			e.discoverEndpoint(failedEndpoint)
		})
	})
}

// closeConnection is the user-initiated shutdown path.
func (e *engine) closeConnection() {
	if e.state == StateClosed {
		return
	}
	e.state = StateClosed
	e.reconnection.newEpoch()

	closeErr := wrapError(ErrConnectionClosed, "client closed")
	if e.channel != nil {
		_ = e.channel.close()
		e.subs.purgeSubscribedAndDropped(e.channel.id, closeErr)
		e.channel = nil
	}
	e.operations.cleanUp(closeErr)
	e.subs.cleanUp(closeErr)

	e.listeners.dispatch(e.settings.Executor, func(l Listener) { l.ClientDisconnected() })

	e.cancel()
	e.ticker.Stop()
}

func (e *engine) finalizeClosed(err error) {
	e.state = StateClosed
	e.operations.cleanUp(err)
	e.subs.cleanUp(err)
	e.listeners.dispatch(e.settings.Executor, func(l Listener) { l.ErrorOccurred(err) })
	e.listeners.dispatch(e.settings.Executor, func(l Listener) { l.ClientDisconnected() })
	e.cancel()
	e.ticker.Stop()
}

// currentChannelID returns the live channel's id, or "" while disconnected.
func (e *engine) currentChannelID() string {
	if e.channel == nil {
		return ""
	}
	return e.channel.id
}

func (e *engine) sendPackage(pkg *Package) error {
	if e.channel == nil {
		return wrapError(ErrNoConnection, "no active channel")
	}
	e.metrics.incrCounter(metricPackagesSent, 1)
	return e.channel.send(pkg)
}

// startOperation dispatches op according to the engine's current state
// (spec.md §4.3's StartOperation handler): a client that has never called
// Connect fails immediately, a connect-in-progress client defers to the
// operation manager's waiting queue for later admission by onConnected, a
// connected client is scheduled on the live channel right away, and a
// closed client fails immediately too.
func (e *engine) startOperation(op Operation) {
	switch e.state {
	case StateInit:
		if e.phase == PhaseNone {
			op.Fail(wrapError(ErrNoConnection, "no connection"))
			return
		}
		e.operations.enqueueOperation(op)
	case StateConnecting:
		e.operations.enqueueOperation(op)
	case StateConnected:
		e.operations.scheduleOperation(op, e.currentChannelID(), e.sendPackage)
	case StateClosed:
		op.Fail(wrapError(ErrConnectionClosed, "connection closed"))
	}
}

func (e *engine) startSubscription(item *SubscriptionItem) {
	e.subs.enqueueSubscription(item)
	if e.state == StateConnected && e.channel != nil {
		e.subs.startSubscription(e.channel.id, e.sendPackage)
	}
}

// waitStopped blocks until the control goroutine has exited, for use by
// Client.Close to make shutdown synchronous.
func (e *engine) waitStopped() {
	e.stopped.Wait()
}
