package eventclient

import (
	"crypto/tls"
	"log/slog"
	"time"
)

// TCPSettings groups the raw socket knobs recognized by the connection
// engine.
type TCPSettings struct {
	KeepAlive      bool
	NoDelay        bool
	SendBufSize    int
	RecvBufSize    int
	HiWaterMark    int
	LoWaterMark    int
	ConnectTimeout time.Duration
	CloseTimeout   time.Duration
}

// SSLSettings groups TLS knobs recognized by the connection engine.
type SSLSettings struct {
	Enabled             bool
	ValidateServerCert  bool
	ExpectedCommonName  string
	Config              *tls.Config
}

// Credentials is the opening login/password pair sent during the
// authentication handshake.
type Credentials struct {
	Login    string
	Password string
}

// Settings collects every knob spec.md §3 recognizes.
type Settings struct {
	OperationTimeout            time.Duration
	OperationTimeoutCheckInterval time.Duration
	ReconnectionDelay           time.Duration
	MaxReconnections            int // -1 = unbounded
	MaxOperationRetries         int
	MaxOperationQueueSize       int
	HeartbeatInterval           time.Duration
	HeartbeatTimeout            time.Duration
	RequireMaster               bool

	TCP TCPSettings
	SSL SSLSettings

	UserCredentials *Credentials

	Executor Executor
	Logger   *slog.Logger
	Metrics  *Metrics
	Tracer   Tracer

	StaticEndpoints []NodeEndpoints
	ClusterSettings *ClusterSettings
}

// ClusterSettings configures cluster-gossip endpoint discovery.
type ClusterSettings struct {
	ClusterDNS          string
	GossipPort          int
	DiscoverAttempts    int
	MaxDiscoverAttempts int // -1 = unbounded
	GossipTimeout       time.Duration
	Seeds               []string
}

// DefaultSettings returns Settings populated with the defaults spec.md
// implies (short timeouts suited to interactive use, unbounded reconnects).
func DefaultSettings() *Settings {
	return &Settings{
		OperationTimeout:              7 * time.Second,
		OperationTimeoutCheckInterval: 1 * time.Second,
		ReconnectionDelay:             500 * time.Millisecond,
		MaxReconnections:              -1,
		MaxOperationRetries:           10,
		MaxOperationQueueSize:         5000,
		HeartbeatInterval:             750 * time.Millisecond,
		HeartbeatTimeout:              1500 * time.Millisecond,
		RequireMaster:                 true,
		TCP: TCPSettings{
			KeepAlive:      true,
			NoDelay:        true,
			ConnectTimeout: 5 * time.Second,
			CloseTimeout:   1 * time.Second,
		},
	}
}

// validate applies defaults for zero-valued OperationTimeout,
// OperationTimeoutCheckInterval, MaxOperationQueueSize, TCP.CloseTimeout,
// Executor and Logger (other zero-valued fields are kept as they are) and
// rejects settings combinations that can never make progress.
func (s *Settings) validate() error {
	if s == nil {
		return wrapError(ErrInvalidArgument, "settings must not be nil")
	}
	if s.OperationTimeout <= 0 {
		s.OperationTimeout = 7 * time.Second
	}
	if s.OperationTimeoutCheckInterval <= 0 {
		s.OperationTimeoutCheckInterval = 1 * time.Second
	}
	if s.ReconnectionDelay < 0 {
		s.ReconnectionDelay = 0
	}
	if s.MaxOperationRetries < 0 {
		s.MaxOperationRetries = 0
	}
	if s.MaxOperationQueueSize <= 0 {
		s.MaxOperationQueueSize = 5000
	}
	if s.TCP.CloseTimeout <= 0 {
		s.TCP.CloseTimeout = 1 * time.Second
	}
	if len(s.StaticEndpoints) == 0 && s.ClusterSettings == nil {
		return wrapError(ErrInvalidArgument, "settings must specify a static endpoint or cluster settings")
	}
	if s.Executor == nil {
		s.Executor = GoroutineExecutor{}
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	return nil
}
