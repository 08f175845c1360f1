package eventclient

import (
	metrics "github.com/hashicorp/go-metrics"
)

// Metric name segments, joined by hashicorp/go-metrics under a fixed
// "eventclient" prefix. Grounded on the teacher's use of counters/gauges
// keyed by short dotted segment names.
var (
	metricOperationsActive     = []string{"eventclient", "operations", "active"}
	metricOperationsWaiting    = []string{"eventclient", "operations", "waiting"}
	metricSubscriptionsActive  = []string{"eventclient", "subscriptions", "active"}
	metricSubscriptionsWaiting = []string{"eventclient", "subscriptions", "waiting"}
	metricReconnectAttempts    = []string{"eventclient", "reconnect", "attempts"}
	metricHeartbeatTimeouts    = []string{"eventclient", "heartbeat", "timeouts"}
	metricPackagesSent         = []string{"eventclient", "packages", "sent"}
	metricPackagesReceived     = []string{"eventclient", "packages", "received"}
)

// Metrics wraps a hashicorp/go-metrics sink. A nil *Metrics is valid and
// every method on it is a no-op, so components that receive Settings.Metrics
// unset (the common case outside cmd/eventctl, which wires a Prometheus
// sink) don't need nil checks at every call site.
type Metrics struct {
	sink *metrics.Metrics
}

// NewMetrics wraps an already-configured hashicorp/go-metrics instance,
// typically one built in cmd/eventctl with a Prometheus sink attached.
func NewMetrics(sink *metrics.Metrics) *Metrics {
	return &Metrics{sink: sink}
}

func (m *Metrics) incrCounter(key []string, val float32) {
	if m == nil || m.sink == nil {
		return
	}
	m.sink.IncrCounter(key, val)
}

func (m *Metrics) setGauge(key []string, val float32) {
	if m == nil || m.sink == nil {
		return
	}
	m.sink.SetGauge(key, val)
}

func (m *Metrics) addSample(key []string, val float32) {
	if m == nil || m.sink == nil {
		return
	}
	m.sink.AddSample(key, val)
}
