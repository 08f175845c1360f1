// Command eventctl is a small operator CLI over the eventclient package: it
// connects to a stream server, appends or reads events, and can hold a
// volatile subscription open while printing events as they arrive. Grounded
// on the teacher's tools/ subcommands (each a small flag-driven main), but
// built on Cobra rather than the standard flag package since running a
// long-lived subscription alongside one-shot append/read verbs benefits from
// Cobra's subcommand tree and persistent flags.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	metrics "github.com/hashicorp/go-metrics"
	metricsprom "github.com/hashicorp/go-metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/riverline-io/go-client/eventclient"
)

var (
	flagHost        string
	flagPort        int
	flagSecurePort  int
	flagLogin       string
	flagPassword    string
	flagMetricsAddr string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "eventctl",
		Short: "operate an event-stream server from the command line",
	}
	root.PersistentFlags().StringVar(&flagHost, "host", "127.0.0.1", "server host")
	root.PersistentFlags().IntVar(&flagPort, "port", 1113, "server TCP port")
	root.PersistentFlags().IntVar(&flagSecurePort, "secure-port", 0, "server TLS port (0 to disable TLS)")
	root.PersistentFlags().StringVar(&flagLogin, "login", "", "login for authenticated connections")
	root.PersistentFlags().StringVar(&flagPassword, "password", "", "password for authenticated connections")
	root.PersistentFlags().StringVar(&flagMetricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")

	root.AddCommand(newAppendCmd(), newReadCmd(), newSubscribeCmd())
	return root
}

// newClient builds a Client from the persistent connection flags and wires a
// Prometheus-backed sink into it, so every subcommand's operation/reconnect
// counters are observable regardless of which verb was invoked.
func newClient(cmd *cobra.Command) (*eventclient.Client, func(), error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	sink, err := newPrometheusSink()
	if err != nil {
		return nil, nil, fmt.Errorf("prometheus sink: %w", err)
	}

	settings := eventclient.DefaultSettings()
	settings.Logger = logger
	settings.Metrics = eventclient.NewMetrics(sink)
	settings.StaticEndpoints = []eventclient.NodeEndpoints{{
		Host:          flagHost,
		TCPPort:       flagPort,
		SecureTCPPort: flagSecurePort,
	}}
	settings.SSL.Enabled = flagSecurePort != 0
	if flagLogin != "" {
		settings.UserCredentials = &eventclient.Credentials{Login: flagLogin, Password: flagPassword}
	}

	client, err := eventclient.NewClient(settings)
	if err != nil {
		return nil, nil, err
	}

	var stopMetricsServer func()
	if flagMetricsAddr != "" {
		stopMetricsServer = serveMetrics(flagMetricsAddr, logger)
	}

	connected := make(chan string, 1)
	client.AddListener(&cliListener{logger: logger, connected: connected})
	client.Connect()

	select {
	case remote := <-connected:
		logger.Info("connected", slog.String("remote", remote))
	case <-time.After(settings.TCP.ConnectTimeout + settings.ReconnectionDelay):
		logger.Warn("still connecting, proceeding anyway")
	}

	cleanup := func() {
		client.Close()
		if stopMetricsServer != nil {
			stopMetricsServer()
		}
	}
	return client, cleanup, nil
}

// newPrometheusSink bridges the hashicorp/go-metrics counters/gauges the
// engine emits into the default Prometheus registry, so --metrics-addr
// exposes them without eventclient itself depending on Prometheus.
func newPrometheusSink() (*metrics.Metrics, error) {
	promSink, err := metricsprom.NewPrometheusSink()
	if err != nil {
		return nil, err
	}
	cfg := metrics.DefaultConfig("eventctl")
	cfg.EnableHostname = false
	return metrics.NewGlobal(cfg, promSink)
}

func serveMetrics(addr string, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server exited", slog.Any("error", err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

// cliListener logs connection lifecycle transitions for whichever subcommand
// is running.
type cliListener struct {
	eventclient.BaseListener
	logger    *slog.Logger
	connected chan string
}

func (l *cliListener) ClientConnected(remote string) {
	select {
	case l.connected <- remote:
	default:
	}
	l.logger.Info("client connected", slog.String("remote", remote))
}

func (l *cliListener) ClientDisconnected() { l.logger.Warn("client disconnected") }
func (l *cliListener) ClientReconnecting(attempt int) {
	l.logger.Warn("reconnecting", slog.Int("attempt", attempt))
}
func (l *cliListener) ErrorOccurred(err error) { l.logger.Error("client error", slog.Any("error", err)) }

func newAppendCmd() *cobra.Command {
	var stream, eventType, data string
	var expectedVersion int64

	cmd := &cobra.Command{
		Use:   "append",
		Short: "append one event to a stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			future := client.AppendToStream(stream, expectedVersion, []eventclient.EventData{{
				EventType: eventType,
				Data:      []byte(data),
				IsJSON:    json.Valid([]byte(data)),
			}})
			result, err := future.Wait()
			if err != nil {
				return err
			}
			fmt.Printf("appended: nextExpectedVersion=%d commitPosition=%d\n", result.NextExpectedVersion, result.CommitPosition)
			return nil
		},
	}
	cmd.Flags().StringVar(&stream, "stream", "", "stream id (required)")
	cmd.Flags().StringVar(&eventType, "type", "", "event type (required)")
	cmd.Flags().StringVar(&data, "data", "{}", "event body")
	cmd.Flags().Int64Var(&expectedVersion, "expected-version", eventclient.ExpectedVersionAny, "optimistic concurrency check")
	_ = cmd.MarkFlagRequired("stream")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newReadCmd() *cobra.Command {
	var stream string
	var count int
	var backward bool

	cmd := &cobra.Command{
		Use:   "read",
		Short: "read events from a stream, oldest first unless --backward",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			direction := eventclient.Forward
			from := int64(0)
			if backward {
				direction = eventclient.Backward
				from = -1
			}
			result, err := client.ReadStreamEvents(stream, from, count, direction, false).Wait()
			if err != nil {
				return err
			}
			for _, event := range result.Events {
				fmt.Printf("#%d %s %s\n", event.EventNumber, event.EventType, string(event.Data))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&stream, "stream", "", "stream id (required)")
	cmd.Flags().IntVar(&count, "count", 20, "maximum events to read")
	cmd.Flags().BoolVar(&backward, "backward", false, "read newest first")
	_ = cmd.MarkFlagRequired("stream")
	return cmd
}

func newSubscribeCmd() *cobra.Command {
	var stream string
	var all bool

	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "print events live from a stream (or every stream, with --all) until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			listener := &printingSubscriptionListener{}
			if all {
				client.SubscribeToAll(listener)
			} else {
				client.SubscribeToStream(stream, listener)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&stream, "stream", "", "stream id (ignored with --all)")
	cmd.Flags().BoolVar(&all, "all", false, "subscribe to every stream")
	return cmd
}

type printingSubscriptionListener struct{}

func (printingSubscriptionListener) EventAppeared(event *eventclient.ResolvedEvent) {
	fmt.Printf("%s#%d %s %s\n", event.StreamID, event.EventNumber, event.EventType, string(event.Data))
}

func (printingSubscriptionListener) Confirmed(id eventclient.CorrelationID, lastCommitPosition, lastEventNumber int64) {
	fmt.Fprintf(os.Stderr, "subscribed (id=%s)\n", id)
}

func (printingSubscriptionListener) Dropped(err error) {
	fmt.Fprintf(os.Stderr, "subscription dropped: %v\n", err)
}
