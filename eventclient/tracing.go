package eventclient

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the seam through which the engine emits lifecycle spans
// (endpoint discovery, TCP establishment, authentication). Aliased directly to
// trace.Tracer rather than wrapped, since otel's own interface is already
// nil-safe: a zero-value trace.Tracer obtained from otel.Tracer never
// panics and simply records nothing until a real SDK provider is
// registered.
type Tracer = trace.Tracer

// defaultTracer returns the global otel tracer for this package, which is
// a documented no-op until the process registers a TracerProvider (e.g.
// in cmd/eventctl).
func defaultTracer() Tracer {
	return otel.Tracer("github.com/riverline-io/go-client/eventclient")
}

func startSpan(ctx context.Context, tracer Tracer, name string) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = defaultTracer()
	}
	return tracer.Start(ctx, name)
}
