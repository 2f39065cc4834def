package http

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/freekieb7/docserve/http"

// instruments are created once per server and are safe for concurrent use.
type instruments struct {
	tracer      trace.Tracer
	connections metric.Int64Counter
	active      metric.Int64UpDownCounter
	failures    metric.Int64Counter
	duration    metric.Float64Histogram
}

func newInstruments() instruments {
	meter := otel.Meter(instrumentationName)
	fallback := noop.NewMeterProvider().Meter(instrumentationName)

	connections, err := meter.Int64Counter("http.server.connections",
		metric.WithDescription("Accepted connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		connections, _ = fallback.Int64Counter("http.server.connections")
	}

	active, err := meter.Int64UpDownCounter("http.server.active_connections",
		metric.WithDescription("Connections currently being served"),
		metric.WithUnit("{connection}"))
	if err != nil {
		active, _ = fallback.Int64UpDownCounter("http.server.active_connections")
	}

	failures, err := meter.Int64Counter("http.server.errors",
		metric.WithDescription("Requests answered with an error response or dropped"),
		metric.WithUnit("{request}"))
	if err != nil {
		failures, _ = fallback.Int64Counter("http.server.errors")
	}

	duration, err := meter.Float64Histogram("http.server.connection.duration",
		metric.WithDescription("Time from accept to close"),
		metric.WithUnit("s"))
	if err != nil {
		duration, _ = fallback.Float64Histogram("http.server.connection.duration")
	}

	return instruments{
		tracer:      otel.Tracer(instrumentationName),
		connections: connections,
		active:      active,
		failures:    failures,
		duration:    duration,
	}
}

func (in instruments) connStart(ctx context.Context, remote string) (context.Context, trace.Span) {
	in.connections.Add(ctx, 1)
	in.active.Add(ctx, 1)

	return in.tracer.Start(ctx, "http.conn",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("net.peer.address", remote)),
	)
}

func (in instruments) connEnd(ctx context.Context, span trace.Span, start time.Time) {
	in.active.Add(ctx, -1)
	in.duration.Record(ctx, time.Since(start).Seconds())
	span.End()
}

// failure records why a connection did not reach a handler. status is 0 when
// nothing was sent back.
func (in instruments) failure(ctx context.Context, span trace.Span, kind string, status uint16, err error) {
	in.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error.type", kind),
		attribute.Int("http.response.status_code", int(status)),
	))

	span.RecordError(err)
	if status >= 500 {
		span.SetStatus(codes.Error, kind)
	}
}
