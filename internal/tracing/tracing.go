// Package tracing wires an OpenTelemetry TracerProvider for the process
// and exposes the span
// helper internal/pipeline uses to bracket one document run. It does
// not replace internal/logging/safelogger.go's structured logs or
// internal/metrics' Prometheus counters — spans are a third, complementary
// signal carrying the same correlation id as an attribute.
package tracing

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func resourceFor(serviceName string) *resource.Resource {
	return resource.NewSchemaless(attribute.String("service.name", serviceName))
}

// Setup installs a process-wide TracerProvider that exports spans as
// newline-delimited JSON to w (typically a log file; os.Stdout would
// interleave with the CLI's audit-report output). It returns a shutdown
// func that must be called before process exit to flush pending spans.
// Passing a nil w disables export but still installs a provider, so
// Tracer() calls elsewhere never operate on an uninitialized global.
func Setup(serviceName string, w io.Writer) (shutdown func(context.Context) error, err error) {
	if w == nil {
		w = io.Discard
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resourceFor(serviceName)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Tracer returns the named tracer off whichever TracerProvider is
// currently installed (a global no-op provider until Setup runs).
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartDocumentSpan starts a span for one document run, tagging it with
// the correlation id so traces, logs, and artifacts all key off the same
// identifier.
func StartDocumentSpan(ctx context.Context, tracerName, spanName, correlationID, documentID string) (context.Context, trace.Span) {
	ctx, span := Tracer(tracerName).Start(ctx, spanName)
	span.SetAttributes(
		attribute.String("correlation.id", correlationID),
		attribute.String("document.id", documentID),
	)
	return ctx, span
}
