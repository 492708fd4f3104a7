// Package qtrace starts an OpenTelemetry span per Queryable operation.
// With no tracer provider installed, the global otel tracer resolves to
// a no-op implementation, so tracing carries zero overhead by default.
package qtrace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/go-qdb/qdb"

// StartOperation opens a span named "qdb.<op>" tagged with the engine
// name and table. The returned func must be called with the operation's
// error (nil on success) to close the span and record its status.
func StartOperation(ctx context.Context, op, engine, table string) (context.Context, func(error)) {
	tracer := otel.Tracer(instrumentationName)
	ctx, span := tracer.Start(ctx, "qdb."+op, trace.WithAttributes(
		attribute.String("db.engine", engine),
		attribute.String("db.table", table),
	))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
