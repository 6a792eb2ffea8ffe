package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartRunSpan starts the span covering one classification run.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, inputTraces int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "tracefold.run",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(attribute.Int("tracefold.input_traces", inputTraces))
	return ctx, span
}

// EndRunSpan finishes the run span, recording pipeline counters and error
// status.
func EndRunSpan(span trace.Span, err error, traces, nodes, classificationErrors int64) {
	span.SetAttributes(
		attribute.Int64("tracefold.traces", traces),
		attribute.Int64("tracefold.nodes", nodes),
		attribute.Int64("tracefold.classification_errors", classificationErrors),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
