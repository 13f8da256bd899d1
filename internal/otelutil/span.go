package otelutil

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/becksclair/limount-sub001/internal/log"
)

var DefaultSampler = sdktrace.AlwaysSample()

// SetSpanStatus sets `span.SetStatus` to the proper status depending on `err`. If
// `err` is `nil` assumes `codes.Ok`.
func SetSpanStatus(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

// StartSpan wraps "go.opentelemetry.io/otel/trace".StartSpan, but, if the span is
// sampling, adds the span identifiers to the log entry in the context so log lines
// can be correlated with the span.
func StartSpan(ctx context.Context, name string, o ...trace.SpanStartOption) (context.Context, trace.Span) {
	ctx, s := otel.Tracer("").Start(ctx, name, o...)
	return update(ctx, s)
}

func update(ctx context.Context, s trace.Span) (context.Context, trace.Span) {
	if s.IsRecording() {
		sc := s.SpanContext()
		ctx = log.S(ctx, logrus.Fields{
			"traceID": sc.TraceID().String(),
			"spanID":  sc.SpanID().String(),
		})
	}
	return ctx, s
}

var WithClientSpanKind = trace.WithSpanKind(trace.SpanKindClient)
