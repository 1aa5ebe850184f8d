package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common span attribute keys
const (
	AttrSubject    = "seal.check.subject"
	AttrPermission = "seal.check.permission"
	AttrObject     = "seal.check.object"
	AttrNamespace  = "seal.rules.namespace"
	AttrVersion    = "seal.rules.version"
)

// SpanCheck starts a span for one permission check.
func (p *Provider) SpanCheck(ctx context.Context, subject, permission, object string) (context.Context, trace.Span) {
	tracer := p.Tracer()
	if tracer == nil {
		return ctx, nil
	}
	return tracer.Start(ctx, "seal.check", trace.WithAttributes(
		attribute.String(AttrSubject, subject),
		attribute.String(AttrPermission, permission),
		attribute.String(AttrObject, object),
	))
}

// SpanRuleLoad starts a span for a rule version load.
func (p *Provider) SpanRuleLoad(ctx context.Context, version string) (context.Context, trace.Span) {
	tracer := p.Tracer()
	if tracer == nil {
		return ctx, nil
	}
	return tracer.Start(ctx, "seal.rules.load", trace.WithAttributes(
		attribute.String(AttrVersion, version),
	))
}

// SpanTupleWrite starts a span for a tuple mutation batch.
func (p *Provider) SpanTupleWrite(ctx context.Context, op string, count int) (context.Context, trace.Span) {
	tracer := p.Tracer()
	if tracer == nil {
		return ctx, nil
	}
	return tracer.Start(ctx, "seal.tuples."+op, trace.WithAttributes(
		attribute.Int("seal.tuples.count", count),
	))
}

// ---- Utility Functions ----

// SetSpanError marks a span as having an error.
func SetSpanError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanSuccess marks a span as successful.
func SetSpanSuccess(span trace.Span) {
	if span == nil {
		return
	}
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent adds an event to the span.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// EndSpan ends a span with optional error handling.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		SetSpanError(span, err)
	} else {
		SetSpanSuccess(span)
	}
	span.End()
}
