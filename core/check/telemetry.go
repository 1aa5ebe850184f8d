package check

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/getseal/seal/core/relationtuple"
	"github.com/getseal/seal/core/telemetry"
)

// InstrumentedChecker traces and measures every decision. It sits outermost
// in the decorator chain so cache hits are measured too.
type InstrumentedChecker struct {
	next Checker
	tel  *telemetry.Provider
}

// NewInstrumentedChecker wraps a checker with OpenTelemetry instrumentation.
func NewInstrumentedChecker(next Checker, tel *telemetry.Provider) *InstrumentedChecker {
	return &InstrumentedChecker{next: next, tel: tel}
}

func (i *InstrumentedChecker) Check(ctx context.Context, subject relationtuple.SubjectRef, permission string, object relationtuple.ObjectRef) (Result, error) {
	ctx, span := i.tel.SpanCheck(ctx, subject.String(), permission, object.String())
	start := time.Now()

	result, err := i.next.Check(ctx, subject, permission, object)

	status := "denied"
	switch {
	case err != nil:
		status = "error"
	case result.Allowed:
		status = "allowed"
	}
	i.tel.RecordCheck(ctx, object.Namespace, permission, status, time.Since(start))
	if result.DepthExceeded {
		i.tel.RecordDepthExceeded(ctx, object.Namespace, permission)
		telemetry.AddSpanEvent(span, "depth_exceeded")
	}
	if span != nil {
		span.SetAttributes(attribute.Bool("seal.check.allowed", result.Allowed))
	}
	telemetry.EndSpan(span, err)

	return result, err
}

// Compile-time interface check
var _ Checker = (*InstrumentedChecker)(nil)
