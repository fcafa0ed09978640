package observe

import (
	"context"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Telemetry counts the hook calls of the observer it wraps with
// OpenTelemetry instruments:
//
//	rxobs.hook.calls          every call, by op, fn and ident
//	rxobs.hook.substitutions  calls whose result differs from the input
type Telemetry struct {
	next Observer

	calls         metric.Int64Counter
	substitutions metric.Int64Counter
}

// NewTelemetry wraps next. A nil next behaves like Base with no logger.
func NewTelemetry(next Observer, meter metric.Meter) (*Telemetry, error) {
	if next == nil {
		next = Base{}
	}

	calls, err := meter.Int64Counter(
		"rxobs.hook.calls",
		metric.WithDescription("Number of observer hook calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	substitutions, err := meter.Int64Counter(
		"rxobs.hook.substitutions",
		metric.WithDescription("Number of hook calls that replaced the observed value"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		next:          next,
		calls:         calls,
		substitutions: substitutions,
	}, nil
}

func (t *Telemetry) Register(value any, fn, ident, typeName string) any {
	out := t.next.Register(value, fn, ident, typeName)
	t.record(OpRegister, fn, ident, value, out)
	return out
}

func (t *Telemetry) Propose(value any, fn, ident string) any {
	out := t.next.Propose(value, fn, ident)
	t.record(OpPropose, fn, ident, value, out)
	return out
}

func (t *Telemetry) Request(value any, fn, ident string) any {
	out := t.next.Request(value, fn, ident)
	t.record(OpRequest, fn, ident, value, out)
	return out
}

func (t *Telemetry) RequestArg(value any) any {
	var out any
	if ar, ok := t.next.(ArgRequester); ok {
		out = ar.RequestArg(value)
	} else {
		out = t.next.Request(value, "", "")
	}
	t.record(OpRequest, "", "", value, out)
	return out
}

func (t *Telemetry) record(op Op, fn, ident string, in, out any) {
	ctx := context.Background()
	attrs := []attribute.KeyValue{
		attribute.String("rxobs.op", op.String()),
	}
	if fn != "" {
		attrs = append(attrs, attribute.String("rxobs.fn", fn))
	}
	if ident != "" {
		attrs = append(attrs, attribute.String("rxobs.ident", ident))
	}
	opt := metric.WithAttributes(attrs...)

	t.calls.Add(ctx, 1, opt)
	if !same(in, out) {
		t.substitutions.Add(ctx, 1, opt)
	}
}

func same(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
