package trace

import "context"

type ctxKey struct{}

// ctxState is what a context carries for tracing: the tracer and the span
// that new spans are parented to.
type ctxState struct {
	tracer Tracer
	span   uint64
}

func stateOf(ctx context.Context) ctxState {
	if ctx != nil {
		if st, ok := ctx.Value(ctxKey{}).(ctxState); ok {
			return st
		}
	}
	return ctxState{tracer: Nop}
}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	return stateOf(ctx).tracer
}

// WithTracer attaches t to ctx. The current span, if any, is kept.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	st := stateOf(ctx)
	st.tracer = t
	return context.WithValue(ctx, ctxKey{}, st)
}

// CurrentSpan returns the id of the span stored in ctx, 0 at the root.
func CurrentSpan(ctx context.Context) uint64 {
	return stateOf(ctx).span
}

func withSpan(ctx context.Context, id uint64) context.Context {
	st := stateOf(ctx)
	st.span = id
	return context.WithValue(ctx, ctxKey{}, st)
}
