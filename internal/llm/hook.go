package llm

import (
	"context"
)

type ctxKeyPhase struct{}

// WithPhase tags the context with the conversation phase being generated.
func WithPhase(ctx context.Context, phase string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKeyPhase{}, phase)
}

// PhaseFrom returns the phase string stored in the context.
func PhaseFrom(ctx context.Context) string {
	if ctx != nil {
		if v := ctx.Value(ctxKeyPhase{}); v != nil {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return "unknown"
}
