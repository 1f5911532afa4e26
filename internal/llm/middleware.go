package llm

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Middleware decorates an LLMClient to inject cross-cutting concerns
// (retries, validation, logging).
type Middleware func(LLMClient) LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner LLMClient, mws ...Middleware) LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Logging --------

// WithLogging logs request size, latency and errors. Provide a custom
// logger or nil to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next LLMClient) LLMClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next LLMClient
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }
func (l *logging) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	phase := PhaseFrom(ctx)
	l.log.Printf("LLM request (%s, %s): %d bytes", phase, req.Level, len(req.System)+len(fullPrompt(req)))
	start := time.Now()
	raw, err := l.next.GenerateJSON(ctx, req)
	if err != nil {
		l.log.Printf("LLM error (%s) after %s: %v", phase, time.Since(start).Round(time.Millisecond), err)
		return raw, err
	}
	l.log.Printf("LLM response (%s) in %s: %d bytes", phase, time.Since(start).Round(time.Millisecond), len(raw))
	return raw, nil
}
