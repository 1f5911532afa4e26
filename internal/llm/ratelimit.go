package llm

import (
	"context"
	"encoding/json"

	"golang.org/x/time/rate"
)

// RateLimit throttles calls to at most rps per second with the given burst.
// A non-positive rps disables the limiter.
func RateLimit(rps float64, burst int) Middleware {
	return func(next LLMClient) LLMClient {
		if rps <= 0 {
			return next
		}
		if burst <= 0 {
			burst = 1
		}
		return &rateLimited{next: next, lim: rate.NewLimiter(rate.Limit(rps), burst)}
	}
}

type rateLimited struct {
	next LLMClient
	lim  *rate.Limiter
}

func (r *rateLimited) Name() string { return r.next.Name() }
func (r *rateLimited) Close() error { return r.next.Close() }

func (r *rateLimited) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := r.lim.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.GenerateJSON(ctx, req)
}
