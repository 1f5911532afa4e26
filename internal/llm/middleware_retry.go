package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Retry makes up to retries additional attempts after the first failure,
// waiting a fixed delay between attempts. Permanent errors and a canceled
// context end the loop immediately.
func Retry(retries int, delay time.Duration) Middleware {
	if retries < 0 {
		retries = 0
	}
	if delay < 0 {
		delay = 0
	}
	return func(next LLMClient) LLMClient {
		return &retrying{next: next, retries: retries, delay: delay}
	}
}

type retrying struct {
	next    LLMClient
	retries int
	delay   time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	var last error
	for attempt := 0; attempt <= r.retries; attempt++ {
		resp, err := r.next.GenerateJSON(ctx, req)
		if err == nil {
			return resp, nil
		}
		// If it's a permanent error, do not retry.
		var pErr *PermanentError
		if errors.As(err, &pErr) {
			return nil, err
		}
		last = err
		if attempt == r.retries {
			break
		}
		timer := time.NewTimer(r.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, last
}
