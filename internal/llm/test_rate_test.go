package llm

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spy records when requests reach the inner client
type spyingClient struct {
	times []time.Time
}

func (s *spyingClient) Name() string { return "spy" }
func (s *spyingClient) Close() error { return nil }
func (s *spyingClient) GenerateJSON(_ context.Context, _ Request) (json.RawMessage, error) {
	s.times = append(s.times, time.Now())
	return json.RawMessage(`{}`), nil
}

func TestRateLimitSpacesCalls(t *testing.T) {
	spy := &spyingClient{}
	cli := Wrap(spy, RateLimit(20, 1))

	for i := 0; i < 3; i++ {
		_, err := cli.GenerateJSON(context.Background(), Request{Prompt: "x"})
		require.NoError(t, err)
	}

	require.Len(t, spy.times, 3)
	// 20 rps with burst 1 leaves ~50ms between calls
	assert.GreaterOrEqual(t, spy.times[2].Sub(spy.times[0]), 80*time.Millisecond)
}

func TestRateLimitDisabled(t *testing.T) {
	spy := &spyingClient{}
	cli := RateLimit(0, 0)(spy)
	assert.Same(t, spy, cli)
}

func TestRateLimitHonorsCanceledContext(t *testing.T) {
	spy := &spyingClient{}
	cli := Wrap(spy, RateLimit(0.1, 1))

	_, err := cli.GenerateJSON(context.Background(), Request{Prompt: "first"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = cli.GenerateJSON(ctx, Request{Prompt: "second"})
	require.Error(t, err)
	assert.Len(t, spy.times, 1)
}
