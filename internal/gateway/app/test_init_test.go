package app

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rationalist/internal/gateway/config"
	"rationalist/internal/llm"
)

type closeCountingClient struct {
	llm.LLMClient
	closed int
}

func (c *closeCountingClient) Close() error {
	c.closed++
	return nil
}

func (c *closeCountingClient) GenerateJSON(ctx context.Context, req llm.Request) (json.RawMessage, error) {
	return c.LLMClient.GenerateJSON(ctx, req)
}

func TestFailedStoreInitReleasesClient(t *testing.T) {
	counting := &closeCountingClient{LLMClient: llm.NewFakeClient()}
	prev := llmClientFactory
	llmClientFactory = func(context.Context, config.LLMConfig, *log.Logger) (llm.LLMClient, error) {
		return counting, nil
	}
	t.Cleanup(func() { llmClientFactory = prev })

	// a regular file where the report directory should be
	blocker := filepath.Join(t.TempDir(), "reports")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	cfg := &config.Config{
		Port:   ":0",
		Env:    "test",
		LLM:    config.LLMConfig{Fake: true},
		Report: config.ReportConfig{Dir: filepath.Join(blocker, "nested")},
	}
	_, err := NewWithConfig(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorContains(t, err, "report file store")
	assert.Equal(t, 1, counting.closed)
}
