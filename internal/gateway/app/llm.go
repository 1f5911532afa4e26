package app

import (
	"context"
	"fmt"
	"log"

	"rationalist/internal/gateway/config"
	"rationalist/internal/llm"
)

// llmClientFactory is replaced in tests.
var llmClientFactory = newLLMClient

func newLLMClient(ctx context.Context, cfg config.LLMConfig, logger *log.Logger) (llm.LLMClient, error) {
	var client llm.LLMClient
	switch {
	case cfg.Fake:
		client = llm.NewFakeClient()
	case cfg.Provider == config.ProviderGroq:
		groq, err := llm.NewGroqClient(llm.GroqConfig{APIKey: cfg.GroqAPIKey, Model: cfg.GroqModel})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize groq client: %w", err)
		}
		client = groq
	default:
		gemini, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:     cfg.APIKey,
			FlashModel: cfg.FlashModel,
			ProModel:   cfg.ProModel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
		}
		client = gemini
	}
	logger.Printf("llm client: %s", client.Name())
	return llm.Wrap(client, llm.WithLogging(logger), llm.RateLimit(cfg.RPS, cfg.Burst)), nil
}
