package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

const (
	DefaultFlashModel = "gemini-2.5-flash"
	DefaultProModel   = "gemini-2.5-pro"
)

type GeminiConfig struct {
	APIKey     string
	FlashModel string
	ProModel   string
}

// GeminiClient is a thin wrapper around the official genai client.
// It only focuses on the API call itself. Cross-cutting concerns
// (retries, validation, logging) are applied via Middleware.
type GeminiClient struct {
	cli    *genai.Client
	models map[ModelLevel]string
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, Permanent(fmt.Errorf("gemini api key is required"))
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	flash := firstNonEmpty(cfg.FlashModel, DefaultFlashModel)
	pro := firstNonEmpty(cfg.ProModel, DefaultProModel)
	return &GeminiClient{
		cli: cli,
		models: map[ModelLevel]string{
			ModelLevelLow:  flash,
			ModelLevelHigh: pro,
		},
	}, nil
}

func (g *GeminiClient) Name() string {
	return "Gemini:" + g.models[ModelLevelLow] + "/" + g.models[ModelLevelHigh]
}

func (g *GeminiClient) Close() error { return nil }

func (g *GeminiClient) modelFor(level ModelLevel) string {
	if m, ok := g.models[level]; ok {
		return m
	}
	return g.models[ModelLevelLow]
}

// GenerateJSON sends the prompt with the input JSON block, asks for
// application/json constrained by the request schema, and returns the
// model's JSON text.
func (g *GeminiClient) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	if sys := strings.TrimSpace(req.System); sys != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: sys}}}
	}
	if req.Schema != nil {
		schema, err := ToGenaiSchema(req.Schema)
		if err != nil {
			return nil, Permanent(fmt.Errorf("convert response schema: %w", err))
		}
		cfg.ResponseSchema = schema
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.modelFor(req.Level),
		[]*genai.Content{{Role: string(genai.RoleUser), Parts: []*genai.Part{{Text: fullPrompt(req)}}}},
		cfg,
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrInvalidJSON
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	txt := strings.TrimSpace(sb.String())
	if txt == "" {
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(txt), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
