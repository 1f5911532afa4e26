package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultGroqModel   = "llama-3.3-70b-versatile"
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1/chat/completions"
)

type GroqConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the chat completions endpoint.
	BaseURL string
}

// GroqClient calls the Groq Chat Completions API (OpenAI-compatible) in
// JSON mode. Both model levels map to the same model.
type GroqClient struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
}

func NewGroqClient(cfg GroqConfig) (*GroqClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, Permanent(fmt.Errorf("groq api key is required"))
	}
	return &GroqClient{
		http:    &http.Client{Timeout: 60 * time.Second},
		apiKey:  apiKey,
		model:   firstNonEmpty(cfg.Model, DefaultGroqModel),
		baseURL: firstNonEmpty(cfg.BaseURL, DefaultGroqBaseURL),
	}, nil
}

func (g *GroqClient) Name() string { return "Groq:" + g.model }
func (g *GroqClient) Close() error { return nil }

type groqChatReq struct {
	Model          string            `json:"model"`
	Messages       []groqMessage     `json:"messages"`
	Temperature    float32           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqChatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateJSON sends the system instruction and the prompt with its input
// block. JSON mode carries no schema, so the schema is appended to the
// prompt as text.
func (g *GroqClient) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	var msgs []groqMessage
	if sys := strings.TrimSpace(req.System); sys != "" {
		msgs = append(msgs, groqMessage{Role: "system", Content: sys})
	}
	user := fullPrompt(req)
	if req.Schema != nil {
		schema, _ := json.Marshal(req.Schema)
		user += "\n\n[OUTPUT JSON SCHEMA]\n" + string(schema)
	}
	msgs = append(msgs, groqMessage{Role: "user", Content: user})

	body, err := json.Marshal(groqChatReq{
		Model:          g.model,
		Messages:       msgs,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, Permanent(err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("groq: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
		// 429 and 5xx are worth another attempt
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, Permanent(err)
		}
		return nil, err
	}
	var out groqChatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, ErrInvalidJSON
	}
	txt := strings.TrimSpace(out.Choices[0].Message.Content)
	if txt == "" {
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(txt), nil
}
