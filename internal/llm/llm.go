package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ModelLevel picks a model tier; the concrete model per level is chosen by
// the client.
type ModelLevel string

const (
	ModelLevelLow  ModelLevel = "low"
	ModelLevelHigh ModelLevel = "high"
)

// Request is one structured generation call.
type Request struct {
	// System is sent as the system instruction.
	System string
	Prompt string
	// Input is marshaled as JSON and appended to the prompt.
	Input any
	// Schema is a JSON Schema document the response must satisfy.
	Schema map[string]any
	Level  ModelLevel
	// Decode, when set, receives the repaired and schema-checked response.
	// A decode error counts as invalid output and is retried like one.
	Decode func(json.RawMessage) error
}

type LLMClient interface {
	Name() string
	GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error)
	Close() error
}

var ErrInvalidJSON = errors.New("llm: invalid JSON from model")

// PermanentError marks a failure that retrying cannot fix (bad credentials,
// malformed request).
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	if e == nil || e.Err == nil {
		return "llm: permanent error"
	}
	return fmt.Sprintf("llm: permanent error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// fullPrompt renders the prompt followed by the input JSON block.
func fullPrompt(req Request) string {
	if req.Input == nil {
		return req.Prompt
	}
	in, _ := json.MarshalIndent(req.Input, "", "  ")
	return req.Prompt + "\n\n[INPUT JSON]\n" + string(in)
}
