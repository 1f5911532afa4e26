package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonrepair"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidateJSON repairs malformed model output and checks it against the
// request schema. Failures are returned as ordinary (retryable) errors so
// an outer Retry gets another attempt.
func ValidateJSON() Middleware {
	return func(next LLMClient) LLMClient {
		return &validating{next: next}
	}
}

type validating struct {
	next     LLMClient
	compiled sync.Map // canonical schema JSON -> *jsonschema.Schema
}

func (v *validating) Name() string { return v.next.Name() }
func (v *validating) Close() error { return v.next.Close() }

func (v *validating) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	raw, err := v.next.GenerateJSON(ctx, req)
	if err != nil {
		return nil, err
	}
	fixed, err := RepairJSON(raw)
	if err != nil {
		return nil, err
	}
	if req.Schema != nil {
		sch, err := v.schemaFor(req.Schema)
		if err != nil {
			return nil, Permanent(err)
		}
		var doc any
		if err := json.Unmarshal(fixed, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		if err := sch.Validate(doc); err != nil {
			return nil, fmt.Errorf("%w: schema validation failed: %v", ErrInvalidJSON, err)
		}
	}
	if req.Decode != nil {
		if err := req.Decode(fixed); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
	}
	return fixed, nil
}

func (v *validating) schemaFor(schema map[string]any) (*jsonschema.Schema, error) {
	canonical, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize schema: %w", err)
	}
	key := string(canonical)
	if cached, ok := v.compiled.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}
	sch, err := CompileSchema(canonical)
	if err != nil {
		return nil, err
	}
	v.compiled.Store(key, sch)
	return sch, nil
}

// CompileSchema compiles a JSON Schema document.
func CompileSchema(doc []byte) (*jsonschema.Schema, error) {
	var schemaValue any
	if err := json.Unmarshal(doc, &schemaValue); err != nil {
		return nil, fmt.Errorf("failed to parse schema for validation: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("response.json", schemaValue); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	sch, err := compiler.Compile("response.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile JSON schema: %w", err)
	}
	return sch, nil
}

// RepairJSON strips markdown fences and, when the text is still not valid
// JSON, runs it through jsonrepair.
func RepairJSON(raw json.RawMessage) (json.RawMessage, error) {
	txt := strings.TrimSpace(string(raw))
	if strings.HasPrefix(txt, "```") {
		txt = strings.TrimPrefix(txt, "```json")
		txt = strings.TrimPrefix(txt, "```")
		txt = strings.TrimSuffix(strings.TrimSpace(txt), "```")
		txt = strings.TrimSpace(txt)
	}
	if txt == "" {
		return nil, ErrInvalidJSON
	}
	if json.Valid([]byte(txt)) {
		return json.RawMessage(txt), nil
	}
	repaired, err := jsonrepair.JSONRepair(txt)
	if err != nil || !json.Valid([]byte(repaired)) {
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(repaired), nil
}
