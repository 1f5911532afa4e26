package llm

import (
	"fmt"
	"sort"

	genai "google.golang.org/genai"
)

// ToGenaiSchema converts the JSON Schema subset used for response schemas
// (type, properties, required, items, enum, description) into the Gemini
// schema type. Property order follows "propertyOrdering" when given, else
// sorted keys, so the request is stable.
func ToGenaiSchema(doc map[string]any) (*genai.Schema, error) {
	if doc == nil {
		return nil, nil
	}
	out := &genai.Schema{}
	rawType, _ := doc["type"].(string)
	switch rawType {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "string":
		out.Type = genai.TypeString
	case "boolean":
		out.Type = genai.TypeBoolean
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	default:
		return nil, fmt.Errorf("unsupported schema type %q", rawType)
	}
	if d, ok := doc["description"].(string); ok {
		out.Description = d
	}
	if enum, ok := doc["enum"]; ok {
		out.Enum = toStrings(enum)
	}
	if req, ok := doc["required"]; ok {
		out.Required = toStrings(req)
	}
	if props, ok := doc["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		keys := make([]string, 0, len(props))
		for name, raw := range props {
			sub, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("property %q: schema must be an object", name)
			}
			conv, err := ToGenaiSchema(sub)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", name, err)
			}
			out.Properties[name] = conv
			keys = append(keys, name)
		}
		if order, ok := doc["propertyOrdering"]; ok {
			out.PropertyOrdering = toStrings(order)
		} else {
			sort.Strings(keys)
			out.PropertyOrdering = keys
		}
	}
	if items, ok := doc["items"].(map[string]any); ok {
		conv, err := ToGenaiSchema(items)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		out.Items = conv
	}
	return out, nil
}

func toStrings(v any) []string {
	switch vv := v.(type) {
	case []string:
		return append([]string(nil), vv...)
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
