package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domain "rationalist/internal/report"
)

var ErrNotFound = errors.New("report not found")

// Store persists finished reports keyed by session id.
type Store interface {
	Put(ctx context.Context, id string, r domain.Report) error
	Get(ctx context.Context, id string) (domain.Report, error)
	// List returns stored ids in ascending order.
	List(ctx context.Context) ([]string, error)
}

func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("report id is required")
	}
	if strings.ContainsAny(id, "/\\") {
		return "", fmt.Errorf("report id %q contains a path separator", id)
	}
	return id, nil
}

func encode(r domain.Report) ([]byte, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (domain.Report, error) {
	var r domain.Report
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}
