package report

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "rationalist/internal/report"
)

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]domain.Report
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]domain.Report),
	}
}

func (s *MemoryStore) Put(_ context.Context, id string, r domain.Report) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = r.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (domain.Report, error) {
	if s == nil {
		return domain.Report{}, fmt.Errorf("store is nil")
	}
	id, err := normalizeID(id)
	if err != nil {
		return domain.Report{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.data[id]
	if !ok {
		return domain.Report{}, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
