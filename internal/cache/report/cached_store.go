package report

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	reportrepo "rationalist/internal/gateway/repository/report"
	domain "rationalist/internal/report"
)

type Store = reportrepo.Store

type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
	ListTTL    time.Duration
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:        5 * time.Minute,
		MaxEntries: 256,
		ListTTL:    30 * time.Second,
	}
}

type MetricsSnapshot struct {
	Hits           uint64
	Misses         uint64
	ListHits       uint64
	ListMisses     uint64
	OriginReads    uint64
	OriginWrites   uint64
	OriginReadErr  uint64
	OriginWriteErr uint64
}

type Metrics struct {
	hits           atomic.Uint64
	misses         atomic.Uint64
	listHits       atomic.Uint64
	listMisses     atomic.Uint64
	originReads    atomic.Uint64
	originWrites   atomic.Uint64
	originReadErr  atomic.Uint64
	originWriteErr atomic.Uint64
}

func (m *Metrics) snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Hits:           m.hits.Load(),
		Misses:         m.misses.Load(),
		ListHits:       m.listHits.Load(),
		ListMisses:     m.listMisses.Load(),
		OriginReads:    m.originReads.Load(),
		OriginWrites:   m.originWrites.Load(),
		OriginReadErr:  m.originReadErr.Load(),
		OriginWriteErr: m.originWriteErr.Load(),
	}
}

const listKey = "ids"

// CachedStore is a read-through cache in front of a report Store. Writes go
// to the origin first and refresh the cache only on success.
type CachedStore struct {
	origin Store

	reports *expirable.LRU[string, domain.Report]
	lists   *expirable.LRU[string, []string]
	metrics Metrics
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = def.ListTTL
	}
	return &CachedStore{
		origin:  origin,
		reports: expirable.NewLRU[string, domain.Report](cfg.MaxEntries, nil, cfg.TTL),
		lists:   expirable.NewLRU[string, []string](1, nil, cfg.ListTTL),
	}
}

func (s *CachedStore) Put(ctx context.Context, id string, r domain.Report) error {
	s.metrics.originWrites.Add(1)
	if err := s.origin.Put(ctx, id, r); err != nil {
		s.metrics.originWriteErr.Add(1)
		return err
	}
	s.reports.Add(strings.TrimSpace(id), r.Clone())
	s.lists.Remove(listKey)
	return nil
}

func (s *CachedStore) Get(ctx context.Context, id string) (domain.Report, error) {
	key := strings.TrimSpace(id)
	if r, ok := s.reports.Get(key); ok {
		s.metrics.hits.Add(1)
		return r.Clone(), nil
	}
	s.metrics.misses.Add(1)
	s.metrics.originReads.Add(1)

	r, err := s.origin.Get(ctx, id)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return domain.Report{}, err
	}
	s.reports.Add(key, r.Clone())
	return r, nil
}

func (s *CachedStore) List(ctx context.Context) ([]string, error) {
	if ids, ok := s.lists.Get(listKey); ok {
		s.metrics.listHits.Add(1)
		return append([]string(nil), ids...), nil
	}
	s.metrics.listMisses.Add(1)
	s.metrics.originReads.Add(1)

	ids, err := s.origin.List(ctx)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return nil, err
	}
	s.lists.Add(listKey, append([]string(nil), ids...))
	return ids, nil
}

func (s *CachedStore) Metrics() MetricsSnapshot {
	if s == nil {
		return MetricsSnapshot{}
	}
	return s.metrics.snapshot()
}
