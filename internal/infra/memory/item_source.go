package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"learnfront-session-service/internal/domain"
)

// BatchLoader fetches item batches from a backing store (Postgres, remote API).
type BatchLoader interface {
	LoadBatch(ctx context.Context, mode domain.GradingMode, scope string) (domain.ItemBatch, error)
}

// ItemSource caches item batches with TTL to avoid repeated backing-store hits.
type ItemSource struct {
	loader BatchLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedBatch
}

type cachedBatch struct {
	batch     domain.ItemBatch
	expiresAt time.Time
}

func NewItemSource(loader BatchLoader, ttl time.Duration) *ItemSource {
	return &ItemSource{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBatch),
	}
}

func (s *ItemSource) LoadBatch(ctx context.Context, mode domain.GradingMode, scope string) (domain.ItemBatch, error) {
	// Due batches change with every grading report; a cached copy would
	// re-serve items the learner just reviewed. Only quiz content is static.
	if mode == domain.GradingImmediate {
		return s.loader.LoadBatch(ctx, mode, scope)
	}

	key := string(mode) + ":" + scope
	now := s.clock()

	s.mu.RLock()
	if entry, ok := s.cache[key]; ok && entry.expiresAt.After(now) {
		s.mu.RUnlock()
		return entry.batch, nil
	}
	s.mu.RUnlock()

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		now := s.clock()
		s.mu.RLock()
		if entry, ok := s.cache[key]; ok && entry.expiresAt.After(now) {
			s.mu.RUnlock()
			return entry.batch, nil
		}
		s.mu.RUnlock()

		batch, err := s.loader.LoadBatch(ctx, mode, scope)
		if err != nil {
			return domain.ItemBatch{}, err
		}

		s.mu.Lock()
		s.cache[key] = cachedBatch{
			batch:     batch,
			expiresAt: now.Add(s.ttlWithJitter()),
		}
		s.mu.Unlock()
		return batch, nil
	})
	if err != nil {
		return domain.ItemBatch{}, err
	}
	return result.(domain.ItemBatch), nil
}

// StaticBatchLoader is a loader backed by an in-memory map (tests/demos).
type StaticBatchLoader struct {
	batches map[string]domain.ItemBatch
}

func NewStaticBatchLoader(batches map[string]domain.ItemBatch) *StaticBatchLoader {
	return &StaticBatchLoader{batches: batches}
}

func (l *StaticBatchLoader) LoadBatch(_ context.Context, _ domain.GradingMode, scope string) (domain.ItemBatch, error) {
	if batch, ok := l.batches[scope]; ok {
		return batch, nil
	}
	return domain.ItemBatch{}, domain.ErrBatchNotFound
}

func (s *ItemSource) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
