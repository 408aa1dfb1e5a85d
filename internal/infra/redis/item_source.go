package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"learnfront-session-service/internal/domain"
)

// BatchLoader fetches item batches from a backing store (Postgres, remote API).
type BatchLoader interface {
	LoadBatch(ctx context.Context, mode domain.GradingMode, scope string) (domain.ItemBatch, error)
}

// ItemSource caches item batches as JSON in Redis and falls back to a loader
// on cache miss. Batches are stored as: SET session:batch:{mode}:{scope} {json}
type ItemSource struct {
	client *redis.Client
	loader BatchLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewItemSource(client *redis.Client, loader BatchLoader, ttl time.Duration) *ItemSource {
	return &ItemSource{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *ItemSource) LoadBatch(ctx context.Context, mode domain.GradingMode, scope string) (domain.ItemBatch, error) {
	// Due batches change with every grading report; a cached copy would
	// re-serve items the learner just reviewed. Only quiz content is static.
	if mode == domain.GradingImmediate {
		return s.loader.LoadBatch(ctx, mode, scope)
	}

	key := s.batchKey(mode, scope)

	if batch, ok := s.fromCache(ctx, key); ok {
		return batch, nil
	}

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if batch, ok := s.fromCache(ctx, key); ok {
			return batch, nil
		}

		batch, err := s.loader.LoadBatch(ctx, mode, scope)
		if err != nil {
			return domain.ItemBatch{}, err
		}

		if data, err := json.Marshal(batch); err == nil {
			// best-effort cache fill
			_ = s.client.Set(ctx, key, data, s.ttlWithJitter()).Err()
		}
		return batch, nil
	})
	if err != nil {
		return domain.ItemBatch{}, err
	}
	return result.(domain.ItemBatch), nil
}

func (s *ItemSource) fromCache(ctx context.Context, key string) (domain.ItemBatch, bool) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.ItemBatch{}, false
	}
	var batch domain.ItemBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return domain.ItemBatch{}, false
	}
	return batch, true
}

func (s *ItemSource) batchKey(mode domain.GradingMode, scope string) string {
	return "session:batch:" + string(mode) + ":" + scope
}

func (s *ItemSource) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
