package memory

import (
	"context"
	"sync"

	"learnfront-session-service/internal/domain"
)

// masteryStreak is how many consecutive correct reports mark an item mastered.
const masteryStreak = 3

// ReviewStore accumulates per-item review results in process. It stands in
// for the real scheduler in dev/demo mode: results are recorded and the
// statistics refresh is served from them, but no due-date math happens here.
// Stats are global (single learner), so the userID argument is ignored.
type ReviewStore struct {
	mu     sync.Mutex
	items  map[string]*itemRecord
	streak int
}

type itemRecord struct {
	attempts int
	correct  int
	streak   int
}

func NewReviewStore() *ReviewStore {
	return &ReviewStore{items: make(map[string]*itemRecord)}
}

func (r *ReviewStore) ReportResult(_ context.Context, itemID string, correct bool, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.items[itemID]
	if !ok {
		rec = &itemRecord{}
		r.items[itemID] = rec
	}
	rec.attempts++
	if correct {
		rec.correct++
		rec.streak++
		r.streak++
	} else {
		rec.streak = 0
		r.streak = 0
	}
	return nil
}

func (r *ReviewStore) ReviewStats(_ context.Context, _ string) (domain.ReviewStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := domain.ReviewStats{
		TotalItems: len(r.items),
		Streak:     r.streak,
	}
	for _, rec := range r.items {
		if rec.streak >= masteryStreak {
			stats.Mastered++
		} else {
			stats.Learning++
			stats.DueNow++
		}
	}
	return stats, nil
}
