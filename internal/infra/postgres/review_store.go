package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"learnfront-session-service/internal/domain"
)

// ReviewStore records per-item review results and serves the statistics
// refresh. It plays the scheduler role when no remote backend is configured:
// results are persisted and due dates nudged with a placeholder rule, the
// real spacing math lives upstream.
type ReviewStore struct {
	pool *pgxpool.Pool
}

func NewReviewStore(pool *pgxpool.Pool) *ReviewStore {
	return &ReviewStore{pool: pool}
}

func (r *ReviewStore) ReportResult(ctx context.Context, itemID string, correct bool, rating int) error {
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO review_results (item_id, correct, rating) VALUES ($1, $2, $3)`,
		itemID, correct, rating); err != nil {
		return fmt.Errorf("insert review result: %w", err)
	}

	var err error
	if correct {
		_, err = r.pool.Exec(ctx,
			`UPDATE review_items
			 SET attempts = attempts + 1,
			     streak = streak + 1,
			     due_at = now() + interval '1 day' * GREATEST(streak + 1, 1)
			 WHERE id = $1`, itemID)
	} else {
		_, err = r.pool.Exec(ctx,
			`UPDATE review_items
			 SET attempts = attempts + 1,
			     streak = 0,
			     due_at = now()
			 WHERE id = $1`, itemID)
	}
	if err != nil {
		return fmt.Errorf("update review item %s: %w", itemID, err)
	}
	return nil
}

func (r *ReviewStore) ReviewStats(ctx context.Context, userID string) (domain.ReviewStats, error) {
	var stats domain.ReviewStats
	err := r.pool.QueryRow(ctx,
		`SELECT count(*),
		        count(*) FILTER (WHERE due_at <= now()),
		        count(*) FILTER (WHERE streak >= 3),
		        count(*) FILTER (WHERE attempts > 0 AND streak < 3),
		        COALESCE(MAX(streak), 0)
		 FROM review_items WHERE user_id = $1`,
		userID).Scan(&stats.TotalItems, &stats.DueNow, &stats.Mastered, &stats.Learning, &stats.Streak)
	if err != nil {
		return domain.ReviewStats{}, fmt.Errorf("review stats: %w", err)
	}
	return stats, nil
}
