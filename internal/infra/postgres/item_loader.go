package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"learnfront-session-service/internal/domain"
)

// ItemLoader loads item batches from Postgres: quiz content as JSONB for
// deferred sessions, the next due review batch for immediate sessions.
type ItemLoader struct {
	pool      *pgxpool.Pool
	batchSize int
}

func NewItemLoader(pool *pgxpool.Pool, reviewBatchSize int) *ItemLoader {
	if reviewBatchSize <= 0 {
		reviewBatchSize = 20
	}
	return &ItemLoader{pool: pool, batchSize: reviewBatchSize}
}

func (l *ItemLoader) LoadBatch(ctx context.Context, mode domain.GradingMode, scope string) (domain.ItemBatch, error) {
	if mode == domain.GradingImmediate {
		return l.loadDueReviews(ctx, scope)
	}
	return l.loadQuiz(ctx, scope)
}

func (l *ItemLoader) loadQuiz(ctx context.Context, quizID string) (domain.ItemBatch, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ItemBatch{}, domain.ErrBatchNotFound
	}
	if err != nil {
		return domain.ItemBatch{}, fmt.Errorf("load quiz: %w", err)
	}
	var batch domain.ItemBatch
	if err := json.Unmarshal(raw, &batch); err != nil {
		return domain.ItemBatch{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	if batch.ID == "" {
		batch.ID = quizID
	}
	return batch, nil
}

// loadDueReviews returns up to batchSize items due now for the user, in the
// server-decided order (earliest due first).
func (l *ItemLoader) loadDueReviews(ctx context.Context, userID string) (domain.ItemBatch, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, data FROM review_items WHERE user_id=$1 AND due_at <= now() ORDER BY due_at LIMIT $2`,
		userID, l.batchSize)
	if err != nil {
		return domain.ItemBatch{}, fmt.Errorf("load due reviews: %w", err)
	}
	defer rows.Close()

	batch := domain.ItemBatch{ID: "review:" + userID}
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return domain.ItemBatch{}, fmt.Errorf("scan review item: %w", err)
		}
		var item domain.Item
		if err := json.Unmarshal(raw, &item); err != nil {
			return domain.ItemBatch{}, fmt.Errorf("unmarshal review item %s: %w", id, err)
		}
		item.ID = id
		batch.Items = append(batch.Items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.ItemBatch{}, fmt.Errorf("load due reviews: %w", err)
	}
	return batch, nil
}
