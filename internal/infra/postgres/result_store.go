package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"learnfront-session-service/internal/domain"
	"learnfront-session-service/internal/engine"
)

// ResultStore grades deferred sessions against stored quiz content and
// persists the outcome. Implements engine.QuizSubmitter.
type ResultStore struct {
	pool   *pgxpool.Pool
	loader *ItemLoader
}

func NewResultStore(pool *pgxpool.Pool, loader *ItemLoader) *ResultStore {
	return &ResultStore{pool: pool, loader: loader}
}

func (s *ResultStore) SubmitAnswers(ctx context.Context, batchID string, answers []domain.CapturedAnswer, totalSeconds int) (domain.SessionOutcome, error) {
	batch, err := s.loader.loadQuiz(ctx, batchID)
	if err != nil {
		return domain.SessionOutcome{}, err
	}

	out := engine.GradeAnswers(batch, answers, totalSeconds)

	graded := make([]domain.CapturedAnswer, 0, len(out.Details))
	for _, d := range out.Details {
		graded = append(graded, d.CapturedAnswer)
	}
	data, err := json.Marshal(graded)
	if err != nil {
		return domain.SessionOutcome{}, fmt.Errorf("marshal answers: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_results (quiz_id, total_items, correct_count, percentage, time_taken, answers)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		batchID, out.TotalItems, out.CorrectCount, out.Percentage, out.TimeTaken, data); err != nil {
		return domain.SessionOutcome{}, fmt.Errorf("insert quiz result: %w", err)
	}
	return out, nil
}
