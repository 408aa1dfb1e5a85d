package memory

import (
	"context"

	"learnfront-session-service/internal/domain"
	"learnfront-session-service/internal/engine"
)

// Grader implements engine.QuizSubmitter against in-process batch content.
// Used when no Postgres or remote backend is configured.
type Grader struct {
	loader BatchLoader
}

func NewGrader(loader BatchLoader) *Grader {
	return &Grader{loader: loader}
}

func (g *Grader) SubmitAnswers(ctx context.Context, batchID string, answers []domain.CapturedAnswer, totalSeconds int) (domain.SessionOutcome, error) {
	batch, err := g.loader.LoadBatch(ctx, domain.GradingDeferred, batchID)
	if err != nil {
		return domain.SessionOutcome{}, err
	}
	return engine.GradeAnswers(batch, answers, totalSeconds), nil
}
