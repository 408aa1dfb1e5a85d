package memory

import (
	"context"
	"testing"

	"learnfront-session-service/internal/domain"
)

func TestReviewStoreAccumulates(t *testing.T) {
	ctx := context.Background()
	store := NewReviewStore()

	for i := 0; i < masteryStreak; i++ {
		if err := store.ReportResult(ctx, "q1", true, 3); err != nil {
			t.Fatalf("report: %v", err)
		}
	}
	_ = store.ReportResult(ctx, "q2", false, 3)

	stats, err := store.ReviewStats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalItems != 2 {
		t.Fatalf("expected 2 items tracked, got %d", stats.TotalItems)
	}
	if stats.Mastered != 1 || stats.Learning != 1 {
		t.Fatalf("expected 1 mastered / 1 learning, got %+v", stats)
	}
	if stats.Streak != 0 {
		t.Fatalf("expected streak reset by incorrect report, got %d", stats.Streak)
	}
}

func TestGraderUsesBatchContent(t *testing.T) {
	ctx := context.Background()
	grader := NewGrader(NewStaticBatchLoader(map[string]domain.ItemBatch{
		"quiz-1": sampleBatch(),
	}))

	out, err := grader.SubmitAnswers(ctx, "quiz-1", []domain.CapturedAnswer{
		{ItemID: "q1", Selected: "4", TimeTaken: 2},
	}, 7)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.CorrectCount != 1 || out.Percentage != 100 || out.TimeTaken != 7 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(out.Details) != 1 || !out.Details[0].Correct {
		t.Fatalf("expected graded detail, got %+v", out.Details)
	}
}
