package engine

import (
	"learnfront-session-service/internal/domain"
)

// GradeAnswers grades a deferred session's captured answers against the batch
// content and assembles the authoritative outcome. Shared by the local and
// postgres-backed grading collaborators.
func GradeAnswers(batch domain.ItemBatch, answers []domain.CapturedAnswer, totalSeconds int) domain.SessionOutcome {
	byID := make(map[string]domain.Item, len(batch.Items))
	for _, item := range batch.Items {
		byID[item.ID] = item
	}

	correct := 0
	details := make([]domain.AnswerDetail, 0, len(answers))
	for _, ans := range answers {
		item, ok := byID[ans.ItemID]
		if ok {
			ans.Correct = ans.Selected == item.CorrectText()
		}
		if ans.Correct {
			correct++
		}
		details = append(details, domain.AnswerDetail{
			CapturedAnswer: ans,
			Prompt:         item.Prompt,
			CorrectAnswer:  item.CorrectText(),
			Explanation:    item.Explanation,
		})
	}

	return domain.SessionOutcome{
		TotalItems:   len(answers),
		CorrectCount: correct,
		Percentage:   percentage(correct, len(answers)),
		TimeTaken:    totalSeconds,
		Details:      details,
	}
}
