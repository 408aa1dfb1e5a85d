package domain

// GradingMode selects when correctness is determined for a session.
type GradingMode string

const (
	// GradingImmediate grades each item right after reveal (review flow).
	GradingImmediate GradingMode = "immediate"
	// GradingDeferred grades all items in one bulk submission at the end (quiz flow).
	GradingDeferred GradingMode = "deferred"
)

// Phase is the lifecycle state of a session.
type Phase string

const (
	PhaseLoading    Phase = "loading"
	PhaseAnswering  Phase = "answering"
	PhaseRevealed   Phase = "revealed"
	PhaseSubmitting Phase = "submitting"
	PhaseComplete   Phase = "complete"
	PhaseEmpty      Phase = "empty"
	// PhaseFailed means the item batch never loaded; distinct from PhaseEmpty.
	PhaseFailed Phase = "failed"
)

// Difficulty is an informational classification; it does not alter scoring.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Candidate is one possible answer for an item.
type Candidate struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Item models a single question with exactly one correct candidate.
type Item struct {
	ID          string      `json:"id"`
	Prompt      string      `json:"prompt"`
	Candidates  []Candidate `json:"candidates"`
	Explanation string      `json:"explanation,omitempty"`
	Difficulty  Difficulty  `json:"difficulty,omitempty"`
	Position    int         `json:"position"` // stable ordering within a quiz batch
}

// CorrectText returns the text of the item's correct candidate.
func (i Item) CorrectText() string {
	for _, c := range i.Candidates {
		if c.Correct {
			return c.Text
		}
	}
	return ""
}

// HasCandidate reports whether text matches one of the item's candidates.
func (i Item) HasCandidate(text string) bool {
	for _, c := range i.Candidates {
		if c.Text == text {
			return true
		}
	}
	return false
}

// ItemBatch is an ordered set of items loaded for one session.
type ItemBatch struct {
	ID    string `json:"id"`
	Items []Item `json:"items"`
}

// CapturedAnswer is the immutable record of one completed item.
// In deferred mode Correct stays false until the bulk grading response arrives.
type CapturedAnswer struct {
	ItemID    string `json:"itemId"`
	Selected  string `json:"selectedAnswer"`
	TimeTaken int    `json:"timeTaken"` // whole seconds, never negative
	Correct   bool   `json:"isCorrect"`
}

// AnswerDetail enriches a captured answer for outcome display.
type AnswerDetail struct {
	CapturedAnswer
	Prompt        string `json:"prompt"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation,omitempty"`
}

// SessionOutcome summarizes a finished session.
type SessionOutcome struct {
	TotalItems   int            `json:"totalItems"`
	CorrectCount int            `json:"correctCount"`
	Percentage   int            `json:"percentage"`
	TimeTaken    int            `json:"timeTaken"` // wall-clock seconds, session end minus start
	Details      []AnswerDetail `json:"details,omitempty"`
}

// ReviewStats are aggregate counters from the scheduling collaborator.
// Display-only; the engine never branches on them.
type ReviewStats struct {
	TotalItems int `json:"totalItems"`
	DueNow     int `json:"dueNow"`
	Mastered   int `json:"mastered"`
	Learning   int `json:"learning"`
	Streak     int `json:"streak"`
}
