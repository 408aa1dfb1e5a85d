package engine

import (
	"crypto/rand"
	"encoding/hex"
	"math"
	"sync"
	"time"

	"learnfront-session-service/internal/domain"
)

// Session walks a learner through one ordered item batch. All mutating
// methods are guarded so a caller that bypasses the UI's disabled controls
// still cannot break the phase invariants.
type Session struct {
	id      string
	userID  string
	batchID string
	mode    domain.GradingMode
	items   []domain.Item
	now     func() time.Time

	mu          sync.Mutex
	phase       domain.Phase
	index       int
	startedAt   time.Time
	itemStart   time.Time
	selected    string
	revealedAt  time.Time
	revealedOK  bool
	captured    []domain.CapturedAnswer
	correct     int
	completedAt time.Time
	outcome     *domain.SessionOutcome
	submitting  bool
	abandoned   bool
}

func newSession(id, userID string, mode domain.GradingMode, batch domain.ItemBatch, now func() time.Time) *Session {
	s := &Session{
		id:      id,
		userID:  userID,
		batchID: batch.ID,
		mode:    mode,
		items:   batch.Items,
		now:     now,
	}
	start := now()
	s.startedAt = start
	if len(batch.Items) == 0 {
		s.phase = domain.PhaseEmpty
		return s
	}
	s.phase = domain.PhaseAnswering
	s.itemStart = start
	return s
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id, userID string, mode domain.GradingMode, batch domain.ItemBatch) *Session {
	return newSession(id, userID, mode, batch, time.Now)
}

func newSessionID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// ItemView is the current item as shown to the learner; correct flags and
// explanations are stripped until reveal.
type ItemView struct {
	ID         string            `json:"id"`
	Prompt     string            `json:"prompt"`
	Candidates []string          `json:"candidates"`
	Difficulty domain.Difficulty `json:"difficulty,omitempty"`
	Position   int               `json:"position"`
}

// Snapshot is a read-only view of session state for transports.
type Snapshot struct {
	SessionID string             `json:"sessionId"`
	Mode      domain.GradingMode `json:"mode"`
	Phase     domain.Phase       `json:"phase"`
	Index     int                `json:"index"`
	Total     int                `json:"total"`
	Answered  int                `json:"answered"`
	Selected  string             `json:"selected,omitempty"`
	Item      *ItemView          `json:"item,omitempty"`
}

// RevealResult is what the learner sees after revealing the current item.
type RevealResult struct {
	Correct       bool     `json:"correct"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
	TimeTaken     int      `json:"timeTaken"`
	Snapshot      Snapshot `json:"snapshot"`
}

func (s *Session) ID() string { return s.id }

func (s *Session) Mode() domain.GradingMode { return s.mode }

// Snapshot returns the current state of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		Mode:      s.mode,
		Phase:     s.phase,
		Index:     s.index,
		Total:     len(s.items),
		Answered:  len(s.captured),
		Selected:  s.selected,
	}
	if s.phase == domain.PhaseAnswering || s.phase == domain.PhaseRevealed {
		item := s.items[s.index]
		view := ItemView{
			ID:         item.ID,
			Prompt:     item.Prompt,
			Candidates: make([]string, 0, len(item.Candidates)),
			Difficulty: item.Difficulty,
			Position:   item.Position,
		}
		for _, c := range item.Candidates {
			view.Candidates = append(view.Candidates, c.Text)
		}
		snap.Item = &view
	}
	return snap
}

// Select records the learner's choice for the current item. Re-selection
// before reveal overwrites; once revealed or submitting the choice is frozen.
func (s *Session) Select(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.phase {
	case domain.PhaseAnswering:
	case domain.PhaseRevealed, domain.PhaseSubmitting:
		return domain.ErrSelectionFrozen
	default:
		return domain.ErrInvalidTransition
	}
	if !s.items[s.index].HasCandidate(text) {
		return domain.ErrUnknownCandidate
	}
	s.selected = text
	return nil
}

// Reveal freezes the current selection and exposes the correct answer.
// Immediate mode only; a reveal with no selection is rejected.
func (s *Session) Reveal() (RevealResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != domain.GradingImmediate {
		return RevealResult{}, domain.ErrInvalidTransition
	}
	if s.phase != domain.PhaseAnswering {
		return RevealResult{}, domain.ErrInvalidTransition
	}
	if s.selected == "" {
		return RevealResult{}, domain.ErrNoSelection
	}
	item := s.items[s.index]
	s.revealedAt = s.now()
	s.revealedOK = s.selected == item.CorrectText()
	s.phase = domain.PhaseRevealed
	return RevealResult{
		Correct:       s.revealedOK,
		CorrectAnswer: item.CorrectText(),
		Explanation:   item.Explanation,
		TimeTaken:     s.elapsedSeconds(s.itemStart, s.revealedAt),
		Snapshot:      s.snapshotLocked(),
	}, nil
}

// beginAdvance appends the CapturedAnswer for the current item and moves the
// session into Submitting. The entry is appended exactly once per item, in
// presentation order, and never revised afterwards.
func (s *Session) beginAdvance() (domain.CapturedAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ans domain.CapturedAnswer
	switch s.mode {
	case domain.GradingImmediate:
		if s.phase != domain.PhaseRevealed {
			return ans, domain.ErrInvalidTransition
		}
		ans = domain.CapturedAnswer{
			ItemID:    s.items[s.index].ID,
			Selected:  s.selected,
			TimeTaken: s.elapsedSeconds(s.itemStart, s.revealedAt),
			Correct:   s.revealedOK,
		}
		if ans.Correct {
			s.correct++
		}
	case domain.GradingDeferred:
		if s.phase != domain.PhaseAnswering {
			return ans, domain.ErrInvalidTransition
		}
		if s.selected == "" {
			return ans, domain.ErrNoSelection
		}
		// Correctness is the grading server's call in deferred mode.
		ans = domain.CapturedAnswer{
			ItemID:    s.items[s.index].ID,
			Selected:  s.selected,
			TimeTaken: s.elapsedSeconds(s.itemStart, s.now()),
		}
	}

	s.captured = append(s.captured, ans)
	s.selected = ""
	s.revealedOK = false
	s.phase = domain.PhaseSubmitting
	return ans, nil
}

// finishAdvance moves to the next item, or completes the session when the
// batch is exhausted (immediate mode assembles its outcome locally).
func (s *Session) finishAdvance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.abandoned || s.phase != domain.PhaseSubmitting {
		return
	}
	s.index++
	if s.index < len(s.items) {
		s.itemStart = s.now()
		s.phase = domain.PhaseAnswering
		return
	}
	s.completedAt = s.now()
	s.phase = domain.PhaseComplete
	if s.mode == domain.GradingImmediate {
		out := s.localOutcomeLocked()
		s.outcome = &out
	}
}

// pendingComplete reports whether a deferred session has captured every item
// and is waiting on (or retrying) the bulk submit.
func (s *Session) pendingComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode == domain.GradingDeferred &&
		s.phase == domain.PhaseSubmitting &&
		len(s.captured) == len(s.items)
}

// beginSubmit claims the single outstanding-submit slot. A second submit
// while one is in flight would double-persist the result downstream.
func (s *Session) beginSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return false
	}
	s.submitting = true
	return true
}

// endSubmit releases the slot after a failed submit so a retry can claim it.
func (s *Session) endSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
}

// completeWithOutcome installs the authoritative server outcome after a bulk
// submit. No-op if the session was abandoned while the call was in flight.
func (s *Session) completeWithOutcome(out domain.SessionOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	if s.abandoned || s.phase != domain.PhaseSubmitting {
		return
	}
	s.completedAt = s.now()
	s.phase = domain.PhaseComplete
	s.outcome = &out
}

func (s *Session) abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abandoned = true
}

// CapturedAnswers returns a copy of the answers recorded so far.
func (s *Session) CapturedAnswers() []domain.CapturedAnswer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CapturedAnswer, len(s.captured))
	copy(out, s.captured)
	return out
}

// TotalSeconds is the wall-clock duration since the session started.
func (s *Session) TotalSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	end := s.completedAt
	if end.IsZero() {
		end = s.now()
	}
	return s.elapsedSeconds(s.startedAt, end)
}

// Outcome returns the session summary; only available once Complete.
func (s *Session) Outcome() (domain.SessionOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseComplete || s.outcome == nil {
		return domain.SessionOutcome{}, domain.ErrInvalidTransition
	}
	return *s.outcome, nil
}

// localOutcomeLocked assembles the immediate-mode summary from locally
// accumulated counters. Total time is wall-clock, end minus start.
func (s *Session) localOutcomeLocked() domain.SessionOutcome {
	details := make([]domain.AnswerDetail, 0, len(s.captured))
	for i, ans := range s.captured {
		item := s.items[i]
		details = append(details, domain.AnswerDetail{
			CapturedAnswer: ans,
			Prompt:         item.Prompt,
			CorrectAnswer:  item.CorrectText(),
			Explanation:    item.Explanation,
		})
	}
	return domain.SessionOutcome{
		TotalItems:   len(s.items),
		CorrectCount: s.correct,
		Percentage:   percentage(s.correct, len(s.items)),
		TimeTaken:    s.elapsedSeconds(s.startedAt, s.completedAt),
		Details:      details,
	}
}

// elapsedSeconds floors to whole seconds and never goes negative; a reveal
// within the same clock tick as the item start yields zero.
func (s *Session) elapsedSeconds(from, to time.Time) int {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

func percentage(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}
