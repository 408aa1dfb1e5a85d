package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"learnfront-session-service/internal/domain"
)

// defaultDifficultyRating matches what the web client always reported.
const defaultDifficultyRating = 3

// ItemSource loads the ordered item batch for a session (quiz content for
// deferred mode, the next due batch for immediate mode).
type ItemSource interface {
	LoadBatch(ctx context.Context, mode domain.GradingMode, scope string) (domain.ItemBatch, error)
}

// ReviewReporter feeds each graded item's correctness to the external
// scheduler. The scheduler owns due dates and mastery; nothing comes back.
type ReviewReporter interface {
	ReportResult(ctx context.Context, itemID string, correct bool, rating int) error
}

// QuizSubmitter grades a deferred session's full answer list in one call and
// returns the authoritative outcome.
type QuizSubmitter interface {
	SubmitAnswers(ctx context.Context, batchID string, answers []domain.CapturedAnswer, totalSeconds int) (domain.SessionOutcome, error)
}

// StatsProvider serves the post-completion statistics refresh for review
// sessions. Display-only.
type StatsProvider interface {
	ReviewStats(ctx context.Context, userID string) (domain.ReviewStats, error)
}

// SessionStore abstracts how live sessions are held (in-memory, Redis-marked).
type SessionStore interface {
	Put(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
}

// SessionService contains the session engine use cases.
type SessionService struct {
	items     ItemSource
	reporter  ReviewReporter
	submitter QuizSubmitter
	stats     StatsProvider
	sessions  SessionStore
	now       func() time.Time
	logf      func(format string, args ...any)
}

func NewSessionService(items ItemSource, reporter ReviewReporter, submitter QuizSubmitter, stats StatsProvider, sessions SessionStore) *SessionService {
	return &SessionService{
		items:     items,
		reporter:  reporter,
		submitter: submitter,
		stats:     stats,
		sessions:  sessions,
		now:       time.Now,
		logf:      log.Printf,
	}
}

// NewSessionServiceWithClock is test-only for deterministic timestamps.
func NewSessionServiceWithClock(items ItemSource, reporter ReviewReporter, submitter QuizSubmitter, stats StatsProvider, sessions SessionStore, now func() time.Time) *SessionService {
	s := NewSessionService(items, reporter, submitter, stats, sessions)
	s.now = now
	return s
}

// Start loads the item batch and opens a session. An empty batch yields a
// terminal Empty snapshot without storing anything; a fetch error yields a
// Failed snapshot plus a load error the caller can surface.
func (s *SessionService) Start(ctx context.Context, mode domain.GradingMode, scope, userID string) (Snapshot, error) {
	batch, err := s.items.LoadBatch(ctx, mode, scope)
	if err != nil {
		snap := Snapshot{Mode: mode, Phase: domain.PhaseFailed}
		return snap, fmt.Errorf("%w: %v", domain.ErrLoadFailed, err)
	}

	session := newSession(newSessionID(), userID, mode, batch, s.now)
	if len(batch.Items) == 0 {
		return session.Snapshot(), nil
	}
	s.sessions.Put(session)
	return session.Snapshot(), nil
}

// Select records a choice for the current item.
func (s *SessionService) Select(sessionID, candidate string) (Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	if err := session.Select(candidate); err != nil {
		return session.Snapshot(), err
	}
	return session.Snapshot(), nil
}

// Reveal freezes the selection and grades the current item locally.
func (s *SessionService) Reveal(sessionID string) (RevealResult, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return RevealResult{}, domain.ErrSessionNotFound
	}
	return session.Reveal()
}

// Advance confirms the current item and moves on. In immediate mode the
// grading report for item i is issued before item i+1's answering begins; a
// report failure is logged and the session continues. In deferred mode the
// final advance triggers the bulk submit; on submit failure the captured
// answers stay put and the session waits for a user-initiated retry.
func (s *SessionService) Advance(ctx context.Context, sessionID string) (Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}

	ans, err := session.beginAdvance()
	if err != nil {
		return session.Snapshot(), err
	}

	if session.Mode() == domain.GradingImmediate {
		if err := s.reporter.ReportResult(ctx, ans.ItemID, ans.Correct, defaultDifficultyRating); err != nil {
			s.logf("grading report for item %s failed: %v", ans.ItemID, err)
		}
		session.finishAdvance()
		return session.Snapshot(), nil
	}

	if session.pendingComplete() {
		return s.submit(ctx, session)
	}
	session.finishAdvance()
	return session.Snapshot(), nil
}

// RetrySubmit re-issues the bulk submit with the same captured answers.
func (s *SessionService) RetrySubmit(ctx context.Context, sessionID string) (Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	if !session.pendingComplete() {
		return session.Snapshot(), domain.ErrInvalidTransition
	}
	return s.submit(ctx, session)
}

func (s *SessionService) submit(ctx context.Context, session *Session) (Snapshot, error) {
	if !session.beginSubmit() {
		return session.Snapshot(), domain.ErrSubmitInFlight
	}
	out, err := s.submitter.SubmitAnswers(ctx, session.batchID, session.CapturedAnswers(), session.TotalSeconds())
	if err != nil {
		session.endSubmit()
		return session.Snapshot(), fmt.Errorf("%w: %v", domain.ErrSubmitFailed, err)
	}
	session.completeWithOutcome(out)
	return session.Snapshot(), nil
}

// Outcome returns the summary of a completed session.
func (s *SessionService) Outcome(sessionID string) (domain.SessionOutcome, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionOutcome{}, domain.ErrSessionNotFound
	}
	return session.Outcome()
}

// Stats fetches the review statistics refresh. Best-effort, display-only.
func (s *SessionService) Stats(ctx context.Context, userID string) (domain.ReviewStats, error) {
	return s.stats.ReviewStats(ctx, userID)
}

// StatsRefresh serves the post-completion counters for the session's own
// learner, so transports cannot query stats for a mismatched user.
func (s *SessionService) StatsRefresh(ctx context.Context, sessionID string) (domain.ReviewStats, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ReviewStats{}, domain.ErrSessionNotFound
	}
	return s.stats.ReviewStats(ctx, session.userID)
}

// Abandon discards a session; nothing partial is persisted and any
// collaborator response still in flight becomes a no-op.
func (s *SessionService) Abandon(sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.abandon()
	s.sessions.Delete(sessionID)
}
