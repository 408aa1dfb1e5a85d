package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session ID does not resolve to a live session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrBatchNotFound indicates the item batch could not be loaded.
	ErrBatchNotFound = errors.New("item batch not found")
	// ErrUnknownCandidate indicates a selection not among the current item's candidates.
	ErrUnknownCandidate = errors.New("selection is not a candidate of the current item")
	// ErrNoSelection indicates a reveal or advance attempted with nothing selected.
	ErrNoSelection = errors.New("no answer selected")
	// ErrSelectionFrozen indicates a selection attempt after the item was revealed or submitted.
	ErrSelectionFrozen = errors.New("selection is frozen for this item")
	// ErrInvalidTransition indicates an operation invoked in a phase that does not allow it.
	ErrInvalidTransition = errors.New("operation not valid in current session phase")
	// ErrSubmitFailed wraps a bulk-submit error; captured answers remain available for retry.
	ErrSubmitFailed = errors.New("bulk submit failed")
	// ErrSubmitInFlight indicates a submit attempt while another submit is still outstanding.
	ErrSubmitInFlight = errors.New("submit already in progress")
	// ErrLoadFailed wraps an item batch fetch error.
	ErrLoadFailed = errors.New("failed to load item batch")
)
