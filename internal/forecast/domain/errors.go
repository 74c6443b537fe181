package domain

import "errors"

// Sentinel errors surfaced by the pure calculation layer. The application
// layer maps these to its own error codes and HTTP statuses; domain code
// never knows about transport or persistence.
var (
	// ErrMissingDecisionDate is returned by BuildTimeline when the
	// opportunity has no decision date to schedule backward from.
	ErrMissingDecisionDate = errors.New("opportunity has no decision date")
)
