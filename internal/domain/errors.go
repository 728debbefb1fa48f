package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the contest core. Services return these (possibly
// wrapped with context); the HTTP layer translates them into the typed
// error envelope.
var (
	// ErrValidation marks an illegal transition or malformed input given
	// the current stored state.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a precondition broken by a concurrent change,
	// e.g. calling a candidate to stage while another is active.
	ErrConflict = errors.New("conflicting live state")

	// ErrDuplicateVote marks an already-recorded fingerprint/candidate pair.
	ErrDuplicateVote = errors.New("vote already recorded for this device and candidate")

	// ErrNotFound marks an unknown event, candidate or lineup item.
	ErrNotFound = errors.New("not found")

	// ErrTransient marks an unreachable store or transport. The command
	// failed but may be retried verbatim by the caller.
	ErrTransient = errors.New("transient io failure")
)

// ErrVotingClosed is the late-submission rejection: the candidate's vote
// window has been closed and further votes or jury scores are declined,
// not silently dropped. It is a validation failure.
var ErrVotingClosed = fmt.Errorf("%w: voting closed for this candidate", ErrValidation)
