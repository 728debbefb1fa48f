package domain

import "time"

// EventType identifies the contest phase a live event belongs to.
type EventType string

const (
	EventTypeOnline    EventType = "online"
	EventTypeSemifinal EventType = "semifinal"
	EventTypeFinal     EventType = "final"
)

// Valid reports whether t is a known contest phase.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeOnline, EventTypeSemifinal, EventTypeFinal:
		return true
	}
	return false
}

// EventStatus is the lifecycle state of a live event.
type EventStatus string

const (
	EventStatusPending   EventStatus = "pending"
	EventStatusLive      EventStatus = "live"
	EventStatusPaused    EventStatus = "paused"
	EventStatusCompleted EventStatus = "completed"
)

// LiveEvent is the authoritative record for one contest phase. It is
// mutated only by the orchestrator; every mutation bumps Version, which is
// the linearization point for all transitions (conditional update on the
// stored version rejects the loser of a concurrent admin race).
type LiveEvent struct {
	ID                 string      `json:"id"`
	EventType          EventType   `json:"event_type"`
	Status             EventStatus `json:"status"`
	CurrentCandidateID *int64      `json:"current_candidate_id,omitempty"`
	CurrentCategory    string      `json:"current_category,omitempty"`
	IsVotingOpen       bool        `json:"is_voting_open"`
	WinnerCandidateID  *int64      `json:"winner_candidate_id,omitempty"`
	WinnerRevealedAt   *time.Time  `json:"winner_revealed_at,omitempty"`
	WinnerForced       bool        `json:"winner_forced,omitempty"`
	Version            int64       `json:"version"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// IsRunning reports whether the event accepts orchestrator transitions.
func (e *LiveEvent) IsRunning() bool {
	return e.Status == EventStatusLive || e.Status == EventStatusPaused
}
