package domain

import "time"

// LineupStatus is the stage lifecycle of a scheduled performance.
type LineupStatus string

const (
	LineupStatusPending    LineupStatus = "pending"
	LineupStatusPerforming LineupStatus = "performing"
	LineupStatusCompleted  LineupStatus = "completed"
	LineupStatusAbsent     LineupStatus = "absent"
)

// LineupItem schedules one candidate within a category of a live event.
// Position defines performance order and is unique per category.
type LineupItem struct {
	ID           int64        `json:"id"`
	EventID      string       `json:"event_id"`
	CandidateID  int64        `json:"candidate_id"`
	Category     string       `json:"category"`
	Position     int          `json:"position"`
	Status       LineupStatus `json:"status"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	EndedAt      *time.Time   `json:"ended_at,omitempty"`
	VoteOpenedAt *time.Time   `json:"vote_opened_at,omitempty"`
	VoteClosedAt *time.Time   `json:"vote_closed_at,omitempty"`
}

// HasOpenVoteWindow reports whether votes were opened and not yet closed.
func (i *LineupItem) HasOpenVoteWindow() bool {
	return i.VoteOpenedAt != nil && i.VoteClosedAt == nil
}

// IsActive reports whether the item currently owns the stage: either it is
// performing or its vote window is still open. The orchestrator guarantees
// at most one active item per event.
func (i *LineupItem) IsActive() bool {
	return i.Status == LineupStatusPerforming || i.HasOpenVoteWindow()
}

// IsDone reports whether the item no longer blocks the category from
// finishing.
func (i *LineupItem) IsDone() bool {
	return (i.Status == LineupStatusCompleted && !i.HasOpenVoteWindow()) || i.Status == LineupStatusAbsent
}
