package domain

import "time"

// Vote is one public vote from a personal device. The
// (EventID, DeviceFingerprint, CandidateID) triple is unique: a duplicate
// attempt is rejected outright, never deduplicated after the fact, and a
// vote is never retracted.
type Vote struct {
	ID                int64     `json:"id"`
	VoteID            string    `json:"vote_id"` // public receipt
	EventID           string    `json:"event_id"`
	DeviceFingerprint string    `json:"-"`
	CandidateID       int64     `json:"candidate_id"`
	CreatedAt         time.Time `json:"created_at"`
}

// VoteReceipt is what a voter gets back after a counted vote.
type VoteReceipt struct {
	VoteID      string    `json:"vote_id"`
	CandidateID int64     `json:"candidate_id"`
	Timestamp   time.Time `json:"timestamp"`
	Message     string    `json:"message"`
}
