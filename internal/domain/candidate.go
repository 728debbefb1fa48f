package domain

import "time"

// CandidateStatus is owned by the registration workflow and read-only here.
type CandidateStatus string

const (
	CandidateStatusApproved     CandidateStatus = "approved"
	CandidateStatusSemifinalist CandidateStatus = "semifinalist"
	CandidateStatusFinalist     CandidateStatus = "finalist"
	CandidateStatusWinner       CandidateStatus = "winner"
)

// Candidate is a read-only projection from the candidate directory.
// SocialLikeCount is the social signal accrued outside the live voting
// window; it feeds the ranking as a minor input.
type Candidate struct {
	ID              int64           `json:"id"`
	StageName       string          `json:"stage_name"`
	Category        string          `json:"category"`
	Status          CandidateStatus `json:"status"`
	SocialLikeCount int             `json:"social_like_count"`
	CreatedAt       time.Time       `json:"created_at"`
}
