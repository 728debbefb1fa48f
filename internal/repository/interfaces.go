package repository

import (
	"context"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/database"
)

// LiveEventRepository defines the interface for live event storage.
// Update is a conditional write on the stored version: the losing side of
// a concurrent admin race gets domain.ErrConflict and zero mutation.
type LiveEventRepository interface {
	// GetByID retrieves a live event by ID
	GetByID(ctx context.Context, id string) (*domain.LiveEvent, error)

	// GetActive retrieves the event currently running (live or paused), if any
	GetActive(ctx context.Context) (*domain.LiveEvent, error)

	// Create inserts a new live event
	Create(ctx context.Context, event *domain.LiveEvent) error

	// Update performs a compare-and-swap on the event version. On success
	// the in-memory version is bumped to match the store.
	Update(ctx context.Context, event *domain.LiveEvent) error
}

// LineupRepository defines the interface for lineup item storage
type LineupRepository interface {
	// GetByID retrieves a lineup item by ID
	GetByID(ctx context.Context, id int64) (*domain.LineupItem, error)

	// GetByCandidate retrieves the lineup item for a candidate within an event
	GetByCandidate(ctx context.Context, eventID string, candidateID int64) (*domain.LineupItem, error)

	// ListByEvent retrieves all lineup items of an event ordered by category, position
	ListByEvent(ctx context.Context, eventID string) ([]domain.LineupItem, error)

	// ListByCategory retrieves a category's lineup ordered by position
	ListByCategory(ctx context.Context, eventID, category string) ([]domain.LineupItem, error)

	// Update persists the mutable fields of a lineup item
	Update(ctx context.Context, item *domain.LineupItem) error

	// Reorder rewrites positions 1..n following orderedIDs. All listed
	// items must belong to the given event and category.
	Reorder(ctx context.Context, eventID, category string, orderedIDs []int64) error
}

// ScoreRepository defines the interface for jury score storage
type ScoreRepository interface {
	// GetByKey retrieves a score by its unique (juror, candidate, phase) key
	GetByKey(ctx context.Context, jurorID string, candidateID int64, eventType domain.EventType) (*domain.JuryScore, error)

	// Upsert inserts or updates by the unique key, atomically
	Upsert(ctx context.Context, score *domain.JuryScore) error

	// AverageTotalsByCategory returns the per-candidate average total score
	// for one phase and category
	AverageTotalsByCategory(ctx context.Context, eventType domain.EventType, category string) (map[int64]float64, error)

	// DeleteForCandidate removes a candidate's scores for one phase
	// (replay with score reset)
	DeleteForCandidate(ctx context.Context, eventType domain.EventType, candidateID int64) (int64, error)
}

// VoteRepository defines the interface for public vote storage
type VoteRepository interface {
	// Insert stores a vote. A duplicate (event, fingerprint, candidate)
	// triple returns domain.ErrDuplicateVote and leaves the count unchanged.
	Insert(ctx context.Context, vote *domain.Vote) error

	// CountsByCategory returns counted votes per candidate for one category
	CountsByCategory(ctx context.Context, eventID, category string) (map[int64]int, error)

	// CountForCandidate returns the counted votes for one candidate
	CountForCandidate(ctx context.Context, eventID string, candidateID int64) (int, error)

	// GetByVoteID retrieves a vote by its public receipt
	GetByVoteID(ctx context.Context, voteID string) (*domain.Vote, error)
}

// CandidateRepository defines the read-only candidate directory contract
type CandidateRepository interface {
	// GetByID retrieves a candidate by ID
	GetByID(ctx context.Context, id int64) (*domain.Candidate, error)

	// ListByCategory retrieves candidates of one category
	ListByCategory(ctx context.Context, category string) ([]domain.Candidate, error)
}

// SettingsRepository defines the interface for per-session scoring configuration
type SettingsRepository interface {
	// GetWeights returns the configured scoring weights for an event
	GetWeights(ctx context.Context, eventID string) (*domain.ScoringWeights, error)

	// UpdateWeights stores the scoring weights for an event
	UpdateWeights(ctx context.Context, eventID string, weights domain.ScoringWeights) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	LiveEvent LiveEventRepository
	Lineup    LineupRepository
	Score     ScoreRepository
	Vote      VoteRepository
	Candidate CandidateRepository
	Settings  SettingsRepository
}

// NewRepositories wires every repository against one database handle
func NewRepositories(db *database.PostgresDB) *Repositories {
	return &Repositories{
		LiveEvent: NewLiveEventRepository(db),
		Lineup:    NewLineupRepository(db),
		Score:     NewScoreRepository(db),
		Vote:      NewVoteRepository(db),
		Candidate: NewCandidateRepository(db),
		Settings:  NewSettingsRepository(db),
	}
}
