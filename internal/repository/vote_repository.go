package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// voteRepository handles public vote storage with PostgreSQL
type voteRepository struct {
	db *database.PostgresDB
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *database.PostgresDB) VoteRepository {
	return &voteRepository{
		db: db,
	}
}

// uniqueViolation is the PostgreSQL error code for a unique constraint hit
const uniqueViolation = "23505"

// Insert stores a vote. The unique (event, fingerprint, candidate) index is
// the authoritative duplicate check; the Redis fast path in front of it is
// only an optimization.
func (r *voteRepository) Insert(ctx context.Context, vote *domain.Vote) error {
	query := `
		INSERT INTO votes (vote_id, event_id, device_fingerprint, candidate_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		vote.VoteID,
		vote.EventID,
		vote.DeviceFingerprint,
		vote.CandidateID,
	).Scan(&vote.ID, &vote.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: device already voted for candidate %d", domain.ErrDuplicateVote, vote.CandidateID)
		}
		return fmt.Errorf("failed to insert vote: %w", err)
	}

	return nil
}

// CountsByCategory returns counted votes per candidate for one category
func (r *voteRepository) CountsByCategory(ctx context.Context, eventID, category string) (map[int64]int, error) {
	query := `
		SELECT v.candidate_id, COUNT(*)
		FROM votes v
		JOIN candidates c ON c.id = v.candidate_id
		WHERE v.event_id = $1 AND c.category = $2
		GROUP BY v.candidate_id
	`

	rows, err := r.db.Pool.Query(ctx, query, eventID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes by category: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var candidateID int64
		var count int
		if err := rows.Scan(&candidateID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan vote count: %w", err)
		}
		counts[candidateID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vote counts: %w", err)
	}

	return counts, nil
}

// CountForCandidate returns the counted votes for one candidate
func (r *voteRepository) CountForCandidate(ctx context.Context, eventID string, candidateID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM votes WHERE event_id = $1 AND candidate_id = $2`

	err := r.db.Pool.QueryRow(ctx, query, eventID, candidateID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes for candidate: %w", err)
	}

	return count, nil
}

// GetByVoteID retrieves a vote by its public receipt
func (r *voteRepository) GetByVoteID(ctx context.Context, voteID string) (*domain.Vote, error) {
	var vote domain.Vote
	query := `
		SELECT id, vote_id, event_id, device_fingerprint, candidate_id, created_at
		FROM votes
		WHERE vote_id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, voteID).Scan(
		&vote.ID,
		&vote.VoteID,
		&vote.EventID,
		&vote.DeviceFingerprint,
		&vote.CandidateID,
		&vote.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote by receipt: %w", err)
	}

	return &vote, nil
}
