package repository

import (
	"context"
	"fmt"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/database"
	"github.com/jackc/pgx/v5"
)

// candidateRepository reads the candidate directory from PostgreSQL. The
// directory is maintained by the registration system, not by this service.
type candidateRepository struct {
	db *database.PostgresDB
}

// NewCandidateRepository creates a new candidate repository
func NewCandidateRepository(db *database.PostgresDB) CandidateRepository {
	return &candidateRepository{
		db: db,
	}
}

// GetByID retrieves a candidate by ID
func (r *candidateRepository) GetByID(ctx context.Context, id int64) (*domain.Candidate, error) {
	var candidate domain.Candidate
	query := `
		SELECT id, stage_name, category, status, social_like_count, created_at
		FROM candidates
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&candidate.ID,
		&candidate.StageName,
		&candidate.Category,
		&candidate.Status,
		&candidate.SocialLikeCount,
		&candidate.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}

	return &candidate, nil
}

// ListByCategory retrieves candidates of one category
func (r *candidateRepository) ListByCategory(ctx context.Context, category string) ([]domain.Candidate, error) {
	query := `
		SELECT id, stage_name, category, status, social_like_count, created_at
		FROM candidates
		WHERE category = $1
		ORDER BY stage_name ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		var candidate domain.Candidate
		err := rows.Scan(
			&candidate.ID,
			&candidate.StageName,
			&candidate.Category,
			&candidate.Status,
			&candidate.SocialLikeCount,
			&candidate.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read candidates: %w", err)
	}

	return candidates, nil
}
