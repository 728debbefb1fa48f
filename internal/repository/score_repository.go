package repository

import (
	"context"
	"fmt"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/database"
	"github.com/jackc/pgx/v5"
)

// scoreRepository handles jury score storage with PostgreSQL
type scoreRepository struct {
	db *database.PostgresDB
}

// NewScoreRepository creates a new score repository
func NewScoreRepository(db *database.PostgresDB) ScoreRepository {
	return &scoreRepository{
		db: db,
	}
}

// GetByKey retrieves a score by its unique (juror, candidate, phase) key
func (r *scoreRepository) GetByKey(ctx context.Context, jurorID string, candidateID int64, eventType domain.EventType) (*domain.JuryScore, error) {
	var score domain.JuryScore
	var payload []byte
	query := `
		SELECT id, juror_id, candidate_id, event_type, payload, total_score, comment,
		       viewed_at, watch_seconds, created_at, updated_at
		FROM jury_scores
		WHERE juror_id = $1 AND candidate_id = $2 AND event_type = $3
	`

	err := r.db.Pool.QueryRow(ctx, query, jurorID, candidateID, eventType).Scan(
		&score.ID,
		&score.JurorID,
		&score.CandidateID,
		&score.EventType,
		&payload,
		&score.TotalScore,
		&score.Comment,
		&score.ViewedAt,
		&score.WatchSeconds,
		&score.CreatedAt,
		&score.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get jury score: %w", err)
	}

	score.Payload, err = domain.UnmarshalScorePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode jury score payload: %w", err)
	}

	return &score, nil
}

// Upsert inserts or updates by the unique key, atomically
func (r *scoreRepository) Upsert(ctx context.Context, score *domain.JuryScore) error {
	payload, err := domain.MarshalScorePayload(score.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode jury score payload: %w", err)
	}

	query := `
		INSERT INTO jury_scores (juror_id, candidate_id, event_type, payload, total_score, comment, viewed_at, watch_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (juror_id, candidate_id, event_type) DO UPDATE SET
			payload = EXCLUDED.payload,
			total_score = EXCLUDED.total_score,
			comment = EXCLUDED.comment,
			viewed_at = EXCLUDED.viewed_at,
			watch_seconds = EXCLUDED.watch_seconds,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err = r.db.Pool.QueryRow(ctx, query,
		score.JurorID,
		score.CandidateID,
		score.EventType,
		payload,
		score.TotalScore,
		score.Comment,
		score.ViewedAt,
		score.WatchSeconds,
	).Scan(&score.ID, &score.CreatedAt, &score.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert jury score: %w", err)
	}

	return nil
}

// AverageTotalsByCategory returns the per-candidate average total score for
// one phase and category. Candidates without any score are absent from the
// map, not zero.
func (r *scoreRepository) AverageTotalsByCategory(ctx context.Context, eventType domain.EventType, category string) (map[int64]float64, error) {
	query := `
		SELECT s.candidate_id, AVG(s.total_score)
		FROM jury_scores s
		JOIN candidates c ON c.id = s.candidate_id
		WHERE s.event_type = $1 AND c.category = $2
		GROUP BY s.candidate_id
	`

	rows, err := r.db.Pool.Query(ctx, query, eventType, category)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate jury scores: %w", err)
	}
	defer rows.Close()

	totals := make(map[int64]float64)
	for rows.Next() {
		var candidateID int64
		var avg float64
		if err := rows.Scan(&candidateID, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan jury average: %w", err)
		}
		totals[candidateID] = avg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read jury averages: %w", err)
	}

	return totals, nil
}

// DeleteForCandidate removes a candidate's scores for one phase
func (r *scoreRepository) DeleteForCandidate(ctx context.Context, eventType domain.EventType, candidateID int64) (int64, error) {
	query := `DELETE FROM jury_scores WHERE event_type = $1 AND candidate_id = $2`

	tag, err := r.db.Pool.Exec(ctx, query, eventType, candidateID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete jury scores: %w", err)
	}

	return tag.RowsAffected(), nil
}
