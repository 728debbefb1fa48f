package repository

import (
	"context"
	"fmt"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/database"
	"github.com/jackc/pgx/v5"
)

// settingsRepository handles per-session scoring configuration with PostgreSQL
type settingsRepository struct {
	db *database.PostgresDB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *database.PostgresDB) SettingsRepository {
	return &settingsRepository{
		db: db,
	}
}

// GetWeights returns the configured scoring weights for an event. Events
// without a stored row fall back to the deployment defaults in config.
func (r *settingsRepository) GetWeights(ctx context.Context, eventID string) (*domain.ScoringWeights, error) {
	var weights domain.ScoringWeights
	query := `
		SELECT jury_percent, public_percent, social_percent
		FROM scoring_settings
		WHERE event_id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, eventID).Scan(
		&weights.JuryWeightPercent,
		&weights.PublicWeightPercent,
		&weights.SocialWeightPercent,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scoring weights: %w", err)
	}

	return &weights, nil
}

// UpdateWeights stores the scoring weights for an event
func (r *settingsRepository) UpdateWeights(ctx context.Context, eventID string, weights domain.ScoringWeights) error {
	query := `
		INSERT INTO scoring_settings (event_id, jury_percent, public_percent, social_percent)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id) DO UPDATE SET
			jury_percent = EXCLUDED.jury_percent,
			public_percent = EXCLUDED.public_percent,
			social_percent = EXCLUDED.social_percent,
			updated_at = NOW()
	`

	_, err := r.db.Pool.Exec(ctx, query, eventID, weights.JuryWeightPercent, weights.PublicWeightPercent, weights.SocialWeightPercent)
	if err != nil {
		return fmt.Errorf("failed to update scoring weights: %w", err)
	}

	return nil
}
