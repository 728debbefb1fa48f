package repository

import (
	"context"
	"fmt"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/database"
	"github.com/jackc/pgx/v5"
)

// liveEventRepository handles live event storage with PostgreSQL
type liveEventRepository struct {
	db *database.PostgresDB
}

// NewLiveEventRepository creates a new live event repository
func NewLiveEventRepository(db *database.PostgresDB) LiveEventRepository {
	return &liveEventRepository{
		db: db,
	}
}

const liveEventColumns = `
	id, event_type, status, current_candidate_id, current_category,
	is_voting_open, winner_candidate_id, winner_revealed_at, winner_forced,
	version, created_at, updated_at
`

func scanLiveEvent(row pgx.Row) (*domain.LiveEvent, error) {
	var event domain.LiveEvent
	err := row.Scan(
		&event.ID,
		&event.EventType,
		&event.Status,
		&event.CurrentCandidateID,
		&event.CurrentCategory,
		&event.IsVotingOpen,
		&event.WinnerCandidateID,
		&event.WinnerRevealedAt,
		&event.WinnerForced,
		&event.Version,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetByID retrieves a live event by ID
func (r *liveEventRepository) GetByID(ctx context.Context, id string) (*domain.LiveEvent, error) {
	query := `SELECT ` + liveEventColumns + ` FROM live_events WHERE id = $1`

	event, err := scanLiveEvent(r.db.Pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get live event: %w", err)
	}

	return event, nil
}

// GetActive retrieves the event currently running (live or paused), if any
func (r *liveEventRepository) GetActive(ctx context.Context) (*domain.LiveEvent, error) {
	query := `
		SELECT ` + liveEventColumns + `
		FROM live_events
		WHERE status IN ('live', 'paused')
		ORDER BY updated_at DESC
		LIMIT 1
	`

	event, err := scanLiveEvent(r.db.Pool.QueryRow(ctx, query))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active live event: %w", err)
	}

	return event, nil
}

// Create inserts a new live event
func (r *liveEventRepository) Create(ctx context.Context, event *domain.LiveEvent) error {
	query := `
		INSERT INTO live_events (
			id, event_type, status, current_candidate_id, current_category,
			is_voting_open, winner_candidate_id, winner_revealed_at, winner_forced, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
		RETURNING version, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		event.ID,
		event.EventType,
		event.Status,
		event.CurrentCandidateID,
		event.CurrentCategory,
		event.IsVotingOpen,
		event.WinnerCandidateID,
		event.WinnerRevealedAt,
		event.WinnerForced,
	).Scan(&event.Version, &event.CreatedAt, &event.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create live event: %w", err)
	}

	return nil
}

// Update performs a compare-and-swap on the event version. The WHERE clause
// carries the version the caller read; zero rows means somebody else won the
// race and the caller gets domain.ErrConflict with nothing written.
func (r *liveEventRepository) Update(ctx context.Context, event *domain.LiveEvent) error {
	query := `
		UPDATE live_events
		SET event_type = $1,
		    status = $2,
		    current_candidate_id = $3,
		    current_category = $4,
		    is_voting_open = $5,
		    winner_candidate_id = $6,
		    winner_revealed_at = $7,
		    winner_forced = $8,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $9 AND version = $10
		RETURNING version, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		event.EventType,
		event.Status,
		event.CurrentCandidateID,
		event.CurrentCategory,
		event.IsVotingOpen,
		event.WinnerCandidateID,
		event.WinnerRevealedAt,
		event.WinnerForced,
		event.ID,
		event.Version,
	).Scan(&event.Version, &event.UpdatedAt)

	if err == pgx.ErrNoRows {
		return fmt.Errorf("%w: live event %s changed since read", domain.ErrConflict, event.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update live event: %w", err)
	}

	return nil
}
