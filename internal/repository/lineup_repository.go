package repository

import (
	"context"
	"fmt"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/database"
	"github.com/jackc/pgx/v5"
)

// lineupRepository handles lineup item storage with PostgreSQL
type lineupRepository struct {
	db *database.PostgresDB
}

// NewLineupRepository creates a new lineup repository
func NewLineupRepository(db *database.PostgresDB) LineupRepository {
	return &lineupRepository{
		db: db,
	}
}

const lineupColumns = `
	id, event_id, candidate_id, category, position, status,
	started_at, ended_at, vote_opened_at, vote_closed_at
`

func scanLineupItem(row pgx.Row) (*domain.LineupItem, error) {
	var item domain.LineupItem
	err := row.Scan(
		&item.ID,
		&item.EventID,
		&item.CandidateID,
		&item.Category,
		&item.Position,
		&item.Status,
		&item.StartedAt,
		&item.EndedAt,
		&item.VoteOpenedAt,
		&item.VoteClosedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetByID retrieves a lineup item by ID
func (r *lineupRepository) GetByID(ctx context.Context, id int64) (*domain.LineupItem, error) {
	query := `SELECT ` + lineupColumns + ` FROM lineup_items WHERE id = $1`

	item, err := scanLineupItem(r.db.Pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lineup item: %w", err)
	}

	return item, nil
}

// GetByCandidate retrieves the lineup item for a candidate within an event
func (r *lineupRepository) GetByCandidate(ctx context.Context, eventID string, candidateID int64) (*domain.LineupItem, error) {
	query := `
		SELECT ` + lineupColumns + `
		FROM lineup_items
		WHERE event_id = $1 AND candidate_id = $2
	`

	item, err := scanLineupItem(r.db.Pool.QueryRow(ctx, query, eventID, candidateID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lineup item by candidate: %w", err)
	}

	return item, nil
}

// ListByEvent retrieves all lineup items of an event ordered by category, position
func (r *lineupRepository) ListByEvent(ctx context.Context, eventID string) ([]domain.LineupItem, error) {
	query := `
		SELECT ` + lineupColumns + `
		FROM lineup_items
		WHERE event_id = $1
		ORDER BY category ASC, position ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lineup items: %w", err)
	}
	defer rows.Close()

	return collectLineupItems(rows)
}

// ListByCategory retrieves a category's lineup ordered by position
func (r *lineupRepository) ListByCategory(ctx context.Context, eventID, category string) ([]domain.LineupItem, error) {
	query := `
		SELECT ` + lineupColumns + `
		FROM lineup_items
		WHERE event_id = $1 AND category = $2
		ORDER BY position ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, eventID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list lineup items by category: %w", err)
	}
	defer rows.Close()

	return collectLineupItems(rows)
}

func collectLineupItems(rows pgx.Rows) ([]domain.LineupItem, error) {
	var items []domain.LineupItem
	for rows.Next() {
		item, err := scanLineupItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lineup item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lineup items: %w", err)
	}
	return items, nil
}

// Update persists the mutable fields of a lineup item
func (r *lineupRepository) Update(ctx context.Context, item *domain.LineupItem) error {
	query := `
		UPDATE lineup_items
		SET status = $1,
		    position = $2,
		    started_at = $3,
		    ended_at = $4,
		    vote_opened_at = $5,
		    vote_closed_at = $6
		WHERE id = $7
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		item.Status,
		item.Position,
		item.StartedAt,
		item.EndedAt,
		item.VoteOpenedAt,
		item.VoteClosedAt,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update lineup item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: lineup item %d", domain.ErrNotFound, item.ID)
	}

	return nil
}

// Reorder rewrites positions 1..n following orderedIDs. Positions are first
// moved out of range inside the transaction so the unique (event, category,
// position) constraint never trips on intermediate states.
func (r *lineupRepository) Reorder(ctx context.Context, eventID, category string, orderedIDs []int64) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin reorder: %w", err)
	}
	defer tx.Rollback(ctx)

	// Items that stay put (already performed) keep their slots; the
	// reordered block fills the positions after them.
	var base int
	baseQuery := `
		SELECT COALESCE(MAX(position), 0)
		FROM lineup_items
		WHERE event_id = $1 AND category = $2 AND NOT (id = ANY($3))
	`
	if err := tx.QueryRow(ctx, baseQuery, eventID, category, orderedIDs).Scan(&base); err != nil {
		return fmt.Errorf("failed to read lineup positions: %w", err)
	}

	positions := make([]int, len(orderedIDs))
	for i := range orderedIDs {
		positions[i] = base + i + 1
	}

	park := `
		UPDATE lineup_items
		SET position = position + 10000
		WHERE event_id = $1 AND category = $2 AND id = ANY($3)
	`
	if _, err := tx.Exec(ctx, park, eventID, category, orderedIDs); err != nil {
		return fmt.Errorf("failed to park lineup positions: %w", err)
	}

	place := `
		UPDATE lineup_items
		SET position = $1
		WHERE id = $2 AND event_id = $3 AND category = $4
	`
	for i, id := range orderedIDs {
		tag, err := tx.Exec(ctx, place, positions[i], id, eventID, category)
		if err != nil {
			return fmt.Errorf("failed to place lineup item %d: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: lineup item %d not in category %s", domain.ErrValidation, id, category)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}

	return nil
}
