package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}

	command := os.Args[1]

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "seed":
		if err := seedData(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("✅ Data seeded successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP TABLE IF EXISTS votes CASCADE`,
		`DROP TABLE IF EXISTS jury_scores CASCADE`,
		`DROP TABLE IF EXISTS scoring_settings CASCADE`,
		`DROP TABLE IF EXISTS lineup_items CASCADE`,
		`DROP TABLE IF EXISTS live_events CASCADE`,
		`DROP TABLE IF EXISTS candidates CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", query)
	}

	return nil
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS candidates (
			id BIGSERIAL PRIMARY KEY,
			stage_name VARCHAR(255) NOT NULL,
			category VARCHAR(100) NOT NULL,
			status VARCHAR(50) NOT NULL DEFAULT 'registered',
			social_like_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS live_events (
			id UUID PRIMARY KEY,
			event_type VARCHAR(50) NOT NULL,
			status VARCHAR(50) NOT NULL DEFAULT 'pending',
			current_candidate_id BIGINT REFERENCES candidates(id),
			current_category VARCHAR(100) NOT NULL DEFAULT '',
			is_voting_open BOOLEAN NOT NULL DEFAULT false,
			winner_candidate_id BIGINT REFERENCES candidates(id),
			winner_revealed_at TIMESTAMPTZ,
			winner_forced BOOLEAN NOT NULL DEFAULT false,
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS lineup_items (
			id BIGSERIAL PRIMARY KEY,
			event_id UUID NOT NULL REFERENCES live_events(id) ON DELETE CASCADE,
			candidate_id BIGINT NOT NULL REFERENCES candidates(id),
			category VARCHAR(100) NOT NULL,
			position INTEGER NOT NULL,
			status VARCHAR(50) NOT NULL DEFAULT 'pending',
			started_at TIMESTAMPTZ,
			ended_at TIMESTAMPTZ,
			vote_opened_at TIMESTAMPTZ,
			vote_closed_at TIMESTAMPTZ,
			UNIQUE(event_id, candidate_id),
			UNIQUE(event_id, category, position)
		)`,

		`CREATE TABLE IF NOT EXISTS jury_scores (
			id BIGSERIAL PRIMARY KEY,
			juror_id VARCHAR(255) NOT NULL,
			candidate_id BIGINT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
			event_type VARCHAR(50) NOT NULL,
			payload JSONB NOT NULL,
			total_score INTEGER NOT NULL,
			comment TEXT NOT NULL DEFAULT '',
			viewed_at TIMESTAMPTZ,
			watch_seconds INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(juror_id, candidate_id, event_type)
		)`,

		`CREATE TABLE IF NOT EXISTS votes (
			id BIGSERIAL PRIMARY KEY,
			vote_id VARCHAR(64) UNIQUE NOT NULL,
			event_id UUID NOT NULL REFERENCES live_events(id) ON DELETE CASCADE,
			device_fingerprint VARCHAR(255) NOT NULL,
			candidate_id BIGINT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(event_id, device_fingerprint, candidate_id)
		)`,

		`CREATE TABLE IF NOT EXISTS scoring_settings (
			event_id UUID PRIMARY KEY REFERENCES live_events(id) ON DELETE CASCADE,
			jury_percent INTEGER NOT NULL,
			public_percent INTEGER NOT NULL,
			social_percent INTEGER NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_lineup_items_event_category ON lineup_items(event_id, category, position)`,
		`CREATE INDEX IF NOT EXISTS idx_jury_scores_candidate ON jury_scores(candidate_id, event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_event_candidate ON votes(event_id, candidate_id)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_category ON candidates(category)`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
	}

	return nil
}

func seedData(ctx context.Context, conn *pgx.Conn) error {
	query := `
		INSERT INTO candidates (stage_name, category, status, social_like_count) VALUES
		('Luna', 'enfant', 'semifinalist', 120),
		('Mateo', 'enfant', 'semifinalist', 85),
		('Elsa B.', 'ado', 'semifinalist', 240),
		('Noham', 'ado', 'semifinalist', 310),
		('Claire V.', 'adulte', 'semifinalist', 95),
		('Sofiane', 'adulte', 'semifinalist', 178)
		ON CONFLICT DO NOTHING
	`

	if _, err := conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to seed candidates: %w", err)
	}

	return nil
}
