package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/harbibet/harbi/internal/pkg/config"
	"github.com/harbibet/harbi/internal/pkg/models"
)

// Ensure PostgresMatchStore implements MatchStore
var _ MatchStore = (*PostgresMatchStore)(nil)

// PostgresMatchStore persists TeamMatch rows so manual validations and
// high-confidence automatic matches survive restarts. Rows are superseded
// in place, never deleted: a team that disappears from the authoritative
// list keeps its reviewed mapping.
type PostgresMatchStore struct {
	db *sql.DB
}

// NewPostgresMatchStore opens the connection and ensures the schema.
func NewPostgresMatchStore(cfg *config.PostgresConfig) (*PostgresMatchStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := &PostgresMatchStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("PostgreSQL team match store initialized")
	return store, nil
}

func (s *PostgresMatchStore) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS team_matches (
		source VARCHAR(100) NOT NULL,
		raw_name VARCHAR(500) NOT NULL,
		identity_id VARCHAR(64) NOT NULL,
		confidence INTEGER NOT NULL,
		origin VARCHAR(32) NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (source, raw_name)
	);
	CREATE INDEX IF NOT EXISTS idx_team_matches_identity ON team_matches(identity_id);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// LoadMatches returns every persisted TeamMatch row.
func (s *PostgresMatchStore) LoadMatches(ctx context.Context) ([]models.TeamMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, raw_name, identity_id, confidence, origin, updated_at
		FROM team_matches
		ORDER BY source, raw_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query team matches: %w", err)
	}
	defer rows.Close()

	var out []models.TeamMatch
	for rows.Next() {
		var m models.TeamMatch
		if err := rows.Scan(&m.Source, &m.RawName, &m.IdentityID, &m.Confidence, &m.Origin, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertMatches writes the active rows. The registry already enforced the
// supersede rules, so the database just mirrors its state per key.
func (s *PostgresMatchStore) UpsertMatches(ctx context.Context, matches []models.TeamMatch) error {
	if len(matches) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO team_matches (source, raw_name, identity_id, confidence, origin, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source, raw_name) DO UPDATE SET
			identity_id = EXCLUDED.identity_id,
			confidence = EXCLUDED.confidence,
			origin = EXCLUDED.origin,
			updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, m := range matches {
		if _, err := stmt.ExecContext(ctx, m.Source, m.RawName, m.IdentityID, m.Confidence, m.Origin, m.UpdatedAt); err != nil {
			return fmt.Errorf("failed to upsert match %s/%s: %w", m.Source, m.RawName, err)
		}
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *PostgresMatchStore) Close() error {
	return s.db.Close()
}
