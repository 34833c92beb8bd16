package storage

import (
	"context"

	"github.com/harbibet/harbi/internal/pkg/models"
)

// MatchStore persists TeamMatch rows across runs.
type MatchStore interface {
	// LoadMatches returns every persisted row.
	LoadMatches(ctx context.Context) ([]models.TeamMatch, error)

	// UpsertMatches mirrors the registry's active rows into the store.
	UpsertMatches(ctx context.Context, matches []models.TeamMatch) error

	// Close closes the underlying connection.
	Close() error
}
