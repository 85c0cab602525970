package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sgcbr/sgcflow/pkg/persistence"
	"github.com/sgcbr/sgcflow/pkg/persistence/memory"
	"github.com/sgcbr/sgcflow/pkg/persistence/postgresql"
)

// NewPersistence selects the persistence backend from the database URL
// scheme. Anything that is not postgres falls back to the in-memory store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to initialize PostgreSQL persistence", "error", err)
			panic(err)
		}

		return p
	default:
		return memory.NewPersistence()
	}
}
