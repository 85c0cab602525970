package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/persistence"
)

// ProcessRepository handles process database operations.
type ProcessRepository struct {
	q      querier
	logger *slog.Logger
}

// NewProcessRepository creates a new process repository.
func NewProcessRepository(q querier, logger *slog.Logger) *ProcessRepository {
	return &ProcessRepository{q: q, logger: logger}
}

func (pr *ProcessRepository) GetByID(ctx context.Context, id int64) (*models.Process, error) {
	query := `SELECT id, type, description, prazo, created_at FROM processes WHERE id = $1`

	var process models.Process

	err := pr.q.QueryRowContext(ctx, query, id).Scan(
		&process.ID,
		&process.Type,
		&process.Description,
		&process.Prazo,
		&process.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrProcessNotFound
		}

		return nil, fmt.Errorf("failed to scan process: %w", err)
	}

	return &process, nil
}

func (pr *ProcessRepository) Save(ctx context.Context, process *models.Process) error {
	if process.ID == 0 {
		query := `
			INSERT INTO processes (type, description, prazo, created_at)
			VALUES ($1, $2, $3, NOW())
			RETURNING id, created_at
		`

		err := pr.q.QueryRowContext(ctx, query,
			process.Type,
			process.Description,
			process.Prazo,
		).Scan(&process.ID, &process.CreatedAt)
		if err != nil {
			return persistence.NewStoreError("Save", "process", "", err)
		}

		return nil
	}

	query := `UPDATE processes SET type = $2, description = $3, prazo = $4 WHERE id = $1`

	result, err := pr.q.ExecContext(ctx, query, process.ID, process.Type, process.Description, process.Prazo)
	if err != nil {
		return persistence.NewStoreError("Save", "process", strconv.FormatInt(process.ID, 10), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.ErrProcessNotFound
	}

	return nil
}
