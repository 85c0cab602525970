package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/persistence"
)

const subprocessColumns = `id, process_id, unit_id, situacao, map_id,
	prazo_etapa1, data_fim_etapa1, prazo_etapa2, data_fim_etapa2,
	created_at, updated_at`

// SubprocessRepository handles subprocess database operations.
type SubprocessRepository struct {
	q      querier
	logger *slog.Logger
}

// NewSubprocessRepository creates a new subprocess repository.
func NewSubprocessRepository(q querier, logger *slog.Logger) *SubprocessRepository {
	return &SubprocessRepository{q: q, logger: logger}
}

func (sr *SubprocessRepository) GetByID(ctx context.Context, id int64) (*models.Subprocess, error) {
	query := `SELECT ` + subprocessColumns + ` FROM subprocesses WHERE id = $1`

	return sr.getOne(ctx, query, id)
}

// GetForUpdate reads the subprocess with a row lock; it must run inside a
// transaction or the lock is released immediately.
func (sr *SubprocessRepository) GetForUpdate(ctx context.Context, id int64) (*models.Subprocess, error) {
	query := `SELECT ` + subprocessColumns + ` FROM subprocesses WHERE id = $1 FOR UPDATE`

	return sr.getOne(ctx, query, id)
}

func (sr *SubprocessRepository) GetByProcessAndUnit(ctx context.Context, processID, unitID int64) (*models.Subprocess, error) {
	query := `SELECT ` + subprocessColumns + ` FROM subprocesses WHERE process_id = $1 AND unit_id = $2`

	return sr.getOne(ctx, query, processID, unitID)
}

func (sr *SubprocessRepository) getOne(ctx context.Context, query string, args ...any) (*models.Subprocess, error) {
	row := sr.q.QueryRowContext(ctx, query, args...)

	subprocess, err := sr.scanSubprocess(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrSubprocessNotFound
		}

		return nil, fmt.Errorf("failed to scan subprocess: %w", err)
	}

	return subprocess, nil
}

func (sr *SubprocessRepository) ByProcess(ctx context.Context, processID int64) ([]*models.Subprocess, error) {
	query := `SELECT ` + subprocessColumns + ` FROM subprocesses WHERE process_id = $1 ORDER BY id`

	return sr.list(ctx, query, processID)
}

// Overdue returns subprocesses with a stage deadline before now whose stage
// has not been concluded.
func (sr *SubprocessRepository) Overdue(ctx context.Context, now time.Time) ([]*models.Subprocess, error) {
	query := `
		SELECT ` + subprocessColumns + `
		FROM subprocesses
		WHERE (prazo_etapa1 < $1 AND data_fim_etapa1 IS NULL)
		   OR (prazo_etapa2 < $1 AND data_fim_etapa2 IS NULL)
		ORDER BY id
	`

	return sr.list(ctx, query, now)
}

func (sr *SubprocessRepository) list(ctx context.Context, query string, args ...any) ([]*models.Subprocess, error) {
	rows, err := sr.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subprocesses: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			sr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var subprocesses []*models.Subprocess

	for rows.Next() {
		subprocess, err := sr.scanSubprocess(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subprocess: %w", err)
		}

		subprocesses = append(subprocesses, subprocess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subprocesses: %w", err)
	}

	return subprocesses, nil
}

// Save inserts the subprocess when its ID is zero, assigning the generated
// identifier, and updates it otherwise.
func (sr *SubprocessRepository) Save(ctx context.Context, subprocess *models.Subprocess) error {
	if subprocess.ID == 0 {
		query := `
			INSERT INTO subprocesses (process_id, unit_id, situacao, map_id,
				prazo_etapa1, data_fim_etapa1, prazo_etapa2, data_fim_etapa2,
				created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
			RETURNING id, created_at, updated_at
		`

		err := sr.q.QueryRowContext(ctx, query,
			subprocess.ProcessID,
			subprocess.UnitID,
			subprocess.Situacao,
			subprocess.MapID,
			subprocess.PrazoEtapa1,
			subprocess.DataFimEtapa1,
			subprocess.PrazoEtapa2,
			subprocess.DataFimEtapa2,
		).Scan(&subprocess.ID, &subprocess.CreatedAt, &subprocess.UpdatedAt)
		if err != nil {
			return persistence.NewStoreError("Save", "subprocess", "", err)
		}

		return nil
	}

	query := `
		UPDATE subprocesses SET
			situacao = $2,
			map_id = $3,
			prazo_etapa1 = $4,
			data_fim_etapa1 = $5,
			prazo_etapa2 = $6,
			data_fim_etapa2 = $7,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := sr.q.ExecContext(ctx, query,
		subprocess.ID,
		subprocess.Situacao,
		subprocess.MapID,
		subprocess.PrazoEtapa1,
		subprocess.DataFimEtapa1,
		subprocess.PrazoEtapa2,
		subprocess.DataFimEtapa2,
	)
	if err != nil {
		return persistence.NewStoreError("Save", "subprocess", strconv.FormatInt(subprocess.ID, 10), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.ErrSubprocessNotFound
	}

	return nil
}

func (sr *SubprocessRepository) scanSubprocess(scanner interface {
	Scan(dest ...any) error
}) (*models.Subprocess, error) {
	var subprocess models.Subprocess

	err := scanner.Scan(
		&subprocess.ID,
		&subprocess.ProcessID,
		&subprocess.UnitID,
		&subprocess.Situacao,
		&subprocess.MapID,
		&subprocess.PrazoEtapa1,
		&subprocess.DataFimEtapa1,
		&subprocess.PrazoEtapa2,
		&subprocess.DataFimEtapa2,
		&subprocess.CreatedAt,
		&subprocess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &subprocess, nil
}
