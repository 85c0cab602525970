package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/persistence"
)

const movementColumns = `id, subprocess_id, origin_unit_id, destination_unit_id,
	description, caller_title, date`

// MovementRepository handles the append-only movement audit trail.
type MovementRepository struct {
	q      querier
	logger *slog.Logger
}

// NewMovementRepository creates a new movement repository.
func NewMovementRepository(q querier, logger *slog.Logger) *MovementRepository {
	return &MovementRepository{q: q, logger: logger}
}

func (mr *MovementRepository) Append(ctx context.Context, movement *models.Movement) error {
	query := `
		INSERT INTO movements (id, subprocess_id, origin_unit_id, destination_unit_id,
			description, caller_title, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := mr.q.ExecContext(ctx, query,
		movement.ID,
		movement.SubprocessID,
		movement.OriginUnitID,
		movement.DestinationUnitID,
		movement.Description,
		movement.CallerTitle,
		movement.Date,
	)
	if err != nil {
		return persistence.NewStoreError("Append", "movement", movement.ID, err)
	}

	return nil
}

// BySubprocess returns movements newest first.
func (mr *MovementRepository) BySubprocess(ctx context.Context, subprocessID int64) ([]*models.Movement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM movements
		WHERE subprocess_id = $1
		ORDER BY date DESC
	`

	rows, err := mr.q.QueryContext(ctx, query, subprocessID)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			mr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var movements []*models.Movement

	for rows.Next() {
		movement, err := mr.scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}

		movements = append(movements, movement)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating movements: %w", err)
	}

	return movements, nil
}

// Latest returns the most recent movement, or nil when none exists yet.
func (mr *MovementRepository) Latest(ctx context.Context, subprocessID int64) (*models.Movement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM movements
		WHERE subprocess_id = $1
		ORDER BY date DESC
		LIMIT 1
	`

	row := mr.q.QueryRowContext(ctx, query, subprocessID)

	movement, err := mr.scanMovement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan movement: %w", err)
	}

	return movement, nil
}

func (mr *MovementRepository) scanMovement(scanner interface {
	Scan(dest ...any) error
}) (*models.Movement, error) {
	var movement models.Movement

	err := scanner.Scan(
		&movement.ID,
		&movement.SubprocessID,
		&movement.OriginUnitID,
		&movement.DestinationUnitID,
		&movement.Description,
		&movement.CallerTitle,
		&movement.Date,
	)
	if err != nil {
		return nil, err
	}

	return &movement, nil
}
