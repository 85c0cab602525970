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

const unitColumns = `id, code, sigla, name, email, titular_id, superior_id`

// UnitRepository resolves units and the organizational hierarchy.
type UnitRepository struct {
	q      querier
	logger *slog.Logger
}

// NewUnitRepository creates a new unit repository.
func NewUnitRepository(q querier, logger *slog.Logger) *UnitRepository {
	return &UnitRepository{q: q, logger: logger}
}

func (ur *UnitRepository) GetByID(ctx context.Context, id int64) (*models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units WHERE id = $1`

	return ur.getOne(ctx, query, id)
}

func (ur *UnitRepository) ByCode(ctx context.Context, code int64) (*models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units WHERE code = $1`

	return ur.getOne(ctx, query, code)
}

func (ur *UnitRepository) BySigla(ctx context.Context, sigla string) (*models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units WHERE sigla = $1`

	return ur.getOne(ctx, query, sigla)
}

// SuperiorOf returns nil without error for the root of the hierarchy.
func (ur *UnitRepository) SuperiorOf(ctx context.Context, unit *models.Unit) (*models.Unit, error) {
	if unit.SuperiorID == nil {
		return nil, nil
	}

	return ur.GetByID(ctx, *unit.SuperiorID)
}

func (ur *UnitRepository) getOne(ctx context.Context, query string, args ...any) (*models.Unit, error) {
	var unit models.Unit

	err := ur.q.QueryRowContext(ctx, query, args...).Scan(
		&unit.ID,
		&unit.Code,
		&unit.Sigla,
		&unit.Name,
		&unit.Email,
		&unit.TitularID,
		&unit.SuperiorID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrUnitNotFound
		}

		return nil, fmt.Errorf("failed to scan unit: %w", err)
	}

	return &unit, nil
}

func (ur *UnitRepository) Save(ctx context.Context, unit *models.Unit) error {
	if unit.ID == 0 {
		query := `
			INSERT INTO units (code, sigla, name, email, titular_id, superior_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`

		err := ur.q.QueryRowContext(ctx, query,
			unit.Code,
			unit.Sigla,
			unit.Name,
			unit.Email,
			unit.TitularID,
			unit.SuperiorID,
		).Scan(&unit.ID)
		if err != nil {
			return persistence.NewStoreError("Save", "unit", "", err)
		}

		return nil
	}

	query := `
		UPDATE units SET
			code = $2,
			sigla = $3,
			name = $4,
			email = $5,
			titular_id = $6,
			superior_id = $7
		WHERE id = $1
	`

	result, err := ur.q.ExecContext(ctx, query,
		unit.ID,
		unit.Code,
		unit.Sigla,
		unit.Name,
		unit.Email,
		unit.TitularID,
		unit.SuperiorID,
	)
	if err != nil {
		return persistence.NewStoreError("Save", "unit", strconv.FormatInt(unit.ID, 10), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.ErrUnitNotFound
	}

	return nil
}
