// Package postgresql provides the PostgreSQL persistence implementation for
// the competency-mapping workflow.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/sgcbr/sgcflow/pkg/persistence"
	"github.com/sgcbr/sgcflow/pkg/persistence/sqlbase"
)

// querier is satisfied by both *sql.DB and *sql.Tx, so the repositories can
// run either standalone or inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
	repos
}

type repos struct {
	subprocesses *SubprocessRepository
	processes    *ProcessRepository
	units        *UnitRepository
	movements    *MovementRepository
	analyses     *AnalysisRepository
	maps         *MapRepository
}

func newRepos(q querier, logger *slog.Logger) repos {
	return repos{
		subprocesses: NewSubprocessRepository(q, logger),
		processes:    NewProcessRepository(q, logger),
		units:        NewUnitRepository(q, logger),
		movements:    NewMovementRepository(q, logger),
		analyses:     NewAnalysisRepository(q, logger),
		maps:         NewMapRepository(q, logger),
	}
}

func (r repos) Subprocesses() persistence.SubprocessRepository { return r.subprocesses }
func (r repos) Processes() persistence.ProcessRepository       { return r.processes }
func (r repos) Units() persistence.UnitRepository              { return r.units }
func (r repos) Movements() persistence.MovementRepository      { return r.movements }
func (r repos) Analyses() persistence.AnalysisRepository       { return r.analyses }
func (r repos) Maps() persistence.MapRepository                { return r.maps }

// NewPersistence connects to PostgreSQL and runs pending schema migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:     database,
		logger: logger,
		repos:  newRepos(database, logger),
	}, nil
}

type pgTx struct {
	repos
}

// WithTx runs fn inside one database transaction. GetForUpdate calls issued
// through the transaction's repositories take row locks that serialize
// concurrent transitions on the same subprocess.
func (p *Persistence) WithTx(ctx context.Context, fn func(tx persistence.Tx) error) error {
	transaction, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	err = fn(&pgTx{repos: newRepos(transaction, p.logger)})
	if err != nil {
		if rollbackErr := transaction.Rollback(); rollbackErr != nil {
			p.logger.ErrorContext(ctx, "failed to rollback transaction", "error", rollbackErr)
		}

		return err
	}

	err = transaction.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
