// Package persistence provides the data storage abstraction for the workflow.
package persistence

import (
	"context"
	"time"

	"github.com/sgcbr/sgcflow/pkg/models"
)

// SubprocessRepository handles subprocess aggregate storage.
type SubprocessRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Subprocess, error)
	// GetForUpdate reads the subprocess acquiring the row lock of the
	// surrounding transaction; concurrent transitions on the same id
	// serialize behind it.
	GetForUpdate(ctx context.Context, id int64) (*models.Subprocess, error)
	GetByProcessAndUnit(ctx context.Context, processID, unitID int64) (*models.Subprocess, error)
	ByProcess(ctx context.Context, processID int64) ([]*models.Subprocess, error)
	Save(ctx context.Context, subprocess *models.Subprocess) error
	// Overdue returns subprocesses whose pending stage deadline is before now.
	Overdue(ctx context.Context, now time.Time) ([]*models.Subprocess, error)
}

// ProcessRepository handles process storage.
type ProcessRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Process, error)
	Save(ctx context.Context, process *models.Process) error
}

// UnitRepository resolves the organizational hierarchy.
type UnitRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Unit, error)
	ByCode(ctx context.Context, code int64) (*models.Unit, error)
	BySigla(ctx context.Context, sigla string) (*models.Unit, error)
	// SuperiorOf returns nil without error for the root of the hierarchy.
	SuperiorOf(ctx context.Context, unit *models.Unit) (*models.Unit, error)
	Save(ctx context.Context, unit *models.Unit) error
}

// MovementRepository is append-only; movements are never mutated or deleted.
type MovementRepository interface {
	Append(ctx context.Context, movement *models.Movement) error
	// BySubprocess returns movements in reverse-chronological order.
	BySubprocess(ctx context.Context, subprocessID int64) ([]*models.Movement, error)
	Latest(ctx context.Context, subprocessID int64) (*models.Movement, error)
}

// AnalysisRepository stores accept/return decision records.
type AnalysisRepository interface {
	Append(ctx context.Context, analysis *models.Analysis) error
	BySubprocess(ctx context.Context, subprocessID int64) ([]*models.Analysis, error)
	// ClearForSubprocess logically supersedes the stage's analysis round.
	ClearForSubprocess(ctx context.Context, subprocessID int64, stage models.AnalysisStage) error
}

// MapRepository exposes the competency-map shape the guards inspect.
type MapRepository interface {
	GetByID(ctx context.Context, id int64) (*models.CompetencyMap, error)
	// Save persists the map, assigning an identifier on first save.
	Save(ctx context.Context, competencyMap *models.CompetencyMap) error
	Activities(ctx context.Context, mapID int64) ([]*models.Activity, error)
	Competencies(ctx context.Context, mapID int64) ([]*models.Competency, error)
	// SaveActivity upserts a cadastre activity together with its knowledge
	// items and competency links, assigning identifiers on first save.
	SaveActivity(ctx context.Context, activity *models.Activity) error
	// SaveCompetency upserts a map competency together with its activity
	// links, assigning an identifier on first save.
	SaveCompetency(ctx context.Context, competency *models.Competency) error
	ClearSugestoes(ctx context.Context, mapID int64) error
}

// Repositories is the accessor set shared by the root handle and by
// transactions.
type Repositories interface {
	Subprocesses() SubprocessRepository
	Processes() ProcessRepository
	Units() UnitRepository
	Movements() MovementRepository
	Analyses() AnalysisRepository
	Maps() MapRepository
}

// Tx is the repository set bound to one atomic unit of work.
type Tx interface {
	Repositories
}

// Persistence is the root storage handle. WithTx runs fn inside one
// transaction: either every write in fn commits or none does.
type Persistence interface {
	Repositories

	WithTx(ctx context.Context, fn func(tx Tx) error) error
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
