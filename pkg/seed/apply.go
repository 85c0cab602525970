package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/persistence"
	"github.com/sgcbr/sgcflow/pkg/registry"
)

// Applier creates the seeded process, units and subprocesses.
type Applier struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

// NewApplier creates a seed applier.
func NewApplier(p persistence.Persistence, logger *slog.Logger) *Applier {
	return &Applier{
		persistence: p,
		logger:      logger.With("module", "seed"),
	}
}

// Apply creates everything the seed file describes inside one transaction:
// the process, the unit hierarchy, and one subprocess per unit, started on
// the cadastre stage with the initial movement recorded. The caller is the
// administrator driving the seeding.
func (a *Applier) Apply(ctx context.Context, file *File, caller models.Caller) (*models.Process, error) {
	process := &models.Process{
		Type:        models.ProcessType(file.Process.Type),
		Description: file.Process.Description,
		Prazo:       file.Process.Prazo,
	}

	err := a.persistence.WithTx(ctx, func(tx persistence.Tx) error {
		err := tx.Processes().Save(ctx, process)
		if err != nil {
			return fmt.Errorf("failed to create process: %w", err)
		}

		units, err := a.createUnits(ctx, tx, file.Units)
		if err != nil {
			return err
		}

		for _, unit := range units {
			err := a.startSubprocess(ctx, tx, process, unit, file.PrazoEtapa1, caller)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "Seed applied",
		"process_id", process.ID,
		"type", process.Type,
		"units", len(file.Units))

	return process, nil
}

// createUnits registers the units in two passes so a unit can name a superior
// declared later in the file. Units with a sigla already registered are
// reused untouched.
func (a *Applier) createUnits(ctx context.Context, tx persistence.Tx, seeds []UnitSeed) ([]*models.Unit, error) {
	bySigla := make(map[string]*models.Unit, len(seeds))
	units := make([]*models.Unit, 0, len(seeds))

	for _, unitSeed := range seeds {
		existing, err := tx.Units().BySigla(ctx, unitSeed.Sigla)
		if err == nil {
			bySigla[existing.Sigla] = existing
			units = append(units, existing)

			continue
		}

		if !persistence.IsUnitNotFound(err) {
			return nil, fmt.Errorf("failed to look up unit %s: %w", unitSeed.Sigla, err)
		}

		unit := &models.Unit{
			Code:      unitSeed.Code,
			Sigla:     unitSeed.Sigla,
			Name:      unitSeed.Name,
			Email:     unitSeed.Email,
			TitularID: unitSeed.TitularID,
		}

		err = tx.Units().Save(ctx, unit)
		if err != nil {
			return nil, fmt.Errorf("failed to create unit %s: %w", unitSeed.Sigla, err)
		}

		bySigla[unit.Sigla] = unit
		units = append(units, unit)
	}

	for i, unitSeed := range seeds {
		if unitSeed.SuperiorSigla == "" {
			continue
		}

		superior, ok := bySigla[unitSeed.SuperiorSigla]
		if !ok {
			registered, err := tx.Units().BySigla(ctx, unitSeed.SuperiorSigla)
			if err != nil {
				return nil, fmt.Errorf("unit %s references unknown superior %s: %w",
					unitSeed.Sigla, unitSeed.SuperiorSigla, err)
			}

			superior = registered
		}

		units[i].SuperiorID = &superior.ID

		err := tx.Units().Save(ctx, units[i])
		if err != nil {
			return nil, fmt.Errorf("failed to link unit %s to superior: %w", unitSeed.Sigla, err)
		}
	}

	return units, nil
}

// startSubprocess creates the unit's subprocess and immediately starts its
// cadastre stage, recording the initial movement from the administrator to
// the unit.
func (a *Applier) startSubprocess(
	ctx context.Context,
	tx persistence.Tx,
	process *models.Process,
	unit *models.Unit,
	prazoEtapa1 *time.Time,
	caller models.Caller,
) error {
	subprocess := &models.Subprocess{
		ProcessID: process.ID,
		UnitID:    unit.ID,
		Situacao:  models.SituacaoNaoIniciado,
	}

	err := tx.Subprocesses().Save(ctx, subprocess)
	if err != nil {
		return fmt.Errorf("failed to create subprocess for unit %s: %w", unit.Sigla, err)
	}

	// The map is attached empty at birth; the unit fills its activities
	// during the cadastre stage.
	competencyMap := &models.CompetencyMap{
		SubprocessID: subprocess.ID,
		CreatedAt:    time.Now().UTC(),
	}

	err = tx.Maps().Save(ctx, competencyMap)
	if err != nil {
		return fmt.Errorf("failed to create competency map for unit %s: %w", unit.Sigla, err)
	}

	started, err := registry.StateFor(process.Type, registry.StepCadastroEmAndamento)
	if err != nil {
		return err
	}

	subprocess.Situacao = started
	subprocess.MapID = &competencyMap.ID
	subprocess.PrazoEtapa1 = prazoEtapa1

	err = tx.Subprocesses().Save(ctx, subprocess)
	if err != nil {
		return fmt.Errorf("failed to start subprocess for unit %s: %w", unit.Sigla, err)
	}

	movement := &models.Movement{
		ID:                uuid.New().String(),
		SubprocessID:      subprocess.ID,
		OriginUnitID:      unit.ID,
		DestinationUnitID: unit.ID,
		Description:       startDescription(process.Type),
		CallerTitle:       caller.Title,
		Date:              time.Now().UTC(),
	}

	err = tx.Movements().Append(ctx, movement)
	if err != nil {
		return fmt.Errorf("failed to record initial movement for unit %s: %w", unit.Sigla, err)
	}

	return nil
}

func startDescription(processType models.ProcessType) string {
	if processType == models.ProcessTypeRevisao {
		return "Processo de revisão do mapeamento de competências iniciado"
	}

	return "Processo de mapeamento de competências iniciado"
}
