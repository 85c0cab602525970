package workflow

import (
	"context"

	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/persistence"
)

// RegistrarAtividade records a cadastre activity with its knowledge items on
// behalf of the unit head. The subprocess's competency map is created on the
// first registration, so a freshly started subprocess becomes eligible for
// disponibilização as soon as its cadastre has content.
func (o *Orchestrator) RegistrarAtividade(
	ctx context.Context,
	subprocessID int64,
	caller models.Caller,
	descricao string,
	conhecimentos []string,
) (*models.Activity, error) {
	if descricao == "" {
		return nil, NewValidationError("activity description is required")
	}

	var activity *models.Activity

	err := o.persistence.WithTx(ctx, func(tx persistence.Tx) error {
		subprocess, err := tx.Subprocesses().GetForUpdate(ctx, subprocessID)
		if err != nil {
			return err
		}

		err = o.perms.Verify(ctx, tx, caller, ActionRegistrarAtividade, subprocess)
		if err != nil {
			return err
		}

		err = RequireInState(
			models.SituacaoCadastroEmAndamento,
			models.SituacaoRevisaoCadastroEmAndamento,
		)(ctx, tx, subprocess)
		if err != nil {
			return err
		}

		if subprocess.MapID == nil {
			err := attachMap()(ctx, tx, subprocess)
			if err != nil {
				return err
			}

			err = tx.Subprocesses().Save(ctx, subprocess)
			if err != nil {
				return err
			}
		}

		activity = &models.Activity{
			MapID:       *subprocess.MapID,
			Description: descricao,
		}
		for _, conhecimento := range conhecimentos {
			activity.Knowledge = append(activity.Knowledge, models.Knowledge{Description: conhecimento})
		}

		return tx.Maps().SaveActivity(ctx, activity)
	})
	if err != nil {
		return nil, err
	}

	o.logger.InfoContext(ctx, "Activity registered",
		"subprocess_id", subprocessID,
		"activity_id", activity.ID)

	return activity, nil
}

// RegistrarCompetencia records a competency on the drafted map, linked to the
// named activities, on behalf of the administrative unit. Both link directions
// are written so the publication guards see a consistent map.
func (o *Orchestrator) RegistrarCompetencia(
	ctx context.Context,
	subprocessID int64,
	caller models.Caller,
	descricao string,
	atividadeIDs []int64,
) (*models.Competency, error) {
	if descricao == "" {
		return nil, NewValidationError("competency description is required")
	}

	if len(atividadeIDs) == 0 {
		return nil, NewValidationError("a competency must be linked to at least one activity")
	}

	var competency *models.Competency

	err := o.persistence.WithTx(ctx, func(tx persistence.Tx) error {
		subprocess, err := tx.Subprocesses().GetForUpdate(ctx, subprocessID)
		if err != nil {
			return err
		}

		err = o.perms.Verify(ctx, tx, caller, ActionRegistrarCompetencia, subprocess)
		if err != nil {
			return err
		}

		err = RequireInState(
			models.SituacaoMapaCriado,
			models.SituacaoMapaAjustado,
			models.SituacaoRevisaoCadastroHomologada,
		)(ctx, tx, subprocess)
		if err != nil {
			return err
		}

		if subprocess.MapID == nil {
			return NewValidationError("subprocess has no competency map")
		}

		activities, err := tx.Maps().Activities(ctx, *subprocess.MapID)
		if err != nil {
			return err
		}

		byID := make(map[int64]*models.Activity, len(activities))
		for _, act := range activities {
			byID[act.ID] = act
		}

		linked := make([]*models.Activity, 0, len(atividadeIDs))

		for _, activityID := range atividadeIDs {
			act, ok := byID[activityID]
			if !ok {
				return NewValidationError("activity is not registered on this map")
			}

			linked = append(linked, act)
		}

		competency = &models.Competency{
			MapID:       *subprocess.MapID,
			Description: descricao,
			ActivityIDs: atividadeIDs,
		}

		err = tx.Maps().SaveCompetency(ctx, competency)
		if err != nil {
			return err
		}

		for _, act := range linked {
			act.CompetencyIDs = append(act.CompetencyIDs, competency.ID)

			err := tx.Maps().SaveActivity(ctx, act)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.InfoContext(ctx, "Competency registered",
		"subprocess_id", subprocessID,
		"competency_id", competency.ID)

	return competency, nil
}
