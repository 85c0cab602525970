package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/persistence/memory"
	"github.com/sgcbr/sgcflow/pkg/workflow"
)

func TestRequireInState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	subprocess := &models.Subprocess{ID: 1, Situacao: models.SituacaoCadastroEmAndamento}

	t.Run("passes when current state is allowed", func(t *testing.T) {
		guard := workflow.RequireInState(models.SituacaoNaoIniciado, models.SituacaoCadastroEmAndamento)
		assert.NoError(t, guard(ctx, nil, subprocess))
	})

	t.Run("rejects with current and allowed states named", func(t *testing.T) {
		guard := workflow.RequireInState(models.SituacaoMapaValidado)

		err := guard(ctx, nil, subprocess)
		require.Error(t, err)
		assert.True(t, workflow.IsInvalidState(err))

		var stateErr *workflow.InvalidStateError
		require.True(t, errors.As(err, &stateErr))
		assert.Equal(t, models.SituacaoCadastroEmAndamento, stateErr.Current)
		assert.Equal(t, []models.Situacao{models.SituacaoMapaValidado}, stateErr.Allowed)
	})
}

func TestCadastreContentGuards(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	newMapFixture := func(t *testing.T) (*memory.Persistence, *models.Subprocess) {
		t.Helper()

		store := memory.NewPersistence()

		competencyMap := &models.CompetencyMap{SubprocessID: 1}
		require.NoError(t, store.Maps().Save(ctx, competencyMap))

		return store, &models.Subprocess{ID: 1, MapID: &competencyMap.ID}
	}

	t.Run("missing map fails every content guard", func(t *testing.T) {
		store := memory.NewPersistence()
		subprocess := &models.Subprocess{ID: 1}

		for _, guard := range []workflow.Guard{
			workflow.RequireMap(),
			workflow.RequireActivitiesExist(),
			workflow.RequireNoActivityWithoutKnowledge(),
			workflow.RequireAllCompetenciesLinked(),
			workflow.RequireAllActivitiesLinked(),
		} {
			err := guard(ctx, store, subprocess)
			assert.True(t, workflow.IsValidationFailed(err))
		}
	})

	t.Run("empty map has no activities", func(t *testing.T) {
		store, subprocess := newMapFixture(t)

		err := workflow.RequireActivitiesExist()(ctx, store, subprocess)
		assert.True(t, workflow.IsValidationFailed(err))
	})

	t.Run("knowledge guard lists exactly the offending activities", func(t *testing.T) {
		store, subprocess := newMapFixture(t)
		mapID := *subprocess.MapID

		store.PutActivity(models.Activity{ID: 1, MapID: mapID, Description: "instruir processos", Knowledge: []models.Knowledge{{ID: 1, ActivityID: 1, Description: "legislação"}}})
		store.PutActivity(models.Activity{ID: 2, MapID: mapID, Description: "atender o público"})
		store.PutActivity(models.Activity{ID: 3, MapID: mapID, Description: "elaborar relatórios"})

		err := workflow.RequireNoActivityWithoutKnowledge()(ctx, store, subprocess)
		require.Error(t, err)

		var validation *workflow.ValidationError
		require.True(t, errors.As(err, &validation))
		assert.ElementsMatch(t, []string{"atender o público", "elaborar relatórios"}, validation.Items)
	})

	t.Run("linkage guards check both directions", func(t *testing.T) {
		store, subprocess := newMapFixture(t)
		mapID := *subprocess.MapID

		store.PutActivity(models.Activity{ID: 1, MapID: mapID, Description: "instruir processos", CompetencyIDs: []int64{1}})
		store.PutActivity(models.Activity{ID: 2, MapID: mapID, Description: "atender o público"})
		store.PutCompetency(models.Competency{ID: 1, MapID: mapID, Description: "análise processual", ActivityIDs: []int64{1}})
		store.PutCompetency(models.Competency{ID: 2, MapID: mapID, Description: "comunicação"})

		err := workflow.RequireAllActivitiesLinked()(ctx, store, subprocess)
		var validation *workflow.ValidationError
		require.True(t, errors.As(err, &validation))
		assert.Equal(t, []string{"atender o público"}, validation.Items)

		err = workflow.RequireAllCompetenciesLinked()(ctx, store, subprocess)
		require.True(t, errors.As(err, &validation))
		assert.Equal(t, []string{"comunicação"}, validation.Items)
	})

	t.Run("fully linked map passes both directions", func(t *testing.T) {
		store, subprocess := newMapFixture(t)
		mapID := *subprocess.MapID

		store.PutActivity(models.Activity{ID: 1, MapID: mapID, Description: "instruir processos", CompetencyIDs: []int64{1}})
		store.PutCompetency(models.Competency{ID: 1, MapID: mapID, Description: "análise processual", ActivityIDs: []int64{1}})

		assert.NoError(t, workflow.RequireAllActivitiesLinked()(ctx, store, subprocess))
		assert.NoError(t, workflow.RequireAllCompetenciesLinked()(ctx, store, subprocess))
	})
}

func TestRequireCallerIsUnitHead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewPersistence()

	unit := &models.Unit{Code: 300, Sigla: "SECAO", Name: "Seção de Protocolo", TitularID: "T-300"}
	require.NoError(t, store.Units().Save(ctx, unit))

	subprocess := &models.Subprocess{ID: 1, UnitID: unit.ID}

	t.Run("head passes", func(t *testing.T) {
		guard := workflow.RequireCallerIsUnitHead(models.Caller{Title: "T-300"})
		assert.NoError(t, guard(ctx, store, subprocess))
	})

	t.Run("anyone else is denied", func(t *testing.T) {
		guard := workflow.RequireCallerIsUnitHead(models.Caller{Title: "T-999"})

		err := guard(ctx, store, subprocess)
		assert.True(t, workflow.IsAccessDenied(err))
	})
}
