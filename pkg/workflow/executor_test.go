package workflow_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sgcbr/sgcflow/pkg/events"
	"github.com/sgcbr/sgcflow/pkg/mocks"
	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/persistence"
	"github.com/sgcbr/sgcflow/pkg/persistence/memory"
	"github.com/sgcbr/sgcflow/pkg/registry"
	"github.com/sgcbr/sgcflow/pkg/workflow"
)

func newExecutorFixture(t *testing.T) (*memory.Persistence, *models.Subprocess, *models.Unit, *models.Unit) {
	t.Helper()

	ctx := context.Background()
	store := memory.NewPersistence()

	superior := &models.Unit{Code: 100, Sigla: "SEDOC", Name: "Secretaria de Documentação", TitularID: "T-100"}
	require.NoError(t, store.Units().Save(ctx, superior))

	owning := &models.Unit{Code: 200, Sigla: "COGEP", Name: "Coordenadoria de Gestão de Pessoas", TitularID: "T-200", SuperiorID: &superior.ID}
	require.NoError(t, store.Units().Save(ctx, owning))

	process := &models.Process{Type: models.ProcessTypeMapeamento, Description: "Mapeamento 2026"}
	require.NoError(t, store.Processes().Save(ctx, process))

	subprocess := &models.Subprocess{ProcessID: process.ID, UnitID: owning.ID, Situacao: models.SituacaoCadastroDisponibilizado}
	require.NoError(t, store.Subprocesses().Save(ctx, subprocess))

	return store, subprocess, owning, superior
}

func TestExecute(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	caller := models.Caller{Title: "T-100", Name: "Maria"}

	t.Run("applies state change, movement, and analysis atomically", func(t *testing.T) {
		store, subprocess, owning, superior := newExecutorFixture(t)

		dispatcher := &mocks.MockDispatcher{}
		dispatcher.On("Dispatch", mock.Anything, mock.AnythingOfType("*events.TransitionCompleted")).Return(nil)

		executor := workflow.NewExecutor(store, dispatcher, slog.Default())

		err := executor.Execute(ctx, workflow.Command{
			SubprocessID:  subprocess.ID,
			Type:          registry.TransitionCadastroDevolvido,
			Origin:        superior,
			Destination:   owning,
			Caller:        caller,
			AnalysisNotes: "faltam conhecimentos na atividade 3",
			Guards:        []workflow.Guard{workflow.RequireInState(models.SituacaoCadastroDisponibilizado)},
		})
		require.NoError(t, err)

		updated, err := store.Subprocesses().GetByID(ctx, subprocess.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SituacaoCadastroEmAndamento, updated.Situacao)

		movements, err := store.Movements().BySubprocess(ctx, subprocess.ID)
		require.NoError(t, err)
		require.Len(t, movements, 1)
		assert.Equal(t, superior.ID, movements[0].OriginUnitID)
		assert.Equal(t, owning.ID, movements[0].DestinationUnitID)
		assert.Equal(t, caller.Title, movements[0].CallerTitle)

		analyses, err := store.Analyses().BySubprocess(ctx, subprocess.ID)
		require.NoError(t, err)
		require.Len(t, analyses, 1)
		assert.Equal(t, models.AnalysisDevolucao, analyses[0].Action)
		assert.Equal(t, models.StageCadastro, analyses[0].Stage)
		assert.Equal(t, "faltam conhecimentos na atividade 3", analyses[0].Justification)

		// The analysis is recorded before the movement that carries it.
		assert.False(t, analyses[0].Date.After(movements[0].Date))

		dispatcher.AssertExpectations(t)

		event := dispatcher.Calls[0].Arguments.Get(1).(*events.TransitionCompleted)
		assert.Equal(t, subprocess.ID, event.SubprocessID)
		assert.Equal(t, models.SituacaoCadastroEmAndamento, event.Situacao)
		assert.Equal(t, superior.Sigla, event.Origin.Sigla)
		assert.Equal(t, owning.Sigla, event.Destination.Sigla)
	})

	t.Run("guard failure leaves every store untouched", func(t *testing.T) {
		store, subprocess, owning, superior := newExecutorFixture(t)

		dispatcher := &mocks.MockDispatcher{}
		executor := workflow.NewExecutor(store, dispatcher, slog.Default())

		err := executor.Execute(ctx, workflow.Command{
			SubprocessID: subprocess.ID,
			Type:         registry.TransitionCadastroDevolvido,
			Origin:       superior,
			Destination:  owning,
			Caller:       caller,
			Guards:       []workflow.Guard{workflow.RequireInState(models.SituacaoMapaValidado)},
		})
		require.Error(t, err)
		assert.True(t, workflow.IsInvalidState(err))

		unchanged, err := store.Subprocesses().GetByID(ctx, subprocess.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SituacaoCadastroDisponibilizado, unchanged.Situacao)

		movements, err := store.Movements().BySubprocess(ctx, subprocess.ID)
		require.NoError(t, err)
		assert.Empty(t, movements)

		analyses, err := store.Analyses().BySubprocess(ctx, subprocess.ID)
		require.NoError(t, err)
		assert.Empty(t, analyses)

		dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})

	t.Run("dispatch failure does not undo the transition", func(t *testing.T) {
		store, subprocess, owning, superior := newExecutorFixture(t)

		dispatcher := &mocks.MockDispatcher{}
		dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))

		executor := workflow.NewExecutor(store, dispatcher, slog.Default())

		err := executor.Execute(ctx, workflow.Command{
			SubprocessID: subprocess.ID,
			Type:         registry.TransitionCadastroAceito,
			Origin:       owning,
			Destination:  superior,
			Caller:       caller,
			Guards:       []workflow.Guard{workflow.RequireInState(models.SituacaoCadastroDisponibilizado)},
		})
		require.NoError(t, err)

		updated, err := store.Subprocesses().GetByID(ctx, subprocess.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SituacaoCadastroDisponibilizado, updated.Situacao)

		movements, err := store.Movements().BySubprocess(ctx, subprocess.ID)
		require.NoError(t, err)
		assert.Len(t, movements, 1)
	})

	t.Run("unknown transition is rejected before any write", func(t *testing.T) {
		store, subprocess, owning, superior := newExecutorFixture(t)

		executor := workflow.NewExecutor(store, &mocks.MockDispatcher{}, slog.Default())

		err := executor.Execute(ctx, workflow.Command{
			SubprocessID: subprocess.ID,
			Type:         registry.TransitionType("mapa.teletransportado"),
			Origin:       owning,
			Destination:  superior,
			Caller:       caller,
		})
		require.ErrorIs(t, err, registry.ErrUnknownTransition)
	})

	t.Run("missing unit pair violates the movement invariant", func(t *testing.T) {
		store, subprocess, owning, _ := newExecutorFixture(t)

		executor := workflow.NewExecutor(store, &mocks.MockDispatcher{}, slog.Default())

		err := executor.Execute(ctx, workflow.Command{
			SubprocessID: subprocess.ID,
			Type:         registry.TransitionCadastroAceito,
			Origin:       owning,
			Caller:       caller,
		})
		require.Error(t, err)
		assert.True(t, workflow.IsInvariantViolated(err))
	})

	t.Run("prepare mutations run inside the same transaction", func(t *testing.T) {
		store, subprocess, owning, superior := newExecutorFixture(t)

		boom := errors.New("mutation failed")
		executor := workflow.NewExecutor(store, &mocks.MockDispatcher{}, slog.Default())

		err := executor.Execute(ctx, workflow.Command{
			SubprocessID: subprocess.ID,
			Type:         registry.TransitionCadastroAceito,
			Origin:       owning,
			Destination:  superior,
			Caller:       caller,
			Prepare: []workflow.Mutation{
				func(context.Context, persistence.Tx, *models.Subprocess) error { return boom },
			},
		})
		require.ErrorIs(t, err, boom)

		movements, err := store.Movements().BySubprocess(ctx, subprocess.ID)
		require.NoError(t, err)
		assert.Empty(t, movements)
	})
}
