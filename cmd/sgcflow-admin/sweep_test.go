package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sgcbr/sgcflow/pkg/mocks"
	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/notifier"
	"github.com/sgcbr/sgcflow/pkg/persistence/memory"
)

func TestSweep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	setup := func(t *testing.T) (*memory.Persistence, *models.Unit) {
		t.Helper()

		store := memory.NewPersistence()

		unit := &models.Unit{Code: 300, Sigla: "SECAO", Name: "Seção de Protocolo", TitularID: "T-300"}
		require.NoError(t, store.Units().Save(ctx, unit))

		return store, unit
	}

	t.Run("raises one alert per overdue subprocess", func(t *testing.T) {
		store, unit := setup(t)

		past := time.Now().UTC().Add(-48 * time.Hour)
		subprocess := &models.Subprocess{ProcessID: 1, UnitID: unit.ID, Situacao: models.SituacaoCadastroEmAndamento, PrazoEtapa1: &past}
		require.NoError(t, store.Subprocesses().Save(ctx, subprocess))

		client := &mocks.MockNotificationClient{}
		client.On("CreateAlert", mock.Anything, subprocess.ID, mock.MatchedBy(func(alert notifier.Alert) bool {
			return alert.UnitSigla == "SECAO"
		})).Return(nil)

		require.NoError(t, NewSweeper(store, client, slog.Default()).Sweep(ctx))
		client.AssertExpectations(t)
	})

	t.Run("nothing overdue means no alerts", func(t *testing.T) {
		store, unit := setup(t)

		future := time.Now().UTC().Add(48 * time.Hour)
		subprocess := &models.Subprocess{ProcessID: 1, UnitID: unit.ID, Situacao: models.SituacaoCadastroEmAndamento, PrazoEtapa1: &future}
		require.NoError(t, store.Subprocesses().Save(ctx, subprocess))

		client := &mocks.MockNotificationClient{}

		require.NoError(t, NewSweeper(store, client, slog.Default()).Sweep(ctx))
		client.AssertNotCalled(t, "CreateAlert", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("alert failure does not stop the scan", func(t *testing.T) {
		store, unit := setup(t)

		other := &models.Unit{Code: 301, Sigla: "SEPRO", Name: "Seção de Processos"}
		require.NoError(t, store.Units().Save(ctx, other))

		past := time.Now().UTC().Add(-48 * time.Hour)

		first := &models.Subprocess{ProcessID: 1, UnitID: unit.ID, Situacao: models.SituacaoCadastroEmAndamento, PrazoEtapa1: &past}
		require.NoError(t, store.Subprocesses().Save(ctx, first))

		second := &models.Subprocess{ProcessID: 1, UnitID: other.ID, Situacao: models.SituacaoMapaDisponibilizado, PrazoEtapa2: &past}
		require.NoError(t, store.Subprocesses().Save(ctx, second))

		client := &mocks.MockNotificationClient{}
		client.On("CreateAlert", mock.Anything, first.ID, mock.Anything).Return(assert.AnError)
		client.On("CreateAlert", mock.Anything, second.ID, mock.Anything).Return(nil)

		require.NoError(t, NewSweeper(store, client, slog.Default()).Sweep(ctx))
		client.AssertExpectations(t)
	})
}

func TestPendingDeadline(t *testing.T) {
	t.Parallel()

	etapa1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	etapa2 := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	done := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("open stage one wins", func(t *testing.T) {
		subprocess := &models.Subprocess{PrazoEtapa1: &etapa1, PrazoEtapa2: &etapa2}
		assert.True(t, etapa1.Equal(pendingDeadline(subprocess)))
	})

	t.Run("closed stage one falls through to stage two", func(t *testing.T) {
		subprocess := &models.Subprocess{PrazoEtapa1: &etapa1, DataFimEtapa1: &done, PrazoEtapa2: &etapa2}
		assert.True(t, etapa2.Equal(pendingDeadline(subprocess)))
	})

	t.Run("no open deadline is the zero time", func(t *testing.T) {
		assert.True(t, pendingDeadline(&models.Subprocess{}).IsZero())
	})
}
