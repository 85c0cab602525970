package seed_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/persistence/memory"
	"github.com/sgcbr/sgcflow/pkg/seed"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("valid file", func(t *testing.T) {
		path := writeSeedFile(t, `{
			"process": {"type": "MAPEAMENTO", "description": "Ciclo 2026"},
			"prazo_etapa1": "2026-10-31T23:59:59Z",
			"units": [
				{"code": 100, "sigla": "SEDOC", "name": "Secretaria de Documentação", "titular_id": "T-100"},
				{"code": 200, "sigla": "COGEP", "name": "Coordenadoria de Gestão de Pessoas", "superior_sigla": "SEDOC"}
			]
		}`)

		file, err := seed.Load(path)
		require.NoError(t, err)

		assert.Equal(t, "MAPEAMENTO", file.Process.Type)
		require.NotNil(t, file.PrazoEtapa1)
		assert.Equal(t, 2026, file.PrazoEtapa1.Year())
		require.Len(t, file.Units, 2)
		assert.Equal(t, "SEDOC", file.Units[1].SuperiorSigla)
	})

	t.Run("unknown process type is rejected by the schema", func(t *testing.T) {
		path := writeSeedFile(t, `{
			"process": {"type": "AUDITORIA", "description": "x"},
			"units": [{"code": 1, "sigla": "A", "name": "A"}]
		}`)

		_, err := seed.Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})

	t.Run("empty unit list is rejected", func(t *testing.T) {
		path := writeSeedFile(t, `{
			"process": {"type": "MAPEAMENTO", "description": "x"},
			"units": []
		}`)

		_, err := seed.Load(path)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := seed.Load(filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
	})
}

func TestApply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	caller := models.Caller{Title: "T-ADMIN", Name: "Ana"}

	t.Run("creates process, hierarchy, and started subprocesses", func(t *testing.T) {
		store := memory.NewPersistence()
		prazo := time.Date(2026, 10, 31, 23, 59, 59, 0, time.UTC)

		file := &seed.File{
			Process:     seed.ProcessSeed{Type: "MAPEAMENTO", Description: "Ciclo 2026"},
			PrazoEtapa1: &prazo,
			Units: []seed.UnitSeed{
				{Code: 100, Sigla: "SEDOC", Name: "Secretaria de Documentação", TitularID: "T-100"},
				{Code: 200, Sigla: "COGEP", Name: "Coordenadoria de Gestão de Pessoas", SuperiorSigla: "SEDOC"},
			},
		}

		process, err := seed.NewApplier(store, slog.Default()).Apply(ctx, file, caller)
		require.NoError(t, err)
		require.NotZero(t, process.ID)

		sedoc, err := store.Units().BySigla(ctx, "SEDOC")
		require.NoError(t, err)
		assert.Nil(t, sedoc.SuperiorID)

		cogep, err := store.Units().BySigla(ctx, "COGEP")
		require.NoError(t, err)
		require.NotNil(t, cogep.SuperiorID)
		assert.Equal(t, sedoc.ID, *cogep.SuperiorID)

		subprocesses, err := store.Subprocesses().ByProcess(ctx, process.ID)
		require.NoError(t, err)
		require.Len(t, subprocesses, 2)

		for _, subprocess := range subprocesses {
			assert.Equal(t, models.SituacaoCadastroEmAndamento, subprocess.Situacao)
			require.NotNil(t, subprocess.PrazoEtapa1)
			assert.True(t, prazo.Equal(*subprocess.PrazoEtapa1))

			// The empty map is attached at birth so the unit can register
			// its cadastre right away.
			require.NotNil(t, subprocess.MapID)

			competencyMap, err := store.Maps().GetByID(ctx, *subprocess.MapID)
			require.NoError(t, err)
			assert.Equal(t, subprocess.ID, competencyMap.SubprocessID)

			movements, err := store.Movements().BySubprocess(ctx, subprocess.ID)
			require.NoError(t, err)
			require.Len(t, movements, 1)
			assert.Equal(t, subprocess.UnitID, movements[0].OriginUnitID)
			assert.Equal(t, subprocess.UnitID, movements[0].DestinationUnitID)
			assert.Equal(t, caller.Title, movements[0].CallerTitle)
		}
	})

	t.Run("revision subprocesses start on the revision track", func(t *testing.T) {
		store := memory.NewPersistence()

		file := &seed.File{
			Process: seed.ProcessSeed{Type: "REVISAO", Description: "Revisão 2026"},
			Units:   []seed.UnitSeed{{Code: 100, Sigla: "SEDOC", Name: "Secretaria de Documentação"}},
		}

		process, err := seed.NewApplier(store, slog.Default()).Apply(ctx, file, caller)
		require.NoError(t, err)

		subprocesses, err := store.Subprocesses().ByProcess(ctx, process.ID)
		require.NoError(t, err)
		require.Len(t, subprocesses, 1)
		assert.Equal(t, models.SituacaoRevisaoCadastroEmAndamento, subprocesses[0].Situacao)
	})

	t.Run("already registered units are reused", func(t *testing.T) {
		store := memory.NewPersistence()

		existing := &models.Unit{Code: 100, Sigla: "SEDOC", Name: "Secretaria de Documentação", TitularID: "T-100"}
		require.NoError(t, store.Units().Save(ctx, existing))

		file := &seed.File{
			Process: seed.ProcessSeed{Type: "MAPEAMENTO", Description: "Ciclo 2026"},
			Units:   []seed.UnitSeed{{Code: 100, Sigla: "SEDOC", Name: "Renamed"}},
		}

		_, err := seed.NewApplier(store, slog.Default()).Apply(ctx, file, caller)
		require.NoError(t, err)

		reloaded, err := store.Units().BySigla(ctx, "SEDOC")
		require.NoError(t, err)
		assert.Equal(t, existing.ID, reloaded.ID)
		assert.Equal(t, "Secretaria de Documentação", reloaded.Name)
	})

	t.Run("unknown superior rolls the whole seed back", func(t *testing.T) {
		store := memory.NewPersistence()

		file := &seed.File{
			Process: seed.ProcessSeed{Type: "MAPEAMENTO", Description: "Ciclo 2026"},
			Units:   []seed.UnitSeed{{Code: 100, Sigla: "SEAPO", Name: "Seção de Apoio", SuperiorSigla: "FANTASMA"}},
		}

		_, err := seed.NewApplier(store, slog.Default()).Apply(ctx, file, caller)
		require.Error(t, err)

		_, err = store.Units().BySigla(ctx, "SEAPO")
		require.Error(t, err, "no partial writes survive the failed seed")
	})
}
