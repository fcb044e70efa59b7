package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ti/internal/domain/entity"
	"github.com/jhoicas/inventario-ti/internal/infrastructure/sqlite"
	"github.com/jhoicas/inventario-ti/internal/infrastructure/storetest"
	"github.com/jhoicas/inventario-ti/pkg/logger"
)

func TestStore_Contrato(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store {
		s, err := sqlite.Open(context.Background(), ":memory:", logger.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestStore_PersisteEntreAperturas(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "inventario.db")

	s, err := sqlite.Open(ctx, path, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, &entity.Product{ID: "p-1", SKU: "NB", Name: "Notebook", TracksSerial: true}))
	_, err = s.Append(ctx, &entity.MovementEvent{
		ProductID: "p-1", Type: entity.MovementTypeEntry, SerialNumbers: []string{"SN-1"}, Actor: "admin",
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// reabrir aplica migraciones de nuevo sin error (ya están aplicadas)
	s, err = sqlite.Open(ctx, path, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.ReadByAsset(ctx, "SN-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p-1", got[0].ProductID)
	assert.NoError(t, s.Ping(ctx))
}
