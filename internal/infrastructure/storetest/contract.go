// Package storetest contiene la batería de pruebas que debe pasar toda implementación
// del catálogo y del libro de eventos (memoria, SQLite, PostgreSQL).
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ti/internal/domain"
	"github.com/jhoicas/inventario-ti/internal/domain/entity"
	"github.com/jhoicas/inventario-ti/internal/domain/repository"
)

// Store lo que una implementación completa expone.
type Store interface {
	repository.ProductRepository
	repository.EventStore
	repository.CatalogTxRunner
}

// Factory crea un store vacío y aislado para cada subtest.
type Factory func(t *testing.T) Store

var base = time.Date(2025, 5, 2, 8, 30, 0, 0, time.UTC)

func at(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

func product(id, sku, name, category string, serial bool) *entity.Product {
	return &entity.Product{
		ID:               id,
		SKU:              sku,
		Name:             name,
		Description:      "desc " + name,
		CategoryPath:     category,
		TracksSerial:     serial,
		MinimumThreshold: decimal.NewFromInt(2),
		IdealStock:       decimal.RequireFromString("5.5"),
		CreatedAt:        base,
		UpdatedAt:        base,
	}
}

// Run ejecuta la batería completa contra la implementación que crea newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Catalogo", func(t *testing.T) { testCatalog(t, newStore) })
	t.Run("ListadoConFiltros", func(t *testing.T) { testList(t, newStore) })
	t.Run("TransaccionDeCatalogo", func(t *testing.T) { testCatalogTx(t, newStore) })
	t.Run("AgregarYLeerMovimientos", func(t *testing.T) { testMovements(t, newStore) })
	t.Run("Reparaciones", func(t *testing.T) { testRepairs(t, newStore) })
}

// ── Catálogo ─────────────────────────────────────────────────────────────────

func testCatalog(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	p := product("p-1", "NB-14", "Notebook", "Computadoras/Notebooks", true)
	require.NoError(t, s.Create(ctx, p))

	t.Run("DuplicadoPorSKU", func(t *testing.T) {
		err := s.Create(ctx, product("p-2", "nb-14", "Otro", "", false))
		assert.True(t, errors.Is(err, domain.ErrDuplicate), "got %v", err)
	})

	t.Run("LecturaPorIDyPorSKU", func(t *testing.T) {
		got, err := s.GetProduct(ctx, "p-1")
		require.NoError(t, err)
		assertProduct(t, p, got)

		bySKU, err := s.GetBySKU(ctx, "nb-14")
		require.NoError(t, err)
		assert.Equal(t, "p-1", bySKU.ID)
	})

	t.Run("NoEncontrado", func(t *testing.T) {
		_, err := s.GetProduct(ctx, "nada")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		_, err = s.GetBySKU(ctx, "NADA")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("UpdateConservaSKUySerial", func(t *testing.T) {
		upd := *p
		upd.Name = "Notebook 14"
		upd.SKU = "CAMBIADO"
		upd.TracksSerial = false
		upd.MinimumThreshold = decimal.NewFromInt(3)
		upd.UpdatedAt = at(60)
		require.NoError(t, s.Update(ctx, &upd))

		got, err := s.GetProduct(ctx, "p-1")
		require.NoError(t, err)
		assert.Equal(t, "Notebook 14", got.Name)
		assert.Equal(t, "NB-14", got.SKU)
		assert.True(t, got.TracksSerial)
		assert.True(t, got.MinimumThreshold.Equal(decimal.NewFromInt(3)))
		assert.True(t, got.UpdatedAt.Equal(at(60)))
	})

	t.Run("UpdateInexistente", func(t *testing.T) {
		err := s.Update(ctx, product("zz", "ZZ", "Z", "", false))
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("DevuelveCopias", func(t *testing.T) {
		got, err := s.GetProduct(ctx, "p-1")
		require.NoError(t, err)
		got.Name = "mutado"
		again, err := s.GetProduct(ctx, "p-1")
		require.NoError(t, err)
		assert.NotEqual(t, "mutado", again.Name)
	})
}

func testList(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Create(ctx, product("p-a", "A-1", "Alfa", "Computadoras/Notebooks", true)))
	require.NoError(t, s.Create(ctx, product("p-b", "B-1", "Beta", "Computadoras", true)))
	require.NoError(t, s.Create(ctx, product("p-c", "C-1", "Cable", "Accesorios/Cables", false)))
	require.NoError(t, s.Create(ctx, product("p-d", "D-1", "Delta", "ComputadorasViejas", false)))

	ids := func(list []*entity.Product) []string {
		out := make([]string, 0, len(list))
		for _, p := range list {
			out = append(out, p.ID)
		}
		return out
	}

	all, err := s.ListProducts(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-a", "p-b", "p-c", "p-d"}, ids(all))

	byCat, err := s.ListProducts(ctx, repository.ProductFilter{CategoryPrefix: "Computadoras"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-a", "p-b"}, ids(byCat), "el prefijo compara por segmentos")

	serial := false
	fungibles, err := s.ListProducts(ctx, repository.ProductFilter{TracksSerial: &serial})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-c", "p-d"}, ids(fungibles))

	search, err := s.ListProducts(ctx, repository.ProductFilter{Search: "c-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-c"}, ids(search))

	page, err := s.ListProducts(ctx, repository.ProductFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-b", "p-c"}, ids(page))

	empty, err := s.ListProducts(ctx, repository.ProductFilter{Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testCatalogTx(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	boom := errors.New("boom")
	err := s.RunCatalog(ctx, func(repo repository.ProductRepository) error {
		if err := repo.Create(ctx, product("p-x", "X-1", "X", "", false)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	_, err = s.GetProduct(ctx, "p-x")
	assert.True(t, errors.Is(err, domain.ErrNotFound), "el rollback descarta la escritura")

	err = s.RunCatalog(ctx, func(repo repository.ProductRepository) error {
		return repo.Create(ctx, product("p-y", "Y-1", "Y", "", false))
	})
	require.NoError(t, err)
	_, err = s.GetProduct(ctx, "p-y")
	assert.NoError(t, err)
}

// ── Libro de eventos ─────────────────────────────────────────────────────────

func testMovements(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Create(ctx, product("nb", "NB", "Notebook", "", true)))
	require.NoError(t, s.Create(ctx, product("cab", "CAB", "Cable", "", false)))

	entry := &entity.MovementEvent{
		ProductID: "nb", Type: entity.MovementTypeEntry, Timestamp: at(0),
		Quantity: decimal.NewFromInt(2), SerialNumbers: []string{"SN-1", "SN-2"},
		Actor: "admin", Location: "Bodega", Notes: "compra",
	}
	id, err := s.Append(ctx, entry)
	require.NoError(t, err)
	assert.NotEmpty(t, id, "sin ID el store genera uno")
	assert.Equal(t, id, entry.ID)

	assign := &entity.MovementEvent{
		ID: "ev-b", ProductID: "nb", Type: entity.MovementTypeAssignment, Timestamp: at(10),
		Quantity: decimal.NewFromInt(1), SerialNumbers: []string{"SN-1"}, Actor: "admin",
		Destination: &entity.Destination{Kind: entity.DestinationPerson, ID: "u-1", Name: "Ana", Location: "Piso 2"},
	}
	// mismo timestamp que assign: desempata el ID
	tie := &entity.MovementEvent{
		ID: "ev-a", ProductID: "nb", Type: entity.MovementTypeTransfer, Timestamp: at(10),
		Quantity: decimal.NewFromInt(1), SerialNumbers: []string{"SN-2"}, Actor: "admin", Location: "Sucursal",
	}
	rev := &entity.MovementEvent{
		ID: "ev-c", ProductID: "nb", Type: entity.MovementTypeReversal, Timestamp: at(5),
		Quantity: decimal.NewFromInt(1), SerialNumbers: []string{"SN-1"}, Actor: "ana", Reverts: "m-xyz",
	}
	fungible := &entity.MovementEvent{
		ID: "ev-f", ProductID: "cab", Type: entity.MovementTypeEntry, Timestamp: at(1),
		Quantity: decimal.RequireFromString("12.5"), Actor: "admin",
	}
	for _, ev := range []*entity.MovementEvent{assign, tie, rev, fungible} {
		got, err := s.Append(ctx, ev)
		require.NoError(t, err)
		assert.Equal(t, ev.ID, got, "conserva el ID dado")
	}

	t.Run("ProductoInexistente", func(t *testing.T) {
		_, err := s.Append(ctx, &entity.MovementEvent{ProductID: "nada", Type: entity.MovementTypeEntry, Timestamp: at(0), Actor: "x"})
		assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
	})

	t.Run("IDDuplicado", func(t *testing.T) {
		dup := *fungible
		_, err := s.Append(ctx, &dup)
		assert.True(t, errors.Is(err, domain.ErrDuplicate), "got %v", err)
	})

	t.Run("PorProductoOrdenado", func(t *testing.T) {
		got, err := s.ReadByProduct(ctx, "nb")
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, []string{entry.ID, "ev-c", "ev-a", "ev-b"}, movementIDs(got))

		assertMovement(t, entry, &got[0])
		assertMovement(t, rev, &got[1])
		assertMovement(t, assign, &got[3])
	})

	t.Run("PorSerial", func(t *testing.T) {
		got, err := s.ReadByAsset(ctx, "SN-1")
		require.NoError(t, err)
		assert.Equal(t, []string{entry.ID, "ev-c", "ev-b"}, movementIDs(got))

		none, err := s.ReadByAsset(ctx, "SN-404")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Fungible", func(t *testing.T) {
		got, err := s.ReadByProduct(ctx, "cab")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].Quantity.Equal(decimal.RequireFromString("12.5")))
		assert.Empty(t, got[0].SerialNumbers)
		assert.Nil(t, got[0].Destination)
	})

	t.Run("DevuelveCopias", func(t *testing.T) {
		got, err := s.ReadByProduct(ctx, "nb")
		require.NoError(t, err)
		got[0].SerialNumbers[0] = "mutado"
		again, err := s.ReadByProduct(ctx, "nb")
		require.NoError(t, err)
		assert.Equal(t, "SN-1", again[0].SerialNumbers[0])
	})
}

func testRepairs(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Create(ctx, product("nb", "NB", "Notebook", "", true)))
	require.NoError(t, s.Create(ctx, product("tel", "TEL", "Teléfono", "", true)))

	r1 := &entity.RepairEvent{
		ID: "rep-1", ProductID: "nb", AssetSerialNumber: "SN-1", SentDate: at(20),
		Provider: "ServiTec", Problem: "pantalla", Actor: "admin",
	}
	r0 := &entity.RepairEvent{
		ProductID: "nb", AssetSerialNumber: "SN-2", SentDate: at(10),
		Provider: "ServiTec", Problem: "batería", Actor: "admin",
	}
	r2 := &entity.RepairEvent{
		ID: "rep-2", ProductID: "tel", AssetSerialNumber: "SN-1", SentDate: at(30),
		Provider: "CellFix", Actor: "admin",
	}
	for _, r := range []*entity.RepairEvent{r1, r0, r2} {
		id, err := s.AppendRepair(ctx, r)
		require.NoError(t, err)
		assert.Equal(t, r.ID, id)
	}

	t.Run("PorProducto", func(t *testing.T) {
		got, err := s.ReadRepairs(ctx, repository.RepairFilter{ProductID: "nb"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, r0.ID, got[0].ID, "ordenadas por fecha de envío")
		assert.Equal(t, "rep-1", got[1].ID)
		assert.True(t, got[1].IsOpen())
		assert.Equal(t, "pantalla", got[1].Problem)
	})

	t.Run("PorSerial", func(t *testing.T) {
		got, err := s.ReadRepairs(ctx, repository.RepairFilter{Serial: "SN-1"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "rep-1", got[0].ID)
		assert.Equal(t, "rep-2", got[1].ID)

		none, err := s.ReadRepairs(ctx, repository.RepairFilter{})
		require.NoError(t, err)
		assert.Empty(t, none, "sin filtro no devuelve nada")
	})

	t.Run("RegresoMasRecienteGana", func(t *testing.T) {
		require.NoError(t, s.AppendRepairReturn(ctx, "rep-1", at(40), "pantalla nueva", "tec-1"))
		got, err := s.GetRepair(ctx, "rep-1")
		require.NoError(t, err)
		require.NotNil(t, got.ReturnDate)
		assert.True(t, got.ReturnDate.Equal(at(40)))

		require.NoError(t, s.AppendRepairReturn(ctx, "rep-1", at(90), "segunda revisión", "tec-2"))
		got, err = s.GetRepair(ctx, "rep-1")
		require.NoError(t, err)
		require.NotNil(t, got.ReturnDate)
		require.NotNil(t, got.Resolution)
		assert.True(t, got.ReturnDate.Equal(at(90)))
		assert.Equal(t, "segunda revisión", *got.Resolution)
		assert.Equal(t, "tec-2", got.ReturnActor)

		list, err := s.ReadRepairs(ctx, repository.RepairFilter{ProductID: "nb"})
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.NotNil(t, list[1].ReturnDate)
		assert.True(t, list[1].ReturnDate.Equal(at(90)))
		assert.True(t, list[0].IsOpen())
	})

	t.Run("RegresoDeReparacionInexistente", func(t *testing.T) {
		err := s.AppendRepairReturn(ctx, "rep-404", at(50), "x", "y")
		assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
		_, err = s.GetRepair(ctx, "rep-404")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("ProductoInexistente", func(t *testing.T) {
		_, err := s.AppendRepair(ctx, &entity.RepairEvent{ProductID: "nada", AssetSerialNumber: "X", SentDate: at(0), Provider: "p", Actor: "a"})
		assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
	})
}

// ── Utilidades ───────────────────────────────────────────────────────────────

func movementIDs(list []entity.MovementEvent) []string {
	out := make([]string, 0, len(list))
	for _, m := range list {
		out = append(out, m.ID)
	}
	return out
}

func assertProduct(t *testing.T, want, got *entity.Product) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.SKU, got.SKU)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.CategoryPath, got.CategoryPath)
	assert.Equal(t, want.TracksSerial, got.TracksSerial)
	assert.True(t, want.MinimumThreshold.Equal(got.MinimumThreshold))
	assert.True(t, want.IdealStock.Equal(got.IdealStock), "ideal %s", got.IdealStock)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

func assertMovement(t *testing.T, want, got *entity.MovementEvent) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.ProductID, got.ProductID)
	assert.Equal(t, want.Type, got.Type)
	assert.True(t, want.Timestamp.Equal(got.Timestamp), "timestamp %s", got.Timestamp)
	assert.True(t, want.Quantity.Equal(got.Quantity), "quantity %s", got.Quantity)
	assert.Equal(t, want.SerialNumbers, got.SerialNumbers)
	assert.Equal(t, want.Actor, got.Actor)
	assert.Equal(t, want.Location, got.Location)
	assert.Equal(t, want.Notes, got.Notes)
	assert.Equal(t, want.Reverts, got.Reverts)
	if want.Destination == nil {
		assert.Nil(t, got.Destination)
	} else {
		require.NotNil(t, got.Destination)
		assert.Equal(t, *want.Destination, *got.Destination)
	}
}
