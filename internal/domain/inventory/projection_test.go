package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ti/internal/domain"
	"github.com/jhoicas/inventario-ti/internal/domain/entity"
	"github.com/jhoicas/inventario-ti/internal/domain/inventory"
)

func TestReplay_Fungible(t *testing.T) {
	p := cable()
	movs := []entity.MovementEvent{
		fungible("1", entity.MovementTypeEntry, 0, 30),
		fungible("2", entity.MovementTypeAssignment, 1, 5),
		fungible("3", entity.MovementTypeStockOut, 2, 10),
		fungible("4", entity.MovementTypeReturn, 3, 2),
		fungible("5", entity.MovementTypeTransfer, 4, 3),
	}
	proj, err := inventory.Replay(p, movs, nil)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(17).Equal(proj.CurrentStock()), "30 - 5 - 10 + 2 = 17, got %s", proj.CurrentStock())
	assert.True(t, decimal.NewFromInt(3).Equal(proj.Assigned))
}

func TestReplay_FungibleSinStock(t *testing.T) {
	p := cable()
	_, err := inventory.Replay(p, []entity.MovementEvent{
		fungible("1", entity.MovementTypeEntry, 0, 3),
		fungible("2", entity.MovementTypeStockOut, 1, 4),
	}, nil)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = inventory.Replay(p, []entity.MovementEvent{
		fungible("1", entity.MovementTypeEntry, 0, 3),
		fungible("2", entity.MovementTypeReturn, 1, 1),
	}, nil)
	assert.ErrorIs(t, err, domain.ErrNotAllocated)

	_, err = inventory.Replay(p, []entity.MovementEvent{fungible("1", entity.MovementTypeEntry, 0, 0)}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReplay_SerialConReparacion(t *testing.T) {
	p := notebook()
	movs := []entity.MovementEvent{entry("e1", 0, "SN-001", "SN-002")}

	proj, err := inventory.Replay(p, movs, []entity.RepairEvent{repair("rep1", 5, nil, "SN-001")})
	require.NoError(t, err)
	assert.Equal(t, []string{"SN-002"}, proj.Pool.ListAvailable(p.ID))
	assert.True(t, decimal.NewFromInt(1).Equal(proj.CurrentStock()))

	proj, err = inventory.Replay(p, movs, []entity.RepairEvent{repair("rep1", 5, intp(9), "SN-001")})
	require.NoError(t, err)
	assert.Equal(t, []string{"SN-001", "SN-002"}, proj.Pool.ListAvailable(p.ID))
}

func TestReplay_DuplicadoEnUnMismoIngreso(t *testing.T) {
	_, err := inventory.Replay(notebook(), []entity.MovementEvent{entry("e1", 0, "SN-001", "SN-001")}, nil)
	assert.ErrorIs(t, err, domain.ErrDuplicateSerial)
}

func TestReplay_SalidaNoAplicaASeriales(t *testing.T) {
	out := entity.MovementEvent{ID: "s1", ProductID: notebookID, Type: entity.MovementTypeStockOut, Timestamp: at(1), SerialNumbers: []string{"SN-001"}}
	_, err := inventory.Replay(notebook(), []entity.MovementEvent{entry("e1", 0, "SN-001"), out}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReplay_IgnoraOtrosProductos(t *testing.T) {
	other := entry("x1", 0, "SN-999")
	other.ProductID = "otro"
	proj, err := inventory.Replay(notebook(), []entity.MovementEvent{other, entry("e1", 1, "SN-001")}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"SN-001"}, proj.Pool.ListAvailable(notebookID))
}

func TestStreamVersion(t *testing.T) {
	movs := []entity.MovementEvent{entry("e1", 0, "SN-001")}
	open := []entity.RepairEvent{repair("rep1", 5, nil, "SN-001")}
	closed := []entity.RepairEvent{repair("rep1", 5, intp(6), "SN-001")}

	assert.Equal(t, inventory.StreamVersion(movs, open), inventory.StreamVersion(movs, open))
	assert.NotEqual(t, inventory.StreamVersion(movs, open), inventory.StreamVersion(movs, closed))
}

func TestStreamVersion_RegresoTrasDeshacer(t *testing.T) {
	undone := append([]entity.MovementEvent{entry("e1", 0, "SN-001")}, entity.MovementEvent{
		ID: "rv1", ProductID: notebookID, Type: entity.MovementTypeReversal, Timestamp: at(7),
		SerialNumbers: []string{"SN-001"}, Reverts: inventory.RepairReturnKey("rep1"), Actor: "admin",
	})
	before := inventory.StreamVersion(undone, []entity.RepairEvent{repair("rep1", 5, intp(6), "SN-001")})
	after := inventory.StreamVersion(undone, []entity.RepairEvent{repair("rep1", 5, intp(8), "SN-001")})

	assert.NotEqual(t, before, after, "un segundo regreso de la misma reparación es una escritura nueva")
}
