package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ti/internal/application/inventory"
	"github.com/jhoicas/inventario-ti/internal/domain"
	"github.com/jhoicas/inventario-ti/internal/domain/entity"
	"github.com/jhoicas/inventario-ti/internal/infrastructure/lock"
	"github.com/jhoicas/inventario-ti/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-ti/pkg/logger"
	"github.com/jhoicas/inventario-ti/pkg/undo"
)

var t0 = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

// countingMetrics registra las observaciones para verificarlas.
type countingMetrics struct {
	mu       sync.Mutex
	hits     int
	misses   int
	outcomes map[string]int
	undos    map[string]int
	lowStock map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{outcomes: map[string]int{}, undos: map[string]int{}, lowStock: map[string]int{}}
}

func (m *countingMetrics) ObserveCommand(command, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[command+":"+outcome]++
}

func (m *countingMetrics) ObserveUndo(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undos[event]++
}

func (m *countingMetrics) ObserveCache(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func (m *countingMetrics) SetLowStock(class string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lowStock[class] = n
}

type fixture struct {
	uc      *inventory.UseCase
	store   *memory.Store
	metrics *countingMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Create(ctx, &entity.Product{
		ID: "nb", SKU: "NB-14", Name: "Notebook 14", CategoryPath: "Computadoras/Notebooks",
		TracksSerial: true, MinimumThreshold: decimal.NewFromInt(2), IdealStock: decimal.NewFromInt(5),
	}))
	require.NoError(t, store.Create(ctx, &entity.Product{
		ID: "cab", SKU: "CAB-HDMI", Name: "Cable HDMI", CategoryPath: "Accesorios/Cables",
		MinimumThreshold: decimal.NewFromInt(10), IdealStock: decimal.NewFromInt(20),
	}))
	m := newCountingMetrics()
	coordinator := undo.New(10 * time.Second)
	uc := inventory.NewUseCase(store, store, lock.NewKeyedMutex(), coordinator, logger.Nop(),
		inventory.WithMetrics(m),
		inventory.WithClock(func() time.Time { return t0 }),
		inventory.WithCacheSize(16),
		inventory.WithReportConcurrency(2),
	)
	return &fixture{uc: uc, store: store, metrics: m}
}

func ana() *entity.Destination {
	return &entity.Destination{Kind: entity.DestinationPerson, ID: "u-ana", Name: "Ana", Location: "Piso 3"}
}

func (f *fixture) entry(t *testing.T, serials ...string) *inventory.CommandResult {
	t.Helper()
	res, err := f.uc.RegisterEntry(context.Background(), inventory.MovementInput{
		Actor: "admin", ProductID: "nb", SerialNumbers: serials, Location: "Bodega Central",
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) assign(t *testing.T, serial string) (*inventory.CommandResult, error) {
	t.Helper()
	return f.uc.Assign(context.Background(), inventory.MovementInput{
		Actor: "admin", ProductID: "nb", SerialNumbers: []string{serial}, Destination: ana(),
	})
}

// ── Ciclo de vida de un activo ───────────────────────────────────────────────

func TestUseCase_CicloDeVidaDeUnActivo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.entry(t, "SN-001", "SN-002")
	_, err := f.assign(t, "SN-001")
	require.NoError(t, err)

	status, err := f.uc.AssetStatus(ctx, "nb", "SN-001")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAssigned, status.Status)
	require.NotNil(t, status.Holder)
	assert.Equal(t, "Ana", status.Holder.Name)
	assert.Equal(t, "Piso 3", status.Location)

	avail, err := f.uc.AvailableSerials(ctx, "nb")
	require.NoError(t, err)
	assert.Equal(t, []string{"SN-002"}, avail)

	_, err = f.uc.SendToRepair(ctx, inventory.RepairInput{Actor: "admin", ProductID: "nb", Serial: "SN-001", Provider: "ServiTec"})
	assert.True(t, errors.Is(err, domain.ErrAlreadyAllocated), "un activo asignado no va a reparación: %v", err)

	_, err = f.uc.Return(ctx, inventory.MovementInput{Actor: "admin", ProductID: "nb", SerialNumbers: []string{"SN-001"}, Location: "Bodega Central"})
	require.NoError(t, err)

	sent, err := f.uc.SendToRepair(ctx, inventory.RepairInput{Actor: "admin", ProductID: "nb", Serial: "SN-001", Provider: "ServiTec", Problem: "teclado"})
	require.NoError(t, err)
	status, err = f.uc.AssetStatus(ctx, "nb", "SN-001")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInRepair, status.Status)
	assert.Equal(t, "ServiTec", status.Location)

	_, err = f.uc.ReturnFromRepair(ctx, inventory.RepairReturnInput{Actor: "tecnico", RepairID: sent.EventID, Resolution: "teclado nuevo"})
	require.NoError(t, err)
	status, err = f.uc.AssetStatus(ctx, "nb", "SN-001")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInStock, status.Status)

	history, err := f.uc.AssetHistory(ctx, "nb", "SN-001", 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, entity.HistoryRepairReturn, history[0].Kind)
	assert.Equal(t, entity.HistoryRepairSent, history[1].Kind)
	assert.Equal(t, entity.MovementTypeReturn, history[2].Type)
	assert.Equal(t, entity.MovementTypeAssignment, history[3].Type)
	assert.Equal(t, entity.MovementTypeEntry, history[4].Type)

	page, err := f.uc.AssetHistory(ctx, "nb", "SN-001", 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, history[1].Key, page[0].Key)
}

func TestUseCase_AsignarSerialYaAsignado(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.entry(t, "SN-001")
	_, err := f.assign(t, "SN-001")
	require.NoError(t, err)

	_, err = f.assign(t, "SN-001")
	assert.True(t, errors.Is(err, domain.ErrAlreadyAllocated), "got %v", err)

	movs, err := f.store.ReadByProduct(ctx, "nb")
	require.NoError(t, err)
	assert.Len(t, movs, 2, "un comando rechazado no escribe")
	assert.Equal(t, 1, f.metrics.outcomes[inventory.CmdAssign+":"+inventory.OutcomeRejected])
}

func TestUseCase_ValidacionDeEntrada(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cases := []struct {
		name string
		run  func() error
		want error
	}{
		{"sin actor", func() error {
			_, err := f.uc.RegisterEntry(ctx, inventory.MovementInput{ProductID: "nb", SerialNumbers: []string{"X"}})
			return err
		}, domain.ErrInvalidInput},
		{"producto inexistente", func() error {
			_, err := f.uc.RegisterEntry(ctx, inventory.MovementInput{Actor: "a", ProductID: "nada", SerialNumbers: []string{"X"}})
			return err
		}, domain.ErrNotFound},
		{"serial requerido", func() error {
			_, err := f.uc.RegisterEntry(ctx, inventory.MovementInput{Actor: "a", ProductID: "nb", Quantity: decimal.NewFromInt(1)})
			return err
		}, domain.ErrInvalidInput},
		{"fungible con seriales", func() error {
			_, err := f.uc.RegisterEntry(ctx, inventory.MovementInput{Actor: "a", ProductID: "cab", SerialNumbers: []string{"X"}})
			return err
		}, domain.ErrInvalidInput},
		{"consumo de producto con serial", func() error {
			_, err := f.uc.StockOut(ctx, inventory.MovementInput{Actor: "a", ProductID: "nb", SerialNumbers: []string{"X"}})
			return err
		}, domain.ErrInvalidInput},
		{"baja de fungible", func() error {
			_, err := f.uc.Decommission(ctx, inventory.MovementInput{Actor: "a", ProductID: "cab", Quantity: decimal.NewFromInt(1)})
			return err
		}, domain.ErrInvalidInput},
		{"asignación sin destino", func() error {
			_, err := f.uc.Assign(ctx, inventory.MovementInput{Actor: "a", ProductID: "nb", SerialNumbers: []string{"X"}})
			return err
		}, domain.ErrInvalidInput},
		{"traslado sin ubicación", func() error {
			_, err := f.uc.Transfer(ctx, inventory.MovementInput{Actor: "a", ProductID: "cab", Quantity: decimal.NewFromInt(1)})
			return err
		}, domain.ErrInvalidInput},
		{"serial duplicado", func() error {
			_, err := f.uc.RegisterEntry(ctx, inventory.MovementInput{Actor: "a", ProductID: "nb", SerialNumbers: []string{"D", "D"}})
			return err
		}, domain.ErrDuplicateSerial},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			assert.True(t, errors.Is(err, tc.want), "want %v, got %v", tc.want, err)
		})
	}
}

// ── Fungibles y umbrales ─────────────────────────────────────────────────────

func TestUseCase_Fungibles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	in := func(qty int64) inventory.MovementInput {
		return inventory.MovementInput{Actor: "admin", ProductID: "cab", Quantity: decimal.NewFromInt(qty)}
	}

	_, err := f.uc.RegisterEntry(ctx, in(15))
	require.NoError(t, err)

	_, err = f.uc.StockOut(ctx, in(20))
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock), "got %v", err)

	_, err = f.uc.StockOut(ctx, in(7))
	require.NoError(t, err)
	level, err := f.uc.StockLevel(ctx, "cab")
	require.NoError(t, err)
	assert.True(t, level.CurrentStock.Equal(decimal.NewFromInt(8)))
	assert.Equal(t, entity.StockWarning, level.Classification)

	assignment := in(5)
	assignment.Destination = &entity.Destination{Kind: entity.DestinationDepartment, ID: "dep-ti", Name: "TI"}
	_, err = f.uc.Assign(ctx, assignment)
	require.NoError(t, err)
	level, err = f.uc.StockLevel(ctx, "cab")
	require.NoError(t, err)
	assert.True(t, level.CurrentStock.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, entity.StockCritical, level.Classification)
	assert.True(t, level.SuggestedOrder.Equal(decimal.NewFromInt(17)))

	_, err = f.uc.Return(ctx, in(6))
	assert.True(t, errors.Is(err, domain.ErrNotAllocated), "solo vuelve lo asignado: %v", err)

	_, err = f.uc.ProductStatus(ctx, "cab")
	assert.NoError(t, err)
	_, err = f.uc.ProductStatus(ctx, "nb")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	history, err := f.uc.ProductHistory(ctx, "cab", 0, 0)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestUseCase_EstadoFungibleConDevolucionParcial(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	in := func(qty int64) inventory.MovementInput {
		return inventory.MovementInput{Actor: "admin", ProductID: "cab", Quantity: decimal.NewFromInt(qty)}
	}
	_, err := f.uc.RegisterEntry(ctx, in(10))
	require.NoError(t, err)
	assignment := in(5)
	assignment.Destination = &entity.Destination{Kind: entity.DestinationDepartment, ID: "dep-ti", Name: "TI"}
	_, err = f.uc.Assign(ctx, assignment)
	require.NoError(t, err)

	_, err = f.uc.Return(ctx, in(2))
	require.NoError(t, err)
	status, err := f.uc.ProductStatus(ctx, "cab")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAssigned, status.Status, "quedan 3 cables en TI")
	require.NotNil(t, status.Holder)
	assert.Equal(t, "dep-ti", status.Holder.ID)

	_, err = f.uc.Return(ctx, in(3))
	require.NoError(t, err)
	status, err = f.uc.ProductStatus(ctx, "cab")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInStock, status.Status)
}

func TestUseCase_ReporteDeStockBajo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.entry(t, "SN-1")
	_, err := f.uc.RegisterEntry(ctx, inventory.MovementInput{Actor: "admin", ProductID: "cab", Quantity: decimal.NewFromInt(3)})
	require.NoError(t, err)

	report, err := f.uc.LowStockReport(ctx, inventory.LowStockFilter{})
	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.Equal(t, "cab", report[0].ProductID, "primero los críticos")
	assert.Equal(t, entity.StockCritical, report[0].Classification)
	assert.Equal(t, "nb", report[1].ProductID)
	assert.Equal(t, entity.StockWarning, report[1].Classification)
	assert.Equal(t, 1, f.metrics.lowStock[entity.StockCritical])
	assert.Equal(t, 1, f.metrics.lowStock[entity.StockWarning])

	filtered, err := f.uc.LowStockReport(ctx, inventory.LowStockFilter{CategoryPrefix: "Computadoras"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "nb", filtered[0].ProductID)

	list, err := f.uc.ReplenishmentList(ctx, inventory.LowStockFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].Priority)
	assert.True(t, list[0].SuggestedOrder.Equal(decimal.NewFromInt(17)))
	assert.Equal(t, 2, list[1].Priority)
	assert.True(t, list[1].SuggestedOrder.Equal(decimal.NewFromInt(4)))
}

func TestUseCase_CacheDeVistas(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.entry(t, "SN-1")

	_, err := f.uc.StockLevel(ctx, "nb")
	require.NoError(t, err)
	_, err = f.uc.StockLevel(ctx, "nb")
	require.NoError(t, err)
	assert.Equal(t, 1, f.metrics.misses)
	assert.Equal(t, 1, f.metrics.hits)

	f.entry(t, "SN-2")
	level, err := f.uc.StockLevel(ctx, "nb")
	require.NoError(t, err)
	assert.Equal(t, 2, f.metrics.misses, "un comando invalida la vista")
	assert.True(t, level.CurrentStock.Equal(decimal.NewFromInt(2)))

	// escritura directa al libro (otra réplica): la versión cambia aunque el cache no se entere
	_, err = f.store.Append(ctx, &entity.MovementEvent{
		ProductID: "nb", Type: entity.MovementTypeEntry, Timestamp: t0.Add(time.Hour),
		SerialNumbers: []string{"SN-3"}, Actor: "otro",
	})
	require.NoError(t, err)
	level, err = f.uc.StockLevel(ctx, "nb")
	require.NoError(t, err)
	assert.True(t, level.CurrentStock.Equal(decimal.NewFromInt(3)))
}

// ── Deshacer ─────────────────────────────────────────────────────────────────

func TestUseCase_DeshacerAsignacion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.entry(t, "SN-001")
	res, err := f.assign(t, "SN-001")
	require.NoError(t, err)

	pending, ok := f.uc.PendingAction()
	require.True(t, ok)
	assert.Equal(t, res.Undo.ID, pending.ID)
	assert.Equal(t, "Asignación de serial SN-001 a Ana", pending.Description)

	require.NoError(t, f.uc.Undo(inventory.WithActor(ctx, "ana.supervisora")))

	status, err := f.uc.AssetStatus(ctx, "nb", "SN-001")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInStock, status.Status)
	avail, err := f.uc.AvailableSerials(ctx, "nb")
	require.NoError(t, err)
	assert.Equal(t, []string{"SN-001"}, avail)

	movs, err := f.store.ReadByProduct(ctx, "nb")
	require.NoError(t, err)
	require.Len(t, movs, 3, "deshacer agrega un REVERSAL, no borra")
	last := movs[2]
	assert.Equal(t, entity.MovementTypeReversal, last.Type)
	assert.Equal(t, res.Key, last.Reverts)
	assert.Equal(t, "ana.supervisora", last.Actor)
	assert.Equal(t, []string{"SN-001"}, last.SerialNumbers)

	history, err := f.uc.AssetHistory(ctx, "nb", "SN-001", 0, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1, "el hecho revertido y su REVERSAL no aparecen")

	err = f.uc.Undo(ctx)
	assert.ErrorIs(t, err, undo.ErrNothingToUndo)
	assert.Equal(t, 1, f.metrics.undos["undone"])
	assert.Equal(t, 1, f.metrics.undos["nothing"])
}

func TestUseCase_DeshacerAccionReemplazada(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.entry(t, "SN-001")
	_, err := f.assign(t, "SN-001")
	require.NoError(t, err)

	err = f.uc.UndoAction(ctx, first.Undo.ID)
	assert.ErrorIs(t, err, undo.ErrExpiredAction)
	assert.Equal(t, 1, f.metrics.undos["expired"])
}

func TestUseCase_DeshacerRechazadoSiRompeElHistorial(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.entry(t, "SN-001")

	// otra réplica asigna el serial sin pasar por este coordinador
	_, err := f.store.Append(ctx, &entity.MovementEvent{
		ProductID: "nb", Type: entity.MovementTypeAssignment, Timestamp: t0.Add(time.Minute),
		SerialNumbers: []string{"SN-001"}, Actor: "otro", Destination: ana(),
	})
	require.NoError(t, err)

	err = f.uc.Undo(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "sin el ingreso la asignación no tiene serial: %v", err)

	movs, err := f.store.ReadByProduct(ctx, "nb")
	require.NoError(t, err)
	assert.Len(t, movs, 2, "no se escribe el REVERSAL")
	status, err := f.uc.AssetStatus(ctx, "nb", "SN-001")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAssigned, status.Status)
	assert.Equal(t, 1, f.metrics.undos["failed"])
}

func TestUseCase_DeshacerRegresoDeReparacionYVolverARegistrarlo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.entry(t, "SN-001")
	sent, err := f.uc.SendToRepair(ctx, inventory.RepairInput{Actor: "admin", ProductID: "nb", Serial: "SN-001", Provider: "ServiTec"})
	require.NoError(t, err)
	back, err := f.uc.ReturnFromRepair(ctx, inventory.RepairReturnInput{Actor: "admin", RepairID: sent.EventID, Resolution: "ok"})
	require.NoError(t, err)
	assert.Equal(t, "r-return-"+sent.EventID, back.Key)

	require.NoError(t, f.uc.Undo(ctx))
	status, err := f.uc.AssetStatus(ctx, "nb", "SN-001")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInRepair, status.Status, "la reparación vuelve a estar abierta")

	_, err = f.uc.ReturnFromRepair(ctx, inventory.RepairReturnInput{Actor: "admin", RepairID: sent.EventID, Resolution: "ok, segunda vez"})
	require.NoError(t, err)
	status, err = f.uc.AssetStatus(ctx, "nb", "SN-001")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInStock, status.Status)

	_, err = f.uc.ReturnFromRepair(ctx, inventory.RepairReturnInput{Actor: "admin", RepairID: sent.EventID})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "ya tiene regreso: %v", err)

	history, err := f.uc.AssetHistory(ctx, "nb", "SN-001", 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, entity.HistoryRepairReturn, history[0].Kind)
}

func TestUseCase_VistaDeOtraInstanciaTrasVolverARegistrarRegreso(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	// segunda instancia sobre el mismo libro, con su propio cache de vistas
	other := inventory.NewUseCase(f.store, f.store, lock.NewKeyedMutex(), undo.New(10*time.Second), logger.Nop(),
		inventory.WithClock(func() time.Time { return t0 }),
		inventory.WithCacheSize(16),
	)

	f.entry(t, "SN-001")
	sent, err := f.uc.SendToRepair(ctx, inventory.RepairInput{Actor: "admin", ProductID: "nb", Serial: "SN-001", Provider: "ServiTec"})
	require.NoError(t, err)
	_, err = f.uc.ReturnFromRepair(ctx, inventory.RepairReturnInput{Actor: "admin", RepairID: sent.EventID})
	require.NoError(t, err)
	require.NoError(t, f.uc.Undo(ctx))

	avail, err := other.AvailableSerials(ctx, "nb")
	require.NoError(t, err)
	assert.Empty(t, avail, "la reparación volvió a quedar abierta")

	_, err = f.uc.ReturnFromRepair(ctx, inventory.RepairReturnInput{Actor: "admin", RepairID: sent.EventID, Resolution: "segunda vez"})
	require.NoError(t, err)

	avail, err = other.AvailableSerials(ctx, "nb")
	require.NoError(t, err)
	assert.Equal(t, []string{"SN-001"}, avail, "el cache de la otra instancia no sirve la vista vieja")
	status, err := other.AssetStatus(ctx, "nb", "SN-001")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInStock, status.Status)
}

func TestUseCase_DeshacerEnvioAReparacion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.entry(t, "SN-001")
	sent, err := f.uc.SendToRepair(ctx, inventory.RepairInput{Actor: "admin", ProductID: "nb", Serial: "SN-001", Provider: "ServiTec"})
	require.NoError(t, err)

	require.NoError(t, f.uc.UndoAction(ctx, sent.Undo.ID))
	status, err := f.uc.AssetStatus(ctx, "nb", "SN-001")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInStock, status.Status)

	_, err = f.uc.ReturnFromRepair(ctx, inventory.RepairReturnInput{Actor: "admin", RepairID: sent.EventID})
	assert.True(t, errors.Is(err, domain.ErrNotFound), "la reparación deshecha no existe: %v", err)
}

func TestUseCase_ComandosConcurrentesSobreElMismoSerial(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.entry(t, "SN-001")

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		oks int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.assign(t, "SN-001"); err == nil {
				mu.Lock()
				oks++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, oks, "solo una asignación gana")

	movs, err := f.store.ReadByProduct(ctx, "nb")
	require.NoError(t, err)
	assert.Len(t, movs, 2)
}
