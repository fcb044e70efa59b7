package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ti/internal/domain"
	"github.com/jhoicas/inventario-ti/internal/domain/entity"
	"github.com/jhoicas/inventario-ti/internal/domain/inventory"
	"github.com/jhoicas/inventario-ti/internal/domain/repository"
	"github.com/jhoicas/inventario-ti/pkg/logger"
	"github.com/jhoicas/inventario-ti/pkg/undo"
)

// Nombres de comando (métricas y logs).
const (
	CmdEntry        = "entry"
	CmdAssign       = "assign"
	CmdReturn       = "return"
	CmdStockOut     = "stock_out"
	CmdTransfer     = "transfer"
	CmdDecommission = "decommission"
	CmdRepairSend   = "repair_send"
	CmdRepairReturn = "repair_return"
	CmdUndo         = "undo"
)

// UseCase comandos y consultas del libro de inventario.
// Cada comando toma el lock del producto, reconstruye su estado desde el libro,
// valida contra el pool de seriales o el stock, agrega el evento y registra su reversión.
type UseCase struct {
	catalog repository.CatalogReader
	events  repository.EventStore
	locker  Locker
	undo    *undo.Coordinator
	log     *logger.Logger
	metrics Metrics
	now     func() time.Time

	views             *viewCache
	reportConcurrency int
}

// Option configura el caso de uso.
type Option func(*UseCase)

// WithMetrics registra el recolector de métricas.
func WithMetrics(m Metrics) Option {
	return func(uc *UseCase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

// WithClock reemplaza time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		if now != nil {
			uc.now = now
		}
	}
}

// WithCacheSize tamaño del cache de vistas derivadas.
func WithCacheSize(n int) Option {
	return func(uc *UseCase) { uc.views = newViewCache(n) }
}

// WithReportConcurrency productos procesados en paralelo por el reporte de stock bajo.
func WithReportConcurrency(n int) Option {
	return func(uc *UseCase) {
		if n > 0 {
			uc.reportConcurrency = n
		}
	}
}

// NewUseCase construye el caso de uso.
func NewUseCase(
	catalog repository.CatalogReader,
	events repository.EventStore,
	locker Locker,
	coordinator *undo.Coordinator,
	log *logger.Logger,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		catalog:           catalog,
		events:            events,
		locker:            locker,
		undo:              coordinator,
		log:               log,
		metrics:           nopMetrics{},
		now:               time.Now,
		reportConcurrency: 8,
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.views == nil {
		uc.views = newViewCache(1024)
	}
	uc.views.metrics = uc.metrics
	return uc
}

// MovementInput entrada común de los comandos de movimiento.
// Para productos con serial se usa SerialNumbers; para fungibles Quantity.
type MovementInput struct {
	Actor         string
	ProductID     string
	Quantity      decimal.Decimal
	SerialNumbers []string
	Destination   *entity.Destination // solo Assign
	Location      string
	Notes         string
}

// RepairInput entrada para enviar un activo a reparación.
type RepairInput struct {
	Actor     string
	ProductID string
	Serial    string
	Provider  string
	Problem   string
}

// RepairReturnInput entrada para registrar el regreso de una reparación.
type RepairReturnInput struct {
	Actor      string
	RepairID   string
	Resolution string
}

// CommandResult identifica el hecho agregado y el ticket para deshacerlo.
type CommandResult struct {
	EventID string
	Key     string
	Undo    undo.Ticket
}

// RegisterEntry ingresa unidades (seriales nuevos o cantidad) al stock.
func (uc *UseCase) RegisterEntry(ctx context.Context, in MovementInput) (*CommandResult, error) {
	return uc.recordMovement(ctx, CmdEntry, entity.MovementTypeEntry, in)
}

// Assign entrega unidades a una persona, área o sucursal.
func (uc *UseCase) Assign(ctx context.Context, in MovementInput) (*CommandResult, error) {
	return uc.recordMovement(ctx, CmdAssign, entity.MovementTypeAssignment, in)
}

// Return devuelve al stock unidades asignadas.
func (uc *UseCase) Return(ctx context.Context, in MovementInput) (*CommandResult, error) {
	return uc.recordMovement(ctx, CmdReturn, entity.MovementTypeReturn, in)
}

// StockOut registra consumo de un producto fungible.
func (uc *UseCase) StockOut(ctx context.Context, in MovementInput) (*CommandResult, error) {
	return uc.recordMovement(ctx, CmdStockOut, entity.MovementTypeStockOut, in)
}

// Transfer traslada unidades disponibles a otra ubicación.
func (uc *UseCase) Transfer(ctx context.Context, in MovementInput) (*CommandResult, error) {
	return uc.recordMovement(ctx, CmdTransfer, entity.MovementTypeTransfer, in)
}

// Decommission da de baja activos con serial. La baja es definitiva.
func (uc *UseCase) Decommission(ctx context.Context, in MovementInput) (*CommandResult, error) {
	return uc.recordMovement(ctx, CmdDecommission, entity.MovementTypeDecommission, in)
}

func (uc *UseCase) recordMovement(ctx context.Context, cmd, typ string, in MovementInput) (res *CommandResult, err error) {
	start := time.Now()
	defer func() { uc.observe(cmd, start, err) }()

	product, err := uc.product(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	ev, err := buildMovement(product, typ, in)
	if err != nil {
		return nil, err
	}

	unlock, err := uc.locker.Lock(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("lock producto %s: %w", product.ID, err)
	}
	defer unlock()

	movs, reps, err := uc.readProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	ev.ID = uuid.NewString()
	ev.Timestamp = uc.nextTimestamp(movs, reps)
	if _, err := inventory.Replay(product, append(movs, *ev), reps); err != nil {
		return nil, err
	}

	id, err := uc.events.Append(ctx, ev)
	if err != nil {
		return nil, err
	}
	ev.ID = id
	uc.views.forget(product.ID)

	key := inventory.MovementKey(id)
	ticket := uc.undo.Commit(undo.Action{
		Description: inventory.Describe(ev),
		Actor:       ev.Actor,
		Revert:      uc.reversal(product.ID, key),
	})
	uc.log.Info().
		Str("command", cmd).
		Str("product_id", product.ID).
		Str("event_id", id).
		Strs("serials", ev.SerialNumbers).
		Str("actor", ev.Actor).
		Msg("movimiento registrado")
	return &CommandResult{EventID: id, Key: key, Undo: ticket}, nil
}

// buildMovement valida la forma del comando según el tipo de producto.
// Las invariantes que dependen del historial (serial asignado, stock insuficiente) las verifica Replay.
func buildMovement(p *entity.Product, typ string, in MovementInput) (*entity.MovementEvent, error) {
	actor := strings.TrimSpace(in.Actor)
	if actor == "" {
		return nil, fmt.Errorf("%w: actor requerido", domain.ErrInvalidInput)
	}
	ev := &entity.MovementEvent{
		ProductID: p.ID,
		Type:      typ,
		Actor:     actor,
		Location:  strings.TrimSpace(in.Location),
		Notes:     strings.TrimSpace(in.Notes),
	}

	if p.TracksSerial {
		if typ == entity.MovementTypeStockOut {
			return nil, fmt.Errorf("%w: la salida por consumo aplica solo a productos fungibles", domain.ErrInvalidInput)
		}
		serials := make([]string, 0, len(in.SerialNumbers))
		for _, s := range in.SerialNumbers {
			s = strings.TrimSpace(s)
			if s == "" {
				return nil, fmt.Errorf("%w: serial vacío", domain.ErrInvalidInput)
			}
			serials = append(serials, s)
		}
		if len(serials) == 0 {
			return nil, fmt.Errorf("%w: el producto %s requiere seriales", domain.ErrInvalidInput, p.ID)
		}
		if !in.Quantity.IsZero() && !in.Quantity.Equal(decimal.NewFromInt(int64(len(serials)))) {
			return nil, fmt.Errorf("%w: la cantidad no coincide con los seriales", domain.ErrInvalidInput)
		}
		ev.SerialNumbers = serials
		ev.Quantity = decimal.NewFromInt(int64(len(serials)))
	} else {
		if typ == entity.MovementTypeDecommission {
			return nil, fmt.Errorf("%w: la baja aplica solo a productos con serial", domain.ErrInvalidInput)
		}
		if len(in.SerialNumbers) > 0 {
			return nil, fmt.Errorf("%w: el producto %s no maneja seriales", domain.ErrInvalidInput, p.ID)
		}
		if !in.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: la cantidad debe ser mayor que cero", domain.ErrInvalidInput)
		}
		ev.Quantity = in.Quantity
	}

	switch typ {
	case entity.MovementTypeAssignment:
		d := in.Destination
		if d == nil || strings.TrimSpace(d.ID) == "" || !validDestinationKind(d.Kind) {
			return nil, fmt.Errorf("%w: destino de asignación inválido", domain.ErrInvalidInput)
		}
		dest := *d
		ev.Destination = &dest
	case entity.MovementTypeTransfer:
		if ev.Location == "" {
			return nil, fmt.Errorf("%w: ubicación de destino requerida", domain.ErrInvalidInput)
		}
	}
	return ev, nil
}

func validDestinationKind(kind string) bool {
	switch kind {
	case entity.DestinationPerson, entity.DestinationDepartment, entity.DestinationBranch:
		return true
	}
	return false
}

// SendToRepair envía a un proveedor un activo disponible.
func (uc *UseCase) SendToRepair(ctx context.Context, in RepairInput) (res *CommandResult, err error) {
	start := time.Now()
	defer func() { uc.observe(CmdRepairSend, start, err) }()

	if strings.TrimSpace(in.Actor) == "" || strings.TrimSpace(in.Serial) == "" || strings.TrimSpace(in.Provider) == "" {
		return nil, fmt.Errorf("%w: actor, serial y proveedor son requeridos", domain.ErrInvalidInput)
	}
	product, err := uc.product(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.TracksSerial {
		return nil, fmt.Errorf("%w: solo se reparan activos con serial", domain.ErrInvalidInput)
	}

	unlock, err := uc.locker.Lock(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("lock producto %s: %w", product.ID, err)
	}
	defer unlock()

	movs, reps, err := uc.readProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	r := &entity.RepairEvent{
		ID:                uuid.NewString(),
		ProductID:         product.ID,
		AssetSerialNumber: strings.TrimSpace(in.Serial),
		SentDate:          uc.nextTimestamp(movs, reps),
		Provider:          strings.TrimSpace(in.Provider),
		Problem:           strings.TrimSpace(in.Problem),
		Actor:             strings.TrimSpace(in.Actor),
	}
	if _, err := inventory.Replay(product, movs, append(reps, *r)); err != nil {
		return nil, err
	}
	id, err := uc.events.AppendRepair(ctx, r)
	if err != nil {
		return nil, err
	}
	uc.views.forget(product.ID)

	key := inventory.RepairSentKey(id)
	ticket := uc.undo.Commit(undo.Action{
		Description: fmt.Sprintf("Envío a reparación del serial %s", r.AssetSerialNumber),
		Actor:       r.Actor,
		Revert:      uc.reversal(product.ID, key),
	})
	uc.log.Info().Str("command", CmdRepairSend).Str("product_id", product.ID).
		Str("repair_id", id).Str("serial", r.AssetSerialNumber).Str("provider", r.Provider).
		Msg("activo enviado a reparación")
	return &CommandResult{EventID: id, Key: key, Undo: ticket}, nil
}

// ReturnFromRepair registra el regreso de una reparación abierta. El activo vuelve a disponible.
func (uc *UseCase) ReturnFromRepair(ctx context.Context, in RepairReturnInput) (res *CommandResult, err error) {
	start := time.Now()
	defer func() { uc.observe(CmdRepairReturn, start, err) }()

	if strings.TrimSpace(in.Actor) == "" || strings.TrimSpace(in.RepairID) == "" {
		return nil, fmt.Errorf("%w: actor y reparación son requeridos", domain.ErrInvalidInput)
	}
	repair, err := uc.events.GetRepair(ctx, in.RepairID)
	if err != nil {
		return nil, err
	}
	product, err := uc.product(ctx, repair.ProductID)
	if err != nil {
		return nil, err
	}

	unlock, err := uc.locker.Lock(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("lock producto %s: %w", product.ID, err)
	}
	defer unlock()

	movs, reps, err := uc.readProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	_, effective := inventory.Effective(movs, reps)
	var current *entity.RepairEvent
	for i := range effective {
		if effective[i].ID == repair.ID {
			current = &effective[i]
		}
	}
	if current == nil {
		return nil, fmt.Errorf("reparación %s: %w", repair.ID, domain.ErrNotFound)
	}
	if !current.IsOpen() {
		return nil, fmt.Errorf("%w: la reparación %s ya tiene regreso", domain.ErrInvalidInput, repair.ID)
	}

	returnDate := uc.nextTimestamp(movs, reps)
	resolution := strings.TrimSpace(in.Resolution)
	actor := strings.TrimSpace(in.Actor)
	candidate := make([]entity.RepairEvent, len(reps))
	copy(candidate, reps)
	for i := range candidate {
		if candidate[i].ID == repair.ID {
			candidate[i].ReturnDate = &returnDate
			candidate[i].Resolution = &resolution
			candidate[i].ReturnActor = actor
		}
	}
	if _, err := inventory.Replay(product, movs, candidate); err != nil {
		return nil, err
	}
	if err := uc.events.AppendRepairReturn(ctx, repair.ID, returnDate, resolution, actor); err != nil {
		return nil, err
	}
	uc.views.forget(product.ID)

	key := inventory.RepairReturnKey(repair.ID)
	ticket := uc.undo.Commit(undo.Action{
		Description: fmt.Sprintf("Regreso de reparación del serial %s", repair.AssetSerialNumber),
		Actor:       actor,
		Revert:      uc.reversal(product.ID, key),
	})
	uc.log.Info().Str("command", CmdRepairReturn).Str("product_id", product.ID).
		Str("repair_id", repair.ID).Str("serial", repair.AssetSerialNumber).
		Msg("activo regresó de reparación")
	return &CommandResult{EventID: repair.ID, Key: key, Undo: ticket}, nil
}

// ── Deshacer ─────────────────────────────────────────────────────────────────

type actorKey struct{}

// WithActor adjunta al contexto quién solicita deshacer; queda como actor del evento REVERSAL.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return a
	}
	return "sistema"
}

// Undo deshace la última acción confirmada si sigue dentro de la ventana.
func (uc *UseCase) Undo(ctx context.Context) error {
	return uc.finishUndo(uc.undo.Undo(ctx))
}

// UndoAction deshace la acción del ticket indicado.
func (uc *UseCase) UndoAction(ctx context.Context, id string) error {
	return uc.finishUndo(uc.undo.UndoAction(ctx, id))
}

// PendingAction devuelve la acción que todavía puede deshacerse.
func (uc *UseCase) PendingAction() (undo.PendingAction, bool) {
	return uc.undo.Pending()
}

func (uc *UseCase) finishUndo(err error) error {
	switch {
	case err == nil:
		uc.metrics.ObserveUndo("undone")
	case errors.Is(err, undo.ErrNothingToUndo):
		uc.metrics.ObserveUndo("nothing")
	case errors.Is(err, undo.ErrExpiredAction):
		uc.metrics.ObserveUndo("expired")
	default:
		uc.metrics.ObserveUndo("failed")
		uc.log.Warn().Err(err).Msg("no se pudo deshacer la acción")
	}
	return err
}

// reversal arma el cierre que el coordinador ejecuta al deshacer.
func (uc *UseCase) reversal(productID, key string) undo.Reversal {
	return func(ctx context.Context) error {
		_, err := uc.revert(ctx, productID, key)
		return err
	}
}

// revert agrega un REVERSAL que anula el hecho key. Antes valida con Replay que el
// historial sin ese hecho siga siendo consistente; si no, rechaza sin escribir.
func (uc *UseCase) revert(ctx context.Context, productID, key string) (id string, err error) {
	start := time.Now()
	defer func() { uc.observe(CmdUndo, start, err) }()

	product, err := uc.product(ctx, productID)
	if err != nil {
		return "", err
	}
	unlock, err := uc.locker.Lock(ctx, product.ID)
	if err != nil {
		return "", fmt.Errorf("lock producto %s: %w", product.ID, err)
	}
	defer unlock()

	movs, reps, err := uc.readProduct(ctx, product.ID)
	if err != nil {
		return "", err
	}
	rev, ok := reversalFor(movs, reps, key)
	if !ok {
		return "", fmt.Errorf("deshacer %s: %w", key, domain.ErrNotFound)
	}
	rev.ID = uuid.NewString()
	rev.ProductID = product.ID
	rev.Timestamp = uc.nextTimestamp(movs, reps)
	rev.Actor = actorFrom(ctx)

	if _, err := inventory.Replay(product, append(movs, rev), reps); err != nil {
		return "", fmt.Errorf("deshacer %s: %w", key, err)
	}
	id, err = uc.events.Append(ctx, &rev)
	if err != nil {
		return "", err
	}
	uc.views.forget(product.ID)
	uc.log.Info().Str("command", CmdUndo).Str("product_id", product.ID).
		Str("reverts", key).Str("event_id", id).Msg("acción deshecha")
	return id, nil
}

// reversalFor arma el REVERSAL de key si el hecho existe en el historial efectivo.
// Copia seriales y cantidad para que las lecturas por serial lo incluyan.
func reversalFor(movs []entity.MovementEvent, reps []entity.RepairEvent, key string) (entity.MovementEvent, bool) {
	effMovs, effReps := inventory.Effective(movs, reps)
	rev := entity.MovementEvent{Type: entity.MovementTypeReversal, Reverts: key}
	for i := range effMovs {
		if inventory.MovementKey(effMovs[i].ID) == key {
			rev.SerialNumbers = append([]string(nil), effMovs[i].SerialNumbers...)
			rev.Quantity = effMovs[i].Quantity
			rev.Notes = "Deshace: " + inventory.Describe(&effMovs[i])
			return rev, true
		}
	}
	for i := range effReps {
		r := &effReps[i]
		sent := inventory.RepairSentKey(r.ID) == key
		back := inventory.RepairReturnKey(r.ID) == key && r.ReturnDate != nil
		if sent || back {
			rev.SerialNumbers = []string{r.AssetSerialNumber}
			rev.Quantity = decimal.NewFromInt(1)
			if sent {
				rev.Notes = "Deshace: envío a reparación"
			} else {
				rev.Notes = "Deshace: regreso de reparación"
			}
			return rev, true
		}
	}
	return rev, false
}

// ── Comunes ──────────────────────────────────────────────────────────────────

func (uc *UseCase) product(ctx context.Context, id string) (*entity.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: producto requerido", domain.ErrInvalidInput)
	}
	p, err := uc.catalog.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (uc *UseCase) readProduct(ctx context.Context, productID string) ([]entity.MovementEvent, []entity.RepairEvent, error) {
	movs, err := uc.events.ReadByProduct(ctx, productID)
	if err != nil {
		return nil, nil, fmt.Errorf("leer movimientos de %s: %w", productID, err)
	}
	reps, err := uc.events.ReadRepairs(ctx, repository.RepairFilter{ProductID: productID})
	if err != nil {
		return nil, nil, fmt.Errorf("leer reparaciones de %s: %w", productID, err)
	}
	return movs, reps, nil
}

// nextTimestamp devuelve ahora (en microsegundos, la precisión de los stores SQL) y,
// si el reloj no avanzó respecto al último hecho, el instante siguiente a éste.
// Así un hecho nuevo siempre ordena después de los existentes.
func (uc *UseCase) nextTimestamp(movs []entity.MovementEvent, reps []entity.RepairEvent) time.Time {
	ts := uc.now().UTC().Truncate(time.Microsecond)
	var last time.Time
	for i := range movs {
		if movs[i].Timestamp.After(last) {
			last = movs[i].Timestamp
		}
	}
	for i := range reps {
		if reps[i].SentDate.After(last) {
			last = reps[i].SentDate
		}
		if reps[i].ReturnDate != nil && reps[i].ReturnDate.After(last) {
			last = *reps[i].ReturnDate
		}
	}
	if !ts.After(last) {
		ts = last.UTC().Add(time.Microsecond)
	}
	return ts
}

func (uc *UseCase) observe(cmd string, start time.Time, err error) {
	outcome := OutcomeOK
	switch {
	case err == nil:
	case isRejection(err):
		outcome = OutcomeRejected
	default:
		outcome = OutcomeError
	}
	uc.metrics.ObserveCommand(cmd, outcome, time.Since(start))
}

func isRejection(err error) bool {
	for _, kind := range []error{
		domain.ErrInvalidInput, domain.ErrNotFound, domain.ErrAlreadyAllocated, domain.ErrNotAllocated,
		domain.ErrDuplicateSerial, domain.ErrInsufficientStock, domain.ErrInconsistentState,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
