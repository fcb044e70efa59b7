package inventory

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ti/internal/domain"
	"github.com/jhoicas/inventario-ti/internal/domain/entity"
)

// Projection es el estado del producto reconstruido desde su historial efectivo.
type Projection struct {
	Product  *entity.Product
	Pool     *SerialPool
	OnHand   decimal.Decimal // fungibles: unidades en bodega
	Assigned decimal.Decimal // fungibles: unidades entregadas y no devueltas
	Version  string
}

// CurrentStock devuelve el stock disponible: cantidad en bodega para fungibles,
// cantidad de seriales disponibles para productos con serial.
func (p *Projection) CurrentStock() decimal.Decimal {
	if p.Product != nil && p.Product.TracksSerial {
		return decimal.NewFromInt(int64(len(p.Pool.ListAvailable(p.Product.ID))))
	}
	return p.OnHand
}

// fact es un hecho en la línea de tiempo de replay: un movimiento, un envío o un regreso de reparación.
type fact struct {
	at       time.Time
	key      string
	movement *entity.MovementEvent
	repair   *entity.RepairEvent
	returned bool
}

// Replay reconstruye el pool de seriales y el stock del producto aplicando en orden
// cronológico el historial efectivo. Devuelve el primer hecho que viole una invariante.
func Replay(product *entity.Product, movements []entity.MovementEvent, repairs []entity.RepairEvent) (*Projection, error) {
	if product == nil {
		return nil, domain.ErrNotFound
	}
	proj := &Projection{
		Product:  product,
		Pool:     NewSerialPool(),
		OnHand:   decimal.Zero,
		Assigned: decimal.Zero,
		Version:  StreamVersion(movements, repairs),
	}
	movs, reps := Effective(movements, repairs)

	facts := make([]fact, 0, len(movs)+2*len(reps))
	for i := range movs {
		if movs[i].ProductID != product.ID {
			continue
		}
		facts = append(facts, fact{at: movs[i].Timestamp, key: MovementKey(movs[i].ID), movement: &movs[i]})
	}
	for i := range reps {
		if reps[i].ProductID != product.ID {
			continue
		}
		facts = append(facts, fact{at: reps[i].SentDate, key: RepairSentKey(reps[i].ID), repair: &reps[i]})
		if reps[i].ReturnDate != nil {
			facts = append(facts, fact{at: *reps[i].ReturnDate, key: RepairReturnKey(reps[i].ID), repair: &reps[i], returned: true})
		}
	}
	sort.SliceStable(facts, func(i, j int) bool {
		if !facts[i].at.Equal(facts[j].at) {
			return facts[i].at.Before(facts[j].at)
		}
		// un envío y su regreso con la misma fecha: primero el envío
		if facts[i].repair != nil && facts[i].repair == facts[j].repair {
			return !facts[i].returned
		}
		return facts[i].key < facts[j].key
	})

	for _, f := range facts {
		var err error
		if f.movement != nil {
			err = proj.applyMovement(f.movement)
		} else {
			err = proj.applyRepair(f.repair, f.returned)
		}
		if err != nil {
			return proj, fmt.Errorf("replay %s: %w", f.key, err)
		}
	}
	return proj, nil
}

func (p *Projection) applyMovement(ev *entity.MovementEvent) error {
	if p.Product.TracksSerial {
		return p.applySerialMovement(ev)
	}
	return p.applyFungibleMovement(ev)
}

func (p *Projection) applySerialMovement(ev *entity.MovementEvent) error {
	if len(ev.SerialNumbers) == 0 {
		return domain.ErrInvalidInput
	}
	pid := p.Product.ID
	for _, serial := range ev.SerialNumbers {
		var err error
		switch ev.Type {
		case entity.MovementTypeEntry:
			err = p.Pool.Register(pid, serial, ev.Location)
		case entity.MovementTypeAssignment:
			err = p.Pool.AllocateTo(pid, serial, ev.Destination)
		case entity.MovementTypeReturn:
			err = p.Pool.Release(pid, serial)
			if err == nil {
				p.Pool.setLocation(pid, serial, ev.Location)
			}
		case entity.MovementTypeTransfer:
			err = p.Pool.Move(pid, serial, ev.Location)
		case entity.MovementTypeDecommission:
			err = p.Pool.Decommission(pid, serial)
		default:
			// STOCK_OUT es solo para fungibles
			err = domain.ErrInvalidInput
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Projection) applyFungibleMovement(ev *entity.MovementEvent) error {
	qty := ev.Quantity
	if !qty.IsPositive() {
		return domain.ErrInvalidInput
	}
	switch ev.Type {
	case entity.MovementTypeEntry:
		p.OnHand = p.OnHand.Add(qty)
	case entity.MovementTypeAssignment:
		if p.OnHand.LessThan(qty) {
			return domain.ErrInsufficientStock
		}
		p.OnHand = p.OnHand.Sub(qty)
		p.Assigned = p.Assigned.Add(qty)
	case entity.MovementTypeReturn:
		if p.Assigned.LessThan(qty) {
			return domain.ErrNotAllocated
		}
		p.Assigned = p.Assigned.Sub(qty)
		p.OnHand = p.OnHand.Add(qty)
	case entity.MovementTypeStockOut:
		if p.OnHand.LessThan(qty) {
			return domain.ErrInsufficientStock
		}
		p.OnHand = p.OnHand.Sub(qty)
	case entity.MovementTypeTransfer:
		// el stock agregado no cambia
	default:
		return domain.ErrInvalidInput
	}
	return nil
}

func (p *Projection) applyRepair(r *entity.RepairEvent, returned bool) error {
	if !p.Product.TracksSerial {
		// reparaciones de fungibles no afectan el stock
		return nil
	}
	if returned {
		return p.Pool.Release(p.Product.ID, r.AssetSerialNumber)
	}
	return p.Pool.SendToRepair(p.Product.ID, r.AssetSerialNumber)
}

// StreamVersion identifica una instantánea del libro: cantidad de movimientos y
// reparaciones más el instante del último hecho. Todo append (incluido un nuevo
// regreso de una reparación ya cerrada) lleva un timestamp mayor que los anteriores
// del producto, así que cualquier escritura cambia la versión.
func StreamVersion(movements []entity.MovementEvent, repairs []entity.RepairEvent) string {
	var latest time.Time
	bump := func(t time.Time) {
		if t.After(latest) {
			latest = t
		}
	}
	for i := range movements {
		bump(movements[i].Timestamp)
	}
	for i := range repairs {
		bump(repairs[i].SentDate)
		if repairs[i].ReturnDate != nil {
			bump(*repairs[i].ReturnDate)
		}
	}
	return fmt.Sprintf("%d.%d.%d", len(movements), len(repairs), latest.UnixMicro())
}
