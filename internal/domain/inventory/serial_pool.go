package inventory

import (
	"sort"
	"strings"

	"github.com/jhoicas/inventario-ti/internal/domain"
	"github.com/jhoicas/inventario-ti/internal/domain/entity"
)

// SerialPool controla, por producto, qué seriales están disponibles y cuáles asignados.
// No es fuente de verdad: se reconstruye con Replay desde el libro de eventos.
// No es seguro para uso concurrente; cada comando trabaja sobre su propia copia.
type SerialPool struct {
	units map[string]map[string]*entity.SerialUnit
}

// NewSerialPool construye un pool vacío.
func NewSerialPool() *SerialPool {
	return &SerialPool{units: make(map[string]map[string]*entity.SerialUnit)}
}

// Register agrega una unidad disponible (evento ENTRY). Rechaza seriales repetidos en el producto.
func (p *SerialPool) Register(productID, serial, location string) error {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return domain.NewSerialError(productID, serial, domain.ErrInvalidInput)
	}
	byProduct, ok := p.units[productID]
	if !ok {
		byProduct = make(map[string]*entity.SerialUnit)
		p.units[productID] = byProduct
	}
	if _, exists := byProduct[serial]; exists {
		return domain.NewSerialError(productID, serial, domain.ErrDuplicateSerial)
	}
	byProduct[serial] = &entity.SerialUnit{
		ProductID:    productID,
		SerialNumber: serial,
		State:        entity.SerialAvailable,
		Location:     location,
	}
	return nil
}

// Allocate marca el serial como asignado. Falla con ErrNotFound si no está en el conjunto
// disponible y con ErrAlreadyAllocated si ya estaba asignado o en reparación.
func (p *SerialPool) Allocate(productID, serial string) error {
	return p.AllocateTo(productID, serial, nil)
}

// AllocateTo es Allocate registrando el poseedor.
func (p *SerialPool) AllocateTo(productID, serial string, holder *entity.Destination) error {
	u, err := p.take(productID, serial)
	if err != nil {
		return err
	}
	u.State = entity.SerialAssigned
	u.Holder = holder
	if holder != nil && holder.Location != "" {
		u.Location = holder.Location
	}
	return nil
}

// SendToRepair pasa una unidad disponible a reparación.
func (p *SerialPool) SendToRepair(productID, serial string) error {
	u, err := p.take(productID, serial)
	if err != nil {
		return err
	}
	u.State = entity.SerialInRepair
	return nil
}

// take valida que la unidad esté disponible para salir del stock.
func (p *SerialPool) take(productID, serial string) (*entity.SerialUnit, error) {
	u := p.lookup(productID, serial)
	if u == nil {
		return nil, domain.NewSerialError(productID, serial, domain.ErrNotFound)
	}
	switch u.State {
	case entity.SerialAvailable:
		return u, nil
	case entity.SerialAssigned, entity.SerialInRepair:
		return nil, domain.NewSerialError(productID, serial, domain.ErrAlreadyAllocated)
	default:
		return nil, domain.NewSerialError(productID, serial, domain.ErrNotFound)
	}
}

// Release devuelve a disponible una unidad asignada o en reparación.
// Nunca es un no-op: si la unidad no estaba asignada devuelve ErrNotAllocated.
func (p *SerialPool) Release(productID, serial string) error {
	u := p.lookup(productID, serial)
	if u == nil {
		return domain.NewSerialError(productID, serial, domain.ErrNotFound)
	}
	if u.State != entity.SerialAssigned && u.State != entity.SerialInRepair {
		return domain.NewSerialError(productID, serial, domain.ErrNotAllocated)
	}
	u.State = entity.SerialAvailable
	u.Holder = nil
	return nil
}

// Decommission da de baja una unidad disponible o en reparación. La baja es definitiva.
func (p *SerialPool) Decommission(productID, serial string) error {
	u := p.lookup(productID, serial)
	if u == nil {
		return domain.NewSerialError(productID, serial, domain.ErrNotFound)
	}
	switch u.State {
	case entity.SerialAvailable, entity.SerialInRepair:
		u.State = entity.SerialDecommissioned
		u.Holder = nil
		return nil
	case entity.SerialAssigned:
		return domain.NewSerialError(productID, serial, domain.ErrAlreadyAllocated)
	default:
		return domain.NewSerialError(productID, serial, domain.ErrNotFound)
	}
}

// Move cambia la ubicación de una unidad disponible (evento TRANSFER).
func (p *SerialPool) Move(productID, serial, location string) error {
	u, err := p.take(productID, serial)
	if err != nil {
		return err
	}
	u.Location = location
	return nil
}

func (p *SerialPool) setLocation(productID, serial, location string) {
	if location == "" {
		return
	}
	if u := p.lookup(productID, serial); u != nil {
		u.Location = location
	}
}

// ListAvailable devuelve los seriales disponibles del producto en orden ascendente.
func (p *SerialPool) ListAvailable(productID string) []string {
	out := make([]string, 0)
	for serial, u := range p.units[productID] {
		if u.State == entity.SerialAvailable {
			out = append(out, serial)
		}
	}
	sort.Strings(out)
	return out
}

// Unit devuelve una copia de la unidad.
func (p *SerialPool) Unit(productID, serial string) (entity.SerialUnit, bool) {
	u := p.lookup(productID, serial)
	if u == nil {
		return entity.SerialUnit{}, false
	}
	return *u, true
}

// Units devuelve todas las unidades del producto ordenadas por serial.
func (p *SerialPool) Units(productID string) []entity.SerialUnit {
	out := make([]entity.SerialUnit, 0, len(p.units[productID]))
	for _, u := range p.units[productID] {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SerialNumber < out[j].SerialNumber })
	return out
}

// Clone copia profunda del pool.
func (p *SerialPool) Clone() *SerialPool {
	c := NewSerialPool()
	for productID, byProduct := range p.units {
		m := make(map[string]*entity.SerialUnit, len(byProduct))
		for serial, u := range byProduct {
			cp := *u
			if u.Holder != nil {
				h := *u.Holder
				cp.Holder = &h
			}
			m[serial] = &cp
		}
		c.units[productID] = m
	}
	return c
}

func (p *SerialPool) lookup(productID, serial string) *entity.SerialUnit {
	byProduct, ok := p.units[productID]
	if !ok {
		return nil
	}
	return byProduct[strings.TrimSpace(serial)]
}
