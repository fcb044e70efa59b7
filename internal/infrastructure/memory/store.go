// Package memory implementa el catálogo y el libro de eventos en memoria.
// Sirve para desarrollo (STORE_DRIVER=memory) y tests; se pierde al reiniciar.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ti/internal/domain"
	"github.com/jhoicas/inventario-ti/internal/domain/entity"
	"github.com/jhoicas/inventario-ti/internal/domain/repository"
)

var (
	_ repository.EventStore        = (*Store)(nil)
	_ repository.ProductRepository = (*Store)(nil)
	_ repository.CatalogTxRunner   = (*Store)(nil)
)

type repairReturn struct {
	date       time.Time
	resolution string
	actor      string
}

// Store guarda todo en mapas protegidos por un RWMutex. Las lecturas devuelven copias.
type Store struct {
	mu       sync.RWMutex
	products map[string]*entity.Product
	bySKU    map[string]string
	events   []entity.MovementEvent
	eventIDs map[string]struct{}
	repairs  []entity.RepairEvent // solo el hecho "enviado"
	returns  map[string][]repairReturn
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		products: make(map[string]*entity.Product),
		bySKU:    make(map[string]string),
		eventIDs: make(map[string]struct{}),
		returns:  make(map[string][]repairReturn),
	}
}

// ── Catálogo ─────────────────────────────────────────────────────────────────

func (s *Store) Create(_ context.Context, p *entity.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; ok {
		return domain.ErrDuplicate
	}
	sku := strings.ToUpper(p.SKU)
	if _, ok := s.bySKU[sku]; ok {
		return domain.ErrDuplicate
	}
	cp := *p
	s.products[p.ID] = &cp
	s.bySKU[sku] = p.ID
	return nil
}

func (s *Store) Update(_ context.Context, p *entity.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.products[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cp := *p
	cp.SKU = cur.SKU
	cp.TracksSerial = cur.TracksSerial
	cp.CreatedAt = cur.CreatedAt
	s.products[p.ID] = &cp
	return nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*entity.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	s.mu.RLock()
	id, ok := s.bySKU[strings.ToUpper(sku)]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.GetProduct(ctx, id)
}

// ListProducts aplica el filtro y ordena por nombre e ID.
func (s *Store) ListProducts(_ context.Context, f repository.ProductFilter) ([]*entity.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]*entity.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.InCategory(f.CategoryPrefix) {
			continue
		}
		if f.TracksSerial != nil && p.TracksSerial != *f.TracksSerial {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.SKU), search) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*entity.Product{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// RunCatalog ejecuta fn con el store y, si falla, restaura el catálogo previo.
func (s *Store) RunCatalog(ctx context.Context, fn func(repo repository.ProductRepository) error) error {
	s.mu.RLock()
	products := make(map[string]*entity.Product, len(s.products))
	for k, v := range s.products {
		products[k] = v
	}
	bySKU := make(map[string]string, len(s.bySKU))
	for k, v := range s.bySKU {
		bySKU[k] = v
	}
	s.mu.RUnlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.products, s.bySKU = products, bySKU
		s.mu.Unlock()
		return err
	}
	return nil
}

// ── Libro de eventos ─────────────────────────────────────────────────────────

func (s *Store) Append(_ context.Context, ev *entity.MovementEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[ev.ProductID]; !ok {
		return "", domain.ErrNotFound
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if _, dup := s.eventIDs[ev.ID]; dup {
		return "", domain.ErrDuplicate
	}
	s.events = append(s.events, copyMovement(*ev))
	s.eventIDs[ev.ID] = struct{}{}
	return ev.ID, nil
}

func (s *Store) AppendRepair(_ context.Context, r *entity.RepairEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[r.ProductID]; !ok {
		return "", domain.ErrNotFound
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	for i := range s.repairs {
		if s.repairs[i].ID == r.ID {
			return "", domain.ErrDuplicate
		}
	}
	cp := *r
	cp.ReturnDate, cp.Resolution, cp.ReturnActor = nil, nil, ""
	s.repairs = append(s.repairs, cp)
	return r.ID, nil
}

func (s *Store) AppendRepairReturn(_ context.Context, repairID string, returnDate time.Time, resolution, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.repairs {
		if s.repairs[i].ID == repairID {
			s.returns[repairID] = append(s.returns[repairID], repairReturn{date: returnDate, resolution: resolution, actor: actor})
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *Store) ReadByProduct(_ context.Context, productID string) ([]entity.MovementEvent, error) {
	return s.readMovements(func(m *entity.MovementEvent) bool { return m.ProductID == productID }), nil
}

func (s *Store) ReadByAsset(_ context.Context, serial string) ([]entity.MovementEvent, error) {
	return s.readMovements(func(m *entity.MovementEvent) bool { return m.HasSerial(serial) }), nil
}

func (s *Store) readMovements(keep func(*entity.MovementEvent) bool) []entity.MovementEvent {
	s.mu.RLock()
	out := make([]entity.MovementEvent, 0)
	for i := range s.events {
		if keep(&s.events[i]) {
			out = append(out, copyMovement(s.events[i]))
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Before(&out[j]) })
	return out
}

func (s *Store) ReadRepairs(_ context.Context, f repository.RepairFilter) ([]entity.RepairEvent, error) {
	out := make([]entity.RepairEvent, 0)
	if f.Serial == "" && f.ProductID == "" {
		return out, nil
	}
	s.mu.RLock()
	for i := range s.repairs {
		r := &s.repairs[i]
		if f.Serial != "" && r.AssetSerialNumber != f.Serial {
			continue
		}
		if f.ProductID != "" && r.ProductID != f.ProductID {
			continue
		}
		out = append(out, s.joinReturn(*r))
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SentDate.Equal(out[j].SentDate) {
			return out[i].SentDate.Before(out[j].SentDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetRepair(_ context.Context, id string) (*entity.RepairEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.repairs {
		if s.repairs[i].ID == id {
			r := s.joinReturn(s.repairs[i])
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

// joinReturn completa la reparación con su regreso más reciente; requiere s.mu.
func (s *Store) joinReturn(r entity.RepairEvent) entity.RepairEvent {
	rets := s.returns[r.ID]
	if len(rets) == 0 {
		return r
	}
	last := rets[0]
	for _, ret := range rets[1:] {
		if ret.date.After(last.date) {
			last = ret
		}
	}
	d := last.date
	res := last.resolution
	r.ReturnDate = &d
	r.Resolution = &res
	r.ReturnActor = last.actor
	return r
}

func copyMovement(m entity.MovementEvent) entity.MovementEvent {
	m.SerialNumbers = append([]string(nil), m.SerialNumbers...)
	if m.Destination != nil {
		d := *m.Destination
		m.Destination = &d
	}
	return m
}
