package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-ti/internal/domain"
	"github.com/jhoicas/inventario-ti/internal/domain/entity"
	"github.com/jhoicas/inventario-ti/internal/domain/repository"
)

var _ repository.EventStore = (*EventStore)(nil)

// EventStore libro de movimientos y reparaciones sobre PostgreSQL. Solo INSERT y SELECT.
type EventStore struct {
	q Querier
}

// NewEventStore construye el adaptador. Pasar pool o tx (Querier).
func NewEventStore(q Querier) *EventStore {
	return &EventStore{q: q}
}

const movementColumns = `id, product_id, type, occurred_at, quantity, serial_numbers, actor,
	destination_kind, destination_id, destination_name, destination_location,
	location, notes, reverts`

// Append inserta un evento. Si no trae ID se genera uno.
func (s *EventStore) Append(ctx context.Context, ev *entity.MovementEvent) (string, error) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	var kind, destID, destName, destLoc *string
	if d := ev.Destination; d != nil {
		kind, destID, destName, destLoc = &d.Kind, &d.ID, &d.Name, &d.Location
	}
	serials := ev.SerialNumbers
	if serials == nil {
		serials = []string{}
	}
	query := `
		INSERT INTO movement_events (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := s.q.Exec(ctx, query,
		ev.ID, ev.ProductID, ev.Type, ev.Timestamp, ev.Quantity, serials, ev.Actor,
		kind, destID, destName, destLoc, ev.Location, ev.Notes, ev.Reverts,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return "", domain.ErrDuplicate
		case isForeignKeyViolation(err):
			return "", fmt.Errorf("producto %s: %w", ev.ProductID, domain.ErrNotFound)
		}
		return "", fmt.Errorf("insert movement: %w", err)
	}
	return ev.ID, nil
}

// AppendRepair registra el envío a reparación.
func (s *EventStore) AppendRepair(ctx context.Context, r *entity.RepairEvent) (string, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	query := `
		INSERT INTO repair_events (id, product_id, asset_serial_number, sent_date, provider, problem, actor)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.q.Exec(ctx, query,
		r.ID, r.ProductID, r.AssetSerialNumber, r.SentDate, r.Provider, r.Problem, r.Actor)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return "", domain.ErrDuplicate
		case isForeignKeyViolation(err):
			return "", fmt.Errorf("producto %s: %w", r.ProductID, domain.ErrNotFound)
		}
		return "", fmt.Errorf("insert repair: %w", err)
	}
	return r.ID, nil
}

// AppendRepairReturn agrega una fila de regreso; las lecturas usan la más reciente.
func (s *EventStore) AppendRepairReturn(ctx context.Context, repairID string, returnDate time.Time, resolution, actor string) error {
	query := `INSERT INTO repair_returns (repair_id, return_date, resolution, actor) VALUES ($1, $2, $3, $4)`
	if _, err := s.q.Exec(ctx, query, repairID, returnDate, resolution, actor); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("reparación %s: %w", repairID, domain.ErrNotFound)
		}
		return fmt.Errorf("insert repair return: %w", err)
	}
	return nil
}

// ReadByProduct eventos del producto en orden (occurred_at, id).
func (s *EventStore) ReadByProduct(ctx context.Context, productID string) ([]entity.MovementEvent, error) {
	query := `SELECT ` + movementColumns + ` FROM movement_events
		WHERE product_id = $1 ORDER BY occurred_at, id COLLATE "C"`
	return s.queryMovements(ctx, query, productID)
}

// ReadByAsset eventos que mencionan el serial (índice GIN sobre serial_numbers).
func (s *EventStore) ReadByAsset(ctx context.Context, serial string) ([]entity.MovementEvent, error) {
	query := `SELECT ` + movementColumns + ` FROM movement_events
		WHERE serial_numbers @> ARRAY[$1]::text[] ORDER BY occurred_at, id COLLATE "C"`
	return s.queryMovements(ctx, query, serial)
}

func (s *EventStore) queryMovements(ctx context.Context, query string, args ...any) ([]entity.MovementEvent, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read movements: %w", err)
	}
	defer rows.Close()
	out := make([]entity.MovementEvent, 0)
	for rows.Next() {
		var (
			m                   entity.MovementEvent
			kind, id, name, loc *string
		)
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Type, &m.Timestamp, &m.Quantity, &m.SerialNumbers, &m.Actor,
			&kind, &id, &name, &loc, &m.Location, &m.Notes, &m.Reverts); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.Timestamp = m.Timestamp.UTC()
		if len(m.SerialNumbers) == 0 {
			m.SerialNumbers = nil
		}
		if kind != nil {
			m.Destination = &entity.Destination{Kind: *kind, ID: deref(id), Name: deref(name), Location: deref(loc)}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// repairSelect une cada reparación con su regreso más reciente.
const repairSelect = `
	SELECT r.id, r.product_id, r.asset_serial_number, r.sent_date, r.provider, r.problem, r.actor,
		rr.return_date, rr.resolution, rr.actor
	FROM repair_events r
	LEFT JOIN LATERAL (
		SELECT return_date, resolution, actor FROM repair_returns
		WHERE repair_id = r.id
		ORDER BY return_date DESC, id DESC
		LIMIT 1
	) rr ON TRUE`

// ReadRepairs reparaciones por serial o por producto, ordenadas por fecha de envío.
func (s *EventStore) ReadRepairs(ctx context.Context, f repository.RepairFilter) ([]entity.RepairEvent, error) {
	if f.Serial == "" && f.ProductID == "" {
		return []entity.RepairEvent{}, nil
	}
	query := repairSelect + `
		WHERE ($1 = '' OR r.asset_serial_number = $1) AND ($2 = '' OR r.product_id = $2)
		ORDER BY r.sent_date, r.id COLLATE "C"`
	rows, err := s.q.Query(ctx, query, f.Serial, f.ProductID)
	if err != nil {
		return nil, fmt.Errorf("read repairs: %w", err)
	}
	defer rows.Close()
	out := make([]entity.RepairEvent, 0)
	for rows.Next() {
		r, err := scanRepair(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repair: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// GetRepair obtiene una reparación por ID.
func (s *EventStore) GetRepair(ctx context.Context, id string) (*entity.RepairEvent, error) {
	r, err := scanRepair(s.q.QueryRow(ctx, repairSelect+` WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get repair: %w", err)
	}
	return r, nil
}

func scanRepair(row pgx.Row) (*entity.RepairEvent, error) {
	var (
		r                 entity.RepairEvent
		returned          *time.Time
		resolution, actor *string
	)
	if err := row.Scan(&r.ID, &r.ProductID, &r.AssetSerialNumber, &r.SentDate, &r.Provider, &r.Problem, &r.Actor,
		&returned, &resolution, &actor); err != nil {
		return nil, err
	}
	r.SentDate = r.SentDate.UTC()
	if returned != nil {
		d := returned.UTC()
		res := deref(resolution)
		r.ReturnDate = &d
		r.Resolution = &res
		r.ReturnActor = deref(actor)
	}
	return &r, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
