package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ti/internal/domain"
	"github.com/jhoicas/inventario-ti/internal/domain/entity"
	"github.com/jhoicas/inventario-ti/internal/domain/repository"
)

const movementColumns = `e.id, e.product_id, e.type, e.occurred_at, e.quantity, e.serial_numbers, e.actor,
	e.destination_kind, e.destination_id, e.destination_name, e.destination_location,
	e.location, e.notes, e.reverts`

// Append inserta el evento y su índice por serial en una misma transacción.
func (s *Store) Append(ctx context.Context, ev *entity.MovementEvent) (string, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	serials, err := json.Marshal(nonNil(ev.SerialNumbers))
	if err != nil {
		return "", fmt.Errorf("serial_numbers: %w", err)
	}
	var kind, destID, destName, destLoc sql.NullString
	if d := ev.Destination; d != nil {
		kind = sql.NullString{String: d.Kind, Valid: true}
		destID = sql.NullString{String: d.ID, Valid: true}
		destName = sql.NullString{String: d.Name, Valid: true}
		destLoc = sql.NullString{String: d.Location, Valid: true}
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if err := productExists(ctx, tx, ev.ProductID); err != nil {
			return err
		}
		query := `INSERT INTO movement_events (id, product_id, type, occurred_at, quantity, serial_numbers, actor,
			destination_kind, destination_id, destination_name, destination_location, location, notes, reverts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := tx.ExecContext(ctx, query,
			ev.ID, ev.ProductID, ev.Type, formatTime(ev.Timestamp), ev.Quantity.String(), string(serials), ev.Actor,
			kind, destID, destName, destLoc, ev.Location, ev.Notes, ev.Reverts,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicate
			}
			return fmt.Errorf("insert movement: %w", err)
		}
		for _, sn := range ev.SerialNumbers {
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO movement_serials (serial_number, event_id) VALUES (?, ?)`, sn, ev.ID)
			if err != nil {
				return fmt.Errorf("insert movement serial: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return ev.ID, nil
}

func (s *Store) AppendRepair(ctx context.Context, r *entity.RepairEvent) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := productExists(ctx, tx, r.ProductID); err != nil {
			return err
		}
		query := `INSERT INTO repair_events (id, product_id, asset_serial_number, sent_date, provider, problem, actor)
			VALUES (?, ?, ?, ?, ?, ?, ?)`
		_, err := tx.ExecContext(ctx, query,
			r.ID, r.ProductID, r.AssetSerialNumber, formatTime(r.SentDate), r.Provider, r.Problem, r.Actor)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicate
			}
			return fmt.Errorf("insert repair: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

func (s *Store) AppendRepairReturn(ctx context.Context, repairID string, returnDate time.Time, resolution, actor string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM repair_events WHERE id = ?`, repairID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("repair exists: %w", err)
		}
		query := `INSERT INTO repair_returns (repair_id, return_date, resolution, actor) VALUES (?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query, repairID, formatTime(returnDate), resolution, actor); err != nil {
			return fmt.Errorf("insert repair return: %w", err)
		}
		return nil
	})
}

func (s *Store) ReadByProduct(ctx context.Context, productID string) ([]entity.MovementEvent, error) {
	query := `SELECT ` + movementColumns + ` FROM movement_events e
		WHERE e.product_id = ? ORDER BY e.occurred_at, e.id`
	return s.queryMovements(ctx, query, productID)
}

func (s *Store) ReadByAsset(ctx context.Context, serial string) ([]entity.MovementEvent, error) {
	query := `SELECT ` + movementColumns + ` FROM movement_events e
		JOIN movement_serials ms ON ms.event_id = e.id
		WHERE ms.serial_number = ? ORDER BY e.occurred_at, e.id`
	return s.queryMovements(ctx, query, serial)
}

func (s *Store) queryMovements(ctx context.Context, query string, args ...any) ([]entity.MovementEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read movements: %w", err)
	}
	defer rows.Close()
	out := make([]entity.MovementEvent, 0)
	for rows.Next() {
		var (
			m                   entity.MovementEvent
			ts, qty, serials    string
			kind, id, name, loc sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Type, &ts, &qty, &serials, &m.Actor,
			&kind, &id, &name, &loc, &m.Location, &m.Notes, &m.Reverts); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		if m.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		if m.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("movement %s quantity: %w", m.ID, err)
		}
		if err := json.Unmarshal([]byte(serials), &m.SerialNumbers); err != nil {
			return nil, fmt.Errorf("movement %s serial_numbers: %w", m.ID, err)
		}
		if len(m.SerialNumbers) == 0 {
			m.SerialNumbers = nil
		}
		if kind.Valid {
			m.Destination = &entity.Destination{Kind: kind.String, ID: id.String, Name: name.String, Location: loc.String}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// repairSelect une cada reparación con su regreso más reciente.
const repairSelect = `SELECT r.id, r.product_id, r.asset_serial_number, r.sent_date, r.provider, r.problem, r.actor,
		rr.return_date, rr.resolution, rr.actor
	FROM repair_events r
	LEFT JOIN (
		SELECT repair_id, return_date, resolution, actor,
			ROW_NUMBER() OVER (PARTITION BY repair_id ORDER BY return_date DESC, id DESC) AS rn
		FROM repair_returns
	) rr ON rr.repair_id = r.id AND rr.rn = 1`

func (s *Store) ReadRepairs(ctx context.Context, f repository.RepairFilter) ([]entity.RepairEvent, error) {
	if f.Serial == "" && f.ProductID == "" {
		return []entity.RepairEvent{}, nil
	}
	query := repairSelect + `
		WHERE (? = '' OR r.asset_serial_number = ?) AND (? = '' OR r.product_id = ?)
		ORDER BY r.sent_date, r.id`
	rows, err := s.db.QueryContext(ctx, query, f.Serial, f.Serial, f.ProductID, f.ProductID)
	if err != nil {
		return nil, fmt.Errorf("read repairs: %w", err)
	}
	defer rows.Close()
	out := make([]entity.RepairEvent, 0)
	for rows.Next() {
		r, err := scanRepair(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) GetRepair(ctx context.Context, id string) (*entity.RepairEvent, error) {
	r, err := scanRepair(s.db.QueryRowContext(ctx, repairSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return r, err
}

func scanRepair(row rowScanner) (*entity.RepairEvent, error) {
	var (
		r                           entity.RepairEvent
		sent                        string
		returned, resolution, actor sql.NullString
	)
	if err := row.Scan(&r.ID, &r.ProductID, &r.AssetSerialNumber, &sent, &r.Provider, &r.Problem, &r.Actor,
		&returned, &resolution, &actor); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan repair: %w", err)
	}
	var err error
	if r.SentDate, err = parseTime(sent); err != nil {
		return nil, err
	}
	if returned.Valid {
		d, err := parseTime(returned.String)
		if err != nil {
			return nil, err
		}
		res := resolution.String
		r.ReturnDate = &d
		r.Resolution = &res
		r.ReturnActor = actor.String
	}
	return &r, nil
}

func productExists(ctx context.Context, q querier, id string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("product exists: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
