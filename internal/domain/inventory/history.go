package inventory

import (
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ti/internal/domain/entity"
)

// Merge une movimientos y reparaciones en un único historial, del más reciente al más antiguo.
// Cada reparación genera una o dos entradas ("enviado" y, si existe, "regresado").
// Con igual timestamp el orden lo decide la clave sintética (m-, r-send-, r-return-)
// en orden lexicográfico, así la secuencia es reproducible y puede paginarse.
func Merge(movements []entity.MovementEvent, repairs []entity.RepairEvent) iter.Seq[entity.HistoryEntry] {
	movs, reps := Effective(movements, repairs)

	left := make([]entity.HistoryEntry, 0, len(movs))
	for i := range movs {
		left = append(left, movementEntry(&movs[i]))
	}
	right := make([]entity.HistoryEntry, 0, 2*len(reps))
	for i := range reps {
		right = append(right, repairSentEntry(&reps[i]))
		if reps[i].ReturnDate != nil {
			right = append(right, repairReturnEntry(&reps[i]))
		}
	}
	sort.SliceStable(left, func(i, j int) bool { return historyLess(left[i], left[j]) })
	sort.SliceStable(right, func(i, j int) bool { return historyLess(right[i], right[j]) })

	return func(yield func(entity.HistoryEntry) bool) {
		i, j := 0, 0
		for i < len(left) || j < len(right) {
			var next entity.HistoryEntry
			if j >= len(right) || (i < len(left) && historyLess(left[i], right[j])) {
				next = left[i]
				i++
			} else {
				next = right[j]
				j++
			}
			if !yield(next) {
				return
			}
		}
	}
}

func historyLess(a, b entity.HistoryEntry) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.Key < b.Key
}

// Take devuelve los primeros n elementos de la secuencia (n <= 0: ninguno).
func Take[T any](seq iter.Seq[T], n int) []T {
	if n <= 0 {
		return make([]T, 0)
	}
	return Page(seq, 0, n)
}

// Page devuelve hasta limit elementos a partir de offset; limit <= 0 devuelve todo
// lo que sigue a offset.
func Page[T any](seq iter.Seq[T], offset, limit int) []T {
	out := make([]T, 0)
	if offset < 0 {
		offset = 0
	}
	idx := 0
	for v := range seq {
		if idx >= offset {
			out = append(out, v)
			if len(out) == limit {
				break
			}
		}
		idx++
	}
	return out
}

func movementEntry(m *entity.MovementEvent) entity.HistoryEntry {
	return entity.HistoryEntry{
		Key:           MovementKey(m.ID),
		Kind:          entity.HistoryMovement,
		Type:          m.Type,
		Timestamp:     m.Timestamp,
		ProductID:     m.ProductID,
		SerialNumbers: append([]string(nil), m.SerialNumbers...),
		Actor:         m.Actor,
		Description:   Describe(m),
		Notes:         m.Notes,
	}
}

func repairSentEntry(r *entity.RepairEvent) entity.HistoryEntry {
	desc := "Enviado a reparación"
	if r.Provider != "" {
		desc += " con " + r.Provider
	}
	if r.Problem != "" {
		desc += ": " + r.Problem
	}
	return entity.HistoryEntry{
		Key:           RepairSentKey(r.ID),
		Kind:          entity.HistoryRepairSent,
		Timestamp:     r.SentDate,
		ProductID:     r.ProductID,
		SerialNumbers: serialSlice(r.AssetSerialNumber),
		Actor:         r.Actor,
		Description:   desc,
	}
}

func repairReturnEntry(r *entity.RepairEvent) entity.HistoryEntry {
	desc := "Regresó de reparación"
	if r.Provider != "" {
		desc += " (" + r.Provider + ")"
	}
	if r.Resolution != nil && *r.Resolution != "" {
		desc += ": " + *r.Resolution
	}
	actor := r.ReturnActor
	if actor == "" {
		actor = r.Actor
	}
	return entity.HistoryEntry{
		Key:           RepairReturnKey(r.ID),
		Kind:          entity.HistoryRepairReturn,
		Timestamp:     *r.ReturnDate,
		ProductID:     r.ProductID,
		SerialNumbers: serialSlice(r.AssetSerialNumber),
		Actor:         actor,
		Description:   desc,
	}
}

// Describe texto legible de un movimiento, el mismo que muestra el historial.
func Describe(m *entity.MovementEvent) string {
	subject := subjectOf(m)
	switch m.Type {
	case entity.MovementTypeEntry:
		return withPlace("Ingreso de "+subject, " en ", m.Location)
	case entity.MovementTypeAssignment:
		if m.Destination != nil && m.Destination.Name != "" {
			return fmt.Sprintf("Asignación de %s a %s", subject, m.Destination.Name)
		}
		if m.Destination != nil {
			return fmt.Sprintf("Asignación de %s a %s", subject, m.Destination.ID)
		}
		return "Asignación de " + subject
	case entity.MovementTypeReturn:
		return withPlace("Devolución de "+subject, " a ", m.Location)
	case entity.MovementTypeStockOut:
		return "Salida de " + subject
	case entity.MovementTypeTransfer:
		return withPlace("Traslado de "+subject, " a ", m.Location)
	case entity.MovementTypeDecommission:
		return "Baja de " + subject
	}
	return m.Type
}

func subjectOf(m *entity.MovementEvent) string {
	if len(m.SerialNumbers) == 1 {
		return "serial " + m.SerialNumbers[0]
	}
	if len(m.SerialNumbers) > 1 {
		return "seriales " + strings.Join(m.SerialNumbers, ", ")
	}
	if m.Quantity.Equal(decimal.NewFromInt(1)) {
		return "1 unidad"
	}
	return m.Quantity.String() + " unidades"
}

func withPlace(base, sep, place string) string {
	if place == "" {
		return base
	}
	return base + sep + place
}

func serialSlice(serial string) []string {
	if serial == "" {
		return nil
	}
	return []string{serial}
}
