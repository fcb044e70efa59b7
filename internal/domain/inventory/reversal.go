package inventory

import (
	"time"

	"github.com/jhoicas/inventario-ti/internal/domain/entity"
)

// Effective devuelve el historial efectivo: sin eventos REVERSAL y sin los hechos que éstos revierten.
// Revertir "r-send-<id>" elimina la reparación completa; revertir "r-return-<id>" la deja abierta,
// salvo que el regreso vigente sea posterior al REVERSAL (se registró un regreso nuevo).
// Los slices de entrada no se modifican.
func Effective(movements []entity.MovementEvent, repairs []entity.RepairEvent) ([]entity.MovementEvent, []entity.RepairEvent) {
	reverted := make(map[string]time.Time)
	for i := range movements {
		m := &movements[i]
		if m.Type != entity.MovementTypeReversal || m.Reverts == "" {
			continue
		}
		if t, ok := reverted[m.Reverts]; !ok || m.Timestamp.After(t) {
			reverted[m.Reverts] = m.Timestamp
		}
	}

	movs := make([]entity.MovementEvent, 0, len(movements))
	for _, m := range movements {
		if m.Type == entity.MovementTypeReversal {
			continue
		}
		if _, ok := reverted[MovementKey(m.ID)]; ok {
			continue
		}
		movs = append(movs, m)
	}

	reps := make([]entity.RepairEvent, 0, len(repairs))
	for _, r := range repairs {
		if _, ok := reverted[RepairSentKey(r.ID)]; ok {
			continue
		}
		if t, ok := reverted[RepairReturnKey(r.ID)]; ok && r.ReturnDate != nil && !r.ReturnDate.After(t) {
			r.ReturnDate = nil
			r.Resolution = nil
			r.ReturnActor = ""
		}
		reps = append(reps, r)
	}
	return movs, reps
}
