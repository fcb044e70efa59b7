package inventory

import (
	"sort"
	"strings"

	"github.com/jhoicas/inventario-ti/internal/domain/entity"
)

// MovementKey clave de historial de un movimiento.
func MovementKey(id string) string { return entity.HistoryKeyMovement + id }

// RepairSentKey clave de historial del envío a reparación.
func RepairSentKey(id string) string { return entity.HistoryKeyRepairSent + id }

// RepairReturnKey clave de historial del regreso de reparación.
func RepairReturnKey(id string) string { return entity.HistoryKeyRepairReturn + id }

// ValidHistoryKey indica si key tiene uno de los prefijos conocidos y un id no vacío.
func ValidHistoryKey(key string) bool {
	for _, prefix := range []string{entity.HistoryKeyMovement, entity.HistoryKeyRepairSent, entity.HistoryKeyRepairReturn} {
		if strings.HasPrefix(key, prefix) && len(key) > len(prefix) {
			return true
		}
	}
	return false
}

// SortMovements ordena ascendente por (Timestamp, ID).
func SortMovements(events []entity.MovementEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Before(&events[j])
	})
}

func sortMovementsDesc(events []entity.MovementEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[j].Before(&events[i])
	})
}
