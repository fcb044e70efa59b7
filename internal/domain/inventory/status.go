package inventory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ti/internal/domain"
	"github.com/jhoicas/inventario-ti/internal/domain/entity"
)

// DeriveStatus calcula estado, poseedor y ubicación actuales de un activo (o producto fungible)
// a partir de sus eventos. Es una función pura: el resultado solo depende del conjunto de eventos.
//
// Precedencia: baja (terminal) > reparación abierta > asignación abierta > en stock.
// Si hay asignación y reparación abiertas a la vez devuelve IN_REPAIR junto con un error
// que envuelve domain.ErrInconsistentState; el estado devuelto sigue siendo válido.
func DeriveStatus(movements []entity.MovementEvent, repairs []entity.RepairEvent) (entity.DerivedStatus, error) {
	movs, reps := Effective(movements, repairs)
	sortMovementsDesc(movs)

	for i := range movs {
		if movs[i].Type == entity.MovementTypeDecommission {
			loc := movs[i].Location
			if loc == "" {
				loc = lastKnownLocation(movs[i+1:])
			}
			return entity.DerivedStatus{Status: entity.StatusDecommissioned, Location: loc}, nil
		}
	}

	repair := openRepair(movs, reps)
	assignment := openAssignment(movs)

	switch {
	case repair != nil && assignment != nil:
		msg := fmt.Sprintf("asignación %s y reparación %s abiertas simultáneamente", assignment.ID, repair.ID)
		status := entity.DerivedStatus{
			Status:   entity.StatusInRepair,
			Location: repair.Provider,
			Warnings: []string{msg},
		}
		return status, fmt.Errorf("%w: %s", domain.ErrInconsistentState, msg)
	case repair != nil:
		return entity.DerivedStatus{Status: entity.StatusInRepair, Location: repair.Provider}, nil
	case assignment != nil:
		status := entity.DerivedStatus{Status: entity.StatusAssigned}
		if assignment.Destination != nil {
			h := *assignment.Destination
			status.Holder = &h
			status.Location = h.Location
		}
		return status, nil
	}
	return entity.DerivedStatus{Status: entity.StatusInStock, Location: lastKnownLocation(movs)}, nil
}

// DeriveFungibleStatus como DeriveStatus para un producto fungible tomado como un todo:
// una devolución parcial no cierra la asignación mientras queden unidades afuera.
// El poseedor es el destino de la ASSIGNMENT efectiva más reciente.
func DeriveFungibleStatus(movements []entity.MovementEvent, repairs []entity.RepairEvent) (entity.DerivedStatus, error) {
	status, err := DeriveStatus(movements, repairs)
	if err != nil || status.Status != entity.StatusInStock {
		return status, err
	}
	movs, _ := Effective(movements, repairs)
	sortMovementsDesc(movs)

	outstanding := decimal.Zero
	var latest *entity.MovementEvent
	for i := range movs {
		switch movs[i].Type {
		case entity.MovementTypeAssignment:
			outstanding = outstanding.Add(movs[i].Quantity)
			if latest == nil {
				latest = &movs[i]
			}
		case entity.MovementTypeReturn:
			outstanding = outstanding.Sub(movs[i].Quantity)
		}
	}
	if !outstanding.IsPositive() {
		return status, nil
	}
	assigned := entity.DerivedStatus{Status: entity.StatusAssigned}
	if latest.Destination != nil {
		h := *latest.Destination
		assigned.Holder = &h
		assigned.Location = h.Location
	}
	return assigned, nil
}

// openRepair devuelve la reparación sin regreso más reciente que no haya sido cerrada
// por un RETURN posterior. movs debe venir ordenado descendente.
func openRepair(movs []entity.MovementEvent, reps []entity.RepairEvent) *entity.RepairEvent {
	var open *entity.RepairEvent
	for i := range reps {
		r := &reps[i]
		if !r.IsOpen() || supersededAfter(movs, r) {
			continue
		}
		if open == nil || r.SentDate.After(open.SentDate) || (r.SentDate.Equal(open.SentDate) && r.ID > open.ID) {
			open = r
		}
	}
	return open
}

func supersededAfter(movs []entity.MovementEvent, r *entity.RepairEvent) bool {
	for i := range movs {
		if !movs[i].Timestamp.After(r.SentDate) {
			// orden descendente: el resto es anterior
			return false
		}
		if movs[i].Type == entity.MovementTypeReturn || movs[i].Type == entity.MovementTypeDecommission {
			return true
		}
	}
	return false
}

// openAssignment devuelve la asignación más reciente si no hay un RETURN posterior.
func openAssignment(movs []entity.MovementEvent) *entity.MovementEvent {
	for i := range movs {
		switch movs[i].Type {
		case entity.MovementTypeReturn:
			return nil
		case entity.MovementTypeAssignment:
			return &movs[i]
		}
	}
	return nil
}

// lastKnownLocation toma la ubicación del ENTRY, TRANSFER o RETURN más reciente.
func lastKnownLocation(movs []entity.MovementEvent) string {
	for i := range movs {
		switch movs[i].Type {
		case entity.MovementTypeEntry, entity.MovementTypeTransfer, entity.MovementTypeReturn:
			if movs[i].Location != "" {
				return movs[i].Location
			}
		}
	}
	return ""
}
