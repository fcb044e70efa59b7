package entity

// Estados derivados del ciclo de vida.
const (
	StatusInStock        = "IN_STOCK"
	StatusAssigned       = "ASSIGNED"
	StatusInRepair       = "IN_REPAIR"
	StatusDecommissioned = "DECOMMISSIONED"
)

// DerivedStatus no se persiste: se calcula desde el historial de eventos.
type DerivedStatus struct {
	Status   string
	Holder   *Destination
	Location string
	Warnings []string
}
