package entity

// Estados de asignación de una unidad serializada.
const (
	SerialAvailable      = "AVAILABLE"
	SerialAssigned       = "ASSIGNED"
	SerialInRepair       = "IN_REPAIR"
	SerialDecommissioned = "DECOMMISSIONED"
)

// SerialUnit es una unidad física de un producto con serial.
// Se crea con un evento ENTRY y nunca se elimina; solo cambia de estado.
type SerialUnit struct {
	ProductID    string
	SerialNumber string
	State        string
	Holder       *Destination // poseedor actual si State es ASSIGNED
	Location     string
}
