package inventory_test

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ti/internal/domain/entity"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func at(minutes int) time.Time { return t0.Add(time.Duration(minutes) * time.Minute) }

func notebook() *entity.Product {
	return &entity.Product{
		ID:               notebookID,
		SKU:              "NB-14",
		Name:             "Notebook 14\"",
		CategoryPath:     "Computadoras/Notebooks",
		TracksSerial:     true,
		MinimumThreshold: decimal.NewFromInt(2),
		IdealStock:       decimal.NewFromInt(5),
	}
}

func cable() *entity.Product {
	return &entity.Product{
		ID:               "prod-cable",
		SKU:              "CAB-HDMI",
		Name:             "Cable HDMI",
		CategoryPath:     "Accesorios/Cables",
		MinimumThreshold: decimal.NewFromInt(10),
		IdealStock:       decimal.NewFromInt(20),
	}
}

func entry(id string, min int, serials ...string) entity.MovementEvent {
	return entity.MovementEvent{
		ID: id, ProductID: notebookID, Type: entity.MovementTypeEntry, Timestamp: at(min),
		SerialNumbers: serials, Location: "Bodega Central", Actor: "admin",
	}
}

func assignment(id string, min int, holder string, serials ...string) entity.MovementEvent {
	return entity.MovementEvent{
		ID: id, ProductID: notebookID, Type: entity.MovementTypeAssignment, Timestamp: at(min),
		SerialNumbers: serials, Actor: "admin",
		Destination: &entity.Destination{Kind: entity.DestinationPerson, ID: holder, Name: holder, Location: "Piso 3"},
	}
}

func returned(id string, min int, serials ...string) entity.MovementEvent {
	return entity.MovementEvent{
		ID: id, ProductID: notebookID, Type: entity.MovementTypeReturn, Timestamp: at(min),
		SerialNumbers: serials, Location: "Bodega Central", Actor: "admin",
	}
}

func fungible(id, typ string, min int, qty int64) entity.MovementEvent {
	return entity.MovementEvent{
		ID: id, ProductID: "prod-cable", Type: typ, Timestamp: at(min),
		Quantity: decimal.NewFromInt(qty), Actor: "admin",
	}
}

func repair(id string, sent int, back *int, serial string) entity.RepairEvent {
	r := entity.RepairEvent{
		ID: id, ProductID: notebookID, AssetSerialNumber: serial, SentDate: at(sent),
		Provider: "ServiTec", Problem: "pantalla rota", Actor: "admin",
	}
	if back != nil {
		d := at(*back)
		res := "pantalla reemplazada"
		r.ReturnDate = &d
		r.Resolution = &res
	}
	return r
}

func reversal(id string, min int, key string) entity.MovementEvent {
	return entity.MovementEvent{
		ID: id, ProductID: notebookID, Type: entity.MovementTypeReversal, Timestamp: at(min),
		Reverts: key, Actor: "admin",
	}
}

func intp(v int) *int { return &v }
