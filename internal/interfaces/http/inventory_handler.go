package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ti/internal/application/dto"
	"github.com/jhoicas/inventario-ti/internal/application/inventory"
	"github.com/jhoicas/inventario-ti/internal/domain/entity"
)

// InventoryHandler maneja los comandos del libro de inventario, el deshacer y las consultas de estado (protegido).
type InventoryHandler struct {
	uc *inventory.UseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(uc *inventory.UseCase) *InventoryHandler {
	return &InventoryHandler{uc: uc}
}

type movementCommand func(context.Context, inventory.MovementInput) (*inventory.CommandResult, error)

func (h *InventoryHandler) handleMovement(c *fiber.Ctx, cmd movementCommand) error {
	var in dto.MovementRequest
	if !parseBody(c, &in) {
		return nil
	}
	res, err := cmd(c.UserContext(), movementInput(c, in))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toCommandResponse(res))
}

// RegisterEntry godoc
// @Summary      Ingreso a stock (seriales nuevos o cantidad)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MovementRequest  true  "product_id, serial_numbers o quantity, location"
// @Success      201   {object}  dto.CommandResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/entries [post]
func (h *InventoryHandler) RegisterEntry(c *fiber.Ctx) error {
	return h.handleMovement(c, h.uc.RegisterEntry)
}

// Return godoc
// @Summary      Devolución a stock de unidades asignadas
// @Tags         inventory
// @Security     Bearer
// @Router       /api/inventory/returns [post]
func (h *InventoryHandler) Return(c *fiber.Ctx) error {
	return h.handleMovement(c, h.uc.Return)
}

// StockOut godoc
// @Summary      Salida por consumo (solo fungibles)
// @Tags         inventory
// @Security     Bearer
// @Router       /api/inventory/stock-outs [post]
func (h *InventoryHandler) StockOut(c *fiber.Ctx) error {
	return h.handleMovement(c, h.uc.StockOut)
}

// Transfer godoc
// @Summary      Traslado de unidades disponibles a otra ubicación
// @Tags         inventory
// @Security     Bearer
// @Router       /api/inventory/transfers [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	return h.handleMovement(c, h.uc.Transfer)
}

// Decommission godoc
// @Summary      Baja definitiva de activos con serial
// @Tags         inventory
// @Security     Bearer
// @Router       /api/inventory/decommissions [post]
func (h *InventoryHandler) Decommission(c *fiber.Ctx) error {
	return h.handleMovement(c, h.uc.Decommission)
}

// Assign godoc
// @Summary      Asignar unidades a una persona, área o sucursal
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AssignmentRequest  true  "product_id, serial_numbers o quantity, destination"
// @Success      201   {object}  dto.CommandResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/assignments [post]
func (h *InventoryHandler) Assign(c *fiber.Ctx) error {
	var in dto.AssignmentRequest
	if !parseBody(c, &in) {
		return nil
	}
	input := movementInput(c, in.MovementRequest)
	input.Destination = &entity.Destination{
		Kind:     in.Destination.Kind,
		ID:       in.Destination.ID,
		Name:     in.Destination.Name,
		Location: in.Destination.Location,
	}
	res, err := h.uc.Assign(c.UserContext(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toCommandResponse(res))
}

// SendToRepair godoc
// @Summary      Enviar un activo disponible a reparación
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RepairRequest  true  "product_id, serial_number, provider, problem"
// @Success      201   {object}  dto.CommandResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/repairs [post]
func (h *InventoryHandler) SendToRepair(c *fiber.Ctx) error {
	var in dto.RepairRequest
	if !parseBody(c, &in) {
		return nil
	}
	res, err := h.uc.SendToRepair(c.UserContext(), inventory.RepairInput{
		Actor:     GetActor(c),
		ProductID: in.ProductID,
		Serial:    in.SerialNumber,
		Provider:  in.Provider,
		Problem:   in.Problem,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toCommandResponse(res))
}

// ReturnFromRepair godoc
// @Summary      Registrar el regreso de una reparación
// @Tags         inventory
// @Security     Bearer
// @Param        id    path  string  true  "ID de la reparación"
// @Param        body  body  dto.RepairReturnRequest  false  "resolution"
// @Success      201   {object}  dto.CommandResponse
// @Router       /api/inventory/repairs/{id}/return [post]
func (h *InventoryHandler) ReturnFromRepair(c *fiber.Ctx) error {
	var in dto.RepairReturnRequest
	if len(c.Body()) > 0 && !parseBody(c, &in) {
		return nil
	}
	res, err := h.uc.ReturnFromRepair(c.UserContext(), inventory.RepairReturnInput{
		Actor:      GetActor(c),
		RepairID:   c.Params("id"),
		Resolution: in.Resolution,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toCommandResponse(res))
}

// ── Deshacer ─────────────────────────────────────────────────────────────────

// PendingAction godoc
// @Summary      Acción que todavía puede deshacerse
// @Tags         inventory
// @Security     Bearer
// @Success      200  {object}  dto.PendingActionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/undo [get]
func (h *InventoryHandler) PendingAction(c *fiber.Ctx) error {
	p, ok := h.uc.PendingAction()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOTHING_TO_UNDO", Message: "no hay acción para deshacer"})
	}
	return c.JSON(dto.PendingActionResponse{
		ID:          p.ID,
		Description: p.Description,
		Actor:       p.Actor,
		CommittedAt: p.CommittedAt,
		Deadline:    p.Deadline,
	})
}

// Undo godoc
// @Summary      Deshacer la última acción (o la del id indicado)
// @Tags         inventory
// @Security     Bearer
// @Param        body  body  dto.UndoRequest  false  "id del ticket"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      410  {object}  dto.ErrorResponse
// @Router       /api/inventory/undo [post]
func (h *InventoryHandler) Undo(c *fiber.Ctx) error {
	var in dto.UndoRequest
	if len(c.Body()) > 0 && !parseBody(c, &in) {
		return nil
	}
	return h.undo(c, in.ID)
}

// UndoAction godoc
// @Summary      Deshacer la acción del ticket indicado
// @Tags         inventory
// @Security     Bearer
// @Param        id  path  string  true  "ID del ticket"
// @Success      204
// @Failure      410  {object}  dto.ErrorResponse
// @Router       /api/inventory/undo/{id} [delete]
func (h *InventoryHandler) UndoAction(c *fiber.Ctx) error {
	return h.undo(c, c.Params("id"))
}

func (h *InventoryHandler) undo(c *fiber.Ctx, id string) error {
	ctx := inventory.WithActor(c.UserContext(), GetActor(c))
	var err error
	if id == "" {
		err = h.uc.Undo(ctx)
	} else {
		err = h.uc.UndoAction(ctx, id)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ── Consultas ────────────────────────────────────────────────────────────────

// AssetStatus godoc
// @Summary      Estado derivado de un activo
// @Tags         assets
// @Security     Bearer
// @Param        product_id  path  string  true  "ID del producto"
// @Param        serial      path  string  true  "Serial"
// @Success      200  {object}  dto.StatusResponse
// @Router       /api/assets/{product_id}/{serial}/status [get]
func (h *InventoryHandler) AssetStatus(c *fiber.Ctx) error {
	productID, serial := c.Params("product_id"), c.Params("serial")
	st, err := h.uc.AssetStatus(c.UserContext(), productID, serial)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toStatusResponse(productID, serial, st))
}

// AssetHistory godoc
// @Summary      Historial de un activo, del más reciente al más antiguo
// @Tags         assets
// @Security     Bearer
// @Param        limit   query  int  false  "Límite"  default(20)
// @Param        offset  query  int  false  "Offset"  default(0)
// @Success      200  {object}  dto.HistoryResponse
// @Router       /api/assets/{product_id}/{serial}/history [get]
func (h *InventoryHandler) AssetHistory(c *fiber.Ctx) error {
	var page dto.PageRequest
	if !parseQuery(c, &page) {
		return nil
	}
	page.DefaultPage()
	entries, err := h.uc.AssetHistory(c.UserContext(), c.Params("product_id"), c.Params("serial"), page.Offset, page.Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toHistoryResponse(entries, page))
}

// ProductStatus godoc
// @Summary      Estado derivado de un producto fungible
// @Tags         products
// @Security     Bearer
// @Router       /api/products/{id}/status [get]
func (h *InventoryHandler) ProductStatus(c *fiber.Ctx) error {
	st, err := h.uc.ProductStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toStatusResponse(c.Params("id"), "", st))
}

// ProductHistory godoc
// @Summary      Historial completo de un producto
// @Tags         products
// @Security     Bearer
// @Router       /api/products/{id}/history [get]
func (h *InventoryHandler) ProductHistory(c *fiber.Ctx) error {
	var page dto.PageRequest
	if !parseQuery(c, &page) {
		return nil
	}
	page.DefaultPage()
	entries, err := h.uc.ProductHistory(c.UserContext(), c.Params("id"), page.Offset, page.Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toHistoryResponse(entries, page))
}

// AvailableSerials godoc
// @Summary      Seriales disponibles para asignar
// @Tags         products
// @Security     Bearer
// @Success      200  {object}  dto.SerialsResponse
// @Router       /api/products/{id}/serials [get]
func (h *InventoryHandler) AvailableSerials(c *fiber.Ctx) error {
	serials, err := h.uc.AvailableSerials(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SerialsResponse{ProductID: c.Params("id"), Available: serials})
}

// Units godoc
// @Summary      Unidades con serial y su estado
// @Tags         products
// @Security     Bearer
// @Success      200  {array}  dto.UnitResponse
// @Router       /api/products/{id}/units [get]
func (h *InventoryHandler) Units(c *fiber.Ctx) error {
	units, err := h.uc.Units(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.UnitResponse, 0, len(units))
	for _, u := range units {
		out = append(out, dto.UnitResponse{
			SerialNumber: u.SerialNumber,
			State:        u.State,
			Holder:       toDestinationResponse(u.Holder),
			Location:     u.Location,
		})
	}
	return c.JSON(out)
}

// StockLevel godoc
// @Summary      Nivel de stock y clasificación
// @Tags         products
// @Security     Bearer
// @Success      200  {object}  dto.StockLevelResponse
// @Router       /api/products/{id}/stock [get]
func (h *InventoryHandler) StockLevel(c *fiber.Ctx) error {
	level, err := h.uc.StockLevel(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toStockLevelResponse(level))
}

// LowStock godoc
// @Summary      Reporte de stock bajo (primero los críticos)
// @Tags         inventory
// @Security     Bearer
// @Param        category  query  string  false  "Prefijo de categoría"
// @Success      200  {object}  dto.LowStockResponse
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	report, err := h.uc.LowStockReport(c.UserContext(), inventory.LowStockFilter{CategoryPrefix: c.Query("category")})
	if err != nil {
		return respondError(c, err)
	}
	items := make([]dto.StockLevelResponse, 0, len(report))
	for _, l := range report {
		items = append(items, toStockLevelResponse(l))
	}
	return c.JSON(dto.LowStockResponse{Items: items})
}

// Replenishment godoc
// @Summary      Sugerencias de reposición (stock ideal menos actual)
// @Tags         inventory
// @Security     Bearer
// @Param        category  query  string  false  "Prefijo de categoría"
// @Success      200  {array}  dto.ReplenishmentSuggestionDTO
// @Router       /api/inventory/replenishment [get]
func (h *InventoryHandler) Replenishment(c *fiber.Ctx) error {
	list, err := h.uc.ReplenishmentList(c.UserContext(), inventory.LowStockFilter{CategoryPrefix: c.Query("category")})
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.ReplenishmentSuggestionDTO, 0, len(list))
	for _, item := range list {
		out = append(out, dto.ReplenishmentSuggestionDTO{
			StockLevelResponse: toStockLevelResponse(item.StockLevel),
			Priority:           item.Priority,
		})
	}
	return c.JSON(out)
}

// ── Conversiones ─────────────────────────────────────────────────────────────

func movementInput(c *fiber.Ctx, in dto.MovementRequest) inventory.MovementInput {
	return inventory.MovementInput{
		Actor:         GetActor(c),
		ProductID:     in.ProductID,
		Quantity:      in.Quantity,
		SerialNumbers: in.SerialNumbers,
		Location:      in.Location,
		Notes:         in.Notes,
	}
}

func toCommandResponse(res *inventory.CommandResult) dto.CommandResponse {
	return dto.CommandResponse{
		EventID:      res.EventID,
		HistoryKey:   res.Key,
		UndoID:       res.Undo.ID,
		UndoDeadline: res.Undo.Deadline,
	}
}

func toDestinationResponse(d *entity.Destination) *dto.DestinationResponse {
	if d == nil {
		return nil
	}
	return &dto.DestinationResponse{Kind: d.Kind, ID: d.ID, Name: d.Name, Location: d.Location}
}

func toStatusResponse(productID, serial string, st entity.DerivedStatus) dto.StatusResponse {
	return dto.StatusResponse{
		ProductID:    productID,
		SerialNumber: serial,
		Status:       st.Status,
		Holder:       toDestinationResponse(st.Holder),
		Location:     st.Location,
		Warnings:     st.Warnings,
	}
}

func toHistoryResponse(entries []entity.HistoryEntry, page dto.PageRequest) dto.HistoryResponse {
	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.HistoryEntryResponse{
			Key:           e.Key,
			Kind:          e.Kind,
			Type:          e.Type,
			Timestamp:     e.Timestamp,
			ProductID:     e.ProductID,
			SerialNumbers: e.SerialNumbers,
			Actor:         e.Actor,
			Description:   e.Description,
			Notes:         e.Notes,
		})
	}
	return dto.HistoryResponse{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}}
}

func toStockLevelResponse(l entity.StockLevel) dto.StockLevelResponse {
	return dto.StockLevelResponse{
		ProductID:        l.ProductID,
		ProductName:      l.ProductName,
		CategoryPath:     l.CategoryPath,
		CurrentStock:     l.CurrentStock,
		MinimumThreshold: l.MinimumThreshold,
		IdealStock:       l.IdealStock,
		Ratio:            l.Ratio,
		Classification:   l.Classification,
		SuggestedOrder:   l.SuggestedOrder,
	}
}
