package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/inventario-ti/internal/application/dto"
	"github.com/jhoicas/inventario-ti/internal/application/inventory"
	"github.com/jhoicas/inventario-ti/internal/application/usecase"
	"github.com/jhoicas/inventario-ti/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ProductUC   *usecase.ProductUseCase
	InventoryUC *inventory.UseCase
	JWTSecret   string
	ServiceName string
	// Ping verifica el almacenamiento en /health; nil responde siempre ok.
	Ping func(ctx context.Context) error
	// Gatherer expone /metrics; nil lo deshabilita.
	Gatherer prometheus.Gatherer
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if deps.Ping != nil {
			if err := deps.Ping(c.UserContext()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "UNAVAILABLE", Message: err.Error()})
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret), RequireRole())
	writers := RequireRole(jwt.RoleAdmin, jwt.RoleTechnician)
	adminOnly := RequireRole(jwt.RoleAdmin)

	productHandler := NewProductHandler(deps.ProductUC)
	inventoryHandler := NewInventoryHandler(deps.InventoryUC)

	// Catálogo
	products := protected.Group("/products")
	products.Post("/", adminOnly, productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", adminOnly, productHandler.Update)

	// Estado derivado por producto
	products.Get("/:id/status", inventoryHandler.ProductStatus)
	products.Get("/:id/history", inventoryHandler.ProductHistory)
	products.Get("/:id/serials", inventoryHandler.AvailableSerials)
	products.Get("/:id/units", inventoryHandler.Units)
	products.Get("/:id/stock", inventoryHandler.StockLevel)

	// Activos con serial
	assets := protected.Group("/assets")
	assets.Get("/:product_id/:serial/status", inventoryHandler.AssetStatus)
	assets.Get("/:product_id/:serial/history", inventoryHandler.AssetHistory)

	// Libro de movimientos
	inv := protected.Group("/inventory")
	inv.Post("/entries", writers, inventoryHandler.RegisterEntry)
	inv.Post("/assignments", writers, inventoryHandler.Assign)
	inv.Post("/returns", writers, inventoryHandler.Return)
	inv.Post("/stock-outs", writers, inventoryHandler.StockOut)
	inv.Post("/transfers", writers, inventoryHandler.Transfer)
	inv.Post("/decommissions", writers, inventoryHandler.Decommission)
	inv.Post("/repairs", writers, inventoryHandler.SendToRepair)
	inv.Post("/repairs/:id/return", writers, inventoryHandler.ReturnFromRepair)

	// Deshacer
	inv.Get("/undo", inventoryHandler.PendingAction)
	inv.Post("/undo", writers, inventoryHandler.Undo)
	inv.Delete("/undo", writers, inventoryHandler.Undo)
	inv.Delete("/undo/:id", writers, inventoryHandler.UndoAction)

	// Reportes
	inv.Get("/low-stock", inventoryHandler.LowStock)
	inv.Get("/replenishment", inventoryHandler.Replenishment)
}
