package http

import (
	"github.com/gofiber/fiber/v2"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger    stockLedger
	Lifecycle workOrderLifecycle
	Members   memberChecker
	JWTSecret string
}

// Router registra las rutas de la API. Todas requieren Bearer Token; la organización sale del token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	managers := RequireRole(RoleAdmin, RoleSupervisor)

	// Libro de stock
	inv := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Ledger)
	inv.Get("/stock", inventoryHandler.GetStock)
	inv.Get("/movements", inventoryHandler.ListMovements)
	inv.Post("/reservations", inventoryHandler.Reserve)
	inv.Post("/consumptions", inventoryHandler.Consume)
	inv.Post("/releases", inventoryHandler.Release)
	inv.Post("/adjustments", managers, inventoryHandler.Adjust)
	inv.Post("/transfers", managers, inventoryHandler.Transfer)

	// Órdenes de trabajo
	wo := api.Group("/work-orders")
	woHandler := NewWorkOrderHandler(deps.Lifecycle, deps.Members)
	wo.Post("/", managers, woHandler.Create)
	wo.Get("/", woHandler.List)
	wo.Get("/:id", woHandler.GetByID)
	wo.Patch("/:id", managers, woHandler.Patch)
	wo.Delete("/:id", managers, woHandler.Delete)
	wo.Get("/:id/report", woHandler.Report)
	wo.Post("/:id/start", woHandler.Start)
	wo.Post("/:id/submit", woHandler.Submit)
	wo.Post("/:id/approve", managers, woHandler.Approve)
	wo.Post("/:id/reject", managers, woHandler.Reject)
	wo.Post("/:id/assign", managers, woHandler.Assign)
}
