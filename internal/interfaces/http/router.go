package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stockflow-api/internal/application/ledger"
	"github.com/jhoicas/stockflow-api/internal/application/replenishment"
	"github.com/jhoicas/stockflow-api/internal/application/scheduler"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger      *ledger.Service
	Requests    *replenishment.RequestService
	Sweeper     *scheduler.Sweeper
	KgPerBag    decimal.Decimal
	JWTSecret   string
	ServiceName string
}

// Grupos de roles por recurso.
var (
	managers    = []string{entity.RoleAdmin, entity.RoleZoneManager, entity.RoleLocationManager}
	stockRoles  = append(append([]string{}, managers...), entity.RoleStaff)
	fleetRoles  = append(append([]string{}, managers...), entity.RoleDriver)
	onSiteRoles = append(append([]string{}, fleetRoles...), entity.RoleStaff)
)

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token con rol)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret), RequireRole())

	// Libro de inventario
	ledgerGroup := protected.Group("/ledger")
	ledgerHandler := NewLedgerHandler(deps.Ledger, deps.KgPerBag)
	ledgerGroup.Post("/receipts", RequireRole(stockRoles...), ledgerHandler.Receive)
	ledgerGroup.Post("/issues", RequireRole(stockRoles...), ledgerHandler.Issue)
	ledgerGroup.Post("/transfers", RequireRole(stockRoles...), ledgerHandler.Transfer)
	ledgerGroup.Post("/waste", RequireRole(stockRoles...), ledgerHandler.Waste)
	ledgerGroup.Post("/returns", RequireRole(stockRoles...), ledgerHandler.Return)
	ledgerGroup.Post("/adjustments", RequireRole(managers...), ledgerHandler.Adjust)
	ledgerGroup.Get("/balance", ledgerHandler.Balance)
	ledgerGroup.Get("/fifo-suggestion", ledgerHandler.FIFOSuggestion)
	ledgerGroup.Get("/conservation", RequireRole(entity.RoleAdmin), ledgerHandler.Conservation)

	// Solicitudes de reposición
	requests := protected.Group("/requests")
	requestHandler := NewRequestHandler(deps.Requests)
	requests.Post("/", RequireRole(stockRoles...), requestHandler.Create)
	requests.Get("/:id", requestHandler.GetByID)
	requests.Post("/:id/accept", RequireRole(fleetRoles...), requestHandler.Accept)
	requests.Post("/:id/cancel", requestHandler.Cancel)
	requests.Post("/:id/trip", RequireRole(fleetRoles...), requestHandler.CreateTrip)
	requests.Post("/:id/start", RequireRole(fleetRoles...), requestHandler.StartDelivery)
	requests.Post("/:id/confirm", RequireRole(onSiteRoles...), requestHandler.ConfirmDelivery)
	requests.Post("/:id/fulfill-remaining", RequireRole(fleetRoles...), requestHandler.FulfillRemaining)

	// Escalamiento (disparo manual)
	escalations := protected.Group("/escalations")
	sweepHandler := NewSweepHandler(deps.Sweeper)
	escalations.Post("/sweep", RequireRole(entity.RoleAdmin), sweepHandler.Run)
}
