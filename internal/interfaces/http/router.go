package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/taller-api/internal/application/auth"
	"github.com/tu-usuario/taller-api/internal/application/reports"
	"github.com/tu-usuario/taller-api/internal/application/session"
	"github.com/tu-usuario/taller-api/internal/domain/repository"
	"github.com/tu-usuario/taller-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Sessions  *session.Manager
	AuthUC    *auth.AuthUseCase
	ReportUC  *reports.ReportUseCase
	Users     repository.UserRepository
	Store     repository.DocumentStore
	Log       *logger.Logger
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Materiales (protegido)
	materials := protected.Group("/materials")
	materialHandler := NewMaterialHandler(deps.Sessions)
	materials.Get("/", materialHandler.List)
	materials.Post("/", materialHandler.Create)
	materials.Get("/:id", materialHandler.GetByID)
	materials.Put("/:id", materialHandler.Update)
	materials.Post("/:id/increase", materialHandler.Increase)
	materials.Post("/:id/decrease", materialHandler.Decrease)
	materials.Delete("/:id", materialHandler.Delete)

	// Productos (protegido)
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.Sessions)
	products.Get("/", productHandler.List)
	products.Post("/", productHandler.Create)
	products.Post("/:id/repeat", productHandler.Repeat)
	products.Post("/:id/cancel", productHandler.Cancel)
	products.Delete("/:id", productHandler.Remove)

	// Ajustes (protegido)
	settingsGroup := protected.Group("/settings")
	settingsHandler := NewSettingsHandler(deps.Sessions)
	settingsGroup.Get("/units", settingsHandler.ListUnits)
	settingsGroup.Post("/units", settingsHandler.AddUnit)
	settingsGroup.Delete("/units/:value", settingsHandler.RemoveUnit)
	settingsGroup.Get("/categories", settingsHandler.ListCategories)
	settingsGroup.Post("/categories", settingsHandler.AddCategory)
	settingsGroup.Delete("/categories/:value", settingsHandler.RemoveCategory)

	// Actividad (protegido)
	activities := protected.Group("/activities")
	activityHandler := NewActivityHandler(deps.Sessions)
	activities.Get("/", activityHandler.List)

	// Informes (protegido)
	reportsGroup := protected.Group("/reports")
	reportHandler := NewReportHandler(deps.Sessions, deps.Users, deps.ReportUC)
	reportsGroup.Get("/inventory", reportHandler.Inventory)

	// Streaming en vivo (protegido)
	streamGroup := protected.Group("/stream")
	streamHandler := NewStreamHandler(deps.Store, deps.Log)
	streamGroup.Get("/:collection", streamHandler.Stream)
}
