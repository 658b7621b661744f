package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/tu-usuario/taller-api/internal/application/auth"
	"github.com/tu-usuario/taller-api/internal/application/reports"
	"github.com/tu-usuario/taller-api/internal/application/session"
	"github.com/tu-usuario/taller-api/internal/infrastructure/localcache"
	infrapdf "github.com/tu-usuario/taller-api/internal/infrastructure/pdf"
	"github.com/tu-usuario/taller-api/internal/infrastructure/postgres"
	httpRouter "github.com/tu-usuario/taller-api/internal/interfaces/http"
	"github.com/tu-usuario/taller-api/pkg/config"
	"github.com/tu-usuario/taller-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx, stopSubscriptions := context.WithCancel(context.Background())
	defer stopSubscriptions()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("preparar esquema")
	}

	mirror, err := localcache.NewSQLiteMirror(cfg.Mirror.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir espejo local")
	}

	store := postgres.NewDocumentStore(pool)
	userRepo := postgres.NewUserRepository(pool)
	sessions := session.NewManager(ctx, store, mirror, log)

	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	reportUC := reports.NewReportUseCase(infrapdf.NewMarotoReportGenerator())

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	prometheus := fiberprometheus.New(cfg.App.Name)
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Taller API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		subs := sessions.Health()
		status := "ok"
		if len(subs.Errors) > 0 {
			status = "degraded"
		}
		return c.JSON(fiber.Map{
			"status":        status,
			"service":       cfg.App.Name,
			"subscriptions": subs,
		})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Sessions:  sessions,
		AuthUC:    authUC,
		ReportUC:  reportUC,
		Users:     userRepo,
		Store:     store,
		Log:       log,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	stopSubscriptions()

	log.Info().Msg("aplicación detenida")
}
