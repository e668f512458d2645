package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"

	"github.com/jhoicas/mantenimiento-api/internal/application/counter"
	"github.com/jhoicas/mantenimiento-api/internal/application/inventory"
	"github.com/jhoicas/mantenimiento-api/internal/application/workorder"
	"github.com/jhoicas/mantenimiento-api/internal/domain/repository"
	infrapdf "github.com/jhoicas/mantenimiento-api/internal/infrastructure/pdf"
	"github.com/jhoicas/mantenimiento-api/internal/infrastructure/postgres"
	"github.com/jhoicas/mantenimiento-api/internal/infrastructure/queue"
	infraredis "github.com/jhoicas/mantenimiento-api/internal/infrastructure/redis"
	"github.com/jhoicas/mantenimiento-api/internal/infrastructure/tracing"
	httpRouter "github.com/jhoicas/mantenimiento-api/internal/interfaces/http"
	"github.com/jhoicas/mantenimiento-api/pkg/config"
	"github.com/jhoicas/mantenimiento-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("counter_backend", cfg.Counter.Backend).
		Msg("iniciando aplicación")

	ctx := context.Background()

	shutdownTracing, err := tracing.Setup(ctx, cfg.App.Name, cfg.Tracing)
	if err != nil {
		log.Fatal().Err(err).Msg("configuración de trazas")
	}

	pool, err := postgres.NewPool(ctx, cfg.DB, log.Component("postgres"))
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migración del esquema")
		}
		log.Info().Msg("esquema aplicado")
	}

	// Consecutivos: Postgres (fila por organización) o Redis (INCR), según COUNTER_BACKEND.
	var counterStore repository.CounterRepository = postgres.NewCounterRepository(pool)
	if cfg.Counter.Backend == config.CounterBackendRedis {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		counterStore = infraredis.NewCounterStore(rdb)
	}
	counterSvc := counter.NewService(counterStore, log.Component("counter"))

	// Eventos hacia el servicio de notificaciones (asynq); sin EVENTS_ENABLED no se publica nada.
	var events workorder.EventPublisher = workorder.NopPublisher{}
	if cfg.Events.Enabled {
		publisher := queue.NewAsynqPublisher(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Events.Queue)
		defer publisher.Close()
		events = publisher
	}

	loc, err := time.LoadLocation(cfg.App.TimeZone)
	if err != nil {
		log.Warn().Err(err).Str("tz", cfg.App.TimeZone).Msg("zona horaria inválida, se usa UTC")
		loc = time.UTC
	}

	txRunner := postgres.NewTxRunner(pool)
	stockRepo := postgres.NewStockRepository(pool)
	movementRepo := postgres.NewStockMovementRepository(pool)
	memberRepo := postgres.NewMemberRepository(pool)
	workOrderRepo := postgres.NewWorkOrderRepository(pool)

	ledger := inventory.NewStockLedger(txRunner, stockRepo, movementRepo, cfg.Ledger.MaxRetries, log.Component("ledger"))
	lifecycle := workorder.NewLifecycle(
		workOrderRepo, memberRepo, counterSvc, events,
		infrapdf.NewMarotoPDFGenerator(loc),
		log.Component("workorder"),
	)
	if cfg.Counter.Backend != config.CounterBackendRedis {
		// Contador y órdenes en la misma base: consecutivo e insert en una transacción, sin huecos.
		lifecycle.WithNumberedCreate(txRunner)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Mantenimiento API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := pool.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:    ledger,
		Lifecycle: lifecycle,
		Members:   memberRepo,
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
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("cierre de trazas")
	}

	log.Info().Msg("aplicación detenida")
}
