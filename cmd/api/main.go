package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/medadhere/backend/internal/adherence"
	"github.com/medadhere/backend/internal/api/handlers"
	"github.com/medadhere/backend/internal/cache/redis"
	"github.com/medadhere/backend/internal/drugdata"
	"github.com/medadhere/backend/internal/events"
	"github.com/medadhere/backend/internal/identification"
	"github.com/medadhere/backend/internal/ingestiondetect"
	"github.com/medadhere/backend/internal/metrics"
	"github.com/medadhere/backend/internal/middleware/ratelimit"
	"github.com/medadhere/backend/internal/middleware/security"
	"github.com/medadhere/backend/internal/middleware/validation"
	"github.com/medadhere/backend/internal/storage/sqlite"
	"github.com/medadhere/backend/internal/verification"
	"github.com/medadhere/backend/pkg/config"
	appLogger "github.com/medadhere/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting MedAdhere API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
	}

	cacheTTL := time.Duration(cfg.Redis.TTLSec) * time.Second

	var drugClient *drugdata.Client
	if cfg.DrugData.Enabled {
		var drugCache drugdata.Cache
		if redisClient != nil {
			drugCache = redisClient
		}
		drugClient = drugdata.NewClient(
			cfg.DrugData.FDABaseURL,
			cfg.DrugData.RxNormURL,
			cfg.DrugData.TimeoutSec,
			cfg.DrugData.MaxResults,
			drugCache,
			cacheTTL,
		)
	}

	engine := adherence.NewEngine(sqliteClient)
	verifier := verification.NewVerifier(sqliteClient, cfg.Verification.WindowMinutes)
	identifier := identification.NewIdentifier(sqliteClient, cfg.Identification.ConfidenceThreshold)
	detector := ingestiondetect.NewDetector(cfg.Ingestion.ConfidenceThreshold)
	hub := events.NewHub()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	rateLimiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 120,
		Logger:               appLogger.GetLogger(),
	})
	defer rateLimiter.Stop()
	app.Use(rateLimiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		MaxBodySize: cfg.Server.BodyLimit,
		Logger:      appLogger.GetLogger(),
	}))

	adherenceHandler := handlers.NewAdherenceHandler(engine, hub)
	medicationHandler := handlers.NewMedicationHandler(verifier, detector, hub)
	pillHandler := handlers.NewPillHandler(identifier, drugClient)
	adminHandler := handlers.NewAdminHandler(sqliteClient)
	eventsHandler := handlers.NewEventsHandler(hub)

	api := app.Group("/api/v1")

	api.Get("/adherence/report/:patientId", adherenceHandler.GetReport)
	api.Get("/adherence/stats/:patientId", adherenceHandler.GetStats)
	api.Get("/adherence/missed-doses/:patientId", adherenceHandler.GetMissedDoses)
	api.Post("/adherence/alert", adherenceHandler.SendAlert)
	api.Get("/adherence/trends/:patientId", adherenceHandler.GetTrends)
	api.Get("/adherence/doses/:patientId", adherenceHandler.GetRecentDoses)

	api.Post("/medications", medicationHandler.CreateMedication)
	api.Post("/medications/verify", medicationHandler.VerifyPill)
	api.Post("/medications/confirm-ingestion", medicationHandler.ConfirmIngestion)
	api.Get("/medications/schedule/:patientId", medicationHandler.GetSchedule)
	api.Post("/medications/schedule", medicationHandler.AddScheduleEntry)
	api.Delete("/medications/schedule/:patientId/:scheduleId", medicationHandler.RemoveScheduleEntry)

	api.Post("/pills/identify", pillHandler.Identify)
	api.Get("/pills/database", pillHandler.GetDatabase)
	api.Get("/pills/search", pillHandler.Search)
	api.Get("/pills/lookup", pillHandler.Lookup)
	api.Post("/pills/label-scan", pillHandler.ScanLabel)

	api.Post("/admin/clear-data", adminHandler.ClearData)
	api.Post("/admin/pills", adminHandler.AddPill)

	api.Use("/events", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/events/:patientId", websocket.New(eventsHandler.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		if redisClient != nil {
			if err := redisClient.Health(c.Context()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status": "not ready",
					"error":  "redis unavailable",
				})
			}
		}
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
