package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"

	"github.com/localnerve/jam-build-nodedb/internal/config"
	"github.com/localnerve/jam-build-nodedb/internal/database"
	"github.com/localnerve/jam-build-nodedb/internal/events"
	"github.com/localnerve/jam-build-nodedb/internal/handlers"
	"github.com/localnerve/jam-build-nodedb/internal/logger"
	"github.com/localnerve/jam-build-nodedb/internal/middleware"
	"github.com/localnerve/jam-build-nodedb/internal/services"

	_ "github.com/localnerve/jam-build-nodedb/docs/api" // Swagger docs
)

// @title NodeDB API
// @version 1.0.0
// @description Versioned, soft-deletable hierarchical node store
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/jam-build-nodedb
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLog.Sync()

	// Connect to database
	db, err := database.Connect(cfg, appLog)
	if err != nil {
		appLog.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		appLog.Fatal("Failed to run migrations", "error", err)
	}

	// Change notifications
	publisher := events.NewNoop()
	if cfg.RedisAddr != "" {
		publisher, err = events.NewRedis(appLog, cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			appLog.Fatal("Failed to connect to redis", "error", err)
		}
	}
	defer publisher.Close()

	// Authorizer sessions, initialized on the first authenticated request
	var auth middleware.Authenticator
	if cfg.AuthEnabled() {
		auth = services.NewAuthService(cfg, appLog)
	} else {
		appLog.Warn("AUTHZ_URL not set, node mutations are unauthenticated")
	}

	nodeService := services.NewNodeService(db, appLog, publisher, cfg.SearchMaxTake)
	healthChecker := services.NewHealthChecker(cfg, db, publisher, appLog)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(middleware.RequestID(appLog))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestId} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("nodedb")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	healthHandler := &handlers.HealthHandler{Checker: healthChecker}
	app.Get("/healthz", healthHandler.Health)

	// API routes under /api
	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())

	handlers.RegisterNodeRoutes(api, &handlers.NodeHandler{Service: nodeService, Log: appLog}, auth)

	// 404 handler
	app.Use(handlers.NotFoundHandler)

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		appLog.Info("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	appLog.Info("Starting server", "port", cfg.Port, "dbType", cfg.DBType)
	if err := app.Listen(":" + cfg.Port); err != nil {
		appLog.Fatal("Failed to start server", "error", err)
	}

	appLog.Info("Server stopped")
}
