package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/openisp/naps/internal/config"
	"github.com/openisp/naps/internal/database"
	"github.com/openisp/naps/internal/handlers"
	"github.com/openisp/naps/internal/middleware"
	"github.com/openisp/naps/internal/models"
	"github.com/openisp/naps/internal/provision"
	"github.com/openisp/naps/internal/raddb"
	"github.com/openisp/naps/internal/radius"
	"github.com/openisp/naps/internal/security"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := models.AutoMigrate(database.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Credential sealing key for stored OLT passwords
	if err := security.InitializeKey(cfg.EncryptionKey); err != nil || !security.IsKeyValid() {
		log.Println("Warning: NAPS_ENCRYPTION_KEY not set - custom OLT credentials cannot be stored")
	}

	// Seed admin user if not exists
	if err := handlers.SeedAdminUser(); err != nil {
		log.Printf("Warning: admin seed failed: %v", err)
	}

	// Core wiring: schema mapper, wire codec, orchestrator
	mapper := raddb.New(database.DB)
	wire := radius.NewClient(cfg.RadiusHost, cfg.RadiusAuthPort, cfg.RadiusSecret, cfg.RadiusTimeout, cfg.RadiusRetries)
	orch := &provision.Orchestrator{
		DB:          mapper,
		Wire:        wire,
		DialOLT:     handlers.NewOLTDialer(cfg),
		CompanyCode: cfg.CompanyCode,
		Defaults: raddb.PlanDefaults{
			AcctInterimInterval: cfg.PlanAcctInterim,
			IdleTimeout:         cfg.PlanIdleTimeout,
		},
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "NAPS API v1.0",
		ServerHeader: "NAPS",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(middleware.Recovery())
	app.Use(compress.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "naps-api",
		})
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg)
	customerHandler := handlers.NewCustomerHandler(orch)
	planHandler := handlers.NewPlanHandler(orch)
	nasHandler := handlers.NewNasHandler(mapper)
	sessionHandler := handlers.NewSessionHandler(mapper, cfg.PPPoEOnlineWindow)
	oltHandler := handlers.NewOltHandler(orch, cfg)

	// API routes
	api := app.Group("/api")
	api.Use(middleware.RateLimiter(100, 1*time.Minute))

	// Public routes
	api.Post("/auth/login", authHandler.Login)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired(database.DB, cfg))
	protected.Get("/auth/me", authHandler.Me)

	// Customer routes
	customers := protected.Group("/customers")
	customers.Get("/", customerHandler.List)
	customers.Post("/", customerHandler.Create)
	customers.Get("/:username", customerHandler.Get)
	customers.Post("/:username/suspend", customerHandler.Suspend)
	customers.Post("/:username/reactivate", customerHandler.Reactivate)
	customers.Post("/:username/test-auth", customerHandler.TestAuth)
	customers.Delete("/:username", customerHandler.Remove)

	// Plan routes
	plans := protected.Group("/plans", middleware.AdminOnly())
	plans.Post("/sync", planHandler.Sync)
	plans.Get("/:code/attrs", planHandler.Attrs)
	plans.Delete("/:code", planHandler.Remove)

	// NAS routes (Admin only)
	nas := protected.Group("/nas", middleware.AdminOnly())
	nas.Get("/", nasHandler.List)
	nas.Post("/", nasHandler.Upsert)
	nas.Delete("/:nasname", nasHandler.Remove)
	nas.Post("/probe-secret", nasHandler.ProbeSecret)

	// Session routes
	sessions := protected.Group("/sessions")
	sessions.Get("/", sessionHandler.List)
	sessions.Get("/status", sessionHandler.StatusBoard)
	sessions.Get("/status/:username", sessionHandler.PPPoEStatus)
	sessions.Get("/pools", sessionHandler.Pools)
	sessions.Get("/pools/:name", sessionHandler.PoolAddresses)

	// OLT routes
	olts := protected.Group("/olts")
	olts.Get("/", oltHandler.List)
	olts.Post("/", middleware.AdminOnly(), oltHandler.Create)
	olts.Put("/:id", middleware.AdminOnly(), oltHandler.Update)
	olts.Delete("/:id", middleware.AdminOnly(), oltHandler.Delete)
	olts.Get("/:id/discover", oltHandler.Discover)
	olts.Post("/:id/onu", oltHandler.Provision)
	olts.Delete("/:id/onu", oltHandler.DeleteONU)
	olts.Get("/:id/mac/:mac", oltHandler.ShowMac)
	protected.Get("/fiber-core/:core", oltHandler.CoreColor)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		app.Shutdown()
	}()

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	log.Printf("Starting NAPS API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
