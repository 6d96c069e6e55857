package main

import (
	"fmt"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/meshcompute/clearing/internal/config"
	"github.com/meshcompute/clearing/internal/constants"
	"github.com/meshcompute/clearing/internal/db"
	"github.com/meshcompute/clearing/internal/events"
	"github.com/meshcompute/clearing/internal/ledger"
	"github.com/meshcompute/clearing/internal/logger"
	"github.com/meshcompute/clearing/pkg/api/v1/handlers"
	"github.com/meshcompute/clearing/pkg/api/v1/routes"
)

func main() {
	// Load .env file if present; a real environment wins over the file
	_ = godotenv.Load()

	logger.InitializeAndConfigure()

	database, err := db.New(db.Options{
		Host:     config.GetEnv(constants.EnvDBHost, db.DefaultHost),
		Port:     config.GetEnvInt(constants.EnvDBPort, db.DefaultPort),
		User:     config.GetEnv(constants.EnvDBUser, db.DefaultUser),
		Password: config.GetEnv(constants.EnvDBPassword, db.DefaultPassword),
		DBName:   config.GetEnv(constants.EnvDBName, db.DefaultDBName),
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	cfg := ledger.DefaultConfig()
	cfg.FeeBps = int64(config.GetEnvInt(constants.EnvFeeBps, int(cfg.FeeBps)))
	cfg.DisputeWindow = config.GetEnvDuration(constants.EnvDisputeWindow, cfg.DisputeWindow)
	cfg.MinClaimReputation = int64(config.GetEnvInt(constants.EnvMinClaimReputation, int(cfg.MinClaimReputation)))
	cfg.Arbiters = config.GetEnvList(constants.EnvArbiters)

	// Lifecycle events are optional; the ledger runs without a broker
	var publisher events.Publisher
	if amqpURL := config.GetEnv(constants.EnvAMQPURL, ""); amqpURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(amqpURL)
		if err != nil {
			logger.Fatalf("Failed to connect to event broker: %v", err)
		}
		defer func() {
			if err := amqpPublisher.Close(); err != nil {
				logger.Errorf("Failed to close event publisher: %v", err)
			}
		}()
		publisher = amqpPublisher
	}

	engine := ledger.New(database, cfg, nil, publisher)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	routes.RegisterRoutes(
		app,
		handlers.NewQueryHandler(engine),
		&handlers.RPCHandler{
			JobHandlers:     handlers.NewJobHandlers(engine),
			DisputeHandlers: handlers.NewDisputeHandlers(engine),
		},
	)

	port := config.GetEnv(constants.EnvServerPort, routes.DefaultPort)
	logger.InfoWithFields("Starting clearing API server", map[string]interface{}{
		"port":           port,
		"fee_bps":        cfg.FeeBps,
		"dispute_window": cfg.DisputeWindow.String(),
		"min_reputation": cfg.MinClaimReputation,
		"arbiters":       len(cfg.Arbiters),
		"events_enabled": publisher != nil,
	})

	if err := app.Listen(fmt.Sprintf(":%s", port)); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
