package main

import (
	"context"
	"fmt"
	"log"

	_ "bankrec-engine/docs"
	"bankrec-engine/internal/app"
	"bankrec-engine/internal/config"
	"bankrec-engine/internal/handler"
	"bankrec-engine/pkg/logger"
)

// @title Bank Statement Reconciliation API
// @version 1.0
// @description Import bank statements, manage reconciliation rules and review matching results

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.App.LogLevel, cfg.App.LogFormat)
	logger.GetLogger().Info("Starting Bank Statement Reconciliation Service")

	// Connect to database and apply the schema
	db, err := app.OpenDB(context.Background(), cfg.Database)
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	logger.GetLogger().WithField("driver", cfg.Database.Driver).Info("Database connection established")

	services, err := app.NewServices(cfg, db)
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to initialize services")
	}

	router := handler.NewRouter(handler.Handlers{
		Imports:        handler.NewImportHandler(services.Imports),
		Transactions:   handler.NewTransactionHandler(services.Transactions),
		Rules:          handler.NewRuleHandler(services.Rules),
		Reconciliation: handler.NewReconciliationHandler(services.Reconciliation),
	}, cfg.App.MaxUploadMB<<20)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.GetLogger().WithField("address", addr).Info("Server starting")

	if err := router.Run(addr); err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to start server")
	}
}
