package app

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"bankrec-engine/internal/config"
	"bankrec-engine/internal/ledger"
	"bankrec-engine/internal/parser"
	"bankrec-engine/internal/repository"
	"bankrec-engine/internal/service"
	"bankrec-engine/pkg/logger"
)

// Services is the wired application shared by the HTTP server and the CLI
type Services struct {
	Imports        service.ImportService
	Transactions   service.TransactionService
	Rules          service.RuleService
	Reconciliation service.ReconciliationService
}

// OpenDB connects to the configured database and applies the schema
func OpenDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		// one writer; WAL lets readers proceed
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	if err := repository.Migrate(ctx, db, cfg.Driver); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// NewServices builds repositories and services on top of db
func NewServices(cfg *config.Config, db *sql.DB) (*Services, error) {
	profiles, err := parser.LoadProfiles(cfg.App.ProfilesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load bank profiles: %w", err)
	}

	txRepo := repository.NewTransactionRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)

	reconciliation := service.NewReconciliationService(
		txRepo,
		ruleRepo,
		supplierRepo,
		ledger.NewSQLFinder(db, cfg.App.LedgerWindowDays),
		service.ReconciliationOptions{
			AutoMatchThreshold: cfg.App.AutoMatchThreshold,
			Workers:            cfg.App.ClassifyWorkers,
		},
	)

	var reconciler service.Reconciler
	if cfg.App.AutoClassify {
		reconciler = reconciliation
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"driver":        cfg.Database.Driver,
		"auto_classify": cfg.App.AutoClassify,
		"workers":       cfg.App.ClassifyWorkers,
	}).Debug("Services initialized")

	return &Services{
		Imports:        service.NewImportService(txRepo, batchRepo, profiles, reconciler),
		Transactions:   service.NewTransactionService(txRepo),
		Rules:          service.NewRuleService(ruleRepo),
		Reconciliation: reconciliation,
	}, nil
}
