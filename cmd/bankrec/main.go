package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"bankrec-engine/internal/app"
	"bankrec-engine/internal/config"
	"bankrec-engine/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// cli carries the state shared by every subcommand
type cli struct {
	configFile string
	dbPath     string

	cfg      *config.Config
	db       *sql.DB
	services *app.Services
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "bankrec",
		Short: "Import bank statements and reconcile them against the ledger",
		Long: `bankrec imports bank statements (CSV, XLSX, camt.053, CBI fixed-width)
into the configured database, runs the reconciliation rules over them and
manages the ordered rule lists.`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd.Context(), cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.close()
		},
	}

	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default ./bankrec.yaml)")
	root.PersistentFlags().StringVar(&c.dbPath, "db", "", "use the SQLite database at this path instead of the configured one")

	root.AddCommand(
		newMigrateCmd(c),
		newImportCmd(c),
		newReconcileCmd(c),
		newRulesCmd(c),
	)

	return root
}

// open loads config and the database. Logs go to logOut so stdout carries only command output.
func (c *cli) open(ctx context.Context, logOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(c.configFile)
	if err != nil {
		return err
	}
	if c.dbPath != "" {
		cfg.Database.Driver = config.DriverSQLite
		cfg.Database.Path = c.dbPath
	}
	logger.Init(cfg.App.LogLevel, cfg.App.LogFormat)
	logger.GetLogger().SetOutput(logOut)

	db, err := app.OpenDB(ctx, cfg.Database)
	if err != nil {
		return err
	}

	services, err := app.NewServices(cfg, db)
	if err != nil {
		db.Close()
		return err
	}

	c.cfg = cfg
	c.db = db
	c.services = services
	return nil
}

func (c *cli) close() {
	if c.db != nil {
		c.db.Close()
		c.db = nil
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
