package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jesses-code-adventures/billing/internal/config"
	"github.com/jesses-code-adventures/billing/internal/database"
	"github.com/jesses-code-adventures/billing/internal/logger"
	"github.com/jesses-code-adventures/billing/internal/service"
)

// skipDBAnnotation marks commands that manage the database file themselves.
const skipDBAnnotation = "skip-db"

// app holds what the commands share. It is filled in before any command runs,
// unless a service was injected up front.
type app struct {
	cfg *config.Config
	db  database.DB
	svc *service.BillingService

	dbConn   string
	dbDriver string
	devMode  string
}

func (a *app) init(cmd *cobra.Command) error {
	if a.svc != nil {
		return nil
	}

	cfg, err := config.Load(a.dbConn, a.dbDriver, a.devMode)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg
	if err := logger.Setup(cfg.LogConfig()); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	if cmd.Annotations[skipDBAnnotation] == "true" {
		return nil
	}

	if err := database.RunMigrations(cfg); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	db, err := database.NewDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db
	a.svc = service.NewBillingService(db, cfg)
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db, a.svc = nil, nil
	return err
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "billing",
		Short: "Freelance time billing: invoices, payments, statements and a dashboard",
		Long: `Log time against clients, turn unbilled time into numbered invoices,
record payments against them, and report client statements and income trends.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg == nil {
				return nil
			}
			return a.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.dbConn, "db", "", "Database URL (overrides DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&a.dbDriver, "driver", "", "Database driver: sqlite3, sqlite or libsql (overrides DATABASE_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&a.devMode, "dev", "", "Dev mode: true or false (overrides DEV_MODE)")

	rootCmd.AddCommand(
		newClientsCmd(a),
		newWorkTypesCmd(a),
		newEntriesCmd(a),
		newInvoicesCmd(a),
		newPaymentsCmd(a),
		newExpensesCmd(a),
		newStatementCmd(a),
		newDashboardCmd(a),
		newServeCmd(a),
		newMigrateCmd(a),
		newConfigCmd(a),
	)

	return rootCmd
}
