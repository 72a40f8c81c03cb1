package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jesses-code-adventures/billing/internal/database"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "migrate",
		Short:       "Manage the database schema",
		Annotations: map[string]string{skipDBAnnotation: "true"},
	}
	cmd.AddCommand(newMigrateUpCmd(a), newMigrateResetCmd(a), newMigrateVersionCmd(a))
	return cmd
}

func requireConfig(a *app) error {
	if a.cfg == nil {
		return errors.New("migrate needs a loaded configuration")
	}
	return nil
}

func newMigrateUpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "up",
		Short:       "Apply pending migrations",
		Annotations: map[string]string{skipDBAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireConfig(a); err != nil {
				return err
			}
			if err := database.RunMigrations(a.cfg); err != nil {
				return err
			}
			fmt.Println("Database is up to date.")
			return nil
		},
	}
}

func newMigrateResetCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop all tables and recreate the schema",
		Long: `Roll back every migration and apply them again on an empty schema.
This permanently deletes all clients, time entries, invoices, payments and expenses.

WARNING: This operation cannot be undone!`,
		Annotations: map[string]string{skipDBAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireConfig(a); err != nil {
				return err
			}
			if !force {
				fmt.Println("WARNING: This will permanently delete all billing data!")
				fmt.Print("Are you sure you want to continue? (y/N): ")
				response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if r := strings.TrimSpace(response); r != "y" && r != "Y" {
					fmt.Println("Database reset cancelled.")
					return nil
				}
			}
			if err := database.ResetDatabase(a.cfg); err != nil {
				return err
			}
			fmt.Printf("Successfully recreated database: %s\n", a.cfg.DatabaseURL)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")
	return cmd
}

func newMigrateVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show the applied schema version",
		Annotations: map[string]string{skipDBAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireConfig(a); err != nil {
				return err
			}
			version, dirty, err := database.MigrationVersion(a.cfg)
			if err != nil {
				return err
			}
			state := "clean"
			if dirty {
				state = "dirty"
			}
			fmt.Printf("Schema version %d (%s)\n", version, state)
			return nil
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "config",
		Short:       "Show the resolved database and invoicing settings",
		Annotations: map[string]string{skipDBAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg == nil {
				return errors.New("config was not loaded")
			}
			a.cfg.Dump()
			return nil
		},
	}
}
