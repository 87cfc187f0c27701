package cmd

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/mcpgate/internal/store/sqlstore"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(migrateUpCmd())
	cmd.AddCommand(migrateDownCmd())
	cmd.AddCommand(migrateVersionCmd())
	return cmd
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sc := cfg.StoreConfig()
			if err := ensureDBDir(sc); err != nil {
				return err
			}
			v, err := sqlstore.MigrateUp(sc)
			if err != nil {
				return err
			}
			fmt.Printf("Schema at version %d.\n", v)
			return nil
		},
	}
}

func migrateDownCmd() *cobra.Command {
	var (
		steps int
		yes   bool
	)
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (default: one step)",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			if !yes {
				ok, err := promptConfirm(fmt.Sprintf("Roll back %d migration(s)? Data in dropped tables is lost.", steps), false)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Aborted.")
					return nil
				}
			}

			m, err := sqlstore.NewMigrator(cfg.StoreConfig())
			if err != nil {
				return err
			}
			defer m.Close()
			if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("migrate down: %w", err)
			}
			return printMigrateVersion(m)
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func migrateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			m, err := sqlstore.NewMigrator(cfg.StoreConfig())
			if err != nil {
				return err
			}
			defer m.Close()
			return printMigrateVersion(m)
		},
	}
}

func printMigrateVersion(m *migrate.Migrate) error {
	v, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Println("No migrations applied.")
		return nil
	case err != nil:
		return fmt.Errorf("migrate version: %w", err)
	}
	if dirty {
		fmt.Printf("Schema at version %d (dirty).\n", v)
		return nil
	}
	fmt.Printf("Schema at version %d.\n", v)
	return nil
}
