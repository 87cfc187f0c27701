package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/nextlevelbuilder/mcpgate/internal/migrations"
	"github.com/nextlevelbuilder/mcpgate/internal/store"
)

// NewMigrator builds a golang-migrate instance over the embedded schema.
// It owns a dedicated connection: closing the migrator closes that connection.
func NewMigrator(cfg store.StoreConfig) (*migrate.Migrate, error) {
	dialect := "sqlite"
	if cfg.IsPostgres() {
		dialect = "postgres"
	}

	src, err := iofs.New(migrations.FS, migrations.Dir(dialect))
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}

	var (
		db     *sql.DB
		driver database.Driver
	)
	if dialect == "postgres" {
		db, err = sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	} else {
		if cfg.SQLitePath == "" {
			return nil, errors.New("sqlite path is required")
		}
		db, err = sql.Open("sqlite", sqliteDSN(cfg.SQLitePath))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dialect, driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate init: %w", err)
	}
	return m, nil
}

// MigrateUp applies all pending migrations. An up-to-date schema is not an error.
func MigrateUp(cfg store.StoreConfig) (uint, error) {
	m, err := NewMigrator(cfg)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate up: %w", err)
	}
	v, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("migrate version: %w", err)
	}
	if dirty {
		slog.Warn("migrate: schema is dirty", "version", v)
	}
	return v, nil
}
