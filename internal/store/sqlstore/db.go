// Package sqlstore implements the user and credential stores over database/sql
// for Postgres (pgx) and SQLite (modernc).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/mcpgate/internal/store"
)

const userIDCacheSize = 1024

// DB wraps a sqlx handle with the dialect it talks to and a username → user ID
// cache. User rows are never mutated after creation, so cached IDs never go stale.
type DB struct {
	*sqlx.DB
	driver string
	ids    *lru.Cache[string, string]
	now    func() time.Time
}

// Open connects to the database described by cfg.
func Open(cfg store.StoreConfig) (*DB, error) {
	if cfg.IsPostgres() {
		return OpenPostgres(cfg.PostgresDSN)
	}
	return OpenSQLite(cfg.SQLitePath)
}

// OpenPostgres creates a connection to Postgres using the pgx stdlib driver.
func OpenPostgres(dsn string) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	slog.Info("postgres connected", "dsn_len", len(dsn))
	return wrap(db, "pgx"), nil
}

// OpenSQLite opens (or creates) a SQLite database file.
func OpenSQLite(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single writer avoids SQLITE_BUSY under concurrent upserts.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	slog.Info("sqlite opened", "path", path)
	return wrap(db, "sqlite"), nil
}

func sqliteDSN(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func wrap(db *sql.DB, driver string) *DB {
	ids, _ := lru.New[string, string](userIDCacheSize)
	return &DB{
		DB:     sqlx.NewDb(db, driver),
		driver: driver,
		ids:    ids,
		now:    time.Now,
	}
}

// SetClock overrides the timestamp source. Intended for tests.
func (d *DB) SetClock(now func() time.Time) {
	d.now = now
}

// Driver returns the database/sql driver name ("pgx" or "sqlite").
func (d *DB) Driver() string { return d.driver }

// userID resolves a username to its row ID, consulting the LRU first.
func (d *DB) userID(ctx context.Context, username string) (string, error) {
	if id, ok := d.ids.Get(username); ok {
		return id, nil
	}
	var id string
	err := d.GetContext(ctx, &id, d.Rebind(`SELECT id FROM users WHERE username = ?`), username)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup user %q: %w", username, err)
	}
	d.ids.Add(username, id)
	return id, nil
}
