// Package storage provides the shared database handle used by the catalog,
// conversation, and usage stores. SQLite backs single-instance deployments,
// PostgreSQL multi-instance ones.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Driver name constants after normalization.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB wraps a database/sql handle together with the placeholder-aware
// statement builder the stores share.
type DB struct {
	db      *sql.DB
	driver  string
	builder sq.StatementBuilderType
}

// Open connects to the database, verifies the connection, and runs the
// embedded schema migrations.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	driver = normalizeDriver(driver)
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("dsn is empty")
	}

	db, err := sql.Open(sqlDriverName(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	switch driver {
	case DriverPostgres:
		if err := migratePostgres(db); err != nil {
			_ = db.Close()
			return nil, err
		}
	case DriverSQLite:
		if err := initSQLiteSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite schema: %w", err)
		}
	}

	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		placeholder = sq.Dollar
	}

	return &DB{
		db:      db,
		driver:  driver,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}, nil
}

func migratePostgres(db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// sqlDriverName maps the normalized driver to the name registered with
// database/sql: pgx for PostgreSQL, modernc's sqlite otherwise.
func sqlDriverName(driver string) string {
	if driver == DriverPostgres {
		return "pgx"
	}
	return "sqlite"
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "pgx", "postgresql":
		return DriverPostgres
	case "sqlite", "sqlite3", "":
		return DriverSQLite
	default:
		return strings.ToLower(strings.TrimSpace(driver))
	}
}

// Handle returns the raw *sql.DB.
func (d *DB) Handle() *sql.DB { return d.db }

// Driver returns the normalized driver name.
func (d *DB) Driver() string { return d.driver }

// Builder returns the statement builder with the correct placeholder format
// for the active driver.
func (d *DB) Builder() sq.StatementBuilderType { return d.builder }

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}
