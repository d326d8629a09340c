package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"TaskIntake/internal/config"
)

// Dialect captures the SQL differences between supported audit stores.
type Dialect struct {
	Name        string
	driverName  string
	placeholder sq.PlaceholderFormat
	auditDDL    string
}

var (
	Postgres = Dialect{
		Name:        config.DriverPostgres,
		driverName:  "postgres",
		placeholder: sq.Dollar,
		auditDDL: `CREATE TABLE IF NOT EXISTS audit_logs (
    id SERIAL PRIMARY KEY,
    source TEXT,
    input TEXT,
    action TEXT
)`,
	}

	SQLite = Dialect{
		Name:        config.DriverSQLite,
		driverName:  "sqlite",
		placeholder: sq.Question,
		auditDDL: `CREATE TABLE IF NOT EXISTS audit_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT,
    input TEXT,
    action TEXT
)`,
	}
)

// DialectFor resolves a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", config.DriverPostgres, "postgresql":
		return Postgres, nil
	case config.DriverSQLite, "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open connects to the configured audit store and verifies it is reachable.
// The caller owns the returned handle and must Close it.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, Dialect{}, err
	}

	dsn := cfg.ConnectionString()
	if dsn == "" {
		return nil, Dialect{}, fmt.Errorf("%s: empty connection string", dialect.Name)
	}

	db, err := sql.Open(dialect.driverName, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("open %s: %w", dialect.Name, err)
	}

	if dialect.Name == config.DriverSQLite {
		// sqlite allows a single writer; one connection keeps ids strictly ordered
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, Dialect{}, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}

	return db, dialect, nil
}
