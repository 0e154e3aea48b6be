package postgresql

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Dialect implements SQL dialect for PostgreSQL
type Dialect struct{}

// NewDialect creates a new PostgreSQL dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

// GetPlaceholder returns PostgreSQL-style placeholders ($1, $2, etc.)
func (p *Dialect) GetPlaceholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// ConvertTimeToStorage converts time to PostgreSQL storage format (native time.Time)
func (p *Dialect) ConvertTimeToStorage(t time.Time) interface{} {
	return t.UTC()
}

// ConvertTimeFromStorage converts PostgreSQL time storage to time.Time
func (p *Dialect) ConvertTimeFromStorage(val interface{}) (time.Time, error) {
	switch v := val.(type) {
	case time.Time:
		return v.UTC(), nil
	case *time.Time:
		if v == nil {
			return time.Time{}, nil
		}
		return v.UTC(), nil
	case nil:
		return time.Time{}, nil
	}
	return time.Time{}, fmt.Errorf("unexpected postgresql time value %T", val)
}

// Connect establishes a connection to PostgreSQL with connection pooling
func (p *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	// A CLI run needs few connections.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}
	return db, nil
}

// GetEnsureStatements returns PostgreSQL-specific table creation statements
func (p *Dialect) GetEnsureStatements(runs string) []string {
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, project TEXT NOT NULL, network TEXT NOT NULL, chain_id BIGINT NOT NULL, fingerprint TEXT NOT NULL, state TEXT NOT NULL, commit_hash TEXT NULL, error TEXT NULL, warnings_json TEXT NULL, contracts_json TEXT NULL, started_at TIMESTAMPTZ NOT NULL, finished_at TIMESTAMPTZ NOT NULL)", runs),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_network_started_idx ON %s (network, started_at)", runs, runs),
	}
}

// GetDriverName returns the driver name for logging
func (p *Dialect) GetDriverName() string {
	return "postgresql"
}
