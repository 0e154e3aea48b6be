package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Dialect implements SQL dialect for SQLite
type Dialect struct{}

// NewDialect creates a new SQLite dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

// GetPlaceholder returns SQLite-style placeholders (?)
func (s *Dialect) GetPlaceholder(int) string {
	return "?"
}

// timeLayout keeps a fixed-width fraction so stored text sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ConvertTimeToStorage converts time to SQLite storage format (fixed-width RFC3339 string)
func (s *Dialect) ConvertTimeToStorage(t time.Time) interface{} {
	return t.UTC().Format(timeLayout)
}

// ConvertTimeFromStorage parses the stored RFC3339Nano text
func (s *Dialect) ConvertTimeFromStorage(val interface{}) (time.Time, error) {
	switch v := val.(type) {
	case string:
		return time.Parse(time.RFC3339Nano, v)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(v))
	case time.Time:
		return v.UTC(), nil
	case nil:
		return time.Time{}, nil
	}
	return time.Time{}, fmt.Errorf("unexpected sqlite time value %T", val)
}

// Connect establishes a connection to SQLite with connection pooling
func (s *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	// SQLite-specific configuration (SQLite doesn't support multiple writers)
	db.SetMaxOpenConns(1)                   // SQLite allows only one writer
	db.SetMaxIdleConns(1)                   // Keep one idle connection
	db.SetConnMaxLifetime(10 * time.Minute) // Longer lifetime for SQLite
	db.SetConnMaxIdleTime(5 * time.Minute)  // Longer idle time for SQLite

	return db, nil
}

// GetEnsureStatements returns SQLite-specific table creation statements
func (s *Dialect) GetEnsureStatements(runs string) []string {
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, project TEXT NOT NULL, network TEXT NOT NULL, chain_id INTEGER NOT NULL, fingerprint TEXT NOT NULL, state TEXT NOT NULL, commit_hash TEXT NULL, error TEXT NULL, warnings_json TEXT NULL, contracts_json TEXT NULL, started_at TEXT NOT NULL, finished_at TEXT NOT NULL)", runs),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_network_started_idx ON %s (network, started_at)", runs, runs),
	}
}

// GetDriverName returns the driver name for logging
func (s *Dialect) GetDriverName() string {
	return "sqlite"
}
