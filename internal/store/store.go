// Package store keeps the deployment run history in SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/loykin/contract-deployer/internal/common"
	"github.com/loykin/contract-deployer/internal/retry"
	"github.com/loykin/contract-deployer/internal/store/connector"
	"github.com/loykin/contract-deployer/internal/store/postgresql"
	"github.com/loykin/contract-deployer/internal/store/sqlite"
	"github.com/loykin/contract-deployer/internal/util"
)

const (
	DriverSqlite     = "sqlite"
	DriverPostgresql = "postgresql"

	// DefaultTableName holds one row per pipeline run.
	DefaultTableName = "deployment_runs"
)

type (
	Record         = connector.Record
	Contract       = connector.Contract
	Filter         = connector.Filter
	SqliteConfig   = sqlite.Config
	PostgresConfig = postgresql.Config
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config selects the backend. Exactly one of Sqlite and Postgres is used,
// according to Driver.
type Config struct {
	Driver    string          `mapstructure:"driver"`
	TableName string          `mapstructure:"table_name"`
	Sqlite    *SqliteConfig   `mapstructure:"sqlite"`
	Postgres  *PostgresConfig `mapstructure:"postgres"`
	Retry     *retry.Config   `mapstructure:"-"`
}

// ConfigFromLocation maps a --history-db value to a Config: postgres:// and
// postgresql:// URLs select PostgreSQL, anything else is a SQLite file path.
func ConfigFromLocation(location string) Config {
	location = util.TrimQuotes(location)
	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return Config{Driver: DriverPostgresql, Postgres: &PostgresConfig{DSN: location}}
	}
	return Config{Driver: DriverSqlite, Sqlite: &SqliteConfig{Path: location}}
}

// Store appends and lists run records.
type Store struct {
	db      *sql.DB
	dialect connector.Dialect
	table   string
	retry   *retry.Config
	logger  *common.Logger
}

// Open connects to the configured backend and ensures the schema exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	table := util.TrimWithDefault(cfg.TableName, DefaultTableName)
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("invalid history table name %q", table)
	}

	var (
		dialect connector.Dialect
		dsn     string
	)
	switch util.TrimAndLower(cfg.Driver) {
	case DriverSqlite, "sqlite3", "":
		dialect = sqlite.NewDialect()
		c := cfg.Sqlite
		if c == nil {
			c = &SqliteConfig{}
		}
		if c.Path != "" {
			if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
				return nil, fmt.Errorf("create history directory: %w", err)
			}
		}
		dsn = c.DSN()
	case DriverPostgresql, "postgres", "pg":
		dialect = postgresql.NewDialect()
		if cfg.Postgres == nil {
			return nil, fmt.Errorf("postgresql store requires configuration")
		}
		var err error
		if dsn, err = cfg.Postgres.ConnString(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}

	s := &Store{
		dialect: dialect,
		table:   table,
		retry:   cfg.Retry,
		logger:  common.GetLogger().WithStore(dialect.GetDriverName()),
	}
	if s.retry == nil {
		s.retry = retry.DefaultRetryConfig()
	}

	db, err := retry.Value(ctx, s.retry, "connect", func(context.Context) (*sql.DB, error) {
		return dialect.Connect(dsn)
	})
	if err != nil {
		return nil, err
	}
	s.db = db
	if err := s.Ensure(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Debug("history store ready", "table", table)
	return s, nil
}

// Driver returns the backend name.
func (s *Store) Driver() string {
	return s.dialect.GetDriverName()
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ensure creates the runs table and its index. It is idempotent.
func (s *Store) Ensure(ctx context.Context) error {
	for i, q := range s.dialect.GetEnsureStatements(s.table) {
		err := retry.Do(ctx, s.retry, "ensure schema", func(ctx context.Context) error {
			_, err := s.db.ExecContext(ctx, q)
			return err
		})
		if err != nil {
			s.logger.Error("failed to create schema", "error", err, "statement_index", i+1)
			return fmt.Errorf("failed to ensure history schema (statement %d): %w", i+1, err)
		}
	}
	return nil
}

// Record appends one run.
func (s *Store) Record(ctx context.Context, r Record) error {
	if r.ID == "" {
		return errors.New("run record requires an id")
	}
	warnings, err := json.Marshal(r.Warnings)
	if err != nil {
		return err
	}
	contracts, err := json.Marshal(r.Contracts)
	if err != nil {
		return err
	}

	ph := make([]string, 12)
	for i := range ph {
		ph[i] = s.dialect.GetPlaceholder(i + 1)
	}
	q := fmt.Sprintf("INSERT INTO %s (id, project, network, chain_id, fingerprint, state, commit_hash, error, warnings_json, contracts_json, started_at, finished_at) VALUES (%s)",
		s.table, strings.Join(ph, ", "))
	args := []interface{}{
		r.ID, r.Project, r.Network, r.ChainID, r.Fingerprint, r.State,
		nullString(r.Commit), nullString(r.Error), string(warnings), string(contracts),
		s.dialect.ConvertTimeToStorage(r.StartedAt), s.dialect.ConvertTimeToStorage(r.FinishedAt),
	}

	err = retry.Do(ctx, s.retry, "record run", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, q, args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", r.ID, err)
	}
	s.logger.Debug("run recorded", "run_id", r.ID, "network", r.Network, "state", r.State)
	return nil
}

const selectColumns = "id, project, network, chain_id, fingerprint, state, commit_hash, error, warnings_json, contracts_json, started_at, finished_at"

// List returns runs newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Record, error) {
	q := fmt.Sprintf("SELECT %s FROM %s", selectColumns, s.table)
	var args []interface{}
	if n := strings.TrimSpace(f.Network); n != "" {
		q += " WHERE network = " + s.dialect.GetPlaceholder(1)
		args = append(args, n)
	}
	q += " ORDER BY started_at DESC, id DESC"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	return retry.Value(ctx, s.retry, "list runs", func(ctx context.Context) ([]Record, error) {
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}
		defer func() { _ = rows.Close() }()

		var out []Record
		for rows.Next() {
			r, err := s.scan(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating runs: %w", err)
		}
		return out, nil
	})
}

// Get returns the run with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = %s", selectColumns, s.table, s.dialect.GetPlaceholder(1))
	return retry.Value(ctx, s.retry, "get run", func(ctx context.Context) (Record, error) {
		r, err := s.scan(s.db.QueryRowContext(ctx, q, id))
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return r, err
	})
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scan(row scanner) (Record, error) {
	var (
		r                   Record
		commit, errText     sql.NullString
		warnings, contracts sql.NullString
		started, finished   interface{}
	)
	if err := row.Scan(&r.ID, &r.Project, &r.Network, &r.ChainID, &r.Fingerprint, &r.State,
		&commit, &errText, &warnings, &contracts, &started, &finished); err != nil {
		return Record{}, err
	}
	r.Commit = commit.String
	r.Error = errText.String
	if warnings.Valid && warnings.String != "" {
		if err := json.Unmarshal([]byte(warnings.String), &r.Warnings); err != nil {
			return Record{}, fmt.Errorf("decode warnings of run %s: %w", r.ID, err)
		}
	}
	if contracts.Valid && contracts.String != "" {
		if err := json.Unmarshal([]byte(contracts.String), &r.Contracts); err != nil {
			return Record{}, fmt.Errorf("decode contracts of run %s: %w", r.ID, err)
		}
	}
	var err error
	if r.StartedAt, err = s.dialect.ConvertTimeFromStorage(started); err != nil {
		return Record{}, err
	}
	if r.FinishedAt, err = s.dialect.ConvertTimeFromStorage(finished); err != nil {
		return Record{}, err
	}
	return r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
