package connector

import (
	"database/sql"
	"time"
)

// Contract is a deployed contract as recorded in run history.
type Contract struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
	TxHash  string `json:"tx_hash,omitempty"`
}

// Record is one pipeline run in the deployment_runs table.
type Record struct {
	ID          string
	Project     string
	Network     string
	ChainID     int64
	Fingerprint string
	State       string
	Commit      string
	Error       string
	Warnings    []string
	Contracts   []Contract
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Filter narrows a history listing. Zero values mean no restriction.
type Filter struct {
	Network string
	Limit   int
}

// Dialect hides the SQL differences between the supported backends.
type Dialect interface {
	// GetPlaceholder returns the bind marker for the 1-based argument index.
	GetPlaceholder(index int) string
	ConvertTimeToStorage(t time.Time) interface{}
	ConvertTimeFromStorage(val interface{}) (time.Time, error)
	Connect(dsn string) (*sql.DB, error)
	// GetEnsureStatements returns idempotent DDL for the runs table.
	GetEnsureStatements(runs string) []string
	GetDriverName() string
}
