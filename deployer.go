// Package deployer runs Foundry deployment scripts against configured
// networks: resolve the configuration, acquire the repository, run the
// setup, deploy and verify commands, and record the outcome.
package deployer

import (
	"context"
	"errors"

	"github.com/loykin/contract-deployer/internal/gitrepo"
	"github.com/loykin/contract-deployer/internal/runner"
	"github.com/loykin/contract-deployer/internal/store"
	"github.com/loykin/contract-deployer/internal/store/sqlite"
	"github.com/loykin/contract-deployer/pkg/config"
	"github.com/loykin/contract-deployer/pkg/env"
	"github.com/loykin/contract-deployer/pkg/orchestrator"
)

// Exit codes of the contract-deployer binary.
const (
	ExitOK         = 0
	ExitUnexpected = 1
	ExitConfig     = 2
	ExitEnv        = 3
	ExitAcquire    = 4
	ExitCommand    = 5
	ExitCancelled  = 130
)

// Re-export commonly used types for public API

type Document = config.Document

type Plan = config.Plan

type PlanOptions = config.PlanOptions

type Run = orchestrator.Run

type Event = orchestrator.Event

type Options = orchestrator.Options

type Orchestrator = orchestrator.Orchestrator

// HistoryStore is the deployment run history.
type HistoryStore = store.Store

// HistoryRecord is one recorded run.
type HistoryRecord = store.Record

// HistoryFilter narrows History listings.
type HistoryFilter = store.Filter

// DefaultHistoryFile is the sqlite file used when no location is given.
const DefaultHistoryFile = sqlite.DefaultFileName

// LoadConfig reads a TOML or YAML deployment file.
func LoadConfig(path string) (*Document, error) { return config.Load(path) }

// BuildPlans resolves one plan per network. An empty networks list selects
// project.network.
func BuildPlans(doc *Document, networks []string, opts PlanOptions) ([]*Plan, error) {
	return config.BuildPlans(doc, networks, opts)
}

// OpenHistory opens the run history at location: a postgres:// URL or a
// sqlite file path.
func OpenHistory(ctx context.Context, location string) (*HistoryStore, error) {
	return store.Open(ctx, store.ConfigFromLocation(location))
}

// NewOrchestrator wires the git acquirer and subprocess runner. history may
// be nil to skip recording.
func NewOrchestrator(history *HistoryStore, opts Options) *Orchestrator {
	var h orchestrator.History
	if history != nil {
		h = history
	}
	return orchestrator.New(gitrepo.NewAcquirer(nil), runner.New(), h, opts)
}

// Deploy loads configPath, builds a plan per network and runs them in order,
// stopping at the first failure.
func Deploy(ctx context.Context, configPath string, networks []string, planOpts PlanOptions, o *Orchestrator) ([]*Run, error) {
	doc, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if planOpts.ProcessEnv == nil {
		planOpts.ProcessEnv = env.ProcessEnv()
	}
	plans, err := BuildPlans(doc, networks, planOpts)
	if err != nil {
		return nil, err
	}
	return o.RunAll(ctx, plans)
}

// ExitCode maps an error returned by this package to a process exit code.
// Cancellation is checked first since a cancelled command also fails.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, orchestrator.ErrDeclined) {
		return ExitCancelled
	}

	var (
		cfgErr *config.ConfigError
		netErr *config.UnknownNetworkError
		envErr *env.EnvResolutionError
		acqErr *gitrepo.AcquisitionError
		cmdErr *runner.CommandFailedError
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &netErr):
		return ExitConfig
	case errors.As(err, &envErr):
		return ExitEnv
	case errors.As(err, &acqErr):
		return ExitAcquire
	case errors.As(err, &cmdErr):
		return ExitCommand
	default:
		return ExitUnexpected
	}
}
