package orchestrator

import (
	"context"

	"github.com/loykin/contract-deployer/internal/gitrepo"
	"github.com/loykin/contract-deployer/internal/runner"
	"github.com/loykin/contract-deployer/internal/store"
)

//go:generate mockgen -source=deps.go -destination=mock_deps_test.go -package=orchestrator

// Acquirer produces the working tree for a run.
type Acquirer interface {
	Acquire(ctx context.Context, req gitrepo.Request) (*gitrepo.Checkout, error)
}

// CommandRunner executes one external process to completion.
type CommandRunner interface {
	Run(ctx context.Context, c runner.Command, sink runner.Sink) (runner.Outcome, error)
}

// History records finished runs.
type History interface {
	Record(ctx context.Context, r store.Record) error
}
