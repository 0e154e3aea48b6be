package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"github.com/loykin/contract-deployer/internal/broadcast"
	"github.com/loykin/contract-deployer/internal/gitrepo"
	"github.com/loykin/contract-deployer/internal/runner"
	"github.com/loykin/contract-deployer/pkg/config"
)

// State is the position of a Run in the pipeline.
type State string

const (
	StateInit      State = "init"
	StateRepoReady State = "repo_ready"
	StateSetupDone State = "setup_done"
	StateDeployed  State = "deployed"
	StateVerified  State = "verified"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Stage names one sequential step of a run.
type Stage string

const (
	StageAcquire Stage = "acquire"
	StageSetup   Stage = "setup"
	StageConfirm Stage = "confirm"
	StageDeploy  Stage = "deploy"
	StageVerify  Stage = "verify"
)

// ErrDeclined is returned when the confirmation hook refuses the deployment.
var ErrDeclined = errors.New("deployment declined")

// VerificationFailedError is the only stage failure that does not fail a run.
// It is recorded in Run.Warnings.
type VerificationFailedError struct {
	Network string
	Err     error
}

func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("verification on %s failed: %v", e.Network, e.Err)
}

func (e *VerificationFailedError) Unwrap() error { return e.Err }

// StageResult records one executed or skipped stage.
type StageResult struct {
	Stage   Stage
	Skipped bool
	// Command is the displayed command line with secrets masked.
	Command   string
	Outcome   runner.Outcome
	Err       error
	StartTime time.Time
	Duration  time.Duration
}

// Success reports whether the stage completed without error.
func (r StageResult) Success() bool { return r.Err == nil }

// Run is one pipeline execution against one network.
type Run struct {
	ID    string
	Plan  *config.Plan
	State State
	// Stages are in execution order.
	Stages    []StageResult
	Warnings  []error
	Contracts []broadcast.Contract
	Workdir   string
	Commit    string
	// Err is the error that moved the run to StateFailed.
	Err        error
	StartTime  time.Time
	FinishTime time.Time

	checkout *gitrepo.Checkout
}

// Succeeded reports a run that reached StateDone.
func (r *Run) Succeeded() bool { return r.State == StateDone }

// Stage returns the result of stage s, if it ran.
func (r *Run) Stage(s Stage) (StageResult, bool) {
	for _, res := range r.Stages {
		if res.Stage == s {
			return res, true
		}
	}
	return StageResult{}, false
}

// KeptWorkdir reports whether the temporary checkout was left on disk.
func (r *Run) KeptWorkdir() bool {
	return r.checkout != nil && r.checkout.Kept()
}

// Event is emitted on every stage boundary.
type Event struct {
	RunID   string
	Network string
	Stage   Stage
	State   State
	// Command is set when a stage starts a process.
	Command string
	// Done is false when the stage starts and true when it ends.
	Done    bool
	Skipped bool
	Err     error
}
