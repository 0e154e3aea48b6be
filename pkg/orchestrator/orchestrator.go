package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loykin/contract-deployer/internal/broadcast"
	"github.com/loykin/contract-deployer/internal/common"
	"github.com/loykin/contract-deployer/internal/gitrepo"
	"github.com/loykin/contract-deployer/internal/runner"
	"github.com/loykin/contract-deployer/internal/store"
	"github.com/loykin/contract-deployer/pkg/config"
)

// ConfirmFunc is asked once per run, after setup and before deploying.
// Returning false ends the run with ErrDeclined.
type ConfirmFunc func(ctx context.Context, p *config.Plan) (bool, error)

// Options tune an Orchestrator. The zero value is usable.
type Options struct {
	// ForgeBin is the deploy tool; defaults to DefaultForgeBin.
	ForgeBin string
	// KeepWorkdir leaves temporary checkouts on disk.
	KeepWorkdir bool
	Confirm     ConfirmFunc
	// Output receives every subprocess line.
	Output runner.Sink
	// OnEvent observes stage transitions.
	OnEvent func(Event)
}

// Orchestrator drives runs through acquire, setup, deploy and verify.
type Orchestrator struct {
	acquirer Acquirer
	runner   CommandRunner
	history  History
	opts     Options
	logger   *common.Logger
}

// New returns an Orchestrator. history may be nil.
func New(acquirer Acquirer, r CommandRunner, history History, opts Options) *Orchestrator {
	if opts.ForgeBin == "" {
		opts.ForgeBin = DefaultForgeBin
	}
	if opts.Output == nil {
		opts.Output = runner.Discard
	}
	return &Orchestrator{
		acquirer: acquirer,
		runner:   r,
		history:  history,
		opts:     opts,
		logger:   common.GetLogger().WithComponent("orchestrator"),
	}
}

// Run executes plan. The returned Run is never nil. The error is nil for a
// run that reached StateDone, including one whose verification failed; it
// is otherwise the error that failed the run. The temporary checkout is
// released before Run returns, whatever the outcome.
func (o *Orchestrator) Run(ctx context.Context, plan *config.Plan) (run *Run, err error) {
	run = &Run{
		ID:        uuid.NewString(),
		Plan:      plan,
		State:     StateInit,
		StartTime: time.Now(),
	}
	common.GetGlobalMasker().AddSecrets(plan.Secrets()...)

	logger := o.logger.WithRun(run.ID).WithNetwork(plan.Network.Name, plan.Network.ChainID)
	logger.Info("run started", "project", plan.Project.Name, "fingerprint", plan.Fingerprint())

	defer func() {
		o.finish(ctx, run, logger)
	}()

	err = o.execute(ctx, run, logger)
	if err != nil {
		run.State = StateFailed
		run.Err = err
		return run, err
	}
	run.State = StateDone
	return run, nil
}

// RunAll executes plans one after another as independent runs and stops at
// the first failed run.
func (o *Orchestrator) RunAll(ctx context.Context, plans []*config.Plan) ([]*Run, error) {
	runs := make([]*Run, 0, len(plans))
	for _, p := range plans {
		run, err := o.Run(ctx, p)
		runs = append(runs, run)
		if err != nil {
			return runs, err
		}
	}
	return runs, nil
}

func (o *Orchestrator) execute(ctx context.Context, run *Run, logger *common.Logger) error {
	plan := run.Plan

	// acquire
	o.emit(run, Event{Stage: StageAcquire})
	start := time.Now()
	co, err := o.acquirer.Acquire(ctx, gitrepo.Request{
		URL:     plan.RepoURL,
		Ref:     plan.Project.Ref,
		Name:    plan.Project.Name,
		BaseDir: plan.CloneBase,
		Vars:    plan.Env.Lookup,
	})
	o.record(run, StageResult{Stage: StageAcquire, Err: err, StartTime: start, Duration: time.Since(start)})
	if err != nil {
		return err
	}
	run.checkout = co
	run.Workdir = co.Dir
	run.Commit = co.Commit
	if o.opts.KeepWorkdir {
		co.Keep()
	}
	run.State = StateRepoReady

	vars := plan.Env.Vars()

	// setup
	if setup := strings.TrimSpace(plan.Project.SetupCommand); setup != "" {
		if err := o.runStage(ctx, run, StageSetup, runner.Shell(string(StageSetup), setup, co.Dir, vars), logger); err != nil {
			return err
		}
	} else {
		o.record(run, StageResult{Stage: StageSetup, Skipped: true, StartTime: time.Now()})
	}
	run.State = StateSetupDone

	// confirm
	if o.opts.Confirm != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.emit(run, Event{Stage: StageConfirm})
		start := time.Now()
		ok, err := o.opts.Confirm(ctx, plan)
		if err == nil && !ok {
			err = ErrDeclined
		}
		o.record(run, StageResult{Stage: StageConfirm, Err: err, StartTime: start, Duration: time.Since(start)})
		if err != nil {
			logger.Info("deployment not confirmed", "error", err)
			return err
		}
	}

	// deploy
	deploy := runner.Command{Name: string(StageDeploy), Path: o.opts.ForgeBin, Args: DeployArgs(plan), Dir: co.Dir, Env: vars}
	if err := o.runStage(ctx, run, StageDeploy, deploy, logger); err != nil {
		return err
	}
	run.State = StateDeployed
	o.collectContracts(run, logger)

	// verify
	if !plan.Network.Verify {
		o.record(run, StageResult{Stage: StageVerify, Skipped: true, StartTime: time.Now()})
		return nil
	}
	verify := runner.Command{Name: string(StageVerify), Path: o.opts.ForgeBin, Args: VerifyArgs(plan), Dir: co.Dir, Env: vars}
	if err := o.runStage(ctx, run, StageVerify, verify, logger); err != nil {
		if ctx.Err() != nil {
			return err
		}
		warning := &VerificationFailedError{Network: plan.Network.Name, Err: err}
		run.Warnings = append(run.Warnings, warning)
		logger.Warn("verification failed, deployment stands", "error", err)
		return nil
	}
	run.State = StateVerified
	return nil
}

// runStage starts c unless ctx is already done, and records the result.
func (o *Orchestrator) runStage(ctx context.Context, run *Run, stage Stage, c runner.Command, logger *common.Logger) error {
	display := common.MaskSensitiveData(c.String())
	start := time.Now()
	if err := ctx.Err(); err != nil {
		o.record(run, StageResult{Stage: stage, Command: display, Err: err, StartTime: start})
		return err
	}

	o.emit(run, Event{Stage: stage, Command: display})
	logger.WithStage(string(stage)).Info("running command", "command", display, "dir", c.Dir)

	outcome, err := o.runner.Run(ctx, c, o.opts.Output)
	o.record(run, StageResult{
		Stage:     stage,
		Command:   display,
		Outcome:   outcome,
		Err:       err,
		StartTime: start,
		Duration:  time.Since(start),
	})
	return err
}

func (o *Orchestrator) collectContracts(run *Run, logger *common.Logger) {
	scriptFile := config.ScriptFile(run.Plan.ScriptPath)
	contracts, err := broadcast.Latest(run.Workdir, scriptFile, run.Plan.Network.ChainID)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Debug("no broadcast artifact found", "script", scriptFile)
	case err != nil:
		logger.Warn("failed to read broadcast artifact", "error", err)
	default:
		run.Contracts = contracts
		for _, c := range contracts {
			logger.Info("contract deployed", "contract", c.Name, "address", c.Address, "tx", c.TxHash)
		}
	}
}

func (o *Orchestrator) record(run *Run, res StageResult) {
	run.Stages = append(run.Stages, res)
	o.emit(run, Event{Stage: res.Stage, Command: res.Command, Done: true, Skipped: res.Skipped, Err: res.Err})
}

func (o *Orchestrator) emit(run *Run, ev Event) {
	if o.opts.OnEvent == nil {
		return
	}
	ev.RunID = run.ID
	ev.Network = run.Plan.Network.Name
	ev.State = run.State
	o.opts.OnEvent(ev)
}

// finish releases the checkout and appends the run to history. It also runs
// while a panic unwinds.
func (o *Orchestrator) finish(ctx context.Context, run *Run, logger *common.Logger) {
	run.FinishTime = time.Now()
	if run.State != StateDone && run.State != StateFailed {
		run.State = StateFailed
		if run.Err == nil {
			run.Err = errors.New("run aborted")
		}
	}

	if run.checkout != nil {
		if run.checkout.Kept() {
			logger.Info("keeping working directory", "dir", run.checkout.Dir)
		}
		if err := run.checkout.Release(); err != nil {
			logger.Warn("failed to remove working directory", "dir", run.checkout.Dir, "error", err)
		}
	}

	if o.history != nil {
		// recording must survive the cancellation that may have ended the run
		if err := o.history.Record(context.WithoutCancel(ctx), toRecord(run)); err != nil {
			run.Warnings = append(run.Warnings, fmt.Errorf("record history: %w", err))
			logger.Warn("failed to record run history", "error", err)
		}
	}

	logger.Info("run finished",
		"state", run.State,
		"duration", run.FinishTime.Sub(run.StartTime).Round(time.Millisecond),
		"warnings", len(run.Warnings),
		"contracts", len(run.Contracts))
}

func toRecord(run *Run) store.Record {
	r := store.Record{
		ID:          run.ID,
		Project:     run.Plan.Project.Name,
		Network:     run.Plan.Network.Name,
		ChainID:     run.Plan.Network.ChainID,
		Fingerprint: run.Plan.Fingerprint(),
		State:       string(run.State),
		Commit:      run.Commit,
		StartedAt:   run.StartTime,
		FinishedAt:  run.FinishTime,
	}
	if run.Err != nil {
		r.Error = common.MaskSensitiveData(run.Err.Error())
	}
	for _, w := range run.Warnings {
		r.Warnings = append(r.Warnings, common.MaskSensitiveData(w.Error()))
	}
	for _, c := range run.Contracts {
		r.Contracts = append(r.Contracts, store.Contract{Name: c.Name, Address: c.Address, TxHash: c.TxHash})
	}
	return r
}
