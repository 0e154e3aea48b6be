package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/loykin/contract-deployer/internal/common"
)

const (
	// DefaultGracePeriod is the time we wait after SIGTERM before sending SIGKILL.
	DefaultGracePeriod = 5 * time.Second
	// DefaultTailLines is how many trailing output lines a failure carries.
	DefaultTailLines = 20
	// DefaultOutputDrain bounds how long output is still read after the
	// command exits while a background child keeps its stdout or stderr open.
	DefaultOutputDrain = 2 * time.Second
)

// Command is one external process invocation.
type Command struct {
	// Name labels the command in logs and errors (e.g. "setup", "deploy").
	Name string
	Path string
	Args []string
	Dir  string
	// Env is overlaid on the inherited process environment; these values win.
	Env map[string]string
}

// String renders the command line, quoting arguments that need it.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quoteArg(c.Path))
	for _, a := range c.Args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n\"'\\$`|&;<>()*?") {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return s
}

// Shell wraps script in a single "sh -c" invocation. Shell metacharacters in
// script are interpreted; the script comes from operator-controlled config.
func Shell(name, script, dir string, env map[string]string) Command {
	return Command{Name: name, Path: "sh", Args: []string{"-c", script}, Dir: dir, Env: env}
}

// Outcome is the exit status of a finished command.
type Outcome struct {
	ExitCode int
	Signaled bool
	Signal   string
	// Tail holds the last output lines across both streams.
	Tail     []string
	Duration time.Duration
}

// Success reports a zero exit without a signal.
func (o Outcome) Success() bool { return o.ExitCode == 0 && !o.Signaled }

// Runner executes commands and streams their output.
type Runner struct {
	GracePeriod time.Duration
	TailLines   int
	OutputDrain time.Duration
	// BaseEnv supplies the inherited environment; defaults to os.Environ.
	BaseEnv func() []string
	logger  *common.Logger
}

// New returns a Runner with the default grace period and tail size.
func New() *Runner {
	return &Runner{
		GracePeriod: DefaultGracePeriod,
		TailLines:   DefaultTailLines,
		OutputDrain: DefaultOutputDrain,
		BaseEnv:     os.Environ,
		logger:      common.GetLogger().WithComponent("runner"),
	}
}

// Run starts c, streams every stdout/stderr line to sink as it arrives and
// blocks until the process exits. Cancelling ctx terminates the process group
// (SIGTERM, then SIGKILL after GracePeriod). A non-zero exit, a signal or a
// cancellation is returned as *CommandFailedError. Commands are never retried.
func (r *Runner) Run(ctx context.Context, c Command, sink Sink) (Outcome, error) {
	logger := r.log().WithStage(c.Name)
	if sink == nil {
		sink = Discard
	}

	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = mergeEnv(r.baseEnv(), c.Env)
	setProcessGroup(cmd)

	// exec copies from the OS pipes into these writers; WaitDelay stops that
	// copy once the command has exited, even if a background child still
	// holds the write end.
	stdout, stdoutW := io.Pipe()
	stderr, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	cmd.WaitDelay = r.outputDrain()

	logger.Debug("starting command", "command", c.String(), "dir", c.Dir)
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Outcome{ExitCode: -1}, &CommandFailedError{Name: c.Name, ExitCode: -1, Err: fmt.Errorf("start %s: %w", c.Path, err)}
	}

	out := newSerialSink(sink, r.tailLines())
	var g errgroup.Group
	g.Go(func() error { return pump(stdout, Stdout, out) })
	g.Go(func() error { return pump(stderr, Stderr, out) })

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		_ = stdoutW.Close()
		_ = stderrW.Close()
		readErr := g.Wait()
		if errors.Is(err, exec.ErrWaitDelay) {
			logger.Debug("output still held open after exit, stopped reading", "drain", r.outputDrain())
			err = nil
		}
		if err == nil && readErr != nil {
			err = readErr
		}
		waitErr <- err
	}()

	var runErr error
	cancelled := false
	select {
	case runErr = <-waitErr:
	case <-ctx.Done():
		cancelled = true
		logger.Warn("command cancelled, sending SIGTERM", "pid", cmd.Process.Pid)
		if err := terminate(cmd); err != nil {
			logger.Debug("failed to send SIGTERM", "error", err)
		}

		grace := time.NewTimer(r.gracePeriod())
		select {
		case runErr = <-waitErr:
			logger.Info("command exited after SIGTERM")
		case <-grace.C:
			logger.Warn("command did not exit after SIGTERM, sending SIGKILL")
			if err := kill(cmd); err != nil {
				logger.Error("failed to send SIGKILL", "error", err)
			}
			runErr = <-waitErr
		}
		grace.Stop()
	}

	outcome := Outcome{Tail: out.tail(), Duration: time.Since(start)}
	if cmd.ProcessState != nil {
		outcome.ExitCode, outcome.Signaled, outcome.Signal = exitStatus(cmd.ProcessState)
	} else {
		outcome.ExitCode = -1
	}

	switch {
	case cancelled:
		return outcome, newCommandFailed(c.Name, outcome, ctx.Err())
	case runErr != nil:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return outcome, newCommandFailed(c.Name, outcome, nil)
		}
		if outcome.Success() {
			// output could not be read even though the process succeeded
			outcome.ExitCode = -1
		}
		return outcome, newCommandFailed(c.Name, outcome, runErr)
	case !outcome.Success():
		return outcome, newCommandFailed(c.Name, outcome, nil)
	}

	logger.Debug("command finished", "duration", outcome.Duration)
	return outcome, nil
}

func (r *Runner) log() *common.Logger {
	if r.logger == nil {
		return common.GetLogger().WithComponent("runner")
	}
	return r.logger
}

func (r *Runner) baseEnv() []string {
	if r.BaseEnv == nil {
		return os.Environ()
	}
	return r.BaseEnv()
}

func (r *Runner) gracePeriod() time.Duration {
	if r.GracePeriod <= 0 {
		return DefaultGracePeriod
	}
	return r.GracePeriod
}

func (r *Runner) outputDrain() time.Duration {
	if r.OutputDrain <= 0 {
		return DefaultOutputDrain
	}
	return r.OutputDrain
}

func (r *Runner) tailLines() int {
	if r.TailLines <= 0 {
		return DefaultTailLines
	}
	return r.TailLines
}

// mergeEnv overlays vars on base. Later duplicates in base are collapsed and
// every key in vars replaces the inherited value.
func mergeEnv(base []string, vars map[string]string) []string {
	index := make(map[string]int, len(base)+len(vars))
	out := make([]string, 0, len(base)+len(vars))
	set := func(k, kv string) {
		if i, ok := index[k]; ok {
			out[i] = kv
			return
		}
		index[k] = len(out)
		out = append(out, kv)
	}
	for _, kv := range base {
		k, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		set(k, kv)
	}
	for k, v := range vars {
		set(k, k+"="+v)
	}
	return out
}

// pump reads r line by line into sink until EOF.
func pump(r io.Reader, stream Stream, sink *serialSink) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			sink.emit(Line{Stream: stream, Text: strings.TrimRight(line, "\r\n"), Time: time.Now()})
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read %s: %w", stream, err)
		}
	}
}

// serialSink forwards lines to the caller's sink one at a time and keeps the
// trailing lines for diagnostics.
type serialSink struct {
	mu    sync.Mutex
	sink  Sink
	lines []string
	max   int
}

func newSerialSink(sink Sink, max int) *serialSink {
	return &serialSink{sink: sink, max: max}
}

func (s *serialSink) emit(l Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, l.Text)
	if len(s.lines) > s.max {
		s.lines = s.lines[len(s.lines)-s.max:]
	}
	s.sink.Line(l)
}

func (s *serialSink) tail() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}
