package runner

import (
	"fmt"
	"strings"
)

// CommandFailedError reports a non-zero exit, a signal, a start failure or a
// cancellation. Tail carries the last output lines for diagnostics.
type CommandFailedError struct {
	Name     string
	ExitCode int
	Signaled bool
	Signal   string
	Tail     []string
	Err      error
}

func newCommandFailed(name string, o Outcome, err error) *CommandFailedError {
	return &CommandFailedError{
		Name:     name,
		ExitCode: o.ExitCode,
		Signaled: o.Signaled,
		Signal:   o.Signal,
		Tail:     o.Tail,
		Err:      err,
	}
}

func (e *CommandFailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s command failed", e.Name)
	switch {
	case e.Signaled:
		fmt.Fprintf(&b, ": terminated by signal %s", e.Signal)
	case e.ExitCode >= 0:
		fmt.Fprintf(&b, ": exit code %d", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *CommandFailedError) Unwrap() error { return e.Err }
