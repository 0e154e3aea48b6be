package env

import "fmt"

// ErrorKind classifies an EnvResolutionError.
type ErrorKind int

const (
	FileNotFound ErrorKind = iota + 1
	FileUnreadable
	Malformed
	Expansion
)

func (k ErrorKind) String() string {
	switch k {
	case FileNotFound:
		return "env file not found"
	case FileUnreadable:
		return "env file unreadable"
	case Malformed:
		return "malformed env file"
	case Expansion:
		return "variable expansion failed"
	default:
		return "env resolution failed"
	}
}

// EnvResolutionError is returned by Resolve. Path, Variable and Line are set
// when known.
type EnvResolutionError struct {
	Kind     ErrorKind
	Path     string
	Variable string
	Line     int
	Err      error
}

func (e *EnvResolutionError) Error() string {
	msg := e.Kind.String()
	switch {
	case e.Path != "" && e.Line > 0:
		msg += fmt.Sprintf(" (%s:%d)", e.Path, e.Line)
	case e.Path != "":
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Variable != "" {
		msg += fmt.Sprintf(" variable %s", e.Variable)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EnvResolutionError) Unwrap() error { return e.Err }
