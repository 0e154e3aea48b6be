package config

import (
	"fmt"
	"strings"
)

// ConfigError reports schema or validation problems. All problems found in a
// single pass are listed together.
type ConfigError struct {
	Path     string
	Problems []string
	Err      error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("config error")
	if e.Path != "" {
		b.WriteString(" in ")
		b.WriteString(e.Path)
	}
	if len(e.Problems) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Problems, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// UnknownNetworkError is returned when the requested network is not defined.
type UnknownNetworkError struct {
	Requested string
	Known     []string
}

func (e *UnknownNetworkError) Error() string {
	return fmt.Sprintf("unknown network %q (known: %s)", e.Requested, strings.Join(e.Known, ", "))
}
