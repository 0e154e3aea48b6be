package main

import (
	"os"

	deployer "github.com/loykin/contract-deployer"
	"github.com/loykin/contract-deployer/internal/common"
)

// ExitHandler provides a testable way to handle program termination
type ExitHandler interface {
	Exit(code int)
	LogFatalError(err error, msg string, keyvals ...any)
}

// DefaultExitHandler implements ExitHandler for production use
type DefaultExitHandler struct{}

// NewDefaultExitHandler creates a new default exit handler
func NewDefaultExitHandler() *DefaultExitHandler {
	return &DefaultExitHandler{}
}

// Exit terminates the program with the given exit code
func (h *DefaultExitHandler) Exit(code int) {
	os.Exit(code)
}

// LogFatalError logs err and exits with the code its class maps to.
func (h *DefaultExitHandler) LogFatalError(err error, msg string, keyvals ...any) {
	code := deployer.ExitCode(err)
	allKeyvals := append([]any{"error", err, "exit_code", code}, keyvals...)
	// resolved per call: setupLogging replaces the default logger
	common.GetLogger().WithComponent("main").Error(msg, allKeyvals...)
	h.Exit(code)
}

// Global exit handler (can be replaced for testing)
var exitHandler ExitHandler = NewDefaultExitHandler()
