package main

import (
	"os"

	"github.com/richfrem/sanctuary-gateway/internal/common"
)

// Exit codes form the CLI contract: scripts driving gatewayctl can tell a
// broken deployment apart from a deployed-but-unverified gateway.
const (
	exitOK           = 0
	exitFatal        = 1
	exitVerifyFailed = 2
)

// ExitHandler is the seam between command logic and process termination so
// tests can assert on exit codes without the process dying.
type ExitHandler interface {
	Exit(code int)
	LogFatalError(err error, msg string, keyvals ...any)
}

type DefaultExitHandler struct {
	logger *common.Logger
}

func NewDefaultExitHandler() *DefaultExitHandler {
	return &DefaultExitHandler{
		logger: common.GetLogger().WithComponent("main"),
	}
}

func (h *DefaultExitHandler) Exit(code int) {
	os.Exit(code)
}

// LogFatalError logs the error and terminates with the fatal exit code.
func (h *DefaultExitHandler) LogFatalError(err error, msg string, keyvals ...any) {
	allKeyvals := append([]any{"error", err}, keyvals...)
	h.logger.Error(msg, allKeyvals...)
	h.Exit(exitFatal)
}

// Global exit handler (replaced in tests)
var exitHandler ExitHandler = NewDefaultExitHandler()
