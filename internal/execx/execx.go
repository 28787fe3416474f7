// Package execx runs external commands with captured output and a hard
// timeout. It never reports non-zero exit status as an error; callers decide
// what an exit code means.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/richfrem/sanctuary-gateway/internal/common"
)

// Process failure classes. Callers branch on these with errors.Is.
var (
	ErrProcessTimeout     = errors.New("execx: process timed out")
	ErrProcessNonZeroExit = errors.New("execx: process exited non-zero")
)

// Cmd describes a single external command invocation.
type Cmd struct {
	Name    string
	Args    []string
	Dir     string        // working directory; empty means inherit
	Timeout time.Duration // 0 means no timeout
}

// Result is the outcome of one invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// String renders the command line for progress logs.
func (c Cmd) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Run executes the command and captures stdout/stderr. A non-zero exit is not
// an error; the returned error is reserved for spawn failures (binary missing,
// permission denied). On timeout the child is killed and TimedOut is set with
// exit code 124.
func Run(ctx context.Context, c Cmd) (Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	logger := common.GetLogger().WithComponent("execx")
	logger.Debug("running command", "cmd", c.String(), "dir", c.Dir)

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	if err == nil {
		return res, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.ExitCode = 124
		res.TimedOut = true
		return res, nil
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		res.ExitCode = ee.ExitCode()
		return res, nil
	}

	// Spawn failure: the command never ran.
	res.ExitCode = -1
	return res, err
}

// AsError classifies a completed Result: nil for exit 0, ErrProcessTimeout
// for a killed child, ErrProcessNonZeroExit otherwise. The stderr tail is
// folded into the message for diagnostics.
func (r Result) AsError(c Cmd) error {
	if r.TimedOut {
		return fmt.Errorf("%w: %s", ErrProcessTimeout, c)
	}
	if r.ExitCode != 0 {
		detail := strings.TrimSpace(r.Stderr)
		if detail == "" {
			detail = strings.TrimSpace(r.Stdout)
		}
		return fmt.Errorf("%w: %s: exit %d: %s", ErrProcessNonZeroExit, c, r.ExitCode, detail)
	}
	return nil
}

// LookPath reports whether the named tool is available on PATH.
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
