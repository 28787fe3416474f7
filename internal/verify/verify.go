// Package verify runs post-deployment checks against the gateway: external
// check scripts plus built-in HTTP probes for bearer auth and tool
// invocation. Checks are independent: one failure never stops the rest.
package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/richfrem/sanctuary-gateway/internal/common"
	"github.com/richfrem/sanctuary-gateway/internal/execx"
)

// ErrVerificationFailed marks a run where deployment succeeded but one or
// more checks did not. Non-fatal at the orchestrator level, but surfaced as a
// distinct exit code.
var ErrVerificationFailed = errors.New("verify: one or more checks failed")

const defaultCheckTimeout = 60 * time.Second

// Check is one externally invokable verification entry point.
type Check struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
	Dir     string   `yaml:"dir,omitempty"`
	Timeout string   `yaml:"timeout,omitempty"` // Go duration string, default 60s
}

// Result is the outcome of a single check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Report aggregates check results.
type Report []Result

// Passed reports whether every check passed.
func (r Report) Passed() bool {
	for _, res := range r {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Failed lists the names of failed checks.
func (r Report) Failed() []string {
	var names []string
	for _, res := range r {
		if !res.Passed {
			names = append(names, res.Name)
		}
	}
	return names
}

// Err converts the report to an error: nil when everything passed.
func (r Report) Err() error {
	if r.Passed() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrVerificationFailed, strings.Join(r.Failed(), ", "))
}

// RunChecks executes every check independently and aggregates the outcomes.
// Checks are read-only probes by contract; the runner mutates nothing.
func RunChecks(ctx context.Context, checks []Check) Report {
	logger := common.GetLogger().WithComponent("verify")
	report := make(Report, 0, len(checks))

	for _, check := range checks {
		result := runOne(ctx, check)
		if result.Passed {
			logger.Info("check passed", "check", result.Name)
		} else {
			logger.Warn("check failed", "check", result.Name, "detail", result.Detail)
		}
		report = append(report, result)
	}
	return report
}

func runOne(ctx context.Context, check Check) Result {
	timeout := defaultCheckTimeout
	if s := strings.TrimSpace(check.Timeout); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			timeout = d
		}
	}

	res, err := execx.Run(ctx, execx.Cmd{
		Name:    check.Command,
		Args:    check.Args,
		Dir:     check.Dir,
		Timeout: timeout,
	})
	if err != nil {
		return Result{Name: check.Name, Passed: false, Detail: fmt.Sprintf("spawn failed: %v", err)}
	}
	if res.TimedOut {
		return Result{Name: check.Name, Passed: false, Detail: fmt.Sprintf("timed out after %s", timeout)}
	}
	if res.ExitCode != 0 {
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = strings.TrimSpace(res.Stdout)
		}
		return Result{Name: check.Name, Passed: false, Detail: fmt.Sprintf("exit %d: %s", res.ExitCode, detail)}
	}
	return Result{Name: check.Name, Passed: true, Detail: strings.TrimSpace(res.Stdout)}
}
