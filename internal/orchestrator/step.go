package orchestrator

import (
	"context"
	"fmt"
	"strings"
)

// FailurePolicy decides what a step error does to the run.
type FailurePolicy int

const (
	// PolicyFatal aborts the run; remaining steps are recorded as skipped.
	PolicyFatal FailurePolicy = iota
	// PolicyWarn records the failure and continues with the next step.
	PolicyWarn
)

func (p FailurePolicy) String() string {
	if p == PolicyWarn {
		return "warn-and-continue"
	}
	return "fatal"
}

// Step is one stage of the recreate pipeline.
type Step struct {
	Name   string
	Policy FailurePolicy
	// Retries is the total attempt budget for transient failures; zero or
	// one means a single attempt.
	Retries int
	// Remedy is printed when the step fails fatally.
	Remedy string
	Run    func(ctx context.Context) error
}

// StepStatus is the recorded outcome of one step.
type StepStatus int

const (
	StatusOK StepStatus = iota
	StatusWarned
	StatusFailed
	StatusSkipped
)

func (s StepStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarned:
		return "warned"
	case StatusFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// StepResult pairs a step name with what happened to it.
type StepResult struct {
	Name   string
	Status StepStatus
	Detail string
}

// Outcome is the full record of a pipeline run.
type Outcome struct {
	Steps []StepResult
	// FatalStep names the step that aborted the run, empty on a clean run.
	FatalStep string
	// VerifyFailed is set when deployment succeeded but verification did
	// not; it maps to its own exit code so callers can tell the two apart.
	VerifyFailed bool
}

// Fatal reports whether the run aborted.
func (o *Outcome) Fatal() bool { return o.FatalStep != "" }

// ExitCode maps the outcome onto the process exit contract: 0 clean,
// 1 fatal step failure, 2 deployment fine but verification failed.
func (o *Outcome) ExitCode() int {
	switch {
	case o.Fatal():
		return 1
	case o.VerifyFailed:
		return 2
	default:
		return 0
	}
}

// Summary renders a per-step status table.
func (o *Outcome) Summary() string {
	var b strings.Builder
	width := 0
	for _, r := range o.Steps {
		if len(r.Name) > width {
			width = len(r.Name)
		}
	}
	for _, r := range o.Steps {
		fmt.Fprintf(&b, "  %-*s  %s", width, r.Name, r.Status)
		if r.Detail != "" && r.Status != StatusOK {
			fmt.Fprintf(&b, "  (%s)", firstLine(r.Detail))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
