// Package orchestrator runs the gateway recreate pipeline: a declarative,
// fixed-order step table with per-step failure policies. A run is one-shot;
// no step is ever re-entered once it has completed or failed.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/richfrem/sanctuary-gateway/internal/common"
	"github.com/richfrem/sanctuary-gateway/internal/retry"
	"github.com/richfrem/sanctuary-gateway/internal/verify"
)

const retryDelay = 2 * time.Second

// Orchestrator executes a step table in order.
type Orchestrator struct {
	steps []Step
	// RetryDelay is the pause between attempts of retried steps.
	RetryDelay time.Duration
	logger     *common.Logger
}

func New(steps []Step) *Orchestrator {
	return &Orchestrator{
		steps:      steps,
		RetryDelay: retryDelay,
		logger:     common.GetLogger().WithComponent("orchestrator"),
	}
}

// Run executes every step in order. Fatal failures abort the run and mark
// all remaining steps skipped; warn-policy failures are recorded and the run
// continues. Verification failures are additionally flagged on the outcome
// so the caller can exit distinctly.
func (o *Orchestrator) Run(ctx context.Context) *Outcome {
	out := &Outcome{}
	for i, step := range o.steps {
		log := o.logger.WithStep(step.Name)
		log.Info("step starting", "policy", step.Policy.String())

		err := o.runStep(ctx, step)
		switch {
		case err == nil:
			log.Info("step ok")
			out.Steps = append(out.Steps, StepResult{Name: step.Name, Status: StatusOK})

		case errors.Is(err, ErrStepSkipped):
			log.Info("step skipped", "reason", err.Error())
			out.Steps = append(out.Steps, StepResult{Name: step.Name, Status: StatusSkipped, Detail: err.Error()})

		case step.Policy == PolicyWarn:
			log.Warn("step failed, continuing", "error", err)
			out.Steps = append(out.Steps, StepResult{Name: step.Name, Status: StatusWarned, Detail: err.Error()})
			if errors.Is(err, verify.ErrVerificationFailed) {
				out.VerifyFailed = true
			}

		default:
			log.Error("step failed, aborting", "error", err)
			if step.Remedy != "" {
				log.Error("remediation", "hint", step.Remedy)
			}
			out.Steps = append(out.Steps, StepResult{Name: step.Name, Status: StatusFailed, Detail: err.Error()})
			out.FatalStep = step.Name
			for _, rest := range o.steps[i+1:] {
				out.Steps = append(out.Steps, StepResult{Name: rest.Name, Status: StatusSkipped, Detail: "aborted"})
			}
			return out
		}
	}
	return out
}

func (o *Orchestrator) runStep(ctx context.Context, step Step) error {
	if step.Retries <= 1 {
		return step.Run(ctx)
	}
	return retry.WithRetry(ctx, retry.Fixed(step.Retries, o.RetryDelay), func() error {
		return step.Run(ctx)
	})
}
