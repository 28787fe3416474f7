// Package probe polls the gateway health endpoint until it answers 2xx or an
// overall deadline passes. The polling loop is written against injectable
// probe/clock/sleep functions so the timeout behavior is testable without
// real waiting.
package probe

import (
	"context"
	"time"

	"github.com/richfrem/sanctuary-gateway/internal/common"
	"github.com/richfrem/sanctuary-gateway/internal/httpc"
)

// HealthStatus is the outcome of the most recent probe.
type HealthStatus int

const (
	StatusUnknown HealthStatus = iota
	StatusUnreachable
	StatusUnhealthy
	StatusHealthy
)

func (s HealthStatus) String() string {
	switch s {
	case StatusUnreachable:
		return "unreachable"
	case StatusUnhealthy:
		return "unhealthy"
	case StatusHealthy:
		return "healthy"
	default:
		return "unknown"
	}
}

// ProbeFunc performs one health check and returns the HTTP status code.
// A transport-level failure (connection refused, request timeout) is
// reported through err.
type ProbeFunc func(ctx context.Context) (int, error)

const (
	DefaultInterval    = 1 * time.Second
	DefaultMaxDuration = 30 * time.Second
	probeTimeout       = 2 * time.Second
)

// Prober repeatedly invokes Probe at a fixed Interval until success or until
// MaxDuration elapses.
type Prober struct {
	Probe       ProbeFunc
	Interval    time.Duration
	MaxDuration time.Duration

	// Overridable for tests; defaults are the real clock.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Prober that GETs url with a client tolerating the gateway's
// self-signed certificate.
func New(url string) *Prober {
	return &Prober{
		Probe:       HTTPProbe(url),
		Interval:    DefaultInterval,
		MaxDuration: DefaultMaxDuration,
	}
}

// HTTPProbe returns a ProbeFunc issuing an insecure-TLS GET against url.
func HTTPProbe(url string) ProbeFunc {
	return func(ctx context.Context) (int, error) {
		client := httpc.Insecure().SetTimeout(probeTimeout)
		resp, err := client.R().SetContext(ctx).Get(url)
		if err != nil {
			return 0, err
		}
		return resp.StatusCode(), nil
	}
}

// WaitUntilHealthy polls until a 2xx response or until MaxDuration elapses.
// When the deadline passes without success it returns the last observed
// status, never StatusHealthy and never an error: the caller decides
// whether a non-healthy terminal status is fatal.
func (p *Prober) WaitUntilHealthy(ctx context.Context) HealthStatus {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	maxDuration := p.MaxDuration
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	logger := common.GetLogger().WithComponent("probe")
	deadline := now().Add(maxDuration)
	last := StatusUnknown

	for {
		status := classify(p.Probe(ctx))
		if status == StatusHealthy {
			return StatusHealthy
		}
		last = status
		logger.Debug("gateway not ready", "status", status.String())

		if !now().Before(deadline) {
			return last
		}
		if err := sleep(ctx, interval); err != nil {
			return last
		}
	}
}

func classify(code int, err error) HealthStatus {
	switch {
	case err != nil:
		return StatusUnreachable
	case code >= 200 && code < 300:
		return StatusHealthy
	default:
		return StatusUnhealthy
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
