package orchestrator

import "errors"

var (
	// ErrToolMissing marks a preflight failure: a required CLI tool is not
	// in PATH.
	ErrToolMissing = errors.New("orchestrator: required tool not found in PATH")

	// ErrHealthTimeout marks a gateway that never reported healthy before
	// the readiness deadline.
	ErrHealthTimeout = errors.New("orchestrator: gateway did not become healthy before the deadline")

	// ErrNetworkAttachFailed marks a failed network connect. Non-fatal:
	// containers started with --network keep working when the explicit
	// attach is unsupported (rootless slirp4netns setups).
	ErrNetworkAttachFailed = errors.New("orchestrator: attaching container to network failed")

	// ErrStepSkipped is returned by a step that deliberately did not run,
	// e.g. live-traffic steps under dry-run.
	ErrStepSkipped = errors.New("orchestrator: step skipped")
)
