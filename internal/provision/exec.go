package provision

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/richfrem/sanctuary-gateway/internal/container"
)

// Sentinels the in-container bootstrap helper wraps the raw JWT in so it can
// be picked out of arbitrary script chatter.
var tokenSentinelRe = regexp.MustCompile(`BOOTSTRAP_TOKEN_START:(.*?):BOOTSTRAP_TOKEN_END`)

// ExecConfig drives the original provisioning flow: copy the bootstrap helper
// into the running container, execute it there, and capture the
// sentinel-delimited token it prints.
type ExecConfig struct {
	Container  string `mapstructure:"container"`
	Script     string `mapstructure:"script"`      // local path to the bootstrap helper
	RemotePath string `mapstructure:"remote_path"` // destination inside the container
	TokenName  string `mapstructure:"token_name"`
}

type execProvider struct {
	rt container.Runtime
	c  ExecConfig
}

// NewExecProvider builds the container-exec provider. It is constructed
// directly (not via spec decoding alone) because it needs a live Runtime.
func NewExecProvider(rt container.Runtime, cfg ExecConfig) (Provider, error) {
	if strings.TrimSpace(cfg.Container) == "" || strings.TrimSpace(cfg.Script) == "" {
		return nil, fmt.Errorf("%w: exec provider requires container and script", ErrProvisionFailed)
	}
	if strings.TrimSpace(cfg.RemotePath) == "" {
		cfg.RemotePath = "/tmp/bootstrap_token.py"
	}
	if strings.TrimSpace(cfg.TokenName) == "" {
		cfg.TokenName = defaultTokenName
	}
	return execProvider{rt: rt, c: cfg}, nil
}

func (p execProvider) Acquire(ctx context.Context) (string, error) {
	if _, err := os.Stat(p.c.Script); err != nil {
		return "", fmt.Errorf("bootstrap script not found: %s", p.c.Script)
	}
	if err := p.rt.CopyTo(ctx, p.c.Script, p.c.Container, p.c.RemotePath); err != nil {
		return "", fmt.Errorf("copying bootstrap script: %w", err)
	}
	out, err := p.rt.Exec(ctx, p.c.Container, "python3", p.c.RemotePath, p.c.TokenName)
	if err != nil {
		return "", fmt.Errorf("executing bootstrap script: %w", err)
	}
	return ExtractSentinelToken(out)
}

// ExtractSentinelToken pulls the JWT out of bootstrap helper output.
func ExtractSentinelToken(out string) (string, error) {
	m := tokenSentinelRe.FindStringSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("token sentinels not found in bootstrap output (%d bytes)", len(out))
	}
	return m[1], nil
}
