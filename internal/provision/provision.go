// Package provision mints a fresh admin bearer token from the running gateway
// and persists it to the environment file. Providers follow a plugin-style
// factory registry so deployments can pick how the token is issued: the
// gateway's own auth API, an exec of the bootstrap helper inside the
// container, or an external OAuth2 identity provider.
package provision

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/richfrem/sanctuary-gateway/internal/common"
	"github.com/richfrem/sanctuary-gateway/internal/envfile"
)

// ErrProvisionFailed covers every provisioning failure: transport errors,
// non-success statuses and malformed payloads. It is always fatal to a run.
var ErrProvisionFailed = errors.New("provision: failed")

// EnvKey is the environment file key the raw token is stored under. No other
// component reads the token value directly; the env store is the authority.
const EnvKey = "MCPGATEWAY_BEARER_TOKEN"

// Provider mints a bearer token scoped to the admin identity.
type Provider interface {
	Acquire(ctx context.Context) (string, error)
}

// Factory builds a Provider from a config spec map.
type Factory func(spec map[string]interface{}) (Provider, error)

// Registry maps provider type names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in providers registered.
func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}}
	r.Register("api", newAPIProvider)
	r.Register("oauth2", newOAuth2Provider)
	return r
}

// Register adds or replaces a provider factory. Type names are
// case-insensitive.
func (r *Registry) Register(typ string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(strings.TrimSpace(typ))] = f
}

// New builds a provider of the given type from its spec.
func (r *Registry) New(typ string, spec map[string]interface{}) (Provider, error) {
	r.mu.RLock()
	f, ok := r.factories[strings.ToLower(strings.TrimSpace(typ))]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider type %q (have %s)",
			ErrProvisionFailed, typ, strings.Join(r.Types(), ", "))
	}
	return f(spec)
}

// Types lists registered provider type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Provision acquires a token from the provider and writes it to the env file
// under EnvKey. Returns the raw token for immediate single-run use.
func Provision(ctx context.Context, p Provider, envPath string) (string, error) {
	logger := common.GetLogger().WithComponent("provision")

	token, err := p.Acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrProvisionFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrProvisionFailed, err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: provider returned an empty token", ErrProvisionFailed)
	}

	if err := envfile.Upsert(envPath, EnvKey, token); err != nil {
		return "", fmt.Errorf("%w: persisting token: %v", ErrProvisionFailed, err)
	}
	logger.Info("bearer token provisioned", "env_key", EnvKey, "token_prefix", common.MaskToken(token))
	return token, nil
}
