package main

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/richfrem/sanctuary-gateway/internal/config"
	"github.com/richfrem/sanctuary-gateway/internal/container"
	"github.com/richfrem/sanctuary-gateway/internal/envfile"
	"github.com/richfrem/sanctuary-gateway/internal/provision"
)

const defaultBootstrapScript = "scripts/bootstrap_token.py"

// buildProvider constructs the configured token provider. Credentials and
// endpoints missing from the provision spec are filled from the env file and
// the gateway config, so a stock checkout needs no provision section at all.
func buildProvider(cfg *config.Config, rt container.Runtime) (provision.Provider, error) {
	typ := strings.ToLower(strings.TrimSpace(cfg.Provision.Type))

	vars, err := envfile.Load(cfg.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", cfg.EnvFile, err)
	}

	spec := map[string]interface{}{}
	for k, v := range cfg.Provision.Spec {
		spec[k] = v
	}

	if typ == "exec" {
		var ec provision.ExecConfig
		if err := mapstructure.Decode(spec, &ec); err != nil {
			return nil, fmt.Errorf("decoding exec provider spec: %w", err)
		}
		if ec.Container == "" {
			ec.Container = cfg.Gateway.Container
		}
		if ec.Script == "" {
			ec.Script = defaultBootstrapScript
		}
		return provision.NewExecProvider(rt, ec)
	}

	fillSpec(spec, "base_url", cfg.Verify.BaseURL)
	fillSpec(spec, "email", vars["PLATFORM_ADMIN_EMAIL"])
	fillSpec(spec, "password", vars["PLATFORM_ADMIN_PASSWORD"])
	return provision.NewRegistry().New(typ, spec)
}

func fillSpec(spec map[string]interface{}, key, value string) {
	if _, ok := spec[key]; !ok && value != "" {
		spec[key] = value
	}
}
