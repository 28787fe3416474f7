package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config holds every knob of the recreate pipeline. All fields have working
// defaults; a config file only overrides what it names.
type Config struct {
	EnvFile  string `mapstructure:"env_file"`
	Database string `mapstructure:"database"`
	DryRun   bool   `mapstructure:"dry_run"`
	Force    bool   `mapstructure:"force"`

	Runtime   Runtime   `mapstructure:"runtime"`
	Gateway   Gateway   `mapstructure:"gateway"`
	Demo      Demo      `mapstructure:"demo"`
	Certs     Certs     `mapstructure:"certs"`
	Health    Health    `mapstructure:"health"`
	Provision Provision `mapstructure:"provision"`
	Verify    Verify    `mapstructure:"verify"`
}

// Runtime configures the container CLI the pipeline shells out to.
type Runtime struct {
	Bin     string        `mapstructure:"bin"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Tools checked during preflight.
	Tools []string `mapstructure:"tools"`
}

// Gateway names the primary container and its build/launch commands. The
// image is built and the container launched through the repository's make
// targets rather than raw podman invocations, matching the upstream workflow.
type Gateway struct {
	Container string `mapstructure:"container"`
	// Aliases are legacy container names also torn down to unlock the volume.
	Aliases   []string `mapstructure:"aliases"`
	Image     string   `mapstructure:"image"`
	Volume    string   `mapstructure:"volume"`
	Network   string   `mapstructure:"network"`
	BuildCmd  []string `mapstructure:"build_cmd"`
	LaunchCmd []string `mapstructure:"launch_cmd"`
}

// Demo configures the optional hello-world MCP server deployed alongside the
// gateway. Skipped with a warning when Context does not exist.
type Demo struct {
	Container string `mapstructure:"container"`
	Image     string `mapstructure:"image"`
	Context   string `mapstructure:"context"`
	Port      string `mapstructure:"port"`
}

// Certs locates the TLS material the gateway serves with and the commands
// that generate it when absent.
type Certs struct {
	SSLCert    string   `mapstructure:"ssl_cert"`
	SSLKey     string   `mapstructure:"ssl_key"`
	JWTPublic  string   `mapstructure:"jwt_public"`
	JWTPrivate string   `mapstructure:"jwt_private"`
	SSLCmd     []string `mapstructure:"ssl_cmd"`
	JWTCmd     []string `mapstructure:"jwt_cmd"`
}

type Health struct {
	URL      string        `mapstructure:"url"`
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Provision selects a token provider by type; Spec is decoded by the
// provider's own factory.
type Provision struct {
	Type string                 `mapstructure:"type"`
	Spec map[string]interface{} `mapstructure:"spec"`
}

type Verify struct {
	BaseURL string `mapstructure:"base_url"`
	// Checks points at an optional YAML check list run after the built-in
	// HTTP verification.
	Checks string `mapstructure:"checks"`
	Tool   string `mapstructure:"tool"`
}

// Default returns the configuration matching a stock gateway checkout.
func Default() *Config {
	return &Config{
		EnvFile:  ".env",
		Database: "data/mcp.db",
		Runtime: Runtime{
			Bin:     "podman",
			Timeout: 5 * time.Minute,
			Tools:   []string{"podman", "openssl", "make"},
		},
		Gateway: Gateway{
			Container: "mcp_gateway",
			Aliases:   []string{"mcpgateway"},
			Image:     "localhost/mcpgateway/mcpgateway:latest",
			Volume:    "mcp_gateway_data",
			Network:   "sanctuary_network",
			BuildCmd:  []string{"make", "podman-build"},
			LaunchCmd: []string{"make", "podman-run-ssl"},
		},
		Demo: Demo{
			Container: "helloworld_mcp",
			Image:     "localhost/helloworld_mcp:latest",
			Context:   "tests/assets/helloworld",
			Port:      "8005:8005",
		},
		Certs: Certs{
			SSLCert:    "certs/cert.pem",
			SSLKey:     "certs/key.pem",
			JWTPublic:  "certs/jwt/public.pem",
			JWTPrivate: "certs/jwt/private.pem",
			SSLCmd:     []string{"make", "certs"},
			JWTCmd:     []string{"make", "certs-jwt"},
		},
		Health: Health{
			URL:      "https://localhost:4444/health",
			Interval: time.Second,
			Timeout:  60 * time.Second,
		},
		Provision: Provision{
			Type: "api",
			Spec: map[string]interface{}{},
		},
		Verify: Verify{
			BaseURL: "https://localhost:4444",
			Tool:    "hello-world-say-hello",
		},
	}
}

// Load decodes v's settings over the defaults. A config file named by the
// "config" key is read first when it exists; a missing file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if path := v.GetString("config"); path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
