package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/richfrem/sanctuary-gateway/internal/common"
	"github.com/richfrem/sanctuary-gateway/internal/config"
	"github.com/richfrem/sanctuary-gateway/internal/container"
	"github.com/richfrem/sanctuary-gateway/internal/orchestrator"
)

var rootCmd = &cobra.Command{
	Use:   "gatewayctl",
	Short: "Tear down and recreate the MCP gateway container stack",
	Long: "gatewayctl rebuilds the gateway from scratch: teardown, volume and image\n" +
		"recreation, launch, readiness wait, bearer token provisioning and a final\n" +
		"verification pass. Individual stages are also available as subcommands.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		rt := newRuntime(cfg)
		provider, err := buildProvider(cfg, rt)
		if err != nil {
			return err
		}

		pl := orchestrator.NewPipeline(cfg, rt, provider)
		out := orchestrator.New(pl.Steps()).Run(cmd.Context())

		fmt.Println("run summary:")
		fmt.Print(out.Summary())

		if code := out.ExitCode(); code != 0 {
			if out.Fatal() {
				common.GetLogger().Error("recreate failed", "step", out.FatalStep)
			} else {
				common.GetLogger().Warn("deployment succeeded but verification failed")
			}
			exitHandler.Exit(code)
		}
		common.GetLogger().Info("recreate complete", "health", cfg.Health.URL)
		return nil
	},
}

// loadConfig builds the effective configuration from defaults, the optional
// config file, GATEWAYCTL_* environment variables and bound flags, and
// installs the requested log level.
func loadConfig() (*config.Config, error) {
	v := viper.GetViper()
	common.SetDefaultLogger(common.NewLogger(common.ParseLogLevel(v.GetString("log_level"))))
	return config.Load(v)
}

func newRuntime(cfg *config.Config) *container.Podman {
	p := container.NewPodman()
	if cfg.Runtime.Bin != "" {
		p.Bin = cfg.Runtime.Bin
	}
	if cfg.Runtime.Timeout > 0 {
		p.Timeout = cfg.Runtime.Timeout
	}
	p.DryRun = cfg.DryRun
	return p
}

func init() {
	// Defaults
	v := viper.GetViper()
	v.SetDefault("config", "gatewayctl.yaml")
	v.SetDefault("log_level", "info")
	v.SetDefault("dry_run", false)
	v.SetDefault("force", false)

	// Environment variables support: GATEWAYCTL_CONFIG, GATEWAYCTL_LOG_LEVEL, ...
	v.SetEnvPrefix("GATEWAYCTL")
	v.AutomaticEnv()

	rootCmd.PersistentFlags().String("config", v.GetString("config"), "path to a gatewayctl config yaml")
	rootCmd.PersistentFlags().String("log-level", v.GetString("log_level"), "log level (error|warn|info|debug)")
	rootCmd.Flags().Bool("dry-run", v.GetBool("dry_run"), "log external commands without executing them")
	rootCmd.Flags().Bool("force", v.GetBool("force"), "regenerate certs and rebuild images even when present")

	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("dry_run", rootCmd.Flags().Lookup("dry-run"))
	_ = v.BindPFlag("force", rootCmd.Flags().Lookup("force"))

	rootCmd.AddCommand(waitCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(resetPasswordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitHandler.LogFatalError(err, "command execution failed")
	}
}
