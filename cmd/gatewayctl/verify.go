package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/richfrem/sanctuary-gateway/internal/common"
	"github.com/richfrem/sanctuary-gateway/internal/envfile"
	"github.com/richfrem/sanctuary-gateway/internal/provision"
	"github.com/richfrem/sanctuary-gateway/internal/verify"
)

// verifyCmd runs the verification battery against an already-deployed
// gateway: the built-in HTTP checks plus the configured YAML check list.
// A check failure exits with the verification code, not the fatal one.
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run verification checks against the running gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		logger := common.GetLogger().WithComponent("verify")

		token, _, err := envfile.Get(cfg.EnvFile, provision.EnvKey)
		if err != nil {
			return err
		}

		report := verify.Report{
			verify.CheckHealth(ctx, cfg.Verify.BaseURL),
			verify.CheckBearerAuth(ctx, cfg.Verify.BaseURL, token),
		}
		if cfg.Verify.Checks != "" {
			checks, err := verify.LoadChecks(cfg.Verify.Checks)
			if err != nil {
				return err
			}
			report = append(report, verify.RunChecks(ctx, checks)...)
		}

		for _, r := range report {
			if r.Passed {
				logger.WithCheck(r.Name).Info("check passed")
			} else {
				logger.WithCheck(r.Name).Warn("check failed", "detail", r.Detail)
			}
		}
		if !report.Passed() {
			logger.Error("verification failed", "failed", report.Failed())
			exitHandler.Exit(exitVerifyFailed)
			return nil
		}
		fmt.Printf("all %d checks passed\n", len(report))
		return nil
	},
}
