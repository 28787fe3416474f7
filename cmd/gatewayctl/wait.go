package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/richfrem/sanctuary-gateway/internal/probe"
)

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait until the gateway health endpoint reports healthy",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p := probe.New(cfg.Health.URL)
		if cfg.Health.Interval > 0 {
			p.Interval = cfg.Health.Interval
		}
		if cfg.Health.Timeout > 0 {
			p.MaxDuration = cfg.Health.Timeout
		}

		status := p.WaitUntilHealthy(cmd.Context())
		if status != probe.StatusHealthy {
			return fmt.Errorf("gateway at %s not healthy within %s (last status: %s)",
				cfg.Health.URL, p.MaxDuration, status)
		}
		fmt.Printf("gateway healthy: %s\n", cfg.Health.URL)
		return nil
	},
}
