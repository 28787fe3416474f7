package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/richfrem/sanctuary-gateway/internal/common"
)

const resetPasswordScript = "setup/reset_password.py"
const resetPasswordRemotePath = "/tmp/reset_password.py"

// resetPasswordCmd runs the in-container password reset helper. The helper
// needs the gateway's own database session, so it must execute inside the
// running container rather than against the database file directly.
var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password EMAIL PASSWORD",
	Short: "Reset a gateway user's password via the in-container helper",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := os.Stat(resetPasswordScript); err != nil {
			return fmt.Errorf("reset helper not found: %s", resetPasswordScript)
		}

		rt := newRuntime(cfg)
		ctx := cmd.Context()
		if err := rt.CopyTo(ctx, resetPasswordScript, cfg.Gateway.Container, resetPasswordRemotePath); err != nil {
			return fmt.Errorf("copying reset helper: %w", err)
		}
		out, err := rt.Exec(ctx, cfg.Gateway.Container, "python3", resetPasswordRemotePath, args[0], args[1])
		if err != nil {
			return fmt.Errorf("resetting password for %s: %w", args[0], err)
		}
		common.GetLogger().Info("password reset", "email", args[0])
		if out != "" {
			fmt.Print(out)
		}
		return nil
	},
}
