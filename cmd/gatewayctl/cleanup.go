package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/richfrem/sanctuary-gateway/internal/catalog"
	"github.com/richfrem/sanctuary-gateway/internal/common"
)

// cleanupCmd removes registered server entries straight from the gateway
// database, together with the tools, resources and prompts they brought in.
// This is the maintenance hatch for servers that were registered during
// automated runs and are no longer reachable.
var cleanupCmd = &cobra.Command{
	Use:   "cleanup [server-name]",
	Short: "Remove registered MCP servers from the gateway database",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		all := viper.GetBool("cleanup_all")
		if len(args) == 0 && !all {
			return fmt.Errorf("name a server to remove, or pass --all")
		}

		c, err := catalog.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()
		logger := common.GetLogger().WithComponent("cleanup")

		if all {
			n, err := c.RemoveAllServers(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("removed all registered servers", "count", n)
			return nil
		}

		n, err := c.RemoveServer(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("no server named %q in %s", args[0], cfg.Database)
		}
		logger.Info("removed server", "name", args[0])
		return nil
	},
}

func init() {
	cleanupCmd.Flags().Bool("all", false, "remove every registered server (factory reset)")
	_ = viper.BindPFlag("cleanup_all", cleanupCmd.Flags().Lookup("all"))
}
