package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/richfrem/sanctuary-gateway/internal/envfile"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Read or write the gateway env file",
}

var envGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print the value of KEY from the env file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		v, ok, err := envfile.Get(cfg.EnvFile, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: key %q not set", cfg.EnvFile, args[0])
		}
		fmt.Println(v)
		return nil
	},
}

var envSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set KEY to VALUE in the env file, normalizing quoting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return envfile.Upsert(cfg.EnvFile, args[0], args[1])
	},
}

func init() {
	envCmd.AddCommand(envGetCmd)
	envCmd.AddCommand(envSetCmd)
}
