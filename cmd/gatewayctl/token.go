package main

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/richfrem/sanctuary-gateway/internal/catalog"
	"github.com/richfrem/sanctuary-gateway/internal/common"
	"github.com/richfrem/sanctuary-gateway/internal/envfile"
	"github.com/richfrem/sanctuary-gateway/internal/provision"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Provision and inspect gateway bearer tokens",
}

var tokenProvisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Acquire a fresh bearer token and persist it to the env file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		provider, err := buildProvider(cfg, newRuntime(cfg))
		if err != nil {
			return err
		}
		token, err := provision.Provision(cmd.Context(), provider, cfg.EnvFile)
		if err != nil {
			return err
		}
		fmt.Printf("token %s written to %s as %s\n", common.MaskToken(token), cfg.EnvFile, provision.EnvKey)
		return nil
	},
}

// tokenShowCmd decodes the persisted token without verifying its signature;
// this tool holds no signing keys and only reports what the token claims.
var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Decode the persisted bearer token and print its claims",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		raw, ok, err := envfile.Get(cfg.EnvFile, provision.EnvKey)
		if err != nil {
			return err
		}
		if !ok || raw == "" {
			return fmt.Errorf("%s: %s not set; run %q first", cfg.EnvFile, provision.EnvKey, "gatewayctl token provision")
		}

		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return fmt.Errorf("decoding token: %w", err)
		}

		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			fmt.Printf("subject:  %s\n", sub)
		}
		if iss, err := claims.GetIssuer(); err == nil && iss != "" {
			fmt.Printf("issuer:   %s\n", iss)
		}
		if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
			fmt.Printf("issued:   %s\n", iat.Format(time.RFC3339))
		}
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			fmt.Printf("expires:  %s", exp.Format(time.RFC3339))
			if exp.Before(time.Now()) {
				fmt.Printf("  (EXPIRED)")
			}
			fmt.Println()
		}
		fmt.Printf("token:    %s\n", common.MaskToken(raw))
		return nil
	},
}

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API tokens registered in the gateway database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := catalog.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		tokens, err := c.ListTokens(cmd.Context())
		if err != nil {
			return err
		}
		if len(tokens) == 0 {
			fmt.Println("no tokens registered")
			return nil
		}
		for _, t := range tokens {
			state := "active"
			if !t.IsActive {
				state = "inactive"
			}
			fmt.Printf("%-30s  %-25s  %-8s  %s\n", t.Name, t.UserEmail, state, t.Description)
		}
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenProvisionCmd)
	tokenCmd.AddCommand(tokenShowCmd)
	tokenCmd.AddCommand(tokenListCmd)
}
