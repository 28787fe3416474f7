package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/tidwall/gjson"

	"github.com/richfrem/sanctuary-gateway/internal/httpc"
)

// APIConfig drives token issuance through the gateway's own auth API: log in
// with the admin identity, then mint a named API token in the token catalog
// so it shows up in the Admin UI.
type APIConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	Email         string `mapstructure:"email"`
	Password      string `mapstructure:"password"`
	TokenName     string `mapstructure:"token_name"`
	ExpiresInDays int    `mapstructure:"expires_in_days"`
}

const (
	defaultTokenName     = "sanctuary gateway api"
	defaultExpiresInDays = 365
)

type apiProvider struct {
	c APIConfig
}

func newAPIProvider(spec map[string]interface{}) (Provider, error) {
	var cfg APIConfig
	if err := mapstructure.Decode(spec, &cfg); err != nil {
		return nil, fmt.Errorf("%w: decoding api spec: %v", ErrProvisionFailed, err)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" || strings.TrimSpace(cfg.Email) == "" || strings.TrimSpace(cfg.Password) == "" {
		return nil, fmt.Errorf("%w: api provider requires base_url, email and password", ErrProvisionFailed)
	}
	if strings.TrimSpace(cfg.TokenName) == "" {
		cfg.TokenName = defaultTokenName
	}
	if cfg.ExpiresInDays <= 0 {
		cfg.ExpiresInDays = defaultExpiresInDays
	}
	return apiProvider{c: cfg}, nil
}

func (p apiProvider) Acquire(ctx context.Context) (string, error) {
	base := strings.TrimRight(p.c.BaseURL, "/")
	client := httpc.Insecure()

	// 1. Admin login for a short-lived session token.
	loginResp, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"email": p.c.Email, "password": p.c.Password}).
		Post(base + "/auth/email/login")
	if err != nil {
		return "", err
	}
	if loginResp.StatusCode() < 200 || loginResp.StatusCode() >= 300 {
		return "", fmt.Errorf("admin login returned %d", loginResp.StatusCode())
	}
	session := strings.TrimSpace(gjson.GetBytes(loginResp.Body(), "access_token").String())
	if session == "" {
		return "", errors.New("access_token not found in login response")
	}

	// 2. Mint the catalog token owned by the admin identity.
	mintResp, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(session).
		SetBody(map[string]interface{}{
			"name":            p.c.TokenName,
			"description":     "Automated Gateway API Token (gatewayctl)",
			"expires_in_days": p.c.ExpiresInDays,
		}).
		Post(base + "/tokens")
	if err != nil {
		return "", err
	}
	if mintResp.StatusCode() < 200 || mintResp.StatusCode() >= 300 {
		return "", fmt.Errorf("token mint returned %d: %s", mintResp.StatusCode(), mintResp.String())
	}

	body := mintResp.Body()
	for _, field := range []string{"access_token", "token"} {
		if v := strings.TrimSpace(gjson.GetBytes(body, field).String()); v != "" {
			return v, nil
		}
	}
	return "", errors.New("token not found in mint response")
}
