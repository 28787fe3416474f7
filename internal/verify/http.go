package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/richfrem/sanctuary-gateway/internal/httpc"
)

// Built-in HTTP probes against the running gateway. These complement the
// script checks: they need no assets on disk and exercise the freshly
// provisioned bearer token end to end.

// CheckHealth probes the unauthenticated health endpoint.
func CheckHealth(ctx context.Context, baseURL string) Result {
	resp, err := httpc.Insecure().R().SetContext(ctx).Get(strings.TrimRight(baseURL, "/") + "/health")
	if err != nil {
		return Result{Name: "health", Passed: false, Detail: err.Error()}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return Result{Name: "health", Passed: false, Detail: fmt.Sprintf("status %d", resp.StatusCode())}
	}
	return Result{Name: "health", Passed: true, Detail: fmt.Sprintf("status %d", resp.StatusCode())}
}

// CheckBearerAuth probes an authenticated endpoint with the provisioned
// token. A 2xx proves the token is registered and authorized.
func CheckBearerAuth(ctx context.Context, baseURL, token string) Result {
	resp, err := httpc.Insecure().R().
		SetContext(ctx).
		SetAuthToken(token).
		Get(strings.TrimRight(baseURL, "/") + "/tools")
	if err != nil {
		return Result{Name: "bearer-auth", Passed: false, Detail: err.Error()}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return Result{Name: "bearer-auth", Passed: false, Detail: fmt.Sprintf("status %d", resp.StatusCode())}
	}
	return Result{Name: "bearer-auth", Passed: true, Detail: fmt.Sprintf("status %d", resp.StatusCode())}
}

// ServerSpec describes a demo MCP server to register for smoke testing.
type ServerSpec struct {
	Name        string `mapstructure:"name"`
	URL         string `mapstructure:"url"`
	Description string `mapstructure:"description"`
}

// RegisterServer registers a demo server through the gateway API so tool
// discovery can be smoke-tested. An already-registered server is a success.
func RegisterServer(ctx context.Context, baseURL, token string, spec ServerSpec) error {
	resp, err := httpc.Insecure().R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"name":        spec.Name,
			"url":         spec.URL,
			"description": spec.Description,
			"tags":        []string{"test:automated"},
		}).
		Post(strings.TrimRight(baseURL, "/") + "/gateways")
	if err != nil {
		return err
	}
	if resp.StatusCode() >= 200 && resp.StatusCode() < 300 {
		return nil
	}
	body := resp.String()
	if resp.StatusCode() == 409 || strings.Contains(body, "already exists") || strings.Contains(body, "Conflict") {
		return nil
	}
	return fmt.Errorf("registering server %s: status %d: %s", spec.Name, resp.StatusCode(), body)
}

// CheckToolInvocation calls a tool through the gateway /rpc endpoint using
// JSON-RPC and asserts the response carries the expected content.
func CheckToolInvocation(ctx context.Context, baseURL, token, tool string, args map[string]interface{}, expect string) Result {
	resp, err := httpc.Insecure().R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "tools/call",
			"params":  map[string]interface{}{"name": tool, "arguments": args},
			"id":      1,
		}).
		Post(strings.TrimRight(baseURL, "/") + "/rpc")
	if err != nil {
		return Result{Name: "tool-invocation", Passed: false, Detail: err.Error()}
	}
	body := resp.String()
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return Result{Name: "tool-invocation", Passed: false, Detail: fmt.Sprintf("status %d: %s", resp.StatusCode(), body)}
	}
	if rpcErr := gjson.Get(body, "error"); rpcErr.Exists() {
		return Result{Name: "tool-invocation", Passed: false, Detail: "rpc error: " + rpcErr.String()}
	}
	if expect != "" && !strings.Contains(body, expect) {
		return Result{Name: "tool-invocation", Passed: false, Detail: fmt.Sprintf("expected %q in response: %s", expect, body)}
	}
	return Result{Name: "tool-invocation", Passed: true, Detail: gjson.Get(body, "result").String()}
}
