package verify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunChecks_IndependentExecution(t *testing.T) {
	checks := []Check{
		{Name: "passes", Command: "sh", Args: []string{"-c", "echo ok"}},
		{Name: "fails", Command: "sh", Args: []string{"-c", "echo broken >&2; exit 1"}},
		{Name: "also-passes", Command: "true"},
	}
	report := RunChecks(context.Background(), checks)
	if len(report) != 3 {
		t.Fatalf("every check must run, got %d results", len(report))
	}
	if !report[0].Passed || report[1].Passed || !report[2].Passed {
		t.Fatalf("unexpected outcomes: %+v", report)
	}
	if report[1].Detail != "exit 1: broken" {
		t.Fatalf("failure detail must carry stderr, got %q", report[1].Detail)
	}
	if report.Passed() {
		t.Fatalf("report with a failed check must not pass")
	}
	if got := report.Failed(); len(got) != 1 || got[0] != "fails" {
		t.Fatalf("expected [fails], got %v", got)
	}
}

func TestReport_Err(t *testing.T) {
	passing := Report{{Name: "a", Passed: true}}
	if err := passing.Err(); err != nil {
		t.Fatalf("passing report must have nil error, got %v", err)
	}
	failing := Report{{Name: "a", Passed: false}}
	if err := failing.Err(); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
}

func TestRunChecks_Timeout(t *testing.T) {
	report := RunChecks(context.Background(), []Check{
		{Name: "slow", Command: "sh", Args: []string{"-c", "sleep 10"}, Timeout: "100ms"},
	})
	if report[0].Passed {
		t.Fatalf("timed-out check must fail")
	}
	if !strings.Contains(report[0].Detail, "timed out") {
		t.Fatalf("detail must mention timeout, got %q", report[0].Detail)
	}
}

func TestLoadChecks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checks.yaml")
	content := `checks:
  - name: jwt-auth
    command: python3
    args: ["scripts/verify_jwt_auth.py"]
  - name: blackbox
    command: ./run_blackbox.sh
    dir: tests
    timeout: 2m
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write checks: %v", err)
	}
	checks, err := LoadChecks(path)
	if err != nil {
		t.Fatalf("LoadChecks error: %v", err)
	}
	if len(checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(checks))
	}
	if checks[1].Dir != filepath.Join(dir, "tests") {
		t.Fatalf("relative dir must resolve against the file, got %q", checks[1].Dir)
	}
}

func TestLoadChecks_Validation(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"missing name":    "checks:\n  - command: true\n",
		"missing command": "checks:\n  - name: x\n",
		"duplicate name":  "checks:\n  - name: x\n    command: true\n  - name: x\n    command: true\n",
	}
	for label, content := range cases {
		path := filepath.Join(dir, strings.ReplaceAll(label, " ", "_")+".yaml")
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := LoadChecks(path); err == nil {
			t.Fatalf("%s: expected validation error", label)
		}
	}
}

func newGateway(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	token := "eyJ.valid.jwt"
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(200)
		case "/tools":
			if r.Header.Get("Authorization") != "Bearer "+token {
				w.WriteHeader(401)
				return
			}
			_ = json.NewEncoder(w).Encode([]string{"hello-world-say-hello"})
		case "/gateways":
			if r.Header.Get("Authorization") != "Bearer "+token {
				w.WriteHeader(401)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"name": "hello-world"})
		case "/rpc":
			if r.Header.Get("Authorization") != "Bearer "+token {
				w.WriteHeader(401)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      1,
				"result":  map[string]string{"content": "Hello, SanctuaryUser!"},
			})
		default:
			w.WriteHeader(404)
		}
	}))
	return srv, token
}

func TestHTTPChecks_AgainstFakeGateway(t *testing.T) {
	srv, token := newGateway(t)
	defer srv.Close()
	ctx := context.Background()

	if res := CheckHealth(ctx, srv.URL); !res.Passed {
		t.Fatalf("health check failed: %s", res.Detail)
	}
	if res := CheckBearerAuth(ctx, srv.URL, token); !res.Passed {
		t.Fatalf("bearer-auth check failed: %s", res.Detail)
	}
	if res := CheckBearerAuth(ctx, srv.URL, "wrong"); res.Passed {
		t.Fatalf("bearer-auth must fail with a bad token")
	}
	if err := RegisterServer(ctx, srv.URL, token, ServerSpec{Name: "hello-world", URL: "http://helloworld_mcp:8005/sse"}); err != nil {
		t.Fatalf("RegisterServer error: %v", err)
	}
	res := CheckToolInvocation(ctx, srv.URL, token, "hello-world-say-hello",
		map[string]interface{}{"name": "SanctuaryUser"}, "Hello, SanctuaryUser!")
	if !res.Passed {
		t.Fatalf("tool invocation failed: %s", res.Detail)
	}
}

func TestRegisterServer_ConflictIsSuccess(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(409)
		_, _ = w.Write([]byte(`{"detail": "Conflict: already exists"}`))
	}))
	defer srv.Close()
	if err := RegisterServer(context.Background(), srv.URL, "tok", ServerSpec{Name: "hello-world"}); err != nil {
		t.Fatalf("conflict must be tolerated: %v", err)
	}
}
