package provision

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

type staticProvider struct {
	token string
	err   error
}

func (p staticProvider) Acquire(context.Context) (string, error) {
	return p.token, p.err
}

func TestProvision_WritesTokenToEnvFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("PORT=\"4444\"\n"), 0o600); err != nil {
		t.Fatalf("seed env: %v", err)
	}

	token, err := Provision(context.Background(), staticProvider{token: "eyJ.admin.jwt"}, envPath)
	if err != nil {
		t.Fatalf("Provision error: %v", err)
	}
	if token != "eyJ.admin.jwt" {
		t.Fatalf("unexpected token: %q", token)
	}

	data, _ := os.ReadFile(envPath)
	content := string(data)
	if !strings.Contains(content, "PORT=\"4444\"") {
		t.Fatalf("existing PORT line must be untouched:\n%s", content)
	}
	if n := strings.Count(content, EnvKey+"="); n != 1 {
		t.Fatalf("expected exactly one token line, got %d:\n%s", n, content)
	}
}

func TestProvision_EmptyTokenIsMalformed(t *testing.T) {
	_, err := Provision(context.Background(), staticProvider{token: "   "}, filepath.Join(t.TempDir(), ".env"))
	if !errors.Is(err, ErrProvisionFailed) {
		t.Fatalf("expected ErrProvisionFailed, got %v", err)
	}
}

func TestProvision_ProviderErrorWrapped(t *testing.T) {
	_, err := Provision(context.Background(), staticProvider{err: errors.New("boom")}, filepath.Join(t.TempDir(), ".env"))
	if !errors.Is(err, ErrProvisionFailed) {
		t.Fatalf("expected ErrProvisionFailed, got %v", err)
	}
}

func TestRegistry_UnknownType(t *testing.T) {
	r := NewRegistry()
	_, err := r.New("vault", nil)
	if !errors.Is(err, ErrProvisionFailed) {
		t.Fatalf("expected ErrProvisionFailed for unknown type, got %v", err)
	}
}

func TestRegistry_BuiltinsRegistered(t *testing.T) {
	types := NewRegistry().Types()
	want := []string{"api", "oauth2"}
	if len(types) != len(want) {
		t.Fatalf("expected %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, types)
		}
	}
}

func TestAPIProvider_LoginAndMint(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/email/login":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["email"] != "admin@example.com" || body["password"] != "changeme" {
				w.WriteHeader(401)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "session-tok"})
		case "/tokens":
			if r.Header.Get("Authorization") != "Bearer session-tok" {
				w.WriteHeader(401)
				return
			}
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["name"] != "sanctuary gateway api" {
				w.WriteHeader(422)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "eyJ.catalog.jwt"})
		default:
			w.WriteHeader(404)
		}
	}))
	defer srv.Close()

	p, err := NewRegistry().New("api", map[string]interface{}{
		"base_url": srv.URL,
		"email":    "admin@example.com",
		"password": "changeme",
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	token, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if token != "eyJ.catalog.jwt" {
		t.Fatalf("unexpected token: %q", token)
	}
}

func TestAPIProvider_LoginFailure(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
	}))
	defer srv.Close()

	p, err := NewRegistry().New("api", map[string]interface{}{
		"base_url": srv.URL,
		"email":    "admin@example.com",
		"password": "wrong",
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if _, err := p.Acquire(context.Background()); err == nil {
		t.Fatalf("expected error on 401 login")
	}
}

func TestAPIProvider_RequiredFields(t *testing.T) {
	_, err := NewRegistry().New("api", map[string]interface{}{"base_url": "https://localhost:4444"})
	if !errors.Is(err, ErrProvisionFailed) {
		t.Fatalf("expected ErrProvisionFailed for missing creds, got %v", err)
	}
}

func TestExtractSentinelToken(t *testing.T) {
	out := "Assigning token to user: admin@example.com\nBOOTSTRAP_TOKEN_START:eyJ.raw.jwt:BOOTSTRAP_TOKEN_END\n"
	token, err := ExtractSentinelToken(out)
	if err != nil {
		t.Fatalf("extract error: %v", err)
	}
	if token != "eyJ.raw.jwt" {
		t.Fatalf("unexpected token: %q", token)
	}
	if _, err := ExtractSentinelToken("no sentinels here"); err == nil {
		t.Fatalf("expected error when sentinels are missing")
	}
}

func TestOAuth2Provider_RequiredFields(t *testing.T) {
	_, err := NewRegistry().New("oauth2", map[string]interface{}{"token_url": "https://idp/token"})
	if !errors.Is(err, ErrProvisionFailed) {
		t.Fatalf("expected ErrProvisionFailed, got %v", err)
	}
}

func TestOAuth2Provider_PasswordGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("grant_type") != "password" || r.Form.Get("username") != "admin" {
			w.WriteHeader(400)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "idp-token",
			"token_type":   "bearer",
		})
	}))
	defer srv.Close()

	p, err := NewRegistry().New("oauth2", map[string]interface{}{
		"client_id": "gatewayctl",
		"token_url": srv.URL + "/token",
		"username":  "admin",
		"password":  "changeme",
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	token, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if token != "idp-token" {
		t.Fatalf("unexpected token: %q", token)
	}
}
