package catalog

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func seedDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcp.db")
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("open seed db: %v", err)
	}
	defer func() { _ = db.Close() }()

	stmts := []string{
		`CREATE TABLE servers (id TEXT PRIMARY KEY, name TEXT)`,
		`CREATE TABLE tools (id TEXT PRIMARY KEY, name TEXT)`,
		`CREATE TABLE resources (id TEXT PRIMARY KEY, name TEXT, uri TEXT)`,
		`CREATE TABLE prompts (id TEXT PRIMARY KEY, name TEXT)`,
		`CREATE TABLE email_users (email TEXT PRIMARY KEY, is_admin INTEGER)`,
		`CREATE TABLE email_api_tokens (id TEXT PRIMARY KEY, name TEXT, user_email TEXT, is_active INTEGER, description TEXT)`,
		`INSERT INTO servers VALUES ('s1', 'hello-world'), ('s2', 'github')`,
		`INSERT INTO tools VALUES ('t1', 'hello-world-say-hello'), ('t2', 'github-list-repos')`,
		`INSERT INTO prompts VALUES ('p1', 'hello-world-greeting')`,
		`INSERT INTO email_users VALUES ('admin@example.com', 1), ('user@example.com', 0)`,
		`INSERT INTO email_api_tokens VALUES ('tok1', 'sanctuary gateway api', 'admin@example.com', 1, 'Automated token')`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed %q: %v", stmt, err)
		}
	}
	return path
}

func TestOpen_MissingDatabase(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.db"))
	if !errors.Is(err, ErrDatabaseMissing) {
		t.Fatalf("expected ErrDatabaseMissing, got %v", err)
	}
}

func TestListServersAndTokens(t *testing.T) {
	c, err := Open(seedDatabase(t))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	servers, err := c.ListServers(ctx)
	if err != nil {
		t.Fatalf("ListServers error: %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(servers))
	}

	tokens, err := c.ListTokens(ctx)
	if err != nil {
		t.Fatalf("ListTokens error: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Name != "sanctuary gateway api" || !tokens[0].IsActive {
		t.Fatalf("unexpected tokens: %+v", tokens)
	}

	users, err := c.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}

func TestRemoveServer_CascadesByName(t *testing.T) {
	c, err := Open(seedDatabase(t))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	removed, err := c.RemoveServer(ctx, "hello-world")
	if err != nil {
		t.Fatalf("RemoveServer error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed server, got %d", removed)
	}

	servers, _ := c.ListServers(ctx)
	if len(servers) != 1 || servers[0].Name != "github" {
		t.Fatalf("unrelated server must survive: %+v", servers)
	}
}

func TestRemoveAllServers(t *testing.T) {
	c, err := Open(seedDatabase(t))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	removed, err := c.RemoveAllServers(ctx)
	if err != nil {
		t.Fatalf("RemoveAllServers error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed servers, got %d", removed)
	}
	servers, _ := c.ListServers(ctx)
	if len(servers) != 0 {
		t.Fatalf("expected empty server table, got %+v", servers)
	}
}

func TestRemoveServer_AbsentNameIsZero(t *testing.T) {
	c, err := Open(seedDatabase(t))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer func() { _ = c.Close() }()

	removed, err := c.RemoveServer(context.Background(), "no-such-server")
	if err != nil {
		t.Fatalf("RemoveServer error: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected 0 removals, got %d", removed)
	}
}

func TestSingularServerTableFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.db")
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("open seed db: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE server (id TEXT PRIMARY KEY, name TEXT)`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO server VALUES ('s1', 'legacy')`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_ = db.Close()

	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer func() { _ = c.Close() }()

	servers, err := c.ListServers(context.Background())
	if err != nil {
		t.Fatalf("ListServers error: %v", err)
	}
	if len(servers) != 1 || servers[0].Name != "legacy" {
		t.Fatalf("expected legacy schema support, got %+v", servers)
	}
}
