// Package catalog provides direct maintenance access to the gateway's sqlite
// database: listing registered users and API tokens, and removing server
// entries (with their related tools, resources and prompts) when the gateway
// API is not an option, e.g. a wedged instance or a factory reset.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/richfrem/sanctuary-gateway/internal/common"
	"github.com/richfrem/sanctuary-gateway/internal/retry"
)

// ErrDatabaseMissing is returned when the sqlite file does not exist; the
// gateway has to have run at least once before maintenance makes sense.
var ErrDatabaseMissing = errors.New("catalog: database file not found")

const busyTimeoutMS = 5000

// Catalog wraps an open connection to the gateway database.
type Catalog struct {
	db     *sql.DB
	logger *common.Logger
}

// Server is one registered MCP server entry.
type Server struct {
	ID   string
	Name string
}

// Token is one registered API token record.
type Token struct {
	ID          string
	Name        string
	UserEmail   string
	IsActive    bool
	Description string
}

// User is one gateway account.
type User struct {
	Email   string
	IsAdmin bool
}

// Open connects to the gateway sqlite database at path.
func Open(path string) (*Catalog, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseMissing, path)
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_fk=1", path, busyTimeoutMS)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	// The gateway itself may hold the write lock.
	db.SetMaxOpenConns(1)
	return &Catalog{db: db, logger: common.GetLogger().WithComponent("catalog")}, nil
}

// Close releases the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// serverTable resolves the server table name; older gateway schemas used the
// singular form.
func (c *Catalog) serverTable(ctx context.Context) (string, error) {
	for _, name := range []string{"servers", "server"} {
		var found string
		err := c.db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&found)
		if err == nil {
			return found, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("catalog: inspecting schema: %w", err)
		}
	}
	return "", fmt.Errorf("catalog: no server table found")
}

// ListServers returns all registered server entries.
func (c *Catalog) ListServers(ctx context.Context) ([]Server, error) {
	table, err := c.serverTable(ctx)
	if err != nil {
		return nil, err
	}
	var servers []Server
	err = retry.WithRetry(ctx, retry.DefaultConfig(), func() error {
		rows, err := c.db.QueryContext(ctx, "SELECT id, name FROM "+table)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		servers = servers[:0]
		for rows.Next() {
			var s Server
			if err := rows.Scan(&s.ID, &s.Name); err != nil {
				return err
			}
			servers = append(servers, s)
		}
		return rows.Err()
	})
	return servers, err
}

// ListTokens returns all registered API token records.
func (c *Catalog) ListTokens(ctx context.Context) ([]Token, error) {
	var tokens []Token
	err := retry.WithRetry(ctx, retry.DefaultConfig(), func() error {
		rows, err := c.db.QueryContext(ctx,
			"SELECT id, name, user_email, is_active, COALESCE(description, '') FROM email_api_tokens")
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		tokens = tokens[:0]
		for rows.Next() {
			var t Token
			if err := rows.Scan(&t.ID, &t.Name, &t.UserEmail, &t.IsActive, &t.Description); err != nil {
				return err
			}
			tokens = append(tokens, t)
		}
		return rows.Err()
	})
	return tokens, err
}

// ListUsers returns all gateway accounts.
func (c *Catalog) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := retry.WithRetry(ctx, retry.DefaultConfig(), func() error {
		rows, err := c.db.QueryContext(ctx, "SELECT email, is_admin FROM email_users")
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		users = users[:0]
		for rows.Next() {
			var u User
			if err := rows.Scan(&u.Email, &u.IsAdmin); err != nil {
				return err
			}
			users = append(users, u)
		}
		return rows.Err()
	})
	return users, err
}

// relatedTables lists the artifact tables present in this gateway schema.
// The set varies across gateway versions.
func (c *Catalog) relatedTables(ctx context.Context) []string {
	var present []string
	for _, name := range []string{"tools", "resources", "prompts"} {
		var found string
		if err := c.db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&found); err == nil {
			present = append(present, found)
		}
	}
	return present
}

// RemoveServer deletes a named server entry plus tools, resources and prompts
// whose names reference it. Returns the number of deleted server records.
func (c *Catalog) RemoveServer(ctx context.Context, name string) (int64, error) {
	table, err := c.serverTable(ctx)
	if err != nil {
		return 0, err
	}
	related := c.relatedTables(ctx)

	var removed int64
	err = retry.WithRetry(ctx, retry.DefaultConfig(), func() error {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE name = ?", name)
		if err != nil {
			return err
		}
		removed, _ = res.RowsAffected()

		pattern := "%" + name + "%"
		for _, rel := range related {
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf("DELETE FROM %s WHERE name LIKE ?", rel), pattern); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	c.logger.Info("server removed", "server", name, "records", removed)
	return removed, nil
}

// RemoveAllServers wipes every server entry and all related artifacts: the
// factory reset path. Returns the number of deleted server records.
func (c *Catalog) RemoveAllServers(ctx context.Context) (int64, error) {
	table, err := c.serverTable(ctx)
	if err != nil {
		return 0, err
	}
	related := c.relatedTables(ctx)

	var removed int64
	err = retry.WithRetry(ctx, retry.DefaultConfig(), func() error {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx, "DELETE FROM "+table)
		if err != nil {
			return err
		}
		removed, _ = res.RowsAffected()

		for _, rel := range related {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+rel); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	c.logger.Info("all servers removed", "records", removed)
	return removed, nil
}
