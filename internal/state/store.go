// Package state persists the editor integration's global state (flags
// such as whether the MCP server was ever configured) and a log of recent
// notices in a small SQLite database.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Well-known keys.
const (
	KeyMCPConfigured = "linggen.mcpConfigured"
)

// DefaultPath is the database location under the user's config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "linggen", "editor-state.db")
}

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

// Store is a thread-safe wrapper around the state database.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// ============================= LIFECYCLE ==================================

// Open opens (or creates) the database at path, applies PRAGMAs and runs
// pending migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("state: create dir %q: %w", dir, err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("state: open db %q: %w", path, err)
	}

	// Only one writer at a time for SQLite.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("state: set pragma %q: %w", p, err)
		}
	}

	s := &Store{db: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("state: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// ============================ MIGRATIONS ==================================

func (s *Store) migrate() error {
	const createMigTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		applied_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		description TEXT
	)`
	if _, err := s.db.Exec(createMigTable); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range Migrations {
		var exists int
		err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration v%d: %w", m.Version, err)
		}
		if exists > 0 {
			continue
		}

		if _, err := s.db.Exec(m.SQL); err != nil {
			return fmt.Errorf("apply migration v%d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			return fmt.Errorf("record migration v%d: %w", m.Version, err)
		}
	}
	return nil
}

// Version returns the highest applied migration.
func (s *Store) Version(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var v sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("state: schema version: %w", err)
	}
	return int(v.Int64), nil
}

// ========================== KEY / VALUE ===================================

// Get decodes the JSON value stored under key into dst. It reports false
// when the key is absent.
func (s *Store) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("state: get %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

// Set stores v as JSON under key.
func (s *Store) Set(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	const q = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, q, key, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("state: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("state: delete %q: %w", key, err)
	}
	return nil
}

// Bool returns the boolean under key, or def when absent or unreadable.
func (s *Store) Bool(ctx context.Context, key string, def bool) bool {
	var v bool
	ok, err := s.Get(ctx, key, &v)
	if err != nil {
		slog.Warn("state read failed", "key", key, "error", err)
		return def
	}
	if !ok {
		return def
	}
	return v
}

// ============================== NOTICES ===================================

// Notice is one user-facing message.
type Notice struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// maxNotices caps the notices table.
const maxNotices = 500

// AddNotice records n, filling ID and CreatedAt when empty, and trims the
// log to the newest entries.
func (s *Store) AddNotice(ctx context.Context, n Notice) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("state: begin tx (add notice): %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO notices (id, level, message, created_at) VALUES (?, ?, ?, ?)",
		n.ID, n.Level, n.Message, n.CreatedAt,
	); err != nil {
		return fmt.Errorf("state: insert notice: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM notices WHERE id NOT IN
			(SELECT id FROM notices ORDER BY created_at DESC, rowid DESC LIMIT ?)`, maxNotices,
	); err != nil {
		return fmt.Errorf("state: trim notices: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("state: commit notice: %w", err)
	}
	return nil
}

// RecentNotices returns up to limit notices, newest first.
func (s *Store) RecentNotices(ctx context.Context, limit int) ([]Notice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, level, message, created_at FROM notices ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("state: query notices: %w", err)
	}
	defer rows.Close()

	out := make([]Notice, 0, limit)
	for rows.Next() {
		var n Notice
		if err := rows.Scan(&n.ID, &n.Level, &n.Message, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("state: scan notice: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
