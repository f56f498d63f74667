// ABOUTME: Optional relational store for usage and moderation audit rows
// ABOUTME: Uses modernc.org/sqlite; all writes are fire-and-forget for callers
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store wraps the audit database. A nil *Store is valid: every method
// no-ops, so the primary request path never depends on this store existing.
type Store struct {
	conn *sql.DB
}

// UsageRecord is one completed (or failed) proxied request
type UsageRecord struct {
	ID               string
	SessionID        string
	Mode             string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Status           string
	Cached           bool
	ResponseTimeMs   int64
	CreatedAt        time.Time
}

// ModerationRecord is the persisted summary of one verdict
type ModerationRecord struct {
	ID          string
	SessionID   string
	ContentType string
	Approved    bool
	Reason      string
	Excerpt     string
	CreatedAt   time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS usage_log (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	mode TEXT NOT NULL,
	model TEXT NOT NULL,
	prompt_tokens INTEGER DEFAULT 0,
	completion_tokens INTEGER DEFAULT 0,
	status TEXT NOT NULL,
	cached INTEGER DEFAULT 0,
	response_time_ms INTEGER DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_usage_session ON usage_log(session_id);

CREATE TABLE IF NOT EXISTS moderation_log (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	content_type TEXT NOT NULL,
	approved INTEGER NOT NULL,
	reason TEXT,
	excerpt TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_moderation_session ON moderation_log(session_id);
`

// Open opens or creates the audit database at the given path
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// OpenInMemory creates an in-memory audit store (for testing)
func OpenInMemory() (*Store, error) {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory audit database: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// RecordUsage inserts a usage row. Missing IDs and timestamps are filled in.
func (s *Store) RecordUsage(rec UsageRecord) error {
	if s == nil {
		return nil
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := s.conn.Exec(
		`INSERT INTO usage_log (id, session_id, mode, model, prompt_tokens, completion_tokens, status, cached, response_time_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.Mode, rec.Model,
		rec.PromptTokens, rec.CompletionTokens, rec.Status,
		boolToInt(rec.Cached), rec.ResponseTimeMs, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}
	return nil
}

// RecordModeration inserts a moderation audit row
func (s *Store) RecordModeration(rec ModerationRecord) error {
	if s == nil {
		return nil
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := s.conn.Exec(
		`INSERT INTO moderation_log (id, session_id, content_type, approved, reason, excerpt, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.ContentType,
		boolToInt(rec.Approved), rec.Reason, rec.Excerpt, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert moderation record: %w", err)
	}
	return nil
}

// RecentUsage returns the newest usage rows, newest first (for the ops CLI)
func (s *Store) RecentUsage(limit int) ([]UsageRecord, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.conn.Query(
		`SELECT id, session_id, mode, model, prompt_tokens, completion_tokens, status, cached, response_time_ms, created_at
		 FROM usage_log ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage records: %w", err)
	}
	defer rows.Close()

	var out []UsageRecord
	for rows.Next() {
		var rec UsageRecord
		var cached int
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Mode, &rec.Model,
			&rec.PromptTokens, &rec.CompletionTokens, &rec.Status,
			&cached, &rec.ResponseTimeMs, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}
		rec.Cached = cached != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
