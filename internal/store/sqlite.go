package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"studyhall/internal/fault"
	"studyhall/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fault.Wrap(fault.ErrStorage, "store", "create db dir", "", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fault.Wrap(fault.ErrStorage, "store", "open db", "", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fault.Wrap(fault.ErrStorage, "store", "migrate", "", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS lectures (
		key        TEXT PRIMARY KEY,
		raw_text   TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id          TEXT PRIMARY KEY,
		lecture_key TEXT NOT NULL,
		seq         INTEGER NOT NULL,
		role        TEXT NOT NULL,
		content     TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_key_seq ON messages(lecture_key, seq);

	CREATE TABLE IF NOT EXISTS rate_windows (
		key             TEXT NOT NULL,
		endpoint        TEXT NOT NULL,
		count           INTEGER NOT NULL,
		window_start_ms INTEGER NOT NULL,
		window_seconds  INTEGER NOT NULL,
		PRIMARY KEY (key, endpoint)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) PutLecture(ctx context.Context, key, rawText string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lectures (key, raw_text, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET raw_text = excluded.raw_text, updated_at = excluded.updated_at`,
		key, rawText, now, now)
	if err != nil {
		return fault.Wrap(fault.ErrStorage, "store", "put lecture", key, err)
	}
	return nil
}

func (s *SQLiteStore) GetLecture(ctx context.Context, key string) (*model.LectureRecord, error) {
	var rec model.LectureRecord
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT key, raw_text, created_at, updated_at FROM lectures WHERE key = ?`, key).
		Scan(&rec.Key, &rec.RawText, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.Wrap(fault.ErrNotFound, "store", "get lecture", key, nil)
	}
	if err != nil {
		return nil, fault.Wrap(fault.ErrStorage, "store", "get lecture", key, err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	history, err := s.History(ctx, key)
	if err != nil {
		return nil, err
	}
	rec.History = history
	return &rec, nil
}

func (s *SQLiteStore) GetRawText(ctx context.Context, key string) (string, error) {
	var rawText string
	err := s.db.QueryRowContext(ctx,
		`SELECT raw_text FROM lectures WHERE key = ?`, key).Scan(&rawText)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fault.Wrap(fault.ErrNotFound, "store", "get raw text", key, nil)
	}
	if err != nil {
		return "", fault.Wrap(fault.ErrStorage, "store", "get raw text", key, err)
	}
	return rawText, nil
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, key, role, content string) (model.ChatMessage, error) {
	var empty model.ChatMessage
	if !model.ValidRoles[role] {
		return empty, fault.Wrap(fault.ErrStorage, "store", "append message", fmt.Sprintf("invalid role %q", role), nil)
	}

	now := time.Now().UTC()
	msg := model.ChatMessage{
		ID:        s.newID(),
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return empty, fault.Wrap(fault.ErrStorage, "store", "append message", key, err)
	}
	defer tx.Rollback()

	// Safe without row locking: the actor runtime serializes appends per key.
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE lecture_key = ?`, key).Scan(&msg.Seq)
	if err != nil {
		return empty, fault.Wrap(fault.ErrStorage, "store", "append message", key, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, lecture_key, seq, role, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, key, msg.Seq, msg.Role, msg.Content, now.Format(time.RFC3339))
	if err != nil {
		return empty, fault.Wrap(fault.ErrStorage, "store", "append message", key, err)
	}

	if err := tx.Commit(); err != nil {
		return empty, fault.Wrap(fault.ErrStorage, "store", "append message", key, err)
	}
	return msg, nil
}

func (s *SQLiteStore) History(ctx context.Context, key string) ([]model.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, seq, created_at FROM messages
		 WHERE lecture_key = ? ORDER BY seq ASC`, key)
	if err != nil {
		return nil, fault.Wrap(fault.ErrStorage, "store", "history", key, err)
	}
	defer rows.Close()

	var history []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		var createdAt string
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.Seq, &createdAt); err != nil {
			return nil, fault.Wrap(fault.ErrStorage, "store", "history", key, err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		history = append(history, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.ErrStorage, "store", "history", key, err)
	}
	return history, nil
}

func (s *SQLiteStore) GetWindow(ctx context.Context, key, endpoint string) (*model.RateLimitWindow, error) {
	var w model.RateLimitWindow
	err := s.db.QueryRowContext(ctx,
		`SELECT count, window_start_ms, window_seconds FROM rate_windows
		 WHERE key = ? AND endpoint = ?`, key, endpoint).
		Scan(&w.Count, &w.WindowStartMS, &w.WindowSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fault.Wrap(fault.ErrStorage, "store", "get window", key, err)
	}
	return &w, nil
}

func (s *SQLiteStore) PutWindow(ctx context.Context, key, endpoint string, w model.RateLimitWindow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rate_windows (key, endpoint, count, window_start_ms, window_seconds)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key, endpoint) DO UPDATE SET
		   count = excluded.count,
		   window_start_ms = excluded.window_start_ms,
		   window_seconds = excluded.window_seconds`,
		key, endpoint, w.Count, w.WindowStartMS, w.WindowSeconds)
	if err != nil {
		return fault.Wrap(fault.ErrStorage, "store", "put window", key, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteWindow(ctx context.Context, key, endpoint string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM rate_windows WHERE key = ? AND endpoint = ?`, key, endpoint)
	if err != nil {
		return fault.Wrap(fault.ErrStorage, "store", "delete window", key, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteWindows(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rate_windows WHERE key = ?`, key)
	if err != nil {
		return fault.Wrap(fault.ErrStorage, "store", "delete windows", key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
