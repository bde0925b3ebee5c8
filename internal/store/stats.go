package store

import (
	"context"
	"os"
	"time"
)

// Stats holds database statistics.
type Stats struct {
	DBPath        string         `json:"db_path"`
	DBSizeBytes   int64          `json:"db_size_bytes"`
	Lectures      int            `json:"lectures"`
	Messages      int            `json:"messages"`
	StoredWindows int            `json:"stored_windows"`
	ActiveWindows int            `json:"active_windows"`
	PerLecture    []LectureStats `json:"per_lecture"`
}

// LectureStats holds per-lecture counts.
type LectureStats struct {
	Key      string `json:"key"`
	Messages int    `json:"messages"`
	TextLen  int    `json:"text_len"`
}

// Stats returns database statistics. Stored windows include expired ones,
// since expiry is lazy; active windows are those still inside their span.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lectures`).Scan(&st.Lectures)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&st.Messages)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rate_windows`).Scan(&st.StoredWindows)

	nowMS := time.Now().UnixMilli()
	s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rate_windows WHERE window_start_ms + window_seconds * 1000 > ?`,
		nowMS).Scan(&st.ActiveWindows)

	rows, err := s.db.QueryContext(ctx, `
		SELECT l.key, LENGTH(l.raw_text), COUNT(m.id)
		FROM lectures l LEFT JOIN messages m ON m.lecture_key = l.key
		GROUP BY l.key ORDER BY COUNT(m.id) DESC`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var ls LectureStats
		rows.Scan(&ls.Key, &ls.TextLen, &ls.Messages)
		st.PerLecture = append(st.PerLecture, ls)
	}

	return st, nil
}
