package store

import (
	"context"
	"time"

	"studyhall/internal/fault"
	"studyhall/internal/model"
)

// ExportAll returns full lecture records (raw text + history) for every
// stored lecture, ordered by key. Intended for backup and inspection;
// re-ingestion goes through the normal upload path.
func (s *SQLiteStore) ExportAll(ctx context.Context) ([]model.LectureRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, raw_text, created_at, updated_at FROM lectures ORDER BY key`)
	if err != nil {
		return nil, fault.Wrap(fault.ErrStorage, "store", "export", "", err)
	}
	defer rows.Close()

	var records []model.LectureRecord
	for rows.Next() {
		var rec model.LectureRecord
		var createdAt, updatedAt string
		if err := rows.Scan(&rec.Key, &rec.RawText, &createdAt, &updatedAt); err != nil {
			return nil, fault.Wrap(fault.ErrStorage, "store", "export", "", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.ErrStorage, "store", "export", "", err)
	}

	for i := range records {
		history, err := s.History(ctx, records[i].Key)
		if err != nil {
			return nil, err
		}
		records[i].History = history
	}
	return records, nil
}
