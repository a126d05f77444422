package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	Driver        string       `json:"driver"`
	DBPath        string       `json:"db_path,omitempty"`
	DBSizeBytes   int64        `json:"db_size_bytes,omitempty"`
	TotalMemories int          `json:"total_memories"`
	Owners        []OwnerStats `json:"owners"`
}

// OwnerStats holds per-owner counts.
type OwnerStats struct {
	Owner         string  `db:"owner_id" json:"owner"`
	Count         int     `db:"cnt" json:"count"`
	AvgImportance float64 `db:"avg_importance" json:"avg_importance"`
	LastUpdated   int64   `db:"last_updated" json:"-"`
}

// Stats returns database statistics.
func (s *SQLStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Driver: s.driver, DBPath: s.path, Owners: []OwnerStats{}}

	// DB file size
	if s.path != "" {
		if info, err := os.Stat(s.path); err == nil {
			st.DBSizeBytes = info.Size()
		}
	}

	if err := s.db.GetContext(ctx, &st.TotalMemories, `SELECT COUNT(*) FROM memories`); err != nil {
		return st, err
	}

	err := s.db.SelectContext(ctx, &st.Owners, `
		SELECT owner_id, COUNT(*) AS cnt, AVG(importance) AS avg_importance, MAX(updated_at) AS last_updated
		FROM memories
		GROUP BY owner_id ORDER BY cnt DESC, owner_id`)
	return st, err
}
