package store

import (
	"context"
	"fmt"

	"github.com/rcliao/memdigest/internal/model"
)

// Import stores memories from an export under owner. IDs, owners and
// timestamps in the input are ignored; every record gets a fresh ID. The
// input is expected most recent first, as List returns it, and that relative
// order is kept. Either all records are imported or none.
func (s *SQLStore) Import(ctx context.Context, owner string, memories []model.Memory) (int, error) {
	rows := make([]memoryRow, 0, len(memories))
	for i := len(memories) - 1; i >= 0; i-- {
		m := memories[i]
		var importance *int
		if m.Importance != 0 {
			importance = &m.Importance
		}
		built, err := s.build(CreateParams{
			Owner:      owner,
			Content:    m.Content,
			Importance: importance,
			Tags:       m.Tags,
			Metadata:   m.Metadata,
		})
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		rows = append(rows, toRow(built))
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, r := range rows {
		if _, err := tx.NamedExecContext(ctx, insertMemory, r); err != nil {
			return 0, fmt.Errorf("insert memory: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(rows), nil
}
