// Package store provides the owner-scoped memory storage interface and its
// SQL implementation (SQLite or Postgres).
package store

import (
	"context"

	"github.com/rcliao/memdigest/internal/model"
)

// CreateParams holds parameters for storing a new memory.
type CreateParams struct {
	Owner      string
	Content    string
	Importance *int // nil means model.DefaultImportance
	Tags       []string
	Metadata   model.Metadata
}

// Store defines the memory storage interface. Every operation is scoped to
// a single owner; records of other owners are invisible.
type Store interface {
	// Create stores a new memory and returns it with its assigned ID.
	Create(ctx context.Context, p CreateParams) (*model.Memory, error)

	// List returns the owner's memories, most recently updated first.
	List(ctx context.Context, owner string) ([]model.Memory, error)

	// Get retrieves a single memory.
	Get(ctx context.Context, owner, id string) (*model.Memory, error)

	// Update applies a partial update atomically and refreshes updated_at.
	Update(ctx context.Context, owner, id string, patch model.Patch) (*model.Memory, error)

	// Delete permanently removes a memory.
	Delete(ctx context.Context, owner, id string) error

	// Clear removes all of the owner's memories and returns how many were removed.
	Clear(ctx context.Context, owner string) (int, error)

	// Import creates all given memories for owner in one transaction.
	Import(ctx context.Context, owner string, memories []model.Memory) (int, error)

	// Close closes the store.
	Close() error
}
