// Package service is the single entry point for memory CRUD and prompt
// digests. Every mutation it performs invalidates the owner's digest before
// returning.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rcliao/memdigest/internal/digest"
	"github.com/rcliao/memdigest/internal/model"
	"github.com/rcliao/memdigest/internal/store"
)

// DefaultPlaceholder is the template token replaced by an owner's digest.
const DefaultPlaceholder = "{{USER_MEMORIES}}"

// Options configures a Service.
type Options struct {
	Placeholder string
	Logger      *slog.Logger
}

// Service coordinates store writes with digest invalidation.
type Service struct {
	store       store.Store
	cache       *digest.Cache
	placeholder string
	log         *slog.Logger
}

// New creates a service.
func New(s store.Store, c *digest.Cache, opts Options) *Service {
	if opts.Placeholder == "" {
		opts.Placeholder = DefaultPlaceholder
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		store:       s,
		cache:       c,
		placeholder: opts.Placeholder,
		log:         opts.Logger.With("component", "service"),
	}
}

// Placeholder returns the token Expand replaces.
func (s *Service) Placeholder() string {
	return s.placeholder
}

// invalidate runs after a committed write. Its failure is reported because a
// stale digest could otherwise be served indefinitely.
func (s *Service) invalidate(ctx context.Context, owner, op string) error {
	if err := s.cache.Invalidate(ctx, owner); err != nil {
		s.log.Error("digest invalidation failed after write", "op", op, "owner", owner, "err", err)
		return fmt.Errorf("%s committed but %w", op, err)
	}
	return nil
}

// AddMemory creates a memory.
func (s *Service) AddMemory(ctx context.Context, p store.CreateParams) (*model.Memory, error) {
	m, err := s.store.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := s.invalidate(ctx, p.Owner, "add"); err != nil {
		return nil, err
	}
	s.log.Debug("memory added", "owner", p.Owner, "id", m.ID)
	return m, nil
}

// ListMemories returns the owner's memories, most recently updated first.
// It reads the store directly.
func (s *Service) ListMemories(ctx context.Context, owner string) ([]model.Memory, error) {
	return s.store.List(ctx, owner)
}

// GetMemory returns one memory.
func (s *Service) GetMemory(ctx context.Context, owner, id string) (*model.Memory, error) {
	return s.store.Get(ctx, owner, id)
}

// UpdateMemory applies a partial update.
func (s *Service) UpdateMemory(ctx context.Context, owner, id string, patch model.Patch) (*model.Memory, error) {
	m, err := s.store.Update(ctx, owner, id, patch)
	if err != nil {
		return nil, err
	}
	if err := s.invalidate(ctx, owner, "update"); err != nil {
		return nil, err
	}
	s.log.Debug("memory updated", "owner", owner, "id", id)
	return m, nil
}

// DeleteMemory removes a memory.
func (s *Service) DeleteMemory(ctx context.Context, owner, id string) error {
	if err := s.store.Delete(ctx, owner, id); err != nil {
		return err
	}
	if err := s.invalidate(ctx, owner, "delete"); err != nil {
		return err
	}
	s.log.Debug("memory deleted", "owner", owner, "id", id)
	return nil
}

// ClearMemories removes all of the owner's memories.
func (s *Service) ClearMemories(ctx context.Context, owner string) (int, error) {
	n, err := s.store.Clear(ctx, owner)
	if err != nil {
		return 0, err
	}
	if err := s.invalidate(ctx, owner, "clear"); err != nil {
		return 0, err
	}
	s.log.Debug("memories cleared", "owner", owner, "count", n)
	return n, nil
}

// ImportMemories bulk-creates memories for owner.
func (s *Service) ImportMemories(ctx context.Context, owner string, memories []model.Memory) (int, error) {
	n, err := s.store.Import(ctx, owner, memories)
	if err != nil {
		return 0, err
	}
	if err := s.invalidate(ctx, owner, "import"); err != nil {
		return 0, err
	}
	return n, nil
}

// Digest returns the owner's formatted memories, read through the cache.
func (s *Service) Digest(ctx context.Context, owner string) (string, error) {
	return s.cache.Get(ctx, owner)
}

// Expand replaces every placeholder in template with the owner's digest.
// Templates without the placeholder are returned as is.
func (s *Service) Expand(ctx context.Context, owner, template string) (string, error) {
	if !strings.Contains(template, s.placeholder) {
		return template, nil
	}
	text, err := s.Digest(ctx, owner)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(template, s.placeholder, text), nil
}

// Close closes the cache and the store.
func (s *Service) Close() error {
	cerr := s.cache.Close()
	if err := s.store.Close(); err != nil {
		return err
	}
	return cerr
}
