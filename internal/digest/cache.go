package digest

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/rcliao/memdigest/internal/model"
)

// Lister is the read side of the memory store the cache recomputes from.
type Lister interface {
	List(ctx context.Context, owner string) ([]model.Memory, error)
}

// Entry is a cached digest stamped with the owner generation it was
// computed under.
type Entry struct {
	Generation uint64 `json:"gen"`
	Text       string `json:"text"`
}

// Backend stores entries and per-owner generation counters.
type Backend interface {
	// Generation returns the owner's current generation (0 if never invalidated).
	Generation(ctx context.Context, owner string) (uint64, error)

	// Load returns the cached entry, if any.
	Load(ctx context.Context, owner string) (Entry, bool, error)

	// Save stores e unless the owner's generation has moved past e.Generation.
	Save(ctx context.Context, owner string, e Entry) error

	// Invalidate bumps the owner's generation and drops the entry.
	Invalidate(ctx context.Context, owner string) error

	Close() error
}

// Cache memoizes formatted digests per owner. There is no time-based expiry:
// an entry is served only while its generation matches the owner's current
// one, and every mutation of the owner's memories must be followed by
// Invalidate.
type Cache struct {
	lister    Lister
	formatter *Formatter
	backend   Backend
	log       *slog.Logger
}

// New creates a cache. A nil logger discards log output.
func New(lister Lister, formatter *Formatter, backend Backend, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{
		lister:    lister,
		formatter: formatter,
		backend:   backend,
		log:       logger.With("component", "digest"),
	}
}

// Get returns the owner's digest, from cache when current.
//
// The generation is read before the store is listed, so a digest computed
// from pre-mutation data is stamped with a generation that the mutation's
// Invalidate has already superseded, and is never served afterwards.
func (c *Cache) Get(ctx context.Context, owner string) (string, error) {
	gen, err := c.backend.Generation(ctx, owner)
	if err != nil {
		c.log.Warn("digest cache unavailable, computing uncached", "owner", owner, "err", err)
		return c.compute(ctx, owner)
	}

	e, ok, err := c.backend.Load(ctx, owner)
	switch {
	case err != nil:
		c.log.Warn("digest cache load failed", "owner", owner, "err", err)
	case ok && e.Generation == gen:
		c.log.Debug("digest cache hit", "owner", owner, "gen", gen)
		return e.Text, nil
	}

	c.log.Debug("digest cache miss", "owner", owner, "gen", gen)
	text, err := c.compute(ctx, owner)
	if err != nil {
		return "", err
	}
	if err := c.backend.Save(ctx, owner, Entry{Generation: gen, Text: text}); err != nil {
		c.log.Warn("digest cache save failed", "owner", owner, "err", err)
	}
	return text, nil
}

// Invalidate drops the owner's cached digest. Safe to call when nothing is cached.
func (c *Cache) Invalidate(ctx context.Context, owner string) error {
	if err := c.backend.Invalidate(ctx, owner); err != nil {
		return fmt.Errorf("invalidate digest: %w", err)
	}
	c.log.Debug("digest invalidated", "owner", owner)
	return nil
}

// Close releases the backend.
func (c *Cache) Close() error {
	return c.backend.Close()
}

func (c *Cache) compute(ctx context.Context, owner string) (string, error) {
	memories, err := c.lister.List(ctx, owner)
	if err != nil {
		return "", fmt.Errorf("compute digest: %w", err)
	}
	return c.formatter.Format(memories), nil
}
