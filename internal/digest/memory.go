package digest

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto"
)

// DefaultMaxCost bounds the in-process cache, in bytes of digest text.
const DefaultMaxCost = 64 << 20

// MemoryBackend keeps digests in a ristretto cache and generations in a map.
// Evicted entries simply recompute on the next Get.
type MemoryBackend struct {
	mu    sync.Mutex
	gens  map[string]uint64
	cache *ristretto.Cache
}

// NewMemoryBackend creates an in-process backend. maxCost <= 0 uses DefaultMaxCost.
func NewMemoryBackend(maxCost int64) (*MemoryBackend, error) {
	if maxCost <= 0 {
		maxCost = DefaultMaxCost
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}
	return &MemoryBackend{gens: make(map[string]uint64), cache: cache}, nil
}

func (b *MemoryBackend) Generation(_ context.Context, owner string) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gens[owner], nil
}

func (b *MemoryBackend) Load(_ context.Context, owner string) (Entry, bool, error) {
	v, ok := b.cache.Get(owner)
	if !ok {
		return Entry{}, false, nil
	}
	e, ok := v.(Entry)
	return e, ok, nil
}

func (b *MemoryBackend) Save(_ context.Context, owner string, e Entry) error {
	b.mu.Lock()
	if b.gens[owner] != e.Generation {
		b.mu.Unlock()
		return nil
	}
	b.cache.Set(owner, e, int64(len(e.Text)))
	b.mu.Unlock()

	// ristretto applies sets asynchronously; wait so the next Get can hit.
	b.cache.Wait()
	return nil
}

func (b *MemoryBackend) Invalidate(_ context.Context, owner string) error {
	b.mu.Lock()
	b.gens[owner]++
	b.mu.Unlock()
	b.cache.Del(owner)
	return nil
}

func (b *MemoryBackend) Close() error {
	b.cache.Close()
	return nil
}
