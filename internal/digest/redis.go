package digest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend shares digests and generations between processes.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend creates a backend. Keys are namespaced with prefix.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) genKey(owner string) string {
	return fmt.Sprintf("%sgen:%s", b.prefix, owner)
}

func (b *RedisBackend) entryKey(owner string) string {
	return fmt.Sprintf("%sdigest:%s", b.prefix, owner)
}

// saveScript writes the entry only if the generation has not moved.
var saveScript = redis.NewScript(`
local g = redis.call('GET', KEYS[1]) or '0'
if g == ARGV[1] then
	redis.call('SET', KEYS[2], ARGV[2])
	return 1
end
return 0
`)

func (b *RedisBackend) Generation(ctx context.Context, owner string) (uint64, error) {
	gen, err := b.client.Get(ctx, b.genKey(owner)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get generation: %w", err)
	}
	return gen, nil
}

func (b *RedisBackend) Load(ctx context.Context, owner string) (Entry, bool, error) {
	data, err := b.client.Get(ctx, b.entryKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get digest: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		// a corrupt entry is just a miss
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (b *RedisBackend) Save(ctx context.Context, owner string, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal digest: %w", err)
	}
	keys := []string{b.genKey(owner), b.entryKey(owner)}
	if err := saveScript.Run(ctx, b.client, keys, fmt.Sprint(e.Generation), data).Err(); err != nil {
		return fmt.Errorf("store digest: %w", err)
	}
	return nil
}

func (b *RedisBackend) Invalidate(ctx context.Context, owner string) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, b.genKey(owner))
		pipe.Del(ctx, b.entryKey(owner))
		return nil
	})
	if err != nil {
		return fmt.Errorf("bump generation: %w", err)
	}
	return nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
