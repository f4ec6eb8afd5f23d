package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	defaultKeyPrefix = "curio:inflight:"
	// defaultLockTTL bounds how long a crashed instance can hold a key.
	defaultLockTTL = 30 * time.Second
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard shares in-flight markers between service instances.
type RedisGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{
		client: client,
		prefix: defaultKeyPrefix,
		ttl:    defaultLockTTL,
	}
}

func (g *RedisGuard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.prefix+key, token, g.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire %q: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}

	return token, true, nil
}

// Release deletes the marker only while it still holds token. A marker
// that expired and was taken by another holder is left alone.
func (g *RedisGuard) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, g.client, []string{g.prefix + key}, token).Err(); err != nil {
		return fmt.Errorf("release %q: %w", key, err)
	}

	return nil
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}
