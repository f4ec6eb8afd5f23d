// Package guard marks entity ids as having a mutation in flight so a second
// mutation of the same id is refused instead of racing the first.
package guard

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrBusy = errors.New("a change to this entity is already in progress")

type Guard interface {
	// Acquire marks key as in flight and returns the token identifying this
	// holder. It reports false when key is already held.
	Acquire(ctx context.Context, key string) (string, bool, error)
	// Release frees key if it is still held under token.
	Release(ctx context.Context, key, token string) error
}

// Do runs fn while holding key, or returns ErrBusy without running it.
func Do(ctx context.Context, g Guard, key string, fn func() error) error {
	token, ok, err := g.Acquire(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBusy
	}
	defer g.Release(context.WithoutCancel(ctx), key, token)

	return fn()
}

// MemoryGuard is a process-local Guard.
type MemoryGuard struct {
	mu       sync.Mutex
	inflight map[string]string
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{inflight: make(map[string]string)}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.inflight[key]; ok {
		return "", false, nil
	}
	token := uuid.NewString()
	g.inflight[key] = token

	return token, true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inflight[key] == token {
		delete(g.inflight, key)
	}
	return nil
}

// Held returns the keys currently in flight.
func (g *MemoryGuard) Held() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	keys := make([]string, 0, len(g.inflight))
	for k := range g.inflight {
		keys = append(keys, k)
	}
	return keys
}
