package guard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuard(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	token, ok, err := g.Acquire(ctx, "room-1")
	require.NoError(t, err)
	assert.True(t, ok, "expected first acquire to succeed")
	assert.NotEmpty(t, token)

	_, ok, err = g.Acquire(ctx, "room-1")
	require.NoError(t, err)
	assert.False(t, ok, "expected second acquire of the same key to fail")

	_, ok, err = g.Acquire(ctx, "room-2")
	require.NoError(t, err)
	assert.True(t, ok, "expected other keys to be independent")
	assert.ElementsMatch(t, []string{"room-1", "room-2"}, g.Held())

	require.NoError(t, g.Release(ctx, "room-1", "someone-else"))
	assert.Contains(t, g.Held(), "room-1", "expected a foreign token not to release the key")

	require.NoError(t, g.Release(ctx, "room-1", token))
	_, ok, err = g.Acquire(ctx, "room-1")
	require.NoError(t, err)
	assert.True(t, ok, "expected key to be free after release")
}

func TestDo(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	t.Run("runs and releases", func(t *testing.T) {
		called := false
		err := Do(ctx, g, "item-1", func() error {
			called = true
			assert.Contains(t, g.Held(), "item-1", "expected key to be held while running")
			return nil
		})
		assert.NoError(t, err)
		assert.True(t, called)
		assert.Empty(t, g.Held(), "expected key to be released")
	})

	t.Run("releases on error", func(t *testing.T) {
		err := Do(ctx, g, "item-1", func() error { return errors.New("boom") })
		assert.EqualError(t, err, "boom")
		assert.Empty(t, g.Held())
	})

	t.Run("refuses a busy key", func(t *testing.T) {
		token, _, _ := g.Acquire(ctx, "item-2")
		defer g.Release(ctx, "item-2", token)

		called := false
		err := Do(ctx, g, "item-2", func() error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, ErrBusy)
		assert.False(t, called, "expected fn not to run")
	})

	t.Run("concurrent callers", func(t *testing.T) {
		start := make(chan struct{})
		release := make(chan struct{})
		var wg sync.WaitGroup

		wg.Add(1)
		go func() {
			defer wg.Done()
			Do(ctx, g, "item-3", func() error {
				close(start)
				<-release
				return nil
			})
		}()

		<-start
		err := Do(ctx, g, "item-3", func() error { return nil })
		assert.ErrorIs(t, err, ErrBusy)

		close(release)
		wg.Wait()
		assert.Empty(t, g.Held())
	})
}
