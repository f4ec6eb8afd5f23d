package placement

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/npezzotti/go-curio/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCommitter struct {
	mock.Mock
}

func (m *mockCommitter) CommitPosition(ctx context.Context, itemId string, pos types.Position) error {
	args := m.Called(itemId, pos)
	return args.Error(0)
}

var canvas = Rect{Left: 100, Top: 40, Width: 400, Height: 300}

func TestRect_Contains(t *testing.T) {
	tcases := []struct {
		name string
		x, y float64
		in   bool
	}{
		{name: "inside", x: 50, y: 50, in: true},
		{name: "top left corner", x: 0, y: 0, in: true},
		{name: "bottom right corner", x: 400, y: 300, in: true},
		{name: "left of canvas", x: -0.5, y: 10, in: false},
		{name: "right of canvas", x: 400.1, y: 10, in: false},
		{name: "above canvas", x: 10, y: -1, in: false},
		{name: "below canvas", x: 10, y: 301, in: false},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.in, canvas.Contains(tc.x, tc.y))
		})
	}
}

func TestDrop_Canvas(t *testing.T) {
	t.Run("commits exactly once inside the canvas", func(t *testing.T) {
		c := &mockCommitter{}
		defer c.AssertExpectations(t)
		c.On("CommitPosition", "item-1", types.Position{X: 50, Y: 50}).Return(nil).Once()

		e := NewEngine(c)
		pos, ok, err := e.Drop(context.Background(), Drop{Source: SourceCanvas, ItemId: "item-1", X: 50, Y: 50, Canvas: canvas})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, types.Position{X: 50, Y: 50}, pos)
		c.AssertNumberOfCalls(t, "CommitPosition", 1)
	})

	t.Run("discards drops outside the canvas", func(t *testing.T) {
		c := &mockCommitter{}
		defer c.AssertExpectations(t)

		e := NewEngine(c)
		for _, d := range []Drop{
			{Source: SourceCanvas, ItemId: "item-1", X: -1, Y: 50, Canvas: canvas},
			{Source: SourceCanvas, ItemId: "item-1", X: 401, Y: 50, Canvas: canvas},
			{Source: SourceCanvas, ItemId: "item-1", X: 50, Y: -10, Canvas: canvas},
			{Source: SourceCanvas, ItemId: "item-1", X: 50, Y: 300.01, Canvas: canvas},
		} {
			_, ok, err := e.Drop(context.Background(), d)
			assert.NoError(t, err, "expected no error for out of bounds drop")
			assert.False(t, ok, "expected drop at (%v, %v) to be discarded", d.X, d.Y)
		}
		c.AssertNotCalled(t, "CommitPosition", mock.Anything, mock.Anything)
	})

	t.Run("uses the canvas size given with the drop", func(t *testing.T) {
		c := &mockCommitter{}
		defer c.AssertExpectations(t)
		c.On("CommitPosition", "item-1", types.Position{X: 450, Y: 10}).Return(nil).Once()

		e := NewEngine(c)
		resized := canvas
		resized.Width = 800

		_, ok, err := e.Drop(context.Background(), Drop{Source: SourceCanvas, ItemId: "item-1", X: 450, Y: 10, Canvas: resized})
		require.NoError(t, err)
		assert.True(t, ok, "expected drop to be accepted on the wider canvas")
	})

	t.Run("requires an item id", func(t *testing.T) {
		e := NewEngine(&mockCommitter{})
		_, _, err := e.Drop(context.Background(), Drop{Source: SourceCanvas, X: 1, Y: 1, Canvas: canvas})
		assert.ErrorIs(t, err, ErrInvalidDrop)

		_, _, err = e.Drop(context.Background(), Drop{Source: "toolbar", ItemId: "item-1", X: 1, Y: 1, Canvas: canvas})
		assert.ErrorIs(t, err, ErrInvalidDrop)
	})

	t.Run("returns commit errors", func(t *testing.T) {
		c := &mockCommitter{}
		c.On("CommitPosition", "item-1", types.Position{X: 1, Y: 1}).Return(errors.New("db down")).Once()

		e := NewEngine(c)
		_, ok, err := e.Drop(context.Background(), Drop{Source: SourceCanvas, ItemId: "item-1", X: 1, Y: 1, Canvas: canvas})
		assert.EqualError(t, err, "db down")
		assert.False(t, ok)
	})
}

func TestDrop_Sidebar(t *testing.T) {
	t.Run("converts client coordinates", func(t *testing.T) {
		c := &mockCommitter{}
		defer c.AssertExpectations(t)
		c.On("CommitPosition", "item-2", types.Position{X: 150, Y: 60}).Return(nil).Once()

		e := NewEngine(c)
		e.BeginSidebarDrag("item-2")
		assert.Equal(t, "item-2", e.Dragging())

		pos, ok, err := e.Drop(context.Background(), Drop{Source: SourceSidebar, X: 250, Y: 100, Canvas: canvas})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, types.Position{X: 150, Y: 60}, pos)
		assert.Empty(t, e.Dragging(), "expected drag state to be cleared after drop")
	})

	t.Run("outside the canvas clears the drag", func(t *testing.T) {
		c := &mockCommitter{}
		e := NewEngine(c)
		e.BeginSidebarDrag("item-2")

		_, ok, err := e.Drop(context.Background(), Drop{Source: SourceSidebar, X: 20, Y: 100, Canvas: canvas})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, e.Dragging())
		c.AssertNotCalled(t, "CommitPosition", mock.Anything, mock.Anything)
	})

	t.Run("without a drag in progress", func(t *testing.T) {
		c := &mockCommitter{}
		e := NewEngine(c)

		_, ok, err := e.Drop(context.Background(), Drop{Source: SourceSidebar, X: 150, Y: 100, Canvas: canvas})
		require.NoError(t, err)
		assert.False(t, ok)
		c.AssertNotCalled(t, "CommitPosition", mock.Anything, mock.Anything)
	})

	t.Run("cancel", func(t *testing.T) {
		e := NewEngine(&mockCommitter{})
		e.BeginSidebarDrag("item-2")
		e.CancelSidebarDrag()
		assert.Empty(t, e.Dragging())
	})
}

func TestPlacedUnplaced(t *testing.T) {
	items := []types.Item{
		{Id: "a", Position: &types.Position{X: 1, Y: 2}},
		{Id: "b"},
		{Id: "c", Position: &types.Position{}},
		{Id: "d"},
	}

	placed := Placed(items)
	unplaced := Unplaced(items)

	assert.Equal(t, []string{"a", "c"}, ids(placed))
	assert.Equal(t, []string{"b", "d"}, ids(unplaced))
	for _, item := range placed {
		assert.NotNil(t, item.Position, "expected only positioned items on the canvas")
	}
}

func ids(items []types.Item) []string {
	out := make([]string, 0, len(items))
	for _, i := range items {
		out = append(out, i.Id)
	}
	return out
}

// 1x1 transparent png
var pngPixel, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

func TestEncodeBackground(t *testing.T) {
	t.Run("png", func(t *testing.T) {
		url, err := EncodeBackground(bytes.NewReader(pngPixel), 0)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
		assert.True(t, IsDataURL(url))

		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/png;base64,"))
		require.NoError(t, err)
		assert.Equal(t, pngPixel, decoded)
	})

	t.Run("not an image", func(t *testing.T) {
		_, err := EncodeBackground(strings.NewReader("hello, world"), 0)
		assert.ErrorIs(t, err, ErrNotImage)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := EncodeBackground(bytes.NewReader(pngPixel), 10)
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := EncodeBackground(bytes.NewReader(nil), 0)
		assert.ErrorIs(t, err, ErrEmptyUpload)
	})
}
