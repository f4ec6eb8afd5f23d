package ordering

import (
	"testing"

	"github.com/npezzotti/go-curio/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rooms() []types.Room {
	return []types.Room{
		{Id: "b", Name: "B", Order: 1},
		{Id: "c", Name: "C", Order: 2},
		{Id: "a", Name: "A", Order: 0},
	}
}

func TestNewEditor(t *testing.T) {
	input := rooms()
	e := NewEditor(input)

	assert.Equal(t, []string{"a", "b", "c"}, e.Ids())
	assert.Equal(t, "b", input[0].Id, "expected editor to work on a copy")
	assert.Equal(t, 3, e.Len())
}

func TestEditor_Move(t *testing.T) {
	tcases := []struct {
		name     string
		from, to int
		expected []string
	}{
		{name: "last to first", from: 2, to: 0, expected: []string{"c", "a", "b"}},
		{name: "first to last", from: 0, to: 2, expected: []string{"b", "c", "a"}},
		{name: "middle down", from: 1, to: 2, expected: []string{"a", "c", "b"}},
		{name: "same position", from: 1, to: 1, expected: []string{"a", "b", "c"}},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEditor(rooms())
			require.NoError(t, e.Move(tc.from, tc.to))
			assert.Equal(t, tc.expected, e.Ids())
		})
	}

	t.Run("out of range", func(t *testing.T) {
		e := NewEditor(rooms())
		assert.Error(t, e.Move(3, 0))
		assert.Error(t, e.Move(0, -1))
		assert.Equal(t, []string{"a", "b", "c"}, e.Ids())
	})
}

func TestEditor_Result(t *testing.T) {
	e := NewEditor(rooms())
	require.NoError(t, e.Move(2, 0))

	result := e.Result()
	require.Len(t, result, 3)
	for i, r := range result {
		assert.Equal(t, i, r.Order, "expected contiguous orders")
	}
	assert.Equal(t, "c", result[0].Id)
	assert.Equal(t, "a", result[1].Id)
	assert.Equal(t, "b", result[2].Id)

	// working copy keeps its original orders until saved
	assert.Equal(t, 2, e.Rooms()[0].Order)
}

func TestEditor_DragAndDrop(t *testing.T) {
	e := NewEditor(rooms())

	require.NoError(t, e.DragStart(2))
	e.DragOver(0)
	from, over := e.Dragging()
	assert.Equal(t, 2, from)
	assert.Equal(t, 0, over)

	e.DragLeave()
	_, over = e.Dragging()
	assert.Equal(t, -1, over)

	require.NoError(t, e.Drop(0))
	assert.Equal(t, []string{"c", "a", "b"}, e.Ids())

	from, over = e.Dragging()
	assert.Equal(t, -1, from)
	assert.Equal(t, -1, over)
}

func TestEditor_DropWithoutDrag(t *testing.T) {
	e := NewEditor(rooms())

	assert.NoError(t, e.Drop(1))
	assert.Equal(t, []string{"a", "b", "c"}, e.Ids())

	e.DragOver(1)
	_, over := e.Dragging()
	assert.Equal(t, -1, over, "expected drag over to be ignored without a drag")

	assert.Error(t, e.DragStart(5))
}

func TestEditor_DragEnd(t *testing.T) {
	e := NewEditor(rooms())
	require.NoError(t, e.DragStart(0))
	e.DragEnd()

	assert.NoError(t, e.Drop(2))
	assert.Equal(t, []string{"a", "b", "c"}, e.Ids(), "expected cancelled drag to move nothing")
}
