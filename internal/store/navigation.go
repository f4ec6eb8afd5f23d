package store

import (
	"fmt"

	"github.com/npezzotti/go-curio/internal/types"
)

// Navigator tracks which room of the sorted room list is displayed. The
// index stays in [0, n) for a non-empty list and is 0 for an empty one.
type Navigator struct {
	index int
}

func (n *Navigator) Index() int {
	return n.index
}

func (n *Navigator) Next(count int) {
	if count == 0 {
		n.index = 0
		return
	}
	n.index = (n.index + 1) % count
}

func (n *Navigator) Prev(count int) {
	if count == 0 {
		n.index = 0
		return
	}
	n.index = (n.index - 1 + count) % count
}

func (n *Navigator) Jump(i, count int) error {
	if i < 0 || i >= count {
		return fmt.Errorf("room index %d out of range [0, %d)", i, count)
	}
	n.index = i
	return nil
}

// Clamp pulls the index back into range after rooms were removed.
func (n *Navigator) Clamp(count int) {
	switch {
	case count == 0:
		n.index = 0
	case n.index >= count:
		n.index = count - 1
	case n.index < 0:
		n.index = 0
	}
}

// Locate moves the index to the room with id in sorted. It reports false,
// leaving the index untouched, when id is not present.
func (n *Navigator) Locate(sorted []types.Room, id string) bool {
	for i, r := range sorted {
		if r.Id == id {
			n.index = i
			return true
		}
	}
	return false
}
