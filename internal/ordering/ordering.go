// Package ordering implements the room reordering dialog: the user drags
// rooms into a new sequence on a private copy, then either saves it or
// throws it away.
package ordering

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/npezzotti/go-curio/internal/types"
)

// Editor holds a working copy of the rooms. Nothing is persisted until the
// caller saves Result.
type Editor struct {
	rooms    []types.Room
	dragging int
	over     int
}

func NewEditor(rooms []types.Room) *Editor {
	sorted := slices.Clone(rooms)
	slices.SortStableFunc(sorted, func(a, b types.Room) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return &Editor{rooms: sorted, dragging: -1, over: -1}
}

// Rooms returns the working sequence.
func (e *Editor) Rooms() []types.Room {
	return slices.Clone(e.rooms)
}

func (e *Editor) Len() int {
	return len(e.rooms)
}

func (e *Editor) DragStart(i int) error {
	if err := e.check(i); err != nil {
		return err
	}
	e.dragging = i
	return nil
}

// DragOver highlights i as the drop target.
func (e *Editor) DragOver(i int) {
	if e.dragging < 0 || i < 0 || i >= len(e.rooms) {
		return
	}
	e.over = i
}

func (e *Editor) DragLeave() {
	e.over = -1
}

// Dragging returns the index being dragged and the current drop target,
// each -1 when unset.
func (e *Editor) Dragging() (int, int) {
	return e.dragging, e.over
}

// Drop moves the dragged room to target. Dropping with no drag in progress
// or onto the dragged room itself changes nothing.
func (e *Editor) Drop(target int) error {
	from := e.dragging
	e.DragEnd()

	if from < 0 || from == target {
		return nil
	}
	return e.Move(from, target)
}

func (e *Editor) DragEnd() {
	e.dragging = -1
	e.over = -1
}

// Move takes the room at from out of the sequence and inserts it at to.
func (e *Editor) Move(from, to int) error {
	if err := e.check(from); err != nil {
		return err
	}
	if err := e.check(to); err != nil {
		return err
	}
	if from == to {
		return nil
	}

	room := e.rooms[from]
	e.rooms = slices.Delete(e.rooms, from, from+1)
	e.rooms = slices.Insert(e.rooms, to, room)

	return nil
}

// Result returns the working sequence with orders renumbered 0..n-1.
func (e *Editor) Result() []types.Room {
	out := slices.Clone(e.rooms)
	for i := range out {
		out[i].Order = i
	}
	return out
}

// Ids returns the room ids in working order.
func (e *Editor) Ids() []string {
	ids := make([]string, 0, len(e.rooms))
	for _, r := range e.rooms {
		ids = append(ids, r.Id)
	}
	return ids
}

func (e *Editor) check(i int) error {
	if i < 0 || i >= len(e.rooms) {
		return fmt.Errorf("room position %d out of range [0, %d)", i, len(e.rooms))
	}
	return nil
}
