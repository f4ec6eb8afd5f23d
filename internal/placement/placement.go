// Package placement turns drag-and-drop gestures over a room canvas into
// stored item offsets.
//
// Offsets are relative to the top-left corner of the canvas. The canvas
// rectangle is supplied with every drop because the client may have
// resized it since the drag started.
package placement

import (
	"context"
	"errors"
	"fmt"

	"github.com/npezzotti/go-curio/internal/types"
)

// ErrInvalidDrop reports a drop that does not name an item to place.
var ErrInvalidDrop = errors.New("invalid drop")

type Source string

const (
	// SourceCanvas is an item already on the canvas. Drop coordinates are
	// canvas offsets.
	SourceCanvas Source = "canvas"
	// SourceSidebar is an unplaced item dragged in from the sidebar list.
	// Drop coordinates are client coordinates.
	SourceSidebar Source = "sidebar"
)

// Rect is the canvas bounding rectangle in client coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether the offset lies on the canvas, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= 0 && y >= 0 && x <= r.Width && y <= r.Height
}

type Drop struct {
	Source Source  `json:"source"`
	ItemId string  `json:"item_id,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Canvas Rect    `json:"canvas"`
}

// Committer persists one accepted drop.
type Committer interface {
	CommitPosition(ctx context.Context, itemId string, pos types.Position) error
}

type Engine struct {
	committer Committer
	dragging  string
}

func NewEngine(c Committer) *Engine {
	return &Engine{committer: c}
}

// Offset converts drop coordinates into a canvas offset.
func Offset(d Drop) types.Position {
	if d.Source == SourceSidebar {
		return types.Position{X: d.X - d.Canvas.Left, Y: d.Y - d.Canvas.Top}
	}
	return types.Position{X: d.X, Y: d.Y}
}

// BeginSidebarDrag records the unplaced item the user picked up.
func (e *Engine) BeginSidebarDrag(itemId string) {
	e.dragging = itemId
}

func (e *Engine) CancelSidebarDrag() {
	e.dragging = ""
}

// Dragging returns the id of the sidebar item being dragged, if any.
func (e *Engine) Dragging() string {
	return e.dragging
}

// Drop commits the item's new offset when it lands on the canvas. An
// offset outside the canvas, or a sidebar drop with no drag in progress,
// is discarded: the returned bool is false and nothing is committed.
func (e *Engine) Drop(ctx context.Context, d Drop) (types.Position, bool, error) {
	itemId := d.ItemId
	switch d.Source {
	case SourceSidebar:
		itemId = e.dragging
		e.dragging = ""
		if itemId == "" {
			return types.Position{}, false, nil
		}
	case SourceCanvas:
		if itemId == "" {
			return types.Position{}, false, fmt.Errorf("%w: canvas drop without item id", ErrInvalidDrop)
		}
	default:
		return types.Position{}, false, fmt.Errorf("%w: unknown drag source %q", ErrInvalidDrop, d.Source)
	}

	pos := Offset(d)
	if !d.Canvas.Contains(pos.X, pos.Y) {
		return pos, false, nil
	}

	if err := e.committer.CommitPosition(ctx, itemId, pos); err != nil {
		return pos, false, err
	}

	return pos, true, nil
}

// Placed returns the items that have a canvas position, in input order.
func Placed(items []types.Item) []types.Item {
	placed := make([]types.Item, 0, len(items))
	for _, item := range items {
		if item.Placed() {
			placed = append(placed, item)
		}
	}
	return placed
}

// Unplaced returns the items shown only in the sidebar list.
func Unplaced(items []types.Item) []types.Item {
	unplaced := make([]types.Item, 0)
	for _, item := range items {
		if !item.Placed() {
			unplaced = append(unplaced, item)
		}
	}
	return unplaced
}
