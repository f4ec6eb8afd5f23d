// Package store holds the rooms and items of one signed-in user along with
// the index of the room being viewed.
//
// Writes are confirmed-only: the adapter call completes first and the
// entity it returns replaces the local copy. A failed call leaves the
// collections as they were and raises a dismissible error. A Store is not
// safe for concurrent use; each view session owns one.
package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/npezzotti/go-curio/internal/guard"
	"github.com/npezzotti/go-curio/internal/placement"
	"github.com/npezzotti/go-curio/internal/types"
	"go.uber.org/zap"
)

var ErrNoRoom = errors.New("no room selected")

type Adapter interface {
	ListRooms(ctx context.Context, sess types.Session) ([]types.Room, error)
	ListItems(ctx context.Context, sess types.Session, roomId string) ([]types.Item, error)
	CreateRoom(ctx context.Context, sess types.Session, in types.RoomInput) (types.Room, error)
	UpdateRoom(ctx context.Context, sess types.Session, id string, patch types.RoomPatch) (types.Room, error)
	DeleteRoom(ctx context.Context, sess types.Session, id string) error
	ReorderRooms(ctx context.Context, sess types.Session, ids []string) ([]types.Room, error)
	CreateItem(ctx context.Context, sess types.Session, roomId string, in types.ItemInput) (types.Item, error)
	UpdateItem(ctx context.Context, sess types.Session, id string, patch types.ItemPatch) (types.Item, error)
	UpdateItemPosition(ctx context.Context, sess types.Session, id string, pos types.Position) (types.Item, error)
	DeleteItem(ctx context.Context, sess types.Session, id string) error
}

type Store struct {
	log     *zap.Logger
	adapter Adapter
	guard   guard.Guard
	sess    types.Session
	rooms   []types.Room
	items   []types.Item
	nav     Navigator
	banner  string
}

func New(logger *zap.Logger, adapter Adapter, g guard.Guard, sess types.Session) *Store {
	return &Store{
		log:     logger.With(zap.String("user_id", sess.UserId)),
		adapter: adapter,
		guard:   g,
		sess:    sess,
		rooms:   make([]types.Room, 0),
		items:   make([]types.Item, 0),
	}
}

// SortRooms returns a copy of rooms sorted ascending by order. Rooms with
// equal order keep their relative position.
func SortRooms(rooms []types.Room) []types.Room {
	sorted := slices.Clone(rooms)
	slices.SortStableFunc(sorted, func(a, b types.Room) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return sorted
}

func (s *Store) Session() types.Session {
	return s.sess
}

// Load replaces both collections with the user's current rooms and items.
func (s *Store) Load(ctx context.Context) error {
	rooms, err := s.adapter.ListRooms(ctx, s.sess)
	if err != nil {
		return s.fail("load rooms", err)
	}

	items, err := s.adapter.ListItems(ctx, s.sess, "")
	if err != nil {
		return s.fail("load items", err)
	}

	s.rooms = rooms
	s.items = items
	s.nav.Clamp(len(s.rooms))

	return nil
}

func (s *Store) Rooms() []types.Room {
	return slices.Clone(s.rooms)
}

func (s *Store) Items() []types.Item {
	return slices.Clone(s.items)
}

func (s *Store) SortedRooms() []types.Room {
	return SortRooms(s.rooms)
}

func (s *Store) Empty() bool {
	return len(s.rooms) == 0
}

func (s *Store) CurrentIndex() int {
	return s.nav.Index()
}

func (s *Store) CurrentRoom() (types.Room, bool) {
	sorted := s.SortedRooms()
	i := s.nav.Index()
	if i < 0 || i >= len(sorted) {
		return types.Room{}, false
	}
	return sorted[i], true
}

func (s *Store) CurrentRoomItems() []types.Item {
	room, ok := s.CurrentRoom()
	if !ok {
		return []types.Item{}
	}
	return s.RoomItems(room.Id)
}

func (s *Store) RoomItems(roomId string) []types.Item {
	items := make([]types.Item, 0)
	for _, item := range s.items {
		if item.RoomId == roomId {
			items = append(items, item)
		}
	}
	return items
}

func (s *Store) Item(id string) (types.Item, bool) {
	i := slices.IndexFunc(s.items, func(it types.Item) bool { return it.Id == id })
	if i < 0 {
		return types.Item{}, false
	}
	return s.items[i], true
}

func (s *Store) Next() {
	s.nav.Next(len(s.rooms))
}

func (s *Store) Prev() {
	s.nav.Prev(len(s.rooms))
}

func (s *Store) Jump(i int) error {
	return s.nav.Jump(i, len(s.rooms))
}

func (s *Store) JumpTo(roomId string) error {
	if !s.nav.Locate(s.SortedRooms(), roomId) {
		return fmt.Errorf("room %q: %w", roomId, ErrNoRoom)
	}
	return nil
}

// Error returns the message of the last failed operation, if any.
func (s *Store) Error() string {
	return s.banner
}

func (s *Store) DismissError() {
	s.banner = ""
}

func (s *Store) fail(op string, err error) error {
	s.log.Warn("operation failed", zap.String("op", op), zap.Error(err))
	if errors.Is(err, guard.ErrBusy) {
		s.banner = fmt.Sprintf("Cannot %s: %s", op, guard.ErrBusy)
	} else {
		s.banner = fmt.Sprintf("Failed to %s", op)
	}
	return err
}

func (s *Store) guarded(ctx context.Context, key string, fn func() error) error {
	return guard.Do(ctx, s.guard, s.sess.UserId+":"+key, fn)
}

// CreateRoom adds a room and makes it the current room.
func (s *Store) CreateRoom(ctx context.Context, in types.RoomInput) (types.Room, error) {
	room, err := s.adapter.CreateRoom(ctx, s.sess, in)
	if err != nil {
		return types.Room{}, s.fail("create room", err)
	}

	s.rooms = append(s.rooms, room)
	s.nav.Locate(s.SortedRooms(), room.Id)

	return room, nil
}

func (s *Store) UpdateRoom(ctx context.Context, id string, patch types.RoomPatch) (types.Room, error) {
	var room types.Room
	err := s.guarded(ctx, "room:"+id, func() error {
		var err error
		room, err = s.adapter.UpdateRoom(ctx, s.sess, id, patch)
		return err
	})
	if err != nil {
		return types.Room{}, s.fail("update room", err)
	}

	s.replaceRoom(room)
	return room, nil
}

// SetBackground stores dataURL as the room's background image. Item
// positions are not touched.
func (s *Store) SetBackground(ctx context.Context, roomId, dataURL string) (types.Room, error) {
	return s.UpdateRoom(ctx, roomId, types.RoomPatch{BackgroundImage: &dataURL})
}

// DeleteRoom removes the room and every item in it, then clamps the
// current index to the shorter list.
func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	err := s.guarded(ctx, "room:"+id, func() error {
		return s.adapter.DeleteRoom(ctx, s.sess, id)
	})
	if err != nil {
		return s.fail("delete room", err)
	}

	s.rooms = slices.DeleteFunc(s.rooms, func(r types.Room) bool { return r.Id == id })
	s.items = slices.DeleteFunc(s.items, func(i types.Item) bool { return i.RoomId == id })
	s.nav.Clamp(len(s.rooms))

	return nil
}

// SaveRoomOrder persists ids as the new room sequence and keeps the
// current room selected at its new position.
func (s *Store) SaveRoomOrder(ctx context.Context, ids []string) error {
	current, hasCurrent := s.CurrentRoom()

	var rooms []types.Room
	err := s.guarded(ctx, "rooms:order", func() error {
		var err error
		rooms, err = s.adapter.ReorderRooms(ctx, s.sess, ids)
		return err
	})
	if err != nil {
		return s.fail("save room order", err)
	}

	s.rooms = rooms
	if !hasCurrent || !s.nav.Locate(s.SortedRooms(), current.Id) {
		s.nav.Clamp(len(s.rooms))
	}

	return nil
}

// CreateItem adds an item to the current room.
func (s *Store) CreateItem(ctx context.Context, in types.ItemInput) (types.Item, error) {
	room, ok := s.CurrentRoom()
	if !ok {
		return types.Item{}, s.fail("create item", ErrNoRoom)
	}

	item, err := s.adapter.CreateItem(ctx, s.sess, room.Id, in)
	if err != nil {
		return types.Item{}, s.fail("create item", err)
	}

	// newest first, matching the listing order
	s.items = slices.Insert(s.items, 0, item)
	return item, nil
}

func (s *Store) UpdateItem(ctx context.Context, id string, patch types.ItemPatch) (types.Item, error) {
	var item types.Item
	err := s.guarded(ctx, "item:"+id, func() error {
		var err error
		item, err = s.adapter.UpdateItem(ctx, s.sess, id, patch)
		return err
	})
	if err != nil {
		return types.Item{}, s.fail("update item", err)
	}

	s.replaceItem(item)
	return item, nil
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	err := s.guarded(ctx, "item:"+id, func() error {
		return s.adapter.DeleteItem(ctx, s.sess, id)
	})
	if err != nil {
		return s.fail("delete item", err)
	}

	s.items = slices.DeleteFunc(s.items, func(i types.Item) bool { return i.Id == id })
	return nil
}

// CommitPosition persists an accepted canvas drop. Failures are logged
// and returned but do not raise the error banner: the user can simply
// drag again.
func (s *Store) CommitPosition(ctx context.Context, itemId string, pos types.Position) error {
	var item types.Item
	err := s.guarded(ctx, "item:"+itemId, func() error {
		var err error
		item, err = s.adapter.UpdateItemPosition(ctx, s.sess, itemId, pos)
		return err
	})
	if err != nil {
		s.log.Error("failed to commit item position",
			zap.String("item_id", itemId),
			zap.Float64("x", pos.X),
			zap.Float64("y", pos.Y),
			zap.Error(err),
		)
		return err
	}

	s.replaceItem(item)
	return nil
}

func (s *Store) replaceRoom(room types.Room) {
	i := slices.IndexFunc(s.rooms, func(r types.Room) bool { return r.Id == room.Id })
	if i < 0 {
		s.rooms = append(s.rooms, room)
		return
	}
	s.rooms[i] = room
}

func (s *Store) replaceItem(item types.Item) {
	i := slices.IndexFunc(s.items, func(it types.Item) bool { return it.Id == item.Id })
	if i < 0 {
		s.items = slices.Insert(s.items, 0, item)
		return
	}
	s.items[i] = item
}

type View struct {
	Rooms        []types.Room `json:"rooms"`
	CurrentIndex int          `json:"current_index"`
	CurrentRoom  *types.Room  `json:"current_room,omitempty"`
	Items        []types.Item `json:"items"`
	Placed       []types.Item `json:"placed"`
	Unplaced     []types.Item `json:"unplaced"`
	Empty        bool         `json:"empty"`
	Error        string       `json:"error,omitempty"`
}

// Snapshot returns the state a client needs to render the current room.
func (s *Store) Snapshot() View {
	v := View{
		Rooms:        s.SortedRooms(),
		CurrentIndex: s.nav.Index(),
		Items:        s.CurrentRoomItems(),
		Empty:        s.Empty(),
		Error:        s.banner,
	}

	if room, ok := s.CurrentRoom(); ok {
		v.CurrentRoom = &room
	}
	v.Placed = placement.Placed(v.Items)
	v.Unplaced = placement.Unplaced(v.Items)

	return v
}
