// Package adapter scopes every room and item operation to the signed-in
// user and translates between stored rows and entity shapes.
package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/go-curio/internal/database"
	"github.com/npezzotti/go-curio/internal/types"
	"go.uber.org/zap"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrInvalid   = errors.New("invalid input")
	ErrNoSession = errors.New("no active session")
)

type Adapter struct {
	db  database.CurioRepository
	log *zap.Logger
	now func() time.Time
}

func New(db database.CurioRepository, logger *zap.Logger) *Adapter {
	return &Adapter{
		db:  db,
		log: logger,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func userId(sess types.Session) (string, error) {
	if sess.UserId == "" {
		return "", ErrNoSession
	}
	return sess.UserId, nil
}

// checkId rejects ids that cannot exist so they surface as not found rather
// than as a driver error.
func checkId(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: id %q", ErrNotFound, id)
	}
	return nil
}

func wrap(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (a *Adapter) ListRooms(ctx context.Context, sess types.Session) ([]types.Room, error) {
	uid, err := userId(sess)
	if err != nil {
		return nil, err
	}

	rows, err := a.db.ListRooms(ctx, uid)
	if err != nil {
		return nil, wrap("list rooms", err)
	}

	return roomsFromRows(rows), nil
}

func (a *Adapter) GetRoom(ctx context.Context, sess types.Session, id string) (types.Room, error) {
	uid, err := userId(sess)
	if err != nil {
		return types.Room{}, err
	}
	if err := checkId(id); err != nil {
		return types.Room{}, err
	}

	row, err := a.db.GetRoom(ctx, uid, id)
	if err != nil {
		return types.Room{}, wrap("get room", err)
	}

	return RoomFromRow(row), nil
}

// CreateRoom appends the room after the user's current last room.
func (a *Adapter) CreateRoom(ctx context.Context, sess types.Session, in types.RoomInput) (types.Room, error) {
	uid, err := userId(sess)
	if err != nil {
		return types.Room{}, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return types.Room{}, fmt.Errorf("%w: room name is required", ErrInvalid)
	}

	max, err := a.db.MaxRoomOrder(ctx, uid)
	if err != nil {
		return types.Room{}, wrap("max room order", err)
	}

	now := a.now()
	row := RoomToRow(types.Room{
		Id:              uuid.NewString(),
		Name:            name,
		Icon:            strings.TrimSpace(in.Icon),
		Order:           max + 1,
		BackgroundImage: in.BackgroundImage,
	}, uid)
	row.CreatedAt = now
	row.UpdatedAt = now

	created, err := a.db.InsertRoom(ctx, row)
	if err != nil {
		return types.Room{}, wrap("insert room", err)
	}

	a.log.Debug("room created",
		zap.String("user_id", uid),
		zap.String("room_id", created.Id),
		zap.Int("order", created.Order),
	)

	return RoomFromRow(created), nil
}

func (a *Adapter) UpdateRoom(ctx context.Context, sess types.Session, id string, patch types.RoomPatch) (types.Room, error) {
	current, err := a.GetRoom(ctx, sess, id)
	if err != nil {
		return types.Room{}, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return types.Room{}, fmt.Errorf("%w: room name is required", ErrInvalid)
		}
		current.Name = name
	}
	if patch.Icon != nil {
		current.Icon = strings.TrimSpace(*patch.Icon)
	}
	if patch.BackgroundImage != nil {
		current.BackgroundImage = *patch.BackgroundImage
	}

	row, err := a.db.UpdateRoom(ctx, RoomToRow(current, sess.UserId))
	if err != nil {
		return types.Room{}, wrap("update room", err)
	}

	return RoomFromRow(row), nil
}

// DeleteRoom removes the room's items first and then the room itself.
func (a *Adapter) DeleteRoom(ctx context.Context, sess types.Session, id string) error {
	if _, err := a.GetRoom(ctx, sess, id); err != nil {
		return err
	}

	n, err := a.db.DeleteItemsByRoom(ctx, sess.UserId, id)
	if err != nil {
		return wrap("delete room items", err)
	}

	if err := a.db.DeleteRoom(ctx, sess.UserId, id); err != nil {
		return wrap("delete room", err)
	}

	a.log.Debug("room deleted",
		zap.String("user_id", sess.UserId),
		zap.String("room_id", id),
		zap.Int64("items_deleted", n),
	)

	return nil
}

// ReorderRooms persists ids as the new room sequence, assigning orders
// 0..n-1. ids must name every room of the user exactly once.
func (a *Adapter) ReorderRooms(ctx context.Context, sess types.Session, ids []string) ([]types.Room, error) {
	uid, err := userId(sess)
	if err != nil {
		return nil, err
	}

	rows, err := a.db.ListRooms(ctx, uid)
	if err != nil {
		return nil, wrap("list rooms", err)
	}

	if len(ids) != len(rows) {
		return nil, fmt.Errorf("%w: expected %d room ids, got %d", ErrInvalid, len(rows), len(ids))
	}

	known := make(map[string]bool, len(rows))
	for _, r := range rows {
		known[r.Id] = false
	}
	for _, id := range ids {
		seen, ok := known[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown room %q", ErrInvalid, id)
		}
		if seen {
			return nil, fmt.Errorf("%w: duplicate room %q", ErrInvalid, id)
		}
		known[id] = true
	}

	updated, err := a.db.UpdateRoomOrders(ctx, uid, ids)
	if err != nil {
		return nil, wrap("update room orders", err)
	}

	return roomsFromRows(updated), nil
}

// ListItems returns the user's items newest first, limited to roomId
// unless it is empty.
func (a *Adapter) ListItems(ctx context.Context, sess types.Session, roomId string) ([]types.Item, error) {
	uid, err := userId(sess)
	if err != nil {
		return nil, err
	}
	if roomId != "" {
		if err := checkId(roomId); err != nil {
			return nil, err
		}
	}

	rows, err := a.db.ListItems(ctx, uid, roomId)
	if err != nil {
		return nil, wrap("list items", err)
	}

	return itemsFromRows(rows), nil
}

func (a *Adapter) GetItem(ctx context.Context, sess types.Session, id string) (types.Item, error) {
	uid, err := userId(sess)
	if err != nil {
		return types.Item{}, err
	}
	if err := checkId(id); err != nil {
		return types.Item{}, err
	}

	row, err := a.db.GetItem(ctx, uid, id)
	if err != nil {
		return types.Item{}, wrap("get item", err)
	}

	return ItemFromRow(row), nil
}

// CreateItem attaches a new item to roomId, which must be one of the
// user's rooms.
func (a *Adapter) CreateItem(ctx context.Context, sess types.Session, roomId string, in types.ItemInput) (types.Item, error) {
	if _, err := a.GetRoom(ctx, sess, roomId); err != nil {
		return types.Item{}, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return types.Item{}, fmt.Errorf("%w: item name is required", ErrInvalid)
	}

	now := a.now()
	row := ItemToRow(types.Item{
		Id:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		ImageUrl:    strings.TrimSpace(in.ImageUrl),
		RoomId:      roomId,
		CreatedAt:   now,
		Position:    in.Position,
	}, sess.UserId)
	row.UpdatedAt = now

	created, err := a.db.InsertItem(ctx, row)
	if err != nil {
		return types.Item{}, wrap("insert item", err)
	}

	return ItemFromRow(created), nil
}

func (a *Adapter) UpdateItem(ctx context.Context, sess types.Session, id string, patch types.ItemPatch) (types.Item, error) {
	current, err := a.GetItem(ctx, sess, id)
	if err != nil {
		return types.Item{}, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return types.Item{}, fmt.Errorf("%w: item name is required", ErrInvalid)
		}
		current.Name = name
	}
	if patch.Description != nil {
		current.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.ImageUrl != nil {
		current.ImageUrl = strings.TrimSpace(*patch.ImageUrl)
	}

	row, err := a.db.UpdateItem(ctx, ItemToRow(current, sess.UserId))
	if err != nil {
		return types.Item{}, wrap("update item", err)
	}

	return ItemFromRow(row), nil
}

func (a *Adapter) UpdateItemPosition(ctx context.Context, sess types.Session, id string, pos types.Position) (types.Item, error) {
	uid, err := userId(sess)
	if err != nil {
		return types.Item{}, err
	}
	if err := checkId(id); err != nil {
		return types.Item{}, err
	}

	row, err := a.db.UpdateItemPosition(ctx, uid, id, pos.X, pos.Y)
	if err != nil {
		return types.Item{}, wrap("update item position", err)
	}

	return ItemFromRow(row), nil
}

func (a *Adapter) DeleteItem(ctx context.Context, sess types.Session, id string) error {
	uid, err := userId(sess)
	if err != nil {
		return err
	}
	if err := checkId(id); err != nil {
		return err
	}

	if err := a.db.DeleteItem(ctx, uid, id); err != nil {
		return wrap("delete item", err)
	}

	return nil
}
