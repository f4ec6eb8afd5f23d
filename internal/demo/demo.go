// Package demo provisions a sample account so the app can be explored
// without signing up.
package demo

import (
	"context"
	"errors"
	"fmt"

	"github.com/npezzotti/go-curio/internal/auth"
	"github.com/npezzotti/go-curio/internal/types"
	"go.uber.org/zap"
)

const (
	Email    = "demo@example.com"
	Password = "demo-password"
)

type Accounts interface {
	SignUp(ctx context.Context, email, password string) (types.Session, error)
	SignIn(ctx context.Context, email, password string) (types.Session, error)
}

type Entities interface {
	ListRooms(ctx context.Context, sess types.Session) ([]types.Room, error)
	CreateRoom(ctx context.Context, sess types.Session, in types.RoomInput) (types.Room, error)
	CreateItem(ctx context.Context, sess types.Session, roomId string, in types.ItemInput) (types.Item, error)
}

type sampleItem struct {
	room int
	in   types.ItemInput
}

var sampleRooms = []types.RoomInput{
	{Name: "Living Room", Icon: "🛋️"},
	{Name: "Kitchen", Icon: "🍳"},
	{Name: "Bedroom", Icon: "🛏️"},
}

var sampleItems = []sampleItem{
	{room: 0, in: types.ItemInput{
		Name:        "Vintage Clock",
		Description: "Beautiful antique wall clock from the 1920s",
		ImageUrl:    "https://images.unsplash.com/photo-1563861826100-9cb868fdbe1c?w=400",
		Position:    &types.Position{X: 100, Y: 150},
	}},
	{room: 0, in: types.ItemInput{
		Name:        "Leather Sofa",
		Description: "Comfortable brown leather sofa",
		ImageUrl:    "https://images.unsplash.com/photo-1555041469-a586c61ea9bc?w=400",
		Position:    &types.Position{X: 300, Y: 200},
	}},
	{room: 1, in: types.ItemInput{
		Name:        "Coffee Maker",
		Description: "Espresso machine with milk frother",
		ImageUrl:    "https://images.unsplash.com/photo-1517668808822-9ebb02f2a0e6?w=400",
		Position:    &types.Position{X: 150, Y: 100},
	}},
	{room: 2, in: types.ItemInput{
		Name:        "Reading Lamp",
		Description: "Modern adjustable desk lamp",
		ImageUrl:    "https://images.unsplash.com/photo-1507473885765-e6ed057f782c?w=400",
		Position:    &types.Position{X: 250, Y: 180},
	}},
}

// Seed signs in to the demo account, creating it first if needed, and
// fills it with the sample rooms and items. An account that already has
// rooms is left untouched.
func Seed(ctx context.Context, accounts Accounts, entities Entities, logger *zap.Logger) (types.Session, error) {
	sess, err := accounts.SignIn(ctx, Email, Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		sess, err = accounts.SignUp(ctx, Email, Password)
	}
	if err != nil {
		return types.Session{}, fmt.Errorf("demo account: %w", err)
	}

	existing, err := entities.ListRooms(ctx, sess)
	if err != nil {
		return types.Session{}, fmt.Errorf("list demo rooms: %w", err)
	}
	if len(existing) > 0 {
		logger.Debug("demo data already present", zap.Int("rooms", len(existing)))
		return sess, nil
	}

	rooms := make([]types.Room, 0, len(sampleRooms))
	for _, in := range sampleRooms {
		room, err := entities.CreateRoom(ctx, sess, in)
		if err != nil {
			return types.Session{}, fmt.Errorf("create demo room %q: %w", in.Name, err)
		}
		rooms = append(rooms, room)
	}

	for _, s := range sampleItems {
		if _, err := entities.CreateItem(ctx, sess, rooms[s.room].Id, s.in); err != nil {
			return types.Session{}, fmt.Errorf("create demo item %q: %w", s.in.Name, err)
		}
	}

	logger.Info("seeded demo account",
		zap.String("email", Email),
		zap.Int("rooms", len(sampleRooms)),
		zap.Int("items", len(sampleItems)),
	)

	return sess, nil
}
