package database

import "context"

type CurioRepository interface {
	Ping(ctx context.Context) error
	Close() error

	CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error)
	GetAccountById(ctx context.Context, id string) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	UpdatePassword(ctx context.Context, params UpdatePasswordParams) error

	ListRooms(ctx context.Context, userId string) ([]RoomRow, error)
	GetRoom(ctx context.Context, userId, id string) (RoomRow, error)
	MaxRoomOrder(ctx context.Context, userId string) (int, error)
	InsertRoom(ctx context.Context, row RoomRow) (RoomRow, error)
	UpdateRoom(ctx context.Context, row RoomRow) (RoomRow, error)
	UpdateRoomOrders(ctx context.Context, userId string, ids []string) ([]RoomRow, error)
	DeleteRoom(ctx context.Context, userId, id string) error

	ListItems(ctx context.Context, userId, roomId string) ([]ItemRow, error)
	GetItem(ctx context.Context, userId, id string) (ItemRow, error)
	InsertItem(ctx context.Context, row ItemRow) (ItemRow, error)
	UpdateItem(ctx context.Context, row ItemRow) (ItemRow, error)
	UpdateItemPosition(ctx context.Context, userId, id string, x, y float64) (ItemRow, error)
	DeleteItem(ctx context.Context, userId, id string) error
	DeleteItemsByRoom(ctx context.Context, userId, roomId string) (int64, error)
}
