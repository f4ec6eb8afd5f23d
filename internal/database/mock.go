package database

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockCurioRepository struct {
	mock.Mock
}

func (m *MockCurioRepository) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockCurioRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockCurioRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error) {
	args := m.Called(params)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockCurioRepository) GetAccountById(ctx context.Context, id string) (Account, error) {
	args := m.Called(id)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockCurioRepository) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	args := m.Called(email)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockCurioRepository) UpdatePassword(ctx context.Context, params UpdatePasswordParams) error {
	args := m.Called(params)
	return args.Error(0)
}
func (m *MockCurioRepository) ListRooms(ctx context.Context, userId string) ([]RoomRow, error) {
	args := m.Called(userId)
	return args.Get(0).([]RoomRow), args.Error(1)
}
func (m *MockCurioRepository) GetRoom(ctx context.Context, userId, id string) (RoomRow, error) {
	args := m.Called(userId, id)
	return args.Get(0).(RoomRow), args.Error(1)
}
func (m *MockCurioRepository) MaxRoomOrder(ctx context.Context, userId string) (int, error) {
	args := m.Called(userId)
	return args.Int(0), args.Error(1)
}
func (m *MockCurioRepository) InsertRoom(ctx context.Context, row RoomRow) (RoomRow, error) {
	args := m.Called(row)
	return args.Get(0).(RoomRow), args.Error(1)
}
func (m *MockCurioRepository) UpdateRoom(ctx context.Context, row RoomRow) (RoomRow, error) {
	args := m.Called(row)
	return args.Get(0).(RoomRow), args.Error(1)
}
func (m *MockCurioRepository) UpdateRoomOrders(ctx context.Context, userId string, ids []string) ([]RoomRow, error) {
	args := m.Called(userId, ids)
	return args.Get(0).([]RoomRow), args.Error(1)
}
func (m *MockCurioRepository) DeleteRoom(ctx context.Context, userId, id string) error {
	args := m.Called(userId, id)
	return args.Error(0)
}
func (m *MockCurioRepository) ListItems(ctx context.Context, userId, roomId string) ([]ItemRow, error) {
	args := m.Called(userId, roomId)
	return args.Get(0).([]ItemRow), args.Error(1)
}
func (m *MockCurioRepository) GetItem(ctx context.Context, userId, id string) (ItemRow, error) {
	args := m.Called(userId, id)
	return args.Get(0).(ItemRow), args.Error(1)
}
func (m *MockCurioRepository) InsertItem(ctx context.Context, row ItemRow) (ItemRow, error) {
	args := m.Called(row)
	return args.Get(0).(ItemRow), args.Error(1)
}
func (m *MockCurioRepository) UpdateItem(ctx context.Context, row ItemRow) (ItemRow, error) {
	args := m.Called(row)
	return args.Get(0).(ItemRow), args.Error(1)
}
func (m *MockCurioRepository) UpdateItemPosition(ctx context.Context, userId, id string, x, y float64) (ItemRow, error) {
	args := m.Called(userId, id, x, y)
	return args.Get(0).(ItemRow), args.Error(1)
}
func (m *MockCurioRepository) DeleteItem(ctx context.Context, userId, id string) error {
	args := m.Called(userId, id)
	return args.Error(0)
}
func (m *MockCurioRepository) DeleteItemsByRoom(ctx context.Context, userId, roomId string) (int64, error) {
	args := m.Called(userId, roomId)
	return args.Get(0).(int64), args.Error(1)
}
