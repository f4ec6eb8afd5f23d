package adapter

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/go-curio/internal/database"
	"github.com/npezzotti/go-curio/internal/testutil"
	"github.com/npezzotti/go-curio/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestRoomMapping_RoundTrip(t *testing.T) {
	tcases := []types.Room{
		{Id: uuid.NewString(), Name: "Living Room", Icon: "🛋️", Order: 0},
		{Id: uuid.NewString(), Name: "Kitchen", Order: 7, BackgroundImage: "data:image/png;base64,AAAA"},
		{Id: uuid.NewString(), Name: "Attic", Order: -3},
	}

	for _, room := range tcases {
		t.Run(room.Name, func(t *testing.T) {
			row := RoomToRow(room, "user-1")
			assert.Equal(t, "user-1", row.UserId)
			assert.Equal(t, room.Icon != "", row.Icon.Valid, "expected icon validity to follow presence")
			assert.Equal(t, room, RoomFromRow(row), "expected room to survive the round trip")
		})
	}
}

func TestItemMapping_RoundTrip(t *testing.T) {
	created := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	tcases := []struct {
		name string
		item types.Item
	}{
		{
			name: "unplaced item",
			item: types.Item{Id: uuid.NewString(), Name: "Clock", Description: "1920s", RoomId: "r1", CreatedAt: created},
		},
		{
			name: "placed at origin",
			item: types.Item{Id: uuid.NewString(), Name: "Lamp", RoomId: "r1", CreatedAt: created, Position: &types.Position{X: 0, Y: 0}},
		},
		{
			name: "placed with image",
			item: types.Item{Id: uuid.NewString(), Name: "Sofa", ImageUrl: "https://example.com/s.jpg", RoomId: "r2", CreatedAt: created, Position: &types.Position{X: 300, Y: 200.5}},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			row := ItemToRow(tc.item, "user-1")
			assert.Equal(t, tc.item.Position != nil, row.PositionX.Valid)
			assert.Equal(t, tc.item.Position != nil, row.PositionY.Valid)
			assert.Equal(t, tc.item, ItemFromRow(row), "expected item to survive the round trip")
		})
	}
}

func TestItemFromRow_PartialPosition(t *testing.T) {
	row := database.ItemRow{
		Id:        "i1",
		PositionX: sql.NullFloat64{Float64: 10, Valid: true},
	}

	assert.Nil(t, ItemFromRow(row).Position, "expected a half-set position to be treated as unplaced")
}

func TestCreateRoom(t *testing.T) {
	sess := types.Session{UserId: "user-1"}

	t.Run("appends after the last room", func(t *testing.T) {
		repo := &database.MockCurioRepository{}
		defer repo.AssertExpectations(t)

		repo.On("MaxRoomOrder", "user-1").Return(2, nil).Once()
		repo.On("InsertRoom", mock.MatchedBy(func(r database.RoomRow) bool {
			return r.Order == 3 && r.Name == "Study" && r.UserId == "user-1" && r.Icon.String == "📚" && !r.CreatedAt.IsZero()
		})).Return(database.RoomRow{Id: "r4", Name: "Study", Order: 3, Icon: sql.NullString{String: "📚", Valid: true}}, nil).Once()

		a := New(repo, testutil.TestLogger(t))
		room, err := a.CreateRoom(context.Background(), sess, types.RoomInput{Name: "  Study ", Icon: "📚"})
		require.NoError(t, err)
		assert.Equal(t, types.Room{Id: "r4", Name: "Study", Icon: "📚", Order: 3}, room)
	})

	t.Run("first room gets order zero", func(t *testing.T) {
		repo := &database.MockCurioRepository{}
		defer repo.AssertExpectations(t)

		repo.On("MaxRoomOrder", "user-1").Return(-1, nil).Once()
		repo.On("InsertRoom", mock.MatchedBy(func(r database.RoomRow) bool {
			return r.Order == 0
		})).Return(database.RoomRow{Id: "r1", Name: "Hall"}, nil).Once()

		a := New(repo, testutil.TestLogger(t))
		_, err := a.CreateRoom(context.Background(), sess, types.RoomInput{Name: "Hall"})
		require.NoError(t, err)
	})

	t.Run("rejects blank name", func(t *testing.T) {
		repo := &database.MockCurioRepository{}
		defer repo.AssertExpectations(t)

		a := New(repo, testutil.TestLogger(t))
		_, err := a.CreateRoom(context.Background(), sess, types.RoomInput{Name: "   "})
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("requires a session", func(t *testing.T) {
		a := New(&database.MockCurioRepository{}, testutil.TestLogger(t))
		_, err := a.CreateRoom(context.Background(), types.Session{}, types.RoomInput{Name: "Hall"})
		assert.ErrorIs(t, err, ErrNoSession)
	})
}

func TestUpdateRoom_PartialPatch(t *testing.T) {
	sess := types.Session{UserId: "user-1"}
	id := uuid.NewString()
	stored := database.RoomRow{
		Id:     id,
		UserId: "user-1",
		Name:   "Kitchen",
		Icon:   sql.NullString{String: "🍳", Valid: true},
		Order:  1,
	}

	repo := &database.MockCurioRepository{}
	defer repo.AssertExpectations(t)

	repo.On("GetRoom", "user-1", id).Return(stored, nil).Once()
	repo.On("UpdateRoom", mock.MatchedBy(func(r database.RoomRow) bool {
		// icon untouched, background set, name untouched
		return r.Name == "Kitchen" && r.Icon.String == "🍳" && r.BackgroundImage.String == "data:image/png;base64,AA"
	})).Return(database.RoomRow{
		Id:              id,
		Name:            "Kitchen",
		Icon:            stored.Icon,
		Order:           1,
		BackgroundImage: sql.NullString{String: "data:image/png;base64,AA", Valid: true},
	}, nil).Once()

	a := New(repo, testutil.TestLogger(t))
	room, err := a.UpdateRoom(context.Background(), sess, id, types.RoomPatch{BackgroundImage: strPtr("data:image/png;base64,AA")})
	require.NoError(t, err)
	assert.Equal(t, "🍳", room.Icon)
	assert.Equal(t, "data:image/png;base64,AA", room.BackgroundImage)
}

func TestDeleteRoom_CascadesToItems(t *testing.T) {
	sess := types.Session{UserId: "user-1"}
	id := uuid.NewString()

	t.Run("deletes items then room", func(t *testing.T) {
		repo := &database.MockCurioRepository{}
		defer repo.AssertExpectations(t)

		repo.On("GetRoom", "user-1", id).Return(database.RoomRow{Id: id}, nil).Once()
		itemsCall := repo.On("DeleteItemsByRoom", "user-1", id).Return(int64(2), nil).Once()
		repo.On("DeleteRoom", "user-1", id).Return(nil).Once().NotBefore(itemsCall)

		a := New(repo, testutil.TestLogger(t))
		assert.NoError(t, a.DeleteRoom(context.Background(), sess, id))
	})

	t.Run("missing room", func(t *testing.T) {
		repo := &database.MockCurioRepository{}
		defer repo.AssertExpectations(t)

		repo.On("GetRoom", "user-1", id).Return(database.RoomRow{}, sql.ErrNoRows).Once()

		a := New(repo, testutil.TestLogger(t))
		assert.ErrorIs(t, a.DeleteRoom(context.Background(), sess, id), ErrNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		a := New(&database.MockCurioRepository{}, testutil.TestLogger(t))
		assert.ErrorIs(t, a.DeleteRoom(context.Background(), sess, "not-a-uuid"), ErrNotFound)
	})
}

func TestReorderRooms_Validation(t *testing.T) {
	sess := types.Session{UserId: "user-1"}
	rows := []database.RoomRow{{Id: "a", Order: 0}, {Id: "b", Order: 1}, {Id: "c", Order: 2}}

	tcases := []struct {
		name string
		ids  []string
		err  error
	}{
		{name: "missing room", ids: []string{"a", "b"}, err: ErrInvalid},
		{name: "unknown room", ids: []string{"a", "b", "z"}, err: ErrInvalid},
		{name: "duplicate room", ids: []string{"a", "a", "b"}, err: ErrInvalid},
		{name: "valid permutation", ids: []string{"c", "a", "b"}},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &database.MockCurioRepository{}
			defer repo.AssertExpectations(t)

			repo.On("ListRooms", "user-1").Return(rows, nil).Once()
			if tc.err == nil {
				repo.On("UpdateRoomOrders", "user-1", tc.ids).Return([]database.RoomRow{
					{Id: "c", Order: 0}, {Id: "a", Order: 1}, {Id: "b", Order: 2},
				}, nil).Once()
			}

			a := New(repo, testutil.TestLogger(t))
			rooms, err := a.ReorderRooms(context.Background(), sess, tc.ids)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []types.Room{{Id: "c", Order: 0}, {Id: "a", Order: 1}, {Id: "b", Order: 2}}, rooms)
		})
	}
}

func TestCreateItem_RequiresExistingRoom(t *testing.T) {
	sess := types.Session{UserId: "user-1"}
	roomId := uuid.NewString()

	repo := &database.MockCurioRepository{}
	defer repo.AssertExpectations(t)
	repo.On("GetRoom", "user-1", roomId).Return(database.RoomRow{}, sql.ErrNoRows).Once()

	a := New(repo, testutil.TestLogger(t))
	_, err := a.CreateItem(context.Background(), sess, roomId, types.ItemInput{Name: "Clock"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateItemPosition_DbError(t *testing.T) {
	sess := types.Session{UserId: "user-1"}
	id := uuid.NewString()

	repo := &database.MockCurioRepository{}
	defer repo.AssertExpectations(t)
	repo.On("UpdateItemPosition", "user-1", id, 50.0, 50.0).Return(database.ItemRow{}, errors.New("db error")).Once()

	a := New(repo, testutil.TestLogger(t))
	_, err := a.UpdateItemPosition(context.Background(), sess, id, types.Position{X: 50, Y: 50})
	assert.ErrorContains(t, err, "db error")
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestAdapter_SQLite(t *testing.T) {
	repo := testutil.SQLiteRepository(t)
	sess := testutil.TestSession(t, repo, uuid.NewString(), "collector@example.com")
	a := New(repo, testutil.TestLogger(t))
	ctx := context.Background()

	t.Run("created room round-trips through list", func(t *testing.T) {
		in := types.RoomInput{Name: "Living Room", Icon: "🛋️", BackgroundImage: "data:image/png;base64,AAAA"}
		created, err := a.CreateRoom(ctx, sess, in)
		require.NoError(t, err)

		rooms, err := a.ListRooms(ctx, sess)
		require.NoError(t, err)

		var found *types.Room
		for i := range rooms {
			if rooms[i].Id == created.Id {
				found = &rooms[i]
			}
		}
		require.NotNil(t, found, "expected created room to be listed")
		assert.Equal(t, in.Name, found.Name)
		assert.Equal(t, in.Icon, found.Icon)
		assert.Equal(t, in.BackgroundImage, found.BackgroundImage)
	})

	t.Run("deleting a room removes only its items", func(t *testing.T) {
		keep, err := a.CreateRoom(ctx, sess, types.RoomInput{Name: "Kitchen"})
		require.NoError(t, err)
		drop, err := a.CreateRoom(ctx, sess, types.RoomInput{Name: "Bedroom"})
		require.NoError(t, err)

		kept, err := a.CreateItem(ctx, sess, keep.Id, types.ItemInput{Name: "Coffee Maker"})
		require.NoError(t, err)
		for _, name := range []string{"Lamp", "Comics"} {
			_, err := a.CreateItem(ctx, sess, drop.Id, types.ItemInput{Name: name})
			require.NoError(t, err)
		}

		require.NoError(t, a.DeleteRoom(ctx, sess, drop.Id))

		items, err := a.ListItems(ctx, sess, "")
		require.NoError(t, err)
		for _, item := range items {
			assert.NotEqual(t, drop.Id, item.RoomId, "expected no item of the deleted room")
		}
		ids := make([]string, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.Id)
		}
		assert.Contains(t, ids, kept.Id, "expected items of other rooms to survive")

		_, err = a.GetRoom(ctx, sess, drop.Id)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("position at origin is kept", func(t *testing.T) {
		rooms, err := a.ListRooms(ctx, sess)
		require.NoError(t, err)
		require.NotEmpty(t, rooms)

		item, err := a.CreateItem(ctx, sess, rooms[0].Id, types.ItemInput{Name: "Globe"})
		require.NoError(t, err)
		assert.Nil(t, item.Position)

		placed, err := a.UpdateItemPosition(ctx, sess, item.Id, types.Position{X: 0, Y: 0})
		require.NoError(t, err)
		require.NotNil(t, placed.Position)
		assert.Equal(t, types.Position{X: 0, Y: 0}, *placed.Position)
	})

	t.Run("reorder renumbers contiguously", func(t *testing.T) {
		rooms, err := a.ListRooms(ctx, sess)
		require.NoError(t, err)

		ids := make([]string, 0, len(rooms))
		for i := len(rooms) - 1; i >= 0; i-- {
			ids = append(ids, rooms[i].Id)
		}

		reordered, err := a.ReorderRooms(ctx, sess, ids)
		require.NoError(t, err)
		for i, r := range reordered {
			assert.Equal(t, ids[i], r.Id)
			assert.Equal(t, i, r.Order)
		}
	})
}
