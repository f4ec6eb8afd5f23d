package adapter

import (
	"database/sql"

	"github.com/npezzotti/go-curio/internal/database"
	"github.com/npezzotti/go-curio/internal/types"
)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func fromNullString(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

// RoomFromRow maps a stored room onto its entity shape. NULL optional
// columns become empty strings.
func RoomFromRow(row database.RoomRow) types.Room {
	return types.Room{
		Id:              row.Id,
		Name:            row.Name,
		Icon:            fromNullString(row.Icon),
		Order:           row.Order,
		BackgroundImage: fromNullString(row.BackgroundImage),
	}
}

// RoomToRow is the inverse of RoomFromRow. Timestamps are left zero.
func RoomToRow(room types.Room, userId string) database.RoomRow {
	return database.RoomRow{
		Id:              room.Id,
		UserId:          userId,
		Name:            room.Name,
		Icon:            nullString(room.Icon),
		Order:           room.Order,
		BackgroundImage: nullString(room.BackgroundImage),
	}
}

// ItemFromRow maps a stored item onto its entity shape. The item has a
// position only when both coordinates are present.
func ItemFromRow(row database.ItemRow) types.Item {
	item := types.Item{
		Id:          row.Id,
		Name:        row.Name,
		Description: row.Description,
		ImageUrl:    fromNullString(row.ImageUrl),
		RoomId:      row.RoomId,
		CreatedAt:   row.CreatedAt,
	}

	if row.PositionX.Valid && row.PositionY.Valid {
		item.Position = &types.Position{X: row.PositionX.Float64, Y: row.PositionY.Float64}
	}

	return item
}

func ItemToRow(item types.Item, userId string) database.ItemRow {
	row := database.ItemRow{
		Id:          item.Id,
		UserId:      userId,
		RoomId:      item.RoomId,
		Name:        item.Name,
		Description: item.Description,
		ImageUrl:    nullString(item.ImageUrl),
		CreatedAt:   item.CreatedAt,
	}

	if item.Position != nil {
		row.PositionX = sql.NullFloat64{Float64: item.Position.X, Valid: true}
		row.PositionY = sql.NullFloat64{Float64: item.Position.Y, Valid: true}
	}

	return row
}

func roomsFromRows(rows []database.RoomRow) []types.Room {
	rooms := make([]types.Room, 0, len(rows))
	for _, r := range rows {
		rooms = append(rooms, RoomFromRow(r))
	}
	return rooms
}

func itemsFromRows(rows []database.ItemRow) []types.Item {
	items := make([]types.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, ItemFromRow(r))
	}
	return items
}
