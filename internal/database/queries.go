package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	accountColumns = `id, email, password_hash, created_at, updated_at`
	roomColumns    = `id, user_id, name, icon, "order", background_image, created_at, updated_at`
	itemColumns    = `id, user_id, room_id, name, description, image_url, position_x, position_y, created_at, updated_at`
)

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (Account, error) {
	var a Account
	err := s.Scan(
		&a.Id,
		&a.EmailAddress,
		&a.PasswordHash,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func scanRoom(s scanner) (RoomRow, error) {
	var r RoomRow
	err := s.Scan(
		&r.Id,
		&r.UserId,
		&r.Name,
		&r.Icon,
		&r.Order,
		&r.BackgroundImage,
		&r.CreatedAt,
		&r.UpdatedAt,
	)

	return r, err
}

func scanItem(s scanner) (ItemRow, error) {
	var i ItemRow
	err := s.Scan(
		&i.Id,
		&i.UserId,
		&i.RoomId,
		&i.Name,
		&i.Description,
		&i.ImageUrl,
		&i.PositionX,
		&i.PositionY,
		&i.CreatedAt,
		&i.UpdatedAt,
	)

	return i, err
}

func (db *SqlCurioRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error) {
	now := time.Now().UTC()
	row := db.conn.QueryRowContext(ctx,
		db.rebind("INSERT INTO accounts (id, email, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING "+accountColumns),
		params.Id,
		params.EmailAddress,
		params.PasswordHash,
		now,
		now,
	)

	return scanAccount(row)
}

func (db *SqlCurioRepository) GetAccountById(ctx context.Context, id string) (Account, error) {
	row := db.conn.QueryRowContext(ctx,
		db.rebind("SELECT "+accountColumns+" FROM accounts WHERE id = $1 LIMIT 1"),
		id,
	)

	return scanAccount(row)
}

func (db *SqlCurioRepository) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	row := db.conn.QueryRowContext(ctx,
		db.rebind("SELECT "+accountColumns+" FROM accounts WHERE email = $1 LIMIT 1"),
		email,
	)

	return scanAccount(row)
}

func (db *SqlCurioRepository) UpdatePassword(ctx context.Context, params UpdatePasswordParams) error {
	res, err := db.conn.ExecContext(ctx,
		db.rebind("UPDATE accounts SET password_hash = $1, updated_at = $2 WHERE id = $3"),
		params.PasswordHash,
		time.Now().UTC(),
		params.UserId,
	)
	if err != nil {
		return err
	}

	return expectAffected(res)
}

func (db *SqlCurioRepository) ListRooms(ctx context.Context, userId string) ([]RoomRow, error) {
	return db.listRooms(ctx, db.conn, userId)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (db *SqlCurioRepository) listRooms(ctx context.Context, q querier, userId string) ([]RoomRow, error) {
	rows, err := q.QueryContext(ctx,
		db.rebind("SELECT "+roomColumns+" FROM rooms WHERE user_id = $1 ORDER BY \"order\" ASC, created_at ASC"),
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]RoomRow, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}

		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return rooms, nil
}

func (db *SqlCurioRepository) GetRoom(ctx context.Context, userId, id string) (RoomRow, error) {
	row := db.conn.QueryRowContext(ctx,
		db.rebind("SELECT "+roomColumns+" FROM rooms WHERE id = $1 AND user_id = $2 LIMIT 1"),
		id,
		userId,
	)

	return scanRoom(row)
}

// MaxRoomOrder returns the highest order among the user's rooms, or -1 when
// the user has none.
func (db *SqlCurioRepository) MaxRoomOrder(ctx context.Context, userId string) (int, error) {
	row := db.conn.QueryRowContext(ctx,
		db.rebind("SELECT COALESCE(MAX(\"order\"), -1) FROM rooms WHERE user_id = $1"),
		userId,
	)

	var max int
	err := row.Scan(&max)

	return max, err
}

func (db *SqlCurioRepository) InsertRoom(ctx context.Context, r RoomRow) (RoomRow, error) {
	row := db.conn.QueryRowContext(ctx,
		db.rebind("INSERT INTO rooms ("+roomColumns+") "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING "+roomColumns),
		r.Id,
		r.UserId,
		r.Name,
		r.Icon,
		r.Order,
		r.BackgroundImage,
		r.CreatedAt,
		r.UpdatedAt,
	)

	return scanRoom(row)
}

// UpdateRoom writes the user-editable room columns. Order is changed only
// through UpdateRoomOrders.
func (db *SqlCurioRepository) UpdateRoom(ctx context.Context, r RoomRow) (RoomRow, error) {
	row := db.conn.QueryRowContext(ctx,
		db.rebind("UPDATE rooms SET name = $1, icon = $2, background_image = $3, updated_at = $4 "+
			"WHERE id = $5 AND user_id = $6 RETURNING "+roomColumns),
		r.Name,
		r.Icon,
		r.BackgroundImage,
		time.Now().UTC(),
		r.Id,
		r.UserId,
	)

	return scanRoom(row)
}

// UpdateRoomOrders assigns order i to ids[i] in a single transaction and
// returns the user's rooms in their new order.
func (db *SqlCurioRepository) UpdateRoomOrders(ctx context.Context, userId string, ids []string) ([]RoomRow, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	query := db.rebind("UPDATE rooms SET \"order\" = $1, updated_at = $2 WHERE id = $3 AND user_id = $4")
	for i, id := range ids {
		var res sql.Result
		res, err = tx.ExecContext(ctx, query, i, now, id, userId)
		if err != nil {
			return nil, fmt.Errorf("update order of room %q: %w", id, err)
		}

		if err = expectAffected(res); err != nil {
			return nil, fmt.Errorf("update order of room %q: %w", id, err)
		}
	}

	var rooms []RoomRow
	rooms, err = db.listRooms(ctx, tx, userId)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return rooms, nil
}

func (db *SqlCurioRepository) DeleteRoom(ctx context.Context, userId, id string) error {
	res, err := db.conn.ExecContext(ctx,
		db.rebind("DELETE FROM rooms WHERE id = $1 AND user_id = $2"),
		id,
		userId,
	)
	if err != nil {
		return err
	}

	return expectAffected(res)
}

// ListItems returns the user's items newest first. An empty roomId lists
// items of every room.
func (db *SqlCurioRepository) ListItems(ctx context.Context, userId, roomId string) ([]ItemRow, error) {
	query := "SELECT " + itemColumns + " FROM items WHERE user_id = $1"
	args := []any{userId}
	if roomId != "" {
		query += " AND room_id = $2"
		args = append(args, roomId)
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.conn.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]ItemRow, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func (db *SqlCurioRepository) GetItem(ctx context.Context, userId, id string) (ItemRow, error) {
	row := db.conn.QueryRowContext(ctx,
		db.rebind("SELECT "+itemColumns+" FROM items WHERE id = $1 AND user_id = $2 LIMIT 1"),
		id,
		userId,
	)

	return scanItem(row)
}

func (db *SqlCurioRepository) InsertItem(ctx context.Context, i ItemRow) (ItemRow, error) {
	row := db.conn.QueryRowContext(ctx,
		db.rebind("INSERT INTO items ("+itemColumns+") "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING "+itemColumns),
		i.Id,
		i.UserId,
		i.RoomId,
		i.Name,
		i.Description,
		i.ImageUrl,
		i.PositionX,
		i.PositionY,
		i.CreatedAt,
		i.UpdatedAt,
	)

	return scanItem(row)
}

func (db *SqlCurioRepository) UpdateItem(ctx context.Context, i ItemRow) (ItemRow, error) {
	row := db.conn.QueryRowContext(ctx,
		db.rebind("UPDATE items SET name = $1, description = $2, image_url = $3, updated_at = $4 "+
			"WHERE id = $5 AND user_id = $6 RETURNING "+itemColumns),
		i.Name,
		i.Description,
		i.ImageUrl,
		time.Now().UTC(),
		i.Id,
		i.UserId,
	)

	return scanItem(row)
}

func (db *SqlCurioRepository) UpdateItemPosition(ctx context.Context, userId, id string, x, y float64) (ItemRow, error) {
	row := db.conn.QueryRowContext(ctx,
		db.rebind("UPDATE items SET position_x = $1, position_y = $2, updated_at = $3 "+
			"WHERE id = $4 AND user_id = $5 RETURNING "+itemColumns),
		x,
		y,
		time.Now().UTC(),
		id,
		userId,
	)

	return scanItem(row)
}

func (db *SqlCurioRepository) DeleteItem(ctx context.Context, userId, id string) error {
	res, err := db.conn.ExecContext(ctx,
		db.rebind("DELETE FROM items WHERE id = $1 AND user_id = $2"),
		id,
		userId,
	)
	if err != nil {
		return err
	}

	return expectAffected(res)
}

func (db *SqlCurioRepository) DeleteItemsByRoom(ctx context.Context, userId, roomId string) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		db.rebind("DELETE FROM items WHERE room_id = $1 AND user_id = $2"),
		roomId,
		userId,
	)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// expectAffected maps a write that touched no rows onto sql.ErrNoRows so
// callers can treat it like a missed lookup.
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}
