package database

import (
	"database/sql"
	"time"
)

type Account struct {
	Id           string
	EmailAddress string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type RoomRow struct {
	Id              string
	UserId          string
	Name            string
	Icon            sql.NullString
	Order           int
	BackgroundImage sql.NullString
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type ItemRow struct {
	Id          string
	UserId      string
	RoomId      string
	Name        string
	Description string
	ImageUrl    sql.NullString
	PositionX   sql.NullFloat64
	PositionY   sql.NullFloat64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CreateAccountParams struct {
	Id           string
	EmailAddress string
	PasswordHash string
}

type UpdatePasswordParams struct {
	UserId       string
	PasswordHash string
}
