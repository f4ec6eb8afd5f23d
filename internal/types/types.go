package types

import (
	"time"
)

type User struct {
	Id           string    `json:"id"`
	EmailAddress string    `json:"email_address,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Session is the authenticated context threaded through every user-scoped
// operation. It is created on sign in and discarded on sign out.
type Session struct {
	UserId       string    `json:"user_id"`
	EmailAddress string    `json:"email_address"`
	Token        string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type Room struct {
	Id              string `json:"id"`
	Name            string `json:"name"`
	Icon            string `json:"icon,omitempty"`
	Order           int    `json:"order"`
	BackgroundImage string `json:"background_image,omitempty"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Item struct {
	Id          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageUrl    string    `json:"image_url,omitempty"`
	RoomId      string    `json:"room_id"`
	CreatedAt   time.Time `json:"created_at"`
	Position    *Position `json:"position,omitempty"`
}

// Placed reports whether the item has been dropped onto its room's canvas.
func (i Item) Placed() bool {
	return i.Position != nil
}

// RoomInput holds the user-settable fields of a new room.
type RoomInput struct {
	Name            string `json:"name"`
	Icon            string `json:"icon,omitempty"`
	BackgroundImage string `json:"background_image,omitempty"`
}

// RoomPatch is a partial room update. Nil fields are left unchanged; a
// pointer to "" clears an optional field.
type RoomPatch struct {
	Name            *string `json:"name,omitempty"`
	Icon            *string `json:"icon,omitempty"`
	BackgroundImage *string `json:"background_image,omitempty"`
}

type ItemInput struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageUrl    string    `json:"image_url,omitempty"`
	Position    *Position `json:"position,omitempty"`
}

type ItemPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	ImageUrl    *string `json:"image_url,omitempty"`
}
