package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/npezzotti/go-curio/internal/adapter"
	"github.com/npezzotti/go-curio/internal/guard"
	"github.com/npezzotti/go-curio/internal/placement"
	"github.com/npezzotti/go-curio/internal/store"
	"github.com/npezzotti/go-curio/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage carries exactly one action.
type ClientMessage struct {
	BaseMessage
	Refresh    *Refresh     `json:"refresh,omitempty"`
	Navigate   *Navigate    `json:"navigate,omitempty"`
	Room       *RoomAction  `json:"room,omitempty"`
	Item       *ItemAction  `json:"item,omitempty"`
	Drag       *DragAction  `json:"drag,omitempty"`
	Order      *OrderAction `json:"order,omitempty"`
	Background *Background  `json:"background,omitempty"`
	Dismiss    *Dismiss     `json:"dismiss,omitempty"`
}

type Refresh struct{}

type Dismiss struct{}

const (
	DirectionNext = "next"
	DirectionPrev = "prev"
)

// Navigate selects the displayed room by direction, index or id. The first
// field set wins.
type Navigate struct {
	Direction string `json:"direction,omitempty"`
	Index     *int   `json:"index,omitempty"`
	RoomId    string `json:"room_id,omitempty"`
}

const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

type RoomAction struct {
	Op   string  `json:"op"`
	Id   string  `json:"id,omitempty"`
	Name *string `json:"name,omitempty"`
	Icon *string `json:"icon,omitempty"`
}

type ItemAction struct {
	Op          string          `json:"op"`
	Id          string          `json:"id,omitempty"`
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	ImageUrl    *string         `json:"image_url,omitempty"`
	Position    *types.Position `json:"position,omitempty"`
}

const (
	OpStart  = "start"
	OpDrop   = "drop"
	OpCancel = "cancel"
)

type DragAction struct {
	Op     string           `json:"op"`
	ItemId string           `json:"item_id,omitempty"`
	Source placement.Source `json:"source,omitempty"`
	X      float64          `json:"x"`
	Y      float64          `json:"y"`
	Canvas placement.Rect   `json:"canvas"`
}

const (
	OpBegin     = "begin"
	OpMove      = "move"
	OpSave      = "save"
	OpDragStart = "drag_start"
	OpDragOver  = "drag_over"
	OpDragLeave = "drag_leave"
	OpDragEnd   = "drag_end"
)

// OrderAction edits the working room sequence. From is the dragged or
// moved position; To is the hovered, drop or move target.
type OrderAction struct {
	Op   string `json:"op"`
	From int    `json:"from"`
	To   int    `json:"to"`
}

// OrderDrag is the drag state of the ordering dialog; -1 means unset.
type OrderDrag struct {
	Dragging int `json:"dragging"`
	Over     int `json:"over"`
}

type Background struct {
	RoomId  string `json:"room_id"`
	DataURL string `json:"data_url"`
}

type ServerMessage struct {
	BaseMessage
	Response     *Response     `json:"response,omitempty"`
	View         *store.View   `json:"view,omitempty"`
	Order        []types.Room  `json:"order,omitempty"`
	OrderDrag    *OrderDrag    `json:"order_drag,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

type Notification struct {
	SessionEnded *SessionEnded `json:"session_ended,omitempty"`
}

type SessionEnded struct {
	Reason string `json:"reason"`
}

func NoErrOK(id int, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func errResponse(id, code int, msg string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: code,
			Error:        msg,
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	if id < 0 {
		id = 0
	}
	return errResponse(id, http.StatusBadRequest, "invalid message format")
}

func ErrInternalError(id int) *ServerMessage {
	return errResponse(id, http.StatusInternalServerError, "internal server error")
}

// ErrFromError maps a failed action onto a response code.
func ErrFromError(id int, err error) *ServerMessage {
	var code int
	switch {
	case errors.Is(err, adapter.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, adapter.ErrInvalid),
		errors.Is(err, store.ErrNoRoom),
		errors.Is(err, errBadAction):
		code = http.StatusBadRequest
	case errors.Is(err, guard.ErrBusy):
		code = http.StatusConflict
	case errors.Is(err, adapter.ErrNoSession):
		code = http.StatusUnauthorized
	default:
		return ErrInternalError(id)
	}

	return errResponse(id, code, err.Error())
}

func sessionEnded(reason string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Notification: &Notification{
			SessionEnded: &SessionEnded{Reason: reason},
		},
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
