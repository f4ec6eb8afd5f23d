package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-curio/internal/ordering"
	"github.com/npezzotti/go-curio/internal/placement"
	"github.com/npezzotti/go-curio/internal/stats"
	"github.com/npezzotti/go-curio/internal/store"
	"github.com/npezzotti/go-curio/internal/types"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	actionTimeout  = 15 * time.Second
	maxMessageSize = 8 << 20 // background images travel as data urls
)

var errBadAction = errors.New("bad action")

// Viewer is one websocket view session. Only the read goroutine touches
// the store, engine and editor.
type Viewer struct {
	conn     *websocket.Conn
	server   *ViewServer
	log      *zap.Logger
	sess     types.Session
	store    *store.Store
	engine   *placement.Engine
	editor   *ordering.Editor
	send     chan *ServerMessage
	stop     chan struct{}
	stopOnce sync.Once
	expires  atomic.Int64
}

func NewViewer(sess types.Session, conn *websocket.Conn, vs *ViewServer) *Viewer {
	logger := vs.log.With(zap.String("user_id", sess.UserId))
	st := store.New(logger, vs.adapter, vs.guard, sess)

	v := &Viewer{
		conn:   conn,
		server: vs,
		log:    logger,
		sess:   sess,
		store:  st,
		engine: placement.NewEngine(st),
		send:   make(chan *ServerMessage, 256),
		stop:   make(chan struct{}),
	}
	v.setExpiry(sess.ExpiresAt)

	return v
}

func (v *Viewer) setExpiry(t time.Time) {
	if t.IsZero() {
		v.expires.Store(0)
		return
	}
	v.expires.Store(t.UnixNano())
}

func (v *Viewer) expired(now time.Time) bool {
	exp := v.expires.Load()
	return exp != 0 && now.UnixNano() > exp
}

func (v *Viewer) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		v.conn.Close()
		v.log.Debug("viewer write exiting")
	}()

	for {
		select {
		case msg, ok := <-v.send:
			if !ok {
				return
			}
			if !v.writeMessage(msg) {
				return
			}
		case <-v.stop:
			v.flush()
			v.sendMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case now := <-ticker.C:
			if v.expired(now) {
				v.writeMessage(sessionEnded("session expired"))
				return
			}
			if !v.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// flush writes whatever is already queued without waiting for more.
func (v *Viewer) flush() {
	for {
		select {
		case msg := <-v.send:
			if !v.writeMessage(msg) {
				return
			}
		default:
			return
		}
	}
}

func (v *Viewer) Read() {
	defer func() {
		v.conn.Close()
		v.cleanup()
		v.log.Debug("viewer read exiting")
	}()

	v.conn.SetReadLimit(maxMessageSize)
	v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error { v.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	v.refresh(0)

	for {
		_, raw, err := v.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				v.log.Warn("ws read failed", zap.Error(err))
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			v.log.Debug("error parsing message", zap.Error(err))
			v.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		v.queueMessage(v.handle(ctx, &msg))
		cancel()
	}
}

func (v *Viewer) refresh(id int) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	if err := v.store.Load(ctx); err != nil {
		v.queueMessage(v.withView(ErrFromError(id, err)))
		return
	}
	v.queueMessage(v.withView(NoErrOK(id, nil)))
}

func (v *Viewer) queueMessage(msg *ServerMessage) bool {
	select {
	case v.send <- msg:
	default:
		v.log.Warn("failed to send message to viewer, channel is full")
		return false
	}

	return true
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (v *Viewer) writeMessage(msg *ServerMessage) bool {
	bytes, err := serializeMessage(msg)
	if err != nil {
		v.log.Error("failed to serialize message", zap.Error(err))
		return true
	}

	return v.sendMessage(websocket.TextMessage, bytes)
}

func (v *Viewer) sendMessage(msgType int, msg []byte) bool {
	v.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := v.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			v.log.Warn("write message failed", zap.Error(err))
		}
		return false
	}

	return true
}

func (v *Viewer) stopViewer() {
	v.stopOnce.Do(func() { close(v.stop) })
}

func (v *Viewer) cleanup() {
	v.server.deregister(v)
	v.stopViewer()
}

func (v *Viewer) withView(msg *ServerMessage) *ServerMessage {
	view := v.store.Snapshot()
	msg.View = &view
	if v.editor != nil {
		msg.Order = v.editor.Result()
		dragging, over := v.editor.Dragging()
		msg.OrderDrag = &OrderDrag{Dragging: dragging, Over: over}
	}
	return msg
}

// handle runs one action against the session's store and answers with the
// outcome and the resulting view.
func (v *Viewer) handle(ctx context.Context, msg *ClientMessage) *ServerMessage {
	var (
		data any
		err  error
	)

	switch {
	case msg.Refresh != nil:
		err = v.store.Load(ctx)
	case msg.Navigate != nil:
		err = v.navigate(msg.Navigate)
	case msg.Room != nil:
		data, err = v.room(ctx, msg.Room)
	case msg.Item != nil:
		data, err = v.item(ctx, msg.Item)
	case msg.Drag != nil:
		data, err = v.drag(ctx, msg.Drag)
	case msg.Order != nil:
		err = v.order(ctx, msg.Order)
	case msg.Background != nil:
		data, err = v.background(ctx, msg.Background)
	case msg.Dismiss != nil:
		v.store.DismissError()
	default:
		return ErrInvalidMessage(msg.Id)
	}

	if err != nil {
		v.log.Debug("action failed", zap.Int("msg_id", msg.Id), zap.Error(err))
		v.server.stats.Incr(stats.FailedMutations)
		return v.withView(ErrFromError(msg.Id, err))
	}

	return v.withView(NoErrOK(msg.Id, data))
}

func (v *Viewer) navigate(n *Navigate) error {
	switch {
	case n.Direction == DirectionNext:
		v.store.Next()
	case n.Direction == DirectionPrev:
		v.store.Prev()
	case n.Index != nil:
		if err := v.store.Jump(*n.Index); err != nil {
			return fmt.Errorf("%w: %v", errBadAction, err)
		}
	case n.RoomId != "":
		return v.store.JumpTo(n.RoomId)
	default:
		return fmt.Errorf("%w: navigate needs a direction, index or room id", errBadAction)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (v *Viewer) room(ctx context.Context, a *RoomAction) (any, error) {
	switch a.Op {
	case OpCreate:
		return v.store.CreateRoom(ctx, types.RoomInput{Name: deref(a.Name), Icon: deref(a.Icon)})
	case OpUpdate:
		return v.store.UpdateRoom(ctx, a.Id, types.RoomPatch{Name: a.Name, Icon: a.Icon})
	case OpDelete:
		return nil, v.store.DeleteRoom(ctx, a.Id)
	default:
		return nil, fmt.Errorf("%w: unknown room op %q", errBadAction, a.Op)
	}
}

func (v *Viewer) item(ctx context.Context, a *ItemAction) (any, error) {
	switch a.Op {
	case OpCreate:
		return v.store.CreateItem(ctx, types.ItemInput{
			Name:        deref(a.Name),
			Description: deref(a.Description),
			ImageUrl:    deref(a.ImageUrl),
			Position:    a.Position,
		})
	case OpUpdate:
		return v.store.UpdateItem(ctx, a.Id, types.ItemPatch{
			Name:        a.Name,
			Description: a.Description,
			ImageUrl:    a.ImageUrl,
		})
	case OpDelete:
		return nil, v.store.DeleteItem(ctx, a.Id)
	default:
		return nil, fmt.Errorf("%w: unknown item op %q", errBadAction, a.Op)
	}
}

type dropResult struct {
	Committed bool           `json:"committed"`
	Position  types.Position `json:"position"`
}

func (v *Viewer) drag(ctx context.Context, a *DragAction) (any, error) {
	switch a.Op {
	case OpStart:
		if _, ok := v.store.Item(a.ItemId); !ok {
			return nil, fmt.Errorf("%w: unknown item %q", errBadAction, a.ItemId)
		}
		v.engine.BeginSidebarDrag(a.ItemId)
		return nil, nil
	case OpCancel:
		v.engine.CancelSidebarDrag()
		return nil, nil
	case OpDrop:
		pos, ok, err := v.engine.Drop(ctx, placement.Drop{
			Source: a.Source,
			ItemId: a.ItemId,
			X:      a.X,
			Y:      a.Y,
			Canvas: a.Canvas,
		})
		if errors.Is(err, placement.ErrInvalidDrop) {
			return nil, fmt.Errorf("%w: %v", errBadAction, err)
		}
		if err != nil {
			// already logged by the store; the item stays where it was
			v.server.stats.Incr(stats.DropsDiscarded)
			return dropResult{Committed: false, Position: pos}, nil
		}
		if ok {
			v.server.stats.Incr(stats.DropsCommitted)
		} else {
			v.server.stats.Incr(stats.DropsDiscarded)
		}
		return dropResult{Committed: ok, Position: pos}, nil
	default:
		return nil, fmt.Errorf("%w: unknown drag op %q", errBadAction, a.Op)
	}
}

func (v *Viewer) order(ctx context.Context, a *OrderAction) error {
	if a.Op == OpBegin {
		v.editor = ordering.NewEditor(v.store.Rooms())
		return nil
	}

	if v.editor == nil {
		return fmt.Errorf("%w: room ordering has not begun", errBadAction)
	}

	switch a.Op {
	case OpDragStart:
		if err := v.editor.DragStart(a.From); err != nil {
			return fmt.Errorf("%w: %v", errBadAction, err)
		}
	case OpDragOver:
		v.editor.DragOver(a.To)
	case OpDragLeave:
		v.editor.DragLeave()
	case OpDrop:
		if err := v.editor.Drop(a.To); err != nil {
			return fmt.Errorf("%w: %v", errBadAction, err)
		}
	case OpDragEnd:
		v.editor.DragEnd()
	case OpMove:
		if err := v.editor.Move(a.From, a.To); err != nil {
			return fmt.Errorf("%w: %v", errBadAction, err)
		}
	case OpSave:
		if err := v.store.SaveRoomOrder(ctx, v.editor.Ids()); err != nil {
			return err
		}
		v.editor = nil
	case OpCancel:
		v.editor = nil
	default:
		return fmt.Errorf("%w: unknown order op %q", errBadAction, a.Op)
	}

	return nil
}

func (v *Viewer) background(ctx context.Context, b *Background) (any, error) {
	if !placement.IsDataURL(b.DataURL) {
		return nil, fmt.Errorf("%w: background must be an image data url", errBadAction)
	}
	return v.store.SetBackground(ctx, b.RoomId, b.DataURL)
}
