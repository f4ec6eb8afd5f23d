package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-curio/internal/adapter"
	"github.com/npezzotti/go-curio/internal/feedback"
	"github.com/npezzotti/go-curio/internal/guard"
	"github.com/npezzotti/go-curio/internal/placement"
	"github.com/npezzotti/go-curio/internal/server"
	"github.com/npezzotti/go-curio/internal/stats"
	"github.com/npezzotti/go-curio/internal/types"
	"go.uber.org/zap"
)

type CreateItemRequest struct {
	RoomId string `json:"room_id"`
	types.ItemInput
}

type ReorderRoomsRequest struct {
	Ids []string `json:"ids"`
}

// PositionRequest carries a new canvas offset, which is never negative.
// When Canvas is set the offset must lie inside it or nothing is stored.
type PositionRequest struct {
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	Canvas *placement.Rect `json:"canvas,omitempty"`
}

type PositionResponse struct {
	Committed bool        `json:"committed"`
	Item      *types.Item `json:"item,omitempty"`
}

type FeedbackRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (s *CurioApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("json encode failed", zap.Error(err))
	}
}

func (s *CurioApp) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return false
	}
	return true
}

// guarded runs fn unless another change to the same entity is in flight.
func (s *CurioApp) guarded(ctx context.Context, sess types.Session, key string, fn func() error) error {
	err := guard.Do(ctx, s.guard, sess.UserId+":"+key, fn)
	if err != nil && s.stats != nil {
		s.stats.Incr(stats.FailedMutations)
	}
	return err
}

func (s *CurioApp) listRooms(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())

	rooms, err := s.entities.ListRooms(r.Context(), sess)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, rooms)
}

func (s *CurioApp) getRoom(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())

	room, err := s.entities.GetRoom(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, room)
}

func (s *CurioApp) createRoom(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())

	var in types.RoomInput
	if !s.decode(w, r, &in) {
		return
	}

	room, err := s.entities.CreateRoom(r.Context(), sess, in)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, room)
}

func (s *CurioApp) updateRoom(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	id := r.PathValue("id")

	var patch types.RoomPatch
	if !s.decode(w, r, &patch) {
		return
	}

	var room types.Room
	err := s.guarded(r.Context(), sess, "room:"+id, func() error {
		var err error
		room, err = s.entities.UpdateRoom(r.Context(), sess, id, patch)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, room)
}

func (s *CurioApp) deleteRoom(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	id := r.PathValue("id")

	err := s.guarded(r.Context(), sess, "room:"+id, func() error {
		return s.entities.DeleteRoom(r.Context(), sess, id)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *CurioApp) reorderRooms(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())

	var req ReorderRoomsRequest
	if !s.decode(w, r, &req) {
		return
	}

	var rooms []types.Room
	err := s.guarded(r.Context(), sess, "rooms:order", func() error {
		var err error
		rooms, err = s.entities.ReorderRooms(r.Context(), sess, req.Ids)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, rooms)
}

// uploadBackground stores a multipart "image" upload as the room's
// background.
func (s *CurioApp) uploadBackground(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	id := r.PathValue("id")

	r.Body = http.MaxBytesReader(w, r.Body, placement.DefaultBackgroundLimit+1<<20)
	file, _, err := r.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, placement.ErrTooLarge)
			return
		}
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	defer file.Close()

	dataURL, err := placement.EncodeBackground(file, placement.DefaultBackgroundLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var room types.Room
	err = s.guarded(r.Context(), sess, "room:"+id, func() error {
		var err error
		room, err = s.entities.UpdateRoom(r.Context(), sess, id, types.RoomPatch{BackgroundImage: &dataURL})
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, room)
}

func (s *CurioApp) listItems(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())

	items, err := s.entities.ListItems(r.Context(), sess, r.URL.Query().Get("room_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, items)
}

func (s *CurioApp) getItem(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())

	item, err := s.entities.GetItem(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, item)
}

func (s *CurioApp) createItem(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())

	var req CreateItemRequest
	if !s.decode(w, r, &req) {
		return
	}

	item, err := s.entities.CreateItem(r.Context(), sess, req.RoomId, req.ItemInput)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, item)
}

func (s *CurioApp) updateItem(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	id := r.PathValue("id")

	var patch types.ItemPatch
	if !s.decode(w, r, &patch) {
		return
	}

	var item types.Item
	err := s.guarded(r.Context(), sess, "item:"+id, func() error {
		var err error
		item, err = s.entities.UpdateItem(r.Context(), sess, id, patch)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, item)
}

func (s *CurioApp) deleteItem(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	id := r.PathValue("id")

	err := s.guarded(r.Context(), sess, "item:"+id, func() error {
		return s.entities.DeleteItem(r.Context(), sess, id)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *CurioApp) updateItemPosition(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	id := r.PathValue("id")

	var req PositionRequest
	if !s.decode(w, r, &req) {
		return
	}

	if req.X < 0 || req.Y < 0 {
		s.writeError(w, fmt.Errorf("%w: position must not be negative", adapter.ErrInvalid))
		return
	}

	if req.Canvas != nil && !req.Canvas.Contains(req.X, req.Y) {
		if s.stats != nil {
			s.stats.Incr(stats.DropsDiscarded)
		}
		s.writeJson(w, http.StatusOK, PositionResponse{Committed: false})
		return
	}

	var item types.Item
	err := s.guarded(r.Context(), sess, "item:"+id, func() error {
		var err error
		item, err = s.entities.UpdateItemPosition(r.Context(), sess, id, types.Position{X: req.X, Y: req.Y})
		return err
	})
	if err != nil {
		s.log.Error("failed to commit item position",
			zap.String("item_id", id),
			zap.Float64("x", req.X),
			zap.Float64("y", req.Y),
			zap.Error(err),
		)
		s.writeError(w, err)
		return
	}

	if s.stats != nil {
		s.stats.Incr(stats.DropsCommitted)
	}
	s.writeJson(w, http.StatusOK, PositionResponse{Committed: true, Item: &item})
}

func (s *CurioApp) sendFeedback(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())

	if s.feedback == nil {
		errResp := NewServiceUnavailableError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req FeedbackRequest
	if !s.decode(w, r, &req) {
		return
	}

	err := s.feedback.Send(r.Context(), feedback.Message{
		Subject: req.Subject,
		Text:    req.Message,
		ReplyTo: sess.EmailAddress,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.stats != nil {
		s.stats.Incr(stats.FeedbackMessages)
	}
	s.writeJson(w, http.StatusAccepted, nil)
}

func (s *CurioApp) healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.health.Ping(ctx); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			errResp := NewServiceUnavailableError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *CurioApp) serveWs(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("error upgrading connection", zap.Error(err))
		return
	}

	v := server.NewViewer(sess, conn, s.vs)
	if !s.vs.Register(v) {
		conn.Close()
		return
	}
	go v.Write()
	go v.Read()
}
