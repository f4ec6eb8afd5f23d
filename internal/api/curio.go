package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-curio/internal/config"
	"github.com/npezzotti/go-curio/internal/feedback"
	"github.com/npezzotti/go-curio/internal/guard"
	"github.com/npezzotti/go-curio/internal/server"
	"github.com/npezzotti/go-curio/internal/stats"
	"github.com/npezzotti/go-curio/internal/store"
	"github.com/npezzotti/go-curio/internal/types"
	"go.uber.org/zap"
)

type AuthService interface {
	SignUp(ctx context.Context, email, password string) (types.Session, error)
	SignIn(ctx context.Context, email, password string) (types.Session, error)
	SignOut(ctx context.Context, sess types.Session)
	GetSession(token string) (types.Session, error)
	CurrentUser(ctx context.Context, sess types.Session) (types.User, error)
	Refresh(ctx context.Context, sess types.Session) (types.Session, error)
	RequestPasswordReset(ctx context.Context, email, redirectTo string) error
	ResetPassword(ctx context.Context, token, password string) error
}

type EntityService interface {
	store.Adapter
	GetRoom(ctx context.Context, sess types.Session, id string) (types.Room, error)
	GetItem(ctx context.Context, sess types.Session, id string) (types.Item, error)
}

type FeedbackSender interface {
	Send(ctx context.Context, msg feedback.Message) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the collaborators the HTTP API is built on. Feedback may be
// nil when no relay is configured.
type Services struct {
	Auth     AuthService
	Entities EntityService
	Guard    guard.Guard
	Feedback FeedbackSender
	Health   Pinger
	Views    *server.ViewServer
	Stats    stats.StatsProvider
}

type CurioApp struct {
	log            *zap.Logger
	auth           AuthService
	entities       EntityService
	guard          guard.Guard
	feedback       FeedbackSender
	health         Pinger
	vs             *server.ViewServer
	stats          stats.StatsProvider
	srv            *http.Server
	allowedOrigins []string
}

func NewCurioApp(mux *http.ServeMux, logger *zap.Logger, svc Services, cfg *config.Config) *CurioApp {
	s := &CurioApp{
		log:            logger,
		auth:           svc.Auth,
		entities:       svc.Entities,
		guard:          svc.Guard,
		feedback:       svc.Feedback,
		health:         svc.Health,
		vs:             svc.Views,
		stats:          svc.Stats,
		allowedOrigins: cfg.AllowedOrigins,
	}
	if s.guard == nil {
		s.guard = guard.NewMemoryGuard()
	}

	mux.HandleFunc("POST /api/auth/signup", s.signUp)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("POST /api/auth/logout", s.authMiddleware(s.logout))
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.HandleFunc("POST /api/auth/refresh", s.authMiddleware(s.refresh))
	mux.HandleFunc("POST /api/auth/password/reset", s.requestPasswordReset)
	mux.HandleFunc("POST /api/auth/password/confirm", s.resetPassword)
	mux.HandleFunc("GET /api/account", s.authMiddleware(s.account))

	mux.HandleFunc("GET /api/rooms", s.authMiddleware(s.listRooms))
	mux.HandleFunc("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.HandleFunc("PUT /api/rooms/order", s.authMiddleware(s.reorderRooms))
	mux.HandleFunc("GET /api/rooms/{id}", s.authMiddleware(s.getRoom))
	mux.HandleFunc("PATCH /api/rooms/{id}", s.authMiddleware(s.updateRoom))
	mux.HandleFunc("DELETE /api/rooms/{id}", s.authMiddleware(s.deleteRoom))
	mux.HandleFunc("PUT /api/rooms/{id}/background", s.authMiddleware(s.uploadBackground))

	mux.HandleFunc("GET /api/items", s.authMiddleware(s.listItems))
	mux.HandleFunc("POST /api/items", s.authMiddleware(s.createItem))
	mux.HandleFunc("GET /api/items/{id}", s.authMiddleware(s.getItem))
	mux.HandleFunc("PATCH /api/items/{id}", s.authMiddleware(s.updateItem))
	mux.HandleFunc("DELETE /api/items/{id}", s.authMiddleware(s.deleteItem))
	mux.HandleFunc("PUT /api/items/{id}/position", s.authMiddleware(s.updateItemPosition))

	mux.HandleFunc("POST /api/feedback", s.authMiddleware(s.sendFeedback))
	mux.HandleFunc("GET /healthz", s.healthz)
	mux.HandleFunc("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.requestLogger(h)
	h = s.errorHandler(h)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *CurioApp) Handler() http.Handler {
	return s.srv.Handler
}

func (s *CurioApp) Start() error {
	s.log.Info("starting server", zap.String("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

func (s *CurioApp) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
