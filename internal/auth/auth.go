// Package auth manages accounts and signed session tokens and notifies
// subscribers when a user's session starts, ends or is refreshed.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/go-curio/internal/database"
	"github.com/npezzotti/go-curio/internal/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6

	DefaultSessionTTL = 24 * time.Hour
	DefaultResetTTL   = time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrResetUnavailable   = errors.New("password reset is not configured")
)

type Event string

const (
	SignedIn       Event = "SIGNED_IN"
	SignedOut      Event = "SIGNED_OUT"
	TokenRefreshed Event = "TOKEN_REFRESHED"
)

// Handler receives auth events. sess is the affected session.
type Handler func(event Event, sess *types.Session)

// Mailer delivers password reset links.
type Mailer interface {
	SendMail(ctx context.Context, to, subject, text string) error
}

type Service struct {
	db         database.CurioRepository
	key        []byte
	mailer     Mailer
	log        *zap.Logger
	now        func() time.Time
	sessionTTL time.Duration
	resetTTL   time.Duration

	mu      sync.RWMutex
	nextSub int
	subs    map[int]Handler
}

type Option func(*Service)

func WithMailer(m Mailer) Option {
	return func(s *Service) { s.mailer = m }
}

func WithSessionTTL(d time.Duration) Option {
	return func(s *Service) { s.sessionTTL = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db database.CurioRepository, signingKey []byte, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		db:         db,
		key:        signingKey,
		log:        logger,
		now:        time.Now,
		sessionTTL: DefaultSessionTTL,
		resetTTL:   DefaultResetTTL,
		subs:       make(map[int]Handler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers h for auth events and returns a func that removes it.
func (s *Service) Subscribe(h Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = h

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Service) emit(event Event, sess *types.Session) {
	s.mu.RLock()
	handlers := make([]Handler, 0, len(s.subs))
	for _, h := range s.subs {
		handlers = append(handlers, h)
	}
	s.mu.RUnlock()

	for _, h := range handlers {
		h(event, sess)
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func hashPassword(passwd string) (string, error) {
	passwdHash, err := bcrypt.GenerateFromPassword([]byte(passwd), bcrypt.DefaultCost)
	return string(passwdHash), err
}

func verifyPassword(passwdHash, passwd string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(passwdHash), []byte(passwd))
	return err == nil
}

func (s *Service) issue(acc database.Account) (types.Session, error) {
	exp := s.now().Add(s.sessionTTL).UTC().Truncate(time.Second)
	token, err := signToken(s.key, purposeSession, acc.Id, acc.EmailAddress, exp)
	if err != nil {
		return types.Session{}, fmt.Errorf("sign token: %w", err)
	}

	return types.Session{
		UserId:       acc.Id,
		EmailAddress: acc.EmailAddress,
		Token:        token,
		ExpiresAt:    exp,
	}, nil
}

// SignUp creates an account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (types.Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return types.Session{}, err
	}
	if len(password) < MinPasswordLength {
		return types.Session{}, ErrWeakPassword
	}

	if _, err := s.db.GetAccountByEmail(ctx, email); err == nil {
		return types.Session{}, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return types.Session{}, fmt.Errorf("get account: %w", err)
	}

	pwdHash, err := hashPassword(password)
	if err != nil {
		return types.Session{}, fmt.Errorf("hash password: %w", err)
	}

	acc, err := s.db.CreateAccount(ctx, database.CreateAccountParams{
		Id:           uuid.NewString(),
		EmailAddress: email,
		PasswordHash: pwdHash,
	})
	if err != nil {
		return types.Session{}, fmt.Errorf("create account: %w", err)
	}

	sess, err := s.issue(acc)
	if err != nil {
		return types.Session{}, err
	}

	s.log.Info("account created", zap.String("user_id", acc.Id))
	s.emit(SignedIn, &sess)

	return sess, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (types.Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return types.Session{}, ErrInvalidCredentials
	}

	acc, err := s.db.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Session{}, ErrInvalidCredentials
		}
		return types.Session{}, fmt.Errorf("get account: %w", err)
	}

	if !verifyPassword(acc.PasswordHash, password) {
		return types.Session{}, ErrInvalidCredentials
	}

	sess, err := s.issue(acc)
	if err != nil {
		return types.Session{}, err
	}

	s.emit(SignedIn, &sess)

	return sess, nil
}

// SignOut ends sess. Tokens are stateless, so this only notifies
// subscribers; the token itself verifies until it expires and the caller
// is responsible for discarding it.
func (s *Service) SignOut(_ context.Context, sess types.Session) {
	s.emit(SignedOut, &sess)
}

// GetSession verifies a session token.
func (s *Service) GetSession(tokenString string) (types.Session, error) {
	c, err := verifyToken(s.key, tokenString, purposeSession)
	if err != nil {
		return types.Session{}, err
	}

	return types.Session{
		UserId:       c.userId,
		EmailAddress: c.email,
		Token:        tokenString,
		ExpiresAt:    c.expiresAt,
	}, nil
}

func (s *Service) CurrentUser(ctx context.Context, sess types.Session) (types.User, error) {
	acc, err := s.db.GetAccountById(ctx, sess.UserId)
	if err != nil {
		return types.User{}, fmt.Errorf("get account: %w", err)
	}

	return types.User{
		Id:           acc.Id,
		EmailAddress: acc.EmailAddress,
		CreatedAt:    acc.CreatedAt,
		UpdatedAt:    acc.UpdatedAt,
	}, nil
}

// Refresh issues a new token for a still-valid session.
func (s *Service) Refresh(ctx context.Context, sess types.Session) (types.Session, error) {
	acc, err := s.db.GetAccountById(ctx, sess.UserId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Session{}, ErrInvalidToken
		}
		return types.Session{}, fmt.Errorf("get account: %w", err)
	}

	refreshed, err := s.issue(acc)
	if err != nil {
		return types.Session{}, err
	}

	s.emit(TokenRefreshed, &refreshed)

	return refreshed, nil
}

// resetKey binds reset tokens to the current password hash so a token
// stops working once it has been used.
func (s *Service) resetKey(acc database.Account) []byte {
	key := make([]byte, 0, len(s.key)+len(acc.PasswordHash))
	key = append(key, s.key...)
	return append(key, acc.PasswordHash...)
}

// RequestPasswordReset mails a reset link to email. Unknown addresses
// succeed without sending anything.
func (s *Service) RequestPasswordReset(ctx context.Context, email, redirectTo string) error {
	if s.mailer == nil {
		return ErrResetUnavailable
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	acc, err := s.db.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.log.Debug("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("get account: %w", err)
	}

	token, err := signToken(s.resetKey(acc), purposeReset, acc.Id, acc.EmailAddress, s.now().Add(s.resetTTL))
	if err != nil {
		return fmt.Errorf("sign reset token: %w", err)
	}

	link := token
	if redirectTo != "" {
		link = fmt.Sprintf("%s?reset_token=%s", strings.TrimRight(redirectTo, "/"), token)
	}

	text := fmt.Sprintf("A password reset was requested for your account.\n\n"+
		"Use this link within %s to choose a new password:\n\n%s\n", s.resetTTL, link)
	if err := s.mailer.SendMail(ctx, acc.EmailAddress, "Reset your password", text); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}

	return nil
}

// ResetPassword sets a new password using a token from RequestPasswordReset.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}

	userId, err := peekUserId(token)
	if err != nil {
		return err
	}

	acc, err := s.db.GetAccountById(ctx, userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidToken
		}
		return fmt.Errorf("get account: %w", err)
	}

	if _, err := verifyToken(s.resetKey(acc), token, purposeReset); err != nil {
		return err
	}

	pwdHash, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.db.UpdatePassword(ctx, database.UpdatePasswordParams{UserId: acc.Id, PasswordHash: pwdHash}); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.log.Info("password reset", zap.String("user_id", acc.Id))

	return nil
}
