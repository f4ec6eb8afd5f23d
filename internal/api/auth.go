package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/npezzotti/go-curio/internal/types"
	"go.uber.org/zap"
)

const tokenCookieKey = "token"

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PasswordResetRequest struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirect_to"`
}

type PasswordConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type SessionResponse struct {
	UserId       string    `json:"user_id"`
	EmailAddress string    `json:"email_address"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func sessionResponse(sess types.Session) SessionResponse {
	return SessionResponse{
		UserId:       sess.UserId,
		EmailAddress: sess.EmailAddress,
		ExpiresAt:    sess.ExpiresAt,
	}
}

func createJwtCookie(tokenString string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieKey,
		Value:    tokenString,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (s *CurioApp) decodeCredentials(w http.ResponseWriter, r *http.Request) (CredentialsRequest, bool) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return req, false
	}
	return req, true
}

func (s *CurioApp) signUp(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}

	sess, err := s.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	http.SetCookie(w, createJwtCookie(sess.Token, sess.ExpiresAt))
	s.writeJson(w, http.StatusCreated, sessionResponse(sess))
}

func (s *CurioApp) login(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}

	sess, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	http.SetCookie(w, createJwtCookie(sess.Token, sess.ExpiresAt))
	s.writeJson(w, http.StatusOK, sessionResponse(sess))
}

func (s *CurioApp) logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	s.auth.SignOut(r.Context(), sess)

	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Unix(0, 0)))
	w.WriteHeader(http.StatusNoContent)
}

func (s *CurioApp) session(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, sessionResponse(sess))
}

func (s *CurioApp) refresh(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	refreshed, err := s.auth.Refresh(r.Context(), sess)
	if err != nil {
		s.writeError(w, err)
		return
	}

	http.SetCookie(w, createJwtCookie(refreshed.Token, refreshed.ExpiresAt))
	s.writeJson(w, http.StatusOK, sessionResponse(refreshed))
}

func (s *CurioApp) account(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.auth.CurrentUser(r.Context(), sess)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, user)
}

func (s *CurioApp) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	redirectTo := req.RedirectTo
	if redirectTo == "" {
		redirectTo = r.Header.Get("Origin")
	}

	if err := s.auth.RequestPasswordReset(r.Context(), req.Email, redirectTo); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusAccepted, nil)
}

func (s *CurioApp) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		s.writeError(w, err)
		return
	}

	s.log.Debug("password changed through reset link")
	w.WriteHeader(http.StatusNoContent)
}

func (s *CurioApp) writeError(w http.ResponseWriter, err error) {
	errResp := errorFrom(err)
	if errResp.StatusCode >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}
