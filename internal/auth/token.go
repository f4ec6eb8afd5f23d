package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

const (
	userIdClaim  = "user-id"
	emailClaim   = "email"
	purposeClaim = "purpose"
	expClaim     = "exp"

	purposeSession = "session"
	purposeReset   = "reset"
)

var ErrInvalidToken = errors.New("invalid or expired token")

func signToken(key []byte, purpose, userId, email string, exp time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIdClaim:  userId,
		emailClaim:   email,
		purposeClaim: purpose,
		expClaim:     exp.Unix(),
	})

	return token.SignedString(key)
}

type claims struct {
	userId    string
	email     string
	expiresAt time.Time
}

func readClaims(mc jwt.MapClaims, purpose string) (claims, error) {
	if p, _ := mc[purposeClaim].(string); p != purpose {
		return claims{}, fmt.Errorf("%w: unexpected purpose %q", ErrInvalidToken, p)
	}

	userId, ok := mc[userIdClaim].(string)
	if !ok || userId == "" {
		return claims{}, fmt.Errorf("%w: invalid user id claim", ErrInvalidToken)
	}

	email, _ := mc[emailClaim].(string)

	exp, ok := mc[expClaim].(float64)
	if !ok {
		return claims{}, fmt.Errorf("%w: missing exp claim", ErrInvalidToken)
	}

	return claims{userId: userId, email: email, expiresAt: time.Unix(int64(exp), 0).UTC()}, nil
}

func verifyToken(key []byte, tokenString, purpose string) (claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return claims{}, ErrInvalidToken
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return claims{}, fmt.Errorf("%w: invalid token claims", ErrInvalidToken)
	}

	return readClaims(mc, purpose)
}

// peekUserId reads the user id of a token without checking its signature.
// Reset tokens are signed with a per-account key, so the account has to be
// found before the token can be verified.
func peekUserId(tokenString string) (string, error) {
	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	userId, _ := mc[userIdClaim].(string)
	if _, err := uuid.Parse(userId); err != nil {
		return "", ErrInvalidToken
	}

	return userId, nil
}
