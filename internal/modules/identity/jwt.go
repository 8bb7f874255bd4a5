package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionMaxAge is the fixed lifetime of a session token and its cookie.
	SessionMaxAge = 30 * 24 * time.Hour

	// SessionRenewAfter is the sliding-renewal threshold: tokens older than
	// this are re-signed on the next request, extending the expiry window.
	SessionRenewAfter = 24 * time.Hour
)

// SessionClaims are the identity claims embedded in the signed session token.
// They are stamped once at login and deliberately not refreshed per-request;
// a change to the underlying user (admin flag, username) shows up in direct
// storage checks immediately but in the token only after the next login.
type SessionClaims struct {
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	Picture     string `json:"picture,omitempty"`
	Username    string `json:"username"`
	HasPassword bool   `json:"has_password"`
	IsAdmin     bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *SessionClaims) UserID() string {
	return c.Subject
}

// NewSessionClaims snapshots a user and profile into session claims.
func NewSessionClaims(user *User, profile *Profile) *SessionClaims {
	now := time.Now()
	claims := &SessionClaims{
		Email:       user.Email,
		Username:    user.Username,
		HasPassword: user.HasPassword(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionMaxAge)),
		},
	}
	if user.Name != nil {
		claims.Name = *user.Name
	}
	if user.Image != nil {
		claims.Picture = *user.Image
	}
	if profile != nil {
		claims.IsAdmin = profile.IsAdmin
		if profile.AvatarURL != nil && claims.Picture == "" {
			claims.Picture = *profile.AvatarURL
		}
	}
	return claims
}

// SignSessionToken signs the claims with the HS256 session secret.
func SignSessionToken(secret string, claims *SessionClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSessionToken verifies the signature and expiry of a session token and
// returns its claims. Any failure yields a nil result; callers treat that as
// "no session".
func ParseSessionToken(secret, tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ShouldRenew reports whether a token is past the sliding-renewal threshold.
func ShouldRenew(claims *SessionClaims, now time.Time) bool {
	if claims.IssuedAt == nil {
		return true
	}
	return now.Sub(claims.IssuedAt.Time) >= SessionRenewAfter
}

// Renew re-signs the claims with a fresh issue time and expiry, keeping the
// identity snapshot untouched.
func Renew(claims *SessionClaims, now time.Time) *SessionClaims {
	cp := *claims
	cp.IssuedAt = jwt.NewNumericDate(now)
	cp.ExpiresAt = jwt.NewNumericDate(now.Add(SessionMaxAge))
	return &cp
}
