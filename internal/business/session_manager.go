package business

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Agurato/kolnoa/internal/model"
)

const sessionIssuer = "kolnoa"

// SessionClaims is the content of a session token
type SessionClaims struct {
	Username string `json:"username"`
	Admin    bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies the signed tokens kept in the session cookie and handed to API clients
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return NewSessionManagerWithClock(secret, ttl, time.Now)
}

func NewSessionManagerWithClock(secret string, ttl time.Duration, now func() time.Time) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    now,
	}
}

// TTL returns the lifetime of issued tokens
func (sm SessionManager) TTL() time.Duration {
	return sm.ttl
}

// Issue signs a new token for profile
func (sm SessionManager) Issue(profile *model.Profile) (string, error) {
	now := sm.now()
	claims := SessionClaims{
		Username: profile.Username,
		Admin:    profile.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   profile.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sm.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sm.secret)
	if err != nil {
		return "", fmt.Errorf("could not sign session: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry of a token
func (sm SessionManager) Parse(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return sm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(sm.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid session: %w", model.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("session has no subject: %w", model.ErrUnauthorized)
	}
	return claims, nil
}

// NeedsRefresh reports whether more than half of the token lifetime has elapsed
func (sm SessionManager) NeedsRefresh(claims *SessionClaims) bool {
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return true
	}
	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	return sm.now().Sub(claims.IssuedAt.Time) > lifetime/2
}
