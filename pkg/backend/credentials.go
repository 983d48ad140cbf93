package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenSource supplies the bearer token sent to the backend. An empty token
// means no Authorization header.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed API key.
type StaticToken string

// Token returns the key.
func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// JWTSource mints short-lived HS256 tokens from a shared secret. A token is
// reused until the last fifth of its lifetime.
type JWTSource struct {
	secret  []byte
	issuer  string
	subject string
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewJWTSource creates a JWTSource. A zero ttl defaults to five minutes.
func NewJWTSource(secret []byte, issuer string, ttl time.Duration) *JWTSource {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &JWTSource{
		secret:  secret,
		issuer:  issuer,
		subject: "dialekt",
		ttl:     ttl,
		now:     time.Now,
	}
}

// Token returns a cached token or signs a new one.
func (s *JWTSource) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Before(s.expires.Add(-s.ttl/5)) {
		return s.token, nil
	}

	claims := jwtlib.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   s.subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing backend token: %w", err)
	}

	s.token = signed
	s.expires = now.Add(s.ttl)
	return signed, nil
}
