// Package auth holds the visitor's sign-in state for the storefront process.
package auth

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Session holds the bearer token issued to the visitor by the auth service.
// The remote services verify the token; the session only decodes its claims
// unless a shared secret is configured.
type Session struct {
	mu        sync.RWMutex
	token     string
	user      *domain.User
	expiresAt time.Time

	secret []byte
	parser *jwt.Parser
	now    func() time.Time
	logger *slog.Logger
}

// NewSession creates an empty session. With a non-empty secret, tokens must
// carry a valid HMAC signature.
func NewSession(secret string, logger *slog.Logger) *Session {
	return &Session{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithoutClaimsValidation()),
		now:    time.Now,
		logger: logger,
	}
}

// SignIn replaces the current credential with token. Malformed, badly signed
// or expired tokens are rejected with Unauthorized and leave the session
// unchanged.
func (s *Session) SignIn(token string) (*domain.User, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, apperrors.Unauthorized("token is required")
	}

	claims, err := s.parse(token)
	if err != nil {
		s.logger.Warn("rejected sign-in token", slog.String("error", err.Error()))
		return nil, apperrors.Unauthorized("invalid token")
	}

	user := &domain.User{
		ID:    stringClaim(claims, "user_id", "sub", "_id", "id"),
		Email: stringClaim(claims, "email"),
		Role:  stringClaim(claims, "role"),
	}
	if user.ID == "" {
		return nil, apperrors.Unauthorized("token carries no user id")
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
		if !s.now().Before(expiresAt) {
			return nil, apperrors.Unauthorized("token has expired")
		}
	}

	s.mu.Lock()
	s.token = token
	s.user = user
	s.expiresAt = expiresAt
	s.mu.Unlock()

	s.logger.Info("visitor signed in", slog.String("user_id", user.ID))
	cp := *user
	return &cp, nil
}

func (s *Session) parse(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if len(s.secret) == 0 {
		if _, _, err := s.parser.ParseUnverified(token, claims); err != nil {
			return nil, err
		}
		return claims, nil
	}

	parsed, err := s.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}

// SignOut forgets the credential.
func (s *Session) SignOut() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

// IsAuthenticated reports whether a credential is present and unexpired.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validLocked()
}

func (s *Session) validLocked() bool {
	if s.token == "" {
		return false
	}
	return s.expiresAt.IsZero() || s.now().Before(s.expiresAt)
}

// CurrentUser returns a copy of the signed-in user.
func (s *Session) CurrentUser() (*domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return nil, false
	}
	cp := *s.user
	return &cp, true
}

// Headers returns the Authorization header for remote calls, or an empty map
// when there is no valid credential.
func (s *Session) Headers() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return map[string]string{}
	}
	return map[string]string{"Authorization": "Bearer " + s.token}
}

func stringClaim(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if v, ok := claims[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
