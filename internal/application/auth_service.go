package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// TokenVerifier validates a bearer token with the identity provider.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// AuthService turns bearer tokens into principals.
type AuthService struct {
	verifier TokenVerifier
	cache    *principalCache
	now      func() time.Time
	logger   *slog.Logger
}

// NewAuthService constructs an AuthService. A positive cacheTTL enables the
// verified-principal cache.
func NewAuthService(verifier TokenVerifier, now func() time.Time, cacheTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(verifier, now, cacheTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(verifier TokenVerifier, now func() time.Time, cacheTTL time.Duration, logger *slog.Logger) *AuthService {
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		verifier: verifier,
		cache:    newPrincipalCache(cacheTTL, 0, now),
		now:      now,
		logger:   defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Verify validates token and returns the identity it carries. Any failure to
// verify is reported as ErrUnauthenticated.
func (s *AuthService) Verify(ctx context.Context, token string) (identity Identity, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.verifier == nil {
		err = fmt.Errorf("token verifier not configured")
		return
	}

	token = strings.TrimSpace(token)
	if token == "" {
		err = ErrUnauthenticated
		return
	}

	if cached, ok := s.cache.Get(token); ok {
		return cached, nil
	}

	identity, err = s.verifier.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Identity{}, err
		}
		s.loggerWith(ctx, "Verify").WarnContext(ctx, "token rejected", "error", err, "error_kind", ErrorKind(ErrUnauthenticated))
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if identity.UserID == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	if !identity.ExpiresAt.IsZero() && !s.now().Before(identity.ExpiresAt) {
		return Identity{}, fmt.Errorf("%w: token expired", ErrUnauthenticated)
	}

	s.cache.Store(token, identity)
	return identity, nil
}

// Authenticate validates token and returns the request principal.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Principal, error) {
	identity, err := s.Verify(ctx, token)
	if err != nil {
		return Principal{}, err
	}
	return identity.Principal(), nil
}
