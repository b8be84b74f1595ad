package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAuthService_Verify(t *testing.T) {
	t.Parallel()

	now := fixedNow()
	identity := Identity{UserID: "uid-1", Email: "ana@example.com", Name: "Ana", Provider: "google.com", ExpiresAt: now.Add(time.Hour)}

	t.Run("returns identity and caches it", func(t *testing.T) {
		t.Parallel()
		verifier := &tokenVerifierStub{identities: map[string]Identity{"good": identity}}
		svc := NewAuthService(verifier, func() time.Time { return now }, time.Minute)

		got, err := svc.Verify(context.Background(), " good ")
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if got != identity {
			t.Fatalf("unexpected identity: %#v", got)
		}
		principal, err := svc.Authenticate(context.Background(), "good")
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if principal != (Principal{UserID: "uid-1", Email: "ana@example.com", Name: "Ana"}) {
			t.Fatalf("unexpected principal: %#v", principal)
		}
		if verifier.calls != 1 {
			t.Fatalf("expected cached second lookup, verifier called %d times", verifier.calls)
		}
	})

	t.Run("rejects missing and invalid tokens", func(t *testing.T) {
		t.Parallel()
		verifier := &tokenVerifierStub{identities: map[string]Identity{}}
		svc := NewAuthService(verifier, func() time.Time { return now }, time.Minute)

		if _, err := svc.Verify(context.Background(), ""); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated for empty token, got %v", err)
		}
		if _, err := svc.Verify(context.Background(), "forged"); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated for forged token, got %v", err)
		}
		if verifier.calls != 1 {
			t.Fatalf("expected empty token to skip the verifier")
		}
	})

	t.Run("rejects expired identities", func(t *testing.T) {
		t.Parallel()
		expired := identity
		expired.ExpiresAt = now.Add(-time.Second)
		verifier := &tokenVerifierStub{identities: map[string]Identity{"old": expired}}
		svc := NewAuthService(verifier, func() time.Time { return now }, time.Minute)

		if _, err := svc.Verify(context.Background(), "old"); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("propagates cancellation", func(t *testing.T) {
		t.Parallel()
		verifier := &tokenVerifierStub{err: context.Canceled}
		svc := NewAuthService(verifier, nil, 0)

		_, err := svc.Verify(context.Background(), "token")
		if !errors.Is(err, context.Canceled) || errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected cancellation to pass through, got %v", err)
		}
	})

	t.Run("cache disabled", func(t *testing.T) {
		t.Parallel()
		verifier := &tokenVerifierStub{identities: map[string]Identity{"good": identity}}
		svc := NewAuthService(verifier, func() time.Time { return now }, 0)
		for i := 0; i < 2; i++ {
			if _, err := svc.Verify(context.Background(), "good"); err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
		}
		if verifier.calls != 2 {
			t.Fatalf("expected every call to reach the verifier, got %d", verifier.calls)
		}
	})
}
