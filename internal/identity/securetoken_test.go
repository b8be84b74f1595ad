package identity

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const testProject = "eventhub-app"

type keyServer struct {
	server  *httptest.Server
	fetches atomic.Int32
	keys    atomic.Value // map[string]*rsa.PrivateKey
}

func newKeyServer(t *testing.T, keys map[string]*rsa.PrivateKey) *keyServer {
	t.Helper()
	ks := &keyServer{}
	ks.keys.Store(keys)
	ks.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ks.fetches.Add(1)
		var body struct {
			Keys []jsonWebKey `json:"keys"`
		}
		for kid, key := range ks.keys.Load().(map[string]*rsa.PrivateKey) {
			body.Keys = append(body.Keys, jsonWebKey{
				Kty: "RSA",
				Kid: kid,
				N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			})
		}
		w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(ks.server.Close)
	return ks
}

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims map[string]any) string {
	t.Helper()
	header, _ := json.Marshal(map[string]string{"alg": "RS256", "kid": kid, "typ": "JWT"})
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	signed := base64.RawURLEncoding.EncodeToString(header) + "." + base64.RawURLEncoding.EncodeToString(payload)
	digest := sha256.Sum256([]byte(signed))
	signature, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed + "." + base64.RawURLEncoding.EncodeToString(signature)
}

func firebaseClaims(now time.Time) map[string]any {
	return map[string]any{
		"iss":       secureTokenIssuer + testProject,
		"aud":       testProject,
		"sub":       "uid-1",
		"iat":       now.Add(-time.Minute).Unix(),
		"exp":       now.Add(time.Hour).Unix(),
		"auth_time": now.Add(-time.Minute).Unix(),
		"email":     "ana@example.com",
		"firebase":  map[string]any{"sign_in_provider": "password"},
	}
}

func TestSecureTokenValidator_AcceptsFirebaseToken(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	key := generateKey(t)
	ks := newKeyServer(t, map[string]*rsa.PrivateKey{"k1": key})
	validator := newSecureTokenValidator(ks.server.Client(), ks.server.URL, func() time.Time { return now })
	verifier := &FirebaseVerifier{validator: validator, audience: testProject}

	token := signToken(t, key, "k1", firebaseClaims(now))
	identity, err := verifier.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if identity.UserID != "uid-1" || identity.Email != "ana@example.com" || identity.Provider != "password" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	if _, err := verifier.Verify(context.Background(), token); err != nil {
		t.Fatalf("second Verify returned error: %v", err)
	}
	if got := ks.fetches.Load(); got != 1 {
		t.Fatalf("expected keys fetched once, got %d", got)
	}
}

func TestSecureTokenValidator_RejectsInvalidTokens(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	key := generateKey(t)
	other := generateKey(t)
	ks := newKeyServer(t, map[string]*rsa.PrivateKey{"k1": key})

	with := func(change func(map[string]any)) map[string]any {
		claims := firebaseClaims(now)
		change(claims)
		return claims
	}
	cases := []struct {
		name  string
		token string
		want  error
	}{
		{name: "google account token issuer", token: signToken(t, key, "k1", with(func(c map[string]any) { c["iss"] = "https://accounts.google.com" })), want: ErrInvalidToken},
		{name: "other project", token: signToken(t, key, "k1", with(func(c map[string]any) { c["aud"] = "someone-else" })), want: ErrInvalidToken},
		{name: "expired", token: signToken(t, key, "k1", with(func(c map[string]any) { c["exp"] = now.Add(-time.Second).Unix() })), want: ErrInvalidToken},
		{name: "issued in the future", token: signToken(t, key, "k1", with(func(c map[string]any) { c["iat"] = now.Add(time.Hour).Unix() })), want: ErrInvalidToken},
		{name: "empty subject", token: signToken(t, key, "k1", with(func(c map[string]any) { c["sub"] = "" })), want: ErrInvalidToken},
		{name: "wrong signer", token: signToken(t, other, "k1", firebaseClaims(now)), want: ErrInvalidToken},
		{name: "unknown key id", token: signToken(t, key, "k9", firebaseClaims(now)), want: ErrUnknownKey},
		{name: "malformed", token: "not-a-token", want: ErrInvalidToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			validator := newSecureTokenValidator(ks.server.Client(), ks.server.URL, func() time.Time { return now })
			_, err := validator.Validate(context.Background(), tc.token, testProject)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSecureTokenValidator_RefetchesOnRotation(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ks := newKeyServer(t, map[string]*rsa.PrivateKey{"old": oldKey})
	validator := newSecureTokenValidator(ks.server.Client(), ks.server.URL, func() time.Time { return now })

	if _, err := validator.Validate(context.Background(), signToken(t, oldKey, "old", firebaseClaims(now)), testProject); err != nil {
		t.Fatalf("Validate with old key: %v", err)
	}

	ks.keys.Store(map[string]*rsa.PrivateKey{"old": oldKey, "new": newKey})
	if _, err := validator.Validate(context.Background(), signToken(t, newKey, "new", firebaseClaims(now)), testProject); err != nil {
		t.Fatalf("Validate with rotated key: %v", err)
	}
	if got := ks.fetches.Load(); got != 2 {
		t.Fatalf("expected a refetch after rotation, got %d fetches", got)
	}
}

func TestMaxAge(t *testing.T) {
	cases := map[string]time.Duration{
		"public, max-age=19302, must-revalidate": 19302 * time.Second,
		"no-cache":                               defaultKeysMaxAge,
		"":                                       defaultKeysMaxAge,
		"max-age=abc":                            defaultKeysMaxAge,
	}
	for header, want := range cases {
		if got := maxAge(header); got != want {
			t.Fatalf("maxAge(%q) = %s, want %s", header, got, want)
		}
	}
}

func TestSecureTokenValidator_RequiresProject(t *testing.T) {
	validator := newSecureTokenValidator(nil, "http://127.0.0.1:0", nil)
	if _, err := validator.Validate(context.Background(), "a.b.c", ""); err == nil || !strings.Contains(err.Error(), "project") {
		t.Fatalf("expected project id error, got %v", err)
	}
}
