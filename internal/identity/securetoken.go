package identity

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
	htransport "google.golang.org/api/transport/http"
)

const (
	// SecureTokenKeysURL publishes the keys that sign Firebase ID tokens.
	SecureTokenKeysURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

	secureTokenIssuer = "https://securetoken.google.com/"
	defaultKeysMaxAge = time.Hour
	clockSkew         = 5 * time.Minute
)

var (
	// ErrInvalidToken reports a token that failed signature or claim checks.
	ErrInvalidToken = errors.New("identity: invalid token")
	// ErrUnknownKey reports a token signed by a key the key set does not list.
	ErrUnknownKey = errors.New("identity: unknown signing key")
)

// SecureTokenValidator validates Firebase ID tokens against the securetoken
// key set. The audience passed to Validate is the Firebase project ID.
type SecureTokenValidator struct {
	client  *http.Client
	keysURL string
	now     func() time.Time

	mu      sync.Mutex
	keys    map[string]*rsa.PublicKey
	expires time.Time
}

var _ payloadValidator = (*SecureTokenValidator)(nil)

// NewSecureTokenValidator builds a validator whose key fetches go through the
// google API transport configured by opts.
func NewSecureTokenValidator(ctx context.Context, opts ...option.ClientOption) (*SecureTokenValidator, error) {
	opts = append([]option.ClientOption{option.WithoutAuthentication()}, opts...)
	client, _, err := htransport.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return newSecureTokenValidator(client, SecureTokenKeysURL, time.Now), nil
}

func newSecureTokenValidator(client *http.Client, keysURL string, now func() time.Time) *SecureTokenValidator {
	if client == nil {
		client = http.DefaultClient
	}
	if now == nil {
		now = time.Now
	}
	return &SecureTokenValidator{client: client, keysURL: keysURL, now: now}
}

type tokenHeader struct {
	Algorithm string `json:"alg"`
	KeyID     string `json:"kid"`
}

// Validate checks the RS256 signature and the issuer, audience, expiry,
// issued-at and subject claims of token.
func (v *SecureTokenValidator) Validate(ctx context.Context, token, projectID string) (*idtoken.Payload, error) {
	if projectID == "" {
		return nil, errors.New("identity: project id is required")
	}
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return nil, fmt.Errorf("%w: malformed token", ErrInvalidToken)
	}

	var header tokenHeader
	if err := decodeSegment(segments[0], &header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrInvalidToken, err)
	}
	if header.Algorithm != "RS256" || header.KeyID == "" {
		return nil, fmt.Errorf("%w: unexpected algorithm %q", ErrInvalidToken, header.Algorithm)
	}

	key, err := v.key(ctx, header.KeyID)
	if err != nil {
		return nil, err
	}
	signature, err := base64.RawURLEncoding.DecodeString(segments[2])
	if err != nil {
		return nil, fmt.Errorf("%w: signature: %v", ErrInvalidToken, err)
	}
	digest := sha256.Sum256([]byte(segments[0] + "." + segments[1]))
	if err := rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], signature); err != nil {
		return nil, fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	}

	payload, err := idtoken.ParsePayload(token)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrInvalidToken, err)
	}
	if err := v.checkClaims(payload, projectID); err != nil {
		return nil, err
	}
	return payload, nil
}

func (v *SecureTokenValidator) checkClaims(payload *idtoken.Payload, projectID string) error {
	now := v.now()
	switch {
	case payload.Audience != projectID:
		return fmt.Errorf("%w: audience %q", ErrInvalidToken, payload.Audience)
	case payload.Issuer != secureTokenIssuer+projectID:
		return fmt.Errorf("%w: issuer %q", ErrInvalidToken, payload.Issuer)
	case payload.Subject == "" || len(payload.Subject) > 128:
		return fmt.Errorf("%w: subject", ErrInvalidToken)
	case !now.Before(time.Unix(payload.Expires, 0)):
		return fmt.Errorf("%w: token expired", ErrInvalidToken)
	case time.Unix(payload.IssuedAt, 0).After(now.Add(clockSkew)):
		return fmt.Errorf("%w: issued in the future", ErrInvalidToken)
	}
	if authTime, ok := payload.Claims["auth_time"].(float64); ok && time.Unix(int64(authTime), 0).After(now.Add(clockSkew)) {
		return fmt.Errorf("%w: authenticated in the future", ErrInvalidToken)
	}
	return nil
}

// key returns the public key for kid, refreshing the key set when it has
// expired or does not list kid.
func (v *SecureTokenValidator) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fresh := v.now().Before(v.expires)
	if fresh {
		if key, ok := v.keys[kid]; ok {
			return key, nil
		}
	}
	if err := v.refresh(ctx); err != nil {
		if key, ok := v.keys[kid]; ok {
			return key, nil
		}
		return nil, err
	}
	if key, ok := v.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownKey, kid)
}

type jsonWebKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (v *SecureTokenValidator) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.keysURL, nil)
	if err != nil {
		return fmt.Errorf("identity: build key request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity: fetch keys: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("identity: fetch keys: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Keys []jsonWebKey `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("identity: decode keys: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(body.Keys))
	for _, k := range body.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		key, err := rsaKey(k)
		if err != nil {
			return fmt.Errorf("identity: key %s: %w", k.Kid, err)
		}
		keys[k.Kid] = key
	}
	v.keys = keys
	v.expires = v.now().Add(maxAge(resp.Header.Get("Cache-Control")))
	return nil
}

func rsaKey(k jsonWebKey) (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(new(big.Int).SetBytes(e).Int64()),
	}, nil
}

func maxAge(cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultKeysMaxAge
}

func decodeSegment(segment string, v any) error {
	raw, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
