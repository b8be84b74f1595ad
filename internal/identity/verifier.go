// Package identity verifies Firebase ID tokens presented as bearer credentials.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"github.com/example/eventhub/internal/application"
)

// DefaultProvider is reported when a token names no sign-in provider.
const DefaultProvider = "google.com"

// ErrMissingSubject reports a signed token without a subject claim.
var ErrMissingSubject = errors.New("identity: token has no subject")

type payloadValidator interface {
	Validate(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

// FirebaseVerifier validates Firebase ID tokens issued for one project.
type FirebaseVerifier struct {
	validator payloadValidator
	audience  string
}

var _ application.TokenVerifier = (*FirebaseVerifier)(nil)

// NewFirebaseVerifier constructs a verifier for projectID backed by the
// securetoken key set.
func NewFirebaseVerifier(ctx context.Context, projectID string, opts ...option.ClientOption) (*FirebaseVerifier, error) {
	if projectID == "" {
		return nil, errors.New("identity: project id is required")
	}
	validator, err := NewSecureTokenValidator(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("identity: create validator: %w", err)
	}
	return &FirebaseVerifier{validator: validator, audience: projectID}, nil
}

// Verify checks the token signature, issuer, audience and expiry and maps the
// claims to an identity.
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (application.Identity, error) {
	if v == nil || v.validator == nil {
		return application.Identity{}, errors.New("identity: verifier not configured")
	}
	payload, err := v.validator.Validate(ctx, token, v.audience)
	if err != nil {
		return application.Identity{}, err
	}
	return identityFromPayload(payload)
}

func identityFromPayload(payload *idtoken.Payload) (application.Identity, error) {
	if payload == nil || payload.Subject == "" {
		return application.Identity{}, ErrMissingSubject
	}
	identity := application.Identity{
		UserID:   payload.Subject,
		Email:    stringClaim(payload.Claims, "email"),
		Name:     stringClaim(payload.Claims, "name"),
		Picture:  stringClaim(payload.Claims, "picture"),
		Provider: DefaultProvider,
	}
	if firebase, ok := payload.Claims["firebase"].(map[string]interface{}); ok {
		if provider := stringClaim(firebase, "sign_in_provider"); provider != "" {
			identity.Provider = provider
		}
	}
	if payload.Expires > 0 {
		identity.ExpiresAt = time.Unix(payload.Expires, 0).UTC()
	}
	return identity, nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	value, _ := claims[key].(string)
	return value
}
