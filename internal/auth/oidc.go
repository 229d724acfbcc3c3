// Package auth verifies bearer ID tokens issued by the external identity
// provider that owns the users table.
package auth

import (
	"context"
	"crypto"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/n1207n/blog-post-api/internal/apperr"
)

// Claims is the verified caller identity. Subject is the auth.users id.
type Claims struct {
	Subject string
	Email   string
}

type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (Claims, error)
}

type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer's signing keys. It performs a network
// call to the issuer's discovery document.
func NewOIDCVerifier(ctx context.Context, issuerURL, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %s: %w", issuerURL, err)
	}
	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// NewStaticOIDCVerifier verifies against a fixed set of public keys instead
// of the issuer's JWKS endpoint.
func NewStaticOIDCVerifier(issuerURL, clientID string, keys ...crypto.PublicKey) *OIDCVerifier {
	keySet := &oidc.StaticKeySet{PublicKeys: keys}
	return &OIDCVerifier{
		verifier: oidc.NewVerifier(issuerURL, keySet, &oidc.Config{ClientID: clientID}),
	}
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawIDToken string) (Claims, error) {
	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", apperr.ErrInvalidToken, err)
	}

	var extra struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&extra); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", apperr.ErrInvalidToken, err)
	}
	if idToken.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", apperr.ErrInvalidToken)
	}

	return Claims{Subject: idToken.Subject, Email: extra.Email}, nil
}

type claimsKey struct{}

func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

func FromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(Claims)
	return claims, ok
}
