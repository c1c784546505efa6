package oidc

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Claims are the ID token fields the identity layer reads.
type Claims struct {
	Subject           string `json:"sub"`
	Email             string `json:"email"`
	EmailVerified     bool   `json:"email_verified"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
}

// EmailAddress returns the email claim, falling back to preferred_username when Keycloak is
// configured with email-as-username and omits the email claim.
func (c *Claims) EmailAddress() string {
	if c.Email == "" && strings.Contains(c.PreferredUsername, "@") {
		return c.PreferredUsername
	}
	return c.Email
}

// TokenVerifier checks a raw ID token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*Claims, error)
}

// Verifier checks ID tokens against the realm's published keys.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the issuer and creates a verifier for ID tokens issued to clientID.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// Verify checks signature, issuer, audience and expiry of raw.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	var c Claims
	if err := idToken.Claims(&c); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	if c.Subject == "" {
		c.Subject = idToken.Subject
	}
	return &c, nil
}

// Scopes requested for sign-in.
var Scopes = []string{oidc.ScopeOpenID, "profile", "email"}
