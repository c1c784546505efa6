package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lmsplatform/lms/backend/go-services/internal/config"
	"github.com/lmsplatform/lms/backend/go-services/internal/oidc"
	"github.com/lmsplatform/lms/backend/go-services/pkg/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Keycloak implements Backend against a Keycloak realm. Accounts are created through the
// admin REST API using the client's service account; sign-in uses the realm's OIDC endpoints.
type Keycloak struct {
	cfg      config.KeycloakConfig
	oauth    oauth2.Config
	admin    clientcredentials.Config
	verifier oidc.TokenVerifier
	client   *http.Client
}

// NewKeycloak builds a backend that checks ID tokens with verifier.
func NewKeycloak(cfg config.KeycloakConfig, verifier oidc.TokenVerifier) *Keycloak {
	base := cfg.Issuer() + "/protocol/openid-connect"
	endpoint := oauth2.Endpoint{
		AuthURL:   base + "/auth",
		TokenURL:  base + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	return &Keycloak{
		cfg: cfg,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       oidc.Scopes,
		},
		admin: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     endpoint.TokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		verifier: verifier,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (k *Keycloak) ctx(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, k.client)
}

type kcCredential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

type kcUser struct {
	Username      string         `json:"username"`
	Email         string         `json:"email"`
	Enabled       bool           `json:"enabled"`
	EmailVerified bool           `json:"emailVerified"`
	Credentials   []kcCredential `json:"credentials"`
}

// kcError covers both admin API ("errorMessage") and OAuth ("error_description") payloads.
type kcError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorMessage     string `json:"errorMessage"`
}

func (e kcError) message() string {
	if e.ErrorMessage != "" {
		return e.ErrorMessage
	}
	if e.ErrorDescription != "" {
		return e.ErrorDescription
	}
	return e.Error
}

func (k *Keycloak) CreateAccount(ctx context.Context, email, password string) (*Handle, error) {
	tok, err := k.admin.Token(k.ctx(ctx))
	if err != nil {
		return nil, providerError(err)
	}

	body, err := json.Marshal(kcUser{
		Username:    email,
		Email:       email,
		Enabled:     true,
		Credentials: []kcCredential{{Type: "password", Value: password}},
	})
	if err != nil {
		return nil, &Error{Code: CodeInternal, Err: err}
	}
	usersURL := strings.TrimRight(k.cfg.URL, "/") + "/admin/realms/" + k.cfg.Realm + "/users"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, usersURL, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Code: CodeInternal, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, &Error{Code: CodeNetwork, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		var kerr kcError
		_ = json.Unmarshal(b, &kerr)
		code := CodeInternal
		switch {
		case resp.StatusCode == http.StatusConflict:
			code = CodeEmailInUse
		case resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(kerr.message()), "password"):
			code = CodeWeakPassword
		}
		logger.Debugf("keycloak: create user returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		return nil, &Error{Code: code, Message: kerr.message(), Err: fmt.Errorf("admin api returned %d", resp.StatusCode)}
	}

	otok, err := k.oauth.PasswordCredentialsToken(k.ctx(ctx), email, password)
	if err != nil {
		return nil, providerError(err)
	}
	return k.handleFromToken(ctx, otok)
}

func (k *Keycloak) AuthCodeURL(state string) string {
	if k.cfg.IDPHint == "" {
		return k.oauth.AuthCodeURL(state)
	}
	return k.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("kc_idp_hint", k.cfg.IDPHint))
}

func (k *Keycloak) ExchangeCode(ctx context.Context, code string) (*Handle, error) {
	tok, err := k.oauth.Exchange(k.ctx(ctx), code)
	if err != nil {
		return nil, providerError(err)
	}
	return k.handleFromToken(ctx, tok)
}

func (k *Keycloak) handleFromToken(ctx context.Context, tok *oauth2.Token) (*Handle, error) {
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return nil, &Error{Code: CodeInternal, Message: "provider response has no id_token"}
	}
	return k.Verify(ctx, raw)
}

func (k *Keycloak) Verify(ctx context.Context, raw string) (*Handle, error) {
	c, err := k.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, &Error{Code: CodeInvalidCredential, Err: err}
	}
	if c.Subject == "" {
		return nil, &Error{Code: CodeInvalidCredential, Message: "token has no subject"}
	}
	return &Handle{Subject: c.Subject, DisplayName: c.Name, Email: c.EmailAddress(), Token: raw}, nil
}

// providerError maps oauth2 transport/endpoint failures onto *Error.
func providerError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		msg := re.ErrorDescription
		if msg == "" {
			var kerr kcError
			if json.Unmarshal(re.Body, &kerr) == nil {
				msg = kerr.message()
			}
		}
		code := CodeInternal
		if re.ErrorCode == "invalid_grant" || re.ErrorCode == "unauthorized_client" || re.ErrorCode == "invalid_client" {
			code = CodeInvalidCredential
		}
		return &Error{Code: code, Message: msg, Err: err}
	}
	return &Error{Code: CodeNetwork, Err: err}
}
