// Package bridge carries the signed-in state of a request scope in a session cookie so that
// plain request handling (middleware, other services) can recognize the principal.
package bridge

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lmsplatform/lms/backend/go-services/internal/identity"
	"github.com/lmsplatform/lms/backend/go-services/internal/sessions"
	"github.com/lmsplatform/lms/backend/go-services/internal/tokens"
	"github.com/lmsplatform/lms/backend/go-services/pkg/logger"
	"github.com/lmsplatform/lms/backend/go-services/pkg/metrics"
)

// Deps are shared by every CookieBridge of the process.
type Deps struct {
	Sessions   *sessions.Service
	Blacklist  *sessions.Blacklist
	Secret     string
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// CookieBridge is the token bridge of one request scope.
type CookieBridge struct {
	deps Deps
	w    http.ResponseWriter
	r    *http.Request

	mu     sync.Mutex
	token  string
	claims *tokens.SessionClaims
	// stale is set when the request carried a cookie that no longer maps to a session.
	stale bool
}

// New binds a bridge to one request/response pair.
func New(deps Deps, w http.ResponseWriter, r *http.Request) *CookieBridge {
	if deps.CookieName == "" {
		deps.CookieName = "lms_session"
	}
	if deps.TTL <= 0 {
		deps.TTL = 7 * 24 * time.Hour
	}
	return &CookieBridge{deps: deps, w: w, r: r}
}

// Load implements identity.Persistence: it restores the principal from the request cookie.
// A missing, invalid, revoked or expired cookie yields a nil handle.
func (b *CookieBridge) Load(ctx context.Context) (*identity.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, err := b.r.Cookie(b.deps.CookieName)
	if err != nil || c.Value == "" {
		return nil, nil
	}
	claims, err := tokens.ParseSessionToken(b.deps.Secret, c.Value)
	if err != nil {
		logger.Debugf("bridge: rejecting session cookie: %v", err)
		b.stale = true
		return nil, nil
	}
	revoked, err := b.deps.Blacklist.Contains(ctx, c.Value)
	if err != nil {
		return nil, fmt.Errorf("check blacklist: %w", err)
	}
	if revoked {
		b.stale = true
		return nil, nil
	}
	sess, err := b.deps.Sessions.Validate(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil || sess.Sub != claims.Subject {
		b.stale = true
		return nil, nil
	}
	b.token = c.Value
	b.claims = claims
	return &identity.Handle{Subject: sess.Sub, DisplayName: sess.Name, Email: sess.Email, Token: sess.IDToken}, nil
}

// Subject returns the subject the scope's cookie currently refers to, or "".
func (b *CookieBridge) Subject() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.claims == nil {
		return ""
	}
	return b.claims.Subject
}

// Establish writes a session artifact for h. It is a no-op when the scope already carries
// one for the same subject; an artifact for a different subject is revoked first.
func (b *CookieBridge) Establish(ctx context.Context, h *identity.Handle) error {
	if h == nil {
		return fmt.Errorf("establish: nil handle")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.claims != nil {
		if b.claims.Subject == h.Subject {
			metrics.BridgeOps.WithLabelValues("establish", "noop").Inc()
			return nil
		}
		if err := b.revoke(ctx); err != nil {
			metrics.BridgeOps.WithLabelValues("establish", "error").Inc()
			return err
		}
	}

	sess, err := b.deps.Sessions.CreateSession(ctx, sessions.Session{
		Sub:     h.Subject,
		Name:    h.DisplayName,
		Email:   h.Email,
		IDToken: h.Token,
	}, b.deps.TTL)
	if err != nil {
		metrics.BridgeOps.WithLabelValues("establish", "error").Inc()
		return fmt.Errorf("create session: %w", err)
	}
	tok, err := tokens.GenerateSessionToken(b.deps.Secret, sess)
	if err != nil {
		_ = b.deps.Sessions.Delete(ctx, sess.ID)
		metrics.BridgeOps.WithLabelValues("establish", "error").Inc()
		return fmt.Errorf("sign session token: %w", err)
	}
	claims, err := tokens.ParseSessionToken(b.deps.Secret, tok)
	if err != nil {
		_ = b.deps.Sessions.Delete(ctx, sess.ID)
		metrics.BridgeOps.WithLabelValues("establish", "error").Inc()
		return err
	}

	http.SetCookie(b.w, &http.Cookie{
		Name:     b.deps.CookieName,
		Value:    tok,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   b.deps.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	b.token, b.claims, b.stale = tok, claims, false
	metrics.BridgeOps.WithLabelValues("establish", "ok").Inc()
	return nil
}

// Clear removes the scope's artifact: the server session is deleted, the token is blacklisted
// until it would expire and the cookie is expired. Clearing an already-cleared scope does nothing.
func (b *CookieBridge) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.claims != nil:
		if err := b.revoke(ctx); err != nil {
			metrics.BridgeOps.WithLabelValues("clear", "error").Inc()
			return err
		}
		b.expireCookie()
	case b.stale:
		b.stale = false
		b.expireCookie()
	default:
		metrics.BridgeOps.WithLabelValues("clear", "noop").Inc()
		return nil
	}
	metrics.BridgeOps.WithLabelValues("clear", "ok").Inc()
	return nil
}

func (b *CookieBridge) revoke(ctx context.Context) error {
	if err := b.deps.Sessions.Delete(ctx, b.claims.SessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if b.claims.ExpiresAt != nil {
		if err := b.deps.Blacklist.Add(ctx, b.token, time.Until(b.claims.ExpiresAt.Time)); err != nil {
			logger.Warnf("bridge: blacklisting session token failed: %v", err)
		}
	}
	b.token, b.claims = "", nil
	return nil
}

func (b *CookieBridge) expireCookie() {
	http.SetCookie(b.w, &http.Cookie{
		Name:     b.deps.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   b.deps.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
