package session

import (
	"github.com/gin-gonic/gin"
	"github.com/lmsplatform/lms/backend/go-services/internal/bridge"
	"github.com/lmsplatform/lms/backend/go-services/internal/identity"
	"github.com/lmsplatform/lms/backend/go-services/internal/profiles"
)

const scopeKey = "session.scope"

// Scope is everything one request owns: its identity client, session state, reconciler and
// token bridge. It replaces any process-wide "current user".
type Scope struct {
	Auth       *identity.Auth
	Session    *Context
	Reconciler *Reconciler
	Bridge     *bridge.CookieBridge
}

// ScopeDeps are the process-wide collaborators shared by all scopes.
type ScopeDeps struct {
	Backend identity.Backend
	Store   profiles.Store
	Bridge  bridge.Deps
}

// Middleware opens a scope for the request, reconciles the restored identity before the
// handler runs and releases the subscription afterwards.
func Middleware(deps ScopeDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		b := bridge.New(deps.Bridge, c.Writer, c.Request)
		auth := identity.NewAuth(deps.Backend, b)
		sc := NewContext()
		rec := NewReconciler(auth, deps.Store, b, sc)
		rec.Start(c.Request.Context())
		defer rec.Stop()

		c.Set(scopeKey, &Scope{Auth: auth, Session: sc, Reconciler: rec, Bridge: b})
		c.Next()
	}
}

// FromContext returns the request's scope, or nil outside Middleware.
func FromContext(c *gin.Context) *Scope {
	v, ok := c.Get(scopeKey)
	if !ok {
		return nil
	}
	s, _ := v.(*Scope)
	return s
}
