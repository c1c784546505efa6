package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lmsplatform/lms/backend/go-services/internal/config"
	"github.com/lmsplatform/lms/backend/go-services/internal/identity"
	"github.com/lmsplatform/lms/backend/go-services/internal/notify"
	"github.com/lmsplatform/lms/backend/go-services/internal/registration"
	"github.com/lmsplatform/lms/backend/go-services/internal/session"
	"github.com/lmsplatform/lms/backend/go-services/pkg/logger"
	"github.com/lmsplatform/lms/backend/go-services/pkg/middleware"
)

const stateCookie = "lms_oauth_state"

// AuthHandler serves registration, federated sign-in and logout. Every route runs inside a
// session scope (session.Middleware).
type AuthHandler struct {
	cfg     *config.Config
	pending *registration.Pending
}

func NewAuthHandler(cfg *config.Config, pending *registration.Pending) *AuthHandler {
	return &AuthHandler{cfg: cfg, pending: pending}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg gin.IRouter) {
	a := rg.Group("/auth")
	a.POST("/register", h.SignUp)
	a.GET("/federated/login", h.FederatedLogin)
	a.GET("/federated/callback", h.FederatedCallback)
	a.POST("/logout", h.Logout)
}

func scopeOf(c *gin.Context) *session.Scope {
	s := session.FromContext(c)
	if s == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session scope missing"})
	}
	return s
}

func (h *AuthHandler) flow(s *session.Scope, notes notify.Notifier) *registration.Flow {
	return registration.NewFlow(s.Reconciler, s.Auth, notes, h.pending)
}

// SignUp handles the registration form.
func (h *AuthHandler) SignUp(c *gin.Context) {
	s := scopeOf(c)
	if s == nil {
		return
	}
	var form registration.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	notes := &notify.Collector{}
	res, err := h.flow(s, notes).Submit(c.Request.Context(), form)
	if err != nil {
		status, msg := signUpFailure(err)
		body := gin.H{"error": msg, "notifications": notes.All()}
		var ve *registration.ValidationError
		if errors.As(err, &ve) && ve.Field != "" {
			body["field"] = ve.Field
		}
		var ie *identity.Error
		if errors.As(err, &ie) {
			body["code"] = ie.Code
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": res.Profile, "redirect": res.Redirect, "notifications": notes.All()})
}

func signUpFailure(err error) (int, string) {
	switch {
	case registration.IsValidation(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, registration.ErrBusy):
		return http.StatusConflict, err.Error()
	case identity.HasCode(err, identity.CodeEmailInUse):
		return http.StatusConflict, session.UserMessage(err, registration.MsgSignUpFailed)
	case identity.HasCode(err, identity.CodeWeakPassword):
		return http.StatusBadRequest, session.UserMessage(err, registration.MsgSignUpFailed)
	case session.IsStoreFailure(err):
		return http.StatusServiceUnavailable, registration.MsgSignUpFailed
	default:
		return http.StatusBadGateway, session.UserMessage(err, registration.MsgSignUpFailed)
	}
}

// FederatedLogin sends the browser to the identity provider with a CSRF state cookie.
func (h *AuthHandler) FederatedLogin(c *gin.Context) {
	s := scopeOf(c)
	if s == nil {
		return
	}
	state := uuid.NewString()
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/federated",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.cfg.Server.Production(),
		SameSite: http.SameSiteLaxMode,
	})
	c.Redirect(http.StatusFound, s.Auth.AuthCodeURL(state))
}

// FederatedCallback completes federated sign-in and redirects into the app.
func (h *AuthHandler) FederatedCallback(c *gin.Context) {
	s := scopeOf(c)
	if s == nil {
		return
	}
	expected, err := c.Cookie(stateCookie)
	if err != nil || expected == "" || expected != c.Query("state") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{Name: stateCookie, Value: "", Path: "/auth/federated", MaxAge: -1, HttpOnly: true})

	notes := &notify.Collector{}
	if perr := c.Query("error"); perr != "" {
		logger.Warnf("federated sign-in: provider returned %s: %s", perr, c.Query("error_description"))
		notes.Error(registration.MsgFederatedFailed)
		c.JSON(http.StatusUnauthorized, gin.H{"error": registration.MsgFederatedFailed, "notifications": notes.All()})
		return
	}

	if _, err := h.flow(s, notes).SignInFederated(c.Request.Context(), c.Query("code")); err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, registration.ErrBusy):
			status = http.StatusConflict
		case identity.HasCode(err, identity.CodeInvalidCredential):
			status = http.StatusUnauthorized
		}
		c.JSON(status, gin.H{"error": session.UserMessage(err, registration.MsgFederatedFailed), "notifications": notes.All()})
		return
	}
	if serr := s.Session.Err(); serr != nil {
		status := http.StatusBadGateway
		if session.IsStoreFailure(serr) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": registration.MsgFederatedFailed})
		return
	}
	c.Redirect(http.StatusFound, session.Redirect)
}

// Logout signs the scope out; the reconciler clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	s := scopeOf(c)
	if s == nil {
		return
	}
	s.Auth.SignOut(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the signed-in profile. Mount behind middleware.RequireSession.
func Me(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}
