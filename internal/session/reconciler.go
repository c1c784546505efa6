package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lmsplatform/lms/backend/go-services/internal/identity"
	"github.com/lmsplatform/lms/backend/go-services/internal/models"
	"github.com/lmsplatform/lms/backend/go-services/internal/profiles"
	"github.com/lmsplatform/lms/backend/go-services/pkg/logger"
	"github.com/lmsplatform/lms/backend/go-services/pkg/metrics"
)

// TokenBridge propagates the signed-in state into the transport (see internal/bridge).
type TokenBridge interface {
	Establish(ctx context.Context, h *identity.Handle) error
	Clear(ctx context.Context) error
}

// Redirect is where a freshly registered user is sent.
const Redirect = "/courses"

// SignUpResult is returned by a successful SignUp.
type SignUpResult struct {
	Profile  *models.UserProfile `json:"user"`
	Redirect string              `json:"redirect"`
}

// Reconciler subscribes to the scope's identity client and keeps its Context in sync.
type Reconciler struct {
	auth   *identity.Auth
	store  profiles.Store
	bridge TokenBridge
	sc     *Context
	now    func() time.Time

	mu          sync.Mutex
	unsubscribe func()
	stopped     bool

	// signingUp makes the state change caused by SignUp skip the profile steps;
	// SignUp writes the profile itself.
	signingUp    bool
	establishErr error
}

func NewReconciler(a *identity.Auth, store profiles.Store, b TokenBridge, sc *Context) *Reconciler {
	return &Reconciler{auth: a, store: store, bridge: b, sc: sc, now: time.Now}
}

// Context returns the session state the reconciler maintains.
func (r *Reconciler) Context() *Context { return r.sc }

// Start subscribes to identity changes. The current state is reconciled before Start returns.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	if r.unsubscribe != nil || r.stopped {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	unsub := r.auth.Subscribe(ctx, r.onChange)

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		unsub()
		return
	}
	r.unsubscribe = unsub
	r.mu.Unlock()
}

// Stop releases the subscription. No notification is processed after Stop returns.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	unsub := r.unsubscribe
	r.stopped = true
	r.unsubscribe = nil
	r.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (r *Reconciler) onChange(ctx context.Context, h *identity.Handle) {
	if h == nil {
		if err := r.bridge.Clear(ctx); err != nil {
			logger.Warnf("session: clearing session artifact failed: %v", err)
		}
		r.sc.set(nil)
		metrics.Reconciliations.WithLabelValues("signed_out").Inc()
		return
	}

	r.mu.Lock()
	signingUp := r.signingUp
	r.mu.Unlock()
	if signingUp {
		err := r.bridge.Establish(ctx, h)
		r.mu.Lock()
		r.establishErr = err
		r.mu.Unlock()
		return
	}

	p, created, err := r.reconcile(ctx, h)
	if err != nil {
		r.fallback(ctx, h.Subject, err)
		return
	}
	r.sc.set(p)
	if created {
		metrics.Reconciliations.WithLabelValues("created").Inc()
	} else {
		metrics.Reconciliations.WithLabelValues("signed_in").Inc()
	}
}

// reconcile establishes the transport artifact and resolves the profile for h. A subject
// without a stored document gets the default one written before it is returned.
func (r *Reconciler) reconcile(ctx context.Context, h *identity.Handle) (*models.UserProfile, bool, error) {
	if err := r.bridge.Establish(ctx, h); err != nil {
		return nil, false, fmt.Errorf("establish session: %w", err)
	}
	doc, err := r.store.Get(ctx, h.Subject)
	if err != nil {
		return nil, false, err
	}
	defaults := models.NewUserProfile(h.Subject, h.DisplayName, h.Email, r.now())
	if doc != nil {
		p, err := profiles.Merge(defaults, doc)
		if err != nil {
			return nil, false, &profiles.StoreError{Op: "decode", ID: h.Subject, Err: err}
		}
		return p, false, nil
	}
	if err := r.store.Set(ctx, h.Subject, defaults); err != nil {
		return nil, false, err
	}
	return defaults, true, nil
}

// fallback signs the scope out after a failed reconciliation. A profile store outage only
// resets the scope: the session artifact stays so the user is signed in again once the store
// recovers.
func (r *Reconciler) fallback(ctx context.Context, sub string, err error) {
	logger.Errorf("session: reconciling %s failed, falling back to signed out: %v", sub, err)
	if IsStoreFailure(err) {
		r.sc.fail(err)
		metrics.Reconciliations.WithLabelValues("failed").Inc()
		return
	}
	if cerr := r.bridge.Clear(ctx); cerr != nil {
		logger.Warnf("session: clearing session artifact failed: %v", cerr)
	}
	r.sc.fail(err)
	metrics.Reconciliations.WithLabelValues("failed").Inc()
}

// SignUp creates credentials with the identity provider, writes a fresh profile for the new
// subject and exposes it. The profile is written only after the account exists and exposed
// only after the write succeeded. Errors are returned unchanged; see UserMessage.
func (r *Reconciler) SignUp(ctx context.Context, email, password, displayName string) (*SignUpResult, error) {
	r.mu.Lock()
	r.signingUp = true
	r.establishErr = nil
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.signingUp = false
		r.mu.Unlock()
	}()

	h, err := r.auth.CreateAccount(ctx, email, password)
	if err != nil {
		metrics.SignUps.WithLabelValues("provider_error").Inc()
		return nil, err
	}

	r.mu.Lock()
	establishErr := r.establishErr
	r.mu.Unlock()
	if establishErr != nil {
		err := fmt.Errorf("establish session: %w", establishErr)
		r.fallback(ctx, h.Subject, err)
		metrics.SignUps.WithLabelValues("session_error").Inc()
		return nil, err
	}

	name := displayName
	if name == "" {
		name = h.DisplayName
	}
	// the address is stored as submitted; the provider may have normalized it
	addr := email
	if addr == "" {
		addr = h.Email
	}
	p := models.NewUserProfile(h.Subject, name, addr, r.now())
	if err := r.store.Set(ctx, h.Subject, p); err != nil {
		// The account stays; the next sign-in writes a default profile for it.
		logger.Errorf("session: writing profile for new account %s failed: %v", h.Subject, err)
		r.sc.fail(err)
		metrics.SignUps.WithLabelValues("store_error").Inc()
		return nil, err
	}
	r.sc.set(p)
	metrics.SignUps.WithLabelValues("ok").Inc()
	return &SignUpResult{Profile: p, Redirect: Redirect}, nil
}

// UserMessage returns the text shown for a failed sign-up or sign-in: the provider's message
// when it sent one, fallback otherwise.
func UserMessage(err error, fallback string) string {
	if msg := identity.MessageOf(err); msg != "" {
		return msg
	}
	return fallback
}

// IsStoreFailure reports whether err came from the profile store.
func IsStoreFailure(err error) bool {
	var se *profiles.StoreError
	return errors.As(err, &se)
}
