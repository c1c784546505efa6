// Package registration drives the sign-up form and the federated sign-in button.
package registration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lmsplatform/lms/backend/go-services/internal/identity"
	"github.com/lmsplatform/lms/backend/go-services/internal/notify"
	"github.com/lmsplatform/lms/backend/go-services/internal/session"
	"github.com/lmsplatform/lms/backend/go-services/pkg/logger"
)

const (
	MsgAccountCreated   = "Account created successfully!"
	MsgFederatedSuccess = "Signed in with Google successfully!"
	MsgSignUpFailed     = "Failed to create account"
	MsgFederatedFailed  = "Failed to sign in with Google"
)

// ErrBusy is returned when a submission arrives while another one is still pending.
var ErrBusy = errors.New("a submission is already in progress")

// Form is the registration form.
type Form struct {
	Name            string `json:"name" validate:"notblank"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type SignUpper interface {
	SignUp(ctx context.Context, email, password, displayName string) (*session.SignUpResult, error)
}

type FederatedSignIn interface {
	SignInFederated(ctx context.Context, code string) (*identity.Handle, error)
}

// Pending tracks submissions in flight across scopes, keyed by e-mail address or
// authorization code.
type Pending struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewPending() *Pending { return &Pending{keys: map[string]struct{}{}} }

func (p *Pending) acquire(key string) bool {
	if p == nil {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.keys[key]; ok {
		return false
	}
	p.keys[key] = struct{}{}
	return true
}

func (p *Pending) release(key string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.keys, key)
}

// Flow is the registration/login flow of one scope.
type Flow struct {
	signUp    SignUpper
	federated FederatedSignIn
	notifier  notify.Notifier
	pending   *Pending
	busy      atomic.Bool
}

// NewFlow wires a flow. pending may be nil when only the scope's own busy flag matters.
func NewFlow(s SignUpper, f FederatedSignIn, n notify.Notifier, pending *Pending) *Flow {
	return &Flow{signUp: s, federated: f, notifier: n, pending: pending}
}

// Busy reports whether a submission is pending.
func (fl *Flow) Busy() bool { return fl.busy.Load() }

func (fl *Flow) begin(key string) bool {
	if !fl.busy.CompareAndSwap(false, true) {
		return false
	}
	if !fl.pending.acquire(key) {
		fl.busy.Store(false)
		return false
	}
	return true
}

func (fl *Flow) end(key string) {
	fl.pending.release(key)
	fl.busy.Store(false)
}

// Submit validates the form and signs the user up. Validation failures never reach the
// identity provider. Every outcome is also reported to the notifier.
func (fl *Flow) Submit(ctx context.Context, f Form) (*session.SignUpResult, error) {
	if err := f.Validate(); err != nil {
		fl.notifier.Error(err.Error())
		return nil, err
	}
	key := "signup:" + strings.ToLower(strings.TrimSpace(f.Email))
	if !fl.begin(key) {
		return nil, ErrBusy
	}
	defer fl.end(key)

	res, err := fl.signUp.SignUp(ctx, strings.TrimSpace(f.Email), f.Password, strings.TrimSpace(f.Name))
	if err != nil {
		logger.Warnf("registration: sign-up for %s failed: %v", f.Email, err)
		fl.notifier.Error(session.UserMessage(err, MsgSignUpFailed))
		return nil, err
	}
	fl.notifier.Success(MsgAccountCreated)
	return res, nil
}

// SignInFederated completes a federated sign-in. There is no local validation.
func (fl *Flow) SignInFederated(ctx context.Context, code string) (*identity.Handle, error) {
	key := "federated:" + code
	if !fl.begin(key) {
		return nil, ErrBusy
	}
	defer fl.end(key)

	h, err := fl.federated.SignInFederated(ctx, code)
	if err != nil {
		logger.Warnf("registration: federated sign-in failed: %v", err)
		fl.notifier.Error(session.UserMessage(err, MsgFederatedFailed))
		return nil, err
	}
	fl.notifier.Success(MsgFederatedSuccess)
	return h, nil
}
