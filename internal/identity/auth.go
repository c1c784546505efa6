package identity

import (
	"context"
	"sync"

	"github.com/lmsplatform/lms/backend/go-services/pkg/logger"
)

// Listener receives sign-in state changes; h is nil when signed out.
type Listener func(ctx context.Context, h *Handle)

type subscription struct {
	fn     Listener
	mu     sync.Mutex // held while fn runs
	closed bool
}

// Auth is the identity client of one scope. It tracks the current handle and notifies
// listeners on every change. Deliveries are serialized: at most one listener call runs at a time.
type Auth struct {
	backend     Backend
	persistence Persistence

	mu       sync.Mutex
	current  *Handle
	restored bool
	subs     map[int]*subscription
	nextID   int

	deliver sync.Mutex
}

// NewAuth creates a scope client. persistence may be nil.
func NewAuth(b Backend, p Persistence) *Auth {
	return &Auth{backend: b, persistence: p, subs: map[int]*subscription{}}
}

// Current returns the signed-in handle, or nil.
func (a *Auth) Current() *Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Subscribe registers fn and immediately delivers the current state to it (restoring it
// through Persistence on first use). The returned func releases the subscription; it is
// idempotent, waits for an in-flight delivery and must not be called from inside fn.
func (a *Auth) Subscribe(ctx context.Context, fn Listener) (unsubscribe func()) {
	s := &subscription{fn: fn}

	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.subs[id] = s
	needRestore := !a.restored
	a.restored = true
	a.mu.Unlock()

	if needRestore && a.persistence != nil {
		h, err := a.persistence.Load(ctx)
		if err != nil {
			logger.Warnf("identity: restoring session failed, treating as signed out: %v", err)
			h = nil
		}
		a.mu.Lock()
		a.current = h
		a.mu.Unlock()
	}

	a.deliver.Lock()
	a.call(ctx, s, a.Current())
	a.deliver.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.closed = true
			s.mu.Unlock()
			a.mu.Lock()
			delete(a.subs, id)
			a.mu.Unlock()
		})
	}
}

func (a *Auth) call(ctx context.Context, s *subscription, h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.fn(ctx, h)
}

func (a *Auth) setAndNotify(ctx context.Context, h *Handle) {
	a.mu.Lock()
	a.current = h
	a.restored = true
	subs := make([]*subscription, 0, len(a.subs))
	for _, s := range a.subs {
		subs = append(subs, s)
	}
	a.mu.Unlock()

	a.deliver.Lock()
	defer a.deliver.Unlock()
	for _, s := range subs {
		a.call(ctx, s, h)
	}
}

// CreateAccount registers new credentials with the provider. On success the new principal is
// signed in and listeners are notified before CreateAccount returns.
func (a *Auth) CreateAccount(ctx context.Context, email, password string) (*Handle, error) {
	h, err := a.backend.CreateAccount(ctx, email, password)
	if err != nil {
		return nil, err
	}
	a.setAndNotify(ctx, h)
	return h, nil
}

// SignInFederated completes a federated sign-in with the provider's authorization code.
func (a *Auth) SignInFederated(ctx context.Context, code string) (*Handle, error) {
	h, err := a.backend.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	a.setAndNotify(ctx, h)
	return h, nil
}

// SignOut forgets the current handle and notifies listeners with nil.
func (a *Auth) SignOut(ctx context.Context) {
	a.setAndNotify(ctx, nil)
}

// AuthCodeURL proxies to the backend.
func (a *Auth) AuthCodeURL(state string) string { return a.backend.AuthCodeURL(state) }
