package identity

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const memoryTokenPrefix = "mem."

type memoryAccount struct {
	handle   Handle
	password string
}

// MemoryBackend is an in-process identity provider used for local development and tests.
// Federated sign-in treats the authorization code as the federated email address.
type MemoryBackend struct {
	mu       sync.Mutex
	accounts map[string]*memoryAccount // by email
	bySub    map[string]*memoryAccount

	// CreateErr and ExchangeErr, when set, are returned by the next matching call.
	CreateErr   error
	ExchangeErr error
	// CreateCalls counts CreateAccount invocations.
	CreateCalls int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{accounts: map[string]*memoryAccount{}, bySub: map[string]*memoryAccount{}}
}

func (m *MemoryBackend) CreateAccount(ctx context.Context, email, password string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if err := m.CreateErr; err != nil {
		m.CreateErr = nil
		return nil, err
	}
	key := strings.ToLower(strings.TrimSpace(email))
	if _, ok := m.accounts[key]; ok {
		return nil, &Error{Code: CodeEmailInUse, Message: "User exists with same email"}
	}
	if PasswordLen(password) < MinPasswordLen {
		return nil, &Error{Code: CodeWeakPassword, Message: "Password should be at least 6 characters"}
	}
	acc := m.add(key, "")
	acc.password = password
	h := acc.handle
	return &h, nil
}

func (m *MemoryBackend) add(email, name string) *memoryAccount {
	sub := uuid.NewString()
	acc := &memoryAccount{handle: Handle{Subject: sub, DisplayName: name, Email: email, Token: memoryTokenPrefix + sub}}
	m.accounts[email] = acc
	m.bySub[sub] = acc
	return acc
}

// AuthCodeURL points straight at the callback; the caller appends the code.
func (m *MemoryBackend) AuthCodeURL(state string) string {
	return "/auth/federated/callback?state=" + url.QueryEscape(state)
}

func (m *MemoryBackend) ExchangeCode(ctx context.Context, code string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ExchangeErr; err != nil {
		m.ExchangeErr = nil
		return nil, err
	}
	key := strings.ToLower(strings.TrimSpace(code))
	if key == "" {
		return nil, &Error{Code: CodeInvalidCredential, Message: "missing authorization code"}
	}
	acc, ok := m.accounts[key]
	if !ok {
		acc = m.add(key, strings.SplitN(key, "@", 2)[0])
	}
	h := acc.handle
	return &h, nil
}

func (m *MemoryBackend) Verify(ctx context.Context, raw string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.bySub[strings.TrimPrefix(raw, memoryTokenPrefix)]
	if !ok || !strings.HasPrefix(raw, memoryTokenPrefix) {
		return nil, &Error{Code: CodeInvalidCredential, Message: "unknown token"}
	}
	h := acc.handle
	return &h, nil
}
