// Package identity is the client side of the external identity provider: account creation,
// federated sign-in and per-scope sign-in state with change notifications.
package identity

import (
	"context"
	"errors"
	"unicode/utf16"
)

// Handle is an authenticated principal for the current scope.
type Handle struct {
	Subject     string `json:"sub"`
	DisplayName string `json:"name"`
	Email       string `json:"email"`
	// Token is the raw ID token issued by the provider.
	Token string `json:"-"`
}

// ErrorCode classifies provider failures.
type ErrorCode string

const (
	CodeEmailInUse        ErrorCode = "email-already-in-use"
	CodeWeakPassword      ErrorCode = "weak-password"
	CodeInvalidCredential ErrorCode = "invalid-credential"
	CodeNetwork           ErrorCode = "network-request-failed"
	CodeInternal          ErrorCode = "internal-error"
)

// Error is returned by Backend operations. Message is the human-readable text from the
// provider's error payload and may be empty.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// MessageOf returns the provider message carried by err, or "".
func MessageOf(err error) string {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Message
	}
	return ""
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var ie *Error
	return errors.As(err, &ie) && ie.Code == code
}

// MinPasswordLen is the shortest password the provider accepts.
const MinPasswordLen = 6

// PasswordLen counts pw in UTF-16 code units, the unit browser forms and the provider's
// password policy measure length in.
func PasswordLen(pw string) int { return len(utf16.Encode([]rune(pw))) }

// Backend is the remote identity provider.
type Backend interface {
	// CreateAccount registers email/password credentials and signs the new principal in.
	CreateAccount(ctx context.Context, email, password string) (*Handle, error)
	// AuthCodeURL returns the provider URL a browser is sent to for federated sign-in.
	AuthCodeURL(state string) string
	// ExchangeCode completes federated sign-in.
	ExchangeCode(ctx context.Context, code string) (*Handle, error)
	// Verify restores a handle from a previously issued ID token.
	Verify(ctx context.Context, rawIDToken string) (*Handle, error)
}

// Persistence restores the signed-in handle of a scope (nil when signed out).
type Persistence interface {
	Load(ctx context.Context) (*Handle, error)
}
