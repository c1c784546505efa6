package registration

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lmsplatform/lms/backend/go-services/internal/bridge"
	"github.com/lmsplatform/lms/backend/go-services/internal/identity"
	"github.com/lmsplatform/lms/backend/go-services/internal/models"
	"github.com/lmsplatform/lms/backend/go-services/internal/notify"
	"github.com/lmsplatform/lms/backend/go-services/internal/profiles"
	"github.com/lmsplatform/lms/backend/go-services/internal/session"
	"github.com/lmsplatform/lms/backend/go-services/internal/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signUpCall struct{ email, password, name string }

type spySignUp struct {
	next  SignUpper
	calls []signUpCall
	block chan struct{}
}

func (s *spySignUp) SignUp(ctx context.Context, email, password, name string) (*session.SignUpResult, error) {
	s.calls = append(s.calls, signUpCall{email, password, name})
	if s.block != nil {
		<-s.block
	}
	if s.next == nil {
		return &session.SignUpResult{Redirect: session.Redirect}, nil
	}
	return s.next.SignUp(ctx, email, password, name)
}

type fakeFederated struct {
	err   error
	calls int
}

func (f *fakeFederated) SignInFederated(ctx context.Context, code string) (*identity.Handle, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &identity.Handle{Subject: "g-" + code}, nil
}

func randString(r *rand.Rand, n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@# "
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(b)
}

func errorsOf(c *notify.Collector) []string {
	var out []string
	for _, n := range c.All() {
		if n.Kind == notify.KindError {
			out = append(out, n.Message)
		}
	}
	return out
}

func TestMismatchedPasswordsNeverSignUp(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		pw := randString(r, r.Intn(12))
		confirm := randString(r, r.Intn(12))
		if pw == confirm {
			continue
		}
		spy := &spySignUp{}
		notes := &notify.Collector{}
		fl := NewFlow(spy, &fakeFederated{}, notes, nil)

		_, err := fl.Submit(context.Background(), Form{Name: "Ada", Email: "ada@example.com", Password: pw, ConfirmPassword: confirm})
		require.Error(t, err)
		require.True(t, IsValidation(err))
		require.Empty(t, spy.calls)
		require.Equal(t, []string{MsgPasswordMismatch}, errorsOf(notes))
	}
}

func TestShortPasswordsNeverSignUp(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for n := 0; n < minPasswordLen; n++ {
		for i := 0; i < 20; i++ {
			pw := randString(r, n)
			spy := &spySignUp{}
			notes := &notify.Collector{}
			fl := NewFlow(spy, &fakeFederated{}, notes, nil)

			_, err := fl.Submit(context.Background(), Form{Name: "Ada", Email: "ada@example.com", Password: pw, ConfirmPassword: pw})
			require.Error(t, err)
			require.Empty(t, spy.calls)
			require.Equal(t, []string{MsgPasswordTooShort}, errorsOf(notes))
		}
	}
}

func TestMultibytePasswordsMeasuredInCharacters(t *testing.T) {
	for pw, short := range map[string]bool{
		"ééé":    true,
		"密码12":   true,
		"ab😀":    true,
		"éééééé": false,
		"密码密码密码": false,
	} {
		spy := &spySignUp{}
		notes := &notify.Collector{}
		fl := NewFlow(spy, &fakeFederated{}, notes, nil)

		_, err := fl.Submit(context.Background(), Form{Name: "Ada", Email: "ada@example.com", Password: pw, ConfirmPassword: pw})
		if short {
			require.Error(t, err, pw)
			assert.Empty(t, spy.calls, pw)
			assert.Equal(t, []string{MsgPasswordTooShort}, errorsOf(notes), pw)
			continue
		}
		require.NoError(t, err, pw)
		assert.Len(t, spy.calls, 1, pw)
	}
}

func TestFieldValidation(t *testing.T) {
	cases := []struct {
		name  string
		form  Form
		field string
	}{
		{"blank name", Form{Name: "  ", Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret1"}, "name"},
		{"missing email", Form{Name: "Ada", Password: "secret1", ConfirmPassword: "secret1"}, "email"},
		{"bad email", Form{Name: "Ada", Email: "not-an-email", Password: "secret1", ConfirmPassword: "secret1"}, "email"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.form.Validate()
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tc.field, ve.Field)
			assert.Contains(t, ve.Message, tc.field)
		})
	}
}

func TestValidationOrder(t *testing.T) {
	// mismatch is reported before length, length before the other fields
	err := Form{Password: "abc", ConfirmPassword: "abd"}.Validate()
	assert.EqualError(t, err, MsgPasswordMismatch)
	err = Form{Password: "abc", ConfirmPassword: "abc"}.Validate()
	assert.EqualError(t, err, MsgPasswordTooShort)
}

func TestSubmitEndToEnd(t *testing.T) {
	store := profiles.NewMemoryStore()
	backend := identity.NewMemoryBackend()
	rec := httptest.NewRecorder()
	b := bridge.New(bridge.Deps{
		Sessions:  sessions.NewService(sessions.NewMemoryRepository()),
		Blacklist: sessions.NewBlacklist(nil),
		Secret:    "registration-test-secret-0123456789",
	}, rec, httptest.NewRequest(http.MethodPost, "/auth/register", nil))
	auth := identity.NewAuth(backend, b)
	sc := session.NewContext()
	reconciler := session.NewReconciler(auth, store, b, sc)
	ctx := context.Background()
	reconciler.Start(ctx)
	defer reconciler.Stop()

	spy := &spySignUp{next: reconciler}
	notes := &notify.Collector{}
	fl := NewFlow(spy, auth, notes, NewPending())

	res, err := fl.Submit(ctx, Form{Name: "Ada", Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret1"})
	require.NoError(t, err)

	require.Equal(t, []signUpCall{{"ada@example.com", "secret1", "Ada"}}, spy.calls)
	assert.Equal(t, 1, store.Sets)
	stored := store.Profile(res.Profile.ID)
	require.NotNil(t, stored)
	assert.Equal(t, models.RoleUser, stored.Role)
	assert.Equal(t, []notify.Notification{{Kind: notify.KindSuccess, Message: MsgAccountCreated}}, notes.All())
	assert.Empty(t, errorsOf(notes))
	assert.False(t, fl.Busy())

	u, ok := sc.User()
	require.True(t, ok)
	assert.Equal(t, "Ada", u.Name)
	assert.NotEmpty(t, rec.Result().Cookies())
}

func TestSubmitProviderErrorShowsMessage(t *testing.T) {
	backend := identity.NewMemoryBackend()
	backend.CreateErr = &identity.Error{Code: identity.CodeEmailInUse, Message: "User exists with same email"}
	reconciler := session.NewReconciler(identity.NewAuth(backend, nil), profiles.NewMemoryStore(), nopBridge{}, session.NewContext())
	notes := &notify.Collector{}
	fl := NewFlow(reconciler, &fakeFederated{}, notes, nil)

	_, err := fl.Submit(context.Background(), Form{Name: "Ada", Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret1"})
	require.Error(t, err)
	assert.False(t, IsValidation(err))
	assert.Equal(t, []string{"User exists with same email"}, errorsOf(notes))

	backend.CreateErr = &identity.Error{Code: identity.CodeNetwork}
	_, err = fl.Submit(context.Background(), Form{Name: "Ada", Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret1"})
	require.Error(t, err)
	assert.Equal(t, MsgSignUpFailed, errorsOf(notes)[1])
}

type nopBridge struct{}

func (nopBridge) Establish(ctx context.Context, h *identity.Handle) error { return nil }
func (nopBridge) Clear(ctx context.Context) error                        { return nil }

func TestSecondSubmitWhileBusy(t *testing.T) {
	spy := &spySignUp{block: make(chan struct{})}
	fl := NewFlow(spy, &fakeFederated{}, &notify.Collector{}, NewPending())
	form := Form{Name: "Ada", Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret1"}

	done := make(chan error, 1)
	go func() {
		_, err := fl.Submit(context.Background(), form)
		done <- err
	}()
	require.Eventually(t, fl.Busy, time.Second, 5*time.Millisecond)

	_, err := fl.Submit(context.Background(), form)
	require.ErrorIs(t, err, ErrBusy)

	close(spy.block)
	require.NoError(t, <-done)
	require.False(t, fl.Busy())
}

func TestPendingIsSharedAcrossFlows(t *testing.T) {
	pending := NewPending()
	spy := &spySignUp{block: make(chan struct{})}
	first := NewFlow(spy, &fakeFederated{}, &notify.Collector{}, pending)
	second := NewFlow(&spySignUp{}, &fakeFederated{}, &notify.Collector{}, pending)
	form := Form{Name: "Ada", Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret1"}

	done := make(chan struct{})
	go func() {
		_, _ = first.Submit(context.Background(), form)
		close(done)
	}()
	require.Eventually(t, first.Busy, time.Second, 5*time.Millisecond)

	form.Email = "ADA@example.com"
	_, err := second.Submit(context.Background(), form)
	require.ErrorIs(t, err, ErrBusy)
	require.False(t, second.Busy())

	close(spy.block)
	<-done
}

func TestFederatedSignIn(t *testing.T) {
	fed := &fakeFederated{}
	notes := &notify.Collector{}
	fl := NewFlow(&spySignUp{}, fed, notes, nil)

	h, err := fl.SignInFederated(context.Background(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, "g-code-1", h.Subject)
	assert.Equal(t, []notify.Notification{{Kind: notify.KindSuccess, Message: MsgFederatedSuccess}}, notes.All())

	fed.err = &identity.Error{Code: identity.CodeInvalidCredential, Message: "Code not valid"}
	_, err = fl.SignInFederated(context.Background(), "code-2")
	require.Error(t, err)
	assert.Equal(t, []string{"Code not valid"}, errorsOf(notes))

	fed.err = errors.New("dial tcp: timeout")
	_, err = fl.SignInFederated(context.Background(), "code-3")
	require.Error(t, err)
	assert.Equal(t, MsgFederatedFailed, errorsOf(notes)[1])
	assert.Equal(t, 3, fed.calls)
}
