package oidc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func token(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	b, err := json.Marshal(claims)
	require.NoError(t, err)
	return "hdr." + base64.RawURLEncoding.EncodeToString(b) + ".sig"
}

func TestInsecureVerifier_ParsesClaims(t *testing.T) {
	raw := token(t, map[string]interface{}{
		"sub": "s1", "name": "Ada", "preferred_username": "ada@example.com",
		"aud": []string{"account", "lms-web"}, "exp": time.Now().Add(time.Minute).Unix(),
	})
	c, err := NewInsecureVerifier("lms-web").Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "s1", c.Subject)
	assert.Equal(t, "Ada", c.Name)
	assert.Equal(t, "", c.Email)
	assert.Equal(t, "ada@example.com", c.EmailAddress())
}

func TestInsecureVerifier_Rejects(t *testing.T) {
	v := NewInsecureVerifier("lms-web")
	ctx := context.Background()
	cases := map[string]string{
		"no dots":        "nodots",
		"bad base64":     "hdr.!!!.sig",
		"no subject":     token(t, map[string]interface{}{"email": "a@b.c", "aud": "lms-web"}),
		"expired":        token(t, map[string]interface{}{"sub": "s1", "aud": "lms-web", "exp": time.Now().Add(-time.Minute).Unix()}),
		"other audience": token(t, map[string]interface{}{"sub": "s1", "aud": "admin-cli"}),
	}
	for name, raw := range cases {
		_, err := v.Verify(ctx, raw)
		assert.Error(t, err, name)
	}
}

func TestInsecureVerifier_NoClientIDSkipsAudience(t *testing.T) {
	c, err := NewInsecureVerifier("").Verify(context.Background(), token(t, map[string]interface{}{"sub": "s1", "email": "a@b.c"}))
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", c.EmailAddress())
}
