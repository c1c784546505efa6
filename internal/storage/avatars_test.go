package storage

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAvatarsUploadAndURL(t *testing.T) {
	mem := NewMemoryStorage("http://files.local")
	a := NewAvatars(mem)
	ctx := context.Background()

	_, err := a.URL(ctx, "u1")
	require.ErrorIs(t, err, ErrNoAvatar)

	img := []byte("\x89PNG fake image")
	require.NoError(t, a.Upload(ctx, "u1", "image/png", bytes.NewReader(img), int64(len(img))))
	data, ct, ok := mem.Object("avatars/u1")
	require.True(t, ok)
	require.Equal(t, img, data)
	require.Equal(t, "image/png", ct)

	u, err := a.URL(ctx, "u1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(u, "http://files.local/avatars/u1?"))

	require.NoError(t, a.Delete(ctx, "u1"))
	_, err = a.URL(ctx, "u1")
	require.ErrorIs(t, err, ErrNoAvatar)
}

func TestAvatarsRejects(t *testing.T) {
	a := NewAvatars(NewMemoryStorage(""))
	ctx := context.Background()
	require.ErrorIs(t, a.Upload(ctx, "u1", "text/plain", strings.NewReader("x"), 1), ErrUnsupportedType)
	require.ErrorIs(t, a.Upload(ctx, "u1", "image/jpeg", strings.NewReader("x"), MaxAvatarSize+1), ErrTooLarge)
	require.ErrorIs(t, a.Upload(ctx, "u1", "image/jpeg", strings.NewReader(""), 0), ErrTooLarge)
}
