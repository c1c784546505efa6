// Package storage keeps user-uploaded files (profile pictures) in object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ObjectStore is the subset of an object store the avatar service needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

const (
	MaxAvatarSize = 2 << 20
	urlTTL        = 15 * time.Minute
)

var (
	ErrUnsupportedType = errors.New("avatar must be a PNG, JPEG or WebP image")
	ErrTooLarge        = fmt.Errorf("avatar exceeds %d bytes", MaxAvatarSize)
	ErrNoAvatar        = errors.New("no avatar uploaded")
)

var allowedTypes = map[string]bool{"image/png": true, "image/jpeg": true, "image/webp": true}

// Avatars stores one profile picture per user under avatars/<id>.
type Avatars struct {
	store ObjectStore
}

func NewAvatars(s ObjectStore) *Avatars { return &Avatars{store: s} }

func avatarKey(userID string) string { return "avatars/" + userID }

// Upload replaces the user's picture.
func (a *Avatars) Upload(ctx context.Context, userID, contentType string, r io.Reader, size int64) error {
	if !allowedTypes[contentType] {
		return ErrUnsupportedType
	}
	if size <= 0 || size > MaxAvatarSize {
		return ErrTooLarge
	}
	if err := a.store.Put(ctx, avatarKey(userID), io.LimitReader(r, size), size, contentType); err != nil {
		return fmt.Errorf("store avatar: %w", err)
	}
	return nil
}

// URL returns a short-lived download link for the user's picture.
func (a *Avatars) URL(ctx context.Context, userID string) (string, error) {
	ok, err := a.store.Exists(ctx, avatarKey(userID))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoAvatar
	}
	return a.store.PresignedURL(ctx, avatarKey(userID), urlTTL)
}

func (a *Avatars) Delete(ctx context.Context, userID string) error {
	return a.store.Remove(ctx, avatarKey(userID))
}
