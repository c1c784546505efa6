package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service issues, checks and revokes sessions.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(r Repository) *Service { return &Service{repo: r, now: time.Now} }

// CreateSession stores sess under a fresh id, valid for ttl.
func (s *Service) CreateSession(ctx context.Context, sess Session, ttl time.Duration) (*Session, error) {
	if sess.Sub == "" {
		return nil, fmt.Errorf("session without subject")
	}
	now := s.now().UTC()
	sess.ID = uuid.NewString()
	sess.CreatedAt = now
	sess.ExpiresAt = now.Add(ttl)
	if err := s.repo.Create(ctx, &sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return &sess, nil
}

// Validate returns the session if id is known and not expired, nil otherwise.
func (s *Service) Validate(ctx context.Context, id string) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.Expired(s.now()) {
		_ = s.repo.DeleteByID(ctx, id)
		return nil, nil
	}
	return sess, nil
}

// Delete revokes one session; unknown ids are not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteByID(ctx, id)
}

// RevokeSubject signs sub out of every device and returns the number of sessions removed.
func (s *Service) RevokeSubject(ctx context.Context, sub string) (int, error) {
	return s.repo.DeleteBySubject(ctx, sub)
}
