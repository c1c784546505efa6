// Package session keeps the signed-in user of a request scope consistent with the identity
// provider and the profile store.
package session

import (
	"sync"

	"github.com/lmsplatform/lms/backend/go-services/internal/models"
)

// Context is the session state of one scope. It starts out loading and settles on the first
// identity notification.
type Context struct {
	mu      sync.RWMutex
	user    *models.UserProfile
	loading bool
	err     error
}

func NewContext() *Context { return &Context{loading: true} }

// User returns the current profile and whether one is signed in.
func (c *Context) User() (*models.UserProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user, c.user != nil
}

func (c *Context) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Err returns the failure of the last reconciliation, if it fell back to signed out.
func (c *Context) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *Context) set(u *models.UserProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user, c.loading, c.err = u, false, nil
}

func (c *Context) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user, c.loading, c.err = nil, false, err
}
