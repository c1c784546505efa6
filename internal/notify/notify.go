// Package notify collects the transient user-facing notifications of a request.
package notify

import "sync"

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

type Notification struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Notifier receives user-visible messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Collector is a Notifier that keeps notifications for the response body.
type Collector struct {
	mu    sync.Mutex
	items []Notification
}

func (c *Collector) Success(msg string) { c.add(KindSuccess, msg) }
func (c *Collector) Error(msg string)   { c.add(KindError, msg) }

func (c *Collector) add(k Kind, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, Notification{Kind: k, Message: msg})
}

// All returns the notifications so far; never nil.
func (c *Collector) All() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.items))
	copy(out, c.items)
	return out
}
