// Package notify collects user-visible notifications that expire after a
// fixed display window. Backend-call failures are reported here instead of
// propagating to the UI as fatal errors.
package notify

import (
	"sync"
	"time"
)

// Level classifies a notification for display purposes.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a single user-visible message.
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Center holds unexpired notifications. Entries older than the TTL are
// dropped on the next read, which gives display-then-clear semantics
// without a background timer.
type Center struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries []Notification
	now     func() time.Time
}

// DefaultTTL matches the display window the dashboard uses for toasts.
const DefaultTTL = 5 * time.Second

// NewCenter creates a Center whose notifications expire after ttl.
// A non-positive ttl falls back to DefaultTTL.
func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{ttl: ttl, now: time.Now}
}

// Add records a notification.
func (c *Center) Add(level Level, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune()
	c.entries = append(c.entries, Notification{
		Level:   level,
		Message: message,
		At:      c.now(),
	})
}

// List returns all unexpired notifications, oldest first.
func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune()
	out := make([]Notification, len(c.entries))
	copy(out, c.entries)
	return out
}

// prune drops expired entries. Caller must hold the lock.
func (c *Center) prune() {
	cutoff := c.now().Add(-c.ttl)
	kept := c.entries[:0]
	for _, e := range c.entries {
		if e.At.After(cutoff) {
			kept = append(kept, e)
		}
	}
	c.entries = kept
}
