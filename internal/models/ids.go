package models

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

// MessageClock hands out message IDs and timestamps in strictly increasing order.
// Timestamps never go backwards even if the wall clock does. Safe for concurrent use.
type MessageClock struct {
	mu      sync.Mutex
	entropy io.Reader
	last    time.Time
	now     func() time.Time
}

// NewMessageClock returns a clock backed by crypto/rand monotonic entropy.
func NewMessageClock() *MessageClock {
	return NewMessageClockWithNow(time.Now)
}

// NewMessageClockWithNow is NewMessageClock with an injectable time source.
func NewMessageClockWithNow(now func() time.Time) *MessageClock {
	return &MessageClock{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     now,
	}
}

// Next returns a fresh message ID and the creation time it encodes.
func (c *MessageClock) Next() (string, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Microsecond)
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return ulid.MustNew(ulid.Timestamp(t), c.entropy).String(), t
}
