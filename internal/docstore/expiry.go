package docstore

import (
	"sync/atomic"
	"time"
)

// Clock supplies the current time in whole seconds since the epoch.
type Clock interface {
	Now() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() int64 {
	return time.Now().Unix()
}

// ManualClock is a Clock whose time only moves when told to.
// It is safe for concurrent use.
type ManualClock struct {
	now atomic.Int64
}

// NewManualClock returns a clock set to now.
func NewManualClock(now int64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(now)
	return c
}

// Now implements Clock.
func (c *ManualClock) Now() int64 {
	return c.now.Load()
}

// Set moves the clock to now.
func (c *ManualClock) Set(now int64) {
	c.now.Store(now)
}

// Advance moves the clock forward by d seconds.
func (c *ManualClock) Advance(d int64) {
	c.now.Add(d)
}

// Stamp returns a copy of doc carrying createdAt=now, TTL=ttl and
// expiresAt=now+ttl. A user field named TTL is replaced by the stamp.
func Stamp(doc Document, ttl, now int64) Document {
	out := doc.Clone()
	delete(out.Fields, FieldTTL)
	out.Expiry = &Expiry{
		CreatedAt: now,
		TTL:       ttl,
		ExpiresAt: now + ttl,
	}
	return out
}

// IsExpired reports whether doc is logically expired at now.
// Expiry is inclusive: a document is gone at exactly its expiresAt second.
func IsExpired(doc Document, now int64) bool {
	return doc.Expiry != nil && now >= doc.Expiry.ExpiresAt
}
