// Package id generates run identifiers.
package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULIDGenerator issues ULIDs that stay strictly increasing within one
// millisecond. It is safe for concurrent use.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// ULIDOption configures a ULIDGenerator.
type ULIDOption func(*ulidConfig)

type ulidConfig struct {
	reader io.Reader
	now    func() time.Time
}

// WithULIDReader sets the entropy source.
func WithULIDReader(r io.Reader) ULIDOption {
	return func(c *ulidConfig) {
		c.reader = r
	}
}

// WithULIDClock sets the timestamp source.
func WithULIDClock(now func() time.Time) ULIDOption {
	return func(c *ulidConfig) {
		c.now = now
	}
}

// NewULIDGenerator creates a generator reading crypto/rand by default.
func NewULIDGenerator(opts ...ULIDOption) *ULIDGenerator {
	cfg := ulidConfig{reader: rand.Reader, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &ULIDGenerator{
		entropy: ulid.Monotonic(cfg.reader, 0),
		now:     cfg.now,
	}
}

// Generate returns a new ULID string.
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}

// ParseULID parses a ULID string.
func ParseULID(s string) (ulid.ULID, error) {
	return ulid.ParseStrict(s)
}

// IsValidULID reports whether s is a well-formed ULID.
func IsValidULID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}

var defaultULID = NewULIDGenerator()

// NewRunID returns a ULID from the process-wide generator.
func NewRunID() string {
	return defaultULID.Generate()
}
