// Package storage defines the connection contract shared by the backend
// components (MongoDB, Redis) and a registry that health-checks and closes
// them together.
package storage

import (
	"context"
	"time"
)

// Client is the base interface every backend connection component implements.
type Client interface {
	// Name returns the storage type identifier, e.g. "mongodb".
	Name() string

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection. It is safe to call more than once.
	Close() error

	// Health returns a self-contained health check.
	Health() HealthChecker
}

// HealthChecker verifies a connection without any caller-supplied context.
type HealthChecker func() error

// HealthStatus is the outcome of one health check.
type HealthStatus struct {
	Name    string        `json:"name"`
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
	Error   error         `json:"-"`
}

// Factory creates Client instances from a fixed configuration.
type Factory interface {
	Create(ctx context.Context) (Client, error)
}
