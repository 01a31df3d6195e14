// Package pool wraps ants goroutine pools for benchmark workers and
// background checks.
package pool

import "errors"

var (
	// ErrPoolClosed is returned when submitting to a released pool.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrInvalidPoolConfig is returned for a pool config ants rejects.
	ErrInvalidPoolConfig = errors.New("invalid pool config")

	// ErrPoolOverload is returned by a nonblocking pool with no free worker.
	ErrPoolOverload = errors.New("pool is overloaded")
)
