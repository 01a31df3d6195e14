package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/docbench/pkg/infra/pool"
)

// Manager registers backend clients by name and checks or closes them
// together. It is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]Client
	pool    *pool.Pool
}

// NewManager creates a storage manager. Health checks run on p when non-nil,
// otherwise on plain goroutines.
func NewManager(p *pool.Pool) *Manager {
	return &Manager{
		clients: make(map[string]Client),
		pool:    p,
	}
}

// Register adds client under name.
func (m *Manager) Register(name string, client Client) error {
	if name == "" {
		return ErrInvalidConfig.WithMessage("client name cannot be empty")
	}
	if client == nil {
		return ErrInvalidConfig.WithMessage("client cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.clients[name]; exists {
		return ErrClientAlreadyExists.WithMessagef("client '%s' is already registered", name)
	}
	m.clients[name] = client
	return nil
}

// Get retrieves a client by name.
func (m *Manager) Get(name string) (Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	client, exists := m.clients[name]
	if !exists {
		return nil, ErrClientNotFound.WithMessagef("client '%s' not found", name)
	}
	return client, nil
}

// List returns the registered names in order.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthCheckAll pings every registered client concurrently.
func (m *Manager) HealthCheckAll(ctx context.Context) map[string]HealthStatus {
	m.mu.RLock()
	clients := make(map[string]Client, len(m.clients))
	for name, client := range m.clients {
		clients[name] = client
	}
	m.mu.RUnlock()

	statuses := make(map[string]HealthStatus, len(clients))
	var statusMu sync.Mutex
	var wg sync.WaitGroup

	for name, client := range clients {
		wg.Add(1)
		task := func(n string, c Client) {
			defer wg.Done()

			start := time.Now()
			err := c.Ping(ctx)
			status := HealthStatus{
				Name:    n,
				Healthy: err == nil,
				Latency: time.Since(start),
				Error:   err,
			}

			statusMu.Lock()
			statuses[n] = status
			statusMu.Unlock()
		}

		// Fall back to a goroutine when the pool is absent or full.
		n, c := name, client
		if m.pool == nil || m.pool.Submit(func() { task(n, c) }) != nil {
			go task(n, c)
		}
	}

	wg.Wait()
	return statuses
}

// CloseAll closes and unregisters every client, returning the first error.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, client := range m.clients {
		if err := client.Close(); err != nil {
			logger.Warnw("Failed to close storage client", "name", name, "error", err)
			if firstErr == nil {
				firstErr = ErrConnectionFailed.WithCause(err).WithMessagef("close client '%s'", name)
			}
		}
		delete(m.clients, name)
	}
	return firstErr
}
