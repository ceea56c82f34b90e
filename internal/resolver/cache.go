// Package resolver maps tenant requests to ready protocol clients. It keeps
// one built client per provision and re-checks catalog liveness on every
// lookup so a disabled provision never serves another request.
package resolver

import "sync"

// ClientCache holds built clients keyed by provision id. All methods are safe
// for concurrent use. Concurrent misses for the same provision may both build
// a client; the last Put wins, which is harmless because clients are
// stateless wrappers around a shared HTTP transport.
type ClientCache[T any] struct {
	mu      sync.RWMutex
	clients map[int64]T
}

func NewClientCache[T any]() *ClientCache[T] {
	return &ClientCache[T]{clients: make(map[int64]T)}
}

func (c *ClientCache[T]) Get(provisionID int64) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	client, ok := c.clients[provisionID]
	return client, ok
}

func (c *ClientCache[T]) Put(provisionID int64, client T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients[provisionID] = client
}

func (c *ClientCache[T]) Evict(provisionID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.clients, provisionID)
}

// EvictAll drops every cached client. Used when catalog data changes out of
// band, e.g. after a bulk pricing or credential update.
func (c *ClientCache[T]) EvictAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients = make(map[int64]T)
}

func (c *ClientCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clients)
}
