package client

import "sync"

// List is a concurrency-safe registry of connected clients keyed by session
// id. Work that finishes after a client has gone looks the id up here and
// drops its output when the client is no longer registered.
type List struct {
	mu      sync.RWMutex
	clients map[uint64]*Client
}

func NewList() *List {
	return &List{clients: make(map[uint64]*Client)}
}

func (l *List) Add(c *Client) {
	l.mu.Lock()
	l.clients[c.ID()] = c
	l.mu.Unlock()
}

func (l *List) Remove(c *Client) {
	l.mu.Lock()
	delete(l.clients, c.ID())
	l.mu.Unlock()
}

func (l *List) Get(id uint64) (*Client, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.clients[id]
	return c, ok
}

func (l *List) Has(id uint64) bool {
	_, ok := l.Get(id)
	return ok
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.clients)
}
