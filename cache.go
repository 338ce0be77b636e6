package h2

import (
	"sync"
)

// Cache is a per-origin pool of HTTP/2 connections: a request for an
// origin string (host:port) reuses a live Conn if one exists
// and is not going away, or dials a fresh one and remembers it. A zero
// Cache is ready to use.
type Cache struct {
	mu    sync.Mutex
	conns map[string]*Conn
}

func (cc *Cache) init() {
	if cc.conns == nil {
		cc.conns = make(map[string]*Conn)
	}
}

// Get returns a usable Conn for origin, dialing one via d if the
// cached entry is missing, closed, or draining after a GOAWAY.
func (cc *Cache) Get(origin string, d *Dialer) (*Conn, error) {
	cc.mu.Lock()
	cc.init()
	if c, ok := cc.conns[origin]; ok {
		if c.CanOpenStream() {
			cc.mu.Unlock()
			return c, nil
		}
		delete(cc.conns, origin)
	}
	cc.mu.Unlock()

	c, err := d.Dial()
	if err != nil {
		return nil, err
	}

	cc.mu.Lock()
	cc.init()
	if existing, ok := cc.conns[origin]; ok && existing.CanOpenStream() {
		// Lost a race with a concurrent dial; keep the winner, drop ours.
		cc.mu.Unlock()
		c.Close()
		return existing, nil
	}
	cc.conns[origin] = c
	cc.mu.Unlock()

	return c, nil
}

// Remove drops origin's cached Conn, e.g. after it reports an error to
// the caller so the next request dials fresh.
func (cc *Cache) Remove(origin string) {
	cc.mu.Lock()
	delete(cc.conns, origin)
	cc.mu.Unlock()
}

// CloseAll shuts down every cached connection.
func (cc *Cache) CloseAll() {
	cc.mu.Lock()
	conns := cc.conns
	cc.conns = nil
	cc.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
