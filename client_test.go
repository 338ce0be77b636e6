package h2

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPipedConn stands up a Conn against fakePeer (see conn_test.go) for
// tests that only care about cache bookkeeping, never about sending an
// actual request. fakePeer blocks reading for a HEADERS frame after the
// handshake; Conn.Close() unblocks it by closing the underlying pipe.
func newPipedConn(t *testing.T) *Conn {
	t.Helper()
	client, server := net.Pipe()
	go fakePeer(server) //nolint:errcheck

	conn, err := NewConn(client, ConnOpts{})
	require.NoError(t, err)
	return conn
}

func TestCacheGetReusesLiveConn(t *testing.T) {
	var cache Cache
	conn := newPipedConn(t)
	defer conn.Close()

	cache.init()
	cache.conns["origin:443"] = conn

	got, err := cache.Get("origin:443", &Dialer{Addr: "origin:443"})
	require.NoError(t, err)
	assert.Same(t, conn, got)
}

func TestCacheRemoveDropsEntry(t *testing.T) {
	var cache Cache
	conn := newPipedConn(t)
	defer conn.Close()

	cache.init()
	cache.conns["origin:443"] = conn
	cache.Remove("origin:443")

	_, ok := cache.conns["origin:443"]
	assert.False(t, ok)
}

func TestCacheCloseAllClosesEveryConn(t *testing.T) {
	var cache Cache
	a := newPipedConn(t)
	b := newPipedConn(t)

	cache.init()
	cache.conns["a:443"] = a
	cache.conns["b:443"] = b

	cache.CloseAll()

	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
	assert.Nil(t, cache.conns)
}
