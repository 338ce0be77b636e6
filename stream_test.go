package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

func TestStreamLifecycleLocalFirst(t *testing.T) {
	resp := &fasthttp.Response{}
	s := newStream(1, 65535, 65535, resp)
	assert.Equal(t, StreamIdle, s.State())

	s.open()
	assert.Equal(t, StreamOpen, s.State())

	s.closeLocal()
	assert.Equal(t, StreamHalfClosedLocal, s.State())

	s.closeRemote()
	assert.Equal(t, StreamClosed, s.State())

	select {
	case <-s.done:
	default:
		t.Fatal("stream should be marked done once fully closed")
	}
}

func TestStreamLifecycleRemoteFirst(t *testing.T) {
	resp := &fasthttp.Response{}
	s := newStream(1, 65535, 65535, resp)
	s.open()

	s.closeRemote()
	assert.Equal(t, StreamHalfClosedRemote, s.State())

	s.closeLocal()
	assert.Equal(t, StreamClosed, s.State())
}

func TestStreamResetWakesWaiters(t *testing.T) {
	resp := &fasthttp.Response{}
	s := newStream(1, 65535, 65535, resp)
	s.open()

	done := make(chan error, 1)
	go func() { done <- s.Wait() }()

	s.reset(ErrConnClosed)

	err := <-done
	assert.Equal(t, ErrConnClosed, err)
	assert.Equal(t, StreamClosed, s.State())
}
