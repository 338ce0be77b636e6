package h2

import (
	"sync"

	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
)

// StreamState is a client-side HTTP/2 stream state, a restriction of
// the RFC 7540 §5.1 state machine to the transitions a client actually
// drives: a client-initiated stream never passes through "reserved"
// (that variant is only reachable via server push, out of scope here).
//
// https://tools.ietf.org/html/rfc7540#section-5.1
type StreamState int8

const (
	StreamIdle StreamState = iota
	StreamOpen
	StreamHalfClosedLocal  // we sent END_STREAM; still waiting on the response
	StreamHalfClosedRemote // peer sent END_STREAM; we may still be sending a request body
	StreamClosed
)

func (ss StreamState) String() string {
	switch ss {
	case StreamIdle:
		return "idle"
	case StreamOpen:
		return "open"
	case StreamHalfClosedLocal:
		return "half-closed(local)"
	case StreamHalfClosedRemote:
		return "half-closed(remote)"
	case StreamClosed:
		return "closed"
	}
	return "unknown"
}

// Stream is one client-initiated HTTP/2 stream: a request/response
// exchange multiplexed over a shared Conn. Its state transitions are
// driven entirely by the owning Conn's single read loop and the
// goroutine that called Conn.RoundTrip; the mutex only protects the
// handful of fields both sides touch.
type Stream struct {
	id uint32

	mu    sync.Mutex
	state StreamState
	err   error

	send *flowWindow // credit to send DATA, replenished by peer WINDOW_UPDATE
	recv *recvWindow // our advertised receive window, consumed by inbound DATA

	resp *fasthttp.Response
	done chan struct{}

	respHeaderDone bool
	headerBuf      *bytebufferpool.ByteBuffer
}

func newStream(id uint32, sendWindow, recvWindow int64, resp *fasthttp.Response) *Stream {
	s := streamPool.Get().(*Stream)
	s.id = id
	s.state = StreamIdle
	s.err = nil
	s.send = newFlowWindow(sendWindow)
	s.recv = newRecvWindow(recvWindow)
	s.resp = resp
	s.done = make(chan struct{})
	s.respHeaderDone = false
	s.headerBuf = nil
	return s
}

// releaseStream returns s to streamPool once its owning Conn has
// removed it from the stream map and nothing can still reach it
// (RoundTrip calls this right after streamMap.delete). s must not be
// touched by the caller afterward.
func releaseStream(s *Stream) {
	if s.headerBuf != nil {
		bytebufferpool.Put(s.headerBuf)
		s.headerBuf = nil
	}
	s.resp = nil
	streamPool.Put(s)
}

func (s *Stream) ID() uint32 { return s.id }

func (s *Stream) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// open transitions Idle -> Open, the only legal entry point for a
// client-initiated stream (RFC 7540 §5.1.1).
func (s *Stream) open() {
	s.mu.Lock()
	s.state = StreamOpen
	s.mu.Unlock()
}

// closeLocal records that we sent END_STREAM (request fully written).
func (s *Stream) closeLocal() {
	s.mu.Lock()
	switch s.state {
	case StreamOpen:
		s.state = StreamHalfClosedLocal
	case StreamHalfClosedRemote:
		s.state = StreamClosed
	}
	closed := s.state == StreamClosed
	s.mu.Unlock()

	if closed {
		s.finish(nil)
	}
}

// closeRemote records that the peer sent END_STREAM (response fully
// received); it is the read loop's job to call this, and it fires the
// completion signal exactly once the stream reaches StreamClosed.
func (s *Stream) closeRemote() {
	s.mu.Lock()
	switch s.state {
	case StreamOpen:
		s.state = StreamHalfClosedRemote
	case StreamHalfClosedLocal:
		s.state = StreamClosed
	}
	closed := s.state == StreamClosed
	s.mu.Unlock()

	if closed {
		s.finish(nil)
	}
}

// reset forces the stream to Closed immediately, as RST_STREAM does
// (either direction), and delivers err to anyone waiting on Wait.
func (s *Stream) reset(err error) {
	s.mu.Lock()
	already := s.state == StreamClosed
	s.state = StreamClosed
	if err != nil && s.err == nil {
		s.err = err
	}
	s.mu.Unlock()

	s.send.closeFlow()

	if !already {
		s.finish(err)
	}
}

func (s *Stream) finish(err error) {
	s.mu.Lock()
	if err != nil && s.err == nil {
		s.err = err
	}
	s.mu.Unlock()

	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// Wait blocks until the stream closes, returning whatever error (if
// any) terminated it.
func (s *Stream) Wait() error {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) closedLocally() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StreamHalfClosedLocal || s.state == StreamClosed
}

// streamPool recycles Stream structs across requests on the same Conn,
// mirroring the object-pooling idiom used for Frame bodies elsewhere
// in the package.
var streamPool = sync.Pool{New: func() interface{} { return &Stream{} }}
