package h2

import "sync"

// flowWindow tracks one side of one flow-control window (RFC 7540
// §6.9): the credit available to send, gated by WINDOW_UPDATE frames
// from the peer. Writers call take to block until some credit
// exists; the read loop calls add whenever a WINDOW_UPDATE for this
// window arrives.
//
// Guarded by its own mutex+cond rather than an atomic so that a writer
// can block waiting for credit instead of busy-polling — the Design
// Notes call this "a semaphore the read loop releases on every
// relevant WINDOW_UPDATE".
type flowWindow struct {
	mu     sync.Mutex
	cond   *sync.Cond
	size   int64
	closed bool
}

func newFlowWindow(initial int64) *flowWindow {
	fw := &flowWindow{size: initial}
	fw.cond = sync.NewCond(&fw.mu)
	return fw
}

// add grants delta additional bytes of credit (delta may be negative,
// e.g. when SETTINGS_INITIAL_WINDOW_SIZE shrinks mid-connection). A
// delta that would push the window past the RFC 7540 §6.9.1 ceiling of
// 2^31-1 is refused instead of applied, leaving size unchanged.
func (fw *flowWindow) add(delta int64) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.size+delta > maxWindowSize {
		return newConnError(FlowControlError, "flow control window overflow")
	}
	fw.size += delta
	fw.cond.Broadcast()
	return nil
}

// closeFlow wakes every waiter so it can observe the connection's
// death instead of blocking forever.
func (fw *flowWindow) closeFlow() {
	fw.mu.Lock()
	fw.closed = true
	fw.mu.Unlock()
	fw.cond.Broadcast()
}

// take blocks until the window holds positive credit, then grants
// min(n, current size), subtracts it and returns the amount granted;
// the grant can be smaller than n, so callers loop until all their
// bytes are covered.
func (fw *flowWindow) take(n int64) (int64, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	for fw.size <= 0 && !fw.closed {
		fw.cond.Wait()
	}
	if fw.closed {
		return 0, ErrConnClosed
	}

	grant := n
	if grant > fw.size {
		grant = fw.size
	}
	fw.size -= grant

	return grant, nil
}

func (fw *flowWindow) current() int64 {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.size
}

// recvWindow tracks how much of our own advertised receive window the
// peer has consumed, so the read loop knows when to top it back up
// with an outgoing WINDOW_UPDATE. Unlike flowWindow it is never waited
// on, so a plain mutex is enough.
type recvWindow struct {
	mu      sync.Mutex
	max     int64
	current int64
}

func newRecvWindow(max int64) *recvWindow {
	return &recvWindow{max: max, current: max}
}

// consume accounts for n received bytes and reports how much credit,
// if any, should be granted back to the peer right now. The refill
// threshold (half the window) mirrors the conn-level topping-up logic
// HTTP/2 clients commonly use to avoid a WINDOW_UPDATE per DATA frame.
func (rw *recvWindow) consume(n int64) (grant int64) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	rw.current -= n
	if rw.current <= rw.max/2 {
		grant = rw.max - rw.current
		rw.current = rw.max
	}
	return grant
}

func (rw *recvWindow) setMax(max int64) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	rw.max = max
}
