package h2

import "sync"

// streamMap is the concurrent index of a Conn's live streams, keyed by
// stream id. It also enforces SETTINGS_MAX_CONCURRENT_STREAMS: streams
// are admitted atomically under the same lock that inserts them, so a
// burst of concurrent RoundTrip calls can never overshoot the peer's
// advertised limit between a check and an insert.
type streamMap struct {
	mu      sync.RWMutex
	streams map[uint32]*Stream
	max     uint32
}

func newStreamMap(max uint32) *streamMap {
	return &streamMap{
		streams: make(map[uint32]*Stream),
		max:     max,
	}
}

func (m *streamMap) setMax(max uint32) {
	m.mu.Lock()
	m.max = max
	m.mu.Unlock()
}

// admit inserts s under id if doing so would not exceed the
// concurrent-stream limit, returning ErrMaxConcurrentStreams otherwise.
func (m *streamMap) admit(s *Stream) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if uint32(len(m.streams)) >= m.max {
		return ErrMaxConcurrentStreams
	}
	m.streams[s.id] = s
	return nil
}

func (m *streamMap) get(id uint32) (*Stream, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.streams[id]
	return s, ok
}

func (m *streamMap) delete(id uint32) {
	m.mu.Lock()
	delete(m.streams, id)
	m.mu.Unlock()
}

func (m *streamMap) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.streams)
}

// each calls fn for every live stream; used when the connection dies
// and every pending stream must be woken with the same error.
func (m *streamMap) each(fn func(*Stream)) {
	m.mu.RLock()
	snapshot := make([]*Stream, 0, len(m.streams))
	for _, s := range m.streams {
		snapshot = append(snapshot, s)
	}
	m.mu.RUnlock()

	for _, s := range snapshot {
		fn(s)
	}
}

// addSendWindow applies a SETTINGS_INITIAL_WINDOW_SIZE delta to every
// open stream's send window, per RFC 7540 §6.9.2. Every stream's
// resulting window is checked against the protocol ceiling before any
// of them are mutated: if the delta would push any one stream past
// maxWindowSize, the whole application is refused and no stream's
// window changes, per RFC 7540 §6.9.2's flow-control-error requirement.
func (m *streamMap) addSendWindow(delta int64) error {
	m.mu.RLock()
	snapshot := make([]*Stream, 0, len(m.streams))
	for _, s := range m.streams {
		snapshot = append(snapshot, s)
	}
	m.mu.RUnlock()

	for _, s := range snapshot {
		if s.send.current()+delta > maxWindowSize {
			return newConnError(FlowControlError, "SETTINGS_INITIAL_WINDOW_SIZE delta %d overflows stream %d window", delta, s.id)
		}
	}

	for _, s := range snapshot {
		s.send.add(delta)
	}
	return nil
}
