package h2

import "sync"

// Settings identifiers.
//
// https://tools.ietf.org/html/rfc7540#section-6.5.2
type SettingID uint16

const (
	SettingHeaderTableSize      SettingID = 0x1
	SettingEnablePush           SettingID = 0x2
	SettingMaxConcurrentStreams SettingID = 0x3
	SettingInitialWindowSize    SettingID = 0x4
	SettingMaxFrameSize         SettingID = 0x5
	SettingMaxHeaderListSize    SettingID = 0x6
)

const (
	DefaultHeaderTableSize      uint32 = 4096
	DefaultConcurrentStreams    uint32 = 100
	DefaultInitialWindowSize    uint32 = 1<<16 - 1
	DefaultMaxFrameSize         uint32 = 1 << 14
	DefaultMaxHeaderListSize    uint32 = 1 << 16 // 64KiB, this engine's own advisory cap.

	maxWindowSize = 1<<31 - 1
	maxFrameSize  = 1<<24 - 1
)

type settingPair struct {
	id  SettingID
	val uint32
}

var settingsPool = sync.Pool{
	New: func() interface{} { return &Settings{} },
}

func acquireSettingsFrame() *Settings { return settingsPool.Get().(*Settings) }
func releaseSettingsFrame(s *Settings) {
	s.Reset()
	settingsPool.Put(s)
}

var _ Frame = (*Settings)(nil)

// Settings is the SETTINGS frame: either a set of parameter/value
// pairs the sender wants to advertise, or (when Ack is set) an empty
// acknowledgement of the peer's previous SETTINGS frame.
//
// https://tools.ietf.org/html/rfc7540#section-6.5
type Settings struct {
	ack   bool
	pairs []settingPair
}

func (s *Settings) Type() FrameType { return FrameSettings }

func (s *Settings) Reset() {
	s.ack = false
	s.pairs = s.pairs[:0]
}

func (s *Settings) IsAck() bool { return s.ack }
func (s *Settings) SetAck(v bool) { s.ack = v }

// Add appends a parameter/value pair to be encoded by Serialize.
func (s *Settings) Add(id SettingID, val uint32) {
	s.pairs = append(s.pairs, settingPair{id, val})
}

// Range calls fn for every decoded parameter/value pair, in wire order.
func (s *Settings) Range(fn func(id SettingID, val uint32)) {
	for _, p := range s.pairs {
		fn(p.id, p.val)
	}
}

func (s *Settings) Deserialize(frh *FrameHeader) error {
	s.ack = frh.Flags().Has(FlagAck)
	if s.ack {
		return nil
	}

	payload := frh.payload
	if len(payload)%6 != 0 {
		return newConnError(FrameSizeError, "SETTINGS payload not a multiple of 6")
	}

	for i := 0; i+6 <= len(payload); i += 6 {
		id := SettingID(uint16(payload[i])<<8 | uint16(payload[i+1]))
		val := bytesToUint32(payload[i+2:])
		s.pairs = append(s.pairs, settingPair{id, val})
	}

	return nil
}

func (s *Settings) Serialize(frh *FrameHeader) {
	if s.ack {
		frh.SetFlags(frh.Flags().Add(FlagAck))
		frh.payload = frh.payload[:0]
		return
	}

	frh.payload = frh.payload[:0]
	for _, p := range s.pairs {
		frh.payload = append(frh.payload, byte(p.id>>8), byte(p.id))
		frh.payload = appendUint32Bytes(frh.payload, p.val)
	}
}

// peerSettings tracks the negotiated state of one side of the
// connection (either "what the peer told us" or "what we told the
// peer"), with RFC 7540 §6.5.2 defaults until a SETTINGS frame updates
// a field.
type peerSettings struct {
	headerTableSize      uint32
	enablePush           bool
	maxConcurrentStreams uint32
	initialWindowSize    uint32
	maxFrameSize         uint32
	maxHeaderListSize    uint32
}

func newPeerSettings() *peerSettings {
	return &peerSettings{
		headerTableSize:      DefaultHeaderTableSize,
		enablePush:           true,
		maxConcurrentStreams: DefaultConcurrentStreams,
		initialWindowSize:    DefaultInitialWindowSize,
		maxFrameSize:         DefaultMaxFrameSize,
		maxHeaderListSize:    0, // 0 == unlimited, per RFC 7540 §6.5.2
	}
}

// apply folds a decoded SETTINGS frame's pairs into ps, returning the
// delta in InitialWindowSize (applied by the caller to every open
// stream's send window per RFC 7540 §6.9.2) and an error if a value is
// out of the legal range.
func (ps *peerSettings) apply(s *Settings) (windowDelta int64, err error) {
	prevWindow := int64(ps.initialWindowSize)

	s.Range(func(id SettingID, val uint32) {
		if err != nil {
			return
		}
		switch id {
		case SettingHeaderTableSize:
			ps.headerTableSize = val
		case SettingEnablePush:
			if val > 1 {
				err = newConnError(ProtocolError, "invalid ENABLE_PUSH value %d", val)
				return
			}
			ps.enablePush = val == 1
		case SettingMaxConcurrentStreams:
			ps.maxConcurrentStreams = val
		case SettingInitialWindowSize:
			if val > maxWindowSize {
				err = newConnError(FlowControlError, "INITIAL_WINDOW_SIZE %d exceeds maximum", val)
				return
			}
			ps.initialWindowSize = val
		case SettingMaxFrameSize:
			if val < DefaultMaxFrameSize || val > maxFrameSize {
				err = newConnError(ProtocolError, "invalid MAX_FRAME_SIZE %d", val)
				return
			}
			ps.maxFrameSize = val
		case SettingMaxHeaderListSize:
			ps.maxHeaderListSize = val
		}
	})
	if err != nil {
		return 0, err
	}

	return int64(ps.initialWindowSize) - prevWindow, nil
}
