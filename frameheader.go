package h2

import (
	"bufio"
	"io"
	"sync"
)

// DefaultFrameSize is the fixed 9-byte frame header size.
//
// https://tools.ietf.org/html/rfc7540#section-4.1
const DefaultFrameSize = 9

// defaultMaxFrameLen is the RFC 7540 default for SETTINGS_MAX_FRAME_SIZE.
const defaultMaxFrameLen = 1 << 14

var frameHeaderPool = sync.Pool{
	New: func() interface{} {
		return &FrameHeader{}
	},
}

// FrameHeader couples the 9-byte wire header with its decoded Frame
// body. Acquire one with AcquireFrameHeader and return it with
// ReleaseFrameHeader; a FrameHeader must not be shared between
// goroutines.
//
// https://tools.ietf.org/html/rfc7540#section-4.1
type FrameHeader struct {
	length int
	kind   FrameType
	flags  FrameFlags
	stream uint32

	maxLen uint32

	rawHeader [DefaultFrameSize]byte
	payload   []byte

	fr Frame
}

// AcquireFrameHeader returns a reset FrameHeader from the pool.
func AcquireFrameHeader() *FrameHeader {
	frh := frameHeaderPool.Get().(*FrameHeader)
	frh.Reset()
	return frh
}

// ReleaseFrameHeader releases frh's body to its pool and returns frh
// itself to the pool.
func ReleaseFrameHeader(frh *FrameHeader) {
	releaseFrame(frh.fr)
	frh.fr = nil
	frameHeaderPool.Put(frh)
}

// Reset clears frh for reuse. It does not release the body frame;
// callers that swap bodies must release the old one themselves.
func (frh *FrameHeader) Reset() {
	frh.kind = 0
	frh.flags = 0
	frh.stream = 0
	frh.length = 0
	frh.maxLen = defaultMaxFrameLen
	frh.fr = nil
	frh.payload = frh.payload[:0]
}

func (frh *FrameHeader) Type() FrameType    { return frh.kind }
func (frh *FrameHeader) Flags() FrameFlags  { return frh.flags }
func (frh *FrameHeader) Stream() uint32     { return frh.stream }
func (frh *FrameHeader) Len() int           { return frh.length }
func (frh *FrameHeader) MaxLen() uint32     { return frh.maxLen }
func (frh *FrameHeader) SetMaxLen(n uint32) { frh.maxLen = n }

func (frh *FrameHeader) SetFlags(flags FrameFlags) { frh.flags = flags }

// SetStream sets the stream id. The reserved top bit is left alone so
// callers that need to round-trip a raw value can do so.
func (frh *FrameHeader) SetStream(stream uint32) { frh.stream = stream }

// Body returns the decoded frame payload.
func (frh *FrameHeader) Body() Frame { return frh.fr }

// SetBody installs fr as frh's body, updating the frame type to match.
func (frh *FrameHeader) SetBody(fr Frame) {
	if fr == nil {
		panic("h2: FrameHeader body cannot be nil")
	}
	frh.kind = fr.Type()
	frh.fr = fr
}

func bytesToUint24(b []byte) uint32 {
	_ = b[2]
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func uint24ToBytes(b []byte, n uint32) {
	_ = b[2]
	b[0] = byte(n >> 16)
	b[1] = byte(n >> 8)
	b[2] = byte(n)
}

func bytesToUint32(b []byte) uint32 {
	_ = b[3]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func uint32ToBytes(b []byte, n uint32) {
	_ = b[3]
	b[0] = byte(n >> 24)
	b[1] = byte(n >> 16)
	b[2] = byte(n >> 8)
	b[3] = byte(n)
}

func appendUint32Bytes(dst []byte, n uint32) []byte {
	return append(dst, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

// resize grows b (reusing its capacity) so len(b) == n.
func resize(b []byte, n int) []byte {
	b = b[:cap(b)]
	if d := n - len(b); d > 0 {
		b = append(b, make([]byte, d)...)
	}
	return b[:n]
}

func (frh *FrameHeader) parseValues(header []byte) {
	frh.length = int(bytesToUint24(header[:3]))
	frh.kind = FrameType(header[3])
	frh.flags = FrameFlags(header[4])
	frh.stream = bytesToUint32(header[5:]) & (1<<31 - 1)
}

func (frh *FrameHeader) buildHeader(header []byte) {
	uint24ToBytes(header[:3], uint32(frh.length))
	header[3] = byte(frh.kind)
	header[4] = byte(frh.flags)
	uint32ToBytes(header[5:], frh.stream)
}

func (frh *FrameHeader) checkLen() error {
	if frh.maxLen != 0 && frh.length > int(frh.maxLen) {
		return ErrPayloadExceeds
	}
	return nil
}

// ReadFrameFrom reads the next frame off br using the default maximum
// frame size.
func ReadFrameFrom(br *bufio.Reader) (*FrameHeader, error) {
	return ReadFrameFromWithSize(br, defaultMaxFrameLen)
}

// ReadFrameFromWithSize reads the next frame off br, rejecting payloads
// bigger than max (the locally-advertised SETTINGS_MAX_FRAME_SIZE).
func ReadFrameFromWithSize(br *bufio.Reader, max uint32) (*FrameHeader, error) {
	frh := AcquireFrameHeader()
	frh.maxLen = max

	_, err := frh.readFrom(br)
	if err != nil {
		ReleaseFrameHeader(frh)
		return nil, err
	}
	return frh, nil
}

func (frh *FrameHeader) readFrom(br *bufio.Reader) (int64, error) {
	header, err := br.Peek(DefaultFrameSize)
	if err != nil {
		return 0, err
	}
	br.Discard(DefaultFrameSize)

	rn := int64(DefaultFrameSize)

	frh.parseValues(header)
	if err := frh.checkLen(); err != nil {
		br.Discard(frh.length)
		return rn, err
	}

	if frh.kind > FrameContinuation {
		// RFC 7540 §4.1: unknown frame types are ignored, not fatal.
		if _, err := br.Discard(frh.length); err != nil {
			return rn, err
		}
		return rn, ErrUnknownFrameType
	}

	frh.fr = AcquireFrame(frh.kind)

	if frh.length > 0 {
		frh.payload = resize(frh.payload, frh.length)

		n, err := io.ReadFull(br, frh.payload)
		rn += int64(n)
		if err != nil {
			return rn, err
		}
	}

	return rn, frh.fr.Deserialize(frh)
}

// WriteTo serializes frh's body and writes the header+payload to w.
func (frh *FrameHeader) WriteTo(w *bufio.Writer) (int64, error) {
	frh.fr.Serialize(frh)
	frh.length = len(frh.payload)

	frh.buildHeader(frh.rawHeader[:])

	n, err := w.Write(frh.rawHeader[:])
	wb := int64(n)
	if err != nil {
		return wb, err
	}

	n, err = w.Write(frh.payload)
	wb += int64(n)
	return wb, err
}
