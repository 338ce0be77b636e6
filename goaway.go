package h2

import (
	"fmt"
	"sync"
)

var goAwayPool = sync.Pool{
	New: func() interface{} { return &GoAway{} },
}

func acquireGoAway() *GoAway  { return goAwayPool.Get().(*GoAway) }
func releaseGoAway(g *GoAway) { g.Reset(); goAwayPool.Put(g) }

var _ Frame = (*GoAway)(nil)

// GoAway announces that the sender will not open or accept streams
// beyond LastStreamID and that the connection will close.
//
// https://tools.ietf.org/html/rfc7540#section-6.8
type GoAway struct {
	lastStreamID uint32
	code         ErrorCode
	data         []byte
}

func (g *GoAway) Error() string {
	return fmt.Sprintf("GOAWAY last_stream=%d code=%s debug=%q", g.lastStreamID, g.code, g.data)
}

func (g *GoAway) Type() FrameType { return FrameGoAway }

func (g *GoAway) Reset() {
	g.lastStreamID = 0
	g.code = NoError
	g.data = g.data[:0]
}

func (g *GoAway) Code() ErrorCode     { return g.code }
func (g *GoAway) SetCode(c ErrorCode) { g.code = c }

func (g *GoAway) LastStreamID() uint32 { return g.lastStreamID }

func (g *GoAway) SetLastStreamID(id uint32) {
	g.lastStreamID = id & (1<<31 - 1)
}

func (g *GoAway) Data() []byte { return g.data }

func (g *GoAway) SetData(b []byte) {
	g.data = append(g.data[:0], b...)
}

func (g *GoAway) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) < 8 {
		return ErrMissingBytes
	}

	g.lastStreamID = bytesToUint32(frh.payload) & (1<<31 - 1)
	g.code = ErrorCode(bytesToUint32(frh.payload[4:]))

	if rest := frh.payload[8:]; len(rest) > 0 {
		g.data = append(g.data[:0], rest...)
	}

	return nil
}

func (g *GoAway) Serialize(frh *FrameHeader) {
	frh.payload = appendUint32Bytes(frh.payload[:0], g.lastStreamID)
	frh.payload = appendUint32Bytes(frh.payload, uint32(g.code))
	frh.payload = append(frh.payload, g.data...)
}
