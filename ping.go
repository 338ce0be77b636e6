package h2

import "sync"

var pingPool = sync.Pool{
	New: func() interface{} { return &Ping{} },
}

func acquirePing() *Ping  { return pingPool.Get().(*Ping) }
func releasePing(p *Ping) { p.Reset(); pingPool.Put(p) }

var _ Frame = (*Ping)(nil)

// Ping is used to measure round-trip time and assert the connection
// is still alive.
//
// https://tools.ietf.org/html/rfc7540#section-6.7
type Ping struct {
	ack  bool
	data [8]byte
}

func (p *Ping) Type() FrameType { return FramePing }

func (p *Ping) Reset() {
	p.ack = false
	p.data = [8]byte{}
}

func (p *Ping) Ack() bool     { return p.ack }
func (p *Ping) SetAck(v bool) { p.ack = v }

func (p *Ping) Data() []byte { return p.data[:] }

func (p *Ping) SetData(b []byte) {
	copy(p.data[:], b)
}

func (p *Ping) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) < 8 {
		return ErrMissingBytes
	}
	p.ack = frh.Flags().Has(FlagAck)
	copy(p.data[:], frh.payload)
	return nil
}

func (p *Ping) Serialize(frh *FrameHeader) {
	if p.ack {
		frh.SetFlags(frh.Flags().Add(FlagAck))
	}
	frh.payload = append(frh.payload[:0], p.data[:]...)
}
