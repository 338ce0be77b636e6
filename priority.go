package h2

import "sync"

var priorityPool = sync.Pool{
	New: func() interface{} { return &Priority{} },
}

func acquirePriority() *Priority  { return priorityPool.Get().(*Priority) }
func releasePriority(p *Priority) { p.Reset(); priorityPool.Put(p) }

var _ Frame = (*Priority)(nil)

// Priority carries a stream's priority hint. The engine decodes it for
// protocol conformance but does not enforce reprioritization — a
// dependency tree is a server-side scheduling concern, out of scope
// for a client engine.
//
// https://tools.ietf.org/html/rfc7540#section-6.3
type Priority struct {
	streamDep uint32
	exclusive bool
	weight    uint8
}

func (p *Priority) Type() FrameType { return FramePriority }

func (p *Priority) Reset() {
	p.streamDep = 0
	p.exclusive = false
	p.weight = 0
}

func (p *Priority) StreamDep() uint32 { return p.streamDep }
func (p *Priority) Exclusive() bool   { return p.exclusive }
func (p *Priority) Weight() uint8     { return p.weight }

func (p *Priority) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) < 5 {
		return ErrMissingBytes
	}
	dep := bytesToUint32(frh.payload)
	p.exclusive = dep&(1<<31) != 0
	p.streamDep = dep & (1<<31 - 1)
	p.weight = frh.payload[4]
	return nil
}

func (p *Priority) Serialize(frh *FrameHeader) {
	dep := p.streamDep & (1<<31 - 1)
	if p.exclusive {
		dep |= 1 << 31
	}
	frh.payload = appendUint32Bytes(frh.payload[:0], dep)
	frh.payload = append(frh.payload, p.weight)
}
