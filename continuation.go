package h2

import "sync"

var continuationPool = sync.Pool{
	New: func() interface{} { return &Continuation{} },
}

func acquireContinuation() *Continuation  { return continuationPool.Get().(*Continuation) }
func releaseContinuation(c *Continuation) { c.Reset(); continuationPool.Put(c) }

var _ Frame = (*Continuation)(nil)

// Continuation carries the overflow of a HEADERS or PUSH_PROMISE block
// that did not fit in a single frame.
//
// https://tools.ietf.org/html/rfc7540#section-6.10
type Continuation struct {
	endHeaders bool
	rawHeaders []byte
}

func (c *Continuation) Type() FrameType { return FrameContinuation }

func (c *Continuation) Reset() {
	c.endHeaders = false
	c.rawHeaders = c.rawHeaders[:0]
}

func (c *Continuation) Headers() []byte { return c.rawHeaders }

func (c *Continuation) SetHeaders(b []byte) {
	c.rawHeaders = append(c.rawHeaders[:0], b...)
}

func (c *Continuation) EndHeaders() bool     { return c.endHeaders }
func (c *Continuation) SetEndHeaders(v bool) { c.endHeaders = v }

func (c *Continuation) Deserialize(frh *FrameHeader) error {
	c.endHeaders = frh.Flags().Has(FlagEndHeaders)
	c.rawHeaders = append(c.rawHeaders[:0], frh.payload...)
	return nil
}

func (c *Continuation) Serialize(frh *FrameHeader) {
	if c.endHeaders {
		frh.SetFlags(frh.Flags().Add(FlagEndHeaders))
	}
	frh.payload = append(frh.payload[:0], c.rawHeaders...)
}
