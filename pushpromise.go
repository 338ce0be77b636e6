package h2

import "sync"

var pushPromisePool = sync.Pool{
	New: func() interface{} { return &PushPromise{} },
}

func acquirePushPromise() *PushPromise  { return pushPromisePool.Get().(*PushPromise) }
func releasePushPromise(p *PushPromise) { p.Reset(); pushPromisePool.Put(p) }

var _ Frame = (*PushPromise)(nil)

// PushPromise announces a stream the server intends to push. This
// engine advertises SETTINGS_ENABLE_PUSH=0, but a misbehaving or
// legacy peer may still send one; it is decoded only so the connection
// can refuse it cleanly (RST_STREAM with REFUSED_STREAM) instead of
// treating it as a protocol error. Server push acceptance itself is
// out of scope, so there is no Serialize path — a client never sends
// PUSH_PROMISE.
//
// https://tools.ietf.org/html/rfc7540#section-6.6
type PushPromise struct {
	promisedStreamID uint32
	endHeaders       bool
	rawHeaders       []byte
}

func (pp *PushPromise) Type() FrameType { return FramePushPromise }

func (pp *PushPromise) Reset() {
	pp.promisedStreamID = 0
	pp.endHeaders = false
	pp.rawHeaders = pp.rawHeaders[:0]
}

func (pp *PushPromise) PromisedStreamID() uint32 { return pp.promisedStreamID }
func (pp *PushPromise) EndHeaders() bool         { return pp.endHeaders }
func (pp *PushPromise) Headers() []byte          { return pp.rawHeaders }

func (pp *PushPromise) Deserialize(frh *FrameHeader) error {
	payload := frh.payload

	if frh.Flags().Has(FlagPadded) {
		var err error
		payload, err = cutPadding(payload, frh.Len())
		if err != nil {
			return err
		}
	}

	if len(payload) < 4 {
		return ErrMissingBytes
	}

	pp.promisedStreamID = bytesToUint32(payload) & (1<<31 - 1)
	pp.rawHeaders = append(pp.rawHeaders[:0], payload[4:]...)
	pp.endHeaders = frh.Flags().Has(FlagEndHeaders)

	return nil
}

func (pp *PushPromise) Serialize(frh *FrameHeader) {
	panic("h2: PushPromise is decode-only; a client never sends PUSH_PROMISE")
}
