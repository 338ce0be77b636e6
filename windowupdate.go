package h2

import "sync"

var windowUpdatePool = sync.Pool{
	New: func() interface{} { return &WindowUpdate{} },
}

func acquireWindowUpdate() *WindowUpdate  { return windowUpdatePool.Get().(*WindowUpdate) }
func releaseWindowUpdate(w *WindowUpdate) { w.Reset(); windowUpdatePool.Put(w) }

var _ Frame = (*WindowUpdate)(nil)

// WindowUpdate grants additional flow-control credit, either to the
// connection (stream id 0) or to a single stream.
//
// https://tools.ietf.org/html/rfc7540#section-6.9
type WindowUpdate struct {
	increment uint32
}

func (w *WindowUpdate) Type() FrameType { return FrameWindowUpdate }

func (w *WindowUpdate) Reset() { w.increment = 0 }

func (w *WindowUpdate) Increment() uint32 { return w.increment }

func (w *WindowUpdate) SetIncrement(n uint32) {
	w.increment = n & (1<<31 - 1)
}

func (w *WindowUpdate) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) < 4 {
		return ErrMissingBytes
	}
	w.increment = bytesToUint32(frh.payload) & (1<<31 - 1)
	return nil
}

func (w *WindowUpdate) Serialize(frh *FrameHeader) {
	frh.payload = appendUint32Bytes(frh.payload[:0], w.increment)
}
