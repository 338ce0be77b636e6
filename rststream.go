package h2

import "sync"

var rstStreamPool = sync.Pool{
	New: func() interface{} { return &RstStream{} },
}

func acquireRstStream() *RstStream  { return rstStreamPool.Get().(*RstStream) }
func releaseRstStream(r *RstStream) { r.Reset(); rstStreamPool.Put(r) }

var _ Frame = (*RstStream)(nil)

// RstStream abruptly terminates a stream.
//
// https://tools.ietf.org/html/rfc7540#section-6.4
type RstStream struct {
	code ErrorCode
}

func (r *RstStream) Type() FrameType { return FrameRstStream }

func (r *RstStream) Reset() { r.code = NoError }

func (r *RstStream) Code() ErrorCode     { return r.code }
func (r *RstStream) SetCode(c ErrorCode) { r.code = c }

func (r *RstStream) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) < 4 {
		return ErrMissingBytes
	}
	r.code = ErrorCode(bytesToUint32(frh.payload))
	return nil
}

func (r *RstStream) Serialize(frh *FrameHeader) {
	frh.payload = appendUint32Bytes(frh.payload[:0], uint32(r.code))
}
