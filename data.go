package h2

import (
	"sync"

	"github.com/valyala/fastrand"
)

var dataPool = sync.Pool{
	New: func() interface{} { return &Data{} },
}

func acquireData() *Data   { return dataPool.Get().(*Data) }
func releaseData(d *Data)  { d.Reset(); dataPool.Put(d) }

var _ Frame = (*Data)(nil)

// Data carries a stream's body bytes.
//
// Data frames may carry END_STREAM and PADDED.
//
// https://tools.ietf.org/html/rfc7540#section-6.1
type Data struct {
	endStream bool
	padding   bool
	b         []byte
}

func (d *Data) Type() FrameType { return FrameData }

func (d *Data) Reset() {
	d.endStream = false
	d.padding = false
	d.b = d.b[:0]
}

func (d *Data) EndStream() bool     { return d.endStream }
func (d *Data) SetEndStream(v bool) { d.endStream = v }

func (d *Data) Padding() bool     { return d.padding }
func (d *Data) SetPadding(v bool) { d.padding = v }

// Data returns the payload bytes read from, or to be written to, the wire.
func (d *Data) Data() []byte { return d.b }

// SetData replaces d's payload with a copy of b.
func (d *Data) SetData(b []byte) {
	d.b = append(d.b[:0], b...)
}

func (d *Data) Len() int { return len(d.b) }

func (d *Data) Deserialize(frh *FrameHeader) error {
	payload := frh.payload

	if frh.Flags().Has(FlagPadded) {
		var err error
		payload, err = cutPadding(payload, frh.Len())
		if err != nil {
			return err
		}
	}

	d.endStream = frh.Flags().Has(FlagEndStream)
	d.b = append(d.b[:0], payload...)

	return nil
}

func (d *Data) Serialize(frh *FrameHeader) {
	if d.endStream {
		frh.SetFlags(frh.Flags().Add(FlagEndStream))
	}

	if d.padding {
		frh.SetFlags(frh.Flags().Add(FlagPadded))
		frh.payload = appendPadding(frh.payload[:0], d.b)
		return
	}

	frh.payload = append(frh.payload[:0], d.b...)
}

// cutPadding strips the PADDED pad-length byte and trailing padding
// from payload, returning an error instead of panicking when the peer
// advertises a pad length that does not fit the frame.
func cutPadding(payload []byte, length int) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrBadPadding
	}

	pad := int(payload[0])
	if pad >= length {
		return nil, ErrBadPadding
	}

	return payload[1 : length-pad], nil
}

// appendPadding appends b plus a random amount (9-255 bytes) of zero
// padding to dst, writing the RFC 7540 pad-length prefix byte.
func appendPadding(dst, b []byte) []byte {
	n := int(fastrand.Uint32n(256-9)) + 9

	dst = append(dst, 0)
	dst[0] = byte(n)
	dst = append(dst, b...)
	for i := 0; i < n; i++ {
		dst = append(dst, 0)
	}
	return dst
}
