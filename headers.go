package h2

import "sync"

var headersPool = sync.Pool{
	New: func() interface{} { return &Headers{} },
}

func acquireHeaders() *Headers    { return headersPool.Get().(*Headers) }
func releaseHeaders(h *Headers)   { h.Reset(); headersPool.Put(h) }

var _ Frame = (*Headers)(nil)

// Headers carries a block fragment of a stream's request/response
// header list, optionally the first (and possibly only) fragment of a
// larger block continued by Continuation frames.
//
// https://tools.ietf.org/html/rfc7540#section-6.2
type Headers struct {
	padding    bool
	endStream  bool
	endHeaders bool
	// priority fields, only meaningful when FlagPriority is set.
	streamDep uint32
	weight    uint8

	rawHeaders []byte
}

func (h *Headers) Type() FrameType { return FrameHeaders }

func (h *Headers) Reset() {
	h.padding = false
	h.endStream = false
	h.endHeaders = false
	h.streamDep = 0
	h.weight = 0
	h.rawHeaders = h.rawHeaders[:0]
}

// Headers returns the (possibly partial) header-block fragment.
func (h *Headers) Headers() []byte { return h.rawHeaders }

// SetHeaders replaces the header-block fragment with a copy of b.
func (h *Headers) SetHeaders(b []byte) {
	h.rawHeaders = append(h.rawHeaders[:0], b...)
}

// AppendHeaders appends b to the header-block fragment; used both to
// build an outgoing block and to reassemble CONTINUATION fragments.
func (h *Headers) AppendHeaders(b []byte) {
	h.rawHeaders = append(h.rawHeaders, b...)
}

func (h *Headers) EndStream() bool     { return h.endStream }
func (h *Headers) SetEndStream(v bool) { h.endStream = v }

func (h *Headers) EndHeaders() bool     { return h.endHeaders }
func (h *Headers) SetEndHeaders(v bool) { h.endHeaders = v }

func (h *Headers) Deserialize(frh *FrameHeader) error {
	flags := frh.Flags()
	payload := frh.payload

	if flags.Has(FlagPadded) {
		var err error
		payload, err = cutPadding(payload, frh.Len())
		if err != nil {
			return err
		}
	}

	if flags.Has(FlagPriority) {
		if len(payload) < 5 {
			return ErrMissingBytes
		}
		h.streamDep = bytesToUint32(payload) & (1<<31 - 1)
		h.weight = payload[4]
		payload = payload[5:]
	}

	h.endStream = flags.Has(FlagEndStream)
	h.endHeaders = flags.Has(FlagEndHeaders)
	h.rawHeaders = append(h.rawHeaders[:0], payload...)

	return nil
}

func (h *Headers) Serialize(frh *FrameHeader) {
	if h.endStream {
		frh.SetFlags(frh.Flags().Add(FlagEndStream))
	}
	if h.endHeaders {
		frh.SetFlags(frh.Flags().Add(FlagEndHeaders))
	}

	frh.payload = append(frh.payload[:0], h.rawHeaders...)
}
