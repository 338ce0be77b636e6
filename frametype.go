package h2

// FrameType identifies the type of an HTTP/2 frame.
//
// https://tools.ietf.org/html/rfc7540#section-6
type FrameType uint8

const (
	FrameData         FrameType = 0x0
	FrameHeaders      FrameType = 0x1
	FramePriority     FrameType = 0x2
	FrameRstStream    FrameType = 0x3
	FrameSettings     FrameType = 0x4
	FramePushPromise  FrameType = 0x5
	FramePing         FrameType = 0x6
	FrameGoAway       FrameType = 0x7
	FrameWindowUpdate FrameType = 0x8
	FrameContinuation FrameType = 0x9
)

func (t FrameType) String() string {
	switch t {
	case FrameData:
		return "DATA"
	case FrameHeaders:
		return "HEADERS"
	case FramePriority:
		return "PRIORITY"
	case FrameRstStream:
		return "RST_STREAM"
	case FrameSettings:
		return "SETTINGS"
	case FramePushPromise:
		return "PUSH_PROMISE"
	case FramePing:
		return "PING"
	case FrameGoAway:
		return "GOAWAY"
	case FrameWindowUpdate:
		return "WINDOW_UPDATE"
	case FrameContinuation:
		return "CONTINUATION"
	}
	return "UNKNOWN"
}

// FrameFlags is the 8-bit flags field of a frame header. The bit
// meaning depends on the frame type, but END_STREAM/ACK share 0x1
// across types the way RFC 7540 defines them.
type FrameFlags uint8

const (
	FlagAck        FrameFlags = 0x1
	FlagEndStream  FrameFlags = 0x1
	FlagEndHeaders FrameFlags = 0x4
	FlagPadded     FrameFlags = 0x8
	FlagPriority   FrameFlags = 0x20
)

// Has reports whether f contains flag.
func (f FrameFlags) Has(flag FrameFlags) bool {
	return f&flag == flag
}

// Add returns f with flag set.
func (f FrameFlags) Add(flag FrameFlags) FrameFlags {
	return f | flag
}

// Frame is implemented by every frame payload type (Data, Headers,
// Priority, RstStream, Settings, PushPromise, Ping, GoAway,
// WindowUpdate, Continuation).
//
// A Frame instance must not be used concurrently from more than one
// goroutine, and must be obtained via AcquireFrame so it can be
// returned to its pool.
type Frame interface {
	Type() FrameType
	Reset()
	Deserialize(fr *FrameHeader) error
	Serialize(fr *FrameHeader)
}

// AcquireFrame returns a pooled Frame body for the given type. Callers
// must release it through FrameHeader's ReleaseFrameHeader (which
// knows the concrete type via frh.Body()).
func AcquireFrame(kind FrameType) Frame {
	switch kind {
	case FrameData:
		return acquireData()
	case FrameHeaders:
		return acquireHeaders()
	case FramePriority:
		return acquirePriority()
	case FrameRstStream:
		return acquireRstStream()
	case FrameSettings:
		return acquireSettingsFrame()
	case FramePushPromise:
		return acquirePushPromise()
	case FramePing:
		return acquirePing()
	case FrameGoAway:
		return acquireGoAway()
	case FrameWindowUpdate:
		return acquireWindowUpdate()
	case FrameContinuation:
		return acquireContinuation()
	}
	return nil
}

// releaseFrame returns fr to its type-specific pool.
func releaseFrame(fr Frame) {
	if fr == nil {
		return
	}
	switch f := fr.(type) {
	case *Data:
		releaseData(f)
	case *Headers:
		releaseHeaders(f)
	case *Priority:
		releasePriority(f)
	case *RstStream:
		releaseRstStream(f)
	case *Settings:
		releaseSettingsFrame(f)
	case *PushPromise:
		releasePushPromise(f)
	case *Ping:
		releasePing(f)
	case *GoAway:
		releaseGoAway(f)
	case *WindowUpdate:
		releaseWindowUpdate(f)
	case *Continuation:
		releaseContinuation(f)
	}
}
