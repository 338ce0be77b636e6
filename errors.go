package h2

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode is the RFC 7540 section 7 error code carried by RST_STREAM
// and GOAWAY frames.
type ErrorCode uint32

const (
	NoError              ErrorCode = 0x0
	ProtocolError        ErrorCode = 0x1
	InternalError        ErrorCode = 0x2
	FlowControlError     ErrorCode = 0x3
	SettingsTimeoutError ErrorCode = 0x4
	StreamClosedError    ErrorCode = 0x5
	FrameSizeError       ErrorCode = 0x6
	RefusedStreamError   ErrorCode = 0x7
	CancelError          ErrorCode = 0x8
	CompressionError     ErrorCode = 0x9
	ConnectionError      ErrorCode = 0xa
	EnhanceYourCalmError ErrorCode = 0xb
	InadequateSecurity   ErrorCode = 0xc
	HTTP11Required       ErrorCode = 0xd
)

var errCodeNames = [...]string{
	"NO_ERROR", "PROTOCOL_ERROR", "INTERNAL_ERROR", "FLOW_CONTROL_ERROR",
	"SETTINGS_TIMEOUT", "STREAM_CLOSED", "FRAME_SIZE_ERROR", "REFUSED_STREAM",
	"CANCEL", "COMPRESSION_ERROR", "CONNECT_ERROR", "ENHANCE_YOUR_CALM",
	"INADEQUATE_SECURITY", "HTTP_1_1_REQUIRED",
}

func (c ErrorCode) String() string {
	if int(c) < len(errCodeNames) {
		return errCodeNames[c]
	}
	return fmt.Sprintf("UNKNOWN_ERROR(0x%x)", uint32(c))
}

// connError is a connection-fatal protocol violation: the owning Conn
// must send GOAWAY with Code and tear down.
type connError struct {
	Code ErrorCode
	msg  string
}

func (e *connError) Error() string {
	return fmt.Sprintf("http2: connection error: %s: %s", e.Code, e.msg)
}

func newConnError(code ErrorCode, format string, args ...interface{}) error {
	return errors.WithStack(&connError{Code: code, msg: fmt.Sprintf(format, args...)})
}

// streamError is a stream-fatal protocol violation: the owning stream
// must be reset with Code, the connection survives.
type streamError struct {
	StreamID uint32
	Code     ErrorCode
	msg      string
}

func (e *streamError) Error() string {
	return fmt.Sprintf("http2: stream %d error: %s: %s", e.StreamID, e.Code, e.msg)
}

func newStreamError(id uint32, code ErrorCode, format string, args ...interface{}) error {
	return errors.WithStack(&streamError{StreamID: id, Code: code, msg: fmt.Sprintf(format, args...)})
}

// NetworkError reports a failure of the underlying transport (dial,
// read, write). It wraps the lower-level net/io error.
type NetworkError struct{ Err error }

func (e *NetworkError) Error() string { return "h2: network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError reports that a request or RTT probe exceeded its deadline.
type TimeoutError struct{ Err error }

func (e *TimeoutError) Error() string { return "h2: timeout: " + e.Err.Error() }
func (e *TimeoutError) Unwrap() error { return e.Err }

// CancelledError reports that a stream was reset locally, e.g. via
// context cancellation.
type CancelledError struct{ StreamID uint32 }

func (e *CancelledError) Error() string {
	return fmt.Sprintf("h2: stream %d cancelled", e.StreamID)
}

// InvalidRequestError reports a request the engine refuses to send
// (missing pseudo-headers, oversized header list, etc.).
type InvalidRequestError struct{ Reason string }

func (e *InvalidRequestError) Error() string { return "h2: invalid request: " + e.Reason }

var (
	// ErrMissingBytes is returned when a frame's payload is shorter
	// than its type requires.
	ErrMissingBytes = newConnError(FrameSizeError, "missing bytes in frame payload")
	// ErrUnknownFrameType is returned by the frame codec on a type
	// byte outside the known range; RFC 7540 requires it be ignored,
	// so callers treat it as a soft skip rather than a fatal error.
	ErrUnknownFrameType = errors.New("h2: unknown frame type")
	// ErrPayloadExceeds is returned when a frame exceeds the
	// negotiated SETTINGS_MAX_FRAME_SIZE.
	ErrPayloadExceeds = newConnError(FrameSizeError, "frame payload exceeds negotiated maximum size")
	// ErrBadPreface is returned when a peer's connection preface does
	// not match the RFC 7540 magic string.
	ErrBadPreface = newConnError(ProtocolError, "bad connection preface")
	// ErrServerNoH2 is returned by Dial when the peer does not
	// negotiate "h2" over ALPN.
	ErrServerNoH2 = errors.New("h2: server does not support HTTP/2")
	// ErrConnClosed is returned by operations attempted on a
	// connection that has already shut down.
	ErrConnClosed = errors.New("h2: connection closed")
	// ErrNoAvailableStreams is returned when the local stream-id space
	// is exhausted and a new connection must be dialed.
	ErrNoAvailableStreams = errors.New("h2: ran out of available stream ids")
	// ErrMaxConcurrentStreams is returned when opening a stream would
	// exceed the peer-advertised SETTINGS_MAX_CONCURRENT_STREAMS.
	ErrMaxConcurrentStreams = errors.New("h2: max concurrent streams reached")
	// ErrBadPadding is returned by the frame codec when a PADDED
	// frame's pad length does not fit the payload.
	ErrBadPadding = newConnError(ProtocolError, "pad length exceeds frame payload")
)
