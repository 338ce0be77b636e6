package h2

import (
	"crypto/tls"
	"time"

	"go.uber.org/zap"
)

// DefaultPingInterval is the keep-alive PING cadence used when
// ConnOpts.PingInterval is left zero; keep-alive cannot be disabled
// outright, only tuned, matching the cadence every engine on this
// connection was built to expect.
const DefaultPingInterval = 30 * time.Second

// DefaultSettingsAckTimeout bounds how long NewConn waits for the peer
// to acknowledge the client's initial SETTINGS before failing with a
// TimeoutError.
const DefaultSettingsAckTimeout = 5 * time.Second

// ConnOpts configures a single Conn produced by Dial.
type ConnOpts struct {
	// PingInterval is how often the engine sends a keep-alive PING,
	// whether or not the connection is idle. Zero or a negative value
	// selects DefaultPingInterval.
	PingInterval time.Duration

	// PingTimeout bounds how long an unacknowledged PING is tolerated
	// before the connection is declared dead. Zero selects 2x the
	// effective PingInterval.
	PingTimeout time.Duration

	// SettingsAckTimeout bounds how long NewConn waits for the peer's
	// ACK of the client's initial SETTINGS. Zero selects
	// DefaultSettingsAckTimeout.
	SettingsAckTimeout time.Duration

	// MaxDecodedHeaderBytes bounds a single header block's raw decoded
	// byte count, guarding against an HPACK decompression bomb. Zero
	// selects DefaultMaxHeaderListSize. Independent of
	// MaxHeaderListSize: this one caps wire-decode cost, the other caps
	// the RFC 7540 "header list size" metric.
	MaxDecodedHeaderBytes int

	// MaxHeaderListSize bounds Σ(len(name)+len(value)+32) across a
	// decoded response header list (the RFC 7540 SETTINGS_MAX_HEADER_LIST_SIZE
	// metric) and is advertised to the peer in the initial SETTINGS.
	// Zero selects DefaultMaxHeaderListSize.
	MaxHeaderListSize int

	// OnGoAway, if set, is invoked once when the peer sends GOAWAY.
	OnGoAway func(lastStreamID uint32, code ErrorCode)

	// OnClose, if set, is invoked once the connection has fully shut
	// down, for any reason (local Close, protocol error, I/O error).
	// A peer GOAWAY alone does not close the connection.
	OnClose func(err error)

	// Logger receives structured diagnostic events. Defaults to a
	// no-op logger.
	Logger *zap.Logger
}

func (o *ConnOpts) withDefaults() *ConnOpts {
	cp := *o
	if cp.Logger == nil {
		cp.Logger = zap.NewNop()
	}
	if cp.MaxDecodedHeaderBytes == 0 {
		cp.MaxDecodedHeaderBytes = int(DefaultMaxHeaderListSize)
	}
	if cp.MaxHeaderListSize == 0 {
		cp.MaxHeaderListSize = int(DefaultMaxHeaderListSize)
	}
	if cp.PingInterval <= 0 {
		cp.PingInterval = DefaultPingInterval
	}
	if cp.PingTimeout == 0 {
		cp.PingTimeout = cp.PingInterval * 2
	}
	if cp.SettingsAckTimeout == 0 {
		cp.SettingsAckTimeout = DefaultSettingsAckTimeout
	}
	return &cp
}

// DialerOpts configures a Dialer.
type DialerOpts struct {
	TLSConfig *tls.Config
	ConnOpts  ConnOpts
}

// Option configures a Client/Cache built by ConfigureClient.
type Option func(*clientConfig)

type clientConfig struct {
	tlsConfig *tls.Config
	connOpts  ConnOpts
}

// WithTLSConfig overrides the TLS configuration used to dial origins.
// ALPNProto is always appended to NextProtos if absent.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *clientConfig) { c.tlsConfig = cfg }
}

// WithPingInterval sets the keep-alive PING interval. Keep-alive is
// always on; a d of zero or less keeps DefaultPingInterval.
func WithPingInterval(d time.Duration) Option {
	return func(c *clientConfig) { c.connOpts.PingInterval = d }
}

// WithLogger installs a structured logger for every Conn the client
// dials.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) { c.connOpts.Logger = l }
}

// WithOnGoAway installs a callback fired when any pooled Conn receives
// a GOAWAY from its origin.
func WithOnGoAway(fn func(lastStreamID uint32, code ErrorCode)) Option {
	return func(c *clientConfig) { c.connOpts.OnGoAway = fn }
}

func newClientConfig(opts ...Option) *clientConfig {
	cc := &clientConfig{}
	for _, o := range opts {
		o(cc)
	}
	return cc
}
