package h2

import (
	"crypto/tls"
	"net"
	"time"
)

// Dialer establishes new HTTP/2 connections to a single origin,
// negotiating "h2" over TLS-ALPN before handing the socket to NewConn.
// Socket and DNS setup themselves are plain net/tls; this type only
// adds the ALPN bookkeeping an HTTP/2 client needs on top.
type Dialer struct {
	// Addr is a "host:port" address; Network defaults to "tcp".
	Addr      string
	Network   string
	TLSConfig *tls.Config

	// DialTimeout bounds the TCP+TLS handshake. Zero means no timeout.
	DialTimeout time.Duration

	ConnOpts ConnOpts
}

func (d *Dialer) tlsConfig() *tls.Config {
	cfg := d.TLSConfig
	if cfg == nil {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	} else {
		cfg = cfg.Clone()
	}

	if cfg.ServerName == "" {
		host, _, err := net.SplitHostPort(d.Addr)
		if err != nil {
			host = d.Addr
		}
		cfg.ServerName = host
	}

	hasALPN := false
	for _, p := range cfg.NextProtos {
		if p == ALPNProto {
			hasALPN = true
			break
		}
	}
	if !hasALPN {
		cfg.NextProtos = append(cfg.NextProtos, ALPNProto)
	}

	return cfg
}

// Dial opens a TCP+TLS connection to d.Addr, verifies the peer
// negotiated "h2" over ALPN, and returns a ready-to-use Conn.
func (d *Dialer) Dial() (*Conn, error) {
	network := d.Network
	if network == "" {
		network = "tcp"
	}

	rawConn, err := net.DialTimeout(network, d.Addr, d.DialTimeout)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	tlsConn := tls.Client(rawConn, d.tlsConfig())
	if d.DialTimeout > 0 {
		tlsConn.SetDeadline(time.Now().Add(d.DialTimeout))
	}
	if err := tlsConn.Handshake(); err != nil {
		rawConn.Close()
		return nil, &NetworkError{Err: err}
	}
	if d.DialTimeout > 0 {
		tlsConn.SetDeadline(time.Time{})
	}

	if tlsConn.ConnectionState().NegotiatedProtocol != ALPNProto {
		tlsConn.Close()
		return nil, ErrServerNoH2
	}

	return NewConn(tlsConn, d.ConnOpts)
}
