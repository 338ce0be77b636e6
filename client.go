package h2

import (
	"context"
	"errors"
	"net"

	"github.com/valyala/fasthttp"
)

// ErrServerNoH2Support is returned by ConfigureClient when a probe
// dial to the origin completes but the server never negotiates "h2"
// over ALPN.
var ErrServerNoH2Support = errors.New("h2: server does not support HTTP/2")

// Client is the public entry point: it owns a per-origin Cache of
// Conns and exposes a fasthttp-shaped Do method.
type Client struct {
	cache  Cache
	config *clientConfig
}

// NewClient returns a Client configured by opts.
func NewClient(opts ...Option) *Client {
	return &Client{config: newClientConfig(opts...)}
}

// Do sends req and populates resp, dialing or reusing a pooled
// connection to req's origin.
func (cl *Client) Do(req *fasthttp.Request, resp *fasthttp.Response) error {
	return cl.DoContext(context.Background(), req, resp)
}

// DoContext is Do with an explicit context, cancelled to abort a
// request still in flight (e.g. the client gave up waiting).
func (cl *Client) DoContext(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	origin := string(req.URI().Host())
	if _, _, err := net.SplitHostPort(origin); err != nil {
		origin += ":443"
	}

	d := &Dialer{
		Addr:      origin,
		TLSConfig: cl.config.tlsConfig,
		ConnOpts:  cl.config.connOpts,
	}

	conn, err := cl.cache.Get(origin, d)
	if err != nil {
		return err
	}

	err = conn.RoundTrip(ctx, req, resp)
	if conn.Closed() {
		cl.cache.Remove(origin)
	}
	return err
}

// Close shuts down every connection the client has pooled.
func (cl *Client) Close() error {
	cl.cache.CloseAll()
	return nil
}

// ConfigureClient wires an HTTP/2 Client into c's Transport so that
// existing fasthttp.HostClient call sites transparently speak HTTP/2
// whenever the origin supports it. It probes the origin once up
// front; if ALPN never selects "h2" the HostClient is left untouched
// and ErrServerNoH2Support is returned.
func ConfigureClient(c *fasthttp.HostClient, opts ...Option) error {
	cc := newClientConfig(opts...)

	d := &Dialer{
		Addr:      c.Addr,
		TLSConfig: c.TLSConfig,
		ConnOpts:  cc.connOpts,
	}
	if d.TLSConfig == nil {
		d.TLSConfig = cc.tlsConfig
	}

	probe, err := d.Dial()
	if err != nil {
		if errors.Is(err, ErrServerNoH2) {
			return ErrServerNoH2Support
		}
		return err
	}
	probe.Close()

	c.IsTLS = true
	c.TLSConfig = d.TLSConfig

	cl := &Client{config: cc}
	c.Transport = cl.Do

	return nil
}
