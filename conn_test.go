package h2

import (
	"bufio"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

// fakePeer speaks just enough HTTP/2 over a net.Pipe to exercise a
// Conn's handshake and a single request/response round trip, without
// any TLS/ALPN setup (that negotiation is the Dialer's job, not the
// Conn's, and is exercised separately).
func fakePeer(c net.Conn) error {
	br := bufio.NewReader(c)
	bw := bufio.NewWriter(c)

	preface := make([]byte, len(connPreface))
	if _, err := io.ReadFull(br, preface); err != nil {
		return err
	}

	// client's initial SETTINGS
	frh, err := ReadFrameFrom(br)
	if err != nil {
		return err
	}
	ReleaseFrameHeader(frh)

	settings := acquireSettingsFrame()
	settings.Add(SettingMaxConcurrentStreams, 250)
	sh := AcquireFrameHeader()
	sh.SetStream(0)
	sh.SetBody(settings)
	if _, err := sh.WriteTo(bw); err != nil {
		return err
	}
	ReleaseFrameHeader(sh)

	ack := acquireSettingsFrame()
	ack.SetAck(true)
	ackHdr := AcquireFrameHeader()
	ackHdr.SetStream(0)
	ackHdr.SetBody(ack)
	if _, err := ackHdr.WriteTo(bw); err != nil {
		return err
	}
	ReleaseFrameHeader(ackHdr)
	if err := bw.Flush(); err != nil {
		return err
	}

	var streamID uint32
	for {
		frh, err := ReadFrameFrom(br)
		if err != nil {
			return err
		}
		id := frh.Stream()
		_, isHeaders := frh.Body().(*Headers)
		ReleaseFrameHeader(frh)
		if isHeaders {
			streamID = id
			break
		}
	}

	enc := NewHPACKEncoder(4096)
	hf := AcquireHeaderField()
	hf.Set(":status", "200")
	dst := enc.AppendHeader(nil, hf, true)
	ReleaseHeaderField(hf)

	h := acquireHeaders()
	h.SetHeaders(dst)
	h.SetEndHeaders(true)
	hh := AcquireFrameHeader()
	hh.SetStream(streamID)
	hh.SetBody(h)
	if _, err := hh.WriteTo(bw); err != nil {
		return err
	}
	ReleaseFrameHeader(hh)

	d := acquireData()
	d.SetData([]byte("ok"))
	d.SetEndStream(true)
	dh := AcquireFrameHeader()
	dh.SetStream(streamID)
	dh.SetBody(d)
	if _, err := dh.WriteTo(bw); err != nil {
		return err
	}
	ReleaseFrameHeader(dh)

	return bw.Flush()
}

func TestConnHandshakeAndRoundTrip(t *testing.T) {
	clientSide, serverSide := net.Pipe()

	serverErr := make(chan error, 1)
	go func() { serverErr <- fakePeer(serverSide) }()

	conn, err := NewConn(clientSide, ConnOpts{})
	require.NoError(t, err)
	defer conn.Close()

	req := &fasthttp.Request{}
	req.SetRequestURI("https://example.com/")
	resp := &fasthttp.Response{}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, conn.RoundTrip(ctx, req, resp))
	assert.Equal(t, 200, resp.StatusCode())
	assert.Equal(t, "ok", string(resp.Body()))

	require.NoError(t, <-serverErr)
}

func TestConnRejectsExceedingMaxConcurrentStreams(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	go fakePeer(serverSide) //nolint:errcheck

	conn, err := NewConn(clientSide, ConnOpts{})
	require.NoError(t, err)
	defer conn.Close()

	conn.streams.setMax(0)
	assert.False(t, conn.CanOpenStream())

	req := &fasthttp.Request{}
	req.SetRequestURI("https://example.com/")
	resp := &fasthttp.Response{}

	err = conn.RoundTrip(context.Background(), req, resp)
	assert.ErrorIs(t, err, ErrMaxConcurrentStreams)
}

// silentPeer completes the SETTINGS exchange enough for the client's
// handshake to see a peer SETTINGS frame, but never acknowledges the
// client's own SETTINGS, exercising NewConn's bounded wait for that ACK.
func silentPeer(c net.Conn) error {
	br := bufio.NewReader(c)
	bw := bufio.NewWriter(c)

	preface := make([]byte, len(connPreface))
	if _, err := io.ReadFull(br, preface); err != nil {
		return err
	}
	frh, err := ReadFrameFrom(br)
	if err != nil {
		return err
	}
	ReleaseFrameHeader(frh)

	settings := acquireSettingsFrame()
	sh := AcquireFrameHeader()
	sh.SetStream(0)
	sh.SetBody(settings)
	if _, err := sh.WriteTo(bw); err != nil {
		return err
	}
	ReleaseFrameHeader(sh)
	if err := bw.Flush(); err != nil {
		return err
	}

	// Keep draining so the client's ack-of-our-SETTINGS write doesn't
	// block forever on the pipe; just never send an ACK of our own.
	for {
		frh, err := ReadFrameFrom(br)
		if err != nil {
			return nil
		}
		ReleaseFrameHeader(frh)
	}
}

func TestConnNewConnTimesOutWithoutSettingsAck(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer serverSide.Close()
	go silentPeer(serverSide) //nolint:errcheck

	_, err := NewConn(clientSide, ConnOpts{SettingsAckTimeout: 20 * time.Millisecond})
	var te *TimeoutError
	assert.ErrorAs(t, err, &te)
}

func TestConnEncodeRequestHeadersMarksSensitiveAndAddsDefaultUserAgent(t *testing.T) {
	c := &Conn{enc: NewHPACKEncoder(4096)}
	dec := NewHPACKDecoder(4096, 0)

	req := &fasthttp.Request{}
	req.SetRequestURI("https://example.com/secret")
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("X-Custom", "value")

	dst := c.encodeRequestHeaders(req)

	dec.BeginBlock()
	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)

	got := make(map[string]string)
	sensitive := make(map[string]bool)
	rest := dst
	for len(rest) > 0 {
		var err error
		rest, err = dec.Next(hf, rest)
		require.NoError(t, err)
		if hf.Empty() {
			continue
		}
		got[hf.Key()] = hf.Value()
		sensitive[hf.Key()] = hf.Sensitive()
	}

	assert.Equal(t, "Bearer token", got["authorization"])
	assert.True(t, sensitive["authorization"], "authorization must never be indexed")
	assert.False(t, sensitive["x-custom"])
	assert.Equal(t, string(defaultUserAgent), got["user-agent"], "a default User-Agent is added when the request has none")
}
