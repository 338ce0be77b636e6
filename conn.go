package h2

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// ErrGoingAway is returned by RoundTrip once the connection has
// received a GOAWAY from its peer and is draining in-flight streams;
// callers should dial a fresh Conn for any further request.
var ErrGoingAway = errors.New("h2: connection received GOAWAY, refusing new streams")

// Conn is one HTTP/2 connection to a single origin: a single read
// loop, a single serialized write path, and a map of concurrently
// multiplexed streams. A Conn is safe for concurrent use by many
// goroutines calling RoundTrip.
//
// https://tools.ietf.org/html/rfc7540#section-5
type Conn struct {
	c  net.Conn
	br *bufio.Reader
	bw *bufio.Writer

	enc *HPACKEncoder
	dec *HPACKDecoder
	// headerMu serializes HPACK-stateful header-block writes: the
	// dynamic table the encoder mutates must be updated in the exact
	// order frames hit the wire, so only one stream's HEADERS (+
	// CONTINUATION) sequence may be in flight at a time. DATA frames
	// carry no compression state and interleave freely through
	// writeCh independent of this lock.
	headerMu sync.Mutex

	nextStreamID uint32 // atomic; client streams are odd, starting at 1

	local    *peerSettings // what we advertised
	remote   *peerSettings // what the peer advertised
	remoteMu sync.RWMutex

	streams *streamMap

	connSend *flowWindow // our credit to send DATA (gated by peer WINDOW_UPDATE on stream 0)
	connRecv *recvWindow // our own advertised connection receive window

	writeCh chan writeJob

	pingAcked chan struct{} // signaled by handlePing whenever an ack arrives

	settingsAcked     chan struct{} // closed once the peer ACKs our initial SETTINGS
	settingsAckClosed sync.Once

	closed   int32 // atomic
	closeErr error
	closeMu  sync.Mutex
	closeCh  chan struct{}
	wg       sync.WaitGroup

	goneAway         int32 // atomic
	lastPeerStreamID uint32

	opts *ConnOpts
	log  *zap.Logger
}

type writeJob struct {
	frh *FrameHeader
	err chan error
}

// NewConn wraps an already-established, already-negotiated transport
// (TLS handshake and ALPN selection are the caller's responsibility)
// in an HTTP/2 Conn, performing the connection preface and initial
// SETTINGS exchange before returning.
//
// https://tools.ietf.org/html/rfc7540#section-3.5
func NewConn(c net.Conn, opts ConnOpts) (*Conn, error) {
	o := opts.withDefaults()

	conn := &Conn{
		c:             c,
		br:            bufio.NewReaderSize(c, 64*1024),
		bw:            bufio.NewWriterSize(c, 64*1024),
		nextStreamID:  1,
		local:         newPeerSettings(),
		remote:        newPeerSettings(),
		writeCh:       make(chan writeJob, 16),
		closeCh:       make(chan struct{}),
		settingsAcked: make(chan struct{}),
		pingAcked:     make(chan struct{}, 1),
		opts:          o,
		log:           o.Logger,
	}
	conn.local.maxConcurrentStreams = DefaultConcurrentStreams
	conn.local.maxHeaderListSize = uint32(o.MaxHeaderListSize)
	conn.streams = newStreamMap(conn.remote.maxConcurrentStreams)
	conn.connSend = newFlowWindow(int64(conn.remote.initialWindowSize))
	conn.connRecv = newRecvWindow(int64(conn.local.initialWindowSize))
	conn.enc = NewHPACKEncoder(int(conn.remote.headerTableSize))
	conn.dec = NewHPACKDecoder(int(conn.local.headerTableSize), o.MaxDecodedHeaderBytes)

	if err := conn.handshake(); err != nil {
		c.Close()
		return nil, err
	}

	conn.wg.Add(2)
	go conn.readLoop()
	go conn.writeLoop()

	// https://tools.ietf.org/html/rfc7540#section-6.5.3: a sender must
	// not make assumptions about its SETTINGS taking effect until it
	// sees the peer's ACK.
	timer := time.NewTimer(o.SettingsAckTimeout)
	defer timer.Stop()
	select {
	case <-conn.settingsAcked:
	case <-conn.closeCh:
		return nil, conn.closeError()
	case <-timer.C:
		timeoutErr := &TimeoutError{Err: errors.New("h2: SETTINGS ACK timeout")}
		conn.fail(timeoutErr)
		return nil, timeoutErr
	}

	return conn, nil
}

func (c *Conn) handshake() error {
	if _, err := c.bw.Write(connPreface); err != nil {
		return errors.WithStack(err)
	}

	frh := AcquireFrameHeader()
	settings := acquireSettingsFrame()
	settings.Add(SettingEnablePush, 0)
	settings.Add(SettingInitialWindowSize, c.local.initialWindowSize)
	settings.Add(SettingMaxConcurrentStreams, c.local.maxConcurrentStreams)
	settings.Add(SettingMaxHeaderListSize, c.local.maxHeaderListSize)
	frh.SetStream(0)
	frh.SetBody(settings)
	if _, err := frh.WriteTo(c.bw); err != nil {
		ReleaseFrameHeader(frh)
		return errors.WithStack(err)
	}
	ReleaseFrameHeader(frh)
	if err := c.bw.Flush(); err != nil {
		return errors.WithStack(err)
	}

	// RFC 7540 §3.5: the first frame from the peer must be SETTINGS.
	first, err := ReadFrameFromWithSize(c.br, defaultMaxFrameLen)
	if err != nil {
		return errors.WithStack(err)
	}
	defer ReleaseFrameHeader(first)

	st, ok := first.Body().(*Settings)
	if !ok || first.Stream() != 0 {
		return newConnError(ProtocolError, "first frame from peer was not SETTINGS")
	}
	if _, err := c.remote.apply(st); err != nil {
		return err
	}
	c.streams.setMax(c.remote.maxConcurrentStreams)
	c.enc.SetMaxDynamicSize(int(c.remote.headerTableSize))

	ack := acquireSettingsFrame()
	ack.SetAck(true)
	ackHdr := AcquireFrameHeader()
	ackHdr.SetStream(0)
	ackHdr.SetBody(ack)
	if _, err := ackHdr.WriteTo(c.bw); err != nil {
		ReleaseFrameHeader(ackHdr)
		return errors.WithStack(err)
	}
	ReleaseFrameHeader(ackHdr)
	return c.bw.Flush()
}

// CanOpenStream reports whether a new request could be admitted right
// now, without actually reserving a stream id.
func (c *Conn) CanOpenStream() bool {
	if atomic.LoadInt32(&c.closed) != 0 || atomic.LoadInt32(&c.goneAway) != 0 {
		return false
	}
	c.remoteMu.RLock()
	max := c.remote.maxConcurrentStreams
	c.remoteMu.RUnlock()
	return uint32(c.streams.len()) < max
}

// Closed reports whether the connection has shut down.
func (c *Conn) Closed() bool { return atomic.LoadInt32(&c.closed) != 0 }

// RoundTrip sends req over a freshly allocated stream and blocks until
// resp is fully populated or ctx is cancelled.
func (c *Conn) RoundTrip(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if atomic.LoadInt32(&c.closed) != 0 {
		return ErrConnClosed
	}
	if atomic.LoadInt32(&c.goneAway) != 0 {
		return ErrGoingAway
	}

	id := atomic.AddUint32(&c.nextStreamID, 2) - 2
	if id == 0 || id > 1<<31-1 {
		return ErrNoAvailableStreams
	}

	c.remoteMu.RLock()
	sendWin := int64(c.remote.initialWindowSize)
	c.remoteMu.RUnlock()

	stream := newStream(id, sendWin, int64(c.local.initialWindowSize), resp)
	if err := c.streams.admit(stream); err != nil {
		releaseStream(stream)
		return err
	}
	defer releaseStream(stream)
	defer c.streams.delete(id)
	stream.open()

	if err := c.writeRequest(stream, req); err != nil {
		stream.reset(err)
		return err
	}

	select {
	case <-stream.done:
	case <-ctx.Done():
		c.resetStream(id, CancelError)
		stream.reset(&CancelledError{StreamID: id})
		return ctx.Err()
	case <-c.closeCh:
		return c.closeError()
	}

	return stream.Wait()
}

func (c *Conn) writeRequest(stream *Stream, req *fasthttp.Request) error {
	hasBody := len(req.Body()) > 0

	c.headerMu.Lock()
	block := c.encodeRequestHeaders(req)
	err := c.sendHeaderBlock(stream.id, block, !hasBody)
	c.headerMu.Unlock()
	if err != nil {
		return err
	}

	if !hasBody {
		stream.closeLocal()
		return nil
	}
	if err := c.writeBody(stream, req.Body()); err != nil {
		return err
	}
	stream.closeLocal()
	return nil
}

func (c *Conn) encodeRequestHeaders(req *fasthttp.Request) []byte {
	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)

	dst := make([]byte, 0, 256)

	hf.SetBytes(stringMethod, req.Header.Method())
	dst = c.enc.AppendHeader(dst, hf, true)

	scheme := []byte("https")
	if req.URI() != nil && len(req.URI().Scheme()) > 0 {
		scheme = req.URI().Scheme()
	}
	hf.SetBytes(stringScheme, scheme)
	dst = c.enc.AppendHeader(dst, hf, true)

	hf.SetBytes(stringPath, req.URI().RequestURI())
	dst = c.enc.AppendHeader(dst, hf, true)

	hf.SetBytes(stringAuthority, req.URI().Host())
	dst = c.enc.AppendHeader(dst, hf, true)

	sawUserAgent := false
	req.Header.VisitAll(func(k, v []byte) {
		if len(k) == 0 || k[0] == ':' {
			return
		}
		switch b2s(k) {
		case "Host", "Connection", "Upgrade", "Http2-Settings", "Keep-Alive",
			"Proxy-Connection", "Transfer-Encoding":
			return
		}
		hf.Reset()
		name := lowerHeader(k)
		hf.SetKeyBytes(name)
		hf.SetValueBytes(v)
		hf.SetSensitive(sensitiveHeaders[b2s(name)])
		dst = c.enc.AppendHeader(dst, hf, true)
		if b2s(name) == "user-agent" {
			sawUserAgent = true
		}
	})

	if !sawUserAgent {
		hf.Reset()
		hf.SetKeyBytes(stringUserAgent)
		hf.SetValueBytes(defaultUserAgent)
		dst = c.enc.AppendHeader(dst, hf, true)
	}

	return dst
}

func lowerHeader(k []byte) []byte {
	out := make([]byte, len(k))
	for i, b := range k {
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		out[i] = b
	}
	return out
}

// sendHeaderBlock splits block into a HEADERS frame and, if necessary,
// one or more CONTINUATION frames honoring the peer's advertised
// SETTINGS_MAX_FRAME_SIZE. Caller must hold headerMu.
func (c *Conn) sendHeaderBlock(streamID uint32, block []byte, endStream bool) error {
	c.remoteMu.RLock()
	maxFrame := int(c.remote.maxFrameSize)
	c.remoteMu.RUnlock()
	if maxFrame == 0 {
		maxFrame = int(DefaultMaxFrameSize)
	}

	first := block
	var rest []byte
	if len(first) > maxFrame {
		rest = first[maxFrame:]
		first = first[:maxFrame]
	}

	h := acquireHeaders()
	h.SetEndStream(endStream)
	h.SetEndHeaders(len(rest) == 0)
	h.SetHeaders(first)
	if err := c.send(h, streamID); err != nil {
		return err
	}

	for len(rest) > 0 {
		chunk := rest
		if len(chunk) > maxFrame {
			chunk = chunk[:maxFrame]
		}
		rest = rest[len(chunk):]

		cont := acquireContinuation()
		cont.SetEndHeaders(len(rest) == 0)
		cont.SetHeaders(chunk)
		if err := c.send(cont, streamID); err != nil {
			return err
		}
	}
	return nil
}

// writeBody chunks body into DATA frames no larger than the smaller of
// the connection-wide and per-stream send windows and the peer's
// MAX_FRAME_SIZE, blocking on flow-control credit as needed.
func (c *Conn) writeBody(stream *Stream, body []byte) error {
	for len(body) > 0 {
		c.remoteMu.RLock()
		maxFrame := int64(c.remote.maxFrameSize)
		c.remoteMu.RUnlock()
		if maxFrame == 0 {
			maxFrame = int64(DefaultMaxFrameSize)
		}

		want := int64(len(body))
		if want > maxFrame {
			want = maxFrame
		}

		granted, err := c.takeSendCredit(stream, want)
		if err != nil {
			return err
		}
		if granted == 0 {
			continue
		}

		chunk := body[:granted]
		body = body[granted:]

		d := acquireData()
		d.SetData(chunk)
		d.SetEndStream(len(body) == 0)
		if err := c.send(d, stream.id); err != nil {
			return err
		}
	}
	return nil
}

// takeSendCredit reserves up to want bytes of credit from the stream's
// window and then the connection's window, never debiting one for more
// than it actually got from the other: if the connection window grants
// less than the stream already gave up, the shortfall is refunded to
// stream.send instead of silently vanishing.
func (c *Conn) takeSendCredit(stream *Stream, want int64) (int64, error) {
	streamGrant, err := stream.send.take(want)
	if err != nil {
		return 0, err
	}
	if streamGrant == 0 {
		return 0, nil
	}

	connGrant, err := c.connSend.take(streamGrant)
	if err != nil {
		_ = stream.send.add(streamGrant) // refunding credit just taken, can't overflow
		return 0, err
	}
	if connGrant < streamGrant {
		_ = stream.send.add(streamGrant - connGrant) // same: refund, never an increase past prior size
	}
	return connGrant, nil
}

// send hands body to the write loop and blocks until it is on the
// wire (or the connection dies). The write loop owns releasing the
// acquired FrameHeader.
func (c *Conn) send(body Frame, streamID uint32) error {
	frh := AcquireFrameHeader()
	frh.SetStream(streamID)
	frh.SetBody(body)

	job := writeJob{frh: frh, err: make(chan error, 1)}
	select {
	case c.writeCh <- job:
	case <-c.closeCh:
		ReleaseFrameHeader(frh)
		return c.closeError()
	}

	select {
	case err := <-job.err:
		return err
	case <-c.closeCh:
		return c.closeError()
	}
}

func (c *Conn) resetStream(id uint32, code ErrorCode) {
	rs := acquireRstStream()
	rs.SetCode(code)
	_ = c.send(rs, id)
}

func (c *Conn) writeLoop() {
	defer c.wg.Done()

	// Keep-alive cannot be disabled, only tuned: withDefaults guarantees
	// PingInterval is always positive by the time a Conn is built.
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	pingTimer := time.NewTimer(c.opts.PingInterval)
	defer pingTimer.Stop()
	if !pingTimer.Stop() {
		<-pingTimer.C
	}
	pingOutstanding := false

	for {
		select {
		case job := <-c.writeCh:
			err := c.writeDirect(job.frh)
			ReleaseFrameHeader(job.frh)
			job.err <- err
			if err != nil {
				c.fail(&NetworkError{Err: err})
				return
			}

		case <-ticker.C:
			frh := AcquireFrameHeader()
			frh.SetStream(0)
			p := acquirePing()
			p.SetData([]byte("h2-ping"))
			frh.SetBody(p)
			if err := c.writeDirect(frh); err != nil {
				ReleaseFrameHeader(frh)
				c.fail(&NetworkError{Err: err})
				return
			}
			ReleaseFrameHeader(frh)
			if !pingOutstanding {
				pingOutstanding = true
				pingTimer.Reset(c.opts.PingTimeout)
			}

		case <-c.pingAcked:
			if pingOutstanding {
				pingOutstanding = false
				if !pingTimer.Stop() {
					<-pingTimer.C
				}
			}

		case <-pingTimer.C:
			c.fail(&TimeoutError{Err: errors.New("h2: keep-alive PING not acknowledged")})
			return

		case <-c.closeCh:
			return
		}
	}
}

func (c *Conn) writeDirect(frh *FrameHeader) error {
	if _, err := frh.WriteTo(c.bw); err != nil {
		return errors.WithStack(err)
	}
	return c.bw.Flush()
}

func (c *Conn) readLoop() {
	defer c.wg.Done()

	for {
		frh, err := ReadFrameFromWithSize(c.br, c.local.maxFrameSize)
		if err == ErrUnknownFrameType {
			continue
		}
		if err != nil {
			c.fail(&NetworkError{Err: err})
			return
		}

		if err := c.handleFrame(frh); err != nil {
			ReleaseFrameHeader(frh)
			var ce *connError
			if errors.As(err, &ce) {
				c.goAway(ce.Code)
			}
			c.fail(err)
			return
		}
		ReleaseFrameHeader(frh)
	}
}

func (c *Conn) handleFrame(frh *FrameHeader) error {
	if frh.Stream() == 0 {
		return c.handleConnFrame(frh)
	}
	return c.handleStreamFrame(frh)
}

func (c *Conn) handleConnFrame(frh *FrameHeader) error {
	switch b := frh.Body().(type) {
	case *Settings:
		return c.handleSettings(b)
	case *WindowUpdate:
		if b.Increment() == 0 {
			return newConnError(ProtocolError, "WINDOW_UPDATE with zero increment")
		}
		return c.connSend.add(int64(b.Increment()))
	case *Ping:
		return c.handlePing(b)
	case *GoAway:
		c.handleGoAway(b)
		return nil
	default:
		c.log.Debug("frame with stream id 0 ignored", zap.Stringer("type", frh.Type()))
		return nil
	}
}

func (c *Conn) handleSettings(s *Settings) error {
	if s.IsAck() {
		c.settingsAckClosed.Do(func() { close(c.settingsAcked) })
		return nil
	}

	c.remoteMu.Lock()
	delta, err := c.remote.apply(s)
	maxDyn := int(c.remote.headerTableSize)
	maxConcurrent := c.remote.maxConcurrentStreams
	c.remoteMu.Unlock()
	if err != nil {
		return err
	}

	if delta != 0 {
		if err := c.streams.addSendWindow(delta); err != nil {
			return err
		}
	}
	c.streams.setMax(maxConcurrent)
	c.enc.SetMaxDynamicSize(maxDyn)

	ack := acquireSettingsFrame()
	ack.SetAck(true)
	return c.send(ack, 0)
}

func (c *Conn) handlePing(p *Ping) error {
	if p.Ack() {
		select {
		case c.pingAcked <- struct{}{}:
		default:
		}
		return nil
	}
	reply := acquirePing()
	reply.SetAck(true)
	reply.SetData(p.Data())
	return c.send(reply, 0)
}

func (c *Conn) handleGoAway(g *GoAway) {
	atomic.StoreInt32(&c.goneAway, 1)
	c.lastPeerStreamID = g.LastStreamID()

	if c.opts.OnGoAway != nil {
		c.opts.OnGoAway(g.LastStreamID(), g.Code())
	}

	c.streams.each(func(s *Stream) {
		if s.id > g.LastStreamID() {
			s.reset(newStreamError(s.id, RefusedStreamError, "connection going away"))
		}
	})
}

func (c *Conn) handleStreamFrame(frh *FrameHeader) error {
	id := frh.Stream()
	stream, ok := c.streams.get(id)

	switch b := frh.Body().(type) {
	case *Headers:
		if !ok {
			return nil // response for a stream we already gave up on
		}
		return c.handleHeaderBlock(stream, b.Headers(), b.EndHeaders(), b.EndStream())

	case *Continuation:
		if !ok {
			return nil
		}
		return c.handleHeaderBlock(stream, b.Headers(), b.EndHeaders(), false)

	case *Data:
		if !ok {
			// Still debits the connection-wide recv window the peer
			// believes it spent, and refuses the stream it was sent on.
			if err := c.chargeConnRecv(int64(b.Len())); err != nil {
				return err
			}
			c.resetStream(id, StreamClosedError)
			return nil
		}
		return c.handleData(stream, b)

	case *RstStream:
		if ok {
			stream.reset(newStreamError(id, b.Code(), "reset by peer"))
		}
		return nil

	case *WindowUpdate:
		if !ok {
			c.log.Debug("WINDOW_UPDATE for unknown stream ignored", zap.Uint32("stream", id))
			return nil
		}
		if b.Increment() == 0 {
			stream.reset(newStreamError(id, ProtocolError, "WINDOW_UPDATE with zero increment"))
			c.resetStream(id, ProtocolError)
			return nil
		}
		if err := stream.send.add(int64(b.Increment())); err != nil {
			stream.reset(newStreamError(id, FlowControlError, "WINDOW_UPDATE overflowed stream send window"))
			c.resetStream(id, FlowControlError)
			return nil
		}
		return nil

	case *PushPromise:
		// Server push is never accepted; refuse the promised stream.
		c.resetStream(b.PromisedStreamID(), RefusedStreamError)
		return nil

	case *Priority:
		return nil // parsed for conformance, never enforced

	default:
		return nil
	}
}

func (c *Conn) handleHeaderBlock(stream *Stream, frag []byte, endHeaders, endStream bool) error {
	if stream.headerBuf == nil {
		stream.headerBuf = bytebufferpool.Get()
	}
	stream.headerBuf.Write(frag)

	if !endHeaders {
		return nil
	}

	raw := stream.headerBuf.B
	c.dec.BeginBlock()

	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)

	budget := int64(c.local.maxHeaderListSize)
	var listSize int64
	oversize := false

	for len(raw) > 0 {
		var err error
		raw, err = c.dec.Next(hf, raw)
		if err != nil {
			bytebufferpool.Put(stream.headerBuf)
			stream.headerBuf = nil
			return newConnError(CompressionError, "%v", err)
		}
		if hf.Empty() {
			continue
		}

		// The full block is always decoded to completion even once the
		// budget is blown, so the shared dynamic table stays in sync
		// with the peer's view of it; only the response this stream
		// sees is affected.
		listSize += int64(len(hf.Key())) + int64(len(hf.Value())) + 32
		if budget > 0 && listSize > budget {
			oversize = true
		} else if !oversize {
			applyResponseField(stream.resp, hf)
		}
		hf.Reset()
	}

	bytebufferpool.Put(stream.headerBuf)
	stream.headerBuf = nil

	if oversize {
		stream.reset(newStreamError(stream.id, RefusedStreamError, "decoded header list %d exceeds local budget %d", listSize, budget))
		c.resetStream(stream.id, RefusedStreamError)
		return nil
	}

	stream.respHeaderDone = true

	if endStream {
		stream.closeRemote()
	}
	return nil
}

func applyResponseField(resp *fasthttp.Response, hf *HeaderField) {
	if hf.IsPseudo() {
		if hf.Key() == ":status" {
			if code, err := strconv.Atoi(hf.Value()); err == nil {
				resp.SetStatusCode(code)
			}
		}
		return
	}
	resp.Header.Add(hf.Key(), hf.Value())
}

func (c *Conn) handleData(stream *Stream, d *Data) error {
	n := int64(d.Len())

	if !stream.respHeaderDone {
		err := c.chargeConnRecv(n)
		c.resetStream(stream.id, ProtocolError)
		stream.reset(newStreamError(stream.id, ProtocolError, "DATA received before HEADERS"))
		return err
	}

	if n > 0 {
		stream.resp.AppendBody(d.Data())

		if grant := stream.recv.consume(n); grant > 0 {
			wu := acquireWindowUpdate()
			wu.SetIncrement(uint32(grant))
			if err := c.send(wu, stream.id); err != nil {
				return err
			}
		}
		if err := c.chargeConnRecv(n); err != nil {
			return err
		}
	}

	if d.EndStream() {
		stream.closeRemote()
	}
	return nil
}

// chargeConnRecv accounts n bytes of DATA against the connection-wide
// recv window and replies with a WINDOW_UPDATE(stream 0) if the refill
// threshold is crossed, regardless of whether the stream it arrived on
// is still known to us.
func (c *Conn) chargeConnRecv(n int64) error {
	if n <= 0 {
		return nil
	}
	if grant := c.connRecv.consume(n); grant > 0 {
		wu := acquireWindowUpdate()
		wu.SetIncrement(uint32(grant))
		return c.send(wu, 0)
	}
	return nil
}

// Close sends GOAWAY, tears down the transport, and wakes every
// in-flight stream with ErrConnClosed.
func (c *Conn) Close() error {
	return c.closeWithCode(NoError, nil)
}

func (c *Conn) goAway(code ErrorCode) {
	c.closeWithCode(code, nil)
}

func (c *Conn) closeWithCode(code ErrorCode, cause error) error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}

	ga := acquireGoAway()
	ga.SetLastStreamID(c.lastPeerStreamID)
	ga.SetCode(code)
	frh := AcquireFrameHeader()
	frh.SetStream(0)
	frh.SetBody(ga)
	_ = c.c.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
	_ = c.writeDirect(frh)
	ReleaseFrameHeader(frh)

	c.closeMu.Lock()
	if cause != nil {
		c.closeErr = cause
	}
	c.closeMu.Unlock()

	close(c.closeCh)
	c.c.Close()
	c.connSend.closeFlow()

	c.streams.each(func(s *Stream) { s.reset(c.closeError()) })

	// Waited on in a goroutine: the read and write loops call this
	// themselves through fail and goAway.
	go func() {
		c.wg.Wait()
		if c.opts.OnClose != nil {
			c.opts.OnClose(c.closeError())
		}
	}()
	return nil
}

func (c *Conn) fail(err error) {
	c.closeWithCode(InternalError, err)
}

func (c *Conn) closeError() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closeErr != nil {
		return c.closeErr
	}
	return ErrConnClosed
}
