package http2

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// ConnOpts defines the connection options.
type ConnOpts struct {
	// PingInterval defines the interval in which the client will ping the server.
	//
	// An interval of 0 will make the library to use DefaultPingInterval. Because ping intervals can't be disabled
	PingInterval time.Duration
	// DisablePingChecking ...
	DisablePingChecking bool
	// OnDisconnect is a callback that fires when the Conn disconnects.
	OnDisconnect func(c *Conn)
	// OnRTT is called after every RTT measurement, taken from the time
	// between sending a PING and receiving its ack.
	OnRTT func(time.Duration)
	// EnablePush advertises ENABLE_PUSH=1 to the server. Left false by
	// default, matching net/http's client, which never asks for pushes.
	EnablePush bool
	// OnPush is called with the promised request and, once fully
	// received, its response, for every PUSH_PROMISE the server sends
	// while EnablePush is true. Streams pushed while EnablePush is
	// false are refused with RST_STREAM(REFUSED_STREAM) and never
	// reach OnPush.
	OnPush func(req *Request, res *Response)
	// ResetStreamDuration bounds how long a locally reset stream id is
	// remembered so that frames racing its closure are recognized and
	// dropped instead of being mistaken for an unknown stream. Zero
	// uses defaultResetStreamDuration (30s).
	ResetStreamDuration time.Duration
	// MaxConcurrentResetStreams bounds how many locally reset stream
	// ids are remembered at once, evicting the oldest first. Zero uses
	// defaultMaxConcurrentResetStreams (10).
	MaxConcurrentResetStreams int
}

// Handshake performs an HTTP/2 handshake. That means, it will send
// the preface if `preface` is true, send a settings frame and a
// window update frame (for the connection's window).
func Handshake(preface bool, bw *bufio.Writer, st *Settings, maxWin int32) error {
	if preface {
		err := WritePreface(bw)
		if err != nil {
			return err
		}
	}

	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)

	// write the settings
	st2 := &Settings{}
	st.CopyTo(st2)

	fr.SetBody(st2)

	_, err := fr.WriteTo(bw)
	if err == nil {
		// then send a window update
		fr = AcquireFrameHeader()
		wu := AcquireFrame(FrameWindowUpdate).(*WindowUpdate)
		wu.SetIncrement(int(maxWin))

		fr.SetBody(wu)

		_, err = fr.WriteTo(bw)
		if err == nil {
			err = bw.Flush()
		}
	}

	return err
}

// Conn represents a raw HTTP/2 connection over an abstract Transport.
// Conn itself never dials, resolves or negotiates TLS — see Dialer for
// the default TCP+TLS transport builder.
type Conn struct {
	c Transport

	br *bufio.Reader
	bw *bufio.Writer

	enc *HPACK
	dec *HPACK

	nextID uint32

	serverWindow       int32
	serverStreamWindow int32

	maxWindow     int32
	currentWindow int32

	openStreams int32

	current Settings
	serverS Settings

	reqQueued sync.Map

	in  chan *Ctx
	out chan *FrameHeader

	pingInterval time.Duration

	unacks      int
	disableAcks bool

	lastErr      error
	onDisconnect func(*Conn)
	onRTT        func(time.Duration)
	onPush       func(req *Request, res *Response)

	resetStrms resetStreamSet

	closed uint64
}

// NewConn returns a new HTTP/2 connection over the given Transport.
// To start using the connection you need to call Handshake.
func NewConn(c Transport, opts ConnOpts) *Conn {
	nc := &Conn{
		c:             c,
		br:            bufio.NewReaderSize(c, 4096),
		bw:            bufio.NewWriterSize(c, maxFrameSize),
		enc:           AcquireHPACK(),
		dec:           AcquireHPACK(),
		nextID:        1,
		maxWindow:     1 << 20,
		currentWindow: 1 << 20,
		in:            make(chan *Ctx, 128),
		out:           make(chan *FrameHeader, 128),
		pingInterval:  opts.PingInterval,
		disableAcks:   opts.DisablePingChecking,
		onDisconnect:  opts.OnDisconnect,
		onRTT:         opts.OnRTT,
		onPush:        opts.OnPush,
		resetStrms:    newResetStreamSet(opts.ResetStreamDuration, opts.MaxConcurrentResetStreams),
	}

	nc.current.SetMaxWindowSize(1 << 20)
	nc.current.SetPush(opts.EnablePush)

	return nc
}

// Dialer allows to create HTTP/2 connections by specifying an address and tls configuration.
type Dialer struct {
	// Addr is the server's address in the form: `host:port`.
	Addr string

	// TLSConfig is the tls configuration.
	//
	// If TLSConfig is nil, a default one will be defined on the Dial call.
	TLSConfig *tls.Config

	// PingInterval defines the interval in which the client will ping the server.
	//
	// An interval of 0 will make the library to use DefaultPingInterval. Because ping intervals can't be disabled.
	PingInterval time.Duration
}

// tryDial performs the TCP/TLS/ALPN negotiation that spec.md §1 treats
// as an external collaborator, not engine logic: it hands NewConn a
// ready Transport and never touches it again afterwards.
func (d *Dialer) tryDial() (Transport, error) {
	if d.TLSConfig == nil || !func() bool {
		for _, proto := range d.TLSConfig.NextProtos {
			if proto == "h2" {
				return true
			}
		}

		return false
	}() {
		configureDialer(d)
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", d.Addr)
	if err != nil {
		return nil, err
	}

	c, err := net.DialTCP("tcp", nil, tcpAddr)
	if err != nil {
		return nil, err
	}

	tlsConn := tls.Client(c, d.TLSConfig)

	if err := tlsConn.Handshake(); err != nil {
		_ = c.Close()
		return nil, err
	}

	if tlsConn.ConnectionState().NegotiatedProtocol != "h2" {
		_ = c.Close()
		return nil, ErrServerSupport
	}

	return NewTransport(tlsConn), nil
}

// Dial creates an HTTP/2 connection or returns an error.
//
// An expected error is ErrServerSupport.
func (d *Dialer) Dial(opts ConnOpts) (*Conn, error) {
	t, err := d.tryDial()
	if err != nil {
		return nil, err
	}

	if opts.PingInterval <= 0 {
		opts.PingInterval = d.PingInterval
	}

	nc := NewConn(t, opts)

	err = nc.Handshake()
	return nc, err
}

// SetOnDisconnect sets the callback that will fire when the HTTP/2 connection is closed.
func (c *Conn) SetOnDisconnect(cb func(*Conn)) {
	c.onDisconnect = cb
}

// LastErr returns the last registered error in case the connection was closed by the server.
func (c *Conn) LastErr() error {
	return c.lastErr
}

// Handshake will perform the necessary handshake to establish the connection
// with the server. If an error is returned you can assume the TCP connection has been closed.
func (c *Conn) Handshake() error {
	if err := c.doHandshake(); err != nil {
		return err
	}

	go c.writeLoop()
	go c.readLoop()

	return nil
}

// doHandshake performs the preface/SETTINGS exchange without starting
// the read/write loops, so callers can drive frames manually afterwards.
func (c *Conn) doHandshake() error {
	var err error

	if err = Handshake(true, c.bw, &c.current, c.maxWindow-65535); err != nil {
		_ = c.c.Close()
		return err
	}

	var fr *FrameHeader

	if fr, err = ReadFrameFrom(c.br); err == nil && fr.Type() != FrameSettings {
		_ = c.c.Close()
		return fmt.Errorf("unexpected frame, expected settings, got %s", fr.Type())
	} else if err == nil {
		st := fr.Body().(*Settings)
		if !st.IsAck() {
			st.CopyTo(&c.serverS)

			c.serverStreamWindow += int32(c.serverS.MaxWindowSize())
			if st.HeaderTableSize() <= defaultHeaderTableSize {
				c.enc.SetMaxTableSize(int(st.HeaderTableSize()))
			}

			// reply back
			fr = AcquireFrameHeader()

			stRes := AcquireFrame(FrameSettings).(*Settings)
			stRes.SetAck(true)

			fr.SetBody(stRes)

			if _, err = fr.WriteTo(c.bw); err == nil {
				err = c.bw.Flush()
			}

			ReleaseFrameHeader(fr)
		}
	}

	if err != nil {
		_ = c.Close()
	} else {
		ReleaseFrameHeader(fr)
	}

	return err
}

// writeFrame writes a single frame directly to the connection's
// buffered writer without flushing, for callers that drive frames by
// hand instead of going through Write/writeLoop.
func (c *Conn) writeFrame(fr *FrameHeader) error {
	_, err := fr.WriteTo(c.bw)
	ReleaseFrameHeader(fr)
	return err
}

// CanOpenStream returns whether the client will be able to open a new stream or not.
func (c *Conn) CanOpenStream() bool {
	return atomic.LoadInt32(&c.openStreams) < int32(c.serverS.MaxConcurrentStreams())
}

// Closed indicates whether the connection is closed or not.
func (c *Conn) Closed() bool {
	return atomic.LoadUint64(&c.closed) == 1
}

// Close closes the connection gracefully, sending a GoAway message
// and then closing the underlying TCP connection.
func (c *Conn) Close() error {
	if !atomic.CompareAndSwapUint64(&c.closed, 0, 1) {
		return io.EOF
	}

	close(c.in)

	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)

	ga := AcquireFrame(FrameGoAway).(*GoAway)
	ga.SetStream(0)
	ga.SetCode(NoError)

	fr.SetBody(ga)

	_, err := fr.WriteTo(c.bw)
	if err == nil {
		err = c.bw.Flush()
	}

	_ = c.c.Close()

	if c.onDisconnect != nil {
		c.onDisconnect(c)
	}

	return err
}

// Write queues the request to be sent to the server.
//
// Check if `c` has been previously closed before accessing this function.
func (c *Conn) Write(r *Ctx) {
	c.in <- r
}

func (c *Conn) writeLoop() {
	defer func() { _ = c.Close() }()

	if c.pingInterval <= 0 {
		c.pingInterval = DefaultPingInterval
	}

	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	var lastErr error

loop:
	for {
		select {
		case r, ok := <-c.in: // sending requests
			if !ok {
				break loop
			}

			req := r.Request

			uid, err := c.writeRequest(req)
			if err != nil {
				r.Err <- err

				if errors.Is(err, ErrNotAvailableStreams) {
					continue
				}

				lastErr = WriteError{err}

				break loop
			}

			c.reqQueued.Store(uid, r)
		case fr := <-c.out: // generic output
			if _, err := fr.WriteTo(c.bw); err == nil {
				if err = c.bw.Flush(); err != nil {
					lastErr = WriteError{err}
					break loop
				}
			} else {
				lastErr = WriteError{err}
				break loop
			}

			ReleaseFrameHeader(fr)
		case <-ticker.C: // ping
			if err := c.writePing(); err != nil {
				lastErr = WriteError{err}
				break loop
			}
		}

		if !c.disableAcks && c.unacks >= 3 {
			lastErr = ErrTimeout
			break loop
		}
	}

	if lastErr == nil {
		lastErr = io.EOF
	}

	// send eofs to pending requests
	c.reqQueued.Range(func(_, v interface{}) bool {
		r := v.(*Ctx)
		r.Err <- lastErr
		return true
	})
}

func (c *Conn) finish(r *Ctx, stream uint32, err error) {
	atomic.AddInt32(&c.openStreams, -1)

	if r.pushed {
		if err == nil && c.onPush != nil {
			c.onPush(r.Request, r.Response)
		}
	} else {
		r.Err <- err
	}

	c.reqQueued.Delete(stream)
	c.resetStrms.Add(stream)

	close(r.Err)
}

func (c *Conn) readLoop() {
	defer func() { _ = c.Close() }()

	for {
		fr, err := c.readNext()
		if err != nil {
			c.lastErr = err
			break
		}

		if c.resetStrms.Has(fr.Stream()) {
			// a frame racing a stream we already finished or reset: not an
			// unknown stream, just stale in flight traffic, drop it
			ReleaseFrameHeader(fr)
			continue
		}

		if ri, ok := c.reqQueued.Load(fr.Stream()); ok {
			r := ri.(*Ctx)

			err := c.readStream(fr, r.Response)
			if err == nil {
				if fr.Flags().Has(FlagEndStream) {
					c.finish(r, fr.Stream(), nil)
				}
			} else {
				c.finish(r, fr.Stream(), err)

				fmt.Fprintf(os.Stderr, "%s. payload=%v\n", err, fr.payload)

				if errors.Is(err, Error{code: FlowControlError}) {
					break
				}
			}
		}

		ReleaseFrameHeader(fr)
	}
}

func (c *Conn) writeRequest(req *Request) (uint32, error) {
	if !c.CanOpenStream() {
		return 0, ErrNotAvailableStreams
	}

	hasBody := len(req.Body) != 0

	enc := c.enc

	id := c.nextID
	c.nextID += 2

	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)

	fr.SetStream(id)

	h := AcquireFrame(FrameHeaders).(*Headers)
	fr.SetBody(h)

	hf := AcquireHeaderField()

	hf.SetBytes(StringAuthority, []byte(req.Authority))
	h.AppendHeaderField(enc, hf, true)

	hf.SetBytes(StringMethod, []byte(req.Method))
	h.AppendHeaderField(enc, hf, true)

	hf.SetBytes(StringPath, []byte(req.Path))
	h.AppendHeaderField(enc, hf, true)

	hf.SetBytes(StringScheme, []byte(req.Scheme))
	h.AppendHeaderField(enc, hf, true)

	for k, vv := range req.Header {
		lk := ToLower([]byte(k))

		for _, v := range vv {
			hf.SetBytes(lk, []byte(v))
			h.AppendHeaderField(enc, hf, false)
		}
	}

	h.SetPadding(false)
	h.SetEndStream(!hasBody)
	h.SetEndHeaders(true)

	_, err := fr.WriteTo(c.bw)
	if err == nil && hasBody {
		// release headers bc it's going to get replaced by the data frame
		ReleaseFrame(h)

		err = writeData(c.bw, fr, req.Body)
	}

	if err == nil {
		err = c.bw.Flush()
		if err == nil {
			atomic.AddInt32(&c.openStreams, 1)
		}
	}

	if err != nil {
		c.lastErr = err
	}

	ReleaseHeaderField(hf)

	return id, err
}

func writeData(bw *bufio.Writer, fh *FrameHeader, body []byte) (err error) {
	step := 1 << 14

	data := AcquireFrame(FrameData).(*Data)
	fh.SetBody(data)

	for i := 0; err == nil && i < len(body); i += step {
		if i+step >= len(body) {
			step = len(body) - i
		}

		data.SetEndStream(i+step == len(body))
		data.SetPadding(false)
		data.SetData(body[i : step+i])

		_, err = fh.WriteTo(bw)
	}

	return err
}

func (c *Conn) readNext() (fr *FrameHeader, err error) {
	for err == nil {
		fr, err = ReadFrameFrom(c.br)
		if err != nil {
			if errors.Is(err, ErrUnknownFrameType) {
				// payload already discarded; ignore the frame
				err = nil
				continue
			}
			break
		}

		if fr.Stream() != 0 {
			break
		}

		switch fr.Type() {
		case FrameSettings:
			st := fr.Body().(*Settings)
			if !st.IsAck() { // if has ack, just ignore
				c.handleSettings(st)
			}
		case FrameWindowUpdate:
			win := int32(fr.Body().(*WindowUpdate).Increment())

			atomic.AddInt32(&c.serverWindow, win)
		case FramePing:
			ping := fr.Body().(*Ping)
			if !ping.IsAck() {
				c.handlePing(ping)
			} else {
				c.unacks--
				if c.onRTT != nil {
					c.onRTT(time.Since(ping.SentAt()))
				}
			}
		case FrameGoAway:
			err = fr.Body().(*GoAway)
			_ = c.Close()
		}

		ReleaseFrameHeader(fr)
	}

	return
}

var ErrTimeout = errors.New("server is not replying to pings")

func (c *Conn) writePing() error {
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)

	ping := AcquireFrame(FramePing).(*Ping)
	ping.SetCurrentTime()

	fr.SetBody(ping)

	_, err := fr.WriteTo(c.bw)
	if err == nil {
		err = c.bw.Flush()
		if err == nil {
			c.unacks++
		}
	}

	return err
}

func (c *Conn) handleSettings(st *Settings) {
	st.CopyTo(&c.serverS)

	c.serverStreamWindow += int32(c.serverS.MaxWindowSize())
	c.enc.SetMaxTableSize(int(st.HeaderTableSize()))

	// reply back
	fr := AcquireFrameHeader()

	stRes := AcquireFrame(FrameSettings).(*Settings)
	stRes.SetAck(true)

	fr.SetBody(stRes)

	c.out <- fr
}

func (c *Conn) handlePing(ping *Ping) {
	// reply back
	fr := AcquireFrameHeader()

	ping.SetAck(true)

	fr.SetBody(ping)

	c.out <- fr
}

func (c *Conn) readStream(fr *FrameHeader, res *Response) (err error) {
	switch fr.Type() {
	case FrameHeaders, FrameContinuation:
		h := fr.Body().(FrameWithHeaders)
		err = c.readHeader(h.Headers(), res)
	case FramePushPromise:
		err = c.handlePushPromise(fr.Body().(*PushPromise))
	case FrameData:
		c.currentWindow -= int32(fr.Len())
		currentWin := c.currentWindow

		c.serverWindow -= int32(fr.Len())

		data := fr.Body().(*Data)
		if data.Len() != 0 {
			res.AppendBody(data.Data())

			// let's send the window update
			c.updateWindow(fr.Stream(), fr.Len())
		}

		if currentWin < c.maxWindow/2 {
			nValue := c.maxWindow - currentWin

			c.currentWindow = c.maxWindow

			c.updateWindow(0, int(nValue))
		}
	}

	return
}

// writeReset refuses a stream the client never asked to be opened,
// i.e. an unwanted pushed stream.
func (c *Conn) writeReset(stream uint32, code ErrorCode) {
	fr := AcquireFrameHeader()
	fr.SetStream(stream)

	rst := AcquireFrame(FrameResetStream).(*RstStream)
	rst.SetCode(code)

	fr.SetBody(rst)

	c.out <- fr

	c.resetStrms.Add(stream)
}

// handlePushPromise implements spec §1's "reception of PUSH_PROMISE is
// accepted but may be rejected": with ENABLE_PUSH disabled (the
// default) every pushed stream is refused outright; with it enabled,
// the promised stream is reserved and tracked like any other request
// so its eventual HEADERS/DATA land on r.Response and reach OnPush.
func (c *Conn) handlePushPromise(pp *PushPromise) error {
	promisedID := pp.PromisedStream()

	if !c.current.Push() || c.onPush == nil {
		c.writeReset(promisedID, RefusedStreamError)
		return nil
	}

	req, err := c.readPushRequest(pp.Header())
	if err != nil {
		c.writeReset(promisedID, RefusedStreamError)
		return nil
	}

	r := AcquireCtx(req, &Response{})
	r.pushed = true
	r.SetStream(promisedID)

	atomic.AddInt32(&c.openStreams, 1)
	c.reqQueued.Store(promisedID, r)

	return nil
}

// readPushRequest decodes a PUSH_PROMISE header block fragment into
// the generic Request describing the promised resource.
func (c *Conn) readPushRequest(b []byte) (*Request, error) {
	req := &Request{Header: make(http.Header)}

	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)

	dec := c.dec

	var err error
	for len(b) > 0 {
		b, err = dec.Next(hf, b)
		if err != nil {
			return nil, err
		}

		if hf.IsPseudo() {
			switch hf.KeyBytes()[1] {
			case 'm':
				req.Method = hf.Value()
			case 'p':
				req.Path = hf.Value()
			case 's':
				req.Scheme = hf.Value()
			case 'a':
				req.Authority = hf.Value()
			}

			continue
		}

		req.Header.Add(string(hf.KeyBytes()), hf.Value())
	}

	return req, nil
}

func (c *Conn) updateWindow(streamID uint32, size int) {
	fr := AcquireFrameHeader()

	fr.SetStream(streamID)

	wu := AcquireFrame(FrameWindowUpdate).(*WindowUpdate)
	wu.SetIncrement(size)

	fr.SetBody(wu)

	c.out <- fr
}

func (c *Conn) readHeader(b []byte, res *Response) error {
	var err error
	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)

	dec := c.dec

	if res.Header == nil {
		res.Header = make(http.Header)
	}

	for len(b) > 0 {
		b, err = dec.Next(hf, b)
		if err != nil {
			return err
		}

		if hf.IsPseudo() {
			if hf.KeyBytes()[1] == 's' { // status
				n, err := strconv.ParseInt(hf.Value(), 10, 64)
				if err != nil {
					return err
				}

				res.StatusCode = int(n)
				continue
			}
		}

		res.Header.Add(string(hf.KeyBytes()), hf.Value())
	}

	return nil
}
