package http2

import (
	"sync"
	"time"
)

// Client multiplexes requests over a small pool of HTTP/2 connections
// dialed to a single host, reusing a Conn until it can no longer
// accept new streams. It is framework-agnostic: bridging a concrete
// HTTP client (fasthttp, net/http, ...) to Client.Do is httpadaptor's
// job, not this package's.
type Client struct {
	d    *Dialer
	opts ConnOpts

	onRTT func(time.Duration)

	conns clientConnPool
}

// NewClient returns a Client that dials new connections through d.
func NewClient(d *Dialer) *Client {
	return &Client{d: d}
}

// SetOnRTT installs the callback fired after every RTT measurement on
// any connection this Client dials from now on.
func (cl *Client) SetOnRTT(fn func(time.Duration)) {
	cl.onRTT = fn
}

// Init resets the connection pool to empty.
func (cl *Client) Init() {
	cl.conns.Init()
}

type clientConnPool struct {
	mu   sync.Mutex
	list []*Conn
}

// Init resets the pool to empty. Calling it on a zero-value Client is
// unnecessary; Client.Init calls it for symmetry with the rest of the
// setup sequence.
func (p *clientConnPool) Init() {
	p.mu.Lock()
	p.list = p.list[:0]
	p.mu.Unlock()
}

func (p *clientConnPool) get() *Conn {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < len(p.list); i++ {
		nc := p.list[i]
		if nc.Closed() {
			p.list = append(p.list[:i], p.list[i+1:]...)
			i--
			continue
		}

		if nc.CanOpenStream() {
			return nc
		}
	}

	return nil
}

func (p *clientConnPool) add(nc *Conn) {
	p.mu.Lock()
	p.list = append(p.list, nc)
	p.mu.Unlock()
}

func (cl *Client) getConn() (*Conn, error) {
	if nc := cl.conns.get(); nc != nil {
		return nc, nil
	}

	opts := cl.opts
	opts.OnRTT = cl.onRTT

	nc, err := cl.d.Dial(opts)
	if err != nil {
		return nil, err
	}

	cl.conns.add(nc)

	return nc, nil
}

// Do sends req over HTTP/2, blocking until res has been filled in or
// an error occurs.
func (cl *Client) Do(req *Request, res *Response) error {
	nc, err := cl.getConn()
	if err != nil {
		return err
	}

	ctx := AcquireCtx(req, res)

	nc.Write(ctx)

	return <-ctx.Err
}
