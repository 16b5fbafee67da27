package http2

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func TestConnWriteRequest(t *testing.T) {
	s := &Server{
		s: &fasthttp.Server{
			Handler: func(ctx *fasthttp.RequestCtx) {
				ctx.SetStatusCode(fasthttp.StatusOK)
				io.WriteString(ctx, "pong")
			},
		},
		cnf: ServerConfig{Debug: false},
	}

	ln := fasthttputil.NewInmemoryListener()
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		_ = s.ServeConn(c)
	}()

	c, err := ln.Dial()
	if err != nil {
		t.Fatal(err)
	}

	nc := NewConn(NewTransport(c), ConnOpts{})
	if err := nc.Handshake(); err != nil {
		t.Fatal(err)
	}
	defer nc.Close()

	req := &Request{
		Method:    "GET",
		Scheme:    "https",
		Authority: "localhost",
		Path:      "/ping",
		Header:    make(http.Header),
	}

	res := &Response{}

	ctx := AcquireCtx(req, res)
	nc.Write(ctx)

	select {
	case err := <-ctx.Err:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second * 5):
		t.Fatal("timed out waiting for response")
	}

	if string(res.Body()) != "pong" {
		t.Fatalf("unexpected body: %q", res.Body())
	}
}

func TestClientPoolSkipsClosedConn(t *testing.T) {
	var p clientConnPool

	if got := p.get(); got != nil {
		t.Fatalf("expected no connection in an empty pool, got %v", got)
	}

	nc := &Conn{}
	p.add(nc)

	atomicCloseFlag(nc)

	if got := p.get(); got != nil {
		t.Fatalf("expected a closed connection to be skipped, got %v", got)
	}

	if len(p.list) != 0 {
		t.Fatalf("expected the closed connection to be pruned, got %d entries", len(p.list))
	}
}

func atomicCloseFlag(nc *Conn) {
	nc.closed = 1
}
