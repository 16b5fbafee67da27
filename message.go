package http2

import (
	"net/http"

	"github.com/valyala/bytebufferpool"
)

// Request is the engine's transport- and framework-agnostic view of an
// outgoing HTTP/2 request. Nothing in the engine imports an HTTP
// client/server library to build or consume one — bridging to a
// concrete framework (fasthttp, net/http, ...) is httpadaptor's job.
type Request struct {
	Method    string
	Scheme    string
	Authority string
	Path      string
	Header    http.Header
	Body      []byte
}

// Response is the engine's transport- and framework-agnostic view of
// an incoming HTTP/2 response. The body is accumulated in an embedded
// bytebufferpool.ByteBuffer (not taken from a pool), the same way the fasthttp-native
// Response this type replaces did, rather than growing a bare slice
// one DATA frame at a time.
type Response struct {
	StatusCode int
	Header     http.Header

	body bytebufferpool.ByteBuffer
}

// Body returns the bytes received so far.
func (r *Response) Body() []byte {
	return r.body.Bytes()
}

// SetBody discards whatever was previously buffered and copies p in.
func (r *Response) SetBody(p []byte) {
	r.body.Reset()
	r.body.Write(p)
}

// AppendBody appends p to the response body, growing the underlying
// buffer as needed.
func (r *Response) AppendBody(p []byte) {
	r.body.Write(p)
}

// Reset clears the response so it can be reused for another exchange.
func (r *Response) Reset() {
	r.StatusCode = 0
	r.Header = nil
	r.body.Reset()
}
