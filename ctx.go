package http2

// Ctx carries one client request/response pair through the write
// loop, read loop and HPACK codec of a Conn. Err receives exactly one
// value: nil once the response has been delivered, or the error that
// ended the request. It is closed only after a completed stream, so
// callers read it once rather than range over it.
type Ctx struct {
	streamID uint32
	hp       *HPACK
	pushed   bool

	Request  *Request
	Response *Response
	Err      chan error
}

// AcquireCtx returns a Ctx ready to carry a single request/response
// exchange over a Conn.
func AcquireCtx(req *Request, res *Response) *Ctx {
	return &Ctx{
		Request:  req,
		Response: res,
		Err:      make(chan error, 1),
	}
}

func (ctx *Ctx) SetHPACK(hp *HPACK) {
	ctx.hp = hp
}

func (ctx *Ctx) SetStream(sid uint32) {
	ctx.streamID = sid
}

func (ctx *Ctx) Stream() uint32 {
	return ctx.streamID
}
