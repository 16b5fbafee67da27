package http2

import (
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

// StreamState ...
type StreamState int8

const (
	StreamStateIdle StreamState = iota
	StreamStateReserved
	StreamStateOpen
	StreamStateHalfClosed
	StreamStateClosed
)

func (ss StreamState) String() string {
	switch ss {
	case StreamStateIdle:
		return "Idle"
	case StreamStateReserved:
		return "Reserved"
	case StreamStateOpen:
		return "Open"
	case StreamStateHalfClosed:
		return "HalfClosed"
	case StreamStateClosed:
		return "Closed"
	}

	return "IDK"
}

// Stream tracks the server-side state of one HTTP/2 stream, from the
// frame that opened it until the response has been fully written.
type Stream struct {
	id    uint32
	state StreamState

	// origType records whether the stream was opened by a HEADERS frame
	// or reserved by a PUSH_PROMISE; only HEADERS-opened streams count
	// towards the concurrent stream limit.
	origType FrameType

	// window is the client's flow-control window for this stream, added
	// to atomically as WINDOW_UPDATE frames arrive.
	window int64

	ctx       *fasthttp.RequestCtx
	startedAt time.Time

	headersFinished     bool
	previousHeaderBytes []byte
	headerBlockNum      int
	scheme              []byte
}

var streamPool = sync.Pool{
	New: func() interface{} {
		return &Stream{}
	},
}

// NewStream acquires a Stream from the pool, ready to track a new
// server-side stream with the given initial window.
func NewStream(id uint32, win int32) *Stream {
	strm := streamPool.Get().(*Stream)
	strm.id = id
	strm.state = StreamStateIdle
	strm.origType = 0
	strm.window = int64(win)
	strm.ctx = nil
	strm.startedAt = time.Time{}
	strm.headersFinished = false
	strm.previousHeaderBytes = strm.previousHeaderBytes[:0]
	strm.headerBlockNum = 0
	strm.scheme = strm.scheme[:0]

	return strm
}

func (s *Stream) ID() uint32 {
	return s.id
}

func (s *Stream) SetID(id uint32) {
	s.id = id
}

func (s *Stream) State() StreamState {
	return s.state
}

func (s *Stream) SetState(state StreamState) {
	s.state = state
}

func (s *Stream) Window() int64 {
	return s.window
}

func (s *Stream) SetWindow(win int64) {
	s.window = win
}

func (s *Stream) IncrWindow(win int64) {
	s.window += win
}

// SetData attaches the fasthttp context that will carry the stream's
// request and response.
func (s *Stream) SetData(ctx *fasthttp.RequestCtx) {
	s.ctx = ctx
}

// Data returns the fasthttp context attached with SetData.
func (s *Stream) Data() *fasthttp.RequestCtx {
	return s.ctx
}
