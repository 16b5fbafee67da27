package http2

import "sync"

// FrameType identifies one of the RFC 7540 §6 frame kinds.
type FrameType uint8

const (
	minFrameType FrameType = 0x0
	maxFrameType FrameType = 0x9
)

func (t FrameType) String() string {
	switch t {
	case FrameData:
		return "DATA"
	case FrameHeaders:
		return "HEADERS"
	case FramePriority:
		return "PRIORITY"
	case FrameResetStream:
		return "RST_STREAM"
	case FrameSettings:
		return "SETTINGS"
	case FramePushPromise:
		return "PUSH_PROMISE"
	case FramePing:
		return "PING"
	case FrameGoAway:
		return "GOAWAY"
	case FrameWindowUpdate:
		return "WINDOW_UPDATE"
	case FrameContinuation:
		return "CONTINUATION"
	}
	return "UNKNOWN"
}

// FrameFlags is the 8-bit flags field of a frame header. The same bit
// means different things for different frame types (see the FlagXxx
// constants declared alongside frameHeader.go).
type FrameFlags uint8

// Has reports whether all bits of flag are set.
func (f FrameFlags) Has(flag FrameFlags) bool {
	return f&flag == flag
}

// Add returns f with flag set.
func (f FrameFlags) Add(flag FrameFlags) FrameFlags {
	return f | flag
}

// Del returns f with flag cleared.
func (f FrameFlags) Del(flag FrameFlags) FrameFlags {
	return f &^ flag
}

// Frame is the payload of a single HTTP/2 frame: one of Data, Headers,
// Priority, RstStream, Settings, PushPromise, Ping, GoAway,
// WindowUpdate or Continuation. Implementations are pooled; acquire
// with AcquireFrame and release (indirectly) via ReleaseFrameHeader.
type Frame interface {
	// Type returns the RFC 7540 frame type byte for this frame.
	Type() FrameType
	// Reset clears the frame back to its zero value for pool reuse.
	Reset()
	// Deserialize populates the frame from the header's raw payload.
	Deserialize(*FrameHeader) error
	// Serialize writes the frame's fields into the header's payload.
	Serialize(*FrameHeader)
}

var framePools = [...]*sync.Pool{
	FrameData:         {New: func() interface{} { return &Data{} }},
	FrameHeaders:      {New: func() interface{} { return &Headers{} }},
	FramePriority:     {New: func() interface{} { return &Priority{} }},
	FrameResetStream:  {New: func() interface{} { return &RstStream{} }},
	FrameSettings:     {New: func() interface{} { return &Settings{} }},
	FramePushPromise:  {New: func() interface{} { return &PushPromise{} }},
	FramePing:         {New: func() interface{} { return &Ping{} }},
	FrameGoAway:       {New: func() interface{} { return &GoAway{} }},
	FrameWindowUpdate: {New: func() interface{} { return &WindowUpdate{} }},
	FrameContinuation: {New: func() interface{} { return &Continuation{} }},
}

// AcquireFrame returns a pooled, reset Frame implementation for kind.
// Callers must pass a kind in [minFrameType, maxFrameType]; frame
// types outside that range are rejected earlier, while parsing the
// frame header, with ErrUnknownFrameType.
func AcquireFrame(kind FrameType) Frame {
	fr := framePools[kind].Get().(Frame)
	fr.Reset()
	return fr
}

// ReleaseFrame returns fr to its type's pool. A nil fr is a no-op, so
// callers that may not have allocated a body yet (e.g. on a read
// error before the type byte was parsed) can call it unconditionally.
func ReleaseFrame(fr Frame) {
	if fr == nil {
		return
	}
	framePools[fr.Type()].Put(fr)
}
