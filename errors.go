package http2

import (
	"errors"
	"fmt"
)

// ErrorCode is an HTTP/2 error code as defined by RFC 7540 §11.4.
type ErrorCode uint32

const (
	NoError            ErrorCode = 0x0
	ProtocolError      ErrorCode = 0x1
	InternalError      ErrorCode = 0x2
	FlowControlError   ErrorCode = 0x3
	SettingsTimeout    ErrorCode = 0x4
	StreamClosedError  ErrorCode = 0x5
	FrameSizeError     ErrorCode = 0x6
	RefusedStreamError ErrorCode = 0x7
	CancelError        ErrorCode = 0x8
	CompressionError   ErrorCode = 0x9
	ConnectionError    ErrorCode = 0xa
	EnhanceYourCalm    ErrorCode = 0xb
	InadequateSecurity ErrorCode = 0xc
	HTTP11Required     ErrorCode = 0xd

	// StreamCanceled is CancelError under the name used where a stream
	// is reset because of a server-side timeout or supersession, rather
	// than a client-initiated cancellation.
	StreamCanceled = CancelError
)

var errorCodeNames = [...]string{
	NoError:            "NO_ERROR",
	ProtocolError:      "PROTOCOL_ERROR",
	InternalError:      "INTERNAL_ERROR",
	FlowControlError:   "FLOW_CONTROL_ERROR",
	SettingsTimeout:    "SETTINGS_TIMEOUT",
	StreamClosedError:  "STREAM_CLOSED",
	FrameSizeError:     "FRAME_SIZE_ERROR",
	RefusedStreamError: "REFUSED_STREAM",
	CancelError:        "CANCEL",
	CompressionError:   "COMPRESSION_ERROR",
	ConnectionError:    "CONNECT_ERROR",
	EnhanceYourCalm:    "ENHANCE_YOUR_CALM",
	InadequateSecurity: "INADEQUATE_SECURITY",
	HTTP11Required:     "HTTP_1_1_REQUIRED",
}

// String implements fmt.Stringer.
func (c ErrorCode) String() string {
	if int(c) < len(errorCodeNames) && errorCodeNames[c] != "" {
		return errorCodeNames[c]
	}
	return fmt.Sprintf("ERROR_CODE(%#x)", uint32(c))
}

// Error reports a protocol violation discovered while handling a frame.
// frameType records how the violation should be reported back to the
// peer: FrameGoAway tears down the connection, FrameResetStream only
// the offending stream, and the zero value (from NewError) leaves that
// choice to the caller.
type Error struct {
	frameType FrameType
	code      ErrorCode
	reason    string
}

// NewError builds an Error carrying no frame-reporting preference.
// Used by frame-level code (RstStream.Error) that already knows which
// frame carried the failure.
func NewError(code ErrorCode, reason string) error {
	return Error{code: code, reason: reason}
}

// NewGoAwayError builds an Error that serverConn.writeError reports by
// sending GOAWAY, tearing down the whole connection.
func NewGoAwayError(code ErrorCode, reason string) error {
	return Error{frameType: FrameGoAway, code: code, reason: reason}
}

// NewResetStreamError builds an Error that serverConn.writeError
// reports by sending RST_STREAM, leaving the connection open.
func NewResetStreamError(code ErrorCode, reason string) error {
	return Error{frameType: FrameResetStream, code: code, reason: reason}
}

// Code returns the RFC 7540 error code carried by e.
func (e Error) Code() ErrorCode {
	return e.code
}

func (e Error) Error() string {
	if e.reason == "" {
		return e.code.String()
	}
	return fmt.Sprintf("%s: %s", e.code, e.reason)
}

func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	return ok && t.code == e.code
}

// WriteError wraps any error returned while writing a frame to the
// transport, distinguishing it from protocol-level errors produced
// while interpreting received frames.
type WriteError struct {
	Err error
}

func (we WriteError) Error() string { return we.Err.Error() }
func (we WriteError) Unwrap() error { return we.Err }

func (we WriteError) Is(target error) bool {
	_, ok := target.(WriteError)
	return ok
}

func (we WriteError) As(target interface{}) bool {
	if x, ok := target.(*WriteError); ok {
		*x = we
		return true
	}
	return false
}

var (
	// ErrUnknownFrameType is returned by the frame codec on an
	// unrecognized frame type byte; per RFC 7540 §4.1 such frames must
	// be ignored, not treated as a connection error.
	ErrUnknownFrameType = errors.New("http2: unknown frame type")
	ErrMissingBytes     = errors.New("http2: not enough bytes to decode frame")
	ErrPayloadExceeds   = errors.New("http2: frame payload exceeds negotiated maximum size")
	ErrZeroPayload      = errors.New("http2: frame payload is empty")
	ErrBadPreface       = errors.New("http2: invalid connection preface")
	ErrFrameMismatch    = errors.New("http2: frame type mismatch for called function")

	// ErrUnexpectedSize is returned by HPACK.nextField when a header
	// block ends mid-representation; the caller buffers the leftover
	// bytes and retries once the next CONTINUATION frame arrives.
	ErrUnexpectedSize = errors.New("http2: incomplete header block")

	// ErrServerSupport indicates the remote peer didn't negotiate HTTP/2.
	ErrServerSupport = errors.New("http2: server doesn't support HTTP/2")

	// ErrNotAvailableStreams is returned for a request when the
	// connection already has as many open streams as the server's
	// MAX_CONCURRENT_STREAMS allows (see Conn.CanOpenStream); the
	// connection itself stays usable.
	ErrNotAvailableStreams = errors.New("http2: no concurrent streams available")
)
