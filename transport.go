package http2

import "net"

// Transport is the abstract byte-stream the engine runs over once TLS
// negotiation, TCP socket management and DNS resolution have already
// happened — those are external collaborators, never the engine's job.
// A Conn only ever reads, writes, flushes and closes a Transport; it
// never dials, resolves or negotiates one itself.
type Transport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Flush() error
	Close() error
}

// NewTransport adapts a net.Conn into a Transport. This is the common
// case: most callers reach the engine through a net.Listener or
// net.Dial/tls.Dial, already fully negotiated.
func NewTransport(c net.Conn) Transport {
	return netTransport{c}
}

type netTransport struct {
	net.Conn
}

// Flush is a no-op: net.Conn has no internal buffering of its own,
// the bufio.Writer sitting on top of the Transport owns that.
func (netTransport) Flush() error { return nil }
