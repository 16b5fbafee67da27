package http2

import (
	"bufio"
	"bytes"
	"io"
	"net"
)

// http2Preface is the connection preface every HTTP/2 connection must
// start with, sent by the client before any frame.
//
// https://tools.ietf.org/html/rfc7540#section-3.5
var http2Preface = []byte("PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n")

// WritePreface writes the HTTP/2 connection preface to bw. Only
// clients send the preface; servers read it with ReadPreface.
func WritePreface(bw *bufio.Writer) error {
	_, err := bw.Write(http2Preface)
	if err == nil {
		err = bw.Flush()
	}

	return err
}

// ReadPreface reads and validates the HTTP/2 connection preface off c,
// reporting whether it matched.
func ReadPreface(c net.Conn) bool {
	b := make([]byte, len(http2Preface))

	_, err := io.ReadFull(c, b)
	if err != nil {
		return false
	}

	return bytes.Equal(b, http2Preface)
}
