package hpack

import "errors"

var (
	errHuffmanInvalidCode    = errors.New("hpack: invalid huffman code")
	errHuffmanInvalidPadding = errors.New("hpack: invalid huffman padding")
	errIntegerOverflow       = errors.New("hpack: integer overflow")

	// ErrMissingBytes is returned (by value, not wrapped) whenever a
	// header block ends before a representation finishes decoding.
	// Exported so callers that reassemble header blocks split across
	// CONTINUATION frames (see http2.HPACK.nextField) can distinguish
	// "need more bytes" from an actual protocol violation.
	ErrMissingBytes = errors.New("hpack: not enough bytes")
	errMissingBytes = ErrMissingBytes
)
