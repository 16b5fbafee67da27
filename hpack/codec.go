package hpack

import (
	"errors"

	"golang.org/x/net/http/httpguts"
)

// Encoder holds one direction's dynamic table and emits HPACK
// representations for outgoing header fields.
type Encoder struct {
	table   *Table
	huffman bool // whether to prefer Huffman-encoded string literals
}

// NewEncoder creates an encoder with a dynamic table of the given
// initial/maximum size.
func NewEncoder(maxDynamicSize uint32) *Encoder {
	return &Encoder{
		table:   NewTable(maxDynamicSize),
		huffman: true,
	}
}

// SetMaxTableSize applies a peer-negotiated SETTINGS_HEADER_TABLE_SIZE.
func (e *Encoder) SetMaxTableSize(n int) { e.table.SetMaxSize(uint32(n)) }

// Reset clears per-connection encoder state (not the dynamic table,
// which persists across header blocks on the same connection).
func (e *Encoder) Reset() {}

// appendKindInt appends the representation-kind high bits (already
// shifted into position, e.g. 0x80 for indexed) combined with n encoded
// into the low prefixBits bits of the first byte, per RFC 7541 §5.1.
func appendKindInt(dst []byte, kind byte, prefixBits uint8, n uint64) []byte {
	max := uint64(1<<prefixBits) - 1

	if n < max {
		return append(dst, kind|byte(n))
	}

	dst = append(dst, kind|byte(max))
	n -= max
	for n >= 128 {
		dst = append(dst, byte(n&0x7f)|0x80)
		n >>= 7
	}
	return append(dst, byte(n))
}

func (e *Encoder) appendString(dst []byte, s string) []byte {
	if e.huffman {
		encLen := HuffmanEncodedLen(s)
		if encLen < len(s) {
			dst = appendKindInt(dst, 0x80, 7, uint64(encLen))
			return HuffmanEncode(dst, s)
		}
	}
	dst = appendKindInt(dst, 0x00, 7, uint64(len(s)))
	return append(dst, s...)
}

// AppendHeaderField appends the HPACK wire representation of name/value
// to dst. When store is true and the field is not sensitive, it is
// additionally inserted into the dynamic table as incrementally
// indexed; sensitive fields are always encoded as never-indexed
// literals regardless of store.
func (e *Encoder) AppendHeaderField(dst []byte, name, value string, sensitive, store bool) []byte {
	if sensitive {
		dst = appendKindInt(dst, 0x10, 4, 0) // literal never indexed, index 0
		dst = e.appendString(dst, name)
		return e.appendString(dst, value)
	}

	if idx, valueMatch, ok := e.table.Find(name, value); ok && valueMatch {
		return appendKindInt(dst, 0x80, 7, idx) // indexed header field, §6.1
	}

	if !store {
		if idx, _, ok := e.table.Find(name, value); ok {
			dst = appendKindInt(dst, 0x00, 4, idx)
		} else {
			dst = appendKindInt(dst, 0x00, 4, 0)
			dst = e.appendString(dst, name)
		}
		return e.appendString(dst, value)
	}

	if idx, _, ok := e.table.Find(name, value); ok {
		dst = appendKindInt(dst, 0x40, 6, idx)
	} else {
		dst = appendKindInt(dst, 0x40, 6, 0)
		dst = e.appendString(dst, name)
	}
	dst = e.appendString(dst, value)

	e.table.Add(Field{Name: name, Value: value})

	return dst
}

// Decoder holds one direction's dynamic table and reassembles the
// header field list from an incoming HPACK header block, validating
// pseudo-header placement and rejecting connection-specific headers
// as RFC 7540 §8.1.2.2 requires.
type Decoder struct {
	table *Table

	sawRegularHeader bool // a non-pseudo header has been seen on this block
}

// NewDecoder creates a decoder with a dynamic table of the given
// initial/maximum size.
func NewDecoder(maxDynamicSize uint32) *Decoder {
	return &Decoder{table: NewTable(maxDynamicSize)}
}

// SetMaxTableSize applies our own advertised SETTINGS_HEADER_TABLE_SIZE
// ceiling; the peer's "dynamic table size update" instructions inside
// the header block (handled in Next) may lower it further but never
// raise it past this ceiling.
func (d *Decoder) SetMaxTableSize(n int) { d.table.Resize(uint32(n)) }

// StartBlock resets per-header-block validation state; call before
// decoding the first field of a new HEADERS (+ CONTINUATION) sequence.
func (d *Decoder) StartBlock() { d.sawRegularHeader = false }

func (d *Decoder) readString(b []byte) (string, []byte, error) {
	if len(b) == 0 {
		return "", b, errMissingBytes
	}
	huff := b[0]&0x80 != 0
	b, n, err := readInt(7, b)
	if err != nil {
		return "", b, err
	}
	if uint64(len(b)) < n {
		return "", b, errMissingBytes
	}
	raw := b[:n]
	b = b[n:]

	if !huff {
		return string(raw), b, nil
	}

	decoded, err := HuffmanDecode(nil, raw)
	if err != nil {
		return "", b, err
	}
	return string(decoded), b, nil
}

var (
	errPseudoAfterRegular = errors.New("hpack: pseudo-header field after regular header field")
	errConnectionSpecific = errors.New("hpack: connection-specific header field")
	errInvalidHeaderName  = errors.New("hpack: invalid header field name")
)

// Next decodes one header representation from b, returning the
// decoded field and the remaining bytes.
func (d *Decoder) Next(b []byte) (Field, []byte, error) {
	if len(b) == 0 {
		return Field{}, b, errMissingBytes
	}

	c := b[0]
	var f Field

	switch {
	case c&0x80 != 0: // indexed header field, §6.1
		rest, idx, err := readInt(7, b)
		if err != nil {
			return f, b, err
		}
		entry, err := d.table.Lookup(idx)
		if err != nil {
			return f, b, err
		}
		f.Name, f.Value = entry.Name, entry.Value
		b = rest

	case c&0xc0 == 0x40: // literal with incremental indexing, §6.2.1
		rest, idx, err := readInt(6, b)
		if err != nil {
			return f, b, err
		}
		b = rest
		if idx == 0 {
			f.Name, b, err = d.readString(b)
		} else {
			entry, lerr := d.table.Lookup(idx)
			err = lerr
			f.Name = entry.Name
		}
		if err != nil {
			return f, b, err
		}
		f.Value, b, err = d.readString(b)
		if err != nil {
			return f, b, err
		}
		d.table.Add(Field{Name: f.Name, Value: f.Value})

	case c&0xf0 == 0x00: // literal without indexing, §6.2.2
		rest, idx, err := readInt(4, b)
		if err != nil {
			return f, b, err
		}
		b = rest
		if idx == 0 {
			f.Name, b, err = d.readString(b)
		} else {
			entry, lerr := d.table.Lookup(idx)
			err = lerr
			f.Name = entry.Name
		}
		if err != nil {
			return f, b, err
		}
		f.Value, b, err = d.readString(b)
		if err != nil {
			return f, b, err
		}

	case c&0xf0 == 0x10: // literal never indexed, §6.2.3
		rest, idx, err := readInt(4, b)
		if err != nil {
			return f, b, err
		}
		b = rest
		if idx == 0 {
			f.Name, b, err = d.readString(b)
		} else {
			entry, lerr := d.table.Lookup(idx)
			err = lerr
			f.Name = entry.Name
		}
		if err != nil {
			return f, b, err
		}
		f.Value, b, err = d.readString(b)
		if err != nil {
			return f, b, err
		}
		f.Sensitive = true

	case c&0xe0 == 0x20: // dynamic table size update, §6.3
		rest, n, err := readInt(5, b)
		if err != nil {
			return f, b, err
		}
		d.table.SetMaxSize(uint32(n))
		return d.Next(rest)

	default:
		return f, b, errInvalidHeaderName
	}

	if err := d.validate(f); err != nil {
		return f, b, err
	}

	return f, b, nil
}

func (d *Decoder) validate(f Field) error {
	if len(f.Name) == 0 {
		return errInvalidHeaderName
	}
	if f.Name[0] == ':' {
		if d.sawRegularHeader {
			return errPseudoAfterRegular
		}
		return nil
	}
	d.sawRegularHeader = true

	if !httpguts.ValidHeaderFieldName(f.Name) {
		return errInvalidHeaderName
	}
	switch f.Name {
	case "connection", "keep-alive", "proxy-connection", "transfer-encoding", "upgrade":
		return errConnectionSpecific
	case "te":
		if f.Value != "trailers" {
			return errConnectionSpecific
		}
	}
	return nil
}
