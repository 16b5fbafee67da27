package http2

import (
	"errors"
	"sync"

	"github.com/domsolutions/http2/hpack"
)

func isIncompleteHeaderBlock(err error) bool {
	return errors.Is(err, hpack.ErrMissingBytes)
}

// HPACK adapts the hpack package's encoder/decoder pair to the
// Headers/HeaderField types used by Conn and serverConn. Every
// connection owns two: one to encode its own header blocks (tracking
// the dynamic table it has told the peer about) and one to decode the
// peer's (mirroring the dynamic table the peer is building).
type HPACK struct {
	enc *hpack.Encoder
	dec *hpack.Decoder
}

var hpackPool = sync.Pool{
	New: func() interface{} {
		return NewHPACK()
	},
}

// NewHPACK returns an HPACK with a dynamic table sized to
// defaultHeaderTableSize, ready to use without further setup.
func NewHPACK() *HPACK {
	return &HPACK{
		enc: hpack.NewEncoder(defaultHeaderTableSize),
		dec: hpack.NewDecoder(defaultHeaderTableSize),
	}
}

// AcquireHPACK gets an HPACK from the pool.
func AcquireHPACK() *HPACK {
	return hpackPool.Get().(*HPACK)
}

// ReleaseHPACK puts hp back in the pool. The dynamic table is kept at
// its current size rather than reset, matching the pool's intent of
// reusing warmed-up codecs across short-lived connections only after
// they've actually closed.
func ReleaseHPACK(hp *HPACK) {
	hpackPool.Put(hp)
}

// SetMaxTableSize applies a peer-negotiated SETTINGS_HEADER_TABLE_SIZE
// to both directions: it caps what hp may place in its own dynamic
// table when encoding, and what it's willing to accept from the peer's
// "dynamic table size update" instructions when decoding.
func (hp *HPACK) SetMaxTableSize(n int) {
	hp.enc.SetMaxTableSize(n)
	hp.dec.SetMaxTableSize(n)
}

// AppendHeader appends the HPACK wire representation of hf to dst,
// storing it in the encoder's dynamic table when store is true.
func (hp *HPACK) AppendHeader(dst []byte, hf *HeaderField, store bool) []byte {
	return hp.enc.AppendHeaderField(dst, hf.Key(), hf.Value(), hf.IsSensible(), store)
}

// AppendHeaderField is an alias of AppendHeader kept for call sites
// that spell it out explicitly.
func (hp *HPACK) AppendHeaderField(dst []byte, hf *HeaderField, store bool) []byte {
	return hp.AppendHeader(dst, hf, store)
}

// Next decodes one header representation from b into hf, returning the
// remaining bytes.
func (hp *HPACK) Next(hf *HeaderField, b []byte) ([]byte, error) {
	f, rest, err := hp.dec.Next(b)
	if err != nil {
		return rest, err
	}

	hf.SetKey(f.Name)
	hf.SetValue(f.Value)
	if f.Sensitive {
		hf.sensible = true
	}

	return rest, nil
}

// nextField behaves like Next but additionally tolerates a header
// block that ends mid-representation: when b runs out of bytes partway
// through decoding the (blockNum, fieldsProcessed)'th field of a
// HEADERS+CONTINUATION sequence, it reports ErrUnexpectedSize instead
// of the underlying decode error so the caller can buffer the leftover
// bytes and retry once the next CONTINUATION frame arrives. blockNum
// is not used. When fieldsProcessed is 0, nextField first calls the
// decoder's StartBlock, which resets its per-block validation state.
func (hp *HPACK) nextField(hf *HeaderField, blockNum, fieldsProcessed int, b []byte) ([]byte, error) {
	if fieldsProcessed == 0 {
		hp.dec.StartBlock()
	}

	rest, err := hp.Next(hf, b)
	if err != nil && isIncompleteHeaderBlock(err) {
		return b, ErrUnexpectedSize
	}

	return rest, err
}
