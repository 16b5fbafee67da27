package hpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendInt(t *testing.T) {
	var dst []byte

	dst = appendInt(dst, 5, 15)
	assert.Equal(t, []byte{15}, dst)

	dst = appendInt(dst, 5, 1337)
	assert.Equal(t, []byte{15, 31, 154, 10}, dst)

	dst = dst[:0]
	dst = appendInt(dst, 7, 122)
	assert.Equal(t, []byte{122}, dst)
}

func TestWriteInt(t *testing.T) {
	dst := make([]byte, 1, 3)

	dst = writeInt(dst[:1], 5, 15)
	assert.Equal(t, byte(15), dst[0])

	dst = make([]byte, 1, 3)
	dst = writeInt(dst, 5, 1337)
	assert.Equal(t, []byte{31, 154, 10}, dst)
}

func TestReadInt(t *testing.T) {
	b := []byte{15, 31, 154, 10, 122}

	rest, n, err := readInt(5, b)
	require.NoError(t, err)
	assert.EqualValues(t, 15, n)

	rest, n, err = readInt(5, rest)
	require.NoError(t, err)
	assert.EqualValues(t, 1337, n)

	_, n, err = readInt(7, rest)
	require.NoError(t, err)
	assert.EqualValues(t, 122, n)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	enc := NewEncoder(4096)
	dec := NewDecoder(4096)

	fields := []struct {
		name, value string
		sensitive   bool
	}{
		{":method", "GET", false},
		{":path", "/", false},
		{":authority", "example.com", false},
		{"x-custom-header", "some long value that will not huffman-compress well ????", false},
		{"authorization", "Bearer secret-token", true},
	}

	var block []byte
	for _, f := range fields {
		block = enc.AppendHeaderField(block, f.name, f.value, f.sensitive, !f.sensitive)
	}

	dec.StartBlock()
	var got []Field
	for len(block) > 0 {
		var f Field
		var err error
		f, block, err = dec.Next(block)
		require.NoError(t, err)
		got = append(got, f)
	}

	require.Len(t, got, len(fields))
	for i, f := range fields {
		assert.Equal(t, f.name, got[i].Name)
		assert.Equal(t, f.value, got[i].Value)
	}
}

func TestEncodeDecodeIndexedAfterStore(t *testing.T) {
	enc := NewEncoder(4096)
	dec := NewDecoder(4096)

	var block []byte
	block = enc.AppendHeaderField(block, "x-repeat", "same-value", false, true)

	dec.StartBlock()
	_, rest, err := dec.Next(block)
	require.NoError(t, err)
	require.Empty(t, rest)

	block = enc.AppendHeaderField(nil, "x-repeat", "same-value", false, true)
	require.Len(t, block, 1, "second occurrence should be a single-byte indexed reference")

	dec.StartBlock()
	f, _, err := dec.Next(block)
	require.NoError(t, err)
	assert.Equal(t, "x-repeat", f.Name)
	assert.Equal(t, "same-value", f.Value)
}

func TestDynamicTableEviction(t *testing.T) {
	table := NewTable(64) // room for ~1 small entry

	table.Add(Field{Name: "a", Value: "1"}) // size 34
	table.Add(Field{Name: "b", Value: "2"}) // size 34, evicts "a" to fit 64

	_, err := table.Lookup(staticTableLen + 1)
	require.NoError(t, err)

	f, err := table.Lookup(staticTableLen + 1)
	require.NoError(t, err)
	assert.Equal(t, "b", f.Name)
}

func TestStaticTableLookup(t *testing.T) {
	f, err := (&Table{dyn: newDynamicTable(0)}).Lookup(2)
	require.NoError(t, err)
	assert.Equal(t, ":method", f.Name)
	assert.Equal(t, "GET", f.Value)
}

func TestHuffmanRoundTrip(t *testing.T) {
	for _, s := range []string{"", "a", "www.example.com", "no-cache", "custom-key: custom-value"} {
		enc := HuffmanEncode(nil, s)
		dec, err := HuffmanDecode(nil, enc)
		require.NoError(t, err)
		assert.Equal(t, s, string(dec))
	}
}

func TestDecoderRejectsConnectionSpecificHeader(t *testing.T) {
	enc := NewEncoder(4096)
	dec := NewDecoder(4096)

	block := enc.AppendHeaderField(nil, "connection", "keep-alive", false, false)

	dec.StartBlock()
	_, _, err := dec.Next(block)
	assert.Error(t, err)
}

func TestDecoderRejectsPseudoAfterRegular(t *testing.T) {
	enc := NewEncoder(4096)
	dec := NewDecoder(4096)

	var block []byte
	block = enc.AppendHeaderField(block, "x-regular", "v", false, false)
	block = enc.AppendHeaderField(block, ":path", "/", false, false)

	dec.StartBlock()
	_, rest, err := dec.Next(block)
	require.NoError(t, err)

	_, _, err = dec.Next(rest)
	assert.ErrorIs(t, err, errPseudoAfterRegular)
}
