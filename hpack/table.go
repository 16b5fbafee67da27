// Package hpack implements RFC 7541 header compression: the combined
// static/dynamic lookup table, Huffman coding, and the encoder/decoder
// built on top of them.
package hpack

import "errors"

// Field is a single name/value pair as stored in the static or dynamic
// table. Sensitive fields are never re-indexed by the encoder.
type Field struct {
	Name, Value string
	Sensitive   bool
}

// Size is the RFC 7541 §4.1 accounting size of the field.
func (f Field) Size() uint32 {
	return uint32(len(f.Name)+len(f.Value)) + 32
}

// staticTable holds the 61 fixed entries of RFC 7541 Appendix A, index 1..61.
var staticTable = []Field{
	{Name: ":authority"},
	{Name: ":method", Value: "GET"},
	{Name: ":method", Value: "POST"},
	{Name: ":path", Value: "/"},
	{Name: ":path", Value: "/index.html"},
	{Name: ":scheme", Value: "http"},
	{Name: ":scheme", Value: "https"},
	{Name: ":status", Value: "200"},
	{Name: ":status", Value: "204"},
	{Name: ":status", Value: "206"},
	{Name: ":status", Value: "304"},
	{Name: ":status", Value: "400"},
	{Name: ":status", Value: "404"},
	{Name: ":status", Value: "500"},
	{Name: "accept-charset"},
	{Name: "accept-encoding", Value: "gzip, deflate"},
	{Name: "accept-language"},
	{Name: "accept-ranges"},
	{Name: "accept"},
	{Name: "access-control-allow-origin"},
	{Name: "age"},
	{Name: "allow"},
	{Name: "authorization"},
	{Name: "cache-control"},
	{Name: "content-disposition"},
	{Name: "content-encoding"},
	{Name: "content-language"},
	{Name: "content-length"},
	{Name: "content-location"},
	{Name: "content-range"},
	{Name: "content-type"},
	{Name: "cookie"},
	{Name: "date"},
	{Name: "etag"},
	{Name: "expect"},
	{Name: "expires"},
	{Name: "from"},
	{Name: "host"},
	{Name: "if-match"},
	{Name: "if-modified-since"},
	{Name: "if-none-match"},
	{Name: "if-range"},
	{Name: "if-unmodified-since"},
	{Name: "last-modified"},
	{Name: "link"},
	{Name: "location"},
	{Name: "max-forwards"},
	{Name: "proxy-authenticate"},
	{Name: "proxy-authorization"},
	{Name: "range"},
	{Name: "referer"},
	{Name: "refresh"},
	{Name: "retry-after"},
	{Name: "server"},
	{Name: "set-cookie"},
	{Name: "strict-transport-security"},
	{Name: "transfer-encoding"},
	{Name: "user-agent"},
	{Name: "vary"},
	{Name: "via"},
	{Name: "www-authenticate"},
}

const staticTableLen = 61

var errFieldNotFound = errors.New("hpack: index not found in static or dynamic table")

// dynamicTable is a per-direction ring buffer of fields, newest entry
// at the lowest index (matching RFC 7541's indexing order), evicting
// from the oldest end once Size exceeds maxSize. Storage is a fixed
// capacity ring (indexed by head/count) rather than a slice that is
// shifted on every insert, so Add/evict are O(1) regardless of how
// many entries are live.
type dynamicTable struct {
	entries  []Field // ring storage, len == cap always
	head     int     // index of the newest entry
	count    int     // number of live entries
	size     uint32  // current RFC 4.1 accounting size
	maxSize  uint32  // negotiated SETTINGS_HEADER_TABLE_SIZE
	capacity uint32  // upper bound maxSize may ever be raised to
}

func newDynamicTable(maxSize uint32) *dynamicTable {
	return &dynamicTable{
		entries:  make([]Field, 0, 64),
		maxSize:  maxSize,
		capacity: maxSize,
	}
}

// at returns the index'th newest live entry (0 == newest).
func (t *dynamicTable) at(index int) Field {
	return t.entries[(t.head-index+len(t.entries))%len(t.entries)]
}

// SetMaxSize updates the negotiated size, evicting as needed. It may only
// raise the table up to the capacity most recently set via Resize (or
// given to newDynamicTable).
func (t *dynamicTable) SetMaxSize(n uint32) {
	if n > t.capacity {
		n = t.capacity
	}
	t.maxSize = n
	t.evictToFit()
}

// Resize changes the hard capacity ceiling (driven by the local
// SETTINGS_HEADER_TABLE_SIZE we advertise), lowering maxSize and
// evicting if the new capacity is below it. Backing storage is not
// touched.
func (t *dynamicTable) Resize(capacity uint32) {
	t.capacity = capacity
	if t.maxSize > capacity {
		t.maxSize = capacity
		t.evictToFit()
	}
}

func (t *dynamicTable) evictToFit() {
	for t.size > t.maxSize && t.count > 0 {
		t.evictOldest()
	}
}

func (t *dynamicTable) evictOldest() {
	oldest := t.at(t.count - 1)
	t.size -= oldest.Size()
	t.count--
}

// Add inserts f as the newest entry, evicting from the oldest end
// until the table fits maxSize. A field larger than maxSize by itself
// results in an empty table, per RFC 7541 §4.4.
func (t *dynamicTable) Add(f Field) {
	need := f.Size()
	for t.size+need > t.maxSize && t.count > 0 {
		t.evictOldest()
	}
	if need > t.maxSize {
		return
	}

	// entries grows lazily up to its high-water mark, then is reused as
	// a true ring (overwriting the oldest slot) once full.
	if t.count < len(t.entries) {
		t.head = (t.head + 1) % len(t.entries)
		t.entries[t.head] = f
	} else {
		if len(t.entries) > 0 && t.head != len(t.entries)-1 {
			// unroll the ring oldest-first so the append below keeps
			// the newest entry at head
			unrolled := make([]Field, 0, len(t.entries)+1)
			for i := t.count - 1; i >= 0; i-- {
				unrolled = append(unrolled, t.at(i))
			}
			t.entries = unrolled
		}
		t.entries = append(t.entries, f)
		t.head = len(t.entries) - 1
	}
	t.count++
	t.size += need
}

// Get returns the dynamic-table entry for a 0-based "entries since
// newest" index, as used once the static table's 61 slots are exhausted.
func (t *dynamicTable) Get(index int) (Field, bool) {
	if index < 0 || index >= t.count {
		return Field{}, false
	}
	return t.at(index), true
}

// Find searches name(+value) across the dynamic table only, returning
// a 0-based index and whether the value also matched.
func (t *dynamicTable) Find(name, value string) (index int, valueMatch bool, ok bool) {
	bestName := -1
	for i := 0; i < t.count; i++ {
		f := t.at(i)
		if f.Name == name {
			if f.Value == value {
				return i, true, true
			}
			if bestName == -1 {
				bestName = i
			}
		}
	}
	if bestName != -1 {
		return bestName, false, true
	}
	return 0, false, false
}

// Table combines the static table (indices 1..61) with a per-direction
// dynamic table (indices 62..) as RFC 7541 §2.3.3 specifies.
type Table struct {
	dyn *dynamicTable
}

// NewTable creates a combined table with the given initial dynamic
// table size (also the maximum it may later be resized to).
func NewTable(maxDynamicSize uint32) *Table {
	return &Table{dyn: newDynamicTable(maxDynamicSize)}
}

// SetMaxSize applies a peer-negotiated SETTINGS_HEADER_TABLE_SIZE.
func (t *Table) SetMaxSize(n uint32) { t.dyn.SetMaxSize(n) }

// Resize sets the hard capacity ceiling (our own advertised setting).
func (t *Table) Resize(capacity uint32) { t.dyn.Resize(capacity) }

// Add inserts a field into the dynamic table.
func (t *Table) Add(f Field) { t.dyn.Add(f) }

// Lookup resolves a 1-based HPACK table index to a field.
func (t *Table) Lookup(index uint64) (Field, error) {
	if index == 0 {
		return Field{}, errFieldNotFound
	}
	if index <= staticTableLen {
		return staticTable[index-1], nil
	}
	f, ok := t.dyn.Get(int(index) - staticTableLen - 1)
	if !ok {
		return Field{}, errFieldNotFound
	}
	return f, nil
}

// Find searches the static table first, then the dynamic table,
// returning a 1-based combined index.
func (t *Table) Find(name, value string) (index uint64, valueMatch bool, ok bool) {
	bestName := uint64(0)
	for i, f := range staticTable {
		if f.Name == name {
			if f.Value == value {
				return uint64(i + 1), true, true
			}
			if bestName == 0 {
				bestName = uint64(i + 1)
			}
		}
	}

	if di, vm, dok := t.dyn.Find(name, value); dok {
		combined := uint64(di) + staticTableLen + 1
		if vm {
			return combined, true, true
		}
		if bestName == 0 {
			bestName = combined
		}
	}

	if bestName != 0 {
		return bestName, false, true
	}
	return 0, false, false
}
