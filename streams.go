package http2

import (
	"sort"
)

// Streams is a list of active Stream instances kept sorted by id, the
// order frames naturally arrive in since stream ids only increase.
type Streams []*Stream

// Search returns the stream with the given id, or nil.
func (strms Streams) Search(id uint32) *Stream {
	i := sort.Search(len(strms), func(i int) bool {
		return strms[i].id >= id
	})

	if i < len(strms) && strms[i].id == id {
		return strms[i]
	}

	return nil
}

// Del removes the stream with the given id, if present.
func (strms *Streams) Del(id uint32) {
	s := *strms

	i := sort.Search(len(s), func(i int) bool {
		return s[i].id >= id
	})

	if i < len(s) && s[i].id == id {
		*strms = append(s[:i], s[i+1:]...)
	}
}

// GetFirstOf returns the earliest stream whose origType matches t.
func (strms Streams) GetFirstOf(t FrameType) *Stream {
	for _, strm := range strms {
		if strm.origType == t {
			return strm
		}
	}

	return nil
}

// getPrevious returns the stream preceding the most recently appended
// one that shares origType t, used to verify its HEADERS block ended
// before a new one is allowed to start.
func (strms Streams) getPrevious(t FrameType) *Stream {
	n := len(strms)
	if n < 2 {
		return nil
	}

	for i := n - 2; i >= 0; i-- {
		if strms[i].origType == t {
			return strms[i]
		}
	}

	return nil
}
