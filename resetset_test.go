package http2

import (
	"testing"
	"time"
)

func TestResetStreamSetEvictsByCount(t *testing.T) {
	s := newResetStreamSet(time.Hour, 3)

	for i := uint32(1); i <= 7; i += 2 { // 1, 3, 5, 7 — one more than maxLen
		s.Add(i)
	}

	if s.Has(1) {
		t.Fatalf("expected the oldest id to be evicted")
	}

	for _, id := range []uint32{3, 5, 7} {
		if !s.Has(id) {
			t.Fatalf("expected id %d to still be retained", id)
		}
	}
}

func TestResetStreamSetEvictsByAge(t *testing.T) {
	s := newResetStreamSet(0, 0) // defaults: 30s / 10

	if s.maxAge != defaultResetStreamDuration || s.maxLen != defaultMaxConcurrentResetStreams {
		t.Fatalf("expected defaults to be applied, got maxAge=%s maxLen=%d", s.maxAge, s.maxLen)
	}

	s.Add(1)
	s.times[0] = time.Now().Add(-2 * s.maxAge)

	if s.Has(1) {
		t.Fatalf("expected an id older than maxAge to be evicted")
	}
}

func TestResetStreamSetUnknownID(t *testing.T) {
	s := newResetStreamSet(time.Second, 1)

	if s.Has(42) {
		t.Fatalf("expected an id that was never reset to be absent")
	}
}
