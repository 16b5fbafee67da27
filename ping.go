package http2

import (
	"time"

	"github.com/domsolutions/http2/http2utils"
)

const FramePing FrameType = 0x6

var _ Frame = &Ping{}

// Ping ...
//
// https://tools.ietf.org/html/rfc7540#section-6.7
type Ping struct {
	ack  bool
	data [8]byte
}

func (ping *Ping) Type() FrameType {
	return FramePing
}

// Reset ...
func (ping *Ping) Reset() {
	ping.ack = false
}

// CopyTo ...
func (ping *Ping) CopyTo(p *Ping) {
	p.ack = ping.ack
}

// Write ...
func (ping *Ping) Write(b []byte) (n int, err error) {
	copy(ping.data[:], b)
	return
}

// SetData ...
func (ping *Ping) SetData(b []byte) {
	copy(ping.data[:], b)
}

// Deserialize ...
func (ping *Ping) Deserialize(frh *FrameHeader) error {
	ping.ack = frh.Flags().Has(FlagAck)
	ping.SetData(frh.payload)
	return nil
}

func (ping *Ping) Data() []byte {
	return ping.data[:]
}

// IsAck reports whether this PING frame is a reply to one we sent.
func (ping *Ping) IsAck() bool {
	return ping.ack
}

// SetAck marks this PING frame as a reply.
func (ping *Ping) SetAck(ack bool) {
	ping.ack = ack
}

// SetCurrentTime stashes time.Now() in the opaque payload so the RTT
// can be recovered once the peer echoes it back in an ack.
func (ping *Ping) SetCurrentTime() {
	http2utils.Uint64ToBytes(ping.data[:], uint64(time.Now().UnixNano()))
}

// SentAt recovers the timestamp written by SetCurrentTime.
func (ping *Ping) SentAt() time.Time {
	return time.Unix(0, int64(http2utils.BytesToUint64(ping.data[:])))
}

// Serialize ...
func (ping *Ping) Serialize(fr *FrameHeader) {
	if ping.ack {
		fr.SetFlags(fr.Flags().Add(FlagAck))
	}

	fr.setPayload(ping.data[:])
}
