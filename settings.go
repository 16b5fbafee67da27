package http2

import (
	"github.com/domsolutions/http2/http2utils"
)

const FrameSettings FrameType = 0x4

// Defaults negotiated before any SETTINGS frame has been exchanged.
// https://tools.ietf.org/html/rfc7540#section-6.5.2
const (
	defaultHeaderTableSize      = 4096
	defaultMaxConcurrentStreams = 250
	defaultWindowSize           = 1<<16 - 1 // 65535
	maxFrameSize                = defaultMaxLen

	// DefaultPingInterval is used when ConnOpts.PingInterval is left at
	// its zero value.
	DefaultPingInterval = 15000000000 // 15s, spelled in ns to avoid importing time here
)

type settingID uint16

const (
	settingHeaderTableSize      settingID = 0x1
	settingEnablePush           settingID = 0x2
	settingMaxConcurrentStreams settingID = 0x3
	settingInitialWindowSize    settingID = 0x4
	settingMaxFrameSize         settingID = 0x5
	settingMaxHeaderListSize    settingID = 0x6
)

var _ Frame = &Settings{}

// Settings represents a SETTINGS frame: a set of connection-wide
// parameters either end can renegotiate. Only the parameters actually
// assigned via the SetXxx methods are serialized.
//
// https://tools.ietf.org/html/rfc7540#section-6.5
type Settings struct {
	ack bool

	headerTableSize uint32
	push            bool
	maxStreams      uint32
	windowSize      uint32
	frameSize       uint32
	headerListSize  uint32

	// present tracks which fields were explicitly set, so Serialize only
	// emits the parameters the caller actually touched.
	present uint8
}

const (
	presentHeaderTableSize uint8 = 1 << iota
	presentPush
	presentMaxStreams
	presentWindowSize
	presentFrameSize
	presentHeaderListSize
)

func (st *Settings) Type() FrameType {
	return FrameSettings
}

// Reset resets all fields back to unset.
func (st *Settings) Reset() {
	st.ack = false
	st.headerTableSize = 0
	st.push = false
	st.maxStreams = 0
	st.windowSize = 0
	st.frameSize = 0
	st.headerListSize = 0
	st.present = 0
}

// CopyTo copies every field (including which ones are present) to st2.
func (st *Settings) CopyTo(st2 *Settings) {
	st2.ack = st.ack
	st2.headerTableSize = st.headerTableSize
	st2.push = st.push
	st2.maxStreams = st.maxStreams
	st2.windowSize = st.windowSize
	st2.frameSize = st.frameSize
	st2.headerListSize = st.headerListSize
	st2.present = st.present
}

// IsAck reports whether this SETTINGS frame is an acknowledgement.
func (st *Settings) IsAck() bool {
	return st.ack
}

// SetAck marks this SETTINGS frame as an acknowledgement; an ack frame
// carries no parameters.
func (st *Settings) SetAck(ack bool) {
	st.ack = ack
}

// HeaderTableSize returns SETTINGS_HEADER_TABLE_SIZE, or the RFC
// default if unset.
func (st *Settings) HeaderTableSize() uint32 {
	if st.present&presentHeaderTableSize == 0 {
		return defaultHeaderTableSize
	}
	return st.headerTableSize
}

// SetHeaderTableSize sets SETTINGS_HEADER_TABLE_SIZE.
func (st *Settings) SetHeaderTableSize(size uint32) {
	st.headerTableSize = size
	st.present |= presentHeaderTableSize
}

// Push reports SETTINGS_ENABLE_PUSH, defaulting to true per the RFC.
func (st *Settings) Push() bool {
	if st.present&presentPush == 0 {
		return true
	}
	return st.push
}

// SetPush sets SETTINGS_ENABLE_PUSH.
func (st *Settings) SetPush(push bool) {
	st.push = push
	st.present |= presentPush
}

// MaxConcurrentStreams returns SETTINGS_MAX_CONCURRENT_STREAMS, or the
// library default if unset (the RFC leaves it unbounded by default).
func (st *Settings) MaxConcurrentStreams() uint32 {
	if st.present&presentMaxStreams == 0 {
		return defaultMaxConcurrentStreams
	}
	return st.maxStreams
}

// SetMaxConcurrentStreams sets SETTINGS_MAX_CONCURRENT_STREAMS.
func (st *Settings) SetMaxConcurrentStreams(n uint32) {
	st.maxStreams = n
	st.present |= presentMaxStreams
}

// MaxWindowSize returns SETTINGS_INITIAL_WINDOW_SIZE, or the RFC
// default if unset.
func (st *Settings) MaxWindowSize() uint32 {
	if st.present&presentWindowSize == 0 {
		return defaultWindowSize
	}
	return st.windowSize
}

// SetMaxWindowSize sets SETTINGS_INITIAL_WINDOW_SIZE.
func (st *Settings) SetMaxWindowSize(size uint32) {
	st.windowSize = size
	st.present |= presentWindowSize
}

// MaxFrameSize returns SETTINGS_MAX_FRAME_SIZE, or the RFC default if
// unset.
func (st *Settings) MaxFrameSize() uint32 {
	if st.present&presentFrameSize == 0 {
		return maxFrameSize
	}
	return st.frameSize
}

// SetMaxFrameSize sets SETTINGS_MAX_FRAME_SIZE.
func (st *Settings) SetMaxFrameSize(size uint32) {
	st.frameSize = size
	st.present |= presentFrameSize
}

// MaxHeaderListSize returns SETTINGS_MAX_HEADER_LIST_SIZE, or 0
// (unlimited) if unset.
func (st *Settings) MaxHeaderListSize() uint32 {
	return st.headerListSize
}

// SetMaxHeaderListSize sets SETTINGS_MAX_HEADER_LIST_SIZE.
func (st *Settings) SetMaxHeaderListSize(size uint32) {
	st.headerListSize = size
	st.present |= presentHeaderListSize
}

func (st *Settings) Deserialize(fr *FrameHeader) error {
	flags := fr.Flags()
	st.ack = flags.Has(FlagAck)

	payload := fr.payload
	if len(payload)%6 != 0 {
		return NewGoAwayError(FrameSizeError, "settings payload is not a multiple of 6")
	}

	for len(payload) > 0 {
		id := settingID(http2utils.BytesToUint16(payload))
		value := http2utils.BytesToUint32(payload[2:])
		payload = payload[6:]

		switch id {
		case settingHeaderTableSize:
			st.SetHeaderTableSize(value)
		case settingEnablePush:
			st.SetPush(value == 1)
		case settingMaxConcurrentStreams:
			st.SetMaxConcurrentStreams(value)
		case settingInitialWindowSize:
			if value > 1<<31-1 {
				return NewGoAwayError(FlowControlError, "initial window size too large")
			}
			st.SetMaxWindowSize(value)
		case settingMaxFrameSize:
			if value < maxFrameSize || value > 1<<24-1 {
				return NewGoAwayError(ProtocolError, "invalid max frame size")
			}
			st.SetMaxFrameSize(value)
		case settingMaxHeaderListSize:
			st.SetMaxHeaderListSize(value)
		}
		// unknown settings identifiers are ignored, per RFC 7540 §6.5.2
	}

	return nil
}

func (st *Settings) Serialize(fr *FrameHeader) {
	if st.ack {
		fr.SetFlags(fr.Flags().Add(FlagAck))
		fr.payload = fr.payload[:0]
		return
	}

	payload := fr.payload[:0]
	payload = appendSetting(payload, settingHeaderTableSize, st.present&presentHeaderTableSize != 0, st.headerTableSize)
	payload = appendSetting(payload, settingEnablePush, st.present&presentPush != 0, boolToUint32(st.push))
	payload = appendSetting(payload, settingMaxConcurrentStreams, st.present&presentMaxStreams != 0, st.maxStreams)
	payload = appendSetting(payload, settingInitialWindowSize, st.present&presentWindowSize != 0, st.windowSize)
	payload = appendSetting(payload, settingMaxFrameSize, st.present&presentFrameSize != 0, st.frameSize)
	payload = appendSetting(payload, settingMaxHeaderListSize, st.present&presentHeaderListSize != 0, st.headerListSize)

	fr.payload = payload
}

func appendSetting(dst []byte, id settingID, present bool, value uint32) []byte {
	if !present {
		return dst
	}
	dst = http2utils.AppendUint16Bytes(dst, uint16(id))
	return http2utils.AppendUint32Bytes(dst, value)
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
