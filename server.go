package http2

import (
	"bufio"
	"net"
	"time"

	"github.com/valyala/fasthttp"
)

// ServerConfig customizes a Server beyond what its embedded
// fasthttp.Server already configures.
type ServerConfig struct {
	// Debug turns on verbose per-connection logging.
	Debug bool

	// PingInterval is how often a connection is pinged to measure RTT
	// and detect dead peers. Zero uses DefaultPingInterval.
	PingInterval time.Duration

	// MaxIdleTime closes a connection that hasn't sent a request
	// (HEADERS frame) in this long. Zero disables the idle timeout.
	MaxIdleTime time.Duration

	// MaxWindowSize is this endpoint's advertised connection-level flow
	// control window. Zero uses a 4MiB default.
	MaxWindowSize int32

	// MaxConcurrentStreams bounds how many streams a single connection
	// may have open at once. Zero uses defaultMaxConcurrentStreams.
	MaxConcurrentStreams uint32

	// ResetStreamDuration bounds how long a locally reset stream id is
	// remembered so that frames racing its closure are recognized and
	// dropped instead of killing the connection. Zero uses
	// defaultResetStreamDuration (30s).
	ResetStreamDuration time.Duration

	// MaxConcurrentResetStreams bounds how many locally reset stream
	// ids are remembered at once, evicting the oldest first. Zero uses
	// defaultMaxConcurrentResetStreams (10).
	MaxConcurrentResetStreams int

	// Logger receives debug and error output from connections. Defaults
	// to the package's standard logger.
	Logger fasthttp.Logger
}

func (cnf *ServerConfig) defaults() {
	if cnf.PingInterval <= 0 {
		cnf.PingInterval = DefaultPingInterval
	}

	if cnf.MaxWindowSize <= 0 {
		cnf.MaxWindowSize = 1 << 22
	}

	if cnf.MaxConcurrentStreams <= 0 {
		cnf.MaxConcurrentStreams = defaultMaxConcurrentStreams
	}

	if cnf.ResetStreamDuration <= 0 {
		cnf.ResetStreamDuration = defaultResetStreamDuration
	}

	if cnf.MaxConcurrentResetStreams <= 0 {
		cnf.MaxConcurrentResetStreams = defaultMaxConcurrentResetStreams
	}

	if cnf.Logger == nil {
		cnf.Logger = logger
	}
}

// Server adapts a fasthttp.Server's request handler to speak HTTP/2
// over an already-accepted connection.
type Server struct {
	s   *fasthttp.Server
	cnf ServerConfig
}

// ConfigureServer builds a Server that dispatches to s's handler using
// cnf to tune the HTTP/2 connection behavior.
func ConfigureServer(s *fasthttp.Server, cnf ServerConfig) *Server {
	return &Server{s: s, cnf: cnf}
}

// ServeConn runs the HTTP/2 server protocol over an already-accepted
// connection, blocking until it closes.
func (s *Server) ServeConn(c net.Conn) error {
	defer func() { _ = c.Close() }()

	if !ReadPreface(c) {
		return ErrBadPreface
	}

	s.cnf.defaults()

	sc := &serverConn{
		c:      c,
		h:      s.s.Handler,
		br:     bufio.NewReader(c),
		bw:     bufio.NewWriterSize(c, 1<<14*10),
		enc:    *NewHPACK(),
		dec:    *NewHPACK(),
		writer: make(chan *FrameHeader, 128),
		reader: make(chan *FrameHeader, 128),

		maxRequestTime: s.s.ReadTimeout,
		pingInterval:   s.cnf.PingInterval,
		maxIdleTime:    s.cnf.MaxIdleTime,

		resetStreamDuration:       s.cnf.ResetStreamDuration,
		maxConcurrentResetStreams: s.cnf.MaxConcurrentResetStreams,

		debug:  s.cnf.Debug,
		logger: s.cnf.Logger,
	}

	sc.maxWindow = s.cnf.MaxWindowSize
	sc.currentWindow = sc.maxWindow

	sc.st.Reset()
	sc.st.SetMaxWindowSize(uint32(sc.maxWindow))
	sc.st.SetMaxConcurrentStreams(s.cnf.MaxConcurrentStreams)

	if err := sc.Handshake(); err != nil {
		return err
	}

	return sc.Serve()
}
