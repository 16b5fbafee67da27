package http2

import (
	"crypto/tls"
	"net"
)

// configureDialer fills in a Dialer's TLS defaults (min/max version,
// ALPN "h2", and a server name derived from Addr when none is set) so
// Dial can negotiate HTTP/2 without the caller wiring TLS by hand.
func configureDialer(d *Dialer) {
	if d.TLSConfig == nil {
		d.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS13,
		}
	}

	tlsConfig := d.TLSConfig

	emptyServerName := len(tlsConfig.ServerName) == 0
	if emptyServerName {
		host, _, err := net.SplitHostPort(d.Addr)
		if err != nil {
			host = d.Addr
		}

		tlsConfig.ServerName = host
	}

	tlsConfig.NextProtos = append(tlsConfig.NextProtos, "h2")
}
