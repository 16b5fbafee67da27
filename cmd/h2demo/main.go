// Command h2demo serves a tiny HTTP/2 echo handler over TLS, obtaining
// its certificate via ACME and logging through zap instead of the
// bare log.Logger the rest of the engine is happy to run without.
package main

import (
	"context"
	"crypto/tls"
	"encoding/pem"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	h2 "github.com/domsolutions/http2"
	"github.com/domsolutions/http2/httpadaptor"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"
)

func main() {
	hostName := flag.String("host", "example.com", "hostname to request a certificate for")
	addr := flag.String("addr", ":443", "address to listen on")
	flag.Parse()

	zl, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer zl.Sync()
	log := zl.Sugar()

	cert, priv, err := configureCert(*hostName)
	if err != nil {
		log.Fatalw("failed to obtain certificate", "host", *hostName, "error", err)
	}

	s := &fasthttp.Server{
		Handler: httpadaptor.NewFastHTTPHandler(echoHandler(log)),
		Name:    "h2demo",
	}

	h2.ConfigureServer(s, h2.ServerConfig{
		Logger: zapLogger{log},
	})

	log.Infow("listening", "addr", *addr)
	log.Fatalw("server exited", "error", s.ListenAndServeTLSEmbed(*addr, cert, priv))
}

// zapLogger adapts a zap SugaredLogger to fasthttp.Logger, the only
// logging interface the engine itself depends on.
type zapLogger struct {
	log *zap.SugaredLogger
}

func (l zapLogger) Printf(format string, args ...interface{}) {
	l.log.Infof(format, args...)
}

// configureCert stands up a throwaway HTTP server to complete an ACME
// HTTP-01 challenge, then hands back the resulting cert/key pair.
func configureCert(hostName string) ([]byte, []byte, error) {
	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(hostName),
		Cache:      autocert.DirCache("./certs"),
	}

	// Ready for whoever plugs this cert into a tls.Config: GetCertificate
	// and the ALPN proto id are what the TLS listener needs to finish
	// the ACME TLS-ALPN-01 challenge instead of the HTTP-01 flow above.
	_ = tls.Config{
		GetCertificate: m.GetCertificate,
		NextProtos:     []string{acme.ALPNProto},
	}

	httpSrv := &fasthttp.Server{
		Handler: httpadaptor.NewFastHTTPHandler(m.HTTPHandler(nil)),
	}

	go httpSrv.ListenAndServe(":80")

	time.Sleep(time.Second * 10)
	_ = httpSrv.Shutdown()

	data, err := m.Cache.Get(context.Background(), hostName)
	if err != nil {
		return nil, nil, err
	}

	keyBlock, rest := pem.Decode(data)
	certBlock, _ := pem.Decode(rest)

	return pem.EncodeToMemory(certBlock), pem.EncodeToMemory(keyBlock), nil
}

func echoHandler(log *zap.SugaredLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Infow("request", "method", r.Method, "path", r.URL.Path)

		if r.Method == http.MethodPost {
			body, _ := io.ReadAll(r.Body)
			fmt.Fprintf(w, "%s\n", body)
			return
		}

		fmt.Fprintln(w, "Hello from h2demo")
	})
}
