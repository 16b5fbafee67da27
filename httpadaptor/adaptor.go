// Package httpadaptor bridges net/http handlers onto the fasthttp
// request/response types the HTTP/2 engine serves natively, so an
// existing net/http.Handler can be served over h2.ConfigureServer
// without rewriting it against fasthttp directly.
package httpadaptor

import (
	"io"
	"net/http"
	"net/url"

	"github.com/valyala/fasthttp"
)

// NewFastHTTPHandler wraps h so it can be used as a fasthttp.RequestHandler,
// and in turn passed to http2.ConfigureServer.
//
// Ordinary http.Handler features like http.ResponseWriter.Header() and
// http.Request.Context() work as expected; streaming responses via
// http.Flusher are not supported, since a fasthttp.RequestHandler only sees
// the request once it has fully finished.
func NewFastHTTPHandler(h http.Handler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		req, err := buildHTTPRequest(ctx)
		if err != nil {
			ctx.Error(err.Error(), fasthttp.StatusBadRequest)
			return
		}

		w := &netHTTPResponseWriter{ctx: ctx}
		h.ServeHTTP(w, req)
	}
}

func buildHTTPRequest(ctx *fasthttp.RequestCtx) (*http.Request, error) {
	var r http.Request

	body := ctx.PostBody()
	r.Method = string(ctx.Method())
	r.Proto = "HTTP/2.0"
	r.ProtoMajor = 2
	r.ProtoMinor = 0
	r.ContentLength = int64(len(body))
	r.RemoteAddr = ctx.RemoteAddr().String()
	r.Host = string(ctx.Host())
	r.TLS = ctx.TLSConnectionState()
	r.Body = io.NopCloser(ctx.RequestBodyStream())
	if r.Body == nil {
		r.Body = http.NoBody
	}

	rURL, err := url.ParseRequestURI(string(ctx.RequestURI()))
	if err != nil {
		return nil, err
	}
	r.URL = rURL

	r.Header = make(http.Header)
	ctx.Request.Header.VisitAll(func(k, v []byte) {
		sk, sv := string(k), string(v)
		switch sk {
		case "Transfer-Encoding":
			r.TransferEncoding = append(r.TransferEncoding, sv)
		default:
			r.Header.Add(sk, sv)
		}
	})

	return r.WithContext(ctx), nil
}

type netHTTPResponseWriter struct {
	ctx         *fasthttp.RequestCtx
	wroteHeader bool
}

func (w *netHTTPResponseWriter) Header() http.Header {
	h := make(http.Header)
	w.ctx.Response.Header.VisitAll(func(k, v []byte) {
		h.Add(string(k), string(v))
	})
	return h
}

func (w *netHTTPResponseWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.ctx.SetStatusCode(statusCode)
}

func (w *netHTTPResponseWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ctx.Write(p)
}
