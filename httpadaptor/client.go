package httpadaptor

import (
	"errors"
	"net/http"
	"time"

	h2 "github.com/domsolutions/http2"
	"github.com/valyala/fasthttp"
)

// ClientOpts configures ConfigureClient.
type ClientOpts struct {
	// OnRTT is assigned to every connection after creation, and the
	// handler will be called after every RTT measurement (after
	// receiving a PONG message).
	OnRTT func(time.Duration)
}

// ConfigureClient configures the fasthttp.HostClient to run over
// HTTP/2, bridging fasthttp.Request/fasthttp.Response to the engine's
// framework-agnostic h2.Request/h2.Response on every call.
func ConfigureClient(c *fasthttp.HostClient, opts ClientOpts) error {
	emptyServerName := c.TLSConfig != nil && len(c.TLSConfig.ServerName) == 0

	d := &h2.Dialer{
		Addr:      c.Addr,
		TLSConfig: c.TLSConfig,
	}

	c2, err := d.Dial(h2.ConnOpts{})
	if err != nil {
		if errors.Is(err, h2.ErrServerSupport) && c.TLSConfig != nil { // remove added config settings
			for i := range c.TLSConfig.NextProtos {
				if c.TLSConfig.NextProtos[i] == "h2" {
					c.TLSConfig.NextProtos = append(c.TLSConfig.NextProtos[:i], c.TLSConfig.NextProtos[i+1:]...)
				}
			}

			if emptyServerName {
				c.TLSConfig.ServerName = ""
			}
		}

		return err
	}
	defer c2.Close()

	c.IsTLS = true
	c.TLSConfig = d.TLSConfig

	cl := h2.NewClient(d)
	cl.SetOnRTT(opts.OnRTT)
	cl.Init()

	c.Transport = func(req *fasthttp.Request, res *fasthttp.Response) error {
		return Do(cl, req, res)
	}

	return nil
}

// Do sends req through cl, translating to and from fasthttp's request
// and response types. Wrapped in a closure over cl (as ConfigureClient
// does), it fits fasthttp's HostClient.Transport, so it can also be
// wired up by hand without ConfigureClient.
func Do(cl *h2.Client, req *fasthttp.Request, res *fasthttp.Response) error {
	hreq := &h2.Request{
		Method:    string(req.Header.Method()),
		Scheme:    string(req.URI().Scheme()),
		Authority: string(req.URI().Host()),
		Path:      string(req.URI().RequestURI()),
		Header:    make(http.Header),
		Body:      req.Body(),
	}

	req.Header.VisitAll(func(k, v []byte) {
		hreq.Header.Add(string(k), string(v))
	})

	hres := &h2.Response{}

	if err := cl.Do(hreq, hres); err != nil {
		return err
	}

	res.SetStatusCode(hres.StatusCode)
	for k, vv := range hres.Header {
		for _, v := range vv {
			res.Header.Add(k, v)
		}
	}
	res.SetBody(hres.Body())

	return nil
}
