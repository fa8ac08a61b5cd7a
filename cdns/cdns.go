// Package cdns resolves client addresses and enforces HTTPS for requests
// arriving through a CDN edge.
package cdns

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// Provider describes the headers one CDN adds to forwarded requests
type Provider struct {
	Name string
	// ClientIPHeader carries the visitor address. Requests without it did
	// not pass through this provider.
	ClientIPHeader string
	// Secure reports whether the visitor reached the edge over HTTPS
	Secure func(r *http.Request) bool
}

// Cloudflare is checked before Fly because it is sometimes in front of Fly
var Cloudflare = Provider{
	Name:           "cloudflare",
	ClientIPHeader: "Cf-Connecting-Ip",
	Secure: func(r *http.Request) bool {
		return strings.Contains(r.Header.Get("Cf-Visitor"), `"scheme":"https"`)
	},
}

var Fly = Provider{
	Name:           "fly",
	ClientIPHeader: "Fly-Client-IP",
	Secure: func(r *http.Request) bool {
		return r.Header.Get("Fly-Forwarded-Proto") == "https"
	},
}

// Providers in lookup order
var Providers = []Provider{Cloudflare, Fly}

// Options controls the HTTPS redirect
type Options struct {
	Redirect     bool
	RedirectPort int // defaults to 443
}

// DefaultOptions redirects plain HTTP visitors to port 443
func DefaultOptions() Options {
	return Options{Redirect: true, RedirectPort: 443}
}

// Middleware records the visitor address under "RealIP" for requests that
// carry p's header and redirects visitors that reached the edge over HTTP.
// An address recorded by an earlier provider wins.
func Middleware(p Provider, opts Options) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			ip := r.Header.Get(p.ClientIPHeader)
			if ip == "" {
				return next(c)
			}
			if c.Get("RealIP") == nil {
				c.Set("RealIP", ip)
			}

			if !opts.Redirect || p.Secure(r) {
				return next(c)
			}
			return c.Redirect(http.StatusMovedPermanently, redirectURL(r, opts.RedirectPort))
		}
	}
}

func redirectURL(r *http.Request, port int) string {
	url := "https://" + r.Host
	if port > 0 && port != 443 && port <= 65535 {
		url += ":" + strconv.Itoa(port)
	}
	return url + r.URL.RequestURI()
}

// IPExtractor takes the address from the first provider header present and
// falls back to the peer address
func IPExtractor(providers ...Provider) echo.IPExtractor {
	direct := echo.ExtractIPDirect()
	return func(r *http.Request) string {
		for _, p := range providers {
			if ip := r.Header.Get(p.ClientIPHeader); ip != "" {
				return ip
			}
		}
		return direct(r)
	}
}

// UseDefaults installs the middleware and IP extractor for every known
// provider. Socket sessions record the extracted address as the client host.
func UseDefaults(e *echo.Echo, opts Options) {
	for _, p := range Providers {
		e.Use(Middleware(p, opts))
	}
	e.IPExtractor = IPExtractor(Providers...)
}
