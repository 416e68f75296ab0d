package httpcaching

import (
	"net/http"
	"time"

	"github.com/johtso/http-caching/rfc9111"
)

// Heuristic rewrites response headers before the store decision is
// made, typically to assign an expiration to responses that carry none.
// Implementations must only add or replace header fields; they run on
// the buffered response before it is returned to the caller.
type Heuristic interface {
	Apply(statusCode int, header http.Header)
}

// ExpireAfter caches every storable response for a fixed period by
// stamping an Expires header, unless the origin already sent one.
type ExpireAfter struct {
	Delta time.Duration
}

func (h ExpireAfter) Apply(statusCode int, header http.Header) {
	if header.Get("Expires") != "" {
		return
	}
	header.Set("Expires", time.Now().UTC().Add(h.Delta).Format(http.TimeFormat))
	if header.Get("Cache-Control") == "" {
		header.Set("Cache-Control", "public")
	}
}

// statuses heuristically cacheable per RFC 9110 §15.1
var heuristicStatuses = map[int]bool{
	200: true, 203: true, 204: true, 300: true, 301: true,
	404: true, 405: true, 410: true, 414: true, 501: true,
}

// LastModified assigns an explicit Expires derived from the
// Last-Modified interval (a tenth of it, at most a day), mirroring
// what browsers do for responses without explicit freshness.
// Responses that already carry freshness information, or that are not
// heuristically cacheable, are left alone.
type LastModified struct{}

func (h LastModified) Apply(statusCode int, header http.Header) {
	if header.Get("Expires") != "" {
		return
	}
	if cc := rfc9111.ParseCacheControl(header.Values("Cache-Control")); cc.Has("no-store") || cc.Has("no-cache") {
		return
	}
	if !heuristicStatuses[statusCode] {
		return
	}
	date, err := rfc9111.HTTPDate(header.Get("Date"))
	if err != nil {
		return
	}
	lastModified, err := rfc9111.HTTPDate(header.Get("Last-Modified"))
	if err != nil {
		return
	}
	interval := date.Sub(lastModified)
	if interval <= 0 {
		return
	}
	lifetime := interval / 10
	if lifetime > 24*time.Hour {
		lifetime = 24 * time.Hour
	}
	header.Set("Expires", date.Add(lifetime).UTC().Format(http.TimeFormat))
}
