package rfc9111

import (
	"net/http"
	"time"
)

// Freshness is the result of evaluating a stored response against the
// clock. It is derived state: recompute it for every decision.
type Freshness int

const (
	// Stale means the response must be validated before reuse.
	Stale Freshness = iota
	// Fresh means the response may be reused without validation.
	Fresh
	// StaleWhileRevalidate means the response is stale but inside the
	// stale-while-revalidate window: it may be served as-is provided a
	// revalidation is started in the background.
	StaleWhileRevalidate
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case StaleWhileRevalidate:
		return "stale-while-revalidate"
	default:
		return "stale"
	}
}

// heuristicFraction is the fraction of the Date - Last-Modified
// interval used as a heuristic freshness lifetime (§4.2.2).
const heuristicFraction = 10

// heuristicCap limits heuristic freshness to one day.
const heuristicCap = 24 * time.Hour

// FreshnessLifetime calculates the freshness_lifetime of a response
// per §4.2.1, evaluating the following rules and using the first match:
// s-maxage (shared caches), max-age, Expires - Date, then heuristic
// freshness. Responses with no usable rule get a lifetime of zero and
// are therefore immediately stale.
func FreshnessLifetime(res *http.Response, receivedAt time.Time, shared bool) time.Duration {
	cc := ParseCacheControl(res.Header.Values("Cache-Control"))
	if shared {
		if val, ok := cc.SMaxAge(); ok {
			return val
		}
	}
	if val, ok := cc.MaxAge(); ok {
		return val
	}
	if expires, err := HTTPDate(res.Header.Get("Expires")); err == nil {
		return expires.Sub(dateValue(res.Header, receivedAt))
	}
	return heuristicLifetime(res.Header, receivedAt)
}

// heuristicLifetime assigns a heuristic expiration per §4.2.2:
// a tenth of the interval between Date and Last-Modified, capped at
// 24 hours. Without a Last-Modified value there is no heuristic and
// the response is immediately stale, which forces revalidation.
func heuristicLifetime(header http.Header, receivedAt time.Time) time.Duration {
	lastModified, err := HTTPDate(header.Get("Last-Modified"))
	if err != nil {
		return 0
	}
	interval := dateValue(header, receivedAt).Sub(lastModified)
	if interval <= 0 {
		return 0
	}
	lifetime := interval / heuristicFraction
	if lifetime > heuristicCap {
		lifetime = heuristicCap
	}
	return lifetime
}

// Evaluate computes the freshness of a stored response.
//
// §  response_is_fresh = (freshness_lifetime > current_age)
//
// The interval is half-open: at current_age == freshness_lifetime the
// response is already stale. A response carrying no-cache is stale no
// matter its age. The stale-while-revalidate window only applies when
// the response does not demand synchronous revalidation through
// must-revalidate (or proxy-revalidate, for shared caches).
func Evaluate(res *http.Response, requestedAt, receivedAt, now time.Time, shared bool) Freshness {
	cc := ParseCacheControl(res.Header.Values("Cache-Control"))
	if cc.Has("no-cache") {
		return Stale
	}

	lifetime := FreshnessLifetime(res, receivedAt, shared)
	age := CurrentAge(res.Header, requestedAt, receivedAt, now)
	if age < lifetime {
		return Fresh
	}

	if window, ok := cc.StaleWhileRevalidate(); ok && !mustRevalidate(cc, shared) {
		if age < lifetime+window {
			return StaleWhileRevalidate
		}
	}
	return Stale
}

// mustRevalidate reports whether the response forbids serving stale.
// s-maxage implies proxy-revalidate semantics for shared caches.
func mustRevalidate(cc CacheControl, shared bool) bool {
	if cc.Has("must-revalidate") {
		return true
	}
	return shared && (cc.Has("proxy-revalidate") || cc.Has("s-maxage"))
}

// AllowsStale reports whether a stale response may be served to a
// client that sent max-stale, given the response's own directives and
// how far past its lifetime the response currently is.
func AllowsStale(res *http.Response, reqCC CacheControl, requestedAt, receivedAt, now time.Time, shared bool) bool {
	resCC := ParseCacheControl(res.Header.Values("Cache-Control"))
	if mustRevalidate(resCC, shared) || resCC.Has("no-cache") {
		return false
	}
	allowance, ok := reqCC.MaxStale()
	if !ok {
		return false
	}
	lifetime := FreshnessLifetime(res, receivedAt, shared)
	age := CurrentAge(res.Header, requestedAt, receivedAt, now)
	return age-lifetime < allowance
}

// StaleIfErrorUsable reports whether the response is inside its
// stale-if-error window (RFC 5861) at the given time, making it an
// acceptable fallback when revalidation fails.
func StaleIfErrorUsable(res *http.Response, requestedAt, receivedAt, now time.Time, shared bool) bool {
	cc := ParseCacheControl(res.Header.Values("Cache-Control"))
	window, ok := cc.StaleIfError()
	if !ok {
		return false
	}
	lifetime := FreshnessLifetime(res, receivedAt, shared)
	age := CurrentAge(res.Header, requestedAt, receivedAt, now)
	return age < lifetime+window
}
