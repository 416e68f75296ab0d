// Package rfc9211 implements the Cache-Status response header of
// RFC 9211, which reports how a cache handled a request.
package rfc9211

import "fmt"

// FwdReason is the reason a request was forwarded toward the origin.
type FwdReason string

const (
	// FwdReasonBypass: the cache was configured (or instructed) not to
	// handle this request.
	FwdReasonBypass FwdReason = "bypass"
	// FwdReasonMethod: the request method's semantics require the
	// request to be forwarded.
	FwdReasonMethod FwdReason = "method"
	// FwdReasonUriMiss: no stored response matched the request URI.
	FwdReasonUriMiss FwdReason = "uri-miss"
	// FwdReasonVaryMiss: a stored response matched the URI but not the
	// request headers nominated by its Vary field.
	FwdReasonVaryMiss FwdReason = "vary-miss"
	// FwdReasonMiss: no stored response could be used (when uri-miss
	// and vary-miss cannot be distinguished).
	FwdReasonMiss FwdReason = "miss"
	// FwdReasonRequest: a stored response was available, but request
	// directives (e.g. no-cache) did not allow its use.
	FwdReasonRequest FwdReason = "request"
	// FwdReasonStale: a stored response was selected but stale.
	FwdReasonStale FwdReason = "stale"
)

// CacheStatus accumulates the parameters of one Cache-Status entry.
type CacheStatus struct {
	// Stored indicates the forwarded response was stored afterwards.
	Stored bool
	// TimeToLive is the response's remaining freshness in seconds.
	TimeToLive int
	// FwdReason is empty for a hit.
	FwdReason FwdReason

	hit    bool
	detail string
}

// Hit marks the request as satisfied from the cache.
func (cs *CacheStatus) Hit() {
	cs.hit = true
	cs.FwdReason = ""
}

// Forward marks the request as forwarded for the given reason.
func (cs *CacheStatus) Forward(reason FwdReason) {
	cs.hit = false
	cs.FwdReason = reason
}

// Detail attaches an implementation-specific detail parameter.
func (cs *CacheStatus) Detail(detail string) {
	cs.detail = detail
}

// String renders the header value with this cache's identifier.
//
//	Cache-Status: http-caching; hit; ttl=120
//	Cache-Status: http-caching; fwd=stale; stored
func (cs CacheStatus) String() string {
	value := "http-caching"
	if cs.hit {
		value += "; hit"
		if cs.TimeToLive > 0 {
			value = fmt.Sprintf("%s; ttl=%d", value, cs.TimeToLive)
		}
		if cs.detail != "" {
			value += "; detail=" + cs.detail
		}
		return value
	}
	reason := cs.FwdReason
	if reason == "" {
		reason = FwdReasonMiss
	}
	value += "; fwd=" + string(reason)
	if cs.Stored {
		value += "; stored"
	}
	if cs.detail != "" {
		value += "; detail=" + cs.detail
	}
	return value
}
