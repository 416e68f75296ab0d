// Package policy is the cache-control decision engine.
//
// Its two entry points, OnRequest and OnResponse, are pure functions:
// they consume request/response metadata, the optional stored entry and
// the current time, and produce a decision. They never touch the
// network, storage or a clock of their own, so an orchestrator in any
// concurrency model can drive them.
package policy

import (
	"net/http"
	"net/url"
	"time"

	"github.com/johtso/http-caching/cache"
	"github.com/johtso/http-caching/rfc9111"
	"github.com/johtso/http-caching/rfc9211"
)

// Mode distinguishes a private (single-user) cache from a shared one.
// Shared caches honor s-maxage and refuse private responses.
type Mode int

const (
	Private Mode = iota
	Shared
)

// RequestAction is what the orchestrator must do with an incoming
// request.
type RequestAction int

const (
	// Bypass forwards the request untouched; the response will not be
	// served from nor written to the cache (it may still invalidate).
	Bypass RequestAction = iota
	// Forward performs an unconditional fetch.
	Forward
	// Serve answers from the stored entry with no network call.
	Serve
	// ServeAndRevalidate answers from the stored entry and starts a
	// non-blocking background revalidation (stale-while-revalidate).
	ServeAndRevalidate
	// Revalidate performs a conditional fetch with the decision's
	// ConditionalHeaders attached.
	Revalidate
	// OnlyIfCachedMiss means the request demanded only-if-cached and no
	// usable entry exists: answer 504-like without touching the network.
	OnlyIfCachedMiss
)

// RequestDecision is the outcome of OnRequest. Transient: never stored.
type RequestDecision struct {
	Action RequestAction
	// ConditionalHeaders carries the precondition headers for
	// Revalidate and, when a validator exists, ServeAndRevalidate.
	ConditionalHeaders http.Header
	// Purge is set when the stored entry is unusable beyond repair
	// (no date, no validator) and should be deleted.
	Purge bool
	// FwdReason explains a non-Serve action in Cache-Status terms.
	FwdReason rfc9211.FwdReason
}

// ResponseAction is what the orchestrator must do with a network
// response.
type ResponseAction int

const (
	// Ignore caches nothing and leaves any stored entry alone.
	Ignore ResponseAction = iota
	// Store writes the decision's Entry under the request's key.
	Store
	// MergeAndStore writes the decision's Entry, which is the prior
	// entry freshened by a 304.
	MergeAndStore
	// Invalidate deletes the entry for the request's key, plus any
	// entries for the decision's InvalidateURLs.
	Invalidate
)

// ResponseDecision is the outcome of OnResponse.
type ResponseDecision struct {
	Action ResponseAction
	// Entry is the representation to persist for Store and
	// MergeAndStore.
	Entry *cache.Entry
	// InvalidateURLs lists additional same-origin URIs (from Location
	// and Content-Location) whose entries must be invalidated.
	InvalidateURLs []string
}

// OnRequest decides how to satisfy a request given the stored entry
// for its key, if any. entry may be nil. The stored entry's Vary data
// must already have been recorded at store time; a mismatch here is a
// miss, not an error.
func OnRequest(req *http.Request, entry *cache.Entry, now time.Time, mode Mode) RequestDecision {
	reqCC := rfc9111.RequestCacheControl(req.Header)

	// unsafe methods are always written through
	if rfc9111.UnsafeMethod(req.Method) {
		return RequestDecision{Action: Bypass, FwdReason: rfc9211.FwdReasonMethod}
	}
	if reqCC.Has("no-store") {
		return RequestDecision{Action: Bypass, FwdReason: rfc9211.FwdReasonBypass}
	}

	decision := decideReuse(req, reqCC, entry, now, mode)

	// §  only-if-cached: the client only wishes to obtain a stored
	// §  response; the cache SHOULD respond using a stored response or
	// §  a 504 (Gateway Timeout) status, not forward the request
	if reqCC.Has("only-if-cached") {
		switch decision.Action {
		case Serve, ServeAndRevalidate:
		default:
			return RequestDecision{Action: OnlyIfCachedMiss, FwdReason: decision.FwdReason}
		}
	}
	return decision
}

func decideReuse(req *http.Request, reqCC rfc9111.CacheControl, entry *cache.Entry, now time.Time, mode Mode) RequestDecision {
	if entry == nil {
		return RequestDecision{Action: Forward, FwdReason: rfc9211.FwdReasonUriMiss}
	}
	if !rfc9111.VaryMatch(entry.Vary, req.Header) {
		return RequestDecision{Action: Forward, FwdReason: rfc9211.FwdReasonVaryMiss}
	}

	res := entry.Response()

	// A permanent redirect is intrinsically reusable; freshness and
	// validators do not apply. Clients refresh it with no-cache.
	if isPermanentRedirect(entry.StatusCode) && !forcesValidation(reqCC) {
		return RequestDecision{Action: Serve}
	}

	// An entry with neither date information nor a validator can never
	// be served nor revalidated again.
	if res.Header.Get("Date") == "" && !rfc9111.HasValidator(res.Header) {
		return RequestDecision{Action: Forward, Purge: true, FwdReason: rfc9211.FwdReasonMiss}
	}

	// request insists on an end-to-end reload or revalidation
	if forcesValidation(reqCC) {
		return revalidateOrForward(res, rfc9211.FwdReasonRequest)
	}

	shared := mode == Shared
	switch rfc9111.Evaluate(res, entry.RequestedAt, entry.ReceivedAt, now, shared) {
	case rfc9111.Fresh:
		if satisfiesRequestFreshness(res, reqCC, entry, now, shared) {
			return RequestDecision{Action: Serve}
		}
		return revalidateOrForward(res, rfc9211.FwdReasonRequest)
	case rfc9111.StaleWhileRevalidate:
		decision := RequestDecision{Action: ServeAndRevalidate, FwdReason: rfc9211.FwdReasonStale}
		if conditional, err := rfc9111.ConditionalHeaders(res.Header); err == nil {
			decision.ConditionalHeaders = conditional
		}
		return decision
	default:
		if rfc9111.AllowsStale(res, reqCC, entry.RequestedAt, entry.ReceivedAt, now, shared) {
			return RequestDecision{Action: Serve}
		}
		return revalidateOrForward(res, rfc9211.FwdReasonStale)
	}
}

// revalidateOrForward prefers a cheap conditional request over a full
// fetch whenever the stored response carries a validator.
func revalidateOrForward(res *http.Response, reason rfc9211.FwdReason) RequestDecision {
	conditional, err := rfc9111.ConditionalHeaders(res.Header)
	if err != nil {
		return RequestDecision{Action: Forward, FwdReason: reason}
	}
	return RequestDecision{Action: Revalidate, ConditionalHeaders: conditional, FwdReason: reason}
}

// forcesValidation reports whether the request forbids serving any
// stored response without contacting the origin.
func forcesValidation(reqCC rfc9111.CacheControl) bool {
	if reqCC.Has("no-cache") {
		return true
	}
	maxAge, ok := reqCC.MaxAge()
	return ok && maxAge == 0
}

// satisfiesRequestFreshness checks the client's max-age and min-fresh
// constraints against a response that is fresh by the response's own
// directives (§5.2.1).
func satisfiesRequestFreshness(res *http.Response, reqCC rfc9111.CacheControl, entry *cache.Entry, now time.Time, shared bool) bool {
	age := rfc9111.CurrentAge(res.Header, entry.RequestedAt, entry.ReceivedAt, now)
	if maxAge, ok := reqCC.MaxAge(); ok && age >= maxAge {
		return false
	}
	if minFresh, ok := reqCC.MinFresh(); ok {
		lifetime := rfc9111.FreshnessLifetime(res, entry.ReceivedAt, shared)
		if age+minFresh >= lifetime {
			return false
		}
	}
	return true
}

// OnResponse decides what to do with a response received from the
// network. prior is the stored entry this request was trying to
// revalidate, or nil. requestedAt is when the network request was
// initiated; now is when the response arrived.
func OnResponse(req *http.Request, res *http.Response, body []byte, prior *cache.Entry, requestedAt, now time.Time, mode Mode) ResponseDecision {
	// §  A cache MUST invalidate the target URI when it receives a
	// §  non-error status code in response to an unsafe request method.
	if rfc9111.UnsafeMethod(req.Method) {
		if invalidatingStatus(res.StatusCode) {
			return ResponseDecision{
				Action:         Invalidate,
				InvalidateURLs: sameOriginLocations(req, res),
			}
		}
		return ResponseDecision{Action: Ignore}
	}

	if res.StatusCode == http.StatusNotModified {
		if prior == nil {
			// a 304 with nothing to freshen cannot satisfy anyone
			return ResponseDecision{Action: Ignore}
		}
		merged := prior.Clone()
		merged.Header = rfc9111.FreshenHeader(prior.Header, res.Header, now)
		merged.Vary = rfc9111.VaryHeaders(merged.Header, req.Header)
		merged.RequestedAt = requestedAt
		merged.ReceivedAt = now
		return ResponseDecision{Action: MergeAndStore, Entry: merged}
	}

	reqCC := rfc9111.RequestCacheControl(req.Header)
	resCC := rfc9111.ParseCacheControl(res.Header.Values("Cache-Control"))
	if resCC.Has("no-store") || reqCC.Has("no-store") {
		// no-store wins over everything, including an existing entry
		if prior != nil {
			return ResponseDecision{Action: Invalidate}
		}
		return ResponseDecision{Action: Ignore}
	}

	if !rfc9111.MayStore(req, res, mode == Shared) {
		return ResponseDecision{Action: Ignore}
	}

	return ResponseDecision{Action: Store, Entry: &cache.Entry{
		Method:      req.Method,
		URL:         req.URL.String(),
		StatusCode:  res.StatusCode,
		Header:      res.Header.Clone(),
		Body:        body,
		Vary:        rfc9111.VaryHeaders(res.Header, req.Header),
		RequestedAt: requestedAt,
		ReceivedAt:  now,
	}}
}

// invalidatingStatus reports whether a response to an unsafe method
// warrants invalidation: any non-error response, plus auth failures
// that indicate the stored representation is out of reach.
func invalidatingStatus(statusCode int) bool {
	if statusCode < 400 {
		return true
	}
	return statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden
}

// sameOriginLocations collects Location and Content-Location targets
// on the request's origin. Cross-origin URIs are never invalidated.
func sameOriginLocations(req *http.Request, res *http.Response) []string {
	var urls []string
	for _, name := range []string{"Location", "Content-Location"} {
		value := res.Header.Get(name)
		if value == "" {
			continue
		}
		ref, err := url.Parse(value)
		if err != nil {
			continue
		}
		abs := req.URL.ResolveReference(ref)
		if abs.Scheme == req.URL.Scheme && abs.Host == req.URL.Host {
			urls = append(urls, abs.String())
		}
	}
	return urls
}

func isPermanentRedirect(statusCode int) bool {
	return statusCode == http.StatusMovedPermanently || statusCode == http.StatusPermanentRedirect
}
