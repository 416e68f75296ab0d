// Package httpcaching provides an HTTP-semantics-aware caching layer
// that sits between an application and an HTTP transport.
//
// The caching decisions themselves live in the policy package and are
// pure; this package is the blocking orchestration wrapper that drives
// them against a storage backend and a wrapped http.RoundTripper.
package httpcaching

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/johtso/http-caching/cache"
	cachekey "github.com/johtso/http-caching/pkg/cache-key"
	"github.com/johtso/http-caching/policy"
	"github.com/johtso/http-caching/rfc9111"
	"github.com/johtso/http-caching/rfc9211"
)

// Config configures a caching Transport.
type Config struct {
	// Cache is the storage backend. Required.
	Cache cache.Cache
	// Transport performs the actual network round trips.
	// http.DefaultTransport is used if nil.
	Transport http.RoundTripper
	// Shared puts the cache in shared mode: s-maxage is honored and
	// private responses are refused.
	Shared bool
	// Heuristic optionally rewrites response headers before the store
	// decision, e.g. to assign freshness to responses that have none.
	Heuristic Heuristic
	// Logger to use. The global zerolog logger is used if nil.
	Logger *zerolog.Logger
}

// Transport is an http.RoundTripper that serves responses from a cache
// when HTTP caching semantics allow it, revalidates stale entries with
// conditional requests, and stores cacheable responses.
//
// A Transport is safe for concurrent use. Writes to the same key race
// benignly: last store wins, and every stored response is one the
// origin produced.
type Transport struct {
	transport http.RoundTripper
	cache     cache.Cache
	keyer     cachekey.CacheKeyer
	mode      policy.Mode
	heuristic Heuristic
	log       zerolog.Logger

	// coalesces concurrent background revalidations per key
	revalidations singleflight.Group

	now func() time.Time
}

// New creates a caching Transport from the config.
func New(config Config) *Transport {
	transport := config.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}
	mode := policy.Private
	if config.Shared {
		mode = policy.Shared
	}
	return &Transport{
		transport: transport,
		cache:     config.Cache,
		mode:      mode,
		heuristic: config.Heuristic,
		log:       logger,
		now:       time.Now,
	}
}

// RoundTrip implements the http.RoundTripper interface.
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	key := t.keyer.ForRequest(r)

	entry := t.lookup(ctx, key)
	decision := policy.OnRequest(r, entry, t.now(), t.mode)
	if decision.Purge {
		t.delete(ctx, key)
	}

	log := t.log.With().Str("key", key).Logger()
	log.Trace().
		Int("action", int(decision.Action)).
		Str("fwd", string(decision.FwdReason)).
		Msg("Request decision")

	switch decision.Action {
	case policy.Serve:
		return t.serveStored(r, entry, nil), nil

	case policy.ServeAndRevalidate:
		t.revalidateInBackground(key, r, entry, decision.ConditionalHeaders)
		cs := rfc9211.CacheStatus{}
		cs.Detail("revalidating")
		return t.serveStored(r, entry, &cs), nil

	case policy.OnlyIfCachedMiss:
		return gatewayTimeout(r, decision.FwdReason), nil

	case policy.Revalidate:
		return t.revalidate(r, key, entry, decision)

	default: // Bypass, Forward
		return t.forward(r, key, entry, decision)
	}
}

// forward performs an unconditional network fetch and applies the
// response decision (store, invalidate or nothing).
func (t *Transport) forward(r *http.Request, key string, prior *cache.Entry, reqDecision policy.RequestDecision) (*http.Response, error) {
	requestedAt := t.now()
	res, err := t.transport.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	receivedAt := t.now()

	res, body, readErr := bufferBody(res)
	if readErr != nil {
		return nil, readErr
	}
	t.applyHeuristic(res)

	decision := policy.OnResponse(r, res, body, prior, requestedAt, receivedAt, t.mode)
	stored := t.applyResponseDecision(r.Context(), key, r, decision)

	cs := rfc9211.CacheStatus{Stored: stored}
	cs.Forward(reqDecision.FwdReason)
	res.Header.Set("Cache-Status", cs.String())
	return res, nil
}

// revalidate performs a conditional fetch for a stale entry. A 304
// freshens and re-serves the stored response; a full response replaces
// it. Transport and server errors fall back to the stale entry when
// stale-if-error allows.
func (t *Transport) revalidate(r *http.Request, key string, entry *cache.Entry, reqDecision policy.RequestDecision) (*http.Response, error) {
	conditional := cloneWithHeaders(r, reqDecision.ConditionalHeaders)

	requestedAt := t.now()
	res, err := t.transport.RoundTrip(conditional)
	if err != nil {
		if stale := t.staleFallback(r, entry); stale != nil {
			t.log.Debug().Str("key", key).Err(err).
				Msg("Serving stale response after transport error")
			return stale, nil
		}
		return nil, err
	}
	receivedAt := t.now()

	if res.StatusCode >= 500 {
		if stale := t.staleFallback(r, entry); stale != nil {
			drain(res)
			t.log.Debug().Str("key", key).Int("status", res.StatusCode).
				Msg("Serving stale response after server error")
			return stale, nil
		}
	}

	res, body, readErr := bufferBody(res)
	if readErr != nil {
		return nil, readErr
	}
	t.applyHeuristic(res)

	decision := policy.OnResponse(r, res, body, entry, requestedAt, receivedAt, t.mode)
	stored := t.applyResponseDecision(r.Context(), key, r, decision)

	if decision.Action == policy.MergeAndStore {
		// the stored representation answers the request
		cs := rfc9211.CacheStatus{}
		cs.Detail("revalidated")
		return t.serveStored(r, decision.Entry, &cs), nil
	}

	cs := rfc9211.CacheStatus{Stored: stored}
	cs.Forward(reqDecision.FwdReason)
	res.Header.Set("Cache-Status", cs.String())
	return res, nil
}

// revalidateInBackground refreshes a stale-while-revalidate entry
// without blocking the caller. Concurrent refreshes of the same key
// collapse into one network request.
func (t *Transport) revalidateInBackground(key string, r *http.Request, entry *cache.Entry, conditionalHeaders http.Header) {
	req := cloneWithHeaders(r, conditionalHeaders)
	// the original request's context ends when its caller is answered
	req = req.WithContext(context.Background())

	go func() {
		_, err, _ := t.revalidations.Do(key, func() (interface{}, error) {
			requestedAt := t.now()
			res, err := t.transport.RoundTrip(req)
			if err != nil {
				return nil, err
			}
			receivedAt := t.now()
			res, body, readErr := bufferBody(res)
			if readErr != nil {
				return nil, readErr
			}
			t.applyHeuristic(res)
			decision := policy.OnResponse(req, res, body, entry, requestedAt, receivedAt, t.mode)
			t.applyResponseDecision(context.Background(), key, req, decision)
			return nil, nil
		})
		if err != nil {
			// the stale entry stays valid to serve; nothing to undo
			t.log.Warn().Str("key", key).Err(err).Msg("Background revalidation failed")
		}
	}()
}

// applyResponseDecision persists the outcome of a response decision.
// Storage failures are logged and swallowed: caching is best-effort.
func (t *Transport) applyResponseDecision(ctx context.Context, key string, r *http.Request, decision policy.ResponseDecision) bool {
	switch decision.Action {
	case policy.Store, policy.MergeAndStore:
		if err := t.cache.Set(ctx, key, decision.Entry); err != nil {
			t.log.Warn().Str("key", key).Err(err).Msg("Could not write to cache")
			return false
		}
		return true
	case policy.Invalidate:
		t.delete(ctx, key)
		for _, rawURL := range decision.InvalidateURLs {
			t.delete(ctx, t.keyer.ForURL(http.MethodGet, rawURL))
			t.delete(ctx, t.keyer.ForURL(http.MethodHead, rawURL))
		}
		// the unsafe method's own target is keyed under GET/HEAD
		t.delete(ctx, t.keyer.ForURL(http.MethodGet, r.URL.String()))
		t.delete(ctx, t.keyer.ForURL(http.MethodHead, r.URL.String()))
	}
	return false
}

// serveStored constructs the client-facing response from a stored
// entry, adding the mandatory Age header and a Cache-Status hit.
func (t *Transport) serveStored(r *http.Request, entry *cache.Entry, cs *rfc9211.CacheStatus) *http.Response {
	res := entry.Response()
	res.Request = r
	now := t.now()
	age := rfc9111.AddAgeHeader(res.Header, entry.RequestedAt, entry.ReceivedAt, now)

	if cs == nil {
		cs = &rfc9211.CacheStatus{}
	}
	cs.Hit()
	lifetime := rfc9111.FreshnessLifetime(res, entry.ReceivedAt, t.mode == policy.Shared)
	if ttl := lifetime - age; ttl > 0 {
		cs.TimeToLive = int(ttl / time.Second)
	}
	res.Header.Set("Cache-Status", cs.String())
	return res
}

// staleFallback returns the stored response if it may stand in for a
// failed revalidation, or nil.
func (t *Transport) staleFallback(r *http.Request, entry *cache.Entry) *http.Response {
	if entry == nil {
		return nil
	}
	res := entry.Response()
	if !rfc9111.StaleIfErrorUsable(res, entry.RequestedAt, entry.ReceivedAt, t.now(), t.mode == policy.Shared) {
		return nil
	}
	cs := rfc9211.CacheStatus{}
	cs.Detail("stale-if-error")
	return t.serveStored(r, entry, &cs)
}

// lookup treats every storage failure as a miss.
func (t *Transport) lookup(ctx context.Context, key string) *cache.Entry {
	entry, err := t.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			t.log.Warn().Str("key", key).Err(err).Msg("Could not read from cache")
		}
		return nil
	}
	return entry
}

// delete is best-effort.
func (t *Transport) delete(ctx context.Context, key string) {
	if err := t.cache.Delete(ctx, key); err != nil {
		t.log.Warn().Str("key", key).Err(err).Msg("Could not delete from cache")
	}
}

func (t *Transport) applyHeuristic(res *http.Response) {
	if t.heuristic != nil && res.StatusCode != http.StatusNotModified {
		t.heuristic.Apply(res.StatusCode, res.Header)
	}
}

// bufferBody reads the response body into memory so it can be both
// stored and returned, and rewinds the response around the buffer.
func bufferBody(res *http.Response) (*http.Response, []byte, error) {
	if res.Body == nil {
		return res, nil, nil
	}
	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		return res, nil, err
	}
	res.Body = io.NopCloser(bytes.NewReader(body))
	return res, body, nil
}

func drain(res *http.Response) {
	if res.Body != nil {
		io.Copy(io.Discard, res.Body)
		res.Body.Close()
	}
}

// cloneWithHeaders clones a request and sets the given headers on the
// clone, leaving the caller's request untouched.
func cloneWithHeaders(r *http.Request, headers http.Header) *http.Request {
	clone := r.Clone(r.Context())
	for name, values := range headers {
		clone.Header[name] = append([]string(nil), values...)
	}
	return clone
}

// gatewayTimeout answers an only-if-cached request that found no
// usable entry, without touching the network.
func gatewayTimeout(r *http.Request, reason rfc9211.FwdReason) *http.Response {
	cs := rfc9211.CacheStatus{}
	cs.Forward(reason)
	cs.Detail("only-if-cached")
	header := make(http.Header)
	header.Set("Cache-Status", cs.String())
	return &http.Response{
		StatusCode: http.StatusGatewayTimeout,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(nil)),
		Request:    r,
	}
}
