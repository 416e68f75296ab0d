package rfc9111

import "net/http"

// cacheableStatusCodes are the final status codes a cache may store
// (§3 and the heuristically-cacheable set of RFC 9110 §15.1).
// 206 and 304 are deliberately missing: partial content is not
// combined by this cache and 304 freshens an existing entry instead
// of being stored on its own.
var cacheableStatusCodes = map[int]bool{
	200: true,
	203: true,
	204: true,
	300: true,
	301: true,
	308: true,
	404: true,
	405: true,
	410: true,
	414: true,
	501: true,
}

// StatusCacheable reports whether a response status code is on the
// store allow-list.
func StatusCacheable(statusCode int) bool {
	return cacheableStatusCodes[statusCode]
}

// UnsafeMethod reports whether a request method can change state on
// the origin. Responses to unsafe methods are written through and
// invalidate stored responses for the target URI (§4.4).
func UnsafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead:
		return false
	}
	return true
}

// MayStore reports whether a response to the given request is allowed
// into the cache at all (§3). Freshness does not matter here: a
// response that is storable but already stale is still useful for its
// validators.
func MayStore(req *http.Request, res *http.Response, shared bool) bool {
	if UnsafeMethod(req.Method) {
		return false
	}
	if !StatusCacheable(res.StatusCode) {
		return false
	}

	reqCC := RequestCacheControl(req.Header)
	resCC := ParseCacheControl(res.Header.Values("Cache-Control"))

	// §  the no-store cache directive is not present in the response
	// the request directive equally forbids storing this exchange
	if resCC.Has("no-store") || reqCC.Has("no-store") {
		return false
	}
	if shared && resCC.Has("private") {
		return false
	}
	// §  if the cache is shared: the Authorization header field is not
	// §  present in the request or a response directive is present that
	// §  explicitly allows shared caching
	if shared && req.Header.Get("Authorization") != "" &&
		!resCC.Has("public") && !resCC.Has("s-maxage") && !resCC.Has("must-revalidate") {
		return false
	}
	// §  A Vary header field value of "*" always fails to match.
	// Such an entry could never be reused, so don't store it.
	if VaryStar(res.Header) {
		return false
	}
	return true
}
