// Package cachekey derives stable cache keys from requests.
package cachekey

import (
	"net/http"
	"net/url"
	"strings"
)

const methodSeparator = ":"

// CacheKeyer turns requests into deterministic cache keys.
// The same logical request always yields the same key; representation
// variants selected by Vary share one key and are disambiguated by the
// vary data recorded in the stored entry.
type CacheKeyer struct{}

// ForRequest returns the cache key for a request:
// the method plus the normalized absolute URL.
func (c CacheKeyer) ForRequest(r *http.Request) string {
	return r.Method + methodSeparator + normalizeURL(r.URL)
}

// ForURL returns the cache key a request with the given method for the
// given URL would produce. Invalidation of Location targets uses this.
func (c CacheKeyer) ForURL(method, rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return method + methodSeparator + normalizeURL(u)
	}
	return method + methodSeparator + rawURL
}

// normalizeURL canonicalizes the parts of a URL that do not change the
// target resource: scheme and host casing, default ports, empty path
// and the fragment.
func normalizeURL(u *url.URL) string {
	norm := *u
	norm.Scheme = strings.ToLower(norm.Scheme)
	norm.Host = strings.ToLower(norm.Host)
	if port := defaultPort(norm.Scheme); port != "" {
		norm.Host = strings.TrimSuffix(norm.Host, port)
	}
	if norm.Path == "" {
		norm.Path = "/"
	}
	norm.Fragment = ""
	return norm.String()
}

func defaultPort(scheme string) string {
	switch scheme {
	case "http":
		return ":80"
	case "https":
		return ":443"
	}
	return ""
}
