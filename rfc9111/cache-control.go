// Package rfc9111 implements the HTTP caching semantics of RFC 9111
// as pure functions over request and response metadata.
// Nothing in this package performs I/O or consults a clock of its own;
// the current time is always an argument.
package rfc9111

import (
	"net/http"
	"strings"
	"time"
)

// CacheControl implements parsing of the "Cache-Control" field.
//
// §  Cache directives are identified by a token, to be compared
// §  case-insensitively, and have an optional argument that can use
// §  both token and quoted-string syntax.
type CacheControl struct {
	directives map[string]string
}

// ParseCacheControl parses Cache-Control header lines into a CacheControl.
// Multiple header lines are treated as a single comma-separated list.
// Unknown directives are retained so extensions stay visible to callers;
// lookups for them simply return false elsewhere.
func ParseCacheControl(headers []string) CacheControl {
	m := make(map[string]string)
	// last occurrence of a repeated directive wins
	for _, header := range headers {
		for _, directive := range splitDirectives(header) {
			directive = strings.TrimSpace(directive)
			if directive == "" {
				continue
			}
			parts := strings.SplitN(directive, "=", 2)
			name := strings.ToLower(strings.TrimSpace(parts[0]))
			var arg string
			if len(parts) > 1 {
				// accept both token and quoted-string argument forms
				arg = strings.Trim(strings.TrimSpace(parts[1]), "\"")
			}
			m[name] = arg
		}
	}
	return CacheControl{m}
}

// RequestCacheControl parses the cache directives of a request.
//
// §  When the Cache-Control header field is not present in a request,
// §  caches MUST consider the no-cache request pragma-directive as
// §  having the same effect as if "Cache-Control: no-cache" were present.
func RequestCacheControl(header http.Header) CacheControl {
	if _, ok := header["Cache-Control"]; !ok {
		if strings.Contains(strings.ToLower(header.Get("Pragma")), "no-cache") {
			return CacheControl{map[string]string{"no-cache": ""}}
		}
	}
	return ParseCacheControl(header.Values("Cache-Control"))
}

// splitDirectives splits a Cache-Control value on commas, leaving
// commas inside quoted-string arguments intact.
func splitDirectives(header string) []string {
	var parts []string
	var quoted bool
	start := 0
	for i := 0; i < len(header); i++ {
		switch header[i] {
		case '"':
			quoted = !quoted
		case '\\':
			if quoted && i+1 < len(header) {
				i++
			}
		case ',':
			if !quoted {
				parts = append(parts, header[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, header[start:])
}

// Get returns the argument of the specified directive,
// along with a boolean indicating whether the directive is present.
func (c CacheControl) Get(directive string) (string, bool) {
	val, ok := c.directives[directive]
	return val, ok
}

// Has returns whether the specified directive is present.
func (c CacheControl) Has(directive string) bool {
	_, ok := c.directives[directive]
	return ok
}

func (c CacheControl) MaxAge() (time.Duration, bool) {
	return c.deltaSeconds("max-age")
}

func (c CacheControl) SMaxAge() (time.Duration, bool) {
	return c.deltaSeconds("s-maxage")
}

func (c CacheControl) MinFresh() (time.Duration, bool) {
	return c.deltaSeconds("min-fresh")
}

// MaxStale returns the staleness a client is willing to accept.
//
// §  If no value is assigned to max-stale, then the client will accept
// §  a stale response of any age.
func (c CacheControl) MaxStale() (time.Duration, bool) {
	arg, ok := c.Get("max-stale")
	if !ok {
		return 0, false
	}
	if arg == "" {
		return maxDeltaSeconds, true
	}
	return c.deltaSeconds("max-stale")
}

func (c CacheControl) StaleWhileRevalidate() (time.Duration, bool) {
	return c.deltaSeconds("stale-while-revalidate")
}

func (c CacheControl) StaleIfError() (time.Duration, bool) {
	return c.deltaSeconds("stale-if-error")
}

// NoCacheFields returns the field names of a qualified no-cache
// directive, e.g. `no-cache="set-cookie"`. An unqualified no-cache
// returns an empty list.
func (c CacheControl) NoCacheFields() []string {
	return c.fieldList("no-cache")
}

// PrivateFields returns the field names of a qualified private directive.
func (c CacheControl) PrivateFields() []string {
	return c.fieldList("private")
}

func (c CacheControl) fieldList(directive string) []string {
	arg, ok := c.Get(directive)
	if !ok || arg == "" {
		return nil
	}
	var fields []string
	for _, f := range strings.Split(arg, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, http.CanonicalHeaderKey(f))
		}
	}
	return fields
}

// deltaSeconds returns the directive argument as a duration, along with
// a boolean indicating whether the directive was present with a valid
// value. Malformed values are treated as if the directive were absent.
func (c CacheControl) deltaSeconds(directive string) (time.Duration, bool) {
	secondsStr, ok := c.Get(directive)
	if !ok || secondsStr == "" {
		return 0, false
	}
	d, err := parseDeltaSeconds(secondsStr)
	if err != nil {
		return 0, false
	}
	return d, true
}
