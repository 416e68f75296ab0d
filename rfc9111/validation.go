package rfc9111

import (
	"errors"
	"net/http"
	"time"
)

// ErrNoValidator is returned when a stored response carries neither an
// ETag nor a Last-Modified value, so no conditional request can be
// built. Callers fall back to an unconditional forward.
var ErrNoValidator = errors.New("stored response has no validator")

// HasValidator reports whether the stored response can be revalidated.
func HasValidator(header http.Header) bool {
	return header.Get("Etag") != "" || header.Get("Last-Modified") != ""
}

// ConditionalHeaders builds the precondition headers for validating a
// stored response (§4.3.1). Both validators are sent when both are
// present, so old intermediaries that do not understand entity tags
// can still respond appropriately.
func ConditionalHeaders(storedHeader http.Header) (http.Header, error) {
	conditional := make(http.Header)
	if etag := storedHeader.Get("Etag"); etag != "" {
		conditional.Set("If-None-Match", etag)
	}
	if lastModified := storedHeader.Get("Last-Modified"); lastModified != "" {
		conditional.Set("If-Modified-Since", lastModified)
	}
	if len(conditional) == 0 {
		return nil, ErrNoValidator
	}
	return conditional, nil
}

// headers a 304 must never overwrite on the stored response (§3.2)
var freshenExcluded = map[string]bool{
	"Content-Length":      true,
	"Content-Range":       true,
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// FreshenHeader merges the headers of a 304 (Not Modified) response
// into a stored response's headers per §3.2: each field in the 304
// replaces the stored field, fields absent from the 304 are retained,
// and the storage-dependent fields above are never touched. Date is
// synthesized as now when the 304 did not carry one, so age
// calculation restarts from the validation.
//
// The merge is idempotent: applying the same 304 twice yields the same
// header set.
func FreshenHeader(storedHeader, notModifiedHeader http.Header, now time.Time) http.Header {
	merged := storedHeader.Clone()
	for name, values := range notModifiedHeader {
		if freshenExcluded[name] {
			continue
		}
		merged[name] = append([]string(nil), values...)
	}
	if notModifiedHeader.Get("Date") == "" {
		merged.Set("Date", now.UTC().Format(http.TimeFormat))
	}
	// the merged response is served from storage, and a stored Age no
	// longer reflects it once validated
	merged.Del("Age")
	return merged
}
