package rfc9111

import (
	"net/http"
	"strings"
)

// ListHeader returns the members of a comma-separated list field,
// gathering all lines of the field and trimming whitespace.
func ListHeader(header http.Header, name string) []string {
	var members []string
	for _, line := range header.Values(name) {
		for _, member := range strings.Split(line, ",") {
			if member = strings.TrimSpace(member); member != "" {
				members = append(members, member)
			}
		}
	}
	return members
}

// VaryStar reports whether the response nominates every header with
// "Vary: *", which always fails to match (§4.1).
func VaryStar(resHeader http.Header) bool {
	for _, name := range ListHeader(resHeader, "Vary") {
		if name == "*" {
			return true
		}
	}
	return false
}

// VaryHeaders captures the request header values nominated by the
// response's Vary field, for persisting alongside a stored response.
// Header names are canonicalized and absent headers record as "".
func VaryHeaders(resHeader, reqHeader http.Header) map[string]string {
	var vary map[string]string
	for _, name := range ListHeader(resHeader, "Vary") {
		if vary == nil {
			vary = make(map[string]string)
		}
		vary[http.CanonicalHeaderKey(name)] = reqHeader.Get(name)
	}
	return vary
}

// VaryMatch reports whether the header values recorded at store time
// match the presented request (§4.1). Matching is case-insensitive in
// the header name; a header absent from both sides matches as "".
func VaryMatch(stored map[string]string, reqHeader http.Header) bool {
	for name, value := range stored {
		if name == "*" {
			return false
		}
		if reqHeader.Get(name) != value {
			return false
		}
	}
	return true
}
