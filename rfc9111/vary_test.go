package rfc9111

import (
	"net/http"
	"testing"
)

func TestVaryHeaders(t *testing.T) {
	resHeader := http.Header{}
	resHeader.Set("Vary", "accept-encoding, Accept-Language")

	reqHeader := http.Header{}
	reqHeader.Set("Accept-Encoding", "gzip")

	vary := VaryHeaders(resHeader, reqHeader)
	if vary["Accept-Encoding"] != "gzip" {
		t.Fatalf("vary is %v", vary)
	}
	// a nominated header the request did not send records as empty
	if value, ok := vary["Accept-Language"]; !ok || value != "" {
		t.Fatalf("vary is %v", vary)
	}
}

func TestVaryHeadersNoVary(t *testing.T) {
	if vary := VaryHeaders(http.Header{}, http.Header{}); vary != nil {
		t.Fatalf("vary is %v, want nil", vary)
	}
}

func TestVaryMatch(t *testing.T) {
	stored := map[string]string{"Accept-Encoding": "gzip"}

	match := http.Header{}
	match.Set("Accept-Encoding", "gzip")
	if !VaryMatch(stored, match) {
		t.Fatal("same value should match")
	}

	mismatch := http.Header{}
	mismatch.Set("Accept-Encoding", "br")
	if VaryMatch(stored, mismatch) {
		t.Fatal("different value should not match")
	}

	// absent on both sides matches
	if !VaryMatch(map[string]string{"Accept-Language": ""}, http.Header{}) {
		t.Fatal("absent on both sides should match")
	}

	if VaryMatch(map[string]string{"*": ""}, http.Header{}) {
		t.Fatal("Vary: * never matches")
	}
}

func TestVaryStar(t *testing.T) {
	header := http.Header{}
	header.Set("Vary", "Accept-Encoding, *")
	if !VaryStar(header) {
		t.Fatal("star not detected")
	}
	header.Set("Vary", "Accept-Encoding")
	if VaryStar(header) {
		t.Fatal("false positive")
	}
}
