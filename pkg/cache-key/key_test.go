package cachekey

import (
	"net/http"
	"net/url"
	"testing"
)

func keyRequest(t *testing.T, method, rawURL string) *http.Request {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Request{Method: method, URL: u}
}

func TestForRequest(t *testing.T) {
	keyer := CacheKeyer{}

	tests := []struct {
		name   string
		method string
		url    string
		key    string
	}{
		{
			name:   "plain",
			method: "GET",
			url:    "https://example.com/path?b=2",
			key:    "GET:https://example.com/path?b=2",
		},
		{
			name:   "host and scheme lowercased",
			method: "GET",
			url:    "HTTPS://EXAMPLE.com/path",
			key:    "GET:https://example.com/path",
		},
		{
			name:   "default port stripped",
			method: "GET",
			url:    "https://example.com:443/path",
			key:    "GET:https://example.com/path",
		},
		{
			name:   "non-default port kept",
			method: "GET",
			url:    "https://example.com:8443/path",
			key:    "GET:https://example.com:8443/path",
		},
		{
			name:   "empty path becomes root",
			method: "GET",
			url:    "https://example.com",
			key:    "GET:https://example.com/",
		},
		{
			name:   "fragment dropped",
			method: "GET",
			url:    "https://example.com/path#section",
			key:    "GET:https://example.com/path",
		},
		{
			name:   "method is part of the key",
			method: "HEAD",
			url:    "https://example.com/path",
			key:    "HEAD:https://example.com/path",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keyer.ForRequest(keyRequest(t, tt.method, tt.url)); got != tt.key {
				t.Fatalf("key is %q, want %q", got, tt.key)
			}
		})
	}
}

func TestForRequestDeterministic(t *testing.T) {
	keyer := CacheKeyer{}
	req := keyRequest(t, "GET", "https://example.com/path")
	if keyer.ForRequest(req) != keyer.ForRequest(req) {
		t.Fatal("key not stable")
	}
}

func TestForURLAgreesWithForRequest(t *testing.T) {
	keyer := CacheKeyer{}
	rawURL := "https://Example.com:443/path?x=1"
	if keyer.ForURL("GET", rawURL) != keyer.ForRequest(keyRequest(t, "GET", rawURL)) {
		t.Fatal("the two derivations disagree")
	}
}
