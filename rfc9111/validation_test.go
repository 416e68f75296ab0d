package rfc9111

import (
	"errors"
	"net/http"
	"reflect"
	"testing"
)

func TestConditionalHeaders(t *testing.T) {
	stored := http.Header{}
	stored.Set("Etag", `"v1"`)
	stored.Set("Last-Modified", "Sun, 06 Nov 1994 08:49:37 GMT")

	conditional, err := ConditionalHeaders(stored)
	if err != nil {
		t.Fatal(err)
	}
	if got := conditional.Get("If-None-Match"); got != `"v1"` {
		t.Fatalf("If-None-Match is %q", got)
	}
	if got := conditional.Get("If-Modified-Since"); got != "Sun, 06 Nov 1994 08:49:37 GMT" {
		t.Fatalf("If-Modified-Since is %q", got)
	}
}

func TestConditionalHeadersNoValidator(t *testing.T) {
	if _, err := ConditionalHeaders(http.Header{}); !errors.Is(err, ErrNoValidator) {
		t.Fatalf("err is %v, want ErrNoValidator", err)
	}
}

func TestFreshenHeader(t *testing.T) {
	stored := http.Header{}
	stored.Set("Etag", `"v1"`)
	stored.Set("Cache-Control", "max-age=60")
	stored.Set("Content-Length", "5")
	stored.Set("Content-Type", "text/plain")
	stored.Set("Age", "120")

	notModified := http.Header{}
	notModified.Set("Date", testBase.Format(http.TimeFormat))
	notModified.Set("Cache-Control", "max-age=300")
	// a 304 carries no body, so any Content-Length on it is not the
	// stored representation's and must be ignored
	notModified.Set("Content-Length", "0")

	merged := FreshenHeader(stored, notModified, testBase)

	if got := merged.Get("Cache-Control"); got != "max-age=300" {
		t.Fatalf("Cache-Control is %q", got)
	}
	if got := merged.Get("Content-Length"); got != "5" {
		t.Fatalf("Content-Length is %q, the stored value must survive", got)
	}
	if got := merged.Get("Content-Type"); got != "text/plain" {
		t.Fatalf("Content-Type is %q, fields absent from the 304 are retained", got)
	}
	if got := merged.Get("Etag"); got != `"v1"` {
		t.Fatalf("Etag is %q", got)
	}
	if merged.Get("Age") != "" {
		t.Fatal("Age must be dropped after validation")
	}

	// applying the same 304 again changes nothing
	if again := FreshenHeader(merged, notModified, testBase); !reflect.DeepEqual(again, merged) {
		t.Fatalf("merge not idempotent:\n%v\n%v", again, merged)
	}
}

func TestFreshenHeaderSynthesizesDate(t *testing.T) {
	stored := http.Header{}
	stored.Set("Etag", `"v1"`)

	merged := FreshenHeader(stored, http.Header{}, testBase)
	if got := merged.Get("Date"); got != testBase.Format(http.TimeFormat) {
		t.Fatalf("Date is %q", got)
	}
}

func TestHasValidator(t *testing.T) {
	header := http.Header{}
	if HasValidator(header) {
		t.Fatal("no validator present")
	}
	header.Set("Last-Modified", "Sun, 06 Nov 1994 08:49:37 GMT")
	if !HasValidator(header) {
		t.Fatal("Last-Modified is a validator")
	}
}
