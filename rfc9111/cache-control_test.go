package rfc9111

import (
	"net/http"
	"testing"
	"time"
)

func TestMaxAge(t *testing.T) {
	cc := ParseCacheControl([]string{"max-age=60"})
	if val, ok := cc.MaxAge(); !ok || val != 60*time.Second {
		t.Fatalf("max-age is %v, ok: %v", val, ok)
	}
}

func TestRealWorldHeader(t *testing.T) {
	cc := ParseCacheControl([]string{"public, max-age=0, s-maxage=600"})
	if !cc.Has("public") {
		t.Fatal("public not found")
	}
	if val, ok := cc.MaxAge(); !ok || val != 0 {
		t.Fatalf("max-age is %v, ok: %v", val, ok)
	}
	if val, ok := cc.SMaxAge(); !ok || val != 600*time.Second {
		t.Fatalf("s-maxage is %v, ok: %v", val, ok)
	}
}

func TestDirectiveNamesCaseInsensitive(t *testing.T) {
	cc := ParseCacheControl([]string{"No-Store, MAX-AGE=10"})
	if !cc.Has("no-store") {
		t.Fatal("no-store not found")
	}
	if val, ok := cc.MaxAge(); !ok || val != 10*time.Second {
		t.Fatalf("max-age is %v, ok: %v", val, ok)
	}
}

func TestMultipleHeaderLinesConcatenated(t *testing.T) {
	cc := ParseCacheControl([]string{"no-cache", "max-age=30"})
	if !cc.Has("no-cache") || !cc.Has("max-age") {
		t.Fatalf("directives missing: %+v", cc)
	}
}

func TestMalformedDeltaSecondsTreatedAsAbsent(t *testing.T) {
	for _, header := range []string{"max-age=abc", "max-age=", "max-age=12x"} {
		cc := ParseCacheControl([]string{header})
		if _, ok := cc.MaxAge(); ok {
			t.Fatalf("%q should parse as absent", header)
		}
	}
}

func TestHugeDeltaSecondsClamped(t *testing.T) {
	cc := ParseCacheControl([]string{"max-age=99999999999999999999"})
	if val, ok := cc.MaxAge(); !ok || val != maxDeltaSeconds {
		t.Fatalf("max-age is %v, ok: %v", val, ok)
	}
}

func TestUnknownDirectivesIgnored(t *testing.T) {
	cc := ParseCacheControl([]string{"some-extension=5, max-age=1"})
	if val, ok := cc.MaxAge(); !ok || val != time.Second {
		t.Fatalf("max-age is %v, ok: %v", val, ok)
	}
}

func TestMaxStaleWithoutValue(t *testing.T) {
	cc := ParseCacheControl([]string{"max-stale"})
	val, ok := cc.MaxStale()
	if !ok {
		t.Fatal("max-stale not found")
	}
	if val != maxDeltaSeconds {
		t.Fatalf("valueless max-stale should allow any staleness, got %v", val)
	}
}

func TestQuotedFieldNames(t *testing.T) {
	cc := ParseCacheControl([]string{`no-cache="Set-Cookie, X-Session"`})
	fields := cc.NoCacheFields()
	if len(fields) != 2 || fields[0] != "Set-Cookie" || fields[1] != "X-Session" {
		t.Fatalf("fields are %v", fields)
	}
}

func TestPragmaNoCacheFallback(t *testing.T) {
	header := http.Header{}
	header.Set("Pragma", "no-cache")
	if cc := RequestCacheControl(header); !cc.Has("no-cache") {
		t.Fatal("Pragma: no-cache should act as Cache-Control: no-cache")
	}

	// Pragma is ignored once Cache-Control is present
	header.Set("Cache-Control", "max-age=5")
	if cc := RequestCacheControl(header); cc.Has("no-cache") {
		t.Fatal("Pragma should be ignored when Cache-Control is present")
	}
}
