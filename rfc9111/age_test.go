package rfc9111

import (
	"net/http"
	"testing"
	"time"
)

func TestCurrentAge(t *testing.T) {
	header := http.Header{}
	header.Set("Date", testBase.Format(http.TimeFormat))

	// a response received the instant it was generated, inspected a
	// minute later, has aged exactly that minute
	age := CurrentAge(header, testBase, testBase, testBase.Add(time.Minute))
	if age != time.Minute {
		t.Fatalf("age is %v, want 1m", age)
	}
}

func TestCurrentAgeUpstreamAge(t *testing.T) {
	header := http.Header{}
	header.Set("Date", testBase.Format(http.TimeFormat))
	header.Set("Age", "100")

	age := CurrentAge(header, testBase, testBase, testBase)
	if age != 100*time.Second {
		t.Fatalf("age is %v, want 100s", age)
	}
}

func TestCurrentAgeAccountsForResponseDelay(t *testing.T) {
	header := http.Header{}
	header.Set("Date", testBase.Format(http.TimeFormat))
	header.Set("Age", "10")

	// the request took 5s to complete, so the corrected age value at
	// reception is 15s
	receivedAt := testBase.Add(5 * time.Second)
	age := CurrentAge(header, testBase, receivedAt, receivedAt)
	if age != 15*time.Second {
		t.Fatalf("age is %v, want 15s", age)
	}
}

func TestCurrentAgeClockSkewClampsToZero(t *testing.T) {
	header := http.Header{}
	// origin clock runs ahead of ours
	header.Set("Date", testBase.Add(time.Hour).Format(http.TimeFormat))

	age := CurrentAge(header, testBase, testBase, testBase)
	if age != 0 {
		t.Fatalf("age is %v, want 0", age)
	}
}

func TestCurrentAgeMissingDate(t *testing.T) {
	age := CurrentAge(http.Header{}, testBase, testBase, testBase.Add(30*time.Second))
	if age != 30*time.Second {
		t.Fatalf("age is %v, want 30s", age)
	}
}

func TestAddAgeHeader(t *testing.T) {
	header := http.Header{}
	header.Set("Date", testBase.Format(http.TimeFormat))
	age := AddAgeHeader(header, testBase, testBase, testBase.Add(42*time.Second))
	if got := header.Get("Age"); got != "42" {
		t.Fatalf("Age is %q, want 42", got)
	}
	if age != 42*time.Second {
		t.Fatalf("returned age is %v, want 42s", age)
	}
}

func TestHTTPDate(t *testing.T) {
	want := time.Date(1994, time.November, 6, 8, 49, 37, 0, time.UTC)
	tests := []string{
		"Sun, 06 Nov 1994 08:49:37 GMT",  // IMF-fixdate
		"Sunday, 06-Nov-94 08:49:37 GMT", // obsolete RFC 850
		"Sun Nov  6 08:49:37 1994",       // obsolete ANSI C asctime
	}
	for _, dateStr := range tests {
		got, err := HTTPDate(dateStr)
		if err != nil {
			t.Fatalf("HTTPDate(%q): %v", dateStr, err)
		}
		if !got.Equal(want) {
			t.Fatalf("HTTPDate(%q) is %v, want %v", dateStr, got, want)
		}
	}
}

func TestHTTPDateRejectsNonGMT(t *testing.T) {
	if _, err := HTTPDate("Sun, 06 Nov 1994 08:49:37 PST"); err == nil {
		t.Fatal("a non-GMT http-date is invalid")
	}
	if _, err := HTTPDate("not a date"); err == nil {
		t.Fatal("garbage should not parse")
	}
}
