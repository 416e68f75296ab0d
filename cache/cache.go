package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

var (
	// ErrNotFound is returned by Get when no entry exists for the key.
	ErrNotFound = errors.New("cache entry not found")
)

// Cache is the storage contract the caching layer depends on.
// It stores opaque entries keyed by strings and makes no freshness
// decisions of its own. Caching is best-effort: callers treat a failed
// Get as a miss and a failed Set or Delete as a no-op.
//
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the entry stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (*Entry, error)
	// Set stores the entry under key, replacing any previous entry.
	Set(ctx context.Context, key string, entry *Entry) error
	// Delete removes the entry stored under key.
	// Deleting a nonexistent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Entry is the stored representation of a response.
// It records everything needed to reconstruct the response and to make
// reuse decisions later: the response itself, the validator-bearing
// headers, the request header values selected by Vary, and the request
// and response timestamps used for age calculation.
type Entry struct {
	Method     string      `msgpack:"method"`
	URL        string      `msgpack:"url"`
	StatusCode int         `msgpack:"status"`
	Header     http.Header `msgpack:"header"`
	Body       []byte      `msgpack:"body"`
	// Vary maps the header names nominated by the response's Vary field
	// to the request values seen when the entry was stored.
	// Lookups must match these values for the entry to be usable.
	Vary map[string]string `msgpack:"vary"`
	// RequestedAt is the clock value when the request was initiated.
	RequestedAt time.Time `msgpack:"requested_at"`
	// ReceivedAt is the clock value when the response was received.
	// It doubles as the storage timestamp when the Date header is missing.
	ReceivedAt time.Time `msgpack:"received_at"`
}

// Response reconstructs an http.Response from the entry.
// The header map is cloned so callers may mutate it freely.
func (e *Entry) Response() *http.Response {
	return &http.Response{
		StatusCode:    e.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
	}
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	clone := *e
	clone.Header = e.Header.Clone()
	clone.Body = append([]byte(nil), e.Body...)
	if e.Vary != nil {
		clone.Vary = make(map[string]string, len(e.Vary))
		for k, v := range e.Vary {
			clone.Vary[k] = v
		}
	}
	return &clone
}
