package cache

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Serialized entries carry a version prefix so the on-disk format can
// evolve without poisoning persistent caches. Unknown versions decode
// as a miss rather than an error.
var formatPrefix = []byte("hc=1,")

// EncodeEntry serializes an entry for storage.
func EncodeEntry(entry *Entry) ([]byte, error) {
	packed, err := msgpack.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return append(append([]byte(nil), formatPrefix...), packed...), nil
}

// DecodeEntry deserializes an entry produced by EncodeEntry.
// Data in an unknown format returns ErrNotFound so stale formats in a
// persistent store behave as cache misses.
func DecodeEntry(data []byte) (*Entry, error) {
	if !bytes.HasPrefix(data, formatPrefix) {
		return nil, ErrNotFound
	}
	var entry Entry
	if err := msgpack.Unmarshal(data[len(formatPrefix):], &entry); err != nil {
		return nil, fmt.Errorf("decoding cache entry: %w", err)
	}
	return &entry, nil
}
