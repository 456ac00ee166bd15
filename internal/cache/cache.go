// Package cache keeps downloaded artifacts for the lifetime of one chain so
// that a page linking the same file twice, or a chain revisiting a file,
// downloads it once.
package cache

import (
	"net/url"
	"strings"
)

// Store holds artifact bodies keyed by URL
type Store interface {
	Lookup(rawURL string) ([]byte, bool)
	Store(rawURL string, data []byte) bool
	Purge()
	Stats() Stats
}

// Stats counts cache traffic for the end-of-chain log line
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
	Bytes   int64
}

// Key normalizes an artifact URL. The fragment never reaches the server and
// host names are case-insensitive, so neither distinguishes two artifacts.
func Key(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "artifact:" + rawURL
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Host = strings.ToLower(u.Host)
	u.Scheme = strings.ToLower(u.Scheme)
	return "artifact:" + u.String()
}
