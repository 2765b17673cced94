// Package cache stores agent completions so re-running extraction over the
// same protocol does not pay for identical agent calls twice.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// keyVersion is bumped whenever the prompt layout changes
const keyVersion = "icfextract:v1:"

// Key derives a cache key from the parts that determine an agent answer.
// Parts are length-prefixed so ("ab","c") and ("a","bc") never collide.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		var n [8]byte
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return keyVersion + hex.EncodeToString(h.Sum(nil))
}
