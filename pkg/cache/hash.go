package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Key joins a namespace and the identifying parts of a cached value.
// The parts are hashed so that URLs and other free-form strings produce
// short, backend-safe keys:
//
//	Key("countries", geURL) // "countries:3f5a..."
func Key(namespace string, parts ...string) string {
	return namespace + ":" + Hash([]byte(strings.Join(parts, "\x00")))
}
