package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashKey creates a SHA256 hash of parts, for consistent, safe Redis keys.
// Parts are separated so ("ab", "c") and ("a", "bc") differ.
func HashKey(parts ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h.Sum(nil))
}
