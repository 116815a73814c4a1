package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the lowercase hex SHA-256 of b.
func Sum(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// SumString is Sum over the bytes of s. Convenient for SQL script payloads.
func SumString(s string) string {
	return Sum([]byte(s))
}
