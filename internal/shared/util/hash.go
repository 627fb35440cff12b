package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashText returns the hex sha256 of s. Used to pair an analysis with the exact
// document text it was derived from.
func HashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
