// Package md5 provides MD5 fingerprint utilities.
package md5

import (
	"crypto/md5" //nolint:gosec // fingerprint for row keys, not security
	"encoding/hex"
)

// Hasher implements pipeline.Hasher using MD5.
type Hasher struct{}

// New returns an MD5 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a lowercase hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}
