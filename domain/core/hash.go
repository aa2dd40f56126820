package core

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, enough for log lines
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// FingerprintColumns hashes a column-name set independent of ordering.
// Used to fingerprint an input table for the run ledger.
func FingerprintColumns(columns []string) Hash {
	sorted := make([]string, len(columns))
	copy(sorted, columns)
	sort.Strings(sorted)
	return NewHash([]byte(strings.Join(sorted, "\x1f")))
}
