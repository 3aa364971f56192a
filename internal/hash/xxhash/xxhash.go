// Package xxhash fingerprints code content for deduplication.
// Fingerprints are non-cryptographic; distinct inputs may collide.
package xxhash

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Hasher fingerprints a bounded prefix of its input.
type Hasher struct {
	prefix int
}

// New returns a Hasher reading at most prefix bytes. prefix <= 0 hashes everything.
func New(prefix int) *Hasher {
	return &Hasher{prefix: prefix}
}

// Sum returns the fingerprint of text.
func (h *Hasher) Sum(text string) uint64 {
	if h.prefix > 0 && len(text) > h.prefix {
		text = text[:h.prefix]
	}
	return xxhash.Sum64String(text)
}

// Short returns an 8 character hex tag derived from the first 100 runes of text.
func Short(text string) string {
	runes := []rune(text)
	if len(runes) > 100 {
		runes = runes[:100]
	}
	return fmt.Sprintf("%016x", xxhash.Sum64String(string(runes)))[:8]
}
