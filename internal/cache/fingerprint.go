// Package cache memoizes synthesized results keyed by query fingerprint.
//
// The fingerprint embeds the resolved specialist set and each specialist's
// version, so a version bump makes old entries unreachable without any
// explicit invalidation sweep.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint derives the canonical cache key for a query. normalizedText
// must already be normalized by the classifier; versionSignature is the
// registry's sorted id@version signature for the resolved specialist set.
func Fingerprint(normalizedText, versionSignature string) string {
	h := sha256.New()
	h.Write([]byte(normalizedText))
	h.Write([]byte("\n"))
	h.Write([]byte(versionSignature))
	return hex.EncodeToString(h.Sum(nil))
}
