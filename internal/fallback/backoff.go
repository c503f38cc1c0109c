package fallback

import (
	"math/rand"
	"time"
)

const maxProbeBackoff = 30 * time.Second

// Backoff returns the cool-down before re-probing after attempt n (0-indexed)
// with jitter.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := maxProbeBackoff
	if attempt < 5 {
		base = time.Duration(1<<uint(attempt)) * time.Second
	}
	if base > maxProbeBackoff {
		base = maxProbeBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}
