package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Daily bars only change once per session.
	TTLPriceHistory = 6 * time.Hour

	// Quotes go stale quickly; long enough to serve one optimize burst.
	TTLCurrentPrice = 10 * time.Minute
)
