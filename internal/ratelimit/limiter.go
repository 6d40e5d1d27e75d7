// Package ratelimit enforces a per-sender hourly send quota over a
// fixed window counter. The Redis implementation is safe across any
// number of processes; the in-memory implementation covers tests and
// single-process deployments.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Window is the quota window length. The window starts at the first
// send in a bucket rather than at the clock-hour boundary; the bucket
// key still rolls over with the UTC calendar hour.
const Window = time.Hour

// Result is the outcome of one quota consumption attempt
type Result struct {
	// Allowed reports whether the send may proceed
	Allowed bool

	// TTL is the remaining life of the current bucket. When Allowed
	// is false this is how long the sender must wait before quota
	// frees up again.
	TTL time.Duration
}

// Limiter answers whether a sender may send one more message in the
// current hour bucket. Consume must be atomic with respect to
// concurrent callers for the same sender: no more than limit calls
// per bucket may observe Allowed=true.
type Limiter interface {
	Consume(ctx context.Context, sender string, limit int) (Result, error)
}

// BucketKey derives the counter key for a sender at a given instant.
// The bucket identifier is the UTC date and hour, so all processes
// agree on the current bucket regardless of local time zone.
func BucketKey(sender string, now time.Time) string {
	return fmt.Sprintf("rate:%s:%s", sender, now.UTC().Format("20060102T15"))
}

// normalizeTTL guards against a missing or negative remaining TTL
// (clock skew, counter store quirks). Treating it as a full window
// instead of zero prevents a storm of zero-delay re-enqueues.
func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return Window
	}
	return ttl
}
