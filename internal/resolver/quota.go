package resolver

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// AnonymousDailyLimit is the number of resolutions a free-tier feed may
// perform per UTC day.
const AnonymousDailyLimit = 100

// counterRetention is how long a day's counter row stays around before the
// periodic purge may remove it.
const counterRetention = 3 // months

// Counter is the atomic increment-with-expiry primitive the quota policy
// wraps. *store.Store satisfies this interface.
type Counter interface {
	IncrementResolveCounter(ctx context.Context, feedID string, day int, expires time.Time) (int64, error)
}

// QuotaPolicy enforces the per-feed daily resolution quota. The increment
// is unconditional: the attempt that trips the limit is itself counted, so
// request 101 fails while request 100 succeeds.
type QuotaPolicy struct {
	counter Counter
	limit   int64
	now     func() time.Time
}

// NewQuotaPolicy builds the policy. A non-positive limit selects the
// default; a nil clock selects time.Now.
func NewQuotaPolicy(counter Counter, limit int64, now func() time.Time) *QuotaPolicy {
	if limit <= 0 {
		limit = AnonymousDailyLimit
	}
	if now == nil {
		now = time.Now
	}
	return &QuotaPolicy{counter: counter, limit: limit, now: now}
}

// Limit returns the enforced daily limit.
func (q *QuotaPolicy) Limit() int64 {
	return q.limit
}

// CheckAndIncrement counts the attempt against today's UTC counter and
// returns the post-increment count. Free-tier feeds (featureLevel 0) fail
// with a quota error once the count exceeds the limit; paid tiers are
// never limited.
func (q *QuotaPolicy) CheckAndIncrement(ctx context.Context, feedID string, featureLevel int) (int64, error) {
	now := q.now().UTC()
	day := DayKey(now)
	expires := now.AddDate(0, counterRetention, 0)

	count, err := q.counter.IncrementResolveCounter(ctx, feedID, day, expires)
	if err != nil {
		return 0, wrapCategory(CategoryResolutionFailed, fmt.Errorf("updating resolve counter: %w", err))
	}

	if featureLevel == 0 && count > q.limit {
		return count, wrapCategory(CategoryQuotaExceeded, QuotaError{Limit: q.limit})
	}
	return count, nil
}

// DayKey formats a time as the integer YYYYMMDD counter key, always UTC.
func DayKey(t time.Time) int {
	day, _ := strconv.Atoi(t.UTC().Format("20060102"))
	return day
}
