package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeCounter keeps per-key counts in memory and records the expiry it was
// handed on first write, mirroring the store's idempotent-set semantics.
type fakeCounter struct {
	counts   map[string]int64
	expiries map[string]time.Time
	lastDay  int
	err      error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{
		counts:   make(map[string]int64),
		expiries: make(map[string]time.Time),
	}
}

func (f *fakeCounter) IncrementResolveCounter(_ context.Context, feedID string, day int, expires time.Time) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	key := fmt.Sprintf("%s#%d", feedID, day)
	f.counts[key]++
	if _, ok := f.expiries[key]; !ok {
		f.expiries[key] = expires
	}
	f.lastDay = day
	return f.counts[key], nil
}

func TestQuotaFreeTierLimit(t *testing.T) {
	counter := newFakeCounter()
	quota := NewQuotaPolicy(counter, 100, nil)
	ctx := context.Background()

	for i := 1; i <= 100; i++ {
		count, err := quota.CheckAndIncrement(ctx, "abc", 0)
		if err != nil {
			t.Fatalf("increment %d failed: %v", i, err)
		}
		if count != int64(i) {
			t.Fatalf("expected count %d, got %d", i, count)
		}
	}

	// The 101st attempt is still counted, then rejected.
	count, err := quota.CheckAndIncrement(ctx, "abc", 0)
	if err == nil {
		t.Fatalf("expected quota error on increment 101")
	}
	if count != 101 {
		t.Fatalf("expected the rejected attempt to be counted (101), got %d", count)
	}
	if !IsQuotaExceeded(err) {
		t.Fatalf("expected quota_exceeded, got %s", CategoryOf(err))
	}

	var qe QuotaError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QuotaError, got %T", err)
	}
	if qe.Limit != 100 {
		t.Fatalf("expected limit 100 in error, got %d", qe.Limit)
	}
}

func TestQuotaPaidTierUnlimited(t *testing.T) {
	counter := newFakeCounter()
	quota := NewQuotaPolicy(counter, 100, nil)
	ctx := context.Background()

	for i := 1; i <= 1000; i++ {
		count, err := quota.CheckAndIncrement(ctx, "paid", 1)
		if err != nil {
			t.Fatalf("increment %d failed for paid tier: %v", i, err)
		}
		if count != int64(i) {
			t.Fatalf("expected count %d, got %d", i, count)
		}
	}
}

func TestQuotaDayKeyAndExpiry(t *testing.T) {
	counter := newFakeCounter()
	fixed := time.Date(2026, 8, 29, 23, 30, 0, 0, time.UTC)
	quota := NewQuotaPolicy(counter, 0, func() time.Time { return fixed })
	ctx := context.Background()

	if _, err := quota.CheckAndIncrement(ctx, "abc", 0); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if counter.lastDay != 20260829 {
		t.Fatalf("expected day key 20260829, got %d", counter.lastDay)
	}

	wantExpiry := fixed.AddDate(0, 3, 0)
	got := counter.expiries["abc#20260829"]
	if !got.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, got)
	}
}

func TestQuotaDayKeyIsUTC(t *testing.T) {
	counter := newFakeCounter()
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("UTC-5", -5*60*60)
	fixed := time.Date(2026, 8, 29, 23, 30, 0, 0, loc)
	quota := NewQuotaPolicy(counter, 0, func() time.Time { return fixed })

	if _, err := quota.CheckAndIncrement(context.Background(), "abc", 0); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if counter.lastDay != 20260830 {
		t.Fatalf("expected UTC day key 20260830, got %d", counter.lastDay)
	}
}

func TestQuotaCounterFailure(t *testing.T) {
	counter := newFakeCounter()
	counter.err = errors.New("store down")
	quota := NewQuotaPolicy(counter, 0, nil)

	_, err := quota.CheckAndIncrement(context.Background(), "abc", 0)
	if err == nil {
		t.Fatalf("expected error when counter store fails")
	}
	if CategoryOf(err) != CategoryResolutionFailed {
		t.Fatalf("expected resolution_failed, got %s", CategoryOf(err))
	}
}

func TestQuotaDefaultLimit(t *testing.T) {
	quota := NewQuotaPolicy(newFakeCounter(), 0, nil)
	if quota.Limit() != AnonymousDailyLimit {
		t.Fatalf("expected default limit %d, got %d", AnonymousDailyLimit, quota.Limit())
	}
}
