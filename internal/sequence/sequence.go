// Package sequence allocates human-readable transaction numbers of the
// form YYYYMMDDNNNN, where NNNN is a per-store daily counter.
package sequence

import (
	"context"
	"fmt"
	"time"
)

const (
	maxProbes = 10
	probeStep = 2 * time.Millisecond
)

// NumberSource is the subset of the storage layer the allocator needs.
type NumberSource interface {
	MaxTransactionSequence(ctx context.Context, storeID string, datePrefix string) (int, error)
	TransactionNumberExists(ctx context.Context, storeID string, number string) (bool, error)
}

type Allocator struct {
	source NumberSource
	sleep  func(time.Duration)
	now    func() time.Time
}

func NewAllocator(source NumberSource) *Allocator {
	return &Allocator{
		source: source,
		sleep:  time.Sleep,
		now:    time.Now,
	}
}

// Next returns a transaction number for the given business date. It reads
// the current day maximum, probes forward a handful of candidates with a
// short backoff between attempts, and falls back to a timestamp-derived
// suffix when all probes collide. The fallback keeps the date prefix so
// the number still sorts with the business day.
func (a *Allocator) Next(ctx context.Context, storeID string, date time.Time) (string, error) {
	prefix := date.Format("20060102")

	max, err := a.source.MaxTransactionSequence(ctx, storeID, prefix)
	if err != nil {
		return "", fmt.Errorf("read max sequence: %w", err)
	}

	for attempt := 0; attempt < maxProbes; attempt++ {
		candidate := fmt.Sprintf("%s%04d", prefix, max+1+attempt)
		exists, err := a.source.TransactionNumberExists(ctx, storeID, candidate)
		if err != nil {
			return "", fmt.Errorf("check number %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		a.sleep(time.Duration(attempt+1) * probeStep)
	}

	// All probes taken, likely a burst of concurrent sales. A
	// nanosecond-derived suffix is unique enough for the residual case
	// and the outer retry loop covers the rest.
	return fmt.Sprintf("%s%06d", prefix, a.now().UnixNano()%1_000_000), nil
}
