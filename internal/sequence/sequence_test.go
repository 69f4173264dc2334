package sequence

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeSource struct {
	mu    sync.Mutex
	taken map[string]bool
	max   int
	fails int
}

func (f *fakeSource) MaxTransactionSequence(ctx context.Context, storeID string, datePrefix string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.max, nil
}

func (f *fakeSource) TransactionNumberExists(ctx context.Context, storeID string, number string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.taken[number], nil
}

func newTestAllocator(source NumberSource) *Allocator {
	a := NewAllocator(source)
	a.sleep = func(time.Duration) {}
	a.now = func() time.Time { return time.Date(2024, 1, 1, 10, 0, 0, 123456789, time.UTC) }
	return a
}

func TestNextFirstOfDay(t *testing.T) {
	a := newTestAllocator(&fakeSource{taken: map[string]bool{}})
	number, err := a.Next(context.Background(), "store-1", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if number != "202401010001" {
		t.Fatalf("expected 202401010001, got %s", number)
	}
}

func TestNextSkipsTakenCandidates(t *testing.T) {
	source := &fakeSource{
		max: 4,
		taken: map[string]bool{
			"202401010005": true,
			"202401010006": true,
		},
	}
	a := newTestAllocator(source)
	number, err := a.Next(context.Background(), "store-1", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if number != "202401010007" {
		t.Fatalf("expected 202401010007, got %s", number)
	}
}

func TestNextFallsBackToTimestamp(t *testing.T) {
	taken := map[string]bool{}
	for i := 1; i <= 20; i++ {
		taken[time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format("20060102")+pad4(i)] = true
	}
	a := newTestAllocator(&fakeSource{taken: taken})
	number, err := a.Next(context.Background(), "store-1", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if len(number) != 14 {
		t.Fatalf("expected 14-char fallback number, got %q", number)
	}
	if number[:8] != "20240101" {
		t.Fatalf("fallback number lost date prefix: %q", number)
	}
}

func pad4(n int) string {
	digits := []byte{'0', '0', '0', '0'}
	for i := 3; i >= 0 && n > 0; i-- {
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits)
}
