package cache

import (
	"context"
	"time"

	"posdesk/internal/domain"
)

type BarcodeCache interface {
	Get(ctx context.Context, key string) (*domain.BarcodeInfo, bool, error)
	Set(ctx context.Context, key string, value *domain.BarcodeInfo, ttl time.Duration) error
}

type NoopBarcodeCache struct{}

func (NoopBarcodeCache) Get(_ context.Context, _ string) (*domain.BarcodeInfo, bool, error) {
	return nil, false, nil
}

func (NoopBarcodeCache) Set(_ context.Context, _ string, _ *domain.BarcodeInfo, _ time.Duration) error {
	return nil
}
