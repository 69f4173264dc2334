package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"posdesk/internal/store"
)

// applyStock writes one stock movement through the dual ledger. The
// per-store row is authoritative and its failure aborts the caller. The
// global mirror on the product row is best effort only: a failed mirror
// write is logged and returned as a warning so the terminal can surface
// it without failing the sale.
func (s *Service) applyStock(ctx context.Context, storeID string, productID string, qty int, op store.StockOp) (int, string, error) {
	newStock, err := s.repo.AdjustStoreStock(ctx, storeID, productID, qty, op)
	if err != nil {
		return 0, "", fmt.Errorf("adjust store stock product=%s: %w", productID, err)
	}

	if _, err := s.repo.AdjustProductStock(ctx, productID, qty, op); err != nil {
		s.log.Warn("global stock mirror write failed",
			zap.String("store_id", storeID),
			zap.String("product_id", productID),
			zap.String("op", string(op)),
			zap.Int("qty", qty),
			zap.Error(err))
		return newStock, fmt.Sprintf("stock mirror not updated for product %s", productID), nil
	}
	return newStock, "", nil
}
