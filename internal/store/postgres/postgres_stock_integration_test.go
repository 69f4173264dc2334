package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"posdesk/internal/store"
)

func TestAdjustStoreStockClampsAtZero(t *testing.T) {
	databaseURL := os.Getenv("POSDESK_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set POSDESK_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("prod-stock-it-%d", stamp)
	sku := fmt.Sprintf("SKU-STOCK-IT-%d", stamp)
	storeID := "main-store"

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM store_stocks WHERE store_id = $1 AND product_id = $2`, storeID, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, sku, name, cost, price, stock, from_count, active, created_at, updated_at)
		VALUES ($1, $2, 'Stock IT Product', 4.00, 6.00, 10, false, true, now(), now())
	`, productID, sku); err != nil {
		t.Fatalf("insert product: %v", err)
	}

	qty, err := s.AdjustStoreStock(ctx, storeID, productID, 10, store.StockSet)
	if err != nil {
		t.Fatalf("set stock: %v", err)
	}
	if qty != 10 {
		t.Fatalf("set stock = %d, want 10", qty)
	}

	qty, err = s.AdjustStoreStock(ctx, storeID, productID, 2, store.StockSubtract)
	if err != nil {
		t.Fatalf("subtract stock: %v", err)
	}
	if qty != 8 {
		t.Fatalf("stock after sale = %d, want 8", qty)
	}

	qty, err = s.AdjustStoreStock(ctx, storeID, productID, 50, store.StockSubtract)
	if err != nil {
		t.Fatalf("subtract past zero: %v", err)
	}
	if qty != 0 {
		t.Fatalf("stock should clamp at 0, got %d", qty)
	}

	mirror, err := s.AdjustProductStock(ctx, productID, 3, store.StockSubtract)
	if err != nil {
		t.Fatalf("adjust mirror: %v", err)
	}
	if mirror != 7 {
		t.Fatalf("mirror stock = %d, want 7", mirror)
	}
}
