package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"posdesk/internal/domain"
	"posdesk/internal/reconcile"
	"posdesk/internal/store"
)

// CreateStockTaking records a physical count session. Each line is
// matched against the catalog by product id, SKU, then barcode; lines
// that match nothing are kept as uncataloged extras for the comparison.
func (s *Service) CreateStockTaking(ctx context.Context, req domain.StockTakingCreateRequest) (domain.StockTakingSession, error) {
	if req.StoreID == "" {
		req.StoreID = s.defaultStoreID
	}
	if len(req.Items) == 0 {
		return domain.StockTakingSession{}, store.ErrInvalid
	}
	if req.Date == "" {
		st, err := s.repo.GetStore(ctx, req.StoreID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return domain.StockTakingSession{}, err
		}
		req.Date, _ = s.businessDate(st)
	}

	actor, _ := ActorFromContext(ctx)
	items := make([]domain.StockTakingItem, 0, len(req.Items))
	for _, line := range req.Items {
		if line.CountedQty < 0 {
			return domain.StockTakingSession{}, store.ErrInvalid
		}
		item := domain.StockTakingItem{
			ProductID:  line.ProductID,
			SKU:        strings.ToUpper(strings.TrimSpace(line.SKU)),
			Barcode:    strings.TrimSpace(line.Barcode),
			Name:       strings.TrimSpace(line.Name),
			CountedQty: line.CountedQty,
			UnitCost:   line.UnitCost,
		}

		product, err := s.matchProduct(ctx, item)
		if err != nil {
			return domain.StockTakingSession{}, err
		}
		if product != nil {
			item.ProductID = product.ID
			item.SKU = product.SKU
			item.Barcode = product.Barcode
			item.Name = product.Name
			item.Existed = true
			if item.UnitCost.IsZero() {
				item.UnitCost = product.Cost
			}
		} else if item.Name == "" {
			return domain.StockTakingSession{}, fmt.Errorf("%w: uncataloged item needs a name", store.ErrInvalid)
		}
		items = append(items, item)
	}

	session, err := s.repo.CreateStockTakingSession(ctx, domain.StockTakingSession{
		StoreID:   req.StoreID,
		Date:      req.Date,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedBy: actor.Username,
		Items:     items,
	})
	if err != nil {
		return domain.StockTakingSession{}, err
	}

	s.logAudit(ctx, req.StoreID, "stocktaking_create", "stock_taking", session.ID,
		fmt.Sprintf("date=%s,items=%d", session.Date, len(session.Items)))
	return *session, nil
}

func (s *Service) matchProduct(ctx context.Context, item domain.StockTakingItem) (*domain.Product, error) {
	lookups := []func() (*domain.Product, error){}
	if item.ProductID != "" {
		lookups = append(lookups, func() (*domain.Product, error) { return s.repo.GetProductByID(ctx, item.ProductID) })
	}
	if item.SKU != "" {
		lookups = append(lookups, func() (*domain.Product, error) { return s.repo.FindProductBySKU(ctx, item.SKU) })
	}
	if item.Barcode != "" {
		lookups = append(lookups, func() (*domain.Product, error) { return s.repo.FindProductByBarcode(ctx, item.Barcode) })
	}
	for _, lookup := range lookups {
		product, err := lookup()
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func (s *Service) GetStockTaking(ctx context.Context, storeID string, date string) (domain.StockTakingSession, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	session, err := s.repo.GetStockTakingSession(ctx, storeID, date)
	if err != nil {
		return domain.StockTakingSession{}, err
	}
	return *session, nil
}

// StockTakingComparison diffs a count session against book stock for the
// whole catalog. Catalog products absent from the session come out as
// missing rows.
func (s *Service) StockTakingComparison(ctx context.Context, storeID string, date string) ([]domain.ComparisonItem, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	session, err := s.repo.GetStockTakingSession(ctx, storeID, date)
	if err != nil {
		return nil, err
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	productIDs := make([]string, 0, len(products))
	for _, p := range products {
		productIDs = append(productIDs, p.ID)
	}
	stocks, err := s.repo.GetStoreStocks(ctx, storeID, productIDs)
	if err != nil {
		return nil, err
	}

	book := make([]reconcile.BookItem, 0, len(products))
	for _, p := range products {
		book = append(book, reconcile.BookItem{
			ProductID: p.ID,
			SKU:       p.SKU,
			Barcode:   p.Barcode,
			Name:      p.Name,
			Qty:       stocks[p.ID],
			Cost:      p.Cost,
		})
	}

	counted := make([]reconcile.CountItem, 0, len(session.Items))
	for _, item := range session.Items {
		counted = append(counted, reconcile.CountItem{
			ProductID: item.ProductID,
			SKU:       item.SKU,
			Barcode:   item.Barcode,
			Name:      item.Name,
			Qty:       item.CountedQty,
			Cost:      item.UnitCost,
		})
	}

	return reconcile.Compare(book, counted), nil
}

// CommitStockTaking makes the count authoritative. Counted rows have
// their store stock set to the counted quantity, extras become new
// catalog products under the extra-as-new policy, and missing rows stay
// untouched until an operator zeroes them explicitly.
func (s *Service) CommitStockTaking(ctx context.Context, storeID string, date string) (domain.StockTakingCommitResponse, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	comparison, err := s.StockTakingComparison(ctx, storeID, date)
	if err != nil {
		return domain.StockTakingCommitResponse{}, err
	}

	var summary domain.StockTakingSummary
	var warnings []string
	for _, row := range comparison {
		switch row.Status {
		case domain.CountStatusCounted:
			_, warning, err := s.applyStock(ctx, storeID, row.ProductID, row.CountedQty, store.StockSet)
			if err != nil {
				return domain.StockTakingCommitResponse{}, err
			}
			if warning != "" {
				warnings = append(warnings, warning)
			}
			summary.UpdatedProducts++
		case domain.CountStatusExtra:
			if s.extraPolicy != reconcile.PolicyExtraAsNew {
				continue
			}
			sku := row.SKU
			if sku == "" {
				sku = strings.ToUpper("STK-" + date + "-" + fmt.Sprintf("%04d", summary.NewProducts+1))
			}
			created, err := s.repo.CreateProduct(ctx, domain.Product{
				SKU:       sku,
				Barcode:   row.Barcode,
				Name:      row.Name,
				Cost:      row.CostPrice,
				Price:     row.CostPrice,
				Stock:     row.CountedQty,
				FromCount: true,
			})
			if err != nil {
				return domain.StockTakingCommitResponse{}, fmt.Errorf("create product for counted extra %q: %w", row.Name, err)
			}
			if _, err := s.repo.AdjustStoreStock(ctx, storeID, created.ID, row.CountedQty, store.StockSet); err != nil {
				return domain.StockTakingCommitResponse{}, err
			}
			summary.NewProducts++
		}
		summary.TotalItems++
	}

	s.logAudit(ctx, storeID, "stocktaking_commit", "stock_taking", date,
		fmt.Sprintf("updated=%d,new=%d", summary.UpdatedProducts, summary.NewProducts))

	return domain.StockTakingCommitResponse{Summary: summary, Items: comparison, Warnings: warnings}, nil
}

// ZeroMissing zeroes the stock of products the count never saw, limited
// to the given product ids when any are passed. It is destructive, so
// only admins may run it, and only as an explicit follow-up to a commit.
func (s *Service) ZeroMissing(ctx context.Context, storeID string, date string, productIDs []string) (domain.StockTakingCommitResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.StockTakingCommitResponse{}, fmt.Errorf("admin role required")
	}
	if storeID == "" {
		storeID = s.defaultStoreID
	}

	comparison, err := s.StockTakingComparison(ctx, storeID, date)
	if err != nil {
		return domain.StockTakingCommitResponse{}, err
	}

	selected := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		selected[id] = true
	}

	var summary domain.StockTakingSummary
	var warnings []string
	for _, row := range comparison {
		if row.Status != domain.CountStatusMissing {
			continue
		}
		if len(selected) > 0 && !selected[row.ProductID] {
			continue
		}
		_, warning, err := s.applyStock(ctx, storeID, row.ProductID, 0, store.StockSet)
		if err != nil {
			return domain.StockTakingCommitResponse{}, err
		}
		if warning != "" {
			warnings = append(warnings, warning)
		}
		summary.UpdatedProducts++
		summary.TotalItems++
	}

	s.logAudit(ctx, storeID, "stocktaking_zero_missing", "stock_taking", date,
		fmt.Sprintf("zeroed=%d", summary.UpdatedProducts))

	return domain.StockTakingCommitResponse{Summary: summary, Items: comparison, Warnings: warnings}, nil
}
