package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"posdesk/internal/domain"
	"posdesk/internal/store"
)

const numberAllocationRetries = 3

// voidWindow is how long after creation a transaction may still be
// voided. Older mistakes go through refund instead.
const voidWindow = 24 * time.Hour

func validPaymentMethod(method string) bool {
	switch method {
	case domain.PaymentCash, domain.PaymentCard, domain.PaymentCredit, domain.PaymentTransfer:
		return true
	}
	return false
}

func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.SaleResponse, error) {
	if req.StoreID == "" {
		req.StoreID = s.defaultStoreID
	}
	if len(req.Items) == 0 {
		return domain.SaleResponse{}, store.ErrInvalid
	}
	if !validPaymentMethod(req.PaymentMethod) {
		return domain.SaleResponse{}, store.ErrInvalid
	}
	if req.PaymentMethod == domain.PaymentCredit {
		if req.CustomerID == "" {
			return domain.SaleResponse{}, fmt.Errorf("%w: credit sale requires a customer", store.ErrInvalid)
		}
		if _, err := s.repo.GetCustomer(ctx, req.CustomerID); err != nil {
			return domain.SaleResponse{}, fmt.Errorf("customer %s: %w", req.CustomerID, err)
		}
	}
	if req.Tax.IsNegative() || req.Discount.IsNegative() {
		return domain.SaleResponse{}, store.ErrInvalid
	}
	status := domain.TxStatusCompleted
	switch req.Status {
	case "", domain.TxStatusCompleted:
	case domain.TxStatusPending:
		status = domain.TxStatusPending
	default:
		return domain.SaleResponse{}, fmt.Errorf("%w: status must be pending or completed", store.ErrInvalid)
	}

	day, err := s.ensureDayOpen(ctx, req.StoreID)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	subtotal := decimal.Zero
	items := make([]domain.TransactionItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Qty < 0 {
			return domain.SaleResponse{}, fmt.Errorf("%w: negative quantity", store.ErrInvalid)
		}
		if item.UnitPrice.IsNegative() {
			return domain.SaleResponse{}, store.ErrInvalid
		}
		name := item.Name
		if item.ProductID != "" {
			product, err := s.repo.GetProductByID(ctx, item.ProductID)
			if err != nil {
				return domain.SaleResponse{}, fmt.Errorf("product %s: %w", item.ProductID, err)
			}
			if name == "" {
				name = product.Name
			}
		}
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Qty)))
		subtotal = subtotal.Add(lineTotal)
		items = append(items, domain.TransactionItem{
			ProductID: item.ProductID,
			Name:      name,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
			Total:     lineTotal,
		})
	}

	total := subtotal.Add(req.Tax).Sub(req.Discount)
	if total.IsNegative() {
		return domain.SaleResponse{}, store.ErrInvalid
	}

	actor, _ := ActorFromContext(ctx)
	businessDay, err := time.Parse("2006-01-02", day.Date)
	if err != nil {
		return domain.SaleResponse{}, fmt.Errorf("parse business date %q: %w", day.Date, err)
	}

	var created *domain.Transaction
	for attempt := 0; attempt < numberAllocationRetries; attempt++ {
		number, err := s.numbers.Next(ctx, req.StoreID, businessDay)
		if err != nil {
			return domain.SaleResponse{}, err
		}
		created, err = s.repo.CreateTransaction(ctx, domain.Transaction{
			Number:        number,
			StoreID:       req.StoreID,
			CustomerID:    req.CustomerID,
			Cashier:       actor.Username,
			Status:        status,
			PaymentMethod: req.PaymentMethod,
			Subtotal:      subtotal,
			Tax:           req.Tax,
			Discount:      req.Discount,
			Total:         total,
			CreatedAt:     s.now().UTC(),
			Items:         items,
		})
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrDuplicateNumber) && attempt < numberAllocationRetries-1 {
			continue
		}
		return domain.SaleResponse{}, err
	}

	// A parked sale moves nothing until it completes.
	if status == domain.TxStatusPending {
		s.logAudit(ctx, req.StoreID, "sale_create", "transaction", created.ID,
			fmt.Sprintf("number=%s,total=%s,status=%s", created.Number, total, status))
		return domain.SaleResponse{Transaction: *created}, nil
	}

	warnings := s.moveStockForItems(ctx, req.StoreID, created.Items, store.StockSubtract)

	if req.PaymentMethod == domain.PaymentCredit {
		if _, err := s.repo.AppendCreditEntry(ctx, req.CustomerID, domain.CreditTypeCharge, total, created.ID); err != nil {
			s.log.Error("credit charge not recorded",
				zap.String("transaction_id", created.ID),
				zap.String("customer_id", req.CustomerID),
				zap.Error(err))
			warnings = append(warnings, "credit ledger charge was not recorded")
		}
	}

	switch req.PaymentMethod {
	case domain.PaymentCash:
		if err := s.repo.AccumulateDayTotals(ctx, req.StoreID, total, decimal.Zero); err != nil {
			s.log.Warn("day totals not updated", zap.String("store_id", req.StoreID), zap.Error(err))
		}
	case domain.PaymentCard:
		if err := s.repo.AccumulateDayTotals(ctx, req.StoreID, decimal.Zero, total); err != nil {
			s.log.Warn("day totals not updated", zap.String("store_id", req.StoreID), zap.Error(err))
		}
	}

	invoiceURL := ""
	if s.invoices != nil {
		rendered, err := s.invoices.Render(ctx, *created)
		if err != nil {
			s.log.Warn("invoice render failed", zap.String("number", created.Number), zap.Error(err))
			warnings = append(warnings, "invoice was not rendered")
		} else {
			invoiceURL = rendered.InvoiceURL
		}
	}

	s.logAudit(ctx, req.StoreID, "sale_create", "transaction", created.ID,
		fmt.Sprintf("number=%s,total=%s,method=%s", created.Number, total, req.PaymentMethod))

	return domain.SaleResponse{Transaction: *created, InvoiceURL: invoiceURL, Warnings: warnings}, nil
}

// moveStockForItems applies one stock op per eligible line. Lines with no
// product reference or a non-positive quantity never touch stock.
func (s *Service) moveStockForItems(ctx context.Context, storeID string, items []domain.TransactionItem, op store.StockOp) []string {
	var warnings []string
	for _, item := range items {
		if item.ProductID == "" || item.Qty <= 0 {
			continue
		}
		_, warning, err := s.applyStock(ctx, storeID, item.ProductID, item.Qty, op)
		if err != nil {
			s.log.Error("stock write failed",
				zap.String("store_id", storeID),
				zap.String("product_id", item.ProductID),
				zap.Error(err))
			warnings = append(warnings, fmt.Sprintf("stock not updated for product %s", item.ProductID))
			continue
		}
		if warning != "" {
			warnings = append(warnings, warning)
		}
	}
	return warnings
}

// CompleteTransaction finishes a parked sale. Stock, credit, day totals
// and the invoice all move here, exactly as they would have on a direct
// completed sale. The current day must still be open for the store.
func (s *Service) CompleteTransaction(ctx context.Context, id string) (domain.TransactionResponse, error) {
	if id == "" {
		return domain.TransactionResponse{}, store.ErrInvalid
	}

	original, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return domain.TransactionResponse{}, err
	}
	if _, err := s.ensureDayOpen(ctx, original.StoreID); err != nil {
		return domain.TransactionResponse{}, err
	}

	tx, err := s.repo.MarkTransactionCompleted(ctx, id)
	if err != nil {
		return domain.TransactionResponse{}, err
	}

	warnings := s.moveStockForItems(ctx, tx.StoreID, tx.Items, store.StockSubtract)

	if tx.PaymentMethod == domain.PaymentCredit && tx.CustomerID != "" {
		if _, err := s.repo.AppendCreditEntry(ctx, tx.CustomerID, domain.CreditTypeCharge, tx.Total, tx.ID); err != nil {
			s.log.Error("credit charge not recorded",
				zap.String("transaction_id", tx.ID),
				zap.String("customer_id", tx.CustomerID),
				zap.Error(err))
			warnings = append(warnings, "credit ledger charge was not recorded")
		}
	}

	switch tx.PaymentMethod {
	case domain.PaymentCash:
		if err := s.repo.AccumulateDayTotals(ctx, tx.StoreID, tx.Total, decimal.Zero); err != nil {
			s.log.Warn("day totals not updated", zap.String("store_id", tx.StoreID), zap.Error(err))
		}
	case domain.PaymentCard:
		if err := s.repo.AccumulateDayTotals(ctx, tx.StoreID, decimal.Zero, tx.Total); err != nil {
			s.log.Warn("day totals not updated", zap.String("store_id", tx.StoreID), zap.Error(err))
		}
	}

	if s.invoices != nil {
		if _, err := s.invoices.Render(ctx, *tx); err != nil {
			s.log.Warn("invoice render failed", zap.String("number", tx.Number), zap.Error(err))
			warnings = append(warnings, "invoice was not rendered")
		}
	}

	s.logAudit(ctx, tx.StoreID, "complete_transaction", "transaction", tx.ID,
		fmt.Sprintf("number=%s,total=%s,method=%s", tx.Number, tx.Total, tx.PaymentMethod))

	return domain.TransactionResponse{Transaction: *tx, Warnings: warnings}, nil
}

func (s *Service) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	return *tx, nil
}

func (s *Service) ListTransactions(ctx context.Context, storeID string, limit int) ([]domain.Transaction, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	return s.repo.ListTransactions(ctx, storeID, limit)
}

// RefundTransaction reverses a completed sale of any age. The refund
// amount may not exceed the original total, stock returns to the store,
// and a credit sale gets a compensating payment entry on the ledger.
func (s *Service) RefundTransaction(ctx context.Context, req domain.RefundRequest) (domain.TransactionResponse, error) {
	if req.TransactionID == "" || !req.Amount.IsPositive() {
		return domain.TransactionResponse{}, store.ErrInvalid
	}
	if req.Reason == "" {
		req.Reason = "unspecified"
	}

	original, err := s.repo.GetTransaction(ctx, req.TransactionID)
	if err != nil {
		return domain.TransactionResponse{}, err
	}
	if req.Amount.GreaterThan(original.Total) {
		return domain.TransactionResponse{}, fmt.Errorf("%w: refund amount exceeds transaction total", store.ErrInvalid)
	}

	tx, err := s.repo.MarkTransactionRefunded(ctx, req.TransactionID, req.Amount, req.Reason, s.now().UTC())
	if err != nil {
		return domain.TransactionResponse{}, err
	}

	warnings := s.moveStockForItems(ctx, tx.StoreID, tx.Items, store.StockAdd)

	if tx.PaymentMethod == domain.PaymentCredit && tx.CustomerID != "" {
		if _, err := s.repo.AppendCreditEntry(ctx, tx.CustomerID, domain.CreditTypePayment, req.Amount, tx.ID); err != nil {
			s.log.Warn("credit reversal not recorded", zap.String("transaction_id", tx.ID), zap.Error(err))
			warnings = append(warnings, "credit ledger reversal was not recorded")
		}
	}

	s.logAudit(ctx, tx.StoreID, "refund_transaction", "transaction", tx.ID,
		fmt.Sprintf("amount=%s,reason=%s", req.Amount, req.Reason))

	return domain.TransactionResponse{Transaction: *tx, Warnings: warnings}, nil
}

// VoidTransaction cancels a completed sale as if it never happened. Only
// same-day mistakes qualify: past the void window the transaction must be
// refunded instead.
func (s *Service) VoidTransaction(ctx context.Context, req domain.VoidRequest) (domain.TransactionResponse, error) {
	if req.TransactionID == "" {
		return domain.TransactionResponse{}, store.ErrInvalid
	}
	if req.Reason == "" {
		req.Reason = "unspecified"
	}

	original, err := s.repo.GetTransaction(ctx, req.TransactionID)
	if err != nil {
		return domain.TransactionResponse{}, err
	}
	if s.now().UTC().Sub(original.CreatedAt) >= voidWindow {
		return domain.TransactionResponse{}, fmt.Errorf("%w: transaction is too old to void, use refund", store.ErrConflict)
	}

	tx, err := s.repo.MarkTransactionVoided(ctx, req.TransactionID, req.Reason, s.now().UTC())
	if err != nil {
		return domain.TransactionResponse{}, err
	}

	warnings := s.moveStockForItems(ctx, tx.StoreID, tx.Items, store.StockAdd)

	if tx.PaymentMethod == domain.PaymentCredit && tx.CustomerID != "" {
		if _, err := s.repo.AppendCreditEntry(ctx, tx.CustomerID, domain.CreditTypePayment, tx.Total, tx.ID); err != nil {
			s.log.Warn("credit reversal not recorded", zap.String("transaction_id", tx.ID), zap.Error(err))
			warnings = append(warnings, "credit ledger reversal was not recorded")
		}
	}

	s.logAudit(ctx, tx.StoreID, "void_transaction", "transaction", tx.ID, req.Reason)

	return domain.TransactionResponse{Transaction: *tx, Warnings: warnings}, nil
}
