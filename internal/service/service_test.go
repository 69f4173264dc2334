package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"posdesk/internal/clients/invoice"
	"posdesk/internal/domain"
	"posdesk/internal/reconcile"
	"posdesk/internal/store"
	"posdesk/internal/store/memory"
)

var testBase = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	repo := memory.New()
	repo.PutStore(domain.Store{
		ID:       "main-store",
		Code:     "MAIN",
		Name:     "Test Store",
		Currency: "USD",
		Timezone: "UTC",
	})

	svc := New(Config{Repo: repo})
	svc.now = func() time.Time { return testBase }
	return svc, repo
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "cashier", Role: "cashier"})
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func seedProduct(t *testing.T, svc *Service, repo *memory.Store, sku string, name string, cost int64, price int64, stock int) domain.Product {
	t.Helper()
	created, err := repo.CreateProduct(context.Background(), domain.Product{
		SKU:    sku,
		Name:   name,
		Cost:   decimal.NewFromInt(cost),
		Price:  decimal.NewFromInt(price),
		Stock:  stock,
		Active: true,
	})
	if err != nil {
		t.Fatalf("seed product %s: %v", sku, err)
	}
	if stock > 0 {
		if _, err := repo.AdjustStoreStock(context.Background(), "main-store", created.ID, stock, store.StockSet); err != nil {
			t.Fatalf("seed stock %s: %v", sku, err)
		}
	}
	return *created
}

func openDay(t *testing.T, svc *Service) domain.DayOperation {
	t.Helper()
	day, err := svc.OpenDay(cashierCtx(), domain.DayOpenRequest{OpeningCash: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("open day: %v", err)
	}
	return day
}

func storeStock(t *testing.T, repo *memory.Store, productID string) int {
	t.Helper()
	stocks, err := repo.GetStoreStocks(context.Background(), "main-store", []string{productID})
	if err != nil {
		t.Fatalf("get store stocks: %v", err)
	}
	return stocks[productID]
}

func TestCreateSaleRejectedWhenDayNotOpen(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)

	_, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 1, UnitPrice: product.Price}},
	})
	var gateErr *domain.GateError
	if !errors.As(err, &gateErr) {
		t.Fatalf("expected gate error, got %v", err)
	}
	if gateErr.Code != domain.GateDayNotOpen {
		t.Fatalf("expected DAY_NOT_OPEN, got %s", gateErr.Code)
	}
	if gateErr.BusinessDate != "2024-01-01" {
		t.Fatalf("unexpected business date %s", gateErr.BusinessDate)
	}
}

func TestCreateSaleRejectedOnDateMismatch(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)
	openDay(t, svc)

	// Nobody closed yesterday's register.
	svc.now = func() time.Time { return testBase.Add(24 * time.Hour) }

	_, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 1, UnitPrice: product.Price}},
	})
	var gateErr *domain.GateError
	if !errors.As(err, &gateErr) {
		t.Fatalf("expected gate error, got %v", err)
	}
	if gateErr.Code != domain.GateDateMismatch {
		t.Fatalf("expected DATE_MISMATCH, got %s", gateErr.Code)
	}
	if gateErr.OpenDate != "2024-01-01" || gateErr.BusinessDate != "2024-01-02" {
		t.Fatalf("unexpected dates: open=%s business=%s", gateErr.OpenDate, gateErr.BusinessDate)
	}
}

func TestCreateSaleNumbersAndStock(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)
	openDay(t, svc)

	resp, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 2, UnitPrice: product.Price}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if resp.Transaction.Number != "202401010001" {
		t.Fatalf("expected first number 202401010001, got %s", resp.Transaction.Number)
	}
	if resp.Transaction.Status != domain.TxStatusCompleted {
		t.Fatalf("expected completed, got %s", resp.Transaction.Status)
	}
	if !resp.Transaction.Total.Equal(decimal.NewFromInt(16)) {
		t.Fatalf("total = %s, want 16", resp.Transaction.Total)
	}
	if len(resp.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", resp.Warnings)
	}

	if got := storeStock(t, repo, product.ID); got != 8 {
		t.Fatalf("store stock = %d, want 8", got)
	}
	mirror, err := repo.GetProductByID(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if mirror.Stock != 8 {
		t.Fatalf("mirror stock = %d, want 8", mirror.Stock)
	}

	second, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 1, UnitPrice: product.Price}},
	})
	if err != nil {
		t.Fatalf("second sale: %v", err)
	}
	if second.Transaction.Number != "202401010002" {
		t.Fatalf("expected 202401010002, got %s", second.Transaction.Number)
	}
}

func TestCreateSaleSkipsStockForAdHocLines(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)
	openDay(t, svc)

	_, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items: []domain.SaleItemRequest{
			{Name: "Delivery Fee", Qty: 1, UnitPrice: decimal.NewFromInt(3)},
			{ProductID: product.ID, Qty: 0, UnitPrice: product.Price},
		},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if got := storeStock(t, repo, product.ID); got != 10 {
		t.Fatalf("stock should be untouched, got %d", got)
	}
}

func TestRefundRestoresStockAndBlocksSecondTransition(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)
	openDay(t, svc)

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 2, UnitPrice: product.Price}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if got := storeStock(t, repo, product.ID); got != 8 {
		t.Fatalf("stock after sale = %d, want 8", got)
	}

	refunded, err := svc.RefundTransaction(adminCtx(), domain.RefundRequest{
		TransactionID: sale.Transaction.ID,
		Amount:        sale.Transaction.Total,
		Reason:        "customer return",
	})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refunded.Transaction.Status != domain.TxStatusRefunded {
		t.Fatalf("status = %s, want refunded", refunded.Transaction.Status)
	}
	if got := storeStock(t, repo, product.ID); got != 10 {
		t.Fatalf("stock after refund = %d, want 10", got)
	}

	if _, err := svc.RefundTransaction(adminCtx(), domain.RefundRequest{
		TransactionID: sale.Transaction.ID,
		Amount:        decimal.NewFromInt(1),
	}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("second refund should conflict, got %v", err)
	}
	if _, err := svc.VoidTransaction(adminCtx(), domain.VoidRequest{
		TransactionID: sale.Transaction.ID,
	}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("void after refund should conflict, got %v", err)
	}
}

func TestRefundAmountMayNotExceedTotal(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)
	openDay(t, svc)

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 1, UnitPrice: product.Price}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	_, err = svc.RefundTransaction(adminCtx(), domain.RefundRequest{
		TransactionID: sale.Transaction.ID,
		Amount:        sale.Transaction.Total.Add(decimal.NewFromInt(1)),
	})
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
}

func TestVoidWindowEnforced(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)
	openDay(t, svc)

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 2, UnitPrice: product.Price}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	svc.now = func() time.Time { return testBase.Add(25 * time.Hour) }

	if _, err := svc.VoidTransaction(adminCtx(), domain.VoidRequest{
		TransactionID: sale.Transaction.ID,
		Reason:        "mistake",
	}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("void past window should conflict, got %v", err)
	}

	// Refund has no age limit.
	refunded, err := svc.RefundTransaction(adminCtx(), domain.RefundRequest{
		TransactionID: sale.Transaction.ID,
		Amount:        sale.Transaction.Total,
	})
	if err != nil {
		t.Fatalf("refund of old transaction: %v", err)
	}
	if refunded.Transaction.Status != domain.TxStatusRefunded {
		t.Fatalf("status = %s", refunded.Transaction.Status)
	}
}

func TestVoidWithinWindowRestoresStock(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)
	openDay(t, svc)

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 2, UnitPrice: product.Price}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	svc.now = func() time.Time { return testBase.Add(2 * time.Hour) }
	voided, err := svc.VoidTransaction(adminCtx(), domain.VoidRequest{
		TransactionID: sale.Transaction.ID,
		Reason:        "wrong items",
	})
	if err != nil {
		t.Fatalf("void: %v", err)
	}
	if voided.Transaction.Status != domain.TxStatusVoided {
		t.Fatalf("status = %s, want voided", voided.Transaction.Status)
	}
	if got := storeStock(t, repo, product.ID); got != 10 {
		t.Fatalf("stock after void = %d, want 10", got)
	}
}

func TestCreditSaleWritesLedger(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)
	openDay(t, svc)

	customer, err := svc.CreateCustomer(cashierCtx(), domain.CustomerCreateRequest{Name: "Ayu"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	if _, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCredit,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 2, UnitPrice: product.Price}},
	}); !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("credit sale without customer should be invalid, got %v", err)
	}

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		CustomerID:    customer.ID,
		PaymentMethod: domain.PaymentCredit,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 2, UnitPrice: product.Price}},
	})
	if err != nil {
		t.Fatalf("credit sale: %v", err)
	}

	history, err := svc.CreditHistory(cashierCtx(), customer.ID, 10)
	if err != nil {
		t.Fatalf("credit history: %v", err)
	}
	if len(history.Entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(history.Entries))
	}
	entry := history.Entries[0]
	if entry.Type != domain.CreditTypeCharge || !entry.Amount.Equal(sale.Transaction.Total) {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if !entry.PreviousBalance.IsZero() || !entry.NewBalance.Equal(sale.Transaction.Total) {
		t.Fatalf("balance snapshots wrong: prev=%s new=%s", entry.PreviousBalance, entry.NewBalance)
	}
	if !history.Customer.CreditBalance.Equal(DerivedCreditBalance(history.Entries)) {
		t.Fatalf("stored balance %s disagrees with ledger %s",
			history.Customer.CreditBalance, DerivedCreditBalance(history.Entries))
	}

	// A refund reverses the charge on the ledger.
	if _, err := svc.RefundTransaction(adminCtx(), domain.RefundRequest{
		TransactionID: sale.Transaction.ID,
		Amount:        sale.Transaction.Total,
	}); err != nil {
		t.Fatalf("refund credit sale: %v", err)
	}

	history, err = svc.CreditHistory(cashierCtx(), customer.ID, 10)
	if err != nil {
		t.Fatalf("credit history after refund: %v", err)
	}
	if len(history.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history.Entries))
	}
	if !history.Customer.CreditBalance.IsZero() {
		t.Fatalf("balance after full refund = %s, want 0", history.Customer.CreditBalance)
	}
	if !history.Customer.CreditBalance.Equal(DerivedCreditBalance(history.Entries)) {
		t.Fatalf("stored balance disagrees with ledger after refund")
	}
}

func TestCreditPaymentSettlesBalance(t *testing.T) {
	svc, _ := newTestService(t)

	customer, err := svc.CreateCustomer(cashierCtx(), domain.CustomerCreateRequest{Name: "Budi"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if _, err := svc.repo.AppendCreditEntry(context.Background(), customer.ID, domain.CreditTypeCharge, decimal.NewFromInt(50), ""); err != nil {
		t.Fatalf("seed charge: %v", err)
	}

	entry, err := svc.RecordCreditPayment(cashierCtx(), customer.ID, domain.CreditPaymentRequest{Amount: decimal.NewFromInt(20)})
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if !entry.NewBalance.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("new balance = %s, want 30", entry.NewBalance)
	}
}

type mirrorFailRepo struct {
	*memory.Store
}

func (r *mirrorFailRepo) AdjustProductStock(_ context.Context, _ string, _ int, _ store.StockOp) (int, error) {
	return 0, errors.New("mirror down")
}

func TestMirrorFailureIsWarningNotError(t *testing.T) {
	repo := memory.New()
	repo.PutStore(domain.Store{ID: "main-store", Code: "MAIN", Name: "Test", Currency: "USD", Timezone: "UTC"})
	svc := New(Config{Repo: &mirrorFailRepo{repo}})
	svc.now = func() time.Time { return testBase }

	product := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)
	openDay(t, svc)

	resp, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 2, UnitPrice: product.Price}},
	})
	if err != nil {
		t.Fatalf("sale should survive mirror failure: %v", err)
	}
	if len(resp.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", resp.Warnings)
	}
	if got := storeStock(t, repo, product.ID); got != 8 {
		t.Fatalf("authoritative stock = %d, want 8", got)
	}
}

type creditFailRepo struct {
	*memory.Store
}

func (r *creditFailRepo) AppendCreditEntry(_ context.Context, _ string, _ string, _ decimal.Decimal, _ string) (*domain.CreditTransaction, error) {
	return nil, errors.New("credit store down")
}

func TestCreditLedgerFailureIsWarningNotError(t *testing.T) {
	repo := memory.New()
	repo.PutStore(domain.Store{ID: "main-store", Code: "MAIN", Name: "Test", Currency: "USD", Timezone: "UTC"})
	svc := New(Config{Repo: &creditFailRepo{repo}})
	svc.now = func() time.Time { return testBase }

	product := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)
	openDay(t, svc)

	customer, err := svc.CreateCustomer(cashierCtx(), domain.CustomerCreateRequest{Name: "Dewi"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	resp, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		CustomerID:    customer.ID,
		PaymentMethod: domain.PaymentCredit,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 2, UnitPrice: product.Price}},
	})
	if err != nil {
		t.Fatalf("sale should survive ledger failure: %v", err)
	}
	if resp.Transaction.Status != domain.TxStatusCompleted {
		t.Fatalf("status = %s, want completed", resp.Transaction.Status)
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0] != "credit ledger charge was not recorded" {
		t.Fatalf("expected the ledger warning, got %v", resp.Warnings)
	}
	if got := storeStock(t, repo, product.ID); got != 8 {
		t.Fatalf("stock = %d, want 8", got)
	}

	pending, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		CustomerID:    customer.ID,
		PaymentMethod: domain.PaymentCredit,
		Status:        domain.TxStatusPending,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 1, UnitPrice: product.Price}},
	})
	if err != nil {
		t.Fatalf("create pending sale: %v", err)
	}
	completed, err := svc.CompleteTransaction(cashierCtx(), pending.Transaction.ID)
	if err != nil {
		t.Fatalf("complete should survive ledger failure: %v", err)
	}
	if len(completed.Warnings) != 1 || completed.Warnings[0] != "credit ledger charge was not recorded" {
		t.Fatalf("expected the ledger warning on complete, got %v", completed.Warnings)
	}
	if completed.Transaction.Status != domain.TxStatusCompleted {
		t.Fatalf("status = %s, want completed", completed.Transaction.Status)
	}
}

func TestCreditSaleRequiresExistingCustomer(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)
	openDay(t, svc)

	_, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		CustomerID:    "no-such-customer",
		PaymentMethod: domain.PaymentCredit,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 1, UnitPrice: product.Price}},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := storeStock(t, repo, product.ID); got != 10 {
		t.Fatalf("stock moved on rejected sale: %d", got)
	}
}

func TestCreateSaleRejectsNegativeQuantity(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)
	openDay(t, svc)

	_, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items: []domain.SaleItemRequest{
			{ProductID: product.ID, Qty: 3, UnitPrice: product.Price},
			{ProductID: product.ID, Qty: -2, UnitPrice: product.Price},
		},
	})
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if got := storeStock(t, repo, product.ID); got != 10 {
		t.Fatalf("stock moved on rejected sale: %d", got)
	}
	txs, err := repo.ListTransactions(context.Background(), "main-store", 10)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("rejected sale was persisted: %d rows", len(txs))
	}
}

type failingRenderer struct{}

func (failingRenderer) Render(_ context.Context, _ domain.Transaction) (*invoice.RenderResult, error) {
	return nil, errors.New("renderer down")
}

func TestInvoiceRenderFailureIsWarning(t *testing.T) {
	repo := memory.New()
	repo.PutStore(domain.Store{ID: "main-store", Code: "MAIN", Name: "Test", Currency: "USD", Timezone: "UTC"})
	svc := New(Config{Repo: repo, Invoices: failingRenderer{}})
	svc.now = func() time.Time { return testBase }

	product := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)
	openDay(t, svc)

	resp, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 1, UnitPrice: product.Price}},
	})
	if err != nil {
		t.Fatalf("sale should survive renderer failure: %v", err)
	}
	found := false
	for _, warning := range resp.Warnings {
		if warning == "invoice was not rendered" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected invoice warning, got %v", resp.Warnings)
	}
}

func TestConcurrentSalesGetDistinctNumbers(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 100)
	openDay(t, svc)

	const workers = 4
	var wg sync.WaitGroup
	numbers := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
				PaymentMethod: domain.PaymentCash,
				Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 1, UnitPrice: product.Price}},
			})
			if err != nil {
				t.Errorf("concurrent sale: %v", err)
				return
			}
			numbers <- resp.Transaction.Number
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for number := range numbers {
		if seen[number] {
			t.Fatalf("duplicate number %s", number)
		}
		seen[number] = true
	}
}

func TestDayTotalsAccumulate(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)
	openDay(t, svc)

	if _, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 1, UnitPrice: product.Price}},
	}); err != nil {
		t.Fatalf("cash sale: %v", err)
	}
	if _, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCard,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 2, UnitPrice: product.Price}},
	}); err != nil {
		t.Fatalf("card sale: %v", err)
	}

	day, err := svc.CurrentDay(cashierCtx(), "main-store")
	if err != nil {
		t.Fatalf("current day: %v", err)
	}
	if !day.CashTotal.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("cash total = %s, want 8", day.CashTotal)
	}
	if !day.CardTotal.Equal(decimal.NewFromInt(16)) {
		t.Fatalf("card total = %s, want 16", day.CardTotal)
	}
}

func TestOpenDayTwiceConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	openDay(t, svc)
	_, err := svc.OpenDay(cashierCtx(), domain.DayOpenRequest{})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestStockTakingCommitAndZeroMissing(t *testing.T) {
	svc, repo := newTestService(t)
	coffee := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)
	tea := seedProduct(t, svc, repo, "SKU-2", "Tea", 3, 5, 4)
	sugar := seedProduct(t, svc, repo, "SKU-3", "Sugar", 2, 3, 6)
	openDay(t, svc)

	session, err := svc.CreateStockTaking(adminCtx(), domain.StockTakingCreateRequest{
		Items: []domain.StockTakingItemRequest{
			{ProductID: coffee.ID, CountedQty: 7},
			{Barcode: "890123", Name: "Mystery Snack", CountedQty: 2, UnitCost: decimal.NewFromInt(1)},
		},
	})
	if err != nil {
		t.Fatalf("create stock taking: %v", err)
	}
	if session.Date != "2024-01-01" {
		t.Fatalf("session date = %s", session.Date)
	}

	comparison, err := svc.StockTakingComparison(adminCtx(), "main-store", session.Date)
	if err != nil {
		t.Fatalf("comparison: %v", err)
	}
	byName := map[string]domain.ComparisonItem{}
	for _, row := range comparison {
		byName[row.Name] = row
	}
	if row := byName["Coffee"]; row.Variance != -3 || !row.VarianceValue.Equal(decimal.NewFromInt(-15)) {
		t.Fatalf("coffee row: %+v", row)
	}
	if row := byName["Tea"]; row.Status != domain.CountStatusMissing {
		t.Fatalf("tea row: %+v", row)
	}
	if row := byName["Mystery Snack"]; row.Status != domain.CountStatusExtra {
		t.Fatalf("snack row: %+v", row)
	}

	commit, err := svc.CommitStockTaking(adminCtx(), "main-store", session.Date)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if commit.Summary.UpdatedProducts != 1 || commit.Summary.NewProducts != 1 {
		t.Fatalf("summary: %+v", commit.Summary)
	}
	if got := storeStock(t, repo, coffee.ID); got != 7 {
		t.Fatalf("coffee stock = %d, want 7", got)
	}
	// Missing products stay until an operator zeroes them.
	if got := storeStock(t, repo, tea.ID); got != 4 {
		t.Fatalf("tea stock = %d, want 4", got)
	}
	snack, err := repo.FindProductByBarcode(context.Background(), "890123")
	if err != nil {
		t.Fatalf("new product missing: %v", err)
	}
	if !snack.FromCount {
		t.Fatal("expected from_count flag on created product")
	}
	if got := storeStock(t, repo, snack.ID); got != 2 {
		t.Fatalf("snack stock = %d, want 2", got)
	}

	if _, err := svc.ZeroMissing(cashierCtx(), "main-store", session.Date, nil); err == nil {
		t.Fatal("zero-missing should require admin")
	}

	// A selected-id run touches only the named products.
	zeroed, err := svc.ZeroMissing(adminCtx(), "main-store", session.Date, []string{tea.ID})
	if err != nil {
		t.Fatalf("zero missing (selected): %v", err)
	}
	if zeroed.Summary.UpdatedProducts != 1 {
		t.Fatalf("expected exactly one zeroed product, got %+v", zeroed.Summary)
	}
	if got := storeStock(t, repo, tea.ID); got != 0 {
		t.Fatalf("tea stock after zero-missing = %d, want 0", got)
	}
	if got := storeStock(t, repo, sugar.ID); got != 6 {
		t.Fatalf("sugar stock should be untouched, got %d", got)
	}

	// Without a selection, every remaining missing product is zeroed.
	if _, err := svc.ZeroMissing(adminCtx(), "main-store", session.Date, nil); err != nil {
		t.Fatalf("zero missing (all): %v", err)
	}
	if got := storeStock(t, repo, sugar.ID); got != 0 {
		t.Fatalf("sugar stock after full zero-missing = %d, want 0", got)
	}
}

func TestStockTakingExtraAsVarianceLeavesCatalog(t *testing.T) {
	repo := memory.New()
	repo.PutStore(domain.Store{ID: "main-store", Code: "MAIN", Name: "Test", Currency: "USD", Timezone: "UTC"})
	svc := New(Config{Repo: repo, ExtraPolicy: reconcile.PolicyExtraAsVariance})
	svc.now = func() time.Time { return testBase }

	coffee := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)

	session, err := svc.CreateStockTaking(adminCtx(), domain.StockTakingCreateRequest{
		Items: []domain.StockTakingItemRequest{
			{ProductID: coffee.ID, CountedQty: 10},
			{Barcode: "890123", Name: "Mystery Snack", CountedQty: 2, UnitCost: decimal.NewFromInt(1)},
		},
	})
	if err != nil {
		t.Fatalf("create stock taking: %v", err)
	}

	commit, err := svc.CommitStockTaking(adminCtx(), "main-store", session.Date)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if commit.Summary.NewProducts != 0 {
		t.Fatalf("no products should be created, got %d", commit.Summary.NewProducts)
	}
	if _, err := repo.FindProductByBarcode(context.Background(), "890123"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("catalog should be untouched, got %v", err)
	}
}

func TestNegativeVarianceValueScenario(t *testing.T) {
	// Ten on the books, seven counted, unit cost 5: variance -3 worth -15.
	rows := reconcile.Compare(
		[]reconcile.BookItem{{ProductID: "p1", Name: "Coffee", Qty: 10, Cost: decimal.NewFromInt(5)}},
		[]reconcile.CountItem{{ProductID: "p1", Qty: 7}},
	)
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0].Variance != -3 {
		t.Fatalf("variance = %d", rows[0].Variance)
	}
	if !rows[0].VarianceValue.Equal(decimal.NewFromInt(-15)) {
		t.Fatalf("variance value = %s", rows[0].VarianceValue)
	}
}

func TestPendingSaleMovesNothingUntilCompleted(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)
	openDay(t, svc)

	customer, err := svc.CreateCustomer(cashierCtx(), domain.CustomerCreateRequest{Name: "Citra"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	resp, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		CustomerID:    customer.ID,
		PaymentMethod: domain.PaymentCredit,
		Status:        domain.TxStatusPending,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 2, UnitPrice: product.Price}},
	})
	if err != nil {
		t.Fatalf("create pending sale: %v", err)
	}
	if resp.Transaction.Status != domain.TxStatusPending {
		t.Fatalf("status = %s, want pending", resp.Transaction.Status)
	}
	if resp.Transaction.Number == "" {
		t.Fatalf("pending sale still needs a number")
	}
	if got := storeStock(t, repo, product.ID); got != 10 {
		t.Fatalf("stock moved on pending sale: %d", got)
	}
	history, err := svc.CreditHistory(cashierCtx(), customer.ID, 10)
	if err != nil {
		t.Fatalf("credit history: %v", err)
	}
	if len(history.Entries) != 0 {
		t.Fatalf("pending sale wrote %d ledger entries", len(history.Entries))
	}

	completed, err := svc.CompleteTransaction(cashierCtx(), resp.Transaction.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Transaction.Status != domain.TxStatusCompleted {
		t.Fatalf("status = %s, want completed", completed.Transaction.Status)
	}
	if got := storeStock(t, repo, product.ID); got != 8 {
		t.Fatalf("stock = %d, want 8", got)
	}
	history, err = svc.CreditHistory(cashierCtx(), customer.ID, 10)
	if err != nil {
		t.Fatalf("credit history: %v", err)
	}
	if len(history.Entries) != 1 || history.Entries[0].Type != domain.CreditTypeCharge {
		t.Fatalf("expected one charge entry, got %+v", history.Entries)
	}
	if !history.Customer.CreditBalance.Equal(resp.Transaction.Total) {
		t.Fatalf("balance = %s, want %s", history.Customer.CreditBalance, resp.Transaction.Total)
	}

	if _, err := svc.CompleteTransaction(cashierCtx(), resp.Transaction.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("second complete should conflict, got %v", err)
	}
	if got := storeStock(t, repo, product.ID); got != 8 {
		t.Fatalf("stock moved twice: %d", got)
	}
}

func TestCompleteRequiresOpenDay(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)
	openDay(t, svc)

	resp, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Status:        domain.TxStatusPending,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 1, UnitPrice: product.Price}},
	})
	if err != nil {
		t.Fatalf("create pending sale: %v", err)
	}

	if _, err := svc.CloseDay(cashierCtx(), ""); err != nil {
		t.Fatalf("close day: %v", err)
	}

	_, err = svc.CompleteTransaction(cashierCtx(), resp.Transaction.ID)
	var gateErr *domain.GateError
	if !errors.As(err, &gateErr) || gateErr.Code != domain.GateDayNotOpen {
		t.Fatalf("expected DAY_NOT_OPEN gate, got %v", err)
	}
}

func TestCreateSaleRejectsUnknownStatus(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, repo, "SKU-1", "Coffee", 5, 8, 10)
	openDay(t, svc)

	_, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Status:        "voided",
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 1, UnitPrice: product.Price}},
	})
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}
