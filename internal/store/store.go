package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"posdesk/internal/domain"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalid         = errors.New("invalid input")
	ErrConflict        = errors.New("conflict")
	ErrDuplicateNumber = errors.New("duplicate transaction number")
)

// StockOp selects how AdjustProductStock and AdjustStoreStock combine the
// given quantity with the current stock level.
type StockOp string

const (
	StockAdd      StockOp = "add"
	StockSubtract StockOp = "subtract"
	StockSet      StockOp = "set"
)

type Repository interface {
	GetStore(ctx context.Context, storeID string) (*domain.Store, error)

	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	FindProductBySKU(ctx context.Context, sku string) (*domain.Product, error)
	FindProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	// AdjustProductStock applies op to the global stock mirror and returns
	// the resulting level. Subtracting never drops the level below zero.
	AdjustProductStock(ctx context.Context, productID string, qty int, op StockOp) (int, error)

	// AdjustStoreStock applies op to the per-store stock row, creating it
	// at zero if absent, and returns the resulting level. Subtracting
	// never drops the level below zero.
	AdjustStoreStock(ctx context.Context, storeID string, productID string, qty int, op StockOp) (int, error)
	GetStoreStocks(ctx context.Context, storeID string, productIDs []string) (map[string]int, error)

	// OpenDayOperation returns ErrConflict when an open day already
	// exists for the store.
	OpenDayOperation(ctx context.Context, op domain.DayOperation) (*domain.DayOperation, error)
	CloseDayOperation(ctx context.Context, storeID string, closedAt time.Time) (*domain.DayOperation, error)
	GetOpenDayOperation(ctx context.Context, storeID string) (*domain.DayOperation, error)
	AccumulateDayTotals(ctx context.Context, storeID string, cash decimal.Decimal, card decimal.Decimal) error

	// CreateTransaction persists the transaction and its items as one
	// write. ErrDuplicateNumber signals a number collision and the caller
	// is expected to allocate a fresh number and retry.
	CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, storeID string, limit int) ([]domain.Transaction, error)
	// MarkTransactionCompleted moves a pending transaction to completed.
	// Any other starting status is ErrConflict.
	MarkTransactionCompleted(ctx context.Context, id string) (*domain.Transaction, error)
	MarkTransactionRefunded(ctx context.Context, id string, amount decimal.Decimal, reason string, at time.Time) (*domain.Transaction, error)
	MarkTransactionVoided(ctx context.Context, id string, reason string, at time.Time) (*domain.Transaction, error)
	MaxTransactionSequence(ctx context.Context, storeID string, datePrefix string) (int, error)
	TransactionNumberExists(ctx context.Context, storeID string, number string) (bool, error)

	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	// AppendCreditEntry records the ledger row and moves the customer
	// balance in a single storage transaction.
	AppendCreditEntry(ctx context.Context, customerID string, kind string, amount decimal.Decimal, transactionID string) (*domain.CreditTransaction, error)
	ListCreditHistory(ctx context.Context, customerID string, limit int) ([]domain.CreditTransaction, error)

	CreateStockTakingSession(ctx context.Context, session domain.StockTakingSession) (*domain.StockTakingSession, error)
	GetStockTakingSession(ctx context.Context, storeID string, date string) (*domain.StockTakingSession, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
