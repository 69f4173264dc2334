package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Store struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	Timezone  string    `json:"timezone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	DayStatusOpen   = "open"
	DayStatusClosed = "closed"
)

// DayOperation is the open/closed record gating whether sales may post
// for a store on a given business date.
type DayOperation struct {
	ID          string          `json:"id"`
	StoreID     string          `json:"store_id"`
	Date        string          `json:"date"`
	Status      string          `json:"status"`
	OpeningCash decimal.Decimal `json:"opening_cash"`
	CashTotal   decimal.Decimal `json:"cash_total"`
	CardTotal   decimal.Decimal `json:"card_total"`
	OpenedBy    string          `json:"opened_by"`
	OpenedAt    time.Time       `json:"opened_at"`
	ClosedAt    *time.Time      `json:"closed_at,omitempty"`
}

const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusRefunded  = "refunded"
	TxStatusVoided    = "voided"
)

const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentCredit   = "credit"
	PaymentTransfer = "transfer"
)

type Transaction struct {
	ID            string            `json:"id"`
	Number        string            `json:"number"`
	StoreID       string            `json:"store_id"`
	CustomerID    string            `json:"customer_id,omitempty"`
	Cashier       string            `json:"cashier"`
	Status        string            `json:"status"`
	PaymentMethod string            `json:"payment_method"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	Tax           decimal.Decimal   `json:"tax"`
	Discount      decimal.Decimal   `json:"discount"`
	Total         decimal.Decimal   `json:"total"`
	RefundAmount  decimal.Decimal   `json:"refund_amount"`
	RefundReason  string            `json:"refund_reason,omitempty"`
	VoidReason    string            `json:"void_reason,omitempty"`
	RefundedAt    *time.Time        `json:"refunded_at,omitempty"`
	VoidedAt      *time.Time        `json:"voided_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	Items         []TransactionItem `json:"items"`
}

// TransactionItem is immutable once its parent transaction is persisted.
// ProductID is empty for ad hoc lines, which never touch stock.
type TransactionItem struct {
	ProductID string          `json:"product_id,omitempty"`
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

type Product struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku"`
	Barcode   string          `json:"barcode,omitempty"`
	Name      string          `json:"name"`
	Cost      decimal.Decimal `json:"cost"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	FromCount bool            `json:"from_count"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
}

type Customer struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone,omitempty"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
	CreatedAt     time.Time       `json:"created_at"`
}

const (
	CreditTypeCharge  = "charge"
	CreditTypePayment = "payment"
)

// CreditTransaction is an append-only ledger row. The customer's stored
// balance must always equal the signed sum of these rows.
type CreditTransaction struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customer_id"`
	TransactionID   string          `json:"transaction_id,omitempty"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	CreatedAt       time.Time       `json:"created_at"`
}

type StockTakingSession struct {
	ID        string            `json:"id"`
	StoreID   string            `json:"store_id"`
	Date      string            `json:"date"`
	Notes     string            `json:"notes,omitempty"`
	CreatedBy string            `json:"created_by"`
	CreatedAt time.Time         `json:"created_at"`
	Items     []StockTakingItem `json:"items"`
}

type StockTakingItem struct {
	ProductID  string          `json:"product_id,omitempty"`
	SKU        string          `json:"sku,omitempty"`
	Barcode    string          `json:"barcode,omitempty"`
	Name       string          `json:"name,omitempty"`
	CountedQty int             `json:"counted_qty"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	Existed    bool            `json:"existed"`
}

const (
	CountStatusCounted = "counted"
	CountStatusMissing = "missing"
	CountStatusExtra   = "extra"
)

type ComparisonItem struct {
	ProductID     string          `json:"product_id,omitempty"`
	SKU           string          `json:"sku,omitempty"`
	Barcode       string          `json:"barcode,omitempty"`
	Name          string          `json:"name"`
	SystemQty     int             `json:"system_qty"`
	CountedQty    int             `json:"counted_qty"`
	Variance      int             `json:"variance"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	VarianceValue decimal.Decimal `json:"variance_value"`
	Status        string          `json:"status"`
}

type StockTakingSummary struct {
	NewProducts     int `json:"new_products"`
	UpdatedProducts int `json:"updated_products"`
	TotalItems      int `json:"total_items"`
}

// BarcodeInfo is the advisory payload returned by the external barcode
// enrichment service. Fields may be empty; callers must treat it as a
// best-effort auto-fill suggestion only.
type BarcodeInfo struct {
	Barcode     string `json:"barcode"`
	Name        string `json:"name,omitempty"`
	Brand       string `json:"brand,omitempty"`
	Description string `json:"description,omitempty"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	StoreID       string    `json:"store_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type Actor struct {
	Username string
	Role     string
}
