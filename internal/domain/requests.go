package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type ProductCreateRequest struct {
	SKU          string          `json:"sku"`
	Barcode      string          `json:"barcode,omitempty"`
	Name         string          `json:"name"`
	Cost         decimal.Decimal `json:"cost"`
	Price        decimal.Decimal `json:"price"`
	InitialStock int             `json:"initial_stock"`
	StoreID      string          `json:"store_id,omitempty"`
}

type ProductUpdateRequest struct {
	SKU     string          `json:"sku,omitempty"`
	Barcode string          `json:"barcode,omitempty"`
	Name    string          `json:"name,omitempty"`
	Cost    decimal.Decimal `json:"cost"`
	Price   decimal.Decimal `json:"price"`
	Active  *bool           `json:"active,omitempty"`
}

// ScanResponse carries either a catalog hit or an advisory suggestion
// from the external barcode service, never both.
type ScanResponse struct {
	Product    *Product     `json:"product,omitempty"`
	Suggestion *BarcodeInfo `json:"suggestion,omitempty"`
}

type DayOpenRequest struct {
	StoreID     string          `json:"store_id,omitempty"`
	OpeningCash decimal.Decimal `json:"opening_cash"`
}

type SaleItemRequest struct {
	ProductID string          `json:"product_id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type SaleCreateRequest struct {
	StoreID       string `json:"store_id,omitempty"`
	CustomerID    string `json:"customer_id,omitempty"`
	PaymentMethod string `json:"payment_method"`
	// Status may be "pending" to park the sale without stock or credit
	// movement. Empty means completed.
	Status   string            `json:"status,omitempty"`
	Tax      decimal.Decimal   `json:"tax"`
	Discount decimal.Decimal   `json:"discount"`
	Items    []SaleItemRequest `json:"items"`
}

// SaleResponse returns the stored transaction plus non-fatal warnings,
// such as a failed global stock mirror write or invoice render.
type SaleResponse struct {
	Transaction Transaction `json:"transaction"`
	InvoiceURL  string      `json:"invoice_url,omitempty"`
	Warnings    []string    `json:"warnings,omitempty"`
}

type RefundRequest struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason,omitempty"`
}

type VoidRequest struct {
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason,omitempty"`
}

type TransactionResponse struct {
	Transaction Transaction `json:"transaction"`
	Warnings    []string    `json:"warnings,omitempty"`
}

type CustomerCreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

type CreditPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type CreditHistoryResponse struct {
	Customer Customer            `json:"customer"`
	Entries  []CreditTransaction `json:"entries"`
}

type StockTakingItemRequest struct {
	ProductID  string          `json:"product_id,omitempty"`
	SKU        string          `json:"sku,omitempty"`
	Barcode    string          `json:"barcode,omitempty"`
	Name       string          `json:"name,omitempty"`
	CountedQty int             `json:"counted_qty"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
}

type StockTakingCreateRequest struct {
	StoreID string                   `json:"store_id,omitempty"`
	Date    string                   `json:"date,omitempty"`
	Notes   string                   `json:"notes,omitempty"`
	Items   []StockTakingItemRequest `json:"items"`
}

type ZeroMissingRequest struct {
	ProductIDs []string `json:"product_ids,omitempty"`
}

type StockTakingCommitResponse struct {
	Summary  StockTakingSummary `json:"summary"`
	Items    []ComparisonItem   `json:"items"`
	Warnings []string           `json:"warnings,omitempty"`
}
