package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"posdesk/internal/domain"
	"posdesk/internal/store"
	"posdesk/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetStore(ctx context.Context, storeID string) (*domain.Store, error) {
	var st domain.Store
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, name, currency, COALESCE(timezone,''), created_at
		FROM stores
		WHERE id = $1
	`, storeID).Scan(&st.ID, &st.Code, &st.Name, &st.Currency, &st.Timezone, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	st.CreatedAt = st.CreatedAt.UTC()
	return &st, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, COALESCE(barcode,''), name, cost, price, stock, from_count, active, created_at
		FROM products
		WHERE active = true
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Barcode, &p.Name, &p.Cost, &p.Price, &p.Stock, &p.FromCount, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.SKU == "" || product.Name == "" {
		return nil, store.ErrInvalid
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, sku, barcode, name, cost, price, stock, from_count, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())
	`, product.ID, product.SKU, nullIfEmpty(product.Barcode), product.Name, product.Cost,
		product.Price, product.Stock, product.FromCount, product.Active, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	return s.findProduct(ctx, "id", id)
}

func (s *Store) FindProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	return s.findProduct(ctx, "sku", sku)
}

func (s *Store) FindProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	return s.findProduct(ctx, "barcode", barcode)
}

func (s *Store) findProduct(ctx context.Context, column string, value string) (*domain.Product, error) {
	switch column {
	case "id", "sku", "barcode":
	default:
		return nil, fmt.Errorf("unsupported lookup column")
	}

	var p domain.Product
	query := fmt.Sprintf(`
		SELECT id, sku, COALESCE(barcode,''), name, cost, price, stock, from_count, active, created_at
		FROM products
		WHERE %s = $1
	`, column)
	err := s.db.QueryRowContext(ctx, query, value).
		Scan(&p.ID, &p.SKU, &p.Barcode, &p.Name, &p.Cost, &p.Price, &p.Stock, &p.FromCount, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.SKU == "" || product.Name == "" {
		return nil, store.ErrInvalid
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET sku = $2, barcode = $3, name = $4, cost = $5, price = $6, active = $7, updated_at = now()
		WHERE id = $1
	`, product.ID, product.SKU, nullIfEmpty(product.Barcode), product.Name, product.Cost, product.Price, product.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) AdjustProductStock(ctx context.Context, productID string, qty int, op store.StockOp) (int, error) {
	var query string
	switch op {
	case store.StockAdd:
		query = `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1 RETURNING stock`
	case store.StockSubtract:
		query = `UPDATE products SET stock = GREATEST(0, stock - $2), updated_at = now() WHERE id = $1 RETURNING stock`
	case store.StockSet:
		if qty < 0 {
			return 0, store.ErrInvalid
		}
		query = `UPDATE products SET stock = $2, updated_at = now() WHERE id = $1 RETURNING stock`
	default:
		return 0, store.ErrInvalid
	}

	var stock int
	err := s.db.QueryRowContext(ctx, query, productID, qty).Scan(&stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrNotFound
		}
		return 0, err
	}
	return stock, nil
}

func (s *Store) AdjustStoreStock(ctx context.Context, storeID string, productID string, qty int, op store.StockOp) (int, error) {
	var query string
	switch op {
	case store.StockAdd:
		query = `
			INSERT INTO store_stocks (store_id, product_id, qty, updated_at)
			VALUES ($1, $2, GREATEST(0, $3), now())
			ON CONFLICT (store_id, product_id)
			DO UPDATE SET qty = store_stocks.qty + $3, updated_at = now()
			RETURNING qty`
	case store.StockSubtract:
		query = `
			INSERT INTO store_stocks (store_id, product_id, qty, updated_at)
			VALUES ($1, $2, 0, now())
			ON CONFLICT (store_id, product_id)
			DO UPDATE SET qty = GREATEST(0, store_stocks.qty - $3), updated_at = now()
			RETURNING qty`
	case store.StockSet:
		if qty < 0 {
			return 0, store.ErrInvalid
		}
		query = `
			INSERT INTO store_stocks (store_id, product_id, qty, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (store_id, product_id)
			DO UPDATE SET qty = $3, updated_at = now()
			RETURNING qty`
	default:
		return 0, store.ErrInvalid
	}

	var stock int
	if err := s.db.QueryRowContext(ctx, query, storeID, productID, qty).Scan(&stock); err != nil {
		return 0, err
	}
	return stock, nil
}

func (s *Store) GetStoreStocks(ctx context.Context, storeID string, productIDs []string) (map[string]int, error) {
	result := make(map[string]int, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}
	for _, id := range productIDs {
		result[id] = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, qty
		FROM store_stocks
		WHERE store_id = $1 AND product_id = ANY($2)
	`, storeID, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var qty int
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, err
		}
		result[id] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) OpenDayOperation(ctx context.Context, op domain.DayOperation) (*domain.DayOperation, error) {
	if op.StoreID == "" || op.Date == "" {
		return nil, store.ErrInvalid
	}
	if op.ID == "" {
		op.ID = xid.New("day")
	}
	if op.OpenedAt.IsZero() {
		op.OpenedAt = time.Now().UTC()
	}
	op.Status = domain.DayStatusOpen

	// A partial unique index on (store_id) WHERE status = 'open' turns a
	// double-open race into a unique violation.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO day_operations (id, store_id, date, status, opening_cash, cash_total, card_total, opened_by, opened_at)
		VALUES ($1,$2,$3,$4,$5,0,0,$6,$7)
	`, op.ID, op.StoreID, op.Date, op.Status, op.OpeningCash, op.OpenedBy, op.OpenedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := op
	return &created, nil
}

func (s *Store) CloseDayOperation(ctx context.Context, storeID string, closedAt time.Time) (*domain.DayOperation, error) {
	var op domain.DayOperation
	var closed sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		UPDATE day_operations
		SET status = 'closed', closed_at = $2
		WHERE store_id = $1 AND status = 'open'
		RETURNING id, store_id, date, status, opening_cash, cash_total, card_total, opened_by, opened_at, closed_at
	`, storeID, closedAt).Scan(&op.ID, &op.StoreID, &op.Date, &op.Status, &op.OpeningCash,
		&op.CashTotal, &op.CardTotal, &op.OpenedBy, &op.OpenedAt, &closed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	op.OpenedAt = op.OpenedAt.UTC()
	if closed.Valid {
		at := closed.Time.UTC()
		op.ClosedAt = &at
	}
	return &op, nil
}

func (s *Store) GetOpenDayOperation(ctx context.Context, storeID string) (*domain.DayOperation, error) {
	var op domain.DayOperation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, store_id, date, status, opening_cash, cash_total, card_total, opened_by, opened_at
		FROM day_operations
		WHERE store_id = $1 AND status = 'open'
	`, storeID).Scan(&op.ID, &op.StoreID, &op.Date, &op.Status, &op.OpeningCash,
		&op.CashTotal, &op.CardTotal, &op.OpenedBy, &op.OpenedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	op.OpenedAt = op.OpenedAt.UTC()
	return &op, nil
}

func (s *Store) AccumulateDayTotals(ctx context.Context, storeID string, cash decimal.Decimal, card decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE day_operations
		SET cash_total = cash_total + $2, card_total = card_total + $3
		WHERE store_id = $1 AND status = 'open'
	`, storeID, cash, card)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if tx.Number == "" || tx.StoreID == "" || len(tx.Items) == 0 {
		return nil, store.ErrInvalid
	}
	if tx.ID == "" {
		tx.ID = xid.New("tx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO transactions (id, number, store_id, customer_id, cashier, status, payment_method,
			subtotal, tax, discount, total, refund_amount, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,0,$12)
	`, tx.ID, tx.Number, tx.StoreID, nullIfEmpty(tx.CustomerID), tx.Cashier, tx.Status,
		tx.PaymentMethod, tx.Subtotal, tx.Tax, tx.Discount, tx.Total, tx.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateNumber
		}
		return nil, err
	}

	for i, item := range tx.Items {
		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO transaction_items (transaction_id, line_no, product_id, name, qty, unit_price, total)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, tx.ID, i+1, nullIfEmpty(item.ProductID), item.Name, item.Qty, item.UnitPrice, item.Total)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	created := tx
	return &created, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	tx, err := s.scanTransactionRow(s.db.QueryRowContext(ctx, `
		SELECT id, number, store_id, COALESCE(customer_id,''), cashier, status, payment_method,
			subtotal, tax, discount, total, refund_amount, COALESCE(refund_reason,''),
			COALESCE(void_reason,''), refunded_at, voided_at, created_at
		FROM transactions
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, err
	}
	items, err := s.loadItems(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	tx.Items = items
	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, storeID string, limit int) ([]domain.Transaction, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, store_id, COALESCE(customer_id,''), cashier, status, payment_method,
			subtotal, tax, discount, total, refund_amount, COALESCE(refund_reason,''),
			COALESCE(void_reason,''), refunded_at, voided_at, created_at
		FROM transactions
		WHERE ($1 = '' OR store_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, storeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Transaction, 0, limit)
	for rows.Next() {
		tx, err := s.scanTransactionRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		items, err := s.loadItems(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Items = items
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanTransactionRow(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var refundedAt, voidedAt sql.NullTime
	err := row.Scan(&tx.ID, &tx.Number, &tx.StoreID, &tx.CustomerID, &tx.Cashier, &tx.Status,
		&tx.PaymentMethod, &tx.Subtotal, &tx.Tax, &tx.Discount, &tx.Total, &tx.RefundAmount,
		&tx.RefundReason, &tx.VoidReason, &refundedAt, &voidedAt, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	tx.CreatedAt = tx.CreatedAt.UTC()
	if refundedAt.Valid {
		at := refundedAt.Time.UTC()
		tx.RefundedAt = &at
	}
	if voidedAt.Valid {
		at := voidedAt.Time.UTC()
		tx.VoidedAt = &at
	}
	return &tx, nil
}

func (s *Store) loadItems(ctx context.Context, transactionID string) ([]domain.TransactionItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(product_id,''), name, qty, unit_price, total
		FROM transaction_items
		WHERE transaction_id = $1
		ORDER BY line_no
	`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.TransactionItem, 0, 8)
	for rows.Next() {
		var item domain.TransactionItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Qty, &item.UnitPrice, &item.Total); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) MarkTransactionCompleted(ctx context.Context, id string) (*domain.Transaction, error) {
	if err := s.transitionFrom(ctx, id, domain.TxStatusPending, `
		UPDATE transactions
		SET status = 'completed'
		WHERE id = $1
	`); err != nil {
		return nil, err
	}
	return s.GetTransaction(ctx, id)
}

func (s *Store) MarkTransactionRefunded(ctx context.Context, id string, amount decimal.Decimal, reason string, at time.Time) (*domain.Transaction, error) {
	if err := s.transitionFrom(ctx, id, domain.TxStatusCompleted, `
		UPDATE transactions
		SET status = 'refunded', refund_amount = $2, refund_reason = $3, refunded_at = $4
		WHERE id = $1
	`, amount, reason, at); err != nil {
		return nil, err
	}
	return s.GetTransaction(ctx, id)
}

func (s *Store) MarkTransactionVoided(ctx context.Context, id string, reason string, at time.Time) (*domain.Transaction, error) {
	if err := s.transitionFrom(ctx, id, domain.TxStatusCompleted, `
		UPDATE transactions
		SET status = 'voided', void_reason = $2, voided_at = $3
		WHERE id = $1
	`, reason, at); err != nil {
		return nil, err
	}
	return s.GetTransaction(ctx, id)
}

// transitionFrom moves a transaction out of the given status. The row
// lock makes concurrent refund and void attempts serialize, so exactly
// one wins and the loser sees ErrConflict.
func (s *Store) transitionFrom(ctx context.Context, id string, fromStatus string, updateQuery string, args ...any) error {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = pgTx.Rollback() }()

	var status string
	err = pgTx.QueryRowContext(ctx, `SELECT status FROM transactions WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}
	if status != fromStatus {
		return store.ErrConflict
	}

	if _, err := pgTx.ExecContext(ctx, updateQuery, append([]any{id}, args...)...); err != nil {
		return err
	}
	return pgTx.Commit()
}

func (s *Store) MaxTransactionSequence(ctx context.Context, storeID string, datePrefix string) (int, error) {
	var max int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(number FROM 9) AS INTEGER)), 0)
		FROM transactions
		WHERE store_id = $1 AND number LIKE $2 || '%' AND CHAR_LENGTH(number) = 12
	`, storeID, datePrefix).Scan(&max)
	if err != nil {
		return 0, err
	}
	return max, nil
}

func (s *Store) TransactionNumberExists(ctx context.Context, storeID string, number string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM transactions WHERE store_id = $1 AND number = $2)
	`, storeID, number).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrInvalid
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, credit_balance, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, customer.ID, customer.Name, nullIfEmpty(customer.Phone), customer.CreditBalance, customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var customer domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(phone,''), credit_balance, created_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&customer.ID, &customer.Name, &customer.Phone, &customer.CreditBalance, &customer.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	customer.CreatedAt = customer.CreatedAt.UTC()
	return &customer, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(phone,''), credit_balance, created_at
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.CreditBalance, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) AppendCreditEntry(ctx context.Context, customerID string, kind string, amount decimal.Decimal, transactionID string) (*domain.CreditTransaction, error) {
	if kind != domain.CreditTypeCharge && kind != domain.CreditTypePayment {
		return nil, store.ErrInvalid
	}
	if !amount.IsPositive() {
		return nil, store.ErrInvalid
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var previous decimal.Decimal
	err = pgTx.QueryRowContext(ctx, `
		SELECT credit_balance FROM customers WHERE id = $1 FOR UPDATE
	`, customerID).Scan(&previous)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	next := previous
	if kind == domain.CreditTypeCharge {
		next = previous.Add(amount)
	} else {
		next = previous.Sub(amount)
	}

	entry := domain.CreditTransaction{
		ID:              xid.New("cred"),
		CustomerID:      customerID,
		TransactionID:   transactionID,
		Type:            kind,
		Amount:          amount,
		PreviousBalance: previous,
		NewBalance:      next,
		CreatedAt:       time.Now().UTC(),
	}
	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO credit_transactions (id, customer_id, transaction_id, type, amount, previous_balance, new_balance, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.CustomerID, nullIfEmpty(entry.TransactionID), entry.Type, entry.Amount,
		entry.PreviousBalance, entry.NewBalance, entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	_, err = pgTx.ExecContext(ctx, `
		UPDATE customers SET credit_balance = $2 WHERE id = $1
	`, customerID, next)
	if err != nil {
		return nil, err
	}
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	return &entry, nil
}

func (s *Store) ListCreditHistory(ctx context.Context, customerID string, limit int) ([]domain.CreditTransaction, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, COALESCE(transaction_id,''), type, amount, previous_balance, new_balance, created_at
		FROM credit_transactions
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]domain.CreditTransaction, 0, limit)
	for rows.Next() {
		var entry domain.CreditTransaction
		if err := rows.Scan(&entry.ID, &entry.CustomerID, &entry.TransactionID, &entry.Type,
			&entry.Amount, &entry.PreviousBalance, &entry.NewBalance, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *Store) CreateStockTakingSession(ctx context.Context, session domain.StockTakingSession) (*domain.StockTakingSession, error) {
	if session.StoreID == "" || session.Date == "" {
		return nil, store.ErrInvalid
	}
	if session.ID == "" {
		session.ID = xid.New("stk")
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO stock_taking_sessions (id, store_id, date, notes, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, session.ID, session.StoreID, session.Date, nullIfEmpty(session.Notes), session.CreatedBy, session.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	for i, item := range session.Items {
		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO stock_taking_items (session_id, line_no, product_id, sku, barcode, name, counted_qty, unit_cost, existed)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, session.ID, i+1, nullIfEmpty(item.ProductID), nullIfEmpty(item.SKU), nullIfEmpty(item.Barcode),
			item.Name, item.CountedQty, item.UnitCost, item.Existed)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	created := session
	return &created, nil
}

func (s *Store) GetStockTakingSession(ctx context.Context, storeID string, date string) (*domain.StockTakingSession, error) {
	var session domain.StockTakingSession
	var notes sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, store_id, date, notes, created_by, created_at
		FROM stock_taking_sessions
		WHERE store_id = $1 AND date = $2
	`, storeID, date).Scan(&session.ID, &session.StoreID, &session.Date, &notes, &session.CreatedBy, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	session.Notes = notes.String
	session.CreatedAt = session.CreatedAt.UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(product_id,''), COALESCE(sku,''), COALESCE(barcode,''), name, counted_qty, unit_cost, existed
		FROM stock_taking_items
		WHERE session_id = $1
		ORDER BY line_no
	`, session.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.StockTakingItem
		if err := rows.Scan(&item.ProductID, &item.SKU, &item.Barcode, &item.Name,
			&item.CountedQty, &item.UnitCost, &item.Existed); err != nil {
			return nil, err
		}
		session.Items = append(session.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, store_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.StoreID, entry.ActorUsername, entry.ActorRole, entry.Action,
		entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.Add(-24 * time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE ($1 = '' OR store_id = $1) AND created_at BETWEEN $2 AND $3
		ORDER BY created_at DESC
		LIMIT $4
	`, storeID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.StoreID, &entry.ActorUsername, &entry.ActorRole,
			&entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalid
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.CreatedAt = u.CreatedAt.UTC()
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
