package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"posdesk/internal/domain"
	"posdesk/internal/store"
	"posdesk/internal/xid"
)

type Store struct {
	mu                 sync.RWMutex
	stores             map[string]domain.Store
	products           map[string]domain.Product
	productIDBySKU     map[string]string
	productIDByBarcode map[string]string
	storeStocks        map[string]map[string]int
	dayOpsByID         map[string]domain.DayOperation
	openDayByStore     map[string]string
	transactionsByID   map[string]*domain.Transaction
	txIDByNumber       map[string]map[string]string
	customersByID      map[string]domain.Customer
	creditByCustomer   map[string][]domain.CreditTransaction
	sessionsByKey      map[string]domain.StockTakingSession
	auditLogs          []domain.AuditLog
	usersByUsername    map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		stores:             make(map[string]domain.Store),
		products:           make(map[string]domain.Product),
		productIDBySKU:     make(map[string]string),
		productIDByBarcode: make(map[string]string),
		storeStocks:        make(map[string]map[string]int),
		dayOpsByID:         make(map[string]domain.DayOperation),
		openDayByStore:     make(map[string]string),
		transactionsByID:   make(map[string]*domain.Transaction),
		txIDByNumber:       make(map[string]map[string]string),
		customersByID:      make(map[string]domain.Customer),
		creditByCustomer:   make(map[string][]domain.CreditTransaction),
		sessionsByKey:      make(map[string]domain.StockTakingSession),
		auditLogs:          make([]domain.AuditLog, 0, 128),
		usersByUsername:    make(map[string]domain.UserAccount),
	}
}

// NewSeeded builds a store pre-filled with demo data for dev mode. The
// backend uses PostgreSQL when DATABASE_URL is set, so the seed only
// ever serves local runs and tests.
func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()
	now := time.Now().UTC()

	s.stores["main-store"] = domain.Store{
		ID:        "main-store",
		Code:      "MAIN",
		Name:      "Main Store",
		Currency:  "IDR",
		Timezone:  "Asia/Jakarta",
		CreatedAt: now,
	}

	products := []domain.Product{
		{SKU: "SKU-MIE-01", Barcode: "8991001010011", Name: "Mie Goreng Instan", Cost: decimal.NewFromInt(2400), Price: decimal.NewFromInt(3500)},
		{SKU: "SKU-TELUR-01", Barcode: "8991001010028", Name: "Telur 10 Butir", Cost: decimal.NewFromInt(22000), Price: decimal.NewFromInt(26500)},
		{SKU: "SKU-SUSU-01", Barcode: "8991001010035", Name: "Susu UHT 1L", Cost: decimal.NewFromInt(14500), Price: decimal.NewFromInt(18900)},
		{SKU: "SKU-KOPI-01", Barcode: "8991001010042", Name: "Kopi Sachet", Cost: decimal.NewFromInt(1800), Price: decimal.NewFromInt(2600)},
		{SKU: "SKU-GULA-01", Barcode: "8991001010059", Name: "Gula 1kg", Cost: decimal.NewFromInt(15200), Price: decimal.NewFromInt(17400)},
		{SKU: "SKU-AIR-01", Barcode: "8991001010066", Name: "Air Mineral 600ml", Cost: decimal.NewFromInt(2900), Price: decimal.NewFromInt(3900)},
	}
	s.storeStocks["main-store"] = make(map[string]int)
	for _, p := range products {
		p.ID = xid.New("prod")
		p.Active = true
		p.Stock = 120
		p.CreatedAt = now
		s.products[p.ID] = p
		s.productIDBySKU[p.SKU] = p.ID
		s.productIDByBarcode[p.Barcode] = p.ID
		s.storeStocks["main-store"][p.ID] = 120
	}

	return s
}

// seedUsers builds the initial in-memory user accounts for dev/demo
// mode. Credentials come from SEED_ADMIN_PASSWORD and
// SEED_CASHIER_PASSWORD, with hardcoded dev defaults and a warning when
// unset.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) GetStore(_ context.Context, storeID string) (*domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stores[storeID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copySt := st
	return &copySt, nil
}

// PutStore registers a store record. Used by seeding and tests.
func (s *Store) PutStore(st domain.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores[st.ID] = st
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return cmpString(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(product.SKU) == "" || strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalid
	}
	if _, exists := s.productIDBySKU[product.SKU]; exists {
		return nil, store.ErrConflict
	}
	if product.Barcode != "" {
		if _, exists := s.productIDByBarcode[product.Barcode]; exists {
			return nil, store.ErrConflict
		}
	}

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.Active = true

	s.products[product.ID] = product
	s.productIDBySKU[product.SKU] = product.ID
	if product.Barcode != "" {
		s.productIDByBarcode[product.Barcode] = product.ID
	}
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) FindProductBySKU(_ context.Context, sku string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.productIDBySKU[sku]
	if !ok {
		return nil, store.ErrNotFound
	}
	product := s.products[id]
	return &product, nil
}

func (s *Store) FindProductByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.productIDByBarcode[barcode]
	if !ok {
		return nil, store.ErrNotFound
	}
	product := s.products[id]
	return &product, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if strings.TrimSpace(product.SKU) == "" || strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalid
	}

	if product.SKU != current.SKU {
		if _, exists := s.productIDBySKU[product.SKU]; exists {
			return nil, store.ErrConflict
		}
		delete(s.productIDBySKU, current.SKU)
		s.productIDBySKU[product.SKU] = product.ID
	}
	if product.Barcode != current.Barcode {
		if product.Barcode != "" {
			if _, exists := s.productIDByBarcode[product.Barcode]; exists {
				return nil, store.ErrConflict
			}
			s.productIDByBarcode[product.Barcode] = product.ID
		}
		if current.Barcode != "" {
			delete(s.productIDByBarcode, current.Barcode)
		}
	}

	product.CreatedAt = current.CreatedAt
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) AdjustProductStock(_ context.Context, productID string, qty int, op store.StockOp) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[productID]
	if !ok {
		return 0, store.ErrNotFound
	}
	next, err := applyStockOp(product.Stock, qty, op)
	if err != nil {
		return 0, err
	}
	product.Stock = next
	s.products[productID] = product
	return next, nil
}

func (s *Store) AdjustStoreStock(_ context.Context, storeID string, productID string, qty int, op store.StockOp) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[productID]; !ok {
		return 0, store.ErrNotFound
	}
	stocks, ok := s.storeStocks[storeID]
	if !ok {
		stocks = make(map[string]int)
		s.storeStocks[storeID] = stocks
	}
	next, err := applyStockOp(stocks[productID], qty, op)
	if err != nil {
		return 0, err
	}
	stocks[productID] = next
	return next, nil
}

func applyStockOp(current int, qty int, op store.StockOp) (int, error) {
	switch op {
	case store.StockAdd:
		return current + qty, nil
	case store.StockSubtract:
		next := current - qty
		if next < 0 {
			next = 0
		}
		return next, nil
	case store.StockSet:
		if qty < 0 {
			return 0, store.ErrInvalid
		}
		return qty, nil
	}
	return 0, store.ErrInvalid
}

func (s *Store) GetStoreStocks(_ context.Context, storeID string, productIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]int, len(productIDs))
	stocks := s.storeStocks[storeID]
	for _, id := range productIDs {
		if stocks == nil {
			result[id] = 0
			continue
		}
		result[id] = stocks[id]
	}
	return result, nil
}

func (s *Store) OpenDayOperation(_ context.Context, op domain.DayOperation) (*domain.DayOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.openDayByStore[op.StoreID]; exists {
		return nil, store.ErrConflict
	}
	if op.ID == "" {
		op.ID = xid.New("day")
	}
	if op.OpenedAt.IsZero() {
		op.OpenedAt = time.Now().UTC()
	}
	op.Status = domain.DayStatusOpen
	s.dayOpsByID[op.ID] = op
	s.openDayByStore[op.StoreID] = op.ID
	created := op
	return &created, nil
}

func (s *Store) CloseDayOperation(_ context.Context, storeID string, closedAt time.Time) (*domain.DayOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.openDayByStore[storeID]
	if !ok {
		return nil, store.ErrNotFound
	}
	op := s.dayOpsByID[id]
	op.Status = domain.DayStatusClosed
	at := closedAt
	op.ClosedAt = &at
	s.dayOpsByID[id] = op
	delete(s.openDayByStore, storeID)
	closed := op
	return &closed, nil
}

func (s *Store) GetOpenDayOperation(_ context.Context, storeID string) (*domain.DayOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.openDayByStore[storeID]
	if !ok {
		return nil, store.ErrNotFound
	}
	op := s.dayOpsByID[id]
	return &op, nil
}

func (s *Store) AccumulateDayTotals(_ context.Context, storeID string, cash decimal.Decimal, card decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.openDayByStore[storeID]
	if !ok {
		return store.ErrNotFound
	}
	op := s.dayOpsByID[id]
	op.CashTotal = op.CashTotal.Add(cash)
	op.CardTotal = op.CardTotal.Add(card)
	s.dayOpsByID[id] = op
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.Number == "" || tx.StoreID == "" {
		return nil, store.ErrInvalid
	}
	numbers, ok := s.txIDByNumber[tx.StoreID]
	if !ok {
		numbers = make(map[string]string)
		s.txIDByNumber[tx.StoreID] = numbers
	}
	if _, exists := numbers[tx.Number]; exists {
		return nil, store.ErrDuplicateNumber
	}

	if tx.ID == "" {
		tx.ID = xid.New("tx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	stored := tx
	stored.Items = append([]domain.TransactionItem(nil), tx.Items...)
	s.transactionsByID[stored.ID] = &stored
	numbers[stored.Number] = stored.ID

	created := stored
	created.Items = append([]domain.TransactionItem(nil), stored.Items...)
	return &created, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactionsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copyTx := *tx
	copyTx.Items = append([]domain.TransactionItem(nil), tx.Items...)
	return &copyTx, nil
}

func (s *Store) ListTransactions(_ context.Context, storeID string, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0, 32)
	for _, tx := range s.transactionsByID {
		if storeID != "" && tx.StoreID != storeID {
			continue
		}
		copyTx := *tx
		copyTx.Items = append([]domain.TransactionItem(nil), tx.Items...)
		result = append(result, copyTx)
	}
	slices.SortFunc(result, func(a, b domain.Transaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) MarkTransactionCompleted(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactionsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if tx.Status != domain.TxStatusPending {
		return nil, store.ErrConflict
	}
	tx.Status = domain.TxStatusCompleted

	copyTx := *tx
	copyTx.Items = append([]domain.TransactionItem(nil), tx.Items...)
	return &copyTx, nil
}

func (s *Store) MarkTransactionRefunded(_ context.Context, id string, amount decimal.Decimal, reason string, at time.Time) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactionsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if tx.Status != domain.TxStatusCompleted {
		return nil, store.ErrConflict
	}
	tx.Status = domain.TxStatusRefunded
	tx.RefundAmount = amount
	tx.RefundReason = reason
	refundedAt := at
	tx.RefundedAt = &refundedAt

	copyTx := *tx
	copyTx.Items = append([]domain.TransactionItem(nil), tx.Items...)
	return &copyTx, nil
}

func (s *Store) MarkTransactionVoided(_ context.Context, id string, reason string, at time.Time) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactionsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if tx.Status != domain.TxStatusCompleted {
		return nil, store.ErrConflict
	}
	tx.Status = domain.TxStatusVoided
	tx.VoidReason = reason
	voidedAt := at
	tx.VoidedAt = &voidedAt

	copyTx := *tx
	copyTx.Items = append([]domain.TransactionItem(nil), tx.Items...)
	return &copyTx, nil
}

func (s *Store) MaxTransactionSequence(_ context.Context, storeID string, datePrefix string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	max := 0
	for number := range s.txIDByNumber[storeID] {
		if !strings.HasPrefix(number, datePrefix) {
			continue
		}
		suffix := number[len(datePrefix):]
		if len(suffix) != 4 {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max, nil
}

func (s *Store) TransactionNumberExists(_ context.Context, storeID string, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.txIDByNumber[storeID][number]
	return exists, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalid
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customersByID[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copyCustomer := customer
	return &copyCustomer, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customersByID))
	for _, c := range s.customersByID {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return cmpString(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) AppendCreditEntry(_ context.Context, customerID string, kind string, amount decimal.Decimal, transactionID string) (*domain.CreditTransaction, error) {
	if kind != domain.CreditTypeCharge && kind != domain.CreditTypePayment {
		return nil, store.ErrInvalid
	}
	if !amount.IsPositive() {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customersByID[customerID]
	if !ok {
		return nil, store.ErrNotFound
	}

	previous := customer.CreditBalance
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
	s.creditByCustomer[customerID] = append(s.creditByCustomer[customerID], entry)
	customer.CreditBalance = next
	s.customersByID[customerID] = customer

	created := entry
	return &created, nil
}

func (s *Store) ListCreditHistory(_ context.Context, customerID string, limit int) ([]domain.CreditTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.creditByCustomer[customerID]
	result := make([]domain.CreditTransaction, len(history))
	copy(result, history)
	slices.SortFunc(result, func(a, b domain.CreditTransaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func sessionKey(storeID, date string) string {
	return storeID + "|" + date
}

func (s *Store) CreateStockTakingSession(_ context.Context, session domain.StockTakingSession) (*domain.StockTakingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.StoreID == "" || session.Date == "" {
		return nil, store.ErrInvalid
	}
	key := sessionKey(session.StoreID, session.Date)
	if _, exists := s.sessionsByKey[key]; exists {
		return nil, store.ErrConflict
	}
	if session.ID == "" {
		session.ID = xid.New("stk")
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	stored := session
	stored.Items = append([]domain.StockTakingItem(nil), session.Items...)
	s.sessionsByKey[key] = stored

	created := stored
	created.Items = append([]domain.StockTakingItem(nil), stored.Items...)
	return &created, nil
}

func (s *Store) GetStockTakingSession(_ context.Context, storeID string, date string) (*domain.StockTakingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessionsByKey[sessionKey(storeID, date)]
	if !ok {
		return nil, store.ErrNotFound
	}
	copySession := session
	copySession.Items = append([]domain.StockTakingItem(nil), session.Items...)
	return &copySession, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, len(s.auditLogs))
	for _, entry := range s.auditLogs {
		if storeID != "" && entry.StoreID != storeID {
			continue
		}
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && entry.CreatedAt.After(to) {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" || user.Password == "" {
		return store.ErrInvalid
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrConflict
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
