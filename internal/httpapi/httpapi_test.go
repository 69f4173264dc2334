package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"posdesk/internal/domain"
	"posdesk/internal/service"
	"posdesk/internal/store"
	"posdesk/internal/store/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestAPI(t *testing.T) (*API, *memory.Store) {
	t.Helper()
	repo := memory.New()
	repo.PutStore(domain.Store{
		ID:       "main-store",
		Code:     "MAIN",
		Name:     "Test Store",
		Currency: "USD",
		Timezone: "UTC",
	})
	for _, user := range []domain.UserAccount{
		{Username: "admin", Password: "admin-secret-1", Role: "admin", Active: true, CreatedAt: time.Now().UTC()},
		{Username: "kasir1", Password: "kasir-secret-1", Role: "cashier", Active: true, CreatedAt: time.Now().UTC()},
	} {
		if err := repo.CreateUser(context.Background(), user); err != nil {
			t.Fatalf("seed user %s: %v", user.Username, err)
		}
	}

	svc := service.New(service.Config{Repo: repo})
	auth := NewAuthManager(testSecret, time.Hour, repo)
	return New(svc, auth, "*", nil), repo
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func loginToken(t *testing.T, handler http.Handler, username string, password string) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
		Username: username,
		Password: password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", username, rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("expected a non-empty access token")
	}
	return resp.AccessToken
}

func TestLoginAndTokenRoundTrip(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.Handler()

	token := loginToken(t, handler, "admin", "admin-secret-1")
	actor, err := api.auth.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestLoginWrongPasswordRejected(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
		Username: "admin",
		Password: "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.Handler()

	var last int
	for i := 0; i < 6; i++ {
		rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
			Username: "admin",
			Password: "wrong",
		})
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("sixth attempt = %d, want 429", last)
	}
}

func TestMissingTokenRejected(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/products", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/products", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCashierCannotReachAdminRoutes(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.Handler()
	token := loginToken(t, handler, "kasir1", "kasir-secret-1")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/audit-logs", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("audit-logs as cashier = %d, want 403", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/transactions/tx-1/refund", token, domain.RefundRequest{
		Amount: decimal.NewFromInt(1),
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("refund as cashier = %d, want 403", rec.Code)
	}
}

func TestSaleRejectedWithGateCode(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.Handler()
	token := loginToken(t, handler, "kasir1", "kasir-secret-1")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/transactions", token, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItemRequest{{Name: "Water", Qty: 1, UnitPrice: decimal.NewFromInt(2)}},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode gate payload: %v", err)
	}
	if payload.Code != domain.GateDayNotOpen {
		t.Fatalf("code = %q, want %q", payload.Code, domain.GateDayNotOpen)
	}
}

func TestSaleFlowOverHTTP(t *testing.T) {
	api, repo := newTestAPI(t)
	handler := api.Handler()
	token := loginToken(t, handler, "kasir1", "kasir-secret-1")

	product, err := repo.CreateProduct(context.Background(), domain.Product{
		SKU: "SKU-1", Name: "Coffee",
		Cost: decimal.NewFromInt(5), Price: decimal.NewFromInt(8),
		Stock: 10, Active: true,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if _, err := repo.AdjustStoreStock(context.Background(), "main-store", product.ID, 10, store.StockSet); err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/day-operations/open", token, domain.DayOpenRequest{
		OpeningCash: decimal.NewFromInt(100),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open day = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/transactions", token, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItemRequest{{ProductID: product.ID, Qty: 2, UnitPrice: decimal.NewFromInt(8)}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create sale = %d: %s", rec.Code, rec.Body.String())
	}
	var sale domain.SaleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &sale); err != nil {
		t.Fatalf("decode sale: %v", err)
	}
	if len(sale.Transaction.Number) != 12 {
		t.Fatalf("unexpected number %q", sale.Transaction.Number)
	}
	if sale.Transaction.Status != domain.TxStatusCompleted {
		t.Fatalf("status = %s", sale.Transaction.Status)
	}

	stocks, err := repo.GetStoreStocks(context.Background(), "main-store", []string{product.ID})
	if err != nil {
		t.Fatalf("get stocks: %v", err)
	}
	if stocks[product.ID] != 8 {
		t.Fatalf("stock = %d, want 8", stocks[product.ID])
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/transactions/"+sale.Transaction.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get transaction = %d", rec.Code)
	}
}

func TestCreateCashierValidation(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.Handler()
	token := loginToken(t, handler, "admin", "admin-secret-1")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/users/cashiers", token, domain.CashierCreateRequest{
		Username: "ab",
		Password: "longenough",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("short username = %d, want 422", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/users/cashiers", token, domain.CashierCreateRequest{
		Username: "kasir2",
		Password: "kasir-secret-2",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create cashier = %d: %s", rec.Code, rec.Body.String())
	}

	if _, err := api.auth.Login(domain.LoginRequest{Username: "kasir2", Password: "kasir-secret-2"}); err != nil {
		t.Fatalf("new cashier cannot log in: %v", err)
	}
}

func TestHealthAndMethodNotAllowed(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/healthz", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("delete health = %d, want 405", rec.Code)
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS origin header")
	}
}
