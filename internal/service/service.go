package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"posdesk/internal/cache"
	"posdesk/internal/clients/barcode"
	"posdesk/internal/clients/invoice"
	"posdesk/internal/domain"
	"posdesk/internal/reconcile"
	"posdesk/internal/sequence"
	"posdesk/internal/store"
	"posdesk/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo            store.Repository
	numbers         *sequence.Allocator
	barcodes        barcode.Lookup
	barcodeCache    cache.BarcodeCache
	barcodeTTL      time.Duration
	invoices        invoice.Renderer
	extraPolicy     reconcile.Policy
	defaultStoreID  string
	defaultTimezone string
	log             *zap.Logger

	now func() time.Time
}

type Config struct {
	Repo            store.Repository
	Barcodes        barcode.Lookup
	BarcodeCache    cache.BarcodeCache
	BarcodeTTL      time.Duration
	Invoices        invoice.Renderer
	ExtraPolicy     reconcile.Policy
	DefaultStoreID  string
	DefaultTimezone string
	Logger          *zap.Logger
}

func New(cfg Config) *Service {
	if cfg.DefaultStoreID == "" {
		cfg.DefaultStoreID = "main-store"
	}
	if cfg.ExtraPolicy == "" {
		cfg.ExtraPolicy = reconcile.PolicyExtraAsNew
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.BarcodeCache == nil {
		cfg.BarcodeCache = cache.NoopBarcodeCache{}
	}
	if cfg.BarcodeTTL <= 0 {
		cfg.BarcodeTTL = 24 * time.Hour
	}

	return &Service{
		repo:            cfg.Repo,
		numbers:         sequence.NewAllocator(cfg.Repo),
		barcodes:        cfg.Barcodes,
		barcodeCache:    cfg.BarcodeCache,
		barcodeTTL:      cfg.BarcodeTTL,
		invoices:        cfg.Invoices,
		extraPolicy:     cfg.ExtraPolicy,
		defaultStoreID:  cfg.DefaultStoreID,
		defaultTimezone: cfg.DefaultTimezone,
		log:             cfg.Logger,
		now:             time.Now,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	if req.StoreID == "" {
		req.StoreID = s.defaultStoreID
	}
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	req.Barcode = strings.TrimSpace(req.Barcode)

	if req.SKU == "" || req.Name == "" {
		return domain.Product{}, store.ErrInvalid
	}
	if req.Price.IsNegative() || req.Cost.IsNegative() || req.InitialStock < 0 {
		return domain.Product{}, store.ErrInvalid
	}

	product := domain.Product{
		SKU:     req.SKU,
		Barcode: req.Barcode,
		Name:    req.Name,
		Cost:    req.Cost,
		Price:   req.Price,
		Stock:   req.InitialStock,
		Active:  true,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	if req.InitialStock > 0 {
		if _, err := s.repo.AdjustStoreStock(ctx, req.StoreID, created.ID, req.InitialStock, store.StockSet); err != nil {
			return domain.Product{}, err
		}
	}

	s.logAudit(ctx, req.StoreID, "product_create", "product", created.ID, fmt.Sprintf("sku=%s,name=%s,stock=%d", created.SKU, created.Name, req.InitialStock))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	if sku := strings.ToUpper(strings.TrimSpace(req.SKU)); sku != "" {
		existing.SKU = sku
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		existing.Name = name
	}
	if barcode := strings.TrimSpace(req.Barcode); barcode != "" {
		existing.Barcode = barcode
	}
	if req.Price.IsPositive() {
		existing.Price = req.Price
	}
	if req.Cost.IsPositive() {
		existing.Cost = req.Cost
	}
	if req.Active != nil {
		existing.Active = *req.Active
	}

	updated, err := s.repo.UpdateProduct(ctx, *existing)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, s.defaultStoreID, "product_update", "product", updated.ID, fmt.Sprintf("sku=%s", updated.SKU))
	return *updated, nil
}

// ScanBarcode resolves a scanned code to a catalog product. On a miss it
// consults the external barcode catalog, via cache, and returns the data
// as an auto-fill suggestion for product creation.
func (s *Service) ScanBarcode(ctx context.Context, code string) (domain.ScanResponse, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ScanResponse{}, store.ErrInvalid
	}

	product, err := s.repo.FindProductByBarcode(ctx, code)
	if err == nil {
		return domain.ScanResponse{Product: product}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.ScanResponse{}, err
	}

	if s.barcodes == nil {
		return domain.ScanResponse{}, store.ErrNotFound
	}

	if cached, ok, cacheErr := s.barcodeCache.Get(ctx, barcodeCacheKey(code)); cacheErr == nil && ok {
		return domain.ScanResponse{Suggestion: cached}, nil
	} else if cacheErr != nil {
		s.log.Warn("barcode cache read failed", zap.String("code", code), zap.Error(cacheErr))
	}

	info, err := s.barcodes.Lookup(ctx, code)
	if err != nil {
		if errors.Is(err, barcode.ErrNotFound) {
			return domain.ScanResponse{}, store.ErrNotFound
		}
		return domain.ScanResponse{}, err
	}

	if err := s.barcodeCache.Set(ctx, barcodeCacheKey(code), info, s.barcodeTTL); err != nil {
		s.log.Warn("barcode cache write failed", zap.String("code", code), zap.Error(err))
	}
	return domain.ScanResponse{Suggestion: info}, nil
}

func barcodeCacheKey(code string) string {
	return "barcode:" + code
}

func (s *Service) ListAuditLogs(ctx context.Context, storeID string, date string, limit int) ([]domain.AuditLog, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	var from, to time.Time
	if date != "" {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, store.ErrInvalid
		}
		from = day
		to = day.Add(24*time.Hour - time.Nanosecond)
	}
	return s.repo.ListAuditLogs(ctx, storeID, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, storeID string, action string, entityType string, entityID string, detail string) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		StoreID:       storeID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		s.log.Warn("audit log write failed",
			zap.String("action", action),
			zap.String("entity", entityType+"/"+entityID),
			zap.Error(err))
	}
}
