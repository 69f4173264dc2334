package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"posdesk/internal/cache"
	"posdesk/internal/clients/barcode"
	"posdesk/internal/clients/invoice"
	"posdesk/internal/config"
	"posdesk/internal/httpapi"
	"posdesk/internal/logger"
	"posdesk/internal/reconcile"
	"posdesk/internal/service"
	"posdesk/internal/store"
	"posdesk/internal/store/memory"
	pgstore "posdesk/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	log := logger.Must(logger.New())
	defer func() { _ = log.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal("invalid security configuration", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Info("repository: in-memory")
	}

	barcodeCache := cache.BarcodeCache(cache.NoopBarcodeCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisBarcodeCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn("redis unavailable, using noop cache", zap.Error(err))
		} else {
			barcodeCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Info("cache: redis")
		}
	} else {
		log.Info("cache: noop")
	}

	var barcodes barcode.Lookup
	if cfg.BarcodeLookupURL != "" {
		barcodes = barcode.NewClient(cfg.BarcodeLookupURL)
		log.Info("barcode lookup enabled", zap.String("url", cfg.BarcodeLookupURL))
	}
	var invoices invoice.Renderer
	if cfg.InvoiceRendererURL != "" {
		invoices = invoice.NewClient(cfg.InvoiceRendererURL)
		log.Info("invoice renderer enabled", zap.String("url", cfg.InvoiceRendererURL))
	}

	extraPolicy, ok := reconcile.ParsePolicy(cfg.StockTakeExtraPolicy)
	if !ok {
		log.Warn("unknown STOCKTAKE_EXTRA_POLICY, using extra_as_new", zap.String("value", cfg.StockTakeExtraPolicy))
		extraPolicy = reconcile.PolicyExtraAsNew
	}

	svc := service.New(service.Config{
		Repo:            repo,
		Barcodes:        barcodes,
		BarcodeCache:    barcodeCache,
		BarcodeTTL:      time.Duration(cfg.BarcodeTTLSeconds) * time.Second,
		Invoices:        invoices,
		ExtraPolicy:     extraPolicy,
		DefaultStoreID:  cfg.StoreID,
		DefaultTimezone: cfg.DefaultTimezone,
		Logger:          logger.Named(log, "service"),
	})
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, logger.Named(log, "http"))

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("POS backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Warn("close error", zap.Error(err))
		}
	}

	log.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
