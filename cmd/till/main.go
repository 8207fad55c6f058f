package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/investify-till/internal/app"
	"github.com/sangkips/investify-till/internal/config"
	domainRepo "github.com/sangkips/investify-till/internal/domain/repository"
	"github.com/sangkips/investify-till/internal/infrastructure/backend"
	"github.com/sangkips/investify-till/internal/infrastructure/database"
	"github.com/sangkips/investify-till/internal/infrastructure/metrics"
	"github.com/sangkips/investify-till/internal/infrastructure/repository"
	"github.com/sangkips/investify-till/pkg/email"
	"github.com/sangkips/investify-till/pkg/logger"
	"github.com/sangkips/investify-till/pkg/printer"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	log := logger.New(logger.Config{
		Service: cfg.App.Name,
		Env:     cfg.App.Env,
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
	})
	defer func() { _ = log.Sync() }()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// The cashier UI reads amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	db, err := database.Open(&cfg.Database, cfg.App.Debug, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.AutoMigrate(db, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	cartRepo, err := openCartStore(cfg, db)
	if err != nil {
		log.Fatal("failed to open cart store", zap.Error(err))
	}

	m := metrics.New()

	client, err := backend.NewClient(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		APIKey:  cfg.Backend.APIKey,
		Timeout: cfg.Backend.Timeout,
	}, m, log)
	if err != nil {
		log.Fatal("failed to create backend client", zap.Error(err))
	}

	p, err := printer.New(printer.Config{
		Type:    cfg.Printer.Type,
		USBPath: cfg.Printer.USBPath,
		Address: cfg.Printer.Address,
	})
	if err != nil {
		log.Warn("printer unavailable, receipts will not print", zap.Error(err))
		p = printer.NewNullPrinter()
	}

	var mailer *email.EmailService
	if cfg.Email.EmailEnabled() {
		mailer = email.NewEmailService(email.EmailConfig{
			SMTPHost:     cfg.Email.SMTPHost,
			SMTPPort:     cfg.Email.SMTPPort,
			SMTPUsername: cfg.Email.SMTPUsername,
			SMTPPassword: cfg.Email.SMTPPassword,
			FromName:     cfg.Email.FromName,
			FromEmail:    cfg.Email.FromEmail,
		})
	}

	till, err := app.New(cfg, app.Deps{
		DB:       db,
		CartRepo: cartRepo,
		Backend:  client,
		Printer:  p,
		Mailer:   mailer,
		Metrics:  m,
		Logger:   log,
	})
	if err != nil {
		log.Fatal("failed to build till agent", zap.Error(err))
	}

	port := cfg.App.Port
	if port == "" {
		port = "8090"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           till.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting till agent",
			zap.String("service", cfg.App.Name),
			zap.String("env", cfg.App.Env),
			zap.String("port", port),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}

	till.Close()
	if err := cartRepo.Close(); err != nil {
		log.Warn("failed to close cart store", zap.Error(err))
	}
	if err := p.Close(); err != nil {
		log.Warn("failed to close printer", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// openCartStore returns the leveldb snapshot store unless CART_STORE_DRIVER
// asks for the SQL table.
func openCartStore(cfg *config.Config, db *gorm.DB) (domainRepo.CartRepository, error) {
	if strings.EqualFold(cfg.Store.CartDriver, "sql") {
		return repository.NewCartRepository(db), nil
	}
	return repository.NewLevelDBCartRepository(cfg.Store.CartPath)
}
