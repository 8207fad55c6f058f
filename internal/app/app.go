// Package app wires the till services, their event subscriptions and the
// HTTP router into one unit the binary can start and stop.
package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/investify-till/internal/application/service"
	"github.com/sangkips/investify-till/internal/config"
	domainRepo "github.com/sangkips/investify-till/internal/domain/repository"
	"github.com/sangkips/investify-till/internal/events"
	"github.com/sangkips/investify-till/internal/infrastructure/metrics"
	"github.com/sangkips/investify-till/internal/infrastructure/repository"
	"github.com/sangkips/investify-till/internal/presentation/http/handler"
	"github.com/sangkips/investify-till/internal/presentation/http/middleware"
	"github.com/sangkips/investify-till/internal/presentation/http/routes"
	"github.com/sangkips/investify-till/pkg/email"
	"github.com/sangkips/investify-till/pkg/printer"
	"github.com/sangkips/investify-till/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Backend is every remote contract the till depends on.
type Backend interface {
	domainRepo.PaymentModeCatalog
	domainRepo.ProductCatalog
	domainRepo.CustomerDirectory
	domainRepo.DraftGateway
	domainRepo.SalesGateway
	domainRepo.MobileMoneyGateway
}

// Deps are the resources the caller opens and closes itself.
type Deps struct {
	DB       *gorm.DB
	CartRepo domainRepo.CartRepository
	Backend  Backend
	Printer  printer.Printer
	Mailer   *email.EmailService
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// App is a running till agent.
type App struct {
	Router *gin.Engine
	Bus    *events.Bus

	Tills       *service.TillService
	Carts       *service.CartService
	Customers   *service.CustomerService
	Drafts      *service.DraftService
	Receipts    *service.ReceiptService
	Settlements *service.SettlementService
	Mobile      *service.MobileMoneyService

	rateLimiter *middleware.TillRateLimiter
	teardowns   []func()
	logger      *zap.Logger
}

// New builds the services, subscribes them to the bus and registers the
// routes. Call Close to unsubscribe and flush pending cart snapshots.
func New(cfg *config.Config, deps Deps) (*App, error) {
	if deps.DB == nil || deps.CartRepo == nil || deps.Backend == nil {
		return nil, fmt.Errorf("app: database, cart store and backend are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := deps.Metrics

	journal := repository.NewSettlementRepository(deps.DB)
	idempotencyRepo := repository.NewIdempotencyRepository(deps.DB)

	bus := events.NewBus(logger.Named("events"))

	tills := service.NewTillService(bus, m, logger.Named("tills"))
	carts := service.NewCartService(deps.CartRepo, deps.Backend, cfg.Till.DefaultUnit, m, logger.Named("cart"))
	customers := service.NewCustomerService(deps.Backend, cfg.Till.WalkInCustomer, bus, logger.Named("customers"))
	drafts := service.NewDraftService(deps.Backend, carts, customers, tills, bus, cfg.Till.DraftReconcileDelay, logger.Named("drafts"))
	receipts := service.NewReceiptService(deps.Printer, journal, deps.Backend, deps.Mailer, service.ReceiptOptions{
		PrinterType: cfg.Printer.Type,
		StoreName:   cfg.Printer.StoreName,
		Width:       cfg.Printer.Width,
	}, logger.Named("receipts"))
	settlements := service.NewSettlementService(carts, customers, tills, drafts, receipts,
		deps.Backend, deps.Backend, journal, bus, cfg.Till, m, logger.Named("settlement"))
	mobile := service.NewMobileMoneyService(settlements, deps.Backend, m, logger.Named("mobile_money"))

	a := &App{
		Bus:         bus,
		Tills:       tills,
		Carts:       carts,
		Customers:   customers,
		Drafts:      drafts,
		Receipts:    receipts,
		Settlements: settlements,
		Mobile:      mobile,
		logger:      logger,
		teardowns: []func(){
			customers.Start(bus),
			drafts.Start(bus),
			settlements.Start(bus),
		},
		rateLimiter: middleware.NewTillRateLimiter(
			middleware.RateLimiterConfigFrom(cfg.RateLimit.Requests, cfg.RateLimit.Duration),
		),
	}

	a.Router = routes.Setup(&routes.Handlers{
		Till:       handler.NewTillHandler(tills),
		Cart:       handler.NewCartHandler(carts),
		Customer:   handler.NewCustomerHandler(customers),
		Settlement: handler.NewSettlementHandler(settlements, mobile),
		Draft:      handler.NewDraftHandler(drafts),
		Printer:    handler.NewPrinterHandler(receipts),
	}, &routes.Deps{
		JWTManager:      utils.NewJWTManager(cfg.JWT.Secret),
		Cfg:             cfg,
		IdempotencyRepo: idempotencyRepo,
		Metrics:         m,
		RateLimiter:     a.rateLimiter,
		Logger:          logger.Named("http"),
	})

	return a, nil
}

// Close unsubscribes the services, stops background work and flushes the
// cart persister. It does not close Deps.
func (a *App) Close() {
	for i := len(a.teardowns) - 1; i >= 0; i-- {
		a.teardowns[i]()
	}
	a.teardowns = nil
	a.rateLimiter.Stop()
	a.Drafts.Close()
	a.Carts.Close()
	a.logger.Info("till services stopped")
}
