package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/investify-till/internal/config"
	domainRepo "github.com/sangkips/investify-till/internal/domain/repository"
	"github.com/sangkips/investify-till/internal/infrastructure/metrics"
	"github.com/sangkips/investify-till/internal/presentation/http/dto/response"
	"github.com/sangkips/investify-till/internal/presentation/http/handler"
	"github.com/sangkips/investify-till/internal/presentation/http/middleware"
	"github.com/sangkips/investify-till/pkg/utils"
	"go.uber.org/zap"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Till       *handler.TillHandler
	Cart       *handler.CartHandler
	Customer   *handler.CustomerHandler
	Settlement *handler.SettlementHandler
	Draft      *handler.DraftHandler
	Printer    *handler.PrinterHandler
}

// Deps holds shared dependencies needed by the routes. A nil RateLimiter
// is built from Cfg.RateLimit.
type Deps struct {
	JWTManager      *utils.JWTManager
	Cfg             *config.Config
	IdempotencyRepo domainRepo.IdempotencyRepository
	Metrics         *metrics.Metrics
	RateLimiter     *middleware.TillRateLimiter
	Logger          *zap.Logger
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(deps.Logger))
	router.Use(middleware.MetricsMiddleware(deps.Metrics))
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	router.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Route not found")
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		})
	})

	if deps.Cfg.Metrics.Enabled && deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTManager))

		rateLimiter := deps.RateLimiter
		if rateLimiter == nil {
			rateLimiter = middleware.NewTillRateLimiter(
				middleware.RateLimiterConfigFrom(deps.Cfg.RateLimit.Requests, deps.Cfg.RateLimit.Duration),
			)
		}
		protected.Use(rateLimiter.Middleware())

		registerProtectedRoutes(protected, h, deps)
	}

	return router
}

func registerProtectedRoutes(rg *gin.RouterGroup, h *Handlers, deps *Deps) {
	rg.GET("/tills", h.Till.List)
	rg.GET("/customers", h.Customer.Search)
	rg.GET("/settlements", h.Settlement.History)

	printer := rg.Group("/printer")
	{
		printer.GET("/status", h.Printer.GetStatus)
		printer.POST("/test", h.Printer.TestPrint)
	}

	receipts := rg.Group("/receipts/:sales_id")
	{
		receipts.POST("/print", h.Printer.PrintReceipt)
		receipts.POST("/send", h.Printer.SendReceipt)
	}

	till := rg.Group("/tills/:till_id")
	till.Use(middleware.RequireTillAccess())
	{
		till.GET("", h.Till.Get)
		till.POST("/open", h.Till.Open)
		till.POST("/close", h.Till.Close)
		till.POST("/switch", h.Till.Switch)

		cart := till.Group("/cart")
		{
			cart.GET("", h.Cart.Get)
			cart.DELETE("", h.Cart.Clear)
			cart.POST("/lines", h.Cart.AddLine)
			cart.PATCH("/lines/:item_code", h.Cart.UpdateLine)
			cart.DELETE("/lines/:item_code", h.Cart.RemoveLine)
		}

		customer := till.Group("/customer")
		{
			customer.GET("", h.Customer.Current)
			customer.PUT("", h.Customer.Select)
			customer.DELETE("", h.Customer.Reset)
		}

		drafts := till.Group("/drafts")
		{
			drafts.GET("", h.Draft.List)
			drafts.POST("", h.Draft.Queue)
			drafts.POST("/:draft_id/resume", h.Draft.Resume)
			drafts.DELETE("/:draft_id", h.Draft.Cancel)
		}

		settlement := till.Group("/settlement")
		{
			settlement.POST("", h.Settlement.Open)
			settlement.GET("", h.Settlement.Get)
			settlement.DELETE("", h.Settlement.Close)
			settlement.POST("/splits", h.Settlement.AddSplit)
			settlement.PATCH("/splits/:split_id", h.Settlement.UpdateSplit)
			settlement.DELETE("/splits/:split_id", h.Settlement.RemoveSplit)
			settlement.POST("/splits/:split_id/confirm", h.Settlement.ConfirmMobile)
			settlement.PUT("/credit", h.Settlement.SetCredit)
			settlement.PUT("/points", h.Settlement.SetPoints)
			settlement.PUT("/mobile", h.Settlement.SetMobile)
			settlement.POST("/submit", middleware.Idempotency(middleware.IdempotencyConfig{
				Repo:   deps.IdempotencyRepo,
				Logger: deps.Logger,
			}), h.Settlement.Submit)
		}
	}
}
