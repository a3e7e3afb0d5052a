package api

import (
	"errors"
	"net/http"
	"sync"
	"time"

	models "PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	svcmetrics "PricePulse/internal/service/metrics"
	"PricePulse/internal/service/ratelimit"
	"PricePulse/internal/usecase"
	xhttp "PricePulse/pkg/http"
	xlogger "PricePulse/pkg/logger"
	"PricePulse/pkg/queue"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// PricingEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type PricingEchoHandler struct {
	logger   *xlogger.Logger
	engine   *usecase.PricingEngine
	products domrepo.ProductStore
	jobs     queue.QueueService
	limiter  *ratelimit.Limiter

	mu         sync.RWMutex
	lastReport *models.CycleReport
}

func NewPricingEchoHandler(logger *xlogger.Logger, engine *usecase.PricingEngine, products domrepo.ProductStore, jobs queue.QueueService) *PricingEchoHandler {
	svcmetrics.Register()
	return &PricingEchoHandler{
		logger:   logger,
		engine:   engine,
		products: products,
		jobs:     jobs,
		limiter:  ratelimit.New(),
	}
}

func (h *PricingEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/products", h.ListProducts)
	g.GET("/products/:id", h.GetProduct)
	g.GET("/pricing/decision", h.Decision)
	g.GET("/dashboard", h.Dashboard)

	// full repricing cycles are expensive; one request per second is plenty
	limited := g.Group("/pricing", echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(1)))
	limited.POST("/update", h.Update)
	limited.POST("/enqueue", h.Enqueue)
}

func (h *PricingEchoHandler) ListProducts(c echo.Context) error {
	start := time.Now()
	req := &models.ProductListRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	products, err := h.products.List(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("list products error", xlogger.Error(err))
		svcmetrics.PricingErrors.WithLabelValues("products").Inc()
		return xhttp.AppErrorResponse(c, err)
	}
	svcmetrics.PricingLatency.WithLabelValues("products").Observe(time.Since(start).Seconds())
	return xhttp.ListResponse(c, products, int64(len(products)))
}

func (h *PricingEchoHandler) GetProduct(c echo.Context) error {
	productID := c.Param("id")
	if productID == "" {
		return xhttp.BadRequestResponse(c, "product id required")
	}

	product, err := h.products.Get(c.Request().Context(), productID)
	if err != nil {
		h.logger.Error("get product error",
			xlogger.String("product_id", productID),
			xlogger.Error(err))
		svcmetrics.PricingErrors.WithLabelValues("product").Inc()
		return xhttp.NotFoundResponse(c, "product not found")
	}
	return xhttp.SuccessResponse(c, product)
}

// Decision prices one product on demand without persisting anything.
func (h *PricingEchoHandler) Decision(c echo.Context) error {
	start := time.Now()
	req := &models.DecisionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	// each decision trains a fresh model, so cap per-product churn
	if !h.limiter.Allow(req.ProductID, 3, 0.5) {
		svcmetrics.PricingErrors.WithLabelValues("decision_throttle").Inc()
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "too many decision requests for product")
	}

	decision, err := h.engine.Decide(c.Request().Context(), req.ProductID)
	if err != nil {
		h.logger.Error("decision usecase error",
			xlogger.String("product_id", req.ProductID),
			xlogger.Error(err))
		svcmetrics.PricingErrors.WithLabelValues("decision").Inc()
		if errors.Is(err, models.ErrInvalidProduct) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("product cannot be priced: %v", err))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	svcmetrics.PricingLatency.WithLabelValues("decision").Observe(time.Since(start).Seconds())
	return xhttp.SuccessResponse(c, decision)
}

// Update runs a full repricing cycle synchronously and returns the report.
func (h *PricingEchoHandler) Update(c echo.Context) error {
	start := time.Now()
	req := &models.UpdateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.engine.RunCycleFromStores(c.Request().Context(), req.DryRun)
	if err != nil {
		h.logger.Error("pricing cycle error", xlogger.Error(err))
		svcmetrics.PricingErrors.WithLabelValues("update").Inc()
		return xhttp.AppErrorResponse(c, err)
	}

	h.mu.Lock()
	h.lastReport = report
	h.mu.Unlock()

	svcmetrics.PricingLatency.WithLabelValues("update").Observe(time.Since(start).Seconds())
	return xhttp.SuccessResponse(c, report)
}

// Enqueue schedules a repricing cycle on the job queue and returns immediately.
func (h *PricingEchoHandler) Enqueue(c echo.Context) error {
	req := &models.UpdateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.jobs == nil {
		return xhttp.BadRequestResponse(c, "job queue not configured")
	}

	err := h.jobs.PublishMessage(c.Request().Context(), usecase.RepriceJobType, usecase.RepricePayload{
		DryRun:    req.DryRun,
		Requested: "api",
	})
	if err != nil {
		h.logger.Error("enqueue reprice error", xlogger.Error(err))
		svcmetrics.PricingErrors.WithLabelValues("enqueue").Inc()
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, map[string]interface{}{
		"enqueued": true,
		"dry_run":  req.DryRun,
	})
}

// DashboardSummary is the aggregate view served at /api/dashboard.
type DashboardSummary struct {
	Products     int                 `json:"products"`
	LowInventory int                 `json:"low_inventory"`
	Categories   map[string]int      `json:"categories"`
	AveragePrice float64             `json:"average_price"`
	LastCycle    *models.CycleReport `json:"last_cycle,omitempty"`
}

func (h *PricingEchoHandler) Dashboard(c echo.Context) error {
	start := time.Now()
	products, err := h.products.List(c.Request().Context(), 0)
	if err != nil {
		h.logger.Error("dashboard error", xlogger.Error(err))
		svcmetrics.PricingErrors.WithLabelValues("dashboard").Inc()
		return xhttp.AppErrorResponse(c, err)
	}

	summary := &DashboardSummary{
		Products:   len(products),
		Categories: make(map[string]int),
	}
	var priceSum float64
	for _, p := range products {
		summary.Categories[p.Category]++
		if p.Inventory < 10 {
			summary.LowInventory++
		}
		priceSum += p.CurrentPrice
	}
	if len(products) > 0 {
		summary.AveragePrice = priceSum / float64(len(products))
	}

	h.mu.RLock()
	summary.LastCycle = h.lastReport
	h.mu.RUnlock()

	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	svcmetrics.PricingLatency.WithLabelValues("dashboard").Observe(time.Since(start).Seconds())
	return xhttp.SuccessResponse(c, summary)
}
