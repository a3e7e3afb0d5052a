package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	domsvc "PricePulse/internal/domain/service"
	"PricePulse/internal/services/demand"
	"PricePulse/internal/services/optimizer"
	"PricePulse/internal/services/rules"
	applogger "PricePulse/pkg/logger"
)

// EngineConfig tunes the pricing engine.
type EngineConfig struct {
	Workers        int           // parallel products per cycle
	ProductTimeout time.Duration // per-product deadline
	CycleTimeout   time.Duration // whole-batch deadline, 0 = none
	GridPoints     int           // price grid resolution
	Estimators     int           // trees per demand model
	Seed           int64         // bootstrap seed
}

func (c *EngineConfig) defaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.ProductTimeout <= 0 {
		c.ProductTimeout = 30 * time.Second
	}
	if c.GridPoints <= 0 {
		c.GridPoints = optimizer.DefaultGridPoints
	}
	if c.Estimators <= 0 {
		c.Estimators = demand.DefaultEstimators
	}
	if c.Seed == 0 {
		c.Seed = demand.DefaultSeed
	}
}

// PricingEngine orchestrates per-product pricing: train the demand model,
// search the price grid, fall back to the heuristic on any failure, and
// always run the business rules. One product's failure never aborts a batch.
type PricingEngine struct {
	products   domrepo.ProductStore
	sales      domrepo.SalesStore
	competitor domsvc.CompetitorPriceSource
	publisher  domrepo.DecisionPublisher
	metrics    domrepo.Metrics
	l          *applogger.Logger

	cfg          EngineConfig
	newEstimator func() domsvc.DemandEstimator
}

func NewPricingEngine(
	products domrepo.ProductStore,
	sales domrepo.SalesStore,
	competitor domsvc.CompetitorPriceSource,
	publisher domrepo.DecisionPublisher,
	metrics domrepo.Metrics,
	cfg EngineConfig,
) *PricingEngine {
	cfg.defaults()
	e := &PricingEngine{
		products:   products,
		sales:      sales,
		competitor: competitor,
		publisher:  publisher,
		metrics:    metrics,
		cfg:        cfg,
	}
	// fresh estimator per product per cycle; scaler state is never shared
	e.newEstimator = func() domsvc.DemandEstimator {
		return demand.New(demand.WithEstimators(cfg.Estimators), demand.WithSeed(cfg.Seed))
	}
	return e
}

// SetLogger injects a structured logger.
func (e *PricingEngine) SetLogger(l *applogger.Logger) { e.l = l }

// SetEstimatorFactory overrides demand model construction (tests).
func (e *PricingEngine) SetEstimatorFactory(fn func() domsvc.DemandEstimator) {
	e.newEstimator = fn
}

// ComputeDecision prices a single product. competitorPrice <= 0 means
// unknown: the optimizer then assumes current_price × 0.9 while the
// undercut rule stays disabled. The returned error is non-nil only for
// invalid products; model failures degrade to the fallback heuristic.
func (e *PricingEngine) ComputeDecision(ctx context.Context, product *models.Product, history []models.SaleRecord, competitorPrice float64) (*models.PricingDecision, error) {
	start := time.Now()
	if err := product.Validate(); err != nil {
		e.metrics.RecordError("invalid_product")
		return nil, err
	}

	resolved := competitorPrice
	if resolved <= 0 {
		resolved = product.CurrentPrice * 0.9
	}

	mlPrice := 0.0
	source := models.SourceModel

	est := e.newEstimator()
	if err := est.Train(history, product, resolved); err != nil {
		if e.l != nil {
			e.l.Debug("demand model unusable, using fallback",
				applogger.String("product_id", product.ProductID),
				applogger.Int("history_rows", len(history)),
				applogger.Error(err),
			)
		}
		e.metrics.RecordError("train")
		source = models.SourceFallback
	} else {
		best, err := optimizer.Search(ctx, est, product, history, resolved, e.cfg.GridPoints)
		if err != nil {
			if e.l != nil {
				e.l.Warn("price search failed, using fallback",
					applogger.String("product_id", product.ProductID),
					applogger.Error(err),
				)
			}
			e.metrics.RecordError("optimize")
			source = models.SourceFallback
		} else {
			mlPrice = best.Price
		}
	}

	if source == models.SourceFallback {
		mlPrice = rules.FallbackPrice(product)
	}

	finalPrice, applied := rules.Apply(mlPrice, product, competitorPrice)

	e.metrics.RecordDecision(source)
	e.metrics.RecordFinalPrice(product.ProductID, finalPrice)
	e.metrics.RecordLatency("compute_decision", time.Since(start).Seconds())

	return &models.PricingDecision{
		ProductID:    product.ProductID,
		MLPrice:      mlPrice,
		FinalPrice:   finalPrice,
		RulesApplied: applied,
		Source:       source,
		Timestamp:    time.Now(),
	}, nil
}

// RunCycle prices a batch of products with a bounded worker pool. Products
// are independent, so each task gets its own estimator instance and its own
// deadline; invalid or timed-out products are reported in Skipped and the
// batch carries on.
func (e *PricingEngine) RunCycle(ctx context.Context, products []models.Product, historyByProduct map[string][]models.SaleRecord, competitorPrices map[string]float64) *models.CycleReport {
	started := time.Now()
	if e.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.CycleTimeout)
		defer cancel()
	}

	report := &models.CycleReport{
		Started: started,
		Skipped: map[string]string{},
	}
	var mu sync.Mutex

	jobs := make(chan models.Product)
	var wg sync.WaitGroup
	for w := 0; w < e.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				pctx, cancel := context.WithTimeout(ctx, e.cfg.ProductTimeout)
				d, err := e.ComputeDecision(pctx, &p, historyByProduct[p.ProductID], competitorPrices[p.ProductID])
				cancel()

				mu.Lock()
				if err != nil {
					report.Skipped[p.ProductID] = err.Error()
				} else {
					report.Decisions = append(report.Decisions, *d)
				}
				mu.Unlock()
			}
		}()
	}

	for _, p := range products {
		select {
		case jobs <- p:
		case <-ctx.Done():
			mu.Lock()
			report.Skipped[p.ProductID] = fmt.Sprintf("cycle deadline exceeded: %v", ctx.Err())
			mu.Unlock()
		}
	}
	close(jobs)
	wg.Wait()

	report.Updated = len(report.Decisions)
	report.Duration = time.Since(started)
	if len(report.Skipped) == 0 {
		report.Skipped = nil
	}
	return report
}

// RunCycleFromStores loads products and histories, resolves competitor
// prices, runs the batch, persists the new prices, and publishes decisions.
// It returns an error only when the stores themselves are unreachable.
func (e *PricingEngine) RunCycleFromStores(ctx context.Context, dryRun bool) (*models.CycleReport, error) {
	products, err := e.products.List(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	histories, err := e.sales.HistoryAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sales history: %w", err)
	}

	report := e.RunCycle(ctx, products, histories, e.competitorPrices(ctx))
	if dryRun {
		return report, nil
	}

	updated := 0
	for _, d := range report.Decisions {
		if err := e.products.UpdatePrice(ctx, d.ProductID, d.FinalPrice); err != nil {
			e.metrics.RecordError("persist_price")
			if e.l != nil {
				e.l.Error("price persist failed",
					applogger.String("product_id", d.ProductID),
					applogger.Error(err),
				)
			}
			continue
		}
		updated++
	}
	report.Updated = updated

	if e.publisher != nil && len(report.Decisions) > 0 {
		if err := e.publisher.PublishBatch(ctx, report.Decisions); err != nil {
			e.metrics.RecordError("publish_decisions")
			if e.l != nil {
				e.l.Warn("decision publish failed", applogger.Error(err))
			}
		}
	}

	if e.l != nil {
		e.l.Info("pricing cycle complete",
			applogger.Int("products", len(products)),
			applogger.Int("updated", report.Updated),
			applogger.Int("skipped", len(report.Skipped)),
			applogger.Duration("duration_ms", report.Duration),
		)
	}
	return report, nil
}

// Decide prices one product on demand without persisting.
func (e *PricingEngine) Decide(ctx context.Context, productID string) (*models.PricingDecision, error) {
	product, err := e.products.Get(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load product %s: %w", productID, err)
	}
	history, err := e.sales.History(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load history %s: %w", productID, err)
	}
	return e.ComputeDecision(ctx, product, history, e.competitorPrices(ctx)[productID])
}

// competitorPrices resolves the external snapshot, degrading to an empty
// map on any failure. Downstream treats a missing entry as "unknown".
func (e *PricingEngine) competitorPrices(ctx context.Context) map[string]float64 {
	if e.competitor == nil {
		return map[string]float64{}
	}
	prices, err := e.competitor.Prices(ctx)
	if err != nil {
		e.metrics.RecordError("competitor_fetch")
		if e.l != nil {
			e.l.Warn("competitor price fetch failed, proceeding without",
				applogger.Error(err),
			)
		}
		return map[string]float64{}
	}
	return prices
}
