package optimizer

import (
	"context"
	"time"

	"PricePulse/internal/domain/models"
	domsvc "PricePulse/internal/domain/service"
	"PricePulse/internal/services/features"
)

// DefaultGridPoints is the number of evenly spaced candidate prices.
const DefaultGridPoints = 100

// Bounds derives the search range from cost, base and competitor prices.
// A degenerate or inverted range is clamped so the grid stays ordered and
// non-empty.
func Bounds(product *models.Product, competitorPrice float64) (float64, float64) {
	minPrice := product.CostPrice * 1.1
	if c := competitorPrice * 0.8; c < minPrice {
		minPrice = c
	}
	maxPrice := product.BasePrice * 1.5
	if c := competitorPrice * 1.2; c > maxPrice {
		maxPrice = c
	}
	if minPrice > maxPrice {
		minPrice = maxPrice
	}
	return minPrice, maxPrice
}

// Search evaluates a discretized price grid against the trained estimator
// and returns the candidate maximizing price × predicted demand.
//
// The running best starts at (current_price, 0 revenue): if no candidate
// beats zero revenue the current price is kept. Comparison is strict
// greater-than, so ties keep the first (lowest) candidate seen. Any failure
// is wrapped in models.OptimizationError for the orchestrator to handle.
func Search(ctx context.Context, est domsvc.DemandEstimator, product *models.Product, history []models.SaleRecord, competitorPrice float64, gridPoints int) (models.PriceCandidate, error) {
	if gridPoints <= 1 {
		gridPoints = DefaultGridPoints
	}
	minPrice, maxPrice := Bounds(product, competitorPrice)

	base := features.PredictionVector(history, product, competitorPrice, time.Now())

	best := models.PriceCandidate{Price: product.CurrentPrice, Revenue: 0}
	step := (maxPrice - minPrice) / float64(gridPoints-1)
	for i := 0; i < gridPoints; i++ {
		if err := ctx.Err(); err != nil {
			return best, &models.OptimizationError{ProductID: product.ProductID, Err: err}
		}
		price := minPrice + step*float64(i)

		vec := base
		vec.PriceDifference = price - competitorPrice
		if competitorPrice > 0 {
			vec.PriceRatio = price / competitorPrice
		} else {
			vec.PriceRatio = 1
		}

		demand, err := est.PredictDemand(vec)
		if err != nil {
			return best, &models.OptimizationError{ProductID: product.ProductID, Err: err}
		}
		if revenue := price * demand; revenue > best.Revenue {
			best = models.PriceCandidate{Price: price, PredictedDemand: demand, Revenue: revenue}
		}
	}
	return best, nil
}
