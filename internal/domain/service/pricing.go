package service

import (
	"context"

	"PricePulse/internal/domain/models"
)

// DemandEstimator maps a feature vector to expected units sold for one
// product. Implementations are single-product scoped: the standardization
// parameters fitted by Train belong to that product's distribution and must
// never be reused across products.
type DemandEstimator interface {
	Train(history []models.SaleRecord, product *models.Product, competitorPrice float64) error
	PredictDemand(vec models.FeatureVector) (float64, error)
	Importances() map[string]float64
}

// CompetitorPriceSource resolves external market reference prices.
// An empty map is a valid result: downstream logic substitutes a per-product
// default when a price is missing.
type CompetitorPriceSource interface {
	Prices(ctx context.Context) (map[string]float64, error)
}
