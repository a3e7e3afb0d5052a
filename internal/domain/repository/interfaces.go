package repository

import (
	"context"

	"PricePulse/internal/domain/models"
)

// ProductStore provides access to the product catalog.
type ProductStore interface {
	List(ctx context.Context, limit int) ([]models.Product, error)
	Get(ctx context.Context, productID string) (*models.Product, error)
	// UpdatePrice records a new current price for a product after a cycle.
	UpdatePrice(ctx context.Context, productID string, price float64) error
}

// SalesStore provides access to historical sale observations.
type SalesStore interface {
	// History returns all observations for a product ordered by date ascending.
	History(ctx context.Context, productID string) ([]models.SaleRecord, error)
	// HistoryAll returns observations for every product, grouped by product id.
	HistoryAll(ctx context.Context) (map[string][]models.SaleRecord, error)
	Append(ctx context.Context, rec *models.SaleRecord) error
}

// DecisionPublisher emits pricing decisions for downstream consumers.
type DecisionPublisher interface {
	Publish(ctx context.Context, d *models.PricingDecision) error
	PublishBatch(ctx context.Context, ds []models.PricingDecision) error
	Close() error
}

// Metrics records operational metrics for the pricing engine.
type Metrics interface {
	RecordDecision(source string)
	RecordError(kind string)
	RecordFinalPrice(productID string, price float64)
	RecordLatency(op string, seconds float64)
}
