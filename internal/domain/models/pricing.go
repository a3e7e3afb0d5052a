package models

import (
	"fmt"
	"time"
)

// Product holds the static attributes of a sellable item. Attributes are
// owned by the catalog store; the pricing engine reads them and only writes
// back CurrentPrice through the store after a cycle.
type Product struct {
	ProductID       string  `json:"product_id"`
	BasePrice       float64 `json:"base_price"`
	CostPrice       float64 `json:"cost_price"`
	Inventory       int     `json:"inventory"`
	CurrentPrice    float64 `json:"current_price"`
	SalesLast30Days int     `json:"sales_last_30_days"`
	AverageRating   float64 `json:"average_rating"`
	Category        string  `json:"category"`
}

// Validate checks the fields the engine depends on. A product failing
// validation is skipped for the cycle, never priced.
func (p *Product) Validate() error {
	if p.ProductID == "" {
		return fmt.Errorf("%w: product_id empty", ErrInvalidProduct)
	}
	if p.BasePrice <= 0 {
		return fmt.Errorf("%w: base_price must be positive (product %s)", ErrInvalidProduct, p.ProductID)
	}
	if p.CostPrice <= 0 {
		return fmt.Errorf("%w: cost_price must be positive (product %s)", ErrInvalidProduct, p.ProductID)
	}
	if p.CurrentPrice <= 0 {
		return fmt.Errorf("%w: current_price must be positive (product %s)", ErrInvalidProduct, p.ProductID)
	}
	if p.Inventory < 0 {
		return fmt.Errorf("%w: inventory negative (product %s)", ErrInvalidProduct, p.ProductID)
	}
	return nil
}

// SaleRecord is one historical sale observation. Records are immutable and
// ordered by Date when loaded from the store.
type SaleRecord struct {
	ProductID string    `json:"product_id"`
	Date      time.Time `json:"date"`
	UnitsSold float64   `json:"units_sold"`
	Price     float64   `json:"price"`
}

// FeatureVector is the numeric model input. Computed fresh each cycle,
// never persisted. Field order must match FeatureNames.
type FeatureVector struct {
	DayOfWeek       float64
	Month           float64
	IsWeekend       float64
	PriceChange     float64
	PriceVolatility float64
	SalesMA7        float64
	SalesMA30       float64
	SalesTrend      float64
	InventoryLevel  float64
	InventoryRatio  float64
	RatingFactor    float64
	CompetitorPrice float64
	PriceDifference float64
	PriceRatio      float64
}

// FeatureNames lists the model columns in their canonical order.
var FeatureNames = []string{
	"day_of_week", "month", "is_weekend",
	"price_change", "price_volatility",
	"sales_ma7", "sales_ma30", "sales_trend",
	"inventory_level", "inventory_ratio",
	"rating_factor", "competitor_price",
	"price_difference", "price_ratio",
}

// Values returns the vector as a slice in FeatureNames order.
func (v FeatureVector) Values() []float64 {
	return []float64{
		v.DayOfWeek, v.Month, v.IsWeekend,
		v.PriceChange, v.PriceVolatility,
		v.SalesMA7, v.SalesMA30, v.SalesTrend,
		v.InventoryLevel, v.InventoryRatio,
		v.RatingFactor, v.CompetitorPrice,
		v.PriceDifference, v.PriceRatio,
	}
}

// PriceCandidate is a transient grid-search point.
type PriceCandidate struct {
	Price           float64 `json:"price"`
	PredictedDemand float64 `json:"predicted_demand"`
	Revenue         float64 `json:"revenue"`
}

// Decision sources.
const (
	SourceModel    = "model"
	SourceFallback = "fallback"
)

// PricingDecision is the per-product result of a pricing cycle.
type PricingDecision struct {
	ProductID    string    `json:"product_id"`
	MLPrice      float64   `json:"ml_price"`
	FinalPrice   float64   `json:"final_price"`
	RulesApplied []string  `json:"rules_applied,omitempty"`
	Source       string    `json:"source"`
	Timestamp    time.Time `json:"timestamp"`
}

// CycleReport summarizes a batch repricing run. Skipped products carry their
// error text for observability; the batch itself never fails.
type CycleReport struct {
	Decisions []PricingDecision `json:"decisions"`
	Updated   int               `json:"updated"`
	Skipped   map[string]string `json:"skipped,omitempty"`
	Started   time.Time         `json:"started"`
	Duration  time.Duration     `json:"duration_ms"`
}
