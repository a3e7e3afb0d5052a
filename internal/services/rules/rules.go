package rules

import (
	"math"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/services/features"
)

// Rule names reported in PricingDecision.RulesApplied.
const (
	RuleInventoryScarcity  = "inventory_scarcity"
	RuleCompetitorUndercut = "competitor_undercut"
	RuleMinMarginClamp     = "min_margin_clamp"
	RuleMaxPriceCap        = "max_price_cap"
)

// Apply post-processes a model (or fallback) price with deterministic
// business rules and returns the final price plus the names of the rules
// that changed it. Pure: identical inputs always produce identical output.
//
// Order matters: scarcity and undercut are independent and may both fire;
// the margin/cap clamp runs unconditionally afterwards. competitorPrice <= 0
// means "unknown" and disables the undercut rule.
func Apply(mlPrice float64, product *models.Product, competitorPrice float64) (float64, []string) {
	price := mlPrice
	var applied []string

	if product.Inventory < 5 {
		adjusted := math.Min(price*1.3, product.BasePrice*1.5)
		if adjusted != price {
			applied = append(applied, RuleInventoryScarcity)
		}
		price = adjusted
	}

	if competitorPrice > 0 && product.CurrentPrice > 0 {
		diff := (product.CurrentPrice - competitorPrice) / product.CurrentPrice
		if diff > 0.2 {
			adjusted := math.Max(price*0.8, product.CostPrice*1.1)
			if adjusted != price {
				applied = append(applied, RuleCompetitorUndercut)
			}
			price = adjusted
		}
	}

	if floor := product.CostPrice * 1.1; price < floor {
		price = floor
		applied = append(applied, RuleMinMarginClamp)
	}
	if cap := product.BasePrice * 1.5; price > cap {
		price = cap
		applied = append(applied, RuleMaxPriceCap)
	}

	return round2(price), applied
}

// FallbackPrice is the closed-form heuristic used whenever the demand model
// is unusable: base price scaled by inventory pressure and rating.
func FallbackPrice(product *models.Product) float64 {
	inventoryFactor := 0.9
	if product.Inventory < 10 {
		inventoryFactor = 1.2
	}
	return product.BasePrice * inventoryFactor * features.RatingFactor(product.AverageRating)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
