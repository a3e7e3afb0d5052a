package features

import (
	"fmt"
	"math"
	"time"

	"PricePulse/internal/domain/models"
)

// MinTrainingRows is the minimum number of sale observations required to
// build a training table.
const MinTrainingRows = 10

// predictionPriceChange is a fixed placeholder for the price_change feature
// at prediction time. The candidate price is prospective, so there is no
// observed period-over-period delta; 0.05 models a typical recent increase.
// Training rows use real deltas. Kept deliberately asymmetric.
const predictionPriceChange = 0.05

// TrainingTable turns ordered sale observations plus product attributes into
// a feature matrix (one row per observation) and the units-sold targets.
// Returns models.ErrInsufficientData when fewer than MinTrainingRows rows
// are available.
func TrainingTable(history []models.SaleRecord, product *models.Product, competitorPrice float64) ([][]float64, []float64, error) {
	if len(history) < MinTrainingRows {
		return nil, nil, fmt.Errorf("%w: %d rows, need %d", models.ErrInsufficientData, len(history), MinTrainingRows)
	}

	n := len(history)
	prices := make([]float64, n)
	units := make([]float64, n)
	for i, h := range history {
		prices[i] = h.Price
		units[i] = h.UnitsSold
	}

	ma30 := make([]float64, n)
	for i := range history {
		ma30[i] = rollingMean(units, i, 30)
	}
	invRatio := 1.0
	if m := mean(ma30); m > 0 {
		invRatio = float64(product.Inventory) / m
	}
	ratingFactor := RatingFactor(product.AverageRating)

	rows := make([][]float64, 0, n)
	targets := make([]float64, 0, n)
	for i, h := range history {
		dow := pyWeekday(h.Date)
		v := models.FeatureVector{
			DayOfWeek:       float64(dow),
			Month:           float64(h.Date.Month()),
			IsWeekend:       weekendFlag(dow),
			PriceChange:     pctChange(prices, i),
			PriceVolatility: rollingStd(prices, i, 7),
			SalesMA7:        rollingMean(units, i, 7),
			SalesMA30:       ma30[i],
			SalesTrend:      rollingSlope(units, i, 7),
			InventoryLevel:  float64(product.Inventory),
			InventoryRatio:  invRatio,
			RatingFactor:    ratingFactor,
			CompetitorPrice: competitorPrice,
			PriceDifference: h.Price - competitorPrice,
			PriceRatio:      priceRatio(h.Price, competitorPrice),
		}
		rows = append(rows, v.Values())
		targets = append(targets, h.UnitsSold)
	}
	return rows, targets, nil
}

// PredictionVector derives a single representative vector for price search.
// Historical data supplies modal time features and recent sales statistics;
// product attributes fill the gaps when history is too short. The
// price-dependent fields (PriceDifference, PriceRatio) are placeholders the
// optimizer overwrites per candidate.
func PredictionVector(history []models.SaleRecord, product *models.Product, competitorPrice float64, now time.Time) models.FeatureVector {
	var dow, month int
	volatility := 0.1
	salesMA7 := float64(product.SalesLast30Days) / 4
	salesMA30 := float64(product.SalesLast30Days)
	trend := 0.0

	if len(history) > 0 {
		dows := make([]int, len(history))
		months := make([]int, len(history))
		units := make([]float64, len(history))
		prices := make([]float64, len(history))
		for i, h := range history {
			dows[i] = pyWeekday(h.Date)
			months[i] = int(h.Date.Month())
			units[i] = h.UnitsSold
			prices[i] = h.Price
		}
		dow = mode(dows)
		month = mode(months)
		if len(history) > 1 {
			volatility = stddev(prices)
		}
		last := len(history) - 1
		if len(history) >= 7 {
			salesMA7 = rollingMean(units, last, 7)
			trend = rollingSlope(units, last, 7)
		}
		if len(history) >= 30 {
			salesMA30 = rollingMean(units, last, 30)
		}
	} else {
		dow = pyWeekday(now)
		month = int(now.Month())
	}

	return models.FeatureVector{
		DayOfWeek:       float64(dow),
		Month:           float64(month),
		IsWeekend:       weekendFlag(dow),
		PriceChange:     predictionPriceChange,
		PriceVolatility: volatility,
		SalesMA7:        salesMA7,
		SalesMA30:       salesMA30,
		SalesTrend:      trend,
		InventoryLevel:  float64(product.Inventory),
		InventoryRatio:  float64(product.Inventory) / math.Max(float64(product.SalesLast30Days), 1),
		RatingFactor:    RatingFactor(product.AverageRating),
		CompetitorPrice: competitorPrice,
		PriceDifference: product.CurrentPrice - competitorPrice,
		PriceRatio:      priceRatio(product.CurrentPrice, competitorPrice),
	}
}

// RatingFactor maps an average rating to a multiplicative demand factor
// centered on 3.5 stars.
func RatingFactor(rating float64) float64 {
	return 1 + (rating-3.5)*0.1
}

// pyWeekday returns Monday=0..Sunday=6.
func pyWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func weekendFlag(dow int) float64 {
	if dow >= 5 {
		return 1
	}
	return 0
}

func priceRatio(price, competitor float64) float64 {
	if competitor <= 0 {
		return 1
	}
	return price / competitor
}

// pctChange returns the fractional change from the previous element, 0 for
// the first element or a zero previous price.
func pctChange(xs []float64, i int) float64 {
	if i == 0 || xs[i-1] == 0 {
		return 0
	}
	return (xs[i] - xs[i-1]) / xs[i-1]
}

// rollingMean is the trailing mean of the window ending at index i.
// Returns 0 while the window is not yet full.
func rollingMean(xs []float64, i, window int) float64 {
	if i+1 < window {
		return 0
	}
	sum := 0.0
	for j := i + 1 - window; j <= i; j++ {
		sum += xs[j]
	}
	return sum / float64(window)
}

// rollingStd is the trailing sample standard deviation of the window ending
// at index i. Returns 0 while the window is not yet full.
func rollingStd(xs []float64, i, window int) float64 {
	if window < 2 || i+1 < window {
		return 0
	}
	return stddev(xs[i+1-window : i+1])
}

// rollingSlope fits a least-squares line to the window ending at index i and
// returns its slope. Returns 0 while the window holds fewer than 2 points.
func rollingSlope(xs []float64, i, window int) float64 {
	if i+1 < window {
		return 0
	}
	return slope(xs[i+1-window : i+1])
}

func slope(ys []float64) float64 {
	n := len(ys)
	if n < 2 {
		return 0
	}
	// x = 0..n-1
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (fn*sumXY - sumX*sumY) / denom
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the sample standard deviation (n-1 denominator).
func stddev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	m := mean(xs)
	sum2 := 0.0
	for _, x := range xs {
		d := x - m
		sum2 += d * d
	}
	variance := sum2 / float64(n-1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// mode returns the most frequent value; ties resolve to the smallest value.
func mode(xs []int) int {
	counts := make(map[int]int, len(xs))
	for _, x := range xs {
		counts[x]++
	}
	best, bestCount := 0, -1
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}
