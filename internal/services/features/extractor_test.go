package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"PricePulse/internal/domain/models"
)

func testProduct() *models.Product {
	return &models.Product{
		ProductID:       "P1",
		BasePrice:       100,
		CostPrice:       50,
		Inventory:       20,
		CurrentPrice:    100,
		SalesLast30Days: 40,
		AverageRating:   4.0,
	}
}

func makeHistory(n int) []models.SaleRecord {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.SaleRecord, n)
	for i := range out {
		out[i] = models.SaleRecord{
			ProductID: "P1",
			Date:      start.AddDate(0, 0, i),
			UnitsSold: float64(10 + i%5),
			Price:     100 + float64(i%3),
		}
	}
	return out
}

func TestTrainingTableInsufficientData(t *testing.T) {
	_, _, err := TrainingTable(makeHistory(MinTrainingRows-1), testProduct(), 90)
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestTrainingTableShape(t *testing.T) {
	history := makeHistory(40)
	X, y, err := TrainingTable(history, testProduct(), 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(X) != 40 || len(y) != 40 {
		t.Fatalf("expected 40 rows/targets, got %d/%d", len(X), len(y))
	}
	for i, row := range X {
		if len(row) != len(models.FeatureNames) {
			t.Fatalf("row %d has %d columns, want %d", i, len(row), len(models.FeatureNames))
		}
	}
	if y[0] != history[0].UnitsSold {
		t.Fatalf("target mismatch: %v vs %v", y[0], history[0].UnitsSold)
	}
	// first row has no previous observation
	if X[0][3] != 0 {
		t.Fatalf("expected zero price_change on first row, got %v", X[0][3])
	}
}

func TestPyWeekday(t *testing.T) {
	monday := time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC)
	if got := pyWeekday(monday); got != 0 {
		t.Fatalf("Monday should be 0, got %d", got)
	}
	sunday := time.Date(2024, 10, 13, 0, 0, 0, 0, time.UTC)
	if got := pyWeekday(sunday); got != 6 {
		t.Fatalf("Sunday should be 6, got %d", got)
	}
	if weekendFlag(pyWeekday(sunday)) != 1 {
		t.Fatalf("Sunday should be weekend")
	}
	if weekendFlag(pyWeekday(monday)) != 0 {
		t.Fatalf("Monday should not be weekend")
	}
}

func TestModeTieBreak(t *testing.T) {
	if got := mode([]int{3, 1, 3, 1}); got != 1 {
		t.Fatalf("tie should resolve to smallest, got %d", got)
	}
	if got := mode([]int{2, 2, 5}); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestPredictionVectorEmptyHistory(t *testing.T) {
	p := testProduct()
	now := time.Date(2024, 10, 12, 0, 0, 0, 0, time.UTC) // Saturday
	v := PredictionVector(nil, p, 90, now)

	if v.DayOfWeek != 5 || v.IsWeekend != 1 {
		t.Fatalf("expected Saturday weekend, got dow=%v weekend=%v", v.DayOfWeek, v.IsWeekend)
	}
	if v.PriceVolatility != 0.1 {
		t.Fatalf("expected default volatility 0.1, got %v", v.PriceVolatility)
	}
	if v.SalesMA7 != 10 { // 40/4
		t.Fatalf("expected ma7 fallback 10, got %v", v.SalesMA7)
	}
	if v.SalesMA30 != 40 {
		t.Fatalf("expected ma30 fallback 40, got %v", v.SalesMA30)
	}
	if v.CompetitorPrice != 90 {
		t.Fatalf("expected competitor 90, got %v", v.CompetitorPrice)
	}
	if v.PriceDifference != 10 {
		t.Fatalf("expected difference 10, got %v", v.PriceDifference)
	}
}

func TestPredictionVectorSingleObservation(t *testing.T) {
	p := testProduct()
	history := makeHistory(1)
	v := PredictionVector(history, p, 90, time.Now())
	// a single price has no spread; the default applies
	if v.PriceVolatility != 0.1 {
		t.Fatalf("expected default volatility, got %v", v.PriceVolatility)
	}
}

func TestPredictionVectorUsesRecentStats(t *testing.T) {
	p := testProduct()
	history := makeHistory(40)
	v := PredictionVector(history, p, 90, time.Now())

	units := make([]float64, len(history))
	for i, h := range history {
		units[i] = h.UnitsSold
	}
	wantMA7 := rollingMean(units, len(units)-1, 7)
	if math.Abs(v.SalesMA7-wantMA7) > 1e-12 {
		t.Fatalf("ma7 mismatch: %v vs %v", v.SalesMA7, wantMA7)
	}
	if v.PriceVolatility == 0.1 {
		t.Fatalf("expected observed volatility, got default")
	}
}

func TestSlopeLinearSeries(t *testing.T) {
	got := slope([]float64{1, 3, 5, 7})
	if math.Abs(got-2) > 1e-12 {
		t.Fatalf("expected slope 2, got %v", got)
	}
	if slope([]float64{5}) != 0 {
		t.Fatalf("expected zero slope for single point")
	}
}

func TestRollingWindows(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	if got := rollingMean(xs, 1, 3); got != 0 {
		t.Fatalf("partial window should give 0, got %v", got)
	}
	if got := rollingMean(xs, 4, 3); got != 4 {
		t.Fatalf("expected 4, got %v", got)
	}
	if got := rollingStd(xs, 4, 3); math.Abs(got-1) > 1e-12 {
		t.Fatalf("expected sample std 1, got %v", got)
	}
}

func TestRatingFactor(t *testing.T) {
	if RatingFactor(3.5) != 1 {
		t.Fatalf("3.5 stars should be neutral")
	}
	if math.Abs(RatingFactor(5)-1.15) > 1e-12 {
		t.Fatalf("expected 1.15, got %v", RatingFactor(5))
	}
}
