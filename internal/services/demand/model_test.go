package demand

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

// price-sensitive history: demand drops as price rises
func elasticHistory(n int) []models.SaleRecord {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.SaleRecord, n)
	for i := range out {
		price := 90 + float64(i%5)*5
		out[i] = models.SaleRecord{
			ProductID: "P1",
			Date:      start.AddDate(0, 0, i),
			UnitsSold: math.Max(0, 50-0.4*price) + float64(i%3),
			Price:     price,
		}
	}
	return out
}

func TestPredictBeforeTrain(t *testing.T) {
	m := New()
	_, err := m.PredictDemand(models.FeatureVector{})
	if !errors.Is(err, models.ErrModelNotTrained) {
		t.Fatalf("expected ErrModelNotTrained, got %v", err)
	}
}

func TestTrainInsufficientData(t *testing.T) {
	m := New()
	err := m.Train(elasticHistory(9), testProduct(), 90)
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if _, perr := m.PredictDemand(models.FeatureVector{}); !errors.Is(perr, models.ErrModelNotTrained) {
		t.Fatalf("failed train must leave model untrained")
	}
}

func TestTrainAndPredictRange(t *testing.T) {
	history := elasticHistory(60)
	m := New(WithEstimators(25))
	if err := m.Train(history, testProduct(), 90); err != nil {
		t.Fatalf("train: %v", err)
	}

	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, h := range history {
		minY = math.Min(minY, h.UnitsSold)
		maxY = math.Max(maxY, h.UnitsSold)
	}

	vec := models.FeatureVector{
		DayOfWeek: 2, Month: 3,
		PriceVolatility: 5, SalesMA7: 12, SalesMA30: 12,
		InventoryLevel: 20, InventoryRatio: 1.5, RatingFactor: 1.05,
		CompetitorPrice: 90, PriceDifference: 10, PriceRatio: 1.1,
	}
	got, err := m.PredictDemand(vec)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	// tree leaves average observed targets, so predictions stay in range
	if got < minY || got > maxY {
		t.Fatalf("prediction %v outside target range [%v, %v]", got, minY, maxY)
	}
}

func TestTrainDeterministicWithSeed(t *testing.T) {
	history := elasticHistory(60)
	vec := models.FeatureVector{SalesMA7: 12, SalesMA30: 12, PriceRatio: 1.05, CompetitorPrice: 90}

	a := New(WithEstimators(15), WithSeed(7))
	b := New(WithEstimators(15), WithSeed(7))
	if err := a.Train(history, testProduct(), 90); err != nil {
		t.Fatalf("train a: %v", err)
	}
	if err := b.Train(history, testProduct(), 90); err != nil {
		t.Fatalf("train b: %v", err)
	}

	pa, _ := a.PredictDemand(vec)
	pb, _ := b.PredictDemand(vec)
	if pa != pb {
		t.Fatalf("same seed should give identical predictions: %v vs %v", pa, pb)
	}
}

func TestImportancesNormalized(t *testing.T) {
	m := New(WithEstimators(15))
	if err := m.Train(elasticHistory(60), testProduct(), 90); err != nil {
		t.Fatalf("train: %v", err)
	}
	imp := m.Importances()
	if len(imp) != len(models.FeatureNames) {
		t.Fatalf("expected %d importances, got %d", len(models.FeatureNames), len(imp))
	}
	sum := 0.0
	for name, v := range imp {
		if v < 0 {
			t.Fatalf("negative importance for %s", name)
		}
		sum += v
	}
	if sum > 0 && math.Abs(sum-1) > 1e-9 {
		t.Fatalf("importances should sum to 1, got %v", sum)
	}
}

func TestScalerFit(t *testing.T) {
	X := [][]float64{
		{1, 7},
		{3, 7},
		{5, 7},
	}
	s := &StandardScaler{}
	s.Fit(X)

	if s.Mean[0] != 3 {
		t.Fatalf("expected mean 3, got %v", s.Mean[0])
	}
	// population std of {1,3,5}
	want := math.Sqrt(8.0 / 3.0)
	if math.Abs(s.Scale[0]-want) > 1e-12 {
		t.Fatalf("expected scale %v, got %v", want, s.Scale[0])
	}
	// constant column must not divide by zero
	if s.Scale[1] != 1 {
		t.Fatalf("expected unit scale for constant column, got %v", s.Scale[1])
	}

	row := s.Transform([]float64{3, 7})
	if row[0] != 0 || row[1] != 0 {
		t.Fatalf("mean row should transform to zeros, got %v", row)
	}
}
