package optimizer

import (
	"context"
	"errors"
	"math"
	"testing"

	"PricePulse/internal/domain/models"
)

type stubEstimator struct {
	demand func(models.FeatureVector) float64
	err    error
}

func (s *stubEstimator) Train([]models.SaleRecord, *models.Product, float64) error { return nil }

func (s *stubEstimator) PredictDemand(v models.FeatureVector) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.demand(v), nil
}

func (s *stubEstimator) Importances() map[string]float64 { return nil }

func testProduct() *models.Product {
	return &models.Product{
		ProductID:       "P1",
		BasePrice:       100,
		CostPrice:       80,
		Inventory:       20,
		CurrentPrice:    100,
		SalesLast30Days: 40,
		AverageRating:   4.0,
	}
}

func TestBounds(t *testing.T) {
	p := testProduct()
	lo, hi := Bounds(p, 95)
	// min(80*1.1, 95*0.8) and max(100*1.5, 95*1.2)
	if math.Abs(lo-76) > 1e-9 || math.Abs(hi-150) > 1e-9 {
		t.Fatalf("expected [76, 150], got [%v, %v]", lo, hi)
	}

	// no competitor: pure cost/base bounds
	lo, hi = Bounds(p, 0)
	if math.Abs(lo-0) > 1e-9 {
		t.Fatalf("zero competitor should floor at 0*0.8, got %v", lo)
	}
	if math.Abs(hi-150) > 1e-9 {
		t.Fatalf("expected 150, got %v", hi)
	}
}

func TestBoundsInverted(t *testing.T) {
	p := testProduct()
	p.CostPrice = 500 // floor above cap without competitor influence
	lo, hi := Bounds(p, 600)
	if lo > hi {
		t.Fatalf("bounds must stay ordered, got [%v, %v]", lo, hi)
	}
}

func TestSearchPicksMaxRevenue(t *testing.T) {
	p := testProduct()
	est := &stubEstimator{demand: func(models.FeatureVector) float64 { return 10 }}

	best, err := Search(context.Background(), est, p, nil, 95, 100)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	// constant demand: revenue grows with price, so the top of the grid wins
	if math.Abs(best.Price-150) > 1e-9 {
		t.Fatalf("expected max grid price 150, got %v", best.Price)
	}
	if math.Abs(best.Revenue-1500) > 1e-9 {
		t.Fatalf("expected revenue 1500, got %v", best.Revenue)
	}
}

func TestSearchPrefersElasticOptimum(t *testing.T) {
	p := testProduct()
	// revenue p*(200-p) peaks at price 100
	est := &stubEstimator{demand: func(v models.FeatureVector) float64 {
		price := v.PriceDifference + 95
		return math.Max(0, 200-price)
	}}

	best, err := Search(context.Background(), est, p, nil, 95, 1000)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if math.Abs(best.Price-100) > 0.5 {
		t.Fatalf("expected optimum near 100, got %v", best.Price)
	}
}

func TestSearchZeroDemandKeepsCurrentPrice(t *testing.T) {
	p := testProduct()
	est := &stubEstimator{demand: func(models.FeatureVector) float64 { return 0 }}

	best, err := Search(context.Background(), est, p, nil, 95, 50)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if best.Price != p.CurrentPrice || best.Revenue != 0 {
		t.Fatalf("expected current price fallback, got %+v", best)
	}
}

func TestSearchEstimatorError(t *testing.T) {
	p := testProduct()
	wantErr := errors.New("broken")
	est := &stubEstimator{err: wantErr}

	_, err := Search(context.Background(), est, p, nil, 95, 50)
	var oerr *models.OptimizationError
	if !errors.As(err, &oerr) {
		t.Fatalf("expected OptimizationError, got %v", err)
	}
	if oerr.ProductID != "P1" || !errors.Is(err, wantErr) {
		t.Fatalf("wrapped error mismatch: %+v", oerr)
	}
}

func TestSearchCancelledContext(t *testing.T) {
	p := testProduct()
	est := &stubEstimator{demand: func(models.FeatureVector) float64 { return 10 }}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Search(ctx, est, p, nil, 95, 50)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
