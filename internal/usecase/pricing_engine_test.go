package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"PricePulse/internal/domain/models"
	domsvc "PricePulse/internal/domain/service"
)

type fakeMetrics struct {
	mu        sync.Mutex
	decisions map[string]int
	errs      map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{decisions: map[string]int{}, errs: map[string]int{}}
}

func (m *fakeMetrics) RecordDecision(source string) {
	m.mu.Lock()
	m.decisions[source]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errs[kind]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordFinalPrice(string, float64) {}
func (m *fakeMetrics) RecordLatency(string, float64)    {}

type fakeProductStore struct {
	mu       sync.Mutex
	products []models.Product
	updates  map[string]float64
}

func (s *fakeProductStore) List(context.Context, int) ([]models.Product, error) {
	return s.products, nil
}

func (s *fakeProductStore) Get(_ context.Context, id string) (*models.Product, error) {
	for i := range s.products {
		if s.products[i].ProductID == id {
			p := s.products[i]
			return &p, nil
		}
	}
	return nil, errors.New("not found")
}

func (s *fakeProductStore) UpdatePrice(_ context.Context, id string, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updates == nil {
		s.updates = map[string]float64{}
	}
	s.updates[id] = price
	return nil
}

type fakeSalesStore struct {
	histories map[string][]models.SaleRecord
}

func (s *fakeSalesStore) History(_ context.Context, id string) ([]models.SaleRecord, error) {
	return s.histories[id], nil
}

func (s *fakeSalesStore) HistoryAll(context.Context) (map[string][]models.SaleRecord, error) {
	return s.histories, nil
}

func (s *fakeSalesStore) Append(context.Context, *models.SaleRecord) error { return nil }

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]models.PricingDecision
}

func (p *fakePublisher) Publish(context.Context, *models.PricingDecision) error { return nil }

func (p *fakePublisher) PublishBatch(_ context.Context, ds []models.PricingDecision) error {
	p.mu.Lock()
	p.batches = append(p.batches, ds)
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type constEstimator struct{ demand float64 }

func (e *constEstimator) Train([]models.SaleRecord, *models.Product, float64) error { return nil }
func (e *constEstimator) PredictDemand(models.FeatureVector) (float64, error)       { return e.demand, nil }
func (e *constEstimator) Importances() map[string]float64                           { return nil }

func testProduct(id string) models.Product {
	return models.Product{
		ProductID:       id,
		BasePrice:       100,
		CostPrice:       50,
		Inventory:       20,
		CurrentPrice:    100,
		SalesLast30Days: 40,
		AverageRating:   4.0,
	}
}

func newTestEngine(m *fakeMetrics) *PricingEngine {
	return NewPricingEngine(&fakeProductStore{}, &fakeSalesStore{}, nil, nil, m, EngineConfig{
		Workers:    2,
		GridPoints: 50,
		Estimators: 10,
	})
}

func TestComputeDecisionFallbackOnShortHistory(t *testing.T) {
	m := newFakeMetrics()
	e := newTestEngine(m)

	p := testProduct("P1")
	p.Inventory = 5
	p.AverageRating = 4.5

	d, err := e.ComputeDecision(context.Background(), &p, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Source != models.SourceFallback {
		t.Fatalf("expected fallback source, got %s", d.Source)
	}
	// 100 * 1.2 (low inventory) * 1.1 (rating 4.5)
	if math.Abs(d.MLPrice-132) > 1e-9 {
		t.Fatalf("expected heuristic price 132, got %v", d.MLPrice)
	}
	if d.FinalPrice != 132 {
		t.Fatalf("expected final 132, got %v", d.FinalPrice)
	}
	if len(d.RulesApplied) != 0 {
		t.Fatalf("no rules should fire, got %v", d.RulesApplied)
	}
	if m.decisions[models.SourceFallback] != 1 {
		t.Fatalf("fallback decision not recorded")
	}
}

func TestComputeDecisionModelPath(t *testing.T) {
	m := newFakeMetrics()
	e := newTestEngine(m)
	e.SetEstimatorFactory(func() domsvc.DemandEstimator {
		return &constEstimator{demand: 10}
	})

	p := testProduct("P1")
	d, err := e.ComputeDecision(context.Background(), &p, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Source != models.SourceModel {
		t.Fatalf("expected model source, got %s", d.Source)
	}
	// constant demand pushes the grid to its cap: max(base*1.5, 90*1.2)
	if math.Abs(d.MLPrice-150) > 1e-6 {
		t.Fatalf("expected grid top 150, got %v", d.MLPrice)
	}
	if d.FinalPrice != 150 {
		t.Fatalf("expected final 150, got %v", d.FinalPrice)
	}
}

func TestComputeDecisionInvalidProduct(t *testing.T) {
	m := newFakeMetrics()
	e := newTestEngine(m)

	p := testProduct("P1")
	p.BasePrice = 0
	_, err := e.ComputeDecision(context.Background(), &p, nil, 0)
	if !errors.Is(err, models.ErrInvalidProduct) {
		t.Fatalf("expected ErrInvalidProduct, got %v", err)
	}
	if m.errs["invalid_product"] != 1 {
		t.Fatalf("invalid product not recorded")
	}
}

func TestRunCycleContinuesPastFailures(t *testing.T) {
	m := newFakeMetrics()
	e := newTestEngine(m)

	bad := testProduct("BAD")
	bad.CostPrice = -1
	products := []models.Product{testProduct("A"), bad, testProduct("B")}

	report := e.RunCycle(context.Background(), products, nil, nil)
	if len(report.Decisions) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(report.Decisions))
	}
	if len(report.Skipped) != 1 {
		t.Fatalf("expected 1 skipped, got %v", report.Skipped)
	}
	if _, ok := report.Skipped["BAD"]; !ok {
		t.Fatalf("BAD should be skipped: %v", report.Skipped)
	}
	if report.Duration <= 0 {
		t.Fatalf("duration not recorded")
	}
}

func TestRunCycleFromStoresPersistsAndPublishes(t *testing.T) {
	m := newFakeMetrics()
	store := &fakeProductStore{products: []models.Product{testProduct("A"), testProduct("B")}}
	pub := &fakePublisher{}
	e := NewPricingEngine(store, &fakeSalesStore{}, nil, pub, m, EngineConfig{
		Workers:    2,
		GridPoints: 50,
	})

	report, err := e.RunCycleFromStores(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Updated != 2 {
		t.Fatalf("expected 2 updates, got %d", report.Updated)
	}
	if len(store.updates) != 2 {
		t.Fatalf("expected price writes for both products, got %v", store.updates)
	}
	if len(pub.batches) != 1 || len(pub.batches[0]) != 2 {
		t.Fatalf("expected one published batch of 2, got %v", pub.batches)
	}
}

func TestRunCycleFromStoresDryRun(t *testing.T) {
	m := newFakeMetrics()
	store := &fakeProductStore{products: []models.Product{testProduct("A")}}
	pub := &fakePublisher{}
	e := NewPricingEngine(store, &fakeSalesStore{}, nil, pub, m, EngineConfig{Workers: 1})

	report, err := e.RunCycleFromStores(context.Background(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Decisions) != 1 {
		t.Fatalf("expected a decision, got %d", len(report.Decisions))
	}
	if len(store.updates) != 0 {
		t.Fatalf("dry run must not persist prices: %v", store.updates)
	}
	if len(pub.batches) != 0 {
		t.Fatalf("dry run must not publish: %v", pub.batches)
	}
}

func TestDecideLoadsFromStores(t *testing.T) {
	m := newFakeMetrics()
	store := &fakeProductStore{products: []models.Product{testProduct("A")}}
	e := NewPricingEngine(store, &fakeSalesStore{}, nil, nil, m, EngineConfig{Workers: 1})

	d, err := e.Decide(context.Background(), "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ProductID != "A" {
		t.Fatalf("wrong product: %s", d.ProductID)
	}
	if time.Since(d.Timestamp) > time.Minute {
		t.Fatalf("stale timestamp %v", d.Timestamp)
	}

	if _, err := e.Decide(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for unknown product")
	}
}
