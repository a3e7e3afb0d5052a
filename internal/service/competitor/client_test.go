package competitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"PricePulse/internal/domain/models"
	pkgcache "PricePulse/pkg/cache"
	"PricePulse/pkg/config"
)

func newTestClient(url string, ttl time.Duration) *Client {
	cfg := &config.Config{}
	cfg.Competitor.URL = url
	cfg.Competitor.Timeout = 2 * time.Second
	cfg.Competitor.CacheTTL = ttl
	return New(cfg)
}

func TestPricesParsesAndFiltersSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"product_id": "A", "competitor_price": 95.5},
			{"product_id": "B", "competitor_price": 0},
			{"product_id": "", "competitor_price": 10},
			{"product_id": "C", "competitor_price": -3},
			{"product_id": "D", "competitor_price": 120}
		]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	prices, err := c.Prices(context.Background())
	if err != nil {
		t.Fatalf("Prices: %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("expected 2 valid entries, got %d: %v", len(prices), prices)
	}
	if prices["A"] != 95.5 || prices["D"] != 120 {
		t.Fatalf("unexpected snapshot: %v", prices)
	}
	for _, id := range []string{"B", "C", ""} {
		if _, ok := prices[id]; ok {
			t.Fatalf("entry %q should have been filtered", id)
		}
	}
}

func TestPricesUsesCachedSnapshot(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"product_id": "A", "competitor_price": 50}]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, time.Minute)
	c.SetCache(pkgcache.NewMemoryCache())

	for i := 0; i < 3; i++ {
		prices, err := c.Prices(context.Background())
		if err != nil {
			t.Fatalf("Prices call %d: %v", i, err)
		}
		if prices["A"] != 50 {
			t.Fatalf("call %d: unexpected snapshot: %v", i, prices)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected 1 upstream fetch, got %d", got)
	}
}

func TestPricesUpstreamErrorIsExternalService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	if _, err := c.Prices(context.Background()); !errors.Is(err, models.ErrExternalService) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
}

func TestPricesNoURLReturnsEmptySnapshot(t *testing.T) {
	c := newTestClient("", 0)
	prices, err := c.Prices(context.Background())
	if err != nil {
		t.Fatalf("Prices: %v", err)
	}
	if len(prices) != 0 {
		t.Fatalf("expected empty snapshot, got %v", prices)
	}
}
