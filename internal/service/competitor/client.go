package competitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"PricePulse/internal/domain/models"
	pkgcache "PricePulse/pkg/cache"
	"PricePulse/pkg/config"
	xhttp "PricePulse/pkg/http"
	applogger "PricePulse/pkg/logger"
)

// Client fetches the competitor price snapshot over HTTP. The upstream
// returns a JSON array of {product_id, competitor_price}; the client
// reduces it to a map. Fetch failures degrade: callers get an error they
// are expected to treat as "no competitor data", never as fatal.
type Client struct {
	url    string
	client *xhttp.Client
	cache  pkgcache.Service
	ttl    time.Duration
	l      *applogger.Logger
}

type priceEntry struct {
	ProductID       string  `json:"product_id"`
	CompetitorPrice float64 `json:"competitor_price"`
}

func New(cfg *config.Config) *Client {
	timeout := cfg.Competitor.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		url:    cfg.Competitor.URL,
		client: xhttp.NewClient(xhttp.WithTimeout(timeout)),
		ttl:    cfg.Competitor.CacheTTL,
	}
}

// SetCache enables snapshot caching between cycles.
func (c *Client) SetCache(cache pkgcache.Service) { c.cache = cache }

// SetLogger injects a structured logger.
func (c *Client) SetLogger(l *applogger.Logger) { c.l = l }

// Prices returns the product_id → competitor_price snapshot.
func (c *Client) Prices(ctx context.Context) (map[string]float64, error) {
	if c.url == "" {
		return map[string]float64{}, nil
	}

	cacheKey := pkgcache.Key("competitor", "snapshot")
	if c.cache != nil && c.ttl > 0 {
		var raw string
		if err := c.cache.Get(ctx, cacheKey, &raw); err == nil {
			var cached map[string]float64
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				if c.l != nil {
					c.l.Debug("competitor snapshot cache_hit", applogger.Int("entries", len(cached)))
				}
				return cached, nil
			}
		}
	}

	var entries []priceEntry
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.url,
		Headers: map[string]string{"Content-Type": "application/json"},
	}, &entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExternalService, err)
	}

	prices := make(map[string]float64, len(entries))
	for _, e := range entries {
		if e.ProductID == "" || e.CompetitorPrice <= 0 {
			continue
		}
		prices[e.ProductID] = e.CompetitorPrice
	}

	if c.cache != nil && c.ttl > 0 {
		if b, err := json.Marshal(prices); err == nil {
			if err := c.cache.Set(ctx, cacheKey, string(b), c.ttl); err != nil && c.l != nil {
				c.l.Warn("competitor snapshot cache_set_error", applogger.Error(err))
			}
		}
	}
	if c.l != nil {
		c.l.Info("competitor snapshot fetched", applogger.Int("entries", len(prices)))
	}
	return prices, nil
}
