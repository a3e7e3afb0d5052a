package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
)

// SaleSink is the minimal downstream the pipeline needs.
type SaleSink interface {
	Process(ctx context.Context, rec *models.SaleRecord) error
}

// IngestPipeline sits between the sales consumer and storage. It validates,
// throttles per product, and buffers records when the store is unavailable
// so a storage blip does not drop observations.
type IngestPipeline struct {
	sink    SaleSink
	metrics domrepo.Metrics
	maxRPS  int
	bufSize int
	bufCh   chan *models.SaleRecord
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex

	seenMu   sync.Mutex
	lastSeen map[string]time.Time // per-product last accepted time
}

type PipelineOption func(*IngestPipeline)

// WithMaxRPS sets the max accepted records per second per product.
func WithMaxRPS(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the retry buffer size.
func WithBufferSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

func NewIngestPipeline(sink SaleSink, metrics domrepo.Metrics, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		sink:     sink,
		metrics:  metrics,
		maxRPS:   50,
		bufSize:  1000,
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.SaleRecord, p.bufSize)
	return p
}

// Start launches background flushing of buffered records.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case rec := <-p.bufCh:
				if rec == nil {
					continue
				}
				if err := p.sink.Process(ctx, rec); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("ingest_flush")
					time.Sleep(backoff)
					select {
					case p.bufCh <- rec:
					default:
						p.metrics.RecordError("ingest_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *IngestPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards a record, buffering on errors.
func (p *IngestPipeline) Process(ctx context.Context, rec *models.SaleRecord) error {
	start := time.Now()
	if err := validateSale(rec); err != nil {
		p.metrics.RecordError("ingest_validate")
		return err
	}
	if !p.allow(rec.ProductID, start) {
		// throttled; record and drop silently
		p.metrics.RecordError("ingest_throttle")
		return nil
	}

	if err := p.sink.Process(ctx, rec); err != nil {
		p.metrics.RecordError("ingest_store")
		select {
		case p.bufCh <- rec:
		default:
			p.metrics.RecordError("ingest_buffer_full")
		}
		return fmt.Errorf("ingest downstream: %w", err)
	}
	p.metrics.RecordLatency("ingest_process", time.Since(start).Seconds())
	return nil
}

func validateSale(rec *models.SaleRecord) error {
	if rec == nil {
		return fmt.Errorf("sale record nil")
	}
	if rec.ProductID == "" {
		return fmt.Errorf("product_id empty")
	}
	if rec.Date.IsZero() {
		return fmt.Errorf("date missing")
	}
	if rec.UnitsSold < 0 || rec.Price < 0 {
		return fmt.Errorf("negative units/price")
	}
	return nil
}

func (p *IngestPipeline) allow(productID string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.seenMu.Lock()
	defer p.seenMu.Unlock()
	last := p.lastSeen[productID]
	if last.IsZero() {
		p.lastSeen[productID] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[productID] = now
	return true
}
