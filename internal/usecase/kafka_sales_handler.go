package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/internal/middleware"
	pkgkafka "PricePulse/pkg/kafka"
	xutil "PricePulse/pkg/util"
)

// KafkaSalesHandler consumes daily sale observations from Kafka and pushes
// them through the ingest pipeline into storage.
type KafkaSalesHandler struct {
	topic   string
	sink    middleware.SaleSink
	metrics domrepo.Metrics
}

func NewKafkaSalesHandler(topic string, sink middleware.SaleSink, metrics domrepo.Metrics) *KafkaSalesHandler {
	return &KafkaSalesHandler{topic: topic, sink: sink, metrics: metrics}
}

func (h *KafkaSalesHandler) Topic() string { return h.topic }

// incoming message schema: {product_id, date, units_sold, price}
func (h *KafkaSalesHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		ProductID string  `json:"product_id"`
		Date      string  `json:"date"`
		UnitsSold float64 `json:"units_sold"`
		Price     float64 `json:"price"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	date, ok := xutil.ParseDay(m.Date)
	if !ok {
		h.metrics.RecordError("consumer_bad_date")
		return fmt.Errorf("unparseable sale date %q", m.Date)
	}

	start := time.Now()
	err := h.sink.Process(ctx, &models.SaleRecord{
		ProductID: m.ProductID,
		Date:      date,
		UnitsSold: m.UnitsSold,
		Price:     m.Price,
	})
	h.metrics.RecordLatency("sale_ingest_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSalesHandler)(nil)

// SalesStoreSink adapts a SalesStore to the pipeline sink.
type SalesStoreSink struct {
	store domrepo.SalesStore
}

func NewSalesStoreSink(store domrepo.SalesStore) *SalesStoreSink {
	return &SalesStoreSink{store: store}
}

func (s *SalesStoreSink) Process(ctx context.Context, rec *models.SaleRecord) error {
	return s.store.Append(ctx, rec)
}

var _ middleware.SaleSink = (*SalesStoreSink)(nil)
