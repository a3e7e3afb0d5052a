package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PricePulse/internal/domain/models"
	pkgch "PricePulse/pkg/clickhouse"
	applogger "PricePulse/pkg/logger"
)

// CHSalesStore implements SalesStore backed by ClickHouse. Observations are
// append-only, ordered by (product_id, date).
type CHSalesStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHSalesStore(ch *pkgch.Client, table string) *CHSalesStore {
	return &CHSalesStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHSalesStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHSalesStore) History(ctx context.Context, productID string) ([]models.SaleRecord, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT product_id, date, units_sold, price
        FROM %s
        WHERE product_id = ?
        ORDER BY date ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, productID)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse sales_history query error",
				applogger.String("product_id", productID),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("sales history: %w", err)
	}
	defer rows.Close()

	out, err := scanSales(rows)
	if err != nil {
		return nil, err
	}
	if s.l != nil {
		s.l.Debug("clickhouse sales_history ok",
			applogger.String("product_id", productID),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHSalesStore) HistoryAll(ctx context.Context) (map[string][]models.SaleRecord, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT product_id, date, units_sold, price
        FROM %s
        ORDER BY product_id ASC, date ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse sales_history_all query error", applogger.Error(err))
		}
		return nil, fmt.Errorf("sales history all: %w", err)
	}
	defer rows.Close()

	recs, err := scanSales(rows)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]models.SaleRecord)
	for _, r := range recs {
		grouped[r.ProductID] = append(grouped[r.ProductID], r)
	}
	if s.l != nil {
		s.l.Info("clickhouse sales_history_all ok",
			applogger.Int("rows", len(recs)),
			applogger.Int("products", len(grouped)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return grouped, nil
}

func (s *CHSalesStore) Append(ctx context.Context, rec *models.SaleRecord) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (product_id, date, units_sold, price) VALUES (?, ?, ?, ?)",
		s.table,
	)
	_, err := s.db.ExecContext(ctx, q, rec.ProductID, rec.Date, rec.UnitsSold, rec.Price)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse sale_append error",
				applogger.String("product_id", rec.ProductID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("append sale: %w", err)
	}
	return nil
}

func scanSales(rows *sql.Rows) ([]models.SaleRecord, error) {
	out := make([]models.SaleRecord, 0, 1024)
	for rows.Next() {
		var r models.SaleRecord
		if err := rows.Scan(&r.ProductID, &r.Date, &r.UnitsSold, &r.Price); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
