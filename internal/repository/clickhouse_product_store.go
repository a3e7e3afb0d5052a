package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"PricePulse/internal/domain/models"
	pkgch "PricePulse/pkg/clickhouse"
	applogger "PricePulse/pkg/logger"
)

// CHProductStore implements ProductStore backed by ClickHouse. Products live
// in a ReplacingMergeTree versioned by updated_at; price updates insert a
// new row version and reads use FINAL to collapse to the latest.
type CHProductStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHProductStore(ch *pkgch.Client, table string) *CHProductStore {
	return &CHProductStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHProductStore) SetLogger(l *applogger.Logger) { s.l = l }

const productCols = "product_id, base_price, cost_price, inventory, current_price, sales_last_30_days, average_rating, category"

func (s *CHProductStore) List(ctx context.Context, limit int) ([]models.Product, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT %s
        FROM %s FINAL
        ORDER BY product_id ASC
    `, productCols, s.table)
	args := []interface{}{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse list_products query error",
				applogger.String("table", s.table),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]models.Product, 0, 128)
	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse list_products ok",
			applogger.String("table", s.table),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHProductStore) Get(ctx context.Context, productID string) (*models.Product, error) {
	q := fmt.Sprintf(`
        SELECT %s
        FROM %s FINAL
        WHERE product_id = ?
        LIMIT 1
    `, productCols, s.table)
	row := s.db.QueryRowContext(ctx, q, productID)

	var p models.Product
	if err := scanProduct(row, &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %s not found", productID)
		}
		if s.l != nil {
			s.l.Error("clickhouse get_product error",
				applogger.String("product_id", productID),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// UpdatePrice inserts a fresh row version carrying the new current price.
func (s *CHProductStore) UpdatePrice(ctx context.Context, productID string, price float64) error {
	p, err := s.Get(ctx, productID)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (%s, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		s.table, productCols,
	)
	_, err = s.db.ExecContext(ctx, q,
		p.ProductID, p.BasePrice, p.CostPrice, p.Inventory,
		price, p.SalesLast30Days, p.AverageRating, p.Category,
		time.Now(),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse update_price error",
				applogger.String("product_id", productID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("update price: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(r rowScanner, p *models.Product) error {
	return r.Scan(
		&p.ProductID, &p.BasePrice, &p.CostPrice, &p.Inventory,
		&p.CurrentPrice, &p.SalesLast30Days, &p.AverageRating, &p.Category,
	)
}
