package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ecommerce-chatbot/internal/models"

	"github.com/Masterminds/squirrel"
	"go.uber.org/zap"
)

const productSchema = `CREATE TABLE IF NOT EXISTS product (
	product_link  TEXT,
	title         TEXT,
	brand         TEXT,
	price         INTEGER,
	discount      REAL,
	avg_rating    REAL,
	total_ratings INTEGER
)`

type ProductRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewProductRepository(db *sql.DB, logger *zap.Logger) *ProductRepository {
	return &ProductRepository{
		db:     db,
		logger: logger,
	}
}

// RunSelect executes a generated statement and returns its rows in column order.
// Callers are expected to have checked the statement is a SELECT.
func (r *ProductRepository) RunSelect(ctx context.Context, query string) ([]models.Record, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var records []models.Record
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		record := make(models.Record, len(columns))
		for i, col := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			record[i] = models.Field{Name: col, Value: v}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	r.logger.Debug("Catalog query executed", zap.Int("rows", len(records)))
	return records, nil
}

// EnsureSchema creates the product table. Needs a writable handle.
func (r *ProductRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, productSchema); err != nil {
		return fmt.Errorf("failed to create product table: %w", err)
	}
	return nil
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM product").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// Truncate removes every product. Needs a writable handle.
func (r *ProductRepository) Truncate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM product"); err != nil {
		return fmt.Errorf("failed to truncate products: %w", err)
	}
	return nil
}

// InsertBatch loads products in a single transaction. Needs a writable handle.
func (r *ProductRepository) InsertBatch(ctx context.Context, products []models.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for i, p := range products {
		query := squirrel.Insert("product").
			Columns("product_link", "title", "brand", "price", "discount", "avg_rating", "total_ratings").
			Values(p.ProductLink, p.Title, p.Brand, p.Price, p.Discount, p.AvgRating, p.TotalRatings).
			RunWith(tx)

		if _, err := query.ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to insert product %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit products: %w", err)
	}

	r.logger.Info("Products loaded", zap.Int("count", len(products)))
	return nil
}
