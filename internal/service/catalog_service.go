package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"ecommerce-chatbot/internal/models"

	"go.uber.org/zap"
)

var productColumns = []string{"product_link", "title", "brand", "price", "discount", "avg_rating", "total_ratings"}

// CatalogWriter is the writable side of the product store, used only by the seeder.
type CatalogWriter interface {
	EnsureSchema(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	Truncate(ctx context.Context) error
	InsertBatch(ctx context.Context, products []models.Product) error
}

type CatalogService struct {
	store  CatalogWriter
	logger *zap.Logger
}

func NewCatalogService(store CatalogWriter, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		store:  store,
		logger: logger,
	}
}

// Load fills the product table from a CSV file. A populated table is left alone unless reset is set.
func (s *CatalogService) Load(ctx context.Context, path string, reset bool) (int, error) {
	if err := s.store.EnsureSchema(ctx); err != nil {
		return 0, err
	}

	count, err := s.store.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 && !reset {
		s.logger.Info("Catalog already loaded, skipping", zap.Int("products", count))
		return 0, nil
	}

	products, err := LoadProductFile(path)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		if err := s.store.Truncate(ctx); err != nil {
			return 0, err
		}
		s.logger.Info("Catalog truncated", zap.Int("removed", count))
	}

	if err := s.store.InsertBatch(ctx, products); err != nil {
		return 0, err
	}
	return len(products), nil
}

func LoadProductFile(path string) ([]models.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataSource, err)
	}
	defer f.Close()

	return ReadProductCSV(f)
}

// ReadProductCSV parses a product catalog export. Columns are matched by header name.
func ReadProductCSV(r io.Reader) ([]models.Product, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %w", ErrDataSource, err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range productColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrDataSource, col)
		}
	}

	var products []models.Product
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrDataSource, line, err)
		}

		p, err := parseProduct(row, index)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrDataSource, line, err)
		}
		products = append(products, p)
	}

	return products, nil
}

func parseProduct(row []string, index map[string]int) (models.Product, error) {
	get := func(col string) string {
		return strings.TrimSpace(row[index[col]])
	}

	var p models.Product
	var err error
	p.ProductLink = get("product_link")
	p.Title = get("title")
	p.Brand = get("brand")

	if p.Price, err = parseInt(get("price")); err != nil {
		return p, fmt.Errorf("price: %w", err)
	}
	if p.Discount, err = parseFloat(get("discount")); err != nil {
		return p, fmt.Errorf("discount: %w", err)
	}
	if p.Discount < 0 || p.Discount > 1 {
		return p, fmt.Errorf("discount %v out of range", p.Discount)
	}
	if p.AvgRating, err = parseFloat(get("avg_rating")); err != nil {
		return p, fmt.Errorf("avg_rating: %w", err)
	}
	if p.TotalRatings, err = parseInt(get("total_ratings")); err != nil {
		return p, fmt.Errorf("total_ratings: %w", err)
	}
	return p, nil
}

// Empty numeric cells load as zero; thousands separators are dropped.
func parseInt(s string) (int, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func parseFloat(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
