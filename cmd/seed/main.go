package main

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"ecommerce-chatbot/internal/repository"
	"ecommerce-chatbot/internal/service"
	"ecommerce-chatbot/pkg/config"
	"ecommerce-chatbot/pkg/logger"
	"ecommerce-chatbot/pkg/postgres"
	"ecommerce-chatbot/pkg/sqlite"

	"go.uber.org/zap"
)

func main() {
	reset := flag.Bool("reset", false, "reload the product catalog even if it is populated")
	resetFAQ := flag.Bool("reset-faq", false, "drop the FAQ collection before ingesting")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	if err := run(context.Background(), cfg, *reset, *resetFAQ, appLogger); err != nil {
		if errors.Is(err, service.ErrDataSource) {
			appLogger.Error("Seed data could not be read", zap.Error(err))
		} else {
			appLogger.Error("Seeding failed", zap.Error(err))
		}
		logger.Sync()
		os.Exit(1)
	}

	appLogger.Info("Database seeding completed successfully!")
}

func run(ctx context.Context, cfg *config.Config, reset, resetFAQ bool, appLogger *zap.Logger) error {
	// FAQ collection
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		return err
	}
	defer db.Close()

	vectorRepo := repository.NewVectorRepository(db, appLogger)
	if err := vectorRepo.EnsureSchema(ctx); err != nil {
		return err
	}
	if resetFAQ {
		if err := vectorRepo.DeleteCollection(ctx, cfg.FAQ.Collection); err != nil && !errors.Is(err, repository.ErrCollectionNotFound) {
			return err
		}
		appLogger.Info("FAQ collection dropped", zap.String("collection", cfg.FAQ.Collection))
	}

	embedder, err := service.NewEmbedder(ctx, &cfg.Embedding, logger.Named("embedding"))
	if err != nil {
		return err
	}

	// Ingestion only embeds, the chat model is never called
	faqService := service.NewFAQService(vectorRepo, embedder, nil, &cfg.FAQ, logger.Named("faq"))
	result, err := faqService.Ingest(ctx, cfg.FAQ.DataPath)
	if err != nil {
		return err
	}
	appLogger.Info("FAQ ingestion finished",
		zap.String("status", string(result.Status)),
		zap.Int("documents", result.Documents),
	)

	// Product catalog
	catalog, err := sqlite.Open(ctx, cfg.Catalog.Path, false, appLogger)
	if err != nil {
		return err
	}
	defer catalog.Close()

	cacheFile := filepath.Join(filepath.Dir(cfg.Catalog.Path), ".seed_cache.json")
	cache, err := loadCache(cacheFile)
	if err != nil {
		appLogger.Warn("Failed to load cache, catalog changes will not be detected", zap.Error(err))
		cache = &CacheData{ProcessedFiles: make(map[string]ProcessedFile)}
	}

	fileHash, err := calculateFileHash(cfg.Catalog.CSVPath)
	if err != nil {
		return fmt.Errorf("%w: %w", service.ErrDataSource, err)
	}
	if cached, exists := cache.ProcessedFiles[cfg.Catalog.CSVPath]; exists && cached.FileHash != fileHash {
		appLogger.Info("Catalog file changed, reloading",
			zap.String("path", cfg.Catalog.CSVPath),
			zap.String("old_hash", cached.FileHash),
			zap.String("new_hash", fileHash),
		)
		reset = true
	}

	catalogService := service.NewCatalogService(repository.NewProductRepository(catalog, appLogger), logger.Named("catalog"))
	loaded, err := catalogService.Load(ctx, cfg.Catalog.CSVPath, reset)
	if err != nil {
		return err
	}
	appLogger.Info("Catalog load finished", zap.Int("products", loaded))

	cache.ProcessedFiles[cfg.Catalog.CSVPath] = ProcessedFile{
		FilePath:    cfg.Catalog.CSVPath,
		FileHash:    fileHash,
		ProcessedAt: time.Now(),
	}
	if err := saveCache(cacheFile, cache); err != nil {
		appLogger.Warn("Failed to save cache", zap.Error(err))
	}

	return nil
}

// ProcessedFile records the catalog file a load was made from
type ProcessedFile struct {
	FilePath    string    `json:"file_path"`
	FileHash    string    `json:"file_hash"`
	ProcessedAt time.Time `json:"processed_at"`
}

type CacheData struct {
	ProcessedFiles map[string]ProcessedFile `json:"processed_files"` // key: file path
}

func loadCache(cacheFile string) (*CacheData, error) {
	cache := &CacheData{
		ProcessedFiles: make(map[string]ProcessedFile),
	}

	data, err := os.ReadFile(cacheFile)
	if errors.Is(err, os.ErrNotExist) {
		return cache, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	if len(data) == 0 {
		return cache, nil
	}

	if err := json.Unmarshal(data, cache); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	if cache.ProcessedFiles == nil {
		cache.ProcessedFiles = make(map[string]ProcessedFile)
	}
	return cache, nil
}

func saveCache(cacheFile string, cache *CacheData) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := os.WriteFile(cacheFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to calculate hash: %w", err)
	}

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
