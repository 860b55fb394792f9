package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"ecommerce-chatbot/internal/models"
	"ecommerce-chatbot/internal/repository"
	"ecommerce-chatbot/pkg/config"

	"github.com/cloudwego/eino/components/embedding"
	"go.uber.org/zap"
)

// VectorStore persists embedded documents grouped into named collections.
type VectorStore interface {
	GetCollection(ctx context.Context, name string) (*models.Collection, error)
	CreateCollection(ctx context.Context, collection models.Collection, docs []models.VectorDocument) (bool, error)
	Query(ctx context.Context, collection string, embedding []float32, k int) ([]models.VectorMatch, error)
}

type IngestStatus string

const (
	IngestCreated IngestStatus = "created"
	IngestSkipped IngestStatus = "skipped"
)

type IngestResult struct {
	Status    IngestStatus
	Documents int
}

type FAQService struct {
	store    VectorStore
	embedder embedding.Embedder
	llm      LLM
	config   *config.FAQConfig
	logger   *zap.Logger
}

func NewFAQService(store VectorStore, embedder embedding.Embedder, llm LLM, cfg *config.FAQConfig, logger *zap.Logger) *FAQService {
	return &FAQService{
		store:    store,
		embedder: embedder,
		llm:      llm,
		config:   cfg,
		logger:   logger,
	}
}

// Ingest loads the FAQ CSV into the vector store unless the collection already exists.
// Whether it exists is always asked of the store, never remembered here.
func (s *FAQService) Ingest(ctx context.Context, path string) (*IngestResult, error) {
	_, err := s.store.GetCollection(ctx, s.config.Collection)
	if err == nil {
		s.logger.Info("FAQ collection already exists", zap.String("collection", s.config.Collection))
		return &IngestResult{Status: IngestSkipped}, nil
	}
	if !errors.Is(err, repository.ErrCollectionNotFound) {
		return nil, fmt.Errorf("failed to check FAQ collection: %w", err)
	}

	entries, err := LoadFAQFile(path)
	if err != nil {
		return nil, err
	}

	questions := make([]string, len(entries))
	for i, e := range entries {
		questions[i] = e.Question
	}

	vectors, err := s.embedder.EmbedStrings(ctx, questions)
	if err != nil {
		return nil, fmt.Errorf("failed to embed FAQ questions: %w", err)
	}
	if len(vectors) != len(entries) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d questions", len(vectors), len(entries))
	}

	docs := make([]models.VectorDocument, len(entries))
	for i, e := range entries {
		docs[i] = models.VectorDocument{
			ID:        e.ID,
			Document:  e.Question,
			Metadata:  map[string]any{"answer": e.Answer},
			Embedding: toFloat32(vectors[i]),
		}
	}

	dimension := 0
	if len(vectors) > 0 {
		dimension = len(vectors[0])
	}

	created, err := s.store.CreateCollection(ctx, models.Collection{Name: s.config.Collection, Dimension: dimension}, docs)
	if err != nil {
		return nil, fmt.Errorf("failed to store FAQ collection: %w", err)
	}
	if !created {
		s.logger.Info("FAQ collection created concurrently, skipping", zap.String("collection", s.config.Collection))
		return &IngestResult{Status: IngestSkipped}, nil
	}

	s.logger.Info("FAQ data ingested",
		zap.String("collection", s.config.Collection),
		zap.Int("documents", len(docs)),
	)
	return &IngestResult{Status: IngestCreated, Documents: len(docs)}, nil
}

// Retrieve returns the FAQ entries nearest to the query, closest first.
func (s *FAQService) Retrieve(ctx context.Context, query string) ([]models.FAQEntry, error) {
	vector, err := embedOne(ctx, s.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := s.store.Query(ctx, s.config.Collection, vector, s.config.TopK)
	if err != nil {
		return nil, fmt.Errorf("failed to search FAQ collection: %w", err)
	}

	entries := make([]models.FAQEntry, 0, len(matches))
	for _, m := range matches {
		answer, _ := m.Metadata["answer"].(string)
		entries = append(entries, models.FAQEntry{ID: m.ID, Question: m.Document, Answer: answer})
	}
	return entries, nil
}

// Answer replies from the retrieved FAQ answers only.
func (s *FAQService) Answer(ctx context.Context, query string) (string, error) {
	entries, err := s.Retrieve(ctx, query)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Answer)
	}
	faqContext := b.String()

	if strings.TrimSpace(faqContext) == "" {
		s.logger.Info("No FAQ context found", zap.String("query", query))
		return msgFAQNoContext, nil
	}

	s.logger.Debug("FAQ context retrieved", zap.Int("entries", len(entries)), zap.Int("context_length", len(faqContext)))

	answer, err := s.llm.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: models.RoleUser, Content: faqPrompt(query, faqContext)},
		},
		Temperature: 0.2,
	})
	switch {
	case errors.Is(err, ErrServiceUnavailable):
		s.logger.Warn("Returning degraded FAQ answer", zap.Error(err))
		return msgUnavailable, nil
	case errors.Is(err, ErrPayloadTooLarge):
		s.logger.Warn("FAQ prompt too large", zap.Error(err))
		return msgQuestionTooLarge, nil
	case err != nil:
		return "", err
	}

	return answer, nil
}

// LoadFAQFile reads a question,answer CSV. Any problem with the file is ErrDataSource.
func LoadFAQFile(path string) ([]models.FAQEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataSource, err)
	}
	defer f.Close()

	return ReadFAQCSV(f)
}

// ReadFAQCSV parses FAQ rows by header name. Extra columns are ignored.
func ReadFAQCSV(r io.Reader) ([]models.FAQEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read FAQ header: %w", ErrDataSource, err)
	}

	qIdx, aIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))) {
		case "question":
			qIdx = i
		case "answer":
			aIdx = i
		}
	}
	if qIdx < 0 || aIdx < 0 {
		return nil, fmt.Errorf("%w: FAQ file needs question and answer columns", ErrDataSource)
	}

	var entries []models.FAQEntry
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrDataSource, line, err)
		}
		if qIdx >= len(row) || aIdx >= len(row) {
			return nil, fmt.Errorf("%w: line %d: missing columns", ErrDataSource, line)
		}
		entries = append(entries, models.FAQEntry{
			ID:       fmt.Sprintf("id_%d", len(entries)),
			Question: sanitizeUTF8(row[qIdx]),
			Answer:   sanitizeUTF8(row[aIdx]),
		})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: FAQ file has no rows", ErrDataSource)
	}
	return entries, nil
}
