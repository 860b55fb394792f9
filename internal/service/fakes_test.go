package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ecommerce-chatbot/internal/models"
	"ecommerce-chatbot/internal/repository"

	"github.com/cloudwego/eino/components/embedding"
)

// implements ChatBackend for testing
type fakeBackend struct {
	completeFunc func(ctx context.Context, req CompletionRequest) (string, error)
	calls        int
	closed       bool
}

func (f *fakeBackend) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	f.calls++
	if f.completeFunc != nil {
		return f.completeFunc(ctx, req)
	}
	return "ok", nil
}

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

// implements LLM for testing
type fakeLLM struct {
	completeFunc func(ctx context.Context, req CompletionRequest) (string, error)
	requests     []CompletionRequest
}

func (f *fakeLLM) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.completeFunc != nil {
		return f.completeFunc(ctx, req)
	}
	return "fake answer", nil
}

// implements embedding.Embedder for testing
type fakeEmbedder struct {
	embedFunc func(ctx context.Context, texts []string) ([][]float64, error)
	calls     int
}

func (f *fakeEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	f.calls++
	if f.embedFunc != nil {
		return f.embedFunc(ctx, texts)
	}
	return NewHashEmbedder(256).EmbedStrings(ctx, texts)
}

// in-memory VectorStore with brute force cosine search
type memoryVectorStore struct {
	mu          sync.Mutex
	collections map[string]models.Collection
	docs        map[string][]models.VectorDocument
	createCalls int
}

func newMemoryVectorStore() *memoryVectorStore {
	return &memoryVectorStore{
		collections: make(map[string]models.Collection),
		docs:        make(map[string][]models.VectorDocument),
	}
}

func (m *memoryVectorStore) GetCollection(_ context.Context, name string) (*models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrCollectionNotFound, name)
	}
	return &c, nil
}

func (m *memoryVectorStore) CreateCollection(_ context.Context, c models.Collection, docs []models.VectorDocument) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if _, ok := m.collections[c.Name]; ok {
		return false, nil
	}
	m.collections[c.Name] = c
	m.docs[c.Name] = append([]models.VectorDocument(nil), docs...)
	return true, nil
}

func (m *memoryVectorStore) Query(_ context.Context, name string, vec []float32, k int) ([]models.VectorMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrCollectionNotFound, name)
	}

	query := toFloat64(vec)
	var matches []models.VectorMatch
	for _, d := range m.docs[name] {
		matches = append(matches, models.VectorMatch{
			ID:       d.ID,
			Document: d.Document,
			Metadata: d.Metadata,
			Distance: 1 - cosineSimilarity(query, toFloat64(d.Embedding)),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (m *memoryVectorStore) documentCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs[name])
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// implements ProductStore for testing
type fakeProductStore struct {
	runSelectFunc func(ctx context.Context, query string) ([]models.Record, error)
	queries       []string
}

func (f *fakeProductStore) RunSelect(ctx context.Context, query string) ([]models.Record, error) {
	f.queries = append(f.queries, query)
	if f.runSelectFunc != nil {
		return f.runSelectFunc(ctx, query)
	}
	return nil, nil
}

// implements TokenCounter for testing
type fakeTokenCounter struct {
	countFunc func(text string) int
}

func (f *fakeTokenCounter) Count(text string) int {
	if f.countFunc != nil {
		return f.countFunc(text)
	}
	return len(text) / 4
}

// implements Classifier and Answerer for testing
type fakeClassifier struct {
	route models.RouteName
	err   error
}

func (f *fakeClassifier) Classify(_ context.Context, _ string) (models.RouteName, error) {
	return f.route, f.err
}

type fakeAnswerer struct {
	answerFunc func(ctx context.Context, query string) (string, error)
	calls      int
}

func (f *fakeAnswerer) Answer(ctx context.Context, query string) (string, error) {
	f.calls++
	if f.answerFunc != nil {
		return f.answerFunc(ctx, query)
	}
	return "answer to " + query, nil
}

func productRecord(title string, price int64, discount, rating float64, link string) models.Record {
	return models.Record{
		{Name: "product_link", Value: link},
		{Name: "title", Value: title},
		{Name: "brand", Value: "Campus"},
		{Name: "price", Value: price},
		{Name: "discount", Value: discount},
		{Name: "avg_rating", Value: rating},
		{Name: "total_ratings", Value: int64(100)},
	}
}
