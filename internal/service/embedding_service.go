package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"ecommerce-chatbot/pkg/config"

	arkEmbed "github.com/cloudwego/eino-ext/components/embedding/ark"
	dashscopeEmbed "github.com/cloudwego/eino-ext/components/embedding/dashscope"
	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"
	"go.uber.org/zap"
)

const ProviderHash = "hash"

// NewEmbedder builds the embedder selected by EMBEDDING_PROVIDER.
func NewEmbedder(ctx context.Context, cfg *config.EmbeddingConfig, logger *zap.Logger) (embedding.Embedder, error) {
	var dims *int
	if cfg.Dimensions > 0 {
		d := cfg.Dimensions
		dims = &d
	}

	var (
		em  embedding.Embedder
		err error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai embedding missing apiKey")
		}
		em, err = openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			Dimensions: dims,
		})
	case config.ProviderArk:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("ark embedding missing apiKey")
		}
		em, err = arkEmbed.NewEmbedder(ctx, &arkEmbed.EmbeddingConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "dashscope":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("dashscope embedding missing apiKey")
		}
		em, err = dashscopeEmbed.NewEmbedder(ctx, &dashscopeEmbed.EmbeddingConfig{
			Model:      cfg.Model,
			APIKey:     cfg.APIKey,
			Dimensions: dims,
		})
	case ProviderHash:
		dim := cfg.Dimensions
		if dim <= 0 {
			dim = 1024
		}
		em = NewHashEmbedder(dim)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s embedder: %w", cfg.Provider, err)
	}

	logger.Info("Embedder initialized",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
	)
	return em, nil
}

// HashEmbedder is a bag-of-words embedder that needs no remote model.
// Texts sharing words land close together, which is enough for local runs.
type HashEmbedder struct {
	Dim int
}

func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{Dim: dim}
}

func (h *HashEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	result := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, h.Dim)
		for _, word := range tokenizeWords(text) {
			hasher := fnv.New32a()
			_, _ = hasher.Write([]byte(word))
			vec[hasher.Sum32()%uint32(h.Dim)]++
		}
		normalize(vec)
		result[i] = vec
	}
	return result, nil
}

var _ embedding.Embedder = (*HashEmbedder)(nil)

func tokenizeWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalize(vec []float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

// embedOne embeds a single text and returns it as float32 for storage.
func embedOne(ctx context.Context, em embedding.Embedder, text string) ([]float32, error) {
	vectors, err := em.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 text", len(vectors))
	}
	return toFloat32(vectors[0]), nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
