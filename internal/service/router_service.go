package service

import (
	"context"
	"fmt"

	"ecommerce-chatbot/internal/models"

	"github.com/cloudwego/eino/components/embedding"
	"go.uber.org/zap"
)

type Route struct {
	Name       models.RouteName
	Utterances []string
}

// DefaultRoutes are the labeled example utterances for store FAQs and product search.
func DefaultRoutes() []Route {
	return []Route{
		{
			Name: models.RouteFAQ,
			Utterances: []string{
				"What is the return policy of the products?",
				"Do I get discount with the HDFC credit card?",
				"How can I track my order?",
				"What payment methods are accepted?",
				"How long does it take to process a refund?",
				"Is refund for defective products?",
				"What is your policy on defective products?",
				"Can I return a defective item?",
				"Do you accept cash as a payment option?",
				"What is the return policy of the products",
				"Do I get discount with the HDFC credit card",
				"How can I track my order",
				"What payment methods are accepted",
				"How long does it take to process a refund",
				"Is refund for defective products",
				"What is your policy on defective products",
				"Can I return a defective item",
				"Do you accept cash as a payment option",
			},
		},
		{
			Name: models.RouteSQL,
			Utterances: []string{
				"I want to buy nike shoes that have 50% discount.",
				"Are there any shoes under Rs. 3000?",
				"Do you have formal shoes in size 9?",
				"Are there any Puma shoes on sale?",
				"What is the price of puma running shoes?",
				"Pink Puma shoes in price range 5000 to 1000",
				"Show me Puma shoes between 1000 and 5000",
				"Show me top 3 shoes in descending order of rating",
			},
		},
	}
}

type utteranceVector struct {
	route     models.RouteName
	utterance string
	vector    []float64
}

// RouterService picks the route whose nearest utterance is most similar to the query.
type RouterService struct {
	embedder  embedding.Embedder
	threshold float64
	index     []utteranceVector
	logger    *zap.Logger
}

// NewRouterService embeds every utterance once. The index is read-only afterwards.
func NewRouterService(ctx context.Context, embedder embedding.Embedder, routes []Route, threshold float64, logger *zap.Logger) (*RouterService, error) {
	var texts []string
	var owners []models.RouteName
	for _, r := range routes {
		for _, u := range r.Utterances {
			texts = append(texts, u)
			owners = append(owners, r.Name)
		}
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no utterances configured", ErrClassification)
	}

	vectors, err := embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed utterances: %w", ErrClassification, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for %d utterances", ErrClassification, len(vectors), len(texts))
	}

	index := make([]utteranceVector, len(texts))
	for i := range texts {
		index[i] = utteranceVector{route: owners[i], utterance: texts[i], vector: vectors[i]}
	}

	logger.Info("Router index built",
		zap.Int("routes", len(routes)),
		zap.Int("utterances", len(index)),
		zap.Float64("threshold", threshold),
	)

	return &RouterService{
		embedder:  embedder,
		threshold: threshold,
		index:     index,
		logger:    logger,
	}, nil
}

// Classify returns the winning route, or RouteNone when no utterance is close enough.
func (s *RouterService) Classify(ctx context.Context, query string) (models.RouteName, error) {
	vectors, err := s.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrClassification, err)
	}
	if len(vectors) != 1 {
		return "", fmt.Errorf("%w: embedder returned %d vectors", ErrClassification, len(vectors))
	}

	best := -1
	bestScore := -1.0
	for i, uv := range s.index {
		score := cosineSimilarity(vectors[0], uv.vector)
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 || bestScore < s.threshold {
		s.logger.Debug("No route matched", zap.Float64("score", bestScore))
		return models.RouteNone, nil
	}

	s.logger.Debug("Route matched",
		zap.String("route", string(s.index[best].route)),
		zap.String("utterance", s.index[best].utterance),
		zap.Float64("score", bestScore),
	)
	return s.index[best].route, nil
}
