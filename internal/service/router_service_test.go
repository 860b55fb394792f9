package service

import (
	"context"
	"errors"
	"testing"

	"ecommerce-chatbot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) *RouterService {
	t.Helper()
	router, err := NewRouterService(context.Background(), NewHashEmbedder(4096), DefaultRoutes(), 0.5, zap.NewNop())
	require.NoError(t, err)
	return router
}

func TestRouterClassifiesUtterancesVerbatim(t *testing.T) {
	router := newTestRouter(t)

	for _, route := range DefaultRoutes() {
		for _, u := range route.Utterances {
			got, err := router.Classify(context.Background(), u)
			require.NoError(t, err)
			assert.Equal(t, route.Name, got, u)
		}
	}
}

func TestRouterClassifiesParaphrases(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		query string
		want  models.RouteName
	}{
		{"Do you take cash as a payment option?", models.RouteFAQ},
		{"What is your policy on defective product?", models.RouteFAQ},
		{"Show me top 3 shoes in descending order of rating", models.RouteSQL},
		{"Are there any Nike shoes on sale?", models.RouteSQL},
		{"What's the weather today?", models.RouteNone},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := router.Classify(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouterEmbedderFailure(t *testing.T) {
	embedder := &fakeEmbedder{}
	router, err := NewRouterService(context.Background(), embedder, DefaultRoutes(), 0.5, zap.NewNop())
	require.NoError(t, err)

	embedder.embedFunc = func(_ context.Context, _ []string) ([][]float64, error) {
		return nil, errors.New("encoder offline")
	}

	_, err = router.Classify(context.Background(), "How can I track my order?")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClassification)
}

func TestRouterIndexFailure(t *testing.T) {
	embedder := &fakeEmbedder{
		embedFunc: func(_ context.Context, _ []string) ([][]float64, error) {
			return nil, errors.New("encoder offline")
		},
	}

	_, err := NewRouterService(context.Background(), embedder, DefaultRoutes(), 0.5, zap.NewNop())
	assert.ErrorIs(t, err, ErrClassification)
}

func TestRouterEmbedsUtterancesOnce(t *testing.T) {
	embedder := &fakeEmbedder{}
	router, err := NewRouterService(context.Background(), embedder, DefaultRoutes(), 0.5, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls)

	_, err = router.Classify(context.Background(), "How can I track my order?")
	require.NoError(t, err)
	assert.Equal(t, 2, embedder.calls)
}
