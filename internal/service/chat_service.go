package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ecommerce-chatbot/internal/models"

	"go.uber.org/zap"
)

type Classifier interface {
	Classify(ctx context.Context, query string) (models.RouteName, error)
}

type Answerer interface {
	Answer(ctx context.Context, query string) (string, error)
}

type Reply struct {
	Route  models.RouteName
	Answer string
}

// ChatService routes a query to the FAQ or product pipeline.
type ChatService struct {
	router Classifier
	faq    Answerer
	sql    Answerer
	logger *zap.Logger
}

func NewChatService(router Classifier, faq, sql Answerer, logger *zap.Logger) *ChatService {
	return &ChatService{
		router: router,
		faq:    faq,
		sql:    sql,
		logger: logger,
	}
}

// Ask answers one query. Only unexpected failures are returned as errors.
func (s *ChatService) Ask(ctx context.Context, query string) (*Reply, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	route, err := s.router.Classify(ctx, query)
	if err != nil {
		if errors.Is(err, ErrClassification) {
			s.logger.Error("Failed to classify query", zap.Error(err))
			return &Reply{Route: models.RouteNone, Answer: msgClassificationErr}, nil
		}
		return nil, err
	}

	s.logger.Info("Query routed", zap.String("route", string(route)))

	var answer string
	switch route {
	case models.RouteFAQ:
		answer, err = s.faq.Answer(ctx, query)
	case models.RouteSQL:
		answer, err = s.sql.Answer(ctx, query)
	default:
		return &Reply{Route: models.RouteNone, Answer: msgNoRoute}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to answer %s query: %w", route, err)
	}

	return &Reply{Route: route, Answer: answer}, nil
}
