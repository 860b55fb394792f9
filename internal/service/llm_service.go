package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecommerce-chatbot/internal/models"
	"ecommerce-chatbot/pkg/config"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Message struct {
	Role    models.Role
	Content string
}

type CompletionRequest struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// ChatBackend is a single provider's chat completion endpoint.
type ChatBackend interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Close() error
}

// LLM is what the pipelines depend on.
type LLM interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type LLMService struct {
	backend    ChatBackend
	limiter    *rate.Limiter
	retry      config.RetryConfig
	retryCodes map[int]struct{}
	logger     *zap.Logger
}

func NewLLMService(backend ChatBackend, retryCfg config.RetryConfig, limiter *rate.Limiter, logger *zap.Logger) *LLMService {
	codes := make(map[int]struct{}, len(retryCfg.StatusCodes))
	for _, c := range retryCfg.StatusCodes {
		codes[c] = struct{}{}
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return &LLMService{
		backend:    backend,
		limiter:    limiter,
		retry:      retryCfg,
		retryCodes: codes,
		logger:     logger,
	}
}

// Complete sends one completion. Unavailable responses are retried with exponential
// backoff; anything else, including an oversized request, fails on the first attempt.
func (s *LLMService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	attempt := 0
	operation := func() (string, error) {
		attempt++
		if err := s.limiter.Wait(ctx); err != nil {
			return "", backoff.Permanent(err)
		}

		text, err := s.backend.Complete(ctx, req)
		if err == nil {
			return text, nil
		}

		err = s.classify(err)
		if errors.Is(err, ErrServiceUnavailable) {
			return "", err
		}
		return "", backoff.Permanent(err)
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = s.retry.BaseDelay
	expBackoff.Multiplier = s.retry.Multiplier
	expBackoff.MaxInterval = s.retry.MaxDelay
	expBackoff.RandomizationFactor = 0.2

	text, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(uint(max(s.retry.MaxAttempts, 1))),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Warn("LLM call failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", next),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		if errors.Is(err, ErrServiceUnavailable) {
			s.logger.Error("LLM unavailable after retries", zap.Int("attempts", attempt), zap.Error(err))
		}
		return "", err
	}

	return text, nil
}

// classify maps provider failures onto the service taxonomy by HTTP status.
func (s *LLMService) classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	code := statusCode(err)
	if code == 413 {
		return fmt.Errorf("%w: %w", ErrPayloadTooLarge, err)
	}
	if _, ok := s.retryCodes[code]; ok {
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	return fmt.Errorf("LLM completion failed: %w", err)
}

func (s *LLMService) Close() error {
	if s.backend != nil {
		return s.backend.Close()
	}
	return nil
}
