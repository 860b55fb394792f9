package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"ecommerce-chatbot/internal/models"
	"ecommerce-chatbot/pkg/config"

	"go.uber.org/zap"
)

// ProductStore runs generated read queries against the catalog.
type ProductStore interface {
	RunSelect(ctx context.Context, query string) ([]models.Record, error)
}

var sqlBlockPattern = regexp.MustCompile(`(?s)<SQL>(.*?)</SQL>`)

var comprehensionFields = []string{"title", "price", "discount", "avg_rating", "product_link"}

type SQLService struct {
	store  ProductStore
	llm    LLM
	tokens TokenCounter
	config *config.SQLConfig
	logger *zap.Logger
}

func NewSQLService(store ProductStore, llm LLM, tokens TokenCounter, cfg *config.SQLConfig, logger *zap.Logger) *SQLService {
	return &SQLService{
		store:  store,
		llm:    llm,
		tokens: tokens,
		config: cfg,
		logger: logger,
	}
}

// Answer turns a product question into SQL, runs it and phrases the rows.
// Every expected failure comes back as user-facing text with a nil error.
func (s *SQLService) Answer(ctx context.Context, question string) (string, error) {
	query, err := s.GenerateSQL(ctx, question)
	if err != nil {
		if msg, ok := s.userMessage(err, msgQuestionTooLarge); ok {
			return msg, nil
		}
		return "", err
	}

	records, err := s.Execute(ctx, query)
	if err != nil {
		if msg, ok := s.userMessage(err, msgResultTooLarge); ok {
			return msg, nil
		}
		return "", err
	}

	if len(records) == 0 {
		return msgNoProducts, nil
	}

	if s.config.RenderMode == config.RenderModeDirect {
		return RenderRecords(truncate(records, s.config.MaxRecords)), nil
	}

	answer, err := s.Comprehend(ctx, question, records)
	if err != nil {
		if msg, ok := s.userMessage(err, msgResultTooLarge); ok {
			return msg, nil
		}
		return "", err
	}
	return answer, nil
}

func (s *SQLService) userMessage(err error, tooLarge string) (string, bool) {
	switch {
	case errors.Is(err, ErrGeneration):
		s.logger.Warn("No SQL generated", zap.Error(err))
		return msgNoSQL, true
	case errors.Is(err, ErrExecution):
		s.logger.Warn("SQL execution failed", zap.Error(err))
		return msgSQLExecution, true
	case errors.Is(err, ErrPayloadTooLarge):
		s.logger.Warn("LLM request too large", zap.Error(err))
		return tooLarge, true
	case errors.Is(err, ErrServiceUnavailable):
		s.logger.Warn("Returning degraded SQL answer", zap.Error(err))
		return msgUnavailable, true
	}
	return "", false
}

// GenerateSQL asks the model for a query and extracts it from the reply.
func (s *SQLService) GenerateSQL(ctx context.Context, question string) (string, error) {
	reply, err := s.llm.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: models.RoleSystem, Content: sqlPrompt},
			{Role: models.RoleUser, Content: question},
		},
		Temperature: 0.2,
		MaxTokens:   1024,
	})
	if err != nil {
		return "", err
	}

	query, err := ExtractSQL(reply)
	if err != nil {
		return "", err
	}

	s.logger.Info("SQL generated", zap.String("sql", query))
	return query, nil
}

// ExtractSQL accepts exactly one non-empty <SQL></SQL> block.
func ExtractSQL(reply string) (string, error) {
	matches := sqlBlockPattern.FindAllStringSubmatch(reply, -1)
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: no <SQL> block in reply", ErrGeneration)
	case 1:
	default:
		return "", fmt.Errorf("%w: %d <SQL> blocks in reply", ErrGeneration, len(matches))
	}

	query := strings.TrimSpace(matches[0][1])
	if query == "" {
		return "", fmt.Errorf("%w: empty <SQL> block", ErrGeneration)
	}
	return query, nil
}

// Execute runs the statement only if it starts with SELECT.
func (s *SQLService) Execute(ctx context.Context, query string) ([]models.Record, error) {
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT") {
		return nil, fmt.Errorf("%w: statement is not a SELECT", ErrExecution)
	}

	records, err := s.store.RunSelect(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecution, err)
	}
	return records, nil
}

// Comprehend phrases the rows, keeping the prompt under the token ceiling.
func (s *SQLService) Comprehend(ctx context.Context, question string, records []models.Record) (string, error) {
	shaped := truncate(records, s.config.MaxRecords)
	for i, r := range shaped {
		shaped[i] = r.Project(comprehensionFields...)
	}

	data, err := json.Marshal(shaped)
	if err != nil {
		return "", fmt.Errorf("failed to serialize records: %w", err)
	}

	tokenCount := s.tokens.Count(string(data) + question + comprehensionPrompt)
	s.logger.Info("Comprehension context",
		zap.Int("characters", len(data)),
		zap.Int("records", len(shaped)),
		zap.Int("tokens", tokenCount),
	)

	if tokenCount > s.config.TokenCeiling {
		s.logger.Warn("Token count exceeds safe limit, truncating records",
			zap.Int("tokens", tokenCount),
			zap.Int("records", s.config.FallbackRecords),
		)
		shaped = truncate(shaped, s.config.FallbackRecords)
		if data, err = json.Marshal(shaped); err != nil {
			return "", fmt.Errorf("failed to serialize records: %w", err)
		}
	}

	return s.llm.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: models.RoleSystem, Content: comprehensionPrompt},
			{Role: models.RoleUser, Content: comprehensionInput(question, string(data))},
		},
		Temperature: 0.2,
		MaxTokens:   512,
	})
}

// RenderRecords formats products one per line without a model call.
func RenderRecords(records []models.Record) string {
	lines := make([]string, 0, len(records))
	for i, r := range records {
		title, _ := r.Get("title")
		price, _ := r.Get("price")
		discount, _ := r.Get("discount")
		rating, _ := r.Get("avg_rating")
		link, _ := r.Get("product_link")

		lines = append(lines, fmt.Sprintf("%d. %s: Rs. %s (%s%% off), Rating: %s %s",
			i+1,
			formatValue(title),
			formatValue(price),
			formatPercent(discount),
			formatValue(rating),
			formatValue(link),
		))
	}
	return strings.Join(lines, "\n")
}

func truncate(records []models.Record, n int) []models.Record {
	if n >= 0 && len(records) > n {
		records = records[:n]
	}
	out := make([]models.Record, len(records))
	copy(out, records)
	return out
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		return fmt.Sprint(x)
	}
}

// formatPercent renders a 0-1 fraction as a percentage without trailing zeros.
func formatPercent(v any) string {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int64:
		f = float64(x)
	case int:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return x
		}
		f = parsed
	default:
		return formatValue(v)
	}
	return strconv.FormatFloat(math.Round(f*10000)/100, 'f', -1, 64)
}
