package service

import (
	"context"
	"fmt"
	"strings"

	"ecommerce-chatbot/internal/models"
	"ecommerce-chatbot/pkg/config"

	"github.com/Role1776/gigago"
	arkModel "github.com/cloudwego/eino-ext/components/model/ark"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// NewChatBackend builds the chat backend selected by LLM_PROVIDER.
// "openai" covers any OpenAI compatible endpoint, Groq included.
func NewChatBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ChatBackend, error) {
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		cm, err := openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
			Timeout: cfg.LLM.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create openai chat model: %w", err)
		}
		logger.Info("Using OpenAI compatible chat model",
			zap.String("model", cfg.LLM.Model),
			zap.String("base_url", cfg.LLM.BaseURL),
		)
		return &einoBackend{model: cm}, nil

	case config.ProviderArk:
		timeout := cfg.LLM.Timeout
		// retries are handled by LLMService
		retryTimes := 0
		cm, err := arkModel.NewChatModel(ctx, &arkModel.ChatModelConfig{
			APIKey:     cfg.LLM.APIKey,
			Model:      cfg.LLM.Model,
			BaseURL:    cfg.LLM.BaseURL,
			Region:     cfg.LLM.Region,
			Timeout:    &timeout,
			RetryTimes: &retryTimes,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create ark chat model: %w", err)
		}
		logger.Info("Using Ark chat model", zap.String("model", cfg.LLM.Model))
		return &einoBackend{model: cm}, nil

	case config.ProviderGigaChat:
		return newGigaChatBackend(ctx, &cfg.GigaChat, logger)

	default:
		return nil, fmt.Errorf("unknown chat model provider: %s", cfg.LLM.Provider)
	}
}

type einoBackend struct {
	model model.BaseChatModel
}

func (b *einoBackend) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]*schema.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, &schema.Message{Role: toSchemaRole(m.Role), Content: m.Content})
	}

	var opts []model.Option
	opts = append(opts, model.WithTemperature(req.Temperature))
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}

	resp, err := b.model.Generate(ctx, messages, opts...)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (b *einoBackend) Close() error { return nil }

func toSchemaRole(role models.Role) schema.RoleType {
	switch role {
	case models.RoleSystem:
		return schema.System
	case models.RoleAssistant:
		return schema.Assistant
	default:
		return schema.User
	}
}

// GigaChat takes the system prompt as a model attribute, so a model is built per call.
type gigaChatBackend struct {
	client    *gigago.Client
	modelName string
}

func newGigaChatBackend(ctx context.Context, cfg *config.GigaChatConfig, logger *zap.Logger) (*gigaChatBackend, error) {
	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	logger.Info("Using GigaChat model", zap.String("model", cfg.Model))
	return &gigaChatBackend{client: client, modelName: cfg.Model}, nil
}

func (b *gigaChatBackend) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	m := b.client.GenerativeModel(b.modelName)
	// every pipeline prompt runs at 0.2
	m.Temperature = 0.2

	var system []string
	var messages []gigago.Message
	for _, msg := range req.Messages {
		if msg.Role == models.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		messages = append(messages, gigago.Message{Role: gigago.RoleUser, Content: msg.Content})
	}
	m.SystemInstruction = strings.Join(system, "\n\n")

	resp, err := m.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from GigaChat")
	}
	return resp.Choices[0].Message.Content, nil
}

func (b *gigaChatBackend) Close() error {
	if b.client != nil {
		b.client.Close()
	}
	return nil
}
