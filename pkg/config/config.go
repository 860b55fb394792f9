package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Catalog   CatalogConfig
	LLM       LLMConfig
	GigaChat  GigaChatConfig
	Embedding EmbeddingConfig
	Router    RouterConfig
	FAQ       FAQConfig
	SQL       SQLConfig
	Retry     RetryConfig
	Logger    LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig points at the PostgreSQL instance holding the pgvector collections.
// URL takes precedence over the individual fields when set.
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

type CatalogConfig struct {
	Path    string
	CSVPath string
}

type LLMConfig struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Region      string
	Temperature float32
	Timeout     time.Duration
	RateLimit   float64
	RateBurst   int
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	Model              string
	InsecureSkipVerify bool
}

type EmbeddingConfig struct {
	Provider   string
	APIKey     string
	Model      string
	BaseURL    string
	Dimensions int
	Timeout    time.Duration
}

type RouterConfig struct {
	Threshold float64
}

type FAQConfig struct {
	DataPath   string
	Collection string
	TopK       int
}

type SQLConfig struct {
	MaxRecords      int
	FallbackRecords int
	TokenCeiling    int
	RenderMode      string
}

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	StatusCodes []int
}

const (
	ProviderOpenAI   = "openai"
	ProviderArk      = "ark"
	ProviderGigaChat = "gigachat"

	RenderModeLLM    = "llm"
	RenderModeDirect = "direct"
)

func Load() (*Config, error) {
	// .env is optional, process environment wins for anything already set
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "120"))
	maxConns, _ := strconv.Atoi(getEnv("DB_MAX_CONNS", "10"))
	llmTimeout, _ := strconv.Atoi(getEnv("LLM_TIMEOUT", "60"))
	rateBurst, _ := strconv.Atoi(getEnv("LLM_RATE_BURST", "5"))
	embedDims, _ := strconv.Atoi(getEnv("EMBEDDING_DIMENSIONS", "0"))
	embedTimeout, _ := strconv.Atoi(getEnv("EMBEDDING_TIMEOUT", "30"))
	topK, _ := strconv.Atoi(getEnv("FAQ_TOP_K", "2"))
	maxRecords, _ := strconv.Atoi(getEnv("SQL_MAX_RECORDS", "10"))
	fallbackRecords, _ := strconv.Atoi(getEnv("SQL_FALLBACK_RECORDS", "5"))
	tokenCeiling, _ := strconv.Atoi(getEnv("SQL_TOKEN_CEILING", "90000"))
	maxAttempts, _ := strconv.Atoi(getEnv("LLM_RETRY_MAX_ATTEMPTS", "3"))
	baseDelay, _ := time.ParseDuration(getEnv("LLM_RETRY_BASE_DELAY", "2s"))
	maxDelay, _ := time.ParseDuration(getEnv("LLM_RETRY_MAX_DELAY", "30s"))
	multiplier, _ := strconv.ParseFloat(getEnv("LLM_RETRY_MULTIPLIER", "2"), 64)
	temperature, _ := strconv.ParseFloat(getEnv("LLM_TEMPERATURE", "0.2"), 32)
	rateLimit, _ := strconv.ParseFloat(getEnv("LLM_RATE_LIMIT", "2"), 64)
	threshold, _ := strconv.ParseFloat(getEnv("ROUTER_THRESHOLD", "0.5"), 64)
	insecureSkipVerify := getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "true") == "true"

	statusCodes, err := parseStatusCodes(getEnv("LLM_RETRY_STATUS_CODES", "502,503,504"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "chatbot"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(maxConns),
		},
		Catalog: CatalogConfig{
			Path:    getEnv("CATALOG_DB_PATH", "data/db.sqlite"),
			CSVPath: getEnv("CATALOG_CSV_PATH", "data/products.csv"),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
			APIKey:      getEnv("LLM_API_KEY", os.Getenv("GROQ_API_KEY")),
			Model:       getEnv("LLM_MODEL", os.Getenv("GROQ_MODEL")),
			BaseURL:     getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
			Region:      getEnv("LLM_REGION", ""),
			Temperature: float32(temperature),
			Timeout:     time.Duration(llmTimeout) * time.Second,
			RateLimit:   rateLimit,
			RateBurst:   rateBurst,
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			Model:              getEnv("GIGACHAT_MODEL", "GigaChat"),
			InsecureSkipVerify: insecureSkipVerify,
		},
		Embedding: EmbeddingConfig{
			Provider:   strings.ToLower(getEnv("EMBEDDING_PROVIDER", ProviderOpenAI)),
			APIKey:     getEnv("EMBEDDING_API_KEY", os.Getenv("OPENAI_API_KEY")),
			Model:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			BaseURL:    getEnv("EMBEDDING_BASE_URL", ""),
			Dimensions: embedDims,
			Timeout:    time.Duration(embedTimeout) * time.Second,
		},
		Router: RouterConfig{
			Threshold: threshold,
		},
		FAQ: FAQConfig{
			DataPath:   getEnv("FAQ_DATA_PATH", "data/faq_data.csv"),
			Collection: getEnv("FAQ_COLLECTION", "faqs"),
			TopK:       topK,
		},
		SQL: SQLConfig{
			MaxRecords:      maxRecords,
			FallbackRecords: fallbackRecords,
			TokenCeiling:    tokenCeiling,
			RenderMode:      strings.ToLower(getEnv("SQL_RENDER_MODE", RenderModeLLM)),
		},
		Retry: RetryConfig{
			MaxAttempts: maxAttempts,
			BaseDelay:   baseDelay,
			MaxDelay:    maxDelay,
			Multiplier:  multiplier,
			StatusCodes: statusCodes,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

// Validate checks that a model and its credentials are present before any pipeline is built.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderArk:
		if c.LLM.Model == "" {
			errs = append(errs, errors.New("LLM_MODEL (or GROQ_MODEL) is required"))
		}
		if c.LLM.APIKey == "" {
			errs = append(errs, errors.New("LLM_API_KEY (or GROQ_API_KEY) is required"))
		}
	case ProviderGigaChat:
		if c.GigaChat.Model == "" {
			errs = append(errs, errors.New("GIGACHAT_MODEL is required"))
		}
		if c.GigaChat.APIKey == "" {
			errs = append(errs, errors.New("GIGACHAT_API_KEY is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER: %s", c.LLM.Provider))
	}

	if c.Embedding.Model == "" {
		errs = append(errs, errors.New("EMBEDDING_MODEL is required"))
	}
	if c.FAQ.TopK <= 0 {
		errs = append(errs, errors.New("FAQ_TOP_K must be positive"))
	}
	if c.SQL.MaxRecords <= 0 || c.SQL.FallbackRecords <= 0 {
		errs = append(errs, errors.New("SQL_MAX_RECORDS and SQL_FALLBACK_RECORDS must be positive"))
	}
	if c.SQL.RenderMode != RenderModeLLM && c.SQL.RenderMode != RenderModeDirect {
		errs = append(errs, fmt.Errorf("unknown SQL_RENDER_MODE: %s", c.SQL.RenderMode))
	}
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("LLM_RETRY_MAX_ATTEMPTS must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// DSN returns the connection string for the vector database.
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

func parseStatusCodes(raw string) ([]int, error) {
	var codes []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid LLM_RETRY_STATUS_CODES entry %q: %w", part, err)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
