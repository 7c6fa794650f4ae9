package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse is returned when a completion carries no choices.
var ErrEmptyResponse = errors.New("llm returned no choices")

// LLMProvider is any OpenAI-compatible chat completion backend
type LLMProvider interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	GetProviderName() string
	GetModel() string
}

// ProviderType selects the completion backend.
type ProviderType string

const (
	ProviderOpenAI   ProviderType = "openai"
	ProviderGroq     ProviderType = "groq"
	ProviderDeepSeek ProviderType = "deepseek"
)

const (
	DefaultTemperature float32 = 0.7
	DefaultMaxTokens           = 1000
	DefaultTimeout             = 60 * time.Second
)

// ProviderConfig carries credentials and model settings for NewProvider.
type ProviderConfig struct {
	Type ProviderType

	// API Keys
	OpenAIKey   string
	GroqKey     string
	DeepSeekKey string

	// BaseURL overrides the provider endpoint
	BaseURL string

	// Model configs
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultModel returns the model used when LLM_MODEL is not set.
func DefaultModel(t ProviderType) string {
	switch t {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderGroq:
		return "llama-3.3-70b-versatile"
	default:
		return "deepseek-chat"
	}
}

// NewProvider fills defaults and builds the provider named by cfg.Type.
func NewProvider(cfg *ProviderConfig) (LLMProvider, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Type)
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	switch cfg.Type {
	case ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required")
		}
		return NewOpenAIProvider(cfg), nil

	case ProviderGroq:
		if cfg.GroqKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY is required")
		}
		return NewGroqProvider(cfg), nil

	case ProviderDeepSeek:
		if cfg.DeepSeekKey == "" {
			return nil, fmt.Errorf("DEEPSEEK_API_KEY is required")
		}
		return NewDeepSeekProvider(cfg), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider type: %s", cfg.Type)
	}
}

// chatClient is shared by every OpenAI-compatible provider.
type chatClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func newChatClient(apiKey, baseURL string, cfg *ProviderConfig) chatClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return chatClient{
		client:      openai.NewClientWithConfig(config),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (c chatClient) GetModel() string {
	return c.model
}

func (c chatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	if req.Temperature == 0 {
		req.Temperature = c.temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.maxTokens
	}
	return c.client.CreateChatCompletion(ctx, req)
}
