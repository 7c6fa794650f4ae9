package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// Service wraps an LLM provider with retry and metrics
type Service struct {
	provider LLMProvider
	policy   RetryPolicy
	sleep    Sleeper
}

type Option func(*Service)

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Service) { s.policy = p }
}

// WithSleeper replaces the real timer, used by tests.
func WithSleeper(fn Sleeper) Option {
	return func(s *Service) { s.sleep = fn }
}

// NewService creates the service from a provider config
func NewService(cfg *ProviderConfig, opts ...Option) (*Service, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("provider", provider.GetProviderName()).
		Str("model", provider.GetModel()).
		Msg("🤖 LLM provider ready")

	return NewServiceWithProvider(provider, opts...), nil
}

// NewServiceWithProvider creates service with custom provider (for testing)
func NewServiceWithProvider(provider LLMProvider, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		policy:   DefaultRetryPolicy(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Complete sends one chat completion, retrying transient failures with
// exponential backoff. Non-retryable errors are returned immediately.
func (s *Service) Complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	name := s.provider.GetProviderName()

	var lastErr error
	for attempt := 0; attempt <= s.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := s.policy.Delay(attempt - 1)
			retriesTotal.WithLabelValues(name).Inc()
			log.Warn().
				Err(lastErr).
				Str("provider", name).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("🔁 Retrying completion")

			if err := s.sleep(ctx, delay); err != nil {
				return openai.ChatCompletionResponse{}, fmt.Errorf("%s completion: %w", name, errors.Join(lastErr, err))
			}
		}

		started := time.Now()
		resp, err := s.provider.CreateChatCompletion(ctx, req)
		observeCompletion(name, started, err)

		if err == nil {
			if len(resp.Choices) == 0 {
				return resp, ErrEmptyResponse
			}
			return resp, nil
		}

		lastErr = err
		if !IsRetryable(err) || ctx.Err() != nil {
			break
		}
	}

	return openai.ChatCompletionResponse{}, fmt.Errorf("%s completion: %w", name, lastErr)
}

// GetProviderName returns current provider name
func (s *Service) GetProviderName() string {
	return s.provider.GetProviderName()
}
