// Package reasoning sends assembled prompts to a hosted or local language
// model and returns the reply text.
package reasoning

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/kalambet/rootcause/internal/config"
)

var (
	// ErrUnavailable is returned by Service.Generate when no provider could
	// be configured at startup.
	ErrUnavailable = errors.New("reasoning service unavailable")
	// ErrEmptyResponse is returned when a provider answers without text.
	ErrEmptyResponse = errors.New("model returned no text")
)

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Provider names accepted in reasoning.provider.
const (
	ProviderGemini     = "gemini"
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

var defaultModels = map[string]string{
	ProviderGemini:     "gemini-2.5-pro",
	ProviderAnthropic:  "claude-sonnet-4-5",
	ProviderOpenRouter: "google/gemini-2.5-pro",
	ProviderOllama:     "llama3.1",
}

// DefaultModel returns the model used when reasoning.model is empty.
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// Service wraps a Generator whose availability was decided once, at
// construction. It is safe for concurrent use if the Generator is.
type Service struct {
	gen      Generator
	provider string
	model    string
	reason   string
}

// Option customizes New.
type Option func(*options)

type options struct {
	gen Generator
}

// WithGenerator replaces the provider client New would build. The
// credential check still applies.
func WithGenerator(g Generator) Option {
	return func(o *options) { o.gen = g }
}

// New builds the service described by cfg. A missing credential or a
// client construction failure yields an unavailable service, never an error.
func New(ctx context.Context, cfg config.ReasoningConfig, opts ...Option) *Service {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderGemini
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel(provider)
	}

	log := zap.L().With(
		zap.String("component", "reasoning"),
		zap.String("provider", provider),
		zap.String("model", model),
	)

	if provider != ProviderOllama && cfg.APIKey == "" {
		log.Warn("reasoning service unavailable: no API key configured")
		return Unavailable(provider, "no API key configured")
	}

	gen, err := o.gen, error(nil)
	if gen == nil {
		gen, err = newProvider(ctx, provider, model, cfg)
	}
	if errors.Is(err, errUnknownProvider) {
		log.Warn("reasoning service unavailable: unknown provider")
		return Unavailable(provider, "unknown provider "+provider)
	}
	if err != nil {
		log.Warn("reasoning service unavailable", zap.Error(err))
		return Unavailable(provider, err.Error())
	}

	log.Info("reasoning service configured")
	return NewWithGenerator(provider, model, gen)
}

var errUnknownProvider = errors.New("unknown provider")

func newProvider(ctx context.Context, provider, model string, cfg config.ReasoningConfig) (Generator, error) {
	switch provider {
	case ProviderGemini:
		return NewGemini(ctx, cfg.APIKey, model, cfg.BaseURL)
	case ProviderAnthropic:
		return NewAnthropic(cfg.APIKey, model, cfg.BaseURL, int64(cfg.MaxTokens)), nil
	case ProviderOpenRouter:
		return NewOpenRouter(cfg.APIKey, model, cfg.BaseURL), nil
	case ProviderOllama:
		return NewOllama(model, cfg.BaseURL), nil
	default:
		return nil, errUnknownProvider
	}
}

// NewWithGenerator returns an available service backed by gen.
func NewWithGenerator(provider, model string, gen Generator) *Service {
	return &Service{gen: gen, provider: provider, model: model}
}

// Unavailable returns a service whose Generate always fails with ErrUnavailable.
func Unavailable(provider, reason string) *Service {
	return &Service{provider: provider, reason: reason}
}

func (s *Service) Available() bool { return s != nil && s.gen != nil }

// Reason explains why the service is unavailable. Empty when available.
func (s *Service) Reason() string { return s.reason }

func (s *Service) Provider() string { return s.provider }

func (s *Service) Model() string { return s.model }

// Generate sends prompt to the provider once. No retries are attempted.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	if !s.Available() {
		return "", ErrUnavailable
	}
	return s.gen.Generate(ctx, prompt)
}
