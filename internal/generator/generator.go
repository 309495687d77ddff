// Package generator derives article metadata (title, summary, tags) from
// a URL, either through the backend or directly through an LLM provider.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/user/kiji/internal/api"
	"github.com/user/kiji/internal/config"
	"github.com/user/kiji/internal/logging"
)

type Generator interface {
	Generate(ctx context.Context, url, memo string) (*api.GeneratedArticle, error)
}

// ArticleGenerator is the backend call Backend delegates to.
type ArticleGenerator interface {
	Generate(ctx context.Context, url, memo string) (*api.GeneratedArticle, error)
}

// Backend asks the backend to generate metadata. One round trip, no retry.
type Backend struct {
	articles ArticleGenerator
}

func NewBackend(articles ArticleGenerator) *Backend {
	return &Backend{articles: articles}
}

func (b *Backend) Generate(ctx context.Context, url, memo string) (*api.GeneratedArticle, error) {
	return b.articles.Generate(ctx, url, memo)
}

// New picks the implementation configured by generator.provider.
func New(cfg config.GeneratorConfig, articles ArticleGenerator, logger *slog.Logger) (Generator, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if cfg.Provider == config.ProviderBackend || cfg.Provider == "" {
		return NewBackend(articles), nil
	}

	completer, err := newCompleter(cfg)
	if err != nil {
		return nil, err
	}
	return NewLLM(completer, NewExtractor(&http.Client{}), cfg.Timeout, logger), nil
}

const (
	defaultAnthropicModel  = "claude-haiku-4-5-20251001"
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultOpenRouterModel = "anthropic/claude-haiku-4.5"
	openRouterBaseURL      = "https://openrouter.ai/api/v1"
)

func newCompleter(cfg config.GeneratorConfig) (Completer, error) {
	model := cfg.Model
	switch cfg.Provider {
	case config.ProviderAnthropic:
		apiKey := firstNonEmpty(cfg.APIKey, os.Getenv("ANTHROPIC_API_KEY"))
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		if model == "" {
			model = defaultAnthropicModel
		}
		return NewAnthropic(apiKey, model, cfg.BaseURL), nil
	case config.ProviderOpenAI:
		apiKey := firstNonEmpty(cfg.APIKey, os.Getenv("OPENAI_API_KEY"))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewOpenAI(config.ProviderOpenAI, apiKey, model, cfg.BaseURL), nil
	case config.ProviderOpenRouter:
		apiKey := firstNonEmpty(cfg.APIKey, os.Getenv("OPENROUTER_API_KEY"))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY not set")
		}
		if model == "" {
			model = defaultOpenRouterModel
		}
		return NewOpenAI(config.ProviderOpenRouter, apiKey, model, firstNonEmpty(cfg.BaseURL, openRouterBaseURL)), nil
	}
	return nil, fmt.Errorf("unsupported generator provider: %s", cfg.Provider)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
