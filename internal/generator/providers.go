package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sashabaranov/go-openai"
	"github.com/user/kiji/internal/apierr"
)

// Completer sends one prompt to a chat model and returns its reply.
type Completer interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

const maxTokens = 800

type Anthropic struct {
	client *anthropic.Client
	model  string
}

func NewAnthropic(apiKey, model, baseURL string) *Anthropic {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &Anthropic{client: anthropic.NewClient(apiKey, opts...), model: model}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{
			{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{{Type: "text", Text: &prompt}},
			},
		},
	})
	if err != nil {
		return "", providerError(ctx, a.Name(), err)
	}

	if len(resp.Content) == 0 {
		return "", apierr.New("empty response from Anthropic", http.StatusBadGateway, endpoint(a.Name()), http.MethodPost, nil)
	}

	return resp.Content[0].GetText(), nil
}

// OpenAI talks to OpenAI or any OpenAI-compatible endpoint such as
// OpenRouter.
type OpenAI struct {
	name   string
	client *openai.Client
	model  string
}

func NewOpenAI(name, apiKey, model, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{name: name, client: openai.NewClientWithConfig(cfg), model: model}
}

func (o *OpenAI) Name() string { return o.name }

func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", providerError(ctx, o.Name(), err)
	}

	if len(resp.Choices) == 0 {
		return "", apierr.New("empty response from "+o.name, http.StatusBadGateway, endpoint(o.Name()), http.MethodPost, nil)
	}

	return resp.Choices[0].Message.Content, nil
}

func endpoint(provider string) string {
	return "llm:" + provider
}

// providerError normalizes SDK failures into API errors carrying the
// status codes the backend uses for the same conditions.
func providerError(ctx context.Context, provider string, err error) *apierr.Error {
	ep := endpoint(provider)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apierr.New("AI generation timed out", http.StatusGatewayTimeout, ep, http.MethodPost, err)
	}
	if errors.Is(err, context.Canceled) {
		return apierr.New("Context cancelled", apierr.StatusNetwork, ep, http.MethodPost, err)
	}

	var oaAPI *openai.APIError
	if errors.As(err, &oaAPI) {
		return apierr.New(oaAPI.Message, mapStatus(oaAPI.HTTPStatusCode), ep, http.MethodPost, err)
	}
	var oaReq *openai.RequestError
	if errors.As(err, &oaReq) {
		return apierr.New(fmt.Sprintf("%s request failed", provider), mapStatus(oaReq.HTTPStatusCode), ep, http.MethodPost, err)
	}

	var anAPI *anthropic.APIError
	if errors.As(err, &anAPI) {
		return apierr.New(anAPI.Message, anthropicStatus(string(anAPI.Type)), ep, http.MethodPost, err)
	}
	var anReq *anthropic.RequestError
	if errors.As(err, &anReq) {
		return apierr.New(fmt.Sprintf("%s request failed", provider), mapStatus(anReq.StatusCode), ep, http.MethodPost, err)
	}

	return apierr.New(fmt.Sprintf("%s request failed: %v", provider, err), http.StatusBadGateway, ep, http.MethodPost, err)
}

// mapStatus keeps the statuses that have their own user message and folds
// every other upstream failure into 502.
func mapStatus(status int) int {
	switch status {
	case http.StatusTooManyRequests, http.StatusUnauthorized, http.StatusForbidden, http.StatusGatewayTimeout, http.StatusBadRequest:
		return status
	case http.StatusRequestTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func anthropicStatus(errType string) int {
	switch errType {
	case "rate_limit_error", "overloaded_error":
		return http.StatusTooManyRequests
	case "authentication_error":
		return http.StatusUnauthorized
	case "permission_error":
		return http.StatusForbidden
	case "invalid_request_error":
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
