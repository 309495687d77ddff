package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/kiji/internal/api"
	"github.com/user/kiji/internal/apierr"
	"github.com/user/kiji/internal/apitest"
	"github.com/user/kiji/internal/config"
)

type fakeCompleter struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

type fakePages struct {
	page *Page
	err  error
}

func (f *fakePages) Extract(context.Context, string) (*Page, error) {
	return f.page, f.err
}

func TestParseReply(t *testing.T) {
	reply := `TITLE: Go言語入門
SUMMARY: Goの基本を解説する記事です。
並行処理にも触れています。
TAGS: Go, #並行処理, go, プログラミング、入門`

	got := parseReply(reply)
	assert.Equal(t, "Go言語入門", got.Title)
	assert.Equal(t, "Goの基本を解説する記事です。 並行処理にも触れています。", got.Summary)
	assert.Equal(t, []string{"Go", "並行処理", "プログラミング", "入門"}, got.Tags)
}

func TestParseReply_MarkdownAndCase(t *testing.T) {
	got := parseReply("**Title:** Hello\n**summary:** World\n")
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, "World", got.Summary)
	assert.NotNil(t, got.Tags)
	assert.Empty(t, got.Tags)
}

func TestParseTags_Limits(t *testing.T) {
	long := strings.Repeat("x", 51)
	got := parseTags("a, b, " + long + ", c, d, e, f")
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "あい", truncateRunes("あいう", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "one two", truncateWords("one two three", 2))
	assert.Equal(t, "one  two", truncateWords("one  two", 2))
}

func TestLLMGenerate(t *testing.T) {
	completer := &fakeCompleter{reply: "TITLE: T\nSUMMARY: S\nTAGS: Go, Web"}
	pages := &fakePages{page: &Page{Title: "Page", Text: "body text"}}
	g := NewLLM(completer, pages, time.Second, slogDiscard())

	got, err := g.Generate(context.Background(), " https://example.com/post ", "後で読む")
	require.NoError(t, err)
	assert.Equal(t, &api.GeneratedArticle{
		URL:     "https://example.com/post",
		Title:   "T",
		Summary: "S",
		Tags:    []string{"Go", "Web"},
		Memo:    "後で読む",
	}, got)
	assert.Contains(t, completer.prompt, "body text")
	assert.Contains(t, completer.prompt, "後で読む")
}

func TestLLMGenerate_FallsBackToPageTitle(t *testing.T) {
	completer := &fakeCompleter{reply: "SUMMARY: S"}
	pages := &fakePages{page: &Page{Title: "Page title", Text: "body"}}
	g := NewLLM(completer, pages, time.Second, slogDiscard())

	got, err := g.Generate(context.Background(), "https://example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "Page title", got.Title)
}

func TestLLMGenerate_Errors(t *testing.T) {
	pageErr := apierr.New("page returned status 404", http.StatusBadGateway, "page", "GET", nil)

	tests := []struct {
		name      string
		url       string
		completer *fakeCompleter
		pages     *fakePages
		status    int
	}{
		{"empty url", "", &fakeCompleter{}, &fakePages{}, http.StatusBadRequest},
		{"page failure", "https://example.com", &fakeCompleter{}, &fakePages{err: pageErr}, http.StatusBadGateway},
		{
			"provider failure", "https://example.com",
			&fakeCompleter{err: apierr.New("slow down", 429, "llm:fake", "POST", nil)},
			&fakePages{page: &Page{Text: "x"}}, http.StatusTooManyRequests,
		},
		{
			"unparseable reply", "https://example.com",
			&fakeCompleter{reply: "I cannot help with that."},
			&fakePages{page: &Page{Text: "x"}}, http.StatusBadGateway,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewLLM(tt.completer, tt.pages, time.Second, slogDiscard())
			_, err := g.Generate(context.Background(), tt.url, "")
			e, ok := apierr.As(err)
			require.True(t, ok, "want *apierr.Error, got %v", err)
			assert.Equal(t, tt.status, e.StatusCode)
		})
	}
}

func TestProviderError(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"openai rate limit", &apiErrorOpenAI429, http.StatusTooManyRequests},
		{"openai server", fmt.Errorf("wrapped: %w", &apiErrorOpenAI500), http.StatusBadGateway},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"canceled", context.Canceled, apierr.StatusNetwork},
		{"unknown", errors.New("boom"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := providerError(ctx, "openai", tt.err)
			assert.Equal(t, tt.status, got.StatusCode)
			assert.Equal(t, "llm:openai", got.Endpoint)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, 429, mapStatus(429))
	assert.Equal(t, 401, mapStatus(401))
	assert.Equal(t, 403, mapStatus(403))
	assert.Equal(t, 504, mapStatus(408))
	assert.Equal(t, 502, mapStatus(500))
	assert.Equal(t, 502, mapStatus(0))
}

func TestAnthropicStatus(t *testing.T) {
	assert.Equal(t, 429, anthropicStatus("rate_limit_error"))
	assert.Equal(t, 401, anthropicStatus("authentication_error"))
	assert.Equal(t, 403, anthropicStatus("permission_error"))
	assert.Equal(t, 502, anthropicStatus("api_error"))
}

func TestOpenAICompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model string `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body.Model)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-test",
			"choices":[{"index":0,"message":{"role":"assistant","content":"TITLE: A\nSUMMARY: B"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c := NewOpenAI("openai", "test-key", "gpt-test", srv.URL)
	reply, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "TITLE: A\nSUMMARY: B", reply)
}

func TestOpenAICompleter_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`)
	}))
	defer srv.Close()

	c := NewOpenAI("openrouter", "k", "m", srv.URL)
	_, err := c.Complete(context.Background(), "prompt")
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, e.StatusCode)
	assert.Equal(t, "llm:openrouter", e.Endpoint)
}

func TestAnthropicCompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"m1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"TITLE: A"}],"stop_reason":"end_turn",
			"usage":{"input_tokens":1,"output_tokens":1}}`)
	}))
	defer srv.Close()

	c := NewAnthropic("test-key", "claude-test", srv.URL)
	reply, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "TITLE: A", reply)
}

func TestAnthropicCompleter_AuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	c := NewAnthropic("bad", "claude-test", srv.URL)
	_, err := c.Complete(context.Background(), "prompt")
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, e.StatusCode)
	assert.Equal(t, "invalid x-api-key", e.Message)
}

const articleHTML = `<!DOCTYPE html>
<html><head><title>Understanding Go Channels</title></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>Understanding Go Channels</h1>
<p>Channels are the pipes that connect concurrent goroutines. You can send values into channels from one goroutine and receive those values into another goroutine. This article walks through unbuffered and buffered channels in detail.</p>
<p>An unbuffered channel blocks the sender until a receiver is ready, which makes it a synchronization point between two goroutines. Buffered channels accept a limited number of values without a corresponding receiver for those values.</p>
<p>Closing a channel indicates that no more values will be sent on it. This can be useful to communicate completion to the channel's receivers, and ranging over a channel stops once it is closed and drained.</p>
</article>
<footer>Copyright</footer>
</body></html>`

func TestExtractor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "kiji")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articleHTML)
	}))
	defer srv.Close()

	page, err := NewExtractor(srv.Client()).Extract(context.Background(), srv.URL+"/post")
	require.NoError(t, err)
	assert.Contains(t, page.Title, "Understanding Go Channels")
	assert.Contains(t, page.Text, "unbuffered channel blocks the sender")
}

func TestExtractor_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	x := NewExtractor(srv.Client())

	_, err := x.Extract(context.Background(), "ftp://example.com")
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, e.StatusCode)

	_, err = x.Extract(context.Background(), srv.URL)
	e, ok = apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, e.StatusCode)
}

func TestNew(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	articles := api.NewArticleClient(api.New(srv.URL))

	g, err := New(config.GeneratorConfig{Provider: config.ProviderBackend}, articles, nil)
	require.NoError(t, err)
	assert.IsType(t, &Backend{}, g)

	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err = New(config.GeneratorConfig{Provider: config.ProviderAnthropic}, articles, nil)
	assert.EqualError(t, err, "ANTHROPIC_API_KEY not set")

	t.Setenv("OPENROUTER_API_KEY", "k")
	g, err = New(config.GeneratorConfig{Provider: config.ProviderOpenRouter, Timeout: time.Second}, articles, nil)
	require.NoError(t, err)
	llm, ok := g.(*LLM)
	require.True(t, ok)
	assert.Equal(t, "openrouter", llm.completer.Name())

	g, err = New(config.GeneratorConfig{Provider: config.ProviderOpenAI, APIKey: "from-config"}, articles, nil)
	require.NoError(t, err)
	assert.IsType(t, &LLM{}, g)

	_, err = New(config.GeneratorConfig{Provider: "gemini"}, articles, nil)
	assert.Error(t, err)
}

func TestBackendGenerate(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.SetGenerated(apitest.Article{Title: "Generated", Summary: "Sum", Tags: []string{"Go"}})

	g := NewBackend(api.NewArticleClient(api.New(srv.URL)))
	got, err := g.Generate(context.Background(), "https://example.com", "memo")
	require.NoError(t, err)
	assert.Equal(t, "Generated", got.Title)
	assert.Equal(t, []string{"Go"}, got.Tags)
	assert.Equal(t, 1, srv.Calls("POST /api/articles/generate"))
}

var (
	apiErrorOpenAI429 = openai.APIError{Message: "Rate limit reached", HTTPStatusCode: http.StatusTooManyRequests}
	apiErrorOpenAI500 = openai.APIError{Message: "server error", HTTPStatusCode: http.StatusInternalServerError}
)

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
