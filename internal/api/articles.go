package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/user/kiji/internal/apierr"
)

// ArticleClient talks to /api/articles.
type ArticleClient struct {
	c *Client
}

func NewArticleClient(c *Client) *ArticleClient {
	return &ArticleClient{c: c}
}

func (a *ArticleClient) List(ctx context.Context) ([]Article, error) {
	dtos, err := fetch[[]articleDTO](ctx, a.c, "/api/articles", nil)
	if err != nil {
		return nil, err
	}
	if dtos == nil {
		return []Article{}, nil
	}
	return toArticles(*dtos), nil
}

func (a *ArticleClient) Get(ctx context.Context, id int64) (*Article, error) {
	endpoint := fmt.Sprintf("/api/articles/%d", id)
	return a.one(ctx, endpoint, nil)
}

func (a *ArticleClient) Create(ctx context.Context, in ArticleInput) (*Article, error) {
	return a.one(ctx, "/api/articles", &RequestOptions{Method: http.MethodPost, Body: in.normalized()})
}

func (a *ArticleClient) Update(ctx context.Context, id int64, in ArticleInput) (*Article, error) {
	endpoint := fmt.Sprintf("/api/articles/%d", id)
	return a.one(ctx, endpoint, &RequestOptions{Method: http.MethodPut, Body: in.normalized()})
}

func (a *ArticleClient) Delete(ctx context.Context, id int64) error {
	endpoint := fmt.Sprintf("/api/articles/%d", id)
	_, err := fetch[struct{}](ctx, a.c, endpoint, &RequestOptions{Method: http.MethodDelete})
	return err
}

// Search runs a full-text search. An empty keyword is passed through and
// rejected by the backend.
func (a *ArticleClient) Search(ctx context.Context, keyword string) ([]Article, error) {
	endpoint := "/api/articles/search?keyword=" + EncodeComponent(keyword)
	dtos, err := fetch[[]articleDTO](ctx, a.c, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if dtos == nil {
		return []Article{}, nil
	}
	return toArticles(*dtos), nil
}

// Generate asks the backend to derive title, summary and tags from a URL.
func (a *ArticleClient) Generate(ctx context.Context, articleURL, memo string) (*GeneratedArticle, error) {
	body := generateRequest{URL: articleURL, Memo: memo}
	dto, err := fetch[articleDTO](ctx, a.c, "/api/articles/generate", &RequestOptions{Method: http.MethodPost, Body: body})
	if err != nil {
		return nil, err
	}
	if dto == nil {
		return &GeneratedArticle{URL: articleURL, Memo: memo, Tags: []string{}}, nil
	}
	art := dto.toArticle()
	if art.URL == "" {
		art.URL = articleURL
	}
	return &GeneratedArticle{
		URL:     art.URL,
		Title:   art.Title,
		Summary: art.Summary,
		Tags:    art.Tags,
		Memo:    art.Memo,
	}, nil
}

func (a *ArticleClient) one(ctx context.Context, endpoint string, opts *RequestOptions) (*Article, error) {
	dto, err := fetch[articleDTO](ctx, a.c, endpoint, opts)
	if err != nil {
		return nil, err
	}
	if dto == nil {
		return nil, apierr.New(parseErrorMessage, http.StatusNoContent, endpoint, opts.method(), nil)
	}
	art := dto.toArticle()
	return &art, nil
}

// componentUnescaper undoes the escapes url.QueryEscape adds beyond
// JavaScript's encodeURIComponent.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent percent-encodes s for use as a query value the way
// encodeURIComponent does: a space becomes %20 and !'()* stay literal.
func EncodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
