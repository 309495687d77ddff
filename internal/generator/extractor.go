package generator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/user/kiji/internal/apierr"
)

// Page is the readable part of a web page.
type Page struct {
	Title string
	Text  string
}

// Extractor downloads pages and strips them to their main text.
type Extractor struct {
	client *http.Client
}

func NewExtractor(client *http.Client) *Extractor {
	return &Extractor{client: client}
}

const (
	maxPageWords = 5000
	pageEndpoint = "page"
)

// browserHeaders sets browser-like request headers so sites that check
// Accept or User-Agent don't reject the request.
func browserHeaders(r *http.Request) {
	r.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	r.Header.Set("User-Agent", "Mozilla/5.0 (compatible; kiji/1.0)")
}

func (e *Extractor) Extract(ctx context.Context, pageURL string) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apierr.New("invalid URL", http.StatusBadRequest, pageEndpoint, http.MethodGet, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, apierr.New("invalid URL", http.StatusBadRequest, pageEndpoint, http.MethodGet, err)
	}
	browserHeaders(req)

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apierr.New("page fetch timed out", http.StatusGatewayTimeout, pageEndpoint, http.MethodGet, err)
		}
		return nil, apierr.New(fmt.Sprintf("failed to fetch page: %v", err), http.StatusBadGateway, pageEndpoint, http.MethodGet, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apierr.New(fmt.Sprintf("page returned status %d", resp.StatusCode), http.StatusBadGateway, pageEndpoint, http.MethodGet, nil)
	}

	article, err := readability.FromReader(resp.Body, u)
	if err != nil {
		return nil, apierr.New(fmt.Sprintf("readability extraction: %v", err), http.StatusBadGateway, pageEndpoint, http.MethodGet, err)
	}

	return &Page{
		Title: strings.TrimSpace(article.Title),
		Text:  truncateWords(strings.TrimSpace(article.TextContent), maxPageWords),
	}, nil
}

// truncateWords returns the first maxWords whitespace-delimited words of s.
func truncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ")
}
