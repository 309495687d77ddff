package generator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/user/kiji/internal/api"
	"github.com/user/kiji/internal/apierr"
)

// PageSource is what LLM reads pages through.
type PageSource interface {
	Extract(ctx context.Context, url string) (*Page, error)
}

// LLM generates metadata by reading the page itself and prompting a chat
// model.
type LLM struct {
	completer Completer
	pages     PageSource
	timeout   time.Duration
	logger    *slog.Logger
}

func NewLLM(completer Completer, pages PageSource, timeout time.Duration, logger *slog.Logger) *LLM {
	return &LLM{completer: completer, pages: pages, timeout: timeout, logger: logger}
}

const generatePrompt = `以下のWebページの内容を分析し、記事として保存するためのメタデータを日本語で作成してください。

出力は次の形式だけにしてください:
TITLE: <記事タイトル(100文字以内)>
SUMMARY: <3〜5文の要約(1000文字以内)>
TAGS: <タグ1>, <タグ2>, <タグ3>

タグは3〜5個、それぞれ50文字以内にしてください。
%s
ページタイトル: %s

本文:
%s`

const (
	maxPromptRunes = 20000
	maxTags        = 5
	maxTitleRunes  = 255
	maxSumRunes    = 1000
	maxTagRunes    = 50
)

func (l *LLM) Generate(ctx context.Context, url, memo string) (*api.GeneratedArticle, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, apierr.New("URL is empty", http.StatusBadRequest, endpoint(l.completer.Name()), http.MethodPost, nil)
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	page, err := l.pages.Extract(ctx, url)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("extracted page", "url", url, "title", page.Title, "runes", utf8.RuneCountInString(page.Text))

	reply, err := l.completer.Complete(ctx, buildPrompt(page, memo))
	if err != nil {
		return nil, err
	}

	out := parseReply(reply)
	if out.Title == "" {
		out.Title = truncateRunes(page.Title, maxTitleRunes)
	}
	if out.Title == "" || out.Summary == "" {
		return nil, apierr.New("Failed to parse response", http.StatusBadGateway, endpoint(l.completer.Name()), http.MethodPost, nil)
	}
	out.URL = url
	out.Memo = memo

	l.logger.Info("generated article metadata", "provider", l.completer.Name(), "url", url, "tags", len(out.Tags), "elapsed", time.Since(start))
	return out, nil
}

func buildPrompt(page *Page, memo string) string {
	memoLine := ""
	if memo = strings.TrimSpace(memo); memo != "" {
		memoLine = fmt.Sprintf("\nユーザーのメモ(要約の観点として考慮してください): %s\n", memo)
	}
	return fmt.Sprintf(generatePrompt, memoLine, page.Title, truncateRunes(page.Text, maxPromptRunes))
}

// parseReply reads the TITLE/SUMMARY/TAGS lines. A SUMMARY may continue on
// the following lines until the next key.
func parseReply(reply string) *api.GeneratedArticle {
	out := &api.GeneratedArticle{Tags: []string{}}
	var summary []string
	inSummary := false

	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "*"))
		switch {
		case hasKey(line, "TITLE:"):
			out.Title = value(line, "TITLE:")
			inSummary = false
		case hasKey(line, "SUMMARY:"):
			summary = append(summary[:0], value(line, "SUMMARY:"))
			inSummary = true
		case hasKey(line, "TAGS:"):
			out.Tags = parseTags(value(line, "TAGS:"))
			inSummary = false
		case inSummary && line != "":
			summary = append(summary, line)
		}
	}

	out.Title = truncateRunes(out.Title, maxTitleRunes)
	out.Summary = truncateRunes(strings.TrimSpace(strings.Join(summary, " ")), maxSumRunes)
	return out
}

func hasKey(line, key string) bool {
	return len(line) >= len(key) && strings.EqualFold(line[:len(key)], key)
}

func value(line, key string) string {
	return strings.TrimSpace(strings.TrimLeft(line[len(key):], "* "))
}

func parseTags(s string) []string {
	tags := []string{}
	seen := map[string]bool{}
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '、' }) {
		tag := strings.TrimSpace(strings.Trim(strings.TrimSpace(part), "#"))
		key := strings.ToLower(tag)
		if tag == "" || seen[key] || utf8.RuneCountInString(tag) > maxTagRunes {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
