// Package app wires configuration into the API clients, caches and stores
// shared by the CLI commands and the TUI.
package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/user/kiji/internal/api"
	"github.com/user/kiji/internal/cache"
	"github.com/user/kiji/internal/config"
	"github.com/user/kiji/internal/db"
	"github.com/user/kiji/internal/generator"
	"github.com/user/kiji/internal/store"
)

const (
	KeyArticles = "articles"
	KeyTags     = "tags"
	KeyBooks    = "book-recommendations"
)

type App struct {
	Config *config.Config
	Logger *slog.Logger

	Client   *api.Client
	Articles *api.ArticleClient
	Tags     *api.TagClient
	BooksAPI *api.BookClient

	ArticleCache *cache.Cache[[]api.Article]
	TagCache     *cache.Cache[[]api.Tag]
	BookCache    *cache.Cache[api.Recommendations]

	ArticleStore *store.ArticleStore
	TagStore     *store.TagStore
	BookStore    *store.BookStore
	Search       *store.Search

	Generator generator.Generator

	backend cache.Backend
	db      *db.Store
}

// New builds an App. The caller must Close it.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	switch cfg.Cache.Backend {
	case config.CacheSQLite:
		s, err := db.NewStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if n, err := s.PurgeExpired(time.Now()); err != nil {
			logger.Warn("failed to purge expired cache entries", "error", err)
		} else if n > 0 {
			logger.Debug("purged expired cache entries", "count", n)
		}
		a.db = s
		a.backend = s
	default:
		a.backend = cache.NewMemoryBackend()
	}

	a.Client = api.New(cfg.API.BaseURL,
		api.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		api.WithLogger(logger),
	)
	a.Articles = api.NewArticleClient(a.Client)
	a.Tags = api.NewTagClient(a.Client)
	a.BooksAPI = api.NewBookClient(a.Client)

	copts := []cache.Option{cache.WithLogger(logger)}
	a.ArticleCache = cache.New[[]api.Article](KeyArticles, cfg.Cache.ArticlesTTL, a.backend, copts...)
	a.TagCache = cache.New[[]api.Tag](KeyTags, cfg.Cache.TagsTTL, a.backend, copts...)
	a.BookCache = cache.New[api.Recommendations](KeyBooks, cfg.Cache.BooksTTL, a.backend, copts...)

	sopts := func(key string) []store.Option {
		return []store.Option{
			store.WithLogger(logger),
			store.WithFetchHook(func() { a.recordFetch(key) }),
		}
	}
	a.ArticleStore = store.NewArticleStore(a.Articles, a.ArticleCache, sopts(KeyArticles)...)
	a.TagStore = store.NewTagStore(a.Tags, a.TagCache, sopts(KeyTags)...)
	a.BookStore = store.NewBookStore(a.BooksAPI, a.BookCache, sopts(KeyBooks)...)
	a.Search = store.NewSearch(a.Articles, store.WithLogger(logger))

	gen, err := generator.New(cfg.Generator, a.Articles, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to set up generator: %w", err)
	}
	a.Generator = gen

	return a, nil
}

// ClearCache drops every cached collection.
func (a *App) ClearCache() error {
	return a.backend.Clear()
}

// CacheEntries lists persisted cache entries. It returns nil for the
// memory backend.
func (a *App) CacheEntries() ([]db.EntryInfo, error) {
	if a.db == nil {
		return nil, nil
	}
	return a.db.Entries()
}

// recordFetch stores the time key was last fetched from the backend.
func (a *App) recordFetch(key string) {
	if a.db == nil {
		return
	}
	if err := a.db.SetMetadata("last_fetch:"+key, time.Now().Format(time.RFC3339)); err != nil {
		a.Logger.Warn("failed to record fetch time", "key", key, "error", err)
	}
}

// LastFetch returns the RFC 3339 time of the last backend fetch of key, or "".
func (a *App) LastFetch(key string) string {
	if a.db == nil {
		return ""
	}
	v, err := a.db.GetMetadata("last_fetch:" + key)
	if err != nil {
		return ""
	}
	return v
}

// TagsChanged invalidates the article cache after a tag mutation, since
// articles carry tag names.
func (a *App) TagsChanged() {
	a.ArticleStore.Invalidate()
}

func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
