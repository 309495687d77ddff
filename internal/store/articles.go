package store

import (
	"context"

	"github.com/user/kiji/internal/api"
	"github.com/user/kiji/internal/cache"
)

// ArticleService is the backend surface the article store needs.
type ArticleService interface {
	List(ctx context.Context) ([]api.Article, error)
	Create(ctx context.Context, in api.ArticleInput) (*api.Article, error)
	Update(ctx context.Context, id int64, in api.ArticleInput) (*api.Article, error)
	Delete(ctx context.Context, id int64) error
}

type ArticlesState struct {
	Articles []api.Article
	Loading  bool
	Loaded   bool
	Err      error
}

type ArticleStore struct {
	*collection[api.Article]
	svc ArticleService
}

func NewArticleStore(svc ArticleService, c *cache.Cache[[]api.Article], opts ...Option) *ArticleStore {
	id := func(a api.Article) int64 { return a.ID }
	return &ArticleStore{collection: newCollection(c, id, buildOptions(opts)), svc: svc}
}

func (s *ArticleStore) State() ArticlesState {
	items, loading, loaded, err := s.snapshot()
	return ArticlesState{Articles: items, Loading: loading, Loaded: loaded, Err: err}
}

// Load reads through the cache.
func (s *ArticleStore) Load(ctx context.Context) error {
	return s.fetch(ctx, true, s.svc.List)
}

// Refetch always goes to the backend.
func (s *ArticleStore) Refetch(ctx context.Context) error {
	return s.fetch(ctx, false, s.svc.List)
}

func (s *ArticleStore) Create(ctx context.Context, in api.ArticleInput) (*api.Article, error) {
	return transact(ctx, s.collection, change[api.Article, *api.Article]{
		effect: func(ctx context.Context) (*api.Article, error) {
			return s.svc.Create(ctx, in)
		},
		commit: func(items []api.Article, a *api.Article) []api.Article {
			return s.appendItem(items, *a)
		},
	})
}

func (s *ArticleStore) Update(ctx context.Context, id int64, in api.ArticleInput) (*api.Article, error) {
	return transact(ctx, s.collection, change[api.Article, *api.Article]{
		effect: func(ctx context.Context) (*api.Article, error) {
			return s.svc.Update(ctx, id, in)
		},
		commit: func(items []api.Article, a *api.Article) []api.Article {
			return s.replaceItem(items, id, *a)
		},
	})
}

// Delete removes the article locally before the backend confirms and puts
// it back at its old position if the call fails.
func (s *ArticleStore) Delete(ctx context.Context, id int64) error {
	_, err := transact(ctx, s.collection, change[api.Article, struct{}]{
		speculate: func(items []api.Article) ([]api.Article, func([]api.Article) []api.Article) {
			return s.takeID(items, id)
		},
		effect: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.svc.Delete(ctx, id)
		},
	})
	return err
}

// Find returns the loaded article with id.
func (s *ArticleStore) Find(id int64) (api.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.items {
		if a.ID == id {
			return a, true
		}
	}
	return api.Article{}, false
}
