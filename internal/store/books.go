package store

import (
	"context"

	"github.com/user/kiji/internal/api"
	"github.com/user/kiji/internal/cache"
)

type BookService interface {
	Recommendations(ctx context.Context) (*api.Recommendations, error)
}

type BooksState struct {
	Books       []api.Book
	Cached      bool
	GeneratedAt string
	ExpiresAt   string
	Loading     bool
	Loaded      bool
	Err         error
}

// BookStore holds book recommendations. A failed fetch empties the list;
// callers render nothing rather than an error.
type BookStore struct {
	base
	recs  api.Recommendations
	cache *cache.Cache[api.Recommendations]
	svc   BookService
}

func NewBookStore(svc BookService, c *cache.Cache[api.Recommendations], opts ...Option) *BookStore {
	s := &BookStore{recs: api.Recommendations{Books: []api.Book{}}, cache: c, svc: svc}
	s.init(buildOptions(opts))
	return s
}

func (s *BookStore) State() BooksState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return BooksState{
		Books:       clone(s.recs.Books),
		Cached:      s.recs.Cached,
		GeneratedAt: s.recs.GeneratedAt,
		ExpiresAt:   s.recs.ExpiresAt,
		Loading:     s.loading,
		Loaded:      s.loaded,
		Err:         s.err,
	}
}

func (s *BookStore) Load(ctx context.Context) error {
	return s.fetch(ctx, true)
}

func (s *BookStore) Refetch(ctx context.Context) error {
	return s.fetch(ctx, false)
}

func (s *BookStore) fetch(ctx context.Context, useCache bool) error {
	err := read(ctx, &s.base, s.cache, useCache, readFn[api.Recommendations]{
		call: func(ctx context.Context) (api.Recommendations, error) {
			recs, err := s.svc.Recommendations(ctx)
			if err != nil {
				return api.Recommendations{}, err
			}
			return *recs, nil
		},
		apply: func(recs api.Recommendations) {
			if recs.Books == nil {
				recs.Books = []api.Book{}
			}
			s.recs = recs
		},
		fail: func(error) {
			s.recs = api.Recommendations{Books: []api.Book{}}
		},
	})
	if err != nil {
		s.logger.Warn("failed to fetch book recommendations", "error", err)
	}
	return err
}
