package store

import (
	"context"

	"github.com/user/kiji/internal/api"
)

type SearchService interface {
	Search(ctx context.Context, keyword string) ([]api.Article, error)
}

type SearchState struct {
	Results []api.Article
	Loading bool
	Err     error
	Keyword string
}

// Search runs keyword searches without caching. Only the most recent call
// (or Clear) may write results.
type Search struct {
	base
	results []api.Article
	keyword string
	svc     SearchService
}

func NewSearch(svc SearchService, opts ...Option) *Search {
	s := &Search{results: []api.Article{}, svc: svc}
	s.init(buildOptions(opts))
	return s
}

func (s *Search) State() SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SearchState{Results: clone(s.results), Loading: s.loading, Err: s.err, Keyword: s.keyword}
}

// Search always calls the backend. A call superseded by a later Search or
// Clear returns nil and leaves state alone.
func (s *Search) Search(ctx context.Context, keyword string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.loading = true
	s.err = nil
	s.keyword = keyword
	s.mu.Unlock()
	s.notify()

	results, err := s.svc.Search(ctx, keyword)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug("discarding superseded search", "keyword", keyword)
		return nil
	}
	s.loading = false
	if err != nil {
		s.err = err
		s.results = []api.Article{}
	} else {
		if results == nil {
			results = []api.Article{}
		}
		s.results = results
	}
	s.mu.Unlock()
	s.notify()
	return err
}

func (s *Search) Clear() {
	s.mu.Lock()
	s.gen++
	s.results = []api.Article{}
	s.keyword = ""
	s.err = nil
	s.loading = false
	s.mu.Unlock()
	s.notify()
}
