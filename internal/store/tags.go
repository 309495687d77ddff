package store

import (
	"context"

	"github.com/user/kiji/internal/api"
	"github.com/user/kiji/internal/cache"
)

type TagService interface {
	List(ctx context.Context) ([]api.Tag, error)
	Create(ctx context.Context, in api.TagInput) (*api.Tag, error)
	Update(ctx context.Context, id int64, in api.TagInput) (*api.Tag, error)
	Delete(ctx context.Context, id int64) error
}

type TagsState struct {
	Tags    []api.Tag
	Loading bool
	Loaded  bool
	Err     error
}

type TagStore struct {
	*collection[api.Tag]
	svc TagService
}

func NewTagStore(svc TagService, c *cache.Cache[[]api.Tag], opts ...Option) *TagStore {
	id := func(t api.Tag) int64 { return t.ID }
	return &TagStore{collection: newCollection(c, id, buildOptions(opts)), svc: svc}
}

func (s *TagStore) State() TagsState {
	items, loading, loaded, err := s.snapshot()
	return TagsState{Tags: items, Loading: loading, Loaded: loaded, Err: err}
}

func (s *TagStore) Load(ctx context.Context) error {
	return s.fetch(ctx, true, s.svc.List)
}

func (s *TagStore) Refetch(ctx context.Context) error {
	return s.fetch(ctx, false, s.svc.List)
}

func (s *TagStore) Create(ctx context.Context, in api.TagInput) (*api.Tag, error) {
	return transact(ctx, s.collection, change[api.Tag, *api.Tag]{
		effect: func(ctx context.Context) (*api.Tag, error) {
			return s.svc.Create(ctx, in)
		},
		commit: func(items []api.Tag, t *api.Tag) []api.Tag {
			return s.appendItem(items, *t)
		},
	})
}

// Update renames a tag. A name conflict leaves the local list unchanged.
func (s *TagStore) Update(ctx context.Context, id int64, in api.TagInput) (*api.Tag, error) {
	return transact(ctx, s.collection, change[api.Tag, *api.Tag]{
		effect: func(ctx context.Context) (*api.Tag, error) {
			return s.svc.Update(ctx, id, in)
		},
		commit: func(items []api.Tag, t *api.Tag) []api.Tag {
			return s.replaceItem(items, id, *t)
		},
	})
}

// Delete removes the tag once the backend confirms.
func (s *TagStore) Delete(ctx context.Context, id int64) error {
	_, err := transact(ctx, s.collection, change[api.Tag, struct{}]{
		effect: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.svc.Delete(ctx, id)
		},
		commit: func(items []api.Tag, _ struct{}) []api.Tag {
			return s.removeID(items, id)
		},
	})
	return err
}
