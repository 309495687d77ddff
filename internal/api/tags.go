package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/user/kiji/internal/apierr"
)

// TagClient talks to /api/tags.
type TagClient struct {
	c *Client
}

func NewTagClient(c *Client) *TagClient {
	return &TagClient{c: c}
}

func (t *TagClient) List(ctx context.Context) ([]Tag, error) {
	dtos, err := fetch[[]tagDTO](ctx, t.c, "/api/tags", nil)
	if err != nil {
		return nil, err
	}
	if dtos == nil {
		return []Tag{}, nil
	}
	return toTags(*dtos), nil
}

func (t *TagClient) Get(ctx context.Context, id int64) (*Tag, error) {
	return t.one(ctx, fmt.Sprintf("/api/tags/%d", id), nil)
}

func (t *TagClient) Create(ctx context.Context, in TagInput) (*Tag, error) {
	return t.one(ctx, "/api/tags", &RequestOptions{Method: http.MethodPost, Body: in})
}

// Update renames a tag. The backend rewrites the tag name inside articles.
func (t *TagClient) Update(ctx context.Context, id int64, in TagInput) (*Tag, error) {
	return t.one(ctx, fmt.Sprintf("/api/tags/%d", id), &RequestOptions{Method: http.MethodPut, Body: in})
}

func (t *TagClient) Delete(ctx context.Context, id int64) error {
	_, err := fetch[struct{}](ctx, t.c, fmt.Sprintf("/api/tags/%d", id), &RequestOptions{Method: http.MethodDelete})
	return err
}

func (t *TagClient) one(ctx context.Context, endpoint string, opts *RequestOptions) (*Tag, error) {
	dto, err := fetch[tagDTO](ctx, t.c, endpoint, opts)
	if err != nil {
		return nil, err
	}
	if dto == nil {
		return nil, apierr.New(parseErrorMessage, http.StatusNoContent, endpoint, opts.method(), nil)
	}
	tag := dto.toTag()
	return &tag, nil
}
