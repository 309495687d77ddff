package api

import "context"

// BookClient talks to /api/book-recommendations.
type BookClient struct {
	c *Client
}

func NewBookClient(c *Client) *BookClient {
	return &BookClient{c: c}
}

func (b *BookClient) Recommendations(ctx context.Context) (*Recommendations, error) {
	dto, err := fetch[recommendationsDTO](ctx, b.c, "/api/book-recommendations", nil)
	if err != nil {
		return nil, err
	}
	if dto == nil {
		return &Recommendations{Books: []Book{}}, nil
	}
	recs := dto.toRecommendations()
	return &recs, nil
}
