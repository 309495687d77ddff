package store

import "github.com/user/kiji/internal/api"

type TagCount struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TagCounts counts, for each tag, the articles that carry its name. Tags
// are matched by exact name; the result keeps the order of tags.
func TagCounts(articles []api.Article, tags []api.Tag) []TagCount {
	counts := make(map[string]int, len(tags))
	for _, a := range articles {
		for _, name := range a.Tags {
			counts[name]++
		}
	}
	out := make([]TagCount, 0, len(tags))
	for _, t := range tags {
		out = append(out, TagCount{ID: t.ID, Name: t.Name, Count: counts[t.Name]})
	}
	return out
}
