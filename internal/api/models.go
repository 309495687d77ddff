package api

// Article is a bookmarked article. Tags reference Tag names, not IDs.
type Article struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
	Memo      string   `json:"memo"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

// ArticleInput is the body of create and update requests. Updates replace
// every field.
type ArticleInput struct {
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
	Memo    string   `json:"memo,omitempty"`
}

// GeneratedArticle is the metadata the backend derives from a URL.
type GeneratedArticle struct {
	URL     string   `json:"url"`
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
	Memo    string   `json:"memo"`
}

type Tag struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type TagInput struct {
	Name string `json:"name"`
}

type PurchaseLinks struct {
	Amazon  string `json:"amazon,omitempty"`
	Rakuten string `json:"rakuten,omitempty"`
}

type Book struct {
	Title         string        `json:"title"`
	Author        string        `json:"author"`
	ISBN          string        `json:"isbn,omitempty"`
	PurchaseLinks PurchaseLinks `json:"purchaseLinks"`
}

// Recommendations is the book recommendation payload. GeneratedAt and
// ExpiresAt are empty when the server sent null.
type Recommendations struct {
	Books       []Book `json:"books"`
	Cached      bool   `json:"cached"`
	GeneratedAt string `json:"generatedAt"`
	ExpiresAt   string `json:"expiresAt"`
}

// Wire shapes.

type articleDTO struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
	Memo      *string  `json:"memo"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

type tagDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type generateRequest struct {
	URL  string `json:"url"`
	Memo string `json:"memo,omitempty"`
}

type purchaseLinksDTO struct {
	Amazon  string `json:"amazon"`
	Rakuten string `json:"rakuten"`
}

type bookDTO struct {
	Title         string            `json:"title"`
	Author        string            `json:"author"`
	ISBN          string            `json:"isbn"`
	PurchaseLinks *purchaseLinksDTO `json:"purchaseLinks"`
}

type recommendationsDTO struct {
	Books       []bookDTO `json:"books"`
	Cached      bool      `json:"cached"`
	GeneratedAt *string   `json:"generatedAt"`
	ExpiresAt   *string   `json:"expiresAt"`
}

func (d articleDTO) toArticle() Article {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return Article{
		ID:        d.ID,
		Title:     d.Title,
		URL:       d.URL,
		Summary:   d.Summary,
		Tags:      tags,
		Memo:      deref(d.Memo),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func toArticles(dtos []articleDTO) []Article {
	articles := make([]Article, 0, len(dtos))
	for _, d := range dtos {
		articles = append(articles, d.toArticle())
	}
	return articles
}

func (d tagDTO) toTag() Tag {
	return Tag{
		ID:        d.ID,
		Name:      d.Name,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func toTags(dtos []tagDTO) []Tag {
	tags := make([]Tag, 0, len(dtos))
	for _, d := range dtos {
		tags = append(tags, d.toTag())
	}
	return tags
}

func (d recommendationsDTO) toRecommendations() Recommendations {
	books := make([]Book, 0, len(d.Books))
	for _, b := range d.Books {
		book := Book{Title: b.Title, Author: b.Author, ISBN: b.ISBN}
		if b.PurchaseLinks != nil {
			book.PurchaseLinks = PurchaseLinks{
				Amazon:  b.PurchaseLinks.Amazon,
				Rakuten: b.PurchaseLinks.Rakuten,
			}
		}
		books = append(books, book)
	}
	return Recommendations{
		Books:       books,
		Cached:      d.Cached,
		GeneratedAt: deref(d.GeneratedAt),
		ExpiresAt:   deref(d.ExpiresAt),
	}
}

func (in ArticleInput) normalized() ArticleInput {
	if in.Tags == nil {
		in.Tags = []string{}
	}
	return in
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
