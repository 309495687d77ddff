// Package apitest runs an in-memory stand-in for the article backend.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

const timeLayout = "2006-01-02 15:04:05"

// Article is the wire shape stored by the fake. A nil Memo or Tags is sent
// as JSON null.
type Article struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
	Memo      *string  `json:"memo"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

type Tag struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type Book struct {
	Title         string            `json:"title"`
	Author        string            `json:"author"`
	ISBN          string            `json:"isbn,omitempty"`
	PurchaseLinks map[string]string `json:"purchaseLinks"`
}

// Failure is a canned response returned instead of the real handler.
type Failure struct {
	Status int
	Body   string
}

// Server is a fake backend. Route keys look like "GET /api/articles/{id}".
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	articles  []Article
	tags      []Tag
	books     []Book
	generated Article
	nextID    int64
	nextTagID int64
	calls     map[string]int
	failures  map[string]Failure
	queries   map[string][]string
	now       func() time.Time
}

// NewServer starts a fake backend. Call Close when done.
func NewServer() *Server {
	s := &Server{
		nextID:    1,
		nextTagID: 1,
		calls:     make(map[string]int),
		failures:  make(map[string]Failure),
		queries:   make(map[string][]string),
		now:       time.Now,
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		api.Get("/articles", s.route("GET /api/articles", s.listArticles))
		api.Post("/articles", s.route("POST /api/articles", s.createArticle))
		api.Get("/articles/search", s.route("GET /api/articles/search", s.searchArticles))
		api.Post("/articles/generate", s.route("POST /api/articles/generate", s.generateArticle))
		api.Get("/articles/{id}", s.route("GET /api/articles/{id}", s.getArticle))
		api.Put("/articles/{id}", s.route("PUT /api/articles/{id}", s.updateArticle))
		api.Delete("/articles/{id}", s.route("DELETE /api/articles/{id}", s.deleteArticle))

		api.Get("/tags", s.route("GET /api/tags", s.listTags))
		api.Post("/tags", s.route("POST /api/tags", s.createTag))
		api.Get("/tags/{id}", s.route("GET /api/tags/{id}", s.getTag))
		api.Put("/tags/{id}", s.route("PUT /api/tags/{id}", s.updateTag))
		api.Delete("/tags/{id}", s.route("DELETE /api/tags/{id}", s.deleteTag))

		api.Get("/book-recommendations", s.route("GET /api/book-recommendations", s.recommendations))
	})
	return r
}

func (s *Server) route(key string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[key]++
		s.queries[key] = append(s.queries[key], r.URL.RawQuery)
		f, failing := s.failures[key]
		s.mu.Unlock()

		if failing {
			if f.Body != "" {
				w.Header().Set("Content-Type", "application/json")
			}
			w.WriteHeader(f.Status)
			_, _ = w.Write([]byte(f.Body))
			return
		}
		h(w, r)
	}
}

// Fail makes the route answer with status and body until Recover is called.
func (s *Server) Fail(key string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[key] = Failure{Status: status, Body: body}
}

func (s *Server) Recover(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, key)
}

// Calls reports how many requests hit the route.
func (s *Server) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

// RawQueries returns the raw query strings received by the route.
func (s *Server) RawQueries(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries[key]...)
}

// AddArticle seeds an article and returns it with its assigned ID.
func (s *Server) AddArticle(a Article) Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.nextID
	s.nextID++
	stamp := s.now().Format(timeLayout)
	if a.CreatedAt == "" {
		a.CreatedAt = stamp
	}
	if a.UpdatedAt == "" {
		a.UpdatedAt = stamp
	}
	s.articles = append(s.articles, a)
	return a
}

func (s *Server) AddTag(name string) Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addTagLocked(name)
}

func (s *Server) SetBooks(books []Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books = books
}

// SetGenerated sets the response of POST /api/articles/generate.
func (s *Server) SetGenerated(a Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generated = a
}

// Articles returns a copy of the stored articles.
func (s *Server) Articles() []Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Article{}, s.articles...)
}

func (s *Server) Tags() []Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Tag{}, s.tags...)
}

func (s *Server) addTagLocked(name string) Tag {
	stamp := s.now().Format(timeLayout)
	t := Tag{ID: s.nextTagID, Name: name, CreatedAt: stamp, UpdatedAt: stamp}
	s.nextTagID++
	s.tags = append(s.tags, t)
	return t
}

type articleRequest struct {
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
	Memo    string   `json:"memo"`
}

func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.Articles())
}

func (s *Server) getArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.articles {
		if a.ID == id {
			respondJSON(w, http.StatusOK, a)
			return
		}
	}
	respondError(w, http.StatusNotFound, "article not found")
}

func (s *Server) createArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateArticle(req); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	memo := req.Memo
	a := s.AddArticle(Article{Title: req.Title, URL: req.URL, Summary: req.Summary, Tags: req.Tags, Memo: &memo})
	respondJSON(w, http.StatusCreated, a)
}

func (s *Server) updateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateArticle(req); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.articles {
		if a.ID != id {
			continue
		}
		memo := req.Memo
		a.Title, a.URL, a.Summary, a.Tags, a.Memo = req.Title, req.URL, req.Summary, req.Tags, &memo
		a.UpdatedAt = s.now().Format(timeLayout)
		s.articles[i] = a
		respondJSON(w, http.StatusOK, a)
		return
	}
	respondError(w, http.StatusNotFound, "article not found")
}

func (s *Server) deleteArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.articles {
		if a.ID == id {
			s.articles = append(s.articles[:i], s.articles[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	respondError(w, http.StatusNotFound, "article not found")
}

func (s *Server) searchArticles(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	if strings.TrimSpace(keyword) == "" {
		respondError(w, http.StatusBadRequest, "keyword is required")
		return
	}
	needle := strings.ToLower(keyword)

	s.mu.Lock()
	defer s.mu.Unlock()
	results := []Article{}
	for _, a := range s.articles {
		memo := ""
		if a.Memo != nil {
			memo = *a.Memo
		}
		hay := strings.ToLower(a.Title + " " + a.Summary + " " + memo)
		if strings.Contains(hay, needle) {
			results = append(results, a)
		}
	}
	respondJSON(w, http.StatusOK, results)
}

func (s *Server) generateArticle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL  string `json:"url"`
		Memo string `json:"memo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		respondError(w, http.StatusBadRequest, "url must start with http:// or https://")
		return
	}
	s.mu.Lock()
	g := s.generated
	s.mu.Unlock()
	g.URL = req.URL
	memo := req.Memo
	g.Memo = &memo
	respondJSON(w, http.StatusOK, g)
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.Tags())
}

func (s *Server) getTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tags {
		if t.ID == id {
			respondJSON(w, http.StatusOK, t)
			return
		}
	}
	respondError(w, http.StatusNotFound, "tag not found")
}

func (s *Server) createTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tagExistsLocked(req.Name, 0) {
		respondError(w, http.StatusConflict, "tag already exists")
		return
	}
	respondJSON(w, http.StatusCreated, s.addTagLocked(req.Name))
}

// updateTag renames a tag and rewrites the name inside every article.
func (s *Server) updateTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tagExistsLocked(req.Name, id) {
		respondError(w, http.StatusConflict, "tag already exists")
		return
	}
	for i, t := range s.tags {
		if t.ID != id {
			continue
		}
		old := t.Name
		t.Name = req.Name
		t.UpdatedAt = s.now().Format(timeLayout)
		s.tags[i] = t
		for j := range s.articles {
			for k, name := range s.articles[j].Tags {
				if name == old {
					s.articles[j].Tags[k] = req.Name
				}
			}
		}
		respondJSON(w, http.StatusOK, t)
		return
	}
	respondError(w, http.StatusNotFound, "tag not found")
}

func (s *Server) deleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tags {
		if t.ID == id {
			s.tags = append(s.tags[:i], s.tags[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	respondError(w, http.StatusNotFound, "tag not found")
}

func (s *Server) recommendations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	books := append([]Book{}, s.books...)
	now := s.now()
	s.mu.Unlock()

	generated := now.Format(time.RFC3339)
	expires := now.Add(24 * time.Hour).Format(time.RFC3339)
	respondJSON(w, http.StatusOK, map[string]any{
		"books":       books,
		"cached":      false,
		"generatedAt": generated,
		"expiresAt":   expires,
	})
}

func (s *Server) tagExistsLocked(name string, exceptID int64) bool {
	for _, t := range s.tags {
		if t.ID != exceptID && t.Name == name {
			return true
		}
	}
	return false
}

func validateArticle(req articleRequest) string {
	switch {
	case req.Title == "":
		return "title is required"
	case req.URL == "":
		return "url is required"
	case !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://"):
		return "url must start with http:// or https://"
	case req.Summary == "":
		return "summary is required"
	}
	return ""
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid id %q", chi.URLParam(r, "id")))
		return 0, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
