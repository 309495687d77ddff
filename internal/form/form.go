// Package form holds the state and validation rules of the article
// create and edit forms.
package form

import (
	"errors"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/user/kiji/internal/api"
)

type Field int

const (
	FieldTitle Field = iota
	FieldURL
	FieldSummary
)

func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldURL:
		return "url"
	case FieldSummary:
		return "summary"
	}
	return "unknown"
}

var Fields = []Field{FieldTitle, FieldURL, FieldSummary}

const (
	MaxTitleLen   = 255
	MaxURLLen     = 2048
	MaxSummaryLen = 1000
	MaxTagLen     = 50
)

const (
	MsgTitleRequired   = "タイトルは必須です"
	MsgTitleTooLong    = "タイトルは255文字以内で入力してください"
	MsgURLRequired     = "URLは必須です"
	MsgURLInvalid      = "正しいURL形式で入力してください"
	MsgURLTooLong      = "URLは2048文字以内で入力してください"
	MsgSummaryRequired = "要約は必須です"
	MsgSummaryTooLong  = "要約は1000文字以内で入力してください"
	MsgGenerateNoURL   = "URLを入力してください"
)

var (
	ErrEmptyTag     = errors.New("タグ名を入力してください")
	ErrTagTooLong   = errors.New("タグ名は50文字以内にしてください")
	ErrDuplicateTag = errors.New("このタグは既に存在します")
)

// ValidationError lists the failing fields of a submit attempt.
type ValidationError struct {
	Fields map[Field]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range Fields {
		if msg, ok := e.Fields[f]; ok {
			parts = append(parts, f.String()+": "+msg)
		}
	}
	return "invalid article: " + strings.Join(parts, ", ")
}

// ArticleForm is the editable state of one article. Field values are set
// directly; error flags only change on Blur, Submit and ApplyGenerated.
type ArticleForm struct {
	Title   string
	URL     string
	Summary string
	Memo    string

	editing    bool
	selected   []string
	candidates []api.Tag
	coined     []string
	errs       map[Field]string
}

// New returns an empty create form offering candidates as selectable tags.
func New(candidates []api.Tag) *ArticleForm {
	return &ArticleForm{
		selected:   []string{},
		candidates: slices.Clone(candidates),
		errs:       map[Field]string{},
	}
}

// NewEditForm returns a form prefilled from a.
func NewEditForm(a api.Article, candidates []api.Tag) *ArticleForm {
	f := New(candidates)
	f.editing = true
	f.Title = a.Title
	f.URL = a.URL
	f.Summary = a.Summary
	f.Memo = a.Memo
	for _, name := range a.Tags {
		if !f.hasCandidate(name) {
			f.candidates = append(f.candidates, api.Tag{Name: name})
		}
		f.selected = append(f.selected, name)
	}
	return f
}

func (f *ArticleForm) Editing() bool { return f.editing }

func (f *ArticleForm) value(field Field) string {
	switch field {
	case FieldTitle:
		return f.Title
	case FieldURL:
		return f.URL
	case FieldSummary:
		return f.Summary
	}
	return ""
}

// Blur validates one field and records the result.
func (f *ArticleForm) Blur(field Field) bool {
	msg := validate(field, f.value(field))
	if msg == "" {
		delete(f.errs, field)
		return true
	}
	f.errs[field] = msg
	return false
}

// Error returns the recorded error of field, if any.
func (f *ArticleForm) Error(field Field) string {
	return f.errs[field]
}

// CanSubmit reports whether no error flag is set and the required fields
// are non-empty. It does not re-run validators.
func (f *ArticleForm) CanSubmit() bool {
	if len(f.errs) > 0 {
		return false
	}
	for _, field := range Fields {
		if strings.TrimSpace(f.value(field)) == "" {
			return false
		}
	}
	return true
}

// Submit re-runs every validator and returns the request body.
func (f *ArticleForm) Submit() (api.ArticleInput, error) {
	valid := true
	for _, field := range Fields {
		if !f.Blur(field) {
			valid = false
		}
	}
	if !valid {
		errs := make(map[Field]string, len(f.errs))
		for k, v := range f.errs {
			errs[k] = v
		}
		return api.ArticleInput{}, &ValidationError{Fields: errs}
	}
	return api.ArticleInput{
		Title:   strings.TrimSpace(f.Title),
		URL:     strings.TrimSpace(f.URL),
		Summary: strings.TrimSpace(f.Summary),
		Tags:    slices.Clone(f.selected),
		Memo:    strings.TrimSpace(f.Memo),
	}, nil
}

func (f *ArticleForm) Selected() []string   { return slices.Clone(f.selected) }
func (f *ArticleForm) Candidates() []api.Tag { return slices.Clone(f.candidates) }

func (f *ArticleForm) IsSelected(name string) bool {
	return slices.Contains(f.selected, name)
}

// IsNew reports whether name was coined locally and does not exist on the
// backend yet.
func (f *ArticleForm) IsNew(name string) bool {
	return slices.Contains(f.coined, name)
}

func (f *ArticleForm) ToggleTag(name string) {
	if i := slices.Index(f.selected, name); i >= 0 {
		f.selected = slices.Delete(f.selected, i, i+1)
		return
	}
	f.selected = append(f.selected, name)
}

// AddTag coins a new candidate tag with ID 0 and selects it. Names are
// compared case-insensitively against existing candidates.
func (f *ArticleForm) AddTag(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyTag
	}
	if utf8.RuneCountInString(name) > MaxTagLen {
		return ErrTagTooLong
	}
	for _, t := range f.candidates {
		if strings.EqualFold(t.Name, name) {
			return ErrDuplicateTag
		}
	}
	f.candidates = append(f.candidates, api.Tag{Name: name})
	f.coined = append(f.coined, name)
	f.selected = append(f.selected, name)
	return nil
}

// PickTag selects an existing candidate matching name case-insensitively,
// or coins a new one when none matches.
func (f *ArticleForm) PickTag(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyTag
	}
	for _, t := range f.candidates {
		if strings.EqualFold(t.Name, name) {
			if !f.IsSelected(t.Name) {
				f.selected = append(f.selected, t.Name)
			}
			return nil
		}
	}
	return f.AddTag(name)
}

// CheckGenerate validates the URL before generation and returns the message
// to show, or "" when generation may start.
func (f *ArticleForm) CheckGenerate() string {
	if strings.TrimSpace(f.URL) == "" {
		return MsgGenerateNoURL
	}
	if !f.Blur(FieldURL) {
		return MsgURLInvalid
	}
	return ""
}

// ApplyGenerated fills the form from a generation result. Tags the form
// does not know yet become ID-0 candidates and exactly the generated tags
// end up selected. Title and summary error flags are cleared.
func (f *ArticleForm) ApplyGenerated(g *api.GeneratedArticle) {
	if g == nil {
		return
	}
	f.Title = g.Title
	f.Summary = g.Summary
	if g.Tags != nil {
		for _, name := range g.Tags {
			if !f.hasCandidate(name) {
				f.candidates = append(f.candidates, api.Tag{Name: name})
				f.coined = append(f.coined, name)
			}
		}
		f.selected = slices.Clone(g.Tags)
	}
	delete(f.errs, FieldTitle)
	delete(f.errs, FieldSummary)
}

func (f *ArticleForm) hasCandidate(name string) bool {
	for _, t := range f.candidates {
		if t.Name == name {
			return true
		}
	}
	return false
}

func validate(field Field, v string) string {
	trimmed := strings.TrimSpace(v)
	switch field {
	case FieldTitle:
		if trimmed == "" {
			return MsgTitleRequired
		}
		if utf8.RuneCountInString(trimmed) > MaxTitleLen {
			return MsgTitleTooLong
		}
	case FieldURL:
		if trimmed == "" {
			return MsgURLRequired
		}
		if !ValidURL(trimmed) {
			return MsgURLInvalid
		}
		if utf8.RuneCountInString(trimmed) > MaxURLLen {
			return MsgURLTooLong
		}
	case FieldSummary:
		if trimmed == "" {
			return MsgSummaryRequired
		}
		if utf8.RuneCountInString(trimmed) > MaxSummaryLen {
			return MsgSummaryTooLong
		}
	}
	return ""
}

// ValidURL reports whether s is an absolute http or https URL with a host.
func ValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
