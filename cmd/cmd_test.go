package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/kiji/internal/api"
	"github.com/user/kiji/internal/apierr"
	"github.com/user/kiji/internal/apitest"
	"github.com/user/kiji/internal/form"
	"github.com/user/kiji/internal/output"
	"github.com/user/kiji/internal/store"
)

type result struct {
	stdout string
	stderr string
	code   int
}

// resetFlags restores every flag to its default. Commands are package
// globals, so flag values would otherwise leak between runs.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace([]string{})
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, baseURL, stdin string, args ...string) result {
	t.Helper()
	viper.Reset()
	resetFlags(rootCmd)
	cfg, logger, printer = nil, nil, nil

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("KIJI_DATA_DIR", filepath.Join(home, ".kiji"))
	t.Setenv("KIJI_API_BASE_URL", baseURL)
	t.Setenv("KIJI_CACHE_BACKEND", "memory")
	t.Setenv("KIJI_GENERATOR_PROVIDER", "backend")

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append(args, "--color=never"))

	code := Execute()
	return result{stdout: out.String(), stderr: errOut.String(), code: code}
}

func newServer(t *testing.T) *apitest.Server {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	return srv
}

func seed(srv *apitest.Server, title string, tags ...string) apitest.Article {
	return srv.AddArticle(apitest.Article{
		Title:   title,
		URL:     "https://example.com/" + title,
		Summary: title + " summary",
		Tags:    tags,
	})
}

func TestArticles(t *testing.T) {
	srv := newServer(t)
	seed(srv, "golang", "go")
	seed(srv, "rust")

	res := run(t, srv.URL, "", "articles")

	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "golang")
	assert.Contains(t, res.stdout, "rust")
}

func TestArticles_JSON(t *testing.T) {
	srv := newServer(t)
	seed(srv, "golang", "go")
	seed(srv, "rust")

	res := run(t, srv.URL, "", "articles", "--json")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)

	var articles []api.Article
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &articles))
	require.Len(t, articles, 2)
	assert.Equal(t, []string{"go"}, articles[0].Tags)
	assert.NotNil(t, articles[1].Tags)
	assert.Empty(t, articles[1].Memo)
}

func TestArticles_Empty(t *testing.T) {
	srv := newServer(t)

	res := run(t, srv.URL, "", "ls")

	require.Equal(t, output.ExitSuccess, res.code)
	assert.Contains(t, res.stdout, "No articles found.")
}

func TestShow(t *testing.T) {
	srv := newServer(t)
	a := seed(srv, "golang", "go")

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{name: "found", args: []string{"show", "1"}, wantOut: "golang summary"},
		{name: "not found", args: []string{"show", "99"}, wantCode: output.ExitNotFound, wantErr: apierr.MsgNotFound},
		{name: "bad id", args: []string{"show", "abc"}, wantCode: output.ExitUsageError, wantErr: `invalid id "abc"`},
		{name: "zero id", args: []string{"show", "0"}, wantCode: output.ExitUsageError},
	}
	require.Equal(t, int64(1), a.ID)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, srv.URL, "", tt.args...)
			assert.Equal(t, tt.wantCode, res.code)
			assert.Contains(t, res.stdout, tt.wantOut)
			assert.Contains(t, res.stderr, tt.wantErr)
		})
	}
}

func TestAdd(t *testing.T) {
	srv := newServer(t)
	srv.AddTag("go")

	res := run(t, srv.URL, "", "add",
		"--title", "Go", "--url", "https://go.dev", "--summary", "The Go language",
		"--tag", "Go", "--tag", "new", "--memo", "read later")

	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Added article")
	articles := srv.Articles()
	require.Len(t, articles, 1)
	assert.Equal(t, "Go", articles[0].Title)
	assert.Equal(t, []string{"go", "new"}, articles[0].Tags)
	require.NotNil(t, articles[0].Memo)
	assert.Equal(t, "read later", *articles[0].Memo)
}

func TestAdd_ValidationError(t *testing.T) {
	srv := newServer(t)

	res := run(t, srv.URL, "", "add", "--title", "Go", "--url", "ftp://go.dev")

	assert.Equal(t, output.ExitUsageError, res.code)
	assert.Contains(t, res.stderr, "--url: "+form.MsgURLInvalid)
	assert.Contains(t, res.stderr, "--summary: "+form.MsgSummaryRequired)
	assert.NotContains(t, res.stderr, "--title")
	assert.Empty(t, srv.Articles())
	assert.Equal(t, 0, srv.Calls("POST /api/articles"))
}

func TestAdd_Generate(t *testing.T) {
	srv := newServer(t)
	srv.SetGenerated(apitest.Article{Title: "Generated", Summary: "Generated summary", Tags: []string{"ai"}})

	res := run(t, srv.URL, "", "add", "https://go.dev", "--generate")

	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	articles := srv.Articles()
	require.Len(t, articles, 1)
	assert.Equal(t, "Generated", articles[0].Title)
	assert.Equal(t, "https://go.dev", articles[0].URL)
	assert.Equal(t, []string{"ai"}, articles[0].Tags)
}

func TestAdd_GenerateFlagsOverride(t *testing.T) {
	srv := newServer(t)
	srv.SetGenerated(apitest.Article{Title: "Generated", Summary: "Generated summary", Tags: []string{"ai"}})

	res := run(t, srv.URL, "", "add", "https://go.dev", "--generate", "--title", "Mine")

	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	articles := srv.Articles()
	require.Len(t, articles, 1)
	assert.Equal(t, "Mine", articles[0].Title)
	assert.Equal(t, "Generated summary", articles[0].Summary)
}

func TestAdd_GenerateErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		fail     int
		wantCode int
		wantErr  string
	}{
		{name: "no url", args: []string{"add", "--generate"}, wantCode: output.ExitUsageError, wantErr: form.MsgGenerateNoURL},
		{name: "invalid url", args: []string{"add", "not-a-url", "--generate"}, wantCode: output.ExitUsageError, wantErr: form.MsgURLInvalid},
		{name: "rate limited", args: []string{"add", "https://go.dev", "--generate"}, fail: 429, wantCode: output.ExitGeneral, wantErr: form.MsgGenerateRateLimit},
		{name: "timeout", args: []string{"add", "https://go.dev", "--generate"}, fail: 504, wantCode: output.ExitGeneral, wantErr: form.MsgGenerateTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t)
			if tt.fail != 0 {
				srv.Fail("POST /api/articles/generate", tt.fail, `{"error":"failed"}`)
			}

			res := run(t, srv.URL, "", tt.args...)

			assert.Equal(t, tt.wantCode, res.code)
			assert.Contains(t, res.stderr, tt.wantErr)
			assert.Empty(t, srv.Articles())
		})
	}
}

func TestEdit(t *testing.T) {
	srv := newServer(t)
	seed(srv, "golang", "go")

	res := run(t, srv.URL, "", "edit", "1", "--title", "Go!")

	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	articles := srv.Articles()
	assert.Equal(t, "Go!", articles[0].Title)
	assert.Equal(t, "golang summary", articles[0].Summary)
	assert.Equal(t, []string{"go"}, articles[0].Tags)
}

func TestEdit_ReplacesTags(t *testing.T) {
	srv := newServer(t)
	srv.AddTag("go")
	srv.AddTag("lang")
	seed(srv, "golang", "go")

	res := run(t, srv.URL, "", "edit", "1", "--tag", "lang")

	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Equal(t, []string{"lang"}, srv.Articles()[0].Tags)
}

func TestEdit_NotFound(t *testing.T) {
	srv := newServer(t)

	res := run(t, srv.URL, "", "edit", "7", "--title", "x")

	assert.Equal(t, output.ExitNotFound, res.code)
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name      string
		stdin     string
		args      []string
		wantLeft  int
		wantPrint string
	}{
		{name: "declined", stdin: "n\n", args: []string{"delete", "1"}, wantLeft: 1, wantPrint: "Cancelled."},
		{name: "no answer", stdin: "", args: []string{"delete", "1"}, wantLeft: 1, wantPrint: "Cancelled."},
		{name: "confirmed", stdin: "y\n", args: []string{"delete", "1"}, wantLeft: 0, wantPrint: "Deleted article 1"},
		{name: "yes flag", args: []string{"rm", "1", "--yes"}, wantLeft: 0, wantPrint: "Deleted article 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t)
			seed(srv, "golang")

			res := run(t, srv.URL, tt.stdin, tt.args...)

			require.Equal(t, output.ExitSuccess, res.code, res.stderr)
			assert.Len(t, srv.Articles(), tt.wantLeft)
			assert.Contains(t, res.stdout, tt.wantPrint)
		})
	}
}

func TestDelete_Failure(t *testing.T) {
	srv := newServer(t)
	seed(srv, "golang")
	srv.Fail("DELETE /api/articles/{id}", 500, `{"error":"boom"}`)

	res := run(t, srv.URL, "", "delete", "1", "--yes")

	assert.Equal(t, output.ExitGeneral, res.code)
	assert.Contains(t, res.stderr, apierr.MsgServer)
	assert.Len(t, srv.Articles(), 1)
}

func TestSearch(t *testing.T) {
	srv := newServer(t)
	seed(srv, "golang")
	seed(srv, "rust")

	res := run(t, srv.URL, "", "search", "GoLang")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "golang")
	assert.NotContains(t, res.stdout, "rust")

	res = run(t, srv.URL, "", "search", "golang", "--plaintext")
	assert.Equal(t, "1\tgolang\thttps://example.com/golang\n", res.stdout)

	res = run(t, srv.URL, "", "search", "nothing")
	assert.Contains(t, res.stdout, "No results found.")
}

func TestSearch_EncodesKeyword(t *testing.T) {
	srv := newServer(t)

	res := run(t, srv.URL, "", "search", "C++", "&", "Go")

	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	queries := srv.RawQueries("GET /api/articles/search")
	require.Len(t, queries, 1)
	assert.Equal(t, "keyword=C%2B%2B%20%26%20Go", queries[0])
}

func TestTags(t *testing.T) {
	srv := newServer(t)
	srv.AddTag("go")
	srv.AddTag("rust")
	seed(srv, "one", "go")
	seed(srv, "two", "go")

	res := run(t, srv.URL, "", "tags", "--json")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)

	var counts []store.TagCount
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &counts))
	require.Len(t, counts, 2)
	assert.Equal(t, "go", counts[0].Name)
	assert.Equal(t, 2, counts[0].Count)
	assert.Equal(t, "rust", counts[1].Name)
	assert.Equal(t, 0, counts[1].Count)

	res = run(t, srv.URL, "", "tags")
	assert.Contains(t, res.stdout, "rust")
}

func TestTags_Mutations(t *testing.T) {
	srv := newServer(t)
	srv.AddTag("go")
	seed(srv, "one", "go")

	res := run(t, srv.URL, "", "tags", "add", "rust")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	require.Len(t, srv.Tags(), 2)

	res = run(t, srv.URL, "", "tags", "rename", "1", "golang")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "golang", srv.Tags()[0].Name)
	assert.Equal(t, []string{"golang"}, srv.Articles()[0].Tags)

	res = run(t, srv.URL, "", "tags", "rename", "1", "rust")
	assert.Equal(t, output.ExitGeneral, res.code)
	assert.Contains(t, res.stderr, "tag already exists")
	assert.Equal(t, "golang", srv.Tags()[0].Name)

	res = run(t, srv.URL, "", "tags", "delete", "2")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	require.Len(t, srv.Tags(), 1)
}

func TestBooks(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*apitest.Server)
		want  []string
	}{
		{name: "empty", setup: func(*apitest.Server) {}},
		{
			name: "failure",
			setup: func(srv *apitest.Server) {
				srv.Fail("GET /api/book-recommendations", 500, `{"error":"boom"}`)
			},
		},
		{
			name: "books",
			setup: func(srv *apitest.Server) {
				srv.SetBooks([]apitest.Book{{
					Title:         "プログラミング言語Go",
					Author:        "Donovan",
					PurchaseLinks: map[string]string{"amazon": "https://amazon.example/go"},
				}})
			},
			want: []string{"おすすめの本", "プログラミング言語Go", "https://amazon.example/go"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t)
			tt.setup(srv)

			res := run(t, srv.URL, "", "books")

			require.Equal(t, output.ExitSuccess, res.code)
			if len(tt.want) == 0 {
				assert.Empty(t, res.stdout)
				return
			}
			for _, w := range tt.want {
				assert.Contains(t, res.stdout, w)
			}
			assert.NotContains(t, res.stdout, "楽天")
		})
	}
}

func TestGenerate(t *testing.T) {
	srv := newServer(t)
	srv.SetGenerated(apitest.Article{Title: "Generated", Summary: "Generated summary", Tags: []string{"ai", "go"}})

	res := run(t, srv.URL, "", "generate", "https://go.dev", "--json")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)

	var g api.GeneratedArticle
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &g))
	assert.Equal(t, "Generated", g.Title)
	assert.Equal(t, "https://go.dev", g.URL)
	assert.Equal(t, []string{"ai", "go"}, g.Tags)
	assert.Empty(t, srv.Articles())

	res = run(t, srv.URL, "", "generate", "https://go.dev")
	assert.Contains(t, res.stdout, "ai, go")
}

func TestNetworkError(t *testing.T) {
	srv := apitest.NewServer()
	url := srv.URL
	srv.Close()

	res := run(t, url, "", "articles")

	assert.Equal(t, output.ExitNetwork, res.code)
	assert.Contains(t, res.stderr, "Suggestion:")
	assert.Contains(t, res.stderr, url)
}

func TestStatusAndCacheClear(t *testing.T) {
	srv := newServer(t)

	res := run(t, srv.URL, "", "status")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, srv.URL)
	assert.Contains(t, res.stdout, "reachable")
	assert.Contains(t, res.stdout, "memory")

	res = run(t, srv.URL, "", "cache", "clear")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "[OK] Cache cleared")
}

func TestStatus_Unreachable(t *testing.T) {
	srv := apitest.NewServer()
	url := srv.URL
	srv.Close()

	res := run(t, url, "", "status")

	require.Equal(t, output.ExitSuccess, res.code)
	assert.Contains(t, res.stderr, "unreachable")
}

func TestUsageErrors(t *testing.T) {
	srv := newServer(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown flag", args: []string{"articles", "--nope"}},
		{name: "zero edit id", args: []string{"edit", "0", "--title", "x"}},
		{name: "bad tag id", args: []string{"tags", "delete", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, srv.URL, "", tt.args...)
			assert.Equal(t, output.ExitUsageError, res.code)
		})
	}
}

func TestQuiet(t *testing.T) {
	srv := newServer(t)

	res := run(t, srv.URL, "", "tags", "add", "go", "-q")

	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Empty(t, res.stdout)
	assert.Len(t, srv.Tags(), 1)
}
