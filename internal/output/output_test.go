package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/kiji/internal/apierr"
)

func newTestPrinter(quiet bool) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	p := NewPrinter(PrinterOptions{ColorMode: ColorNever, Quiet: quiet, Out: &out, Err: &errOut})
	return p, &out, &errOut
}

func TestParseColorMode(t *testing.T) {
	for in, want := range map[string]ColorMode{"auto": ColorAuto, "always": ColorAlways, "never": ColorNever} {
		got, err := ParseColorMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseColorMode("rainbow")
	assert.Error(t, err)
}

func TestResolveColors(t *testing.T) {
	t.Setenv("TERM", "xterm")
	assert.True(t, ResolveColors(ColorAlways, false))
	assert.False(t, ResolveColors(ColorNever, true))
	assert.True(t, ResolveColors(ColorAuto, true))

	t.Setenv("NO_COLOR", "1")
	assert.False(t, ResolveColors(ColorAuto, true))
}

func TestResolveColors_DumbTerminal(t *testing.T) {
	t.Setenv("TERM", "dumb")
	assert.False(t, ResolveColors(ColorAuto, true))
}

func TestPrinter_PlainPrefixes(t *testing.T) {
	p, out, errOut := newTestPrinter(false)

	p.Success("created article %d", 3)
	p.Error("failed: %s", "100%")

	assert.Equal(t, "[OK] created article 3\n", out.String())
	assert.Equal(t, "[ERROR] failed: 100%\n", errOut.String())
}

func TestPrinter_Quiet(t *testing.T) {
	p, out, errOut := newTestPrinter(true)

	p.Info("hello")
	p.Success("done")
	p.Header("Articles")
	p.Error("still shown")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "still shown")
}

func TestPrinter_Header(t *testing.T) {
	p, out, _ := newTestPrinter(false)
	p.Header("記事")
	assert.Equal(t, "\n記事\n--\n", out.String())
}

func TestPrinter_JSON(t *testing.T) {
	p, out, _ := newTestPrinter(true)
	require.NoError(t, p.JSON(map[string]int{"count": 2}))
	assert.Equal(t, "{\n  \"count\": 2\n}\n", out.String())
}

func TestTable_Render(t *testing.T) {
	p, out, _ := newTestPrinter(false)
	table := p.NewTable([]string{"id", "title"})
	table.AddRow([]string{"1", "Go言語入門"})
	table.AddRow([]string{"2", "React"})
	assert.Equal(t, 2, table.Len())
	table.Render()

	assert.Contains(t, out.String(), "Go言語入門")
	assert.Contains(t, out.String(), "React")
	assert.Contains(t, strings.ToUpper(out.String()), "TITLE")
}

func TestTable_Quiet(t *testing.T) {
	p, out, _ := newTestPrinter(true)
	table := p.NewTable([]string{"id"})
	table.AddRow([]string{"1"})
	table.Render()
	assert.Empty(t, out.String())
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		summary    string
		exitCode   int
		suggestion bool
	}{
		{
			name:       "network",
			err:        apierr.New(apierr.MsgNetwork, 0, "/api/articles", "GET", nil),
			summary:    apierr.MsgNetwork,
			exitCode:   ExitNetwork,
			suggestion: true,
		},
		{
			name:     "not found",
			err:      fmt.Errorf("show: %w", apierr.New("article not found", 404, "/api/articles/9", "GET", nil)),
			summary:  apierr.MsgNotFound,
			exitCode: ExitNotFound,
		},
		{
			name:       "unauthorized",
			err:        apierr.New("nope", 401, "/api/articles", "GET", nil),
			summary:    apierr.MsgUnauthorized,
			exitCode:   ExitGeneral,
			suggestion: true,
		},
		{
			name:     "deadline",
			err:      fmt.Errorf("list: %w", context.DeadlineExceeded),
			summary:  "request timed out",
			exitCode: ExitNetwork,
		},
		{
			name:     "plain",
			err:      errors.New("boom"),
			summary:  "boom",
			exitCode: ExitGeneral,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err, "http://localhost:8080")
			assert.Equal(t, tt.summary, got.Summary)
			assert.Equal(t, tt.exitCode, got.ExitCode)
			assert.Equal(t, tt.suggestion, got.Suggestion != "")
		})
	}
}

func TestFromError_KeepsCLIError(t *testing.T) {
	in := &CLIError{Summary: "usage", ExitCode: ExitUsageError}
	assert.Same(t, in, FromError(fmt.Errorf("wrapped: %w", in), ""))
}

func TestFormatError(t *testing.T) {
	p, _, errOut := newTestPrinter(false)
	p.FormatError(&CLIError{
		Summary:    "記事が見つかりませんでした",
		Detail:     "GET /api/articles/9 returned 404: article not found",
		Suggestion: "Run 'kiji articles' to list ids",
	})

	out := errOut.String()
	assert.Contains(t, out, "[ERROR] 記事が見つかりませんでした")
	assert.Contains(t, out, "Cause: GET /api/articles/9 returned 404")
	assert.Contains(t, out, "Suggestion: Run 'kiji articles'")

	errOut.Reset()
	p.FormatError(&CLIError{Summary: "only summary"})
	assert.NotContains(t, errOut.String(), "Cause:")
}
