package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/user/kiji/internal/api"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usageError(fmt.Sprintf("invalid id %q: must be a positive integer", s), "")
	}
	return id, nil
}

func truncate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-1]) + "…"
}

func joinTags(tags []string) string {
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ", ")
}

// createdDate trims the backend timestamp to its date part.
func createdDate(a api.Article) string {
	if len(a.CreatedAt) >= 10 {
		return a.CreatedAt[:10]
	}
	return a.CreatedAt
}

// confirm asks a yes/no question on out and reads the answer from in.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func articleRows(articles []api.Article) [][]string {
	rows := make([][]string, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, []string{
			strconv.FormatInt(a.ID, 10),
			truncate(a.Title, 48),
			truncate(joinTags(a.Tags), 32),
			createdDate(a),
		})
	}
	return rows
}

func printArticles(articles []api.Article) {
	if len(articles) == 0 {
		printer.Print("No articles found.")
		return
	}
	table := printer.NewTable([]string{"ID", "Title", "Tags", "Created"})
	for _, row := range articleRows(articles) {
		table.AddRow(row)
	}
	table.Render()
}

func printArticle(a api.Article) {
	printer.Header(a.Title)
	printer.Print("ID:      %d", a.ID)
	printer.Print("URL:     %s", a.URL)
	printer.Print("Tags:    %s", joinTags(a.Tags))
	if a.Memo != "" {
		printer.Print("Memo:    %s", a.Memo)
	}
	if a.CreatedAt != "" {
		printer.Print("Created: %s", a.CreatedAt)
	}
	if a.UpdatedAt != "" && a.UpdatedAt != a.CreatedAt {
		printer.Print("Updated: %s", a.UpdatedAt)
	}
	printer.Print("")
	printer.Print("%s", a.Summary)
}
