package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/kiji/internal/api"
)

var (
	jsonOutput      bool
	plaintextOutput bool
)

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search articles",
	Long:  "Search article titles, summaries and memos on the backend.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyword := strings.Join(args, " ")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Search.Search(cmd.Context(), keyword); err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		results := a.Search.State().Results

		if jsonOutput {
			return printer.JSON(results)
		}
		if plaintextOutput {
			return outputPlaintext(results)
		}
		return outputDefault(results)
	},
}

func outputPlaintext(results []api.Article) error {
	out := printer.Out()
	for _, r := range results {
		fmt.Fprintf(out, "%d\t%s\t%s\n", r.ID, r.Title, r.URL)
	}
	return nil
}

func outputDefault(results []api.Article) error {
	if len(results) == 0 {
		printer.Print("No results found.")
		return nil
	}
	for i, r := range results {
		printer.Print("%d. [%d] %s\n   %s", i+1, r.ID, printer.Bold(r.Title), r.URL)
		if r.Summary != "" {
			printer.Print("   %s", truncate(r.Summary, 100))
		}
		if len(r.Tags) > 0 {
			printer.Print("   %s", printer.Dim("#"+strings.Join(r.Tags, " #")))
		}
		printer.Print("")
	}
	return nil
}

func init() {
	searchCmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	searchCmd.Flags().BoolVarP(&plaintextOutput, "plaintext", "p", false, "Output as plaintext")
	rootCmd.AddCommand(searchCmd)
}
