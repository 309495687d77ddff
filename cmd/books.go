package cmd

import (
	"github.com/spf13/cobra"
)

var booksRefresh bool

// books prints nothing when recommendations fail or are empty.
var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "Show book recommendations based on your articles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		load := a.BookStore.Load
		if booksRefresh {
			load = a.BookStore.Refetch
		}
		if err := load(cmd.Context()); err != nil {
			logger.Debug("book recommendations unavailable", "error", err)
			return nil
		}

		st := a.BookStore.State()
		if len(st.Books) == 0 {
			return nil
		}

		printer.Header("おすすめの本")
		for _, b := range st.Books {
			printer.Print("%s  %s", printer.Bold(b.Title), printer.Dim(b.Author))
			if b.PurchaseLinks.Amazon != "" {
				printer.Print("  Amazon:  %s", b.PurchaseLinks.Amazon)
			}
			if b.PurchaseLinks.Rakuten != "" {
				printer.Print("  楽天:    %s", b.PurchaseLinks.Rakuten)
			}
		}
		return nil
	},
}

func init() {
	booksCmd.Flags().BoolVarP(&booksRefresh, "refresh", "r", false, "Bypass the cache")
	rootCmd.AddCommand(booksCmd)
}
