package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	articlesJSON    bool
	articlesRefresh bool
)

var articlesCmd = &cobra.Command{
	Use:     "articles",
	Aliases: []string{"ls"},
	Short:   "List saved articles",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		load := a.ArticleStore.Load
		if articlesRefresh {
			load = a.ArticleStore.Refetch
		}
		if err := load(cmd.Context()); err != nil {
			return fmt.Errorf("failed to list articles: %w", err)
		}

		articles := a.ArticleStore.State().Articles
		if articlesJSON {
			return printer.JSON(articles)
		}
		printArticles(articles)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		article, err := a.Articles.Get(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to get article %d: %w", id, err)
		}
		if articlesJSON {
			return printer.JSON(article)
		}
		printArticle(*article)
		return nil
	},
}

func init() {
	articlesCmd.Flags().BoolVarP(&articlesJSON, "json", "j", false, "Output as JSON")
	articlesCmd.Flags().BoolVarP(&articlesRefresh, "refresh", "r", false, "Bypass the cache")
	showCmd.Flags().BoolVarP(&articlesJSON, "json", "j", false, "Output as JSON")
	rootCmd.AddCommand(articlesCmd)
	rootCmd.AddCommand(showCmd)
}
