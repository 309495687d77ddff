package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/user/kiji/internal/api"
	"github.com/user/kiji/internal/store"
	"golang.org/x/sync/errgroup"
)

var tagsJSON bool

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List tags with article counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		var g errgroup.Group
		g.Go(func() error { return a.ArticleStore.Load(ctx) })
		g.Go(func() error { return a.TagStore.Load(ctx) })
		if err := g.Wait(); err != nil {
			return fmt.Errorf("failed to list tags: %w", err)
		}

		counts := store.TagCounts(a.ArticleStore.State().Articles, a.TagStore.State().Tags)
		if tagsJSON {
			return printer.JSON(counts)
		}
		if len(counts) == 0 {
			printer.Print("No tags yet.")
			return nil
		}
		table := printer.NewTable([]string{"ID", "Name", "Articles"})
		for _, c := range counts {
			table.AddRow([]string{strconv.FormatInt(c.ID, 10), c.Name, strconv.Itoa(c.Count)})
		}
		table.Render()
		return nil
	},
}

var tagsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tag, err := a.TagStore.Create(cmd.Context(), api.TagInput{Name: args[0]})
		if err != nil {
			return fmt.Errorf("failed to create tag: %w", err)
		}
		printer.Success("Created tag %d: %s", tag.ID, tag.Name)
		return nil
	},
}

var tagsRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a tag",
	Long:  "Rename a tag. The backend rewrites the tag name on every article that carries it.",
	Args:  cobra.ExactArgs(2),
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

		tag, err := a.TagStore.Update(cmd.Context(), id, api.TagInput{Name: args[1]})
		if err != nil {
			return fmt.Errorf("failed to rename tag %d: %w", id, err)
		}
		a.TagsChanged()
		printer.Success("Renamed tag %d to %s", tag.ID, tag.Name)
		return nil
	},
}

var tagsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a tag",
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

		if err := a.TagStore.Delete(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to delete tag %d: %w", id, err)
		}
		a.TagsChanged()
		printer.Success("Deleted tag %d", id)
		return nil
	},
}

func init() {
	tagsCmd.Flags().BoolVarP(&tagsJSON, "json", "j", false, "Output as JSON")
	tagsCmd.AddCommand(tagsAddCmd, tagsRenameCmd, tagsDeleteCmd)
	rootCmd.AddCommand(tagsCmd)
}
