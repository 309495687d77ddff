package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/kiji/internal/form"
	"github.com/user/kiji/internal/output"
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit an article",
	Long:  "Edit an article. Only the given flags change; --tag replaces the whole tag list.",
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
		ctx := cmd.Context()

		current, err := a.Articles.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get article %d: %w", id, err)
		}
		if err := a.TagStore.Load(ctx); err != nil {
			logger.Warn("failed to load tags", "error", err)
		}

		f := form.NewEditForm(*current, a.TagStore.State().Tags)
		applyFlags(cmd, f, &editFlags)

		if editFlags.generate {
			if msg := f.CheckGenerate(); msg != "" {
				return usageError(msg, "kiji edit --help")
			}
			g, err := a.Generator.Generate(ctx, strings.TrimSpace(f.URL), strings.TrimSpace(f.Memo))
			if err != nil {
				return &output.CLIError{Summary: form.GenerateErrorMessage(err), Detail: err.Error(), ExitCode: output.ExitGeneral}
			}
			f.ApplyGenerated(g)
		}

		in, err := submit(f)
		if err != nil {
			return err
		}

		updated, err := a.ArticleStore.Update(ctx, id, in)
		if err != nil {
			return fmt.Errorf("failed to update article %d: %w", id, err)
		}
		if hasNewTags(f, in.Tags) {
			a.TagStore.Invalidate()
		}

		printer.Success("Updated article %d: %s", updated.ID, updated.Title)
		return nil
	},
}

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete an article",
	Args:    cobra.ExactArgs(1),
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
		ctx := cmd.Context()

		if !deleteYes {
			article, err := a.Articles.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get article %d: %w", id, err)
			}
			if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete %q?", article.Title)) {
				printer.Info("Cancelled.")
				return nil
			}
		}

		if err := a.ArticleStore.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete article %d: %w", id, err)
		}
		printer.Success("Deleted article %d", id)
		return nil
	},
}

func init() {
	editFlags.register(editCmd)
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
}
