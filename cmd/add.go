package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/kiji/internal/api"
	"github.com/user/kiji/internal/form"
	"github.com/user/kiji/internal/output"
)

type articleFlags struct {
	title    string
	url      string
	summary  string
	memo     string
	tags     []string
	generate bool
}

var (
	addFlags  articleFlags
	editFlags articleFlags
)

func (f *articleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Article title")
	cmd.Flags().StringVar(&f.url, "url", "", "Article URL")
	cmd.Flags().StringVar(&f.summary, "summary", "", "Article summary")
	cmd.Flags().StringVar(&f.memo, "memo", "", "Personal memo")
	cmd.Flags().StringSliceVarP(&f.tags, "tag", "t", nil, "Tag name (repeatable)")
	cmd.Flags().BoolVarP(&f.generate, "generate", "g", false, "Fill title, summary and tags with AI generation")
}

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Save a new article",
	Long: `Save a new article. Title, URL and summary are required unless --generate
fills them from the page.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			addFlags.url = args[0]
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		if err := a.TagStore.Load(ctx); err != nil {
			logger.Warn("failed to load tags", "error", err)
		}
		f := form.New(a.TagStore.State().Tags)
		f.URL = addFlags.url
		f.Memo = addFlags.memo

		if addFlags.generate {
			if msg := f.CheckGenerate(); msg != "" {
				return usageError(msg, "kiji add --help")
			}
			printer.Info("Generating metadata for %s ...", f.URL)
			g, err := a.Generator.Generate(ctx, strings.TrimSpace(f.URL), strings.TrimSpace(f.Memo))
			if err != nil {
				return &output.CLIError{
					Summary:  form.GenerateErrorMessage(err),
					Detail:   err.Error(),
					ExitCode: output.ExitGeneral,
				}
			}
			f.ApplyGenerated(g)
		}

		applyFlags(cmd, f, &addFlags)

		in, err := submit(f)
		if err != nil {
			return err
		}

		created, err := a.ArticleStore.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("failed to create article: %w", err)
		}
		if hasNewTags(f, in.Tags) {
			a.TagStore.Invalidate()
		}

		printer.Success("Added article %d: %s", created.ID, created.Title)
		return nil
	},
}

// applyFlags copies explicitly set flags over the form values.
func applyFlags(cmd *cobra.Command, f *form.ArticleForm, flags *articleFlags) {
	if cmd.Flags().Changed("title") {
		f.Title = flags.title
	}
	if cmd.Flags().Changed("url") {
		f.URL = flags.url
	}
	if cmd.Flags().Changed("summary") {
		f.Summary = flags.summary
	}
	if cmd.Flags().Changed("memo") {
		f.Memo = flags.memo
	}
	if cmd.Flags().Changed("tag") {
		for _, name := range f.Selected() {
			f.ToggleTag(name)
		}
		for _, name := range flags.tags {
			if err := f.PickTag(name); err != nil {
				logger.Warn("skipping tag", "tag", name, "error", err)
			}
		}
	}
}

func submit(f *form.ArticleForm) (api.ArticleInput, error) {
	in, err := f.Submit()
	var verr *form.ValidationError
	if errors.As(err, &verr) {
		msgs := make([]string, 0, len(verr.Fields))
		for _, field := range form.Fields {
			if msg, ok := verr.Fields[field]; ok {
				msgs = append(msgs, fmt.Sprintf("--%s: %s", field, msg))
			}
		}
		return in, &output.CLIError{
			Summary:  "invalid article",
			Detail:   strings.Join(msgs, "; "),
			ExitCode: output.ExitUsageError,
		}
	}
	return in, err
}

func hasNewTags(f *form.ArticleForm, tags []string) bool {
	for _, name := range tags {
		if f.IsNew(name) {
			return true
		}
	}
	return false
}

func init() {
	addFlags.register(addCmd)
	rootCmd.AddCommand(addCmd)
}
