package cmd

import (
	"github.com/spf13/cobra"
	"github.com/user/kiji/internal/form"
	"github.com/user/kiji/internal/output"
)

var (
	generateMemo string
	generateJSON bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <url>",
	Short: "Preview AI-generated title, summary and tags for a URL",
	Long:  "Preview AI-generated metadata without saving. Use 'kiji add --generate' to save.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := form.New(nil)
		f.URL = args[0]
		if msg := f.CheckGenerate(); msg != "" {
			return usageError(msg, "kiji generate --help")
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		g, err := a.Generator.Generate(cmd.Context(), f.URL, generateMemo)
		if err != nil {
			return &output.CLIError{
				Summary:  form.GenerateErrorMessage(err),
				Detail:   err.Error(),
				ExitCode: output.ExitGeneral,
			}
		}

		if generateJSON {
			return printer.JSON(g)
		}
		printer.Header(g.Title)
		printer.Print("URL:  %s", g.URL)
		printer.Print("Tags: %s", joinTags(g.Tags))
		printer.Print("")
		printer.Print("%s", g.Summary)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateMemo, "memo", "", "Memo passed to the generator as context")
	generateCmd.Flags().BoolVarP(&generateJSON, "json", "j", false, "Output as JSON")
	rootCmd.AddCommand(generateCmd)
}
