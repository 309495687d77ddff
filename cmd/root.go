package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/user/kiji/internal/app"
	"github.com/user/kiji/internal/config"
	"github.com/user/kiji/internal/logging"
	"github.com/user/kiji/internal/output"
	"github.com/user/kiji/internal/tui"
)

var (
	verbose   bool
	quiet     bool
	colorFlag string
	cfg       *config.Config
	logger    *slog.Logger
	printer   *output.Printer
)

var rootCmd = &cobra.Command{
	Use:   "kiji",
	Short: "Article bookmark manager",
	Long: `kiji keeps a list of articles worth reading, each with a summary, tags and a memo.

Run without arguments to open the TUI, or use the subcommands below:
  kiji articles            # List saved articles
  kiji add --generate URL  # Save an article with an AI-written summary
  kiji search react        # Search titles, summaries and memos
  kiji tags                # List tags with article counts`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		fileLogger, f, err := logging.OpenFile(cfg.LogPath(), logLevel())
		if err != nil {
			return err
		}
		defer f.Close()

		a, err := app.New(cfg, fileLogger)
		if err != nil {
			return err
		}
		defer a.Close()

		return tui.Run(a)
	},
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		p := printer
		if p == nil {
			p = output.NewPrinter(output.PrinterOptions{ColorMode: output.ColorNever, Err: rootCmd.ErrOrStderr()})
		}
		baseURL := ""
		if cfg != nil {
			baseURL = cfg.API.BaseURL
		}
		cliErr := output.FromError(err, baseURL)
		p.FormatError(cliErr)
		return cliErr.ExitCode
	}
	return output.ExitSuccess
}

func init() {
	rootCmd.PersistentFlags().String("data-dir", "", "Data directory (default: ~/.kiji)")
	rootCmd.PersistentFlags().String("api-url", "", "Backend base URL (default: http://localhost:8080)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress informational output")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto", "color output: auto, always, never")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err.Error(), cmd.CommandPath()+" --help")
	})
}

func initConfig(cmd *cobra.Command) error {
	mode, err := output.ParseColorMode(colorFlag)
	if err != nil {
		return usageError(err.Error(), "")
	}

	// Flags only override when given so config and env still apply.
	for flag, key := range map[string]string{"data-dir": "data_dir", "api-url": "api.base_url"} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			viper.Set(key, f.Value.String())
		}
	}

	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	printer = output.NewPrinter(output.PrinterOptions{
		ColorMode:    mode,
		ConfigColors: cfg.Output.Colors,
		Quiet:        quiet,
		Out:          cmd.OutOrStdout(),
		Err:          cmd.ErrOrStderr(),
	})
	logger = logging.New(logLevel(), cmd.ErrOrStderr())

	logger.Debug("configuration loaded",
		"data_dir", cfg.DataDir,
		"api", cfg.API.BaseURL,
		"cache", cfg.Cache.Backend,
		"generator", cfg.Generator.Provider,
	)
	return nil
}

func logLevel() slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// openApp builds the shared clients and stores for a subcommand.
func openApp() (*app.App, error) {
	return app.New(cfg, logger)
}

func usageError(summary, suggestion string) *output.CLIError {
	e := &output.CLIError{Summary: summary, ExitCode: output.ExitUsageError}
	if suggestion != "" {
		e.Suggestion = "See '" + suggestion + "'"
	}
	return e
}

